package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"nemt/internal/domain"
	"nemt/internal/service"
)

// ──────────────────────────────────────────────
// 2. TRIP LIFECYCLE
// ──────────────────────────────────────────────

func addActiveTrip(tripRepo *MockTripRepository, id string, status domain.TripStatus) *domain.Trip {
	trip := &domain.Trip{
		ID:              id,
		TripNumber:      "TRP-" + id,
		JourneyType:     domain.JourneyOneWay,
		ServiceLevel:    domain.ServiceAmbulatory,
		Status:          status,
		ScheduledTime:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		PickupLocation:  "12 Oak St",
		DropoffLocation: "Mercy Dialysis Center",
	}
	tripRepo.AddTrip(trip)
	return trip
}

func TestUpdateStatus_DriverAppProgression(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)
	addActiveTrip(tripRepo, "trip-1", domain.TripStatusAssigned)

	ctx := context.Background()
	for _, target := range []domain.TripStatus{domain.TripStatusOnWay, domain.TripStatusArrived, domain.TripStatusInProgress} {
		trip, err := svc.UpdateStatus(ctx, "trip-1", target)
		if err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
		if trip.Status != target {
			t.Fatalf("expected %s, got %s", target, trip.Status)
		}
	}

	stored := tripRepo.GetTrip("trip-1")
	if stored.ActualPickupTime.IsZero() {
		t.Error("entering in_progress should stamp the actual pickup time")
	}
}

func TestUpdateStatus_RejectsInvalidTransition(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)
	addActiveTrip(tripRepo, "trip-1", domain.TripStatusPending)

	_, err := svc.UpdateStatus(context.Background(), "trip-1", domain.TripStatusArrived)
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateStatus_RejectsTerminalTarget(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)
	addActiveTrip(tripRepo, "trip-1", domain.TripStatusInProgress)

	// Completion has its own operation; the generic transition refuses it.
	_, err := svc.UpdateStatus(context.Background(), "trip-1", domain.TripStatusCompleted)
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateStatus_TerminalTripIsFrozen(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)
	addActiveTrip(tripRepo, "trip-1", domain.TripStatusCancelled)

	_, err := svc.UpdateStatus(context.Background(), "trip-1", domain.TripStatusScheduled)
	if !errors.Is(err, service.ErrTripTerminal) {
		t.Errorf("expected ErrTripTerminal, got %v", err)
	}
}

func TestAssignDriver(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	feed := NewMockChangeFeed()
	svc := newTestTripService(tripRepo, driverRepo, NewMockRateSourceRepository(), feed, nil)

	addActiveTrip(tripRepo, "trip-1", domain.TripStatusPending)
	driverRepo.AddDriver(&domain.Driver{ID: "driver-1", Name: "Sam", IsActive: true, Status: domain.DriverStatusAvailable})

	trip, err := svc.AssignDriver(context.Background(), "trip-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Status != domain.TripStatusAssigned || trip.DriverID != "driver-1" {
		t.Errorf("expected assigned to driver-1, got status=%s driver=%s", trip.Status, trip.DriverID)
	}
	if feed.CountEvents() != 1 {
		t.Errorf("expected a change event, got %d", feed.CountEvents())
	}
}

func TestAssignDriver_InactiveDriverRejected(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	svc := newTestTripService(tripRepo, driverRepo, NewMockRateSourceRepository(), nil, nil)

	addActiveTrip(tripRepo, "trip-1", domain.TripStatusPending)
	driverRepo.AddDriver(&domain.Driver{ID: "driver-1", IsActive: false})

	_, err := svc.AssignDriver(context.Background(), "trip-1", "driver-1")
	if !errors.Is(err, service.ErrDriverInactive) {
		t.Errorf("expected ErrDriverInactive, got %v", err)
	}
}

func TestBulkAssign_SplitOutcome(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	svc := newTestTripService(tripRepo, driverRepo, NewMockRateSourceRepository(), nil, nil)

	addActiveTrip(tripRepo, "trip-1", domain.TripStatusPending)
	addActiveTrip(tripRepo, "trip-2", domain.TripStatusCompleted) // Terminal: will fail.
	addActiveTrip(tripRepo, "trip-3", domain.TripStatusScheduled)
	driverRepo.AddDriver(&domain.Driver{ID: "driver-1", IsActive: true})

	result, err := svc.BulkAssign(context.Background(), []string{"trip-1", "trip-2", "trip-3", "missing"}, "driver-1")
	if err != nil {
		t.Fatalf("bulk operations report per-item outcomes, not a top-level error: %v", err)
	}

	if result.Succeeded != 2 || result.Failed != 2 {
		t.Errorf("expected 2/2 split, got %d/%d", result.Succeeded, result.Failed)
	}
	if len(result.Outcomes) != 4 {
		t.Errorf("expected 4 outcomes, got %d", len(result.Outcomes))
	}
}

func TestBulkUpdateStatus_SplitOutcome(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)

	addActiveTrip(tripRepo, "trip-1", domain.TripStatusPending)
	addActiveTrip(tripRepo, "trip-2", domain.TripStatusInProgress) // Cannot go back to scheduled.

	result, err := svc.BulkUpdateStatus(context.Background(), []string{"trip-1", "trip-2"}, domain.TripStatusScheduled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Errorf("expected 1/1 split, got %d/%d", result.Succeeded, result.Failed)
	}
}

func TestCompleteTrip(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)
	addActiveTrip(tripRepo, "trip-1", domain.TripStatusInProgress)

	pickup := time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC)
	dropoff := pickup.Add(25 * time.Minute)

	trip, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{
		TripID:            "trip-1",
		ActualPickupTime:  pickup,
		ActualDropoffTime: dropoff,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Status != domain.TripStatusCompleted {
		t.Errorf("expected completed, got %s", trip.Status)
	}
}

func TestCompleteTrip_DropoffBeforePickup(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)
	addActiveTrip(tripRepo, "trip-1", domain.TripStatusInProgress)

	pickup := time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC)

	_, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{
		TripID:            "trip-1",
		ActualPickupTime:  pickup,
		ActualDropoffTime: pickup.Add(-time.Minute),
	})
	if !errors.Is(err, service.ErrDropoffBeforePickup) {
		t.Errorf("expected ErrDropoffBeforePickup, got %v", err)
	}
}

func TestCompleteTrip_WillCallGate(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)

	trip := addActiveTrip(tripRepo, "trip-1", domain.TripStatusAssigned)
	trip.WillCall = true
	trip.ScheduledTime = domain.WillCallSentinel(trip.ScheduledTime)
	tripRepo.AddTrip(trip)

	// No pickup time recorded anywhere: completion is refused.
	_, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{
		TripID:            "trip-1",
		ActualDropoffTime: time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, service.ErrWillCallUnresolved) {
		t.Fatalf("expected ErrWillCallUnresolved, got %v", err)
	}

	// With a pickup time the completion goes through and backfills the
	// placeholder scheduled time.
	pickup := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	completed, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{
		TripID:            "trip-1",
		ActualPickupTime:  pickup,
		ActualDropoffTime: pickup.Add(20 * time.Minute),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed.WillCall {
		t.Error("completion should clear the will-call flag")
	}
	if !completed.ScheduledTime.Equal(pickup) {
		t.Errorf("placeholder scheduled time should be backfilled to %v, got %v", pickup, completed.ScheduledTime)
	}
}

func TestCancelTrip(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)

	trip := addActiveTrip(tripRepo, "trip-1", domain.TripStatusScheduled)
	trip.Fare = domain.ComputedCharge(85)
	tripRepo.AddTrip(trip)

	cancelled, err := svc.CancelTrip(context.Background(), "trip-1", "patient hospitalized")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != domain.TripStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.CancellationReason != "patient hospitalized" {
		t.Errorf("reason not recorded: %q", cancelled.CancellationReason)
	}
	if cancelled.CancelledAt.IsZero() {
		t.Error("cancellation should stamp CancelledAt")
	}
	// Money is never zeroed at transition time; the pricing engine resolves
	// cancellation billing lazily.
	if cancelled.Fare.Amount() != 85 {
		t.Errorf("stored fare should be untouched, got %v", cancelled.Fare.Amount())
	}
}

func TestCancelTrip_RequiresReason(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)
	addActiveTrip(tripRepo, "trip-1", domain.TripStatusScheduled)

	_, err := svc.CancelTrip(context.Background(), "trip-1", "   ")
	if !errors.Is(err, service.ErrMissingReason) {
		t.Errorf("expected ErrMissingReason, got %v", err)
	}
}

func TestNoShowTrip(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)
	addActiveTrip(tripRepo, "trip-1", domain.TripStatusArrived)

	trip, err := svc.NoShowTrip(context.Background(), "trip-1", "not at pickup address")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Status != domain.TripStatusNoShow {
		t.Errorf("expected no-show, got %s", trip.Status)
	}
	if !trip.CancelledAt.IsZero() {
		t.Error("no-show should not stamp CancelledAt")
	}
}

func TestReinstateTrip(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)

	trip := addActiveTrip(tripRepo, "trip-1", domain.TripStatusCancelled)
	trip.CancellationReason = "wrong date"
	trip.CancelledAt = time.Now()
	trip.ActualPickupTime = time.Now()
	trip.Fare = domain.PinnedCharge(40)
	tripRepo.AddTrip(trip)

	reinstated, err := svc.ReinstateTrip(context.Background(), "trip-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reinstated.Status != domain.TripStatusScheduled {
		t.Errorf("default reinstate target should be scheduled, got %s", reinstated.Status)
	}
	if reinstated.CancellationReason != "" || !reinstated.CancelledAt.IsZero() || !reinstated.ActualPickupTime.IsZero() {
		t.Error("reinstatement should clear terminal-only fields")
	}
	if reinstated.Fare.Pinned() || reinstated.Fare.Amount() != 0 {
		t.Error("reinstatement should reset charges for recomputation")
	}
}

func TestReinstateTrip_ActiveTripRejected(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)
	addActiveTrip(tripRepo, "trip-1", domain.TripStatusScheduled)

	_, err := svc.ReinstateTrip(context.Background(), "trip-1", "")
	if !errors.Is(err, service.ErrTripNotTerminal) {
		t.Errorf("expected ErrTripNotTerminal, got %v", err)
	}
}

func TestReinstateTrip_TerminalTargetRejected(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)
	addActiveTrip(tripRepo, "trip-1", domain.TripStatusCancelled)

	_, err := svc.ReinstateTrip(context.Background(), "trip-1", domain.TripStatusNoShow)
	if !errors.Is(err, service.ErrInvalidReinstateTarget) {
		t.Errorf("expected ErrInvalidReinstateTarget, got %v", err)
	}
}

func TestResolveWillCall(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)

	trip := addActiveTrip(tripRepo, "trip-1", domain.TripStatusAssigned)
	trip.WillCall = true
	trip.ScheduledTime = domain.WillCallSentinel(trip.ScheduledTime)
	tripRepo.AddTrip(trip)

	pickup := time.Date(2026, 3, 10, 13, 45, 0, 0, time.UTC)
	resolved, err := svc.ResolveWillCall(context.Background(), "trip-1", pickup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resolved.ScheduledTime.Equal(pickup) {
		t.Errorf("expected scheduled time %v, got %v", pickup, resolved.ScheduledTime)
	}
}

func TestResolveWillCall_NonWillCallRejected(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)
	addActiveTrip(tripRepo, "trip-1", domain.TripStatusAssigned)

	_, err := svc.ResolveWillCall(context.Background(), "trip-1", time.Now())
	if !errors.Is(err, service.ErrNotWillCall) {
		t.Errorf("expected ErrNotWillCall, got %v", err)
	}
}

func TestConvertToRoundtrip(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)

	trip := addActiveTrip(tripRepo, "trip-1", domain.TripStatusAssigned)
	trip.TripNumber = "TRP-3000"
	trip.DriverID = "driver-1"
	trip.Distance = 6
	tripRepo.AddTrip(trip)

	resp, err := svc.ConvertToRoundtrip(context.Background(), "trip-1", time.Time{}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Trips) != 2 {
		t.Fatalf("expected outbound + return, got %d trips", len(resp.Trips))
	}

	outbound, returnLeg := resp.Trips[0], resp.Trips[1]
	if outbound.TripNumber != "TRP-3000A" || returnLeg.TripNumber != "TRP-3000B" {
		t.Errorf("expected relabelled A/B pair, got %q / %q", outbound.TripNumber, returnLeg.TripNumber)
	}
	if returnLeg.DriverID != "" || returnLeg.Status != domain.TripStatusPending {
		t.Error("spawned return leg should start unassigned and pending")
	}
	if returnLeg.PickupLocation != outbound.DropoffLocation {
		t.Error("return leg should reverse the route")
	}

	// Converting again is refused.
	_, err = svc.ConvertToRoundtrip(context.Background(), "trip-1", time.Time{}, false)
	if !errors.Is(err, service.ErrAlreadyRoundtrip) {
		t.Errorf("expected ErrAlreadyRoundtrip, got %v", err)
	}
}

func TestOverrideFare_PinsAgainstReprice(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	sourceRepo := NewMockRateSourceRepository()
	sourceRepo.AddSource(&domain.RateSource{
		ID:        "clinic-1",
		Kind:      domain.RateSourceClinic,
		Name:      "Mercy Clinic",
		FlatRates: map[domain.ServiceLevel]float64{domain.ServiceAmbulatory: 55},
	})
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), sourceRepo, nil, nil)

	trip := addActiveTrip(tripRepo, "trip-1", domain.TripStatusInProgress)
	trip.ClinicID = "clinic-1"
	trip.ActualPickupTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tripRepo.AddTrip(trip)

	overridden, err := svc.OverrideFare(context.Background(), "trip-1", 120)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !overridden.Fare.Pinned() || overridden.Fare.Amount() != 120 {
		t.Fatalf("expected pinned fare 120, got %v (pinned=%v)", overridden.Fare.Amount(), overridden.Fare.Pinned())
	}

	// Completion reprices, but the pinned fare must survive.
	completed, err := svc.CompleteTrip(context.Background(), service.CompleteTripRequest{
		TripID:            "trip-1",
		ActualDropoffTime: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed.Fare.Amount() != 120 {
		t.Errorf("pinned fare should survive recomputation, got %v", completed.Fare.Amount())
	}
}

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newTestTripService(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository(), nil, nil)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	near := addActiveTrip(tripRepo, "trip-near", domain.TripStatusAssigned)
	near.DriverID = "driver-1"
	near.ScheduledTime = at.Add(20 * time.Minute)
	tripRepo.AddTrip(near)

	far := addActiveTrip(tripRepo, "trip-far", domain.TripStatusAssigned)
	far.DriverID = "driver-1"
	far.ScheduledTime = at.Add(2 * time.Hour)
	tripRepo.AddTrip(far)

	done := addActiveTrip(tripRepo, "trip-done", domain.TripStatusCompleted)
	done.DriverID = "driver-1"
	done.ScheduledTime = at.Add(10 * time.Minute)
	tripRepo.AddTrip(done)

	conflicts, err := svc.DetectConflicts(context.Background(), "driver-1", at, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].TripID != "trip-near" {
		t.Errorf("expected trip-near flagged, got %s", conflicts[0].TripID)
	}
}
