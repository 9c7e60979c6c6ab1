package tests

import (
	"context"
	"testing"
	"time"

	"nemt/internal/domain"
	"nemt/internal/service"
)

// ──────────────────────────────────────────────
// 4. AUTO-ASSIGNMENT SCORING AND SWEEP
// ──────────────────────────────────────────────

func availableDriver(id string) *domain.Driver {
	return &domain.Driver{
		ID:          id,
		Name:        "Driver " + id,
		IsActive:    true,
		Status:      domain.DriverStatusAvailable,
		Rating:      4.0,
		VehicleType: domain.VehicleSedan,
	}
}

func TestScoreDriver_Weights(t *testing.T) {
	t.Parallel()

	trip := &domain.Trip{ServiceLevel: domain.ServiceAmbulatory}

	cases := []struct {
		name         string
		mutate       func(*domain.Driver)
		sameDayTrips int
		want         int
	}{
		{"neutral baseline", func(d *domain.Driver) {}, 0, 100},
		{"heavy workload", func(d *domain.Driver) {}, 6, 70},
		{"raised workload", func(d *domain.Driver) {}, 4, 85},
		{"high rating", func(d *domain.Driver) { d.Rating = 4.7 }, 0, 120},
		{"low rating", func(d *domain.Driver) { d.Rating = 3.0 }, 0, 85},
		{"veteran", func(d *domain.Driver) { d.TotalTrips = 150 }, 0, 110},
		{"experienced", func(d *domain.Driver) { d.TotalTrips = 60 }, 0, 105},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			driver := availableDriver("driver-1")
			tc.mutate(driver)
			score := service.ScoreDriver(trip, driver, tc.sameDayTrips)
			if score.Score != tc.want {
				t.Errorf("score = %d, want %d (reasons: %v)", score.Score, tc.want, score.Reasons)
			}
		})
	}
}

func TestScoreDriver_WheelchairVehicleMatch(t *testing.T) {
	t.Parallel()

	trip := &domain.Trip{ServiceLevel: domain.ServiceWheelchair}

	van := availableDriver("driver-1")
	van.VehicleType = domain.VehicleVan
	if score := service.ScoreDriver(trip, van, 0); score.Score != 125 {
		t.Errorf("van on wheelchair trip = %d, want 125", score.Score)
	}

	sedan := availableDriver("driver-2")
	if score := service.ScoreDriver(trip, sedan, 0); score.Score != 50 {
		t.Errorf("sedan on wheelchair trip = %d, want 50", score.Score)
	}
}

func newTestAssignment(tripRepo *MockTripRepository, driverRepo *MockDriverRepository, cache *MockCacheStore, locks *MockLockStore) *service.AssignmentService {
	tripSvc := newTestTripService(tripRepo, driverRepo, NewMockRateSourceRepository(), nil, nil)
	return service.NewAssignmentService(tripRepo, driverRepo, tripSvc, cache, locks)
}

func TestSweep_AssignsBestCandidate(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	cache := NewMockCacheStore()
	locks := NewMockLockStore()
	sweep := newTestAssignment(tripRepo, driverRepo, cache, locks)

	trip := addActiveTrip(tripRepo, "trip-1", domain.TripStatusPending)
	trip.ServiceLevel = domain.ServiceWheelchair
	tripRepo.AddTrip(trip)

	sedan := availableDriver("driver-a")
	van := availableDriver("driver-b")
	van.VehicleType = domain.VehicleVan
	driverRepo.AddDriver(sedan)
	driverRepo.AddDriver(van)

	result, err := sweep.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Succeeded != 1 || len(result.Suggestions) != 1 {
		t.Fatalf("expected 1 assignment, got %+v", result)
	}
	if result.Suggestions[0].DriverID != "driver-b" {
		t.Errorf("van driver should win the wheelchair trip, got %s", result.Suggestions[0].DriverID)
	}

	stored := tripRepo.GetTrip("trip-1")
	if stored.DriverID != "driver-b" || stored.Status != domain.TripStatusAssigned {
		t.Errorf("trip not assigned: driver=%s status=%s", stored.DriverID, stored.Status)
	}
	if cache.HasDriver("driver-b") {
		t.Error("winning driver's cache entry should be invalidated after assignment")
	}
	if locks.IsLocked("driver-b") {
		t.Error("driver lock should be released after the sweep")
	}
}

func TestSweep_TieBreaksOnLowestDriverID(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	sweep := newTestAssignment(tripRepo, driverRepo, NewMockCacheStore(), NewMockLockStore())

	addActiveTrip(tripRepo, "trip-1", domain.TripStatusPending)

	// Identical profiles: the sweep must be deterministic.
	driverRepo.AddDriver(availableDriver("driver-c"))
	driverRepo.AddDriver(availableDriver("driver-a"))
	driverRepo.AddDriver(availableDriver("driver-b"))

	result, err := sweep.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Suggestions) != 1 || result.Suggestions[0].DriverID != "driver-a" {
		t.Errorf("equal scores should resolve to the lowest driver ID, got %+v", result.Suggestions)
	}
}

func TestSweep_NoCandidates(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	sweep := newTestAssignment(tripRepo, driverRepo, NewMockCacheStore(), NewMockLockStore())

	addActiveTrip(tripRepo, "trip-1", domain.TripStatusPending)

	// Roster exists but nobody is eligible.
	inactive := availableDriver("driver-a")
	inactive.IsActive = false
	busy := availableDriver("driver-b")
	busy.Status = domain.DriverStatusOnTrip
	driverRepo.AddDriver(inactive)
	driverRepo.AddDriver(busy)

	result, err := sweep.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 1 || len(result.Unmatched) != 1 {
		t.Fatalf("expected 1 unmatched trip, got %+v", result)
	}
	stored := tripRepo.GetTrip("trip-1")
	if stored.DriverID != "" {
		t.Error("unmatched trip must be left untouched")
	}
}

func TestSweep_LockContentionSkipsDriver(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	locks := NewMockLockStore()
	locks.ForceAcquireFailure = true
	sweep := newTestAssignment(tripRepo, driverRepo, NewMockCacheStore(), locks)

	addActiveTrip(tripRepo, "trip-1", domain.TripStatusPending)
	driverRepo.AddDriver(availableDriver("driver-a"))

	result, err := sweep.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Succeeded != 0 || result.Failed != 1 {
		t.Errorf("a contended lock should fail the trip, got %+v", result)
	}
}

func TestSweep_WorkloadPenaltyFromSameDayTrips(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	sweep := newTestAssignment(tripRepo, driverRepo, NewMockCacheStore(), NewMockLockStore())

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	trip := addActiveTrip(tripRepo, "trip-new", domain.TripStatusPending)
	trip.ScheduledTime = day.Add(9 * time.Hour)
	tripRepo.AddTrip(trip)

	// driver-a already has 4 trips today; driver-b is free.
	driverRepo.AddDriver(availableDriver("driver-a"))
	driverRepo.AddDriver(availableDriver("driver-b"))
	for i := 0; i < 4; i++ {
		loaded := addActiveTrip(tripRepo, "trip-load-"+string(rune('0'+i)), domain.TripStatusAssigned)
		loaded.DriverID = "driver-a"
		loaded.ScheduledTime = day.Add(time.Duration(10+i) * time.Hour)
		tripRepo.AddTrip(loaded)
	}

	scores, err := sweep.Preview(context.Background(), "trip-new")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(scores))
	}
	if scores[0].DriverID != "driver-b" {
		t.Errorf("loaded driver should rank below the free one: %+v", scores)
	}
	if scores[0].Score-scores[1].Score != 15 {
		t.Errorf("expected a 15 point workload gap, got %d vs %d", scores[0].Score, scores[1].Score)
	}
}
