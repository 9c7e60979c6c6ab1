package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"nemt/internal/domain"
	"nemt/internal/redis"
	"nemt/internal/repository"
	"nemt/internal/repository/postgres"
)

// roundtripDefaultGap is the default return-leg offset when a roundtrip has
// neither an explicit return time nor a will-call flag.
const roundtripDefaultGap = 2 * time.Hour

// conflictWindow is how close two scheduled pickups for one driver may sit
// before the pair is flagged. Advisory only; the dispatcher confirms or
// aborts.
const conflictWindow = 30 * time.Minute

// activeTransitions is the lifecycle state machine for dispatcher- and
// driver-app-driven status changes. Completion, cancellation, no-show, and
// reinstatement go through their dedicated operations; this table covers
// everything else.
var activeTransitions = map[domain.TripStatus][]domain.TripStatus{
	domain.TripStatusPending:    {domain.TripStatusScheduled, domain.TripStatusAssigned},
	domain.TripStatusScheduled:  {domain.TripStatusPending, domain.TripStatusAssigned},
	domain.TripStatusAssigned:   {domain.TripStatusOnWay, domain.TripStatusArrived, domain.TripStatusInProgress},
	domain.TripStatusOnWay:      {domain.TripStatusArrived, domain.TripStatusInProgress},
	domain.TripStatusArrived:    {domain.TripStatusOnWay, domain.TripStatusInProgress},
	domain.TripStatusInProgress: nil,
}

func canTransition(from, to domain.TripStatus) bool {
	for _, allowed := range activeTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TripService owns the trip lifecycle: creation with derived-trip rules,
// status transitions, bulk operations, and will-call handling.
type TripService struct {
	db         *sql.DB // Optional; multi-record writes are transactional when present.
	tripRepo   repository.TripRepository
	driverRepo repository.DriverRepository
	pricing    *PricingService
	distance   DistanceCalculator
	notifier   *NotificationService
	feed       redis.ChangeFeedInterface
}

// NewTripService creates a new TripService. db, distance, notifier, and feed
// may be nil; the service degrades to sequential writes and skips the
// side-channel calls.
func NewTripService(
	db *sql.DB,
	tripRepo repository.TripRepository,
	driverRepo repository.DriverRepository,
	pricing *PricingService,
	distance DistanceCalculator,
	notifier *NotificationService,
	feed redis.ChangeFeedInterface,
) *TripService {
	return &TripService{
		db:         db,
		tripRepo:   tripRepo,
		driverRepo: driverRepo,
		pricing:    pricing,
		distance:   distance,
		notifier:   notifier,
		feed:       feed,
	}
}

// RecurringSchedule describes the expansion window for a recurring trip.
type RecurringSchedule struct {
	Weekdays  []time.Weekday
	StartDate time.Time
	EndDate   time.Time // Inclusive.
}

// CreateTripRequest contains the parameters for creating a trip.
type CreateTripRequest struct {
	TripNumber   string // Optional; generated when empty.
	TripType     domain.TripType
	JourneyType  domain.JourneyType
	ServiceLevel domain.ServiceLevel

	ScheduledTime   time.Time
	AppointmentTime time.Time
	WillCall        bool

	PickupLocation  string
	DropoffLocation string
	Distance        float64 // Optional; looked up when zero and a calculator is wired.

	// Roundtrip only: explicit return-leg pickup time. Zero means derive it
	// (will-call sentinel, or outbound + 2h).
	ReturnTime     time.Time
	ReturnWillCall bool

	// Multi-stop only: additional stops beyond the trip's own pickup/dropoff.
	ExtraStops []domain.Stop

	// Recurring only.
	Recurring *RecurringSchedule

	CustomerName   string
	FirstName      string
	LastName       string
	CustomerPhone  string
	CustomerEmail  string
	PatientID      string
	ClinicID       string
	ContractorID   string
	Notes          string
	Classification string
	CreatedBy      string
	DispatcherName string
}

// CreateTripResponse reports every record the create produced. Roundtrips
// yield two trips; recurring requests yield one per matching weekday, with
// per-item outcomes.
type CreateTripResponse struct {
	Trips     []*domain.Trip
	Succeeded int
	Failed    int
	Failures  []ItemOutcome
	Conflicts []Conflict
}

// ItemOutcome is the per-item result of a bulk or derived-trip operation.
type ItemOutcome struct {
	ItemID string
	Err    error
}

// CreateTrip validates the request and creates the trip plus any derived
// siblings per the journey type. Conflict detection is advisory: conflicts
// are reported on the response, never used to reject.
func (s *TripService) CreateTrip(ctx context.Context, req CreateTripRequest) (*CreateTripResponse, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	if req.Distance == 0 && s.distance != nil && req.JourneyType != domain.JourneyRecurring {
		// A failed lookup is not fatal: the dispatcher can fill mileage in
		// later, so the distance stays 0.
		if res := s.distance.Calculate(ctx, req.PickupLocation, req.DropoffLocation); res.OK {
			req.Distance = res.Miles
		}
	}

	switch req.JourneyType {
	case domain.JourneyRoundtrip:
		return s.createRoundtrip(ctx, req)
	case domain.JourneyRecurring:
		return s.createRecurring(ctx, req)
	case domain.JourneyMultiStop:
		return s.createMultiStop(ctx, req)
	default:
		return s.createOneWay(ctx, req)
	}
}

func (s *TripService) validateCreate(req CreateTripRequest) error {
	if req.PickupLocation == "" {
		return ErrMissingPickup
	}
	if req.DropoffLocation == "" {
		return ErrMissingDropoff
	}
	switch req.ServiceLevel {
	case domain.ServiceAmbulatory, domain.ServiceWheelchair, domain.ServiceStretcher, domain.ServiceBariatric:
	default:
		return ErrInvalidServiceLevel
	}
	if req.ScheduledTime.IsZero() && !req.WillCall {
		return ErrMissingScheduledTime
	}
	if req.JourneyType == domain.JourneyRecurring {
		r := req.Recurring
		if r == nil || len(r.Weekdays) == 0 || r.EndDate.Before(r.StartDate) {
			return ErrRecurringWindow
		}
	}
	return nil
}

func (s *TripService) newTrip(req CreateTripRequest, number string) *domain.Trip {
	now := time.Now()
	return &domain.Trip{
		ID:              uuid.New().String(),
		TripNumber:      number,
		TripType:        req.TripType,
		JourneyType:     req.JourneyType,
		ServiceLevel:    req.ServiceLevel,
		Status:          domain.TripStatusPending,
		ScheduledTime:   req.ScheduledTime,
		AppointmentTime: req.AppointmentTime,
		WillCall:        req.WillCall,
		PickupLocation:  req.PickupLocation,
		DropoffLocation: req.DropoffLocation,
		Distance:        req.Distance,
		CustomerName:    req.CustomerName,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		PatientID:       req.PatientID,
		ClinicID:        req.ClinicID,
		ContractorID:    req.ContractorID,
		Fare:            domain.ComputedCharge(0),
		DriverPayout:    domain.ComputedCharge(0),
		Notes:           req.Notes,
		Classification:  req.Classification,
		CreatedBy:       req.CreatedBy,
		DispatcherName:  req.DispatcherName,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *TripService) createOneWay(ctx context.Context, req CreateTripRequest) (*CreateTripResponse, error) {
	number := req.TripNumber
	if number == "" {
		number = newTripNumber()
	}

	trip := s.newTrip(req, number)
	if err := s.priceAndCreate(ctx, trip); err != nil {
		return nil, err
	}

	return &CreateTripResponse{
		Trips:     []*domain.Trip{trip},
		Succeeded: 1,
		Conflicts: s.advisoryConflicts(ctx, trip),
	}, nil
}

func (s *TripService) createMultiStop(ctx context.Context, req CreateTripRequest) (*CreateTripResponse, error) {
	number := req.TripNumber
	if number == "" {
		number = newTripNumber()
	}

	trip := s.newTrip(req, number)

	// Stop 1 is the trip's own pickup/dropoff; extra stops follow, renumbered.
	trip.Stops = append(trip.Stops, domain.Stop{
		StopNumber:     1,
		PickupAddress:  req.PickupLocation,
		DropoffAddress: req.DropoffLocation,
		ScheduledTime:  req.ScheduledTime,
	})
	for i, stop := range req.ExtraStops {
		stop.StopNumber = i + 2
		trip.Stops = append(trip.Stops, stop)
	}

	if err := s.priceAndCreate(ctx, trip); err != nil {
		return nil, err
	}

	return &CreateTripResponse{
		Trips:     []*domain.Trip{trip},
		Succeeded: 1,
		Conflicts: s.advisoryConflicts(ctx, trip),
	}, nil
}

// returnLegTime derives the return leg's scheduled time: explicit return
// time, or the midnight sentinel for will-call, or outbound + 2 hours.
func returnLegTime(outbound time.Time, explicit time.Time, willCall bool) time.Time {
	if !explicit.IsZero() {
		return explicit
	}
	if willCall {
		return domain.WillCallSentinel(outbound)
	}
	return outbound.Add(roundtripDefaultGap)
}

func (s *TripService) createRoundtrip(ctx context.Context, req CreateTripRequest) (*CreateTripResponse, error) {
	base := req.TripNumber
	if base == "" {
		base = newTripNumber()
	}

	outbound := s.newTrip(req, base+"A")

	returnReq := req
	returnReq.PickupLocation = req.DropoffLocation
	returnReq.DropoffLocation = req.PickupLocation
	returnReq.WillCall = req.ReturnWillCall
	returnLeg := s.newTrip(returnReq, base+"B")
	returnLeg.ScheduledTime = returnLegTime(req.ScheduledTime, req.ReturnTime, req.ReturnWillCall)
	returnLeg.AppointmentTime = time.Time{}

	if err := s.pricePair(ctx, outbound, returnLeg); err != nil {
		return nil, err
	}
	if err := s.createPair(ctx, outbound, returnLeg); err != nil {
		return nil, err
	}

	s.publish(ctx, redis.ChangeInsert, outbound)
	s.publish(ctx, redis.ChangeInsert, returnLeg)

	return &CreateTripResponse{
		Trips:     []*domain.Trip{outbound, returnLeg},
		Succeeded: 2,
		Conflicts: s.advisoryConflicts(ctx, outbound),
	}, nil
}

func (s *TripService) createRecurring(ctx context.Context, req CreateTripRequest) (*CreateTripResponse, error) {
	base := req.TripNumber
	if base == "" {
		base = newTripNumber()
	}

	wanted := make(map[time.Weekday]bool, len(req.Recurring.Weekdays))
	for _, wd := range req.Recurring.Weekdays {
		wanted[wd] = true
	}

	resp := &CreateTripResponse{}
	n := 0
	start := req.Recurring.StartDate
	for day := start; !day.After(req.Recurring.EndDate); day = day.AddDate(0, 0, 1) {
		if !wanted[day.Weekday()] {
			continue
		}
		n++

		instanceReq := req
		instanceReq.JourneyType = domain.JourneyOneWay
		instanceReq.Recurring = nil
		instance := s.newTrip(instanceReq, fmt.Sprintf("%s-R%d", base, n))
		instance.ScheduledTime = time.Date(
			day.Year(), day.Month(), day.Day(),
			req.ScheduledTime.Hour(), req.ScheduledTime.Minute(), 0, 0,
			req.ScheduledTime.Location(),
		)

		// Sequential, no cross-item transaction: a failure skips this
		// instance and the split outcome is reported.
		if err := s.priceAndCreate(ctx, instance); err != nil {
			resp.Failed++
			resp.Failures = append(resp.Failures, ItemOutcome{ItemID: instance.TripNumber, Err: err})
			continue
		}
		resp.Succeeded++
		resp.Trips = append(resp.Trips, instance)
	}

	return resp, nil
}

func (s *TripService) priceAndCreate(ctx context.Context, trip *domain.Trip) error {
	if s.pricing != nil {
		if err := s.pricing.Reprice(ctx, trip); err != nil {
			return err
		}
	}
	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return err
	}
	s.publish(ctx, redis.ChangeInsert, trip)
	return nil
}

func (s *TripService) pricePair(ctx context.Context, trips ...*domain.Trip) error {
	if s.pricing == nil {
		return nil
	}
	for _, trip := range trips {
		if err := s.pricing.Reprice(ctx, trip); err != nil {
			return err
		}
	}
	return nil
}

// createPair writes both roundtrip legs, transactionally when a database
// handle is present so a sibling never exists without its pair.
func (s *TripService) createPair(ctx context.Context, outbound, returnLeg *domain.Trip) error {
	if s.db == nil {
		if err := s.tripRepo.Create(ctx, outbound); err != nil {
			return err
		}
		return s.tripRepo.Create(ctx, returnLeg)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txRepo := postgres.NewTripRepositoryWithTx(tx)
	if err = txRepo.Create(ctx, outbound); err != nil {
		return err
	}
	if err = txRepo.Create(ctx, returnLeg); err != nil {
		return err
	}

	return tx.Commit()
}

// GetTrip retrieves a trip by ID.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	return s.tripRepo.GetByID(ctx, tripID)
}

// GetAllTrips retrieves all trips.
func (s *TripService) GetAllTrips(ctx context.Context) ([]*domain.Trip, error) {
	return s.tripRepo.GetAll(ctx)
}

// AssignDriver assigns a driver to a trip and moves it to assigned.
func (s *TripService) AssignDriver(ctx context.Context, tripID, driverID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !driver.IsActive {
		return nil, ErrDriverInactive
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status.IsTerminal() {
		return nil, ErrTripTerminal
	}

	trip.DriverID = driverID
	trip.Status = domain.TripStatusAssigned
	if s.pricing != nil {
		if err := s.pricing.Reprice(ctx, trip); err != nil {
			return nil, err
		}
	}

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	s.publish(ctx, redis.ChangeUpdate, trip)
	if s.notifier != nil {
		_ = s.notifier.NotifyDriverAssigned(ctx, trip, driver)
	}

	return trip, nil
}

// BulkResult reports the split outcome of a bulk operation. Items are
// processed independently; partial success is expected and never rolled
// back.
type BulkResult struct {
	Succeeded int
	Failed    int
	Outcomes  []ItemOutcome
}

// BulkAssign applies the same driver to each trip, one at a time.
func (s *TripService) BulkAssign(ctx context.Context, tripIDs []string, driverID string) (*BulkResult, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	result := &BulkResult{}
	for _, tripID := range tripIDs {
		_, err := s.AssignDriver(ctx, tripID, driverID)
		result.Outcomes = append(result.Outcomes, ItemOutcome{ItemID: tripID, Err: err})
		if err != nil {
			result.Failed++
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// UpdateStatus applies an active-to-active lifecycle transition (driver app
// events: on-way, arrived, in_progress, plus pending/scheduled shuffling).
// Terminal targets must go through Complete, Cancel, or NoShow.
func (s *TripService) UpdateStatus(ctx context.Context, tripID string, target domain.TripStatus) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if !target.Valid() {
		return nil, ErrInvalidStatus
	}
	if target.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status.IsTerminal() {
		return nil, ErrTripTerminal
	}
	if !canTransition(trip.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, trip.Status, target)
	}

	trip.Status = target
	if target == domain.TripStatusInProgress && trip.ActualPickupTime.IsZero() {
		trip.ActualPickupTime = time.Now()
	}

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	s.publish(ctx, redis.ChangeUpdate, trip)
	return trip, nil
}

// BulkUpdateStatus applies the same transition to each trip independently.
func (s *TripService) BulkUpdateStatus(ctx context.Context, tripIDs []string, target domain.TripStatus) (*BulkResult, error) {
	if !target.Valid() || target.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	result := &BulkResult{}
	for _, tripID := range tripIDs {
		_, err := s.UpdateStatus(ctx, tripID, target)
		result.Outcomes = append(result.Outcomes, ItemOutcome{ItemID: tripID, Err: err})
		if err != nil {
			result.Failed++
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// CompleteTripRequest carries the actual times recorded at completion. Zero
// values mean "already recorded on the trip".
type CompleteTripRequest struct {
	TripID            string
	ActualPickupTime  time.Time
	ActualDropoffTime time.Time
}

// CompleteTrip finishes a trip. A will-call trip whose pickup time was never
// resolved is rejected; the dispatcher must record the pickup first. On
// success the will-call flag is cleared and a placeholder scheduled time is
// backfilled from the actual pickup.
func (s *TripService) CompleteTrip(ctx context.Context, req CompleteTripRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if trip.Status.IsTerminal() {
		return nil, ErrTripTerminal
	}

	wasPlaceholder := trip.IsWillCallPlaceholder()

	if trip.WillCall && trip.ActualPickupTime.IsZero() && req.ActualPickupTime.IsZero() {
		return nil, ErrWillCallUnresolved
	}

	if !req.ActualPickupTime.IsZero() {
		trip.ActualPickupTime = req.ActualPickupTime
	}
	if !req.ActualDropoffTime.IsZero() {
		trip.ActualDropoffTime = req.ActualDropoffTime
	}
	if trip.ActualPickupTime.IsZero() || trip.ActualDropoffTime.IsZero() {
		return nil, ErrMissingActualTimes
	}
	if trip.ActualDropoffTime.Before(trip.ActualPickupTime) {
		return nil, ErrDropoffBeforePickup
	}

	if wasPlaceholder {
		trip.ScheduledTime = trip.ActualPickupTime
	}
	trip.WillCall = false
	trip.Status = domain.TripStatusCompleted

	if s.pricing != nil {
		if err := s.pricing.Reprice(ctx, trip); err != nil {
			return nil, err
		}
	}

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	s.publish(ctx, redis.ChangeUpdate, trip)
	if s.notifier != nil {
		_ = s.notifier.NotifyTripCompleted(ctx, trip)
	}

	return trip, nil
}

// CancelTrip cancels a trip with a required reason. Fare and payout are left
// in place; the pricing engine resolves cancellation rates lazily.
func (s *TripService) CancelTrip(ctx context.Context, tripID, reason string) (*domain.Trip, error) {
	return s.terminate(ctx, tripID, reason, domain.TripStatusCancelled)
}

// NoShowTrip marks a trip no-show with a required reason.
func (s *TripService) NoShowTrip(ctx context.Context, tripID, reason string) (*domain.Trip, error) {
	return s.terminate(ctx, tripID, reason, domain.TripStatusNoShow)
}

func (s *TripService) terminate(ctx context.Context, tripID, reason string, target domain.TripStatus) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrMissingReason
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status.IsTerminal() {
		return nil, ErrTripTerminal
	}

	trip.Status = target
	trip.CancellationReason = reason
	if target == domain.TripStatusCancelled {
		trip.CancelledAt = time.Now()
	}

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	s.publish(ctx, redis.ChangeUpdate, trip)
	if s.notifier != nil {
		_ = s.notifier.NotifyTripCancelled(ctx, trip, reason)
	}

	return trip, nil
}

// ReinstateTrip returns a terminal trip to an active status (default
// scheduled), clearing terminal-only fields and resetting charges for
// recomputation.
func (s *TripService) ReinstateTrip(ctx context.Context, tripID string, target domain.TripStatus) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if target == "" {
		target = domain.TripStatusScheduled
	}
	if !target.IsActive() {
		return nil, ErrInvalidReinstateTarget
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.Status.IsTerminal() {
		return nil, ErrTripNotTerminal
	}

	trip.Status = target
	trip.ActualPickupTime = time.Time{}
	trip.ActualDropoffTime = time.Time{}
	trip.CancellationReason = ""
	trip.CancelledAt = time.Time{}
	trip.Fare = domain.ComputedCharge(0)
	trip.DriverPayout = domain.ComputedCharge(0)

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	s.publish(ctx, redis.ChangeUpdate, trip)
	return trip, nil
}

// ResolveWillCall records the rider's call-in pickup time on a will-call
// trip, replacing the midnight sentinel.
func (s *TripService) ResolveWillCall(ctx context.Context, tripID string, pickupTime time.Time) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.WillCall {
		return nil, ErrNotWillCall
	}
	if trip.Status.IsTerminal() {
		return nil, ErrTripTerminal
	}

	trip.ActualPickupTime = pickupTime
	trip.ScheduledTime = pickupTime

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	s.publish(ctx, redis.ChangeUpdate, trip)
	return trip, nil
}

// ConvertToRoundtrip retroactively turns a one-way trip into the outbound
// leg of a roundtrip: it is relabelled {base}A and a {base}B return sibling
// is spawned using the standard return-time rule. All previously entered
// fields carry over to the sibling.
func (s *TripService) ConvertToRoundtrip(ctx context.Context, tripID string, returnTime time.Time, returnWillCall bool) (*CreateTripResponse, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.JourneyType == domain.JourneyRoundtrip {
		return nil, ErrAlreadyRoundtrip
	}
	if trip.Status.IsTerminal() {
		return nil, ErrTripTerminal
	}

	base := trip.TripNumber
	trip.TripNumber = base + "A"
	trip.JourneyType = domain.JourneyRoundtrip
	trip.Leg1Miles = trip.Distance

	returnLeg := *trip
	returnLeg.ID = uuid.New().String()
	returnLeg.TripNumber = base + "B"
	returnLeg.PickupLocation = trip.DropoffLocation
	returnLeg.DropoffLocation = trip.PickupLocation
	returnLeg.WillCall = returnWillCall
	returnLeg.ScheduledTime = returnLegTime(trip.ScheduledTime, returnTime, returnWillCall)
	returnLeg.AppointmentTime = time.Time{}
	returnLeg.Status = domain.TripStatusPending
	returnLeg.DriverID = ""
	returnLeg.Fare = domain.ComputedCharge(0)
	returnLeg.DriverPayout = domain.ComputedCharge(0)
	returnLeg.CreatedAt = time.Now()
	returnLeg.UpdatedAt = returnLeg.CreatedAt

	if err := s.pricePair(ctx, trip, &returnLeg); err != nil {
		return nil, err
	}

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}
	if err := s.tripRepo.Create(ctx, &returnLeg); err != nil {
		return nil, err
	}

	s.publish(ctx, redis.ChangeUpdate, trip)
	s.publish(ctx, redis.ChangeInsert, &returnLeg)

	return &CreateTripResponse{
		Trips:     []*domain.Trip{trip, &returnLeg},
		Succeeded: 2,
	}, nil
}

// OverrideFare pins the fare at a dispatcher-entered amount; recomputation
// will no longer touch it.
func (s *TripService) OverrideFare(ctx context.Context, tripID string, amount float64) (*domain.Trip, error) {
	return s.override(ctx, tripID, func(t *domain.Trip) { t.Fare = t.Fare.Pin(amount) })
}

// OverrideDriverPayout pins the driver payout at a dispatcher-entered
// amount.
func (s *TripService) OverrideDriverPayout(ctx context.Context, tripID string, amount float64) (*domain.Trip, error) {
	return s.override(ctx, tripID, func(t *domain.Trip) { t.DriverPayout = t.DriverPayout.Pin(amount) })
}

func (s *TripService) override(ctx context.Context, tripID string, apply func(*domain.Trip)) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	apply(trip)

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	s.publish(ctx, redis.ChangeUpdate, trip)
	return trip, nil
}

// Conflict flags an overlapping scheduled pickup for the same driver.
type Conflict struct {
	TripID        string
	TripNumber    string
	DriverID      string
	ScheduledTime time.Time
}

// DetectConflicts returns existing trips whose scheduled time sits within
// the conflict window of the given slot for the same driver. Advisory: the
// caller presents a confirm-or-abort choice, nothing is rejected here.
func (s *TripService) DetectConflicts(ctx context.Context, driverID string, at time.Time, excludeTripID string) ([]Conflict, error) {
	if driverID == "" || at.IsZero() {
		return nil, nil
	}

	sameDay, err := s.tripRepo.GetByDriverAndDay(ctx, driverID, at)
	if err != nil {
		return nil, err
	}

	var conflicts []Conflict
	for _, other := range sameDay {
		if other.ID == excludeTripID || other.Status.IsTerminal() {
			continue
		}
		gap := other.ScheduledTime.Sub(at)
		if gap < 0 {
			gap = -gap
		}
		if gap < conflictWindow {
			conflicts = append(conflicts, Conflict{
				TripID:        other.ID,
				TripNumber:    other.TripNumber,
				DriverID:      driverID,
				ScheduledTime: other.ScheduledTime,
			})
		}
	}

	return conflicts, nil
}

func (s *TripService) advisoryConflicts(ctx context.Context, trip *domain.Trip) []Conflict {
	if trip.DriverID == "" {
		return nil
	}
	conflicts, err := s.DetectConflicts(ctx, trip.DriverID, trip.ScheduledTime, trip.ID)
	if err != nil {
		log.Printf("conflict check failed for trip %s: %v", trip.ID, err)
		return nil
	}
	return conflicts
}

func (s *TripService) publish(ctx context.Context, kind redis.ChangeKind, trip *domain.Trip) {
	if s.feed == nil {
		return
	}
	err := s.feed.Publish(ctx, redis.ChangeEvent{
		Kind:       kind,
		RecordType: "trip",
		RecordID:   trip.ID,
		Status:     string(trip.Status),
	})
	if err != nil {
		log.Printf("change feed publish failed for trip %s: %v", trip.ID, err)
	}
}

// newTripNumber generates a human-facing trip code. Uniqueness rides on the
// uuid segment; the prefix keeps it recognizable on run sheets.
func newTripNumber() string {
	return "TRP-" + strings.ToUpper(uuid.New().String()[:8])
}
