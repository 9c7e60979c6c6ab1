package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"nemt/internal/domain"
	"nemt/internal/redis"
	"nemt/internal/repository"
)

const assignLockTTL = 10 * time.Second

// Scoring weights for the auto-assignment heuristic. Greedy single pass: a
// candidate starts at the base and each rule adjusts it; the highest total
// wins. Not an optimization solver.
const (
	scoreBase = 100

	heavyWorkloadPenalty  = 30 // More than 5 trips already scheduled that day.
	raisedWorkloadPenalty = 15 // More than 3.
	heavyWorkloadTrips    = 5
	raisedWorkloadTrips   = 3

	highRatingBonus  = 20 // Rating >= 4.5.
	lowRatingPenalty = 15 // Rating < 3.5.

	veteranBonus     = 10 // More than 100 completed trips.
	experiencedBonus = 5  // More than 50.

	wheelchairVanBonus = 25
	wheelchairMismatch = 50 // Strong penalty, not a hard exclusion.
)

// DriverScore is one scored (trip, driver) pairing with the reasons that
// moved the score, for dispatcher transparency.
type DriverScore struct {
	DriverID   string
	DriverName string
	Score      int
	Reasons    []string
}

// ScoreDriver applies the weighted heuristic for one candidate.
// sameDayTrips is how many trips the driver already has scheduled on the
// trip's calendar day.
func ScoreDriver(trip *domain.Trip, driver *domain.Driver, sameDayTrips int) DriverScore {
	score := scoreBase
	var reasons []string

	switch {
	case sameDayTrips > heavyWorkloadTrips:
		score -= heavyWorkloadPenalty
		reasons = append(reasons, fmt.Sprintf("heavy workload: %d trips already scheduled today", sameDayTrips))
	case sameDayTrips > raisedWorkloadTrips:
		score -= raisedWorkloadPenalty
		reasons = append(reasons, fmt.Sprintf("raised workload: %d trips already scheduled today", sameDayTrips))
	}

	switch {
	case driver.Rating >= 4.5:
		score += highRatingBonus
		reasons = append(reasons, fmt.Sprintf("high rating (%.1f)", driver.Rating))
	case driver.Rating < 3.5:
		score -= lowRatingPenalty
		reasons = append(reasons, fmt.Sprintf("low rating (%.1f)", driver.Rating))
	}

	switch {
	case driver.TotalTrips > 100:
		score += veteranBonus
		reasons = append(reasons, fmt.Sprintf("veteran: %d completed trips", driver.TotalTrips))
	case driver.TotalTrips > 50:
		score += experiencedBonus
		reasons = append(reasons, fmt.Sprintf("experienced: %d completed trips", driver.TotalTrips))
	}

	if trip.ServiceLevel == domain.ServiceWheelchair {
		if driver.VehicleType.IsVan() {
			score += wheelchairVanBonus
			reasons = append(reasons, "wheelchair trip, van vehicle")
		} else {
			score -= wheelchairMismatch
			reasons = append(reasons, "wheelchair trip, vehicle is not a van")
		}
	}

	return DriverScore{
		DriverID:   driver.ID,
		DriverName: driver.Name,
		Score:      score,
		Reasons:    reasons,
	}
}

// Suggestion is one successful match produced by the sweep.
type Suggestion struct {
	TripID     string
	TripNumber string
	DriverID   string
	DriverName string
	Score      int
	Reasons    []string
}

// SweepResult reports the split outcome of an auto-assignment sweep.
type SweepResult struct {
	Suggestions []Suggestion
	Succeeded   int
	Failed      int
	Unmatched   []ItemOutcome
}

// AssignmentService matches unassigned trips to available drivers.
type AssignmentService struct {
	tripRepo   repository.TripRepository
	driverRepo repository.DriverRepository
	tripSvc    *TripService
	cacheStore redis.CacheStoreInterface
	lockStore  redis.LockStoreInterface
}

// NewAssignmentService creates a new AssignmentService. cacheStore and
// lockStore may be nil (single-dispatcher deployments).
func NewAssignmentService(
	tripRepo repository.TripRepository,
	driverRepo repository.DriverRepository,
	tripSvc *TripService,
	cacheStore redis.CacheStoreInterface,
	lockStore redis.LockStoreInterface,
) *AssignmentService {
	return &AssignmentService{
		tripRepo:   tripRepo,
		driverRepo: driverRepo,
		tripSvc:    tripSvc,
		cacheStore: cacheStore,
		lockStore:  lockStore,
	}
}

// Run sweeps every eligible trip, scores the available roster for each, and
// assigns the best candidate. Trips with no scoreable candidate are counted
// as failures and left untouched. Each trip is handled independently;
// partial success is reported, never rolled back.
func (s *AssignmentService) Run(ctx context.Context) (*SweepResult, error) {
	trips, err := s.tripRepo.GetUnassigned(ctx)
	if err != nil {
		return nil, err
	}

	roster, err := s.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for _, trip := range trips {
		suggestion, err := s.matchOne(ctx, trip, roster)
		if err != nil {
			result.Failed++
			result.Unmatched = append(result.Unmatched, ItemOutcome{ItemID: trip.ID, Err: err})
			continue
		}
		result.Succeeded++
		result.Suggestions = append(result.Suggestions, *suggestion)
	}

	return result, nil
}

// Preview scores one trip against the roster without assigning, for the
// dispatcher's review modal. Results are sorted best first.
func (s *AssignmentService) Preview(ctx context.Context, tripID string) ([]DriverScore, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	roster, err := s.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	scores := s.scoreCandidates(ctx, trip, roster)
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores, nil
}

// loadRoster fetches available, active drivers: cache first for the slim
// filter fields, database for the rest.
func (s *AssignmentService) loadRoster(ctx context.Context) ([]*domain.Driver, error) {
	drivers, err := s.driverRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var roster []*domain.Driver
	for _, driver := range drivers {
		if !driver.IsActive || driver.Status != domain.DriverStatusAvailable {
			continue
		}
		roster = append(roster, driver)
		s.cacheDriver(ctx, driver)
	}

	// Deterministic tie-break: candidates are scored in driver-ID order, so
	// at equal score the lowest ID wins.
	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })

	return roster, nil
}

func (s *AssignmentService) scoreCandidates(ctx context.Context, trip *domain.Trip, roster []*domain.Driver) []DriverScore {
	scores := make([]DriverScore, 0, len(roster))
	for _, driver := range roster {
		sameDay := s.sameDayTripCount(ctx, driver.ID, trip.ScheduledTime)
		scores = append(scores, ScoreDriver(trip, driver, sameDay))
	}
	return scores
}

func (s *AssignmentService) matchOne(ctx context.Context, trip *domain.Trip, roster []*domain.Driver) (*Suggestion, error) {
	if len(roster) == 0 {
		return nil, ErrNoCandidates
	}

	scores := s.scoreCandidates(ctx, trip, roster)

	best := scores[0]
	for _, score := range scores[1:] {
		if score.Score > best.Score {
			best = score
		}
	}

	// Lock the winner while the assignment is confirmed and written so a
	// concurrent sweep cannot hand the same slot to another dispatcher.
	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireDriverLock(ctx, best.DriverID, assignLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, ErrNoCandidates
		}
		defer func() { _ = s.lockStore.ReleaseDriverLock(ctx, best.DriverID) }()
	}

	if _, err := s.tripSvc.AssignDriver(ctx, trip.ID, best.DriverID); err != nil {
		return nil, err
	}

	s.invalidateDriver(ctx, best.DriverID)

	return &Suggestion{
		TripID:     trip.ID,
		TripNumber: trip.TripNumber,
		DriverID:   best.DriverID,
		DriverName: best.DriverName,
		Score:      best.Score,
		Reasons:    best.Reasons,
	}, nil
}

func (s *AssignmentService) sameDayTripCount(ctx context.Context, driverID string, day time.Time) int {
	if day.IsZero() {
		return 0
	}
	trips, err := s.tripRepo.GetByDriverAndDay(ctx, driverID, day)
	if err != nil {
		// Workload unknown; score without the penalty rather than failing
		// the whole sweep.
		return 0
	}
	count := 0
	for _, t := range trips {
		if !t.Status.IsTerminal() {
			count++
		}
	}
	return count
}

func (s *AssignmentService) cacheDriver(ctx context.Context, driver *domain.Driver) {
	if s.cacheStore == nil {
		return
	}
	_ = s.cacheStore.SetDriver(ctx, &redis.CachedDriver{
		ID:          driver.ID,
		Name:        driver.Name,
		Status:      string(driver.Status),
		VehicleType: string(driver.VehicleType),
		Rating:      driver.Rating,
		TotalTrips:  driver.TotalTrips,
		IsActive:    driver.IsActive,
	})
}

func (s *AssignmentService) invalidateDriver(ctx context.Context, driverID string) {
	if s.cacheStore == nil {
		return
	}
	_ = s.cacheStore.InvalidateDriver(ctx, driverID)
}
