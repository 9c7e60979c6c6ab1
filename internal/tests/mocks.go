package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"nemt/internal/domain"
	"nemt/internal/redis"
	"nemt/internal/repository"
	"nemt/internal/service"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error

	// When set, Create fails once this many trips exist. Used to exercise
	// partial-failure outcomes in bulk and recurring creation.
	FailCreateAfter int
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreateAfter > 0 && len(m.trips) >= m.FailCreateAfter {
		return ErrMockDBConstraint
	}
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Trip, 0, len(m.trips))
	for _, t := range m.trips {
		copy := *t
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockTripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[trip.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

func (m *MockTripRepository) GetUnassigned(ctx context.Context) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Trip
	for _, t := range m.trips {
		if t.DriverID == "" && !t.Status.IsTerminal() {
			copy := *t
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockTripRepository) GetByDriverAndDay(ctx context.Context, driverID string, day time.Time) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	y, mo, d := day.Date()
	var result []*domain.Trip
	for _, t := range m.trips {
		if t.DriverID != driverID {
			continue
		}
		ty, tmo, td := t.ScheduledTime.Date()
		if ty == y && tmo == mo && td == d {
			copy := *t
			result = append(result, &copy)
		}
	}
	return result, nil
}

// GetTrip returns trip for assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trips[id]
}

// GetByNumber returns the trip with the given trip number, for assertions.
func (m *MockTripRepository) GetByNumber(number string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.trips {
		if t.TripNumber == number {
			return t
		}
	}
	return nil
}

// CountTrips returns the number of trips.
func (m *MockTripRepository) CountTrips() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trips)
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	CreateCallCount       int32
	UpdateStatusCallCount int32

	// Error injection
	CreateError error
	GetAllError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) GetByPhone(ctx context.Context, phone string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.drivers {
		if d.Phone == phone {
			copy := *d
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	if m.GetAllError != nil {
		return nil, m.GetAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		copy := *d
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockDriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[driver.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *driver
	m.drivers[driver.ID] = &copy
	return nil
}

func (m *MockDriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Status = status
	return nil
}

// GetDriver returns driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

// ──────────────────────────────────────────────
// MOCK RATE SOURCE REPOSITORY
// ──────────────────────────────────────────────

// MockRateSourceRepository is a mock implementation of RateSourceRepository.
type MockRateSourceRepository struct {
	mu      sync.RWMutex
	sources map[string]*domain.RateSource

	// Error injection
	GetError error
}

// NewMockRateSourceRepository creates a new mock rate source repository.
func NewMockRateSourceRepository() *MockRateSourceRepository {
	return &MockRateSourceRepository{
		sources: make(map[string]*domain.RateSource),
	}
}

// AddSource adds a rate source to the mock repository.
func (m *MockRateSourceRepository) AddSource(source *domain.RateSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[source.ID] = source
}

func (m *MockRateSourceRepository) Create(ctx context.Context, source *domain.RateSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[source.ID] = source
	return nil
}

func (m *MockRateSourceRepository) GetByID(ctx context.Context, id string) (*domain.RateSource, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	source, ok := m.sources[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *source
	return &copy, nil
}

func (m *MockRateSourceRepository) GetAll(ctx context.Context) ([]*domain.RateSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.RateSource, 0, len(m.sources))
	for _, s := range m.sources {
		copy := *s
		result = append(result, &copy)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK PATIENT REPOSITORY
// ──────────────────────────────────────────────

// MockPatientRepository is a mock implementation of PatientRepository.
type MockPatientRepository struct {
	mu       sync.RWMutex
	patients map[string]*domain.Patient
}

// NewMockPatientRepository creates a new mock patient repository.
func NewMockPatientRepository() *MockPatientRepository {
	return &MockPatientRepository{
		patients: make(map[string]*domain.Patient),
	}
}

func (m *MockPatientRepository) Create(ctx context.Context, patient *domain.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[patient.ID] = patient
	return nil
}

func (m *MockPatientRepository) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	patient, ok := m.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *patient
	return &copy, nil
}

func (m *MockPatientRepository) GetAll(ctx context.Context) ([]*domain.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Patient, 0, len(m.patients))
	for _, p := range m.patients {
		copy := *p
		result = append(result, &copy)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of CacheStoreInterface.
type MockCacheStore struct {
	mu      sync.RWMutex
	drivers map[string]*redis.CachedDriver

	// Counters
	SetCallCount        int32
	InvalidateCallCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		drivers: make(map[string]*redis.CachedDriver),
	}
}

func (m *MockCacheStore) GetDriver(ctx context.Context, driverID string) (*redis.CachedDriver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[driverID]
	if !ok {
		return nil, nil
	}
	return driver, nil
}

func (m *MockCacheStore) SetDriver(ctx context.Context, driver *redis.CachedDriver) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
	return nil
}

func (m *MockCacheStore) InvalidateDriver(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drivers, driverID)
	return nil
}

func (m *MockCacheStore) GetDriversBatch(ctx context.Context, driverIDs []string) (map[string]*redis.CachedDriver, []string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := make(map[string]*redis.CachedDriver)
	var missing []string
	for _, id := range driverIDs {
		if d, ok := m.drivers[id]; ok {
			found[id] = d
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

// HasDriver checks if a driver is cached (for test assertions).
func (m *MockCacheStore) HasDriver(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.drivers[driverID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:driver:" + driverID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseDriverLock(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:driver:"+driverID)
	return nil
}

// IsLocked checks if a driver is locked (for test assertions).
func (m *MockLockStore) IsLocked(driverID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:driver:"+driverID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK CHANGE FEED
// ──────────────────────────────────────────────

// MockChangeFeed is a mock implementation of ChangeFeedInterface.
type MockChangeFeed struct {
	mu     sync.Mutex
	events []redis.ChangeEvent

	// Error injection
	PublishError error
}

// NewMockChangeFeed creates a new mock change feed.
func NewMockChangeFeed() *MockChangeFeed {
	return &MockChangeFeed{}
}

func (m *MockChangeFeed) Publish(ctx context.Context, event redis.ChangeEvent) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns the published events for assertions.
func (m *MockChangeFeed) Events() []redis.ChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]redis.ChangeEvent, len(m.events))
	copy(result, m.events)
	return result
}

// CountEvents returns the number of published events.
func (m *MockChangeFeed) CountEvents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// ──────────────────────────────────────────────
// MOCK DISTANCE CALCULATOR
// ──────────────────────────────────────────────

// MockDistanceCalculator is a mock implementation of DistanceCalculator.
type MockDistanceCalculator struct {
	mu sync.Mutex

	// Result to return.
	Miles   float64
	Fail    bool
	FailMsg string

	// Counters
	CallCount int32
}

// NewMockDistanceCalculator creates a calculator that always returns miles.
func NewMockDistanceCalculator(miles float64) *MockDistanceCalculator {
	return &MockDistanceCalculator{Miles: miles}
}

func (m *MockDistanceCalculator) Calculate(ctx context.Context, origin, destination string) service.DistanceResult {
	atomic.AddInt32(&m.CallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		msg := m.FailMsg
		if msg == "" {
			msg = "mock: address not resolvable"
		}
		return service.DistanceResult{Err: msg}
	}
	return service.DistanceResult{OK: true, Miles: m.Miles}
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
