package redis

import (
	"context"
	"time"
)

// CacheStoreInterface defines the driver-cache operations the assignment
// sweep depends on.
type CacheStoreInterface interface {
	GetDriver(ctx context.Context, driverID string) (*CachedDriver, error)
	SetDriver(ctx context.Context, driver *CachedDriver) error
	InvalidateDriver(ctx context.Context, driverID string) error
	GetDriversBatch(ctx context.Context, driverIDs []string) (map[string]*CachedDriver, []string, error)
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error)
	ReleaseDriverLock(ctx context.Context, driverID string) error
}

// ChangeFeedInterface defines the record-change publication contract.
type ChangeFeedInterface interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// Ensure concrete types implement interfaces.
var (
	_ CacheStoreInterface = (*CacheStore)(nil)
	_ LockStoreInterface  = (*LockStore)(nil)
	_ ChangeFeedInterface = (*ChangeFeed)(nil)
)
