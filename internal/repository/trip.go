package repository

import (
	"context"
	"time"

	"nemt/internal/domain"
)

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetAll retrieves all trips, newest first.
	GetAll(ctx context.Context) ([]*domain.Trip, error)

	// Update updates an existing trip.
	Update(ctx context.Context, trip *domain.Trip) error

	// GetUnassigned retrieves trips eligible for auto-assignment: status
	// pending, or no driver attached and status not terminal.
	GetUnassigned(ctx context.Context) ([]*domain.Trip, error)

	// GetByDriverAndDay retrieves a driver's trips scheduled on the given
	// calendar day. Used for workload scoring and conflict detection.
	GetByDriverAndDay(ctx context.Context, driverID string, day time.Time) ([]*domain.Trip, error)
}
