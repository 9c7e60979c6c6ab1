package repository

import (
	"context"

	"nemt/internal/domain"
)

// RateSourceRepository defines the persistence operations for clinic and
// contractor rate sources.
type RateSourceRepository interface {
	// Create persists a new rate source.
	Create(ctx context.Context, source *domain.RateSource) error

	// GetByID retrieves a rate source by ID.
	GetByID(ctx context.Context, id string) (*domain.RateSource, error)

	// GetAll retrieves all rate sources.
	GetAll(ctx context.Context) ([]*domain.RateSource, error)
}
