package repository

import (
	"context"

	"nemt/internal/domain"
)

// PatientRepository defines the persistence operations for rider profiles.
type PatientRepository interface {
	// Create persists a new patient.
	Create(ctx context.Context, patient *domain.Patient) error

	// GetByID retrieves a patient by ID.
	GetByID(ctx context.Context, id string) (*domain.Patient, error)

	// GetAll retrieves all patients.
	GetAll(ctx context.Context) ([]*domain.Patient, error)
}
