package postgres

import (
	"context"
	"database/sql"
	"errors"

	"nemt/internal/domain"
	"nemt/internal/repository"
)

// PatientRepository is a PostgreSQL implementation of
// repository.PatientRepository.
type PatientRepository struct {
	q Querier
}

// NewPatientRepository creates a new PostgreSQL patient repository.
func NewPatientRepository(db *sql.DB) *PatientRepository {
	return &PatientRepository{q: db}
}

// Create persists a new patient.
func (r *PatientRepository) Create(ctx context.Context, patient *domain.Patient) error {
	query := `
		INSERT INTO patients (id, first_name, last_name, phone, email, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		patient.ID,
		patient.FirstName,
		patient.LastName,
		patient.Phone,
		patient.Email,
		patient.Notes,
		patient.CreatedAt,
	)

	return err
}

// GetByID retrieves a patient by ID.
func (r *PatientRepository) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	query := `
		SELECT id, first_name, last_name, phone, email, notes, created_at
		FROM patients WHERE id = $1
	`

	var patient domain.Patient
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&patient.ID,
		&patient.FirstName,
		&patient.LastName,
		&patient.Phone,
		&patient.Email,
		&patient.Notes,
		&patient.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &patient, nil
}

// GetAll retrieves all patients.
func (r *PatientRepository) GetAll(ctx context.Context) ([]*domain.Patient, error) {
	query := `
		SELECT id, first_name, last_name, phone, email, notes, created_at
		FROM patients ORDER BY last_name ASC, first_name ASC
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []*domain.Patient
	for rows.Next() {
		var patient domain.Patient
		if err := rows.Scan(
			&patient.ID,
			&patient.FirstName,
			&patient.LastName,
			&patient.Phone,
			&patient.Email,
			&patient.Notes,
			&patient.CreatedAt,
		); err != nil {
			return nil, err
		}
		patients = append(patients, &patient)
	}

	return patients, rows.Err()
}

// Ensure PatientRepository implements repository.PatientRepository.
var _ repository.PatientRepository = (*PatientRepository)(nil)
