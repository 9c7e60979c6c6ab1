package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"nemt/internal/domain"
	"nemt/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

const tripColumns = `
	id, trip_number, trip_type, journey_type, service_level, status,
	scheduled_time, appointment_time, actual_pickup_time, actual_dropoff_time, will_call,
	pickup_location, dropoff_location, distance, leg1_miles, leg2_miles, stops,
	customer_name, first_name, last_name, customer_phone, customer_email,
	patient_id, driver_id, clinic_id, contractor_id,
	fare, fare_pinned, driver_payout, driver_payout_pinned,
	notes, classification, cancellation_reason, cancelled_at,
	created_by, dispatcher_name, created_at, updated_at
`

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
		        $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37, $38)
	`

	stops, err := json.Marshal(trip.Stops)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		trip.ID,
		trip.TripNumber,
		trip.TripType,
		trip.JourneyType,
		trip.ServiceLevel,
		trip.Status,
		trip.ScheduledTime,
		nullTime(trip.AppointmentTime),
		nullTime(trip.ActualPickupTime),
		nullTime(trip.ActualDropoffTime),
		trip.WillCall,
		trip.PickupLocation,
		trip.DropoffLocation,
		trip.Distance,
		trip.Leg1Miles,
		trip.Leg2Miles,
		stops,
		trip.CustomerName,
		trip.FirstName,
		trip.LastName,
		trip.CustomerPhone,
		trip.CustomerEmail,
		trip.PatientID,
		trip.DriverID,
		trip.ClinicID,
		trip.ContractorID,
		trip.Fare.Amount(),
		trip.Fare.Pinned(),
		trip.DriverPayout.Amount(),
		trip.DriverPayout.Pinned(),
		trip.Notes,
		trip.Classification,
		trip.CancellationReason,
		nullTime(trip.CancelledAt),
		trip.CreatedBy,
		trip.DispatcherName,
		trip.CreatedAt,
		trip.UpdatedAt,
	)

	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// GetAll retrieves all trips, newest first.
func (r *TripRepository) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips ORDER BY scheduled_time DESC LIMIT 500`
	return r.queryTrips(ctx, query)
}

// GetUnassigned retrieves trips eligible for auto-assignment.
func (r *TripRepository) GetUnassigned(ctx context.Context) ([]*domain.Trip, error) {
	query := `
		SELECT ` + tripColumns + ` FROM trips
		WHERE (status = $1 OR driver_id = '')
		  AND status NOT IN ($2, $3, $4)
		ORDER BY scheduled_time ASC
	`
	return r.queryTrips(ctx, query,
		domain.TripStatusPending,
		domain.TripStatusCompleted,
		domain.TripStatusCancelled,
		domain.TripStatusNoShow,
	)
}

// GetByDriverAndDay retrieves a driver's trips scheduled on the given
// calendar day.
func (r *TripRepository) GetByDriverAndDay(ctx context.Context, driverID string, day time.Time) ([]*domain.Trip, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	query := `
		SELECT ` + tripColumns + ` FROM trips
		WHERE driver_id = $1 AND scheduled_time >= $2 AND scheduled_time < $3
		ORDER BY scheduled_time ASC
	`
	return r.queryTrips(ctx, query, driverID, start, end)
}

// Update updates an existing trip.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips SET
			trip_number = $1, trip_type = $2, journey_type = $3, service_level = $4,
			status = $5, scheduled_time = $6, appointment_time = $7,
			actual_pickup_time = $8, actual_dropoff_time = $9, will_call = $10,
			pickup_location = $11, dropoff_location = $12, distance = $13,
			leg1_miles = $14, leg2_miles = $15, stops = $16,
			customer_name = $17, first_name = $18, last_name = $19,
			customer_phone = $20, customer_email = $21,
			patient_id = $22, driver_id = $23, clinic_id = $24, contractor_id = $25,
			fare = $26, fare_pinned = $27, driver_payout = $28, driver_payout_pinned = $29,
			notes = $30, classification = $31, cancellation_reason = $32, cancelled_at = $33,
			dispatcher_name = $34, updated_at = $35
		WHERE id = $36
	`

	stops, err := json.Marshal(trip.Stops)
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, query,
		trip.TripNumber,
		trip.TripType,
		trip.JourneyType,
		trip.ServiceLevel,
		trip.Status,
		trip.ScheduledTime,
		nullTime(trip.AppointmentTime),
		nullTime(trip.ActualPickupTime),
		nullTime(trip.ActualDropoffTime),
		trip.WillCall,
		trip.PickupLocation,
		trip.DropoffLocation,
		trip.Distance,
		trip.Leg1Miles,
		trip.Leg2Miles,
		stops,
		trip.CustomerName,
		trip.FirstName,
		trip.LastName,
		trip.CustomerPhone,
		trip.CustomerEmail,
		trip.PatientID,
		trip.DriverID,
		trip.ClinicID,
		trip.ContractorID,
		trip.Fare.Amount(),
		trip.Fare.Pinned(),
		trip.DriverPayout.Amount(),
		trip.DriverPayout.Pinned(),
		trip.Notes,
		trip.Classification,
		trip.CancellationReason,
		nullTime(trip.CancelledAt),
		trip.DispatcherName,
		time.Now(),
		trip.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *TripRepository) queryTrips(ctx context.Context, query string, args ...any) ([]*domain.Trip, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var (
		trip          domain.Trip
		appointment   sql.NullTime
		actualPickup  sql.NullTime
		actualDropoff sql.NullTime
		cancelledAt   sql.NullTime
		stops         []byte
		fare          float64
		farePinned    bool
		payout        float64
		payoutPinned  bool
	)

	err := row.Scan(
		&trip.ID,
		&trip.TripNumber,
		&trip.TripType,
		&trip.JourneyType,
		&trip.ServiceLevel,
		&trip.Status,
		&trip.ScheduledTime,
		&appointment,
		&actualPickup,
		&actualDropoff,
		&trip.WillCall,
		&trip.PickupLocation,
		&trip.DropoffLocation,
		&trip.Distance,
		&trip.Leg1Miles,
		&trip.Leg2Miles,
		&stops,
		&trip.CustomerName,
		&trip.FirstName,
		&trip.LastName,
		&trip.CustomerPhone,
		&trip.CustomerEmail,
		&trip.PatientID,
		&trip.DriverID,
		&trip.ClinicID,
		&trip.ContractorID,
		&fare,
		&farePinned,
		&payout,
		&payoutPinned,
		&trip.Notes,
		&trip.Classification,
		&trip.CancellationReason,
		&cancelledAt,
		&trip.CreatedBy,
		&trip.DispatcherName,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if appointment.Valid {
		trip.AppointmentTime = appointment.Time
	}
	if actualPickup.Valid {
		trip.ActualPickupTime = actualPickup.Time
	}
	if actualDropoff.Valid {
		trip.ActualDropoffTime = actualDropoff.Time
	}
	if cancelledAt.Valid {
		trip.CancelledAt = cancelledAt.Time
	}

	if len(stops) > 0 {
		if err := json.Unmarshal(stops, &trip.Stops); err != nil {
			return nil, err
		}
	}

	if farePinned {
		trip.Fare = domain.PinnedCharge(fare)
	} else {
		trip.Fare = domain.ComputedCharge(fare)
	}
	if payoutPinned {
		trip.DriverPayout = domain.PinnedCharge(payout)
	} else {
		trip.DriverPayout = domain.ComputedCharge(payout)
	}

	return &trip, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
