package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"nemt/internal/domain"
	"nemt/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `
	id, name, phone, email, license_number, status, is_active,
	rating, total_trips, vehicle_type, rates, documents, created_at
`

// driverRates is the stored JSON shape of a driver's rate configuration.
// Each service-level table uses the compact [from,to,rate]... + scalar
// encoding decoded by domain.ParseRateTable.
type driverRates struct {
	Tables     map[string]json.RawMessage `json:"tables"`
	Deductions struct {
		RentalFee    float64 `json:"rental_fee"`
		InsuranceFee float64 `json:"insurance_fee"`
		FeePercent   float64 `json:"fee_percent"`
	} `json:"deductions"`
}

// driverDocument is the stored JSON shape of one compliance document.
type driverDocument struct {
	Kind       string `json:"kind"`
	ExpiryDate string `json:"expiry_date,omitempty"` // RFC 3339; empty = not set.
}

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (` + driverColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	rates, err := marshalRates(driver.Rates)
	if err != nil {
		return err
	}
	docs, err := marshalDocuments(driver.Documents)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		driver.ID,
		driver.Name,
		driver.Phone,
		driver.Email,
		driver.LicenseNumber,
		driver.Status,
		driver.IsActive,
		driver.Rating,
		driver.TotalTrips,
		driver.VehicleType,
		rates,
		docs,
		driver.CreatedAt,
	)

	return err
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`

	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return driver, nil
}

// GetByPhone retrieves a driver by phone number.
func (r *DriverRepository) GetByPhone(ctx context.Context, phone string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE phone = $1`

	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return driver, nil
}

// GetAll retrieves the full roster, including inactive drivers.
func (r *DriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers ORDER BY name ASC`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}

	return drivers, rows.Err()
}

// Update updates an existing driver record.
func (r *DriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	query := `
		UPDATE drivers SET
			name = $1, phone = $2, email = $3, license_number = $4,
			status = $5, is_active = $6, rating = $7, total_trips = $8,
			vehicle_type = $9, rates = $10, documents = $11
		WHERE id = $12
	`

	rates, err := marshalRates(driver.Rates)
	if err != nil {
		return err
	}
	docs, err := marshalDocuments(driver.Documents)
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, query,
		driver.Name,
		driver.Phone,
		driver.Email,
		driver.LicenseNumber,
		driver.Status,
		driver.IsActive,
		driver.Rating,
		driver.TotalTrips,
		driver.VehicleType,
		rates,
		docs,
		driver.ID,
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

// UpdateStatus updates the status of a driver.
func (r *DriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	query := `UPDATE drivers SET status = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
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

func scanDriver(row rowScanner) (*domain.Driver, error) {
	var (
		driver domain.Driver
		rates  []byte
		docs   []byte
	)

	err := row.Scan(
		&driver.ID,
		&driver.Name,
		&driver.Phone,
		&driver.Email,
		&driver.LicenseNumber,
		&driver.Status,
		&driver.IsActive,
		&driver.Rating,
		&driver.TotalTrips,
		&driver.VehicleType,
		&rates,
		&docs,
		&driver.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if driver.Rates, err = unmarshalRates(rates); err != nil {
		return nil, err
	}
	if driver.Documents, err = unmarshalDocuments(docs); err != nil {
		return nil, err
	}

	return &driver, nil
}

func marshalRates(rates domain.DriverRates) ([]byte, error) {
	stored := driverRates{Tables: make(map[string]json.RawMessage, len(rates.Tables))}
	stored.Deductions.RentalFee = rates.Deductions.RentalFee
	stored.Deductions.InsuranceFee = rates.Deductions.InsuranceFee
	stored.Deductions.FeePercent = rates.Deductions.FeePercent

	for level, table := range rates.Tables {
		compact := make([]any, 0, len(table.Tiers)+1)
		for _, tier := range table.Tiers {
			compact = append(compact, [3]float64{tier.FromMiles, tier.ToMiles, tier.Rate})
		}
		compact = append(compact, table.AdditionalMileRate)

		raw, err := json.Marshal(compact)
		if err != nil {
			return nil, err
		}
		stored.Tables[string(level)] = raw
	}

	return json.Marshal(stored)
}

func unmarshalRates(data []byte) (domain.DriverRates, error) {
	rates := domain.DriverRates{Tables: make(map[domain.ServiceLevel]domain.RateTable)}
	if len(data) == 0 {
		return rates, nil
	}

	var stored driverRates
	if err := json.Unmarshal(data, &stored); err != nil {
		return rates, err
	}

	rates.Deductions = domain.Deductions{
		RentalFee:    stored.Deductions.RentalFee,
		InsuranceFee: stored.Deductions.InsuranceFee,
		FeePercent:   stored.Deductions.FeePercent,
	}

	for level, raw := range stored.Tables {
		table, err := domain.ParseRateTable(raw)
		if err != nil {
			return rates, err
		}
		rates.Tables[domain.ServiceLevel(level)] = table
	}

	return rates, nil
}

func marshalDocuments(docs []domain.DriverDocument) ([]byte, error) {
	stored := make([]driverDocument, 0, len(docs))
	for _, doc := range docs {
		d := driverDocument{Kind: string(doc.Kind)}
		if !doc.ExpiryDate.IsZero() {
			d.ExpiryDate = doc.ExpiryDate.Format("2006-01-02T15:04:05Z07:00")
		}
		stored = append(stored, d)
	}
	return json.Marshal(stored)
}

func unmarshalDocuments(data []byte) ([]domain.DriverDocument, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var stored []driverDocument
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	docs := make([]domain.DriverDocument, 0, len(stored))
	for _, d := range stored {
		doc := domain.DriverDocument{Kind: domain.DocumentKind(d.Kind)}
		if d.ExpiryDate != "" {
			t, err := parseRFC3339(d.ExpiryDate)
			if err != nil {
				return nil, err
			}
			doc.ExpiryDate = t
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Ensure DriverRepository implements repository.DriverRepository.
var _ repository.DriverRepository = (*DriverRepository)(nil)
