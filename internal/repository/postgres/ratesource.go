package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"nemt/internal/domain"
	"nemt/internal/repository"
)

// RateSourceRepository is a PostgreSQL implementation of
// repository.RateSourceRepository. Clinics and contractors share one table,
// discriminated by kind.
type RateSourceRepository struct {
	q Querier
}

// NewRateSourceRepository creates a new PostgreSQL rate source repository.
func NewRateSourceRepository(db *sql.DB) *RateSourceRepository {
	return &RateSourceRepository{q: db}
}

const rateSourceColumns = `
	id, kind, name, flat_rates, rate_tiers, cancellation_rate, no_show_rate
`

// storedTier mirrors domain.RateTier in the rate_tiers JSON column.
type storedTier struct {
	FromMiles float64 `json:"from_miles"`
	ToMiles   float64 `json:"to_miles"`
	Rate      float64 `json:"rate"`
}

// Create persists a new rate source.
func (r *RateSourceRepository) Create(ctx context.Context, source *domain.RateSource) error {
	query := `
		INSERT INTO rate_sources (` + rateSourceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	flat, err := json.Marshal(source.FlatRates)
	if err != nil {
		return err
	}
	tiers, err := marshalSourceTiers(source.Tiers)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		source.ID,
		source.Kind,
		source.Name,
		flat,
		tiers,
		source.CancellationRate,
		source.NoShowRate,
	)

	return err
}

// GetByID retrieves a rate source by ID.
func (r *RateSourceRepository) GetByID(ctx context.Context, id string) (*domain.RateSource, error) {
	query := `SELECT ` + rateSourceColumns + ` FROM rate_sources WHERE id = $1`

	source, err := scanRateSource(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return source, nil
}

// GetAll retrieves all rate sources.
func (r *RateSourceRepository) GetAll(ctx context.Context) ([]*domain.RateSource, error) {
	query := `SELECT ` + rateSourceColumns + ` FROM rate_sources ORDER BY name ASC`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*domain.RateSource
	for rows.Next() {
		source, err := scanRateSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

func scanRateSource(row rowScanner) (*domain.RateSource, error) {
	var (
		source domain.RateSource
		flat   []byte
		tiers  []byte
	)

	err := row.Scan(
		&source.ID,
		&source.Kind,
		&source.Name,
		&flat,
		&tiers,
		&source.CancellationRate,
		&source.NoShowRate,
	)
	if err != nil {
		return nil, err
	}

	if len(flat) > 0 {
		if err := json.Unmarshal(flat, &source.FlatRates); err != nil {
			return nil, err
		}
	}
	if source.Tiers, err = unmarshalSourceTiers(tiers); err != nil {
		return nil, err
	}

	return &source, nil
}

func marshalSourceTiers(tiers map[domain.ServiceLevel][]domain.RateTier) ([]byte, error) {
	if len(tiers) == 0 {
		return json.Marshal(map[string][]storedTier{})
	}

	stored := make(map[string][]storedTier, len(tiers))
	for level, list := range tiers {
		out := make([]storedTier, 0, len(list))
		for _, t := range list {
			out = append(out, storedTier{FromMiles: t.FromMiles, ToMiles: t.ToMiles, Rate: t.Rate})
		}
		stored[string(level)] = out
	}

	return json.Marshal(stored)
}

func unmarshalSourceTiers(data []byte) (map[domain.ServiceLevel][]domain.RateTier, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var stored map[string][]storedTier
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, nil
	}

	tiers := make(map[domain.ServiceLevel][]domain.RateTier, len(stored))
	for level, list := range stored {
		out := make([]domain.RateTier, 0, len(list))
		for _, t := range list {
			out = append(out, domain.RateTier{FromMiles: t.FromMiles, ToMiles: t.ToMiles, Rate: t.Rate})
		}
		tiers[domain.ServiceLevel(level)] = out
	}

	return tiers, nil
}

// Ensure RateSourceRepository implements repository.RateSourceRepository.
var _ repository.RateSourceRepository = (*RateSourceRepository)(nil)
