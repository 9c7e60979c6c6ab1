package domain

// RateSourceKind distinguishes contractor and clinic rate sources. A trip
// resolves its billed rate by contractor first, falling back to its clinic.
type RateSourceKind string

const (
	RateSourceContractor RateSourceKind = "contractor"
	RateSourceClinic     RateSourceKind = "clinic"
)

// RateSource is a billing counterparty (clinic or contractor). It carries
// either flat per-service-level rates or tiered mileage bands, plus flat
// rates for cancellations and no-shows.
type RateSource struct {
	ID   string
	Kind RateSourceKind
	Name string

	// Flat per-service-level rates, used when Tiers is empty.
	FlatRates map[ServiceLevel]float64

	// Tiered mileage bands keyed by service level. The charge is the first
	// tier's rate: a flat figure, independent of mileage beyond qualifying.
	Tiers map[ServiceLevel][]RateTier

	CancellationRate float64
	NoShowRate       float64
}

// UsesTiers reports whether the source bills from mileage bands.
func (s *RateSource) UsesTiers() bool {
	return len(s.Tiers) > 0
}

// ServiceRate returns the billable rate for a service level, or 0 when the
// source has no rate configured for it.
func (s *RateSource) ServiceRate(level ServiceLevel) float64 {
	if s.UsesTiers() {
		tiers := s.Tiers[level]
		if len(tiers) == 0 {
			return 0
		}
		return tiers[0].Rate
	}
	return s.FlatRates[level]
}
