package tests

import (
	"context"
	"testing"

	"nemt/internal/domain"
	"nemt/internal/service"
)

// ──────────────────────────────────────────────
// 3. PRICING ENGINE
// ──────────────────────────────────────────────

func tieredDriver() *domain.Driver {
	return &domain.Driver{
		ID:   "driver-1",
		Name: "Sam",
		Rates: domain.DriverRates{
			Tables: map[domain.ServiceLevel]domain.RateTable{
				domain.ServiceAmbulatory: {
					Tiers: []domain.RateTier{
						{FromMiles: 0, ToMiles: 10, Rate: 50},
						{FromMiles: 11, ToMiles: 20, Rate: 80},
					},
					AdditionalMileRate: 5,
				},
			},
		},
	}
}

func payoutTrip(miles float64) *domain.Trip {
	return &domain.Trip{
		ID:           "trip-1",
		DriverID:     "driver-1",
		ServiceLevel: domain.ServiceAmbulatory,
		Status:       domain.TripStatusCompleted,
		Distance:     miles,
	}
}

func TestDriverPayout_TierMatch(t *testing.T) {
	t.Parallel()

	driver := tieredDriver()

	cases := []struct {
		name  string
		miles float64
		want  float64
	}{
		{"first band", 7, 50},
		{"first band upper edge", 10, 50},
		{"second band", 15, 80},
		{"rounding into second band", 10.6, 80},
		{"beyond last band pays additional miles", 25, 105}, // 80 + 5*5
		{"far beyond last band", 30, 130},                   // 80 + 10*5
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := service.DriverPayout(payoutTrip(tc.miles), driver)
			if got != tc.want {
				t.Errorf("payout(%v mi) = %v, want %v", tc.miles, got, tc.want)
			}
		})
	}
}

func TestDriverPayout_Deductions(t *testing.T) {
	t.Parallel()

	driver := tieredDriver()
	driver.Rates.Deductions = domain.Deductions{
		RentalFee:    10,
		InsuranceFee: 5,
		FeePercent:   10,
	}

	// Tier rate 80, minus 10 rental, minus 5 insurance = 65, minus 10% = 58.5.
	got := service.DriverPayout(payoutTrip(15), driver)
	if got != 58.5 {
		t.Errorf("payout = %v, want 58.5", got)
	}
}

func TestDriverPayout_ClampedAtZero(t *testing.T) {
	t.Parallel()

	driver := tieredDriver()
	driver.Rates.Deductions = domain.Deductions{RentalFee: 100}

	if got := service.DriverPayout(payoutTrip(7), driver); got != 0 {
		t.Errorf("payout should clamp at 0, got %v", got)
	}
}

func TestDriverPayout_PinnedWinsOverEverything(t *testing.T) {
	t.Parallel()

	trip := payoutTrip(15)
	trip.DriverPayout = domain.PinnedCharge(42)

	if got := service.DriverPayout(trip, tieredDriver()); got != 42 {
		t.Errorf("pinned payout must be returned unchanged, got %v", got)
	}

	// Even with no driver at all.
	trip.DriverID = ""
	if got := service.DriverPayout(trip, nil); got != 42 {
		t.Errorf("pinned payout must win with nil driver, got %v", got)
	}
}

func TestDriverPayout_ZeroCases(t *testing.T) {
	t.Parallel()

	driver := tieredDriver()

	unassigned := payoutTrip(15)
	unassigned.DriverID = ""
	if got := service.DriverPayout(unassigned, nil); got != 0 {
		t.Errorf("unassigned trip should pay 0, got %v", got)
	}

	cancelled := payoutTrip(15)
	cancelled.Status = domain.TripStatusCancelled
	if got := service.DriverPayout(cancelled, driver); got != 0 {
		t.Errorf("cancelled trip should pay 0, got %v", got)
	}

	noTable := payoutTrip(15)
	noTable.ServiceLevel = domain.ServiceStretcher
	if got := service.DriverPayout(noTable, driver); got != 0 {
		t.Errorf("missing rate table should pay 0, got %v", got)
	}
}

func TestContractorCharge_StatusAware(t *testing.T) {
	t.Parallel()

	source := &domain.RateSource{
		ID:               "contractor-1",
		Kind:             domain.RateSourceContractor,
		FlatRates:        map[domain.ServiceLevel]float64{domain.ServiceWheelchair: 95},
		CancellationRate: 25,
		NoShowRate:       40,
	}

	trip := &domain.Trip{ServiceLevel: domain.ServiceWheelchair, Status: domain.TripStatusScheduled}
	if got := service.ContractorCharge(trip, source); got != 95 {
		t.Errorf("active trip charge = %v, want 95", got)
	}

	trip.Status = domain.TripStatusCancelled
	if got := service.ContractorCharge(trip, source); got != 25 {
		t.Errorf("cancelled trip charge = %v, want 25", got)
	}

	trip.Status = domain.TripStatusNoShow
	if got := service.ContractorCharge(trip, source); got != 40 {
		t.Errorf("no-show trip charge = %v, want 40", got)
	}

	if got := service.ContractorCharge(trip, nil); got != 0 {
		t.Errorf("no rate source should charge 0, got %v", got)
	}
}

func TestContractorCharge_TieredSourceUsesFirstTier(t *testing.T) {
	t.Parallel()

	source := &domain.RateSource{
		ID:   "contractor-1",
		Kind: domain.RateSourceContractor,
		Tiers: map[domain.ServiceLevel][]domain.RateTier{
			domain.ServiceAmbulatory: {
				{FromMiles: 0, ToMiles: 10, Rate: 60},
				{FromMiles: 11, ToMiles: 50, Rate: 110},
			},
		},
	}

	trip := &domain.Trip{ServiceLevel: domain.ServiceAmbulatory, Status: domain.TripStatusScheduled, Distance: 45}
	if got := service.ContractorCharge(trip, source); got != 60 {
		t.Errorf("tiered source bills the first tier's flat figure, got %v", got)
	}
}

func TestResolveRateSource_ContractorBeforeClinic(t *testing.T) {
	t.Parallel()

	sourceRepo := NewMockRateSourceRepository()
	sourceRepo.AddSource(&domain.RateSource{ID: "contractor-1", Kind: domain.RateSourceContractor})
	sourceRepo.AddSource(&domain.RateSource{ID: "clinic-1", Kind: domain.RateSourceClinic})

	pricing := service.NewPricingService(sourceRepo, NewMockDriverRepository())

	trip := &domain.Trip{ContractorID: "contractor-1", ClinicID: "clinic-1"}
	source, err := pricing.ResolveRateSource(context.Background(), trip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source == nil || source.ID != "contractor-1" {
		t.Errorf("contractor should take precedence, got %+v", source)
	}

	// A dangling contractor reference falls back to the clinic.
	trip.ContractorID = "missing"
	source, err = pricing.ResolveRateSource(context.Background(), trip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source == nil || source.ID != "clinic-1" {
		t.Errorf("expected clinic fallback, got %+v", source)
	}

	// Neither configured: no source, no error.
	walkIn := &domain.Trip{}
	source, err = pricing.ResolveRateSource(context.Background(), walkIn)
	if err != nil || source != nil {
		t.Errorf("expected nil source for walk-in, got %+v, %v", source, err)
	}
}

func TestReprice_RespectsPins(t *testing.T) {
	t.Parallel()

	sourceRepo := NewMockRateSourceRepository()
	sourceRepo.AddSource(&domain.RateSource{
		ID:        "clinic-1",
		Kind:      domain.RateSourceClinic,
		FlatRates: map[domain.ServiceLevel]float64{domain.ServiceAmbulatory: 70},
	})
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(tieredDriver())

	pricing := service.NewPricingService(sourceRepo, driverRepo)

	trip := payoutTrip(15)
	trip.ClinicID = "clinic-1"
	trip.Status = domain.TripStatusScheduled
	trip.Fare = domain.PinnedCharge(999)

	if err := pricing.Reprice(context.Background(), trip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trip.Fare.Amount() != 999 {
		t.Errorf("pinned fare must survive a reprice, got %v", trip.Fare.Amount())
	}
	if trip.DriverPayout.Amount() != 80 {
		t.Errorf("unpinned payout should recompute to 80, got %v", trip.DriverPayout.Amount())
	}
}

func TestParseRateTable_CompactEncoding(t *testing.T) {
	t.Parallel()

	table, err := domain.ParseRateTable([]byte(`[[0,10,50],[11,20,80],5]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Tiers) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(table.Tiers))
	}
	if table.Tiers[1].Rate != 80 || table.AdditionalMileRate != 5 {
		t.Errorf("decoded %+v", table)
	}

	if _, err := domain.ParseRateTable([]byte(`{"not":"an array"}`)); err == nil {
		t.Error("expected error for non-array input")
	}
}
