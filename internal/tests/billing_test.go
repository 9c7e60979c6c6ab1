package tests

import (
	"context"
	"strings"
	"testing"

	"nemt/internal/domain"
	"nemt/internal/service"
)

// ──────────────────────────────────────────────
// 6. BILLING STATEMENTS
// ──────────────────────────────────────────────

func newTestBilling(tripRepo *MockTripRepository, driverRepo *MockDriverRepository, sourceRepo *MockRateSourceRepository) *service.BillingService {
	pricing := service.NewPricingService(sourceRepo, driverRepo)
	return service.NewBillingService(tripRepo, driverRepo, sourceRepo, pricing)
}

func TestGenerateStatement_DecomposesPayout(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	sourceRepo := NewMockRateSourceRepository()

	driver := tieredDriver()
	driver.Rates.Deductions = domain.Deductions{RentalFee: 10, InsuranceFee: 5, FeePercent: 10}
	driverRepo.AddDriver(driver)

	sourceRepo.AddSource(&domain.RateSource{
		ID:        "clinic-1",
		Name:      "Mercy Dialysis",
		Kind:      domain.RateSourceClinic,
		FlatRates: map[domain.ServiceLevel]float64{domain.ServiceAmbulatory: 70},
	})

	trip := payoutTrip(15)
	trip.TripNumber = "TRP-1001"
	trip.ClinicID = "clinic-1"
	tripRepo.AddTrip(trip)

	billing := newTestBilling(tripRepo, driverRepo, sourceRepo)
	stmt, err := billing.Generate(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stmt.RateSourceName != "Mercy Dialysis" || stmt.ContractorCharge != 70 {
		t.Errorf("charge side wrong: %+v", stmt)
	}
	// Tier 80, minus 10 rental and 5 insurance, minus 10% of the remainder.
	if stmt.NetPayout != 58.5 {
		t.Errorf("net = %v, want 58.5", stmt.NetPayout)
	}
	if stmt.GrossPayout != 80 || stmt.RentalFee != 10 || stmt.InsuranceFee != 5 || stmt.PercentFee != 6.5 {
		t.Errorf("deduction breakdown wrong: %+v", stmt)
	}
	if stmt.Margin != 11.5 {
		t.Errorf("margin = %v, want 11.5", stmt.Margin)
	}
}

func TestGenerateStatement_PinnedAmountsReported(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(tieredDriver())

	trip := payoutTrip(15)
	trip.Fare = domain.PinnedCharge(120)
	trip.DriverPayout = domain.PinnedCharge(90)
	tripRepo.AddTrip(trip)

	billing := newTestBilling(tripRepo, driverRepo, NewMockRateSourceRepository())
	stmt, err := billing.Generate(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !stmt.ChargePinned || stmt.ContractorCharge != 120 {
		t.Errorf("pinned charge should carry through, got %+v", stmt)
	}
	if !stmt.PayoutPinned || stmt.NetPayout != 90 {
		t.Errorf("pinned payout should carry through, got %+v", stmt)
	}
	// A manual override has no itemization to report.
	if stmt.GrossPayout != 0 || stmt.PercentFee != 0 {
		t.Errorf("pinned payout must not be decomposed, got %+v", stmt)
	}
	if stmt.Margin != 30 {
		t.Errorf("margin = %v, want 30", stmt.Margin)
	}
}

func TestGenerateStatement_UnassignedTrip(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()

	trip := payoutTrip(15)
	trip.DriverID = ""
	tripRepo.AddTrip(trip)

	billing := newTestBilling(tripRepo, NewMockDriverRepository(), NewMockRateSourceRepository())
	stmt, err := billing.Generate(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stmt.DriverID != "" || stmt.NetPayout != 0 {
		t.Errorf("unassigned trip should have an empty payout side, got %+v", stmt)
	}
}

func TestFormatStatement_MarksOverrides(t *testing.T) {
	t.Parallel()

	billing := newTestBilling(NewMockTripRepository(), NewMockDriverRepository(), NewMockRateSourceRepository())

	text := billing.FormatStatement(&service.Statement{
		TripNumber:       "TRP-1001",
		Status:           domain.TripStatusCompleted,
		ContractorCharge: 120,
		ChargePinned:     true,
		NetPayout:        58.5,
	})

	if !strings.Contains(text, "TRP-1001") {
		t.Error("statement text should include the trip number")
	}
	if !strings.Contains(text, "$120.00 (manual override)") {
		t.Errorf("pinned charge should be flagged:\n%s", text)
	}
	if !strings.Contains(text, "$58.50") {
		t.Errorf("net payout missing:\n%s", text)
	}
}
