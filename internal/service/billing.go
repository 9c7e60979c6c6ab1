package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nemt/internal/domain"
	"nemt/internal/repository"
)

// Statement is the per-trip billing breakdown shown to the dispatcher and
// exported to the contractor. Amounts are snapshots at generation time;
// pinned overrides are reported as such.
type Statement struct {
	TripID     string
	TripNumber string
	Status     domain.TripStatus

	RateSourceName string
	RateSourceKind domain.RateSourceKind

	ContractorCharge float64
	ChargePinned     bool

	DriverID     string
	DriverName   string
	GrossPayout  float64
	RentalFee    float64
	InsuranceFee float64
	PercentFee   float64
	NetPayout    float64
	PayoutPinned bool

	Margin float64 // ContractorCharge - NetPayout.

	Miles     float64
	Leg1Miles float64
	Leg2Miles float64

	GeneratedAt time.Time
}

// BillingService produces billing statements for trips.
type BillingService struct {
	tripRepo       repository.TripRepository
	driverRepo     repository.DriverRepository
	rateSourceRepo repository.RateSourceRepository
	pricing        *PricingService
}

// NewBillingService creates a new BillingService.
func NewBillingService(
	tripRepo repository.TripRepository,
	driverRepo repository.DriverRepository,
	rateSourceRepo repository.RateSourceRepository,
	pricing *PricingService,
) *BillingService {
	return &BillingService{
		tripRepo:       tripRepo,
		driverRepo:     driverRepo,
		rateSourceRepo: rateSourceRepo,
		pricing:        pricing,
	}
}

// Generate builds the billing statement for one trip. Read-only: the trip's
// stored charges are not touched.
func (s *BillingService) Generate(ctx context.Context, tripID string) (*Statement, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	stmt := &Statement{
		TripID:       trip.ID,
		TripNumber:   trip.TripNumber,
		Status:       trip.Status,
		ChargePinned: trip.Fare.Pinned(),
		PayoutPinned: trip.DriverPayout.Pinned(),
		Miles:        trip.Distance,
		Leg1Miles:    trip.Leg1Miles,
		Leg2Miles:    trip.Leg2Miles,
		GeneratedAt:  time.Now(),
	}

	source, err := s.pricing.ResolveRateSource(ctx, trip)
	if err != nil {
		return nil, err
	}
	if source != nil {
		stmt.RateSourceName = source.Name
		stmt.RateSourceKind = source.Kind
	}

	if stmt.ChargePinned {
		stmt.ContractorCharge = trip.Fare.Amount()
	} else {
		stmt.ContractorCharge = ContractorCharge(trip, source)
	}

	if trip.DriverID != "" {
		driver, err := s.driverRepo.GetByID(ctx, trip.DriverID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if driver != nil {
			stmt.DriverID = driver.ID
			stmt.DriverName = driver.Name
			s.fillPayout(stmt, trip, driver)
		}
	}

	stmt.Margin = roundCents(stmt.ContractorCharge - stmt.NetPayout)

	return stmt, nil
}

// fillPayout decomposes the driver payout into its gross and deduction
// components. A pinned payout reports the pinned value as net with no
// itemized deductions.
func (s *BillingService) fillPayout(stmt *Statement, trip *domain.Trip, driver *domain.Driver) {
	if trip.DriverPayout.Pinned() {
		stmt.NetPayout = trip.DriverPayout.Amount()
		return
	}

	net := DriverPayout(trip, driver)
	stmt.NetPayout = net
	if net == 0 {
		return
	}

	d := driver.Rates.Deductions
	stmt.RentalFee = d.RentalFee
	stmt.InsuranceFee = d.InsuranceFee

	// Work backwards from net to the pre-percentage figure, then to gross.
	prePercent := net
	if d.FeePercent > 0 {
		prePercent = net / (1 - d.FeePercent/100)
		stmt.PercentFee = roundCents(prePercent - net)
	}
	stmt.GrossPayout = roundCents(prePercent + d.RentalFee + d.InsuranceFee)
}

// FormatStatement formats the statement as plain text (for email/print).
func (s *BillingService) FormatStatement(stmt *Statement) string {
	pinned := func(p bool) string {
		if p {
			return " (manual override)"
		}
		return ""
	}

	return `
=====================================
        TRIP STATEMENT
=====================================
Trip:   ` + stmt.TripNumber + `
Status: ` + string(stmt.Status) + `
Date:   ` + stmt.GeneratedAt.Format("Jan 02, 2006 3:04 PM") + `

ROUTE
-------------------------------------
Distance:   ` + formatMiles(stmt.Miles) + `
Leg 1:      ` + formatMiles(stmt.Leg1Miles) + `
Leg 2:      ` + formatMiles(stmt.Leg2Miles) + `

BILLING
-------------------------------------
Rate Source: ` + stmt.RateSourceName + ` (` + string(stmt.RateSourceKind) + `)
Charge:      $` + formatAmount(stmt.ContractorCharge) + pinned(stmt.ChargePinned) + `

DRIVER PAYOUT
-------------------------------------
Driver:      ` + stmt.DriverName + `
Gross:       $` + formatAmount(stmt.GrossPayout) + `
Rental:     -$` + formatAmount(stmt.RentalFee) + `
Insurance:  -$` + formatAmount(stmt.InsuranceFee) + `
Percent:    -$` + formatAmount(stmt.PercentFee) + `
Net:         $` + formatAmount(stmt.NetPayout) + pinned(stmt.PayoutPinned) + `

-------------------------------------
MARGIN:      $` + formatAmount(stmt.Margin) + `
=====================================
`
}

func formatAmount(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func formatMiles(f float64) string {
	return fmt.Sprintf("%.1f mi", f)
}
