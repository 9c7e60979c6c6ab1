package service

import (
	"context"
	"errors"
	"math"

	"nemt/internal/domain"
	"nemt/internal/repository"
)

// ContractorCharge computes the amount billed to the trip's rate source.
// Pure: given the same trip and source it always returns the same value.
//
// Status-aware: cancelled trips bill the source's cancellation rate and
// no-shows its no-show rate; money is never zeroed at transition time, the
// lookup here resolves it lazily. With no rate source the charge is 0.
func ContractorCharge(trip *domain.Trip, source *domain.RateSource) float64 {
	if source == nil {
		return 0
	}

	switch trip.Status {
	case domain.TripStatusCancelled:
		return source.CancellationRate
	case domain.TripStatusNoShow:
		return source.NoShowRate
	}

	return source.ServiceRate(trip.ServiceLevel)
}

// DriverPayout computes the driver's pay for a trip.
//
// A pinned payout is returned unchanged regardless of any other input. With
// no driver assigned, or for cancelled/no-show trips, the payout is 0. The
// trip distance is rounded to the nearest mile and matched against the
// driver's tier bands for the trip's service level; mileage beyond the
// matched band's upper bound pays the additional-mile rate per extra mile.
// Deductions apply in order (rental, insurance, percentage) and the result
// is clamped at 0 and rounded to cents.
func DriverPayout(trip *domain.Trip, driver *domain.Driver) float64 {
	if trip.DriverPayout.Pinned() {
		return trip.DriverPayout.Amount()
	}

	if driver == nil || trip.DriverID == "" {
		return 0
	}

	if trip.Status == domain.TripStatusCancelled || trip.Status == domain.TripStatusNoShow {
		return 0
	}

	table, ok := driver.Rates.TableFor(trip.ServiceLevel)
	if !ok || len(table.Tiers) == 0 {
		return 0
	}

	miles := math.Round(trip.Distance)

	// Overflow mileage falls into the last (highest) band.
	tier := table.Tiers[len(table.Tiers)-1]
	for _, t := range table.Tiers {
		if t.Contains(miles) {
			tier = t
			break
		}
	}

	payout := tier.Rate
	if miles > tier.ToMiles {
		payout += (miles - tier.ToMiles) * table.AdditionalMileRate
	}

	d := driver.Rates.Deductions
	payout -= d.RentalFee
	payout -= d.InsuranceFee
	if d.FeePercent > 0 {
		payout -= payout * d.FeePercent / 100
	}

	if payout < 0 {
		payout = 0
	}

	return roundCents(payout)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// PricingService resolves rate sources and drivers for trips and applies the
// pure pricing computations, respecting pinned overrides.
type PricingService struct {
	rateSourceRepo repository.RateSourceRepository
	driverRepo     repository.DriverRepository
}

// NewPricingService creates a new PricingService.
func NewPricingService(
	rateSourceRepo repository.RateSourceRepository,
	driverRepo repository.DriverRepository,
) *PricingService {
	return &PricingService{
		rateSourceRepo: rateSourceRepo,
		driverRepo:     driverRepo,
	}
}

// ResolveRateSource finds the trip's billing counterparty: contractor first,
// clinic as fallback. Returns nil when the trip has neither.
func (s *PricingService) ResolveRateSource(ctx context.Context, trip *domain.Trip) (*domain.RateSource, error) {
	for _, id := range []string{trip.ContractorID, trip.ClinicID} {
		if id == "" {
			continue
		}
		source, err := s.rateSourceRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		return source, nil
	}
	return nil, nil
}

// Reprice recomputes the trip's fare and driver payout in place. Pinned
// values survive untouched; a repository failure leaves the previous values
// in place and is returned to the caller.
func (s *PricingService) Reprice(ctx context.Context, trip *domain.Trip) error {
	if !trip.Fare.Pinned() {
		source, err := s.ResolveRateSource(ctx, trip)
		if err != nil {
			return err
		}
		trip.Fare = trip.Fare.Recompute(ContractorCharge(trip, source))
	}

	if !trip.DriverPayout.Pinned() {
		var driver *domain.Driver
		if trip.DriverID != "" {
			var err error
			driver, err = s.driverRepo.GetByID(ctx, trip.DriverID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}
		trip.DriverPayout = trip.DriverPayout.Recompute(DriverPayout(trip, driver))
	}

	return nil
}
