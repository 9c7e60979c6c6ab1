package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DriverStatus represents the current status of a driver.
type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "available"
	DriverStatusOnTrip    DriverStatus = "on_trip"
	DriverStatusOffline   DriverStatus = "offline"
	DriverStatusOffDuty   DriverStatus = "off_duty"
)

// VehicleType is the kind of vehicle a driver operates.
type VehicleType string

const (
	VehicleSedan     VehicleType = "sedan"
	VehicleVan       VehicleType = "van"
	VehicleMinivan   VehicleType = "minivan"
	VehicleStretcher VehicleType = "stretcher_van"
)

// IsVan reports whether the vehicle can carry a wheelchair. The scorer treats
// any van-class vehicle as wheelchair capable.
func (v VehicleType) IsVan() bool {
	return v == VehicleVan || v == VehicleMinivan || v == VehicleStretcher
}

// Driver represents a driver in the fleet.
type Driver struct {
	ID            string
	Name          string
	Phone         string
	Email         string
	LicenseNumber string
	Status        DriverStatus
	IsActive      bool // Soft-delete / suspension flag.
	Rating        float64
	TotalTrips    int // All-time completed trips.
	VehicleType   VehicleType
	Rates         DriverRates
	Documents     []DriverDocument
	CreatedAt     time.Time
}

// RateTier is a mileage band with a flat rate. A trip whose rounded mileage
// falls inside [FromMiles, ToMiles] pays Rate.
type RateTier struct {
	FromMiles float64
	ToMiles   float64
	Rate      float64
}

// Contains reports whether the band covers the given rounded mileage.
func (t RateTier) Contains(miles float64) bool {
	return miles >= t.FromMiles && miles <= t.ToMiles
}

// RateTable is a driver's payout schedule for one service level: ordered
// mileage bands plus a per-mile rate for distance beyond the last band.
type RateTable struct {
	Tiers              []RateTier
	AdditionalMileRate float64
}

// Deductions are applied to a driver payout in order: flat rental fee, flat
// insurance fee, then a percentage of the remaining payout.
type Deductions struct {
	RentalFee    float64
	InsuranceFee float64
	FeePercent   float64 // 0..100
}

// DriverRates holds a driver's payout tables keyed by service level.
type DriverRates struct {
	Tables     map[ServiceLevel]RateTable
	Deductions Deductions
}

// TableFor returns the rate table for a service level, if one is configured.
func (r DriverRates) TableFor(level ServiceLevel) (RateTable, bool) {
	t, ok := r.Tables[level]
	return t, ok
}

// ParseRateTable decodes the compact wire encoding of a rate table: a JSON
// array of [from, to, rate] triples with a trailing scalar additional-mile
// rate, e.g. [[0,10,50],[11,20,80],5]. The mixed shape is interpreted once
// here; pricing never re-reads the raw form.
func ParseRateTable(raw []byte) (RateTable, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return RateTable{}, fmt.Errorf("rate table: %w", err)
	}

	var table RateTable
	for i, elem := range elems {
		var tier [3]float64
		if err := json.Unmarshal(elem, &tier); err == nil {
			table.Tiers = append(table.Tiers, RateTier{
				FromMiles: tier[0],
				ToMiles:   tier[1],
				Rate:      tier[2],
			})
			continue
		}

		var scalar float64
		if err := json.Unmarshal(elem, &scalar); err != nil {
			return RateTable{}, fmt.Errorf("rate table element %d: neither tier nor scalar", i)
		}
		table.AdditionalMileRate = scalar
	}

	return table, nil
}
