package domain

import "time"

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusPending    TripStatus = "pending"
	TripStatusScheduled  TripStatus = "scheduled"
	TripStatusAssigned   TripStatus = "assigned"
	TripStatusArrived    TripStatus = "arrived"
	TripStatusOnWay      TripStatus = "on-way"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
	TripStatusNoShow     TripStatus = "no-show"
)

// IsTerminal reports whether the status is one of the terminal states.
// Terminal trips can only leave their state through an explicit reinstate.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled || s == TripStatusNoShow
}

// IsActive reports whether the status is a valid reinstate target.
func (s TripStatus) IsActive() bool {
	switch s {
	case TripStatusPending, TripStatusScheduled, TripStatusAssigned,
		TripStatusArrived, TripStatusOnWay, TripStatusInProgress:
		return true
	}
	return false
}

// Valid reports whether the status belongs to the fixed enumeration.
func (s TripStatus) Valid() bool {
	return s.IsActive() || s.IsTerminal()
}

// TripType classifies the billing origin of a trip.
type TripType string

const (
	TripTypeClinic  TripType = "clinic"
	TripTypePrivate TripType = "private"
)

// JourneyType classifies the shape of a trip.
type JourneyType string

const (
	JourneyOneWay    JourneyType = "one-way"
	JourneyRoundtrip JourneyType = "roundtrip"
	JourneyMultiStop JourneyType = "multi-stop"
	JourneyRecurring JourneyType = "recurring"
)

// ServiceLevel is the class of transport accommodation required.
type ServiceLevel string

const (
	ServiceAmbulatory ServiceLevel = "ambulatory"
	ServiceWheelchair ServiceLevel = "wheelchair"
	ServiceStretcher  ServiceLevel = "stretcher"
	ServiceBariatric  ServiceLevel = "bariatric"
)

// Stop is one segment of a multi-stop trip. Stop 1 is the trip's own
// pickup/dropoff pair; additional stops follow in order.
type Stop struct {
	StopNumber     int       `json:"stop_number"`
	PickupAddress  string    `json:"pickup_address"`
	DropoffAddress string    `json:"dropoff_address"`
	ScheduledTime  time.Time `json:"scheduled_time"`
}

// Charge is a money amount that is either computed by the pricing engine or
// pinned by a dispatcher override. Once pinned, Recompute never changes it;
// only an explicit Pin or a fresh ComputedCharge does.
type Charge struct {
	amount float64
	pinned bool
}

// ComputedCharge returns an unpinned charge.
func ComputedCharge(amount float64) Charge {
	return Charge{amount: amount}
}

// PinnedCharge returns a charge locked against recomputation.
func PinnedCharge(amount float64) Charge {
	return Charge{amount: amount, pinned: true}
}

// Amount returns the current value.
func (c Charge) Amount() float64 { return c.amount }

// Pinned reports whether the charge is locked against recomputation.
func (c Charge) Pinned() bool { return c.pinned }

// Recompute replaces the amount unless the charge is pinned.
func (c Charge) Recompute(amount float64) Charge {
	if c.pinned {
		return c
	}
	return Charge{amount: amount}
}

// Pin locks the charge at the given amount.
func (c Charge) Pin(amount float64) Charge {
	return Charge{amount: amount, pinned: true}
}

// Trip represents a single transport order in the system.
type Trip struct {
	ID         string
	TripNumber string // "A"/"B" suffix for roundtrip legs, "-R{n}" for recurring instances.

	TripType     TripType
	JourneyType  JourneyType
	ServiceLevel ServiceLevel
	Status       TripStatus

	ScheduledTime     time.Time
	AppointmentTime   time.Time // Zero when no appointment constraint.
	ActualPickupTime  time.Time
	ActualDropoffTime time.Time
	WillCall          bool

	PickupLocation  string
	DropoffLocation string
	Distance        float64 // Miles.
	Leg1Miles       float64 // Roundtrip outbound leg.
	Leg2Miles       float64 // Roundtrip return leg.
	Stops           []Stop

	CustomerName  string
	FirstName     string
	LastName      string
	CustomerPhone string
	CustomerEmail string
	PatientID     string // Weak reference; empty = walk-in.
	DriverID      string // Weak reference; empty = unassigned.
	ClinicID      string
	ContractorID  string

	Fare         Charge // Billed to contractor/clinic.
	DriverPayout Charge

	Notes              string
	Classification     string
	CancellationReason string
	CancelledAt        time.Time
	CreatedBy          string
	DispatcherName     string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsWillCallPlaceholder reports whether the trip's scheduled time is still
// the midnight sentinel of an unresolved will-call leg.
func (t *Trip) IsWillCallPlaceholder() bool {
	return t.WillCall && t.ScheduledTime.Equal(WillCallSentinel(t.ScheduledTime))
}

// WillCallSentinel returns the indeterminate-pickup placeholder for a
// will-call leg: midnight of the given date.
func WillCallSentinel(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}
