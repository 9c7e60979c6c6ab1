package service

import "errors"

var (
	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidPatientID is returned when patient ID is empty.
	ErrInvalidPatientID = errors.New("invalid patient id")

	// ErrMissingPickup is returned when a trip has no pickup address.
	ErrMissingPickup = errors.New("pickup location is required")

	// ErrMissingDropoff is returned when a trip has no dropoff address.
	ErrMissingDropoff = errors.New("dropoff location is required")

	// ErrMissingScheduledTime is returned when a non-will-call trip has no
	// scheduled time.
	ErrMissingScheduledTime = errors.New("scheduled time is required")

	// ErrInvalidServiceLevel is returned for an unknown service level.
	ErrInvalidServiceLevel = errors.New("invalid service level")

	// ErrInvalidStatus is returned for a status outside the enumeration.
	ErrInvalidStatus = errors.New("invalid trip status")

	// ErrInvalidTransition is returned when a status change violates the
	// lifecycle state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTripTerminal is returned when mutating a completed, cancelled, or
	// no-show trip without reinstating it first.
	ErrTripTerminal = errors.New("trip is in a terminal state")

	// ErrTripNotTerminal is returned when reinstating a trip that is not in
	// a terminal state.
	ErrTripNotTerminal = errors.New("trip is not in a terminal state")

	// ErrInvalidReinstateTarget is returned when the reinstate target is not
	// an active status.
	ErrInvalidReinstateTarget = errors.New("invalid reinstate target status")

	// ErrMissingActualTimes is returned when completing a trip without both
	// actual pickup and dropoff times.
	ErrMissingActualTimes = errors.New("actual pickup and dropoff times are required")

	// ErrWillCallUnresolved is returned when completing a will-call trip
	// whose pickup time has not been recorded yet.
	ErrWillCallUnresolved = errors.New("will-call pickup time not resolved")

	// ErrDropoffBeforePickup is returned when the actual dropoff precedes
	// the actual pickup.
	ErrDropoffBeforePickup = errors.New("dropoff time precedes pickup time")

	// ErrMissingReason is returned when cancelling or no-showing without a
	// reason.
	ErrMissingReason = errors.New("a reason is required")

	// ErrNotRoundtrip is returned when a roundtrip-only operation targets a
	// trip of another journey type.
	ErrNotRoundtrip = errors.New("trip is not a roundtrip leg")

	// ErrAlreadyRoundtrip is returned when converting a trip that already
	// has a sibling leg.
	ErrAlreadyRoundtrip = errors.New("trip is already a roundtrip")

	// ErrNotWillCall is returned when resolving a will-call pickup on a trip
	// that is not flagged will-call.
	ErrNotWillCall = errors.New("trip is not a will-call")

	// ErrRecurringWindow is returned when a recurring request has an end
	// date before its start date or no weekdays selected.
	ErrRecurringWindow = errors.New("invalid recurring window")

	// ErrNoCandidates is returned when an auto-assignment sweep finds no
	// available driver for a trip.
	ErrNoCandidates = errors.New("no available driver")

	// ErrDriverInactive is returned when assigning a suspended driver.
	ErrDriverInactive = errors.New("driver is inactive")
)
