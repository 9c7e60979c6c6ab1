package domain

import "time"

// Patient represents a rider profile referenced by trips via PatientID.
type Patient struct {
	ID        string
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Notes     string
	CreatedAt time.Time
}
