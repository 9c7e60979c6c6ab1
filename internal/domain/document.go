package domain

import "time"

// DocumentKind is one of the fixed compliance document types tracked per
// driver.
type DocumentKind string

const (
	DocumentLicense      DocumentKind = "license"
	DocumentInsurance    DocumentKind = "insurance"
	DocumentRegistration DocumentKind = "registration"
	DocumentMedicalCert  DocumentKind = "medical_certification"
	DocumentBackground   DocumentKind = "background_check"
)

// DocumentKinds lists every tracked document type. The compliance monitor
// evaluates all of them for every driver, whether or not a date is on file.
var DocumentKinds = []DocumentKind{
	DocumentLicense,
	DocumentInsurance,
	DocumentRegistration,
	DocumentMedicalCert,
	DocumentBackground,
}

// Valid reports whether the kind belongs to the fixed enumeration.
func (k DocumentKind) Valid() bool {
	for _, known := range DocumentKinds {
		if k == known {
			return true
		}
	}
	return false
}

// DriverDocument is a stored expiry record for one document kind.
// ExpiryDate zero means the date was never set.
type DriverDocument struct {
	Kind       DocumentKind
	ExpiryDate time.Time
}

// DocumentStatus is the derived classification of a document.
type DocumentStatus string

const (
	DocStatusNotSet       DocumentStatus = "not_set"
	DocStatusExpired      DocumentStatus = "expired"
	DocStatusExpiringSoon DocumentStatus = "expiring_soon"
	DocStatusValid        DocumentStatus = "valid"
)

// Severity tags how urgently a document status needs attention.
type Severity string

const (
	SeverityNone    Severity = "none"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)
