package service

import (
	"context"
	"time"

	"nemt/internal/domain"
	"nemt/internal/repository"
)

// Expiry thresholds in days. Within urgentWindow of expiry a document is
// urgent (danger); within warningWindow it is a warning; past warningWindow
// it is valid.
const (
	urgentWindowDays  = 7
	warningWindowDays = 30
)

// DocumentReport is the derived classification of one driver document.
type DocumentReport struct {
	Kind            domain.DocumentKind
	Status          domain.DocumentStatus
	Severity        domain.Severity
	DaysUntilExpiry int // Meaningless when the date is not set.
	HasDate         bool
}

// ClassifyDocument derives the compliance status of a single document from
// its expiry date. Pure; now is injected for testability. Never mutates the
// stored date.
func ClassifyDocument(doc domain.DriverDocument, now time.Time) DocumentReport {
	report := DocumentReport{Kind: doc.Kind}

	if doc.ExpiryDate.IsZero() {
		report.Status = domain.DocStatusNotSet
		report.Severity = domain.SeverityWarning
		return report
	}

	report.HasDate = true
	days := daysBetween(now, doc.ExpiryDate)
	report.DaysUntilExpiry = days

	switch {
	case days < 0:
		report.Status = domain.DocStatusExpired
		report.Severity = domain.SeverityDanger
	case days <= urgentWindowDays:
		report.Status = domain.DocStatusExpiringSoon
		report.Severity = domain.SeverityDanger
	case days <= warningWindowDays:
		report.Status = domain.DocStatusExpiringSoon
		report.Severity = domain.SeverityWarning
	default:
		report.Status = domain.DocStatusValid
		report.Severity = domain.SeverityNone
	}

	return report
}

// daysBetween counts whole calendar days from now to the expiry date,
// ignoring time of day. Negative when the date is in the past.
func daysBetween(now, expiry time.Time) int {
	return int(truncateToDay(expiry).Sub(truncateToDay(now)).Hours() / 24)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DriverCompliance aggregates one driver's document reports.
type DriverCompliance struct {
	DriverID        string
	DriverName      string
	Documents       []DocumentReport
	HasExpiredDocs  bool
	HasExpiringSoon bool
}

// FleetSummary tallies document statuses across the whole roster for the
// dashboard.
type FleetSummary struct {
	Drivers      int
	Valid        int
	ExpiringSoon int
	Expired      int
	NotSet       int
}

// ComplianceService classifies driver document expiry sets. Read-only: it
// derives statuses, it never writes.
type ComplianceService struct {
	driverRepo repository.DriverRepository
	now        func() time.Time
}

// NewComplianceService creates a new ComplianceService.
func NewComplianceService(driverRepo repository.DriverRepository) *ComplianceService {
	return &ComplianceService{
		driverRepo: driverRepo,
		now:        time.Now,
	}
}

// EvaluateDriver classifies every tracked document kind for one driver.
// Kinds with no stored record at all report as not_set.
func (s *ComplianceService) EvaluateDriver(ctx context.Context, driverID string) (*DriverCompliance, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	return s.evaluate(driver), nil
}

// EvaluateFleet classifies every driver and tallies the fleet-wide summary.
func (s *ComplianceService) EvaluateFleet(ctx context.Context) ([]*DriverCompliance, *FleetSummary, error) {
	drivers, err := s.driverRepo.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	summary := &FleetSummary{}
	var all []*DriverCompliance
	for _, driver := range drivers {
		if !driver.IsActive {
			continue
		}
		compliance := s.evaluate(driver)
		all = append(all, compliance)
		summary.Drivers++
		for _, report := range compliance.Documents {
			switch report.Status {
			case domain.DocStatusValid:
				summary.Valid++
			case domain.DocStatusExpiringSoon:
				summary.ExpiringSoon++
			case domain.DocStatusExpired:
				summary.Expired++
			case domain.DocStatusNotSet:
				summary.NotSet++
			}
		}
	}

	return all, summary, nil
}

func (s *ComplianceService) evaluate(driver *domain.Driver) *DriverCompliance {
	now := s.now()

	stored := make(map[domain.DocumentKind]domain.DriverDocument, len(driver.Documents))
	for _, doc := range driver.Documents {
		stored[doc.Kind] = doc
	}

	compliance := &DriverCompliance{
		DriverID:   driver.ID,
		DriverName: driver.Name,
	}

	for _, kind := range domain.DocumentKinds {
		doc, ok := stored[kind]
		if !ok {
			doc = domain.DriverDocument{Kind: kind}
		}
		report := ClassifyDocument(doc, now)
		compliance.Documents = append(compliance.Documents, report)

		if report.Status == domain.DocStatusExpired {
			compliance.HasExpiredDocs = true
		}
		if report.Status == domain.DocStatusExpiringSoon {
			compliance.HasExpiringSoon = true
		}
	}

	return compliance
}
