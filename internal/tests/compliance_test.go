package tests

import (
	"context"
	"testing"
	"time"

	"nemt/internal/domain"
	"nemt/internal/service"
)

// ──────────────────────────────────────────────
// 5. DOCUMENT COMPLIANCE MONITOR
// ──────────────────────────────────────────────

var complianceNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func licenseExpiring(days int) domain.DriverDocument {
	return domain.DriverDocument{
		Kind:       domain.DocumentLicense,
		ExpiryDate: complianceNow.AddDate(0, 0, days),
	}
}

func TestClassifyDocument_Thresholds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		doc          domain.DriverDocument
		wantStatus   domain.DocumentStatus
		wantSeverity domain.Severity
	}{
		{"no date on file", domain.DriverDocument{Kind: domain.DocumentLicense}, domain.DocStatusNotSet, domain.SeverityWarning},
		{"expired yesterday", licenseExpiring(-1), domain.DocStatusExpired, domain.SeverityDanger},
		{"inside urgent window", licenseExpiring(5), domain.DocStatusExpiringSoon, domain.SeverityDanger},
		{"urgent window boundary", licenseExpiring(7), domain.DocStatusExpiringSoon, domain.SeverityDanger},
		{"inside warning window", licenseExpiring(20), domain.DocStatusExpiringSoon, domain.SeverityWarning},
		{"warning window boundary", licenseExpiring(30), domain.DocStatusExpiringSoon, domain.SeverityWarning},
		{"comfortably valid", licenseExpiring(45), domain.DocStatusValid, domain.SeverityNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := service.ClassifyDocument(tc.doc, complianceNow)
			if report.Status != tc.wantStatus || report.Severity != tc.wantSeverity {
				t.Errorf("got %s/%s, want %s/%s", report.Status, report.Severity, tc.wantStatus, tc.wantSeverity)
			}
		})
	}
}

func TestClassifyDocument_CountsCalendarDays(t *testing.T) {
	t.Parallel()

	// Expiry at 00:01 tomorrow is one day out even at 23:59 tonight; the
	// clock time never shaves a day off.
	lateTonight := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	doc := domain.DriverDocument{
		Kind:       domain.DocumentInsurance,
		ExpiryDate: time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC),
	}

	report := service.ClassifyDocument(doc, lateTonight)
	if !report.HasDate || report.DaysUntilExpiry != 1 {
		t.Errorf("expected 1 day until expiry, got %+v", report)
	}
}

func TestEvaluateDriver_FillsEveryKind(t *testing.T) {
	t.Parallel()

	driverRepo := NewMockDriverRepository()
	driver := availableDriver("driver-1")
	driver.Documents = []domain.DriverDocument{
		{Kind: domain.DocumentLicense, ExpiryDate: time.Now().AddDate(1, 0, 0)},
		{Kind: domain.DocumentInsurance, ExpiryDate: time.Now().AddDate(0, 0, -3)},
	}
	driverRepo.AddDriver(driver)

	svc := service.NewComplianceService(driverRepo)
	compliance, err := svc.EvaluateDriver(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(compliance.Documents) != len(domain.DocumentKinds) {
		t.Fatalf("expected a report per tracked kind, got %d", len(compliance.Documents))
	}

	byKind := make(map[domain.DocumentKind]service.DocumentReport)
	for _, report := range compliance.Documents {
		byKind[report.Kind] = report
	}

	if byKind[domain.DocumentLicense].Status != domain.DocStatusValid {
		t.Errorf("license = %s, want valid", byKind[domain.DocumentLicense].Status)
	}
	if byKind[domain.DocumentInsurance].Status != domain.DocStatusExpired {
		t.Errorf("insurance = %s, want expired", byKind[domain.DocumentInsurance].Status)
	}
	if byKind[domain.DocumentBackground].Status != domain.DocStatusNotSet {
		t.Errorf("unrecorded kind = %s, want not_set", byKind[domain.DocumentBackground].Status)
	}
	if !compliance.HasExpiredDocs {
		t.Error("HasExpiredDocs should be set")
	}
	if compliance.HasExpiringSoon {
		t.Error("HasExpiringSoon should not be set")
	}
}

func TestEvaluateDriver_RequiresID(t *testing.T) {
	t.Parallel()

	svc := service.NewComplianceService(NewMockDriverRepository())
	if _, err := svc.EvaluateDriver(context.Background(), ""); err == nil {
		t.Error("expected an error for an empty driver ID")
	}
}

func TestEvaluateFleet_SkipsInactiveAndTallies(t *testing.T) {
	t.Parallel()

	driverRepo := NewMockDriverRepository()

	clean := availableDriver("driver-a")
	clean.Documents = fullDocumentSet(time.Now().AddDate(1, 0, 0))
	driverRepo.AddDriver(clean)

	lapsed := availableDriver("driver-b")
	lapsed.Documents = fullDocumentSet(time.Now().AddDate(0, 0, -10))
	driverRepo.AddDriver(lapsed)

	former := availableDriver("driver-c")
	former.IsActive = false
	driverRepo.AddDriver(former)

	svc := service.NewComplianceService(driverRepo)
	all, summary, err := svc.EvaluateFleet(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(all) != 2 || summary.Drivers != 2 {
		t.Fatalf("inactive drivers must be skipped, got %d reports", len(all))
	}
	if summary.Valid != len(domain.DocumentKinds) {
		t.Errorf("valid tally = %d, want %d", summary.Valid, len(domain.DocumentKinds))
	}
	if summary.Expired != len(domain.DocumentKinds) {
		t.Errorf("expired tally = %d, want %d", summary.Expired, len(domain.DocumentKinds))
	}
	if summary.NotSet != 0 || summary.ExpiringSoon != 0 {
		t.Errorf("unexpected tallies in %+v", summary)
	}
}

func fullDocumentSet(expiry time.Time) []domain.DriverDocument {
	docs := make([]domain.DriverDocument, 0, len(domain.DocumentKinds))
	for _, kind := range domain.DocumentKinds {
		docs = append(docs, domain.DriverDocument{Kind: kind, ExpiryDate: expiry})
	}
	return docs
}
