package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nemt/internal/service"
)

// ComplianceHandler handles HTTP requests for document compliance.
type ComplianceHandler struct {
	complianceService *service.ComplianceService
}

// NewComplianceHandler creates a new ComplianceHandler.
func NewComplianceHandler(complianceService *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{complianceService: complianceService}
}

// DocumentReportInfo is one classified document in a response.
type DocumentReportInfo struct {
	Kind            string `json:"kind"`
	Status          string `json:"status"`
	Severity        string `json:"severity"`
	DaysUntilExpiry *int   `json:"days_until_expiry,omitempty"`
}

// DriverComplianceResponse is the compliance report for one driver.
type DriverComplianceResponse struct {
	DriverID        string               `json:"driver_id"`
	DriverName      string               `json:"driver_name"`
	Documents       []DocumentReportInfo `json:"documents"`
	HasExpiredDocs  bool                 `json:"has_expired_docs"`
	HasExpiringSoon bool                 `json:"has_expiring_soon"`
}

func toComplianceResponse(c *service.DriverCompliance) DriverComplianceResponse {
	resp := DriverComplianceResponse{
		DriverID:        c.DriverID,
		DriverName:      c.DriverName,
		HasExpiredDocs:  c.HasExpiredDocs,
		HasExpiringSoon: c.HasExpiringSoon,
	}
	for _, report := range c.Documents {
		info := DocumentReportInfo{
			Kind:     string(report.Kind),
			Status:   string(report.Status),
			Severity: string(report.Severity),
		}
		if report.HasDate {
			days := report.DaysUntilExpiry
			info.DaysUntilExpiry = &days
		}
		resp.Documents = append(resp.Documents, info)
	}
	return resp
}

// Driver handles GET /v1/compliance/drivers/:id
func (h *ComplianceHandler) Driver(c *gin.Context) {
	compliance, err := h.complianceService.EvaluateDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toComplianceResponse(compliance))
}

// FleetResponse is the fleet-wide compliance dashboard payload.
type FleetResponse struct {
	Drivers []DriverComplianceResponse `json:"drivers"`
	Summary struct {
		Drivers      int `json:"drivers"`
		Valid        int `json:"valid"`
		ExpiringSoon int `json:"expiring_soon"`
		Expired      int `json:"expired"`
		NotSet       int `json:"not_set"`
	} `json:"summary"`
}

// Fleet handles GET /v1/compliance/fleet
func (h *ComplianceHandler) Fleet(c *gin.Context) {
	all, summary, err := h.complianceService.EvaluateFleet(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	var resp FleetResponse
	for _, compliance := range all {
		resp.Drivers = append(resp.Drivers, toComplianceResponse(compliance))
	}
	resp.Summary.Drivers = summary.Drivers
	resp.Summary.Valid = summary.Valid
	resp.Summary.ExpiringSoon = summary.ExpiringSoon
	resp.Summary.Expired = summary.Expired
	resp.Summary.NotSet = summary.NotSet

	respondJSON(c, http.StatusOK, resp)
}
