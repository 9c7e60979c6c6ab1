package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nemt/internal/service"
)

// BillingHandler handles HTTP requests for billing statements.
type BillingHandler struct {
	billingService *service.BillingService
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// StatementResponse is the HTTP response for a billing statement.
type StatementResponse struct {
	TripID     string `json:"trip_id"`
	TripNumber string `json:"trip_number"`
	Status     string `json:"status"`

	RateSourceName string `json:"rate_source_name,omitempty"`
	RateSourceKind string `json:"rate_source_kind,omitempty"`

	ContractorCharge float64 `json:"contractor_charge"`
	ChargePinned     bool    `json:"charge_pinned"`

	DriverID     string  `json:"driver_id,omitempty"`
	DriverName   string  `json:"driver_name,omitempty"`
	GrossPayout  float64 `json:"gross_payout"`
	RentalFee    float64 `json:"rental_fee"`
	InsuranceFee float64 `json:"insurance_fee"`
	PercentFee   float64 `json:"percent_fee"`
	NetPayout    float64 `json:"net_payout"`
	PayoutPinned bool    `json:"payout_pinned"`

	Margin float64 `json:"margin"`

	Miles     float64 `json:"miles"`
	Leg1Miles float64 `json:"leg1_miles,omitempty"`
	Leg2Miles float64 `json:"leg2_miles,omitempty"`
}

// Statement handles GET /v1/billing/trips/:id
func (h *BillingHandler) Statement(c *gin.Context) {
	stmt, err := h.billingService.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, StatementResponse{
		TripID:           stmt.TripID,
		TripNumber:       stmt.TripNumber,
		Status:           string(stmt.Status),
		RateSourceName:   stmt.RateSourceName,
		RateSourceKind:   string(stmt.RateSourceKind),
		ContractorCharge: stmt.ContractorCharge,
		ChargePinned:     stmt.ChargePinned,
		DriverID:         stmt.DriverID,
		DriverName:       stmt.DriverName,
		GrossPayout:      stmt.GrossPayout,
		RentalFee:        stmt.RentalFee,
		InsuranceFee:     stmt.InsuranceFee,
		PercentFee:       stmt.PercentFee,
		NetPayout:        stmt.NetPayout,
		PayoutPinned:     stmt.PayoutPinned,
		Margin:           stmt.Margin,
		Miles:            stmt.Miles,
		Leg1Miles:        stmt.Leg1Miles,
		Leg2Miles:        stmt.Leg2Miles,
	})
}

// StatementText handles GET /v1/billing/trips/:id/text
func (h *BillingHandler) StatementText(c *gin.Context) {
	stmt, err := h.billingService.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, h.billingService.FormatStatement(stmt))
}
