package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nemt/internal/domain"
	"nemt/internal/repository"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverRepo repository.DriverRepository
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverRepo repository.DriverRepository) *DriverHandler {
	return &DriverHandler{driverRepo: driverRepo}
}

// RegisterDriverRequest is the HTTP request body for driver registration.
// Rate tables use the compact encoding: [[from, to, rate], ..., additional]
// keyed by service level.
type RegisterDriverRequest struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	LicenseNumber string `json:"license_number"`
	VehicleType   string `json:"vehicle_type"`

	Rates      map[string]json.RawMessage `json:"rates"`
	RentalFee  float64                    `json:"rental_fee"`
	Insurance  float64                    `json:"insurance_fee"`
	FeePercent float64                    `json:"fee_percent"`
}

// DriverResponse is the HTTP response for driver data.
type DriverResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	Email         string  `json:"email,omitempty"`
	LicenseNumber string  `json:"license_number,omitempty"`
	Status        string  `json:"status"`
	IsActive      bool    `json:"is_active"`
	Rating        float64 `json:"rating"`
	TotalTrips    int     `json:"total_trips"`
	VehicleType   string  `json:"vehicle_type"`
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:            d.ID,
		Name:          d.Name,
		Phone:         d.Phone,
		Email:         d.Email,
		LicenseNumber: d.LicenseNumber,
		Status:        string(d.Status),
		IsActive:      d.IsActive,
		Rating:        d.Rating,
		TotalTrips:    d.TotalTrips,
		VehicleType:   string(d.VehicleType),
	}
}

// Register handles POST /v1/drivers/register
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Name == "" || req.Phone == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and phone are required"})
		return
	}

	rates := domain.DriverRates{
		Tables: make(map[domain.ServiceLevel]domain.RateTable, len(req.Rates)),
		Deductions: domain.Deductions{
			RentalFee:    req.RentalFee,
			InsuranceFee: req.Insurance,
			FeePercent:   req.FeePercent,
		},
	}
	for level, raw := range req.Rates {
		table, err := domain.ParseRateTable(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		rates.Tables[domain.ServiceLevel(level)] = table
	}

	// Check if driver already exists
	existing, err := h.driverRepo.GetByPhone(c.Request.Context(), req.Phone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		respondError(c, err)
		return
	}

	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{
			"message": "Driver already registered",
			"driver":  toDriverResponse(existing),
		})
		return
	}

	driver := &domain.Driver{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		LicenseNumber: req.LicenseNumber,
		Status:        domain.DriverStatusOffline,
		IsActive:      true,
		VehicleType:   domain.VehicleType(req.VehicleType),
		Rates:         rates,
		CreatedAt:     time.Now(),
	}

	if err := h.driverRepo.Create(c.Request.Context(), driver); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toDriverResponse(driver))
}

// Get handles GET /v1/drivers/:id
func (h *DriverHandler) Get(c *gin.Context) {
	driver, err := h.driverRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// GetAll handles GET /v1/drivers
func (h *DriverHandler) GetAll(c *gin.Context) {
	drivers, err := h.driverRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	var response []DriverResponse
	for _, d := range drivers {
		response = append(response, toDriverResponse(d))
	}
	c.JSON(http.StatusOK, response)
}

// DriverStatusRequest is the HTTP request body for a driver status change.
type DriverStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles POST /v1/drivers/:id/status
func (h *DriverHandler) UpdateStatus(c *gin.Context) {
	var req DriverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	status := domain.DriverStatus(req.Status)
	switch status {
	case domain.DriverStatusAvailable, domain.DriverStatusOnTrip,
		domain.DriverStatusOffline, domain.DriverStatusOffDuty:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid driver status"})
		return
	}

	if err := h.driverRepo.UpdateStatus(c.Request.Context(), c.Param("id"), status); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DocumentRequest is one document record in an update.
type DocumentRequest struct {
	Kind       string    `json:"kind"`
	ExpiryDate time.Time `json:"expiry_date"`
}

// UpdateDocuments handles PUT /v1/drivers/:id/documents
// The submitted set replaces the driver's stored documents.
func (h *DriverHandler) UpdateDocuments(c *gin.Context) {
	var req []DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.driverRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var docs []domain.DriverDocument
	for _, doc := range req {
		kind := domain.DocumentKind(doc.Kind)
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown document kind: " + doc.Kind})
			return
		}
		docs = append(docs, domain.DriverDocument{Kind: kind, ExpiryDate: doc.ExpiryDate})
	}

	driver.Documents = docs
	if err := h.driverRepo.Update(c.Request.Context(), driver); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
