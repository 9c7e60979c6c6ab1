package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nemt/internal/domain"
	"nemt/internal/repository"
)

// PatientHandler handles HTTP requests for rider profiles.
type PatientHandler struct {
	patientRepo repository.PatientRepository
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(patientRepo repository.PatientRepository) *PatientHandler {
	return &PatientHandler{patientRepo: patientRepo}
}

// CreatePatientRequest is the HTTP request body for creating a patient.
type CreatePatientRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Notes     string `json:"notes"`
}

// PatientResponse is the HTTP response for patient data.
type PatientResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

func toPatientResponse(p *domain.Patient) PatientResponse {
	return PatientResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Email:     p.Email,
		Notes:     p.Notes,
	}
}

// Create handles POST /v1/patients
func (h *PatientHandler) Create(c *gin.Context) {
	var req CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.FirstName == "" || req.LastName == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "first and last name are required"})
		return
	}

	patient := &domain.Patient{
		ID:        uuid.New().String(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
		Notes:     req.Notes,
		CreatedAt: time.Now(),
	}

	if err := h.patientRepo.Create(c.Request.Context(), patient); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPatientResponse(patient))
}

// Get handles GET /v1/patients/:id
func (h *PatientHandler) Get(c *gin.Context) {
	patient, err := h.patientRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toPatientResponse(patient))
}

// GetAll handles GET /v1/patients
func (h *PatientHandler) GetAll(c *gin.Context) {
	patients, err := h.patientRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	var response []PatientResponse
	for _, p := range patients {
		response = append(response, toPatientResponse(p))
	}
	c.JSON(http.StatusOK, response)
}
