package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nemt/internal/domain"
	"nemt/internal/repository"
)

// RateSourceHandler handles HTTP requests for billing counterparties.
type RateSourceHandler struct {
	rateSourceRepo repository.RateSourceRepository
}

// NewRateSourceHandler creates a new RateSourceHandler.
func NewRateSourceHandler(rateSourceRepo repository.RateSourceRepository) *RateSourceHandler {
	return &RateSourceHandler{rateSourceRepo: rateSourceRepo}
}

// TierRequest is one mileage band in a rate source request.
type TierRequest struct {
	FromMiles float64 `json:"from_miles"`
	ToMiles   float64 `json:"to_miles"`
	Rate      float64 `json:"rate"`
}

// CreateRateSourceRequest is the HTTP request body for creating a contractor
// or clinic. FlatRates and Tiers are keyed by service level; a source uses
// tiers when any are present, flat rates otherwise.
type CreateRateSourceRequest struct {
	Kind             string                   `json:"kind"`
	Name             string                   `json:"name"`
	FlatRates        map[string]float64       `json:"flat_rates"`
	Tiers            map[string][]TierRequest `json:"tiers"`
	CancellationRate float64                  `json:"cancellation_rate"`
	NoShowRate       float64                  `json:"no_show_rate"`
}

// RateSourceResponse is the HTTP response for rate source data.
type RateSourceResponse struct {
	ID               string  `json:"id"`
	Kind             string  `json:"kind"`
	Name             string  `json:"name"`
	UsesTiers        bool    `json:"uses_tiers"`
	CancellationRate float64 `json:"cancellation_rate"`
	NoShowRate       float64 `json:"no_show_rate"`
}

func toRateSourceResponse(s *domain.RateSource) RateSourceResponse {
	return RateSourceResponse{
		ID:               s.ID,
		Kind:             string(s.Kind),
		Name:             s.Name,
		UsesTiers:        s.UsesTiers(),
		CancellationRate: s.CancellationRate,
		NoShowRate:       s.NoShowRate,
	}
}

// Create handles POST /v1/rate-sources
func (h *RateSourceHandler) Create(c *gin.Context) {
	var req CreateRateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	kind := domain.RateSourceKind(req.Kind)
	if kind != domain.RateSourceContractor && kind != domain.RateSourceClinic {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "kind must be contractor or clinic"})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name is required"})
		return
	}

	source := &domain.RateSource{
		ID:               uuid.New().String(),
		Kind:             kind,
		Name:             req.Name,
		CancellationRate: req.CancellationRate,
		NoShowRate:       req.NoShowRate,
	}

	if len(req.FlatRates) > 0 {
		source.FlatRates = make(map[domain.ServiceLevel]float64, len(req.FlatRates))
		for level, rate := range req.FlatRates {
			source.FlatRates[domain.ServiceLevel(level)] = rate
		}
	}
	if len(req.Tiers) > 0 {
		source.Tiers = make(map[domain.ServiceLevel][]domain.RateTier, len(req.Tiers))
		for level, tiers := range req.Tiers {
			for _, tier := range tiers {
				source.Tiers[domain.ServiceLevel(level)] = append(source.Tiers[domain.ServiceLevel(level)], domain.RateTier{
					FromMiles: tier.FromMiles,
					ToMiles:   tier.ToMiles,
					Rate:      tier.Rate,
				})
			}
		}
	}

	if err := h.rateSourceRepo.Create(c.Request.Context(), source); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRateSourceResponse(source))
}

// Get handles GET /v1/rate-sources/:id
func (h *RateSourceHandler) Get(c *gin.Context) {
	source, err := h.rateSourceRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRateSourceResponse(source))
}

// GetAll handles GET /v1/rate-sources
func (h *RateSourceHandler) GetAll(c *gin.Context) {
	sources, err := h.rateSourceRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	var response []RateSourceResponse
	for _, source := range sources {
		response = append(response, toRateSourceResponse(source))
	}
	c.JSON(http.StatusOK, response)
}
