package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nemt/internal/service"
)

// AssignmentHandler handles HTTP requests for auto-assignment.
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// SuggestionInfo is one successful match in a sweep response.
type SuggestionInfo struct {
	TripID     string   `json:"trip_id"`
	TripNumber string   `json:"trip_number"`
	DriverID   string   `json:"driver_id"`
	DriverName string   `json:"driver_name"`
	Score      int      `json:"score"`
	Reasons    []string `json:"reasons,omitempty"`
}

// SweepResponse is the HTTP response for an auto-assignment sweep.
type SweepResponse struct {
	Suggestions []SuggestionInfo  `json:"suggestions"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	Unmatched   []ItemOutcomeInfo `json:"unmatched,omitempty"`
}

// Run handles POST /v1/assignments/run
func (h *AssignmentHandler) Run(c *gin.Context) {
	result, err := h.assignmentService.Run(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := SweepResponse{
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Unmatched: toItemOutcomes(result.Unmatched),
	}
	for _, s := range result.Suggestions {
		resp.Suggestions = append(resp.Suggestions, SuggestionInfo{
			TripID:     s.TripID,
			TripNumber: s.TripNumber,
			DriverID:   s.DriverID,
			DriverName: s.DriverName,
			Score:      s.Score,
			Reasons:    s.Reasons,
		})
	}

	respondJSON(c, http.StatusOK, resp)
}

// ScoreInfo is one scored candidate in a preview response.
type ScoreInfo struct {
	DriverID   string   `json:"driver_id"`
	DriverName string   `json:"driver_name"`
	Score      int      `json:"score"`
	Reasons    []string `json:"reasons,omitempty"`
}

// Preview handles GET /v1/assignments/preview/:id
func (h *AssignmentHandler) Preview(c *gin.Context) {
	scores, err := h.assignmentService.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var resp []ScoreInfo
	for _, s := range scores {
		resp = append(resp, ScoreInfo{
			DriverID:   s.DriverID,
			DriverName: s.DriverName,
			Score:      s.Score,
			Reasons:    s.Reasons,
		})
	}
	c.JSON(http.StatusOK, gin.H{"candidates": resp})
}
