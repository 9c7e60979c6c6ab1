package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nemt/internal/repository"
	"nemt/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidPatientID),
		errors.Is(err, service.ErrMissingPickup),
		errors.Is(err, service.ErrMissingDropoff),
		errors.Is(err, service.ErrMissingScheduledTime),
		errors.Is(err, service.ErrInvalidServiceLevel),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidReinstateTarget),
		errors.Is(err, service.ErrMissingActualTimes),
		errors.Is(err, service.ErrDropoffBeforePickup),
		errors.Is(err, service.ErrMissingReason),
		errors.Is(err, service.ErrRecurringWindow):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrTripTerminal),
		errors.Is(err, service.ErrTripNotTerminal),
		errors.Is(err, service.ErrWillCallUnresolved),
		errors.Is(err, service.ErrNotRoundtrip),
		errors.Is(err, service.ErrAlreadyRoundtrip),
		errors.Is(err, service.ErrNotWillCall),
		errors.Is(err, service.ErrDriverInactive),
		errors.Is(err, repository.ErrDuplicateTripNumber):
		return http.StatusConflict

	// Service unavailable
	case errors.Is(err, service.ErrNoCandidates):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
