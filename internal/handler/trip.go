package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nemt/internal/domain"
	"nemt/internal/service"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// StopRequest is one extra stop in a multi-stop create request.
type StopRequest struct {
	PickupAddress  string    `json:"pickup_address"`
	DropoffAddress string    `json:"dropoff_address"`
	ScheduledTime  time.Time `json:"scheduled_time"`
}

// RecurringRequest is the expansion window for a recurring create request.
// Weekdays use time.Weekday numbering (0 = Sunday).
type RecurringRequest struct {
	Weekdays  []int     `json:"weekdays"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// CreateTripRequest is the HTTP request body for creating a trip.
type CreateTripRequest struct {
	TripNumber   string `json:"trip_number"`
	TripType     string `json:"trip_type"`
	JourneyType  string `json:"journey_type"`
	ServiceLevel string `json:"service_level"`

	ScheduledTime   time.Time `json:"scheduled_time"`
	AppointmentTime time.Time `json:"appointment_time"`
	WillCall        bool      `json:"will_call"`

	PickupLocation  string  `json:"pickup_location"`
	DropoffLocation string  `json:"dropoff_location"`
	Distance        float64 `json:"distance"`

	ReturnTime     time.Time `json:"return_time"`
	ReturnWillCall bool      `json:"return_will_call"`

	ExtraStops []StopRequest     `json:"extra_stops"`
	Recurring  *RecurringRequest `json:"recurring"`

	CustomerName   string `json:"customer_name"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	CustomerPhone  string `json:"customer_phone"`
	CustomerEmail  string `json:"customer_email"`
	PatientID      string `json:"patient_id"`
	ClinicID       string `json:"clinic_id"`
	ContractorID   string `json:"contractor_id"`
	Notes          string `json:"notes"`
	Classification string `json:"classification"`
	CreatedBy      string `json:"created_by"`
	DispatcherName string `json:"dispatcher_name"`
}

// StopInfo is one stop in a trip response.
type StopInfo struct {
	StopNumber     int    `json:"stop_number"`
	PickupAddress  string `json:"pickup_address"`
	DropoffAddress string `json:"dropoff_address"`
	ScheduledTime  string `json:"scheduled_time,omitempty"`
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	ID           string `json:"id"`
	TripNumber   string `json:"trip_number"`
	TripType     string `json:"trip_type"`
	JourneyType  string `json:"journey_type"`
	ServiceLevel string `json:"service_level"`
	Status       string `json:"status"`

	ScheduledTime     string `json:"scheduled_time,omitempty"`
	AppointmentTime   string `json:"appointment_time,omitempty"`
	ActualPickupTime  string `json:"actual_pickup_time,omitempty"`
	ActualDropoffTime string `json:"actual_dropoff_time,omitempty"`
	WillCall          bool   `json:"will_call"`

	PickupLocation  string     `json:"pickup_location"`
	DropoffLocation string     `json:"dropoff_location"`
	Distance        float64    `json:"distance"`
	Leg1Miles       float64    `json:"leg1_miles,omitempty"`
	Leg2Miles       float64    `json:"leg2_miles,omitempty"`
	Stops           []StopInfo `json:"stops,omitempty"`

	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	PatientID     string `json:"patient_id,omitempty"`
	DriverID      string `json:"driver_id,omitempty"`
	ClinicID      string `json:"clinic_id,omitempty"`
	ContractorID  string `json:"contractor_id,omitempty"`

	Fare               float64 `json:"fare"`
	FarePinned         bool    `json:"fare_pinned"`
	DriverPayout       float64 `json:"driver_payout"`
	DriverPayoutPinned bool    `json:"driver_payout_pinned"`

	Notes              string `json:"notes,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	CancelledAt        string `json:"cancelled_at,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
}

// ConflictInfo flags an overlapping scheduled pickup in a response.
type ConflictInfo struct {
	TripID        string `json:"trip_id"`
	TripNumber    string `json:"trip_number"`
	DriverID      string `json:"driver_id"`
	ScheduledTime string `json:"scheduled_time"`
}

// ItemOutcomeInfo is the per-item result of a bulk operation.
type ItemOutcomeInfo struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error,omitempty"`
}

// CreateTripResponse is the HTTP response for trip creation. Derived-trip
// journey types can return more than one trip and a split outcome.
type CreateTripResponse struct {
	Trips     []TripResponse    `json:"trips"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Failures  []ItemOutcomeInfo `json:"failures,omitempty"`
	Conflicts []ConflictInfo    `json:"conflicts,omitempty"`
}

func toTripResponse(trip *domain.Trip) TripResponse {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(timeLayout)
	}

	resp := TripResponse{
		ID:                 trip.ID,
		TripNumber:         trip.TripNumber,
		TripType:           string(trip.TripType),
		JourneyType:        string(trip.JourneyType),
		ServiceLevel:       string(trip.ServiceLevel),
		Status:             string(trip.Status),
		ScheduledTime:      formatTime(trip.ScheduledTime),
		AppointmentTime:    formatTime(trip.AppointmentTime),
		ActualPickupTime:   formatTime(trip.ActualPickupTime),
		ActualDropoffTime:  formatTime(trip.ActualDropoffTime),
		WillCall:           trip.WillCall,
		PickupLocation:     trip.PickupLocation,
		DropoffLocation:    trip.DropoffLocation,
		Distance:           trip.Distance,
		Leg1Miles:          trip.Leg1Miles,
		Leg2Miles:          trip.Leg2Miles,
		CustomerName:       trip.CustomerName,
		CustomerPhone:      trip.CustomerPhone,
		PatientID:          trip.PatientID,
		DriverID:           trip.DriverID,
		ClinicID:           trip.ClinicID,
		ContractorID:       trip.ContractorID,
		Fare:               trip.Fare.Amount(),
		FarePinned:         trip.Fare.Pinned(),
		DriverPayout:       trip.DriverPayout.Amount(),
		DriverPayoutPinned: trip.DriverPayout.Pinned(),
		Notes:              trip.Notes,
		CancellationReason: trip.CancellationReason,
		CancelledAt:        formatTime(trip.CancelledAt),
		CreatedAt:          formatTime(trip.CreatedAt),
	}

	for _, stop := range trip.Stops {
		resp.Stops = append(resp.Stops, StopInfo{
			StopNumber:     stop.StopNumber,
			PickupAddress:  stop.PickupAddress,
			DropoffAddress: stop.DropoffAddress,
			ScheduledTime:  formatTime(stop.ScheduledTime),
		})
	}

	return resp
}

func toConflictInfos(conflicts []service.Conflict) []ConflictInfo {
	var infos []ConflictInfo
	for _, conflict := range conflicts {
		infos = append(infos, ConflictInfo{
			TripID:        conflict.TripID,
			TripNumber:    conflict.TripNumber,
			DriverID:      conflict.DriverID,
			ScheduledTime: conflict.ScheduledTime.Format(timeLayout),
		})
	}
	return infos
}

func toItemOutcomes(outcomes []service.ItemOutcome) []ItemOutcomeInfo {
	var infos []ItemOutcomeInfo
	for _, outcome := range outcomes {
		info := ItemOutcomeInfo{ItemID: outcome.ItemID}
		if outcome.Err != nil {
			info.Error = outcome.Err.Error()
		}
		infos = append(infos, info)
	}
	return infos
}

// Create handles POST /v1/trips
func (h *TripHandler) Create(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	svcReq := service.CreateTripRequest{
		TripNumber:      req.TripNumber,
		TripType:        domain.TripType(req.TripType),
		JourneyType:     domain.JourneyType(req.JourneyType),
		ServiceLevel:    domain.ServiceLevel(req.ServiceLevel),
		ScheduledTime:   req.ScheduledTime,
		AppointmentTime: req.AppointmentTime,
		WillCall:        req.WillCall,
		PickupLocation:  req.PickupLocation,
		DropoffLocation: req.DropoffLocation,
		Distance:        req.Distance,
		ReturnTime:      req.ReturnTime,
		ReturnWillCall:  req.ReturnWillCall,
		CustomerName:    req.CustomerName,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		PatientID:       req.PatientID,
		ClinicID:        req.ClinicID,
		ContractorID:    req.ContractorID,
		Notes:           req.Notes,
		Classification:  req.Classification,
		CreatedBy:       req.CreatedBy,
		DispatcherName:  req.DispatcherName,
	}

	for _, stop := range req.ExtraStops {
		svcReq.ExtraStops = append(svcReq.ExtraStops, domain.Stop{
			PickupAddress:  stop.PickupAddress,
			DropoffAddress: stop.DropoffAddress,
			ScheduledTime:  stop.ScheduledTime,
		})
	}

	if req.Recurring != nil {
		schedule := &service.RecurringSchedule{
			StartDate: req.Recurring.StartDate,
			EndDate:   req.Recurring.EndDate,
		}
		for _, wd := range req.Recurring.Weekdays {
			schedule.Weekdays = append(schedule.Weekdays, time.Weekday(wd))
		}
		svcReq.Recurring = schedule
	}

	result, err := h.tripService.CreateTrip(c.Request.Context(), svcReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, h.toCreateResponse(result))
}

func (h *TripHandler) toCreateResponse(result *service.CreateTripResponse) CreateTripResponse {
	resp := CreateTripResponse{
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Failures:  toItemOutcomes(result.Failures),
		Conflicts: toConflictInfos(result.Conflicts),
	}
	for _, trip := range result.Trips {
		resp.Trips = append(resp.Trips, toTripResponse(trip))
	}
	return resp
}

// Get handles GET /v1/trips/:id
func (h *TripHandler) Get(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// GetAll handles GET /v1/trips
func (h *TripHandler) GetAll(c *gin.Context) {
	trips, err := h.tripService.GetAllTrips(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	var response []TripResponse
	for _, trip := range trips {
		response = append(response, toTripResponse(trip))
	}
	c.JSON(http.StatusOK, response)
}

// AssignRequest is the HTTP request body for assigning a driver.
type AssignRequest struct {
	DriverID string `json:"driver_id"`
}

// Assign handles POST /v1/trips/:id/assign
func (h *TripHandler) Assign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.AssignDriver(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// BulkAssignRequest is the HTTP request body for bulk assignment.
type BulkAssignRequest struct {
	TripIDs  []string `json:"trip_ids"`
	DriverID string   `json:"driver_id"`
}

// BulkResultResponse is the HTTP response for bulk operations.
type BulkResultResponse struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Outcomes  []ItemOutcomeInfo `json:"outcomes"`
}

// BulkAssign handles POST /v1/trips/bulk/assign
func (h *TripHandler) BulkAssign(c *gin.Context) {
	var req BulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.tripService.BulkAssign(c.Request.Context(), req.TripIDs, req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, BulkResultResponse{
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Outcomes:  toItemOutcomes(result.Outcomes),
	})
}

// UpdateStatusRequest is the HTTP request body for a status transition.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles POST /v1/trips/:id/status
func (h *TripHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.UpdateStatus(c.Request.Context(), c.Param("id"), domain.TripStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// BulkStatusRequest is the HTTP request body for a bulk status transition.
type BulkStatusRequest struct {
	TripIDs []string `json:"trip_ids"`
	Status  string   `json:"status"`
}

// BulkUpdateStatus handles POST /v1/trips/bulk/status
func (h *TripHandler) BulkUpdateStatus(c *gin.Context) {
	var req BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.tripService.BulkUpdateStatus(c.Request.Context(), req.TripIDs, domain.TripStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, BulkResultResponse{
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Outcomes:  toItemOutcomes(result.Outcomes),
	})
}

// CompleteRequest is the HTTP request body for completing a trip.
type CompleteRequest struct {
	ActualPickupTime  time.Time `json:"actual_pickup_time"`
	ActualDropoffTime time.Time `json:"actual_dropoff_time"`
}

// Complete handles POST /v1/trips/:id/complete
func (h *TripHandler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.CompleteTrip(c.Request.Context(), service.CompleteTripRequest{
		TripID:            c.Param("id"),
		ActualPickupTime:  req.ActualPickupTime,
		ActualDropoffTime: req.ActualDropoffTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// ReasonRequest is the HTTP request body for cancel and no-show.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /v1/trips/:id/cancel
func (h *TripHandler) Cancel(c *gin.Context) {
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.CancelTrip(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// NoShow handles POST /v1/trips/:id/no-show
func (h *TripHandler) NoShow(c *gin.Context) {
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.NoShowTrip(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// ReinstateRequest is the HTTP request body for reinstating a terminal trip.
type ReinstateRequest struct {
	Status string `json:"status"` // Optional; defaults to scheduled.
}

// Reinstate handles POST /v1/trips/:id/reinstate
func (h *TripHandler) Reinstate(c *gin.Context) {
	var req ReinstateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.ReinstateTrip(c.Request.Context(), c.Param("id"), domain.TripStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// WillCallRequest is the HTTP request body for resolving a will-call pickup.
type WillCallRequest struct {
	PickupTime time.Time `json:"pickup_time"`
}

// ResolveWillCall handles POST /v1/trips/:id/will-call
func (h *TripHandler) ResolveWillCall(c *gin.Context) {
	var req WillCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.ResolveWillCall(c.Request.Context(), c.Param("id"), req.PickupTime)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// ConvertRoundtripRequest is the HTTP request body for converting a one-way
// trip into a roundtrip.
type ConvertRoundtripRequest struct {
	ReturnTime     time.Time `json:"return_time"`
	ReturnWillCall bool      `json:"return_will_call"`
}

// ConvertToRoundtrip handles POST /v1/trips/:id/convert-roundtrip
func (h *TripHandler) ConvertToRoundtrip(c *gin.Context) {
	var req ConvertRoundtripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.tripService.ConvertToRoundtrip(c.Request.Context(), c.Param("id"), req.ReturnTime, req.ReturnWillCall)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, h.toCreateResponse(result))
}

// OverrideRequest is the HTTP request body for a manual money override.
type OverrideRequest struct {
	Amount float64 `json:"amount"`
}

// OverrideFare handles POST /v1/trips/:id/fare
func (h *TripHandler) OverrideFare(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.OverrideFare(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// OverridePayout handles POST /v1/trips/:id/payout
func (h *TripHandler) OverridePayout(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.OverrideDriverPayout(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// Conflicts handles GET /v1/trips/conflicts?driver_id=...&at=...
func (h *TripHandler) Conflicts(c *gin.Context) {
	driverID := c.Query("driver_id")
	at, err := time.Parse(time.RFC3339, c.Query("at"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid 'at' timestamp"})
		return
	}

	conflicts, err := h.tripService.DetectConflicts(c.Request.Context(), driverID, at, c.Query("exclude"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conflicts": toConflictInfos(conflicts)})
}
