package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	h "felicityevents/internal/delivery/http/helpers"
	"felicityevents/internal/delivery/http/middleware"
	"felicityevents/internal/domain"
)

// OrganizerController serves the organizer console: event lifecycle,
// payment review, and door check-in. Admin tokens pass the same routes
// with ownership checks relaxed by the services.
type OrganizerController struct {
	Logger   *slog.Logger
	Events   domain.EventService
	Payments domain.PaymentService
	CheckIn  domain.CheckInService
}

func NewOrganizerController(
	logger *slog.Logger,
	events domain.EventService,
	payments domain.PaymentService,
	checkIn domain.CheckInService,
) *OrganizerController {
	return &OrganizerController{
		Logger:   logger,
		Events:   events,
		Payments: payments,
		CheckIn:  checkIn,
	}
}

func actorFromClaims(claims *domain.TokenClaims) domain.ActorRef {
	kind := domain.ActorOrganizer
	if claims.Role == domain.RoleAdmin {
		kind = domain.ActorAdmin
	}
	return domain.ActorRef{Kind: kind, ID: claims.SubjectID}
}

// reviewerID returns the organizer ID for ownership checks, empty for
// admins whose access is not scoped to their own events.
func reviewerID(claims *domain.TokenClaims) string {
	if claims.Role == domain.RoleAdmin {
		return ""
	}
	return claims.SubjectID
}

// EventRequest is the request body for POST /organizer/events.
type EventRequest struct {
	Name                 string              `json:"name"`
	Description          string              `json:"description"`
	EventType            string              `json:"eventType"`
	Eligibility          string              `json:"eligibility"`
	RegistrationDeadline *time.Time          `json:"registrationDeadline"`
	EventStartDate       *time.Time          `json:"eventStartDate"`
	EventEndDate         *time.Time          `json:"eventEndDate"`
	RegistrationLimit    *int                `json:"registrationLimit"`
	RegistrationFee      decimal.Decimal     `json:"registrationFee"`
	Tags                 []string            `json:"tags"`
	CustomForm           []domain.FormField  `json:"customForm"`
	Merchandise          *domain.Merchandise `json:"merchandise"`
	Status               string              `json:"status"`
	Venue                string              `json:"venue"`
	ImageURL             string              `json:"imageUrl"`
	ExternalLinks        []string            `json:"externalLinks"`
}

// Validate implements helpers.Validator. Deep validation (schedule
// ordering, merchandise shape) belongs to the service; only the shape of
// the request is checked here.
func (e EventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, "name is required")
	}
	if e.RegistrationLimit != nil && *e.RegistrationLimit < 0 {
		errs = append(errs, "registrationLimit cannot be negative")
	}
	return errs
}

func (e EventRequest) toEvent() *domain.Event {
	return &domain.Event{
		Name:                 strings.TrimSpace(e.Name),
		Description:          e.Description,
		EventType:            domain.EventType(e.EventType),
		Eligibility:          domain.Eligibility(e.Eligibility),
		RegistrationDeadline: e.RegistrationDeadline,
		EventStartDate:       e.EventStartDate,
		EventEndDate:         e.EventEndDate,
		RegistrationLimit:    e.RegistrationLimit,
		RegistrationFee:      e.RegistrationFee,
		Tags:                 e.Tags,
		CustomForm:           e.CustomForm,
		Merchandise:          e.Merchandise,
		Status:               domain.EventStatus(e.Status),
		Venue:                strings.TrimSpace(e.Venue),
		ImageURL:             strings.TrimSpace(e.ImageURL),
		ExternalLinks:        e.ExternalLinks,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates an event owned by the authenticated organizer. Drafts may be incomplete; publishing requires a full schedule.
// @Tags organizer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.EventRequest true "Event"
// @Success 201 {object} helpers.APIResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /organizer/events [post]
func (c *OrganizerController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req EventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}

	event, err := c.Events.CreateEvent(r.Context(), claims.SubjectID, req.toEvent())
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GetEvent godoc
// @Summary Get one of the organizer's events
// @Tags organizer
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /organizer/events/{eventID} [get]
func (c *OrganizerController) GetEvent(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Events.GetEvent(r.Context(), reviewerID(claims), r.PathValue("eventID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListEvents godoc
// @Summary List the organizer's events
// @Tags organizer
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by lifecycle status"
// @Param eventType query string false "Filter by event type"
// @Success 200 {object} helpers.APIResponse "data is an array of events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /organizer/events [get]
func (c *OrganizerController) ListEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	q := r.URL.Query()
	events, err := c.Events.ListEvents(r.Context(), claims.SubjectID,
		domain.EventStatus(q.Get("status")), domain.EventType(q.Get("eventType")))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, events)
}

// EventUpdateRequest is the request body for PATCH /organizer/events/{eventID}.
// Absent fields are left unchanged; which fields may change depends on the
// event's lifecycle state.
type EventUpdateRequest struct {
	Name                 *string             `json:"name"`
	Description          *string             `json:"description"`
	Eligibility          *string             `json:"eligibility"`
	RegistrationDeadline *time.Time          `json:"registrationDeadline"`
	EventStartDate       *time.Time          `json:"eventStartDate"`
	EventEndDate         *time.Time          `json:"eventEndDate"`
	RegistrationLimit    *int                `json:"registrationLimit"`
	RegistrationFee      *decimal.Decimal    `json:"registrationFee"`
	Tags                 *[]string           `json:"tags"`
	CustomForm           *[]domain.FormField `json:"customForm"`
	Merchandise          *domain.Merchandise `json:"merchandise"`
	Status               *string             `json:"status"`
	Venue                *string             `json:"venue"`
	ImageURL             *string             `json:"imageUrl"`
	ExternalLinks        *[]string           `json:"externalLinks"`
}

func (e EventUpdateRequest) toUpdate() *domain.EventUpdate {
	update := &domain.EventUpdate{
		Name:                 e.Name,
		Description:          e.Description,
		RegistrationDeadline: e.RegistrationDeadline,
		EventStartDate:       e.EventStartDate,
		EventEndDate:         e.EventEndDate,
		RegistrationLimit:    e.RegistrationLimit,
		RegistrationFee:      e.RegistrationFee,
		Tags:                 e.Tags,
		CustomForm:           e.CustomForm,
		Merchandise:          e.Merchandise,
		Venue:                e.Venue,
		ImageURL:             e.ImageURL,
		ExternalLinks:        e.ExternalLinks,
	}
	if e.Eligibility != nil {
		eligibility := domain.Eligibility(*e.Eligibility)
		update.Eligibility = &eligibility
	}
	if e.Status != nil {
		status := domain.EventStatus(*e.Status)
		update.Status = &status
	}
	return update
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Applies a partial update. Published events freeze their identity fields; ongoing events additionally freeze schedule and capacity.
// @Tags organizer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body controllers.EventUpdateRequest true "Fields to change"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (locked or frozen field)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /organizer/events/{eventID} [patch]
func (c *OrganizerController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req EventUpdateRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}

	event, err := c.Events.UpdateEvent(r.Context(), claims.SubjectID, r.PathValue("eventID"), req.toUpdate())
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Deletes an event that has no active registrations.
// @Tags organizer
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data is null"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (active registrations)"
// @Router /organizer/events/{eventID} [delete]
func (c *OrganizerController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Events.DeleteEvent(r.Context(), claims.SubjectID, r.PathValue("eventID")); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, nil)
}

// ListRegistrations godoc
// @Summary List registrations for an event
// @Tags organizer
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param status query string false "Filter by registration status"
// @Success 200 {object} helpers.APIResponse "data is an array of registrations"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /organizer/events/{eventID}/registrations [get]
func (c *OrganizerController) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	regs, err := c.Events.ListRegistrations(r.Context(), reviewerID(claims), r.PathValue("eventID"),
		domain.RegistrationStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, regs)
}

// Dashboard godoc
// @Summary Organizer dashboard statistics
// @Tags organizer
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains event and registration counts"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /organizer/dashboard [get]
func (c *OrganizerController) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	stats, err := c.Events.Dashboard(r.Context(), claims.SubjectID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, stats)
}

// ListPendingPayments godoc
// @Summary List orders awaiting payment approval
// @Description Returns registrations with uploaded proofs awaiting review, oldest proof first.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data is an array of registrations"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /organizer/events/{eventID}/payments [get]
func (c *OrganizerController) ListPendingPayments(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	regs, err := c.Payments.ListPending(r.Context(), reviewerID(claims), r.PathValue("eventID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, regs)
}

// PaymentDecisionRequest is the request body for payment approve/reject.
type PaymentDecisionRequest struct {
	Comment string `json:"comment"`
}

// ApprovePayment godoc
// @Summary Approve a pending payment
// @Description Confirms the order, deducts stock, and issues the pickup QR code. Fails when the variant sold out meanwhile.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param registrationID path string true "Registration ID"
// @Param body body controllers.PaymentDecisionRequest false "Optional comment"
// @Success 200 {object} helpers.APIResponse "data contains the confirmed registration"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already decided or oversold)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /organizer/events/{eventID}/payments/{registrationID}/approve [post]
func (c *OrganizerController) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	c.decidePayment(w, r, c.Payments.Approve)
}

// RejectPayment godoc
// @Summary Reject a pending payment
// @Description Marks the proof as rejected. The participant may upload a corrected proof.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param registrationID path string true "Registration ID"
// @Param body body controllers.PaymentDecisionRequest false "Optional comment"
// @Success 200 {object} helpers.APIResponse "data contains the rejected registration"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already decided)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /organizer/events/{eventID}/payments/{registrationID}/reject [post]
func (c *OrganizerController) RejectPayment(w http.ResponseWriter, r *http.Request) {
	c.decidePayment(w, r, c.Payments.Reject)
}

type paymentDecision func(ctx context.Context, reviewer domain.ActorRef, eventID, registrationID, comment string) (*domain.Registration, error)

func (c *OrganizerController) decidePayment(w http.ResponseWriter, r *http.Request, decide paymentDecision) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req PaymentDecisionRequest
	if r.Body != nil && r.ContentLength > 0 {
		if !h.DecodeAndValidate(w, r, &req) {
			return
		}
	}

	reg, err := decide(r.Context(), actorFromClaims(claims),
		r.PathValue("eventID"), r.PathValue("registrationID"), strings.TrimSpace(req.Comment))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, reg)
}

// ScanRequest is the request body for POST /organizer/events/{eventID}/checkin/scan.
// Exactly one of qrData and ticketId should be set.
type ScanRequest struct {
	QRData   string `json:"qrData"`
	TicketID string `json:"ticketId"`
}

// Validate implements helpers.Validator.
func (s ScanRequest) Validate() []string {
	if strings.TrimSpace(s.QRData) == "" && strings.TrimSpace(s.TicketID) == "" {
		return []string{"qrData or ticketId is required"}
	}
	return nil
}

// ScanTicket godoc
// @Summary Check in a ticket by QR scan or manual ID
// @Description Marks the ticket attended. A repeated scan is not an error: the response flags it and carries the original check-in time.
// @Tags checkin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body controllers.ScanRequest true "QR payload or manual ticket ID"
// @Success 200 {object} helpers.APIResponse "data contains the check-in result"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (unreadable QR, wrong event)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (ticket not confirmed)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /organizer/events/{eventID}/checkin/scan [post]
func (c *OrganizerController) ScanTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req ScanRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := c.CheckIn.Scan(r.Context(), actorFromClaims(claims), r.PathValue("eventID"),
		req.QRData, req.TicketID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, result)
}

// MarkAttendance godoc
// @Summary Mark a registration attended by registration ID
// @Tags checkin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} helpers.APIResponse "data contains the attended registration"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not confirmed)"
// @Router /organizer/events/{eventID}/checkin/{registrationID} [post]
func (c *OrganizerController) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	reg, err := c.CheckIn.MarkAttendance(r.Context(), actorFromClaims(claims),
		r.PathValue("eventID"), r.PathValue("registrationID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, reg)
}

// AttendanceStats godoc
// @Summary Attendance statistics for an event
// @Tags checkin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains counts and attendance rate"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /organizer/events/{eventID}/checkin/stats [get]
func (c *OrganizerController) AttendanceStats(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	stats, err := c.CheckIn.Stats(r.Context(), reviewerID(claims), r.PathValue("eventID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, stats)
}
