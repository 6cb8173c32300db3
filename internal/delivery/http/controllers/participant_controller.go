package controllers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	h "felicityevents/internal/delivery/http/helpers"
	"felicityevents/internal/delivery/http/middleware"
	"felicityevents/internal/domain"
)

// ParticipantController serves the participant-facing surface: browsing
// published events, registering, payment proofs, and the viewer's own
// registrations.
type ParticipantController struct {
	Logger        *slog.Logger
	Browse        domain.BrowseService
	Registrations domain.RegistrationService
	Payments      domain.PaymentService
}

func NewParticipantController(
	logger *slog.Logger,
	browse domain.BrowseService,
	registrations domain.RegistrationService,
	payments domain.PaymentService,
) *ParticipantController {
	return &ParticipantController{
		Logger:        logger,
		Browse:        browse,
		Registrations: registrations,
		Payments:      payments,
	}
}

func viewerID(r *http.Request) string {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		return claims.SubjectID
	}
	return ""
}

func parseEventFilter(r *http.Request) domain.EventFilter {
	q := r.URL.Query()
	filter := domain.EventFilter{
		Search:      strings.TrimSpace(q.Get("search")),
		EventType:   domain.EventType(q.Get("eventType")),
		Eligibility: domain.Eligibility(q.Get("eligibility")),
		SortBy:      q.Get("sortBy"),
	}
	if s := q.Get("startAfter"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			filter.StartAfter = &t
		}
	}
	if s := q.Get("startBefore"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			filter.StartBefore = &t
		}
	}
	if s := q.Get("organizer"); s != "" {
		filter.OrganizerIDs = strings.Split(s, ",")
	}
	if s := q.Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			filter.Limit = v
		}
	}
	return filter
}

// ListEvents godoc
// @Summary Browse published events
// @Description Lists published events with optional filters. Authenticated viewers get eligibility and registration status decorations.
// @Tags events
// @Produce json
// @Param search query string false "Substring match on name and description"
// @Param eventType query string false "normal or merchandise"
// @Param eligibility query string false "all, iiit-only, or non-iiit-only"
// @Param organizer query string false "Comma-separated organizer IDs"
// @Param sortBy query string false "eventStartDate (default) or registrationDeadline"
// @Success 200 {object} helpers.APIResponse "data is an array of event listings"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *ParticipantController) ListEvents(w http.ResponseWriter, r *http.Request) {
	listings, err := c.Browse.Browse(r.Context(), viewerID(r), parseEventFilter(r))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if listings == nil {
		listings = []*domain.EventListing{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, listings)
}

// TrendingEvents godoc
// @Summary List trending events
// @Description Returns the most viewed published events over the last 24 hours.
// @Tags events
// @Produce json
// @Success 200 {object} helpers.APIResponse "data is an array of event listings"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/trending [get]
func (c *ParticipantController) TrendingEvents(w http.ResponseWriter, r *http.Request) {
	listings, err := c.Browse.Trending(r.Context(), viewerID(r))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if listings == nil {
		listings = []*domain.EventListing{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, listings)
}

// GetEvent godoc
// @Summary Get event details
// @Description Returns full details of a published event, including the viewer's own registration when authenticated. Records a page view.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the event details"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *ParticipantController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing eventID")
		return
	}
	details, err := c.Browse.Details(r.Context(), viewerID(r), eventID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, details)
}

// EventCalendar godoc
// @Summary Download an event as an iCalendar file
// @Tags events
// @Produce text/calendar
// @Param eventID path string true "Event ID"
// @Success 200 {string} string "iCalendar document"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (event has no schedule)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/calendar.ics [get]
func (c *ParticipantController) EventCalendar(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing eventID")
		return
	}
	filename, ics, err := c.Browse.CalendarICS(r.Context(), eventID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics))
}

// EventCalendarLinks godoc
// @Summary Get add-to-calendar links for an event
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains Google and Outlook URLs"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/calendar-links [get]
func (c *ParticipantController) EventCalendarLinks(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing eventID")
		return
	}
	links, err := c.Browse.CalendarLinks(r.Context(), eventID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, links)
}

// RegisterRequest is the request body for POST /events/{eventID}/registrations
type RegisterRequest struct {
	FormResponses map[string]any `json:"formResponses"`
	VariantID     string         `json:"variantId"`
	Quantity      int            `json:"quantity"`
}

// Validate implements helpers.Validator.
func (r RegisterRequest) Validate() []string {
	if r.Quantity < 0 {
		return []string{"quantity cannot be negative"}
	}
	return nil
}

// Register godoc
// @Summary Register for an event
// @Description Registers the authenticated participant. Normal events confirm immediately; paid merchandise orders stay pending until payment approval.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body controllers.RegisterRequest true "Form responses or merchandise selection"
// @Success 201 {object} helpers.APIResponse "data contains the registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (closed, ineligible, invalid form)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (duplicate, full, out of stock)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registrations [post]
func (c *ParticipantController) Register(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req RegisterRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}

	reg, err := c.Registrations.Register(r.Context(), claims.SubjectID, eventID, domain.RegistrationIntent{
		FormResponses: req.FormResponses,
		VariantID:     req.VariantID,
		Quantity:      req.Quantity,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, reg)
}

// MyRegistrations godoc
// @Summary List the viewer's registrations
// @Description Returns the authenticated participant's registrations bucketed into upcoming, completed, and cancelled.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by registration status"
// @Param eventType query string false "Filter by event type"
// @Success 200 {object} helpers.APIResponse "data contains the bucketed registrations"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations [get]
func (c *ParticipantController) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	q := r.URL.Query()
	regs, err := c.Registrations.ListMine(r.Context(), claims.SubjectID,
		domain.RegistrationStatus(q.Get("status")), domain.EventType(q.Get("eventType")))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, regs)
}

// CancelRequest is the request body for POST /registrations/{registrationID}/cancel
type CancelRequest struct {
	Reason string `json:"reason"`
}

// CancelRegistration godoc
// @Summary Cancel a registration
// @Description Cancels the viewer's own registration. Confirmed merchandise orders restore their reserved stock.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Param body body controllers.CancelRequest false "Optional reason"
// @Success 200 {object} helpers.APIResponse "data is null"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not the owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not cancellable)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/cancel [post]
func (c *ParticipantController) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	if registrationID == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing registrationID")
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req CancelRequest
	if r.Body != nil && r.ContentLength > 0 {
		if !h.DecodeAndValidate(w, r, &req) {
			return
		}
	}

	if err := c.Registrations.Cancel(r.Context(), claims.SubjectID, registrationID, strings.TrimSpace(req.Reason)); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, nil)
}

// PaymentProofRequest is the request body for POST /registrations/{registrationID}/payment-proof
type PaymentProofRequest struct {
	ImageURL string `json:"imageUrl"`
	Note     string `json:"note"`
}

// Validate implements helpers.Validator.
func (p PaymentProofRequest) Validate() []string {
	if strings.TrimSpace(p.ImageURL) == "" {
		return []string{"imageUrl is required"}
	}
	return nil
}

// UploadPaymentProof godoc
// @Summary Upload payment proof for a pending order
// @Description Attaches a payment proof image to the viewer's pending merchandise order and queues it for organizer review. Re-uploading after a rejection restarts the review.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Param body body controllers.PaymentProofRequest true "Proof image URL and optional note"
// @Success 200 {object} helpers.APIResponse "data contains the updated registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not the owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (payment already approved)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/payment-proof [post]
func (c *ParticipantController) UploadPaymentProof(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	if registrationID == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing registrationID")
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req PaymentProofRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}

	reg, err := c.Payments.UploadProof(r.Context(), claims.SubjectID, registrationID,
		strings.TrimSpace(req.ImageURL), strings.TrimSpace(req.Note))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, reg)
}
