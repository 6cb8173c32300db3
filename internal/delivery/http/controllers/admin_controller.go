package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	h "felicityevents/internal/delivery/http/helpers"
	"felicityevents/internal/delivery/http/middleware"
	"felicityevents/internal/domain"
)

// AdminController provisions and manages organizer accounts.
type AdminController struct {
	Logger  *slog.Logger
	Service domain.AdminService
}

func NewAdminController(logger *slog.Logger, svc domain.AdminService) *AdminController {
	return &AdminController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateOrganizerRequest is the request body for POST /admin/organizers.
type CreateOrganizerRequest struct {
	LoginEmail    string `json:"loginEmail"`
	Password      string `json:"password"` // optional; generated when empty
	Name          string `json:"name"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	ContactEmail  string `json:"contactEmail"`
	ContactNumber string `json:"contactNumber"`
	WebhookURL    string `json:"webhookUrl"`
}

// Validate implements helpers.Validator.
func (c *CreateOrganizerRequest) Validate() []string {
	var errs []string
	email := strings.TrimSpace(strings.ToLower(c.LoginEmail))
	if email == "" {
		errs = append(errs, "loginEmail is required")
	} else if !emailRegexp.MatchString(email) {
		errs = append(errs, "invalid loginEmail format")
	}
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.Password != "" && len(c.Password) < 8 {
		errs = append(errs, "password must be at least 8 characters")
	}
	c.LoginEmail = email
	return errs
}

// CreateOrganizer godoc
// @Summary Provision an organizer account
// @Description Creates an organizer account. When no password is given one is generated; the temporary password appears only in this response and the welcome email.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.CreateOrganizerRequest true "Organizer details"
// @Success 201 {object} helpers.APIResponse "data contains the organizer and temporary password"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (email in use)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/organizers [post]
func (c *AdminController) CreateOrganizer(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req CreateOrganizerRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}

	provisioned, err := c.Service.CreateOrganizer(r.Context(), claims.SubjectID, &domain.OrganizerInput{
		LoginEmail:    req.LoginEmail,
		Password:      req.Password,
		Name:          strings.TrimSpace(req.Name),
		Category:      strings.TrimSpace(req.Category),
		Description:   req.Description,
		ContactEmail:  strings.TrimSpace(req.ContactEmail),
		ContactNumber: strings.TrimSpace(req.ContactNumber),
		WebhookURL:    strings.TrimSpace(req.WebhookURL),
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, provisioned)
}

// ListOrganizers godoc
// @Summary List organizer accounts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param active query bool false "Only active accounts"
// @Param category query string false "Filter by category"
// @Success 200 {object} helpers.APIResponse "data is an array of organizers"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /admin/organizers [get]
func (c *AdminController) ListOrganizers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	organizers, err := c.Service.ListOrganizers(r.Context(), q.Get("active") == "true", q.Get("category"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if organizers == nil {
		organizers = []*domain.Organizer{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, organizers)
}

// GetOrganizer godoc
// @Summary Get an organizer account
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param organizerID path string true "Organizer ID"
// @Success 200 {object} helpers.APIResponse "data contains the organizer"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/organizers/{organizerID} [get]
func (c *AdminController) GetOrganizer(w http.ResponseWriter, r *http.Request) {
	organizer, err := c.Service.GetOrganizer(r.Context(), r.PathValue("organizerID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, organizer)
}

// SetOrganizerActiveRequest is the request body for PATCH /admin/organizers/{organizerID}/active.
type SetOrganizerActiveRequest struct {
	Active bool `json:"active"`
}

// SetOrganizerActive godoc
// @Summary Activate or deactivate an organizer account
// @Description Deactivated organizers cannot log in; their published events stay visible.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param organizerID path string true "Organizer ID"
// @Param body body controllers.SetOrganizerActiveRequest true "Target state"
// @Success 200 {object} helpers.APIResponse "data contains the organizer"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/organizers/{organizerID}/active [patch]
func (c *AdminController) SetOrganizerActive(w http.ResponseWriter, r *http.Request) {
	var req SetOrganizerActiveRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	organizer, err := c.Service.SetOrganizerActive(r.Context(), r.PathValue("organizerID"), req.Active)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, organizer)
}

// ResetOrganizerPassword godoc
// @Summary Reset an organizer's password
// @Description Generates a new temporary password. The password appears only in this response.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param organizerID path string true "Organizer ID"
// @Success 200 {object} helpers.APIResponse "data contains the organizer and temporary password"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/organizers/{organizerID}/reset-password [post]
func (c *AdminController) ResetOrganizerPassword(w http.ResponseWriter, r *http.Request) {
	provisioned, err := c.Service.ResetOrganizerPassword(r.Context(), r.PathValue("organizerID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, provisioned)
}
