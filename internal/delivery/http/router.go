package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"felicityevents/internal/delivery/http/controllers"
	"felicityevents/internal/delivery/http/middleware"
	"felicityevents/internal/domain"
	"felicityevents/internal/monitoring"
)

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(
	verifier domain.TokenVerifier,
	metrics *monitoring.Metrics,
	authController *controllers.AuthController,
	participantController *controllers.ParticipantController,
	organizerController *controllers.OrganizerController,
	adminController *controllers.AdminController,
) *http.ServeMux {
	mux := http.NewServeMux()

	authed := middleware.RequireAuth(verifier)
	maybeAuthed := middleware.OptionalAuth(verifier)
	participant := func(next http.HandlerFunc) http.HandlerFunc {
		return authed(middleware.RequireRole(domain.RoleParticipant, domain.RoleAdmin)(next))
	}
	organizer := func(next http.HandlerFunc) http.HandlerFunc {
		return authed(middleware.RequireRole(domain.RoleOrganizer, domain.RoleAdmin)(next))
	}
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return authed(middleware.RequireRole(domain.RoleAdmin)(next))
	}

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)
	mux.HandleFunc("POST /auth/organizer/login", authController.OrganizerLogin)

	// Public browsing, personalized when a token is present
	mux.HandleFunc("GET /events", maybeAuthed(participantController.ListEvents))
	mux.HandleFunc("GET /events/trending", maybeAuthed(participantController.TrendingEvents))
	mux.HandleFunc("GET /events/{eventID}", maybeAuthed(participantController.GetEvent))
	mux.HandleFunc("GET /events/{eventID}/calendar.ics", participantController.EventCalendar)
	mux.HandleFunc("GET /events/{eventID}/calendar-links", participantController.EventCalendarLinks)

	// Participant registrations
	mux.HandleFunc("POST /events/{eventID}/registrations", participant(participantController.Register))
	mux.HandleFunc("GET /registrations", participant(participantController.MyRegistrations))
	mux.HandleFunc("POST /registrations/{registrationID}/cancel", participant(participantController.CancelRegistration))
	mux.HandleFunc("POST /registrations/{registrationID}/payment-proof", participant(participantController.UploadPaymentProof))

	// Organizer console
	mux.HandleFunc("POST /organizer/events", organizer(organizerController.CreateEvent))
	mux.HandleFunc("GET /organizer/events", organizer(organizerController.ListEvents))
	mux.HandleFunc("GET /organizer/events/{eventID}", organizer(organizerController.GetEvent))
	mux.HandleFunc("PATCH /organizer/events/{eventID}", organizer(organizerController.UpdateEvent))
	mux.HandleFunc("DELETE /organizer/events/{eventID}", organizer(organizerController.DeleteEvent))
	mux.HandleFunc("GET /organizer/events/{eventID}/registrations", organizer(organizerController.ListRegistrations))
	mux.HandleFunc("GET /organizer/dashboard", organizer(organizerController.Dashboard))

	// Payment review
	mux.HandleFunc("GET /organizer/events/{eventID}/payments", organizer(organizerController.ListPendingPayments))
	mux.HandleFunc("POST /organizer/events/{eventID}/payments/{registrationID}/approve", organizer(organizerController.ApprovePayment))
	mux.HandleFunc("POST /organizer/events/{eventID}/payments/{registrationID}/reject", organizer(organizerController.RejectPayment))

	// Check-in
	mux.HandleFunc("POST /organizer/events/{eventID}/checkin/scan", organizer(organizerController.ScanTicket))
	mux.HandleFunc("GET /organizer/events/{eventID}/checkin/stats", organizer(organizerController.AttendanceStats))
	mux.HandleFunc("POST /organizer/events/{eventID}/checkin/{registrationID}", organizer(organizerController.MarkAttendance))

	// Admin
	mux.HandleFunc("POST /admin/organizers", admin(adminController.CreateOrganizer))
	mux.HandleFunc("GET /admin/organizers", admin(adminController.ListOrganizers))
	mux.HandleFunc("GET /admin/organizers/{organizerID}", admin(adminController.GetOrganizer))
	mux.HandleFunc("PATCH /admin/organizers/{organizerID}/active", admin(adminController.SetOrganizerActive))
	mux.HandleFunc("POST /admin/organizers/{organizerID}/reset-password", admin(adminController.ResetOrganizerPassword))

	// Operational
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
