package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"felicityevents/internal/delivery/http/helpers"
	"felicityevents/internal/delivery/http/middleware"
	"felicityevents/internal/domain"
)

type mockRegistrationService struct {
	registration *domain.Registration
	mine         *domain.MyRegistrations
	err          error

	gotEventID string
	gotIntent  domain.RegistrationIntent
}

func (m *mockRegistrationService) Register(ctx context.Context, participantID, eventID string, intent domain.RegistrationIntent) (*domain.Registration, error) {
	m.gotEventID = eventID
	m.gotIntent = intent
	if m.err != nil {
		return nil, m.err
	}
	return m.registration, nil
}

func (m *mockRegistrationService) Cancel(ctx context.Context, participantID, registrationID, reason string) error {
	return m.err
}

func (m *mockRegistrationService) ListMine(ctx context.Context, participantID string, status domain.RegistrationStatus, eventType domain.EventType) (*domain.MyRegistrations, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.mine, nil
}

type mockPaymentService struct {
	registration *domain.Registration
	err          error
}

func (m *mockPaymentService) UploadProof(ctx context.Context, participantID, registrationID, imageURL, note string) (*domain.Registration, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.registration, nil
}

func (m *mockPaymentService) Approve(ctx context.Context, reviewer domain.ActorRef, eventID, registrationID, comment string) (*domain.Registration, error) {
	return nil, nil
}

func (m *mockPaymentService) Reject(ctx context.Context, reviewer domain.ActorRef, eventID, registrationID, comment string) (*domain.Registration, error) {
	return nil, nil
}

func (m *mockPaymentService) ListPending(ctx context.Context, organizerID, eventID string) ([]*domain.Registration, error) {
	return nil, nil
}

type mockBrowseService struct {
	listings []*domain.EventListing
	details  *domain.EventDetails
	err      error
}

func (m *mockBrowseService) Browse(ctx context.Context, participantID string, filter domain.EventFilter) ([]*domain.EventListing, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.listings, nil
}

func (m *mockBrowseService) Trending(ctx context.Context, participantID string) ([]*domain.EventListing, error) {
	return m.listings, m.err
}

func (m *mockBrowseService) Details(ctx context.Context, participantID, eventID string) (*domain.EventDetails, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.details, nil
}

func (m *mockBrowseService) CalendarICS(ctx context.Context, eventID string) (string, string, error) {
	return "event.ics", "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", m.err
}

func (m *mockBrowseService) CalendarLinks(ctx context.Context, eventID string) (*domain.CalendarLinks, error) {
	return &domain.CalendarLinks{}, m.err
}

func testController(regs *mockRegistrationService, payments *mockPaymentService, browse *mockBrowseService) *ParticipantController {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	if regs == nil {
		regs = &mockRegistrationService{}
	}
	if payments == nil {
		payments = &mockPaymentService{}
	}
	if browse == nil {
		browse = &mockBrowseService{}
	}
	return NewParticipantController(logger, browse, regs, payments)
}

func authedRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	claims := &domain.TokenClaims{SubjectID: "p-1", Role: domain.RoleParticipant}
	return req.WithContext(middleware.SetClaims(req.Context(), claims))
}

func TestParticipantController_Register_Unauthorized(t *testing.T) {
	ctrl := testController(nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/events/ev-1/registrations", strings.NewReader(`{}`))
	req.SetPathValue("eventID", "ev-1")
	w := httptest.NewRecorder()

	ctrl.Register(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestParticipantController_Register_Success(t *testing.T) {
	regs := &mockRegistrationService{registration: &domain.Registration{ID: "r-1", TicketID: "FEL-2026-ABC123"}}
	ctrl := testController(regs, nil, nil)

	req := authedRequest(http.MethodPost, "/events/ev-1/registrations", `{"variantId":"v-1","quantity":2}`)
	req.SetPathValue("eventID", "ev-1")
	w := httptest.NewRecorder()

	ctrl.Register(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	if regs.gotEventID != "ev-1" {
		t.Fatalf("expected event ev-1, got %q", regs.gotEventID)
	}
	if regs.gotIntent.VariantID != "v-1" || regs.gotIntent.Quantity != 2 {
		t.Fatalf("intent not passed through: %+v", regs.gotIntent)
	}
}

func TestParticipantController_Register_EventFull(t *testing.T) {
	regs := &mockRegistrationService{err: domain.ErrEventFull}
	ctrl := testController(regs, nil, nil)

	req := authedRequest(http.MethodPost, "/events/ev-1/registrations", `{}`)
	req.SetPathValue("eventID", "ev-1")
	w := httptest.NewRecorder()

	ctrl.Register(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
	}
	var resp helpers.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != helpers.ErrCodeConflict {
		t.Fatalf("expected conflict error, got %+v", resp.Error)
	}
}

func TestParticipantController_Register_RejectsUnknownFields(t *testing.T) {
	ctrl := testController(nil, nil, nil)

	req := authedRequest(http.MethodPost, "/events/ev-1/registrations", `{"bogus":true}`)
	req.SetPathValue("eventID", "ev-1")
	w := httptest.NewRecorder()

	ctrl.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestParticipantController_UploadProof_RequiresImageURL(t *testing.T) {
	ctrl := testController(nil, nil, nil)

	req := authedRequest(http.MethodPost, "/registrations/r-1/payment-proof", `{"imageUrl":"  "}`)
	req.SetPathValue("registrationID", "r-1")
	w := httptest.NewRecorder()

	ctrl.UploadPaymentProof(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestParticipantController_UploadProof_AlreadyApproved(t *testing.T) {
	payments := &mockPaymentService{err: domain.ErrPaymentCompleted}
	ctrl := testController(nil, payments, nil)

	req := authedRequest(http.MethodPost, "/registrations/r-1/payment-proof", `{"imageUrl":"https://cdn.example.com/proof.png"}`)
	req.SetPathValue("registrationID", "r-1")
	w := httptest.NewRecorder()

	ctrl.UploadPaymentProof(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
	}
}

func TestParticipantController_ListEvents_AnonymousOK(t *testing.T) {
	browse := &mockBrowseService{listings: []*domain.EventListing{
		{Event: &domain.Event{ID: "ev-1", Name: "Hack Night"}, IsEligible: true},
	}}
	ctrl := testController(nil, nil, browse)

	req := httptest.NewRequest(http.MethodGet, "/events?eventType=normal", nil)
	w := httptest.NewRecorder()

	ctrl.ListEvents(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp helpers.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("expected no error, got %+v", resp.Error)
	}
}

func TestParticipantController_GetEvent_NotFound(t *testing.T) {
	browse := &mockBrowseService{err: domain.ErrNotFound}
	ctrl := testController(nil, nil, browse)

	req := httptest.NewRequest(http.MethodGet, "/events/ev-404", nil)
	req.SetPathValue("eventID", "ev-404")
	w := httptest.NewRecorder()

	ctrl.GetEvent(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestParticipantController_EventCalendar_SetsHeaders(t *testing.T) {
	ctrl := testController(nil, nil, &mockBrowseService{})

	req := httptest.NewRequest(http.MethodGet, "/events/ev-1/calendar.ics", nil)
	req.SetPathValue("eventID", "ev-1")
	w := httptest.NewRecorder()

	ctrl.EventCalendar(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "event.ics") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
}
