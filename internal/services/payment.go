package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"felicityevents/internal/domain"
	"felicityevents/internal/monitoring"
	"felicityevents/internal/ticket"
)

const (
	defaultApproveComment = "Payment approved"
	defaultRejectComment  = "Payment rejected"
)

type paymentService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	participantRepo  domain.ParticipantRepository
	emails           domain.EmailService
	notifier         domain.Notifier
	metrics          *monitoring.Metrics
	logger           *slog.Logger
	now              func() time.Time
}

// NewPaymentService creates the manual payment-review workflow.
func NewPaymentService(
	eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	participantRepo domain.ParticipantRepository,
	emails domain.EmailService,
	notifier domain.Notifier,
	metrics *monitoring.Metrics,
	logger *slog.Logger,
) domain.PaymentService {
	return &paymentService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		participantRepo:  participantRepo,
		emails:           emails,
		notifier:         notifier,
		metrics:          metrics,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *paymentService) UploadProof(ctx context.Context, participantID, registrationID, imageURL, note string) (*domain.Registration, error) {
	if imageURL == "" {
		return nil, domain.ErrInvalidInput
	}
	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.ParticipantID != participantID {
		return nil, domain.ErrForbidden
	}
	if reg.PaymentStatus == domain.PaymentCompleted {
		return nil, domain.ErrPaymentCompleted
	}
	if reg.Status != domain.RegistrationPending {
		return nil, domain.ErrInvalidInput
	}

	// Re-upload while awaiting approval replaces the proof and resets the
	// review.
	reg.PaymentProof = &domain.PaymentProof{
		ImageURL:   imageURL,
		UploadedAt: s.now(),
		Note:       note,
	}
	if err := s.registrationRepo.SavePaymentProof(ctx, reg); err != nil {
		return nil, err
	}
	reg.PaymentStatus = domain.PaymentAwaitingApproval
	reg.PaymentApproval = &domain.PaymentApproval{Status: domain.ApprovalPending}
	return reg, nil
}

func (s *paymentService) Approve(ctx context.Context, reviewer domain.ActorRef, eventID, registrationID, comment string) (*domain.Registration, error) {
	event, reg, err := s.loadForReview(ctx, reviewer, eventID, registrationID)
	if err != nil {
		return nil, err
	}
	if comment == "" {
		comment = defaultApproveComment
	}

	participant, err := s.participantRepo.GetByID(ctx, reg.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}

	// The QR credential is written in the same transaction as the approval.
	// A render failure is logged and the ticket ships without one.
	qr, err := ticket.EncodeDataURL(ticket.Payload{
		TicketID:        reg.TicketID,
		EventID:         event.ID,
		ParticipantID:   participant.ID,
		EventName:       event.Name,
		ParticipantName: participant.FullName(),
		Timestamp:       s.now(),
	})
	if err != nil {
		s.logger.Error("failed to render ticket qr", "registration_id", reg.ID, "error", err)
	} else {
		reg.QRCode = qr
	}

	now := s.now()
	reg.PaymentApproval = &domain.PaymentApproval{
		Status:     domain.ApprovalApproved,
		ReviewedBy: &reviewer,
		ReviewedAt: &now,
		Comment:    comment,
	}
	if err := s.registrationRepo.Approve(ctx, reg); err != nil {
		if errors.Is(err, domain.ErrOversold) {
			s.metrics.PaymentReview("oversold")
		}
		return nil, err
	}
	reg.Status = domain.RegistrationConfirmed
	reg.PaymentStatus = domain.PaymentCompleted
	s.metrics.PaymentReview("approved")

	if err := s.emails.SendOrderApproved(ctx, &domain.OrderReviewEmailData{
		Email:           participant.Email,
		ParticipantName: participant.FullName(),
		EventName:       event.Name,
		TicketID:        reg.TicketID,
		Comment:         comment,
		QRCodeDataURL:   reg.QRCode,
	}); err != nil {
		s.logger.Error("failed to send approval email", "registration_id", reg.ID, "error", err)
	}
	s.publishReview(ctx, event.ID, domain.NotifyPaymentApproved, reg)
	return reg, nil
}

func (s *paymentService) Reject(ctx context.Context, reviewer domain.ActorRef, eventID, registrationID, comment string) (*domain.Registration, error) {
	event, reg, err := s.loadForReview(ctx, reviewer, eventID, registrationID)
	if err != nil {
		return nil, err
	}
	if comment == "" {
		comment = defaultRejectComment
	}

	now := s.now()
	reg.PaymentApproval = &domain.PaymentApproval{
		Status:     domain.ApprovalRejected,
		ReviewedBy: &reviewer,
		ReviewedAt: &now,
		Comment:    comment,
	}
	if err := s.registrationRepo.Reject(ctx, reg); err != nil {
		return nil, err
	}
	reg.Status = domain.RegistrationRejected
	reg.PaymentStatus = domain.PaymentFailed
	s.metrics.PaymentReview("rejected")

	if participant, err := s.participantRepo.GetByID(ctx, reg.ParticipantID); err == nil {
		if err := s.emails.SendOrderRejected(ctx, &domain.OrderReviewEmailData{
			Email:           participant.Email,
			ParticipantName: participant.FullName(),
			EventName:       event.Name,
			TicketID:        reg.TicketID,
			Comment:         comment,
		}); err != nil {
			s.logger.Error("failed to send rejection email", "registration_id", reg.ID, "error", err)
		}
	}
	s.publishReview(ctx, event.ID, domain.NotifyPaymentRejected, reg)
	return reg, nil
}

func (s *paymentService) ListPending(ctx context.Context, organizerID, eventID string) ([]*domain.Registration, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if organizerID != "" && event.OrganizerID != organizerID {
		return nil, domain.ErrForbidden
	}
	return s.registrationRepo.ListAwaitingApproval(ctx, eventID)
}

// loadForReview fetches the event and registration and checks that the
// reviewer may decide on it. Admins may review any event's payments.
func (s *paymentService) loadForReview(ctx context.Context, reviewer domain.ActorRef, eventID, registrationID string) (*domain.Event, *domain.Registration, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("get event: %w", err)
	}
	if reviewer.Kind == domain.ActorOrganizer && event.OrganizerID != reviewer.ID {
		return nil, nil, domain.ErrForbidden
	}

	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.EventID != eventID {
		return nil, nil, domain.ErrWrongEvent
	}
	if reg.PaymentStatus != domain.PaymentAwaitingApproval {
		return nil, nil, domain.ErrNotAwaitingApproval
	}
	return event, reg, nil
}

func (s *paymentService) publishReview(ctx context.Context, eventID, name string, reg *domain.Registration) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Publish(ctx, domain.Notification{
		EventID:    eventID,
		Name:       name,
		OccurredAt: s.now(),
		Payload: map[string]any{
			"registrationId": reg.ID,
			"ticketId":       reg.TicketID,
		},
	})
	if err != nil {
		s.logger.Error("failed to publish notification", "name", name, "event_id", eventID, "error", err)
	}
}
