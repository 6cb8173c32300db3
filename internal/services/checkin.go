package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"felicityevents/internal/domain"
	"felicityevents/internal/monitoring"
	"felicityevents/internal/ticket"
)

type checkInService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	notifier         domain.Notifier
	metrics          *monitoring.Metrics
	logger           *slog.Logger
	now              func() time.Time
}

// NewCheckInService creates the door-scanning workflow.
func NewCheckInService(
	eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	notifier domain.Notifier,
	metrics *monitoring.Metrics,
	logger *slog.Logger,
) domain.CheckInService {
	return &checkInService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		notifier:         notifier,
		metrics:          metrics,
		logger:           logger,
		now:              time.Now,
	}
}

// Scan resolves a ticket from either scanned QR text or a manually typed
// ticket id and performs the check-in. A ticket that was already checked in
// is reported as information, not an error: busy doors re-scan tickets.
func (s *checkInService) Scan(ctx context.Context, operator domain.ActorRef, eventID, qrData, manualTicketID string) (*domain.CheckInResult, error) {
	if _, err := s.authorizeOperator(ctx, operator, eventID); err != nil {
		return nil, err
	}

	reg, err := s.resolve(ctx, eventID, qrData, manualTicketID)
	if err != nil {
		s.metrics.CheckIn("invalid")
		return nil, err
	}
	return s.checkIn(ctx, operator, reg)
}

func (s *checkInService) MarkAttendance(ctx context.Context, operator domain.ActorRef, eventID, registrationID string) (*domain.Registration, error) {
	if _, err := s.authorizeOperator(ctx, operator, eventID); err != nil {
		return nil, err
	}
	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.EventID != eventID {
		return nil, domain.ErrWrongEvent
	}
	result, err := s.checkIn(ctx, operator, reg)
	if err != nil {
		return nil, err
	}
	return result.Registration, nil
}

func (s *checkInService) Stats(ctx context.Context, organizerID, eventID string) (*domain.AttendanceStats, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if organizerID != "" && event.OrganizerID != organizerID {
		return nil, domain.ErrForbidden
	}
	return s.registrationRepo.AttendanceStats(ctx, eventID)
}

func (s *checkInService) authorizeOperator(ctx context.Context, operator domain.ActorRef, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if operator.Kind == domain.ActorOrganizer && event.OrganizerID != operator.ID {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

func (s *checkInService) resolve(ctx context.Context, eventID, qrData, manualTicketID string) (*domain.Registration, error) {
	var ticketID string
	switch {
	case manualTicketID != "":
		ticketID = ticket.Normalize(manualTicketID)
	case qrData != "":
		payload, err := ticket.Decode(qrData)
		if err != nil {
			return nil, err
		}
		if payload.EventID != eventID {
			return nil, domain.ErrWrongEvent
		}
		ticketID = payload.TicketID
	default:
		return nil, domain.ErrInvalidInput
	}

	reg, err := s.registrationRepo.GetByTicketID(ctx, ticketID, eventID)
	if err != nil {
		return nil, fmt.Errorf("get registration by ticket: %w", err)
	}
	return reg, nil
}

func (s *checkInService) checkIn(ctx context.Context, operator domain.ActorRef, reg *domain.Registration) (*domain.CheckInResult, error) {
	if reg.Status != domain.RegistrationConfirmed {
		s.metrics.CheckIn("wrong_status")
		return nil, &domain.WrongStatusError{Status: reg.Status}
	}
	if reg.Attended {
		s.metrics.CheckIn("already_checked_in")
		return &domain.CheckInResult{
			Registration:     reg,
			AlreadyCheckedIn: true,
			CheckedInAt:      reg.AttendedAt,
		}, nil
	}

	now := s.now()
	ok, err := s.registrationRepo.MarkAttended(ctx, reg.ID, now, operator)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Another scanner won the race; report their check-in time.
		fresh, err := s.registrationRepo.GetByID(ctx, reg.ID)
		if err != nil {
			return nil, fmt.Errorf("get registration: %w", err)
		}
		s.metrics.CheckIn("already_checked_in")
		return &domain.CheckInResult{
			Registration:     fresh,
			AlreadyCheckedIn: true,
			CheckedInAt:      fresh.AttendedAt,
		}, nil
	}

	reg.Attended = true
	reg.AttendedAt = &now
	reg.CheckedInBy = &operator
	s.metrics.CheckIn("checked_in")

	if s.notifier != nil {
		err := s.notifier.Publish(ctx, domain.Notification{
			EventID:    reg.EventID,
			Name:       domain.NotifyCheckInCompleted,
			OccurredAt: now,
			Payload: map[string]any{
				"registrationId": reg.ID,
				"ticketId":       reg.TicketID,
			},
		})
		if err != nil {
			s.logger.Error("failed to publish notification", "name", domain.NotifyCheckInCompleted, "error", err)
		}
	}
	return &domain.CheckInResult{Registration: reg, CheckedInAt: &now}, nil
}
