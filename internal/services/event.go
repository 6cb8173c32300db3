package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"felicityevents/internal/domain"
)

const dashboardUpcomingLimit = 5

type eventService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	organizerRepo    domain.OrganizerRepository
	announcer        domain.Announcer
	notifier         domain.Notifier
	logger           *slog.Logger
	now              func() time.Time
}

// NewEventService creates the organizer-facing event lifecycle service.
func NewEventService(
	eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	organizerRepo domain.OrganizerRepository,
	announcer domain.Announcer,
	notifier domain.Notifier,
	logger *slog.Logger,
) domain.EventService {
	return &eventService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		organizerRepo:    organizerRepo,
		announcer:        announcer,
		notifier:         notifier,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, organizerID string, event *domain.Event) (*domain.Event, error) {
	if event.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	switch event.EventType {
	case domain.EventNormal, domain.EventMerchandise:
	default:
		return nil, domain.ErrInvalidInput
	}
	if event.Eligibility == "" {
		event.Eligibility = domain.EligibilityAll
	}
	if event.Status == "" {
		event.Status = domain.EventDraft
	}
	if event.Status != domain.EventDraft && event.Status != domain.EventPublished {
		return nil, domain.ErrInvalidInput
	}
	// Drafts may be incomplete; anything going live must have a coherent
	// schedule.
	if event.Status == domain.EventPublished {
		if err := validateSchedule(event, s.now()); err != nil {
			return nil, err
		}
	}
	if event.EventType == domain.EventMerchandise && event.Merchandise == nil {
		event.Merchandise = &domain.Merchandise{}
	}
	assignVariantIDs(event)

	event.OrganizerID = organizerID
	event.CurrentRegistrations = 0
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}
	if event.Status == domain.EventPublished {
		s.announce(ctx, event)
	}
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, organizerID, eventID string) (*domain.Event, error) {
	return s.ownedEvent(ctx, organizerID, eventID)
}

func (s *eventService) ListEvents(ctx context.Context, organizerID string, status domain.EventStatus, eventType domain.EventType) ([]*domain.Event, error) {
	return s.eventRepo.ListByOrganizer(ctx, organizerID, status, eventType)
}

func (s *eventService) UpdateEvent(ctx context.Context, organizerID, eventID string, update *domain.EventUpdate) (*domain.Event, error) {
	event, err := s.ownedEvent(ctx, organizerID, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status == domain.EventCancelled {
		return nil, domain.ErrEventLocked
	}

	wasDraft := event.Status == domain.EventDraft
	// The form locks for good once an active registration exists; until
	// then a published event may still correct it.
	if !wasDraft && update.CustomForm != nil {
		active, err := s.registrationRepo.CountActive(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("count registrations: %w", err)
		}
		if active > 0 {
			return nil, domain.ErrInvalidInput
		}
	}
	if err := applyUpdate(event, update, s.now()); err != nil {
		return nil, err
	}
	if event.Status == domain.EventPublished && wasDraft {
		if err := validateSchedule(event, s.now()); err != nil {
			return nil, err
		}
	}
	assignVariantIDs(event)

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, err
	}
	// The announcement fires exactly once, on the draft-to-published
	// transition; published events can never return to draft.
	if wasDraft && event.Status == domain.EventPublished {
		s.announce(ctx, event)
	}
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, organizerID, eventID string) error {
	event, err := s.ownedEvent(ctx, organizerID, eventID)
	if err != nil {
		return err
	}
	active, err := s.registrationRepo.CountActive(ctx, eventID)
	if err != nil {
		return fmt.Errorf("count registrations: %w", err)
	}
	if active > 0 {
		return domain.ErrHasActiveRegistrations
	}
	return s.eventRepo.Delete(ctx, event.ID)
}

func (s *eventService) ListRegistrations(ctx context.Context, organizerID, eventID string, status domain.RegistrationStatus) ([]*domain.Registration, error) {
	if _, err := s.ownedEvent(ctx, organizerID, eventID); err != nil {
		return nil, err
	}
	return s.registrationRepo.ListByEvent(ctx, eventID, status)
}

func (s *eventService) Dashboard(ctx context.Context, organizerID string) (*domain.DashboardStats, error) {
	events, err := s.eventRepo.ListByOrganizer(ctx, organizerID, "", "")
	if err != nil {
		return nil, err
	}

	stats := &domain.DashboardStats{UpcomingEvents: []*domain.Event{}}
	ids := make([]string, 0, len(events))
	now := s.now()
	for _, event := range events {
		stats.TotalEvents++
		ids = append(ids, event.ID)
		switch event.Status {
		case domain.EventPublished:
			stats.ActiveEvents++
			if event.EventStartDate != nil && event.EventStartDate.After(now) {
				stats.UpcomingEvents = append(stats.UpcomingEvents, event)
			}
		case domain.EventDraft:
			stats.DraftEvents++
		}
	}

	sort.Slice(stats.UpcomingEvents, func(i, j int) bool {
		return stats.UpcomingEvents[i].EventStartDate.Before(*stats.UpcomingEvents[j].EventStartDate)
	})
	if len(stats.UpcomingEvents) > dashboardUpcomingLimit {
		stats.UpcomingEvents = stats.UpcomingEvents[:dashboardUpcomingLimit]
	}

	total, err := s.registrationRepo.CountActiveForEvents(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	stats.TotalRegistrations = total
	return stats, nil
}

func (s *eventService) ownedEvent(ctx context.Context, organizerID, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if organizerID != "" && event.OrganizerID != organizerID {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

func (s *eventService) announce(ctx context.Context, event *domain.Event) {
	if s.announcer != nil {
		organizer, err := s.organizerRepo.GetByID(ctx, event.OrganizerID)
		if err != nil {
			s.logger.Error("failed to load organizer for announcement", "event_id", event.ID, "error", err)
		} else if err := s.announcer.AnnounceEvent(ctx, event, organizer); err != nil {
			s.logger.Error("failed to announce event", "event_id", event.ID, "error", err)
		}
	}
	if s.notifier != nil {
		err := s.notifier.Publish(ctx, domain.Notification{
			EventID:    event.ID,
			Name:       domain.NotifyEventPublished,
			OccurredAt: s.now(),
			Payload:    map[string]any{"name": event.Name},
		})
		if err != nil {
			s.logger.Error("failed to publish notification", "name", domain.NotifyEventPublished, "event_id", event.ID, "error", err)
		}
	}
}

// validateSchedule enforces deadline < start < end with the deadline still
// in the future. Required whenever an event is or becomes published.
func validateSchedule(event *domain.Event, now time.Time) error {
	if event.RegistrationDeadline == nil || event.EventStartDate == nil || event.EventEndDate == nil {
		return domain.ErrInvalidInput
	}
	if !event.RegistrationDeadline.After(now) {
		return domain.ErrInvalidInput
	}
	if !event.RegistrationDeadline.Before(*event.EventStartDate) {
		return domain.ErrInvalidInput
	}
	if !event.EventStartDate.Before(*event.EventEndDate) {
		return domain.ErrInvalidInput
	}
	return nil
}

func assignVariantIDs(event *domain.Event) {
	if event.Merchandise == nil {
		return
	}
	for i := range event.Merchandise.Variants {
		if event.Merchandise.Variants[i].ID == "" {
			event.Merchandise.Variants[i].ID = uuid.NewString()
		}
	}
}

// applyUpdate copies the allowed subset of fields for the event's current
// lifecycle state and rejects edits outside it.
func applyUpdate(event *domain.Event, update *domain.EventUpdate, now time.Time) error {
	draft := event.Status == domain.EventDraft

	// Running and completed events accept a status change and nothing else.
	statusOnly := event.Status == domain.EventCompleted || (!draft && event.IsOngoing(now))
	if statusOnly && hasNonStatusFields(update) {
		return domain.ErrInvalidInput
	}

	// What participants registered against is frozen once the event is
	// visible: identity, pricing, schedule, audience. Only the deadline
	// and limit stay movable, in one direction.
	if !draft && (update.Name != nil || update.Merchandise != nil ||
		update.RegistrationFee != nil || update.EventStartDate != nil ||
		update.EventEndDate != nil || update.Eligibility != nil || update.Tags != nil) {
		return domain.ErrInvalidInput
	}

	if update.Name != nil {
		if *update.Name == "" {
			return domain.ErrInvalidInput
		}
		event.Name = *update.Name
	}
	if update.Description != nil {
		event.Description = *update.Description
	}
	if update.Eligibility != nil {
		event.Eligibility = *update.Eligibility
	}
	if update.RegistrationDeadline != nil {
		// Once participants can see the deadline it may only move later,
		// and never past the event start.
		if !draft {
			if event.RegistrationDeadline != nil && update.RegistrationDeadline.Before(*event.RegistrationDeadline) {
				return domain.ErrInvalidInput
			}
			if event.EventStartDate != nil && !update.RegistrationDeadline.Before(*event.EventStartDate) {
				return domain.ErrInvalidInput
			}
		}
		event.RegistrationDeadline = update.RegistrationDeadline
	}
	if update.EventStartDate != nil {
		event.EventStartDate = update.EventStartDate
	}
	if update.EventEndDate != nil {
		event.EventEndDate = update.EventEndDate
	}
	if update.RegistrationLimit != nil {
		if *update.RegistrationLimit < event.CurrentRegistrations {
			return domain.ErrInvalidInput
		}
		// Published events may only raise their limit.
		if !draft && event.RegistrationLimit != nil && *update.RegistrationLimit < *event.RegistrationLimit {
			return domain.ErrInvalidInput
		}
		event.RegistrationLimit = update.RegistrationLimit
	}
	if update.RegistrationFee != nil {
		if update.RegistrationFee.IsNegative() {
			return domain.ErrInvalidInput
		}
		event.RegistrationFee = *update.RegistrationFee
	}
	if update.Tags != nil {
		event.Tags = *update.Tags
	}
	if update.CustomForm != nil {
		event.CustomForm = *update.CustomForm
	}
	if update.Merchandise != nil {
		event.Merchandise = update.Merchandise
	}
	if update.Venue != nil {
		event.Venue = *update.Venue
	}
	if update.ImageURL != nil {
		event.ImageURL = *update.ImageURL
	}
	if update.ExternalLinks != nil {
		event.ExternalLinks = *update.ExternalLinks
	}
	if update.Status != nil {
		if err := applyStatusTransition(event, *update.Status); err != nil {
			return err
		}
	}
	return nil
}

// hasNonStatusFields reports whether the update touches anything besides the
// lifecycle status.
func hasNonStatusFields(update *domain.EventUpdate) bool {
	return update.Name != nil || update.Description != nil || update.Eligibility != nil ||
		update.RegistrationDeadline != nil || update.EventStartDate != nil ||
		update.EventEndDate != nil || update.RegistrationLimit != nil ||
		update.RegistrationFee != nil || update.Tags != nil || update.CustomForm != nil ||
		update.Merchandise != nil || update.Venue != nil || update.ImageURL != nil ||
		update.ExternalLinks != nil
}

func applyStatusTransition(event *domain.Event, next domain.EventStatus) error {
	if next == event.Status {
		return nil
	}
	allowed := map[domain.EventStatus][]domain.EventStatus{
		domain.EventDraft:     {domain.EventPublished, domain.EventCancelled},
		domain.EventPublished: {domain.EventCancelled, domain.EventCompleted},
		domain.EventCompleted: {domain.EventCancelled},
	}
	for _, s := range allowed[event.Status] {
		if s == next {
			event.Status = next
			return nil
		}
	}
	return domain.ErrInvalidInput
}
