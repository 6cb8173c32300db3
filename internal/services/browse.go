package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"felicityevents/internal/calendar"
	"felicityevents/internal/domain"
)

const trendingLimit = 5

type browseService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	participantRepo  domain.ParticipantRepository
	organizerRepo    domain.OrganizerRepository
	views            domain.ViewTracker
	logger           *slog.Logger
	now              func() time.Time
}

// NewBrowseService creates the participant-facing read side.
func NewBrowseService(
	eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	participantRepo domain.ParticipantRepository,
	organizerRepo domain.OrganizerRepository,
	views domain.ViewTracker,
	logger *slog.Logger,
) domain.BrowseService {
	return &browseService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		participantRepo:  participantRepo,
		organizerRepo:    organizerRepo,
		views:            views,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *browseService) Browse(ctx context.Context, participantID string, filter domain.EventFilter) ([]*domain.EventListing, error) {
	events, err := s.eventRepo.ListPublished(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, participantID, events)
}

// Trending ranks published events by views in the last 24 hours, with the
// all-time count as tiebreaker.
func (s *browseService) Trending(ctx context.Context, participantID string) ([]*domain.EventListing, error) {
	events, err := s.eventRepo.ListPublished(ctx, domain.EventFilter{})
	if err != nil {
		return nil, err
	}
	listings, err := s.decorate(ctx, participantID, events)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i].Views, listings[j].Views
		if a.Last24 != b.Last24 {
			return a.Last24 > b.Last24
		}
		return a.Total > b.Total
	})
	if len(listings) > trendingLimit {
		listings = listings[:trendingLimit]
	}
	return listings, nil
}

func (s *browseService) Details(ctx context.Context, participantID, eventID string) (*domain.EventDetails, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	// Drafts and cancelled events are invisible to participants.
	if event.Status != domain.EventPublished && event.Status != domain.EventCompleted {
		return nil, domain.ErrNotFound
	}

	if s.views != nil {
		if err := s.views.RecordView(ctx, eventID); err != nil {
			s.logger.Warn("failed to record event view", "event_id", eventID, "error", err)
		}
	}

	listings, err := s.decorate(ctx, participantID, []*domain.Event{event})
	if err != nil {
		return nil, err
	}
	details := &domain.EventDetails{EventListing: *listings[0]}

	if participantID != "" {
		reg, err := s.registrationRepo.GetByEventAndParticipant(ctx, eventID, participantID)
		if err == nil {
			details.Registration = reg
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get registration: %w", err)
		}
	}
	if organizer, err := s.organizerRepo.GetByID(ctx, event.OrganizerID); err == nil {
		organizer.PasswordHash = ""
		details.Organizer = organizer
	}
	return details, nil
}

func (s *browseService) CalendarICS(ctx context.Context, eventID string) (string, string, error) {
	event, organizerName, err := s.calendarEvent(ctx, eventID)
	if err != nil {
		return "", "", err
	}
	ics := calendar.BuildICS(event, organizerName, s.now())
	return calendar.FileName(event.Name), ics, nil
}

func (s *browseService) CalendarLinks(ctx context.Context, eventID string) (*domain.CalendarLinks, error) {
	event, _, err := s.calendarEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &domain.CalendarLinks{
		GoogleCalendarURL: calendar.GoogleCalendarURL(event),
		OutlookURL:        calendar.OutlookURL(event),
	}, nil
}

func (s *browseService) calendarEvent(ctx context.Context, eventID string) (*domain.Event, string, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, "", err
	}
	if event.Status != domain.EventPublished && event.Status != domain.EventCompleted {
		return nil, "", domain.ErrNotFound
	}
	if event.EventStartDate == nil || event.EventEndDate == nil {
		return nil, "", domain.ErrInvalidInput
	}
	organizerName := ""
	if organizer, err := s.organizerRepo.GetByID(ctx, event.OrganizerID); err == nil {
		organizerName = organizer.Name
	}
	return event, organizerName, nil
}

// decorate attaches viewer-specific registration state, eligibility, and
// view counters to the events. View counter failures degrade to zeros.
func (s *browseService) decorate(ctx context.Context, participantID string, events []*domain.Event) ([]*domain.EventListing, error) {
	var participant *domain.Participant
	regsByEvent := make(map[string]*domain.Registration)
	if participantID != "" {
		var err error
		participant, err = s.participantRepo.GetByID(ctx, participantID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get participant: %w", err)
		}
		regs, err := s.registrationRepo.ListByParticipant(ctx, participantID, "")
		if err != nil {
			return nil, err
		}
		for _, reg := range regs {
			regsByEvent[reg.EventID] = reg
		}
	}

	var counts map[string]domain.EventViews
	if s.views != nil && len(events) > 0 {
		ids := make([]string, len(events))
		for i, event := range events {
			ids[i] = event.ID
		}
		var err error
		counts, err = s.views.Counts(ctx, ids)
		if err != nil {
			s.logger.Warn("failed to read view counters", "error", err)
			counts = nil
		}
	}

	listings := make([]*domain.EventListing, len(events))
	for i, event := range events {
		listing := &domain.EventListing{
			Event:      event,
			IsEligible: true,
			Views:      counts[event.ID],
		}
		if participant != nil {
			listing.IsEligible = event.CheckEligibility(participant.ParticipantType)
		}
		if reg, ok := regsByEvent[event.ID]; ok {
			listing.RegistrationStatus = reg.Status
			listing.IsRegistered = reg.Status == domain.RegistrationConfirmed || reg.Status == domain.RegistrationPending
		}
		listings[i] = listing
	}
	return listings, nil
}
