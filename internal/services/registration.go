package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"felicityevents/internal/domain"
	"felicityevents/internal/monitoring"
	"felicityevents/internal/ticket"
)

// createAttempts bounds the retry loop around ticket-id collisions detected
// by the unique index at insert time.
const createAttempts = 3

type registrationService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	participantRepo  domain.ParticipantRepository
	emails           domain.EmailService
	notifier         domain.Notifier
	metrics          *monitoring.Metrics
	logger           *slog.Logger
	now              func() time.Time
}

// NewRegistrationService creates the registration state machine.
func NewRegistrationService(
	eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	participantRepo domain.ParticipantRepository,
	emails domain.EmailService,
	notifier domain.Notifier,
	metrics *monitoring.Metrics,
	logger *slog.Logger,
) domain.RegistrationService {
	return &registrationService{
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

func (s *registrationService) Register(ctx context.Context, participantID, eventID string, intent domain.RegistrationIntent) (*domain.Registration, error) {
	participant, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}

	// Preconditions, in a fixed order so a request failing several of them
	// always reports the same one.
	if err := s.checkPreconditions(ctx, event, participant); err != nil {
		s.metrics.Registration("refused")
		return nil, err
	}

	reg := &domain.Registration{
		EventID:       eventID,
		ParticipantID: participantID,
		PaymentAmount: decimal.Zero,
	}
	deductStock := false

	switch event.EventType {
	case domain.EventMerchandise:
		if err := buildOrder(event, intent, reg); err != nil {
			s.metrics.Registration("refused")
			return nil, err
		}
		if reg.Merchandise.TotalPrice.IsPositive() {
			// Paid orders wait for manual payment review; stock moves only
			// when the review approves.
			reg.Status = domain.RegistrationPending
			reg.PaymentStatus = domain.PaymentPending
		} else {
			reg.Status = domain.RegistrationConfirmed
			reg.PaymentStatus = domain.PaymentCompleted
			deductStock = reg.Merchandise.VariantID != ""
		}
		reg.PaymentAmount = reg.Merchandise.TotalPrice
	default:
		if err := validateFormResponses(event.CustomForm, intent.FormResponses); err != nil {
			s.metrics.Registration("refused")
			return nil, err
		}
		reg.FormResponses = intent.FormResponses
		reg.Status = domain.RegistrationConfirmed
		reg.PaymentStatus = domain.PaymentCompleted
		reg.PaymentAmount = event.RegistrationFee
	}

	if err := s.create(ctx, reg, deductStock); err != nil {
		if errors.Is(err, domain.ErrEventFull) || errors.Is(err, domain.ErrAlreadyRegistered) || errors.Is(err, domain.ErrInsufficientStock) {
			s.metrics.Registration("refused")
		}
		return nil, err
	}

	if reg.Status == domain.RegistrationConfirmed {
		s.metrics.Registration("confirmed")
		s.finalizeConfirmed(ctx, event, participant, reg)
	} else {
		s.metrics.Registration("pending")
		s.sendOrderReceived(ctx, event, participant, reg)
	}
	return reg, nil
}

func (s *registrationService) checkPreconditions(ctx context.Context, event *domain.Event, participant *domain.Participant) error {
	now := s.now()
	if event.Status != domain.EventPublished {
		return domain.ErrNotPublished
	}
	if event.RegistrationDeadline == nil || !now.Before(*event.RegistrationDeadline) {
		return domain.ErrRegistrationClosed
	}
	if !event.CheckEligibility(participant.ParticipantType) {
		return domain.ErrNotEligible
	}
	if _, err := s.registrationRepo.GetByEventAndParticipant(ctx, event.ID, participant.ID); err == nil {
		return domain.ErrAlreadyRegistered
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get registration: %w", err)
	}
	// Advisory only; the conditional counter increment at insert time is
	// what actually enforces the limit.
	if !event.HasCapacity() {
		return domain.ErrEventFull
	}
	return nil
}

// buildOrder resolves the purchased variant and prices the order.
func buildOrder(event *domain.Event, intent domain.RegistrationIntent, reg *domain.Registration) error {
	quantity := intent.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return domain.ErrInvalidInput
	}

	merch := event.Merchandise
	unitPrice := event.RegistrationFee
	details := &domain.MerchandiseDetails{
		VariantName: "Default",
		Quantity:    quantity,
	}
	if merch != nil && len(merch.Variants) > 0 {
		// Resolve the variant first so a bad variant reports as such even
		// when the quantity is also out of bounds.
		if intent.VariantID == "" {
			return domain.ErrVariantRequired
		}
		variant := event.FindVariant(intent.VariantID)
		if variant == nil {
			return domain.ErrVariantNotFound
		}
		if merch.PurchaseLimit > 0 && quantity > merch.PurchaseLimit {
			return domain.ErrPurchaseLimitExceeded
		}
		if variant.Stock < quantity {
			return domain.ErrInsufficientStock
		}
		details.VariantID = variant.ID
		details.VariantName = variantLabel(variant)
		unitPrice = unitPrice.Add(variant.PriceModifier)
	} else if merch != nil && merch.PurchaseLimit > 0 && quantity > merch.PurchaseLimit {
		return domain.ErrPurchaseLimitExceeded
	}
	details.TotalPrice = unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	reg.Merchandise = details
	return nil
}

func variantLabel(v *domain.Variant) string {
	parts := []string{v.Name}
	if v.Size != "" {
		parts = append(parts, v.Size)
	}
	if v.Color != "" {
		parts = append(parts, v.Color)
	}
	return strings.Join(parts, " / ")
}

func validateFormResponses(form []domain.FormField, responses map[string]any) error {
	for _, field := range form {
		if !field.Required {
			continue
		}
		value, ok := responses[field.ID]
		if !ok || value == nil {
			return domain.ErrInvalidInput
		}
		if str, isString := value.(string); isString && strings.TrimSpace(str) == "" {
			return domain.ErrInvalidInput
		}
	}
	return nil
}

// create inserts the registration under a fresh ticket id, retrying when the
// id loses a uniqueness race at insert time.
func (s *registrationService) create(ctx context.Context, reg *domain.Registration, deductStock bool) error {
	for attempt := 0; attempt < createAttempts; attempt++ {
		ticketID, err := ticket.Generate(ctx, s.registrationRepo.TicketIDExists)
		if err != nil {
			return err
		}
		reg.TicketID = ticketID

		if reg.Status == domain.RegistrationConfirmed {
			err = s.registrationRepo.CreateConfirmed(ctx, reg, deductStock)
		} else {
			err = s.registrationRepo.CreatePending(ctx, reg)
		}
		if errors.Is(err, domain.ErrTicketIDConflict) {
			continue
		}
		return err
	}
	return domain.ErrTicketIDConflict
}

// finalizeConfirmed runs the best-effort side effects of a confirmed
// registration. None of them can undo the committed registration.
func (s *registrationService) finalizeConfirmed(ctx context.Context, event *domain.Event, participant *domain.Participant, reg *domain.Registration) {
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
		if err := s.registrationRepo.SetQRCode(ctx, reg.ID, qr); err != nil {
			s.logger.Error("failed to store ticket qr", "registration_id", reg.ID, "error", err)
		}
	}

	if err := s.emails.SendTicket(ctx, &domain.TicketEmailData{
		Email:           participant.Email,
		ParticipantName: participant.FullName(),
		EventName:       event.Name,
		EventStart:      event.EventStartDate,
		TicketID:        reg.TicketID,
		QRCodeDataURL:   reg.QRCode,
	}); err != nil {
		s.logger.Error("failed to send ticket email", "registration_id", reg.ID, "error", err)
	}

	s.publish(ctx, event.ID, domain.NotifyRegistrationConfirmed, map[string]any{
		"registrationId": reg.ID,
		"ticketId":       reg.TicketID,
	})
}

func (s *registrationService) sendOrderReceived(ctx context.Context, event *domain.Event, participant *domain.Participant, reg *domain.Registration) {
	if err := s.emails.SendOrderReceived(ctx, &domain.OrderEmailData{
		Email:           participant.Email,
		ParticipantName: participant.FullName(),
		EventName:       event.Name,
		TicketID:        reg.TicketID,
		VariantName:     reg.Merchandise.VariantName,
		Quantity:        reg.Merchandise.Quantity,
		Amount:          reg.Merchandise.TotalPrice.StringFixed(2),
	}); err != nil {
		s.logger.Error("failed to send order email", "registration_id", reg.ID, "error", err)
	}
}

func (s *registrationService) publish(ctx context.Context, eventID, name string, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Publish(ctx, domain.Notification{
		EventID:    eventID,
		Name:       name,
		OccurredAt: s.now(),
		Payload:    payload,
	})
	if err != nil {
		s.logger.Error("failed to publish notification", "name", name, "event_id", eventID, "error", err)
	}
}

func (s *registrationService) Cancel(ctx context.Context, participantID, registrationID, reason string) error {
	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		return fmt.Errorf("get registration: %w", err)
	}
	if reg.ParticipantID != participantID {
		return domain.ErrForbidden
	}

	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get event: %w", err)
	}
	now := s.now()
	if !reg.CanBeCancelled(event, now) {
		return domain.ErrNotCancellable
	}

	restoreStock := reg.StockWasDeducted()
	reg.CancelledAt = &now
	reg.CancellationReason = reason
	if err := s.registrationRepo.Cancel(ctx, reg, restoreStock); err != nil {
		return err
	}
	reg.Status = domain.RegistrationCancelled
	s.metrics.Registration("cancelled")
	return nil
}

func (s *registrationService) ListMine(ctx context.Context, participantID string, status domain.RegistrationStatus, eventType domain.EventType) (*domain.MyRegistrations, error) {
	regs, err := s.registrationRepo.ListByParticipant(ctx, participantID, status)
	if err != nil {
		return nil, err
	}

	result := &domain.MyRegistrations{
		Upcoming:  []*domain.RegistrationWithEvent{},
		Completed: []*domain.RegistrationWithEvent{},
		Cancelled: []*domain.RegistrationWithEvent{},
		All:       []*domain.RegistrationWithEvent{},
	}
	events := make(map[string]*domain.Event)
	now := s.now()

	for _, reg := range regs {
		event, ok := events[reg.EventID]
		if !ok {
			event, err = s.eventRepo.GetByID(ctx, reg.EventID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("get event: %w", err)
			}
			events[reg.EventID] = event
		}
		if eventType != "" && event.EventType != eventType {
			continue
		}

		entry := &domain.RegistrationWithEvent{Registration: reg, Event: event}
		result.All = append(result.All, entry)
		switch {
		case reg.Status == domain.RegistrationCancelled || reg.Status == domain.RegistrationRejected:
			result.Cancelled = append(result.Cancelled, entry)
		case event.Status == domain.EventCompleted,
			event.EventEndDate != nil && event.EventEndDate.Before(now):
			result.Completed = append(result.Completed, entry)
		default:
			result.Upcoming = append(result.Upcoming, entry)
		}
	}

	sort.SliceStable(result.Upcoming, func(i, j int) bool {
		a, b := result.Upcoming[i].Event.EventStartDate, result.Upcoming[j].Event.EventStartDate
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.Before(*b)
	})
	return result, nil
}
