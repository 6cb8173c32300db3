package services

import (
	"context"
	"fmt"
	"time"

	"felicityevents/internal/domain"
)

// In-memory fakes used across the service tests. The registration fake
// mirrors the storage layer's conditional-update semantics (capacity claim,
// stock deduction, one-way check-in) so the services are tested against the
// same contract they run on in production.

type fakeEventRepo struct {
	byID   map[string]*domain.Event
	nextID int
	err    error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byID: make(map[string]*domain.Event), nextID: 1}
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if f.err != nil {
		return f.err
	}
	e.RecomputeTotalStock()
	e.ID = fmt.Sprintf("event-%d", f.nextID)
	f.nextID++
	f.byID[e.ID] = e
	return nil
}

// GetByID returns a shallow copy so callers that mutate and then fail to
// save do not corrupt the store.
func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if e, ok := f.byID[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) ListPublished(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range f.byID {
		if e.Status != domain.EventPublished {
			continue
		}
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEventRepo) ListByOrganizer(ctx context.Context, organizerID string, status domain.EventStatus, eventType domain.EventType) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range f.byID {
		if e.OrganizerID != organizerID {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		if eventType != "" && e.EventType != eventType {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, e *domain.Event) error {
	if _, ok := f.byID[e.ID]; !ok {
		return domain.ErrNotFound
	}
	e.RecomputeTotalStock()
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeRegistrationRepo struct {
	byID   map[string]*domain.Registration
	events *fakeEventRepo
	nextID int

	createErr error
}

func newFakeRegistrationRepo(events *fakeEventRepo) *fakeRegistrationRepo {
	return &fakeRegistrationRepo{byID: make(map[string]*domain.Registration), events: events, nextID: 1}
}

func (f *fakeRegistrationRepo) insert(reg *domain.Registration) error {
	for _, existing := range f.byID {
		if existing.EventID == reg.EventID && existing.ParticipantID == reg.ParticipantID {
			return domain.ErrAlreadyRegistered
		}
		if existing.TicketID == reg.TicketID {
			return domain.ErrTicketIDConflict
		}
	}
	reg.ID = fmt.Sprintf("reg-%d", f.nextID)
	f.nextID++
	reg.CreatedAt = time.Now()
	copied := *reg
	f.byID[reg.ID] = &copied
	return nil
}

func (f *fakeRegistrationRepo) CreateConfirmed(ctx context.Context, reg *domain.Registration, deductStock bool) error {
	if f.createErr != nil {
		return f.createErr
	}
	event := f.events.byID[reg.EventID]
	if event.RegistrationLimit != nil && event.CurrentRegistrations >= *event.RegistrationLimit {
		return domain.ErrEventFull
	}
	if deductStock {
		variant := event.FindVariant(reg.Merchandise.VariantID)
		if variant == nil || variant.Stock < reg.Merchandise.Quantity {
			return domain.ErrInsufficientStock
		}
		variant.Stock -= reg.Merchandise.Quantity
		event.RecomputeTotalStock()
	}
	if err := f.insert(reg); err != nil {
		return err
	}
	event.CurrentRegistrations++
	return nil
}

func (f *fakeRegistrationRepo) CreatePending(ctx context.Context, reg *domain.Registration) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.insert(reg)
}

func (f *fakeRegistrationRepo) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	if reg, ok := f.byID[id]; ok {
		copied := *reg
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) GetByEventAndParticipant(ctx context.Context, eventID, participantID string) (*domain.Registration, error) {
	for _, reg := range f.byID {
		if reg.EventID == eventID && reg.ParticipantID == participantID {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) GetByTicketID(ctx context.Context, ticketID, eventID string) (*domain.Registration, error) {
	for _, reg := range f.byID {
		if reg.TicketID == ticketID && reg.EventID == eventID {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) ListByParticipant(ctx context.Context, participantID string, status domain.RegistrationStatus) ([]*domain.Registration, error) {
	var out []*domain.Registration
	for _, reg := range f.byID {
		if reg.ParticipantID != participantID {
			continue
		}
		if status != "" && reg.Status != status {
			continue
		}
		copied := *reg
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeRegistrationRepo) ListByEvent(ctx context.Context, eventID string, status domain.RegistrationStatus) ([]*domain.Registration, error) {
	var out []*domain.Registration
	for _, reg := range f.byID {
		if reg.EventID != eventID {
			continue
		}
		if status != "" && reg.Status != status {
			continue
		}
		copied := *reg
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeRegistrationRepo) ListAwaitingApproval(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	var out []*domain.Registration
	for _, reg := range f.byID {
		if reg.EventID == eventID && reg.PaymentStatus == domain.PaymentAwaitingApproval {
			copied := *reg
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRegistrationRepo) CountActive(ctx context.Context, eventID string) (int, error) {
	n := 0
	for _, reg := range f.byID {
		if reg.EventID == eventID && (reg.Status == domain.RegistrationConfirmed || reg.Status == domain.RegistrationPending) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRegistrationRepo) CountActiveForEvents(ctx context.Context, eventIDs []string) (int, error) {
	n := 0
	for _, id := range eventIDs {
		c, _ := f.CountActive(ctx, id)
		n += c
	}
	return n, nil
}

func (f *fakeRegistrationRepo) TicketIDExists(ctx context.Context, ticketID string) (bool, error) {
	for _, reg := range f.byID {
		if reg.TicketID == ticketID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRegistrationRepo) Cancel(ctx context.Context, reg *domain.Registration, restoreStock bool) error {
	stored, ok := f.byID[reg.ID]
	if !ok || stored.Attended || (stored.Status != domain.RegistrationConfirmed && stored.Status != domain.RegistrationPending) {
		return domain.ErrNotCancellable
	}
	stored.Status = domain.RegistrationCancelled
	stored.CancelledAt = reg.CancelledAt
	stored.CancellationReason = reg.CancellationReason

	event := f.events.byID[stored.EventID]
	if event.CurrentRegistrations > 0 {
		event.CurrentRegistrations--
	}
	if restoreStock {
		if variant := event.FindVariant(stored.Merchandise.VariantID); variant != nil {
			variant.Stock += stored.Merchandise.Quantity
			event.RecomputeTotalStock()
		}
	}
	return nil
}

func (f *fakeRegistrationRepo) Approve(ctx context.Context, reg *domain.Registration) error {
	stored, ok := f.byID[reg.ID]
	if !ok || stored.PaymentStatus != domain.PaymentAwaitingApproval {
		return domain.ErrNotAwaitingApproval
	}
	event := f.events.byID[stored.EventID]
	if stored.Merchandise != nil && stored.Merchandise.VariantID != "" {
		variant := event.FindVariant(stored.Merchandise.VariantID)
		if variant == nil || variant.Stock < stored.Merchandise.Quantity {
			return domain.ErrOversold
		}
		variant.Stock -= stored.Merchandise.Quantity
		event.RecomputeTotalStock()
	}
	if event.RegistrationLimit != nil && event.CurrentRegistrations >= *event.RegistrationLimit {
		return domain.ErrEventFull
	}
	event.CurrentRegistrations++
	stored.Status = domain.RegistrationConfirmed
	stored.PaymentStatus = domain.PaymentCompleted
	stored.PaymentApproval = reg.PaymentApproval
	stored.QRCode = reg.QRCode
	return nil
}

func (f *fakeRegistrationRepo) Reject(ctx context.Context, reg *domain.Registration) error {
	stored, ok := f.byID[reg.ID]
	if !ok || stored.PaymentStatus != domain.PaymentAwaitingApproval {
		return domain.ErrNotAwaitingApproval
	}
	stored.Status = domain.RegistrationRejected
	stored.PaymentStatus = domain.PaymentFailed
	stored.PaymentApproval = reg.PaymentApproval
	return nil
}

func (f *fakeRegistrationRepo) SavePaymentProof(ctx context.Context, reg *domain.Registration) error {
	stored, ok := f.byID[reg.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.PaymentProof = reg.PaymentProof
	stored.PaymentStatus = domain.PaymentAwaitingApproval
	stored.PaymentApproval = &domain.PaymentApproval{Status: domain.ApprovalPending}
	return nil
}

func (f *fakeRegistrationRepo) SetQRCode(ctx context.Context, registrationID, qrCode string) error {
	stored, ok := f.byID[registrationID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.QRCode = qrCode
	return nil
}

func (f *fakeRegistrationRepo) MarkAttended(ctx context.Context, registrationID string, at time.Time, by domain.ActorRef) (bool, error) {
	stored, ok := f.byID[registrationID]
	if !ok || stored.Status != domain.RegistrationConfirmed || stored.Attended {
		return false, nil
	}
	stored.Attended = true
	stored.AttendedAt = &at
	stored.CheckedInBy = &by
	return true, nil
}

func (f *fakeRegistrationRepo) AttendanceStats(ctx context.Context, eventID string) (*domain.AttendanceStats, error) {
	stats := &domain.AttendanceStats{}
	regs, _ := f.ListByEvent(ctx, eventID, domain.RegistrationConfirmed)
	for _, reg := range regs {
		stats.Total++
		if reg.Attended {
			stats.Attended++
		}
	}
	stats.NotAttended = stats.Total - stats.Attended
	if stats.Total > 0 {
		stats.AttendanceRate = stats.Attended * 100 / stats.Total
	}
	stats.Registrations = regs
	return stats, nil
}

type fakeParticipantRepo struct {
	byID map[string]*domain.Participant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{byID: make(map[string]*domain.Participant)}
}

func (f *fakeParticipantRepo) Create(ctx context.Context, p *domain.Participant) error {
	for _, existing := range f.byID {
		if existing.Email == p.Email {
			return domain.ErrDuplicateEmail
		}
	}
	p.ID = fmt.Sprintf("participant-%d", len(f.byID)+1)
	f.byID[p.ID] = p
	return nil
}

func (f *fakeParticipantRepo) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeParticipantRepo) GetByEmail(ctx context.Context, email string) (*domain.Participant, error) {
	for _, p := range f.byID {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeParticipantRepo) Update(ctx context.Context, p *domain.Participant) error {
	if _, ok := f.byID[p.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[p.ID] = p
	return nil
}

type fakeOrganizerRepo struct {
	byID map[string]*domain.Organizer
}

func newFakeOrganizerRepo() *fakeOrganizerRepo {
	return &fakeOrganizerRepo{byID: make(map[string]*domain.Organizer)}
}

func (f *fakeOrganizerRepo) Create(ctx context.Context, o *domain.Organizer) error {
	for _, existing := range f.byID {
		if existing.LoginEmail == o.LoginEmail {
			return domain.ErrDuplicateEmail
		}
	}
	o.ID = fmt.Sprintf("org-%d", len(f.byID)+1)
	f.byID[o.ID] = o
	return nil
}

func (f *fakeOrganizerRepo) GetByID(ctx context.Context, id string) (*domain.Organizer, error) {
	if o, ok := f.byID[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrganizerRepo) GetByLoginEmail(ctx context.Context, email string) (*domain.Organizer, error) {
	for _, o := range f.byID {
		if o.LoginEmail == email {
			copied := *o
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrganizerRepo) List(ctx context.Context, activeOnly bool, category string) ([]*domain.Organizer, error) {
	var out []*domain.Organizer
	for _, o := range f.byID {
		if activeOnly && !o.IsActive {
			continue
		}
		if category != "" && o.Category != category {
			continue
		}
		copied := *o
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeOrganizerRepo) Update(ctx context.Context, o *domain.Organizer) error {
	if _, ok := f.byID[o.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[o.ID] = o
	return nil
}

func (f *fakeOrganizerRepo) SetActive(ctx context.Context, id string, active bool) error {
	o, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.IsActive = active
	return nil
}

func (f *fakeOrganizerRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	o, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.PasswordHash = passwordHash
	return nil
}

// fakeEmails records which emails were sent, by template name.
type fakeEmails struct {
	sent []string
	err  error
}

func (f *fakeEmails) record(name string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, name)
	return nil
}

func (f *fakeEmails) SendTicket(ctx context.Context, data *domain.TicketEmailData) error {
	return f.record("ticket")
}

func (f *fakeEmails) SendOrderReceived(ctx context.Context, data *domain.OrderEmailData) error {
	return f.record("order_received")
}

func (f *fakeEmails) SendOrderApproved(ctx context.Context, data *domain.OrderReviewEmailData) error {
	return f.record("order_approved")
}

func (f *fakeEmails) SendOrderRejected(ctx context.Context, data *domain.OrderReviewEmailData) error {
	return f.record("order_rejected")
}

func (f *fakeEmails) SendOrganizerWelcome(ctx context.Context, data *domain.OrganizerWelcomeEmailData) error {
	return f.record("organizer_welcome")
}

type fakeNotifier struct {
	published []domain.Notification
	err       error
}

func (f *fakeNotifier) Publish(ctx context.Context, n domain.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, n)
	return nil
}

func (f *fakeNotifier) Close() error { return nil }

func (f *fakeNotifier) names() []string {
	out := make([]string, len(f.published))
	for i, n := range f.published {
		out[i] = n.Name
	}
	return out
}

type fakeAnnouncer struct {
	announced []string
	err       error
}

func (f *fakeAnnouncer) AnnounceEvent(ctx context.Context, event *domain.Event, organizer *domain.Organizer) error {
	if f.err != nil {
		return f.err
	}
	f.announced = append(f.announced, event.ID)
	return nil
}

type fakeViewTracker struct {
	recorded []string
	counts   map[string]domain.EventViews
}

func (f *fakeViewTracker) RecordView(ctx context.Context, eventID string) error {
	f.recorded = append(f.recorded, eventID)
	return nil
}

func (f *fakeViewTracker) Counts(ctx context.Context, eventIDs []string) (map[string]domain.EventViews, error) {
	return f.counts, nil
}

// fakeHasher stores passwords with a reversible marker instead of a real
// hash to keep tests fast.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (fakeHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return domain.ErrInvalidLogin
	}
	return nil
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(subjectID string, role domain.Role, expiry time.Duration) (string, error) {
	return fmt.Sprintf("token:%s:%s", subjectID, role), nil
}
