package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RegistrationStatus is the registration lifecycle state. Attendance is
// tracked by the Attended flag, not by a status value: "confirmed and
// attended" is still a confirmed registration.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationRejected  RegistrationStatus = "rejected"
)

// PaymentStatus tracks the payment side of a registration.
type PaymentStatus string

const (
	PaymentPending          PaymentStatus = "pending"
	PaymentCompleted        PaymentStatus = "completed"
	PaymentFailed           PaymentStatus = "failed"
	PaymentRefunded         PaymentStatus = "refunded"
	PaymentAwaitingApproval PaymentStatus = "awaiting_approval"
)

// ApprovalStatus is the manual review decision on a payment proof.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// MerchandiseDetails records what a merchandise registration purchased.
// VariantID is empty for variant-less merchandise events.
type MerchandiseDetails struct {
	VariantID   string          `json:"variantId,omitempty"`
	VariantName string          `json:"variantName"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// PaymentProof is the participant-uploaded evidence for manual review.
type PaymentProof struct {
	ImageURL   string    `json:"imageUrl"`
	UploadedAt time.Time `json:"uploadedAt"`
	Note       string    `json:"note,omitempty"`
}

// PaymentApproval is the organizer's review record.
type PaymentApproval struct {
	Status     ApprovalStatus `json:"status"`
	ReviewedBy *ActorRef      `json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time     `json:"reviewedAt,omitempty"`
	Comment    string         `json:"comment,omitempty"`
}

// Registration is the ledger entry binding a participant to an event. At
// most one registration may exist per (event, participant) pair; the pair
// is enforced by a unique index, not by the pre-check. Registrations are
// never deleted.
type Registration struct {
	ID            string             `json:"id"`
	TicketID      string             `json:"ticketId"`
	EventID       string             `json:"event_id"`
	ParticipantID string             `json:"participant_id"`
	Status        RegistrationStatus `json:"status"`

	FormResponses map[string]any      `json:"formResponses,omitempty"`
	Merchandise   *MerchandiseDetails `json:"merchandiseDetails,omitempty"`

	PaymentStatus   PaymentStatus    `json:"paymentStatus"`
	PaymentAmount   decimal.Decimal  `json:"paymentAmount"`
	PaymentProof    *PaymentProof    `json:"paymentProof,omitempty"`
	PaymentApproval *PaymentApproval `json:"paymentApproval,omitempty"`

	QRCode string `json:"qrCode,omitempty"`

	Attended    bool       `json:"attended"`
	AttendedAt  *time.Time `json:"attendedAt,omitempty"`
	CheckedInBy *ActorRef  `json:"checkedInBy,omitempty"`

	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanBeCancelled reports whether the participant may still cancel: only
// confirmed or pending registrations, never after check-in, and never once
// the event has started.
func (r *Registration) CanBeCancelled(event *Event, now time.Time) bool {
	if r.Attended {
		return false
	}
	if event != nil && event.EventStartDate != nil && !event.EventStartDate.After(now) {
		return false
	}
	return r.Status == RegistrationConfirmed || r.Status == RegistrationPending
}

// StockWasDeducted reports whether this registration is holding variant
// stock. Pending paid orders never deduct stock (deduction is deferred to
// approval), so only confirmed merchandise registrations restore stock on
// cancellation.
func (r *Registration) StockWasDeducted() bool {
	return r.Status == RegistrationConfirmed && r.Merchandise != nil && r.Merchandise.VariantID != ""
}

// AttendanceStats summarizes check-ins for one event.
type AttendanceStats struct {
	Total          int             `json:"total"`
	Attended       int             `json:"attended"`
	NotAttended    int             `json:"notAttended"`
	AttendanceRate int             `json:"attendanceRate"`
	Registrations  []*Registration `json:"registrations"`
}

// RegistrationRepository defines storage operations for registrations.
// The state-transition methods (CreateConfirmed, Cancel, Approve, Reject,
// MarkAttended) run the registration write and the event counter/stock
// mutation in a single transaction using conditional updates; they return
// the conflict sentinels when a condition does not hold.
type RegistrationRepository interface {
	// CreateConfirmed inserts a confirmed registration and increments the
	// event's registration counter if capacity allows (ErrEventFull
	// otherwise). When deductStock is set the variant stock is reduced in
	// the same transaction (ErrInsufficientStock when it cannot be).
	CreateConfirmed(ctx context.Context, reg *Registration, deductStock bool) error
	// CreatePending inserts a pending registration. No counter or stock
	// movement: pending orders are counted and deducted at approval time.
	CreatePending(ctx context.Context, reg *Registration) error

	GetByID(ctx context.Context, id string) (*Registration, error)
	GetByEventAndParticipant(ctx context.Context, eventID, participantID string) (*Registration, error)
	GetByTicketID(ctx context.Context, ticketID, eventID string) (*Registration, error)
	ListByParticipant(ctx context.Context, participantID string, status RegistrationStatus) ([]*Registration, error)
	ListByEvent(ctx context.Context, eventID string, status RegistrationStatus) ([]*Registration, error)
	ListAwaitingApproval(ctx context.Context, eventID string) ([]*Registration, error)
	CountActive(ctx context.Context, eventID string) (int, error)
	CountActiveForEvents(ctx context.Context, eventIDs []string) (int, error)
	TicketIDExists(ctx context.Context, ticketID string) (bool, error)

	// Cancel flips the registration to cancelled, decrements the event
	// counter (floored at zero), and restores variant stock when
	// restoreStock is set.
	Cancel(ctx context.Context, reg *Registration, restoreStock bool) error
	// Approve commits the approval transition: deducts the reserved stock
	// (ErrOversold when the variant ran dry), increments the event counter,
	// and persists the updated registration. Fails with
	// ErrNotAwaitingApproval if the registration moved on concurrently.
	Approve(ctx context.Context, reg *Registration) error
	// Reject persists a rejection. No counter or stock movement.
	Reject(ctx context.Context, reg *Registration) error

	SavePaymentProof(ctx context.Context, reg *Registration) error
	SetQRCode(ctx context.Context, registrationID, qrCode string) error
	// MarkAttended performs the one-way check-in transition. It returns
	// false without error when the registration was already attended.
	MarkAttended(ctx context.Context, registrationID string, at time.Time, by ActorRef) (bool, error)
	AttendanceStats(ctx context.Context, eventID string) (*AttendanceStats, error)
}

// RegistrationIntent is the participant's input to Register.
type RegistrationIntent struct {
	FormResponses map[string]any `json:"formResponses,omitempty"`
	VariantID     string         `json:"variantId,omitempty"`
	Quantity      int            `json:"quantity,omitempty"`
}

// MyRegistrations buckets a participant's registrations for display.
type MyRegistrations struct {
	Upcoming  []*RegistrationWithEvent `json:"upcoming"`
	Completed []*RegistrationWithEvent `json:"completed"`
	Cancelled []*RegistrationWithEvent `json:"cancelled"`
	All       []*RegistrationWithEvent `json:"all"`
}

// RegistrationWithEvent bundles a registration with its event.
type RegistrationWithEvent struct {
	Registration *Registration `json:"registration"`
	Event        *Event        `json:"event"`
}

// RegistrationService is the registration state machine.
type RegistrationService interface {
	Register(ctx context.Context, participantID, eventID string, intent RegistrationIntent) (*Registration, error)
	Cancel(ctx context.Context, participantID, registrationID, reason string) error
	ListMine(ctx context.Context, participantID string, status RegistrationStatus, eventType EventType) (*MyRegistrations, error)
}

// PaymentService is the manual payment-approval workflow.
type PaymentService interface {
	UploadProof(ctx context.Context, participantID, registrationID, imageURL, note string) (*Registration, error)
	Approve(ctx context.Context, reviewer ActorRef, eventID, registrationID, comment string) (*Registration, error)
	Reject(ctx context.Context, reviewer ActorRef, eventID, registrationID, comment string) (*Registration, error)
	ListPending(ctx context.Context, organizerID, eventID string) ([]*Registration, error)
}

// CheckInResult is the outcome of a scan. AlreadyCheckedIn is an expected
// operational case at busy doors, reported as information rather than a
// hard failure; CheckedInAt then carries the original check-in time.
type CheckInResult struct {
	Registration     *Registration `json:"registration"`
	AlreadyCheckedIn bool          `json:"alreadyCheckedIn"`
	CheckedInAt      *time.Time    `json:"checkedInAt,omitempty"`
}

// CheckInService validates tickets at the door.
type CheckInService interface {
	Scan(ctx context.Context, operator ActorRef, eventID, qrData, manualTicketID string) (*CheckInResult, error)
	MarkAttendance(ctx context.Context, operator ActorRef, eventID, registrationID string) (*Registration, error)
	Stats(ctx context.Context, organizerID, eventID string) (*AttendanceStats, error)
}
