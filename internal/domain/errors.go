package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected business-rule violations. Services wrap
// storage faults with fmt.Errorf instead; anything not matching a sentinel
// is treated as internal by the HTTP layer.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")

	ErrDuplicateEmail  = errors.New("email already in use")
	ErrInvalidLogin    = errors.New("invalid email or password")
	ErrAccountInactive = errors.New("account is deactivated")

	// Registration preconditions, in the order they are checked.
	ErrNotPublished       = errors.New("event is not open for registration")
	ErrRegistrationClosed = errors.New("registration is closed for this event")
	ErrNotEligible        = errors.New("not eligible for this event")
	ErrAlreadyRegistered  = errors.New("already registered for this event")
	ErrEventFull          = errors.New("event registration is full")

	// Merchandise.
	ErrVariantRequired       = errors.New("a variant must be selected")
	ErrVariantNotFound       = errors.New("invalid variant selected")
	ErrPurchaseLimitExceeded = errors.New("quantity exceeds the per-person purchase limit")
	ErrInsufficientStock     = errors.New("insufficient stock")
	// ErrOversold is returned when approving a pending order whose variant
	// ran out of stock after the order was placed. Pending orders hold no
	// stock, so this is resolved at approval time: first approved wins.
	ErrOversold = errors.New("variant is out of stock; order cannot be approved")

	ErrNotCancellable      = errors.New("this registration cannot be cancelled")
	ErrPaymentCompleted    = errors.New("payment already approved")
	ErrNotAwaitingApproval = errors.New("registration is not awaiting payment approval")

	// Check-in.
	ErrWrongEvent        = errors.New("this ticket is for a different event")
	ErrInvalidCredential = errors.New("invalid QR code data")
	ErrTicketIDConflict  = errors.New("ticket id already exists")

	// Event lifecycle.
	ErrEventLocked            = errors.New("cannot edit a cancelled event")
	ErrHasActiveRegistrations = errors.New("event has active registrations")
)

// WrongStatusError reports a check-in attempt against a registration that is
// not confirmed. The current status is part of the operator-facing message.
type WrongStatusError struct {
	Status RegistrationStatus
}

func (e *WrongStatusError) Error() string {
	return fmt.Sprintf("ticket status is '%s' - cannot mark attendance", e.Status)
}
