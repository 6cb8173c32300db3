package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// TicketEmailData holds data for the ticket confirmation email.
type TicketEmailData struct {
	Email           string
	ParticipantName string
	EventName       string
	EventStart      *time.Time
	TicketID        string
	QRCodeDataURL   string
}

// OrderEmailData holds data for the merchandise order-received email.
type OrderEmailData struct {
	Email           string
	ParticipantName string
	EventName       string
	TicketID        string
	VariantName     string
	Quantity        int
	Amount          string
}

// OrderReviewEmailData holds data for the approval/rejection emails.
type OrderReviewEmailData struct {
	Email           string
	ParticipantName string
	EventName       string
	TicketID        string
	Comment         string
	QRCodeDataURL   string
}

// OrganizerWelcomeEmailData holds data for the provisioning email sent when
// an admin creates an organizer account.
type OrganizerWelcomeEmailData struct {
	Email             string
	OrganizerName     string
	LoginEmail        string
	TemporaryPassword string
}

// EmailService sends the platform's domain emails. All sends are
// best-effort from the caller's perspective: callers log failures and
// never roll back the state transition that triggered the email.
type EmailService interface {
	SendTicket(ctx context.Context, data *TicketEmailData) error
	SendOrderReceived(ctx context.Context, data *OrderEmailData) error
	SendOrderApproved(ctx context.Context, data *OrderReviewEmailData) error
	SendOrderRejected(ctx context.Context, data *OrderReviewEmailData) error
	SendOrganizerWelcome(ctx context.Context, data *OrganizerWelcomeEmailData) error
}
