package domain

import (
	"context"
	"time"
)

// Organizer is a club or council account provisioned by an admin. It is the
// authorization boundary for events: every event is owned by exactly one
// organizer.
type Organizer struct {
	ID            string    `json:"id"`
	LoginEmail    string    `json:"login_email"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	Category      string    `json:"category,omitempty"`
	Description   string    `json:"description,omitempty"`
	ContactEmail  string    `json:"contact_email,omitempty"`
	ContactNumber string    `json:"contact_number,omitempty"`
	WebhookURL    string    `json:"webhook_url,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OrganizerRepository defines storage operations for organizers.
type OrganizerRepository interface {
	Create(ctx context.Context, o *Organizer) error
	GetByID(ctx context.Context, id string) (*Organizer, error)
	GetByLoginEmail(ctx context.Context, email string) (*Organizer, error)
	List(ctx context.Context, activeOnly bool, category string) ([]*Organizer, error)
	Update(ctx context.Context, o *Organizer) error
	SetActive(ctx context.Context, id string, active bool) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// ActorKind discriminates the tagged ActorRef union.
type ActorKind string

const (
	ActorOrganizer ActorKind = "organizer"
	ActorAdmin     ActorKind = "admin"
)

// ActorRef identifies who performed a privileged action (payment review,
// check-in). Tagged union instead of a bare id plus string discriminator.
type ActorRef struct {
	Kind ActorKind `json:"kind"`
	ID   string    `json:"id"`
}
