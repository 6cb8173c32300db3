package domain

import (
	"context"
	"time"
)

// ParticipantType partitions participants for eligibility checks.
type ParticipantType string

const (
	ParticipantIIIT    ParticipantType = "iiit"
	ParticipantNonIIIT ParticipantType = "non-iiit"
)

// Role identifies what a token subject is allowed to do.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleOrganizer   Role = "organizer"
	RoleAdmin       Role = "admin"
)

// Participant is a registered user who browses and registers for events.
// Admins are participants with RoleAdmin (seeded, not self-registered).
type Participant struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	PasswordHash    string          `json:"-"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	ParticipantType ParticipantType `json:"participant_type"`
	CollegeName     string          `json:"college_name,omitempty"`
	ContactNumber   string          `json:"contact_number,omitempty"`
	Role            Role            `json:"role"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// FullName returns the display name used on tickets and emails.
func (p *Participant) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// ParticipantRepository defines storage operations for participants.
type ParticipantRepository interface {
	Create(ctx context.Context, p *Participant) error
	GetByID(ctx context.Context, id string) (*Participant, error)
	GetByEmail(ctx context.Context, email string) (*Participant, error)
	Update(ctx context.Context, p *Participant) error
}
