package domain

import (
	"context"
	"time"
)

// TokenClaims is the verified identity carried by an access token.
type TokenClaims struct {
	SubjectID string
	Role      Role
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(subjectID string, role Role, expiry time.Duration) (string, error)
}

// TokenVerifier validates access tokens and extracts the claims.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// AuthResult bundles a signed token with the authenticated identity.
type AuthResult struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ParticipantSignup is the input for participant self-registration.
type ParticipantSignup struct {
	Email           string
	Password        string
	FirstName       string
	LastName        string
	ParticipantType ParticipantType
	CollegeName     string
	ContactNumber   string
}

// AuthService authenticates participants (and the seeded admin) and
// organizers.
type AuthService interface {
	SignupParticipant(ctx context.Context, input *ParticipantSignup) (*AuthResult, error)
	LoginParticipant(ctx context.Context, email, password string) (*AuthResult, error)
	LoginOrganizer(ctx context.Context, loginEmail, password string) (*AuthResult, error)
}

// OrganizerInput is the admin's input when provisioning an organizer.
type OrganizerInput struct {
	LoginEmail    string
	Password      string // optional; generated when empty
	Name          string
	Category      string
	Description   string
	ContactEmail  string
	ContactNumber string
	WebhookURL    string
}

// ProvisionedOrganizer is returned once at creation time; the temporary
// password is never retrievable again.
type ProvisionedOrganizer struct {
	Organizer         *Organizer `json:"organizer"`
	TemporaryPassword string     `json:"temporaryPassword"`
}

// AdminService provisions and manages organizer accounts.
type AdminService interface {
	CreateOrganizer(ctx context.Context, adminID string, input *OrganizerInput) (*ProvisionedOrganizer, error)
	ListOrganizers(ctx context.Context, activeOnly bool, category string) ([]*Organizer, error)
	GetOrganizer(ctx context.Context, id string) (*Organizer, error)
	SetOrganizerActive(ctx context.Context, id string, active bool) (*Organizer, error)
	ResetOrganizerPassword(ctx context.Context, id string) (*ProvisionedOrganizer, error)
}
