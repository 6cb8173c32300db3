package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"felicityevents/internal/domain"
)

func newAuthService(participants *fakeParticipantRepo, organizers *fakeOrganizerRepo) domain.AuthService {
	return NewAuthService(participants, organizers, fakeHasher{}, fakeIssuer{}, time.Hour)
}

func TestSignupParticipant(t *testing.T) {
	participants := newFakeParticipantRepo()
	svc := newAuthService(participants, newFakeOrganizerRepo())

	result, err := svc.SignupParticipant(context.Background(), &domain.ParticipantSignup{
		Email:           "dana@students.iiit.ac.in",
		Password:        "correct horse",
		FirstName:       "Dana",
		LastName:        "Iyer",
		ParticipantType: domain.ParticipantIIIT,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleParticipant, result.Role)
	assert.Equal(t, "Dana Iyer", result.Name)
	assert.NotEmpty(t, result.Token)

	stored, err := participants.GetByEmail(context.Background(), "dana@students.iiit.ac.in")
	require.NoError(t, err)
	assert.Equal(t, "hashed:correct horse", stored.PasswordHash, "password is stored hashed")
}

func TestSignupValidation(t *testing.T) {
	svc := newAuthService(newFakeParticipantRepo(), newFakeOrganizerRepo())

	tests := []struct {
		name  string
		input domain.ParticipantSignup
	}{
		{"bad email", domain.ParticipantSignup{Email: "not-an-email", Password: "longenough", FirstName: "D"}},
		{"short password", domain.ParticipantSignup{Email: "d@example.org", Password: "short", FirstName: "D"}},
		{"missing first name", domain.ParticipantSignup{Email: "d@example.org", Password: "longenough"}},
		{"unknown type", domain.ParticipantSignup{Email: "d@example.org", Password: "longenough", FirstName: "D", ParticipantType: "alumni"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignupParticipant(context.Background(), &tt.input)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newAuthService(newFakeParticipantRepo(), newFakeOrganizerRepo())
	input := &domain.ParticipantSignup{
		Email:     "dana@example.org",
		Password:  "correct horse",
		FirstName: "Dana",
	}
	_, err := svc.SignupParticipant(context.Background(), input)
	require.NoError(t, err)
	_, err = svc.SignupParticipant(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestLoginParticipant(t *testing.T) {
	participants := newFakeParticipantRepo()
	svc := newAuthService(participants, newFakeOrganizerRepo())
	_, err := svc.SignupParticipant(context.Background(), &domain.ParticipantSignup{
		Email:     "dana@example.org",
		Password:  "correct horse",
		FirstName: "Dana",
	})
	require.NoError(t, err)

	result, err := svc.LoginParticipant(context.Background(), "dana@example.org", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleParticipant, result.Role)

	_, err = svc.LoginParticipant(context.Background(), "dana@example.org", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidLogin)

	// Unknown accounts produce the same error as a wrong password.
	_, err = svc.LoginParticipant(context.Background(), "nobody@example.org", "whatever")
	assert.ErrorIs(t, err, domain.ErrInvalidLogin)
}

func TestLoginSeededAdmin(t *testing.T) {
	participants := newFakeParticipantRepo()
	admin := &domain.Participant{
		Email:        "admin@felicity.iiit.ac.in",
		PasswordHash: "hashed:admin secret",
		FirstName:    "Admin",
		Role:         domain.RoleAdmin,
	}
	require.NoError(t, participants.Create(context.Background(), admin))
	svc := newAuthService(participants, newFakeOrganizerRepo())

	result, err := svc.LoginParticipant(context.Background(), "admin@felicity.iiit.ac.in", "admin secret")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, result.Role)
}

func TestLoginOrganizer(t *testing.T) {
	organizers := newFakeOrganizerRepo()
	require.NoError(t, organizers.Create(context.Background(), &domain.Organizer{
		LoginEmail:   "club@felicity.example",
		PasswordHash: "hashed:club secret",
		Name:         "Programming Club",
		IsActive:     true,
	}))
	svc := newAuthService(newFakeParticipantRepo(), organizers)

	result, err := svc.LoginOrganizer(context.Background(), "club@felicity.example", "club secret")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOrganizer, result.Role)
	assert.Equal(t, "Programming Club", result.Name)

	_, err = svc.LoginOrganizer(context.Background(), "club@felicity.example", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidLogin)
}

func TestLoginDeactivatedOrganizer(t *testing.T) {
	organizers := newFakeOrganizerRepo()
	require.NoError(t, organizers.Create(context.Background(), &domain.Organizer{
		LoginEmail:   "club@felicity.example",
		PasswordHash: "hashed:club secret",
		Name:         "Programming Club",
		IsActive:     false,
	}))
	svc := newAuthService(newFakeParticipantRepo(), organizers)

	_, err := svc.LoginOrganizer(context.Background(), "club@felicity.example", "club secret")
	assert.ErrorIs(t, err, domain.ErrAccountInactive)
}
