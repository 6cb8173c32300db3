package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"felicityevents/internal/domain"
)

func TestCreateOrganizerGeneratesPassword(t *testing.T) {
	organizers := newFakeOrganizerRepo()
	emails := &fakeEmails{}
	svc := NewAdminService(organizers, fakeHasher{}, emails, testLogger())

	provisioned, err := svc.CreateOrganizer(context.Background(), "admin-1", &domain.OrganizerInput{
		LoginEmail: "club@felicity.example",
		Name:       "Programming Club",
		Category:   "technical",
	})
	require.NoError(t, err)

	assert.Len(t, provisioned.TemporaryPassword, 12)
	assert.Equal(t, "hashed:"+provisioned.TemporaryPassword, provisioned.Organizer.PasswordHash)
	assert.True(t, provisioned.Organizer.IsActive)
	assert.Equal(t, "admin-1", provisioned.Organizer.CreatedBy)
	assert.Equal(t, []string{"organizer_welcome"}, emails.sent)
}

func TestCreateOrganizerWelcomeEmailFailureIsNotFatal(t *testing.T) {
	organizers := newFakeOrganizerRepo()
	emails := &fakeEmails{err: assert.AnError}
	svc := NewAdminService(organizers, fakeHasher{}, emails, testLogger())

	provisioned, err := svc.CreateOrganizer(context.Background(), "admin-1", &domain.OrganizerInput{
		LoginEmail: "club@felicity.example",
		Name:       "Programming Club",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, provisioned.TemporaryPassword)
}

func TestCreateOrganizerDuplicateEmail(t *testing.T) {
	organizers := newFakeOrganizerRepo()
	svc := NewAdminService(organizers, fakeHasher{}, &fakeEmails{}, testLogger())

	input := &domain.OrganizerInput{LoginEmail: "club@felicity.example", Name: "Programming Club"}
	_, err := svc.CreateOrganizer(context.Background(), "admin-1", input)
	require.NoError(t, err)
	_, err = svc.CreateOrganizer(context.Background(), "admin-1", input)
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestSetOrganizerActive(t *testing.T) {
	organizers := newFakeOrganizerRepo()
	svc := NewAdminService(organizers, fakeHasher{}, &fakeEmails{}, testLogger())

	provisioned, err := svc.CreateOrganizer(context.Background(), "admin-1", &domain.OrganizerInput{
		LoginEmail: "club@felicity.example",
		Name:       "Programming Club",
	})
	require.NoError(t, err)

	updated, err := svc.SetOrganizerActive(context.Background(), provisioned.Organizer.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = svc.SetOrganizerActive(context.Background(), "missing", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResetOrganizerPassword(t *testing.T) {
	organizers := newFakeOrganizerRepo()
	svc := NewAdminService(organizers, fakeHasher{}, &fakeEmails{}, testLogger())

	provisioned, err := svc.CreateOrganizer(context.Background(), "admin-1", &domain.OrganizerInput{
		LoginEmail: "club@felicity.example",
		Name:       "Programming Club",
	})
	require.NoError(t, err)
	oldPassword := provisioned.TemporaryPassword

	reset, err := svc.ResetOrganizerPassword(context.Background(), provisioned.Organizer.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldPassword, reset.TemporaryPassword)

	stored, err := organizers.GetByID(context.Background(), provisioned.Organizer.ID)
	require.NoError(t, err)
	assert.Equal(t, "hashed:"+reset.TemporaryPassword, stored.PasswordHash)
}
