package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"

	"felicityevents/internal/domain"
)

// No ambiguous characters; the password is read off a screen once and
// typed by the organizer.
const (
	passwordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"
	passwordLength   = 12
)

type adminService struct {
	organizerRepo domain.OrganizerRepository
	hasher        domain.PasswordHasher
	emails        domain.EmailService
	logger        *slog.Logger
}

// NewAdminService creates the organizer provisioning service.
func NewAdminService(
	organizerRepo domain.OrganizerRepository,
	hasher domain.PasswordHasher,
	emails domain.EmailService,
	logger *slog.Logger,
) domain.AdminService {
	return &adminService{
		organizerRepo: organizerRepo,
		hasher:        hasher,
		emails:        emails,
		logger:        logger,
	}
}

func (s *adminService) CreateOrganizer(ctx context.Context, adminID string, input *domain.OrganizerInput) (*domain.ProvisionedOrganizer, error) {
	if input.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := mail.ParseAddress(input.LoginEmail); err != nil {
		return nil, domain.ErrInvalidInput
	}

	password := input.Password
	if password == "" {
		var err error
		password, err = generatePassword()
		if err != nil {
			return nil, fmt.Errorf("generate password: %w", err)
		}
	} else if len(password) < minPasswordLength {
		return nil, domain.ErrInvalidInput
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	organizer := &domain.Organizer{
		LoginEmail:    input.LoginEmail,
		PasswordHash:  hash,
		Name:          input.Name,
		Category:      input.Category,
		Description:   input.Description,
		ContactEmail:  input.ContactEmail,
		ContactNumber: input.ContactNumber,
		WebhookURL:    input.WebhookURL,
		IsActive:      true,
		CreatedBy:     adminID,
	}
	if err := s.organizerRepo.Create(ctx, organizer); err != nil {
		return nil, err
	}

	if err := s.emails.SendOrganizerWelcome(ctx, &domain.OrganizerWelcomeEmailData{
		Email:             organizer.LoginEmail,
		OrganizerName:     organizer.Name,
		LoginEmail:        organizer.LoginEmail,
		TemporaryPassword: password,
	}); err != nil {
		s.logger.Error("failed to send organizer welcome email", "organizer_id", organizer.ID, "error", err)
	}

	return &domain.ProvisionedOrganizer{Organizer: organizer, TemporaryPassword: password}, nil
}

func (s *adminService) ListOrganizers(ctx context.Context, activeOnly bool, category string) ([]*domain.Organizer, error) {
	return s.organizerRepo.List(ctx, activeOnly, category)
}

func (s *adminService) GetOrganizer(ctx context.Context, id string) (*domain.Organizer, error) {
	return s.organizerRepo.GetByID(ctx, id)
}

func (s *adminService) SetOrganizerActive(ctx context.Context, id string, active bool) (*domain.Organizer, error) {
	if err := s.organizerRepo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	return s.organizerRepo.GetByID(ctx, id)
}

func (s *adminService) ResetOrganizerPassword(ctx context.Context, id string) (*domain.ProvisionedOrganizer, error) {
	organizer, err := s.organizerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	password, err := generatePassword()
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.organizerRepo.UpdatePassword(ctx, id, hash); err != nil {
		return nil, err
	}
	return &domain.ProvisionedOrganizer{Organizer: organizer, TemporaryPassword: password}, nil
}

func generatePassword() (string, error) {
	out := make([]byte, passwordLength)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
