package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"felicityevents/internal/domain"
)

const minPasswordLength = 8

type authService struct {
	participantRepo domain.ParticipantRepository
	organizerRepo   domain.OrganizerRepository
	hasher          domain.PasswordHasher
	issuer          domain.TokenIssuer
	tokenExpiry     time.Duration
}

// NewAuthService creates the authentication service.
func NewAuthService(
	participantRepo domain.ParticipantRepository,
	organizerRepo domain.OrganizerRepository,
	hasher domain.PasswordHasher,
	issuer domain.TokenIssuer,
	tokenExpiry time.Duration,
) domain.AuthService {
	return &authService{
		participantRepo: participantRepo,
		organizerRepo:   organizerRepo,
		hasher:          hasher,
		issuer:          issuer,
		tokenExpiry:     tokenExpiry,
	}
}

func (s *authService) SignupParticipant(ctx context.Context, input *domain.ParticipantSignup) (*domain.AuthResult, error) {
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, domain.ErrInvalidInput
	}
	if len(input.Password) < minPasswordLength || input.FirstName == "" {
		return nil, domain.ErrInvalidInput
	}
	participantType := input.ParticipantType
	switch participantType {
	case "":
		participantType = domain.ParticipantNonIIIT
	case domain.ParticipantIIIT, domain.ParticipantNonIIIT:
	default:
		return nil, domain.ErrInvalidInput
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	participant := &domain.Participant{
		Email:           input.Email,
		PasswordHash:    hash,
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		ParticipantType: participantType,
		CollegeName:     input.CollegeName,
		ContactNumber:   input.ContactNumber,
		Role:            domain.RoleParticipant,
	}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		return nil, err
	}
	return s.issueFor(participant)
}

// LoginParticipant also authenticates the seeded admin, which is a
// participant row with the admin role.
func (s *authService) LoginParticipant(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	participant, err := s.participantRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidLogin
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	if err := s.hasher.Compare(participant.PasswordHash, password); err != nil {
		return nil, domain.ErrInvalidLogin
	}
	return s.issueFor(participant)
}

func (s *authService) LoginOrganizer(ctx context.Context, loginEmail, password string) (*domain.AuthResult, error) {
	organizer, err := s.organizerRepo.GetByLoginEmail(ctx, loginEmail)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidLogin
		}
		return nil, fmt.Errorf("get organizer: %w", err)
	}
	if err := s.hasher.Compare(organizer.PasswordHash, password); err != nil {
		return nil, domain.ErrInvalidLogin
	}
	if !organizer.IsActive {
		return nil, domain.ErrAccountInactive
	}

	token, err := s.issuer.Issue(organizer.ID, domain.RoleOrganizer, s.tokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &domain.AuthResult{
		Token: token,
		Role:  domain.RoleOrganizer,
		ID:    organizer.ID,
		Name:  organizer.Name,
		Email: organizer.LoginEmail,
	}, nil
}

func (s *authService) issueFor(p *domain.Participant) (*domain.AuthResult, error) {
	token, err := s.issuer.Issue(p.ID, p.Role, s.tokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &domain.AuthResult{
		Token: token,
		Role:  p.Role,
		ID:    p.ID,
		Name:  p.FullName(),
		Email: p.Email,
	}, nil
}
