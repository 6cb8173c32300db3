package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"felicityevents/internal/domain"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-constraint violation on
// the named constraint. An empty constraint matches any unique violation.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

type PostgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) *PostgresParticipantRepository {
	return &PostgresParticipantRepository{db: db}
}

func (r *PostgresParticipantRepository) Create(ctx context.Context, p *domain.Participant) error {
	query := `
		INSERT INTO participants (email, password_hash, first_name, last_name, participant_type, college_name, contact_number, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		p.Email, p.PasswordHash, p.FirstName, p.LastName,
		p.ParticipantType, p.CollegeName, p.ContactNumber, p.Role,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "participants_email_key") {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *PostgresParticipantRepository) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	query := `
		SELECT id, email, password_hash, first_name, last_name, participant_type, college_name, contact_number, role, created_at, updated_at
		FROM participants
		WHERE id = $1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresParticipantRepository) GetByEmail(ctx context.Context, email string) (*domain.Participant, error) {
	query := `
		SELECT id, email, password_hash, first_name, last_name, participant_type, college_name, contact_number, role, created_at, updated_at
		FROM participants
		WHERE email = $1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresParticipantRepository) Update(ctx context.Context, p *domain.Participant) error {
	query := `
		UPDATE participants
		SET first_name = $2, last_name = $3, college_name = $4, contact_number = $5, password_hash = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.FirstName, p.LastName, p.CollegeName, p.ContactNumber, p.PasswordHash,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return nil
}

func (r *PostgresParticipantRepository) scanOne(row *sql.Row) (*domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.FirstName, &p.LastName,
		&p.ParticipantType, &p.CollegeName, &p.ContactNumber, &p.Role,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &p, nil
}
