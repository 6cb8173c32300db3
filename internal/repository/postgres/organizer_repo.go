package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"felicityevents/internal/domain"
)

type PostgresOrganizerRepository struct {
	db *sql.DB
}

func NewPostgresOrganizerRepository(db *sql.DB) *PostgresOrganizerRepository {
	return &PostgresOrganizerRepository{db: db}
}

const organizerColumns = `id, login_email, password_hash, name, category, description, contact_email, contact_number, webhook_url, is_active, created_by, created_at, updated_at`

func (r *PostgresOrganizerRepository) Create(ctx context.Context, o *domain.Organizer) error {
	query := `
		INSERT INTO organizers (login_email, password_hash, name, category, description, contact_email, contact_number, webhook_url, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		o.LoginEmail, o.PasswordHash, o.Name, o.Category, o.Description,
		o.ContactEmail, o.ContactNumber, o.WebhookURL, o.IsActive, nullString(o.CreatedBy),
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "organizers_login_email_key") {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create organizer: %w", err)
	}
	return nil
}

func (r *PostgresOrganizerRepository) GetByID(ctx context.Context, id string) (*domain.Organizer, error) {
	query := `SELECT ` + organizerColumns + ` FROM organizers WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresOrganizerRepository) GetByLoginEmail(ctx context.Context, email string) (*domain.Organizer, error) {
	query := `SELECT ` + organizerColumns + ` FROM organizers WHERE login_email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresOrganizerRepository) List(ctx context.Context, activeOnly bool, category string) ([]*domain.Organizer, error) {
	query := `SELECT ` + organizerColumns + ` FROM organizers WHERE 1=1`
	args := []any{}
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizers: %w", err)
	}
	defer rows.Close()

	var organizers []*domain.Organizer
	for rows.Next() {
		o, err := scanOrganizer(rows)
		if err != nil {
			return nil, err
		}
		organizers = append(organizers, o)
	}
	return organizers, rows.Err()
}

func (r *PostgresOrganizerRepository) Update(ctx context.Context, o *domain.Organizer) error {
	query := `
		UPDATE organizers
		SET name = $2, category = $3, description = $4, contact_email = $5, contact_number = $6, webhook_url = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		o.ID, o.Name, o.Category, o.Description, o.ContactEmail, o.ContactNumber, o.WebhookURL,
	).Scan(&o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to update organizer: %w", err)
	}
	return nil
}

func (r *PostgresOrganizerRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE organizers SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to set organizer active: %w", err)
	}
	return requireRow(result)
}

func (r *PostgresOrganizerRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE organizers SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update organizer password: %w", err)
	}
	return requireRow(result)
}

func (r *PostgresOrganizerRepository) scanOne(row *sql.Row) (*domain.Organizer, error) {
	o, err := scanOrganizer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganizer(row rowScanner) (*domain.Organizer, error) {
	var o domain.Organizer
	var createdBy sql.NullString
	err := row.Scan(
		&o.ID, &o.LoginEmail, &o.PasswordHash, &o.Name, &o.Category, &o.Description,
		&o.ContactEmail, &o.ContactNumber, &o.WebhookURL, &o.IsActive, &createdBy,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan organizer: %w", err)
	}
	o.CreatedBy = createdBy.String
	return &o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
