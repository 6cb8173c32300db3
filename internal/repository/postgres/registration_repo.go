package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"felicityevents/internal/domain"
)

type PostgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) *PostgresRegistrationRepository {
	return &PostgresRegistrationRepository{db: db}
}

const registrationColumns = `id, ticket_id, event_id, participant_id, status, form_responses,
		variant_id, variant_name, quantity, total_price,
		payment_status, payment_amount,
		proof_image_url, proof_uploaded_at, proof_note,
		approval_status, approval_reviewer_kind, approval_reviewer_id, approval_reviewed_at, approval_comment,
		qr_code, attended, attended_at, checked_in_by_kind, checked_in_by_id,
		cancelled_at, cancellation_reason, created_at, updated_at`

// CreateConfirmed inserts the registration and claims a capacity slot in one
// transaction. The counter increment is conditional on the limit so two
// racing registrations for the last slot cannot both succeed.
func (r *PostgresRegistrationRepository) CreateConfirmed(ctx context.Context, reg *domain.Registration, deductStock bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertRegistration(ctx, tx, reg); err != nil {
		return err
	}
	if err := claimCapacity(ctx, tx, reg.EventID); err != nil {
		return err
	}
	if deductStock {
		if err := deductVariantStock(ctx, tx, reg, domain.ErrInsufficientStock); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreatePending inserts a pending registration without touching the counter
// or stock; both move at approval time.
func (r *PostgresRegistrationRepository) CreatePending(ctx context.Context, reg *domain.Registration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertRegistration(ctx, tx, reg); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresRegistrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRegistrationRepository) GetByEventAndParticipant(ctx context.Context, eventID, participantID string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 AND participant_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, eventID, participantID))
}

func (r *PostgresRegistrationRepository) GetByTicketID(ctx context.Context, ticketID, eventID string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE ticket_id = $1 AND event_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, ticketID, eventID))
}

func (r *PostgresRegistrationRepository) ListByParticipant(ctx context.Context, participantID string, status domain.RegistrationStatus) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE participant_id = $1`
	args := []any{participantID}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`
	return r.queryMany(ctx, query, args...)
}

func (r *PostgresRegistrationRepository) ListByEvent(ctx context.Context, eventID string, status domain.RegistrationStatus) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1`
	args := []any{eventID}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`
	return r.queryMany(ctx, query, args...)
}

func (r *PostgresRegistrationRepository) ListAwaitingApproval(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND payment_status = 'awaiting_approval'
		ORDER BY proof_uploaded_at ASC NULLS LAST, created_at ASC`
	return r.queryMany(ctx, query, eventID)
}

func (r *PostgresRegistrationRepository) CountActive(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status IN ('confirmed', 'pending')`,
		eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return n, nil
}

func (r *PostgresRegistrationRepository) CountActiveForEvents(ctx context.Context, eventIDs []string) (int, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = ANY($1) AND status IN ('confirmed', 'pending')`,
		pq.Array(eventIDs),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return n, nil
}

func (r *PostgresRegistrationRepository) TicketIDExists(ctx context.Context, ticketID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE ticket_id = $1)`, ticketID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check ticket id: %w", err)
	}
	return exists, nil
}

// Cancel marks the registration cancelled, releases its capacity slot, and
// restores variant stock when the registration was holding any. The status
// condition makes the transition idempotent under races: the second caller
// gets ErrNotCancellable.
func (r *PostgresRegistrationRepository) Cancel(ctx context.Context, reg *domain.Registration, restoreStock bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE registrations
		SET status = 'cancelled', cancelled_at = $2, cancellation_reason = $3, updated_at = now()
		WHERE id = $1 AND status IN ('confirmed', 'pending') AND attended = FALSE`,
		reg.ID, reg.CancelledAt, reg.CancellationReason)
	if err != nil {
		return fmt.Errorf("failed to cancel registration: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	} else if n == 0 {
		return domain.ErrNotCancellable
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE events
		SET current_registrations = GREATEST(current_registrations - 1, 0), updated_at = now()
		WHERE id = $1`, reg.EventID)
	if err != nil {
		return fmt.Errorf("failed to release capacity: %w", err)
	}

	if restoreStock && reg.Merchandise != nil && reg.Merchandise.VariantID != "" {
		_, err = tx.ExecContext(ctx,
			`UPDATE event_variants SET stock = stock + $2 WHERE id = $1`,
			reg.Merchandise.VariantID, reg.Merchandise.Quantity)
		if err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
		if err := syncTotalStock(ctx, tx, reg.EventID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Approve commits the review decision in one transaction: the registration
// flips to confirmed only while still awaiting approval, the reserved stock
// is deducted with an oversell guard, and the capacity slot is claimed.
func (r *PostgresRegistrationRepository) Approve(ctx context.Context, reg *domain.Registration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	reviewerKind, reviewerID, reviewedAt, comment := approvalFields(reg)
	result, err := tx.ExecContext(ctx, `
		UPDATE registrations
		SET status = 'confirmed', payment_status = 'completed', approval_status = 'approved',
			approval_reviewer_kind = $2, approval_reviewer_id = $3, approval_reviewed_at = $4, approval_comment = $5,
			qr_code = $6, updated_at = now()
		WHERE id = $1 AND payment_status = 'awaiting_approval'`,
		reg.ID, reviewerKind, reviewerID, reviewedAt, comment, reg.QRCode)
	if err != nil {
		return fmt.Errorf("failed to approve registration: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	} else if n == 0 {
		return domain.ErrNotAwaitingApproval
	}

	if reg.Merchandise != nil && reg.Merchandise.VariantID != "" {
		if err := deductVariantStock(ctx, tx, reg, domain.ErrOversold); err != nil {
			return err
		}
	}
	if err := claimCapacity(ctx, tx, reg.EventID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Reject records the decision. Inventory is untouched: pending orders never
// held stock, so there is nothing to release.
func (r *PostgresRegistrationRepository) Reject(ctx context.Context, reg *domain.Registration) error {
	reviewerKind, reviewerID, reviewedAt, comment := approvalFields(reg)
	result, err := r.db.ExecContext(ctx, `
		UPDATE registrations
		SET status = 'rejected', payment_status = 'failed', approval_status = 'rejected',
			approval_reviewer_kind = $2, approval_reviewer_id = $3, approval_reviewed_at = $4, approval_comment = $5,
			updated_at = now()
		WHERE id = $1 AND payment_status = 'awaiting_approval'`,
		reg.ID, reviewerKind, reviewerID, reviewedAt, comment)
	if err != nil {
		return fmt.Errorf("failed to reject registration: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	} else if n == 0 {
		return domain.ErrNotAwaitingApproval
	}
	return nil
}

func (r *PostgresRegistrationRepository) SavePaymentProof(ctx context.Context, reg *domain.Registration) error {
	if reg.PaymentProof == nil {
		return domain.ErrInvalidInput
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE registrations
		SET proof_image_url = $2, proof_uploaded_at = $3, proof_note = $4,
			payment_status = 'awaiting_approval', approval_status = 'pending',
			approval_reviewer_kind = NULL, approval_reviewer_id = NULL,
			approval_reviewed_at = NULL, approval_comment = NULL,
			updated_at = now()
		WHERE id = $1`,
		reg.ID, reg.PaymentProof.ImageURL, reg.PaymentProof.UploadedAt, nullString(reg.PaymentProof.Note))
	if err != nil {
		return fmt.Errorf("failed to save payment proof: %w", err)
	}
	return requireRow(result)
}

func (r *PostgresRegistrationRepository) SetQRCode(ctx context.Context, registrationID, qrCode string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET qr_code = $2, updated_at = now() WHERE id = $1`,
		registrationID, qrCode)
	if err != nil {
		return fmt.Errorf("failed to set qr code: %w", err)
	}
	return requireRow(result)
}

// MarkAttended is the one-way check-in write. The attended condition means
// concurrent scans of the same ticket produce exactly one transition; the
// loser sees zero rows and returns false.
func (r *PostgresRegistrationRepository) MarkAttended(ctx context.Context, registrationID string, at time.Time, by domain.ActorRef) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE registrations
		SET attended = TRUE, attended_at = $2, checked_in_by_kind = $3, checked_in_by_id = $4, updated_at = now()
		WHERE id = $1 AND status = 'confirmed' AND attended = FALSE`,
		registrationID, at, by.Kind, by.ID)
	if err != nil {
		return false, fmt.Errorf("failed to mark attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRegistrationRepository) AttendanceStats(ctx context.Context, eventID string) (*domain.AttendanceStats, error) {
	stats := &domain.AttendanceStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE attended)
		FROM registrations
		WHERE event_id = $1 AND status = 'confirmed'`, eventID,
	).Scan(&stats.Total, &stats.Attended)
	if err != nil {
		return nil, fmt.Errorf("failed to count attendance: %w", err)
	}
	stats.NotAttended = stats.Total - stats.Attended
	if stats.Total > 0 {
		stats.AttendanceRate = stats.Attended * 100 / stats.Total
	}

	regs, err := r.ListByEvent(ctx, eventID, domain.RegistrationConfirmed)
	if err != nil {
		return nil, err
	}
	stats.Registrations = regs
	return stats, nil
}

func insertRegistration(ctx context.Context, tx *sql.Tx, reg *domain.Registration) error {
	var formResponses []byte
	if reg.FormResponses != nil {
		var err error
		formResponses, err = json.Marshal(reg.FormResponses)
		if err != nil {
			return fmt.Errorf("failed to marshal form responses: %w", err)
		}
	}

	var variantID, variantName sql.NullString
	var quantity sql.NullInt64
	var totalPrice *decimal.Decimal
	if m := reg.Merchandise; m != nil {
		variantID = nullString(m.VariantID)
		variantName = sql.NullString{String: m.VariantName, Valid: true}
		quantity = sql.NullInt64{Int64: int64(m.Quantity), Valid: true}
		totalPrice = &m.TotalPrice
	}

	query := `
		INSERT INTO registrations (ticket_id, event_id, participant_id, status, form_responses,
			variant_id, variant_name, quantity, total_price,
			payment_status, payment_amount, qr_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	err := tx.QueryRowContext(ctx, query,
		reg.TicketID, reg.EventID, reg.ParticipantID, reg.Status, formResponses,
		variantID, variantName, quantity, totalPrice,
		reg.PaymentStatus, reg.PaymentAmount, reg.QRCode,
	).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err, "registrations_event_participant_key"):
			return domain.ErrAlreadyRegistered
		case isUniqueViolation(err, "registrations_ticket_id_key"):
			return domain.ErrTicketIDConflict
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func claimCapacity(ctx context.Context, tx *sql.Tx, eventID string) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE events
		SET current_registrations = current_registrations + 1, updated_at = now()
		WHERE id = $1 AND (registration_limit IS NULL OR current_registrations < registration_limit)`,
		eventID)
	if err != nil {
		return fmt.Errorf("failed to claim capacity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrEventFull
	}
	return nil
}

// deductVariantStock reduces the purchased variant's stock, failing with the
// caller's sentinel when fewer units remain than the order needs.
func deductVariantStock(ctx context.Context, tx *sql.Tx, reg *domain.Registration, shortfall error) error {
	if reg.Merchandise == nil || reg.Merchandise.VariantID == "" {
		return nil
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE event_variants SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		reg.Merchandise.VariantID, reg.Merchandise.Quantity)
	if err != nil {
		return fmt.Errorf("failed to deduct stock: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return shortfall
	}
	return syncTotalStock(ctx, tx, reg.EventID)
}

func syncTotalStock(ctx context.Context, tx *sql.Tx, eventID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE events
		SET merch_total_stock = (SELECT COALESCE(SUM(stock), 0) FROM event_variants WHERE event_id = $1)
		WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("failed to sync total stock: %w", err)
	}
	return nil
}

func approvalFields(reg *domain.Registration) (kind, id sql.NullString, at sql.NullTime, comment sql.NullString) {
	if a := reg.PaymentApproval; a != nil {
		if a.ReviewedBy != nil {
			kind = nullString(string(a.ReviewedBy.Kind))
			id = nullString(a.ReviewedBy.ID)
		}
		if a.ReviewedAt != nil {
			at = sql.NullTime{Time: *a.ReviewedAt, Valid: true}
		}
		comment = nullString(a.Comment)
	}
	return kind, id, at, comment
}

func (r *PostgresRegistrationRepository) queryMany(ctx context.Context, query string, args ...any) ([]*domain.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	var regs []*domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}

func (r *PostgresRegistrationRepository) scanOne(row *sql.Row) (*domain.Registration, error) {
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	var reg domain.Registration
	var formResponses []byte
	var variantID, variantName sql.NullString
	var quantity sql.NullInt64
	var totalPrice decimal.NullDecimal
	var proofImageURL, proofNote sql.NullString
	var proofUploadedAt sql.NullTime
	var approvalStatus, reviewerKind, reviewerID, approvalComment sql.NullString
	var reviewedAt sql.NullTime
	var attendedAt sql.NullTime
	var checkedInKind, checkedInID sql.NullString
	var cancelledAt sql.NullTime

	err := row.Scan(
		&reg.ID, &reg.TicketID, &reg.EventID, &reg.ParticipantID, &reg.Status, &formResponses,
		&variantID, &variantName, &quantity, &totalPrice,
		&reg.PaymentStatus, &reg.PaymentAmount,
		&proofImageURL, &proofUploadedAt, &proofNote,
		&approvalStatus, &reviewerKind, &reviewerID, &reviewedAt, &approvalComment,
		&reg.QRCode, &reg.Attended, &attendedAt, &checkedInKind, &checkedInID,
		&cancelledAt, &reg.CancellationReason, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan registration: %w", err)
	}

	if len(formResponses) > 0 {
		if err := json.Unmarshal(formResponses, &reg.FormResponses); err != nil {
			return nil, fmt.Errorf("failed to unmarshal form responses: %w", err)
		}
	}
	if variantName.Valid {
		reg.Merchandise = &domain.MerchandiseDetails{
			VariantID:   variantID.String,
			VariantName: variantName.String,
			Quantity:    int(quantity.Int64),
			TotalPrice:  totalPrice.Decimal,
		}
	}
	if proofImageURL.Valid {
		reg.PaymentProof = &domain.PaymentProof{
			ImageURL:   proofImageURL.String,
			UploadedAt: proofUploadedAt.Time,
			Note:       proofNote.String,
		}
	}
	if approvalStatus.Valid {
		approval := &domain.PaymentApproval{
			Status:  domain.ApprovalStatus(approvalStatus.String),
			Comment: approvalComment.String,
		}
		if reviewerKind.Valid {
			approval.ReviewedBy = &domain.ActorRef{
				Kind: domain.ActorKind(reviewerKind.String),
				ID:   reviewerID.String,
			}
		}
		if reviewedAt.Valid {
			t := reviewedAt.Time
			approval.ReviewedAt = &t
		}
		reg.PaymentApproval = approval
	}
	reg.AttendedAt = timePtr(attendedAt)
	if checkedInKind.Valid {
		reg.CheckedInBy = &domain.ActorRef{
			Kind: domain.ActorKind(checkedInKind.String),
			ID:   checkedInID.String,
		}
	}
	reg.CancelledAt = timePtr(cancelledAt)
	return &reg, nil
}
