package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"felicityevents/internal/domain"
)

type PostgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

const eventColumns = `id, organizer_id, name, description, event_type, eligibility,
		registration_deadline, event_start_date, event_end_date,
		registration_limit, current_registrations, registration_fee,
		tags, custom_form, merch_item_details, merch_total_stock, merch_purchase_limit,
		status, venue, image_url, external_links, created_at, updated_at`

func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	event.RecomputeTotalStock()
	tags, customForm, links, err := marshalEventJSON(event)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (organizer_id, name, description, event_type, eligibility,
			registration_deadline, event_start_date, event_end_date,
			registration_limit, registration_fee, tags, custom_form,
			merch_item_details, merch_total_stock, merch_purchase_limit,
			status, venue, image_url, external_links)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at`

	var itemDetails sql.NullString
	var totalStock, purchaseLimit sql.NullInt64
	if m := event.Merchandise; m != nil {
		itemDetails = nullString(m.ItemDetails)
		itemDetails.Valid = true
		totalStock = sql.NullInt64{Int64: int64(m.TotalStock), Valid: true}
		purchaseLimit = sql.NullInt64{Int64: int64(m.PurchaseLimit), Valid: true}
	}

	err = tx.QueryRowContext(ctx, query,
		event.OrganizerID, event.Name, event.Description, event.EventType, event.Eligibility,
		event.RegistrationDeadline, event.EventStartDate, event.EventEndDate,
		event.RegistrationLimit, event.RegistrationFee, tags, customForm,
		itemDetails, totalStock, purchaseLimit,
		event.Status, event.Venue, event.ImageURL, links,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	if err := insertVariants(ctx, tx, event); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.attachVariants(ctx, []*domain.Event{event}); err != nil {
		return nil, err
	}
	return event, nil
}

func (r *PostgresEventRepository) ListPublished(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE status = 'published'`
	args := []any{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(` AND (name ILIKE $%d OR description ILIKE $%d)`, len(args), len(args))
	}
	if filter.EventType != "" {
		args = append(args, filter.EventType)
		query += fmt.Sprintf(` AND event_type = $%d`, len(args))
	}
	if filter.Eligibility != "" {
		args = append(args, filter.Eligibility)
		query += fmt.Sprintf(` AND eligibility = $%d`, len(args))
	}
	if filter.StartAfter != nil {
		args = append(args, *filter.StartAfter)
		query += fmt.Sprintf(` AND event_start_date >= $%d`, len(args))
	}
	if filter.StartBefore != nil {
		args = append(args, *filter.StartBefore)
		query += fmt.Sprintf(` AND event_start_date <= $%d`, len(args))
	}
	if len(filter.OrganizerIDs) > 0 {
		args = append(args, pq.Array(filter.OrganizerIDs))
		query += fmt.Sprintf(` AND organizer_id = ANY($%d)`, len(args))
	}

	switch filter.SortBy {
	case "registrationDeadline":
		query += ` ORDER BY registration_deadline ASC NULLS LAST`
	default:
		query += ` ORDER BY event_start_date ASC NULLS LAST`
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	return r.queryEvents(ctx, query, args...)
}

func (r *PostgresEventRepository) ListByOrganizer(ctx context.Context, organizerID string, status domain.EventStatus, eventType domain.EventType) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = $1`
	args := []any{organizerID}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if eventType != "" {
		args = append(args, eventType)
		query += fmt.Sprintf(` AND event_type = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	return r.queryEvents(ctx, query, args...)
}

// Update persists the full aggregate. The registration counter is owned by
// the registration workflows and is deliberately not part of the SET list.
// Variants are replaced wholesale; callers preserve existing variant ids.
func (r *PostgresEventRepository) Update(ctx context.Context, event *domain.Event) error {
	event.RecomputeTotalStock()
	tags, customForm, links, err := marshalEventJSON(event)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE events
		SET name = $2, description = $3, eligibility = $4,
			registration_deadline = $5, event_start_date = $6, event_end_date = $7,
			registration_limit = $8, registration_fee = $9, tags = $10, custom_form = $11,
			merch_item_details = $12, merch_total_stock = $13, merch_purchase_limit = $14,
			status = $15, venue = $16, image_url = $17, external_links = $18, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	var itemDetails sql.NullString
	var totalStock, purchaseLimit sql.NullInt64
	if m := event.Merchandise; m != nil {
		itemDetails = nullString(m.ItemDetails)
		itemDetails.Valid = true
		totalStock = sql.NullInt64{Int64: int64(m.TotalStock), Valid: true}
		purchaseLimit = sql.NullInt64{Int64: int64(m.PurchaseLimit), Valid: true}
	}

	err = tx.QueryRowContext(ctx, query,
		event.ID, event.Name, event.Description, event.Eligibility,
		event.RegistrationDeadline, event.EventStartDate, event.EventEndDate,
		event.RegistrationLimit, event.RegistrationFee, tags, customForm,
		itemDetails, totalStock, purchaseLimit,
		event.Status, event.Venue, event.ImageURL, links,
	).Scan(&event.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to update event: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_variants WHERE event_id = $1`, event.ID); err != nil {
		return fmt.Errorf("failed to clear variants: %w", err)
	}
	if err := insertVariants(ctx, tx, event); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return requireRow(result)
}

func (r *PostgresEventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if err := r.attachVariants(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// attachVariants loads the variants for every merchandise event in one query.
func (r *PostgresEventRepository) attachVariants(ctx context.Context, events []*domain.Event) error {
	byID := make(map[string]*domain.Event)
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if e.Merchandise != nil {
			byID[e.ID] = e
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	query := `
		SELECT event_id, id, name, size, color, additional_info, stock, price_modifier
		FROM event_variants
		WHERE event_id = ANY($1)
		ORDER BY event_id, position`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID string
		var v domain.Variant
		if err := rows.Scan(&eventID, &v.ID, &v.Name, &v.Size, &v.Color, &v.AdditionalInfo, &v.Stock, &v.PriceModifier); err != nil {
			return fmt.Errorf("failed to scan variant: %w", err)
		}
		if e := byID[eventID]; e != nil {
			e.Merchandise.Variants = append(e.Merchandise.Variants, v)
		}
	}
	return rows.Err()
}

func insertVariants(ctx context.Context, tx *sql.Tx, event *domain.Event) error {
	if event.Merchandise == nil {
		return nil
	}
	query := `
		INSERT INTO event_variants (id, event_id, name, size, color, additional_info, stock, price_modifier, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i, v := range event.Merchandise.Variants {
		_, err := tx.ExecContext(ctx, query,
			v.ID, event.ID, v.Name, v.Size, v.Color, v.AdditionalInfo, v.Stock, v.PriceModifier, i)
		if err != nil {
			return fmt.Errorf("failed to insert variant: %w", err)
		}
	}
	return nil
}

func marshalEventJSON(event *domain.Event) (tags, customForm, links []byte, err error) {
	if tags, err = json.Marshal(emptySlice(event.Tags)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	form := event.CustomForm
	if form == nil {
		form = []domain.FormField{}
	}
	if customForm, err = json.Marshal(form); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal custom form: %w", err)
	}
	if links, err = json.Marshal(emptySlice(event.ExternalLinks)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal external links: %w", err)
	}
	return tags, customForm, links, nil
}

func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var e domain.Event
	var deadline, start, end sql.NullTime
	var limit sql.NullInt64
	var tags, customForm, links []byte
	var itemDetails sql.NullString
	var totalStock, purchaseLimit sql.NullInt64

	err := row.Scan(
		&e.ID, &e.OrganizerID, &e.Name, &e.Description, &e.EventType, &e.Eligibility,
		&deadline, &start, &end,
		&limit, &e.CurrentRegistrations, &e.RegistrationFee,
		&tags, &customForm, &itemDetails, &totalStock, &purchaseLimit,
		&e.Status, &e.Venue, &e.ImageURL, &links, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	e.RegistrationDeadline = timePtr(deadline)
	e.EventStartDate = timePtr(start)
	e.EventEndDate = timePtr(end)
	if limit.Valid {
		n := int(limit.Int64)
		e.RegistrationLimit = &n
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &e.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if len(customForm) > 0 {
		if err := json.Unmarshal(customForm, &e.CustomForm); err != nil {
			return nil, fmt.Errorf("failed to unmarshal custom form: %w", err)
		}
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &e.ExternalLinks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal external links: %w", err)
		}
	}
	if e.EventType == domain.EventMerchandise || totalStock.Valid {
		e.Merchandise = &domain.Merchandise{
			ItemDetails:   itemDetails.String,
			TotalStock:    int(totalStock.Int64),
			PurchaseLimit: int(purchaseLimit.Int64),
		}
	}
	return &e, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
