package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"felicityevents/internal/domain"
)

func newEventMock(t *testing.T) (*PostgresEventRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresEventRepository(db), mock
}

func eventTestColumns() []string {
	return []string{
		"id", "organizer_id", "name", "description", "event_type", "eligibility",
		"registration_deadline", "event_start_date", "event_end_date",
		"registration_limit", "current_registrations", "registration_fee",
		"tags", "custom_form", "merch_item_details", "merch_total_stock", "merch_purchase_limit",
		"status", "venue", "image_url", "external_links", "created_at", "updated_at",
	}
}

func eventTestRow(id string, status domain.EventStatus) []driverValue {
	now := time.Now()
	return []driverValue{
		id, "org-1", "Hack Night", "An evening of hacking", "normal", "all",
		now.Add(24 * time.Hour), now.Add(48 * time.Hour), now.Add(52 * time.Hour),
		100, 3, "0",
		[]byte(`["tech"]`), []byte(`[]`), nil, nil, nil,
		string(status), "Main Hall", "", []byte(`[]`), now, now,
	}
}

type driverValue = any

func TestEventCreate(t *testing.T) {
	repo, mock := newEventMock(t)
	now := time.Now()
	deadline := now.Add(24 * time.Hour)
	event := &domain.Event{
		OrganizerID:          "org-1",
		Name:                 "Merch Drop",
		EventType:            domain.EventMerchandise,
		Eligibility:          domain.EligibilityAll,
		RegistrationDeadline: &deadline,
		RegistrationFee:      decimal.NewFromInt(100),
		Status:               domain.EventDraft,
		Merchandise: &domain.Merchandise{
			Variants: []domain.Variant{
				{ID: "variant-1", Name: "Tee", Size: "M", Stock: 10},
				{ID: "variant-2", Name: "Tee", Size: "L", Stock: 5},
			},
			PurchaseLimit: 2,
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO events").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("event-1", now, now))
	mock.ExpectExec("INSERT INTO event_variants").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO event_variants").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "event-1", event.ID)
	assert.Equal(t, 15, event.Merchandise.TotalStock, "total stock re-derived from variants")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventGetByID(t *testing.T) {
	repo, mock := newEventMock(t)

	mock.ExpectQuery("SELECT (.+) FROM events WHERE id =").
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows(eventTestColumns()).AddRow(eventTestRow("event-1", domain.EventPublished)...))

	event, err := repo.GetByID(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, "Hack Night", event.Name)
	assert.Equal(t, domain.EventPublished, event.Status)
	require.NotNil(t, event.RegistrationLimit)
	assert.Equal(t, 100, *event.RegistrationLimit)
	assert.Equal(t, []string{"tech"}, event.Tags)
	assert.Nil(t, event.Merchandise)
}

func TestEventGetByIDNotFound(t *testing.T) {
	repo, mock := newEventMock(t)

	mock.ExpectQuery("SELECT (.+) FROM events WHERE id =").
		WillReturnRows(sqlmock.NewRows(eventTestColumns()))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEventGetByIDLoadsVariants(t *testing.T) {
	repo, mock := newEventMock(t)
	now := time.Now()
	row := []driverValue{
		"event-1", "org-1", "Merch Drop", "", "merchandise", "all",
		now.Add(24 * time.Hour), nil, nil,
		nil, 0, "100",
		[]byte(`[]`), []byte(`[]`), "Cotton tee", 15, 2,
		"published", "", "", []byte(`[]`), now, now,
	}

	mock.ExpectQuery("SELECT (.+) FROM events WHERE id =").
		WillReturnRows(sqlmock.NewRows(eventTestColumns()).AddRow(row...))
	mock.ExpectQuery("SELECT (.+) FROM event_variants").
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "id", "name", "size", "color", "additional_info", "stock", "price_modifier"}).
			AddRow("event-1", "variant-1", "Tee", "M", "", "", 10, "0").
			AddRow("event-1", "variant-2", "Tee", "L", "", "", 5, "20"))

	event, err := repo.GetByID(context.Background(), "event-1")
	require.NoError(t, err)
	require.NotNil(t, event.Merchandise)
	assert.Equal(t, 15, event.Merchandise.TotalStock)
	require.Len(t, event.Merchandise.Variants, 2)
	assert.Equal(t, "variant-2", event.Merchandise.Variants[1].ID)
	assert.Equal(t, 5, event.Merchandise.Variants[1].Stock)
}

func TestEventListPublishedFilters(t *testing.T) {
	repo, mock := newEventMock(t)

	mock.ExpectQuery("SELECT (.+) FROM events WHERE status = 'published'").
		WithArgs("%hack%", "normal", 200).
		WillReturnRows(sqlmock.NewRows(eventTestColumns()).AddRow(eventTestRow("event-1", domain.EventPublished)...))

	events, err := repo.ListPublished(context.Background(), domain.EventFilter{
		Search:    "hack",
		EventType: domain.EventNormal,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "event-1", events[0].ID)
}

func TestEventDeleteNotFound(t *testing.T) {
	repo, mock := newEventMock(t)

	mock.ExpectExec("DELETE FROM events").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
