package domain

import (
	"context"
	"time"
)

// Notification is a named realtime event emitted on a per-event channel.
const (
	NotifyEventPublished        = "event.published"
	NotifyRegistrationConfirmed = "registration.confirmed"
	NotifyPaymentApproved       = "payment.approved"
	NotifyPaymentRejected       = "payment.rejected"
	NotifyCheckInCompleted      = "checkin.completed"
)

// Notification carries a realtime event for downstream consumers.
type Notification struct {
	ID         string         `json:"id"`
	EventID    string         `json:"event_id"`
	Name       string         `json:"name"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Notifier publishes notifications. Publish failures must never affect the
// state transition that produced the notification.
type Notifier interface {
	Publish(ctx context.Context, n Notification) error
	Close() error
}

// Announcer pushes a one-time "event announced" message to an organizer's
// configured webhook when an event first becomes published.
type Announcer interface {
	AnnounceEvent(ctx context.Context, event *Event, organizer *Organizer) error
}

// EventViews is a snapshot of an event's view counters.
type EventViews struct {
	Total  int64 `json:"viewCount"`
	Last24 int64 `json:"last24hViews"`
}

// ViewTracker records and reads event page views for trending sorts.
type ViewTracker interface {
	RecordView(ctx context.Context, eventID string) error
	Counts(ctx context.Context, eventIDs []string) (map[string]EventViews, error)
}
