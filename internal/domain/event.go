package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EventType distinguishes normal (form-based) events from merchandise sales.
type EventType string

const (
	EventNormal      EventType = "normal"
	EventMerchandise EventType = "merchandise"
)

// Eligibility restricts which participant category may register.
type Eligibility string

const (
	EligibilityAll     Eligibility = "all"
	EligibilityIIIT    Eligibility = "iiit-only"
	EligibilityNonIIIT Eligibility = "non-iiit-only"
)

// EventStatus is the stored lifecycle state. "Ongoing" is not a stored
// status: it is derived from the event dates while published.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

// FormFieldType enumerates the supported custom-form input kinds.
type FormFieldType string

const (
	FieldText     FormFieldType = "text"
	FieldEmail    FormFieldType = "email"
	FieldNumber   FormFieldType = "number"
	FieldTextarea FormFieldType = "textarea"
	FieldSelect   FormFieldType = "select"
	FieldRadio    FormFieldType = "radio"
	FieldCheckbox FormFieldType = "checkbox"
)

// FormField is one typed field of a normal event's registration form.
type FormField struct {
	ID          string        `json:"id"`
	Label       string        `json:"label"`
	FieldType   FormFieldType `json:"fieldType"`
	Placeholder string        `json:"placeholder,omitempty"`
	Options     []string      `json:"options,omitempty"`
	Required    bool          `json:"required"`
}

// Variant is a purchasable option (size/color) of a merchandise event.
type Variant struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Size           string          `json:"size,omitempty"`
	Color          string          `json:"color,omitempty"`
	AdditionalInfo string          `json:"additionalInfo,omitempty"`
	Stock          int             `json:"stock"`
	PriceModifier  decimal.Decimal `json:"priceModifier"`
}

// Merchandise holds the sale-specific part of a merchandise event.
// TotalStock is derived from the variants and recomputed on every save.
type Merchandise struct {
	ItemDetails   string    `json:"itemDetails,omitempty"`
	Variants      []Variant `json:"variants"`
	TotalStock    int       `json:"totalStock"`
	PurchaseLimit int       `json:"purchaseLimit"`
}

// Event is the central aggregate. Capacity and stock counters are mutated
// only by the registration and payment workflows, inside the same storage
// transaction as the status transition that justifies the mutation.
type Event struct {
	ID          string      `json:"id"`
	OrganizerID string      `json:"organizer_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	EventType   EventType   `json:"eventType"`
	Eligibility Eligibility `json:"eligibility"`

	RegistrationDeadline *time.Time `json:"registrationDeadline,omitempty"`
	EventStartDate       *time.Time `json:"eventStartDate,omitempty"`
	EventEndDate         *time.Time `json:"eventEndDate,omitempty"`

	RegistrationLimit    *int            `json:"registrationLimit,omitempty"`
	CurrentRegistrations int             `json:"currentRegistrations"`
	RegistrationFee      decimal.Decimal `json:"registrationFee"`

	Tags          []string     `json:"tags,omitempty"`
	CustomForm    []FormField  `json:"customForm,omitempty"`
	Merchandise   *Merchandise `json:"merchandise,omitempty"`
	Status        EventStatus  `json:"status"`
	Venue         string       `json:"venue,omitempty"`
	ImageURL      string       `json:"imageUrl,omitempty"`
	ExternalLinks []string     `json:"externalLinks,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckEligibility reports whether a participant of the given type may
// register for this event.
func (e *Event) CheckEligibility(pt ParticipantType) bool {
	switch e.Eligibility {
	case EligibilityAll:
		return true
	case EligibilityIIIT:
		return pt == ParticipantIIIT
	case EligibilityNonIIIT:
		return pt == ParticipantNonIIIT
	}
	return false
}

// HasCapacity reports whether another confirmed registration fits. Events
// without a registration limit are unbounded.
func (e *Event) HasCapacity() bool {
	if e.RegistrationLimit == nil {
		return true
	}
	return e.CurrentRegistrations < *e.RegistrationLimit
}

// IsRegistrationOpen reports whether registration is currently possible:
// published, before the deadline, and with capacity left.
func (e *Event) IsRegistrationOpen(now time.Time) bool {
	return e.Status == EventPublished &&
		e.RegistrationDeadline != nil &&
		now.Before(*e.RegistrationDeadline) &&
		e.HasCapacity()
}

// IsOngoing reports whether the event has started but not yet ended. Used
// only to gate editability of published events.
func (e *Event) IsOngoing(now time.Time) bool {
	return e.EventStartDate != nil && e.EventEndDate != nil &&
		!e.EventStartDate.After(now) && e.EventEndDate.After(now)
}

// FindVariant returns the variant with the given id, or nil.
func (e *Event) FindVariant(variantID string) *Variant {
	if e.Merchandise == nil {
		return nil
	}
	for i := range e.Merchandise.Variants {
		if e.Merchandise.Variants[i].ID == variantID {
			return &e.Merchandise.Variants[i]
		}
	}
	return nil
}

// RecomputeTotalStock re-derives Merchandise.TotalStock from the variants.
// Repositories call this before persisting the aggregate.
func (e *Event) RecomputeTotalStock() {
	if e.Merchandise == nil {
		return
	}
	total := 0
	for i := range e.Merchandise.Variants {
		total += e.Merchandise.Variants[i].Stock
	}
	e.Merchandise.TotalStock = total
}

// EventFilter narrows participant-facing event listings.
type EventFilter struct {
	Search       string
	EventType    EventType
	Eligibility  Eligibility
	StartAfter   *time.Time
	StartBefore  *time.Time
	OrganizerIDs []string
	SortBy       string // "eventStartDate" (default), "registrationDeadline"
	Limit        int
}

// EventRepository defines storage operations for events. Update persists
// the whole aggregate including variants and recomputes the derived total
// stock.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	ListPublished(ctx context.Context, filter EventFilter) ([]*Event, error)
	ListByOrganizer(ctx context.Context, organizerID string, status EventStatus, eventType EventType) ([]*Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
}

// EventUpdate carries a partial organizer edit; nil fields are untouched.
// Which fields actually apply depends on the event's lifecycle state.
type EventUpdate struct {
	Name                 *string
	Description          *string
	Eligibility          *Eligibility
	RegistrationDeadline *time.Time
	EventStartDate       *time.Time
	EventEndDate         *time.Time
	RegistrationLimit    *int
	RegistrationFee      *decimal.Decimal
	Tags                 *[]string
	CustomForm           *[]FormField
	Merchandise          *Merchandise
	Status               *EventStatus
	Venue                *string
	ImageURL             *string
	ExternalLinks        *[]string
}

// DashboardStats summarizes an organizer's events and registrations.
type DashboardStats struct {
	TotalEvents        int      `json:"totalEvents"`
	ActiveEvents       int      `json:"activeEvents"`
	DraftEvents        int      `json:"draftEvents"`
	TotalRegistrations int      `json:"totalRegistrations"`
	UpcomingEvents     []*Event `json:"upcomingEvents"`
}

// EventService defines the organizer-facing event lifecycle operations.
type EventService interface {
	CreateEvent(ctx context.Context, organizerID string, event *Event) (*Event, error)
	GetEvent(ctx context.Context, organizerID, eventID string) (*Event, error)
	ListEvents(ctx context.Context, organizerID string, status EventStatus, eventType EventType) ([]*Event, error)
	UpdateEvent(ctx context.Context, organizerID, eventID string, update *EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, organizerID, eventID string) error
	ListRegistrations(ctx context.Context, organizerID, eventID string, status RegistrationStatus) ([]*Registration, error)
	Dashboard(ctx context.Context, organizerID string) (*DashboardStats, error)
}
