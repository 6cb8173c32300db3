package domain

import "context"

// EventListing is a published event decorated with viewer-specific data.
type EventListing struct {
	Event              *Event             `json:"event"`
	IsRegistered       bool               `json:"isRegistered"`
	RegistrationStatus RegistrationStatus `json:"registrationStatus,omitempty"`
	IsEligible         bool               `json:"isEligible"`
	Views              EventViews         `json:"views"`
}

// EventDetails extends a listing with the viewer's own registration.
type EventDetails struct {
	EventListing
	Registration *Registration `json:"userRegistration,omitempty"`
	Organizer    *Organizer    `json:"organizer,omitempty"`
}

// CalendarLinks are the add-to-calendar URLs for an event.
type CalendarLinks struct {
	GoogleCalendarURL string `json:"googleCalendarUrl"`
	OutlookURL        string `json:"outlookUrl"`
}

// BrowseService is the participant-facing read side: listing, trending,
// details (with view tracking), and calendar export.
type BrowseService interface {
	Browse(ctx context.Context, participantID string, filter EventFilter) ([]*EventListing, error)
	Trending(ctx context.Context, participantID string) ([]*EventListing, error)
	Details(ctx context.Context, participantID, eventID string) (*EventDetails, error)
	CalendarICS(ctx context.Context, eventID string) (filename, ics string, err error)
	CalendarLinks(ctx context.Context, eventID string) (*CalendarLinks, error)
}
