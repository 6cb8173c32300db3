package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"felicityevents/internal/domain"
)

const requestTimeout = 10 * time.Second

type announcer struct {
	client *http.Client
	logger *slog.Logger
}

// NewAnnouncer returns an Announcer that posts a Discord-compatible embed to
// the organizer's configured webhook URL. Organizers without a webhook are
// skipped silently.
func NewAnnouncer(logger *slog.Logger) domain.Announcer {
	return &announcer{
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp"`
}

type payload struct {
	Username string  `json:"username"`
	Content  string  `json:"content"`
	Embeds   []embed `json:"embeds"`
}

func (a *announcer) AnnounceEvent(ctx context.Context, event *domain.Event, organizer *domain.Organizer) error {
	if organizer == nil || organizer.WebhookURL == "" {
		return nil
	}

	e := embed{
		Title:       event.Name,
		Description: event.Description,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if event.EventStartDate != nil {
		e.Fields = append(e.Fields, embedField{
			Name:   "Starts",
			Value:  event.EventStartDate.Format("Mon, 02 Jan 2006 15:04 MST"),
			Inline: true,
		})
	}
	if event.RegistrationDeadline != nil {
		e.Fields = append(e.Fields, embedField{
			Name:   "Register by",
			Value:  event.RegistrationDeadline.Format("Mon, 02 Jan 2006 15:04 MST"),
			Inline: true,
		})
	}
	if event.Venue != "" {
		e.Fields = append(e.Fields, embedField{Name: "Venue", Value: event.Venue, Inline: true})
	}

	body, err := json.Marshal(payload{
		Username: "Felicity Events",
		Content:  fmt.Sprintf("%s just announced a new event!", organizer.Name),
		Embeds:   []embed{e},
	})
	if err != nil {
		return fmt.Errorf("failed to encode announcement: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, organizer.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build announcement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post announcement: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("announcement webhook returned status %d", resp.StatusCode)
	}
	a.logger.Info("event announced", "event_id", event.ID, "organizer_id", organizer.ID)
	return nil
}
