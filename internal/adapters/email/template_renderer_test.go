package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"felicityevents/internal/domain"
)

func TestRenderTicketTemplate(t *testing.T) {
	renderer := NewTemplateRenderer()
	start := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	subject, html, text, err := renderer.Render("ticket", &domain.TicketEmailData{
		Email:           "ada@example.com",
		ParticipantName: "Ada Lovelace",
		EventName:       "Hack Night 2026",
		EventStart:      &start,
		TicketID:        "FEL-2026-ABC123",
		QRCodeDataURL:   "data:image/png;base64,AAAA",
	})

	require.NoError(t, err)
	assert.Equal(t, "Your ticket for Hack Night 2026", subject)
	assert.Contains(t, html, "FEL-2026-ABC123")
	assert.Contains(t, html, "data:image/png;base64,AAAA")
	assert.Contains(t, text, "Ada Lovelace")
	assert.Contains(t, text, "FEL-2026-ABC123")
}

func TestRenderOrderTemplates(t *testing.T) {
	renderer := NewTemplateRenderer()

	subject, html, text, err := renderer.Render("order_received", &domain.OrderEmailData{
		Email:           "ada@example.com",
		ParticipantName: "Ada Lovelace",
		EventName:       "Felicity Merch Drop",
		TicketID:        "FEL-2026-XYZ789",
		VariantName:     "Hoodie / XL",
		Quantity:        2,
		Amount:          "600.00",
	})
	require.NoError(t, err)
	assert.Equal(t, "Order received for Felicity Merch Drop", subject)
	assert.Contains(t, html, "Hoodie / XL")
	assert.Contains(t, text, "Amount due: 600.00")

	subject, _, text, err = renderer.Render("order_rejected", &domain.OrderReviewEmailData{
		ParticipantName: "Ada Lovelace",
		EventName:       "Felicity Merch Drop",
		TicketID:        "FEL-2026-XYZ789",
		Comment:         "Transaction ID does not match",
	})
	require.NoError(t, err)
	assert.Equal(t, "Payment rejected for Felicity Merch Drop", subject)
	assert.Contains(t, text, "Transaction ID does not match")
}

func TestRenderOrganizerWelcome(t *testing.T) {
	renderer := NewTemplateRenderer()

	subject, html, text, err := renderer.Render("organizer_welcome", &domain.OrganizerWelcomeEmailData{
		OrganizerName:     "Robotics Club",
		LoginEmail:        "robotics@felicity.iiit.ac.in",
		TemporaryPassword: "kq7mWn4PzRt2",
	})

	require.NoError(t, err)
	assert.Equal(t, "Your Felicity organizer account", subject)
	assert.Contains(t, html, "kq7mWn4PzRt2")
	assert.Contains(t, text, "robotics@felicity.iiit.ac.in")
}

func TestRenderUnknownTemplate(t *testing.T) {
	renderer := NewTemplateRenderer()

	_, _, _, err := renderer.Render("bogus", nil)

	assert.Error(t, err)
}
