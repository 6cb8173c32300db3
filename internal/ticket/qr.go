package ticket

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"felicityevents/internal/domain"
)

// QR credentials are not signed: authenticity comes from looking the
// ticket up in the registration store, and the embedded event id is only a
// sanity cross-check against the event being scanned. Field names and the
// rendering parameters (error correction H, 300px square) must stay stable
// for interop with tickets already printed or emailed.
const qrPixelSize = 300

// Payload is the JSON document embedded in the QR image.
type Payload struct {
	TicketID        string    `json:"ticketId"`
	EventID         string    `json:"eventId"`
	ParticipantID   string    `json:"participantId"`
	EventName       string    `json:"eventName"`
	ParticipantName string    `json:"participantName"`
	Timestamp       time.Time `json:"timestamp"`
}

// EncodeDataURL renders the payload as a PNG data URL suitable for
// embedding in emails and API responses.
func EncodeDataURL(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal qr payload: %w", err)
	}
	png, err := qrcode.Encode(string(raw), qrcode.Highest, qrPixelSize)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Decode parses scanned QR text back into a payload. All five identity
// fields must be present; the timestamp is informational.
func Decode(qrData string) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(qrData), &p); err != nil {
		return nil, domain.ErrInvalidCredential
	}
	if p.TicketID == "" || p.EventID == "" || p.ParticipantID == "" ||
		p.EventName == "" || p.ParticipantName == "" {
		return nil, domain.ErrInvalidCredential
	}
	return &p, nil
}
