package calendar

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"felicityevents/internal/domain"
)

func testEvent() *domain.Event {
	start := time.Date(2025, 4, 1, 18, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 1, 21, 30, 0, 0, time.UTC)
	return &domain.Event{
		ID:             "ev-42",
		Name:           "Open Mic Night",
		Description:    "An evening of music\nand comedy",
		Venue:          "Amphitheatre",
		EventStartDate: &start,
		EventEndDate:   &end,
	}
}

func TestFormatUTC(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	ts := time.Date(2025, 4, 1, 23, 30, 0, 0, loc)
	require.Equal(t, "20250401T180000Z", FormatUTC(ts))
}

func TestBuildICS(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ics := BuildICS(testEvent(), "Music Club", now)

	require.True(t, strings.HasPrefix(ics, "BEGIN:VCALENDAR"))
	require.True(t, strings.HasSuffix(ics, "END:VCALENDAR"))
	require.Contains(t, ics, "UID:ev-42@felicity.iiit.ac.in")
	require.Contains(t, ics, "DTSTAMP:20250301T120000Z")
	require.Contains(t, ics, "DTSTART:20250401T180000Z")
	require.Contains(t, ics, "DTEND:20250401T213000Z")
	require.Contains(t, ics, "SUMMARY:Open Mic Night")
	require.Contains(t, ics, `DESCRIPTION:An evening of music\nand comedy`)
	require.Contains(t, ics, "LOCATION:Amphitheatre")
	require.Contains(t, ics, "TRIGGER:-PT1H")

	// ICS requires CRLF line endings throughout.
	require.NotContains(t, strings.ReplaceAll(ics, "\r\n", ""), "\n")
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	long := strings.Repeat("é", descriptionMaxLen+10)
	got := truncate(long, descriptionMaxLen)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, descriptionMaxLen, utf8.RuneCountInString(got))

	require.Equal(t, "short", truncate("short", descriptionMaxLen))
}

func TestBuildICSOmitsEmptyLocation(t *testing.T) {
	ev := testEvent()
	ev.Venue = ""
	ics := BuildICS(ev, "", time.Now())
	require.NotContains(t, ics, "LOCATION:")
	require.Contains(t, ics, "ORGANIZER:Felicity")
}

func TestCalendarLinksShareDateFormat(t *testing.T) {
	ev := testEvent()
	g := GoogleCalendarURL(ev)
	require.Contains(t, g, "dates=20250401T180000Z/20250401T213000Z")
	require.Contains(t, g, "text=Open+Mic+Night")

	o := OutlookURL(ev)
	require.Contains(t, o, "subject=Open+Mic+Night")
	require.Contains(t, o, "startdt=2025-04-01T18%3A00%3A00Z")
}

func TestFileName(t *testing.T) {
	require.Equal(t, "Open_Mic_Night_.ics", FileName("Open Mic Night!"))
}
