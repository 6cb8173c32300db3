// Package calendar produces iCalendar files and add-to-calendar links for
// events. The UTC basic date format is shared between the ICS output and
// the external calendar URLs.
package calendar

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"felicityevents/internal/domain"
)

const (
	uidDomain         = "felicity.iiit.ac.in"
	descriptionMaxLen = 500
)

// FormatUTC renders a time in the RFC 5545 UTC basic format
// (YYYYMMDDTHHMMSSZ).
func FormatUTC(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// BuildICS renders a VCALENDAR with a single VEVENT and a one-hour-before
// display alarm. The event must have start and end dates.
func BuildICS(event *domain.Event, organizerName string, now time.Time) string {
	if organizerName == "" {
		organizerName = "Felicity"
	}
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Felicity//Event Management//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		fmt.Sprintf("UID:%s@%s", event.ID, uidDomain),
		"DTSTAMP:" + FormatUTC(now),
		"DTSTART:" + FormatUTC(*event.EventStartDate),
		"DTEND:" + FormatUTC(*event.EventEndDate),
		"SUMMARY:" + event.Name,
		"DESCRIPTION:" + escapeDescription(event.Description),
	}
	if event.Venue != "" {
		lines = append(lines, "LOCATION:"+event.Venue)
	}
	lines = append(lines,
		"ORGANIZER:"+organizerName,
		"STATUS:CONFIRMED",
		"BEGIN:VALARM",
		"TRIGGER:-PT1H",
		"ACTION:DISPLAY",
		"DESCRIPTION:Event reminder",
		"END:VALARM",
		"END:VEVENT",
		"END:VCALENDAR",
	)
	return strings.Join(lines, "\r\n")
}

// GoogleCalendarURL builds a prefilled Google Calendar event link.
func GoogleCalendarURL(event *domain.Event) string {
	return fmt.Sprintf(
		"https://www.google.com/calendar/render?action=TEMPLATE&text=%s&dates=%s/%s&details=%s&location=%s&sf=true&output=xml",
		url.QueryEscape(event.Name),
		FormatUTC(*event.EventStartDate),
		FormatUTC(*event.EventEndDate),
		url.QueryEscape(truncate(event.Description, descriptionMaxLen)),
		url.QueryEscape(event.Venue),
	)
}

// OutlookURL builds a prefilled Outlook web compose link.
func OutlookURL(event *domain.Event) string {
	return fmt.Sprintf(
		"https://outlook.live.com/calendar/0/deeplink/compose?subject=%s&startdt=%s&enddt=%s&body=%s&location=%s",
		url.QueryEscape(event.Name),
		url.QueryEscape(event.EventStartDate.UTC().Format(time.RFC3339)),
		url.QueryEscape(event.EventEndDate.UTC().Format(time.RFC3339)),
		url.QueryEscape(truncate(event.Description, descriptionMaxLen)),
		url.QueryEscape(event.Venue),
	)
}

var fileNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]`)

// FileName derives the download filename for an event's ICS file.
func FileName(eventName string) string {
	return fileNameSanitizer.ReplaceAllString(eventName, "_") + ".ics"
}

func escapeDescription(s string) string {
	return strings.ReplaceAll(truncate(s, descriptionMaxLen), "\n", `\n`)
}

// truncate cuts on rune boundaries so a clipped description stays valid
// UTF-8.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
