package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/navikt/mrooms/internal/config"
	"github.com/navikt/mrooms/internal/models"
)

// wallClockLayout is the zone-less date-time form the API uses when a
// separate timeZone field carries the zone.
const wallClockLayout = "2006-01-02T15:04:05"

// Normalizer converts raw calendar events into canonical meetings.
// One normalizer is shared by every fetch path so that normalization
// semantics stay identical across entry points.
type Normalizer struct {
	roomEmailPatterns []string
}

// NewNormalizer creates a normalizer using the configured room-mailbox
// patterns for attendee filtering.
func NewNormalizer(filter config.RoomFilterConfig) *Normalizer {
	patterns := make([]string, 0, len(filter.RoomEmailPatterns))
	for _, p := range filter.RoomEmailPatterns {
		patterns = append(patterns, strings.ToLower(p))
	}
	return &Normalizer{roomEmailPatterns: patterns}
}

// NormalizeEvent maps one raw event to one canonical meeting for the
// given room. It returns ErrMalformedEvent (wrapped) when the record
// cannot be made canonical; callers discard such records and continue.
func (n *Normalizer) NormalizeEvent(raw RawEvent, room models.MeetingRoom) (*models.Meeting, error) {
	start, err := parseEventTime(raw.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", ErrMalformedEvent, err)
	}
	end, err := parseEventTime(raw.End)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %v", ErrMalformedEvent, err)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start %s is not before end %s", ErrMalformedEvent, start, end)
	}

	id := raw.ID
	if id == "" {
		// No identifier from the source; mint one so the record stays
		// addressable for the rest of this fetch cycle.
		id = uuid.NewString()
	}

	subject := strings.TrimSpace(raw.Subject)
	if subject == "" {
		subject = models.DefaultSubject
	}

	organizer := models.UnknownOrganizer
	var details *models.Organizer
	if raw.Organizer != nil {
		if name := strings.TrimSpace(raw.Organizer.EmailAddress.Name); name != "" {
			organizer = name
		}
		if raw.Organizer.EmailAddress.Name != "" || raw.Organizer.EmailAddress.Address != "" {
			details = &models.Organizer{
				Name:  raw.Organizer.EmailAddress.Name,
				Email: raw.Organizer.EmailAddress.Address,
			}
		}
	}

	attendees := n.filterAttendees(raw.Attendees, room)

	return &models.Meeting{
		ID:               id,
		Subject:          subject,
		StartTime:        start,
		EndTime:          end,
		Organizer:        organizer,
		OrganizerDetails: details,
		Attendees:        attendees,
		RoomID:           room.ID,
		AttendeeCount:    len(attendees),
	}, nil
}

// filterAttendees drops resource attendees and anything that looks like
// the room itself, preserving source order for the rest.
func (n *Normalizer) filterAttendees(raws []RawAttendee, room models.MeetingRoom) []models.Attendee {
	attendees := make([]models.Attendee, 0, len(raws))
	for _, raw := range raws {
		if strings.EqualFold(raw.Type, string(models.AttendeeResource)) {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(raw.EmailAddress.Address))
		if email != "" {
			if strings.EqualFold(email, room.ID) {
				continue
			}
			if n.matchesRoomPattern(email) {
				continue
			}
		}

		attendees = append(attendees, models.Attendee{
			Name:   raw.EmailAddress.Name,
			Email:  raw.EmailAddress.Address,
			Status: attendeeStatus(raw.Status.Response),
			Type:   attendeeType(raw.Type),
		})
	}
	return attendees
}

func (n *Normalizer) matchesRoomPattern(email string) bool {
	for _, pattern := range n.roomEmailPatterns {
		if strings.Contains(email, pattern) {
			return true
		}
	}
	return false
}

// parseEventTime resolves a raw start/end value to a UTC instant.
//
// When a recognized European zone name accompanies the value, the
// date-time is wall-clock time in that zone and is converted through the
// zone's offset. Everything else is taken as UTC, with a "Z" marker
// appended when the value carries none.
func parseEventTime(raw RawDateTime) (time.Time, error) {
	value := strings.TrimSpace(raw.DateTime)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date-time")
	}
	// The API appends fractional seconds of varying width; the wall
	// clock layouts below don't carry them.
	value = trimFraction(value)

	zone := strings.TrimSpace(raw.TimeZone)
	if zone != "" && !strings.EqualFold(zone, "UTC") && isEuropeanZone(zone) {
		loc, err := loadEuropeanZone(zone)
		if err != nil {
			return time.Time{}, err
		}
		t, err := time.ParseInLocation(wallClockLayout, strings.TrimSuffix(value, "Z"), loc)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}

	if !strings.HasSuffix(value, "Z") && !hasOffset(value) {
		value += "Z"
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// isEuropeanZone recognizes the zone names the source system emits for
// its own region.
func isEuropeanZone(zone string) bool {
	return strings.Contains(zone, "Europe") || strings.Contains(zone, "Paris")
}

func loadEuropeanZone(zone string) (*time.Location, error) {
	if strings.Contains(zone, "/") {
		if loc, err := time.LoadLocation(zone); err == nil {
			return loc, nil
		}
	}
	// Windows-style display names ("Romance Standard Time", "Paris,
	// Madrid") all collapse to the Paris offset here.
	return time.LoadLocation("Europe/Paris")
}

// trimFraction removes fractional seconds like ".0000000" while keeping
// any trailing Z or offset.
func trimFraction(value string) string {
	dot := strings.IndexByte(value, '.')
	if dot < 0 {
		return value
	}
	rest := value[dot+1:]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	return value[:dot] + rest[end:]
}

// hasOffset reports whether an RFC3339-ish value already ends in a
// numeric zone offset such as +02:00.
func hasOffset(value string) bool {
	if len(value) < 6 {
		return false
	}
	tail := value[len(value)-6:]
	return (tail[0] == '+' || tail[0] == '-') && tail[3] == ':'
}

// attendeeStatus maps the API's response strings onto the canonical set.
func attendeeStatus(response string) models.AttendeeStatus {
	switch strings.ToLower(response) {
	case "accepted", "organizer":
		return models.AttendeeAccepted
	case "declined":
		return models.AttendeeDeclined
	case "tentative", "tentativelyaccepted":
		return models.AttendeeTentative
	case "notresponded":
		return models.AttendeeNotResponded
	default:
		return models.AttendeeNone
	}
}

func attendeeType(t string) models.AttendeeType {
	switch strings.ToLower(t) {
	case "optional":
		return models.AttendeeOptional
	case "resource":
		return models.AttendeeResource
	default:
		return models.AttendeeRequired
	}
}
