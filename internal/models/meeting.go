package models

import (
	"time"
)

// DefaultSubject is used when a calendar event carries no subject.
const DefaultSubject = "Réunion privée"

// UnknownOrganizer is used when a calendar event carries no organizer name.
const UnknownOrganizer = "Organisateur inconnu"

// AttendeeStatus represents an attendee's response to a meeting invitation
type AttendeeStatus string

const (
	AttendeeAccepted     AttendeeStatus = "accepted"
	AttendeeDeclined     AttendeeStatus = "declined"
	AttendeeTentative    AttendeeStatus = "tentative"
	AttendeeNone         AttendeeStatus = "none"
	AttendeeNotResponded AttendeeStatus = "notresponded"
)

// AttendeeType classifies an attendee as a person or a booked resource
type AttendeeType string

const (
	AttendeeRequired AttendeeType = "required"
	AttendeeOptional AttendeeType = "optional"
	AttendeeResource AttendeeType = "resource"
)

// Attendee represents a person invited to a meeting
type Attendee struct {
	Name   string         `json:"name"`
	Email  string         `json:"email"`
	Status AttendeeStatus `json:"status,omitempty"`
	Type   AttendeeType   `json:"type,omitempty"`
}

// Organizer carries the organizer's directory details when the source
// event provides them
type Organizer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Meeting is the canonical, timezone-resolved representation of a
// calendar event. StartTime and EndTime are always UTC instants and
// StartTime is strictly before EndTime.
type Meeting struct {
	ID               string     `json:"id"`
	Subject          string     `json:"subject"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          time.Time  `json:"end_time"`
	Organizer        string     `json:"organizer"`
	OrganizerDetails *Organizer `json:"organizer_details,omitempty"`
	Attendees        []Attendee `json:"attendees"`
	RoomID           string     `json:"room_id"`
	AttendeeCount    int        `json:"attendee_count"`
}

// Contains reports whether the meeting's interval contains the given
// instant, inclusive at both bounds.
func (m *Meeting) Contains(t time.Time) bool {
	return !t.Before(m.StartTime) && !t.After(m.EndTime)
}

// Duration returns the scheduled length of the meeting.
func (m *Meeting) Duration() time.Duration {
	return m.EndTime.Sub(m.StartTime)
}

// Progress returns the elapsed share of the meeting at the given instant
// as a percentage clamped to [0,100].
func (m *Meeting) Progress(now time.Time) float64 {
	total := m.EndTime.Sub(m.StartTime)
	if total <= 0 {
		return 0
	}
	elapsed := now.Sub(m.StartTime)
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= total {
		return 100
	}
	return float64(elapsed) / float64(total) * 100
}
