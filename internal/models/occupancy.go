package models

import "time"

// Availability describes what is known about a room at evaluation time.
// Unknown means every fetch strategy failed and no meeting data is
// available; it is distinct from an empty (free) calendar.
type Availability string

const (
	AvailabilityFree     Availability = "available"
	AvailabilityOccupied Availability = "occupied"
	AvailabilityUnknown  Availability = "unknown"
)

// RoomOccupancyView is the derived occupancy state of a single room at a
// single instant. It is recomputed on every evaluation tick and replaced
// wholesale, never mutated in place.
type RoomOccupancyView struct {
	RoomID           string       `json:"room_id"`
	Availability     Availability `json:"availability"`
	IsOccupied       bool         `json:"is_occupied"`
	CurrentMeeting   *Meeting     `json:"current_meeting,omitempty"`
	NextMeeting      *Meeting     `json:"next_meeting,omitempty"`
	UpcomingMeetings []*Meeting   `json:"upcoming_meetings"`
	// Progress is the elapsed percentage of the current meeting,
	// clamped to [0,100]. Zero when no meeting is in progress.
	Progress float64 `json:"progress"`
	// IsStartingSoon is true when the next meeting starts within the
	// configured warning window (30 minutes by default).
	IsStartingSoon bool      `json:"is_starting_soon"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
}
