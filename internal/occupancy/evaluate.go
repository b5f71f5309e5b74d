// Package occupancy derives a room's live status from its meetings.
package occupancy

import (
	"sort"
	"time"

	"github.com/navikt/mrooms/internal/models"
)

// DefaultStartingSoonWindow is how close a meeting's start has to be
// before the room is flagged as starting soon.
const DefaultStartingSoonWindow = 30 * time.Minute

// Evaluator computes a RoomOccupancyView from a meeting set and an
// instant. Evaluation is pure: it never mutates its inputs and
// identical inputs always produce identical output, so it can run on
// every display tick without side effects.
type Evaluator struct {
	StartingSoonWindow time.Duration
}

// NewEvaluator creates an evaluator with the default warning window.
func NewEvaluator() *Evaluator {
	return &Evaluator{StartingSoonWindow: DefaultStartingSoonWindow}
}

// Evaluate derives the occupancy view of a room at the given instant.
//
// Meetings are considered in ascending start order (stable, so equal
// starts keep source order). The current meeting is the first whose
// interval contains now, inclusive at both bounds; when intervals
// overlap the earliest-starting one wins. The next meeting is the first
// with a start strictly after now.
func (e *Evaluator) Evaluate(roomID string, meetings []*models.Meeting, now time.Time) *models.RoomOccupancyView {
	sorted := make([]*models.Meeting, len(meetings))
	copy(sorted, meetings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	view := &models.RoomOccupancyView{
		RoomID:           roomID,
		Availability:     models.AvailabilityFree,
		UpcomingMeetings: []*models.Meeting{},
		EvaluatedAt:      now,
	}

	for _, m := range sorted {
		switch {
		case view.CurrentMeeting == nil && m.Contains(now):
			view.CurrentMeeting = m
		case m.StartTime.After(now):
			if view.NextMeeting == nil {
				view.NextMeeting = m
			} else {
				view.UpcomingMeetings = append(view.UpcomingMeetings, m)
			}
		}
	}

	if view.CurrentMeeting != nil {
		view.IsOccupied = true
		view.Availability = models.AvailabilityOccupied
		view.Progress = view.CurrentMeeting.Progress(now)
	}

	if view.NextMeeting != nil {
		window := e.StartingSoonWindow
		if window <= 0 {
			window = DefaultStartingSoonWindow
		}
		until := view.NextMeeting.StartTime.Sub(now)
		view.IsStartingSoon = until > 0 && until <= window
	}

	return view
}

// Unknown builds the view for a room whose meeting data could not be
// retrieved by any strategy. It is explicitly distinct from a free
// room: nothing is claimed about occupancy.
func (e *Evaluator) Unknown(roomID string, now time.Time) *models.RoomOccupancyView {
	return &models.RoomOccupancyView{
		RoomID:           roomID,
		Availability:     models.AvailabilityUnknown,
		UpcomingMeetings: []*models.Meeting{},
		EvaluatedAt:      now,
	}
}
