package calendar

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/navikt/mrooms/internal/config"
	"github.com/navikt/mrooms/internal/models"
	"github.com/navikt/mrooms/internal/utils"
)

// APIClient is the slice of the calendar API the fetcher depends on.
type APIClient interface {
	CalendarView(ctx context.Context, roomID string, start, end time.Time) ([]RawEvent, error)
	UserEvents(ctx context.Context, userID string, start, end time.Time) ([]RawEvent, error)
}

// Fetcher retrieves a room's meetings for a business day, trying
// successive strategies until one yields usable data:
//
//  1. the room calendar's own view for the day window
//  2. the service account's event list, filtered to events that
//     reference the room
//
// When every strategy fails the fetcher reports the data as unknown
// rather than fabricating an answer; a failure never surfaces to a
// caller as fatal.
type Fetcher struct {
	client     APIClient
	normalizer *Normalizer

	serviceAccount string
	zone           *time.Location

	// AuthRetryDelay is how long to wait before the single retry a
	// credential error gets.
	AuthRetryDelay time.Duration
}

// NewFetcher creates a fetcher for the given API client and normalizer.
func NewFetcher(client APIClient, normalizer *Normalizer, cfg config.CalendarConfig) *Fetcher {
	zone, err := time.LoadLocation(cfg.BusinessDayZone)
	if err != nil {
		log.Printf("Unknown business day zone %q, falling back to UTC", cfg.BusinessDayZone)
		zone = time.UTC
	}

	return &Fetcher{
		client:         client,
		normalizer:     normalizer,
		serviceAccount: cfg.ServiceAccount,
		zone:           zone,
		AuthRetryDelay: 2 * time.Second,
	}
}

// TodaysMeetings fetches the room's canonical meetings for the current
// business day. The second return value is false when every strategy
// failed and nothing is known about the room.
func (f *Fetcher) TodaysMeetings(ctx context.Context, room models.MeetingRoom) ([]*models.Meeting, bool) {
	return f.MeetingsOn(ctx, room, time.Now())
}

// MeetingsOn fetches the room's canonical meetings for the business day
// containing the given instant.
func (f *Fetcher) MeetingsOn(ctx context.Context, room models.MeetingRoom, day time.Time) ([]*models.Meeting, bool) {
	start, end := f.dayWindow(day)

	// Strategy 1: the room calendar's own view. An empty day is a
	// valid answer and short-circuits the chain.
	raws, err := f.withAuthRetry(ctx, func() ([]RawEvent, error) {
		return f.client.CalendarView(ctx, room.ID, start, end)
	})
	if err == nil {
		return f.normalizeAll(raws, room), true
	}
	log.Printf("Calendar view failed for room %s, falling back: %v", utils.SanitizeLogString(room.ID), err)

	// Strategy 2: the service account's event list filtered to events
	// referencing the room.
	if f.serviceAccount != "" {
		raws, err = f.withAuthRetry(ctx, func() ([]RawEvent, error) {
			return f.client.UserEvents(ctx, f.serviceAccount, start, end)
		})
		if err == nil {
			referencing := make([]RawEvent, 0, len(raws))
			for _, raw := range raws {
				if eventReferencesRoom(raw, room) {
					referencing = append(referencing, raw)
				}
			}
			return f.normalizeAll(referencing, room), true
		}
		log.Printf("Fallback event query failed for room %s: %v", utils.SanitizeLogString(room.ID), err)
	}

	// Every strategy failed; the room renders with no meetings and an
	// explicit unknown marker.
	return nil, false
}

// dayWindow returns the [startOfDay, endOfDay) window containing t in
// the configured business-day zone.
func (f *Fetcher) dayWindow(t time.Time) (time.Time, time.Time) {
	local := t.In(f.zone)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, f.zone)
	return start, start.AddDate(0, 0, 1)
}

// withAuthRetry runs one strategy call, retrying exactly once after a
// short delay when the failure is a credential error.
func (f *Fetcher) withAuthRetry(ctx context.Context, call func() ([]RawEvent, error)) ([]RawEvent, error) {
	raws, err := call()

	var authErr *AuthError
	if err != nil && errors.As(err, &authErr) {
		select {
		case <-time.After(f.AuthRetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		raws, err = call()
	}

	return raws, err
}

// normalizeAll maps raw events to canonical meetings, discarding
// malformed records individually.
func (f *Fetcher) normalizeAll(raws []RawEvent, room models.MeetingRoom) []*models.Meeting {
	meetings := make([]*models.Meeting, 0, len(raws))
	for _, raw := range raws {
		meeting, err := f.normalizer.NormalizeEvent(raw, room)
		if err != nil {
			log.Printf("Discarding event for room %s: %v", utils.SanitizeLogString(room.ID), err)
			continue
		}
		meetings = append(meetings, meeting)
	}
	return meetings
}

// eventReferencesRoom reports whether an event from the fallback query
// involves the room, either as an attendee mailbox or in the location
// string.
func eventReferencesRoom(raw RawEvent, room models.MeetingRoom) bool {
	for _, attendee := range raw.Attendees {
		if strings.EqualFold(attendee.EmailAddress.Address, room.ID) {
			return true
		}
	}
	if raw.Location != nil {
		if strings.EqualFold(raw.Location.EmailAddress, room.ID) {
			return true
		}
		if room.Name != "" && strings.Contains(strings.ToLower(raw.Location.DisplayName), strings.ToLower(room.Name)) {
			return true
		}
	}
	return false
}
