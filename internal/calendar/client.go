// Package calendar talks to the external calendar/directory API and
// turns its event payloads into canonical meetings.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/navikt/mrooms/internal/config"
	"github.com/navikt/mrooms/internal/models"
)

// Client is an HTTP client for the external calendar/directory API.
// Token acquisition and refresh is delegated entirely to the OAuth2
// client-credentials transport.
type Client struct {
	http *resty.Client
}

// NewClient creates a calendar API client from configuration. When the
// OAuth credentials are incomplete (local development, tests) the client
// falls back to plain unauthenticated HTTP.
func NewClient(cfg config.CalendarConfig) *Client {
	var rc *resty.Client

	if cfg.IsValid() {
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID)
		}

		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{"https://graph.microsoft.com/.default"},
		}
		rc = resty.NewWithClient(cc.Client(context.Background()))
	} else {
		rc = resty.New()
	}

	rc.SetBaseURL(cfg.BaseURL)
	rc.SetTimeout(30 * time.Second)
	rc.SetHeader("Accept", "application/json")
	// Ask the API to render event times in UTC so the normalizer only
	// has to handle zone names on payloads that ignore the preference.
	rc.SetHeader("Prefer", `outlook.timezone="UTC"`)

	return &Client{http: rc}
}

// ListRooms fetches the room directory.
func (c *Client) ListRooms(ctx context.Context) ([]models.MeetingRoom, error) {
	var out roomListResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/places/microsoft.graph.room")
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}

	rooms := make([]models.MeetingRoom, 0, len(out.Value))
	for _, raw := range out.Value {
		rooms = append(rooms, roomFromRaw(raw))
	}
	return rooms, nil
}

// CalendarView fetches the events of a room's own calendar overlapping
// the [start, end) window. This is the primary fetch strategy.
func (c *Client) CalendarView(ctx context.Context, roomID string, start, end time.Time) ([]RawEvent, error) {
	var out eventListResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("roomID", roomID).
		SetQueryParams(map[string]string{
			"startDateTime": start.UTC().Format(time.RFC3339),
			"endDateTime":   end.UTC().Format(time.RFC3339),
		}).
		Get("/users/{roomID}/calendarView")
	if err != nil {
		return nil, fmt.Errorf("calendar view query failed: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}

	return out.Value, nil
}

// UserEvents fetches a principal's own event list for the window. The
// fetcher filters these client-side to events referencing a room; this
// backs the fallback strategy when a room calendar cannot be queried
// directly.
func (c *Client) UserEvents(ctx context.Context, userID string, start, end time.Time) ([]RawEvent, error) {
	var out eventListResponse

	filter := fmt.Sprintf("start/dateTime ge '%s' and start/dateTime lt '%s'",
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("userID", userID).
		SetQueryParam("$filter", filter).
		Get("/users/{userID}/events")
	if err != nil {
		return nil, fmt.Errorf("user events query failed: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}

	return out.Value, nil
}

// apiError maps a non-2xx response to the error taxonomy.
func apiError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	status := resp.StatusCode()
	if status == 401 || status == 403 {
		return &AuthError{Status: status}
	}
	return &RemoteAPIError{Status: status, Body: strings.TrimSpace(string(resp.Body()))}
}

// roomFromRaw maps a directory entry to the domain model. The room's
// mailbox address doubles as its identifier since every calendar query
// is keyed by it.
func roomFromRaw(raw RawRoom) models.MeetingRoom {
	location := raw.Building
	if raw.FloorLabel != "" {
		if location != "" {
			location += ", " + raw.FloorLabel
		} else {
			location = raw.FloorLabel
		}
	}

	features := append([]string(nil), raw.Tags...)
	if raw.VideoDeviceName != "" {
		features = append(features, "Visioconférence")
	}

	id := raw.EmailAddress
	if id == "" {
		id = raw.ID
	}

	return models.MeetingRoom{
		ID:       id,
		Name:     raw.DisplayName,
		Location: location,
		Capacity: raw.Capacity,
		Features: features,
	}
}
