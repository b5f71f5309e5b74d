package calendar

import (
	"bytes"
	"encoding/json"
)

// RawDateTime is a start or end value as the calendar API sends it:
// either an object {"dateTime": "...", "timeZone": "..."} or a bare
// string. The timeZone may be absent, "UTC", or a named zone.
type RawDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// UnmarshalJSON accepts both the object form and a bare string value.
func (d *RawDateTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		d.DateTime = s
		d.TimeZone = ""
		return nil
	}

	type alias RawDateTime
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = RawDateTime(a)
	return nil
}

// RawEmailAddress mirrors the API's nested emailAddress shape
type RawEmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// RawRecipient is an organizer or similar single-person field
type RawRecipient struct {
	EmailAddress RawEmailAddress `json:"emailAddress"`
}

// RawResponseStatus carries an attendee's invitation response
type RawResponseStatus struct {
	Response string `json:"response"`
	Time     string `json:"time,omitempty"`
}

// RawAttendee is one entry of an event's attendee list
type RawAttendee struct {
	Type         string            `json:"type"`
	Status       RawResponseStatus `json:"status"`
	EmailAddress RawEmailAddress   `json:"emailAddress"`
}

// RawLocation is an event's location field
type RawLocation struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"locationEmailAddress,omitempty"`
}

// RawEvent is one calendar event exactly as the external API returns
// it. The normalizer turns it into a canonical models.Meeting.
type RawEvent struct {
	ID        string        `json:"id"`
	Subject   string        `json:"subject"`
	Start     RawDateTime   `json:"start"`
	End       RawDateTime   `json:"end"`
	Organizer *RawRecipient `json:"organizer,omitempty"`
	Attendees []RawAttendee `json:"attendees,omitempty"`
	Location  *RawLocation  `json:"location,omitempty"`
}

// RawRoom is one room entry from the directory's places listing
type RawRoom struct {
	ID              string   `json:"id"`
	DisplayName     string   `json:"displayName"`
	EmailAddress    string   `json:"emailAddress"`
	Capacity        int      `json:"capacity"`
	Building        string   `json:"building,omitempty"`
	FloorLabel      string   `json:"floorLabel,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	AudioDeviceName string   `json:"audioDeviceName,omitempty"`
	VideoDeviceName string   `json:"videoDeviceName,omitempty"`
}

// eventListResponse is the API's collection envelope for events
type eventListResponse struct {
	Value []RawEvent `json:"value"`
}

// roomListResponse is the API's collection envelope for rooms
type roomListResponse struct {
	Value []RawRoom `json:"value"`
}
