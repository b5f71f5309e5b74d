package models

// MeetingRoom represents a bookable physical room from the directory
type MeetingRoom struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Location string   `json:"location"`
	Capacity int      `json:"capacity"`
	Features []string `json:"features,omitempty"`
}

// HasFeature reports whether the room advertises the given capability tag.
func (r *MeetingRoom) HasFeature(feature string) bool {
	for _, f := range r.Features {
		if f == feature {
			return true
		}
	}
	return false
}
