// Package event defines the event record as written by the authoring UI.
package event

import "time"

// Event is a single announcement record. It is created once and read once by
// the dispatcher; the core never mutates it.
type Event struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags,omitempty"`
	Description string     `json:"description,omitempty"`
	Place       string     `json:"place,omitempty"`
	Price       string     `json:"price,omitempty"`
	Link        string     `json:"link,omitempty"`
	Contact     string     `json:"contact,omitempty"`
	ImageRef    string     `json:"image_ref,omitempty"`
	StartAt     *time.Time `json:"start_at,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"`

	// PostToTelegram is a tri-state skip flag: nil means "post",
	// an explicit false means "skip".
	PostToTelegram *bool `json:"post_to_telegram,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ShouldPost reports whether the dispatcher should announce this event.
// Only an explicit false suppresses posting.
func (e Event) ShouldPost() bool {
	return e.PostToTelegram == nil || *e.PostToTelegram
}
