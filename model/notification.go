package model

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Notification is the payload delivered to the client's service worker.
//
// The schema mirrors what the client-side notification handler expects:
// Title and Body are rendered directly, URL is the deep-link target opened on
// click, and Tag lets the browser replace stacked notifications from the same
// trigger instead of piling them up.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Tag   string `json:"tag"`
}

// Validate checks the payload renders to something user-visible.
func (n Notification) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&n.Tag, validation.Required, validation.Length(1, 64)),
	)
}

// Encode serializes the payload for encryption. The encoded form must stay
// under the Web Push record limit; Validate bounds the variable fields.
func (n Notification) Encode() ([]byte, error) {
	return json.Marshal(n)
}
