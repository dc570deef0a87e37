// Package model contains all domain models and data structures for the chime system.
package model

import (
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

const tablePrefix = "chime_"

// Keys holds the client-side encryption material delivered by the browser's
// PushManager when a subscription is created. Both values are base64url
// encoded: P256dh is the client's uncompressed P-256 public key, Auth is the
// 16-byte authentication secret.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription represents one owner's live Web Push subscription.
//
// Each owner has at most one live subscription: registering a new one replaces
// the previous endpoint (upsert semantics). A subscription is destroyed when
// the push service reports the endpoint permanently gone (404/410) or when the
// owner explicitly unsubscribes.
type Subscription struct {
	ID        string    `json:"id"`        // Unique subscription ID (UUID)
	OwnerID   string    `json:"ownerID"`   // Opaque owner identity
	Endpoint  string    `json:"endpoint"`  // Push service HTTPS endpoint
	Keys      Keys      `json:"keys"`      // Client encryption material
	CreatedAt time.Time `json:"createdAt"` // Registration time
}

// TableName returns the database table name for Subscription.
func (m Subscription) TableName() string {
	return tablePrefix + "subscription"
}

// NewSubscription creates a subscription for an owner with a fresh ID.
//
// Parameters:
//   - ownerID: Opaque owner identity (never interpreted by the scheduler)
//   - endpoint: Push service HTTPS endpoint URL
//   - keys: Encryption material from the client's PushManager
func NewSubscription(ownerID, endpoint string, keys Keys) Subscription {
	return Subscription{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Endpoint:  endpoint,
		Keys:      keys,
		CreatedAt: time.Now(),
	}
}

// Validate checks that the subscription carries everything a delivery attempt
// needs: an owner, an https endpoint, and both key components.
func (m Subscription) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.OwnerID, validation.Required, validation.Length(1, 255)),
		validation.Field(&m.Endpoint, validation.Required, is.URL),
		validation.Field(&m.Keys, validation.Required),
	)
}

// Validate checks both key components are present.
func (k Keys) Validate() error {
	return validation.ValidateStruct(&k,
		validation.Field(&k.P256dh, validation.Required),
		validation.Field(&k.Auth, validation.Required),
	)
}

// Origin returns the scheme+host of the push endpoint. VAPID tokens are
// scoped to this value, not to the full endpoint URL.
func (m Subscription) Origin() (string, error) {
	u, err := url.Parse(m.Endpoint)
	if err != nil {
		return "", err
	}
	return u.Scheme + "://" + u.Host, nil
}
