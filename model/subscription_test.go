package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscription_TableName(t *testing.T) {
	sub := Subscription{}
	assert.Equal(t, "chime_subscription", sub.TableName())
}

func TestNewSubscription(t *testing.T) {
	keys := Keys{P256dh: "BOrO3...", Auth: "dGVzdA"}

	sub := NewSubscription("owner-1", "https://fcm.googleapis.com/fcm/send/abc", keys)

	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "owner-1", sub.OwnerID)
	assert.Equal(t, "https://fcm.googleapis.com/fcm/send/abc", sub.Endpoint)
	assert.Equal(t, keys, sub.Keys)
	assert.WithinDuration(t, time.Now(), sub.CreatedAt, time.Second)
}

func TestNewSubscription_UniqueIDs(t *testing.T) {
	keys := Keys{P256dh: "key", Auth: "auth"}

	a := NewSubscription("owner-1", "https://example.com/push/1", keys)
	b := NewSubscription("owner-1", "https://example.com/push/1", keys)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestSubscription_Validate(t *testing.T) {
	valid := NewSubscription("owner-1", "https://fcm.googleapis.com/fcm/send/abc", Keys{
		P256dh: "BOrO3...",
		Auth:   "dGVzdA",
	})

	tests := []struct {
		name    string
		mutate  func(*Subscription)
		wantErr bool
	}{
		{
			name:    "Valid subscription",
			mutate:  func(*Subscription) {},
			wantErr: false,
		},
		{
			name:    "Missing owner",
			mutate:  func(s *Subscription) { s.OwnerID = "" },
			wantErr: true,
		},
		{
			name:    "Missing endpoint",
			mutate:  func(s *Subscription) { s.Endpoint = "" },
			wantErr: true,
		},
		{
			name:    "Endpoint not a URL",
			mutate:  func(s *Subscription) { s.Endpoint = "not a url" },
			wantErr: true,
		},
		{
			name:    "Missing p256dh key",
			mutate:  func(s *Subscription) { s.Keys.P256dh = "" },
			wantErr: true,
		},
		{
			name:    "Missing auth secret",
			mutate:  func(s *Subscription) { s.Keys.Auth = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := valid
			tt.mutate(&sub)

			err := sub.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubscription_Origin(t *testing.T) {
	sub := Subscription{Endpoint: "https://fcm.googleapis.com/fcm/send/some-long-token"}

	origin, err := sub.Origin()

	assert.NoError(t, err)
	assert.Equal(t, "https://fcm.googleapis.com", origin)
}
