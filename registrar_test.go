package chime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistrar(t *testing.T, subs *fakeSubs) *Registrar {
	t.Helper()
	r, err := NewRegistrar(
		WithRegistrarRepository(subs),
		WithRegistrarLogger(&NoopLogger{}),
	)
	require.NoError(t, err)
	return r
}

func TestNewRegistrar_RequiredOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []RegistrarOption
	}{
		{
			name: "No options",
			opts: nil,
		},
		{
			name: "Missing logger",
			opts: []RegistrarOption{WithRegistrarRepository(newFakeSubs())},
		},
		{
			name: "Missing repository",
			opts: []RegistrarOption{WithRegistrarLogger(&NoopLogger{})},
		},
		{
			name: "Nil repository",
			opts: []RegistrarOption{
				WithRegistrarRepository(nil),
				WithRegistrarLogger(&NoopLogger{}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistrar(tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestRegistrar_Subscribe(t *testing.T) {
	subs := newFakeSubs()
	registrar := newTestRegistrar(t, subs)

	sub, err := registrar.Subscribe(context.Background(), SubscribeRequest{
		OwnerID:  "owner-1",
		Endpoint: "https://push.example.com/send/abc",
		P256dh:   "BOrO3",
		Auth:     "dGVzdA",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "owner-1", sub.OwnerID)
	assert.True(t, subs.has("owner-1"))
}

func TestRegistrar_Subscribe_Validation(t *testing.T) {
	registrar := newTestRegistrar(t, newFakeSubs())

	valid := SubscribeRequest{
		OwnerID:  "owner-1",
		Endpoint: "https://push.example.com/send/abc",
		P256dh:   "BOrO3",
		Auth:     "dGVzdA",
	}

	tests := []struct {
		name   string
		mutate func(*SubscribeRequest)
	}{
		{"Missing owner", func(r *SubscribeRequest) { r.OwnerID = "" }},
		{"Missing endpoint", func(r *SubscribeRequest) { r.Endpoint = "" }},
		{"Endpoint not a URL", func(r *SubscribeRequest) { r.Endpoint = "not a url" }},
		{"Missing p256dh", func(r *SubscribeRequest) { r.P256dh = "" }},
		{"Missing auth", func(r *SubscribeRequest) { r.Auth = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			_, err := registrar.Subscribe(context.Background(), req)

			require.Error(t, err)
			var chimeErr *Error
			require.ErrorAs(t, err, &chimeErr)
			assert.Equal(t, ErrCodeValidation, chimeErr.Code)
		})
	}
}

func TestRegistrar_Subscribe_ReplacesExisting(t *testing.T) {
	subs := newFakeSubs()
	registrar := newTestRegistrar(t, subs)

	_, err := registrar.Subscribe(context.Background(), SubscribeRequest{
		OwnerID:  "owner-1",
		Endpoint: "https://push.example.com/send/old",
		P256dh:   "BOrO3",
		Auth:     "dGVzdA",
	})
	require.NoError(t, err)

	// Browsers rotate endpoints; the second registration wins.
	_, err = registrar.Subscribe(context.Background(), SubscribeRequest{
		OwnerID:  "owner-1",
		Endpoint: "https://push.example.com/send/new",
		P256dh:   "BOrO4",
		Auth:     "bmV3",
	})
	require.NoError(t, err)

	stored, err := registrar.Subscription(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "https://push.example.com/send/new", stored.Endpoint)
	assert.Equal(t, "BOrO4", stored.Keys.P256dh)
}

func TestRegistrar_Unsubscribe(t *testing.T) {
	subs := newFakeSubs(testSub("owner-1"))
	registrar := newTestRegistrar(t, subs)

	err := registrar.Unsubscribe(context.Background(), "owner-1")

	require.NoError(t, err)
	assert.False(t, subs.has("owner-1"))
}

func TestRegistrar_Unsubscribe_UnknownOwnerIsNotAnError(t *testing.T) {
	registrar := newTestRegistrar(t, newFakeSubs())

	err := registrar.Unsubscribe(context.Background(), "never-registered")

	assert.NoError(t, err)
}

func TestRegistrar_Unsubscribe_EmptyOwner(t *testing.T) {
	registrar := newTestRegistrar(t, newFakeSubs())

	err := registrar.Unsubscribe(context.Background(), "")

	require.Error(t, err)
	var chimeErr *Error
	require.ErrorAs(t, err, &chimeErr)
	assert.Equal(t, ErrCodeValidation, chimeErr.Code)
}

func TestRegistrar_Subscription_NoData(t *testing.T) {
	registrar := newTestRegistrar(t, newFakeSubs())

	_, err := registrar.Subscription(context.Background(), "owner-1")

	assert.True(t, IsNoData(err))
}
