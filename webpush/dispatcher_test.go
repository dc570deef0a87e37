package webpush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateteriya/chime/model"
	"github.com/mateteriya/chime/retry"
)

func testSigner(t *testing.T) *Signer {
	t.Helper()
	privateKey, publicKey, err := GenerateKeys()
	require.NoError(t, err)
	signer, err := NewSigner(privateKey, publicKey, "mailto:admin@example.com")
	require.NoError(t, err)
	return signer
}

// fastRetries keeps test retries in the millisecond range.
func fastRetries() retry.Strategy {
	return retry.Strategy{
		MaxAttempts:     3,
		BaseDelay:       time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		ExponentialBase: 2.0,
	}
}

func testDispatcher(t *testing.T, opts ...DispatcherOption) *Dispatcher {
	t.Helper()
	opts = append([]DispatcherOption{
		WithSigner(testSigner(t)),
		WithRetryStrategy(fastRetries()),
	}, opts...)
	d, err := NewDispatcher(opts...)
	require.NoError(t, err)
	return d
}

func testSubscription(t *testing.T, endpoint string) model.Subscription {
	t.Helper()
	client := newTestClient(t)
	return model.NewSubscription("owner-1", endpoint, model.Keys{
		P256dh: client.p256dh,
		Auth:   client.authB64,
	})
}

func testNotification() model.Notification {
	return model.Notification{Title: "Happy New Year!", Body: "🎉", URL: "/", Tag: "new-year"}
}

func TestNewDispatcher_RequiresSigner(t *testing.T) {
	_, err := NewDispatcher()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Signer is required")
}

func TestDispatcher_Deliver_Success(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "1800", r.Header.Get("TTL"))
		assert.Equal(t, "high", r.Header.Get("Urgency"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "vapid t="))

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	d := testDispatcher(t)
	result, err := d.Deliver(context.Background(), testSubscription(t, server.URL+"/push/abc"), testNotification())

	require.NoError(t, err)
	assert.Equal(t, model.Delivered, result.Outcome)
	assert.Equal(t, http.StatusCreated, result.StatusCode)
	assert.Equal(t, 1, result.Attempts)
	assert.EqualValues(t, 1, received.Load())
}

func TestDispatcher_Deliver_GoneEndpointIsPermanent(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	d := testDispatcher(t)
	result, err := d.Deliver(context.Background(), testSubscription(t, server.URL), testNotification())

	require.NoError(t, err)
	assert.Equal(t, model.PermanentFailure, result.Outcome)
	assert.Equal(t, http.StatusGone, result.StatusCode)
	assert.EqualValues(t, 1, received.Load(), "gone endpoints are never retried")
}

func TestDispatcher_Deliver_RetriesTemporaryFailures(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if received.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	d := testDispatcher(t)
	result, err := d.Deliver(context.Background(), testSubscription(t, server.URL), testNotification())

	require.NoError(t, err)
	assert.Equal(t, model.Delivered, result.Outcome)
	assert.Equal(t, 3, result.Attempts)
}

func TestDispatcher_Deliver_ExhaustsRetries(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := testDispatcher(t)
	result, err := d.Deliver(context.Background(), testSubscription(t, server.URL), testNotification())

	require.NoError(t, err)
	assert.Equal(t, model.TemporaryFailure, result.Outcome)
	assert.Equal(t, 3, result.Attempts, "bounded by the strategy's MaxAttempts")
	assert.EqualValues(t, 3, received.Load())
}

func TestDispatcher_Deliver_HonorsRetryAfterWithinCap(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if received.Add(1) == 1 {
			// Hostile hint: without the clamp this would stall the tick.
			w.Header().Set("Retry-After", "3600")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	d := testDispatcher(t)

	start := time.Now()
	result, err := d.Deliver(context.Background(), testSubscription(t, server.URL), testNotification())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, model.Delivered, result.Outcome)
	assert.Equal(t, 2, result.Attempts)
	assert.Less(t, elapsed, time.Second, "hint must be clamped to the strategy's max delay")
}

func TestDispatcher_Deliver_TransportErrorIsTemporary(t *testing.T) {
	// Nothing listens here.
	d := testDispatcher(t)
	sub := testSubscription(t, "https://127.0.0.1:1/push")

	result, err := d.Deliver(context.Background(), sub, testNotification())

	require.NoError(t, err)
	assert.Equal(t, model.TemporaryFailure, result.Outcome)
	assert.Equal(t, 0, result.StatusCode)
	assert.Equal(t, 3, result.Attempts)
}

func TestDispatcher_Deliver_BadKeyMaterialFailsWithoutAttempt(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
	}))
	defer server.Close()

	sub := testSubscription(t, server.URL)
	sub.Keys.Auth = "!!!"

	d := testDispatcher(t)
	_, err := d.Deliver(context.Background(), sub, testNotification())

	assert.Error(t, err)
	assert.EqualValues(t, 0, received.Load(), "no request when encryption fails")
}

func TestDispatcher_Deliver_EncryptedBodyDecryptsOnTheClient(t *testing.T) {
	client := newTestClient(t)
	sub := model.NewSubscription("owner-1", "", model.Keys{P256dh: client.p256dh, Auth: client.authB64})

	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()
	sub.Endpoint = server.URL

	d := testDispatcher(t)
	_, err := d.Deliver(context.Background(), sub, testNotification())
	require.NoError(t, err)

	payload, err := testNotification().Encode()
	require.NoError(t, err)
	assert.Equal(t, payload, client.decrypt(t, body))
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected model.DeliveryOutcome
	}{
		{200, model.Delivered},
		{201, model.Delivered},
		{204, model.Delivered},
		{404, model.PermanentFailure},
		{410, model.PermanentFailure},
		{400, model.TemporaryFailure},
		{401, model.TemporaryFailure},
		{413, model.TemporaryFailure},
		{429, model.TemporaryFailure},
		{500, model.TemporaryFailure},
		{503, model.TemporaryFailure},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClassifyStatus(tt.status), "status %d", tt.status)
	}
}
