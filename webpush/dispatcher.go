package webpush

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/mateteriya/chime"
	"github.com/mateteriya/chime/model"
	"github.com/mateteriya/chime/retry"
)

// Dispatcher delivers encrypted notifications to push-service endpoints and
// classifies the HTTP results.
//
// A Deliver call encrypts the payload once, signs a VAPID authorization for
// the endpoint's origin, and POSTs it. Temporary failures (429, 5xx, timeout)
// are retried a bounded number of times with exponential backoff inside the
// same call; permanent failures (404, 410) are returned immediately.
//
// The dispatcher never mutates subscription storage. Interpreting a
// PermanentFailure (removing the subscription) is the caller's job.
//
// Thread safety: Safe for concurrent use; the rate limiter bounds the
// combined outbound request rate across goroutines.
type Dispatcher struct {
	client   *http.Client
	signer   *Signer
	strategy retry.Strategy
	limiter  *rate.Limiter
	logger   chime.Logger
	ttl      int
	urgency  string
	timeout  time.Duration
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher) error

// WithSigner sets the VAPID signer. This is a required option.
func WithSigner(signer *Signer) DispatcherOption {
	return func(d *Dispatcher) error {
		if signer == nil {
			return fmt.Errorf("signer cannot be nil")
		}
		d.signer = signer
		return nil
	}
}

// WithHTTPClient overrides the HTTP client used for push requests.
func WithHTTPClient(client *http.Client) DispatcherOption {
	return func(d *Dispatcher) error {
		if client == nil {
			return fmt.Errorf("client cannot be nil")
		}
		d.client = client
		return nil
	}
}

// WithRetryStrategy sets a custom in-call retry strategy.
// Default: retry.DefaultStrategy() (3 attempts, 2s→30s backoff).
func WithRetryStrategy(strategy retry.Strategy) DispatcherOption {
	return func(d *Dispatcher) error {
		d.strategy = strategy
		return nil
	}
}

// WithRateLimit bounds the outbound request rate so a large tick cannot
// overwhelm the push service. Default: 50 requests/second, burst 10.
func WithRateLimit(perSecond float64, burst int) DispatcherOption {
	return func(d *Dispatcher) error {
		if perSecond <= 0 || burst <= 0 {
			return fmt.Errorf("rate limit must be positive, got %v/%d", perSecond, burst)
		}
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		return nil
	}
}

// WithDispatcherLogger sets the logger instance.
func WithDispatcherLogger(logger chime.Logger) DispatcherOption {
	return func(d *Dispatcher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		d.logger = logger
		return nil
	}
}

// WithMessageTTL sets the TTL header in seconds: how long the push service
// should hold the message for an offline client. Countdown reminders go
// stale quickly, so the default is 30 minutes.
func WithMessageTTL(seconds int) DispatcherOption {
	return func(d *Dispatcher) error {
		if seconds < 0 {
			return fmt.Errorf("message ttl cannot be negative, got %d", seconds)
		}
		d.ttl = seconds
		return nil
	}
}

// WithAttemptTimeout sets the per-request timeout. A timed-out attempt is
// classified as a TemporaryFailure. Default: 10 seconds.
func WithAttemptTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) error {
		if timeout <= 0 {
			return fmt.Errorf("attempt timeout must be positive, got %v", timeout)
		}
		d.timeout = timeout
		return nil
	}
}

// NewDispatcher creates a Dispatcher with the provided options.
//
// Required options:
//   - WithSigner: VAPID signer for request authorization
//
// Optional options:
//   - WithHTTPClient, WithRetryStrategy, WithRateLimit, WithDispatcherLogger,
//     WithMessageTTL, WithAttemptTimeout
func NewDispatcher(opts ...DispatcherOption) (*Dispatcher, error) {
	d := &Dispatcher{
		client:   &http.Client{},
		strategy: retry.DefaultStrategy(),
		limiter:  rate.NewLimiter(rate.Limit(50), 10),
		logger:   &chime.NoopLogger{},
		ttl:      30 * 60,
		urgency:  "high",
		timeout:  10 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, chime.NewErrorWithCause(chime.ErrCodeConfiguration, "failed to apply dispatcher option", err)
		}
	}

	if d.signer == nil {
		return nil, chime.NewError(chime.ErrCodeConfiguration, "Signer is required (use WithSigner)")
	}

	return d, nil
}

// Deliver encrypts the notification for the subscription, attaches the VAPID
// authorization scoped to the endpoint's origin, and posts it to the push
// service, retrying temporary failures per the retry strategy.
//
// The returned result is always meaningful when err is nil; err is reserved
// for conditions that prevented any attempt (bad key material, unparseable
// endpoint).
func (d *Dispatcher) Deliver(ctx context.Context, sub model.Subscription, n model.Notification) (model.DeliveryResult, error) {
	payload, err := n.Encode()
	if err != nil {
		return model.DeliveryResult{}, chime.NewErrorWithCause(chime.ErrCodeDelivery, "failed to encode payload", err)
	}

	body, err := Encrypt(payload, sub.Keys.P256dh, sub.Keys.Auth)
	if err != nil {
		return model.DeliveryResult{}, chime.NewErrorWithCause(chime.ErrCodeDelivery, "failed to encrypt payload", err)
	}

	origin, err := sub.Origin()
	if err != nil {
		return model.DeliveryResult{}, chime.NewErrorWithCause(chime.ErrCodeDelivery, "unparseable push endpoint", err)
	}

	authorization, err := d.signer.AuthorizationHeader(origin)
	if err != nil {
		return model.DeliveryResult{}, err
	}

	result := model.DeliveryResult{}
	for attempt := 1; ; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			result.Outcome = model.TemporaryFailure
			return result, nil
		}

		status, retryAfter, attemptErr := d.attempt(ctx, sub.Endpoint, body, authorization)
		result.Attempts = attempt
		result.StatusCode = status
		result.RetryAfter = retryAfter

		if attemptErr != nil {
			// Transport error or timeout.
			d.logger.Debugf("push attempt %d to %s failed: %v", attempt, origin, attemptErr)
			result.Outcome = model.TemporaryFailure
		} else {
			result.Outcome = ClassifyStatus(status)
		}

		if result.Outcome != model.TemporaryFailure {
			return result, nil
		}
		if !d.strategy.IsRetryable(attempt) {
			return result, nil
		}

		delay := d.strategy.CalculateRetryDelay(attempt)
		if retryAfter > 0 {
			delay = d.strategy.Clamp(retryAfter)
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return result, nil
		}
	}
}

// attempt performs a single POST with the per-attempt timeout applied.
func (d *Dispatcher) attempt(ctx context.Context, endpoint string, body []byte, authorization string) (status int, retryAfter time.Duration, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("TTL", strconv.Itoa(d.ttl))
	req.Header.Set("Urgency", d.urgency)
	req.Header.Set("Authorization", authorization)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
			retryAfter = time.Duration(seconds) * time.Second
		}
	}

	return resp.StatusCode, retryAfter, nil
}

// ClassifyStatus maps a push-service HTTP status to a delivery outcome:
// 2xx is Delivered, 404 and 410 mean the endpoint is gone (PermanentFailure),
// and everything else (including 429 and all 5xx) is a TemporaryFailure
// subject to the bounded retry policy.
func ClassifyStatus(status int) model.DeliveryOutcome {
	switch {
	case status >= 200 && status < 300:
		return model.Delivered
	case status == http.StatusNotFound, status == http.StatusGone:
		return model.PermanentFailure
	default:
		return model.TemporaryFailure
	}
}

// sleepCtx waits for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
