package chime

import (
	"context"
	"fmt"

	"github.com/mateteriya/chime/model"
)

// Registrar handles push subscription lifecycle management. It provides
// high-level operations for registering browser subscriptions against
// owners and tearing them down again.
//
// Key operations:
//   - Subscribe: Register (or replace) an owner's push subscription
//   - Unsubscribe: Remove an owner's push subscription
//   - Subscription: Load an owner's current subscription
//
// Thread safety: Safe for concurrent use.
type Registrar struct {
	subscriptionRepo SubscriptionRepository
	logger           Logger
}

// RegistrarOption is a function that configures a Registrar.
// Used with the Options Pattern for flexible service construction.
type RegistrarOption func(*Registrar) error

// NewRegistrar creates a new Registrar with the provided options.
//
// Required options:
//   - WithRegistrarRepository: subscription repository
//   - WithRegistrarLogger: logger instance
//
// Example:
//
//	registrar, err := chime.NewRegistrar(
//	    chime.WithRegistrarRepository(repos.Subscription),
//	    chime.WithRegistrarLogger(logger),
//	)
func NewRegistrar(opts ...RegistrarOption) (*Registrar, error) {
	r := &Registrar{}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply registrar option", err)
		}
	}

	// Validate required dependencies
	if r.subscriptionRepo == nil {
		return nil, NewError(ErrCodeConfiguration, "SubscriptionRepository is required")
	}
	if r.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required")
	}

	return r, nil
}

// WithRegistrarRepository sets the subscription repository for the registrar.
// The repository is required and must not be nil.
//
// This is a required option for NewRegistrar.
func WithRegistrarRepository(subscriptionRepo SubscriptionRepository) RegistrarOption {
	return func(r *Registrar) error {
		if subscriptionRepo == nil {
			return fmt.Errorf("subscriptionRepo cannot be nil")
		}
		r.subscriptionRepo = subscriptionRepo
		return nil
	}
}

// WithRegistrarLogger sets the logger instance for the registrar.
// Logger is required and must not be nil.
//
// This is a required option for NewRegistrar.
func WithRegistrarLogger(logger Logger) RegistrarOption {
	return func(r *Registrar) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		r.logger = logger
		return nil
	}
}

// SubscribeRequest represents a request to register a push subscription.
// All fields are required; the endpoint and keys come straight from the
// browser's PushSubscription object.
type SubscribeRequest struct {
	OwnerID  string // Stable owner identifier (required)
	Endpoint string // Push service endpoint URL (required)
	P256dh   string // Client public key, base64url (required)
	Auth     string // Client auth secret, base64url (required)
}

// Subscribe registers a push subscription for an owner. If the owner already
// has a subscription it is replaced: browsers rotate endpoints, and only the
// newest subscription can still receive pushes.
//
// Returns the stored subscription, or an error if validation fails.
func (r *Registrar) Subscribe(ctx context.Context, req SubscribeRequest) (*model.Subscription, error) {
	sub := model.NewSubscription(req.OwnerID, req.Endpoint, model.Keys{
		P256dh: req.P256dh,
		Auth:   req.Auth,
	})

	if err := sub.Validate(); err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid subscription", err)
	}

	if err := r.subscriptionRepo.Upsert(ctx, sub); err != nil {
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to store subscription", err)
	}

	r.logger.Infof("Subscription registered: owner=%s endpoint=%s", sub.OwnerID, sub.Endpoint)

	return &sub, nil
}

// Unsubscribe removes an owner's push subscription. Removing an owner with
// no subscription is not an error.
func (r *Registrar) Unsubscribe(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return NewError(ErrCodeValidation, "owner ID is required")
	}

	if err := r.subscriptionRepo.Remove(ctx, ownerID); err != nil {
		return NewErrorWithCause(ErrCodeDatabase, "failed to remove subscription", err)
	}

	r.logger.Infof("Subscription removed: owner=%s", ownerID)

	return nil
}

// Subscription loads an owner's current subscription.
// Returns ErrNoData if the owner has none.
func (r *Registrar) Subscription(ctx context.Context, ownerID string) (*model.Subscription, error) {
	if ownerID == "" {
		return nil, NewError(ErrCodeValidation, "owner ID is required")
	}

	sub, err := r.subscriptionRepo.Get(ctx, ownerID)
	if err != nil {
		if IsNoData(err) {
			return nil, err
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to load subscription", err)
	}

	return &sub, nil
}
