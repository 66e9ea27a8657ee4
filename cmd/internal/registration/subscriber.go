package registration

import (
	"context"
	"errors"
	"log/slog"
)

// Observer counts processed notifications by outcome.
type Observer interface {
	Registration(result string)
}

type nopObserver struct{}

func (nopObserver) Registration(string) {}

// Subscriber turns registration notifications into users.
type Subscriber struct {
	log      *slog.Logger
	listener Listener
	store    Store
	obs      Observer
}

// NewSubscriber constructs a Subscriber. obs may be nil.
func NewSubscriber(log *slog.Logger, listener Listener, store Store, obs Observer) (*Subscriber, error) {
	if listener == nil || store == nil {
		return nil, ErrInvalidInput
	}
	if log == nil {
		log = slog.Default()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Subscriber{log: log, listener: listener, store: store, obs: obs}, nil
}

// Run processes notifications one at a time until ctx is done. Each
// delivery is handled once; failures are logged, not retried.
func (s *Subscriber) Run(ctx context.Context) error {
	events, err := s.listener.Listen(ctx)
	if err != nil {
		return err
	}
	for username := range events {
		s.handle(ctx, username)
	}
	return nil
}

func (s *Subscriber) handle(ctx context.Context, username string) {
	err := s.store.Complete(ctx, username)
	switch {
	case err == nil:
		s.obs.Registration("ok")
		s.log.Info("registration.complete", "username", username)
	case errors.Is(err, ErrPendingNotFound):
		s.obs.Registration("not_found")
		s.log.Warn("registration.complete.not_found", "username", username)
	case errors.Is(err, ErrNotSucceeded):
		s.obs.Registration("not_succeeded")
		s.log.Warn("registration.complete.not_succeeded", "username", username)
	case errors.Is(err, ErrAlreadyRegistered):
		s.obs.Registration("duplicate")
		s.log.Warn("registration.complete.duplicate", "username", username)
	case errors.Is(err, ErrInvalidInput):
		s.obs.Registration("invalid")
		s.log.Warn("registration.complete.invalid", "username", username)
	default:
		s.obs.Registration("error")
		s.log.Error("registration.complete.fail", "username", username, "err", err)
	}
}
