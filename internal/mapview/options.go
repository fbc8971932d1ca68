package mapview

import (
	"log/slog"
	"time"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

type options struct {
	notifier       Notifier
	onChange       func(domain.Pin)
	confirmTimeout time.Duration
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		confirmTimeout: DefaultConfirmTimeout,
		logger:         slog.Default(),
	}
}

// Option configures a Session or Coordinator.
type Option func(*options)

// WithNotifier sets where failure notices are delivered.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithObserver registers a callback invoked with the new state of a pin
// after every local transition or revert. It must not call back into the
// Coordinator.
func WithObserver(fn func(domain.Pin)) Option {
	return func(o *options) { o.onChange = fn }
}

// WithConfirmTimeout bounds each confirmation request.
func WithConfirmTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.confirmTimeout = d
		}
	}
}

// WithLogger sets the logger used for confirmation failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
