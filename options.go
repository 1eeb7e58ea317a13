package kitefeed

import (
	"github.com/dhanvan/kitefeed/pkg/core"
	"github.com/dhanvan/kitefeed/pkg/kite"
	"github.com/dhanvan/kitefeed/pkg/logger"
)

// Option is a functional option for configuring a Kitefeed instance
type Option func(*Kitefeed)

// WithLogger replaces the default logger
func WithLogger(log logger.Logger) Option {
	return func(kf *Kitefeed) {
		kf.log = log
	}
}

// WithTokenStore sets the session store, by default a JSON token file
// at the configured path
func WithTokenStore(store core.TokenStorage) Option {
	return func(kf *Kitefeed) {
		kf.store = store
	}
}

// WithNotifier registers a notifier for login and run events
func WithNotifier(notifier core.Notifier) Option {
	return func(kf *Kitefeed) {
		kf.notifier = notifier
	}
}

// WithClient injects a preconfigured broker client, used in tests
func WithClient(client *kite.Client) Option {
	return func(kf *Kitefeed) {
		kf.client = client
	}
}

// WithClientOptions forwards options to the broker client constructor
func WithClientOptions(options ...kite.Option) Option {
	return func(kf *Kitefeed) {
		kf.clientOptions = append(kf.clientOptions, options...)
	}
}
