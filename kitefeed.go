// Package kitefeed ties together credential configuration, the broker
// login flow and token persistence into a reusable session runner.
package kitefeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dhanvan/kitefeed/pkg/config"
	"github.com/dhanvan/kitefeed/pkg/core"
	"github.com/dhanvan/kitefeed/pkg/kite"
	"github.com/dhanvan/kitefeed/pkg/logger"
	"github.com/dhanvan/kitefeed/pkg/session"
)

// exchangeLocation is the timezone used for token staleness checks;
// broker access tokens are invalidated daily on IST mornings.
var exchangeLocation = loadExchangeLocation()

func loadExchangeLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

// Kitefeed orchestrates the broker session lifecycle.
type Kitefeed struct {
	cfg      *config.Config
	client   *kite.Client
	store    core.TokenStorage
	notifier core.Notifier
	log      logger.Logger

	clientOptions []kite.Option
}

// New creates a session runner from validated configuration.
func New(cfg *config.Config, options ...Option) (*Kitefeed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kf := &Kitefeed{
		cfg: cfg,
		log: DefaultLog,
	}

	for _, option := range options {
		option(kf)
	}

	if kf.store == nil {
		kf.store = session.NewFileStore(cfg.TokenFile)
	}

	if kf.client == nil {
		kf.client = kite.NewClient(kite.Credentials{
			UserID:    cfg.Credentials.UserID,
			Password:  cfg.Credentials.Password,
			APIKey:    cfg.Credentials.APIKey,
			APISecret: cfg.Credentials.APISecret,
			TOTPKey:   cfg.Credentials.TOTPKey,
		}, kf.log, kf.clientOptions...)
	}

	return kf, nil
}

// Client exposes the underlying broker client.
func (kf *Kitefeed) Client() *kite.Client {
	return kf.client
}

// EnsureSession returns a usable session: the stored one when still
// fresh, otherwise the result of a new automated login. Force skips
// the stored session entirely.
func (kf *Kitefeed) EnsureSession(ctx context.Context, force bool) (*core.Session, error) {
	if !force {
		stored, err := kf.store.Load()
		switch {
		case err == nil:
			if !stored.StaleAt(time.Now(), exchangeLocation) {
				kf.log.WithField("user_id", stored.UserID).Info("reusing stored session")
				kf.client.SetAccessToken(stored.AccessToken)
				return stored, nil
			}
			kf.log.Info("stored session is stale, logging in again")
		case errors.Is(err, session.ErrNoSession):
			kf.log.Info("no stored session, running automated login")
		default:
			return nil, fmt.Errorf("failed to load stored session: %w", err)
		}
	}

	sess, err := kf.client.Login(ctx)
	if err != nil {
		kf.notifyError(err)
		return nil, err
	}

	if err := kf.store.Save(sess); err != nil {
		return nil, fmt.Errorf("login succeeded but session could not be saved: %w", err)
	}

	kf.Notify(fmt.Sprintf("✅ Login completed for %s", sess.UserID))
	return sess, nil
}

// Logout revokes the current session and clears the store.
func (kf *Kitefeed) Logout(ctx context.Context) error {
	if err := kf.client.InvalidateSession(ctx); err != nil {
		return err
	}
	return kf.store.Clear()
}

// Notify forwards a message to the configured notifier, if any.
func (kf *Kitefeed) Notify(text string) {
	if kf.notifier != nil {
		kf.notifier.Notify(text)
	}
}

func (kf *Kitefeed) notifyError(err error) {
	if kf.notifier != nil {
		kf.notifier.OnError(err)
	}
}
