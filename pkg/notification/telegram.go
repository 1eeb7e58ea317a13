// Package notification provides implementations for run notification services
package notification

import (
	"errors"
	"time"

	"github.com/dhanvan/kitefeed/pkg/config"
	log "github.com/sirupsen/logrus"
	tb "gopkg.in/tucnak/telebot.v2"
)

// ErrNoUsers is returned when Telegram is enabled without any
// authorized user ids.
var ErrNoUsers = errors.New("no telegram users configured")

// Telegram sends run notifications (login results, download
// completion) to a fixed set of chat ids.
type Telegram struct {
	client   *tb.Bot
	settings config.TelegramConfig
}

// NewTelegram creates the Telegram notifier from the configured token
// and user list.
func NewTelegram(settings config.TelegramConfig) (*Telegram, error) {
	if len(settings.Users) == 0 {
		return nil, ErrNoUsers
	}

	poller := &tb.LongPoller{Timeout: 10 * time.Second}

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     settings.Token,
		Poller:    poller,
	})
	if err != nil {
		return nil, err
	}

	return &Telegram{
		client:   client,
		settings: settings,
	}, nil
}

// Notify implements core.Notifier.
func (t *Telegram) Notify(text string) {
	for _, user := range t.settings.Users {
		if _, err := t.client.Send(&tb.User{ID: int64(user)}, text); err != nil {
			log.WithError(err).
				WithField("user", user).
				Error("failed to send telegram message")
		}
	}
}

// OnError implements core.Notifier.
func (t *Telegram) OnError(err error) {
	t.Notify("🚨 ERROR\n" + err.Error())
}
