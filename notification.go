package alphabot

import (
	"context"

	"github.com/raykavin/alphabot/pkg/notification"
)

// initializeNotifications sets up the Telegram transport unless a chat was
// given through WithChat.
func initializeNotifications(_ context.Context, bot *Bot) error {
	if bot.chat != nil {
		return nil
	}
	if !bot.settings.Telegram.Enabled {
		return ErrNoTransport
	}

	telegram, err := notification.NewTelegram(bot.settings, notification.WithLogger(bot.log))
	if err != nil {
		return err
	}
	bot.telegram = telegram
	bot.chat = telegram
	return nil
}
