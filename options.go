package alphabot

import (
	"time"

	"github.com/raykavin/alphabot/pkg/billing"
	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/logger"
	"github.com/raykavin/alphabot/pkg/metric"
	"github.com/raykavin/alphabot/pkg/platform"
	"github.com/raykavin/alphabot/pkg/storage"
	"github.com/raykavin/alphabot/pkg/trade"
)

// Option is a functional option for configuring a Bot instance
type Option func(*Bot)

// WithStore sets the document store, by default it uses a local file called alphabot.db
func WithStore(store storage.DocumentStore) Option {
	return func(bot *Bot) {
		bot.store = store
	}
}

// WithChat sets the chat transport. It replaces Telegram even when enabled
// in settings.
func WithChat(chat core.Chat) Option {
	return func(bot *Bot) {
		bot.chat = chat
	}
}

// WithProviders registers market data providers, tried in the order of the
// configured queues.
func WithProviders(providers ...platform.Provider) Option {
	return func(bot *Bot) {
		bot.providers = append(bot.providers, providers...)
	}
}

// WithBilling sets the usage reporting client and the path of the bbolt
// ledger that keeps reports exactly once.
func WithBilling(client billing.Client, ledgerPath string) Option {
	return func(bot *Bot) {
		bot.billingClient = client
		if ledgerPath != "" {
			bot.ledgerPath = ledgerPath
		}
	}
}

// WithBroker enables live trading through broker
func WithBroker(broker trade.Broker) Option {
	return func(bot *Bot) {
		bot.broker = broker
	}
}

func WithLogger(log logger.Logger) Option {
	return func(bot *Bot) {
		bot.log = log
	}
}

// WithRegistry shares the request statistics, e.g. with the admin server.
func WithRegistry(stats *metric.Statistics) Option {
	return func(bot *Bot) {
		bot.stats = stats
	}
}

// WithSweepInterval sets how often open paper orders are checked against
// the market. Zero disables the sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(bot *Bot) {
		bot.sweepInterval = d
	}
}
