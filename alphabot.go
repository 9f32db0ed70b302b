// Package alphabot wires the chat command dispatcher: document store, chat
// transport, market data providers, billing and the router.
package alphabot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raykavin/alphabot/pkg/billing"
	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/logger"
	"github.com/raykavin/alphabot/pkg/metric"
	"github.com/raykavin/alphabot/pkg/notification"
	"github.com/raykavin/alphabot/pkg/platform"
	"github.com/raykavin/alphabot/pkg/router"
	"github.com/raykavin/alphabot/pkg/storage"
	"github.com/raykavin/alphabot/pkg/trade"
)

// DefaultLog is the default logger instance
var DefaultLog logger.Logger

const (
	defaultDatabase      = "alphabot.db"
	defaultLedger        = "billing.db"
	defaultSweepInterval = time.Minute
)

// Internal platforms answering the trading and alert families.
const (
	PaperTraderPlatform  = "Alpha Paper Trader"
	LiveTraderPlatform   = "Alpha Live Trader"
	MarketAlertsPlatform = "Alpha Market Alerts"
)

// ErrNoTransport is returned when neither a chat nor Telegram is configured.
var ErrNoTransport = errors.New("no chat transport configured")

// Bot represents the running command dispatcher
type Bot struct {
	settings core.Settings
	log      logger.Logger

	store     storage.DocumentStore
	chat      core.Chat
	telegram  *notification.Telegram
	providers []platform.Provider
	broker    trade.Broker
	stats     *metric.Statistics

	billingClient billing.Client
	ledgerPath    string
	ledger        *billing.Ledger

	sweepInterval time.Duration

	router *router.Router
	wg     sync.WaitGroup
	once   sync.Once
}

// NewBot creates a bot from settings. Collaborators missing from options
// are built from settings: a buntdb file store, the Telegram transport and
// a logging billing client.
func NewBot(ctx context.Context, settings core.Settings, options ...Option) (*Bot, error) {
	bot := &Bot{
		settings:      settings,
		log:           DefaultLog,
		ledgerPath:    defaultLedger,
		sweepInterval: defaultSweepInterval,
	}
	for _, option := range options {
		option(bot)
	}
	if bot.stats == nil {
		bot.stats = metric.NewStatistics()
	}

	if err := initializeStorage(bot); err != nil {
		return nil, err
	}
	if err := initializeNotifications(ctx, bot); err != nil {
		bot.closeResources()
		return nil, err
	}
	if err := initializeBilling(bot); err != nil {
		bot.closeResources()
		return nil, err
	}

	resolver, converter := initializePlatforms(bot)
	meter := billing.NewMeter(bot.billingClient, bot.ledger, bot.log)

	routerOptions := []router.Option{
		router.WithResolver(resolver),
		router.WithMeter(meter),
		router.WithStatistics(bot.stats),
		router.WithLogger(bot.log),
	}
	if converter != nil {
		routerOptions = append(routerOptions, router.WithConverter(converter))
	}
	if bot.broker != nil {
		routerOptions = append(routerOptions, router.WithBroker(bot.broker))
	}
	bot.router = router.New(settings, bot.chat, storage.NewAccounts(bot.store), routerOptions...)

	return bot, nil
}

// initializeStorage opens the default document store when none was given.
func initializeStorage(bot *Bot) error {
	if bot.store != nil {
		return nil
	}
	store, err := storage.FromFile(defaultDatabase)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	bot.store = store
	return nil
}

func initializeBilling(bot *Bot) error {
	if bot.billingClient == nil {
		bot.billingClient = billing.LogClient{Log: bot.log}
	}
	ledger, err := billing.OpenLedger(bot.ledgerPath)
	if err != nil {
		return fmt.Errorf("open billing ledger: %w", err)
	}
	bot.ledger = ledger
	return nil
}

// initializePlatforms registers the providers and the internal trading
// platforms. The internal platforms quote through the first provider that
// is also a price source.
func initializePlatforms(bot *Bot) (*platform.Resolver, *platform.Converter) {
	resolver := platform.NewResolver(bot.log, bot.providers...)

	var source platform.Provider
	for _, p := range bot.providers {
		if _, ok := p.(platform.PriceSource); ok {
			source = p
			break
		}
	}
	if source == nil {
		bot.log.Warn("no price source configured, trading and alerts are unavailable")
		return resolver, nil
	}

	paperExchanges := bot.settings.Paper.Exchanges
	if len(paperExchanges) == 0 {
		paperExchanges = []string{"binance"}
	}
	register := func(name string, exchanges ...string) {
		if _, ok := resolver.Provider(name); !ok {
			resolver.Register(platform.NewRestricted(name, source, exchanges...))
		}
	}
	register(PaperTraderPlatform, paperExchanges...)
	register(LiveTraderPlatform, "binance")
	register(MarketAlertsPlatform, bot.settings.Alerts.Exchanges...)

	return resolver, platform.NewConverter(source.(platform.PriceSource))
}

// Router exposes the dispatcher, used by the admin endpoints.
func (bot *Bot) Router() *router.Router {
	return bot.router
}

// Statistics exposes the request counters.
func (bot *Bot) Statistics() *metric.Statistics {
	return bot.stats
}

// Run consumes inbound events until ctx is done or the transport closes.
// Each event is handled in its own goroutine.
func (bot *Bot) Run(ctx context.Context) error {
	source, ok := bot.chat.(core.EventSource)
	if !ok {
		return fmt.Errorf("%T does not push events", bot.chat)
	}
	if bot.telegram != nil {
		bot.telegram.Start()
	}

	if bot.sweepInterval > 0 {
		sweepCtx, stopSweep := context.WithCancel(ctx)
		defer stopSweep()
		bot.wg.Add(1)
		go func() {
			defer bot.wg.Done()
			bot.sweep(sweepCtx)
		}()
	}

	bot.log.Info("alpha bot is running")
	messages, reactions := source.Messages(), source.Reactions()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			bot.wg.Add(1)
			go func() {
				defer bot.wg.Done()
				bot.router.HandleMessage(ctx, msg)
			}()
		case reaction, ok := <-reactions:
			if !ok {
				return nil
			}
			bot.wg.Add(1)
			go func() {
				defer bot.wg.Done()
				bot.router.HandleReaction(ctx, reaction)
			}()
		}
	}
}

// sweep settles crossed paper orders every sweepInterval until ctx is done.
func (bot *Bot) sweep(ctx context.Context) {
	ticker := time.NewTicker(bot.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			filled, err := bot.router.SweepPaperOrders(ctx)
			if err != nil {
				bot.log.WithError(err).Warn("paper order sweep failed")
				continue
			}
			if filled > 0 {
				bot.log.WithField("filled", filled).Info("paper orders settled")
			}
		}
	}
}

// Close stops the transport, waits for in-flight handlers and releases
// the store and the billing ledger.
func (bot *Bot) Close() error {
	var err error
	bot.once.Do(func() {
		if bot.telegram != nil {
			bot.telegram.Stop()
		}
		bot.wg.Wait()
		bot.router.Close()
		err = bot.closeResources()
	})
	return err
}

func (bot *Bot) closeResources() error {
	var errs []error
	if bot.ledger != nil {
		errs = append(errs, bot.ledger.Close())
	}
	if bot.store != nil {
		errs = append(errs, bot.store.Close())
	}
	return errors.Join(errs...)
}
