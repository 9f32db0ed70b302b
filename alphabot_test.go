package alphabot

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/alphabot/pkg/billing"
	"github.com/raykavin/alphabot/pkg/core"
	zlog "github.com/raykavin/alphabot/pkg/logger/zerolog"
	"github.com/raykavin/alphabot/pkg/platform"
	"github.com/raykavin/alphabot/pkg/storage"
)

type eventChat struct {
	mu        sync.Mutex
	next      int
	sent      []core.OutboundMessage
	messages  chan core.MessageReceived
	reactions chan core.ReactionAdded
}

func newEventChat() *eventChat {
	return &eventChat{
		messages:  make(chan core.MessageReceived, 4),
		reactions: make(chan core.ReactionAdded, 4),
	}
}

func (c *eventChat) Messages() <-chan core.MessageReceived { return c.messages }
func (c *eventChat) Reactions() <-chan core.ReactionAdded  { return c.reactions }

func (c *eventChat) SendMessage(_ context.Context, roomID int64, msg core.OutboundMessage) (core.MessageHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	c.sent = append(c.sent, msg)
	return core.MessageHandle{RoomID: roomID, MessageID: string(rune('a' + c.next))}, nil
}

func (c *eventChat) EditMessage(context.Context, core.MessageHandle, core.OutboundMessage) error {
	return nil
}

func (c *eventChat) DeleteMessage(context.Context, core.MessageHandle) error {
	return nil
}

func (c *eventChat) AddReaction(context.Context, core.MessageHandle, string) error {
	return nil
}

func (c *eventChat) RemoveReaction(context.Context, core.MessageHandle, string) error {
	return nil
}

func (c *eventChat) contents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent))
	for _, msg := range c.sent {
		out = append(out, msg.Content)
	}
	return out
}

var btc = platform.Listing{
	Ticker:   core.Ticker{ID: "BTC", Symbol: "BTC/USDT", Base: "BTC", Quote: "USDT", Name: "Bitcoin"},
	Exchange: "binance",
	Price:    decimal.NewFromInt(50000),
}

func newTestBot(t *testing.T, chat core.Chat, providers ...platform.Provider) *Bot {
	t.Helper()
	store, err := storage.FromMemory()
	require.NoError(t, err)

	settings := core.DefaultSettings()
	bot, err := NewBot(context.Background(), settings,
		WithStore(store),
		WithChat(chat),
		WithProviders(providers...),
		WithBilling(billing.LogClient{Log: zlog.Nop()}, filepath.Join(t.TempDir(), "billing.db")),
		WithLogger(zlog.Nop()),
	)
	require.NoError(t, err)
	return bot
}

func TestBot_Run(t *testing.T) {
	chat := newEventChat()
	bot := newTestBot(t, chat, platform.NewStatic("CCXT", btc))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	chat.messages <- core.MessageReceived{
		Handle:   core.MessageHandle{RoomID: 10, MessageID: "1"},
		Text:     "alpha  ping",
		AuthorID: 7,
		RoomID:   10,
	}
	require.Eventually(t, func() bool {
		return len(chat.contents()) == 1 && bot.Statistics().Get("alpha") == 1
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, "Pong", chat.contents()[0])

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, bot.Close())
	require.NoError(t, bot.Close())
}

func TestInitializePlatforms(t *testing.T) {
	bot := &Bot{
		settings:  core.DefaultSettings(),
		log:       zlog.Nop(),
		providers: []platform.Provider{platform.NewStatic("CCXT", btc)},
	}
	resolver, converter := initializePlatforms(bot)
	require.NotNil(t, converter)

	for _, name := range []string{PaperTraderPlatform, LiveTraderPlatform, MarketAlertsPlatform} {
		_, ok := resolver.Provider(name)
		require.True(t, ok, name)
	}

	rate, err := converter.Rate(context.Background(), "BTC", "USDT")
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(50000).Equal(rate))
}

func TestInitializePlatforms_NoPriceSource(t *testing.T) {
	bot := &Bot{settings: core.DefaultSettings(), log: zlog.Nop()}
	resolver, converter := initializePlatforms(bot)
	require.Nil(t, converter)
	_, ok := resolver.Provider(PaperTraderPlatform)
	require.False(t, ok)
}

func TestBot_NoTransport(t *testing.T) {
	store, err := storage.FromMemory()
	require.NoError(t, err)

	_, err = NewBot(context.Background(), core.DefaultSettings(),
		WithStore(store),
		WithLogger(zlog.Nop()),
		WithBilling(nil, filepath.Join(t.TempDir(), "billing.db")),
	)
	require.ErrorIs(t, err, ErrNoTransport)
}

func TestBot_RunWithoutEvents(t *testing.T) {
	bot := newTestBot(t, struct{ core.Chat }{newEventChat()})
	defer bot.Close()
	require.Error(t, bot.Run(context.Background()))
}
