package router

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/alphabot/pkg/confirm"
	"github.com/raykavin/alphabot/pkg/core"
	zlog "github.com/raykavin/alphabot/pkg/logger/zerolog"
	"github.com/raykavin/alphabot/pkg/platform"
	"github.com/raykavin/alphabot/pkg/storage"
)

const testRoom = 10

type sentMessage struct {
	handle core.MessageHandle
	msg    core.OutboundMessage
}

type fakeChat struct {
	mu      sync.Mutex
	next    int
	sent    []sentMessage
	edits   map[core.MessageHandle]core.OutboundMessage
	deleted []core.MessageHandle
	removed []core.MessageHandle
}

func newFakeChat() *fakeChat {
	return &fakeChat{edits: make(map[core.MessageHandle]core.OutboundMessage)}
}

func (f *fakeChat) SendMessage(_ context.Context, roomID int64, msg core.OutboundMessage) (core.MessageHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	handle := core.MessageHandle{RoomID: roomID, MessageID: fmt.Sprintf("out-%d", f.next)}
	f.sent = append(f.sent, sentMessage{handle: handle, msg: msg})
	return handle, nil
}

func (f *fakeChat) EditMessage(_ context.Context, handle core.MessageHandle, msg core.OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits[handle] = msg
	return nil
}

func (f *fakeChat) DeleteMessage(_ context.Context, handle core.MessageHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, handle)
	return nil
}

func (f *fakeChat) AddReaction(context.Context, core.MessageHandle, string) error {
	return nil
}

func (f *fakeChat) RemoveReaction(_ context.Context, handle core.MessageHandle, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, handle)
	return nil
}

// titles returns the embed title, or the content, of every sent message.
func (f *fakeChat) titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		if s.msg.Embed != nil {
			out = append(out, s.msg.Embed.Title)
		} else {
			out = append(out, s.msg.Content)
		}
	}
	return out
}

func (f *fakeChat) withReaction(emoji string) []core.MessageHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.MessageHandle
	for _, s := range f.sent {
		if slices.Contains(s.msg.Reactions, emoji) {
			out = append(out, s.handle)
		}
	}
	return out
}

func (f *fakeChat) removedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.removed)
}

var inbound atomic.Int64

func message(author int64, text string) core.MessageReceived {
	id := inbound.Add(1)
	return core.MessageReceived{
		Handle:   core.MessageHandle{RoomID: testRoom, MessageID: fmt.Sprintf("in-%d", id)},
		Text:     text,
		AuthorID: author,
		RoomID:   testRoom,
	}
}

func listings() []platform.Listing {
	return []platform.Listing{
		{
			Ticker:   core.Ticker{ID: "BTC", Symbol: "BTC/USDT", Base: "BTC", Quote: "USDT", Name: "Bitcoin"},
			Exchange: "binance",
			Price:    decimal.NewFromInt(50000),
		},
		{
			Ticker: core.Ticker{ID: "ETH", Symbol: "ETH/USDT", Base: "ETH", Quote: "USDT", Name: "Ethereum"},
			Price:  decimal.NewFromInt(3000),
		},
	}
}

func newTestRouter(t *testing.T, extra ...Option) (*Router, *fakeChat, *storage.Accounts) {
	t.Helper()

	store, err := storage.FromMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	chart := platform.NewStatic("TradingView", listings()...)
	resolver := platform.NewResolver(zlog.Nop(),
		chart,
		platform.NewStatic("CCXT", listings()...),
		platform.NewRestricted("Alpha Paper Trader", chart, "binance"),
	)

	chat := newFakeChat()
	accounts := storage.NewAccounts(store)
	options := append([]Option{
		WithResolver(resolver),
		WithConfirmations(confirm.New(confirm.WithTimeout(2 * time.Second))),
		WithRandom(func(int) int { return 0 }),
		WithCleanupDelay(10 * time.Millisecond),
	}, extra...)
	r := New(core.DefaultSettings(), chat, accounts, options...)
	t.Cleanup(r.Close)
	return r, chat, accounts
}

func register(t *testing.T, accounts *storage.Accounts, author int64, accountID string, pro bool) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, accounts.Link(ctx, author, accountID))
	require.NoError(t, accounts.PatchAccount(ctx, accountID, map[string]any{
		"customer": map[string]any{"pro": pro},
	}))
}

func TestRouter_ChartsCountWeight(t *testing.T) {
	r, chat, _ := newTestRouter(t)

	r.HandleMessage(context.Background(), message(1, "c btc, eth"))

	require.Len(t, chat.withReaction(core.ReactionDismiss), 2)
	require.Equal(t, 2, r.Statistics().Get("c"))
	require.Equal(t, 2, r.limiter.Cost(1), "each chart settles to the one message it sent")

	require.Eventually(t, func() bool {
		return chat.removedCount() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestRouter_SingleChart(t *testing.T) {
	r, chat, _ := newTestRouter(t)

	r.HandleMessage(context.Background(), message(2, "c btc"))

	require.Len(t, chat.titles(), 1)
	require.Len(t, chat.withReaction(core.ReactionDismiss), 1)
	require.Equal(t, 1, r.Statistics().Get("c"))
	require.Equal(t, 1, r.limiter.Cost(2))
}

func TestRouter_BatchCap(t *testing.T) {
	r, chat, _ := newTestRouter(t)

	r.HandleMessage(context.Background(), message(1, "c btc, eth, btc, eth, btc, eth, btc, eth, btc, eth, btc"))

	require.Equal(t, []string{"Only up to 10 requests are allowed per command."}, chat.titles())
	require.Zero(t, r.Statistics().Get("c"))
}

func TestRouter_ShortcutRewrite(t *testing.T) {
	r, chat, _ := newTestRouter(t)

	r.HandleMessage(context.Background(), message(1, "mex eth"))

	titles := chat.titles()
	require.Len(t, titles, 2)
	require.Equal(t, ":tools: Deprecation notice", titles[0])
	require.Equal(t, "3000 USDT", titles[1])
}

func TestRouter_UnknownTicker(t *testing.T) {
	r, chat, _ := newTestRouter(t)

	r.HandleMessage(context.Background(), message(1, "p doge"))

	require.Equal(t, []string{"Requested ticker `DOGE` could not be found."}, chat.titles())
}

func TestRouter_FailedSlicesCostNothing(t *testing.T) {
	r, chat, _ := newTestRouter(t)

	r.HandleMessage(context.Background(), message(4, "p doge, xrp"))

	require.Equal(t, []string{
		"Requested ticker `DOGE` could not be found.",
		"Requested ticker `XRP` could not be found.",
	}, chat.titles())
	require.Zero(t, r.limiter.Cost(4))
	require.Zero(t, r.Statistics().Get("p"))
}

func TestRouter_Unregistered(t *testing.T) {
	r, chat, _ := newTestRouter(t)

	r.HandleMessage(context.Background(), message(3, "paper balance"))

	require.Equal(t, []string{
		":joystick: You must have an Alpha Account connected to your chat profile to use Alpha Paper Trader.",
	}, chat.titles())
}

func TestRouter_PresetUpsell(t *testing.T) {
	r, chat, accounts := newTestRouter(t)
	register(t, accounts, 8, "acc-8", false)

	r.HandleMessage(context.Background(), message(8, "preset add btc c btc"))

	require.Equal(t, []string{
		":gem: Command Presets are available to Alpha Pro users for only $1.00 per month.",
	}, chat.titles())

	props, err := accounts.Account(context.Background(), "acc-8")
	require.NoError(t, err)
	require.Empty(t, props.CommandPresets)
}

func TestRouter_ArrowInCommandIsNotPreset(t *testing.T) {
	r, chat, _ := newTestRouter(t)

	r.HandleMessage(context.Background(), message(3, "c btc -> eth"))

	titles := chat.titles()
	require.NotEmpty(t, titles)
	require.NotContains(t, titles,
		":pushpin: You must have an Alpha Account connected to your chat profile to use Command Presets.")
	require.False(t, r.confirm.Locked(3))
}

func TestRouter_Help(t *testing.T) {
	r, chat, _ := newTestRouter(t)

	r.HandleMessage(context.Background(), message(1, "paper help"))
	r.HandleMessage(context.Background(), message(1, "alpha ping"))

	require.Equal(t, []string{":joystick: Alpha Paper Trader", "Pong"}, chat.titles())
}

// confirmOrder runs text in the background and answers its prompt.
func confirmOrder(t *testing.T, r *Router, author int64, text, reply string) {
	t.Helper()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.HandleMessage(ctx, message(author, text))
	}()

	require.Eventually(t, func() bool { return r.confirm.Locked(author) }, time.Second, 5*time.Millisecond)
	r.HandleMessage(ctx, message(author, reply))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("order was not processed")
	}
}

func TestRouter_PaperMarketOrder(t *testing.T) {
	r, chat, accounts := newTestRouter(t)
	register(t, accounts, 7, "acc-7", false)

	confirmOrder(t, r, 7, "paper buy btc 1", "yes")

	account, err := accounts.Account(context.Background(), "acc-7")
	require.NoError(t, err)
	book := account.PaperTrader.Books["binance"]
	require.NotNil(t, book)
	require.Len(t, book.History, 1)
	require.Equal(t, core.OrderStatusFilled, book.History[0].Status)
	require.True(t, book.Balance["USDT"].Equal(decimal.NewFromInt(50000)))
	require.True(t, book.Balance["BTC"].Equal(decimal.NewFromInt(1)))

	require.Contains(t, chat.titles(),
		"Paper buy order of 1 BTC on Binance at 50000 USDT was successfully executed.")
	require.Equal(t, 1, r.Statistics().Get("paper"))
}

func TestRouter_PaperOrderDeclined(t *testing.T) {
	r, chat, accounts := newTestRouter(t)
	register(t, accounts, 7, "acc-7", false)

	confirmOrder(t, r, 7, "paper buy btc 1", "no")

	account, err := accounts.Account(context.Background(), "acc-7")
	require.NoError(t, err)
	require.Nil(t, account.PaperTrader.Books)

	chat.mu.Lock()
	defer chat.mu.Unlock()
	require.Len(t, chat.edits, 1)
	for _, edited := range chat.edits {
		require.Equal(t, "Paper order canceled", edited.Embed.Title)
	}
}

func TestRouter_CancelPaperOrderByReaction(t *testing.T) {
	r, chat, accounts := newTestRouter(t)
	register(t, accounts, 7, "acc-7", false)
	ctx := context.Background()

	confirmOrder(t, r, 7, "paper buy btc 1 40000", "yes")
	r.HandleMessage(ctx, message(7, "paper orders"))

	handles := chat.withReaction(core.ReactionCancel)
	require.Len(t, handles, 1)

	// only the author may cancel
	r.HandleReaction(ctx, core.ReactionAdded{Emoji: core.ReactionCancel, AuthorID: 9, Target: handles[0]})
	account, err := accounts.Account(ctx, "acc-7")
	require.NoError(t, err)
	require.Len(t, account.PaperTrader.Books["binance"].OpenOrders, 1)

	r.HandleReaction(ctx, core.ReactionAdded{Emoji: core.ReactionCancel, AuthorID: 7, Target: handles[0]})

	account, err = accounts.Account(ctx, "acc-7")
	require.NoError(t, err)
	book := account.PaperTrader.Books["binance"]
	require.Empty(t, book.OpenOrders)
	require.Len(t, book.History, 1)
	require.Equal(t, core.OrderStatusCanceled, book.History[0].Status)
	require.True(t, book.Balance["USDT"].Equal(decimal.NewFromInt(100000)))

	chat.mu.Lock()
	defer chat.mu.Unlock()
	require.Equal(t, "Paper order canceled", chat.edits[handles[0]].Embed.Title)
}

func TestRegistry_EvictsOldest(t *testing.T) {
	g := newRegistry(2)
	for i := 1; i <= 3; i++ {
		g.put(core.MessageHandle{MessageID: fmt.Sprint(i)}, target{kind: targetPreset})
	}
	g.put(core.MessageHandle{}, target{})

	_, ok := g.get(core.MessageHandle{MessageID: "1"})
	require.False(t, ok)
	_, ok = g.get(core.MessageHandle{MessageID: "3"})
	require.True(t, ok)

	g.drop(core.MessageHandle{MessageID: "3"})
	_, ok = g.get(core.MessageHandle{MessageID: "3"})
	require.False(t, ok)
}

func TestSplit(t *testing.T) {
	route := &Route{Split: splitter("m", "info")}
	require.Equal(t, []string{"btc", "eth", "xrp"}, split(route, "btc, m eth info xrp, "))
}

func TestRouter_PaperOrdersTable(t *testing.T) {
	r, chat, accounts := newTestRouter(t)
	register(t, accounts, 7, "acc-7", false)
	ctx := context.Background()

	orders := make([]core.Order, 0, maxOrderMessages+1)
	for i := 0; i <= maxOrderMessages; i++ {
		orders = append(orders, core.Order{
			ID: fmt.Sprintf("%013x", i+1), Type: core.OrderTypeBuy, Exchange: "binance",
			Base: "BTC", Quote: "USDT", Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(1000),
			Status: core.OrderStatusOpen,
		})
	}
	require.NoError(t, accounts.PatchAccount(ctx, "acc-7", map[string]any{
		"paperTrader": core.PaperTrader{Books: map[string]*core.PaperBook{
			"binance": {Balance: map[string]decimal.Decimal{"USDT": decimal.NewFromInt(89000)}, OpenOrders: orders},
		}},
	}))

	r.HandleMessage(ctx, message(7, "paper orders"))

	require.Contains(t, chat.titles(), "Open paper orders on Binance")
	require.Empty(t, chat.withReaction(core.ReactionCancel))
}
