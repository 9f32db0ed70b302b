package alert

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/alphabot/pkg/core"
)

var (
	binance = core.Exchange{ID: "binance", Name: "Binance"}
	btc     = core.Ticker{ID: "BTCUSDT", Symbol: "BTC/USDT", Base: "BTC", Quote: "USDT"}
	eth     = core.Ticker{ID: "ETHUSDT", Symbol: "ETH/USDT", Base: "ETH", Quote: "USDT"}
)

func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%013x", n)
	}
}

func TestAddAndList(t *testing.T) {
	b := NewBook(WithIDGenerator(sequence()))
	var alerts core.MarketAlerts
	now := time.Unix(1_600_000_000, 0)

	a, err := b.Add(&alerts, binance, eth, "", decimal.NewFromInt(3000), 1, 2, "Pro", now)
	require.NoError(t, err)
	require.Equal(t, "0000000000001", a.ID)
	require.Equal(t, "price", a.Action)
	require.Equal(t, "1", a.User)
	require.Equal(t, "Price alert set for ETH (Binance) at 3000 USDT.", SetText(a, binance, eth))

	_, err = b.Add(&alerts, binance, btc, "price", decimal.NewFromInt(60000), 1, 2, "Pro", now)
	require.NoError(t, err)

	_, err = b.Add(&alerts, binance, btc, "Price", decimal.NewFromInt(60000), 1, 2, "Pro", now)
	require.ErrorIs(t, err, core.ErrDuplicate)
	require.EqualError(t, err, "duplicate entry: Price alert for BTC (Binance) at 60000 USDT already exists.")

	entries := b.List(alerts)
	require.Len(t, entries, 2)
	require.Equal(t, "BTC/USDT", entries[0].Symbol)
	require.Equal(t, "ETH/USDT", entries[1].Symbol)
	require.Equal(t, "Alert 2/2 on Binance ● id: 0000000000001", entries[1].Footer("Binance"))
}

func TestAddLimits(t *testing.T) {
	b := NewBook(WithMaxPerExchange(2), WithIDGenerator(sequence()))
	alerts := core.MarketAlerts{}

	for i := 1; i <= 2; i++ {
		_, err := b.Add(&alerts, binance, btc, "price", decimal.NewFromInt(int64(i)), 1, 1, "Pro", time.Now())
		require.NoError(t, err)
	}
	_, err := b.Add(&alerts, binance, btc, "price", decimal.NewFromInt(3), 1, 1, "Pro", time.Now())
	require.ErrorIs(t, err, core.ErrLimitReached)
	require.Equal(t, 2, Count(alerts, "binance"))

	_, err = b.Add(&alerts, core.Exchange{ID: "kraken", Name: "Kraken"}, btc, "price", decimal.NewFromInt(3), 1, 1, "Pro", time.Now())
	require.ErrorIs(t, err, core.ErrUnsupported)

	_, err = b.Add(&alerts, binance, btc, "price", decimal.Zero, 1, 1, "Pro", time.Now())
	require.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestRemove(t *testing.T) {
	b := NewBook(WithIDGenerator(sequence()))
	var alerts core.MarketAlerts

	a, err := b.Add(&alerts, binance, btc, "price", decimal.NewFromInt(1), 1, 1, "Pro", time.Now())
	require.NoError(t, err)

	entry, err := b.Remove(alerts, a.ID)
	require.NoError(t, err)
	require.Equal(t, "binance", entry.Exchange)
	require.NotNil(t, alerts["binance"]["BTC-USDT"])
	require.Empty(t, alerts["binance"]["BTC-USDT"])

	_, err = b.Remove(alerts, a.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
}
