package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/raykavin/alphabot/pkg/core"
)

func backends(t *testing.T) map[string]DocumentStore {
	t.Helper()

	bunt, err := FromMemory()
	require.NoError(t, err)

	sql, err := FromSQL(sqlite.Open(filepath.Join(t.TempDir(), "documents.db")),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	t.Cleanup(func() {
		bunt.Close()
		sql.Close()
	})
	return map[string]DocumentStore{"bunt": bunt, "sql": sql}
}

func TestMerge(t *testing.T) {
	dst := Document{
		"a": map[string]any{"x": 1.0, "y": 2.0},
		"b": []any{1.0, 2.0},
		"c": "keep",
	}
	patch := Document{
		"a": map[string]any{"y": 3.0, "z": 4.0},
		"b": []any{9.0},
		"c": nil,
		"d": map[string]any{"n": nil, "m": true},
	}

	got := Merge(dst, patch)
	require.Equal(t, Document{
		"a": map[string]any{"x": 1.0, "y": 3.0, "z": 4.0},
		"b": []any{9.0},
		"d": map[string]any{"m": true},
	}, got)
}

func TestDocumentStores(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "accounts/missing")
			require.ErrorIs(t, err, core.ErrNotFound)

			require.NoError(t, store.Set(ctx, "accounts/1", Document{"settings": map[string]any{"autodelete": true}}, true))
			require.NoError(t, store.Set(ctx, "accounts/1", Document{"settings": map[string]any{"muted": true}}, true))

			doc, err := store.Get(ctx, "accounts/1")
			require.NoError(t, err)
			require.Equal(t, map[string]any{"autodelete": true, "muted": true}, doc["settings"])

			require.NoError(t, store.Set(ctx, "accounts/1", Document{"other": 1}, false))
			doc, err = store.Get(ctx, "accounts/1")
			require.NoError(t, err)
			require.Equal(t, Document{"other": 1.0}, doc)
		})
	}
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			accounts := NewAccounts(store)

			id, err := accounts.Resolve(ctx, 42)
			require.NoError(t, err)
			require.Empty(t, id)

			require.NoError(t, accounts.Link(ctx, 42, "acc"))
			id, err = accounts.Resolve(ctx, 42)
			require.NoError(t, err)
			require.Equal(t, "acc", id)

			props, err := accounts.Account(ctx, "acc")
			require.NoError(t, err)
			require.False(t, props.Customer.Pro)

			trader := core.PaperTrader{Books: map[string]*core.PaperBook{
				"binance": {Balance: map[string]decimal.Decimal{"USDT": decimal.NewFromInt(100)}},
			}}
			require.NoError(t, accounts.PatchAccount(ctx, "acc", map[string]any{"paperTrader": trader}))
			require.NoError(t, accounts.PatchAccount(ctx, "acc", map[string]any{
				"customer": map[string]any{"pro": true},
			}))

			props, err = accounts.Account(ctx, "acc")
			require.NoError(t, err)
			require.True(t, props.Customer.Pro)
			require.True(t, props.PaperTrader.Book("binance").Balance["USDT"].Equal(decimal.NewFromInt(100)))

			require.NoError(t, accounts.PatchAccount(ctx, "acc", map[string]any{
				"paperTrader": map[string]any{"books": nil, "globalResetCount": 1},
			}))
			props, err = accounts.Account(ctx, "acc")
			require.NoError(t, err)
			require.Nil(t, props.PaperTrader.Books)
			require.Equal(t, 1, props.PaperTrader.GlobalResetCount)

			require.ErrorIs(t, accounts.PatchAccount(ctx, "", nil), core.ErrNotRegistered)

			room, err := accounts.Room(ctx, -1)
			require.NoError(t, err)
			require.True(t, room.Settings.MessageProcessing.Shortcuts)

			require.NoError(t, accounts.PatchRoom(ctx, 7, map[string]any{
				"settings": map[string]any{"messageProcessing": map[string]any{"autodelete": true}},
			}))
			room, err = accounts.Room(ctx, 7)
			require.NoError(t, err)
			require.True(t, room.Settings.MessageProcessing.Autodelete)
			require.True(t, room.Settings.MessageProcessing.Shortcuts)
		})
	}
}

func TestAccounts_AccountIDs(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			accounts := NewAccounts(store)
			require.NoError(t, accounts.Link(ctx, 42, "acc"))
			require.NoError(t, accounts.PatchAccount(ctx, "b", map[string]any{"customer": map[string]any{"pro": true}}))
			require.NoError(t, accounts.PatchAccount(ctx, "a", map[string]any{"customer": map[string]any{"pro": false}}))

			ids, err := accounts.AccountIDs(ctx)
			require.NoError(t, err)
			require.Equal(t, []string{"a", "b"}, ids)
		})
	}
}
