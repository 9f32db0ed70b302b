package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/raykavin/alphabot/pkg/core"
)

// Accounts reads and patches account, room and user link documents.
type Accounts struct {
	store DocumentStore
}

func NewAccounts(store DocumentStore) *Accounts {
	return &Accounts{store: store}
}

func UserPath(authorID int64) string {
	return fmt.Sprintf("discord/properties/users/%d", authorID)
}

const accountPrefix = "accounts/"

func AccountPath(accountID string) string {
	return accountPrefix + accountID
}

func RoomPath(roomID int64) string {
	return fmt.Sprintf("discord/properties/guilds/%d", roomID)
}

type userLink struct {
	AccountID string `json:"accountId"`
}

func (a *Accounts) get(ctx context.Context, path string, out any) (bool, error) {
	doc, err := a.store.Get(ctx, path)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := Decode(doc, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// Resolve returns the account linked to an author, or "" when unregistered.
func (a *Accounts) Resolve(ctx context.Context, authorID int64) (string, error) {
	var link userLink
	if _, err := a.get(ctx, UserPath(authorID), &link); err != nil {
		return "", err
	}
	return link.AccountID, nil
}

// Link connects an author to an account.
func (a *Accounts) Link(ctx context.Context, authorID int64, accountID string) error {
	return a.store.Set(ctx, UserPath(authorID), userLink{AccountID: accountID}, true)
}

// AccountIDs lists every stored account. The store must implement Lister.
func (a *Accounts) AccountIDs(ctx context.Context) ([]string, error) {
	lister, ok := a.store.(Lister)
	if !ok {
		return nil, fmt.Errorf("%w: %T cannot list documents", core.ErrUnsupported, a.store)
	}
	paths, err := lister.Paths(ctx, accountPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(paths))
	for _, path := range paths {
		ids = append(ids, strings.TrimPrefix(path, accountPrefix))
	}
	return ids, nil
}

// Account loads the account document; a missing one is empty.
func (a *Accounts) Account(ctx context.Context, accountID string) (core.AccountProperties, error) {
	var props core.AccountProperties
	if accountID == "" {
		return props, nil
	}
	_, err := a.get(ctx, AccountPath(accountID), &props)
	return props, err
}

// Room loads room properties; direct messages and unknown rooms get defaults.
func (a *Accounts) Room(ctx context.Context, roomID int64) (core.RoomProperties, error) {
	props := core.DefaultRoomProperties()
	if roomID == -1 {
		return props, nil
	}
	_, err := a.get(ctx, RoomPath(roomID), &props)
	return props, err
}

// PatchAccount merges patch into the account document.
func (a *Accounts) PatchAccount(ctx context.Context, accountID string, patch any) error {
	if accountID == "" {
		return core.ErrNotRegistered
	}
	return a.store.Set(ctx, AccountPath(accountID), patch, true)
}

// PatchRoom merges patch into the room document.
func (a *Accounts) PatchRoom(ctx context.Context, roomID int64, patch any) error {
	return a.store.Set(ctx, RoomPath(roomID), patch, true)
}
