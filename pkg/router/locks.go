package router

import (
	"context"

	"github.com/raykavin/alphabot/pkg/core"
)

// mutate reloads the account, lets fn change it and merges the returned patch.
// A nil patch skips the write.
func (r *Router) mutate(ctx context.Context, accountID string, fn func(*core.AccountProperties) (any, error)) error {
	if accountID == "" {
		return core.ErrNotRegistered
	}
	unlock := r.locks.Lock(accountID)
	defer unlock()

	account, err := r.accounts.Account(ctx, accountID)
	if err != nil {
		return err
	}
	patch, err := fn(&account)
	if err != nil {
		return err
	}
	if patch == nil {
		return nil
	}
	return r.accounts.PatchAccount(ctx, accountID, patch)
}
