package router

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/preset"
)

const registrySize = 4096

type targetKind int

const (
	targetDismiss targetKind = iota
	targetPaperOrder
	targetAlert
	targetPreset
)

// target records what a bot message stands for, so reactions never parse
// footers back.
type target struct {
	kind   targetKind
	author int64
	image  bool

	id     string
	phrase string
	footer string
}

// registry is a bounded map of sent messages; the oldest entry is evicted
// first.
type registry struct {
	mu      sync.Mutex
	size    int
	entries map[core.MessageHandle]target
	order   []core.MessageHandle
}

func newRegistry(size int) *registry {
	return &registry{size: size, entries: make(map[core.MessageHandle]target)}
}

func (g *registry) put(handle core.MessageHandle, t target) {
	if handle.IsZero() {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.entries[handle]; !ok {
		g.order = append(g.order, handle)
	}
	g.entries[handle] = t
	for len(g.order) > g.size {
		delete(g.entries, g.order[0])
		g.order = g.order[1:]
	}
}

func (g *registry) get(handle core.MessageHandle) (target, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.entries[handle]
	return t, ok
}

func (g *registry) drop(handle core.MessageHandle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.entries[handle]; !ok {
		return
	}
	delete(g.entries, handle)
	for i, h := range g.order {
		if h == handle {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// HandleReaction reacts to ☑ and ❌ on messages the router sent.
func (r *Router) HandleReaction(ctx context.Context, reaction core.ReactionAdded) {
	defer func() {
		if p := recover(); p != nil {
			r.log.WithField("panic", p).Error("reaction handling panicked")
		}
	}()

	t, ok := r.targets.get(reaction.Target)
	if !ok || slices.Contains(r.settings.BlockedUsers, reaction.AuthorID) {
		return
	}
	log := r.log.WithFields(map[string]any{
		"author":  reaction.AuthorID,
		"message": reaction.Target.MessageID,
		"emoji":   reaction.Emoji,
	})

	switch reaction.Emoji {
	case core.ReactionDismiss:
		if t.kind != targetDismiss {
			return
		}
		if t.image && reaction.AuthorID != t.author && !r.settings.IsOperator(reaction.AuthorID) {
			return
		}
		if err := r.chat.DeleteMessage(ctx, reaction.Target); err != nil {
			log.WithError(err).Warn("deleting dismissed message")
			return
		}
		r.targets.drop(reaction.Target)

	case core.ReactionCancel:
		if t.kind == targetDismiss || reaction.AuthorID != t.author {
			return
		}
		accountID, err := r.accounts.Resolve(ctx, reaction.AuthorID)
		if err != nil {
			log.WithError(err).Error("resolving reacting account")
			return
		}
		title, err := r.cancelTarget(ctx, accountID, t)
		if err != nil {
			log.WithError(err).Warn("canceling reaction target")
			return
		}
		r.targets.drop(reaction.Target)
		edited := embedMessage(core.Embed{Title: title, Footer: t.footer, Color: core.ColorGray})
		if err := r.chat.EditMessage(ctx, reaction.Target, edited); err != nil {
			log.WithError(err).Warn("editing canceled message")
		}
	}
}

// cancelTarget removes what the message stands for from the account and
// returns the edited title.
func (r *Router) cancelTarget(ctx context.Context, accountID string, t target) (string, error) {
	switch t.kind {
	case targetPaperOrder:
		return "Paper order canceled", r.mutate(ctx, accountID, func(a *core.AccountProperties) (any, error) {
			if _, err := r.ledger.Cancel(&a.PaperTrader, t.id); err != nil {
				return nil, err
			}
			return map[string]any{"paperTrader": a.PaperTrader}, nil
		})

	case targetAlert:
		return "Alert deleted", r.mutate(ctx, accountID, func(a *core.AccountProperties) (any, error) {
			entry, err := r.alerts.Remove(a.MarketAlerts, t.id)
			if err != nil {
				return nil, err
			}
			key := strings.ReplaceAll(entry.Symbol, "/", "-")
			return map[string]any{"marketAlerts": map[string]any{
				entry.Exchange: map[string]any{key: a.MarketAlerts[entry.Exchange][key]},
			}}, nil
		})

	case targetPreset:
		return "Preset deleted", r.mutate(ctx, accountID, func(a *core.AccountProperties) (any, error) {
			remaining, err := preset.Remove(a.CommandPresets, t.phrase)
			if err != nil {
				return nil, err
			}
			return map[string]any{"commandPresets": remaining}, nil
		})
	}
	return "", core.ErrUnsupported
}
