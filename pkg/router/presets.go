package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/trace"

	"github.com/raykavin/alphabot/pkg/billing"
	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/preset"
)

// resolvePresets expands a stored preset or offers to save an inline or
// recently used one. It returns false when the message must not go further.
func (r *Router) resolvePresets(ctx context.Context, c *Call, content string) (string, bool) {
	req := c.Request
	out, used, candidates := preset.Resolve(content, req.Account.CommandPresets)
	if !used && len(candidates) == 0 && req.RoomID != -1 {
		if cached, ok := r.presets.Lookup(req.RoomID, content); ok {
			candidates = []core.Preset{cached}
		}
	}
	if !used && len(candidates) == 0 {
		return content, true
	}

	var gate error
	switch {
	case !req.IsRegistered():
		gate = unregistered(":pushpin:", "Command Presets")
	case !req.IsPro():
		gate = upsell("Command Presets are", "$1.00")
	}
	if gate != nil {
		r.fail(ctx, trace.SpanFromContext(ctx), c, gate, core.Kind(gate))
		return "", false
	}

	if used {
		if matched, ok := lo.Find(req.Account.CommandPresets, func(p core.Preset) bool { return p.Phrase == content }); ok && req.RoomID != -1 {
			r.presets.Remember(req.RoomID, matched)
		}
		if req.Account.Addon(core.AddonCommandPresets) == 0 {
			err := r.mutate(ctx, req.AccountID, func(a *core.AccountProperties) (any, error) {
				if a.Addon(core.AddonCommandPresets) != 0 {
					return nil, nil
				}
				return r.activatePresets(ctx, a, req.AccountID, nil)
			})
			if err != nil {
				c.Log.WithError(err).Warn("activating command presets")
			}
		}
		c.Response.PresetUsed = true
		_, _ = c.Send(ctx, notice("", fmt.Sprintf("Running `%s` command from personal preset.", out), core.ColorLightBlue))
		return out, true
	}

	candidate := candidates[0]
	err := r.ask(ctx, c, core.Embed{
		Title:       fmt.Sprintf("Do you want to add `%s` preset to your account?", candidate.Phrase),
		Description: fmt.Sprintf("`%s` → `%s`", candidate.Phrase, candidate.Shortcut),
		Color:       core.ColorLightBlue,
	}, core.Embed{Title: "Canceled"})
	if err != nil {
		r.fail(ctx, trace.SpanFromContext(ctx), c, err, core.Kind(err))
		return "", false
	}
	return fmt.Sprintf("preset add %s %s", candidate.Phrase, candidate.Shortcut), true
}

// activatePresets reports the add-on usage once and returns the patch storing
// presets together with the activation flag. A nil list only sets the flag.
func (r *Router) activatePresets(ctx context.Context, account *core.AccountProperties, accountID string, presets []core.Preset) (any, error) {
	if account.Addon(core.AddonCommandPresets) == 0 && r.meter != nil {
		if err := r.meter.Report(ctx, billing.PresetKey(accountID),
			account.Customer.PersonalSubscription.Subscription, r.settings.Billing.PresetQuantity); err != nil {
			return nil, err
		}
	}
	patch := map[string]any{
		"customer": map[string]any{"addons": map[string]any{core.AddonCommandPresets: 1}},
	}
	if presets != nil {
		patch["commandPresets"] = presets
	}
	return patch, nil
}

func (r *Router) presetCommand(ctx context.Context, c *Call, slice string) error {
	arguments := strings.SplitN(strings.ReplaceAll(slice, "`", ""), " ", 3)
	method := arguments[0]
	req := c.Request

	switch method {
	case "set", "create", "add":
		if !req.IsRegistered() {
			return unregistered(":pushpin:", "Command Presets")
		}
		if !req.IsPro() {
			return upsell("Command Presets are", "$1.00")
		}
		if len(arguments) != 3 {
			return invalid("Invalid command usage.")
		}
		phrase, shortcut := arguments[1], arguments[2]
		if len([]rune(phrase)) > preset.MaxPhraseLength {
			return invalid("Shortcut title can be only up to %d characters long.", preset.MaxPhraseLength)
		}
		if len([]rune(shortcut)) > preset.MaxShortcutLength {
			return invalid("Shortcut command can be only up to %d characters long.", preset.MaxShortcutLength)
		}

		err := r.mutate(ctx, req.AccountID, func(a *core.AccountProperties) (any, error) {
			stored, err := preset.Add(a.CommandPresets, phrase, shortcut)
			if errors.Is(err, core.ErrDuplicate) {
				return nil, invalid("`%s` preset already exists.", phrase)
			}
			if err != nil {
				return nil, err
			}
			return r.activatePresets(ctx, a, req.AccountID, stored)
		})
		if err != nil {
			return err
		}

		_, err = c.Send(ctx, embedMessage(core.Embed{
			Author: "Preset added",
			Title:  fmt.Sprintf("`%s` → `%s` preset was added to your account.", phrase, shortcut),
			Color:  core.ColorDeepPurple,
		}))
		return err

	case "list", "all":
		if len(arguments) != 1 {
			return invalid("`%s` is not a valid argument.", slice)
		}
		presets := preset.Sorted(req.Account.CommandPresets)
		if len(presets) == 0 {
			_, err := c.Send(ctx, notice("Command Presets", "You don't have any presets.", core.ColorGray))
			return err
		}
		for i, p := range presets {
			footer := fmt.Sprintf("Preset %d/%d", i+1, len(presets))
			msg := embedMessage(core.Embed{
				Title:  fmt.Sprintf("`%s` → `%s`", p.Phrase, p.Shortcut),
				Footer: footer,
				Color:  core.ColorDeepPurple,
			})
			msg.Reactions = []string{core.ReactionCancel}
			handle, err := c.Send(ctx, msg)
			if err != nil {
				return err
			}
			r.targets.put(handle, target{kind: targetPreset, author: req.AuthorID, phrase: p.Phrase, footer: footer})
		}
		return nil

	case "remove", "delete":
		if len(arguments) < 2 {
			return invalid("Invalid command usage.")
		}
		phrase := strings.Join(arguments[1:], " ")
		err := r.mutate(ctx, req.AccountID, func(a *core.AccountProperties) (any, error) {
			remaining, err := preset.Remove(a.CommandPresets, phrase)
			if err != nil {
				return nil, invalid("`%s` preset doesn't exist.", phrase)
			}
			return map[string]any{"commandPresets": remaining}, nil
		})
		if err != nil {
			return err
		}
		_, err = c.Send(ctx, notice("Preset deleted", fmt.Sprintf("`%s` preset was removed from your account.", phrase), core.ColorGray))
		return err
	}
	return invalid("`%s` is not a valid argument.", method)
}
