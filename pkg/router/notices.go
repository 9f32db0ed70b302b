package router

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/raykavin/alphabot/pkg/confirm"
	"github.com/raykavin/alphabot/pkg/core"
)

const guideURL = "https://www.alphabotsystem.com/guide/alpha-bot"

const signUp = "Sign up for a free account on our website. If you already signed up, sign in and " +
	"connect your account with your chat profile on the overview page."

const trial = "If you'd like to start your free trial, visit your account overview page."

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.value)
}

func (e *panicError) Unwrap() error {
	return core.ErrInternal
}

func guide(page string) string {
	url := guideURL
	if page != "" {
		url += "/" + page
	}
	return "Detailed guide with examples is available on our website: " + url
}

func embedMessage(e core.Embed) core.OutboundMessage {
	return core.OutboundMessage{Embed: &e}
}

func notice(author, title string, color int) core.OutboundMessage {
	return embedMessage(core.Embed{Author: author, Title: title, Color: color})
}

// unregistered is returned by features that need a linked account.
func unregistered(icon, feature string) error {
	return &core.UserError{
		Kind:        core.ErrNotRegistered,
		Title:       fmt.Sprintf("%s You must have an Alpha Account connected to your chat profile to use %s.", icon, feature),
		Description: signUp,
	}
}

// upsell is returned by features reserved to Pro accounts.
func upsell(offer, price string) error {
	return &core.UserError{
		Kind:        core.ErrNotEntitled,
		Title:       fmt.Sprintf(":gem: %s available to Alpha Pro users for only %s per month.", offer, price),
		Description: trial,
	}
}

func invalid(format string, args ...any) error {
	return core.NewUserError(core.ErrInvalidArgument, format, args...)
}

func usage(c *Call) error {
	return &core.UserError{Kind: core.ErrInvalidArgument, Title: "Invalid command usage.", Description: guide(c.Route.Guide)}
}

func unavailable(format string, args ...any) error {
	return core.NewUserError(core.ErrProviderUnavailable, format, args...)
}

// ask posts prompt and waits for the author to answer it. A declined or
// expired prompt is edited into canceled with the question struck through.
func (r *Router) ask(ctx context.Context, c *Call, prompt, canceled core.Embed) error {
	var handle core.MessageHandle
	_, err := r.confirm.Ask(ctx, c.Request.AuthorID,
		func(ctx context.Context) error {
			var err error
			handle, err = c.Notify(ctx, embedMessage(prompt))
			return err
		},
		func(ctx context.Context, _ confirm.State) {
			canceled.Description = "~~" + prompt.Title + "~~"
			canceled.Color = core.ColorGray
			if err := r.chat.EditMessage(ctx, handle, embedMessage(canceled)); err != nil {
				c.Log.WithError(err).Debug("editing canceled prompt")
			}
		},
	)
	return err
}

// fail turns a handler error into a chat notice. Only internal errors reach
// telemetry.
func (r *Router) fail(ctx context.Context, span trace.Span, c *Call, err error, kind error) {
	var ue *core.UserError
	isUser := errors.As(err, &ue)

	title := func(fallback string) string {
		if isUser {
			return ue.Title
		}
		return fallback
	}
	description := func(fallback string) string {
		if isUser && ue.Description != "" {
			return ue.Description
		}
		return fallback
	}

	var msg core.OutboundMessage
	switch {
	case errors.Is(err, core.ErrAlreadyPending):
		msg = notice("", "You already have a pending confirmation. Answer it before sending another order.", core.ColorGray)

	case kind == core.ErrInvalidArgument:
		if c.Request.IsMuted() {
			return
		}
		page := ""
		if c.Route != nil {
			page = c.Route.Guide
		}
		msg = embedMessage(core.Embed{
			Author:      "Invalid argument",
			Title:       title("Invalid command usage."),
			Description: description(guide(page)),
			Color:       core.ColorGray,
		})

	case kind == core.ErrNotRegistered, kind == core.ErrNotEntitled:
		msg = embedMessage(core.Embed{
			Title:       title("This feature is available to Alpha Pro users."),
			Description: description(trial),
			Color:       core.ColorDeepPurple,
		})

	case kind == core.ErrProviderUnavailable:
		msg = notice("Data not available", title("Requested data is not available."), core.ColorGray)
		msg.Reactions = []string{core.ReactionDismiss}

	case kind == core.ErrRateLimited:
		msg = notice("", "You reached your limit of requests per minute. You can try again in a bit.", core.ColorGray)
		msg.Mention = c.Request.AuthorID

	case kind == core.ErrConfirmationDeclined, kind == core.ErrConfirmationTimedOut:
		return

	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.Log.WithError(err).Error("request failed")
		msg = notice("Something went wrong", "Looks like something went wrong. The issue was reported.", core.ColorGray)
	}

	if _, sendErr := c.Notify(ctx, msg); sendErr != nil {
		c.Log.WithError(sendErr).Warn("sending error notice")
	}
}
