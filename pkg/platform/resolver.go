package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/logger"

	"github.com/shopspring/decimal"
)

// Resolver finds the first provider of a queue that recognises a ticker.
type Resolver struct {
	providers map[string]Provider
	log       logger.Logger
}

// NewResolver registers providers by name.
func NewResolver(log logger.Logger, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider, len(providers)), log: log}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider.
func (r *Resolver) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Provider returns the registered provider called name.
func (r *Resolver) Provider(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Resolve parses "TICKER [exchange] [numbers...] [arguments...]" and walks the
// queue. A non-empty explicit platform replaces the queue. It returns a
// user-facing message when nothing matched.
func (r *Resolver) Resolve(ctx context.Context, text, explicit string, queue []string) (string, core.ResolvedRequest) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "A ticker must be provided.", core.ResolvedRequest{}
	}

	req, msg := ParseArguments(fields[1:])
	if msg != "" {
		return msg, req
	}
	id := strings.ToUpper(fields[0])
	req.Ticker = core.Ticker{ID: id, Symbol: id, Base: id}

	if explicit != "" {
		queue = []string{explicit}
	}

	for _, name := range queue {
		p, ok := r.providers[name]
		if !ok {
			continue
		}

		candidate := req
		err := p.Lookup(ctx, &candidate)
		if err == nil {
			candidate.Platform = name
			return "", candidate
		}
		if !errors.Is(err, ErrUnknownTicker) {
			r.log.WithError(err).WithField("platform", name).Warn("ticker lookup failed")
		}
	}

	if explicit != "" {
		return fmt.Sprintf("Requested ticker `%s` is not supported on %s.", id, explicit), req
	}
	if req.Exchange != nil {
		return fmt.Sprintf("Requested ticker `%s` could not be found on %s.", id, req.Exchange.Name), req
	}
	return fmt.Sprintf("Requested ticker `%s` could not be found.", id), req
}

// Fetch asks the resolving provider for the payload.
func (r *Resolver) Fetch(ctx context.Context, req core.ResolvedRequest) (*core.Payload, error) {
	p, ok := r.providers[req.Platform]
	if !ok {
		return nil, fmt.Errorf("%w: platform %q", core.ErrProviderUnavailable, req.Platform)
	}

	payload, err := p.Fetch(ctx, req)
	if err != nil {
		if errors.Is(err, core.ErrUnsupported) {
			return nil, core.NewUserError(core.ErrInvalidArgument,
				"%s does not provide this data for `%s`.", req.Platform, req.Ticker.Symbol)
		}
		return nil, fmt.Errorf("%w: %s: %v", core.ErrProviderUnavailable, req.Platform, err)
	}
	if payload.Platform == "" {
		payload.Platform = req.Platform
	}
	return payload, nil
}

// ParseArguments classifies tokens into an exchange, numbers and free arguments.
func ParseArguments(tokens []string) (core.ResolvedRequest, string) {
	var req core.ResolvedRequest
	for _, token := range tokens {
		if e, ok := LookupExchange(token); ok {
			if req.Exchange != nil && req.Exchange.ID != e.ID {
				return req, "Only one exchange can be requested at a time."
			}
			e := e
			req.Exchange = &e
			continue
		}

		if n, err := decimal.NewFromString(token); err == nil {
			req.Numbers = append(req.Numbers, n)
			continue
		}

		req.Arguments = append(req.Arguments, token)
	}
	return req, ""
}
