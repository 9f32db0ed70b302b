package platform

import (
	"context"
	"fmt"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/samber/lo"
)

// Restricted exposes a provider under another name and limits it to a set of
// exchanges, defaulting to the first one.
type Restricted struct {
	name      string
	inner     Provider
	exchanges []string
}

// NewRestricted wraps inner. exchanges must not be empty.
func NewRestricted(name string, inner Provider, exchanges ...string) *Restricted {
	return &Restricted{name: name, inner: inner, exchanges: exchanges}
}

func (r *Restricted) Name() string {
	return r.name
}

// Exchanges lists the exchange ids served.
func (r *Restricted) Exchanges() []string {
	return r.exchanges
}

func (r *Restricted) Lookup(ctx context.Context, req *core.ResolvedRequest) error {
	if req.Exchange == nil && len(r.exchanges) > 0 {
		exchange := ExchangeByID(r.exchanges[0])
		req.Exchange = &exchange
	}
	if req.Exchange == nil || !lo.Contains(r.exchanges, req.Exchange.ID) {
		return ErrUnknownTicker
	}
	return r.inner.Lookup(ctx, req)
}

func (r *Restricted) Fetch(ctx context.Context, req core.ResolvedRequest) (*core.Payload, error) {
	if req.Exchange == nil || !lo.Contains(r.exchanges, req.Exchange.ID) {
		return nil, fmt.Errorf("%w: exchange not served by %s", core.ErrUnsupported, r.name)
	}
	payload, err := r.inner.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	payload.Platform = r.name
	return payload, nil
}
