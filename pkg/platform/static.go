package platform

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/shopspring/decimal"
)

// Listing is one ticker known to a Static provider.
type Listing struct {
	Ticker   core.Ticker
	Exchange string
	Price    decimal.Decimal
	Volume   decimal.Decimal
}

// Static serves a fixed in-memory listing. It backs tests and offline runs.
type Static struct {
	name string

	mu       sync.RWMutex
	listings map[string]Listing
}

// NewStatic creates a provider with the given listings.
func NewStatic(name string, listings ...Listing) *Static {
	s := &Static{name: name, listings: make(map[string]Listing)}
	for _, l := range listings {
		s.Set(l)
	}
	return s
}

// Set adds or replaces a listing, keyed by base asset.
func (s *Static) Set(l Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[strings.ToUpper(l.Ticker.Base)] = l
}

func (s *Static) Name() string {
	return s.name
}

func (s *Static) find(id string) (Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id = strings.ToUpper(id)
	if l, ok := s.listings[id]; ok {
		return l, true
	}
	for _, l := range s.listings {
		if strings.ToUpper(l.Ticker.ID) == id {
			return l, true
		}
	}
	return Listing{}, false
}

func (s *Static) Lookup(_ context.Context, req *core.ResolvedRequest) error {
	l, ok := s.find(req.Ticker.ID)
	if !ok {
		return ErrUnknownTicker
	}
	if req.Exchange != nil && l.Exchange != "" && req.Exchange.ID != l.Exchange {
		return ErrUnknownTicker
	}

	req.Ticker = l.Ticker
	if req.Exchange == nil && l.Exchange != "" {
		exchange := ExchangeByID(l.Exchange)
		req.Exchange = &exchange
	}
	return nil
}

func (s *Static) Fetch(_ context.Context, req core.ResolvedRequest) (*core.Payload, error) {
	l, ok := s.find(req.Ticker.Base)
	if !ok {
		return nil, ErrUnknownTicker
	}

	price := l.Price
	payload := &core.Payload{Platform: s.name, Price: &price}
	switch req.Kind {
	case core.KindPrice, core.KindDetails:
		payload.Title = fmt.Sprintf("%s price", l.Ticker.Symbol)
		payload.Text = fmt.Sprintf("%s %s", l.Price.String(), l.Ticker.Quote)
	case core.KindVolume:
		payload.Title = fmt.Sprintf("%s volume", l.Ticker.Symbol)
		payload.Text = fmt.Sprintf("%s %s", l.Volume.String(), l.Ticker.Quote)
	default:
		payload.Title = fmt.Sprintf("%s %s", l.Ticker.Symbol, req.Kind)
		payload.Image = []byte(l.Ticker.Symbol)
		payload.Filename = strings.ToLower(l.Ticker.Base) + ".png"
	}
	return payload, nil
}

// Price quotes base in quote from the listing, inverting when needed.
func (s *Static) Price(_ context.Context, base, quote string) (decimal.Decimal, error) {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	if l, ok := s.find(base); ok && strings.EqualFold(l.Ticker.Quote, quote) {
		return l.Price, nil
	}
	if l, ok := s.find(quote); ok && strings.EqualFold(l.Ticker.Quote, base) && !l.Price.IsZero() {
		return decimal.NewFromInt(1).Div(l.Price), nil
	}
	return decimal.Zero, ErrUnknownTicker
}
