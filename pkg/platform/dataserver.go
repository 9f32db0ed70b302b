package platform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// DataServer forwards lookups and payload requests for one platform to a
// remote rendering service over HTTP.
type DataServer struct {
	name     string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewDataServer creates a provider named name that talks to endpoint.
func NewDataServer(name, endpoint string, timeout time.Duration, perMinute int) *DataServer {
	if perMinute <= 0 {
		perMinute = 600
	}
	return &DataServer{
		name:     name,
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(float64(perMinute)/60), 2),
	}
}

func (d *DataServer) Name() string {
	return d.name
}

type lookupRequest struct {
	Platform string `json:"platform"`
	Ticker   string `json:"ticker"`
	Exchange string `json:"exchange,omitempty"`
}

type lookupResponse struct {
	Found    bool        `json:"found"`
	Ticker   core.Ticker `json:"ticker"`
	Exchange string      `json:"exchange,omitempty"`
}

type fetchRequest struct {
	Platform  string            `json:"platform"`
	Kind      core.RequestKind  `json:"kind"`
	Ticker    core.Ticker       `json:"ticker"`
	Exchange  string            `json:"exchange,omitempty"`
	Arguments []string          `json:"arguments,omitempty"`
	Numbers   []decimal.Decimal `json:"numbers,omitempty"`
}

type fetchResponse struct {
	Title     string           `json:"title"`
	Text      string           `json:"text"`
	Image     string           `json:"image"`
	Filename  string           `json:"filename"`
	Price     *decimal.Decimal `json:"price"`
	Thumbnail string           `json:"thumbnail"`
	Supported *bool            `json:"supported"`
}

func (d *DataServer) Lookup(ctx context.Context, req *core.ResolvedRequest) error {
	body := lookupRequest{Platform: d.name, Ticker: req.Ticker.ID}
	if req.Exchange != nil {
		body.Exchange = req.Exchange.ID
	}

	var resp lookupResponse
	if err := d.post(ctx, "/lookup", body, &resp); err != nil {
		return err
	}
	if !resp.Found {
		return ErrUnknownTicker
	}

	req.Ticker = resp.Ticker
	if resp.Exchange != "" {
		exchange := ExchangeByID(resp.Exchange)
		req.Exchange = &exchange
	}
	return nil
}

func (d *DataServer) Fetch(ctx context.Context, req core.ResolvedRequest) (*core.Payload, error) {
	body := fetchRequest{
		Platform:  d.name,
		Kind:      req.Kind,
		Ticker:    req.Ticker,
		Arguments: req.Arguments,
		Numbers:   req.Numbers,
	}
	if req.Exchange != nil {
		body.Exchange = req.Exchange.ID
	}

	var resp fetchResponse
	if err := d.post(ctx, "/fetch", body, &resp); err != nil {
		return nil, err
	}
	if resp.Supported != nil && !*resp.Supported {
		return nil, core.ErrUnsupported
	}

	payload := &core.Payload{
		Platform:     d.name,
		Title:        resp.Title,
		Text:         resp.Text,
		Filename:     resp.Filename,
		Price:        resp.Price,
		ThumbnailURL: resp.Thumbnail,
	}
	if resp.Image != "" {
		image, err := base64.StdEncoding.DecodeString(resp.Image)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		payload.Image = image
	}
	return payload, nil
}

func (d *DataServer) post(ctx context.Context, path string, in, out any) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s%s: status %d: %s", d.endpoint, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
