// Package billing reports metered usage exactly once per logical event.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jpillora/backoff"

	"github.com/raykavin/alphabot/pkg/keylock"
	"github.com/raykavin/alphabot/pkg/logger"
)

// Client is the billing collaborator.
type Client interface {
	ReportUsage(ctx context.Context, subscriptionID string, quantity int, ts time.Time) error
}

// HTTPClient posts usage records to a metering endpoint.
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPClient(endpoint, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type usageRecord struct {
	Subscription string `json:"subscription"`
	Quantity     int    `json:"quantity"`
	Timestamp    int64  `json:"timestamp"`
}

func (c *HTTPClient) ReportUsage(ctx context.Context, subscriptionID string, quantity int, ts time.Time) error {
	body, err := json.Marshal(usageRecord{Subscription: subscriptionID, Quantity: quantity, Timestamp: ts.Unix()})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/usage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("usage report: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// LogClient only logs usage. It is used when no endpoint is configured.
type LogClient struct {
	Log logger.Logger
}

func (c LogClient) ReportUsage(_ context.Context, subscriptionID string, quantity int, ts time.Time) error {
	c.Log.WithFields(map[string]any{
		"subscription": subscriptionID,
		"quantity":     quantity,
		"timestamp":    ts.Unix(),
	}).Info("usage reported")
	return nil
}

// Key helpers for the metered events.
func PresetKey(account string) string { return "addon/" + account + "/commandPresets" }
func AlertKey(account string) string  { return "addon/" + account + "/marketAlerts" }
func TradeKey(account, orderID string) string {
	return "trade/" + account + "/" + orderID
}

// Option configures a Meter.
type Option func(*Meter)

func WithRetries(n int) Option {
	return func(m *Meter) {
		m.retries = n
	}
}

func WithBackoff(min, max time.Duration) Option {
	return func(m *Meter) {
		m.min, m.max = min, max
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Meter) {
		m.now = now
	}
}

// Meter forwards usage to a Client at most once per key.
type Meter struct {
	client  Client
	ledger  *Ledger
	log     logger.Logger
	retries int
	min     time.Duration
	max     time.Duration
	now     func() time.Time
	locks   *keylock.Locks
}

func NewMeter(client Client, ledger *Ledger, log logger.Logger, options ...Option) *Meter {
	m := &Meter{
		client:  client,
		ledger:  ledger,
		log:     log,
		retries: 5,
		min:     200 * time.Millisecond,
		max:     5 * time.Second,
		now:     time.Now,
		locks:   keylock.New(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Reported tells whether key was already reported.
func (m *Meter) Reported(key string) (bool, error) {
	rec, err := m.ledger.Get(key)
	return rec != nil, err
}

// Report sends quantity for subscription unless key was reported before.
func (m *Meter) Report(ctx context.Context, key, subscription string, quantity int) error {
	unlock := m.locks.Lock(key)
	defer unlock()

	log := m.log.WithField("key", key)
	if done, err := m.Reported(key); err != nil {
		return fmt.Errorf("read billing ledger: %w", err)
	} else if done {
		log.Debug("usage already reported")
		return nil
	}
	if subscription == "" {
		log.Warn("usage without subscription skipped")
		return nil
	}

	b := &backoff.Backoff{Min: m.min, Max: m.max, Jitter: true}
	ts := m.now()

	var err error
	attempt := 0
	for attempt < m.retries {
		attempt++
		if err = m.client.ReportUsage(ctx, subscription, quantity, ts); err == nil {
			break
		}
		log.WithError(err).Warnf("usage report attempt %d failed", attempt)
		if attempt == m.retries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
	if err != nil {
		return fmt.Errorf("report usage %s: %w", key, err)
	}

	return m.ledger.Put(Record{
		Key:          key,
		Subscription: subscription,
		Quantity:     quantity,
		Attempts:     attempt,
		ReportedAt:   ts.Unix(),
	})
}
