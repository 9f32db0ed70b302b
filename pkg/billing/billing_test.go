package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	zlog "github.com/raykavin/alphabot/pkg/logger/zerolog"
)

type fakeClient struct {
	mu    sync.Mutex
	calls int
	fail  int
}

func (f *fakeClient) ReportUsage(context.Context, string, int, time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail > 0 {
		f.fail--
		return errors.New("billing unavailable")
	}
	return nil
}

func newTestMeter(t *testing.T, client Client, options ...Option) (*Meter, *Ledger) {
	t.Helper()
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "billing", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	options = append([]Option{WithBackoff(time.Millisecond, 2*time.Millisecond)}, options...)
	return NewMeter(client, ledger, zlog.Nop(), options...), ledger
}

func TestReportExactlyOnce(t *testing.T) {
	client := &fakeClient{}
	meter, ledger := newTestMeter(t, client)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = meter.Report(ctx, PresetKey("acc"), "sub_1", 10)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, client.calls)
	rec, err := ledger.Get(PresetKey("acc"))
	require.NoError(t, err)
	require.Equal(t, 10, rec.Quantity)
	require.Equal(t, "addon/acc/commandPresets", rec.Key)

	done, err := meter.Reported(PresetKey("acc"))
	require.NoError(t, err)
	require.True(t, done)
}

func TestReportRetries(t *testing.T) {
	client := &fakeClient{fail: 2}
	meter, ledger := newTestMeter(t, client, WithRetries(3))

	require.NoError(t, meter.Report(context.Background(), AlertKey("acc"), "sub_1", 20))
	require.Equal(t, 3, client.calls)

	rec, err := ledger.Get(AlertKey("acc"))
	require.NoError(t, err)
	require.Equal(t, 3, rec.Attempts)
}

func TestReportGivesUp(t *testing.T) {
	client := &fakeClient{fail: 10}
	meter, ledger := newTestMeter(t, client, WithRetries(2))

	err := meter.Report(context.Background(), TradeKey("acc", "abc"), "sub_1", 1)
	require.Error(t, err)

	n, err := ledger.Len()
	require.NoError(t, err)
	require.Zero(t, n, "failed reports are not recorded")
}

func TestReportWithoutSubscription(t *testing.T) {
	client := &fakeClient{}
	meter, _ := newTestMeter(t, client)

	require.NoError(t, meter.Report(context.Background(), PresetKey("acc"), "", 10))
	require.Zero(t, client.calls)
}

func TestHTTPClient(t *testing.T) {
	var got usageRecord
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/usage" || r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	ts := time.Unix(1_600_000_000, 0)
	client := NewHTTPClient(server.URL, "key", time.Second)
	require.NoError(t, client.ReportUsage(context.Background(), "sub_1", 10, ts))
	require.Equal(t, usageRecord{Subscription: "sub_1", Quantity: 10, Timestamp: ts.Unix()}, got)

	bad := NewHTTPClient(server.URL, "wrong", time.Second)
	require.Error(t, bad.ReportUsage(context.Background(), "sub_1", 10, ts))
}
