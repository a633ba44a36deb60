package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/username/moneyflow/backend/src/logger"
	"github.com/username/moneyflow/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// fakeRates is a RateProvider with settable rates and a manual refresh
// trigger.
type fakeRates struct {
	mu    sync.Mutex
	base  string
	rates map[string]float64
	subs  []chan struct{}
}

func newFakeRates(base string) *fakeRates {
	return &fakeRates{base: base, rates: make(map[string]float64)}
}

func (f *fakeRates) Rate(currency string, _ time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rates[currency]
	if !ok {
		return 0, ErrRateUnavailable
	}
	return r, nil
}

func (f *fakeRates) BaseCurrency() string { return f.base }

func (f *fakeRates) Subscribe(_ context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch
}

func (f *fakeRates) set(currency string, rate float64) {
	f.mu.Lock()
	f.rates[currency] = rate
	f.mu.Unlock()
}

func (f *fakeRates) refresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// fixedClock pins now for deterministic due classification.
type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// staticLinks emits one set of link records and completes.
type staticLinks struct{ links []models.LinkRecord }

func (s staticLinks) FindAll(_ context.Context) <-chan []models.LinkRecord {
	out := make(chan []models.LinkRecord, 1)
	out <- s.links
	close(out)
	return out
}

// pushLinks is a live link source driven by the test.
type pushLinks struct{ ch chan []models.LinkRecord }

func newPushLinks() *pushLinks {
	return &pushLinks{ch: make(chan []models.LinkRecord, 1)}
}

func (p *pushLinks) FindAll(_ context.Context) <-chan []models.LinkRecord { return p.ch }

func (p *pushLinks) push(links []models.LinkRecord) { p.ch <- links }

func recvUpdate(t *testing.T, ch <-chan ListUpdate) ListUpdate {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "update stream closed unexpectedly")
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a transactions list update")
	}
	return ListUpdate{}
}

func recvCalc(t *testing.T, ch <-chan CalcResult) CalcResult {
	t.Helper()
	select {
	case r, ok := <-ch:
		require.True(t, ok, "calculation stream closed unexpectedly")
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a calculation result")
	}
	return CalcResult{}
}
