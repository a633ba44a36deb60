package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/username/moneyflow/backend/src/logger"
	"github.com/username/moneyflow/backend/src/models"
)

// ECBRateService resolves daily reference rates from the ECB data API,
// caching results and notifying subscribers on every refresh cycle so live
// calculations recompute against fresh data.
type ECBRateService struct {
	base    string
	client  *http.Client
	cache   *cache.Cache
	limiter *rate.Limiter

	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// NewECBRateService creates a rate service with baseCurrency as the
// reference currency (the ECB publishes rates against EUR; other bases are
// derived transitively by the calculation service).
func NewECBRateService(baseCurrency string) *ECBRateService {
	return &ECBRateService{
		base:    baseCurrency,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache.New(24*time.Hour, 48*time.Hour),
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		subs:    make(map[chan struct{}]struct{}),
	}
}

func (s *ECBRateService) BaseCurrency() string { return s.base }

// Rate returns how many units of currency one unit of the base currency
// bought on the given date. Markets close on weekends and holidays, so the
// lookup walks back up to a week for the last published rate.
func (s *ECBRateService) Rate(currency string, date time.Time) (float64, error) {
	if currency == s.base {
		return 1.0, nil
	}

	cacheKey := fmt.Sprintf("rate-%s-%s", currency, date.Format("2006-01-02"))
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.(float64), nil
	}

	for i := 0; i < 7; i++ {
		queryDate := date.AddDate(0, 0, -i)
		r, err := s.fetch(currency, queryDate)
		if err != nil {
			logger.L.Debug("No ECB rate for date, trying previous day",
				"currency", currency, "date", queryDate.Format("2006-01-02"), "error", err)
			continue
		}
		s.cache.Set(cacheKey, r, cache.DefaultExpiration)
		return r, nil
	}

	return 0, fmt.Errorf("%w: %s on or before %s",
		ErrRateUnavailable, currency, date.Format("2006-01-02"))
}

// Subscribe delivers a signal after every refresh cycle until ctx is done.
func (s *ECBRateService) Subscribe(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}()
	return ch
}

// Run drops cached rates and notifies subscribers every refreshEvery, so
// that long-lived calculation streams pick up newly published rates. Blocks
// until ctx is done.
func (s *ECBRateService) Run(ctx context.Context, refreshEvery time.Duration) {
	ticker := time.NewTicker(refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cache.Flush()
			s.notify()
			logger.L.Info("Exchange rate cache refreshed", "interval", refreshEvery.String())
		case <-ctx.Done():
			return
		}
	}
}

func (s *ECBRateService) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *ECBRateService) fetch(currency string, date time.Time) (float64, error) {
	if err := s.limiter.Wait(context.Background()); err != nil {
		return 0, err
	}

	dateStr := date.Format("2006-01-02")
	// Key structure is D.{CURRENCY}.{BASE}.SP00.A for daily reference rates.
	seriesKey := fmt.Sprintf("D.%s.%s.SP00.A", currency, s.base)
	url := fmt.Sprintf(
		"https://data-api.ecb.europa.eu/service/data/EXR/%s?startPeriod=%s&endPeriod=%s&format=jsondata",
		seriesKey, dateStr, dateStr,
	)

	resp, err := s.client.Get(url)
	if err != nil {
		return 0, fmt.Errorf("requesting ECB rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("no rate published for %s", dateStr)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ECB API returned %s", resp.Status)
	}

	var ecbData models.ECBResponse
	if err := json.NewDecoder(resp.Body).Decode(&ecbData); err != nil {
		return 0, fmt.Errorf("decoding ECB response: %w", err)
	}
	return extractRate(ecbData)
}

// extractRate navigates the ECB JSON structure to the single observation
// value we asked for.
func extractRate(data models.ECBResponse) (float64, error) {
	if len(data.DataSets) == 0 {
		return 0, fmt.Errorf("no dataSets in ECB response")
	}
	for _, seriesData := range data.DataSets[0].Series {
		if observations, ok := seriesData.Observations["0"]; ok && len(observations) > 0 {
			return observations[0], nil
		}
	}
	return 0, fmt.Errorf("observation value not found in ECB response")
}
