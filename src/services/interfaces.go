package services

import (
	"context"
	"errors"
	"time"

	"github.com/username/moneyflow/backend/src/models"
)

// Common service errors.
var (
	ErrRateUnavailable = errors.New("exchange rate unavailable")
)

// CalcInput is one calculation request over a snapshot of transactions.
// An empty OutputCurrency means the provider's base currency. When
// IncludeTransfers is false, transactions that belong to a transfer batch
// do not count toward the totals.
type CalcInput struct {
	Trns             []models.Transaction
	OutputCurrency   string
	IncludeTransfers bool
}

// CalcStats are the summed totals of one calculation, all in the output
// currency. Balance is income minus expense.
type CalcStats struct {
	Income  models.Value
	Expense models.Value
	Balance models.Value
}

// CalcResult is one emission of a live calculation. Err is set when a
// total could not be computed (e.g. a missing exchange rate); the stats of
// a failed emission must not be used. A failure is reported, never
// silently replaced with zero totals.
type CalcResult struct {
	Stats CalcStats
	Err   error
}

// CalculateService sums income and expense over a transaction snapshot,
// normalizing currencies per transaction date. The returned stream stays
// live: it re-emits whenever the underlying exchange rates refresh, until
// ctx is cancelled.
type CalculateService interface {
	Calculate(ctx context.Context, in CalcInput) <-chan CalcResult
}

// RateProvider resolves exchange rates against a base currency and
// broadcasts rate refreshes.
type RateProvider interface {
	// Rate returns how many units of currency one unit of the base
	// currency bought on the given date.
	Rate(currency string, date time.Time) (float64, error)
	BaseCurrency() string
	// Subscribe delivers a signal on every rate refresh until ctx is done.
	Subscribe(ctx context.Context) <-chan struct{}
}

// LinkRecordSource streams the current set of link records, re-emitting
// whenever the underlying store changes.
type LinkRecordSource interface {
	FindAll(ctx context.Context) <-chan []models.LinkRecord
}

// Clock is the pipeline's time source. It is injected so due
// classification is deterministic in tests; the pipeline samples it once
// per recomputation.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
