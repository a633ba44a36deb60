package services

import (
	"context"
	"fmt"
	"time"

	"github.com/username/moneyflow/backend/src/models"
)

type calculateServiceImpl struct {
	rates RateProvider
}

// NewCalculateService returns a CalculateService backed by the given rate
// provider.
func NewCalculateService(rates RateProvider) CalculateService {
	return &calculateServiceImpl{rates: rates}
}

func (s *calculateServiceImpl) Calculate(ctx context.Context, in CalcInput) <-chan CalcResult {
	out := make(chan CalcResult, 1)
	go func() {
		defer close(out)
		updates := s.rates.Subscribe(ctx)
		for {
			select {
			case out <- s.calculateOnce(in):
			case <-ctx.Done():
				return
			}
			select {
			case _, ok := <-updates:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (s *calculateServiceImpl) calculateOnce(in CalcInput) CalcResult {
	target := in.OutputCurrency
	if target == "" {
		target = s.rates.BaseCurrency()
	}

	var income, expense float64
	for _, trn := range in.Trns {
		if !in.IncludeTransfers && trn.BatchID != "" {
			continue
		}
		amount, err := s.convert(trn.Amount, trn.Currency, target, trn.Time.Time)
		if err != nil {
			return CalcResult{Err: fmt.Errorf("calculating totals for transaction %s: %w", trn.ID, err)}
		}
		if amount >= 0 {
			income += amount
		} else {
			expense += -amount
		}
	}

	return CalcResult{Stats: CalcStats{
		Income:  models.Value{Amount: income, Currency: target},
		Expense: models.Value{Amount: expense, Currency: target},
		Balance: models.Value{Amount: income - expense, Currency: target},
	}}
}

func (s *calculateServiceImpl) convert(amount float64, from, to string, date time.Time) (float64, error) {
	if from == to {
		return amount, nil
	}

	base := amount
	if from != s.rates.BaseCurrency() {
		rate, err := s.rates.Rate(from, date)
		if err != nil {
			return 0, err
		}
		if rate == 0 {
			return 0, fmt.Errorf("%w: zero rate for %s", ErrRateUnavailable, from)
		}
		base = amount / rate
	}
	if to == s.rates.BaseCurrency() {
		return base, nil
	}

	rate, err := s.rates.Rate(to, date)
	if err != nil {
		return 0, err
	}
	return base * rate, nil
}
