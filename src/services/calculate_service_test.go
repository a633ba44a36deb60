package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/moneyflow/backend/src/models"
)

func eurTrn(id string, amount float64) models.Transaction {
	return models.Transaction{
		ID:       id,
		Amount:   amount,
		Currency: "EUR",
		Time: models.TrnTime{
			Kind: models.TimeActual,
			Time: time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC),
		},
	}
}

func TestCalculateSumsIncomeAndExpense(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calc := NewCalculateService(newFakeRates("EUR"))
	results := calc.Calculate(ctx, CalcInput{Trns: []models.Transaction{
		eurTrn("t1", 100),
		eurTrn("t2", -40),
		eurTrn("t3", 25),
	}})

	res := recvCalc(t, results)
	require.NoError(t, res.Err)
	assert.Equal(t, models.Value{Amount: 125, Currency: "EUR"}, res.Stats.Income)
	assert.Equal(t, models.Value{Amount: 40, Currency: "EUR"}, res.Stats.Expense)
	assert.Equal(t, models.Value{Amount: 85, Currency: "EUR"}, res.Stats.Balance)
}

func TestCalculateExcludesTransferLegsUnlessAsked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	leg := eurTrn("leg", -50)
	leg.BatchID = "b1"
	trns := []models.Transaction{leg, eurTrn("plain", 10)}

	calc := NewCalculateService(newFakeRates("EUR"))

	res := recvCalc(t, calc.Calculate(ctx, CalcInput{Trns: trns}))
	require.NoError(t, res.Err)
	assert.Equal(t, float64(0), res.Stats.Expense.Amount, "transfer leg must not count by default")

	res = recvCalc(t, calc.Calculate(ctx, CalcInput{Trns: trns, IncludeTransfers: true}))
	require.NoError(t, res.Err)
	assert.Equal(t, float64(50), res.Stats.Expense.Amount)
}

func TestCalculateConvertsToOutputCurrency(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rates := newFakeRates("EUR")
	rates.set("USD", 1.25) // 1 EUR buys 1.25 USD

	usd := eurTrn("t1", 125)
	usd.Currency = "USD"

	calc := NewCalculateService(rates)
	res := recvCalc(t, calc.Calculate(ctx, CalcInput{Trns: []models.Transaction{usd}}))
	require.NoError(t, res.Err)
	assert.InDelta(t, 100, res.Stats.Income.Amount, 1e-9)
	assert.Equal(t, "EUR", res.Stats.Income.Currency)

	// Forcing a non-base output currency converts transitively.
	res = recvCalc(t, calc.Calculate(ctx, CalcInput{
		Trns:           []models.Transaction{eurTrn("t2", 100)},
		OutputCurrency: "USD",
	}))
	require.NoError(t, res.Err)
	assert.InDelta(t, 125, res.Stats.Income.Amount, 1e-9)
	assert.Equal(t, "USD", res.Stats.Income.Currency)
}

func TestCalculateReportsMissingRate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gbp := eurTrn("t1", 10)
	gbp.Currency = "GBP"

	calc := NewCalculateService(newFakeRates("EUR"))
	res := recvCalc(t, calc.Calculate(ctx, CalcInput{Trns: []models.Transaction{gbp}}))
	require.ErrorIs(t, res.Err, ErrRateUnavailable)
}

func TestCalculateReEmitsOnRateRefresh(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rates := newFakeRates("EUR")
	rates.set("USD", 1.25)

	usd := eurTrn("t1", 125)
	usd.Currency = "USD"

	calc := NewCalculateService(rates)
	results := calc.Calculate(ctx, CalcInput{Trns: []models.Transaction{usd}})

	res := recvCalc(t, results)
	require.NoError(t, res.Err)
	assert.InDelta(t, 100, res.Stats.Income.Amount, 1e-9)

	rates.set("USD", 1.0)
	rates.refresh()

	res = recvCalc(t, results)
	require.NoError(t, res.Err)
	assert.InDelta(t, 125, res.Stats.Income.Amount, 1e-9)
}
