package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/moneyflow/backend/src/database"
	"github.com/username/moneyflow/backend/src/logger"
	"github.com/username/moneyflow/backend/src/models"
	"github.com/username/moneyflow/backend/src/services"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// singleCurrencyRates avoids network access in handler tests: everything
// is already in the base currency.
type singleCurrencyRates struct{}

func (singleCurrencyRates) Rate(string, time.Time) (float64, error) { return 1.0, nil }
func (singleCurrencyRates) BaseCurrency() string                    { return "EUR" }
func (singleCurrencyRates) Subscribe(_ context.Context) <-chan struct{} {
	return make(chan struct{})
}

func newTestHandler(t *testing.T) (*TransactionHandler, *database.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.InitDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db, path, "file://../../db/migrations"))

	store := database.NewStore(db)
	group := services.NewGroupService(
		services.NewCalculateService(singleCurrencyRates{}),
		store,
		services.SystemClock{},
	)
	return NewTransactionHandler(store, group), store
}

func newTestRouter(h *TransactionHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/transactions/list", h.HandleGetTransactionsList)
	r.Post("/api/transactions", h.HandleAddTransaction)
	r.Post("/api/transactions/link", h.HandleLinkTransactions)
	r.Delete("/api/transactions/{id}", h.HandleDeleteTransaction)
	return r
}

func TestHandleAddTransactionValidation(t *testing.T) {
	h, _ := newTestHandler(t)
	router := newTestRouter(h)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"missing currency", `{"amount": 5, "kind": "actual", "time": "2026-03-10T12:00:00Z"}`},
		{"bad kind", `{"amount": 5, "currency": "EUR", "kind": "someday", "time": "2026-03-10T12:00:00Z"}`},
		{"missing time", `{"amount": 5, "currency": "EUR", "kind": "actual"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListSnapshotAfterAddAndLink(t *testing.T) {
	h, store := newTestHandler(t)
	router := newTestRouter(h)
	ctx := context.Background()

	now := time.Now()
	from := models.Transaction{
		ID: "from", Amount: -50, Currency: "EUR",
		Time: models.TrnTime{Kind: models.TimeActual, Time: now.Add(-2 * time.Hour)},
	}
	to := models.Transaction{
		ID: "to", Amount: 50, Currency: "EUR",
		Time: models.TrnTime{Kind: models.TimeActual, Time: now.Add(-2 * time.Hour)},
	}
	upcoming := models.Transaction{
		ID: "up", Amount: 30, Currency: "EUR",
		Time: models.TrnTime{Kind: models.TimeDue, Time: now.Add(48 * time.Hour)},
	}
	for _, trn := range []models.Transaction{from, to, upcoming} {
		require.NoError(t, store.SaveTransaction(ctx, trn))
	}

	linkBody := `{"from_trn_id": "from", "to_trn_id": "to"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/link", strings.NewReader(linkBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/transactions/list", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"type":"transfer"`, "linked pair should appear as one transfer")
	assert.Contains(t, body, `"type":"date_divider"`)
	assert.Contains(t, body, `"upcoming"`)

	// The upcoming section carries the due transaction and its total.
	assert.Contains(t, body, `"id":"up"`)
}

func TestHandleDeleteTransaction(t *testing.T) {
	h, store := newTestHandler(t)
	router := newTestRouter(h)
	ctx := context.Background()

	require.NoError(t, store.SaveTransaction(ctx, models.Transaction{
		ID: "t1", Amount: 5, Currency: "EUR",
		Time: models.TrnTime{Kind: models.TimeActual, Time: time.Now()},
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/transactions/t1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	trns, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, trns)
}
