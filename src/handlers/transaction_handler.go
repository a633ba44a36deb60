package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/username/moneyflow/backend/src/database"
	"github.com/username/moneyflow/backend/src/logger"
	"github.com/username/moneyflow/backend/src/models"
	"github.com/username/moneyflow/backend/src/services"
)

const snapshotTimeout = 15 * time.Second

type TransactionHandler struct {
	store *database.Store
	group *services.GroupService
}

func NewTransactionHandler(store *database.Store, group *services.GroupService) *TransactionHandler {
	return &TransactionHandler{store: store, group: group}
}

// HandleGetTransactionsList returns one composite snapshot of the
// aggregated transactions list.
func (h *TransactionHandler) HandleGetTransactionsList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()

	trns, err := h.store.ListTransactions(ctx)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load transactions", "error", err)
		sendJSONError(w, "failed to load transactions", http.StatusInternalServerError)
		return
	}

	select {
	case update, ok := <-h.group.StreamTransactionsList(ctx, trns):
		if !ok {
			sendJSONError(w, "aggregation produced no result", http.StatusInternalServerError)
			return
		}
		if update.Err != nil {
			logger.FromContext(r.Context()).Error("Aggregation failed", "error", update.Err)
			sendJSONError(w, "aggregation failed", http.StatusInternalServerError)
			return
		}
		sendJSON(w, http.StatusOK, update.List)
	case <-ctx.Done():
		sendJSONError(w, "timed out waiting for aggregation", http.StatusGatewayTimeout)
	}
}

// HandleStreamTransactionsList streams composite results as server-sent
// events. Every store change restarts the pipeline against a fresh
// transaction snapshot; within one run, every branch recomputation (e.g. a
// rate refresh) produces a new event.
func (h *TransactionHandler) HandleStreamTransactionsList(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		sendJSONError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	ctxLogger := logger.FromContext(ctx)
	storeUpdates := h.store.Subscribe(ctx)

	for {
		trns, err := h.store.ListTransactions(ctx)
		if err != nil {
			ctxLogger.Error("Failed to load transactions for stream", "error", err)
			return
		}

		runCtx, cancelRun := context.WithCancel(ctx)
		updates := h.group.StreamTransactionsList(runCtx, trns)

		restart := false
		for !restart {
			select {
			case update, ok := <-updates:
				if !ok {
					restart = true
					break
				}
				h.writeEvent(w, flusher, ctxLogger, update)
			case <-storeUpdates:
				restart = true
			case <-ctx.Done():
				cancelRun()
				return
			}
		}
		cancelRun()
	}
}

func (h *TransactionHandler) writeEvent(w http.ResponseWriter, flusher http.Flusher, ctxLogger *slog.Logger, update services.ListUpdate) {
	if update.Err != nil {
		ctxLogger.Error("Aggregation failed during stream", "error", update.Err)
		fmt.Fprintf(w, "event: error\ndata: %q\n\n", update.Err.Error())
		flusher.Flush()
		return
	}
	payload, err := json.Marshal(update.List)
	if err != nil {
		ctxLogger.Error("Failed to marshal transactions list", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}

type addTransactionRequest struct {
	AccountID  string    `json:"account_id"`
	CategoryID string    `json:"category_id"`
	Title      string    `json:"title"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Kind       string    `json:"kind"` // "actual" or "due"
	Time       time.Time `json:"time"`
}

// HandleAddTransaction stores one manually entered transaction.
func (h *TransactionHandler) HandleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Currency == "" || req.Time.IsZero() {
		sendJSONError(w, "currency and time are required", http.StatusBadRequest)
		return
	}

	var kind models.TimeKind
	switch req.Kind {
	case "actual":
		kind = models.TimeActual
	case "due":
		kind = models.TimeDue
	default:
		sendJSONError(w, "kind must be \"actual\" or \"due\"", http.StatusBadRequest)
		return
	}

	trn := models.Transaction{
		ID:         uuid.New().String(),
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Time:       models.TrnTime{Kind: kind, Time: req.Time},
	}
	if err := h.store.SaveTransaction(r.Context(), trn); err != nil {
		logger.FromContext(r.Context()).Error("Failed to save transaction", "error", err)
		sendJSONError(w, "failed to save transaction", http.StatusInternalServerError)
		return
	}
	sendJSON(w, http.StatusCreated, trn)
}

type linkTransactionsRequest struct {
	FromTrnID string `json:"from_trn_id"`
	ToTrnID   string `json:"to_trn_id"`
	FeeTrnID  string `json:"fee_trn_id"`
}

// HandleLinkTransactions pairs two existing transactions into a transfer.
func (h *TransactionHandler) HandleLinkTransactions(w http.ResponseWriter, r *http.Request) {
	var req linkTransactionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.FromTrnID == "" || req.ToTrnID == "" || req.FromTrnID == req.ToTrnID {
		sendJSONError(w, "from_trn_id and to_trn_id must be two distinct transactions", http.StatusBadRequest)
		return
	}

	link := models.LinkRecord{
		BatchID:   uuid.New().String(),
		FromTrnID: req.FromTrnID,
		ToTrnID:   req.ToTrnID,
		FeeTrnID:  req.FeeTrnID,
	}
	if err := h.store.LinkTransactions(r.Context(), link); err != nil {
		logger.FromContext(r.Context()).Error("Failed to link transactions", "error", err)
		sendJSONError(w, "failed to link transactions", http.StatusInternalServerError)
		return
	}
	sendJSON(w, http.StatusCreated, link)
}

// HandleDeleteTransaction removes one transaction by ID.
func (h *TransactionHandler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		sendJSONError(w, "transaction id required", http.StatusBadRequest)
		return
	}
	if err := h.store.DeleteTransaction(r.Context(), id); err != nil {
		logger.FromContext(r.Context()).Error("Failed to delete transaction", "id", id, "error", err)
		sendJSONError(w, "failed to delete transaction", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
