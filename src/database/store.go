package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/username/moneyflow/backend/src/logger"
	"github.com/username/moneyflow/backend/src/models"
)

// Store persists transactions and link records and broadcasts a signal on
// every write, so derived views (the live transactions list) can recompute.
// The store is read-only from the pipeline's perspective; writes come from
// the API surface.
type Store struct {
	db *sql.DB

	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, subs: make(map[chan struct{}]struct{})}
}

// SaveTransaction inserts or replaces one transaction.
func (s *Store) SaveTransaction(ctx context.Context, trn models.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, category_id, title, amount, currency, time_kind, time, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			category_id = excluded.category_id,
			title = excluded.title,
			amount = excluded.amount,
			currency = excluded.currency,
			time_kind = excluded.time_kind,
			time = excluded.time,
			batch_id = excluded.batch_id`,
		trn.ID, trn.AccountID, trn.CategoryID, trn.Title, trn.Amount, trn.Currency,
		int(trn.Time.Kind), trn.Time.Time.Format(time.RFC3339Nano), trn.BatchID)
	if err != nil {
		return fmt.Errorf("saving transaction %s: %w", trn.ID, err)
	}
	s.notify()
	return nil
}

// ListTransactions returns the full transaction snapshot, newest first.
func (s *Store) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, category_id, title, amount, currency, time_kind, time, batch_id
		FROM transactions
		ORDER BY time DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var trns []models.Transaction
	for rows.Next() {
		var (
			trn      models.Transaction
			kind     int
			timeText string
		)
		if err := rows.Scan(&trn.ID, &trn.AccountID, &trn.CategoryID, &trn.Title,
			&trn.Amount, &trn.Currency, &kind, &timeText, &trn.BatchID); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, timeText)
		if err != nil {
			return nil, fmt.Errorf("parsing time of transaction %s: %w", trn.ID, err)
		}
		trn.Time = models.TrnTime{Kind: models.TimeKind(kind), Time: ts}
		trns = append(trns, trn)
	}
	return trns, rows.Err()
}

// DeleteTransaction removes one transaction. Link records pointing at it
// are left in place; the batcher drops them when their legs stop resolving.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting transaction %s: %w", id, err)
	}
	s.notify()
	return nil
}

// LinkTransactions writes the link record and stamps the batch ID onto the
// referenced legs (and fee) in one database transaction.
func (s *Store) LinkTransactions(ctx context.Context, link models.LinkRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning link transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trn_links (batch_id, from_trn_id, to_trn_id, fee_trn_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(batch_id) DO UPDATE SET
			from_trn_id = excluded.from_trn_id,
			to_trn_id = excluded.to_trn_id,
			fee_trn_id = excluded.fee_trn_id`,
		link.BatchID, link.FromTrnID, link.ToTrnID, link.FeeTrnID)
	if err != nil {
		return fmt.Errorf("saving link record %s: %w", link.BatchID, err)
	}

	ids := []string{link.FromTrnID, link.ToTrnID}
	if link.FeeTrnID != "" {
		ids = append(ids, link.FeeTrnID)
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET batch_id = ? WHERE id = ?`, link.BatchID, id); err != nil {
			return fmt.Errorf("stamping batch %s on transaction %s: %w", link.BatchID, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing link %s: %w", link.BatchID, err)
	}
	s.notify()
	return nil
}

// ListLinkRecords returns all link records.
func (s *Store) ListLinkRecords(ctx context.Context) ([]models.LinkRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, from_trn_id, to_trn_id, fee_trn_id
		FROM trn_links
		ORDER BY batch_id`)
	if err != nil {
		return nil, fmt.Errorf("querying link records: %w", err)
	}
	defer rows.Close()

	var links []models.LinkRecord
	for rows.Next() {
		var link models.LinkRecord
		if err := rows.Scan(&link.BatchID, &link.FromTrnID, &link.ToTrnID, &link.FeeTrnID); err != nil {
			return nil, fmt.Errorf("scanning link record: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// Subscribe delivers a signal after every write until ctx is done.
func (s *Store) Subscribe(ctx context.Context) <-chan struct{} {
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

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// FindAll implements the pipeline's link record source: it emits the
// current link records immediately and again after every store change. A
// read failure is logged and surfaced as an empty set so the pipeline
// never stalls waiting for its first value.
func (s *Store) FindAll(ctx context.Context) <-chan []models.LinkRecord {
	out := make(chan []models.LinkRecord, 1)
	updates := s.Subscribe(ctx)
	go func() {
		defer close(out)
		for {
			links, err := s.ListLinkRecords(ctx)
			if err != nil {
				logger.L.Error("Failed to load link records", "error", err)
				links = nil
			}
			if links == nil {
				links = []models.LinkRecord{}
			}
			select {
			case out <- links:
			case <-ctx.Done():
				return
			}
			select {
			case <-updates:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
