package models

import "time"

// TimeKind classifies when a transaction takes (or took) effect.
type TimeKind int

const (
	// TimeActual marks a transaction that has already happened.
	TimeActual TimeKind = iota + 1
	// TimeDue marks a scheduled transaction that has not been realized yet.
	TimeDue
)

// TrnTime is a transaction's time classification. A zero Kind means the
// stored record carried no usable classification; such transactions are
// excluded from every section of the transactions list.
type TrnTime struct {
	Kind TimeKind  `json:"kind"`
	Time time.Time `json:"time"`
}

func (t TrnTime) Actual() bool { return t.Kind == TimeActual }
func (t TrnTime) Due() bool    { return t.Kind == TimeDue }

// Transaction is one financial movement as stored. Amount is signed:
// income is positive, expense is negative.
type Transaction struct {
	ID         string  `json:"id"`
	AccountID  string  `json:"account_id"`
	CategoryID string  `json:"category_id,omitempty"`
	Title      string  `json:"title,omitempty"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Time       TrnTime `json:"time"`
	// BatchID is non-empty when the transaction is one leg (or the fee)
	// of a transfer.
	BatchID string `json:"batch_id,omitempty"`
}

// LinkRecord pairs the two legs of a transfer, plus an optional fee
// transaction, under a shared batch ID. Link integrity is not guaranteed
// by the store: a record may reference transactions that no longer exist.
type LinkRecord struct {
	BatchID   string `json:"batch_id"`
	FromTrnID string `json:"from_trn_id"`
	ToTrnID   string `json:"to_trn_id"`
	FeeTrnID  string `json:"fee_trn_id,omitempty"`
}

// Value is a monetary amount in a concrete currency.
type Value struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}
