package models

import (
	"encoding/json"
	"time"
)

// ListItem is the unit the transactions list is built from: a plain
// transaction, a transfer (two linked legs presented as one), or the
// synthetic date divider that opens each history day. The set of
// implementations is closed; downstream code switches exhaustively on it.
type ListItem interface {
	listItem()
}

// TrnItem is an unlinked transaction.
type TrnItem struct {
	Trn Transaction `json:"transaction"`
}

// TransferItem presents two linked transactions as one logical movement.
// Time is the transfer's own effective time, not either leg's raw
// timestamp (the legs are written independently and may differ slightly).
type TransferItem struct {
	From    Transaction  `json:"from"`
	To      Transaction  `json:"to"`
	Fee     *Transaction `json:"fee,omitempty"`
	BatchID string       `json:"batch_id"`
	Time    TrnTime      `json:"time"`
}

// DateDivider opens one day's block in the history output and carries
// that day's net cashflow. It never appears in pipeline input.
type DateDivider struct {
	Date     time.Time `json:"date"`
	Cashflow Value     `json:"cashflow"`
}

func (TrnItem) listItem()      {}
func (TransferItem) listItem() {}
func (DateDivider) listItem()  {}

func (it TrnItem) MarshalJSON() ([]byte, error) {
	type alias TrnItem
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: "transaction", alias: alias(it)})
}

func (it TransferItem) MarshalJSON() ([]byte, error) {
	type alias TransferItem
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: "transfer", alias: alias(it)})
}

func (it DateDivider) MarshalJSON() ([]byte, error) {
	type alias DateDivider
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: "date_divider", alias: alias(it)})
}

// Section is one aggregated due view (upcoming or overdue): totals plus
// the matching items ordered soonest-first.
type Section struct {
	Income  Value      `json:"income"`
	Expense Value      `json:"expense"`
	Items   []ListItem `json:"items"`
}

// TransactionsList is the composite output of the aggregation pipeline.
// Consumers re-render it entirely on each emission.
type TransactionsList struct {
	Upcoming Section    `json:"upcoming"`
	Overdue  Section    `json:"overdue"`
	History  []ListItem `json:"history"`
}
