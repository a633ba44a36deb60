package processors

import "github.com/username/moneyflow/backend/src/models"

// Batch merges a snapshot of raw transactions with the current link records
// into list items. Linked pairs become a single TransferItem; everything
// else stays a plain TrnItem. Output order is not significant; downstream
// stages re-sort.
//
// The store does not guarantee link integrity: a record whose legs are
// missing from the snapshot is dropped, and any surviving transaction falls
// back to a plain item. This never fails.
func Batch(trns []models.Transaction, links []models.LinkRecord) []models.ListItem {
	byID := make(map[string]models.Transaction, len(trns))
	for _, trn := range trns {
		byID[trn.ID] = trn
	}

	consumed := make(map[string]bool)
	items := make([]models.ListItem, 0, len(trns))
	for _, link := range links {
		from, okFrom := byID[link.FromTrnID]
		to, okTo := byID[link.ToTrnID]
		if !okFrom || !okTo {
			continue
		}
		var fee *models.Transaction
		if link.FeeTrnID != "" {
			if feeTrn, ok := byID[link.FeeTrnID]; ok {
				fee = &feeTrn
				consumed[feeTrn.ID] = true
			}
		}
		consumed[from.ID] = true
		consumed[to.ID] = true
		items = append(items, models.TransferItem{
			From:    from,
			To:      to,
			Fee:     fee,
			BatchID: link.BatchID,
			// The legs are written independently and their timestamps are
			// near-identical but not guaranteed equal; the sending leg's
			// time is the transfer's effective time.
			Time: from.Time,
		})
	}

	for _, trn := range trns {
		if !consumed[trn.ID] {
			items = append(items, models.TrnItem{Trn: trn})
		}
	}
	return items
}
