package processors

import (
	"slices"
	"sort"
	"time"

	"github.com/username/moneyflow/backend/src/models"
)

// ItemTime returns an item's own time classification: a plain item's
// transaction time, a transfer's own time field. Date dividers carry no
// classification.
func ItemTime(item models.ListItem) models.TrnTime {
	switch it := item.(type) {
	case models.TrnItem:
		return it.Trn.Time
	case models.TransferItem:
		return it.Time
	case models.DateDivider:
		return models.TrnTime{}
	}
	return models.TrnTime{}
}

// ActualItems keeps only the items that have already happened.
func ActualItems(items []models.ListItem) []models.ListItem {
	var actual []models.ListItem
	for _, item := range items {
		if ItemTime(item).Actual() {
			actual = append(actual, item)
		}
	}
	return actual
}

// DateOf truncates a timestamp to its calendar date, keeping the location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// GroupByDay partitions actual items by the calendar date of their
// effective time. Key order carries no meaning here; DaysDescending gives
// the presentation order.
func GroupByDay(actualItems []models.ListItem) map[time.Time][]models.ListItem {
	byDay := make(map[time.Time][]models.ListItem)
	for _, item := range actualItems {
		day := DateOf(ItemTime(item).Time)
		byDay[day] = append(byDay[day], item)
	}
	return byDay
}

// DaysDescending returns the group keys newest-first.
func DaysDescending(byDay map[time.Time][]models.ListItem) []time.Time {
	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}

// ExtractTrns flattens a list item back into its raw transactions: a
// transfer contributes both legs plus its fee, if any.
func ExtractTrns(item models.ListItem) []models.Transaction {
	switch it := item.(type) {
	case models.TrnItem:
		return []models.Transaction{it.Trn}
	case models.TransferItem:
		trns := []models.Transaction{it.From, it.To}
		if it.Fee != nil {
			trns = append(trns, *it.Fee)
		}
		return trns
	default:
		return nil
	}
}

// SortItemsAscending returns a copy ordered soonest-first by effective
// time. Due sections show the nearest due date on top. The sort is stable
// so equal timestamps keep their input order.
func SortItemsAscending(items []models.ListItem) []models.ListItem {
	sorted := slices.Clone(items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return ItemTime(sorted[i]).Time.Before(ItemTime(sorted[j]).Time)
	})
	return sorted
}

// SortItemsDescending returns a copy ordered newest-first by effective
// time, the order history days are rendered in.
func SortItemsDescending(items []models.ListItem) []models.ListItem {
	sorted := slices.Clone(items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return ItemTime(sorted[j]).Time.Before(ItemTime(sorted[i]).Time)
	})
	return sorted
}
