package processors

import (
	"time"

	"github.com/username/moneyflow/backend/src/models"
)

// Upcoming reports whether a due item is scheduled at or after now.
func Upcoming(t models.TrnTime, now time.Time) bool {
	return t.Due() && !t.Time.Before(now)
}

// Overdue reports whether a due item's scheduled time has already passed.
// Together with Upcoming it is exhaustive over due items: at any given now,
// exactly one of the two holds.
func Overdue(t models.TrnTime, now time.Time) bool {
	return t.Due() && t.Time.Before(now)
}
