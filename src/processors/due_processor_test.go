package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/username/moneyflow/backend/src/models"
)

func TestDuePredicatesArePartition(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		time     models.TrnTime
		upcoming bool
		overdue  bool
	}{
		{
			name:     "due tomorrow is upcoming",
			time:     models.TrnTime{Kind: models.TimeDue, Time: now.AddDate(0, 0, 1)},
			upcoming: true,
		},
		{
			name:     "due exactly now is upcoming, not overdue",
			time:     models.TrnTime{Kind: models.TimeDue, Time: now},
			upcoming: true,
		},
		{
			name:    "due one second ago is overdue",
			time:    models.TrnTime{Kind: models.TimeDue, Time: now.Add(-time.Second)},
			overdue: true,
		},
		{
			name:    "due last month is overdue",
			time:    models.TrnTime{Kind: models.TimeDue, Time: now.AddDate(0, -1, 0)},
			overdue: true,
		},
		{
			name: "actual time matches neither",
			time: models.TrnTime{Kind: models.TimeActual, Time: now.Add(-time.Hour)},
		},
		{
			name: "unclassified time matches neither",
			time: models.TrnTime{Time: now},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.upcoming, Upcoming(tc.time, now))
			assert.Equal(t, tc.overdue, Overdue(tc.time, now))
			if tc.time.Due() {
				assert.True(t, Upcoming(tc.time, now) != Overdue(tc.time, now),
					"every due time must be exactly one of upcoming/overdue")
			}
		})
	}
}
