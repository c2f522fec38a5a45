package schedule

import (
	"time"

	"github.com/dukerupert/flatrota/internal/model"
)

var (
	alice = model.Member{ID: 1, Email: "alice@example.com", DisplayName: "Alice"}
	bob   = model.Member{ID: 2, Email: "bob@example.com", DisplayName: "Bob"}
	carol = model.Member{ID: 3, Email: "carol@example.com", DisplayName: "Carol"}
	dave  = model.Member{ID: 4, Email: "dave@example.com", DisplayName: "Dave"}
)

func d(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// weeklyTask is the three-member weekly task used across the tests:
// 2024-01-01 to 2024-01-22, rotation Alice, Bob, Carol.
func weeklyTask() model.Task {
	return model.Task{
		ID:          10,
		FlatID:      1,
		Name:        "Bathroom",
		CreatedBy:   alice,
		Active:      true,
		PeriodValue: 1,
		PeriodUnit:  model.UnitWeek,
		StartDate:   d(2024, 1, 1),
		EndDate:     d(2024, 1, 22),
		Members:     []model.Member{alice, bob, carol},
	}
}

// withIDs numbers periods from 1 the way the store would.
func withIDs(periods []model.Period) []model.Period {
	for i := range periods {
		periods[i].ID = int64(i + 1)
	}
	return periods
}
