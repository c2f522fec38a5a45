package schedule

import (
	"cmp"
	"slices"
	"time"

	"github.com/dukerupert/flatrota/internal/model"
)

// TaskPeriods pairs a task with its loaded periods.
type TaskPeriods struct {
	Task    model.Task
	Periods []model.Period
}

// CurrentFor lists the actionable periods for userID: every pending period
// that has started, across the active tasks whose rotation includes the user.
// Any member may complete any period, so assignment is not filtered on.
// Results are ordered by start date, then task id, then period id.
func CurrentFor(userID int64, all []TaskPeriods, now time.Time) []model.CurrentPeriod {
	mine := make([]TaskPeriods, 0, len(all))
	for _, tp := range all {
		if tp.Task.HasMember(userID) {
			mine = append(mine, tp)
		}
	}
	return Actionable(mine, now)
}

// Actionable lists every pending period that has started across the active
// tasks in all, ordered like CurrentFor.
func Actionable(all []TaskPeriods, now time.Time) []model.CurrentPeriod {
	today := Day(now)
	out := []model.CurrentPeriod{}
	for _, tp := range all {
		if !tp.Task.Active {
			continue
		}
		for _, p := range tp.Periods {
			if p.Completed() || p.StartDate.After(today) {
				continue
			}
			out = append(out, model.CurrentPeriod{
				ID:         p.ID,
				TaskID:     tp.Task.ID,
				TaskName:   tp.Task.Name,
				StartDate:  p.StartDate,
				EndDate:    p.EndDate,
				AssignedTo: p.AssignedTo,
			})
		}
	}
	slices.SortFunc(out, func(a, b model.CurrentPeriod) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		if c := cmp.Compare(a.TaskID, b.TaskID); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
