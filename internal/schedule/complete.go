package schedule

import (
	"time"

	"github.com/dukerupert/flatrota/internal/model"
)

// Complete closes period on behalf of by at now. The checks run in order and
// the first failure wins: the task must be active, the period must be
// pending, and now must not fall before the period's start day. Completing
// after the end date is allowed; the result reports Delayed.
//
// by need not be the assigned member. The input period is not modified.
func Complete(task model.Task, period model.Period, by model.Member, now time.Time) (model.Period, error) {
	if !task.Active {
		return model.Period{}, ErrTaskInactive
	}
	if period.Completed() {
		return model.Period{}, ErrAlreadyCompleted
	}
	if Day(now).Before(Day(period.StartDate)) {
		return model.Period{}, ErrNotYetStarted
	}
	period.Completion = &model.Completion{By: by, At: now.UTC()}
	return period, nil
}

// CompletedForOther reports whether by is standing in for the assigned member.
func CompletedForOther(period model.Period, by model.Member) bool {
	return period.AssignedTo.ID != by.ID
}
