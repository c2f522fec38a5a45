package schedule

import (
	"fmt"
	"slices"
	"time"

	"github.com/dukerupert/flatrota/internal/model"
)

// Generate produces the periods of task covering [from, to), assigning the
// i-th period to MemberForIndex(task.Members, startIndex+i). The last period
// is clipped to to. Calling it twice with the same arguments yields the same
// periods; IDs are left zero for the caller to assign.
func Generate(task model.Task, from, to time.Time, startIndex int) ([]model.Period, error) {
	if len(task.Members) == 0 {
		return nil, fmt.Errorf("%w: empty member list", ErrInvalidConfiguration)
	}
	if task.PeriodValue < 1 {
		return nil, fmt.Errorf("%w: period value %d", ErrInvalidConfiguration, task.PeriodValue)
	}
	if !task.PeriodUnit.Valid() {
		return nil, fmt.Errorf("%w: period unit %q", ErrInvalidConfiguration, task.PeriodUnit)
	}
	if periodTooLong(task.PeriodUnit, task.PeriodValue) {
		return nil, fmt.Errorf("%w: period longer than %d days", ErrInvalidConfiguration, MaxPeriodDays)
	}
	if startIndex < 0 {
		return nil, fmt.Errorf("%w: negative start index %d", ErrInvalidConfiguration, startIndex)
	}

	from, to = Day(from), Day(to)
	periods := []model.Period{}
	start := from
	for i := 0; start.Before(to); i++ {
		if i == MaxPeriods {
			return nil, fmt.Errorf("%w: more than %d periods", ErrInvalidConfiguration, MaxPeriods)
		}
		end := advance(from, task.PeriodUnit, task.PeriodValue, i+1)
		if !end.After(start) {
			return nil, fmt.Errorf("%w: period %d ends before it starts", ErrInvalidConfiguration, i)
		}
		if end.After(to) {
			end = to
		}
		member, err := MemberForIndex(task.Members, startIndex+i)
		if err != nil {
			return nil, err
		}
		periods = append(periods, model.Period{
			TaskID:     task.ID,
			StartDate:  start,
			EndDate:    end,
			AssignedTo: member,
		})
		start = end
	}
	return periods, nil
}

// Initial validates task and generates its full schedule from index 0.
func Initial(task model.Task) ([]model.Period, error) {
	if err := ValidateTask(task); err != nil {
		return nil, err
	}
	return Generate(task, task.StartDate, task.EndDate, 0)
}

// ResetResult splits a reset schedule into the periods carried over
// untouched and the freshly generated ones.
type ResetResult struct {
	Kept      []model.Period
	Generated []model.Period
}

// Periods returns the full schedule after the reset, in start order.
func (r ResetResult) Periods() []model.Period {
	out := make([]model.Period, 0, len(r.Kept)+len(r.Generated))
	out = append(out, r.Kept...)
	return append(out, r.Generated...)
}

// Reset regenerates the future of task's schedule using its current member
// rotation. Completed periods and periods that ended on or before today are
// kept as they are; every other period is discarded. With k periods kept,
// regeneration continues the rotation at index k and starts at today, or at
// the end of the latest kept period if that is later.
func Reset(task model.Task, existing []model.Period, today time.Time) (ResetResult, error) {
	if !task.Active {
		return ResetResult{}, ErrTaskInactive
	}
	today = Day(today)

	kept := []model.Period{}
	from := later(today, Day(task.StartDate))
	for _, p := range existing {
		if p.Completed() || !p.EndDate.After(today) {
			kept = append(kept, p)
			from = later(from, p.EndDate)
		}
	}
	slices.SortStableFunc(kept, func(a, b model.Period) int {
		return a.StartDate.Compare(b.StartDate)
	})

	generated, err := Generate(task, from, task.EndDate, len(kept))
	if err != nil {
		return ResetResult{}, err
	}
	return ResetResult{Kept: kept, Generated: generated}, nil
}
