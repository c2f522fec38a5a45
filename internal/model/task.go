package model

import "time"

type PeriodUnit string

const (
	UnitDay   PeriodUnit = "day"
	UnitWeek  PeriodUnit = "week"
	UnitMonth PeriodUnit = "month"
)

func (u PeriodUnit) Valid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth:
		return true
	}
	return false
}

// Task is a recurring chore. Members is the rotation order.
type Task struct {
	ID          int64      `json:"id"`
	FlatID      int64      `json:"flat_id"`
	Name        string     `json:"name" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	CreatedBy   Member     `json:"created_by"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	PeriodValue int        `json:"period_value" validate:"min=1,max=3660"`
	PeriodUnit  PeriodUnit `json:"period_unit" validate:"period_unit"`
	StartDate   time.Time  `json:"start_date" validate:"required"`
	EndDate     time.Time  `json:"end_date" validate:"required,gtfield=StartDate"`
	Members     []Member   `json:"members" validate:"min=1,dive"`
}

// HasMember reports whether userID is part of the task's rotation.
func (t Task) HasMember(userID int64) bool {
	for _, m := range t.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// Clone returns a copy of t that shares no slices with it.
func (t Task) Clone() Task {
	c := t
	c.Members = append([]Member(nil), t.Members...)
	return c
}
