package model

import (
	"encoding/json"
	"time"
)

// Completion records who closed a period and when. A nil *Completion on a
// Period means the period is pending.
type Completion struct {
	By Member
	At time.Time
}

// Period is one rotation slot of a task, covering [StartDate, EndDate).
type Period struct {
	ID         int64
	TaskID     int64
	StartDate  time.Time
	EndDate    time.Time
	AssignedTo Member
	Completion *Completion
}

func (p Period) Completed() bool {
	return p.Completion != nil
}

// Delayed reports whether the period was completed after its end date.
func (p Period) Delayed() bool {
	return p.Completion != nil && p.EndDate.Before(p.Completion.At)
}

// periodJSON is the wire shape shared with clients and snapshot files.
type periodJSON struct {
	ID          int64      `json:"id"`
	TaskID      int64      `json:"task_id"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	AssignedTo  Member     `json:"assigned_to"`
	CompletedBy *Member    `json:"completed_by"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (p Period) MarshalJSON() ([]byte, error) {
	out := periodJSON{
		ID:         p.ID,
		TaskID:     p.TaskID,
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
		AssignedTo: p.AssignedTo,
	}
	if p.Completion != nil {
		by := p.Completion.By
		at := p.Completion.At
		out.CompletedBy = &by
		out.CompletedAt = &at
	}
	return json.Marshal(out)
}

func (p *Period) UnmarshalJSON(data []byte) error {
	var in periodJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Period{
		ID:         in.ID,
		TaskID:     in.TaskID,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		AssignedTo: in.AssignedTo,
	}
	// A completion needs both halves; a lone completed_at or completed_by
	// is treated as pending.
	if in.CompletedBy != nil && in.CompletedAt != nil {
		p.Completion = &Completion{By: *in.CompletedBy, At: *in.CompletedAt}
	}
	return nil
}

// CurrentPeriod is the "what's due" projection of a pending period joined
// with its task.
type CurrentPeriod struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"task_id"`
	TaskName   string    `json:"task_name"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	AssignedTo Member    `json:"assigned_to"`
}
