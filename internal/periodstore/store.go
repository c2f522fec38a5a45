// Package periodstore holds loaded periods per task in memory. Mutations are
// expressed as commands and applied atomically per task; different tasks
// never contend with each other.
package periodstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dukerupert/flatrota/internal/model"
)

var (
	ErrNotLoaded      = errors.New("task periods not loaded")
	ErrPeriodNotFound = errors.New("period not found")
)

// Command is a mutation of one task's periods.
type Command interface {
	Task() int64
	apply(e *entry) error
}

// SetAll replaces a task's periods wholesale, e.g. after generation or reset.
type SetAll struct {
	TaskID  int64
	Periods []model.Period
}

func (c SetAll) Task() int64 { return c.TaskID }

func (c SetAll) apply(e *entry) error {
	e.periods = clonePeriods(c.Periods)
	e.loaded = true
	return nil
}

// Update patches one period. If Mutate fails the store is left untouched.
type Update struct {
	TaskID   int64
	PeriodID int64
	Mutate   func(model.Period) (model.Period, error)
}

func (c Update) Task() int64 { return c.TaskID }

func (c Update) apply(e *entry) error {
	if !e.loaded {
		return ErrNotLoaded
	}
	for i := range e.periods {
		if e.periods[i].ID != c.PeriodID {
			continue
		}
		updated, err := c.Mutate(clonePeriod(e.periods[i]))
		if err != nil {
			return err
		}
		e.periods[i] = clonePeriod(updated)
		return nil
	}
	return fmt.Errorf("%w: task %d period %d", ErrPeriodNotFound, c.TaskID, c.PeriodID)
}

// Clear forgets a task's periods; the next Get reports them as not loaded.
type Clear struct {
	TaskID int64
}

func (c Clear) Task() int64 { return c.TaskID }

func (c Clear) apply(e *entry) error {
	e.periods = nil
	e.loaded = false
	return nil
}

type entry struct {
	mu      sync.Mutex
	loaded  bool
	periods []model.Period
}

type Store struct {
	mu    sync.Mutex
	tasks map[int64]*entry
}

func New() *Store {
	return &Store{tasks: make(map[int64]*entry)}
}

func (s *Store) entry(taskID int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[taskID]
	if !ok {
		e = &entry{}
		s.tasks[taskID] = e
	}
	return e
}

// Dispatch applies cmd while holding the task's lock.
func (s *Store) Dispatch(cmd Command) error {
	e := s.entry(cmd.Task())
	e.mu.Lock()
	defer e.mu.Unlock()
	return cmd.apply(e)
}

func (s *Store) SetAll(taskID int64, periods []model.Period) {
	s.Dispatch(SetAll{TaskID: taskID, Periods: periods})
}

// Update applies fn to the period and returns the stored result.
func (s *Store) Update(taskID, periodID int64, fn func(model.Period) (model.Period, error)) (model.Period, error) {
	var result model.Period
	err := s.Dispatch(Update{
		TaskID:   taskID,
		PeriodID: periodID,
		Mutate: func(p model.Period) (model.Period, error) {
			updated, err := fn(p)
			if err != nil {
				return model.Period{}, err
			}
			result = updated
			return updated, nil
		},
	})
	if err != nil {
		return model.Period{}, err
	}
	return clonePeriod(result), nil
}

func (s *Store) Clear(taskID int64) {
	s.Dispatch(Clear{TaskID: taskID})
}

// Get returns a copy of the task's periods. ok is false when the task has
// never been loaded or was cleared; a loaded task with no periods returns an
// empty slice and true.
func (s *Store) Get(taskID int64) (periods []model.Period, ok bool) {
	e := s.entry(taskID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return nil, false
	}
	return clonePeriods(e.periods), true
}

// Load returns the task's periods, calling fetch to hydrate the store when
// they are not loaded. A failed fetch leaves the store unchanged.
func (s *Store) Load(ctx context.Context, taskID int64, fetch func(context.Context, int64) ([]model.Period, error)) ([]model.Period, error) {
	if periods, ok := s.Get(taskID); ok {
		return periods, nil
	}
	periods, err := fetch(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.SetAll(taskID, periods)
	return clonePeriods(periods), nil
}

func clonePeriod(p model.Period) model.Period {
	if p.Completion != nil {
		c := *p.Completion
		p.Completion = &c
	}
	return p
}

func clonePeriods(periods []model.Period) []model.Period {
	out := make([]model.Period, len(periods))
	for i, p := range periods {
		out[i] = clonePeriod(p)
	}
	return out
}
