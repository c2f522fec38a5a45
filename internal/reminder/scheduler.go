// Package reminder announces periods as they open and when they become
// overdue.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/periodstore"
	"github.com/dukerupert/flatrota/internal/schedule"
	"github.com/dukerupert/flatrota/internal/websocket"
)

type FlatLister interface {
	ListIDs(ctx context.Context) ([]int64, error)
}

type TaskLister interface {
	ListByFlat(ctx context.Context, flatID int64) ([]model.Task, error)
}

type PeriodLister interface {
	ListByTask(ctx context.Context, taskID int64) ([]model.Period, error)
}

// Scheduler periodically checks every flat's current periods.
type Scheduler struct {
	mu       sync.RWMutex
	flats    FlatLister
	tasks    TaskLister
	source   PeriodLister
	periods  *periodstore.Store
	hub      websocket.Broadcaster
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}

	// announced holds the events already broadcast, keyed by kind and
	// period id. Entries for periods no longer pending are dropped.
	announced map[string]struct{}
}

func NewScheduler(flats FlatLister, tasks TaskLister, source PeriodLister, periods *periodstore.Store, hub websocket.Broadcaster, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		flats:     flats,
		tasks:     tasks,
		source:    source,
		periods:   periods,
		hub:       hub,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
		announced: make(map[string]struct{}),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for the current tick to finish.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	flatIDs, err := s.flats.ListIDs(ctx)
	if err != nil {
		s.logger.Error("list flats", "error", err)
		return
	}

	today := schedule.Day(s.now())
	seen := make(map[string]struct{})
	for _, flatID := range flatIDs {
		if ctx.Err() != nil {
			return
		}
		s.checkFlat(ctx, flatID, today, seen)
	}

	s.mu.Lock()
	for key := range s.announced {
		if _, ok := seen[key]; !ok {
			delete(s.announced, key)
		}
	}
	s.mu.Unlock()
}

// checkFlat announces the flat's current periods: overdue once the end day
// is reached, opened otherwise. A period that opened while the scheduler was
// not running is announced on the next tick.
func (s *Scheduler) checkFlat(ctx context.Context, flatID int64, today time.Time, seen map[string]struct{}) {
	tasks, err := s.tasks.ListByFlat(ctx, flatID)
	if err != nil {
		s.logger.Error("list tasks", "flat_id", flatID, "error", err)
		return
	}

	all := make([]schedule.TaskPeriods, 0, len(tasks))
	for _, task := range tasks {
		if !task.Active {
			continue
		}
		periods, err := s.periods.Load(ctx, task.ID, s.source.ListByTask)
		if err != nil {
			s.logger.Error("load periods", "task_id", task.ID, "error", err)
			continue
		}
		all = append(all, schedule.TaskPeriods{Task: task, Periods: periods})
	}

	for _, p := range schedule.Actionable(all, today) {
		if p.EndDate.After(today) {
			s.announce(flatID, p, "opened", seen)
		} else {
			s.announce(flatID, p, "overdue", seen)
		}
	}
}

func (s *Scheduler) announce(flatID int64, p model.CurrentPeriod, action string, seen map[string]struct{}) {
	key := fmt.Sprintf("%s-%d", action, p.ID)
	seen[key] = struct{}{}

	s.mu.Lock()
	_, done := s.announced[key]
	s.announced[key] = struct{}{}
	s.mu.Unlock()
	if done {
		return
	}

	s.logger.Debug("period "+action, "flat_id", flatID, "task_id", p.TaskID, "period_id", p.ID)
	s.hub.Broadcast(websocket.NewMessage(flatID, "period", action, p.ID, map[string]any{
		"task_id":     p.TaskID,
		"task_name":   p.TaskName,
		"assigned_to": p.AssignedTo.ID,
		"start_date":  p.StartDate.Format(time.DateOnly),
		"end_date":    p.EndDate.Format(time.DateOnly),
	}))
}
