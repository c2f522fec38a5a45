package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/dukerupert/flatrota/internal/auth"
	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/periodstore"
	"github.com/dukerupert/flatrota/internal/schedule"
	"github.com/dukerupert/flatrota/internal/websocket"
)

type PeriodHandler struct {
	Deps
}

func NewPeriodHandler(d Deps) *PeriodHandler {
	return &PeriodHandler{Deps: d}
}

// load returns the task's periods, hydrating the period cache from the
// database when needed.
func (h *PeriodHandler) load(ctx context.Context, taskID int64) ([]model.Period, error) {
	return h.Periods.Load(ctx, taskID, h.Stores.Periods.ListByTask)
}

func (h *PeriodHandler) List(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskForCaller(w, r)
	if !ok {
		return
	}
	periods, err := h.load(r.Context(), task.ID)
	if err != nil {
		h.logger().Error("list periods", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list periods")
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

// Reset discards the task's future pending periods and regenerates them
// with the current rotation.
func (h *PeriodHandler) Reset(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskForCaller(w, r)
	if !ok {
		return
	}
	_, periods, err := h.Stores.Tasks.Reschedule(r.Context(), task.ID, nil, h.resetPlan())
	if err != nil {
		if !writeScheduleError(w, err) {
			h.logger().Error("reset periods", "task_id", task.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to reset periods")
		}
		return
	}
	h.Periods.SetAll(task.ID, periods)

	h.broadcast(websocket.NewMessage(task.FlatID, "periods", "reset", task.ID, nil))
	writeJSON(w, http.StatusOK, periods)
}

type completionResponse struct {
	Period          model.Period `json:"period"`
	Delayed         bool         `json:"delayed"`
	AssignedToOther bool         `json:"assigned_to_other"`
}

// Complete closes one period for the caller. Any flat member may complete
// any period; assigned_to_other tells the client to warn about it.
func (h *PeriodHandler) Complete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskForCaller(w, r)
	if !ok {
		return
	}
	periodID, err := parseIDParam(r, "periodId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period id")
		return
	}

	ctx := r.Context()
	periods, err := h.load(ctx, task.ID)
	if err != nil {
		h.logger().Error("load periods", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete period")
		return
	}
	var current *model.Period
	for i := range periods {
		if periods[i].ID == periodID {
			current = &periods[i]
			break
		}
	}
	if current == nil {
		writeError(w, http.StatusNotFound, "period not found")
		return
	}

	by, _ := auth.Member(ctx)
	completed, err := schedule.Complete(*task, *current, by, h.now())
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	saved, err := h.Stores.Periods.SaveCompletion(ctx, completed)
	if err != nil {
		if errors.Is(err, schedule.ErrAlreadyCompleted) {
			// Someone else won the race; the cache is stale.
			h.Periods.Clear(task.ID)
		}
		if !writeScheduleError(w, err) {
			h.logger().Error("save completion", "period_id", periodID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to complete period")
		}
		return
	}
	if saved == nil {
		// Removed by a concurrent reset.
		h.Periods.Clear(task.ID)
		writeError(w, http.StatusNotFound, "period not found")
		return
	}

	_, err = h.Periods.Update(task.ID, saved.ID, func(model.Period) (model.Period, error) {
		return *saved, nil
	})
	if err != nil && !errors.Is(err, periodstore.ErrNotLoaded) {
		h.logger().Warn("update period cache", "task_id", task.ID, "period_id", saved.ID, "error", err)
		h.Periods.Clear(task.ID)
	}

	h.broadcast(websocket.NewMessage(task.FlatID, "period", "completed", saved.ID, map[string]any{
		"task_id":      task.ID,
		"completed_by": by.ID,
		"delayed":      saved.Delayed(),
	}))
	writeJSON(w, http.StatusOK, completionResponse{
		Period:          *saved,
		Delayed:         saved.Delayed(),
		AssignedToOther: schedule.CompletedForOther(*saved, by),
	})
}

// Current lists the started, pending periods of every active task the caller
// rotates in.
func (h *PeriodHandler) Current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	tasks, err := h.Stores.Tasks.ListForMember(ctx, userID)
	if err != nil {
		h.logger().Error("list member tasks", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list current periods")
		return
	}

	all := make([]schedule.TaskPeriods, 0, len(tasks))
	for _, task := range tasks {
		if !task.Active {
			continue
		}
		periods, err := h.load(ctx, task.ID)
		if err != nil {
			h.logger().Error("load periods", "task_id", task.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list current periods")
			return
		}
		all = append(all, schedule.TaskPeriods{Task: task, Periods: periods})
	}

	writeJSON(w, http.StatusOK, schedule.CurrentFor(userID, all, h.now()))
}
