package handler

import (
	"net/http"

	"github.com/dukerupert/flatrota/internal/auth"
	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/schedule"
)

// requireFlatMember writes 403 and returns false unless the caller belongs to
// flatID.
func (d Deps) requireFlatMember(w http.ResponseWriter, r *http.Request, flatID int64) bool {
	ok, err := d.Stores.Flats.IsMember(r.Context(), flatID, auth.UserID(r.Context()))
	if err != nil {
		d.logger().Error("check flat membership", "flat_id", flatID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return false
	}
	if !ok {
		writeError(w, http.StatusForbidden, "not a member of this flat")
		return false
	}
	return true
}

// taskForCaller loads the task named by the {id} path value and checks the
// caller belongs to its flat. On failure the response has been written.
func (d Deps) taskForCaller(w http.ResponseWriter, r *http.Request) (*model.Task, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return nil, false
	}
	task, err := d.Stores.Tasks.GetByID(r.Context(), id)
	if err != nil {
		d.logger().Error("get task", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return nil, false
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	if !d.requireFlatMember(w, r, task.FlatID) {
		return nil, false
	}
	return task, true
}

// resetPlan applies the regeneration policy as of now.
func (d Deps) resetPlan() func(model.Task, []model.Period) (schedule.ResetResult, error) {
	today := d.now()
	return func(task model.Task, existing []model.Period) (schedule.ResetResult, error) {
		return schedule.Reset(task, existing, today)
	}
}
