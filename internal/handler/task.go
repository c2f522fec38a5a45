package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dukerupert/flatrota/internal/auth"
	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/schedule"
	"github.com/dukerupert/flatrota/internal/websocket"
)

type TaskHandler struct {
	Deps
}

func NewTaskHandler(d Deps) *TaskHandler {
	return &TaskHandler{Deps: d}
}

type taskRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	PeriodValue int              `json:"period_value"`
	PeriodUnit  model.PeriodUnit `json:"period_unit"`
	StartDate   Date             `json:"start_date"`
	EndDate     Date             `json:"end_date"`
	MemberIDs   []int64          `json:"member_ids"`
}

type taskResponse struct {
	Task    *model.Task    `json:"task"`
	Periods []model.Period `json:"periods"`
}

// Create validates the task, generates its full schedule and stores both.
// member_ids is the rotation order and must include the caller.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	flatID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid flat id")
		return
	}
	if !h.requireFlatMember(w, r, flatID) {
		return
	}

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	members, unknown, err := h.memberSnapshots(r, flatID, req.MemberIDs)
	if err != nil {
		h.logger().Error("resolve task members", "flat_id", flatID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	if len(unknown) > 0 {
		writeScheduleError(w, fmt.Errorf("%w: users %v are not flat members", schedule.ErrInvalidConfiguration, unknown))
		return
	}

	creator, _ := auth.Member(r.Context())
	task := model.Task{
		FlatID:      flatID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   creator,
		Active:      true,
		PeriodValue: req.PeriodValue,
		PeriodUnit:  req.PeriodUnit,
		StartDate:   req.StartDate.Time,
		EndDate:     req.EndDate.Time,
		Members:     members,
	}

	periods, err := schedule.Initial(task)
	if err != nil {
		if !writeScheduleError(w, err) {
			h.logger().Error("generate periods", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create task")
		}
		return
	}

	saved, savedPeriods, err := h.Stores.Tasks.Create(r.Context(), task, periods)
	if err != nil {
		h.logger().Error("create task", "flat_id", flatID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	h.Periods.SetAll(saved.ID, savedPeriods)

	h.broadcast(websocket.NewMessage(flatID, "task", "created", saved.ID, nil))
	writeJSON(w, http.StatusCreated, taskResponse{Task: saved, Periods: savedPeriods})
}

func (h *TaskHandler) ListByFlat(w http.ResponseWriter, r *http.Request) {
	flatID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid flat id")
		return
	}
	if !h.requireFlatMember(w, r, flatID) {
		return
	}
	tasks, err := h.Stores.Tasks.ListByFlat(r.Context(), flatID)
	if err != nil {
		h.logger().Error("list tasks", "flat_id", flatID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskForCaller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Close deactivates the task. Existing periods stay but can no longer be
// completed or regenerated.
func (h *TaskHandler) Close(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskForCaller(w, r)
	if !ok {
		return
	}
	if !task.Active {
		writeJSON(w, http.StatusOK, task)
		return
	}
	updated, err := h.Stores.Tasks.SetActive(r.Context(), task.ID, false)
	if err != nil {
		h.logger().Error("close task", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to close task")
		return
	}
	h.broadcast(websocket.NewMessage(task.FlatID, "task", "closed", task.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

// UpdateMembers replaces the rotation and resets the task's future periods.
// The response carries the new member list only; cached periods are
// cleared so the next read refetches them.
func (h *TaskHandler) UpdateMembers(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskForCaller(w, r)
	if !ok {
		return
	}

	var req struct {
		MemberIDs []int64 `json:"member_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	members, unknown, err := h.memberSnapshots(r, task.FlatID, req.MemberIDs)
	if err != nil {
		h.logger().Error("resolve task members", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update members")
		return
	}
	if len(unknown) > 0 {
		writeScheduleError(w, fmt.Errorf("%w: users %v are not flat members", schedule.ErrInvalidConfiguration, unknown))
		return
	}

	candidate := task.Clone()
	candidate.Members = members
	if err := schedule.ValidateTask(candidate); err != nil {
		writeScheduleError(w, err)
		return
	}

	var updated *model.Task
	if task.Active {
		updated, _, err = h.Stores.Tasks.Reschedule(r.Context(), task.ID, req.MemberIDs, h.resetPlan())
	} else {
		updated, err = h.Stores.Tasks.SetMembers(r.Context(), task.ID, req.MemberIDs)
	}
	if err != nil {
		if !writeScheduleError(w, err) {
			h.logger().Error("update task members", "task_id", task.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update members")
		}
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	h.Periods.Clear(task.ID)

	h.broadcast(websocket.NewMessage(task.FlatID, "task", "members_updated", task.ID, nil))
	writeJSON(w, http.StatusOK, updated.Members)
}
