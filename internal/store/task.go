package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/schedule"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = `id, flat_id, name, description,
	created_by, creator_email, creator_name, creator_avatar,
	active, period_value, period_unit, start_date, end_date, created_at`

func scanTask(s scanner) (*model.Task, error) {
	var t model.Task
	var unit string
	err := s.Scan(
		&t.ID, &t.FlatID, &t.Name, &t.Description,
		&t.CreatedBy.ID, &t.CreatedBy.Email, &t.CreatedBy.DisplayName, &t.CreatedBy.Avatar,
		&t.Active, &t.PeriodValue, &unit, &t.StartDate, &t.EndDate, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.PeriodUnit = model.PeriodUnit(unit)
	t.StartDate = t.StartDate.UTC()
	t.EndDate = t.EndDate.UTC()
	return &t, nil
}

// loadMembers fills in the rotation in position order from the live user rows.
func loadMembers(ctx context.Context, q querier, t *model.Task) error {
	rows, err := q.QueryContext(ctx,
		`SELECT u.id, u.email, u.display_name, u.avatar
		 FROM task_members tm JOIN users u ON u.id = tm.user_id
		 WHERE tm.task_id = ? ORDER BY tm.position ASC`,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("list task members: %w", err)
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Email, &m.DisplayName, &m.Avatar); err != nil {
			return fmt.Errorf("scan task member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	t.Members = members
	return nil
}

func getTask(ctx context.Context, q querier, id int64) (*model.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if err := loadMembers(ctx, q, t); err != nil {
		return nil, err
	}
	return t, nil
}

func setMembers(ctx context.Context, q querier, taskID int64, userIDs []int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM task_members WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("clear task members: %w", err)
	}
	for i, uid := range userIDs {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO task_members (task_id, user_id, position) VALUES (?, ?, ?)`,
			taskID, uid, i,
		); err != nil {
			return fmt.Errorf("insert task member: %w", err)
		}
	}
	return nil
}

func (s *TaskStore) listTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// Members are loaded after the task rows are released; the in-memory
	// database runs on a single connection.
	for i := range tasks {
		if err := loadMembers(ctx, s.db, &tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// Create stores task with its rotation and initial periods in one
// transaction. The returned periods carry their ids.
func (s *TaskStore) Create(ctx context.Context, task model.Task, periods []model.Period) (*model.Task, []model.Period, error) {
	var (
		id    int64
		saved []model.Period
	)
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (flat_id, name, description,
				created_by, creator_email, creator_name, creator_avatar,
				active, period_value, period_unit, start_date, end_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.FlatID, task.Name, task.Description,
			task.CreatedBy.ID, task.CreatedBy.Email, task.CreatedBy.DisplayName, task.CreatedBy.Avatar,
			task.Active, task.PeriodValue, string(task.PeriodUnit),
			schedule.Day(task.StartDate), schedule.Day(task.EndDate),
		)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		userIDs := make([]int64, len(task.Members))
		for i, m := range task.Members {
			userIDs[i] = m.ID
		}
		if err := setMembers(ctx, tx, id, userIDs); err != nil {
			return err
		}

		saved, err = insertPeriods(ctx, tx, id, periods)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return t, saved, nil
}

func (s *TaskStore) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	return getTask(ctx, s.db, id)
}

func (s *TaskStore) ListByFlat(ctx context.Context, flatID int64) ([]model.Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE flat_id = ? ORDER BY created_at ASC, id ASC`,
		flatID,
	)
}

// ListForMember returns the tasks whose rotation includes userID.
func (s *TaskStore) ListForMember(ctx context.Context, userID int64) ([]model.Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskCols+` FROM tasks
		 WHERE id IN (SELECT task_id FROM task_members WHERE user_id = ?)
		 ORDER BY id ASC`,
		userID,
	)
}

func (s *TaskStore) SetActive(ctx context.Context, id int64, active bool) (*model.Task, error) {
	if _, err := s.db.ExecContext(ctx, `UPDATE tasks SET active = ? WHERE id = ?`, active, id); err != nil {
		return nil, fmt.Errorf("update task active: %w", err)
	}
	return s.GetByID(ctx, id)
}

// SetMembers replaces the rotation without touching periods. It is used for
// inactive tasks, which are never regenerated.
func (s *TaskStore) SetMembers(ctx context.Context, id int64, userIDs []int64) (*model.Task, error) {
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		return setMembers(ctx, tx, id, userIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Reschedule runs plan against the task and its current periods inside one
// transaction and persists the result. When userIDs is non-nil the rotation
// is replaced first, so plan sees the new member order. A missing task
// returns nil without error.
func (s *TaskStore) Reschedule(ctx context.Context, id int64, userIDs []int64, plan func(model.Task, []model.Period) (schedule.ResetResult, error)) (*model.Task, []model.Period, error) {
	var (
		task    *model.Task
		periods []model.Period
	)
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if userIDs != nil {
			if err := setMembers(ctx, tx, id, userIDs); err != nil {
				return err
			}
		}
		var err error
		task, err = getTask(ctx, tx, id)
		if err != nil || task == nil {
			return err
		}
		existing, err := listPeriods(ctx, tx, id)
		if err != nil {
			return err
		}
		res, err := plan(*task, existing)
		if err != nil {
			return err
		}
		periods, err = replacePeriods(ctx, tx, id, res)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return task, periods, nil
}

// RemoveFromFlat drops userID from flatID and from the rotation of every
// task in the flat that userID did not create, all in one transaction.
// Active tasks are rescheduled with plan after the rotation changes. It
// returns the tasks whose rotation changed, in their new state.
func (s *TaskStore) RemoveFromFlat(ctx context.Context, flatID, userID int64, plan func(model.Task, []model.Period) (schedule.ResetResult, error)) ([]model.Task, error) {
	var changed []model.Task
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		ids, err := memberTaskIDs(ctx, tx, flatID, userID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			task, err := getTask(ctx, tx, id)
			if err != nil {
				return err
			}
			if task == nil {
				continue
			}
			remaining := make([]int64, 0, len(task.Members))
			for _, m := range task.Members {
				if m.ID != userID {
					remaining = append(remaining, m.ID)
				}
			}
			if err := setMembers(ctx, tx, id, remaining); err != nil {
				return err
			}
			if task, err = getTask(ctx, tx, id); err != nil {
				return err
			}
			if task.Active {
				existing, err := listPeriods(ctx, tx, id)
				if err != nil {
					return err
				}
				res, err := plan(*task, existing)
				if err != nil {
					return err
				}
				if _, err := replacePeriods(ctx, tx, id, res); err != nil {
					return err
				}
			}
			changed = append(changed, *task)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM flat_members WHERE flat_id = ? AND user_id = ?`, flatID, userID,
		); err != nil {
			return fmt.Errorf("remove flat member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

// memberTaskIDs lists the tasks in flatID that rotate userID but were not
// created by them.
func memberTaskIDs(ctx context.Context, q querier, flatID, userID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT t.id FROM tasks t JOIN task_members tm ON tm.task_id = t.id
		 WHERE t.flat_id = ? AND tm.user_id = ? AND t.created_by != ?
		 ORDER BY t.id ASC`,
		flatID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list member tasks: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
