package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/schedule"
)

type PeriodStore struct {
	db *sql.DB
}

func NewPeriodStore(db *sql.DB) *PeriodStore {
	return &PeriodStore{db: db}
}

const periodCols = `id, task_id, start_date, end_date,
	assigned_id, assigned_email, assigned_name, assigned_avatar,
	completed_by_id, completed_by_email, completed_by_name, completed_by_avatar, completed_at`

func scanPeriod(s scanner) (*model.Period, error) {
	var p model.Period
	var (
		byID                  sql.NullInt64
		byEmail, byName, byAv sql.NullString
		at                    sql.NullTime
	)
	err := s.Scan(
		&p.ID, &p.TaskID, &p.StartDate, &p.EndDate,
		&p.AssignedTo.ID, &p.AssignedTo.Email, &p.AssignedTo.DisplayName, &p.AssignedTo.Avatar,
		&byID, &byEmail, &byName, &byAv, &at,
	)
	if err != nil {
		return nil, err
	}
	p.StartDate = p.StartDate.UTC()
	p.EndDate = p.EndDate.UTC()
	if byID.Valid && at.Valid {
		p.Completion = &model.Completion{
			By: model.Member{
				ID:          byID.Int64,
				Email:       byEmail.String,
				DisplayName: byName.String,
				Avatar:      byAv.String,
			},
			At: at.Time.UTC(),
		}
	}
	return &p, nil
}

func listPeriods(ctx context.Context, q querier, taskID int64) ([]model.Period, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+periodCols+` FROM periods WHERE task_id = ? ORDER BY start_date ASC, id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	periods := []model.Period{}
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		periods = append(periods, *p)
	}
	return periods, rows.Err()
}

// insertPeriods stores periods under taskID and returns them with their new ids.
func insertPeriods(ctx context.Context, q querier, taskID int64, periods []model.Period) ([]model.Period, error) {
	out := make([]model.Period, 0, len(periods))
	for _, p := range periods {
		var (
			byID                  sql.NullInt64
			byEmail, byName, byAv sql.NullString
			at                    sql.NullTime
		)
		if c := p.Completion; c != nil {
			byID = sql.NullInt64{Int64: c.By.ID, Valid: true}
			byEmail = sql.NullString{String: c.By.Email, Valid: true}
			byName = sql.NullString{String: c.By.DisplayName, Valid: true}
			byAv = sql.NullString{String: c.By.Avatar, Valid: true}
			at = sql.NullTime{Time: c.At.UTC(), Valid: true}
		}
		result, err := q.ExecContext(ctx,
			`INSERT INTO periods (task_id, start_date, end_date,
				assigned_id, assigned_email, assigned_name, assigned_avatar,
				completed_by_id, completed_by_email, completed_by_name, completed_by_avatar, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			taskID, p.StartDate.UTC(), p.EndDate.UTC(),
			p.AssignedTo.ID, p.AssignedTo.Email, p.AssignedTo.DisplayName, p.AssignedTo.Avatar,
			byID, byEmail, byName, byAv, at,
		)
		if err != nil {
			return nil, fmt.Errorf("insert period: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		p.ID = id
		p.TaskID = taskID
		out = append(out, p)
	}
	return out, nil
}

// replacePeriods deletes every period of the task not in res.Kept and
// inserts res.Generated. Kept rows are not rewritten.
func replacePeriods(ctx context.Context, q querier, taskID int64, res schedule.ResetResult) ([]model.Period, error) {
	query := `DELETE FROM periods WHERE task_id = ?`
	args := []any{taskID}
	if len(res.Kept) > 0 {
		placeholders := make([]string, len(res.Kept))
		for i, p := range res.Kept {
			placeholders[i] = "?"
			args = append(args, p.ID)
		}
		query += ` AND id NOT IN (` + strings.Join(placeholders, ", ") + `)`
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("delete periods: %w", err)
	}

	generated, err := insertPeriods(ctx, q, taskID, res.Generated)
	if err != nil {
		return nil, err
	}
	return schedule.ResetResult{Kept: res.Kept, Generated: generated}.Periods(), nil
}

func (s *PeriodStore) ListByTask(ctx context.Context, taskID int64) ([]model.Period, error) {
	return listPeriods(ctx, s.db, taskID)
}

func (s *PeriodStore) GetByID(ctx context.Context, id int64) (*model.Period, error) {
	p, err := scanPeriod(s.db.QueryRowContext(ctx, `SELECT `+periodCols+` FROM periods WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get period: %w", err)
	}
	return p, nil
}

// SaveCompletion persists p's completion. The write only applies to a
// pending row; if the row was completed concurrently it returns
// schedule.ErrAlreadyCompleted. It returns nil, nil if the period no longer
// exists.
func (s *PeriodStore) SaveCompletion(ctx context.Context, p model.Period) (*model.Period, error) {
	if p.Completion == nil {
		return nil, fmt.Errorf("save completion: period %d is pending", p.ID)
	}
	c := p.Completion
	result, err := s.db.ExecContext(ctx,
		`UPDATE periods SET completed_by_id = ?, completed_by_email = ?, completed_by_name = ?,
			completed_by_avatar = ?, completed_at = ?
		 WHERE id = ? AND completed_at IS NULL`,
		c.By.ID, c.By.Email, c.By.DisplayName, c.By.Avatar, c.At.UTC(), p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("complete period: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		existing, err := s.GetByID(ctx, p.ID)
		if err != nil || existing == nil {
			return nil, err
		}
		return nil, schedule.ErrAlreadyCompleted
	}
	return s.GetByID(ctx, p.ID)
}
