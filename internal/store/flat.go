package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/flatrota/internal/model"
)

type FlatStore struct {
	db *sql.DB
}

func NewFlatStore(db *sql.DB) *FlatStore {
	return &FlatStore{db: db}
}

const flatCols = `id, name, created_at, updated_at`

func scanFlat(s scanner) (*model.Flat, error) {
	var f model.Flat
	if err := s.Scan(&f.ID, &f.Name, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a flat with creatorID as its first member.
func (s *FlatStore) Create(ctx context.Context, name string, creatorID int64) (*model.Flat, error) {
	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `INSERT INTO flats (name) VALUES (?)`, name)
		if err != nil {
			return fmt.Errorf("insert flat: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO flat_members (flat_id, user_id) VALUES (?, ?)`, id, creatorID,
		); err != nil {
			return fmt.Errorf("insert flat member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *FlatStore) GetByID(ctx context.Context, id int64) (*model.Flat, error) {
	f, err := scanFlat(s.db.QueryRowContext(ctx, `SELECT `+flatCols+` FROM flats WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get flat: %w", err)
	}
	return f, nil
}

func (s *FlatStore) ListForUser(ctx context.Context, userID int64) ([]model.Flat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.name, f.created_at, f.updated_at
		 FROM flats f JOIN flat_members fm ON fm.flat_id = f.id
		 WHERE fm.user_id = ? ORDER BY f.name ASC, f.id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list flats: %w", err)
	}
	defer rows.Close()

	var flats []model.Flat
	for rows.Next() {
		f, err := scanFlat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flat: %w", err)
		}
		flats = append(flats, *f)
	}
	return flats, rows.Err()
}

// ListIDs returns every flat id, used by background jobs.
func (s *FlatStore) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM flats ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list flat ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan flat id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *FlatStore) AddMember(ctx context.Context, flatID, userID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO flat_members (flat_id, user_id) VALUES (?, ?)`, flatID, userID,
	); err != nil {
		return fmt.Errorf("add flat member: %w", err)
	}
	return nil
}

func (s *FlatStore) IsMember(ctx context.Context, flatID, userID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM flat_members WHERE flat_id = ? AND user_id = ?`, flatID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check flat member: %w", err)
	}
	return n > 0, nil
}

func (s *FlatStore) ListMembers(ctx context.Context, flatID int64) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.display_name, u.avatar, u.created_at, u.updated_at
		 FROM users u JOIN flat_members fm ON fm.user_id = u.id
		 WHERE fm.flat_id = ? ORDER BY fm.joined_at ASC, u.id ASC`,
		flatID,
	)
	if err != nil {
		return nil, fmt.Errorf("list flat members: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
