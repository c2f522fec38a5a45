package model

import "time"

// Member is a value copy of a user's identity fields. Periods store members by
// value so historical assignments stay renderable after profile changes.
type Member struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Avatar      string    `json:"avatar"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns the member identity of u.
func (u User) Snapshot() Member {
	return Member{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Avatar: u.Avatar}
}
