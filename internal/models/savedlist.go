package models

import "time"

// SavedList is a named, point-in-time snapshot of a user's active list. Once
// a share token has been assigned it never changes; subsequent share
// operations reuse it.
type SavedList struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Name       string    `json:"name" db:"name"`
	ShareToken *string   `json:"share_token,omitempty" db:"share_token"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SavedListItem is a frozen copy of an active item at save time. It belongs
// to its saved list only and is never mutated after creation.
type SavedListItem struct {
	ID        string  `json:"id" db:"id"`
	ListID    string  `json:"list_id" db:"list_id"`
	Name      string  `json:"name" db:"name"`
	Price     float64 `json:"price" db:"price"`
	Completed bool    `json:"completed" db:"completed"`
}
