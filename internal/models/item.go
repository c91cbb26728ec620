package models

import "time"

// Item represents one entry in a user's active shopping list. Identifiers and
// positions are assigned by the store on insert; the application never
// generates them.
type Item struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Price     float64   `json:"price" db:"price"`
	Completed bool      `json:"completed" db:"completed"`
	Position  int64     `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
