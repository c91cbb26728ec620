package models

import "time"

// ShareGrant records that a saved list was shared with a recipient email.
// Grants are write-once; there is no revoke.
type ShareGrant struct {
	ID          string    `json:"id" db:"id"`
	ListID      string    `json:"list_id" db:"list_id"`
	SharedBy    string    `json:"shared_by" db:"shared_by"`
	SharedEmail string    `json:"shared_email" db:"shared_email"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
