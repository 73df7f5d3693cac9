package models

import "time"

// Teacher represents an instructor in the substitute pool.
type Teacher struct {
	ID             string    `db:"id" json:"id"`
	Code           string    `db:"code" json:"code"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	Specialization *string   `db:"specialization" json:"specialization,omitempty"`
	IsAvailable    bool      `db:"is_available" json:"is_available"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
