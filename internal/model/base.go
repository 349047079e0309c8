package model

import "time"

type BaseModel struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Actor identifies who performed a mutation. It is recorded on movements and
// audit columns but never authorized here.
type Actor struct {
	UserID   string
	UserName string
}
