package domain

import "time"

// MaxPasswordBytes is the longest password bcrypt accepts
const MaxPasswordBytes = 72

// User is an API account. Users are created by registration and never updated.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u User) Key() int64 {
	return u.ID
}
