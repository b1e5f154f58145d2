package models

import "time"

// UserView is the read-optimised projection of a user.
// It never exposes the password hash.
type UserView struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	TitleJob  string    `json:"titleJob"`
	CreatedAt time.Time `json:"createdTimestamp"`
}
