package models

import "time"

// User is the write model for an account. PasswordHash is never serialised;
// API responses use UserView.
type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	TitleJob     string    `json:"titleJob"`
	CreatedAt    time.Time `json:"createdTimestamp"`
}

// View projects the user into its public shape.
func (u *User) View() *UserView {
	return &UserView{
		ID:        u.ID,
		FullName:  u.FullName,
		Username:  u.Username,
		Email:     u.Email,
		TitleJob:  u.TitleJob,
		CreatedAt: u.CreatedAt,
	}
}

// SearchFilter holds the optional substring filters for user search.
// Blank fields are ignored; non-blank fields combine with AND.
type SearchFilter struct {
	FullName string
	Username string
	Email    string
}
