// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Users normally sign up with a login name and password. When GitHub login is
// configured, an account can instead be linked to a GitHub user ID; GitHubID
// is nil for password-only accounts. The UNIQUE constraint on github_id in the
// DB ensures one GitHub account maps to exactly one app account.
//
// PasswordHash never leaves the server: the json:"-" tag keeps it out of
// every response body.
type User struct {
	ID           string    `json:"id"          db:"id"`
	LoginName    string    `json:"loginName"   db:"login_name"`
	PasswordHash string    `json:"-"           db:"password_hash"`
	GitHubID     *int64    `json:"-"           db:"github_id"`
	FirstName    string    `json:"firstName"   db:"first_name"`
	LastName     string    `json:"lastName"    db:"last_name"`
	Location     string    `json:"location"    db:"location"`
	Description  string    `json:"description" db:"description"`
	Occupation   string    `json:"occupation"  db:"occupation"`
	CreatedAt    time.Time `json:"createdAt"   db:"created_at"`
}

// UserSummary is the minimal identity shown next to photos and comments.
type UserSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Summary returns the public identity of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
}

// UserCounts is returned by GET /user/{id}/counts.
type UserCounts struct {
	Photos   int `json:"photos"`
	Comments int `json:"comments"`
}
