package model

import "time"

// User represents an account record as stored in the `users` table.
// It carries the bcrypt password hash and is therefore never written to
// an HTTP response directly; handlers convert it with View first.
//
// Fields:
//  ID           – primary key identifier assigned by MySQL.
//  Name         – display name (2–255 characters).
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// UserView is the outward representation of an account.  It has no
// password field at all, so nothing derived from the hash can leak through
// JSON serialization.
type UserView struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View builds the outward representation of u.
func (u User) View() UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Views converts a slice of users, preserving order.  A nil input yields an
// empty, non-nil slice so list responses encode as [] rather than null.
func Views(users []User) []UserView {
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, u.View())
	}
	return out
}

// UserUpdate lists the columns a partial update may change.  Nil pointers
// leave the corresponding column untouched.
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

// Empty reports whether the update would change nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.PasswordHash == nil
}
