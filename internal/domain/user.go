package domain

import "time"

// User is a registered account. Clients and workers share the same table.
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	FullName     string    `db:"full_name"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Identity is the authenticated caller of an operation
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DisplayName returns the name shown to other users
func (i *Identity) DisplayName(fallback string) string {
	if i.Name == "" {
		return fallback
	}
	return i.Name
}

// RequireIdentity fails with ErrNotAuthenticated when no identity is present
func RequireIdentity(id *Identity) error {
	if id == nil || id.ID == "" {
		return ErrNotAuthenticated
	}
	return nil
}
