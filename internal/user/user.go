// Package user defines the user record persisted by every storage backend,
// together with the notes the user owns.
package user

// Note is a single entry owned by exactly one User.
type Note struct {
	// ID is an opaque unique token, used as the deletion key.
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// User represents a registered account.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID. It is also the
	// identity claim carried by the session.
	ID string `json:"id"`

	// Name is the login handle, unique across all users.
	Name string `json:"name"`

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"password"`

	// Notes are kept in insertion order, which is also the display order.
	Notes []Note `json:"notes"`
}

// Clone returns a deep copy, so callers never share the notes slice with the store.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Notes = make([]Note, len(u.Notes))
	copy(clone.Notes, u.Notes)

	return &clone
}
