package models

import "errors"

type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type RegisterForm struct {
	Username    string
	NewPassword string
	Confirm     string
}

type NoteForm struct {
	Title   string
	Content string
}

type InternalStatsResponse struct {
	Users int64 `json:"users"`
	Notes int64 `json:"notes"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

var ErrUserNotFound = errors.New("user not found")

var ErrUserExists = errors.New("user with this name already exists")
