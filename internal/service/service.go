package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/4slk4/simple-note-taking/internal/models"
	"github.com/4slk4/simple-note-taking/internal/password"
	"github.com/4slk4/simple-note-taking/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) error

	GetUserByID(ctx context.Context, userID string) (*user.User, error)

	GetUserByName(ctx context.Context, name string) (*user.User, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)
}

type notesKeeper interface {
	AddNote(ctx context.Context, userID string, note user.Note) error

	DeleteNote(ctx context.Context, userID, noteID string) error

	GetNumberOfNotes(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	notesKeeper
	pinger
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)

	Verify(plaintext, hash string) bool

	Strength(plaintext string) password.Strength
}

// Registration outcomes.
var (
	ErrUsernameRequired = errors.New("username is required")
	ErrWeakPassword     = errors.New("password is not strong enough")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrUsernameTaken    = errors.New("username is already taken")
)

// ErrHashingFailed is returned by Register when the password could not be hashed.
var ErrHashingFailed = password.ErrHashingFailed

// ErrInvalidCredentials is returned for an unknown user or a wrong password alike.
var ErrInvalidCredentials = errors.New("invalid username or password")

type Service struct {
	db     storage
	hasher passwordHasher

	dummyHashOnce sync.Once
	dummyHash     string
}

func New(db storage, hasher passwordHasher) *Service {
	return &Service{
		db:     db,
		hasher: hasher,
	}
}

// Register creates an account from the submitted form. Checks run in order:
// non-empty username, strong password, matching confirmation, free username.
func (s *Service) Register(ctx context.Context, form models.RegisterForm) (*user.User, error) {
	name := normalizeName(form.Username)
	if name == "" {
		return nil, ErrUsernameRequired
	}

	if s.hasher.Strength(form.NewPassword) != password.Strong {
		return nil, ErrWeakPassword
	}

	if form.NewPassword != form.Confirm {
		return nil, ErrPasswordMismatch
	}

	_, err := s.db.GetUserByName(ctx, name)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(form.NewPassword)
	if err != nil {
		return nil, err
	}

	usr := &user.User{
		ID:           uuid.New().String(),
		Name:         name,
		PasswordHash: hash,
		Notes:        []user.Note{},
	}

	err = s.db.CreateUser(ctx, usr)
	if errors.Is(err, models.ErrUserExists) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}

	return usr, nil
}

// normalizeName is applied to usernames both when they are stored and when
// they are looked up.
func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

// Authenticate returns the user whose name and password match. An unknown
// name still costs one hash comparison, so both failures take equally long.
func (s *Service) Authenticate(ctx context.Context, name, plaintext string) (*user.User, error) {
	usr, err := s.db.GetUserByName(ctx, normalizeName(name))
	if errors.Is(err, models.ErrUserNotFound) {
		s.hasher.Verify(plaintext, s.getDummyHash())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(plaintext, usr.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return usr, nil
}

// getDummyHash hashes a fixed string once with the configured cost.
func (s *Service) getDummyHash() string {
	s.dummyHashOnce.Do(func() {
		hash, err := s.hasher.Hash("not a real password")
		if err == nil {
			s.dummyHash = hash
		}
	})

	return s.dummyHash
}

func (s *Service) GetUser(ctx context.Context, userID string) (*user.User, error) {
	return s.db.GetUserByID(ctx, userID)
}

// AddNote appends a note with a fresh ID to the user's list and returns it.
func (s *Service) AddNote(ctx context.Context, userID string, form models.NoteForm) (user.Note, error) {
	note := user.Note{
		ID:      uuid.New().String(),
		Title:   form.Title,
		Content: form.Content,
	}

	if err := s.db.AddNote(ctx, userID, note); err != nil {
		return user.Note{}, err
	}

	return note, nil
}

// DeleteNote removes the note from the user's list. An unknown noteID is not an error.
func (s *Service) DeleteNote(ctx context.Context, userID, noteID string) error {
	return s.db.DeleteNote(ctx, userID, noteID)
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetInternalStats returns the number of users and notes.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	notes, err := s.db.GetNumberOfNotes(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Users: users,
		Notes: notes,
	}, nil
}
