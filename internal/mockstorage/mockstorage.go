// Package mockstorage provides a testify-based mock of the storage
// interfaces consumed by the service package.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/4slk4/simple-note-taking/internal/user"
)

// StorageMock is a testify mock that implements the users and notes storage.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers, if set, is called by GetNumberOfUsers instead of
	// testify's generic mock handler.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfNotes, if set, is called by GetNumberOfNotes instead of
	// testify's generic mock handler.
	OnGetNumberOfNotes func(ctx context.Context) (int64, error)
}

func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) error {
	args := m.Called(ctx, usr)
	return args.Error(0)
}

func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) GetUserByName(ctx context.Context, name string) (*user.User, error) {
	args := m.Called(ctx, name)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) AddNote(ctx context.Context, userID string, note user.Note) error {
	args := m.Called(ctx, userID, note)
	return args.Error(0)
}

func (m *StorageMock) DeleteNote(ctx context.Context, userID, noteID string) error {
	args := m.Called(ctx, userID, noteID)
	return args.Error(0)
}

func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) GetNumberOfNotes(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfNotes != nil {
		return m.OnGetNumberOfNotes(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
