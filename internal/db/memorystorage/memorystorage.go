package memorystorage

import (
	"context"

	"github.com/4slk4/simple-note-taking/internal/db/jsondb"
	"github.com/4slk4/simple-note-taking/internal/user"
)

// MemoryStorage is the jsondb store without a backing file.
type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Users: []*user.User{},
		},
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
