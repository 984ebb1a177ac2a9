// Package jsondb keeps the whole user collection in memory and mirrors it
// to a single JSON file, rewritten in full after every mutation.
package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/4slk4/simple-note-taking/internal/models"
	"github.com/4slk4/simple-note-taking/internal/user"
)

// JSONDB is the canonical in-memory user collection and its durable mirror.
// An empty fileName makes Flush a no-op, which is how memorystorage uses it.
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Users    []*user.User
}

func initDBFile(fileName string) error {
	return writeToJSONFile(fileName, []*user.User{})
}

// writeToJSONFile replaces fileName atomically: the data goes to a temp file
// in the same directory which is then renamed over the target.
func writeToJSONFile(fileName string, users interface{}) error {
	jsonData, err := json.MarshalIndent(users, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	dir, base := filepath.Split(fileName)
	if dir == "" {
		dir = "."
	}
	file, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	tmpName := file.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := file.Write(jsonData); err != nil {
		_ = file.Close()
		return fmt.Errorf("error writing to file: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("error syncing file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("error closing file: %w", err)
	}
	if err := os.Rename(tmpName, fileName); err != nil {
		return fmt.Errorf("error replacing file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, users *[]*user.User) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(users); err != nil {
		return fmt.Errorf("error parsing %s: %w", fileName, err)
	}

	return nil
}

// New loads the collection from fileName. A missing file is a first run: it
// is created holding an empty collection. Any other read or parse failure is
// returned to the caller.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Users:    []*user.User{},
	}

	if err := db.load(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *JSONDB) load() error {
	err := parseJSONFile(db.fileName, &db.Users)
	if errors.Is(err, os.ErrNotExist) {
		db.Users = []*user.User{}
		return initDBFile(db.fileName)
	}
	if err != nil {
		return err
	}

	users := make([]*user.User, 0, len(db.Users))
	for _, usr := range db.Users {
		if usr == nil {
			continue
		}
		// Files written by older versions may lack the notes field.
		if usr.Notes == nil {
			usr.Notes = []user.Note{}
		}
		users = append(users, usr)
	}
	db.Users = users

	return nil
}

// FindByName returns the first user with the given name. Caller must hold db.mu.
func (db *JSONDB) FindByName(name string) (*user.User, bool) {
	for _, usr := range db.Users {
		if usr.Name == name {
			return usr, true
		}
	}

	return nil, false
}

// FindByID returns the user with the given id. Caller must hold db.mu.
func (db *JSONDB) FindByID(id string) (*user.User, bool) {
	for _, usr := range db.Users {
		if usr.ID == id {
			return usr, true
		}
	}

	return nil, false
}

// Append adds usr to the collection without persisting it. Caller must hold db.mu.
func (db *JSONDB) Append(usr *user.User) {
	if usr.Notes == nil {
		usr.Notes = []user.Note{}
	}
	db.Users = append(db.Users, usr)
}

// Flush overwrites the file with the whole collection. Caller must hold db.mu.
func (db *JSONDB) Flush() error {
	if db.fileName == "" {
		return nil
	}

	return writeToJSONFile(db.fileName, db.Users)
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.FindByName(usr.Name); found {
		return models.ErrUserExists
	}

	db.Append(usr.Clone())
	if err := db.Flush(); err != nil {
		db.Users = db.Users[:len(db.Users)-1]
		return err
	}

	return nil
}

func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.FindByID(userID)
	if !found {
		return nil, models.ErrUserNotFound
	}

	return usr.Clone(), nil
}

func (db *JSONDB) GetUserByName(ctx context.Context, name string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.FindByName(name)
	if !found {
		return nil, models.ErrUserNotFound
	}

	return usr.Clone(), nil
}

func (db *JSONDB) AddNote(ctx context.Context, userID string, note user.Note) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	usr, found := db.FindByID(userID)
	if !found {
		return models.ErrUserNotFound
	}

	previous := usr.Notes
	usr.Notes = append(usr.Notes[:len(usr.Notes):len(usr.Notes)], note)
	if err := db.Flush(); err != nil {
		usr.Notes = previous
		return err
	}

	return nil
}

// DeleteNote removes the note with noteID from the user's notes. An unknown
// noteID leaves the notes unchanged and is not an error.
func (db *JSONDB) DeleteNote(ctx context.Context, userID, noteID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	usr, found := db.FindByID(userID)
	if !found {
		return models.ErrUserNotFound
	}

	previous := usr.Notes
	usr.Notes = funk.Filter(usr.Notes, func(note user.Note) bool {
		return note.ID != noteID
	}).([]user.Note)
	if err := db.Flush(); err != nil {
		usr.Notes = previous
		return err
	}

	return nil
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Users)), nil
}

func (db *JSONDB) GetNumberOfNotes(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var result int64
	for _, usr := range db.Users {
		result += int64(len(usr.Notes))
	}

	return result, nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close writes a final snapshot.
func (db *JSONDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.Flush()
}
