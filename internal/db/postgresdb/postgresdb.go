// Package postgresdb provides a PostgreSQL-based implementation of the storage interface
// for persisting users and their notes.
// Every mutating call is committed before it returns, so it satisfies the same
// "durable after each mutation" contract as the JSON file store.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/4slk4/simple-note-taking/internal/models"
	"github.com/4slk4/simple-note-taking/internal/user"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresDB is a PostgreSQL-backed implementation of the users storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables resetting the database schema before migration.
// It can be used for test setups or development purposes.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs the embedded schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w", err)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			_ = database.Close()
			return nil, err
		}
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.UpContext(ctx, result.database, "migrations"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w", err)
	}

	return result, nil
}

// CreateUser inserts a new user. A taken name yields models.ErrUserExists.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) error {
	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO users (id, name, password) VALUES ($1, $2, $3)`,
		usr.ID,
		usr.Name,
		usr.PasswordHash,
	)
	if isPGError(err, pgUniqueViolation) {
		return models.ErrUserExists
	}

	return err
}

// GetUserByID fetches a user together with their notes in insertion order.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	return db.getUser(ctx, `SELECT id, name, password FROM users WHERE id = $1`, userID)
}

// GetUserByName fetches a user by login name together with their notes.
func (db *PostgresDB) GetUserByName(ctx context.Context, name string) (*user.User, error) {
	return db.getUser(ctx, `SELECT id, name, password FROM users WHERE name = $1`, name)
}

func (db *PostgresDB) getUser(ctx context.Context, query string, arg string) (*user.User, error) {
	usr := &user.User{}
	err := db.database.QueryRowContext(ctx, query, arg).Scan(&usr.ID, &usr.Name, &usr.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}

	usr.Notes, err = getNotes(ctx, db.database, usr.ID)
	if err != nil {
		return nil, err
	}

	return usr, nil
}

func getNotes(ctx context.Context, database queryer, userID string) ([]user.Note, error) {
	rows, err := database.QueryContext(
		ctx,
		`SELECT id, title, content FROM notes WHERE user_id = $1 ORDER BY seq`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []user.Note{}
	for rows.Next() {
		var note user.Note
		if err := rows.Scan(&note.ID, &note.Title, &note.Content); err != nil {
			return nil, err
		}
		result = append(result, note)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// AddNote appends a note to the user's notes.
func (db *PostgresDB) AddNote(ctx context.Context, userID string, note user.Note) error {
	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO notes (id, user_id, title, content) VALUES ($1, $2, $3, $4)`,
		note.ID,
		userID,
		note.Title,
		note.Content,
	)
	if isPGError(err, pgForeignKeyViolation) {
		return models.ErrUserNotFound
	}

	return err
}

// DeleteNote removes the user's note with noteID; an unknown noteID is a no-op.
// An unknown userID yields models.ErrUserNotFound, as in the file store.
func (db *PostgresDB) DeleteNote(ctx context.Context, userID, noteID string) error {
	var exists bool
	err := db.database.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return models.ErrUserNotFound
	}

	_, err = db.database.ExecContext(
		ctx,
		`DELETE FROM notes WHERE user_id = $1 AND id = $2`,
		userID,
		noteID,
	)

	return err
}

func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (db *PostgresDB) GetNumberOfNotes(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM notes`)
}

func (db *PostgresDB) count(ctx context.Context, query string) (int64, error) {
	var result int64
	if err := db.database.QueryRowContext(ctx, query).Scan(&result); err != nil {
		return 0, err
	}

	return result, nil
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}

	return nil
}

func isPGError(err error, code string) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == code
}
