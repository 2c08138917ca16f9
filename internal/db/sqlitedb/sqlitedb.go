// Package sqlitedb is a file-backed storage built on the pure-Go SQLite driver.
// It mirrors postgresdb: owner-scoped contact statements use RETURNING so that
// matching and mutating happen in one statement.
package sqlitedb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/thoas/go-funk"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

const contactColumns = `id, name, email, phone, user_id, created_at, updated_at`

type SQLiteDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
	now               func() time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

// New opens (creating if needed) the database file at path and migrates it.
func New(ctx context.Context, path string, connectionTimeout time.Duration) (*SQLiteDB, error) {
	database, err := sql.Open(
		"sqlite",
		fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path),
	)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `sql.Open()` calling: %w", err)
	}
	database.SetMaxOpenConns(1)

	result := &SQLiteDB{
		database:          database,
		connectionTimeout: connectionTimeout,
		now:               time.Now,
	}

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `result.Ping()` calling: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.UpContext(ctx, database, "migrations"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `goose.UpContext()` calling: %w", err)
	}

	return result, nil
}

func (db *SQLiteDB) CreateUser(ctx context.Context, usr *models.User) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	created := *usr
	created.ID = uuid.New().String()
	created.CreatedAt = db.now().UTC()

	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		created.ID,
		created.Username,
		created.Email,
		created.PasswordHash,
		created.CreatedAt.UnixNano(),
	)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return nil, storage.ErrUserExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &created, nil
}

func (db *SQLiteDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	usr := &models.User{}
	var createdAt int64
	err := db.database.QueryRowContext(
		ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE email = ?`,
		email,
	).Scan(&usr.ID, &usr.Username, &usr.Email, &usr.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	usr.CreatedAt = time.Unix(0, createdAt).UTC()

	return usr, nil
}

func (db *SQLiteDB) ListContacts(ctx context.Context, userID string) ([]models.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	rows, err := db.database.QueryContext(
		ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = ? ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Contact{}
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *contact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (db *SQLiteDB) CreateContact(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	now := db.now().UTC().UnixNano()
	row := db.database.QueryRowContext(
		ctx,
		`INSERT INTO contacts (id, name, email, phone, user_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING `+contactColumns,
		uuid.New().String(),
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.UserID,
		now,
		now,
	)

	created, err := scanContact(row)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return nil, storage.ErrOwnerNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

func (db *SQLiteDB) FindContact(ctx context.Context, userID, contactID string) (*models.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ? AND user_id = ?`,
		contactID,
		userID,
	)

	return scanOwnedContact(row)
}

func (db *SQLiteDB) UpdateContact(
	ctx context.Context,
	userID,
	contactID string,
	patch models.ContactPatch,
) (*models.Contact, error) {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil, errors.New("empty contact patch")
	}

	columns := funk.Keys(fields).([]string)
	sort.Strings(columns)

	assignments := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+3)
	for _, column := range columns {
		assignments = append(assignments, column+" = ?")
		args = append(args, fields[column])
	}
	assignments = append(assignments, "updated_at = ?")
	args = append(args, db.now().UTC().UnixNano(), contactID, userID)

	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		fmt.Sprintf(
			`UPDATE contacts SET %s WHERE id = ? AND user_id = ? RETURNING %s`,
			strings.Join(assignments, ", "),
			contactColumns,
		),
		args...,
	)

	return scanOwnedContact(row)
}

func (db *SQLiteDB) DeleteContact(ctx context.Context, userID, contactID string) (*models.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`DELETE FROM contacts WHERE id = ? AND user_id = ? RETURNING `+contactColumns,
		contactID,
		userID,
	)

	return scanOwnedContact(row)
}

func (db *SQLiteDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

func (db *SQLiteDB) Close() error {
	return db.database.Close()
}

func scanContact(row rowScanner) (*models.Contact, error) {
	contact := &models.Contact{}
	var createdAt, updatedAt int64
	err := row.Scan(
		&contact.ID,
		&contact.Name,
		&contact.Email,
		&contact.Phone,
		&contact.UserID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	contact.CreatedAt = time.Unix(0, createdAt).UTC()
	contact.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return contact, nil
}

func scanOwnedContact(row rowScanner) (*models.Contact, error) {
	contact, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return contact, nil
}
