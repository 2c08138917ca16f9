// Package postgresdb provides a PostgreSQL-based implementation of the storage interface
// for persisting users and their contacts.
// Every contact read, update and delete is a single statement filtered by
// both the contact ID and the owner ID.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

const contactColumns = `id::text, name, email, phone, user_id::text, created_at, updated_at`

// PostgresDB is a PostgreSQL-backed storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables dropping every table before migration.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// New opens the connection, checks it is alive, runs the embedded schema
// migrations and returns a ready PostgresDB.
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
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `sql.Open()` calling: %w", err)
	}

	return newWithDB(ctx, database, connectionTimeout, options)
}

func newWithDB(
	ctx context.Context,
	database *sql.DB,
	connectionTimeout time.Duration,
	options *initOptions,
) (*PostgresDB, error) {
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
			return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w", err)
		}
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.UpContext(ctx, database, "migrations"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.UpContext()` calling: %w", err)
	}

	return result, nil
}

// CreateUser inserts a user. A taken username or email yields storage.ErrUserExists,
// detected by the unique constraints rather than a prior lookup.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *models.User) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	created := *usr
	err := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO users (username, email, password_hash)
				VALUES ($1, $2, $3)
				RETURNING id::text, created_at
		`,
		usr.Username,
		usr.Email,
		usr.PasswordHash,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, storage.ErrUserExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &created, nil
}

// GetUserByEmail fetches a user with its password hash.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	usr := &models.User{}
	err := db.database.QueryRowContext(
		ctx,
		`SELECT id::text, username, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&usr.ID, &usr.Username, &usr.Email, &usr.PasswordHash, &usr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return usr, nil
}

// ListContacts returns every contact owned by userID, oldest first.
func (db *PostgresDB) ListContacts(ctx context.Context, userID string) ([]models.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	rows, err := db.database.QueryContext(
		ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 ORDER BY created_at, id`,
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

// CreateContact inserts a contact owned by contact.UserID.
func (db *PostgresDB) CreateContact(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO contacts (name, email, phone, user_id)
				VALUES ($1, $2, $3, $4)
				RETURNING `+contactColumns,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.UserID,
	)

	created, err := scanContact(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode {
			return nil, storage.ErrOwnerNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

// FindContact looks a contact up by ID and owner in one query.
func (db *PostgresDB) FindContact(ctx context.Context, userID, contactID string) (*models.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND user_id = $2`,
		contactID,
		userID,
	)

	return scanOwnedContact(row)
}

// UpdateContact applies the present patch fields to the contact matching
// both contactID and userID and returns the updated row.
func (db *PostgresDB) UpdateContact(
	ctx context.Context,
	userID,
	contactID string,
	patch models.ContactPatch,
) (*models.Contact, error) {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil, errors.New("empty contact patch")
	}

	assignments, args := buildAssignments(fields, 3)

	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		fmt.Sprintf(
			`UPDATE contacts SET %s, updated_at = NOW() WHERE id = $1 AND user_id = $2 RETURNING %s`,
			assignments,
			contactColumns,
		),
		append([]any{contactID, userID}, args...)...,
	)

	return scanOwnedContact(row)
}

// DeleteContact removes the contact matching both contactID and userID and
// returns its last state.
func (db *PostgresDB) DeleteContact(ctx context.Context, userID, contactID string) (*models.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`DELETE FROM contacts WHERE id = $1 AND user_id = $2 RETURNING `+contactColumns,
		contactID,
		userID,
	)

	return scanOwnedContact(row)
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

// buildAssignments renders "col = $n" pairs in a stable column order,
// numbering placeholders from firstPlaceholder.
func buildAssignments(fields map[string]string, firstPlaceholder int) (string, []any) {
	columns := funk.Keys(fields).([]string)
	sort.Strings(columns)

	assignments := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		assignments[i] = fmt.Sprintf("%s = $%d", column, firstPlaceholder+i)
		args[i] = fields[column]
	}

	return strings.Join(assignments, ", "), args
}

func scanContact(row rowScanner) (*models.Contact, error) {
	contact := &models.Contact{}
	err := row.Scan(
		&contact.ID,
		&contact.Name,
		&contact.Email,
		&contact.Phone,
		&contact.UserID,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

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
