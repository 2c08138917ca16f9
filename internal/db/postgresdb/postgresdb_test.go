package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/models"
)

var contactRowColumns = []string{"id", "name", "email", "phone", "user_id", "created_at", "updated_at"}

func newDBWithMock(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()
	database, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close()
	})

	return &PostgresDB{database: database, connectionTimeout: time.Second}, mock
}

func strPtr(s string) *string {
	return &s
}

func TestFindContactFiltersByIDAndOwner(t *testing.T) {
	db, mock := newDBWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^SELECT .+ FROM contacts WHERE id = \$1 AND user_id = \$2$`).
		WithArgs("contact-1", "user-1").
		WillReturnRows(
			sqlmock.NewRows(contactRowColumns).
				AddRow("contact-1", "Al", "al@x.com", "123", "user-1", now, now),
		)

	contact, err := db.FindContact(context.Background(), "user-1", "contact-1")
	require.NoError(t, err)
	assert.Equal(t, "Al", contact.Name)
	assert.Equal(t, "user-1", contact.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindContactNoRowsIsNotFound(t *testing.T) {
	db, mock := newDBWithMock(t)

	mock.ExpectQuery(`FROM contacts WHERE id = \$1 AND user_id = \$2`).
		WithArgs("contact-1", "intruder").
		WillReturnError(sql.ErrNoRows)

	_, err := db.FindContact(context.Background(), "intruder", "contact-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateContactIsSingleFilteredStatement(t *testing.T) {
	db, mock := newDBWithMock(t)
	now := time.Now()

	mock.ExpectQuery(
		`(?s)^UPDATE contacts SET email = \$3, name = \$4, updated_at = NOW\(\) WHERE id = \$1 AND user_id = \$2 RETURNING .+$`,
	).
		WithArgs("contact-1", "user-1", "new@x.com", "Bob").
		WillReturnRows(
			sqlmock.NewRows(contactRowColumns).
				AddRow("contact-1", "Bob", "new@x.com", "123", "user-1", now, now),
		)

	contact, err := db.UpdateContact(
		context.Background(),
		"user-1",
		"contact-1",
		models.ContactPatch{Name: strPtr("Bob"), Email: strPtr("new@x.com")},
	)
	require.NoError(t, err)
	assert.Equal(t, "Bob", contact.Name)
	assert.Equal(t, "new@x.com", contact.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateContactNotOwned(t *testing.T) {
	db, mock := newDBWithMock(t)

	mock.ExpectQuery(`^UPDATE contacts`).
		WithArgs("contact-1", "intruder", "555").
		WillReturnError(sql.ErrNoRows)

	_, err := db.UpdateContact(context.Background(), "intruder", "contact-1", models.ContactPatch{Phone: strPtr("555")})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateContactEmptyPatchTouchesNothing(t *testing.T) {
	db, mock := newDBWithMock(t)

	_, err := db.UpdateContact(context.Background(), "user-1", "contact-1", models.ContactPatch{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteContactReturnsSnapshot(t *testing.T) {
	db, mock := newDBWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^DELETE FROM contacts WHERE id = \$1 AND user_id = \$2 RETURNING .+$`).
		WithArgs("contact-1", "user-1").
		WillReturnRows(
			sqlmock.NewRows(contactRowColumns).
				AddRow("contact-1", "Al", "al@x.com", "123", "user-1", now, now),
		)

	contact, err := db.DeleteContact(context.Background(), "user-1", "contact-1")
	require.NoError(t, err)
	assert.Equal(t, "contact-1", contact.ID)
}

func TestCreateUserUniqueViolation(t *testing.T) {
	db, mock := newDBWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("al", "al@x.com", "hash").
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

	_, err := db.CreateUser(context.Background(), &models.User{Username: "al", Email: "al@x.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, storage.ErrUserExists)
}

func TestCreateContactUnknownOwner(t *testing.T) {
	db, mock := newDBWithMock(t)

	mock.ExpectQuery(`INSERT INTO contacts`).
		WithArgs("Al", "al@x.com", "123", "user-1").
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode})

	_, err := db.CreateContact(context.Background(), &models.Contact{Name: "Al", Email: "al@x.com", Phone: "123", UserID: "user-1"})
	assert.ErrorIs(t, err, storage.ErrOwnerNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmailWrapsDBError(t *testing.T) {
	db, mock := newDBWithMock(t)

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("al@x.com").
		WillReturnError(errors.New("db down"))

	_, err := db.GetUserByEmail(context.Background(), "al@x.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db down")
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestListContactsEmpty(t *testing.T) {
	db, mock := newDBWithMock(t)

	mock.ExpectQuery(`FROM contacts WHERE user_id = \$1 ORDER BY created_at, id`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(contactRowColumns))

	contacts, err := db.ListContacts(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, contacts)
	assert.Empty(t, contacts)
}

func TestBuildAssignments(t *testing.T) {
	assignments, args := buildAssignments(map[string]string{"phone": "1", "email": "e", "name": "n"}, 3)

	assert.Equal(t, "email = $3, name = $4, phone = $5", assignments)
	assert.Equal(t, []any{"e", "n", "1"}, args)
}

// TestOwnerScopingAgainstRealDatabase runs only when TEST_DATABASE_DSN points to a disposable database.
func TestOwnerScopingAgainstRealDatabase(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	ctx := context.Background()
	db, err := New(ctx, dsn, 5*time.Second, WithDBPreReset(true))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()

	owner, err := db.CreateUser(ctx, &models.User{Username: "owner", Email: "owner@x.com", PasswordHash: "h"})
	require.NoError(t, err)
	intruder, err := db.CreateUser(ctx, &models.User{Username: "intruder", Email: "intruder@x.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = db.CreateUser(ctx, &models.User{Username: "other", Email: "owner@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, storage.ErrUserExists)

	contact, err := db.CreateContact(ctx, &models.Contact{Name: "Al", Email: "al@x.com", Phone: "123", UserID: owner.ID})
	require.NoError(t, err)
	_, err = uuid.Parse(contact.ID)
	require.NoError(t, err)

	_, err = db.FindContact(ctx, intruder.ID, contact.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = db.UpdateContact(ctx, intruder.ID, contact.ID, models.ContactPatch{Name: strPtr("Eve")})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = db.DeleteContact(ctx, intruder.ID, contact.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	updated, err := db.UpdateContact(ctx, owner.ID, contact.ID, models.ContactPatch{Name: strPtr("Alan")})
	require.NoError(t, err)
	assert.Equal(t, "Alan", updated.Name)
	assert.Equal(t, "123", updated.Phone)

	deleted, err := db.DeleteContact(ctx, owner.ID, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, contact.ID, deleted.ID)

	_, err = db.DeleteContact(ctx, owner.ID, contact.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
