// Package storage declares the contract shared by every storage backend
// and the errors they report.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/contactbook/internal/models"
)

var (
	// ErrNotFound is returned when no record matches the filter. For contacts
	// the filter always includes the owner, so a contact owned by somebody
	// else is reported the same way as a missing one.
	ErrNotFound = errors.New("record not found")

	// ErrUserExists is returned when the username or email is already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrOwnerNotFound is returned when a contact is created for a user that
	// does not exist.
	ErrOwnerNotFound = errors.New("contact owner not found")
)

// Storage is implemented by postgresdb, sqlitedb and memorystorage.
type Storage interface {
	CreateUser(ctx context.Context, usr *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	ListContacts(ctx context.Context, userID string) ([]models.Contact, error)
	CreateContact(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	FindContact(ctx context.Context, userID, contactID string) (*models.Contact, error)
	UpdateContact(ctx context.Context, userID, contactID string, patch models.ContactPatch) (*models.Contact, error)
	DeleteContact(ctx context.Context, userID, contactID string) (*models.Contact, error)

	Ping(ctx context.Context) error
	Close() error
}
