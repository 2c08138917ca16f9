// Package mockstorage provides a testify-based mock implementation of
// storage.Storage for service and router tests.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/contactbook/internal/models"
)

// StorageMock is a testify mock that implements storage.Storage.
//
// Methods returning a pointer accept either a typed value or nil in Return:
//
//	db.On("FindContact", mock.Anything, userID, contactID).Return((*models.Contact)(nil), storage.ErrNotFound)
type StorageMock struct {
	mock.Mock
}

// CreateUser mocks inserting a new user.
func (m *StorageMock) CreateUser(ctx context.Context, usr *models.User) (*models.User, error) {
	args := m.Called(ctx, usr)
	created, _ := args.Get(0).(*models.User)
	return created, args.Error(1)
}

// GetUserByEmail mocks the credential lookup used at login.
func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Error(1)
}

func (m *StorageMock) ListContacts(ctx context.Context, userID string) ([]models.Contact, error) {
	args := m.Called(ctx, userID)
	contacts, _ := args.Get(0).([]models.Contact)
	return contacts, args.Error(1)
}

func (m *StorageMock) CreateContact(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	args := m.Called(ctx, contact)
	created, _ := args.Get(0).(*models.Contact)
	return created, args.Error(1)
}

func (m *StorageMock) FindContact(ctx context.Context, userID, contactID string) (*models.Contact, error) {
	args := m.Called(ctx, userID, contactID)
	contact, _ := args.Get(0).(*models.Contact)
	return contact, args.Error(1)
}

func (m *StorageMock) UpdateContact(
	ctx context.Context,
	userID,
	contactID string,
	patch models.ContactPatch,
) (*models.Contact, error) {
	args := m.Called(ctx, userID, contactID, patch)
	contact, _ := args.Get(0).(*models.Contact)
	return contact, args.Error(1)
}

func (m *StorageMock) DeleteContact(ctx context.Context, userID, contactID string) (*models.Contact, error) {
	args := m.Called(ctx, userID, contactID)
	contact, _ := args.Get(0).(*models.Contact)
	return contact, args.Error(1)
}

// Ping mocks the storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the storage.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
