package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/contactbook/internal/apperr"
	"github.com/patric-chuzhbe/contactbook/internal/db/memorystorage"
	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/mockstorage"
	"github.com/patric-chuzhbe/contactbook/internal/models"
)

var (
	alice = models.Identity{ID: uuid.NewString(), Username: "alice", Email: "alice@x.com"}
	bob   = models.Identity{ID: uuid.NewString(), Username: "bob", Email: "bob@x.com"}
)

func strPtr(s string) *string {
	return &s
}

// newMemoryContacts returns a service over a fresh memory store holding two
// registered users.
func newMemoryContacts(t *testing.T) (*ContactService, models.Identity, models.Identity) {
	t.Helper()
	db, err := memorystorage.New()
	require.NoError(t, err)

	identities := make([]models.Identity, 0, 2)
	for _, username := range []string{"alice", "bob"} {
		usr, err := db.CreateUser(context.Background(), &models.User{
			Username:     username,
			Email:        username + "@x.com",
			PasswordHash: "hash-" + username,
		})
		require.NoError(t, err)
		identities = append(identities, models.Identity{ID: usr.ID, Username: usr.Username, Email: usr.Email})
	}

	return NewContactService(db), identities[0], identities[1]
}

func createContact(t *testing.T, s *ContactService, owner models.Identity, name string) *models.Contact {
	t.Helper()
	created, err := s.Create(context.Background(), owner, models.CreateContactRequest{
		Name:  name,
		Email: name + "@x.com",
		Phone: "555-0100",
	})
	require.NoError(t, err)
	return created
}

func TestContactServiceCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, alice, _ := newMemoryContacts(t)

	created := createContact(t, s, alice, "bo")
	assert.Equal(t, alice.ID, created.UserID)
	assert.NotEmpty(t, created.ID)

	found, err := s.Get(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func TestContactServiceCreateForUnknownOwner(t *testing.T) {
	s, _, _ := newMemoryContacts(t)
	ghost := models.Identity{ID: uuid.NewString(), Username: "ghost", Email: "ghost@x.com"}

	_, err := s.Create(context.Background(), ghost, models.CreateContactRequest{Name: "bo", Email: "bo@x.com", Phone: "555-0100"})

	assert.ErrorIs(t, err, apperr.ErrAuthentication)
	assert.ErrorIs(t, err, storage.ErrOwnerNotFound)
	assert.Equal(t, 401, apperr.StatusCode(err))
	assert.Equal(t, "User is not authorized", apperr.Message(err))
}

func TestContactServiceCreateRequiresAllFields(t *testing.T) {
	db := new(mockstorage.StorageMock)
	s := NewContactService(db)

	_, err := s.Create(context.Background(), alice, models.CreateContactRequest{Name: "bo", Email: "bo@x.com"})

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "All fields are mandatory", apperr.Message(err))
	db.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything)
}

func TestContactServiceOwnerIsolation(t *testing.T) {
	ctx := context.Background()
	s, alice, bob := newMemoryContacts(t)
	owned := createContact(t, s, alice, "bo")

	list, err := s.List(ctx, bob)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = s.Get(ctx, bob, owned.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Contact not found", apperr.Message(err))

	_, err = s.Update(ctx, bob, owned.ID, models.UpdateContactRequest{Name: strPtr("stolen")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Contact not found or user doesn't have permission", apperr.Message(err))

	_, err = s.Delete(ctx, bob, owned.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	unchanged, err := s.Get(ctx, alice, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, "bo", unchanged.Name)

	list, err = s.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestContactServiceNotOwnedMatchesMissing(t *testing.T) {
	ctx := context.Background()
	s, alice, bob := newMemoryContacts(t)
	owned := createContact(t, s, alice, "bo")

	_, errNotOwned := s.Get(ctx, bob, owned.ID)
	_, errMissing := s.Get(ctx, bob, uuid.NewString())

	assert.Equal(t, apperr.StatusCode(errMissing), apperr.StatusCode(errNotOwned))
	assert.Equal(t, apperr.Message(errMissing), apperr.Message(errNotOwned))
}

func TestContactServiceUpdate(t *testing.T) {
	ctx := context.Background()
	s, alice, _ := newMemoryContacts(t)
	owned := createContact(t, s, alice, "bo")

	updated, err := s.Update(ctx, alice, owned.ID, models.UpdateContactRequest{
		Phone: strPtr("555-0199"),
		Name:  strPtr(""),
	})
	require.NoError(t, err)

	assert.Equal(t, "555-0199", updated.Phone)
	assert.Equal(t, "bo", updated.Name, "empty strings keep the stored value")
	assert.Equal(t, owned.Email, updated.Email)
	assert.Equal(t, alice.ID, updated.UserID)
}

func TestContactServiceRejectsBeforeStoreAccess(t *testing.T) {
	ctx := context.Background()
	validID := uuid.NewString()

	type tTestCase struct {
		name    string
		call    func(s *ContactService) error
		message string
	}
	testCases := []tTestCase{
		{
			"get_malformed_id",
			func(s *ContactService) error { _, err := s.Get(ctx, alice, "not-a-uuid"); return err },
			"Invalid contact id",
		},
		{
			"update_malformed_id",
			func(s *ContactService) error {
				_, err := s.Update(ctx, alice, "123", models.UpdateContactRequest{Name: strPtr("x")})
				return err
			},
			"Invalid contact id",
		},
		{
			"delete_malformed_id",
			func(s *ContactService) error { _, err := s.Delete(ctx, alice, ""); return err },
			"Invalid contact id",
		},
		{
			"update_no_fields",
			func(s *ContactService) error {
				_, err := s.Update(ctx, alice, validID, models.UpdateContactRequest{})
				return err
			},
			"at least one field is required",
		},
		{
			"update_only_empty_fields",
			func(s *ContactService) error {
				_, err := s.Update(ctx, alice, validID, models.UpdateContactRequest{Email: strPtr("")})
				return err
			},
			"at least one field is required",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			db := new(mockstorage.StorageMock)
			s := NewContactService(db)

			err := testCase.call(s)

			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, testCase.message, apperr.Message(err))
			db.AssertNotCalled(t, "FindContact", mock.Anything, mock.Anything, mock.Anything)
			db.AssertNotCalled(t, "UpdateContact", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			db.AssertNotCalled(t, "DeleteContact", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestContactServiceDeleteTwice(t *testing.T) {
	ctx := context.Background()
	s, alice, _ := newMemoryContacts(t)
	owned := createContact(t, s, alice, "bo")

	response, err := s.Delete(ctx, alice, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, "Contact deleted successfully", response.Message)
	assert.Equal(t, owned.ID, response.Contact.ID)

	_, err = s.Delete(ctx, alice, owned.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestContactServicePassesCanonicalIDAndOwner(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	db := new(mockstorage.StorageMock)
	db.On("FindContact", mock.Anything, alice.ID, id.String()).
		Return(&models.Contact{ID: id.String(), UserID: alice.ID}, nil)
	s := NewContactService(db)

	contact, err := s.Get(ctx, alice, "{"+id.String()+"}")

	require.NoError(t, err)
	assert.Equal(t, id.String(), contact.ID)
	db.AssertExpectations(t)
}

func TestContactServiceStoreFailure(t *testing.T) {
	ctx := context.Background()
	db := new(mockstorage.StorageMock)
	db.On("ListContacts", mock.Anything, alice.ID).Return(nil, errors.New("db error"))
	db.On("FindContact", mock.Anything, alice.ID, mock.Anything).Return(nil, errors.New("db error"))
	s := NewContactService(db)

	_, err := s.List(ctx, alice)
	require.Error(t, err)
	assert.Equal(t, 500, apperr.StatusCode(err))

	_, err = s.Get(ctx, alice, uuid.NewString())
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, "Internal server error", apperr.Message(err))
}
