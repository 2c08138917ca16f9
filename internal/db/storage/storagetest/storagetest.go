// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/models"
)

func strPtr(s string) *string {
	return &s
}

// Run exercises s against the storage contract. s must be empty.
func Run(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	owner, err := s.CreateUser(ctx, &models.User{Username: "owner", Email: "owner@x.com", PasswordHash: "hash-1"})
	require.NoError(t, err)
	intruder, err := s.CreateUser(ctx, &models.User{Username: "intruder", Email: "intruder@x.com", PasswordHash: "hash-2"})
	require.NoError(t, err)

	t.Run("users", func(t *testing.T) {
		_, err := uuid.Parse(owner.ID)
		assert.NoError(t, err)
		assert.NotEqual(t, owner.ID, intruder.ID)

		_, err = s.CreateUser(ctx, &models.User{Username: "someone", Email: "owner@x.com", PasswordHash: "h"})
		assert.ErrorIs(t, err, storage.ErrUserExists)

		_, err = s.CreateUser(ctx, &models.User{Username: "owner", Email: "new@x.com", PasswordHash: "h"})
		assert.ErrorIs(t, err, storage.ErrUserExists)

		found, err := s.GetUserByEmail(ctx, "owner@x.com")
		require.NoError(t, err)
		assert.Equal(t, owner.ID, found.ID)
		assert.Equal(t, "hash-1", found.PasswordHash)

		_, err = s.GetUserByEmail(ctx, "ghost@x.com")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("owner_scoping", func(t *testing.T) {
		contacts, err := s.ListContacts(ctx, owner.ID)
		require.NoError(t, err)
		assert.NotNil(t, contacts)
		assert.Empty(t, contacts)

		created, err := s.CreateContact(ctx, &models.Contact{Name: "Al", Email: "al@x.com", Phone: "123", UserID: owner.ID})
		require.NoError(t, err)
		_, err = uuid.Parse(created.ID)
		require.NoError(t, err)
		assert.Equal(t, owner.ID, created.UserID)

		got, err := s.FindContact(ctx, owner.ID, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Al", got.Name)
		assert.Equal(t, "al@x.com", got.Email)
		assert.Equal(t, "123", got.Phone)

		_, err = s.FindContact(ctx, intruder.ID, created.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.UpdateContact(ctx, intruder.ID, created.ID, models.ContactPatch{Name: strPtr("Eve")})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.DeleteContact(ctx, intruder.ID, created.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		intruderContacts, err := s.ListContacts(ctx, intruder.ID)
		require.NoError(t, err)
		assert.Empty(t, intruderContacts)

		updated, err := s.UpdateContact(ctx, owner.ID, created.ID, models.ContactPatch{Phone: strPtr("456")})
		require.NoError(t, err)
		assert.Equal(t, "Al", updated.Name)
		assert.Equal(t, "456", updated.Phone)

		ownerContacts, err := s.ListContacts(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, ownerContacts, 1)
		assert.Equal(t, created.ID, ownerContacts[0].ID)

		deleted, err := s.DeleteContact(ctx, owner.ID, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, deleted.ID)
		assert.Equal(t, "456", deleted.Phone)

		_, err = s.DeleteContact(ctx, owner.ID, created.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.FindContact(ctx, owner.ID, uuid.New().String())
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("unknown_owner", func(t *testing.T) {
		_, err := s.CreateContact(ctx, &models.Contact{Name: "Ghost", UserID: uuid.New().String()})
		assert.ErrorIs(t, err, storage.ErrOwnerNotFound)

		contacts, err := s.ListContacts(ctx, owner.ID)
		require.NoError(t, err)
		for _, contact := range contacts {
			assert.NotEqual(t, "Ghost", contact.Name)
		}
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}
