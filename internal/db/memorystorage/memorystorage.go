// Package memorystorage is a process-local storage backend used for tests
// and for running the service without a database.
package memorystorage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/models"
)

// MemoryStorage keeps users and contacts in maps guarded by one mutex.
// Every owner-scoped operation matches and mutates under a single lock hold.
type MemoryStorage struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	contacts map[string]*models.Contact
	now      func() time.Time
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		users:    map[string]*models.User{},
		contacts: map[string]*models.Contact{},
		now:      time.Now,
	}, nil
}

func (s *MemoryStorage) CreateUser(ctx context.Context, usr *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == usr.Email || existing.Username == usr.Username {
			return nil, storage.ErrUserExists
		}
	}

	created := *usr
	created.ID = uuid.New().String()
	created.CreatedAt = s.now().UTC()
	s.users[created.ID] = &created

	result := created
	return &result, nil
}

func (s *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, usr := range s.users {
		if usr.Email == email {
			result := *usr
			return &result, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (s *MemoryStorage) ListContacts(ctx context.Context, userID string) ([]models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.Contact{}
	for _, contact := range s.contacts {
		if contact.UserID == userID {
			result = append(result, *contact)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *MemoryStorage) CreateContact(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[contact.UserID]; !ok {
		return nil, storage.ErrOwnerNotFound
	}

	now := s.now().UTC()
	created := *contact
	created.ID = uuid.New().String()
	created.CreatedAt = now
	created.UpdatedAt = now
	s.contacts[created.ID] = &created

	result := created
	return &result, nil
}

func (s *MemoryStorage) FindContact(ctx context.Context, userID, contactID string) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contact, ok := s.contacts[contactID]
	if !ok || contact.UserID != userID {
		return nil, storage.ErrNotFound
	}

	result := *contact
	return &result, nil
}

func (s *MemoryStorage) UpdateContact(
	ctx context.Context,
	userID,
	contactID string,
	patch models.ContactPatch,
) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contact, ok := s.contacts[contactID]
	if !ok || contact.UserID != userID {
		return nil, storage.ErrNotFound
	}

	if patch.Name != nil {
		contact.Name = *patch.Name
	}
	if patch.Email != nil {
		contact.Email = *patch.Email
	}
	if patch.Phone != nil {
		contact.Phone = *patch.Phone
	}
	contact.UpdatedAt = s.now().UTC()

	result := *contact
	return &result, nil
}

func (s *MemoryStorage) DeleteContact(ctx context.Context, userID, contactID string) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contact, ok := s.contacts[contactID]
	if !ok || contact.UserID != userID {
		return nil, storage.ErrNotFound
	}
	delete(s.contacts, contactID)

	return contact, nil
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
