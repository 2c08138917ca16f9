package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/patric-chuzhbe/contactbook/internal/apperr"
	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/models"
)

type contactKeeper interface {
	ListContacts(ctx context.Context, userID string) ([]models.Contact, error)
	CreateContact(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	FindContact(ctx context.Context, userID, contactID string) (*models.Contact, error)
	UpdateContact(ctx context.Context, userID, contactID string, patch models.ContactPatch) (*models.Contact, error)
	DeleteContact(ctx context.Context, userID, contactID string) (*models.Contact, error)
}

type contactStorage interface {
	contactKeeper
	pinger
}

// ContactService is the owner-scoped contact CRUD. Every store call carries
// the caller's id, so a contact owned by somebody else is never seen.
type ContactService struct {
	db contactStorage
}

func NewContactService(db contactStorage) *ContactService {
	return &ContactService{
		db: db,
	}
}

// List returns the caller's contacts, never nil.
func (s *ContactService) List(ctx context.Context, identity models.Identity) ([]models.Contact, error) {
	contacts, err := s.db.ListContacts(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/contacts.go/List(): error while `s.db.ListContacts()` calling: %w", err)
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}

	return contacts, nil
}

// Create stores a contact owned by the caller. A token whose user no longer
// exists is rejected as unauthorized.
func (s *ContactService) Create(
	ctx context.Context,
	identity models.Identity,
	request models.CreateContactRequest,
) (*models.Contact, error) {
	if err := requireAll(request); err != nil {
		return nil, err
	}

	created, err := s.db.CreateContact(ctx, &models.Contact{
		Name:   request.Name,
		Email:  request.Email,
		Phone:  request.Phone,
		UserID: identity.ID,
	})
	if errors.Is(err, storage.ErrOwnerNotFound) {
		return nil, apperr.Wrap(apperr.Authentication(msgUnknownOwner), err)
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/contacts.go/Create(): error while `s.db.CreateContact()` calling: %w", err)
	}

	return created, nil
}

func (s *ContactService) Get(ctx context.Context, identity models.Identity, id string) (*models.Contact, error) {
	contactID, err := parseContactID(id)
	if err != nil {
		return nil, err
	}

	contact, err := s.db.FindContact(ctx, identity.ID, contactID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Wrap(apperr.NotFound(msgContactNotFound), err)
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/contacts.go/Get(): error while `s.db.FindContact()` calling: %w", err)
	}

	return contact, nil
}

// Update applies the non-empty fields of request. An update with nothing to
// change is rejected before the store is touched.
func (s *ContactService) Update(
	ctx context.Context,
	identity models.Identity,
	id string,
	request models.UpdateContactRequest,
) (*models.Contact, error) {
	contactID, err := parseContactID(id)
	if err != nil {
		return nil, err
	}

	patch := models.ContactPatch{
		Name:  nonEmpty(request.Name),
		Email: nonEmpty(request.Email),
		Phone: nonEmpty(request.Phone),
	}
	if patch.IsEmpty() {
		return nil, apperr.Validation(msgEmptyPatch)
	}

	updated, err := s.db.UpdateContact(ctx, identity.ID, contactID, patch)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Wrap(apperr.NotFound(msgContactNotOwned), err)
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/contacts.go/Update(): error while `s.db.UpdateContact()` calling: %w", err)
	}

	return updated, nil
}

func (s *ContactService) Delete(
	ctx context.Context,
	identity models.Identity,
	id string,
) (models.DeleteContactResponse, error) {
	contactID, err := parseContactID(id)
	if err != nil {
		return models.DeleteContactResponse{}, err
	}

	deleted, err := s.db.DeleteContact(ctx, identity.ID, contactID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.DeleteContactResponse{}, apperr.Wrap(apperr.NotFound(msgContactNotOwned), err)
	}
	if err != nil {
		return models.DeleteContactResponse{}, fmt.Errorf("in internal/service/contacts.go/Delete(): error while `s.db.DeleteContact()` calling: %w", err)
	}

	return models.DeleteContactResponse{
		Message: msgContactDeleted,
		Contact: deleted,
	}, nil
}

// Ping checks the health of the storage layer.
func (s *ContactService) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func nonEmpty(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}

	return value
}
