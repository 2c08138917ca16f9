// Package service implements the business rules of the contact book:
// registration and login in UserService, owner-scoped contact CRUD in
// ContactService. Every method returns apperr kinds for client faults and
// wrapped errors for everything else.
package service

import (
	"context"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/patric-chuzhbe/contactbook/internal/apperr"
)

const (
	msgAllFieldsMandatory = "All fields are mandatory"
	msgUserExists         = "User already exists"
	msgPasswordTooLong    = "Password is too long"
	msgInvalidCredentials = "Invalid email or password"
	msgTooManyAttempts    = "Too many login attempts"
	msgInvalidContactID   = "Invalid contact id"
	msgContactNotFound    = "Contact not found"
	msgContactNotOwned    = "Contact not found or user doesn't have permission"
	msgEmptyPatch         = "at least one field is required"
	msgContactDeleted     = "Contact deleted successfully"
	msgUnknownOwner       = "User is not authorized"
)

type pinger interface {
	Ping(ctx context.Context) error
}

var validate = validator.New()

func requireAll(request interface{}) error {
	if err := validate.Struct(request); err != nil {
		return apperr.Wrap(apperr.Validation(msgAllFieldsMandatory), err)
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// parseContactID rejects ids that cannot address any stored contact and
// returns the canonical form of the rest.
func parseContactID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", apperr.Wrap(apperr.Validation(msgInvalidContactID), err)
	}

	return parsed.String(), nil
}
