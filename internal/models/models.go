// Package models holds the data shapes shared by the storage, service and
// router layers: persisted records and the JSON request/response bodies.
package models

import "time"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity is the authenticated caller as asserted by an access token.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Contact is a record owned by exactly one user.
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContactPatch carries the fields of a partial update. Nil means "keep".
type ContactPatch struct {
	Name  *string
	Email *string
	Phone *string
}

// Fields returns the present fields keyed by column name.
func (p ContactPatch) Fields() map[string]string {
	result := map[string]string{}
	if p.Name != nil {
		result["name"] = *p.Name
	}
	if p.Email != nil {
		result["email"] = *p.Email
	}
	if p.Phone != nil {
		result["phone"] = *p.Phone
	}

	return result
}

// IsEmpty reports whether no field is set.
func (p ContactPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
}

// CreateContactRequest deliberately has no owner field: any "user_id"
// sent by the client is dropped by the decoder.
type CreateContactRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

type UpdateContactRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

type DeleteContactResponse struct {
	Message string   `json:"message"`
	Contact *Contact `json:"contact"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type RouteNotFoundResponse struct {
	Message string `json:"message"`
	Path    string `json:"path"`
	Method  string `json:"method"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeSQLite
	StorageTypeMemory
)
