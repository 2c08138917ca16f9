package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/patric-chuzhbe/contactbook/internal/models"
)

// GetPing reports whether the storage is reachable.
func (r *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := r.contacts.Ping(request.Context()); err != nil {
		WriteError(response, request, err)
		return
	}

	response.WriteHeader(http.StatusOK)
}

func (r *Router) PostApiusersregister(response http.ResponseWriter, request *http.Request) {
	var body models.RegisterRequest
	if err := decodeJSON(request, &body); err != nil {
		WriteError(response, request, err)
		return
	}

	registered, err := r.users.Register(request.Context(), body)
	if err != nil {
		WriteError(response, request, err)
		return
	}

	writeJSON(response, http.StatusCreated, registered)
}

func (r *Router) PostApiuserslogin(response http.ResponseWriter, request *http.Request) {
	var body models.LoginRequest
	if err := decodeJSON(request, &body); err != nil {
		WriteError(response, request, err)
		return
	}

	token, err := r.users.Login(request.Context(), body, r.clientIP.ThrottleKey(request))
	if err != nil {
		WriteError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, token)
}

func (r *Router) GetApiuserscurrent(response http.ResponseWriter, request *http.Request) {
	identity, err := identityFrom(request)
	if err != nil {
		WriteError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, r.users.Current(identity))
}

func (r *Router) GetApicontacts(response http.ResponseWriter, request *http.Request) {
	identity, err := identityFrom(request)
	if err != nil {
		WriteError(response, request, err)
		return
	}

	contacts, err := r.contacts.List(request.Context(), identity)
	if err != nil {
		WriteError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, contacts)
}

// PostApicontacts creates a contact owned by the caller. Owner fields in
// the body are ignored.
func (r *Router) PostApicontacts(response http.ResponseWriter, request *http.Request) {
	identity, err := identityFrom(request)
	if err != nil {
		WriteError(response, request, err)
		return
	}

	var body models.CreateContactRequest
	if err := decodeJSON(request, &body); err != nil {
		WriteError(response, request, err)
		return
	}

	created, err := r.contacts.Create(request.Context(), identity, body)
	if err != nil {
		WriteError(response, request, err)
		return
	}

	writeJSON(response, http.StatusCreated, created)
}

func (r *Router) GetApicontactsID(response http.ResponseWriter, request *http.Request) {
	identity, err := identityFrom(request)
	if err != nil {
		WriteError(response, request, err)
		return
	}

	contact, err := r.contacts.Get(request.Context(), identity, chi.URLParam(request, "id"))
	if err != nil {
		WriteError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, contact)
}

func (r *Router) PutApicontactsID(response http.ResponseWriter, request *http.Request) {
	identity, err := identityFrom(request)
	if err != nil {
		WriteError(response, request, err)
		return
	}

	var body models.UpdateContactRequest
	if err := decodeJSON(request, &body); err != nil {
		WriteError(response, request, err)
		return
	}

	updated, err := r.contacts.Update(request.Context(), identity, chi.URLParam(request, "id"), body)
	if err != nil {
		WriteError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, updated)
}

func (r *Router) DeleteApicontactsID(response http.ResponseWriter, request *http.Request) {
	identity, err := identityFrom(request)
	if err != nil {
		WriteError(response, request, err)
		return
	}

	deleted, err := r.contacts.Delete(request.Context(), identity, chi.URLParam(request, "id"))
	if err != nil {
		WriteError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, deleted)
}
