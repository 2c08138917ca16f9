// Package router exposes the contact book over HTTP. It decodes requests,
// calls the services with the authenticated identity and is the only place
// where errors are turned into status codes and JSON bodies.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/contactbook/internal/apperr"
	"github.com/patric-chuzhbe/contactbook/internal/auth"
	"github.com/patric-chuzhbe/contactbook/internal/gzippedhttp"
	"github.com/patric-chuzhbe/contactbook/internal/logger"
	"github.com/patric-chuzhbe/contactbook/internal/models"
)

type userService interface {
	Register(ctx context.Context, request models.RegisterRequest) (models.RegisterResponse, error)
	Login(ctx context.Context, request models.LoginRequest, clientIP string) (models.LoginResponse, error)
	Current(identity models.Identity) models.Identity
}

type contactService interface {
	List(ctx context.Context, identity models.Identity) ([]models.Contact, error)
	Create(ctx context.Context, identity models.Identity, request models.CreateContactRequest) (*models.Contact, error)
	Get(ctx context.Context, identity models.Identity, id string) (*models.Contact, error)
	Update(ctx context.Context, identity models.Identity, id string, request models.UpdateContactRequest) (*models.Contact, error)
	Delete(ctx context.Context, identity models.Identity, id string) (models.DeleteContactResponse, error)
	Ping(ctx context.Context) error
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
}

type clientIPResolver interface {
	ThrottleKey(request *http.Request) string
}

// ErrInvalidRequestBody is reported for bodies that are not valid JSON
// (or not valid gzip when announced as such).
var ErrInvalidRequestBody = apperr.Validation("Invalid request body")

// ErrRequestBodyTooLarge is reported when a body, after decompression,
// exceeds MaxRequestBodyBytes.
var ErrRequestBodyTooLarge = apperr.Validation("Request body is too large")

// MaxRequestBodyBytes caps every request body after decompression.
const MaxRequestBodyBytes = 1 << 20

// errMissingIdentity means a protected handler ran without the gate.
var errMissingIdentity = errors.New("no identity in request context")

// Router holds the dependencies of the HTTP handlers.
type Router struct {
	users    userService
	contacts contactService
	clientIP clientIPResolver
}

// New builds the chi mux serving the API.
func New(
	users userService,
	contacts contactService,
	authMiddleware authenticator,
	clientIP clientIPResolver,
) *chi.Mux {
	r := &Router{
		users:    users,
		contacts: contacts,
		clientIP: clientIP,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(logger.WithLoggingHTTPMiddleware)
	router.Use(middleware.Recoverer)
	router.Use(gzippedhttp.UngzipRequest(WriteError, ErrInvalidRequestBody))
	router.Use(limitRequestBody)
	router.Use(gzippedhttp.GzipResponse)

	router.NotFound(RouteNotFound)
	router.MethodNotAllowed(RouteNotFound)

	router.Get("/ping", r.GetPing)

	router.Route("/api/users", func(users chi.Router) {
		users.Post("/register", r.PostApiusersregister)
		users.Post("/login", r.PostApiuserslogin)
		users.With(authMiddleware.AuthenticateUser).Get("/current", r.GetApiuserscurrent)
	})

	router.Route("/api/contacts", func(contacts chi.Router) {
		contacts.Use(authMiddleware.AuthenticateUser)
		contacts.Get("/", r.GetApicontacts)
		contacts.Post("/", r.PostApicontacts)
		contacts.Get("/{id}", r.GetApicontactsID)
		contacts.Put("/{id}", r.PutApicontactsID)
		contacts.Delete("/{id}", r.DeleteApicontactsID)
	})

	return router
}

// WriteError translates err into its status code and a {"message"} body.
// Errors of unknown kind are logged and answered with a generic 500.
func WriteError(response http.ResponseWriter, request *http.Request, err error) {
	status := apperr.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Log.Errorw(
			"request failed with unhandled error",
			"request_id", middleware.GetReqID(request.Context()),
			"method", request.Method,
			"uri", request.RequestURI,
			zap.Error(err),
		)
	}

	writeJSON(response, status, models.ErrorResponse{Message: apperr.Message(err)})
}

// RouteNotFound answers every unmatched path or method.
func RouteNotFound(response http.ResponseWriter, request *http.Request) {
	writeJSON(response, http.StatusNotFound, models.RouteNotFoundResponse{
		Message: "Route not found",
		Path:    request.URL.Path,
		Method:  request.Method,
	})
}

func writeJSON(response http.ResponseWriter, status int, body interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(body); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}

// limitRequestBody runs after UngzipRequest so that the cap applies to the
// decompressed stream.
func limitRequestBody(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if request.Body != nil {
			request.Body = http.MaxBytesReader(response, request.Body, MaxRequestBodyBytes)
		}
		h.ServeHTTP(response, request)
	})
}

// decodeJSON reads the request body into target. An empty body leaves
// target zero so that the service reports the missing fields.
func decodeJSON(request *http.Request, target interface{}) error {
	err := json.NewDecoder(request.Body).Decode(target)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Wrap(ErrRequestBodyTooLarge, err)
	}

	return apperr.Wrap(ErrInvalidRequestBody, err)
}

func identityFrom(request *http.Request) (models.Identity, error) {
	identity, ok := auth.IdentityFromContext(request.Context())
	if !ok {
		return models.Identity{}, errMissingIdentity
	}

	return identity, nil
}
