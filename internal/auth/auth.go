// Package auth issues and verifies the signed access tokens and provides the
// HTTP middleware that authenticates requests carrying them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/contactbook/internal/apperr"
	"github.com/patric-chuzhbe/contactbook/internal/logger"
	"github.com/patric-chuzhbe/contactbook/internal/models"
)

// ErrInvalidToken covers every reason a token is refused: bad signature,
// wrong algorithm, expiry or malformed claims.
var ErrInvalidToken = errors.New("invalid access token")

// Claims represents the JWT claims used by the system.
// The subject is the user ID; User repeats it together with the username and email.
type Claims struct {
	jwt.RegisteredClaims
	User models.Identity `json:"user"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// IdentityKey is the context key holding the authenticated models.Identity.
const IdentityKey ContextKey = "identity"

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type IssuerOption func(*Issuer)

// WithClock replaces the clock used for the issued-at and expiry claims.
func WithClock(now func() time.Time) IssuerOption {
	return func(issuer *Issuer) {
		issuer.now = now
	}
}

func NewIssuer(secret []byte, ttl time.Duration, optionsProto ...IssuerOption) *Issuer {
	issuer := &Issuer{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, protoOption := range optionsProto {
		protoOption(issuer)
	}

	return issuer
}

// Issue returns a signed token asserting identity, valid for the issuer's TTL.
func (i *Issuer) Issue(identity models.Identity) (string, error) {
	issuedAt := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(i.ttl)),
		},
		User: identity,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/Issue(): error while `token.SignedString()` calling: %w", err)
	}

	return tokenString, nil
}

// Verify checks signature and expiry and returns the asserted identity.
// Any failure is reported as ErrInvalidToken.
func (i *Issuer) Verify(tokenString string) (models.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return i.secret, nil
		},
	)
	if err != nil || !token.Valid {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.ExpiresAt == nil || claims.Subject == "" || claims.Subject != claims.User.ID {
		return models.Identity{}, fmt.Errorf("%w: incomplete claims", ErrInvalidToken)
	}

	return claims.User, nil
}

type tokenVerifier interface {
	Verify(tokenString string) (models.Identity, error)
}

// ErrorResponder writes err as the response to request.
type ErrorResponder func(response http.ResponseWriter, request *http.Request, err error)

// Auth is the authorization gate in front of every protected route.
type Auth struct {
	verifier tokenVerifier
	respond  ErrorResponder
}

// New creates the gate. Rejections are written through respond.
func New(verifier tokenVerifier, respond ErrorResponder) *Auth {
	return &Auth{
		verifier: verifier,
		respond:  respond,
	}
}

// AuthenticateUser is an HTTP middleware that requires a valid bearer token
// and stores the identity it asserts in the request context.
// It fails closed: without a verified token the next handler never runs.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString, ok := bearerToken(request)
		if !ok {
			a.respond(response, request, apperr.Authentication("User is not authorized or token is missing"))
			return
		}

		identity, err := a.verifier.Verify(tokenString)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.verifier.Verify()`: ", zap.Error(err))
			a.respond(response, request, apperr.Authentication("User is not authorized"))
			return
		}

		h.ServeHTTP(response, request.WithContext(WithIdentity(request.Context(), identity)))
	}

	return http.HandlerFunc(middleware)
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// IdentityFromContext returns the identity stored by AuthenticateUser.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(models.Identity)
	if !ok || identity.ID == "" {
		return models.Identity{}, false
	}

	return identity, true
}

func bearerToken(request *http.Request) (string, bool) {
	header := request.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}
