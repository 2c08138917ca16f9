package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/contactbook/internal/apperr"
	"github.com/patric-chuzhbe/contactbook/internal/auth"
	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/limiter"
	"github.com/patric-chuzhbe/contactbook/internal/logger"
	"github.com/patric-chuzhbe/contactbook/internal/models"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type tokenIssuer interface {
	Issue(identity models.Identity) (string, error)
}

type loginLimiter interface {
	Reserve(ctx context.Context, email, ip string) error
	Release(ctx context.Context, email, ip string) error
}

// UserService registers accounts and exchanges credentials for access tokens.
type UserService struct {
	db      userKeeper
	issuer  tokenIssuer
	limiter loginLimiter
}

type UserServiceOption func(*UserService)

// WithLoginLimiter enables throttling of failed logins.
func WithLoginLimiter(l loginLimiter) UserServiceOption {
	return func(s *UserService) {
		s.limiter = l
	}
}

func NewUserService(db userKeeper, issuer tokenIssuer, optionsProto ...UserServiceOption) *UserService {
	s := &UserService{
		db:     db,
		issuer: issuer,
	}
	for _, protoOption := range optionsProto {
		protoOption(s)
	}

	return s
}

// Register creates an account. The password is stored as a bcrypt hash only.
func (s *UserService) Register(ctx context.Context, request models.RegisterRequest) (models.RegisterResponse, error) {
	if err := requireAll(request); err != nil {
		return models.RegisterResponse{}, err
	}

	hash, err := auth.HashPassword(request.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return models.RegisterResponse{}, apperr.Validation(msgPasswordTooLong)
	}
	if err != nil {
		return models.RegisterResponse{}, fmt.Errorf("in internal/service/users.go/Register(): error while `auth.HashPassword()` calling: %w", err)
	}

	created, err := s.db.CreateUser(ctx, &models.User{
		Username:     request.Username,
		Email:        normalizeEmail(request.Email),
		PasswordHash: hash,
	})
	if errors.Is(err, storage.ErrUserExists) {
		return models.RegisterResponse{}, apperr.Wrap(apperr.Validation(msgUserExists), err)
	}
	if err != nil {
		return models.RegisterResponse{}, fmt.Errorf("in internal/service/users.go/Register(): error while `s.db.CreateUser()` calling: %w", err)
	}

	return models.RegisterResponse{
		ID:       created.ID,
		Username: created.Username,
		Email:    created.Email,
	}, nil
}

// Login verifies the credentials and issues an access token. Unknown email
// and wrong password fail identically and both consume a throttle attempt.
// clientIP may be empty, which disables the per-IP throttle.
func (s *UserService) Login(ctx context.Context, request models.LoginRequest, clientIP string) (models.LoginResponse, error) {
	if err := requireAll(request); err != nil {
		return models.LoginResponse{}, err
	}
	email := normalizeEmail(request.Email)

	reserved, err := s.reserveAttempt(ctx, email, clientIP)
	if err != nil {
		return models.LoginResponse{}, err
	}

	usr, err := s.db.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.releaseAttempt(ctx, reserved, email, clientIP)
		return models.LoginResponse{}, fmt.Errorf("in internal/service/users.go/Login(): error while `s.db.GetUserByEmail()` calling: %w", err)
	}

	passwordHash := dummyPasswordHash()
	if usr != nil {
		passwordHash = usr.PasswordHash
	}
	if !auth.ComparePassword(passwordHash, request.Password) || usr == nil {
		return models.LoginResponse{}, apperr.Authentication(msgInvalidCredentials)
	}

	token, err := s.issuer.Issue(models.Identity{
		ID:       usr.ID,
		Username: usr.Username,
		Email:    usr.Email,
	})
	s.releaseAttempt(ctx, reserved, email, clientIP)
	if err != nil {
		return models.LoginResponse{}, fmt.Errorf("in internal/service/users.go/Login(): error while `s.issuer.Issue()` calling: %w", err)
	}

	return models.LoginResponse{AccessToken: token}, nil
}

// Current returns the caller as asserted by the access token. The store is
// not consulted.
func (s *UserService) Current(identity models.Identity) models.Identity {
	return identity
}

// reserveAttempt counts the attempt before any credential work, so parallel
// guesses cannot outrun the limit. It fails open: an unavailable limiter
// never blocks a login and reports reserved=false.
func (s *UserService) reserveAttempt(ctx context.Context, email, clientIP string) (bool, error) {
	if s.limiter == nil {
		return false, nil
	}

	err := s.limiter.Reserve(ctx, email, clientIP)
	if errors.Is(err, limiter.ErrLoginRateLimited) {
		return false, apperr.Wrap(apperr.RateLimited(msgTooManyAttempts), err)
	}
	if err != nil {
		logger.Log.Warnw("login limiter unavailable", zap.Error(err))
		return false, nil
	}

	return true, nil
}

// releaseAttempt returns a reserved attempt that did not end in a credential
// failure.
func (s *UserService) releaseAttempt(ctx context.Context, reserved bool, email, clientIP string) {
	if !reserved {
		return
	}
	if err := s.limiter.Release(ctx, email, clientIP); err != nil {
		logger.Log.Warnw("login limiter release failed", zap.Error(err))
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// dummyPasswordHash is compared against when the email is unknown so that
// both failure paths spend the same bcrypt work.
func dummyPasswordHash() string {
	dummyHashOnce.Do(func() {
		hash, err := auth.HashPassword("contactbook-dummy-password")
		if err != nil {
			logger.Log.Errorw("dummy password hash generation failed", zap.Error(err))
			return
		}
		dummyHash = hash
	})

	return dummyHash
}
