// Package service holds the account business logic.  It does not parse
// HTTP or format responses; handlers translate its error kinds into status
// codes.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/steavenspr/auth-api-prototype/internal/logging"
	"github.com/steavenspr/auth-api-prototype/internal/model"
	"github.com/steavenspr/auth-api-prototype/internal/queue"
	"github.com/steavenspr/auth-api-prototype/internal/repository"
	"github.com/steavenspr/auth-api-prototype/internal/utils"
	"github.com/steavenspr/auth-api-prototype/internal/validation"
)

// UserStore is the persistence contract the auth flow needs.  Create must
// return repository.ErrEmailExists when the email is taken; the lookups
// return repository.ErrUserNotFound when nothing matches.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenAuthority issues, verifies and revokes session tokens.
type TokenAuthority interface {
	Issue(accountID uint64) (utils.Token, error)
	Verify(ctx context.Context, raw string) (utils.Claims, error)
	Revoke(ctx context.Context, claims utils.Claims) error
}

// PasswordHasher derives and checks password digests.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// AuthService owns register, login, current-account and logout.
type AuthService struct {
	users     UserStore
	tokens    TokenAuthority
	hasher    PasswordHasher
	validator *validation.CredentialValidator
	events    queue.Publisher
	log       *slog.Logger

	// dummyHash is compared against when the email is unknown so that the
	// response time does not reveal whether the account exists.
	dummyHash string
}

// NewAuthService wires the service.  events and logger may be nil, in which
// case events are dropped and logs discarded.
func NewAuthService(
	users UserStore,
	tokens TokenAuthority,
	hasher PasswordHasher,
	validator *validation.CredentialValidator,
	events queue.Publisher,
	logger *slog.Logger,
) (*AuthService, error) {
	switch {
	case users == nil:
		return nil, errors.New("user store is required")
	case tokens == nil:
		return nil, errors.New("token authority is required")
	case hasher == nil:
		return nil, errors.New("password hasher is required")
	case validator == nil:
		return nil, errors.New("credential validator is required")
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	dummy, err := hasher.Hash("timing-equalizer-not-a-password")
	if err != nil {
		return nil, oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		hasher:    hasher,
		validator: validator,
		events:    events,
		log:       logger,
		dummyHash: dummy,
	}, nil
}

// Register creates an account and issues its first token.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (model.User, utils.Token, error) {
	if errs := s.validator.ValidateRegistration(name, email, password); errs != nil {
		return model.User{}, utils.Token{}, validationFailed(errs)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.User{}, utils.Token{}, oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}

	// The unique index decides; two concurrent registrations for one email
	// resolve to one row and one ErrEmailExists.
	u, err := s.users.Create(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, utils.Token{}, duplicateEmail()
		}
		return model.User{}, utils.Token{}, storeError("create user", err)
	}

	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return model.User{}, utils.Token{}, oops.Code("TOKEN_ISSUE_FAILED").With("account_id", u.ID).Wrap(err)
	}

	s.log.InfoContext(ctx, "account registered", "account_id", u.ID)
	publishAccountEvent(ctx, s.events, s.log, queue.AccountRegisteredQueue, u)
	return u, tok, nil
}

// Login authenticates by email and password and issues a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.User, utils.Token, error) {
	if errs := s.validator.ValidateLogin(email, password); errs != nil {
		return model.User{}, utils.Token{}, validationFailed(errs)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.Verify(s.dummyHash, password)
			return model.User{}, utils.Token{}, invalidCredentials()
		}
		return model.User{}, utils.Token{}, storeError("get user by email", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return model.User{}, utils.Token{}, invalidCredentials()
	}

	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return model.User{}, utils.Token{}, oops.Code("TOKEN_ISSUE_FAILED").With("account_id", u.ID).Wrap(err)
	}
	s.log.InfoContext(ctx, "account logged in", "account_id", u.ID)
	return u, tok, nil
}

// Authenticate verifies a presented token and returns its claims.  Every
// verification failure collapses into ErrInvalidToken.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (utils.Claims, error) {
	claims, err := s.tokens.Verify(ctx, raw)
	if err != nil {
		return utils.Claims{}, s.tokenFailure(ctx, err)
	}
	return claims, nil
}

// CurrentAccount returns the account bound to a valid token.
func (s *AuthService) CurrentAccount(ctx context.Context, raw string) (model.User, error) {
	claims, err := s.Authenticate(ctx, raw)
	if err != nil {
		return model.User{}, err
	}
	u, err := s.users.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, accountNotFound(claims.AccountID)
		}
		return model.User{}, storeError("get user by id", err)
	}
	return u, nil
}

// Logout revokes a token.  Logging out an already revoked token succeeds
// without doing anything.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	claims, err := s.tokens.Verify(ctx, raw)
	if err != nil {
		if utils.CauseOf(err) == utils.CauseRevoked {
			return nil
		}
		return s.tokenFailure(ctx, err)
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return storeError("revoke token", err)
	}
	s.log.InfoContext(ctx, "account logged out", "account_id", claims.AccountID)
	return nil
}

// tokenFailure maps a Verify error to the caller-visible kind.  The cause
// is only logged.
func (s *AuthService) tokenFailure(ctx context.Context, err error) error {
	if cause := utils.CauseOf(err); cause != 0 {
		s.log.DebugContext(ctx, "token rejected", "cause", cause.String())
		return invalidToken()
	}
	return storeError("verify token", err)
}
