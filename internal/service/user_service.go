package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/steavenspr/auth-api-prototype/internal/logging"
	"github.com/steavenspr/auth-api-prototype/internal/model"
	"github.com/steavenspr/auth-api-prototype/internal/queue"
	"github.com/steavenspr/auth-api-prototype/internal/repository"
	"github.com/steavenspr/auth-api-prototype/internal/validation"
)

// Page size bounds for list queries.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// UserDirectory is the persistence contract for user CRUD.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context, page, pageSize int) ([]model.User, int, error)
	Update(ctx context.Context, id uint64, upd model.UserUpdate) (model.User, error)
	Delete(ctx context.Context, id uint64) error
}

// UserPage is one page of a user listing.
type UserPage struct {
	Items    []model.User
	Total    int
	Page     int
	PageSize int
}

// UpdateInput holds the optional fields of a user update.  A nil field is
// left unchanged.
type UpdateInput struct {
	Name     *string
	Email    *string
	Password *string
}

// UserService implements list/get/update/delete on the users table.
type UserService struct {
	users     UserDirectory
	hasher    PasswordHasher
	validator *validation.CredentialValidator
	events    queue.Publisher
	log       *slog.Logger
}

func NewUserService(
	users UserDirectory,
	hasher PasswordHasher,
	validator *validation.CredentialValidator,
	events queue.Publisher,
	logger *slog.Logger,
) (*UserService, error) {
	switch {
	case users == nil:
		return nil, errors.New("user directory is required")
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
	return &UserService{users: users, hasher: hasher, validator: validator, events: events, log: logger}, nil
}

// NormalizePage clamps page to >= 1 and pageSize to [1, MaxPageSize],
// substituting DefaultPageSize for non-positive sizes.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// List returns one page of users ordered by id.
func (s *UserService) List(ctx context.Context, page, pageSize int) (UserPage, error) {
	page, pageSize = NormalizePage(page, pageSize)
	items, total, err := s.users.List(ctx, page, pageSize)
	if err != nil {
		return UserPage{}, storeError("list users", err)
	}
	return UserPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, accountNotFound(id)
		}
		return model.User{}, storeError("get user by id", err)
	}
	return u, nil
}

// Update validates and applies a partial update.  A new password is hashed
// before it reaches the store.
func (s *UserService) Update(ctx context.Context, id uint64, in UpdateInput) (model.User, error) {
	if errs := s.validator.ValidateUpdate(in.Name, in.Email, in.Password); errs != nil {
		return model.User{}, validationFailed(errs)
	}

	upd := model.UserUpdate{Name: in.Name, Email: in.Email}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return model.User{}, oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
		}
		upd.PasswordHash = &hash
	}

	u, err := s.users.Update(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return model.User{}, duplicateEmail()
		case errors.Is(err, repository.ErrUserNotFound):
			return model.User{}, accountNotFound(id)
		}
		return model.User{}, storeError("update user", err)
	}
	s.log.InfoContext(ctx, "account updated", "account_id", id)
	return u, nil
}

// Delete removes a user.  Tokens already issued to it keep verifying until
// they expire, but every account lookup through them fails with
// ErrAccountNotFound.
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return accountNotFound(id)
		}
		return storeError("delete user", err)
	}
	s.log.InfoContext(ctx, "account deleted", "account_id", id)
	publishAccountEvent(ctx, s.events, s.log, queue.AccountDeletedQueue, u)
	return nil
}

// publishAccountEvent is best effort: a broker failure is logged and never
// fails the operation that triggered it.
func publishAccountEvent(ctx context.Context, pub queue.Publisher, log *slog.Logger, routingKey string, u model.User) {
	ev := queue.AccountEvent{
		AccountID:  u.ID,
		Name:       u.Name,
		Email:      u.Email,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := pub.Publish(ctx, routingKey, ev); err != nil {
		log.WarnContext(ctx, "publish event failed", "event", routingKey, "account_id", u.ID, "error", err)
	}
}
