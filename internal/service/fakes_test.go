package service_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/steavenspr/auth-api-prototype/internal/model"
	"github.com/steavenspr/auth-api-prototype/internal/queue"
	"github.com/steavenspr/auth-api-prototype/internal/repository"
	"github.com/steavenspr/auth-api-prototype/internal/service"
	"github.com/steavenspr/auth-api-prototype/internal/utils"
	"github.com/steavenspr/auth-api-prototype/internal/validation"
)

const strongPassword = "Str0ngPass!23"

// memUsers is an in-memory users table.  Create checks and inserts under
// one lock, which is what the unique index gives the MySQL store.
type memUsers struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.User
	fail   error
}

func newMemUsers() *memUsers {
	return &memUsers{rows: make(map[uint64]model.User)}
}

func (m *memUsers) setFail(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

func (m *memUsers) Create(_ context.Context, name, email, hash string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return model.User{}, m.fail
	}
	for _, u := range m.rows {
		if u.Email == email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	m.nextID++
	now := time.Now().UTC()
	u := model.User{ID: m.nextID, Name: name, Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	m.rows[u.ID] = u
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return model.User{}, m.fail
	}
	for _, u := range m.rows {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return model.User{}, m.fail
	}
	u, ok := m.rows[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) List(_ context.Context, page, pageSize int) ([]model.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, 0, m.fail
	}
	all := make([]model.User, 0, len(m.rows))
	for _, u := range m.rows {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	start := (page - 1) * pageSize
	if start >= len(all) {
		return []model.User{}, len(all), nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (m *memUsers) Update(_ context.Context, id uint64, upd model.UserUpdate) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return model.User{}, m.fail
	}
	u, ok := m.rows[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	if upd.Email != nil {
		for _, other := range m.rows {
			if other.ID != id && other.Email == *upd.Email {
				return model.User{}, repository.ErrEmailExists
			}
		}
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	u.UpdatedAt = time.Now().UTC()
	m.rows[id] = u
	return u, nil
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.rows[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type publishedEvent struct {
	routingKey string
	event      queue.AccountEvent
}

// recordingPublisher captures published events; fail makes every publish
// return an error.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	fail   error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	ev, _ := event.(queue.AccountEvent)
	p.events = append(p.events, publishedEvent{routingKey: routingKey, event: ev})
	return nil
}

func (p *recordingPublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

// failingRevocations is a revocation set whose backend is down.
type failingRevocations struct{ err error }

func (f failingRevocations) Revoke(context.Context, string, time.Time) error { return f.err }

func (f failingRevocations) IsRevoked(context.Context, string) (bool, error) { return false, f.err }

type fixture struct {
	auth        *service.AuthService
	users       *service.UserService
	store       *memUsers
	tokens      *utils.TokenAuthority
	hasher      *utils.BcryptHasher
	revocations utils.RevocationSet
	events      *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, repository.NewMemoryRevocationStore())
}

func newFixtureWith(t *testing.T, revocations utils.RevocationSet) *fixture {
	t.Helper()
	store := newMemUsers()
	hasher := utils.NewBcryptHasher(bcrypt.MinCost)
	validator := validation.NewCredentialValidator("")
	tokens := utils.NewTokenAuthority("service-test-secret", time.Hour, revocations)
	events := &recordingPublisher{}

	auth, err := service.NewAuthService(store, tokens, hasher, validator, events, nil)
	require.NoError(t, err)
	users, err := service.NewUserService(store, hasher, validator, events, nil)
	require.NoError(t, err)

	return &fixture{
		auth:        auth,
		users:       users,
		store:       store,
		tokens:      tokens,
		hasher:      hasher,
		revocations: revocations,
		events:      events,
	}
}
