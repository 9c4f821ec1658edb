package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/steavenspr/auth-api-prototype/internal/handler"
	"github.com/steavenspr/auth-api-prototype/internal/model"
	"github.com/steavenspr/auth-api-prototype/internal/repository"
	"github.com/steavenspr/auth-api-prototype/internal/router"
	"github.com/steavenspr/auth-api-prototype/internal/service"
	"github.com/steavenspr/auth-api-prototype/internal/utils"
	"github.com/steavenspr/auth-api-prototype/internal/validation"
)

// userTable is an in-memory users table with a unique email column.
type userTable struct {
	mu   sync.Mutex
	seq  uint64
	rows map[uint64]model.User
	fail error
}

func (t *userTable) Create(_ context.Context, name, email, hash string) (model.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		return model.User{}, t.fail
	}
	for _, u := range t.rows {
		if u.Email == email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	t.seq++
	now := time.Now().UTC().Truncate(time.Second)
	u := model.User{ID: t.seq, Name: name, Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	t.rows[u.ID] = u
	return u, nil
}

func (t *userTable) GetByEmail(_ context.Context, email string) (model.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		return model.User{}, t.fail
	}
	for _, u := range t.rows {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (t *userTable) GetByID(_ context.Context, id uint64) (model.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		return model.User{}, t.fail
	}
	if u, ok := t.rows[id]; ok {
		return u, nil
	}
	return model.User{}, repository.ErrUserNotFound
}

func (t *userTable) List(_ context.Context, page, pageSize int) ([]model.User, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	all := make([]model.User, 0, len(t.rows))
	for _, u := range t.rows {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, len(all), nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (t *userTable) Update(_ context.Context, id uint64, upd model.UserUpdate) (model.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.rows[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	if upd.Email != nil {
		for _, o := range t.rows {
			if o.ID != id && o.Email == *upd.Email {
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
	t.rows[id] = u
	return u, nil
}

func (t *userTable) Delete(_ context.Context, id uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(t.rows, id)
	return nil
}

type testServer struct {
	e     *echo.Echo
	users *userTable
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithCache(t, nil)
}

// newTestServerWithCache mounts cache on the register and users routes the
// way the server binary does.
func newTestServerWithCache(t *testing.T, cache echo.MiddlewareFunc) *testServer {
	t.Helper()
	users := &userTable{rows: make(map[uint64]model.User)}
	hasher := utils.NewBcryptHasher(bcrypt.MinCost)
	validator := validation.NewCredentialValidator("")
	tokens := utils.NewTokenAuthority("handler-test-secret", time.Hour, repository.NewMemoryRevocationStore())

	authSvc, err := service.NewAuthService(users, tokens, hasher, validator, nil, nil)
	require.NoError(t, err)
	userSvc, err := service.NewUserService(users, hasher, validator, nil, nil)
	require.NoError(t, err)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, nil), authSvc, cache, nil)
	router.RegisterUsers(e, handler.NewUserHandler(userSvc, nil), authSvc, cache, nil)
	return &testServer{e: e, users: users}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), "body: %s", rec.Body.String())
	return m
}

// register creates an account through the API and returns its token.
func (s *testServer) register(t *testing.T, name, email string) (uint64, string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "Str0ngPass!23",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	user := body["user"].(map[string]any)
	tok := body["token"].(map[string]any)
	return uint64(user["id"].(float64)), tok["token"].(string)
}
