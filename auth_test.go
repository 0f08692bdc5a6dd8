package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfstream/catalog/model"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]model.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]model.User), nextID: 1}
}

func (r *fakeUserRepo) Load(_ context.Context, id int64) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, ErrNoData
}

func (r *fakeUserRepo) Save(_ context.Context, u *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == 0 {
		u.ID = r.nextID
		r.nextID++
	}
	r.users[u.Username] = *u
	return u, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok || !u.IsActive {
		return model.User{}, ErrNoData
	}
	return u, nil
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	s, err := NewAuthService(
		WithAuthUserRepository(repo),
		WithAuthLogger(&NoopLogger{}),
	)
	require.NoError(t, err)
	return s, repo
}

func TestAuthServiceRegisterUser(t *testing.T) {
	s, _ := newTestAuthService(t)

	t.Run("valid registration", func(t *testing.T) {
		u, err := s.RegisterUser(context.Background(), "admin", "changeme-now", model.RoleAdmin)
		require.NoError(t, err)
		assert.NotZero(t, u.ID)
		assert.True(t, u.IsAdmin())
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := s.RegisterUser(context.Background(), "admin", "changeme-now", model.RoleUser)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := s.RegisterUser(context.Background(), "nobody", "changeme-now", "ROOT")
		assert.Error(t, err)
	})
}

func TestAuthServiceAuthenticate(t *testing.T) {
	s, _ := newTestAuthService(t)

	_, err := s.RegisterUser(context.Background(), "reader", "page-turner-9", model.RoleUser)
	require.NoError(t, err)

	t.Run("correct credentials", func(t *testing.T) {
		u, err := s.Authenticate(context.Background(), "reader", "page-turner-9")
		require.NoError(t, err)
		assert.Equal(t, "reader", u.Username)
		assert.False(t, u.IsAdmin())
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.Authenticate(context.Background(), "reader", "wrong")
		require.Error(t, err)
		assert.Equal(t, ErrCodeUnauthorized, CodeOf(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := s.Authenticate(context.Background(), "ghost", "whatever")
		require.Error(t, err)
		assert.Equal(t, ErrCodeUnauthorized, CodeOf(err))
	})

	t.Run("empty credentials", func(t *testing.T) {
		_, err := s.Authenticate(context.Background(), "", "")
		require.Error(t, err)
		assert.Equal(t, ErrCodeUnauthorized, CodeOf(err))
	})
}
