package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-bff/internal/cache"
	"storefront-bff/internal/models"
	"storefront-bff/internal/services"
)

type fakeAPI struct {
	meCalls  atomic.Int32
	user     *models.User
	meErr    error
	loginErr error
}

func (f *fakeAPI) Login(_ context.Context, email, _ string) (*models.AuthResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.AuthResponse{User: &models.User{ID: "u1", Email: email}, Token: "fresh"}, nil
}

func (f *fakeAPI) VerifyGoogleToken(context.Context, string) (*models.AuthResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.AuthResponse{User: &models.User{ID: "g1", Email: "g@shop.test"}, Token: "google"}, nil
}

func (f *fakeAPI) Me(context.Context, string) (*models.User, error) {
	f.meCalls.Add(1)
	return f.user, f.meErr
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func redisTokens(t *testing.T) (*cache.TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { c.Close() })
	return c.TokenStore("v1"), mr
}

func TestNewSessionIsLoading(t *testing.T) {
	s := NewSession(&MemoryTokenStore{}, &fakeAPI{})
	assert.Equal(t, StatusLoading, s.Snapshot().Status)
}

func TestRestore_NoToken(t *testing.T) {
	api := &fakeAPI{}
	s := NewSession(&MemoryTokenStore{}, api)

	s.Restore(context.Background())

	assert.Equal(t, StatusAnonymous, s.Snapshot().Status)
	assert.Equal(t, int32(0), api.meCalls.Load())
}

func TestRestore_ValidToken(t *testing.T) {
	store := &MemoryTokenStore{}
	token := signed(t, time.Now().Add(time.Hour))
	require.NoError(t, store.Save(context.Background(), token))
	s := NewSession(store, &fakeAPI{user: &models.User{ID: "u1", Email: "a@b.c"}})

	s.Restore(context.Background())

	snap := s.Snapshot()
	assert.Equal(t, StatusAuthenticated, snap.Status)
	assert.Equal(t, "u1", snap.User.ID)
	assert.Equal(t, token, s.Token())
}

func TestRestore_RejectedTokenIsPurged(t *testing.T) {
	store, mr := redisTokens(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "opaque-token"))
	api := &fakeAPI{meErr: &services.APIError{Status: 401, Message: "invalid token"}}
	s := NewSession(store, api)

	s.Restore(ctx)

	assert.Equal(t, StatusAnonymous, s.Snapshot().Status)
	assert.Empty(t, s.Token())
	assert.False(t, mr.Exists("session:v1:authToken"))
	assert.Equal(t, int32(1), api.meCalls.Load())
}

func TestRestore_ExpiredTokenSkipsNetwork(t *testing.T) {
	store, mr := redisTokens(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, signed(t, time.Now().Add(-time.Minute))))
	api := &fakeAPI{user: &models.User{ID: "u1"}}
	s := NewSession(store, api)

	s.Restore(ctx)

	assert.Equal(t, StatusAnonymous, s.Snapshot().Status)
	assert.Equal(t, int32(0), api.meCalls.Load())
	assert.False(t, mr.Exists("session:v1:authToken"))
}

func TestLogin_Success(t *testing.T) {
	store := &MemoryTokenStore{}
	s := NewSession(store, &fakeAPI{})
	s.Restore(context.Background())

	require.NoError(t, s.Login(context.Background(), "a@b.c", "pw"))

	snap := s.Snapshot()
	assert.True(t, snap.Authenticated())
	assert.Equal(t, "a@b.c", snap.User.Email)
	stored, _ := store.Load(context.Background())
	assert.Equal(t, "fresh", stored)
}

func TestLogin_FailureMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &services.APIError{Status: 401, Message: "Invalid email or password"}, "Invalid email or password"},
		{"transport error", errors.New("dial tcp: connection refused"), "dial tcp: connection refused"},
		{"nothing useful", errors.New(""), "Login failed."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &MemoryTokenStore{}
			store.Save(context.Background(), "old")
			s := NewSession(store, &fakeAPI{loginErr: tc.err})

			err := s.Login(context.Background(), "a@b.c", "pw")

			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
			assert.Equal(t, StatusAnonymous, s.Snapshot().Status)
			stored, _ := store.Load(context.Background())
			assert.Empty(t, stored)
		})
	}
}

func TestLoginWithGoogle(t *testing.T) {
	s := NewSession(&MemoryTokenStore{}, &fakeAPI{})
	require.NoError(t, s.LoginWithGoogle(context.Background(), "id-token"))
	assert.Equal(t, "google", s.Token())

	s = NewSession(&MemoryTokenStore{}, &fakeAPI{loginErr: errors.New("")})
	err := s.LoginWithGoogle(context.Background(), "id-token")
	var le *LoginError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "Google Sign-In failed.", le.Message)
}

func TestLogout(t *testing.T) {
	store := &MemoryTokenStore{}
	s := NewSession(store, &fakeAPI{})
	require.NoError(t, s.Login(context.Background(), "a@b.c", "pw"))

	s.Logout(context.Background())

	assert.Equal(t, StatusAnonymous, s.Snapshot().Status)
	assert.Empty(t, s.Token())
	stored, _ := store.Load(context.Background())
	assert.Empty(t, stored)
}

func TestUnauthorizedSignsOut(t *testing.T) {
	store := &MemoryTokenStore{}
	s := NewSession(store, &fakeAPI{})
	require.NoError(t, s.Login(context.Background(), "a@b.c", "pw"))

	s.Unauthorized(context.Background())

	assert.Equal(t, StatusAnonymous, s.Snapshot().Status)
	stored, _ := store.Load(context.Background())
	assert.Empty(t, stored)
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, expired(signed(t, now.Add(-time.Second)), now))
	assert.False(t, expired(signed(t, now.Add(time.Hour)), now))
	assert.False(t, expired("not-a-jwt", now))
}
