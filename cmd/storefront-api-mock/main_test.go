package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-bff/internal/models"
)

func newTestServer() *server {
	return &server{
		catalog: newCatalog(),
		tokens:  &tokenIssuer{secretKey: []byte("test"), ttl: time.Hour},
	}
}

func post(t *testing.T, h http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	s := newTestServer()
	h := s.routes()

	rec := post(t, h, "/api/auth/login", "", map[string]string{"email": "admin@shop.test", "password": "admin123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	user, err := s.tokens.parse(resp.Token)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	me := httptest.NewRecorder()
	h.ServeHTTP(me, req)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "admin@shop.test")
}

func TestLoginRejectsBadPassword(t *testing.T) {
	rec := post(t, newTestServer().routes(), "/api/auth/login", "", map[string]string{"email": "user@shop.test", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")
}

func TestAdminRoutesNeedAdminToken(t *testing.T) {
	s := newTestServer()
	h := s.routes()
	token, err := s.tokens.issue(models.User{ID: "u-1", Email: "user@shop.test"})
	require.NoError(t, err)

	rec := post(t, h, "/api/admin/products", token, models.ProductInput{Name: "X"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = post(t, h, "/api/admin/products", "", models.ProductInput{Name: "X"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	s := newTestServer()
	s.tokens.ttl = -time.Minute
	token, err := s.tokens.issue(models.User{ID: "u-1"})
	require.NoError(t, err)

	_, err = s.tokens.parse(token)
	assert.Error(t, err)
}

func TestCatalogCRUD(t *testing.T) {
	c := newCatalog()
	p := c.add(models.ProductInput{Name: "Orb", Category: models.CategoryGlow})
	assert.Len(t, c.list("glow"), 3)

	_, ok := c.update(p.ID, models.ProductInput{Name: "Orb II", Category: models.CategoryGlow})
	assert.True(t, ok)
	got, _ := c.get(p.ID)
	assert.Equal(t, "Orb II", got.Name)

	assert.True(t, c.remove(p.ID))
	assert.False(t, c.remove(p.ID))
	assert.Len(t, c.search("moon"), 1)
}
