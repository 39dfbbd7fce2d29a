package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/photoshare/internal/auth"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "ada", "Ada", "Lovelace")

	rec := env.do(t, http.MethodPost, "/admin/login", "", map[string]string{
		"login_name": "ada",
		"password":   "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[sessionUser](t, rec)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "ada", got.LoginName)

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	require.NotNil(t, session, "session cookie set")
	assert.True(t, session.HttpOnly)
	assert.NotEmpty(t, session.Value)
	assert.Equal(t, 3600, session.MaxAge)
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada", "Ada", "Lovelace")

	for _, body := range []map[string]string{
		{"login_name": "ada", "password": "wrong"},
		{"login_name": "nobody", "password": "secret"},
		{"login_name": "ada"},
	} {
		rec := env.do(t, http.MethodPost, "/admin/login", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "ada", "Ada", "Lovelace")

	rec := env.do(t, http.MethodPost, "/admin/logout", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/logout", u.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "ada", "Ada", "Lovelace")

	rec := env.do(t, http.MethodGet, "/admin/currentUser", u.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada", decode[sessionUser](t, rec).FirstName)

	rec = env.do(t, http.MethodGet, "/admin/currentUser", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
