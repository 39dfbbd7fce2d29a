package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/photoshare/internal/model"
)

func TestUploadPhoto(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "ada", "Ada", "Lovelace")

	body, contentType := multipartPNG(t, uploadField)
	req := httptest.NewRequest(http.MethodPost, "/photos/new", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.serve(req, a.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	photo := decode[model.Photo](t, rec)
	assert.Equal(t, a.ID, photo.UserID)
	assert.True(t, strings.HasSuffix(photo.FileName, ".png"))

	rec = env.do(t, http.MethodGet, "/photosOfUser/"+a.ID, a.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	photos := decode[[]model.PhotoView](t, rec)
	require.Len(t, photos, 1)
	assert.Equal(t, photo.ID, photos[0].ID)
}

func TestUploadPhoto_Errors(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "ada", "Ada", "Lovelace")

	// wrong field name
	body, contentType := multipartPNG(t, "file")
	req := httptest.NewRequest(http.MethodPost, "/photos/new", body)
	req.Header.Set("Content-Type", contentType)
	rec := env.serve(req, a.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// anonymous
	body, contentType = multipartPNG(t, uploadField)
	req = httptest.NewRequest(http.MethodPost, "/photos/new", body)
	req.Header.Set("Content-Type", contentType)
	rec = env.serve(req, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPhotosOfUser(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "ada", "Ada", "Lovelace")
	empty := env.register(t, "alan", "Alan", "Turing")
	env.photo(t, a.ID, "1.jpg")
	second := env.photo(t, a.ID, "2.jpg")

	rec := env.do(t, http.MethodGet, "/photosOfUser/"+a.ID+"/2", a.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, second.ID, decode[model.PhotoView](t, rec).ID)

	for _, path := range []string{
		"/photosOfUser/" + a.ID + "/3",
		"/photosOfUser/" + a.ID + "/0",
		"/photosOfUser/" + a.ID + "/two",
		"/photosOfUser/" + empty.ID,
		"/photosOfUser/bogus",
	} {
		rec := env.do(t, http.MethodGet, path, a.ID, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestDeletePhoto(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "ada", "Ada", "Lovelace")
	b := env.register(t, "alan", "Alan", "Turing")
	p := env.photo(t, a.ID, "1.jpg")

	rec := env.do(t, http.MethodDelete, "/photos/"+p.ID, b.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/photos/"+p.ID, a.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/photos/"+p.ID, a.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
