package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/photoshare/internal/auth"
	"github.com/sakif/photoshare/internal/model"
	"github.com/sakif/photoshare/internal/presence"
	"github.com/sakif/photoshare/internal/repository/sqlite"
	"github.com/sakif/photoshare/internal/service"
	"github.com/sakif/photoshare/internal/storage"
)

// testEnv is the real stack (in-memory SQLite, temp-dir image store) behind
// a chi router carrying the same routes as the server. Authentication is
// faked per request with asUser.
type testEnv struct {
	db       *sqlite.DB
	registry *presence.Registry
	router   chi.Router
	users    *service.UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	images, err := storage.NewLocalStore(filepath.Join(dir, "images"), filepath.Join(dir, "thumbs"), 32)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(4)

	registry := presence.NewRegistry()
	notifier := service.NewMentionNotifier(db, db, registry, logger)

	authSvc := service.NewAuthService(db, tokens, passwords, logger)
	userSvc := service.NewUserService(db, db, images, passwords, logger)
	photoSvc := service.NewPhotoService(db, db, images, logger)
	commentSvc := service.NewCommentService(db, db, notifier, logger)
	favoriteSvc := service.NewFavoriteService(db, db, logger)

	authH := NewAuthHandler(authSvc, nil, false, logger)
	userH := NewUserHandler(userSvc, logger)
	photoH := NewPhotoHandler(photoSvc, 1<<20, logger)
	commentH := NewCommentHandler(commentSvc, logger)
	favoriteH := NewFavoriteHandler(favoriteSvc, logger)

	r := chi.NewRouter()
	r.Post("/admin/login", authH.HandleLogin)
	r.Post("/admin/logout", authH.HandleLogout)
	r.Get("/admin/currentUser", authH.HandleCurrentUser)
	r.Post("/user", userH.HandleRegister)
	r.Get("/user/list", userH.HandleList)
	r.Get("/user/{id}", userH.HandleGet)
	r.Get("/user/{id}/counts", userH.HandleCounts)
	r.Get("/user/{id}/comments", userH.HandleComments)
	r.Delete("/user/{id}", userH.HandleDelete)
	r.Get("/photosOfUser/{id}", photoH.HandleListByOwner)
	r.Get("/photosOfUser/{id}/{index}", photoH.HandleByIndex)
	r.Post("/photos/new", photoH.HandleUpload)
	r.Delete("/photos/{photoId}", photoH.HandleDelete)
	r.Post("/commentsOfPhoto/{photoId}", commentH.HandleAdd)
	r.Delete("/commentsOfPhoto/{photoId}/{commentId}", commentH.HandleDelete)
	r.Get("/favorites", favoriteH.HandleList)
	r.Post("/favorites", favoriteH.HandleAdd)
	r.Delete("/favorites/{photoId}", favoriteH.HandleRemove)
	r.Get("/favorites/check/{photoId}", favoriteH.HandleCheck)

	return &testEnv{db: db, registry: registry, router: r, users: userSvc}
}

// do serves a request as userID ("" for anonymous) and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return e.serve(req, userID)
}

func (e *testEnv) serve(req *http.Request, userID string) *httptest.ResponseRecorder {
	if userID != "" {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, login, first, last string) *model.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), service.RegisterInput{
		LoginName: login,
		Password:  "secret",
		FirstName: first,
		LastName:  last,
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) photo(t *testing.T, ownerID, fileName string) *model.Photo {
	t.Helper()
	p := &model.Photo{UserID: ownerID, FileName: fileName}
	require.NoError(t, e.db.CreatePhoto(context.Background(), p))
	return p
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func multipartPNG(t *testing.T, field string) (*bytes.Buffer, string) {
	t.Helper()
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 8, 8))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "pic.png")
	require.NoError(t, err)
	_, err = fw.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}
