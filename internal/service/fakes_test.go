package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sakif/photoshare/internal/apperror"
	"github.com/sakif/photoshare/internal/model"
	"github.com/sakif/photoshare/internal/presence"
	"github.com/sakif/photoshare/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

var (
	_ repository.UserRepository     = (*fakeStore)(nil)
	_ repository.PhotoRepository    = (*fakeStore)(nil)
	_ repository.FavoriteRepository = (*fakeStore)(nil)
)

// fakeStore is an in-memory stand-in for the SQLite store. It keeps users
// and photos in insertion order and hands out copies, so callers cannot
// mutate what it holds.
type fakeStore struct {
	mu        sync.Mutex
	users     []*model.User
	photos    []*model.Photo
	favorites []model.Favorite

	// set to a non-nil error to simulate a database failure
	appendErr error
	// returned by GetPhotoByID once a comment has been appended
	reloadErr error
	appended  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func copyPhoto(p *model.Photo) model.Photo {
	out := *p
	out.Comments = make([]model.Comment, len(p.Comments))
	for i, c := range p.Comments {
		c.Mentions = append([]string{}, c.Mentions...)
		out.Comments[i] = c
	}
	return out
}

func (f *fakeStore) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createLocked(user)
}

func (f *fakeStore) createLocked(user *model.User) error {
	for _, u := range f.users {
		if u.LoginName == user.LoginName {
			return apperror.Conflict("user", user.LoginName)
		}
	}
	user.ID = model.NewID()
	user.CreatedAt = time.Now()
	copied := *user
	f.users = append(f.users, &copied)
	return nil
}

func (f *fakeStore) UpsertGitHub(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if user.GitHubID == nil {
		return errors.New("missing github id")
	}
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			u.FirstName, u.LastName = user.FirstName, user.LastName
			*user = *u
			return nil
		}
	}
	return f.createLocked(user)
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeStore) GetUserByLoginName(_ context.Context, loginName string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.LoginName == loginName {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", loginName)
}

func (f *fakeStore) ListUsers(_ context.Context) ([]model.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.UserSummary, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u.Summary())
	}
	return out, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := -1
	for i, u := range f.users {
		if u.ID == id {
			idx = i
		}
	}
	if idx < 0 {
		return apperror.NotFound("user", id)
	}
	f.users = append(f.users[:idx], f.users[idx+1:]...)

	kept := f.photos[:0]
	for _, p := range f.photos {
		if p.UserID == id {
			f.dropFavoritesLocked(func(fav model.Favorite) bool { return fav.PhotoID == p.ID })
			continue
		}
		comments := p.Comments[:0]
		for _, c := range p.Comments {
			if c.UserID != id {
				comments = append(comments, c)
			}
		}
		p.Comments = comments
		kept = append(kept, p)
	}
	f.photos = kept
	f.dropFavoritesLocked(func(fav model.Favorite) bool { return fav.UserID == id })
	return nil
}

func (f *fakeStore) dropFavoritesLocked(match func(model.Favorite) bool) {
	kept := f.favorites[:0]
	for _, fav := range f.favorites {
		if !match(fav) {
			kept = append(kept, fav)
		}
	}
	f.favorites = kept
}

func (f *fakeStore) photoLocked(id string) *model.Photo {
	for _, p := range f.photos {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (f *fakeStore) CreatePhoto(_ context.Context, photo *model.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	found := false
	for _, u := range f.users {
		found = found || u.ID == photo.UserID
	}
	if !found {
		return fmt.Errorf("owner %s does not exist", photo.UserID)
	}

	photo.ID = model.NewID()
	if photo.DateTime.IsZero() {
		photo.DateTime = time.Now()
	}
	photo.Comments = []model.Comment{}
	copied := copyPhoto(photo)
	f.photos = append(f.photos, &copied)
	return nil
}

func (f *fakeStore) GetPhotoByID(_ context.Context, id string) (*model.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reloadErr != nil && f.appended {
		return nil, f.reloadErr
	}
	p := f.photoLocked(id)
	if p == nil {
		return nil, apperror.NotFound("photo", id)
	}
	copied := copyPhoto(p)
	return &copied, nil
}

func (f *fakeStore) filterPhotos(keep func(*model.Photo) bool) []model.Photo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Photo, 0)
	for _, p := range f.photos {
		if keep(p) {
			out = append(out, copyPhoto(p))
		}
	}
	return out
}

func (f *fakeStore) ListPhotosByOwner(_ context.Context, ownerID string) ([]model.Photo, error) {
	return f.filterPhotos(func(p *model.Photo) bool { return p.UserID == ownerID }), nil
}

func (f *fakeStore) ListPhotoIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	photos, _ := f.ListPhotosByOwner(ctx, ownerID)
	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	return ids, nil
}

func (f *fakeStore) ListPhotosCommentedBy(_ context.Context, userID string) ([]model.Photo, error) {
	return f.filterPhotos(func(p *model.Photo) bool {
		for _, c := range p.Comments {
			if c.UserID == userID {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeStore) CountPhotosByOwner(ctx context.Context, ownerID string) (int, error) {
	photos, _ := f.ListPhotosByOwner(ctx, ownerID)
	return len(photos), nil
}

func (f *fakeStore) DeletePhoto(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.photos {
		if p.ID == id {
			f.photos = append(f.photos[:i], f.photos[i+1:]...)
			f.dropFavoritesLocked(func(fav model.Favorite) bool { return fav.PhotoID == id })
			return nil
		}
	}
	return apperror.NotFound("photo", id)
}

func (f *fakeStore) AppendComment(_ context.Context, photoID string, comment *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.appendErr != nil {
		return f.appendErr
	}
	p := f.photoLocked(photoID)
	if p == nil {
		return apperror.NotFound("photo", photoID)
	}

	comment.ID = model.NewID()
	comment.PhotoID = photoID
	if comment.DateTime.IsZero() {
		comment.DateTime = time.Now()
	}
	if comment.Mentions == nil {
		comment.Mentions = []string{}
	}
	stored := *comment
	stored.Mentions = append([]string{}, comment.Mentions...)
	p.Comments = append(p.Comments, stored)
	f.appended = true
	return nil
}

func (f *fakeStore) GetComment(_ context.Context, photoID, commentID string) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.photoLocked(photoID); p != nil {
		for _, c := range p.Comments {
			if c.ID == commentID {
				return &c, nil
			}
		}
	}
	return nil, apperror.NotFound("comment", commentID)
}

func (f *fakeStore) DeleteComment(_ context.Context, photoID, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.photoLocked(photoID); p != nil {
		for i, c := range p.Comments {
			if c.ID == commentID {
				p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
				return nil
			}
		}
	}
	return apperror.NotFound("comment", commentID)
}

func (f *fakeStore) CountCommentsByAuthor(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.photos {
		for _, c := range p.Comments {
			if c.UserID == userID {
				n++
			}
		}
	}
	return n, nil
}

func (f *fakeStore) commentCount(photoID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.photoLocked(photoID); p != nil {
		return len(p.Comments)
	}
	return 0
}

func (f *fakeStore) AddFavorite(_ context.Context, fav *model.Favorite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.favorites {
		if existing.UserID == fav.UserID && existing.PhotoID == fav.PhotoID {
			return apperror.Conflict("favorite", fav.PhotoID)
		}
	}
	f.favorites = append(f.favorites, *fav)
	return nil
}

func (f *fakeStore) RemoveFavorite(_ context.Context, userID, photoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, fav := range f.favorites {
		if fav.UserID == userID && fav.PhotoID == photoID {
			f.favorites = append(f.favorites[:i], f.favorites[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("favorite", photoID)
}

func (f *fakeStore) IsFavorite(_ context.Context, userID, photoID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fav := range f.favorites {
		if fav.UserID == userID && fav.PhotoID == photoID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListFavoritePhotos(_ context.Context, userID string) ([]model.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Photo, 0)
	for i := len(f.favorites) - 1; i >= 0; i-- {
		fav := f.favorites[i]
		if fav.UserID != userID {
			continue
		}
		if p := f.photoLocked(fav.PhotoID); p != nil {
			copied := copyPhoto(p)
			copied.Comments = []model.Comment{}
			out = append(out, copied)
		}
	}
	return out, nil
}

// fakeDeliverer records every delivery attempt. online says how many
// connections are watching each user.
type fakeDeliverer struct {
	mu     sync.Mutex
	online map[string]int
	sent   []delivery
}

type delivery struct {
	userID string
	msg    presence.Message
}

func newFakeDeliverer(online ...string) *fakeDeliverer {
	d := &fakeDeliverer{online: make(map[string]int)}
	for _, id := range online {
		d.online[id]++
	}
	return d
}

func (d *fakeDeliverer) Deliver(userID string, msg presence.Message) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, delivery{userID: userID, msg: msg})
	return d.online[userID]
}

func (d *fakeDeliverer) deliveries() []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]delivery(nil), d.sent...)
}

// fakeImages is an ImageStore that keeps file names in memory.
type fakeImages struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr error
}

func newFakeImages() *fakeImages {
	return &fakeImages{files: make(map[string][]byte)}
}

func (f *fakeImages) Save(r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	name := "U" + model.NewID() + ".jpg"
	f.files[name] = buf.Bytes()
	return name, nil
}

func (f *fakeImages) Delete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, name)
	return nil
}

func (f *fakeImages) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[name]
	return ok
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedUser(t *testing.T, store *fakeStore, first, last string) *model.User {
	t.Helper()
	u := &model.User{LoginName: first + "." + last, FirstName: first, LastName: last}
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u
}

func seedPhoto(t *testing.T, store *fakeStore, ownerID, fileName string) *model.Photo {
	t.Helper()
	p := &model.Photo{UserID: ownerID, FileName: fileName}
	if err := store.CreatePhoto(context.Background(), p); err != nil {
		t.Fatalf("seeding photo: %v", err)
	}
	return p
}
