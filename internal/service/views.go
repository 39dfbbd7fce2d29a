package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/photoshare/internal/apperror"
	"github.com/sakif/photoshare/internal/model"
	"github.com/sakif/photoshare/internal/repository"
)

// userResolver turns author ids into UserSummaries, hitting the repository
// at most once per id. One resolver serves one request.
type userResolver struct {
	users repository.UserRepository
	cache map[string]model.UserSummary
}

func newUserResolver(users repository.UserRepository) *userResolver {
	return &userResolver{users: users, cache: make(map[string]model.UserSummary)}
}

// summary returns the public identity of id. An id with no user behind it
// resolves to a summary carrying only the id, so one dangling reference does
// not fail a whole listing.
func (r *userResolver) summary(ctx context.Context, id string) (model.UserSummary, error) {
	if s, ok := r.cache[id]; ok {
		return s, nil
	}

	u, err := r.users.GetUserByID(ctx, id)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		s := model.UserSummary{ID: id}
		r.cache[id] = s
		return s, nil
	case err != nil:
		return model.UserSummary{}, fmt.Errorf("resolving user %s: %w", id, err)
	}

	s := u.Summary()
	r.cache[id] = s
	return s, nil
}

// view reshapes photo so every comment exposes its author's identity.
func (r *userResolver) view(ctx context.Context, photo *model.Photo) (*model.PhotoView, error) {
	v := &model.PhotoView{
		ID:       photo.ID,
		UserID:   photo.UserID,
		FileName: photo.FileName,
		DateTime: photo.DateTime,
		Comments: make([]model.CommentView, 0, len(photo.Comments)),
	}

	for _, c := range photo.Comments {
		author, err := r.summary(ctx, c.UserID)
		if err != nil {
			return nil, err
		}
		mentions := c.Mentions
		if mentions == nil {
			mentions = []string{}
		}
		v.Comments = append(v.Comments, model.CommentView{
			ID:       c.ID,
			Text:     c.Text,
			DateTime: c.DateTime,
			User:     author,
			Mentions: mentions,
		})
	}
	return v, nil
}

// photoIndex returns the 1-based position of photoID among ownerID's photos
// in upload order, or 0 if it is not one of them.
func photoIndex(ctx context.Context, photos repository.PhotoRepository, ownerID, photoID string) (int, error) {
	ids, err := photos.ListPhotoIDsByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("listing photos of %s: %w", ownerID, err)
	}
	for i, id := range ids {
		if id == photoID {
			return i + 1, nil
		}
	}
	return 0, nil
}
