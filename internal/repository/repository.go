// Package repository declares the storage contracts the service layer
// depends on. internal/repository/sqlite provides the implementation; tests
// substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/photoshare/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	UpsertGitHub(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByLoginName(ctx context.Context, loginName string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.UserSummary, error)
	DeleteUser(ctx context.Context, id string) error
}

// PhotoRepository stores photos and the comments embedded in them.
//
// ListPhotosByOwner and ListPhotoIDsByOwner return photos in insertion order;
// a photo's 1-based position in that order is its index.
type PhotoRepository interface {
	CreatePhoto(ctx context.Context, photo *model.Photo) error
	GetPhotoByID(ctx context.Context, id string) (*model.Photo, error)
	ListPhotosByOwner(ctx context.Context, ownerID string) ([]model.Photo, error)
	ListPhotoIDsByOwner(ctx context.Context, ownerID string) ([]string, error)
	ListPhotosCommentedBy(ctx context.Context, userID string) ([]model.Photo, error)
	CountPhotosByOwner(ctx context.Context, ownerID string) (int, error)
	DeletePhoto(ctx context.Context, id string) error

	// AppendComment stores comment and its mentions on photoID in a single
	// transaction, filling in comment.ID.
	AppendComment(ctx context.Context, photoID string, comment *model.Comment) error
	GetComment(ctx context.Context, photoID, commentID string) (*model.Comment, error)
	DeleteComment(ctx context.Context, photoID, commentID string) error
	CountCommentsByAuthor(ctx context.Context, userID string) (int, error)
}

type FavoriteRepository interface {
	AddFavorite(ctx context.Context, fav *model.Favorite) error
	RemoveFavorite(ctx context.Context, userID, photoID string) error
	IsFavorite(ctx context.Context, userID, photoID string) (bool, error)
	ListFavoritePhotos(ctx context.Context, userID string) ([]model.Photo, error)
}
