package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/photoshare/internal/apperror"
	"github.com/sakif/photoshare/internal/model"
	"github.com/sakif/photoshare/internal/repository"
)

type FavoriteService struct {
	favorites repository.FavoriteRepository
	photos    repository.PhotoRepository
	logger    *slog.Logger
}

func NewFavoriteService(
	favorites repository.FavoriteRepository,
	photos repository.PhotoRepository,
	logger *slog.Logger,
) *FavoriteService {
	return &FavoriteService{favorites: favorites, photos: photos, logger: logger}
}

// Add stars photoID for userID. Starring twice is apperror.ErrConflict.
func (s *FavoriteService) Add(ctx context.Context, userID, photoID string) error {
	if err := checkFavoriteArgs(userID, photoID); err != nil {
		return err
	}
	if _, err := s.photos.GetPhotoByID(ctx, photoID); err != nil {
		return err
	}

	fav := &model.Favorite{UserID: userID, PhotoID: photoID, DateTime: time.Now()}
	if err := s.favorites.AddFavorite(ctx, fav); err != nil {
		return err
	}

	s.logger.Debug("favorite added",
		slog.String("userID", userID),
		slog.String("photoID", photoID),
	)
	return nil
}

func (s *FavoriteService) Remove(ctx context.Context, userID, photoID string) error {
	if err := checkFavoriteArgs(userID, photoID); err != nil {
		return err
	}
	return s.favorites.RemoveFavorite(ctx, userID, photoID)
}

func (s *FavoriteService) Check(ctx context.Context, userID, photoID string) (bool, error) {
	if err := checkFavoriteArgs(userID, photoID); err != nil {
		return false, err
	}
	ok, err := s.favorites.IsFavorite(ctx, userID, photoID)
	if err != nil {
		return false, fmt.Errorf("service/favorite: %w", err)
	}
	return ok, nil
}

// List returns userID's favorited photos, most recently starred first.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]model.Photo, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated()
	}
	photos, err := s.favorites.ListFavoritePhotos(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/favorite: listing favorites: %w", err)
	}
	return photos, nil
}

func checkFavoriteArgs(userID, photoID string) error {
	if userID == "" {
		return apperror.Unauthenticated()
	}
	if !model.ValidID(photoID) {
		return apperror.InvalidReference("photo", photoID)
	}
	return nil
}
