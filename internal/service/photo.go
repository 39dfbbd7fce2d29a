package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sakif/photoshare/internal/apperror"
	"github.com/sakif/photoshare/internal/metrics"
	"github.com/sakif/photoshare/internal/model"
	"github.com/sakif/photoshare/internal/repository"
)

// ImageStore keeps the image files behind photos. *storage.LocalStore
// implements it.
type ImageStore interface {
	Save(r io.Reader) (string, error)
	Delete(name string) error
}

type PhotoService struct {
	photos repository.PhotoRepository
	users  repository.UserRepository
	images ImageStore
	logger *slog.Logger
}

func NewPhotoService(
	photos repository.PhotoRepository,
	users repository.UserRepository,
	images ImageStore,
	logger *slog.Logger,
) *PhotoService {
	return &PhotoService{
		photos: photos,
		users:  users,
		images: images,
		logger: logger,
	}
}

// Upload stores the image and records it as ownerID's newest photo.
func (s *PhotoService) Upload(ctx context.Context, ownerID string, r io.Reader) (*model.Photo, error) {
	if ownerID == "" {
		return nil, apperror.Unauthenticated()
	}

	name, err := s.images.Save(r)
	if err != nil {
		return nil, err
	}

	photo := &model.Photo{UserID: ownerID, FileName: name}
	if err := s.photos.CreatePhoto(ctx, photo); err != nil {
		if rmErr := s.images.Delete(name); rmErr != nil {
			s.logger.Warn("failed to remove orphaned image",
				slog.String("file", name),
				slog.String("error", rmErr.Error()),
			)
		}
		return nil, fmt.Errorf("service/photo: creating photo: %w", err)
	}
	metrics.PhotosUploaded.Inc()

	s.logger.Info("photo uploaded",
		slog.String("photoID", photo.ID),
		slog.String("owner", ownerID),
		slog.String("file", name),
	)
	return photo, nil
}

// ListByOwner returns ownerID's photos in upload order with comment authors
// resolved. A user without photos is reported as apperror.ErrNotFound.
func (s *PhotoService) ListByOwner(ctx context.Context, ownerID string) ([]model.PhotoView, error) {
	photos, err := s.ownedPhotos(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	resolver := newUserResolver(s.users)
	views := make([]model.PhotoView, 0, len(photos))
	for i := range photos {
		v, err := resolver.view(ctx, &photos[i])
		if err != nil {
			return nil, fmt.Errorf("service/photo: %w", err)
		}
		views = append(views, *v)
	}
	return views, nil
}

// ByIndex returns the photo at 1-based position index among ownerID's
// photos. This is the index carried by mention notifications.
func (s *PhotoService) ByIndex(ctx context.Context, ownerID string, index int) (*model.PhotoView, error) {
	photos, err := s.ownedPhotos(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(photos) {
		return nil, apperror.ValidationFailed("index",
			fmt.Sprintf("photo index %d out of range 1..%d", index, len(photos)))
	}

	v, err := newUserResolver(s.users).view(ctx, &photos[index-1])
	if err != nil {
		return nil, fmt.Errorf("service/photo: %w", err)
	}
	return v, nil
}

func (s *PhotoService) ownedPhotos(ctx context.Context, ownerID string) ([]model.Photo, error) {
	if !model.ValidID(ownerID) {
		return nil, apperror.InvalidReference("user", ownerID)
	}
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}

	photos, err := s.photos.ListPhotosByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service/photo: listing photos of %s: %w", ownerID, err)
	}
	if len(photos) == 0 {
		return nil, &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: fmt.Sprintf("user %s has no photos", ownerID),
		}
	}
	return photos, nil
}

// Delete removes a photo and its files. Only the owner may delete it;
// comments, mentions and favorites on it go with it.
func (s *PhotoService) Delete(ctx context.Context, requesterID, photoID string) error {
	if !model.ValidID(photoID) {
		return apperror.InvalidReference("photo", photoID)
	}
	if requesterID == "" {
		return apperror.Unauthenticated()
	}

	photo, err := s.photos.GetPhotoByID(ctx, photoID)
	if err != nil {
		return err
	}
	if photo.UserID != requesterID {
		return apperror.Forbidden("only the owner can delete this photo")
	}

	if err := s.photos.DeletePhoto(ctx, photoID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/photo: deleting photo %s: %w", photoID, err)
	}

	if err := s.images.Delete(photo.FileName); err != nil {
		s.logger.Warn("failed to remove image file",
			slog.String("file", photo.FileName),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("photo deleted", slog.String("photoID", photoID))
	return nil
}
