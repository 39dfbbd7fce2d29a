package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/photoshare/internal/apperror"
	"github.com/sakif/photoshare/internal/auth"
	"github.com/sakif/photoshare/internal/model"
	"github.com/sakif/photoshare/internal/repository"
	"github.com/sakif/photoshare/internal/validation"
)

// RegisterInput is the body of POST /user.
type RegisterInput struct {
	LoginName   string `json:"login_name"  validate:"required,notblank,max=64"`
	Password    string `json:"password"    validate:"required,max=72"`
	FirstName   string `json:"first_name"  validate:"required,notblank,max=100"`
	LastName    string `json:"last_name"   validate:"required,notblank,max=100"`
	Location    string `json:"location"    validate:"max=200"`
	Description string `json:"description" validate:"max=2000"`
	Occupation  string `json:"occupation"  validate:"max=200"`
}

type UserService struct {
	users     repository.UserRepository
	photos    repository.PhotoRepository
	images    ImageStore
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	photos repository.PhotoRepository,
	images ImageStore,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		photos:    photos,
		images:    images,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates a password account. Login names are unique; a taken one
// is reported as apperror.ErrConflict.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.LoginName = strings.TrimSpace(in.LoginName)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/user: hashing password: %w", err)
	}

	user := &model.User{
		LoginName:    in.LoginName,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Location:     in.Location,
		Description:  in.Description,
		Occupation:   in.Occupation,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("login", user.LoginName),
	)
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	if !model.ValidID(id) {
		return nil, apperror.InvalidReference("user", id)
	}
	return s.users.GetUserByID(ctx, id)
}

// List returns every user's summary in registration order.
func (s *UserService) List(ctx context.Context) ([]model.UserSummary, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing users: %w", err)
	}
	return users, nil
}

// Counts reports how many photos id owns and how many comments it wrote.
func (s *UserService) Counts(ctx context.Context, id string) (*model.UserCounts, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	photos, err := s.photos.CountPhotosByOwner(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: counting photos: %w", err)
	}
	comments, err := s.photos.CountCommentsByAuthor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: counting comments: %w", err)
	}
	return &model.UserCounts{Photos: photos, Comments: comments}, nil
}

// CommentsByUser returns every photo id commented on, keeping only id's own
// comments, each tagged with its index among its owner's photos.
func (s *UserService) CommentsByUser(ctx context.Context, id string) ([]model.UserCommentsPhoto, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	photos, err := s.photos.ListPhotosCommentedBy(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing commented photos: %w", err)
	}

	ownerIDs := make(map[string][]string)
	out := make([]model.UserCommentsPhoto, 0, len(photos))
	for _, p := range photos {
		ids, ok := ownerIDs[p.UserID]
		if !ok {
			ids, err = s.photos.ListPhotoIDsByOwner(ctx, p.UserID)
			if err != nil {
				return nil, fmt.Errorf("service/user: listing photos of %s: %w", p.UserID, err)
			}
			ownerIDs[p.UserID] = ids
		}

		entry := model.UserCommentsPhoto{
			ID:       p.ID,
			UserID:   p.UserID,
			FileName: p.FileName,
			DateTime: p.DateTime,
			Comments: make([]model.Comment, 0, 1),
		}
		for i, pid := range ids {
			if pid == p.ID {
				entry.Index = i + 1
				break
			}
		}
		for _, c := range p.Comments {
			if c.UserID == id {
				entry.Comments = append(entry.Comments, c)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// Delete removes requesterID's own account with its photos, comments and
// favorites, then the image files of those photos.
func (s *UserService) Delete(ctx context.Context, requesterID, id string) error {
	if !model.ValidID(id) {
		return apperror.InvalidReference("user", id)
	}
	if requesterID == "" {
		return apperror.Unauthenticated()
	}
	if requesterID != id {
		return apperror.Forbidden("you can only delete your own account")
	}

	owned, err := s.photos.ListPhotosByOwner(ctx, id)
	if err != nil {
		return fmt.Errorf("service/user: listing photos of %s: %w", id, err)
	}

	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}

	for _, p := range owned {
		if err := s.images.Delete(p.FileName); err != nil {
			s.logger.Warn("failed to remove image file",
				slog.String("file", p.FileName),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("user deleted",
		slog.String("userID", id),
		slog.Int("photos", len(owned)),
	)
	return nil
}
