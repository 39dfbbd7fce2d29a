// Package service holds the business rules of the photo-sharing API.
//
// Each service takes its dependencies (repositories, stores, the mention
// notifier) through its constructor and knows nothing about HTTP: handlers
// translate requests into plain arguments, and services answer with model
// values or *apperror.AppError.
//
//	Handler (HTTP) → Service (rules) → Repository (SQLite)
//	                               ↘ MentionNotifier → presence.Registry
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/photoshare/internal/apperror"
	"github.com/sakif/photoshare/internal/metrics"
	"github.com/sakif/photoshare/internal/model"
	"github.com/sakif/photoshare/internal/repository"
)

// MaxCommentLength is the longest accepted comment, in characters.
const MaxCommentLength = 2000

// Notifier is what CommentService needs from the mention notifier.
type Notifier interface {
	Notify(ctx context.Context, photo *model.Photo, comment *model.Comment, author model.UserSummary) (NotifyResult, error)
}

// CommentService adds and removes comments on photos. Adding a comment that
// mentions users also fires their real-time notifications.
type CommentService struct {
	photos   repository.PhotoRepository
	users    repository.UserRepository
	notifier Notifier
	logger   *slog.Logger
}

func NewCommentService(
	photos repository.PhotoRepository,
	users repository.UserRepository,
	notifier Notifier,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		photos:   photos,
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

// AddComment appends a comment by authorID to photoID and returns the photo
// as clients see it.
//
// Checks, in order:
//   - photoID must be a well-formed id (apperror.ErrInvalidReference)
//   - authorID must be present and belong to a user (apperror.ErrUnauthenticated)
//   - text must be non-blank after trimming and at most MaxCommentLength
//     characters (apperror.ErrValidation)
//   - the photo must exist (apperror.ErrInvalidReference)
//
// Malformed entries in mentionIDs are dropped without error and duplicates
// collapse to their first occurrence. Mentioned users are not looked up.
//
// Notification happens after the comment is stored. Its failures are
// logged and never turn a stored comment into a failed request.
func (s *CommentService) AddComment(
	ctx context.Context,
	photoID, authorID, text string,
	mentionIDs []string,
) (*model.PhotoView, error) {
	if !model.ValidID(photoID) {
		return nil, apperror.InvalidReference("photo", photoID)
	}
	if authorID == "" {
		return nil, apperror.Unauthenticated()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("comment", "comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, apperror.ValidationFailed("comment",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}

	author, err := s.users.GetUserByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("service/comment: loading author %s: %w", authorID, err)
	}

	photo, err := s.photos.GetPhotoByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidReference("photo", photoID)
		}
		return nil, fmt.Errorf("service/comment: loading photo %s: %w", photoID, err)
	}

	comment := &model.Comment{
		UserID:   authorID,
		Text:     text,
		DateTime: time.Now(),
		Mentions: model.UniqueValidIDs(mentionIDs),
	}

	if err := s.photos.AppendComment(ctx, photoID, comment); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidReference("photo", photoID)
		}
		s.logger.Error("failed to append comment",
			slog.String("photoID", photoID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/comment: appending comment: %w", err)
	}
	metrics.CommentsCreated.Inc()

	s.logger.Info("comment added",
		slog.String("photoID", photoID),
		slog.String("commentID", comment.ID),
		slog.Int("mentions", len(comment.Mentions)),
	)

	if len(comment.Mentions) > 0 {
		if _, err := s.notifier.Notify(ctx, photo, comment, author.Summary()); err != nil {
			s.logger.Warn("mention notification failed",
				slog.String("photoID", photoID),
				slog.String("commentID", comment.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	// The comment is stored. If the reload fails, answer from the photo
	// loaded before the append.
	updated, err := s.photos.GetPhotoByID(ctx, photoID)
	if err != nil {
		s.logger.Warn("failed to reload photo after comment",
			slog.String("photoID", photoID),
			slog.String("error", err.Error()),
		)
		photo.Comments = append(photo.Comments, *comment)
		updated = photo
	}

	return newUserResolver(s.users).view(ctx, updated)
}

// DeleteComment removes commentID from photoID. Only the comment's author
// may delete it. Notifications already sent for it are not retracted.
func (s *CommentService) DeleteComment(ctx context.Context, photoID, commentID, requesterID string) error {
	if !model.ValidID(photoID) {
		return apperror.InvalidReference("photo", photoID)
	}
	if !model.ValidID(commentID) {
		return apperror.InvalidReference("comment", commentID)
	}
	if requesterID == "" {
		return apperror.Unauthenticated()
	}

	comment, err := s.photos.GetComment(ctx, photoID, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != requesterID {
		return apperror.Forbidden("only the author can delete this comment")
	}

	if err := s.photos.DeleteComment(ctx, photoID, commentID); err != nil {
		return err
	}

	s.logger.Info("comment deleted",
		slog.String("photoID", photoID),
		slog.String("commentID", commentID),
	)
	return nil
}
