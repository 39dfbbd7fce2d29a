package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/photoshare/internal/metrics"
	"github.com/sakif/photoshare/internal/model"
	"github.com/sakif/photoshare/internal/presence"
	"github.com/sakif/photoshare/internal/repository"
)

// Deliverer pushes a message to whoever is watching userID right now and
// reports how many connections took it. *presence.Registry implements it.
type Deliverer interface {
	Deliver(userID string, msg presence.Message) int
}

// MentionNotifier turns a freshly stored comment into "mention:new" events,
// one per mentioned user.
//
// Delivery is best effort. A mentioned user with no open connection simply
// misses the event; nothing is queued or retried.
type MentionNotifier struct {
	photos    repository.PhotoRepository
	users     repository.UserRepository
	deliverer Deliverer
	logger    *slog.Logger
}

func NewMentionNotifier(
	photos repository.PhotoRepository,
	users repository.UserRepository,
	deliverer Deliverer,
	logger *slog.Logger,
) *MentionNotifier {
	return &MentionNotifier{
		photos:    photos,
		users:     users,
		deliverer: deliverer,
		logger:    logger,
	}
}

// NotifyResult counts, per mentioned user, whether the event reached at
// least one connection.
type NotifyResult struct {
	Delivered int
	Dropped   int
}

// Notify sends comment's mention event to every user in comment.Mentions.
//
// The payload (owner identity, photo index) is the same for every
// recipient, so it is built once before the loop. An error means the payload
// could not be built and nobody was notified.
func (n *MentionNotifier) Notify(
	ctx context.Context,
	photo *model.Photo,
	comment *model.Comment,
	author model.UserSummary,
) (NotifyResult, error) {
	var result NotifyResult
	if len(comment.Mentions) == 0 {
		return result, nil
	}

	payload, err := n.buildPayload(ctx, photo, comment, author)
	if err != nil {
		return result, err
	}

	msg := presence.Message{Type: presence.TypeMentionNew, Data: payload}
	for _, userID := range comment.Mentions {
		if n.deliverer.Deliver(userID, msg) > 0 {
			result.Delivered++
		} else {
			result.Dropped++
		}
	}

	metrics.RecordMentionDelivery(result.Delivered, result.Dropped)
	n.logger.Debug("mention notifications sent",
		slog.String("photoID", photo.ID),
		slog.String("commentID", comment.ID),
		slog.Int("delivered", result.Delivered),
		slog.Int("dropped", result.Dropped),
	)

	return result, nil
}

func (n *MentionNotifier) buildPayload(
	ctx context.Context,
	photo *model.Photo,
	comment *model.Comment,
	author model.UserSummary,
) (*model.MentionNotification, error) {
	owner, err := n.users.GetUserByID(ctx, photo.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/mention: resolving owner of photo %s: %w", photo.ID, err)
	}

	index, err := photoIndex(ctx, n.photos, photo.UserID, photo.ID)
	if err != nil {
		return nil, fmt.Errorf("service/mention: %w", err)
	}
	if index == 0 {
		return nil, fmt.Errorf("service/mention: photo %s missing from its owner's photos", photo.ID)
	}

	return &model.MentionNotification{
		PhotoID:  photo.ID,
		FileName: photo.FileName,
		DateTime: photo.DateTime,
		Owner:    owner.Summary(),
		Index:    index,
		Comment: model.MentionComment{
			ID:       comment.ID,
			Text:     comment.Text,
			DateTime: comment.DateTime,
			User:     author,
		},
	}, nil
}
