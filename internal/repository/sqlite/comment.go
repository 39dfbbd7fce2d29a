package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/photoshare/internal/apperror"
	"github.com/sakif/photoshare/internal/model"
)

// AppendComment adds comment to photoID.
//
// The comment row and its mention rows are written in one transaction, so a
// reader never sees a comment without its mentions and two concurrent
// comments on the same photo cannot overwrite each other (each is its own
// row; SQLite serialises the writes).
//
// The photo's existence is checked inside the transaction; a missing photo
// yields apperror.ErrNotFound.
func (db *DB) AppendComment(ctx context.Context, photoID string, comment *model.Comment) (err error) {
	comment.ID = model.NewID()
	comment.PhotoID = photoID
	if comment.DateTime.IsZero() {
		comment.DateTime = time.Now()
	}
	if comment.Mentions == nil {
		comment.Mentions = []string{}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning comment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM photos WHERE id = ?`, photoID).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("photo", photoID)
		}
		return fmt.Errorf("sqlite: checking photo %s: %w", photoID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO comments (id, photo_id, user_id, comment, date_time) VALUES (?, ?, ?, ?, ?)`,
		comment.ID,
		photoID,
		comment.UserID,
		comment.Text,
		comment.DateTime,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting comment on photo %s: %w", photoID, err)
	}

	for i, userID := range comment.Mentions {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO comment_mentions (comment_id, user_id, position) VALUES (?, ?, ?)`,
			comment.ID, userID, i,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting mention of %s: %w", userID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing comment: %w", err)
	}
	return nil
}

// GetComment returns the comment only if it belongs to photoID.
func (db *DB) GetComment(ctx context.Context, photoID, commentID string) (*model.Comment, error) {
	var c model.Comment
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, photo_id, user_id, comment, date_time
		 FROM comments WHERE id = ? AND photo_id = ?`,
		commentID, photoID,
	).Scan(&c.ID, &c.PhotoID, &c.UserID, &c.Text, &c.DateTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", commentID)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", commentID, err)
	}

	mentions, err := db.mentionsOf(ctx, []string{c.ID})
	if err != nil {
		return nil, err
	}
	c.Mentions = mentions[c.ID]
	if c.Mentions == nil {
		c.Mentions = []string{}
	}

	return &c, nil
}

// DeleteComment removes one comment from a photo. Its mention rows cascade.
func (db *DB) DeleteComment(ctx context.Context, photoID, commentID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM comments WHERE id = ? AND photo_id = ?`, commentID, photoID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", commentID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("comment", commentID)
	}
	return nil
}

func (db *DB) CountCommentsByAuthor(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting comments of %s: %w", userID, err)
	}
	return n, nil
}

// attachComments loads the comments (and their mentions) of every photo in
// photos and stores them in place, oldest comment first.
func (db *DB) attachComments(ctx context.Context, photos []model.Photo) error {
	if len(photos) == 0 {
		return nil
	}

	photoIDs := make([]any, len(photos))
	byPhoto := make(map[string]int, len(photos))
	for i := range photos {
		photoIDs[i] = photos[i].ID
		byPhoto[photos[i].ID] = i
		photos[i].Comments = []model.Comment{}
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, photo_id, user_id, comment, date_time
		 FROM comments
		 WHERE photo_id IN (`+placeholders(len(photoIDs))+`)
		 ORDER BY seq`,
		photoIDs...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading comments: %w", err)
	}

	var (
		comments   []model.Comment
		commentIDs []string
	)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PhotoID, &c.UserID, &c.Text, &c.DateTime); err != nil {
			rows.Close()
			return fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
		commentIDs = append(commentIDs, c.ID)
	}
	iterErr := rows.Err()
	rows.Close()
	if iterErr != nil {
		return fmt.Errorf("sqlite: iterating comments: %w", iterErr)
	}

	mentions, err := db.mentionsOf(ctx, commentIDs)
	if err != nil {
		return err
	}

	for _, c := range comments {
		c.Mentions = mentions[c.ID]
		if c.Mentions == nil {
			c.Mentions = []string{}
		}
		i := byPhoto[c.PhotoID]
		photos[i].Comments = append(photos[i].Comments, c)
	}
	return nil
}

// mentionsOf returns the mentioned user ids of each comment, in the order
// they were written.
func (db *DB) mentionsOf(ctx context.Context, commentIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(commentIDs))
	if len(commentIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(commentIDs))
	for i, id := range commentIDs {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT comment_id, user_id
		 FROM comment_mentions
		 WHERE comment_id IN (`+placeholders(len(args))+`)
		 ORDER BY comment_id, position`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading mentions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var commentID, userID string
		if err := rows.Scan(&commentID, &userID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning mention row: %w", err)
		}
		out[commentID] = append(out[commentID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating mentions: %w", err)
	}

	return out, nil
}
