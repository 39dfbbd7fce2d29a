package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/photoshare/internal/apperror"
	"github.com/sakif/photoshare/internal/model"
	"github.com/sakif/photoshare/internal/repository"
)

var _ repository.PhotoRepository = (*DB)(nil)

// CreatePhoto inserts a photo row. ID and DateTime are filled in when empty.
func (db *DB) CreatePhoto(ctx context.Context, photo *model.Photo) error {
	if photo.ID == "" {
		photo.ID = model.NewID()
	}
	if photo.DateTime.IsZero() {
		photo.DateTime = time.Now()
	}
	if photo.Comments == nil {
		photo.Comments = []model.Comment{}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO photos (id, user_id, file_name, date_time) VALUES (?, ?, ?, ?)`,
		photo.ID,
		photo.UserID,
		photo.FileName,
		photo.DateTime,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating photo for user %s: %w", photo.UserID, err)
	}

	return nil
}

// GetPhotoByID returns the photo with all of its comments, oldest first.
func (db *DB) GetPhotoByID(ctx context.Context, id string) (*model.Photo, error) {
	var p model.Photo
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, file_name, date_time FROM photos WHERE id = ?`, id,
	).Scan(&p.ID, &p.UserID, &p.FileName, &p.DateTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("photo", id)
		}
		return nil, fmt.Errorf("sqlite: getting photo %s: %w", id, err)
	}

	photos := []model.Photo{p}
	if err := db.attachComments(ctx, photos); err != nil {
		return nil, err
	}

	return &photos[0], nil
}

// ListPhotosByOwner returns the owner's photos in insertion order, with
// comments attached.
func (db *DB) ListPhotosByOwner(ctx context.Context, ownerID string) ([]model.Photo, error) {
	photos, err := db.queryPhotos(ctx,
		`SELECT id, user_id, file_name, date_time FROM photos WHERE user_id = ? ORDER BY seq`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing photos of %s: %w", ownerID, err)
	}

	if err := db.attachComments(ctx, photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// ListPhotoIDsByOwner is the cheap form of ListPhotosByOwner used to compute
// a photo's index.
func (db *DB) ListPhotoIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id FROM photos WHERE user_id = ? ORDER BY seq`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing photo ids of %s: %w", ownerID, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning photo id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating photo ids: %w", err)
	}

	return ids, nil
}

// ListPhotosCommentedBy returns every photo carrying at least one comment by
// userID, with all comments attached. Ordered by upload.
func (db *DB) ListPhotosCommentedBy(ctx context.Context, userID string) ([]model.Photo, error) {
	photos, err := db.queryPhotos(ctx,
		`SELECT p.id, p.user_id, p.file_name, p.date_time
		 FROM photos p
		 WHERE EXISTS (SELECT 1 FROM comments c WHERE c.photo_id = p.id AND c.user_id = ?)
		 ORDER BY p.seq`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing photos commented by %s: %w", userID, err)
	}

	if err := db.attachComments(ctx, photos); err != nil {
		return nil, err
	}
	return photos, nil
}

func (db *DB) CountPhotosByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM photos WHERE user_id = ?`, ownerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting photos of %s: %w", ownerID, err)
	}
	return n, nil
}

// DeletePhoto removes the photo; comments, mentions and favorites cascade.
func (db *DB) DeletePhoto(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting photo %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("photo", id)
	}
	return nil
}

// queryPhotos runs a photo SELECT and reads every row. Comments are not
// loaded. Rows are closed before returning.
func (db *DB) queryPhotos(ctx context.Context, query string, args ...any) ([]model.Photo, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos := make([]model.Photo, 0)
	for rows.Next() {
		var p model.Photo
		if err := rows.Scan(&p.ID, &p.UserID, &p.FileName, &p.DateTime); err != nil {
			return nil, fmt.Errorf("scanning photo row: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating photos: %w", err)
	}

	return photos, nil
}
