package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/photoshare/internal/apperror"
	"github.com/sakif/photoshare/internal/model"
	"github.com/sakif/photoshare/internal/repository"
)

var _ repository.FavoriteRepository = (*DB)(nil)

// AddFavorite records that fav.UserID starred fav.PhotoID.
// The (user_id, photo_id) primary key enforces one favorite per pair; a
// second insert is reported as apperror.ErrConflict.
func (db *DB) AddFavorite(ctx context.Context, fav *model.Favorite) error {
	if fav.DateTime.IsZero() {
		fav.DateTime = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO favorites (user_id, photo_id, date_time) VALUES (?, ?, ?)`,
		fav.UserID, fav.PhotoID, fav.DateTime,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("favorite", fav.PhotoID)
		}
		return fmt.Errorf("sqlite: adding favorite %s/%s: %w", fav.UserID, fav.PhotoID, err)
	}
	return nil
}

func (db *DB) RemoveFavorite(ctx context.Context, userID, photoID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND photo_id = ?`, userID, photoID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing favorite %s/%s: %w", userID, photoID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("favorite", photoID)
	}
	return nil
}

func (db *DB) IsFavorite(ctx context.Context, userID, photoID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM favorites WHERE user_id = ? AND photo_id = ?`, userID, photoID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking favorite %s/%s: %w", userID, photoID, err)
	}
	return n > 0, nil
}

// ListFavoritePhotos returns the photos userID favorited, most recent
// favorite first. Comments are not loaded.
func (db *DB) ListFavoritePhotos(ctx context.Context, userID string) ([]model.Photo, error) {
	photos, err := db.queryPhotos(ctx,
		`SELECT p.id, p.user_id, p.file_name, p.date_time
		 FROM favorites f
		 JOIN photos p ON p.id = f.photo_id
		 WHERE f.user_id = ?
		 ORDER BY f.rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing favorites of %s: %w", userID, err)
	}
	for i := range photos {
		photos[i].Comments = []model.Comment{}
	}
	return photos, nil
}
