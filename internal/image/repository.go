// Package image manages enhanced-image records, the enhancement pipeline,
// and token-gated downloads.
package image

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixelift/service/internal/db"
)

// Image types.
const (
	TypeEnhanced  = "enhanced"
	TypeThumbnail = "thumbnail"
)

// Image is a record of one stored file. Records are created once and mutated
// only by the soft-delete flag; the file itself lives in storage under FilePath.
type Image struct {
	ID            string    `json:"id"`
	UserID        *string   `json:"user_id,omitempty"`
	Type          string    `json:"type"`
	FilePath      string    `json:"file_path"`
	Context       *string   `json:"context,omitempty"`
	OriginalName  string    `json:"original_name"`
	Deleted       bool      `json:"deleted"`
	DownloadToken string    `json:"download_token"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ErrNotFound is returned when no image matches the lookup.
var ErrNotFound = errors.New("image not found")

// Repository handles all image database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const imageColumns = `id, user_id, type, file_path, context, original_name, deleted, download_token, created_at, updated_at`

func scanImage(row pgx.Row) (*Image, error) {
	img := &Image{}
	err := row.Scan(&img.ID, &img.UserID, &img.Type, &img.FilePath, &img.Context,
		&img.OriginalName, &img.Deleted, &img.DownloadToken, &img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Create inserts a new image record. The download token must already be set;
// it is generated exactly once and never changes afterwards.
func (r *Repository) Create(ctx context.Context, img *Image) (*Image, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO images (user_id, type, file_path, context, original_name, download_token)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+imageColumns,
		img.UserID, img.Type, img.FilePath, img.Context, img.OriginalName, img.DownloadToken,
	)
	created, err := scanImage(row)
	if err != nil {
		if db.Unavailable(err) {
			return nil, db.ErrUnavailable
		}
		return nil, fmt.Errorf("create image: %w", err)
	}
	return created, nil
}

// FindByFileAndToken returns the image whose stored path and download token
// both match exactly. Soft-deleted records still match; links issued before a
// delete keep working until that is decided otherwise.
func (r *Repository) FindByFileAndToken(ctx context.Context, filePath, token string) (*Image, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+imageColumns+` FROM images
		 WHERE file_path = $1 AND download_token = $2`,
		filePath, token,
	)
	img, err := scanImage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if db.Unavailable(err) {
			return nil, db.ErrUnavailable
		}
		return nil, fmt.Errorf("find image by file and token: %w", err)
	}
	return img, nil
}

// ListByUser returns the user's non-deleted images, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Image, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+imageColumns+` FROM images
		 WHERE user_id = $1 AND NOT deleted
		 ORDER BY created_at DESC`,
		userID,
	)
	return collectImages(rows, err, "list user images")
}

// ListAll returns every image record, soft-deleted included, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Image, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+imageColumns+` FROM images ORDER BY created_at DESC`,
	)
	return collectImages(rows, err, "list images")
}

// SoftDelete marks the user's image as deleted. ErrNotFound when the image
// does not exist or belongs to someone else.
func (r *Repository) SoftDelete(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE images SET deleted = TRUE, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		if db.Unavailable(err) {
			return db.ErrUnavailable
		}
		return fmt.Errorf("soft delete image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectImages(rows pgx.Rows, err error, op string) ([]Image, error) {
	if err != nil {
		if db.Unavailable(err) {
			return nil, db.ErrUnavailable
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	images := []Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}
