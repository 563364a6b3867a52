package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"Memories/internal/core/blobs"
	"Memories/internal/core/posts"
)

var (
	_ posts.BlobStore   = (*BlobRepo)(nil)
	_ posts.BlobChecker = (*BlobRepo)(nil)
)

// BlobRepo is a posts.BlobStore over the memory_blobs table. Bytes are
// served back through signed /blobs URLs.
type BlobRepo struct {
	db     *sql.DB
	signer *blobs.URLSigner
}

// NewBlobRepo creates a new PostgreSQL blob repository
func NewBlobRepo(db *sql.DB, signer *blobs.URLSigner) *BlobRepo {
	return &BlobRepo{db: db, signer: signer}
}

// Put stores data under key, replacing any previous value.
func (r *BlobRepo) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("blob key cannot be empty")
	}
	obj, err := blobs.NewObject(key, data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO memory_blobs (key, data, mime_type, size, cid, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (key) DO UPDATE SET
			data = EXCLUDED.data,
			mime_type = EXCLUDED.mime_type,
			size = EXCLUDED.size,
			cid = EXCLUDED.cid,
			created_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, key, obj.Data, obj.MimeType, len(obj.Data), obj.CID); err != nil {
		return fmt.Errorf("failed to store blob: %w", err)
	}
	return nil
}

// Resolve mints a signed URL for key without touching the database.
func (r *BlobRepo) Resolve(_ context.Context, key string) (string, error) {
	return r.signer.URL(key)
}

// Delete removes key. Missing keys are not an error.
func (r *BlobRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM memory_blobs WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Exists reports whether key holds a blob.
func (r *BlobRepo) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM memory_blobs WHERE key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check blob: %w", err)
	}
	return exists, nil
}

// Get loads the stored object for key.
func (r *BlobRepo) Get(ctx context.Context, key string) (*blobs.Object, error) {
	obj := blobs.Object{Key: key}
	err := r.db.QueryRowContext(ctx,
		`SELECT data, mime_type, cid FROM memory_blobs WHERE key = $1`, key,
	).Scan(&obj.Data, &obj.MimeType, &obj.CID)
	if err == sql.ErrNoRows {
		return nil, blobs.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return &obj, nil
}
