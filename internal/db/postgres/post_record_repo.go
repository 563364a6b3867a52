package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	cbornode "github.com/ipfs/go-ipld-cbor"
	mh "github.com/multiformats/go-multihash"

	"Memories/internal/core/posts"
)

var _ posts.RecordStore = (*PostRecordRepo)(nil)

// ErrConflict is returned when a post changed between read and write.
var ErrConflict = errors.New("post record changed concurrently")

// PostRecordRepo is a posts.RecordStore over the memory_posts table.
// Each row carries the DAG-CBOR CID of its current field values.
type PostRecordRepo struct {
	db *sql.DB
}

// NewPostRecordRepo creates a new PostgreSQL post record repository
func NewPostRecordRepo(db *sql.DB) *PostRecordRepo {
	return &PostRecordRepo{db: db}
}

const postColumns = `id, title, content, attachment_key, like_count, created_at`

// List returns all post records, newest first.
func (r *PostRecordRepo) List(ctx context.Context) ([]posts.Post, error) {
	query := `SELECT ` + postColumns + ` FROM memory_posts ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []posts.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return result, nil
}

// Create inserts a new post record with a server-assigned id and timestamp.
func (r *PostRecordRepo) Create(ctx context.Context, fields posts.PostFields) (*posts.Post, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	recordCID, err := RecordCID(fields, createdAt)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO memory_posts (
			id, title, content, attachment_key, like_count, cid, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING ` + postColumns

	row := r.db.QueryRowContext(ctx, query,
		id, fields.Title, fields.Content, nullString(fields.AttachmentKey), fields.Like, recordCID, createdAt)
	p, err := scanPost(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}
	return p, nil
}

// Update applies patch against the record's current CID. A concurrent
// write that lands first makes it fail with ErrConflict.
func (r *PostRecordRepo) Update(ctx context.Context, id string, patch posts.PostPatch) (*posts.Post, error) {
	prevCID, err := r.GetCID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.UpdateIfCID(ctx, id, patch, prevCID)
}

// UpdateIfCID applies patch only if the stored CID still equals prevCID,
// and stores the recomputed CID in the same statement.
func (r *PostRecordRepo) UpdateIfCID(ctx context.Context, id string, patch posts.PostPatch, prevCID string) (*posts.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM memory_posts WHERE id = $1`, id)
	current, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}

	if patch.Like != nil {
		current.Like = *patch.Like
	}

	fields := posts.PostFields{
		Title:         current.Title,
		Content:       current.Content,
		AttachmentKey: current.Attachment.Key(),
		Like:          current.Like,
	}
	recordCID, err := RecordCID(fields, current.CreatedAt)
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE memory_posts SET like_count = $2, cid = $3, updated_at = NOW() WHERE id = $1 AND cid = $4`,
		id, current.Like, recordCID, prevCID)
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check update result: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := r.GetCID(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("post %s: %w", id, ErrConflict)
	}
	return current, nil
}

// Delete removes a post record.
func (r *PostRecordRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM memory_posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rowsAffected == 0 {
		return posts.ErrNotFound
	}
	return nil
}

// GetCID returns the stored record CID for id.
func (r *PostRecordRepo) GetCID(ctx context.Context, id string) (string, error) {
	var c string
	err := r.db.QueryRowContext(ctx, `SELECT cid FROM memory_posts WHERE id = $1`, id).Scan(&c)
	if err == sql.ErrNoRows {
		return "", posts.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get post CID: %w", err)
	}
	return c, nil
}

// RecordCID computes the DAG-CBOR (sha2-256) CID of a post's field values.
func RecordCID(fields posts.PostFields, createdAt time.Time) (string, error) {
	obj := map[string]any{
		"title":     fields.Title,
		"content":   fields.Content,
		"like":      int64(fields.Like),
		"createdAt": createdAt.UTC().Format(time.RFC3339Nano),
	}
	if fields.AttachmentKey != "" {
		obj["attachmentRef"] = fields.AttachmentKey
	}

	node, err := cbornode.WrapObject(obj, mh.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("failed to encode post record: %w", err)
	}
	return node.Cid().String(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*posts.Post, error) {
	var (
		p             posts.Post
		attachmentKey sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &attachmentKey, &p.Like, &p.CreatedAt); err != nil {
		return nil, err
	}
	if attachmentKey.Valid {
		p.Attachment = posts.StoredAttachment(attachmentKey.String)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
