package pds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Memories/internal/core/posts"
)

const (
	// PostCollection holds one record per memory.
	PostCollection = "app.memories.post"

	listPageSize = 100
)

var _ posts.RecordStore = (*RecordStore)(nil)

// postRecord is the app.memories.post record value.
type postRecord struct {
	Type          string `json:"$type"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	AttachmentRef string `json:"attachmentRef,omitempty"`
	CreatedAt     string `json:"createdAt"`
	Like          int    `json:"like"`
}

func (r *postRecord) toPost(rkey string) posts.Post {
	p := posts.Post{
		ID:         rkey,
		Title:      r.Title,
		Content:    r.Content,
		Like:       r.Like,
		Attachment: posts.StoredAttachment(r.AttachmentRef),
	}
	if t, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
		p.CreatedAt = t.UTC()
	}
	return p
}

// RecordStore is a posts.RecordStore over app.memories.post records. The
// record key is the post id.
type RecordStore struct {
	client Client
	logger *slog.Logger
	now    func() time.Time
}

// NewRecordStore creates a record store over client's repository.
func NewRecordStore(client Client, logger *slog.Logger) *RecordStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStore{client: client, logger: logger, now: time.Now}
}

// List pages through the whole collection.
func (s *RecordStore) List(ctx context.Context) ([]posts.Post, error) {
	var (
		result []posts.Post
		cursor string
	)
	for {
		page, err := s.client.ListRecords(ctx, PostCollection, listPageSize, cursor)
		if err != nil {
			return nil, err
		}

		for i := range page.Records {
			entry := &page.Records[i]
			rkey, err := entry.RKey()
			if err != nil {
				s.logger.Warn("[PDS-RECORDS] skipping record with bad URI", "uri", entry.URI, "error", err)
				continue
			}
			var rec postRecord
			if err := entry.Decode(&rec); err != nil {
				s.logger.Warn("[PDS-RECORDS] skipping undecodable record", "uri", entry.URI, "error", err)
				continue
			}
			result = append(result, rec.toPost(rkey))
		}

		if page.Cursor == "" || len(page.Records) == 0 {
			return result, nil
		}
		cursor = page.Cursor
	}
}

// Create writes a new record with a PDS-generated TID key.
func (s *RecordStore) Create(ctx context.Context, fields posts.PostFields) (*posts.Post, error) {
	rec := postRecord{
		Type:          PostCollection,
		Title:         fields.Title,
		Content:       fields.Content,
		AttachmentRef: fields.AttachmentKey,
		Like:          fields.Like,
		CreatedAt:     s.now().UTC().Format(time.RFC3339Nano),
	}

	uri, _, err := s.client.CreateRecord(ctx, PostCollection, "", rec)
	if err != nil {
		return nil, err
	}
	rkey, err := rkeyFromURI(uri)
	if err != nil {
		return nil, err
	}

	p := rec.toPost(rkey)
	return &p, nil
}

// Update reads the record, applies patch and writes it back guarded by the
// read CID. A concurrent write in between fails with ErrConflict.
func (s *RecordStore) Update(ctx context.Context, id string, patch posts.PostPatch) (*posts.Post, error) {
	entry, err := s.client.GetRecord(ctx, PostCollection, id)
	if err != nil {
		return nil, notFound(err)
	}

	var rec postRecord
	if err := entry.Decode(&rec); err != nil {
		return nil, err
	}
	rec.Type = PostCollection
	if patch.Like != nil {
		rec.Like = *patch.Like
	}

	if _, _, err := s.client.PutRecord(ctx, PostCollection, id, rec, entry.CID); err != nil {
		return nil, notFound(err)
	}

	p := rec.toPost(id)
	return &p, nil
}

// Delete removes the record. deleteRecord succeeds for missing keys, so
// existence is checked first.
func (s *RecordStore) Delete(ctx context.Context, id string) error {
	if _, err := s.client.GetRecord(ctx, PostCollection, id); err != nil {
		return notFound(err)
	}
	return s.client.DeleteRecord(ctx, PostCollection, id)
}

// notFound adds posts.ErrNotFound to PDS not-found errors.
func notFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %w", posts.ErrNotFound, err)
	}
	return err
}
