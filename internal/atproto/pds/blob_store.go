package pds

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"Memories/internal/core/blobs"
	"Memories/internal/core/posts"
)

const (
	// AttachmentCollection holds one record per stored blob so the PDS keeps
	// the blob referenced.
	AttachmentCollection = "app.memories.attachment"

	cidCacheSize = 1000
	cidCacheTTL  = 10 * time.Minute
)

var (
	_ posts.BlobStore   = (*BlobStore)(nil)
	_ posts.BlobChecker = (*BlobStore)(nil)
)

// attachmentRecord is the app.memories.attachment record value.
type attachmentRecord struct {
	Type      string        `json:"$type"`
	Key       string        `json:"key"`
	CreatedAt string        `json:"createdAt"`
	Blob      blobs.BlobRef `json:"blob"`
}

// BlobStore is a posts.BlobStore that uploads attachments as PDS blobs.
// Resolve returns com.atproto.sync.getBlob URLs.
type BlobStore struct {
	client Client
	logger *slog.Logger
	cids   *expirable.LRU[string, string]
}

// NewBlobStore creates a blob store over client's repository.
func NewBlobStore(client Client, logger *slog.Logger) *BlobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobStore{
		client: client,
		logger: logger,
		cids:   expirable.NewLRU[string, string](cidCacheSize, nil, cidCacheTTL),
	}
}

// Put uploads data and writes the attachment record for key.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("blob key cannot be empty")
	}
	mimeType, err := blobs.ValidateAttachment(data)
	if err != nil {
		return err
	}

	ref, err := s.client.UploadBlob(ctx, data, mimeType)
	if err != nil {
		return err
	}
	if ref.CID() == "" {
		return fmt.Errorf("PDS response missing required field: ref.$link (CID)")
	}

	rec := attachmentRecord{
		Type:      AttachmentCollection,
		Key:       key,
		Blob:      *ref,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if _, _, err := s.client.PutRecord(ctx, AttachmentCollection, attachmentRKey(key), rec, ""); err != nil {
		return err
	}

	s.cids.Add(key, ref.CID())
	s.logger.Debug("[PDS-BLOBS] stored attachment", "key", key, "cid", ref.CID(), "size", ref.Size)
	return nil
}

// Resolve returns the getBlob URL for key. A key with no attachment record
// (an upload that never completed) resolves to the attachment record's
// getRecord URL, which is well-formed but serves no image.
func (s *BlobStore) Resolve(ctx context.Context, key string) (string, error) {
	c, err := s.lookupCID(ctx, key)
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn("[PDS-BLOBS] attachment record missing, returning placeholder URL", "key", key)
		return s.missingURL(key)
	}
	if err != nil {
		return "", err
	}
	u := blobs.HydrateBlobURL(s.client.HostURL(), s.client.DID(), c)
	if u == "" {
		return "", fmt.Errorf("cannot build blob URL for %q: missing host or DID", key)
	}
	return u, nil
}

// missingURL points at the attachment record key would have had.
func (s *BlobStore) missingURL(key string) (string, error) {
	host := strings.TrimSuffix(s.client.HostURL(), "/")
	if host == "" || s.client.DID() == "" {
		return "", fmt.Errorf("cannot build blob URL for %q: missing host or DID", key)
	}
	q := url.Values{}
	q.Set("repo", s.client.DID())
	q.Set("collection", AttachmentCollection)
	q.Set("rkey", attachmentRKey(key))
	return host + "/xrpc/com.atproto.repo.getRecord?" + q.Encode(), nil
}

// Delete removes the attachment record, leaving the blob unreferenced for
// the PDS to collect. Missing keys are not an error.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	s.cids.Remove(key)
	err := s.client.DeleteRecord(ctx, AttachmentCollection, attachmentRKey(key))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Exists reports whether an attachment record exists for key.
func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.lookupCID(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *BlobStore) lookupCID(ctx context.Context, key string) (string, error) {
	if c, ok := s.cids.Get(key); ok {
		return c, nil
	}

	entry, err := s.client.GetRecord(ctx, AttachmentCollection, attachmentRKey(key))
	if err != nil {
		return "", err
	}
	var rec attachmentRecord
	if err := entry.Decode(&rec); err != nil {
		return "", err
	}
	c := rec.Blob.CID()
	if c == "" {
		return "", fmt.Errorf("attachment record %s has no blob CID", entry.URI)
	}

	s.cids.Add(key, c)
	return c, nil
}

var rkeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// attachmentRKey maps a blob key to a record key. Keys that are already
// valid record keys are used as-is; others are replaced by a hash.
func attachmentRKey(key string) string {
	if _, err := syntax.ParseRecordKey(key); err == nil && !strings.HasPrefix(key, "h-") {
		return key
	}
	sum := sha256.Sum256([]byte(key))
	return "h-" + strings.ToLower(rkeyEncoding.EncodeToString(sum[:20]))
}
