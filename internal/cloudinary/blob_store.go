// Package cloudinary stores memory attachments as Cloudinary image assets.
package cloudinary

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"Memories/internal/core/blobs"
	"Memories/internal/core/posts"
)

// DefaultFolder is used when no folder is configured.
const DefaultFolder = "memories"

var (
	_ posts.BlobStore   = (*BlobStore)(nil)
	_ posts.BlobChecker = (*BlobStore)(nil)
)

// BlobStore is a posts.BlobStore backed by Cloudinary. The public id is
// derived from the blob key; Resolve returns the asset's delivery URL.
type BlobStore struct {
	cld    *cld.Cloudinary
	logger *slog.Logger
	folder string
}

// NewBlobStore configures a store from a cloudinary:// URL.
func NewBlobStore(cloudinaryURL, folder string, logger *slog.Logger) (*BlobStore, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary URL is required")
	}
	c, err := cld.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	c.Config.URL.Secure = true

	if folder == "" {
		folder = DefaultFolder
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobStore{cld: c, logger: logger, folder: strings.Trim(folder, "/")}, nil
}

// PublicID maps a blob key to its asset id. Dots are replaced so Cloudinary
// does not read the extension as a delivery format.
func (s *BlobStore) PublicID(key string) string {
	return s.folder + "/" + strings.ReplaceAll(key, ".", "_")
}

// Put uploads data, overwriting any asset with the same key.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("blob key cannot be empty")
	}
	if _, err := blobs.ValidateAttachment(data); err != nil {
		return err
	}

	result, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     s.PublicID(key),
		Overwrite:    api.Bool(true),
		Invalidate:   api.Bool(true),
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("cloudinary upload failed: %s", result.Error.Message)
	}

	s.logger.Debug("[CLOUDINARY] uploaded attachment",
		"key", key,
		"public_id", result.PublicID,
		"bytes", result.Bytes)
	return nil
}

// Resolve builds the HTTPS delivery URL for key without calling the API.
func (s *BlobStore) Resolve(_ context.Context, key string) (string, error) {
	img, err := s.cld.Image(s.PublicID(key))
	if err != nil {
		return "", fmt.Errorf("failed to build cloudinary asset: %w", err)
	}
	u, err := img.String()
	if err != nil {
		return "", fmt.Errorf("failed to build cloudinary URL: %w", err)
	}
	return u, nil
}

// Delete destroys the asset. "not found" counts as success.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	result, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     s.PublicID(key),
		ResourceType: "image",
		Invalidate:   api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy failed: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy failed: %s", result.Error.Message)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("cloudinary destroy returned %q", result.Result)
	}
	return nil
}

// Exists asks the Admin API whether the asset exists.
func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	result, err := s.cld.Admin.Asset(ctx, admin.AssetParams{PublicID: s.PublicID(key)})
	if err != nil {
		return false, fmt.Errorf("cloudinary asset lookup failed: %w", err)
	}
	if msg := result.Error.Message; msg != "" {
		if strings.Contains(strings.ToLower(msg), "not found") {
			return false, nil
		}
		return false, fmt.Errorf("cloudinary asset lookup failed: %s", msg)
	}
	return result.PublicID != "", nil
}
