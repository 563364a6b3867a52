// Package pds stores memories in an AT Protocol PDS repository. Post records
// live in one collection; attachment bytes are uploaded as blobs and kept
// referenced by a record in a second collection.
package pds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/atproto/atclient"
	"github.com/bluesky-social/indigo/atproto/syntax"

	"Memories/internal/core/blobs"
)

// Client provides authenticated access to one account's PDS repository.
type Client interface {
	// CreateRecord creates a record in the repository.
	// If rkey is empty, a TID will be generated.
	// Returns the record URI and CID.
	CreateRecord(ctx context.Context, collection string, rkey string, record any) (uri string, cid string, err error)

	// DeleteRecord deletes a record from the repository.
	DeleteRecord(ctx context.Context, collection string, rkey string) error

	// ListRecords lists one page of records in a collection.
	ListRecords(ctx context.Context, collection string, limit int, cursor string) (*ListRecordsResponse, error)

	// GetRecord retrieves a single record by collection and rkey.
	GetRecord(ctx context.Context, collection string, rkey string) (*RecordEntry, error)

	// PutRecord creates or updates a record. A non-empty swapRecord CID makes
	// the write fail with ErrConflict if the record changed meanwhile.
	PutRecord(ctx context.Context, collection string, rkey string, record any, swapRecord string) (uri string, cid string, err error)

	// UploadBlob uploads binary data and returns its blob reference.
	// The PDS sniffs the MIME type itself; mimeType is sent as Content-Type.
	UploadBlob(ctx context.Context, data []byte, mimeType string) (*blobs.BlobRef, error)

	// DID returns the repository owner's DID.
	DID() string

	// HostURL returns the PDS host URL.
	HostURL() string
}

// ListRecordsResponse contains the result of a ListRecords call.
type ListRecordsResponse struct {
	Records []RecordEntry
	Cursor  string
}

// RecordEntry is a stored record with its raw JSON value.
type RecordEntry struct {
	URI   string          `json:"uri"`
	CID   string          `json:"cid"`
	Value json.RawMessage `json:"value"`
}

// RKey extracts the record key from the entry's AT-URI.
func (e *RecordEntry) RKey() (string, error) {
	return rkeyFromURI(e.URI)
}

// Decode unmarshals the record value into v.
func (e *RecordEntry) Decode(v any) error {
	if err := json.Unmarshal(e.Value, v); err != nil {
		return fmt.Errorf("failed to decode record %s: %w", e.URI, err)
	}
	return nil
}

// client implements Client over indigo's APIClient.
type client struct {
	apiClient *atclient.APIClient
	did       string
	host      string
}

var _ Client = (*client)(nil)

// wrapAPIError maps atclient status codes onto the typed errors so callers
// can use errors.Is.
func wrapAPIError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var apiErr *atclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 400:
			// getRecord reports a missing record as 400 RecordNotFound
			if apiErr.Name == "RecordNotFound" {
				return fmt.Errorf("%s: %w: %s", operation, ErrNotFound, apiErr.Message)
			}
			if apiErr.Name == "InvalidSwap" {
				return fmt.Errorf("%s: %w: %s", operation, ErrConflict, apiErr.Message)
			}
			return fmt.Errorf("%s: %w: %s", operation, ErrBadRequest, apiErr.Message)
		case 401:
			return fmt.Errorf("%s: %w: %s", operation, ErrUnauthorized, apiErr.Message)
		case 403:
			return fmt.Errorf("%s: %w: %s", operation, ErrForbidden, apiErr.Message)
		case 404:
			return fmt.Errorf("%s: %w: %s", operation, ErrNotFound, apiErr.Message)
		case 409:
			return fmt.Errorf("%s: %w: %s", operation, ErrConflict, apiErr.Message)
		case 413:
			return fmt.Errorf("%s: %w: %s", operation, ErrPayloadTooLarge, apiErr.Message)
		case 429:
			return fmt.Errorf("%s: %w: %s", operation, ErrRateLimited, apiErr.Message)
		}
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

func (c *client) DID() string { return c.did }

func (c *client) HostURL() string { return c.host }

func (c *client) CreateRecord(ctx context.Context, collection string, rkey string, record any) (string, string, error) {
	payload := map[string]any{
		"repo":       c.did,
		"collection": collection,
		"record":     record,
	}
	if rkey != "" {
		payload["rkey"] = rkey
	}

	var result struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}
	if err := c.apiClient.Post(ctx, syntax.NSID("com.atproto.repo.createRecord"), payload, &result); err != nil {
		return "", "", wrapAPIError(err, "createRecord")
	}
	return result.URI, result.CID, nil
}

func (c *client) DeleteRecord(ctx context.Context, collection string, rkey string) error {
	payload := map[string]any{
		"repo":       c.did,
		"collection": collection,
		"rkey":       rkey,
	}
	if err := c.apiClient.Post(ctx, syntax.NSID("com.atproto.repo.deleteRecord"), payload, nil); err != nil {
		return wrapAPIError(err, "deleteRecord")
	}
	return nil
}

func (c *client) ListRecords(ctx context.Context, collection string, limit int, cursor string) (*ListRecordsResponse, error) {
	params := map[string]any{
		"repo":       c.did,
		"collection": collection,
		"limit":      limit,
	}
	if cursor != "" {
		params["cursor"] = cursor
	}

	var result struct {
		Cursor  string        `json:"cursor"`
		Records []RecordEntry `json:"records"`
	}
	if err := c.apiClient.Get(ctx, syntax.NSID("com.atproto.repo.listRecords"), params, &result); err != nil {
		return nil, wrapAPIError(err, "listRecords")
	}
	return &ListRecordsResponse{Records: result.Records, Cursor: result.Cursor}, nil
}

func (c *client) GetRecord(ctx context.Context, collection string, rkey string) (*RecordEntry, error) {
	params := map[string]any{
		"repo":       c.did,
		"collection": collection,
		"rkey":       rkey,
	}

	var result RecordEntry
	if err := c.apiClient.Get(ctx, syntax.NSID("com.atproto.repo.getRecord"), params, &result); err != nil {
		return nil, wrapAPIError(err, "getRecord")
	}
	return &result, nil
}

func (c *client) PutRecord(ctx context.Context, collection string, rkey string, record any, swapRecord string) (string, string, error) {
	payload := map[string]any{
		"repo":       c.did,
		"collection": collection,
		"rkey":       rkey,
		"record":     record,
	}
	if swapRecord != "" {
		payload["swapRecord"] = swapRecord
	}

	var result struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}
	if err := c.apiClient.Post(ctx, syntax.NSID("com.atproto.repo.putRecord"), payload, &result); err != nil {
		return "", "", wrapAPIError(err, "putRecord")
	}
	return result.URI, result.CID, nil
}

func (c *client) UploadBlob(ctx context.Context, data []byte, mimeType string) (*blobs.BlobRef, error) {
	result, err := comatproto.RepoUploadBlob(ctx, c.apiClient, bytes.NewReader(data))
	if err != nil {
		return nil, wrapAPIError(err, "uploadBlob")
	}

	return &blobs.BlobRef{
		Type:     "blob",
		Ref:      map[string]string{"$link": result.Blob.Ref.String()},
		MimeType: result.Blob.MimeType,
		Size:     int(result.Blob.Size),
	}, nil
}

// rkeyFromURI returns the record key of an at:// URI.
func rkeyFromURI(uri string) (string, error) {
	aturi, err := syntax.ParseATURI(uri)
	if err != nil {
		return "", fmt.Errorf("invalid record URI %q: %w", uri, err)
	}
	rkey := aturi.RecordKey().String()
	if rkey == "" {
		return "", fmt.Errorf("record URI %q has no record key", uri)
	}
	return rkey, nil
}
