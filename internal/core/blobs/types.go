package blobs

import (
	"context"
	"net/url"
	"strings"
)

// MaxBlobSize is the largest attachment accepted (6MB).
const MaxBlobSize = 6291456

// BlobRef represents a blob reference for atproto records
type BlobRef struct {
	Type     string            `json:"$type"`
	Ref      map[string]string `json:"ref"`
	MimeType string            `json:"mimeType"`
	Size     int               `json:"size"`
}

// CID returns the blob's content link, or "" if the ref is incomplete.
func (r *BlobRef) CID() string {
	if r == nil || r.Ref == nil {
		return ""
	}
	return r.Ref["$link"]
}

// HydrateBlobURL converts a blob CID to a full PDS blob URL.
// Returns empty string if any required parameter is empty.
// Format: {pdsURL}/xrpc/com.atproto.sync.getBlob?did={did}&cid={cid}
func HydrateBlobURL(pdsURL, did, cid string) string {
	if pdsURL == "" || did == "" || cid == "" {
		return ""
	}
	return strings.TrimSuffix(pdsURL, "/") + "/xrpc/com.atproto.sync.getBlob?did=" +
		url.QueryEscape(did) + "&cid=" + url.QueryEscape(cid)
}

// Reader loads stored attachments by key.
type Reader interface {
	Get(ctx context.Context, key string) (*Object, error)
}

// Object is a stored attachment as served to clients.
type Object struct {
	Key      string
	MimeType string
	CID      string
	Data     []byte
}

// NewObject builds an Object, sniffing the MIME type and computing the CID.
func NewObject(key string, data []byte) (*Object, error) {
	c, err := ContentCID(data)
	if err != nil {
		return nil, err
	}
	return &Object{
		Key:      key,
		MimeType: DetectMimeType(data),
		CID:      c,
		Data:     data,
	}, nil
}
