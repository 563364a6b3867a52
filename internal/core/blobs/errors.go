package blobs

import "errors"

var (
	// ErrInvalidToken is returned when a signed blob URL token fails verification
	ErrInvalidToken = errors.New("invalid blob token")

	// ErrUnsupportedMimeType is returned for attachments outside the allow-list
	ErrUnsupportedMimeType = errors.New("unsupported MIME type")

	// ErrBlobTooLarge is returned when an attachment exceeds MaxBlobSize
	ErrBlobTooLarge = errors.New("blob exceeds maximum size")

	// ErrEmptyBlob is returned when an attachment has no bytes
	ErrEmptyBlob = errors.New("blob is empty")
)

// ErrBlobNotFound is returned when a stored blob does not exist
var ErrBlobNotFound = errors.New("blob not found")
