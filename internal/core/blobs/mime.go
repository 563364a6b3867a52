package blobs

import (
	"fmt"
	"net/http"
	"strings"
)

// NormalizeMimeType converts non-standard MIME types to their standard equivalents
// and strips parameters. Many CDNs return image/jpg instead of image/jpeg.
func NormalizeMimeType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch mimeType {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	default:
		return mimeType
	}
}

// IsAllowedMimeType checks if the MIME type is allowed for attachments
func IsAllowedMimeType(mimeType string) bool {
	switch NormalizeMimeType(mimeType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

// DetectMimeType sniffs the content type of data.
func DetectMimeType(data []byte) string {
	return NormalizeMimeType(http.DetectContentType(data))
}

// ValidateAttachment checks size and sniffed type and returns the MIME type.
func ValidateAttachment(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyBlob
	}
	if len(data) > MaxBlobSize {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrBlobTooLarge, len(data), MaxBlobSize)
	}
	mimeType := DetectMimeType(data)
	if !IsAllowedMimeType(mimeType) {
		return "", fmt.Errorf("%w: %s (allowed: image/jpeg, image/png, image/gif, image/webp)",
			ErrUnsupportedMimeType, mimeType)
	}
	return mimeType, nil
}
