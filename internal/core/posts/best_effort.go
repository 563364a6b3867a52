package posts

import (
	"context"
	"log/slog"
)

// BestEffort is the default Compensator: it records the divergence and
// changes nothing. The next Refresh brings the local list back in line with
// the Record Store; orphaned attachment references stay until removed by hand.
type BestEffort struct {
	logger *slog.Logger
}

var _ Compensator = (*BestEffort)(nil)

// NewBestEffort creates a logging-only compensator
func NewBestEffort(logger *slog.Logger) *BestEffort {
	if logger == nil {
		logger = slog.Default()
	}
	return &BestEffort{logger: logger}
}

// DeleteFailed logs a post that is gone locally but may still exist remotely.
func (b *BestEffort) DeleteFailed(_ context.Context, removed Post, err error) {
	b.logger.Warn("[POST-SYNC] local and remote views diverged after failed delete",
		"id", removed.ID,
		"attachment", removed.Attachment.Key(),
		"error", err)
}

// AttachmentUploadFailed logs a record whose attachment reference will not resolve.
func (b *BestEffort) AttachmentUploadFailed(_ context.Context, created Post, err error) {
	b.logger.Warn("[POST-SYNC] orphaned attachment reference",
		"id", created.ID,
		"attachment", created.Attachment.Key(),
		"error", err)
}
