package posts

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

const defaultOrphanChecks = 8

// Orphan is a post whose attachment reference points at a missing blob,
// typically left behind when the upload after record creation failed.
type Orphan struct {
	PostID        string `json:"postId"`
	Title         string `json:"title"`
	AttachmentKey string `json:"attachmentKey"`
}

// FindOrphans lists every record and reports attachment keys the blob
// store does not hold. At most concurrency existence checks run at once.
func FindOrphans(ctx context.Context, records RecordStore, checker BlobChecker, concurrency int) ([]Orphan, error) {
	list, err := records.List(ctx)
	if err != nil {
		return nil, NewRemoteError("record.list", "", err)
	}
	if concurrency <= 0 {
		concurrency = defaultOrphanChecks
	}

	var (
		orphans []Orphan
		mu      sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, p := range list {
		key := p.Attachment.Key()
		if key == "" {
			continue
		}
		g.Go(func() error {
			ok, err := checker.Exists(gctx, key)
			if err != nil {
				return NewRemoteError("blob.exists", key, err)
			}
			if !ok {
				mu.Lock()
				orphans = append(orphans, Orphan{PostID: p.ID, Title: p.Title, AttachmentKey: key})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(orphans, func(i, j int) bool { return orphans[i].PostID < orphans[j].PostID })
	return orphans, nil
}
