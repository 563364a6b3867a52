package posts

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"Memories/internal/core/notify"
)

// ControllerConfig holds optional dependencies for NewController.
type ControllerConfig struct {
	// Logger defaults to slog.Default()
	Logger *slog.Logger

	// Compensator defaults to BestEffort
	Compensator Compensator

	// NotifyTTL is how long the success notices stay set (default notify.DefaultTTL)
	NotifyTTL time.Duration
}

// Snapshot is a consistent read of everything the presentation layer shows.
type Snapshot struct {
	Posts           []Post `json:"posts"`
	CreateSucceeded bool   `json:"createSucceeded"`
	DeleteSucceeded bool   `json:"deleteSucceeded"`
}

// Controller keeps a local list of posts in sync with a RecordStore and a
// BlobStore and drives the create/delete success notices.
//
// Operations are best-effort: a remote failure is logged and returned, the
// local list keeps whatever was already applied, and nothing is retried or
// rolled back. Concurrent operations are not serialized against each other;
// whichever finishes last wins.
type Controller struct {
	records      RecordStore
	blobs        BlobStore
	compensator  Compensator
	logger       *slog.Logger
	posts        *postList
	createNotice *notify.Flag
	deleteNotice *notify.Flag
	subscribers  map[chan struct{}]struct{}
	subMu        sync.Mutex
}

// NewController creates a controller with an empty local list.
func NewController(records RecordStore, blobs BlobStore, cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	compensator := cfg.Compensator
	if compensator == nil {
		compensator = NewBestEffort(logger)
	}

	c := &Controller{
		records:     records,
		blobs:       blobs,
		compensator: compensator,
		logger:      logger,
		subscribers: make(map[chan struct{}]struct{}),
	}
	c.posts = newPostList(c.broadcast)
	c.createNotice = notify.NewFlag(cfg.NotifyTTL, func(bool) { c.broadcast() })
	c.deleteNotice = notify.NewFlag(cfg.NotifyTTL, func(bool) { c.broadcast() })
	return c
}

// Posts returns a copy of the local list.
func (c *Controller) Posts() []Post {
	return c.posts.snapshot()
}

// Snapshot returns the local list and both notices.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Posts:           c.posts.snapshot(),
		CreateSucceeded: c.createNotice.Value(),
		DeleteSucceeded: c.deleteNotice.Value(),
	}
}

// CreateSucceeded reports whether the "post created" notice is showing.
func (c *Controller) CreateSucceeded() bool { return c.createNotice.Value() }

// DeleteSucceeded reports whether the "post removed" notice is showing.
func (c *Controller) DeleteSucceeded() bool { return c.deleteNotice.Value() }

// DismissCreateNotice clears the "post created" notice early.
func (c *Controller) DismissCreateNotice() { c.createNotice.Dismiss() }

// DismissDeleteNotice clears the "post removed" notice early.
func (c *Controller) DismissDeleteNotice() { c.deleteNotice.Dismiss() }

// Close cancels pending notice timers.
func (c *Controller) Close() {
	c.createNotice.Stop()
	c.deleteNotice.Stop()
}

// Refresh replaces the local list with the Record Store's records, newest
// first, with every attachment resolved to a URL. Resolutions run
// concurrently and the list is replaced only after all of them finish.
// On failure the local list is left unchanged.
func (c *Controller) Refresh(ctx context.Context) error {
	records, err := c.records.List(ctx)
	if err != nil {
		return c.remoteFailure("refresh", NewRemoteError("record.list", "", err))
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	g, gctx := errgroup.WithContext(ctx)
	for i := range records {
		key := records[i].Attachment.Key()
		if key == "" {
			continue
		}
		g.Go(func() error {
			url, err := c.blobs.Resolve(gctx, key)
			if err != nil {
				return NewRemoteError("blob.resolve", key, err)
			}
			// Each goroutine writes only its own element.
			records[i].Attachment = records[i].Attachment.Resolve(url)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return c.remoteFailure("refresh", err)
	}

	c.posts.replaceAll(records)
	c.logger.Debug("[POST-SYNC] refreshed local list", "count", len(records))
	return nil
}

// CreatePost creates a record, then stores the attachment bytes (if any),
// then refreshes. An empty title or content is a silent no-op.
//
// The attachment is uploaded strictly after the record exists, so an upload
// failure leaves a record whose attachment reference never resolves.
func (c *Controller) CreatePost(ctx context.Context, draft Draft, file *AttachmentFile) error {
	if draft.Title == "" || draft.Content == "" {
		return NewSkipError("title and content are required")
	}

	fields := PostFields{
		Title:   draft.Title,
		Content: draft.Content,
		Like:    0,
	}
	pending := Attachment{}
	if file != nil && len(file.Data) > 0 {
		key := AttachmentKey(file.Name)
		if key == "" {
			c.logger.Warn("[POST-SYNC] attachment has no usable file name", "name", file.Name)
			return NewSkipError("attachment file name is invalid")
		}
		pending = PendingAttachment(key)
		fields.AttachmentKey = key
	}

	created, err := c.records.Create(ctx, fields)
	if err != nil {
		return c.remoteFailure("create", NewRemoteError("record.create", "", err))
	}

	local := *created
	if !pending.IsZero() {
		local.Attachment = StoredAttachment(pending.Key())
	}
	c.posts.append(local)

	if !pending.IsZero() {
		if err := c.blobs.Put(ctx, pending.Key(), file.Data); err != nil {
			remoteErr := NewRemoteError("blob.put", pending.Key(), err)
			c.compensator.AttachmentUploadFailed(ctx, local, remoteErr)
			return c.remoteFailure("create", remoteErr)
		}
	}

	// Refresh reports its own failure; the record exists either way.
	_ = c.Refresh(ctx)

	c.createNotice.Arm()
	c.logger.Info("[POST-SYNC] post created",
		"id", local.ID,
		"attachment", pending.Key())
	return nil
}

// DeletePost removes the post from the local list immediately, then deletes
// its blobs and its record. A post without an id is a silent no-op.
// Nothing restores the local entry if a remote delete fails.
func (c *Controller) DeletePost(ctx context.Context, id string) error {
	if id == "" {
		return NewSkipError("post has no id")
	}

	removed, found := c.posts.removeID(id)
	if !found {
		removed = Post{ID: id}
	}

	for _, key := range blobKeysFor(removed) {
		if key != id && c.posts.referencesKey(key) {
			c.logger.Info("[POST-SYNC] keeping attachment shared with another post", "id", id, "key", key)
			continue
		}
		if err := c.blobs.Delete(ctx, key); err != nil {
			remoteErr := NewRemoteError("blob.delete", key, err)
			c.compensator.DeleteFailed(ctx, removed, remoteErr)
			return c.remoteFailure("delete", remoteErr)
		}
	}

	if err := c.records.Delete(ctx, id); err != nil {
		remoteErr := NewRemoteError("record.delete", id, err)
		c.compensator.DeleteFailed(ctx, removed, remoteErr)
		return c.remoteFailure("delete", remoteErr)
	}

	c.deleteNotice.Arm()
	c.logger.Info("[POST-SYNC] post deleted", "id", id)
	return nil
}

// IncrementLike sends like+1 for the post at index and replaces the local
// entry with the server's record, keeping the local attachment.
//
// The new value is computed from the local copy, so two overlapping calls on
// the same post both send the same value and one increment is lost.
func (c *Controller) IncrementLike(ctx context.Context, index int) error {
	current, ok := c.posts.at(index)
	if !ok {
		c.logger.Warn("[POST-SYNC] cannot like post: index out of range",
			"index", index,
			"len", c.posts.len())
		return NewSkipError("index out of range")
	}
	if current.ID == "" {
		c.logger.Warn("[POST-SYNC] cannot like post with no id", "index", index)
		return NewSkipError("post has no id")
	}

	newLike := current.Like + 1
	updated, err := c.records.Update(ctx, current.ID, PostPatch{Like: &newLike})
	if err != nil {
		return c.remoteFailure("like", NewRemoteError("record.update", current.ID, err))
	}

	merged := *updated
	merged.ID = current.ID
	merged.Attachment = current.Attachment

	if !c.posts.replaceByID(index, merged) {
		c.logger.Debug("[POST-SYNC] liked post is no longer in the local list", "id", current.ID)
	}
	return nil
}

// Subscribe returns a channel that receives a signal after any change to
// the list or the notices. Signals are coalesced. Call cancel to stop.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	c.subMu.Lock()
	c.subscribers[ch] = struct{}{}
	c.subMu.Unlock()

	cancel := func() {
		c.subMu.Lock()
		delete(c.subscribers, ch)
		c.subMu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) broadcast() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for ch := range c.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (c *Controller) remoteFailure(op string, err error) error {
	c.logger.Error("[POST-SYNC] operation failed",
		"op", op,
		"error", err)
	return err
}

// blobKeysFor lists the blob keys DeletePost removes: the post id, plus the
// attachment key when it is known and differs.
func blobKeysFor(p Post) []string {
	keys := []string{p.ID}
	if k := p.Attachment.Key(); k != "" && k != p.ID {
		keys = append(keys, k)
	}
	return keys
}
