package posts

import "context"

// RecordStore is the remote service holding the structured post fields.
// Implementations return posts whose Attachment is Stored(key) when the record
// references one.
type RecordStore interface {
	// List returns every persisted post, in no particular order
	List(ctx context.Context) ([]Post, error)

	// Create persists a new record and returns it with the server-assigned
	// ID and CreatedAt
	Create(ctx context.Context, fields PostFields) (*Post, error)

	// Update applies a partial update and returns the updated record.
	// The returned attachment is not relied upon by callers.
	Update(ctx context.Context, id string, patch PostPatch) (*Post, error)

	// Delete removes a record. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}

// BlobStore is the remote service holding attachment bytes by key.
type BlobStore interface {
	// Put stores data under key, replacing any previous value
	Put(ctx context.Context, key string, data []byte) error

	// Resolve returns a fetchable URL for key.
	// Idempotent: repeated calls return equivalent, independently fetchable URLs.
	Resolve(ctx context.Context, key string) (string, error)

	// Delete removes the blob. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
}

// BlobChecker is implemented by blob stores that can tell whether a key exists
// Used to find attachment references that never resolve.
type BlobChecker interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// Compensator reacts to a remote failure that left the local view and the
// stores divergent. The controller keeps its best-effort behavior and only
// reports through this hook, so a future implementation can add compensating
// writes without changing the operation signatures.
type Compensator interface {
	// DeleteFailed is called when a post was removed locally but a remote
	// delete failed afterwards
	DeleteFailed(ctx context.Context, removed Post, err error)

	// AttachmentUploadFailed is called when a record was created but its
	// attachment bytes could not be stored, leaving an orphaned reference
	AttachmentUploadFailed(ctx context.Context, created Post, err error)
}
