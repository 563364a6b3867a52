package posts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrphans(t *testing.T) {
	log := &callLog{}
	records := newFakeRecordStore(log)
	blobs := newFakeBlobStore(log)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	records.seed(Post{ID: "a", Title: "Plain", CreatedAt: now})
	records.seed(Post{ID: "b", Title: "Stored", Attachment: StoredAttachment("b.png"), CreatedAt: now})
	records.seed(Post{ID: "c", Title: "Orphan", Attachment: StoredAttachment("c.png"), CreatedAt: now})
	blobs.data["b.png"] = []byte("x")

	got, err := FindOrphans(context.Background(), records, blobs, 2)
	require.NoError(t, err)
	assert.Equal(t, []Orphan{{PostID: "c", Title: "Orphan", AttachmentKey: "c.png"}}, got)
	assert.ElementsMatch(t, []string{"record.list", "blob.exists b.png", "blob.exists c.png"}, log.list())
}

func TestFindOrphans_Errors(t *testing.T) {
	t.Run("list failure", func(t *testing.T) {
		log := &callLog{}
		records := newFakeRecordStore(log)
		records.listErr = errors.New("unavailable")

		_, err := FindOrphans(context.Background(), records, newFakeBlobStore(log), 0)
		assert.True(t, IsRemote(err))
	})

	t.Run("exists failure", func(t *testing.T) {
		log := &callLog{}
		records := newFakeRecordStore(log)
		records.seed(Post{ID: "a", Attachment: StoredAttachment("a.png")})
		blobs := newFakeBlobStore(log)
		blobs.existsErr = errors.New("timeout")

		_, err := FindOrphans(context.Background(), records, blobs, 0)
		require.Error(t, err)
		var remote *RemoteError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, "a.png", remote.Key)
	})
}
