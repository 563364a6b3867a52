package memory

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Memories/internal/core/blobs"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestBlobStore(t *testing.T) (*BlobStore, *blobs.URLSigner) {
	t.Helper()
	signer, err := blobs.NewURLSigner("https://memories.test", nil, time.Minute)
	require.NoError(t, err)
	return NewBlobStore(signer), signer
}

func tokenFromURL(t *testing.T, u string) string {
	t.Helper()
	raw := strings.TrimPrefix(u, "https://memories.test/blobs/")
	token, err := url.PathUnescape(raw)
	require.NoError(t, err)
	return token
}

func TestBlobStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestBlobStore(t)

	data := append([]byte(nil), pngBytes...)
	require.NoError(t, s.Put(ctx, "party.png", data))

	// The store keeps its own copy.
	data[0] = 0
	obj, err := s.Get(ctx, "party.png")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, obj.Data)
	assert.Equal(t, "image/png", obj.MimeType)
	assert.NotEmpty(t, obj.CID)

	ok, err := s.Exists(ctx, "party.png")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "party.png"))
	_, err = s.Get(ctx, "party.png")
	assert.ErrorIs(t, err, blobs.ErrBlobNotFound)

	// Deleting again succeeds.
	require.NoError(t, s.Delete(ctx, "party.png"))
}

func TestBlobStore_ResolveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, signer := newTestBlobStore(t)
	require.NoError(t, s.Put(ctx, "party.png", pngBytes))

	first, err := s.Resolve(ctx, "party.png")
	require.NoError(t, err)
	second, err := s.Resolve(ctx, "party.png")
	require.NoError(t, err)

	// Independently minted, both fetch the same blob.
	assert.NotEqual(t, first, second)
	for _, u := range []string{first, second} {
		key, err := signer.Verify(tokenFromURL(t, u))
		require.NoError(t, err)
		obj, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, obj.Data)
	}
}

func TestBlobStore_ResolveMissingKey(t *testing.T) {
	ctx := context.Background()
	s, signer := newTestBlobStore(t)

	u, err := s.Resolve(ctx, "never-uploaded.jpg")
	require.NoError(t, err)

	key, err := signer.Verify(tokenFromURL(t, u))
	require.NoError(t, err)
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, blobs.ErrBlobNotFound)

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlobStore_EmptyKey(t *testing.T) {
	s, _ := newTestBlobStore(t)
	assert.Error(t, s.Put(context.Background(), "", pngBytes))
}
