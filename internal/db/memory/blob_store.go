package memory

import (
	"context"
	"fmt"
	"sync"

	"Memories/internal/core/blobs"
	"Memories/internal/core/posts"
)

var (
	_ posts.BlobStore   = (*BlobStore)(nil)
	_ posts.BlobChecker = (*BlobStore)(nil)
)

// BlobStore is an in-process posts.BlobStore. Resolve mints signed URLs
// served by the /blobs route.
type BlobStore struct {
	signer  *blobs.URLSigner
	objects map[string]*blobs.Object
	mu      sync.RWMutex
}

// NewBlobStore creates an empty in-memory blob store.
func NewBlobStore(signer *blobs.URLSigner) *BlobStore {
	return &BlobStore{
		signer:  signer,
		objects: make(map[string]*blobs.Object),
	}
}

// Put stores a copy of data under key.
func (s *BlobStore) Put(_ context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("blob key cannot be empty")
	}
	obj, err := blobs.NewObject(key, append([]byte(nil), data...))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.objects[key] = obj
	s.mu.Unlock()
	return nil
}

// Resolve mints a fresh signed URL for key. The key is not checked for
// existence; a missing blob fails when the URL is fetched.
func (s *BlobStore) Resolve(_ context.Context, key string) (string, error) {
	return s.signer.URL(key)
}

// Delete removes key. Missing keys are not an error.
func (s *BlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Exists reports whether key holds a blob.
func (s *BlobStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// Get returns the stored object for key.
func (s *BlobStore) Get(_ context.Context, key string) (*blobs.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, blobs.ErrBlobNotFound
	}
	return obj, nil
}
