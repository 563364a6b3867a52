package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"Memories/internal/core/posts"
)

// Compile-time assertion that RecordStore implements posts.RecordStore.
var _ posts.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-process posts.RecordStore. Records live for the
// lifetime of the process.
type RecordStore struct {
	records map[string]posts.Post
	now     func() time.Time
	mu      sync.RWMutex
}

// NewRecordStore creates an empty in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[string]posts.Post),
		now:     time.Now,
	}
}

// WithClock replaces the clock used for CreatedAt. For tests.
func (s *RecordStore) WithClock(now func() time.Time) *RecordStore {
	s.now = now
	return s
}

// List returns every record in no particular order.
func (s *RecordStore) List(_ context.Context) ([]posts.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]posts.Post, 0, len(s.records))
	for _, p := range s.records {
		out = append(out, p)
	}
	return out, nil
}

// Create stores a new record with a random id.
func (s *RecordStore) Create(_ context.Context, fields posts.PostFields) (*posts.Post, error) {
	p := posts.Post{
		ID:         uuid.NewString(),
		Title:      fields.Title,
		Content:    fields.Content,
		Like:       fields.Like,
		Attachment: posts.StoredAttachment(fields.AttachmentKey),
		CreatedAt:  s.now().UTC(),
	}

	s.mu.Lock()
	s.records[p.ID] = p
	s.mu.Unlock()

	return &p, nil
}

// Update applies patch to the record with id.
func (s *RecordStore) Update(_ context.Context, id string, patch posts.PostPatch) (*posts.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("update %s: %w", id, posts.ErrNotFound)
	}
	if patch.Like != nil {
		p.Like = *patch.Like
	}
	s.records[id] = p
	return &p, nil
}

// Delete removes the record with id.
func (s *RecordStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, posts.ErrNotFound)
	}
	delete(s.records, id)
	return nil
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
