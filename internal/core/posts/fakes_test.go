package posts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

var errBoom = errors.New("boom")

// callLog records store calls across both fakes, in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

// fakeRecordStore is an in-memory RecordStore with failure and gating hooks.
type fakeRecordStore struct {
	base       time.Time
	log        *callLog
	records    map[string]Post
	fields     []PostFields
	listErr    error
	createErr  error
	updateErr  error
	deleteErr  error
	beforeUpd  func(id string)
	mu         sync.Mutex
	nextSerial int
}

func newFakeRecordStore(log *callLog) *fakeRecordStore {
	return &fakeRecordStore{
		base:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		log:     log,
		records: make(map[string]Post),
	}
}

// seed inserts a record directly, bypassing the call log.
func (s *fakeRecordStore) seed(p Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[p.ID] = p
}

func (s *fakeRecordStore) get(id string) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.records[id]
	return p, ok
}

func (s *fakeRecordStore) List(_ context.Context) ([]Post, error) {
	s.log.add("record.list")
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]Post, 0, len(s.records))
	for _, p := range s.records {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeRecordStore) Create(_ context.Context, fields PostFields) (*Post, error) {
	s.log.add("record.create %s", fields.Title)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return nil, s.createErr
	}
	s.fields = append(s.fields, fields)
	s.nextSerial++
	p := Post{
		ID:         fmt.Sprintf("p%d", s.nextSerial),
		Title:      fields.Title,
		Content:    fields.Content,
		Like:       fields.Like,
		Attachment: StoredAttachment(fields.AttachmentKey),
		CreatedAt:  s.base.Add(time.Duration(s.nextSerial) * time.Hour),
	}
	s.records[p.ID] = p
	out := p
	return &out, nil
}

func (s *fakeRecordStore) Update(_ context.Context, id string, patch PostPatch) (*Post, error) {
	s.log.add("record.update %s", id)
	if s.beforeUpd != nil {
		s.beforeUpd(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.updateErr != nil {
		return nil, s.updateErr
	}
	p, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Like != nil {
		p.Like = *patch.Like
	}
	s.records[id] = p

	// The update response does not carry the attachment.
	out := p
	out.Attachment = Attachment{}
	return &out, nil
}

func (s *fakeRecordStore) Delete(_ context.Context, id string) error {
	s.log.add("record.delete %s", id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// fakeBlobStore is an in-memory BlobStore whose Resolve returns a fresh
// signed-looking URL on every call.
type fakeBlobStore struct {
	log           *callLog
	data          map[string][]byte
	putErr        error
	resolveErr    map[string]error
	deleteErr     error
	existsErr     error
	beforeResolve func(key string)
	beforeDelete  func(key string)
	mu            sync.Mutex
	serial        int
}

func newFakeBlobStore(log *callLog) *fakeBlobStore {
	return &fakeBlobStore{
		log:        log,
		data:       make(map[string][]byte),
		resolveErr: make(map[string]error),
	}
}

func (b *fakeBlobStore) Put(_ context.Context, key string, data []byte) error {
	b.log.add("blob.put %s", key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.putErr != nil {
		return b.putErr
	}
	b.data[key] = append([]byte(nil), data...)
	return nil
}

func (b *fakeBlobStore) Resolve(_ context.Context, key string) (string, error) {
	b.log.add("blob.resolve %s", key)
	if b.beforeResolve != nil {
		b.beforeResolve(key)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.resolveErr[key]; err != nil {
		return "", err
	}
	b.serial++
	return fmt.Sprintf("https://blobs.test/%s?sig=%d", key, b.serial), nil
}

func (b *fakeBlobStore) Delete(_ context.Context, key string) error {
	b.log.add("blob.delete %s", key)
	if b.beforeDelete != nil {
		b.beforeDelete(key)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.data, key)
	return nil
}

func (b *fakeBlobStore) Exists(_ context.Context, key string) (bool, error) {
	b.log.add("blob.exists %s", key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.existsErr != nil {
		return false, b.existsErr
	}
	_, ok := b.data[key]
	return ok, nil
}

func (b *fakeBlobStore) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[key]
	return ok
}

// Mocks for asserting that no remote call happens at all.
type mockRecordStore struct {
	mock.Mock
}

func (m *mockRecordStore) List(ctx context.Context) ([]Post, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Post), args.Error(1)
}

func (m *mockRecordStore) Create(ctx context.Context, fields PostFields) (*Post, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Post), args.Error(1)
}

func (m *mockRecordStore) Update(ctx context.Context, id string, patch PostPatch) (*Post, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Post), args.Error(1)
}

func (m *mockRecordStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) Put(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *mockBlobStore) Resolve(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type mockCompensator struct {
	mock.Mock
}

func (m *mockCompensator) DeleteFailed(ctx context.Context, removed Post, err error) {
	m.Called(ctx, removed, err)
}

func (m *mockCompensator) AttachmentUploadFailed(ctx context.Context, created Post, err error) {
	m.Called(ctx, created, err)
}
