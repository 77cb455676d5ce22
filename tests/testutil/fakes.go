package testutil

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"sort"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// ObjectStore is an in-memory object store.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int

	// PutErr, when set, fails every Put.
	PutErr error
}

// NewObjectStore creates an empty ObjectStore.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string][]byte)}
}

func (s *ObjectStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return s.PutErr
	}
	s.objects[key] = append([]byte(nil), data...)
	s.puts++
	return nil
}

func (s *ObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *ObjectStore) DeleteMany(_ context.Context, keys []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted []string
	for _, k := range keys {
		if _, ok := s.objects[k]; ok {
			delete(s.objects, k)
			deleted = append(deleted, k)
		}
	}
	return deleted, nil
}

// Keys returns every stored key in sorted order.
func (s *ObjectStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is stored.
func (s *ObjectStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Object returns the bytes stored under key.
func (s *ObjectStore) Object(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key]
}

// Puts returns the number of successful Put calls.
func (s *ObjectStore) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// InlineScheduler runs tasks synchronously on Submit and records their
// outcome.
type InlineScheduler struct {
	mu     sync.Mutex
	Names  []string
	Errors map[string]error
	closed bool
}

// NewInlineScheduler creates an InlineScheduler.
func NewInlineScheduler() *InlineScheduler {
	return &InlineScheduler{Errors: make(map[string]error)}
}

func (s *InlineScheduler) Submit(name string, fn committer.TaskFunc) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.Names = append(s.Names, name)
	s.mu.Unlock()

	if err := fn(context.Background()); err != nil {
		s.mu.Lock()
		s.Errors[name] = err
		s.mu.Unlock()
	}
	return true
}

// Close rejects later submissions.
func (s *InlineScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Submitted returns the task names in submission order.
func (s *InlineScheduler) Submitted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Names...)
}

// Message is one message captured by a Publisher.
type Message struct {
	RoutingKey string
	Payload    []byte
}

// Publisher captures published messages.
type Publisher struct {
	mu       sync.Mutex
	messages []Message

	// Err, when set, fails every Publish.
	Err error
}

// NewPublisher creates a Publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.messages = append(p.messages, Message{RoutingKey: routingKey, Payload: append([]byte(nil), payload...)})
	return nil
}

// Messages returns the captured messages in publish order.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

// ErrInjected is a generic failure for fakes.
var ErrInjected = errors.New("injected failure")

// JPEGDataURL returns a small solid-color JPEG encoded as a data URL.
func JPEGDataURL(t *testing.T, c color.Color) string {
	t.Helper()

	img := imaging.New(4, 4, c)
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// PNGDataURL returns a small PNG encoded as a data URL.
func PNGDataURL(t *testing.T) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
