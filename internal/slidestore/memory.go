package slidestore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process ImageStore. It counts writes so callers can
// check how often each slide was persisted.
type MemoryStore struct {
	mu     sync.Mutex
	images map[string]map[int][]byte
	puts   map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		images: make(map[string]map[int][]byte),
		puts:   make(map[string]int),
	}
}

func (s *MemoryStore) Put(_ context.Context, processingID string, slideNumber int, png []byte) error {
	if err := checkProcessingID(processingID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.images[processingID] == nil {
		s.images[processingID] = make(map[int][]byte)
	}
	s.images[processingID][slideNumber] = append([]byte(nil), png...)
	s.puts[Ref(processingID, slideNumber)]++
	return nil
}

func (s *MemoryStore) Get(_ context.Context, processingID string, slideNumber int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[processingID][slideNumber]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, Ref(processingID, slideNumber))
	}
	return append([]byte(nil), img...), nil
}

func (s *MemoryStore) List(_ context.Context, processingID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nums := make([]int, 0, len(s.images[processingID]))
	for n := range s.images[processingID] {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums, nil
}

// Puts reports how many times the image under ref was written.
func (s *MemoryStore) Puts(ref string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts[ref]
}
