package slidestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// LocalStore keeps slide images on the local filesystem under a root
// directory. It backs the CLI and tests.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create slide image dir %s: %w", root, err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) path(processingID string, slideNumber int) string {
	return filepath.Join(s.root, filepath.FromSlash(objectName(processingID, slideNumber)))
}

// Put writes through a temp file and rename so readers never see a partial
// image.
func (s *LocalStore) Put(ctx context.Context, processingID string, slideNumber int, png []byte) error {
	if err := checkProcessingID(processingID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dest := s.path(processingID, slideNumber)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", dest, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".slide-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(png); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to move image into place at %s: %w", dest, err)
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, processingID string, slideNumber int) ([]byte, error) {
	if err := checkProcessingID(processingID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(processingID, slideNumber))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, Ref(processingID, slideNumber))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slide image: %w", err)
	}
	return data, nil
}

func (s *LocalStore) List(ctx context.Context, processingID string) ([]int, error) {
	if err := checkProcessingID(processingID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, processingID))
	if errors.Is(err, fs.ErrNotExist) {
		return []int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list slide images: %w", err)
	}
	nums := make([]int, 0, len(entries))
	for _, e := range entries {
		if n, ok := slideNumberFromName(e.Name()); ok && !e.IsDir() {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums, nil
}
