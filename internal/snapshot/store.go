package snapshot

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
)

// FileStore keeps the most recent recommendation table at a fixed path.
type FileStore struct {
	path string
}

func NewFileStore(dir, name string) *FileStore {
	return &FileStore{path: filepath.Join(dir, name)}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Save(recs []reorder.Recommendation) error {
	return WriteFileAtomic(s.path, func(w io.Writer) error {
		return WriteCSV(w, recs)
	})
}

// Open returns the current snapshot for streaming. The caller closes it.
func (s *FileStore) Open() (*os.File, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	return f, err
}

func (s *FileStore) Load() ([]reorder.Recommendation, error) {
	f, err := s.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}
