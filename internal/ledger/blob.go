package ledger

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrBlobNotFound is returned by Load on a fresh install.
var ErrBlobNotFound = errors.New("ledger blob not found")

// Blob is the single durable record the ledger reads and rewrites whole.
type Blob interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// FileBlob keeps the record in one file, replaced atomically on every save.
type FileBlob struct {
	path string
}

func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path}
}

func (b *FileBlob) Path() string { return b.path }

func (b *FileBlob) Load() ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	return data, err
}

func (b *FileBlob) Save(data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "tmp-*.json")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, b.path)
}

// MemoryBlob is a Blob for tests and throwaway sessions.
type MemoryBlob struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryBlob(initial []byte) *MemoryBlob {
	b := &MemoryBlob{}
	if initial != nil {
		b.data = append([]byte(nil), initial...)
	}
	return b
}

func (b *MemoryBlob) Load() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, ErrBlobNotFound
	}
	return append([]byte(nil), b.data...), nil
}

func (b *MemoryBlob) Save(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), data...)
	return nil
}
