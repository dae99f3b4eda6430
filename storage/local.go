package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// URLPrefix is the path under which Local files are served.
const URLPrefix = "/uploads"

// Local keeps uploads in a directory on disk.
type Local struct {
	dir     string
	baseURL string
	now     func() time.Time
}

func NewLocal(dir, publicBaseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("Local - NewLocal - os.MkdirAll: %w", err)
	}

	return &Local{
		dir:     dir,
		baseURL: publicBaseURL,
		now:     time.Now,
	}, nil
}

func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Save(ctx context.Context, originalName string, r io.Reader) (StoredFile, error) {
	now := l.now()

	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key := keyCandidate(now, originalName, attempt)

		f, err := os.OpenFile(filepath.Join(l.dir, key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return StoredFile{}, fmt.Errorf("Local - Save - os.OpenFile: %w", err)
		}

		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			os.Remove(f.Name())
			return StoredFile{}, fmt.Errorf("Local - Save - io.Copy: %w", err)
		}

		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			return StoredFile{}, fmt.Errorf("Local - Save - f.Close: %w", err)
		}

		return StoredFile{
			Key: key,
			URL: joinURL(l.baseURL, URLPrefix[1:], key),
		}, nil
	}

	return StoredFile{}, fmt.Errorf("Local - Save: %w", ErrKeyTaken)
}

func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, ErrNotFound
	}

	f, err := os.Open(filepath.Join(l.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Local - Open - os.Open: %w", err)
	}

	return f, nil
}

func (l *Local) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return ErrNotFound
	}

	err := os.Remove(filepath.Join(l.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("Local - Delete - os.Remove: %w", err)
	}

	return nil
}
