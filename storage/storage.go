// Package storage persists uploaded photos and resolves their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

const (
	keyTimeLayout = "20060102150405"
	// maxKeyAttempts bounds the suffixes tried when a key is already taken.
	maxKeyAttempts = 100
)

var (
	ErrNotFound = errors.New("stored file not found")
	ErrKeyTaken = errors.New("no free storage key")
)

type StoredFile struct {
	Key string
	URL string
}

// MediaStore is implemented by Local and S3.
type MediaStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (StoredFile, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewKey builds the storage key "<UTC YYYYMMDDHHMMSS>_<name>". Directory
// components of the client supplied name are dropped.
func NewKey(now time.Time, originalName string) string {
	return keyCandidate(now, originalName, 0)
}

// keyCandidate returns NewKey for attempt 0 and "<ts>_<stem>-<attempt><ext>"
// afterwards, used when two uploads share a name within the same second.
func keyCandidate(now time.Time, originalName string, attempt int) string {
	name := cleanName(originalName)
	if attempt > 0 {
		ext := path.Ext(name)
		name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), attempt, ext)
	}
	return now.UTC().Format(keyTimeLayout) + "_" + name
}

func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." || name == "" {
		return "upload"
	}
	return name
}

func joinURL(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}

func validKey(key string) bool {
	return key != "" && key == cleanName(key)
}
