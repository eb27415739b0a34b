package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// tempPrefix marks uploads still being written. Keys may not use it.
const tempPrefix = ".upload-"

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// FileStorage keeps objects as files under <root>/<bucket>/<key> and hands out
// public URLs rooted at publicURL.
type FileStorage struct {
	root      string
	publicURL string
	mutex     sync.RWMutex
}

// NewFileStorage creates the storage root if it doesn't exist.
func NewFileStorage(root, publicURL string) (*FileStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &FileStorage{
		root:      root,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// objectPath resolves bucket/key to a path that stays inside the storage root.
func (fs *FileStorage) objectPath(bucket, key string) (string, error) {
	if bucket == "" || key == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", ErrInvalidKey
	}
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, `\`) || clean != "/"+key || strings.HasPrefix(path.Base(clean), tempPrefix) {
		return "", ErrInvalidKey
	}
	return filepath.Join(fs.root, bucket, filepath.FromSlash(clean[1:])), nil
}

// PublicURL returns the URL an uploaded object is served from.
func (fs *FileStorage) PublicURL(bucket, key string) string {
	escaped := make([]string, 0)
	for _, part := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return fmt.Sprintf("%s/api/v1/storage/%s/%s", fs.publicURL, url.PathEscape(bucket), strings.Join(escaped, "/"))
}

// Put writes the object and returns its public URL. Existing objects are not overwritten.
// The body is streamed to a temporary file first; the lock is held only while
// the finished file is linked into place.
func (fs *FileStorage) Put(ctx context.Context, bucket, key string, r io.Reader) (string, error) {
	p, err := fs.objectPath(bucket, key)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create bucket dir: %w", err)
	}
	if _, err := os.Stat(p); err == nil {
		return "", fmt.Errorf("object %s/%s already exists: %w", bucket, key, ErrInvalidKey)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, copyErr := io.Copy(tmp, readerWithContext(ctx, r))
	closeErr := tmp.Close()
	if copyErr != nil {
		return "", fmt.Errorf("write object: %w", copyErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("close object: %w", closeErr)
	}

	fs.mutex.Lock()
	err = os.Link(tmp.Name(), p)
	fs.mutex.Unlock()
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("object %s/%s already exists: %w", bucket, key, ErrInvalidKey)
		}
		return "", fmt.Errorf("store object: %w", err)
	}

	slog.Info("Object stored", "bucket", bucket, "key", key, "size", n)
	return fs.PublicURL(bucket, key), nil
}

// Open returns a reader over the object. The caller closes it.
func (fs *FileStorage) Open(ctx context.Context, bucket, key string) (io.ReadSeekCloser, error) {
	p, err := fs.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}

	fs.mutex.RLock()
	defer fs.mutex.RUnlock()

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		slog.Error("Failed to open object", "path", p, "error", err)
		return nil, err
	}
	return f, nil
}

// Exists reports whether the object is present.
func (fs *FileStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	p, err := fs.objectPath(bucket, key)
	if err != nil {
		return false, err
	}

	fs.mutex.RLock()
	defer fs.mutex.RUnlock()

	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// Remove deletes the object. Removing a missing object reports ErrNotFound.
func (fs *FileStorage) Remove(ctx context.Context, bucket, key string) error {
	p, err := fs.objectPath(bucket, key)
	if err != nil {
		return err
	}

	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		slog.Error("Failed to remove object", "path", p, "error", err)
		return err
	}
	slog.Info("Object removed", "bucket", bucket, "key", key)
	return nil
}

// Stats returns the object count and total size of a bucket. Uploads still in
// progress are not counted.
func (fs *FileStorage) Stats(bucket string) (int, int64, error) {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()

	var totalSize int64
	fileCount := 0
	err := filepath.WalkDir(filepath.Join(fs.root, bucket), func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		fileCount++
		if info, err := d.Info(); err == nil {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, 0, err
	}
	return fileCount, totalSize, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
