package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileName   = ".fetcharr.lock"
	lockRetryDelay = 50 * time.Millisecond
	maxJobFileSize = 32 << 20
)

// fetchJobFile downloads the job descriptor (an .nzb or .torrent) at rawURL.
func fetchJobFile(ctx context.Context, hc *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", redactURL(rawURL), redactError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status: %d", redactURL(rawURL), resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJobFileSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", redactURL(rawURL), err)
	}
	return data, nil
}

// redactURL drops the query string, which usually carries an indexer API key.
func redactURL(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// redactError applies redactURL to the URL inside a transport error.
func redactError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = redactURL(ue.URL)
	}
	return err
}

// writeJobFile writes data to dir/name while holding the folder lock. The file
// appears atomically so a watcher never sees a partial job.
func writeJobFile(ctx context.Context, dir, name string, data []byte) (string, error) {
	var path string
	err := withFolderLock(ctx, dir, func() error {
		var err error
		path, err = writeFileAtomic(dir, name, data)
		return err
	})
	return path, err
}

// withFolderLock runs fn while holding the lock file in dir.
func withFolderLock(ctx context.Context, dir string, fn func() error) error {
	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", dir, err)
	}
	if !locked {
		return fmt.Errorf("lock %s: not acquired", dir)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

// writeFileAtomic writes dir/name through a temp file and a rename. The
// caller holds the folder lock.
func writeFileAtomic(dir, name string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, ".fetcharr-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}

// requireDir checks that a configured folder exists.
func requireDir(setting, dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidSettings, setting)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSettings, setting, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s: %s is not a directory", ErrInvalidSettings, setting, dir)
	}
	return nil
}

// within reports whether path lies inside dir.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// isHidden skips dotfiles such as the lock file and partial writes.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// pathSize returns the size of a file or the total size of a directory tree.
func pathSize(path string) (int64, error) {
	var total int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
