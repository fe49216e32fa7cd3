// Package hashcache persists lazily-computed SHA-256 content hashes of
// media artifacts so the resolver never rehashes a file it has already
// seen, across runs and across processes sharing a cache directory. The
// transcriber's cache-key digest (HashFileWithExtra) is not stored and is
// recomputed on every call.
package hashcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"chatpipe/internal/fileutil"
)

// Store manages hash cache persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the hash cache database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure hash cache dir: %w", err)
	}
	dbPath := filepath.Join(dir, "hashcache.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS file_hashes (
	path TEXT PRIMARY KEY,
	size INTEGER NOT NULL,
	mtime_unix INTEGER NOT NULL,
	sha256 TEXT NOT NULL
);
`
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, schema)
		return err
	})
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// HashFile returns the SHA-256 digest of path, computing and persisting it
// only when no cached entry matches the file's current size and mtime.
// This is what makes hashing "lazy": a file is hashed once per
// (size, mtime) pair it is ever observed with, not once per scan.
func (s *Store) HashFile(ctx context.Context, path string) (string, error) {
	ctx = ensureContext(ctx)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()
	mtime := info.ModTime().Unix()

	var cachedHash string
	var cachedSize, cachedMtime int64
	row := s.db.QueryRowContext(ctx, `SELECT size, mtime_unix, sha256 FROM file_hashes WHERE path = ?`, path)
	switch err := row.Scan(&cachedSize, &cachedMtime, &cachedHash); {
	case err == nil:
		if cachedSize == size && cachedMtime == mtime {
			return cachedHash, nil
		}
	case errors.Is(err, sql.ErrNoRows):
		// fall through to compute
	default:
		return "", fmt.Errorf("query hash cache: %w", err)
	}

	digest, err := fileutil.SHA256File(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	if err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO file_hashes(path, size, mtime_unix, sha256) VALUES (?, ?, ?, ?)
			 ON CONFLICT(path) DO UPDATE SET size = excluded.size, mtime_unix = excluded.mtime_unix, sha256 = excluded.sha256`,
			path, size, mtime, digest)
		return execErr
	}); err != nil {
		return "", fmt.Errorf("persist hash cache entry: %w", err)
	}
	return digest, nil
}

// HashFileWithExtra computes a digest over the file content followed by an
// extra string, used by the transcriber to derive a cache key that also
// depends on provider/model/chunking configuration. The extra component is
// never cached, since any config change must force recomputation.
func HashFileWithExtra(path, extra string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	if extra != "" {
		h.Write([]byte(extra))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
