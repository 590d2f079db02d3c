package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"timeliner/internal/ges"
	"timeliner/internal/logging"
)

// Store is an open project file.
type Store struct {
	db       *sql.DB
	path     string
	lockPath string
	lock     *flock.Flock
	logger   *slog.Logger

	// held are records the last Load could not rebuild. Save writes them
	// back unchanged.
	held []ges.Record
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

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open locks and opens the project file at path, creating it and its parent
// directory when missing.
func Open(path string, logger *slog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("project path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure project directory: %w", err)
	}

	lockPath := path + ".lock"
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire project lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:       db,
		path:     path,
		lockPath: lockPath,
		lock:     lock,
		logger:   logging.NewComponentLogger(logger, "project").With(logging.String("project", path)),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	store.logger.Debug("project opened")
	return store, nil
}

// Close closes the database and releases the project lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if unlockErr := s.lock.Unlock(); unlockErr != nil {
		logging.WarnWithContext(s.logger, "failed to release project lock", "project_unlock_failed",
			logging.String("lock", s.lockPath),
			logging.Error(unlockErr),
			logging.String(logging.FieldImpact, "other processes cannot open the project until this one exits"),
		)
	}
	return err
}

// Path returns the project file location.
func (s *Store) Path() string { return s.path }

// Init records the media types of the project timeline. Existing objects are kept.
func (s *Store) Init(ctx context.Context, mt ges.MediaType) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx,
		`INSERT INTO project (id, media_type, created_at, updated_at) VALUES (1, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET media_type = excluded.media_type, updated_at = excluded.updated_at`,
		mt.String(), timestamp, timestamp,
	)
	if err != nil {
		return fmt.Errorf("init project: %w", err)
	}
	s.logger.Info("project initialized", logging.String("media_type", mt.String()))
	return nil
}

// MediaType returns the media types recorded by Init.
func (s *Store) MediaType(ctx context.Context) (ges.MediaType, error) {
	var raw string
	err := s.db.QueryRowContext(ensureContext(ctx), "SELECT media_type FROM project WHERE id = 1").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoProject
	}
	if err != nil {
		return 0, fmt.Errorf("read project: %w", err)
	}
	mt, err := ges.ParseMediaType(raw)
	if err != nil {
		return 0, fmt.Errorf("read project media type: %w", err)
	}
	return mt, nil
}

// UpdatedAt returns the time of the last change to the project.
func (s *Store) UpdatedAt(ctx context.Context) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ensureContext(ctx), "SELECT updated_at FROM project WHERE id = 1").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNoProject
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read project: %w", err)
	}
	return time.Parse(time.RFC3339Nano, raw)
}

func (s *Store) touch(ctx context.Context, exec interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}) error {
	_, err := exec.ExecContext(ctx, "UPDATE project SET updated_at = ? WHERE id = 1",
		time.Now().UTC().Format(time.RFC3339Nano))
	return err
}
