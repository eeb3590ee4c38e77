// Package sqlite implements the durable record store on an embedded SQLite
// database. It is the only component that touches local storage; every
// operation runs in a short transaction so the producer path, the delivery
// worker, the recovery sweep and cleanup can share it safely.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
)

// Store implements ports.RecordStore.
type Store struct {
	db         *sql.DB
	maxBytes   int64
	maxRetries int

	mu     sync.RWMutex
	closed bool
}

// Open creates or opens a record store at path. Use ":memory:" for testing.
// maxBytes is the configured store size limit (0 = unlimited); maxRetries is
// the per-record retry budget before a record is marked Failed.
func Open(path string, maxBytes int64, maxRetries int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps transactions serialized and avoids
	// SQLITE_BUSY between the producer path and the background loops.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			correlation_key TEXT NOT NULL,
			payload         BLOB NOT NULL,
			size_bytes      INTEGER NOT NULL,
			origin_ts       INTEGER NOT NULL,
			buffered_at     INTEGER NOT NULL,
			sent_at         INTEGER,
			status          INTEGER NOT NULL,
			retry_count     INTEGER NOT NULL DEFAULT 0,
			last_error      TEXT
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	for _, idx := range []string{
		`CREATE INDEX IF NOT EXISTS idx_records_status_origin
		 ON records(status, origin_ts DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_records_status_sent
		 ON records(status, sent_at)`,
	} {
		if _, err := db.Exec(idx); err != nil {
			db.Close()
			return nil, fmt.Errorf("create index: %w", err)
		}
	}

	return &Store{db: db, maxBytes: maxBytes, maxRetries: maxRetries}, nil
}

// Add implements ports.RecordStore. The row is durable when Add returns.
func (s *Store) Add(ctx context.Context, rec domain.Record) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, domain.ErrStoreClosed
	}

	buffered := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO records
			(correlation_key, payload, size_bytes, origin_ts, buffered_at, status, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`, rec.CorrelationKey, rec.Payload, int64(len(rec.Payload)),
		rec.OriginTimestamp.UnixNano(), buffered.UnixNano(), int(domain.StatusPending))
	if err != nil {
		return 0, &domain.StorageError{Op: "add", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, &domain.StorageError{Op: "add", Err: err}
	}
	return id, nil
}

// GetBatch implements ports.RecordStore: up to n Pending records, newest
// origin timestamp first.
func (s *Store) GetBatch(ctx context.Context, n int) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, correlation_key, payload, size_bytes, origin_ts,
		       buffered_at, sent_at, status, retry_count, last_error
		FROM records
		WHERE status = ?
		ORDER BY origin_ts DESC
		LIMIT ?
	`, int(domain.StatusPending), n)
	if err != nil {
		return nil, &domain.StorageError{Op: "getBatch", Err: err}
	}
	defer rows.Close()

	var recs []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "getBatch", Err: err}
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "getBatch", Err: err}
	}
	return recs, nil
}

// MarkSent implements ports.RecordStore. Only Pending records can become
// Sent: marking an already-Sent record again is a no-op, but a Failed
// record stays Failed and the call returns ErrStatusConflict so a duplicate
// acceptance cannot erase a recorded rejection.
func (s *Store) MarkSent(ctx context.Context, id int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE records SET status = ?, sent_at = ?
		WHERE id = ? AND status = ?
	`, int(domain.StatusSent), time.Now().UTC().UnixNano(), id, int(domain.StatusPending))
	if err != nil {
		return &domain.StorageError{Op: "markSent", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "markSent", Err: err}
	}
	if affected == 0 {
		status, ok := s.status(ctx, id)
		switch {
		case !ok:
			return domain.ErrRecordNotFound
		case status == domain.StatusSent:
			return nil
		default:
			return fmt.Errorf("%w: record %d is %s, not Pending",
				domain.ErrStatusConflict, id, status)
		}
	}
	return nil
}

// MarkFailed implements ports.RecordStore. The record stays Pending until its
// retry count exceeds the configured maximum, then becomes Failed.
func (s *Store) MarkFailed(ctx context.Context, id int64, msg string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE records SET
			retry_count = retry_count + 1,
			last_error  = ?,
			status      = CASE WHEN retry_count + 1 > ? THEN ? ELSE ? END
		WHERE id = ? AND status = ?
	`, msg, s.maxRetries, int(domain.StatusFailed), int(domain.StatusPending),
		id, int(domain.StatusPending))
	if err != nil {
		return &domain.StorageError{Op: "markFailed", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "markFailed", Err: err}
	}
	if affected == 0 && !s.exists(ctx, id) {
		return domain.ErrRecordNotFound
	}
	return nil
}

// MarkRejected implements ports.RecordStore: a 4xx-class rejection moves the
// record straight to Failed.
func (s *Store) MarkRejected(ctx context.Context, id int64, msg string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE records SET
			status      = ?,
			retry_count = retry_count + 1,
			last_error  = ?
		WHERE id = ? AND status = ?
	`, int(domain.StatusFailed), msg, id, int(domain.StatusPending))
	if err != nil {
		return &domain.StorageError{Op: "markRejected", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "markRejected", Err: err}
	}
	if affected == 0 && !s.exists(ctx, id) {
		return domain.ErrRecordNotFound
	}
	return nil
}

// ResetFailed implements ports.RecordStore: the operator re-arm for a Failed
// record.
func (s *Store) ResetFailed(ctx context.Context, id int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE records SET status = ?, retry_count = 0, last_error = NULL, sent_at = NULL
		WHERE id = ? AND status = ?
	`, int(domain.StatusPending), id, int(domain.StatusFailed))
	if err != nil {
		return &domain.StorageError{Op: "resetFailed", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "resetFailed", Err: err}
	}
	if affected == 0 && !s.exists(ctx, id) {
		return domain.ErrRecordNotFound
	}
	return nil
}

// Stats implements ports.RecordStore.
func (s *Store) Stats(ctx context.Context) (domain.BufferStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.BufferStats{}, domain.ErrStoreClosed
	}

	var stats domain.BufferStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(size_bytes), 0)
		FROM records
	`, int(domain.StatusPending), int(domain.StatusSent), int(domain.StatusFailed)).
		Scan(&stats.Pending, &stats.Sent, &stats.Failed, &stats.TotalBytes)
	if err != nil {
		return domain.BufferStats{}, &domain.StorageError{Op: "stats", Err: err}
	}
	stats.MaxBytes = s.maxBytes
	return stats, nil
}

// Cleanup implements ports.RecordStore: removes Sent records past the
// retention window and reclaims the space.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, domain.ErrStoreClosed
	}

	cutoff := time.Now().UTC().Add(-retention).UnixNano()
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM records WHERE status = ? AND sent_at IS NOT NULL AND sent_at < ?
	`, int(domain.StatusSent), cutoff)
	if err != nil {
		return 0, &domain.StorageError{Op: "cleanup", Err: err}
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &domain.StorageError{Op: "cleanup", Err: err}
	}
	if deleted > 0 {
		// Best effort; the delete itself already freed the pages for reuse.
		_, _ = s.db.ExecContext(ctx, "PRAGMA incremental_vacuum")
	}
	return deleted, nil
}

// Get returns a single record by id.
func (s *Store) Get(ctx context.Context, id int64) (domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.Record{}, domain.ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, correlation_key, payload, size_bytes, origin_ts,
		       buffered_at, sent_at, status, retry_count, last_error
		FROM records WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.Record{}, &domain.StorageError{Op: "get", Err: err}
	}
	return rec, nil
}

// Close implements ports.RecordStore.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// exists reports whether a record id is present. Callers hold s.mu.
func (s *Store) exists(ctx context.Context, id int64) bool {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM records WHERE id = ?", id).Scan(&one)
	return err == nil
}

// status reads a record's current status; ok is false when the id is unknown.
func (s *Store) status(ctx context.Context, id int64) (domain.RecordStatus, bool) {
	var raw int
	err := s.db.QueryRowContext(ctx,
		"SELECT status FROM records WHERE id = ?", id).Scan(&raw)
	if err != nil {
		return 0, false
	}
	return domain.RecordStatus(raw), true
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (domain.Record, error) {
	var (
		rec       domain.Record
		status    int
		originNs  int64
		buffNs    int64
		sentNs    sql.NullInt64
		lastError sql.NullString
	)
	if err := sc.Scan(&rec.ID, &rec.CorrelationKey, &rec.Payload, &rec.SizeBytes,
		&originNs, &buffNs, &sentNs, &status, &rec.RetryCount, &lastError); err != nil {
		return domain.Record{}, err
	}
	rec.OriginTimestamp = time.Unix(0, originNs).UTC()
	rec.BufferedAt = time.Unix(0, buffNs).UTC()
	if sentNs.Valid {
		rec.SentAt = time.Unix(0, sentNs.Int64).UTC()
	}
	rec.Status = domain.RecordStatus(status)
	rec.LastError = lastError.String
	return rec, nil
}
