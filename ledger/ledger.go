// Package ledger records the outcome of every topic run in SQLite so later
// runs can skip topics that already produced a video.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"leetcode-video-pipeline/types"
)

// Ledger is the run history store
type Ledger struct {
	db   *sql.DB
	path string
}

// Entry is one recorded topic outcome
type Entry struct {
	ID           int64
	RunID        string
	Topic        string
	Success      bool
	VideoPath    string
	VideoURL     string
	Scenes       int
	FailedScenes []int
	Failures     []types.SceneFailure
	Error        string
	RecordedAt   time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS topic_runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	topic_key     TEXT NOT NULL,
	topic         TEXT NOT NULL,
	success       INTEGER NOT NULL,
	video_path    TEXT,
	video_url     TEXT,
	scenes        INTEGER NOT NULL DEFAULT 0,
	failed_scenes TEXT,
	error         TEXT,
	recorded_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_topic_runs_key ON topic_runs(topic_key, success);
`

const (
	sqliteBusyCode    = 5
	busyRetryAttempts = 5
	busyRetryBackoff  = 20 * time.Millisecond
)

// Open creates or opens the ledger database at path
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("ledger path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init ledger schema: %w", err)
	}
	return &Ledger{db: db, path: path}, nil
}

// Close closes the database. Nil-safe.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// TopicKey normalizes a topic title for matching across runs
func TopicKey(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// Record stores one topic outcome under runID
func (l *Ledger) Record(ctx context.Context, runID string, r types.PipelineResult) error {
	failed, err := json.Marshal(failureRecords(r))
	if err != nil {
		return err
	}
	return retryOnBusy(ctx, func() error {
		_, err := l.db.ExecContext(ctx,
			`INSERT INTO topic_runs (run_id, topic_key, topic, success, video_path, video_url, scenes, failed_scenes, error, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, TopicKey(r.Topic), r.Topic, boolInt(r.Success), r.VideoPath, r.VideoURL,
			r.Scenes, string(failed), r.Error, time.Now().UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// Completed reports whether topic has a successful run on record
func (l *Ledger) Completed(ctx context.Context, topic string) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM topic_runs WHERE topic_key = ? AND success = 1`, TopicKey(topic),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return n > 0, nil
}

// List returns the most recent entries first; limit <= 0 returns all
func (l *Ledger) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, run_id, topic, success, COALESCE(video_path, ''), COALESCE(video_url, ''),
		scenes, COALESCE(failed_scenes, ''), COALESCE(error, ''), recorded_at
		FROM topic_runs ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			success  int
			failed   string
			recorded string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Topic, &success, &e.VideoPath, &e.VideoURL, &e.Scenes, &failed, &e.Error, &recorded); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		e.Success = success == 1
		e.Failures, e.FailedScenes = decodeFailures(failed)
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recorded)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// failureRecords lists every failed scene with its reason; ids without a
// recorded reason are kept as bare ids
func failureRecords(r types.PipelineResult) []types.SceneFailure {
	out := append([]types.SceneFailure(nil), r.SceneFailures...)
	have := make(map[int]bool, len(out))
	for _, f := range out {
		have[f.SceneID] = true
	}
	for _, id := range r.FailedScenes {
		if !have[id] {
			out = append(out, types.SceneFailure{SceneID: id})
		}
	}
	return out
}

// decodeFailures reads failed_scenes, which holds failure records or, in
// older rows, a plain id list
func decodeFailures(raw string) ([]types.SceneFailure, []int) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var failures []types.SceneFailure
	if err := json.Unmarshal([]byte(raw), &failures); err == nil {
		ids := make([]int, 0, len(failures))
		for _, f := range failures {
			ids = append(ids, f.SceneID)
		}
		return failures, ids
	}
	var ids []int
	_ = json.Unmarshal([]byte(raw), &ids)
	return nil, ids
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
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
	delay := busyRetryBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if !isSQLiteBusy(lastErr) {
			return lastErr
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return lastErr
}
