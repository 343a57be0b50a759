package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/hireflow/internal/logger"
	"github.com/soaringjerry/hireflow/internal/models"
	"github.com/soaringjerry/hireflow/internal/services"
)

// SQLiteStore persists assessment definitions, responses and drafts. The
// full documents are stored as JSON; the other columns exist for lookups
// and ordering.
type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Entry
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db, log: logger.Default("sqlite"), now: time.Now}, nil
}

// Open creates the database file if needed and applies migrations.
func Open(path, migrationsDir string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(path))
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := RunMigrations(sqlDB, migrationsDir); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s, err := NewSQLiteStore(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) SetLogger(l *logrus.Entry) { s.log = l }
func (s *SQLiteStore) Close() error              { return s.db.Close() }
func (s *SQLiteStore) Stats() sql.DBStats        { return s.db.Stats() }

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		s.log.WithError(err).Warn("sqlite store: " + prefix)
	}
}

// timeLayout is fixed width so text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

// GetAssessment returns (nil, nil) when the job has no assessment.
func (s *SQLiteStore) GetAssessment(ctx context.Context, jobID string) (*models.Assessment, error) {
	return s.getAssessment(ctx, "SELECT definition FROM assessments WHERE job_id = ?", jobID)
}

func (s *SQLiteStore) GetAssessmentByID(ctx context.Context, id string) (*models.Assessment, error) {
	return s.getAssessment(ctx, "SELECT definition FROM assessments WHERE id = ?", id)
}

func (s *SQLiteStore) getAssessment(ctx context.Context, query, arg string) (*models.Assessment, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	var a models.Assessment
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}
	return &a, nil
}

// PutAssessment upserts the job's single definition.
func (s *SQLiteStore) PutAssessment(ctx context.Context, jobID string, a models.Assessment) (*models.Assessment, error) {
	a.JobID = jobID
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode assessment: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO assessments (id, job_id, title, is_active, definition, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(job_id) DO UPDATE SET
    id = excluded.id,
    title = excluded.title,
    is_active = excluded.is_active,
    definition = excluded.definition,
    updated_at = excluded.updated_at`,
		a.ID, jobID, a.Title, boolToInt64(a.IsActive), string(raw), formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("put assessment: %w", err)
	}
	out := a.Clone()
	return &out, nil
}

// SaveResponse upserts r by id.
func (s *SQLiteStore) SaveResponse(ctx context.Context, assessmentID string, r models.AssessmentResponse) (*models.AssessmentResponse, error) {
	r.AssessmentID = assessmentID
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO responses (id, assessment_id, candidate_id, status, started_at, completed_at, body)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    assessment_id = excluded.assessment_id,
    candidate_id = excluded.candidate_id,
    status = excluded.status,
    started_at = excluded.started_at,
    completed_at = excluded.completed_at,
    body = excluded.body`,
		r.ID, assessmentID, toNullString(r.CandidateID), string(r.Status), formatTime(r.StartedAt), nullTime(r.CompletedAt), string(raw))
	if err != nil {
		return nil, fmt.Errorf("save response: %w", err)
	}
	out := r.Clone()
	return &out, nil
}

// GetResponse returns (nil, nil) for an unknown id.
func (s *SQLiteStore) GetResponse(ctx context.Context, id string) (*models.AssessmentResponse, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM responses WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	var r models.AssessmentResponse
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &r, nil
}

// ListResponses returns the assessment's responses oldest first. Rows that
// no longer decode are logged and skipped.
func (s *SQLiteStore) ListResponses(ctx context.Context, assessmentID string) ([]models.AssessmentResponse, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, body FROM responses WHERE assessment_id = ? ORDER BY started_at, id", assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer func() { s.logErr("close response rows", rows.Close()) }()

	out := []models.AssessmentResponse{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		var r models.AssessmentResponse
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			s.logErr("decode response "+id, err)
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return out, nil
}

// Get returns (nil, nil) for a missing draft key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM drafts WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO drafts (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("set draft: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// PurgeDrafts removes drafts untouched since cutoff and returns how many
// were deleted.
func (s *SQLiteStore) PurgeDrafts(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE updated_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge drafts: %w", err)
	}
	n, err := res.RowsAffected()
	s.logErr("purge drafts rows affected", err)
	return n, nil
}

var (
	_ services.AssessmentRepository = (*SQLiteStore)(nil)
	_ services.DraftStore           = (*SQLiteStore)(nil)
)
