// Package feedback persists workflow corrections and serves suggestions
// learned from them.
//
// Feedback is an append-only log with one twist: submitting the same kind
// of correction for the same task again bumps the existing record's
// frequency instead of adding a row. Suggestions come from records whose
// task signature is similar enough to the task being planned.
package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/webpilot-ai/webpilot/pkg/logging"
	"github.com/webpilot-ai/webpilot/pkg/workflow"
)

// FeedbackType classifies a submission.
type FeedbackType string

const (
	FeedbackCorrection FeedbackType = "correction"
	FeedbackSuccess    FeedbackType = "success"
	FeedbackFailure    FeedbackType = "failure"
)

func (t FeedbackType) valid() bool {
	return t == FeedbackCorrection || t == FeedbackSuccess || t == FeedbackFailure
}

// Submission is one piece of user feedback about a generated workflow.
type Submission struct {
	OriginalTask   string
	GeneratedSteps []workflow.Step
	CorrectedSteps []workflow.Step
	Type           FeedbackType
	URL            string
	Notes          string
}

// Validate checks the submission carries the fields every record needs.
func (sub Submission) Validate() error {
	if sub.OriginalTask == "" {
		return fmt.Errorf("feedback requires the original task")
	}
	if !sub.Type.valid() {
		return fmt.Errorf("invalid feedback type %q", sub.Type)
	}
	return nil
}

// LearningRecord is a stored feedback row.
type LearningRecord struct {
	ID             string
	TaskSignature  string
	OriginalTask   string
	GeneratedSteps []workflow.Step
	CorrectedSteps []workflow.Step
	Type           FeedbackType
	URL            string
	Notes          string
	Diffs          []FieldDiff
	Frequency      int
	CreatedAt      time.Time
}

// Store is the SQLite-backed feedback store. It is safe for concurrent
// submission; frequency increments ride on a unique index upsert.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewStore opens (creating if needed) the feedback database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback database: %w", err)
	}
	// SQLite allows one writer at a time; a single connection keeps
	// concurrent submissions queued instead of failing busy.
	db.SetMaxOpenConns(1)

	queries := []string{
		`CREATE TABLE IF NOT EXISTS learning_records (
			id TEXT PRIMARY KEY,
			task_signature TEXT NOT NULL,
			original_task TEXT NOT NULL,
			generated_steps TEXT NOT NULL,
			corrected_steps TEXT NOT NULL,
			feedback_type TEXT NOT NULL,
			url TEXT,
			notes TEXT,
			diff_key TEXT NOT NULL,
			diffs TEXT NOT NULL,
			frequency INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_learning_identity
			ON learning_records(task_signature, diff_key, feedback_type);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create feedback schema: %w", err)
		}
	}

	return &Store{
		db:     db,
		logger: logging.NewLogger("feedback"),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SubmitFeedback diffs the generated steps against the corrected ones and
// stores a learning record. A record with the same task signature, changed
// fields, and feedback type already present gets its frequency bumped
// instead.
func (s *Store) SubmitFeedback(ctx context.Context, sub Submission) (*LearningRecord, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	signature := Signature(sub.OriginalTask)
	diffs := DiffSteps(sub.GeneratedSteps, sub.CorrectedSteps)
	diffKey := DiffKey(diffs)

	generatedJSON, err := json.Marshal(sub.GeneratedSteps)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generated steps: %w", err)
	}
	correctedJSON, err := json.Marshal(sub.CorrectedSteps)
	if err != nil {
		return nil, fmt.Errorf("failed to encode corrected steps: %w", err)
	}
	diffsJSON, err := json.Marshal(diffs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode diffs: %w", err)
	}

	query := `INSERT INTO learning_records
		(id, task_signature, original_task, generated_steps, corrected_steps,
		 feedback_type, url, notes, diff_key, diffs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_signature, diff_key, feedback_type) DO UPDATE SET
			frequency = frequency + 1,
			corrected_steps = excluded.corrected_steps,
			notes = excluded.notes,
			updated_at = CURRENT_TIMESTAMP`
	_, err = s.db.ExecContext(ctx, query,
		uuid.New().String(), signature, sub.OriginalTask,
		string(generatedJSON), string(correctedJSON),
		string(sub.Type), sub.URL, sub.Notes, diffKey, string(diffsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to store feedback: %w", err)
	}

	record, err := s.findRecord(ctx, signature, diffKey, sub.Type)
	if err != nil {
		return nil, err
	}
	s.logger.Infof("feedback stored: signature=%q fields=%s frequency=%d", signature, diffKey, record.Frequency)
	return record, nil
}

// Records returns every learning record, newest first.
func (s *Store) Records(ctx context.Context) ([]*LearningRecord, error) {
	query := `SELECT id, task_signature, original_task, generated_steps,
		corrected_steps, feedback_type, url, notes, diffs, frequency, created_at
		FROM learning_records ORDER BY created_at DESC, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read learning records: %w", err)
	}
	defer rows.Close()

	var records []*LearningRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) findRecord(ctx context.Context, signature, diffKey string, feedbackType FeedbackType) (*LearningRecord, error) {
	query := `SELECT id, task_signature, original_task, generated_steps,
		corrected_steps, feedback_type, url, notes, diffs, frequency, created_at
		FROM learning_records
		WHERE task_signature = ? AND diff_key = ? AND feedback_type = ?`
	row := s.db.QueryRowContext(ctx, query, signature, diffKey, string(feedbackType))
	record, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored feedback: %w", err)
	}
	return record, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*LearningRecord, error) {
	var record LearningRecord
	var generatedJSON, correctedJSON, diffsJSON, feedbackType string
	var url, notes sql.NullString
	if err := row.Scan(&record.ID, &record.TaskSignature, &record.OriginalTask,
		&generatedJSON, &correctedJSON, &feedbackType, &url, &notes,
		&diffsJSON, &record.Frequency, &record.CreatedAt); err != nil {
		return nil, err
	}
	record.Type = FeedbackType(feedbackType)
	record.URL = url.String
	record.Notes = notes.String
	if err := json.Unmarshal([]byte(generatedJSON), &record.GeneratedSteps); err != nil {
		return nil, fmt.Errorf("corrupt generated steps on record %s: %w", record.ID, err)
	}
	if err := json.Unmarshal([]byte(correctedJSON), &record.CorrectedSteps); err != nil {
		return nil, fmt.Errorf("corrupt corrected steps on record %s: %w", record.ID, err)
	}
	if err := json.Unmarshal([]byte(diffsJSON), &record.Diffs); err != nil {
		return nil, fmt.Errorf("corrupt diffs on record %s: %w", record.ID, err)
	}
	return &record, nil
}
