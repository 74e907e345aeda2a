// Package postgres stores learner progress in a hosted Postgres database.
// Lessons, submissions and shuffles stay in SQLite.
package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"course-quiz/internal/quiz"
)

type ProgressStore struct {
	db *sql.DB
}

func NewProgressStore(ctx context.Context, dsn string) (*ProgressStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &ProgressStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *ProgressStore) Close() error {
	return s.db.Close()
}

func (s *ProgressStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS lesson_progress (
		learner_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		lesson_id TEXT NOT NULL,
		completed BOOLEAN NOT NULL,
		score_percentage INTEGER NOT NULL,
		attempts INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (learner_id, course_id, lesson_id)
	)`)
	return errors.Wrap(err, "init progress schema")
}

// SaveProgress upserts unless the stored row already has more attempts.
func (s *ProgressStore) SaveProgress(ctx context.Context, record quiz.ProgressRecord) error {
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(
		ctx,
		`INSERT INTO lesson_progress (learner_id, course_id, lesson_id, completed, score_percentage, attempts, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (learner_id, course_id, lesson_id) DO UPDATE SET
			completed = EXCLUDED.completed,
			score_percentage = EXCLUDED.score_percentage,
			attempts = EXCLUDED.attempts,
			updated_at = EXCLUDED.updated_at
		 WHERE lesson_progress.attempts <= EXCLUDED.attempts`,
		record.LearnerID,
		record.CourseID,
		record.LessonID,
		record.Completed,
		record.ScorePercentage,
		record.Attempts,
		updatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "upsert progress")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "upsert progress")
	}
	if affected == 0 {
		return quiz.ErrStaleProgress
	}
	return nil
}

func (s *ProgressStore) GetProgress(ctx context.Context, learnerID, courseID, lessonID string) (quiz.ProgressRecord, error) {
	record := quiz.ProgressRecord{LearnerID: learnerID, CourseID: courseID, LessonID: lessonID}
	err := s.db.QueryRowContext(
		ctx,
		`SELECT completed, score_percentage, attempts, updated_at
		 FROM lesson_progress
		 WHERE learner_id = $1 AND course_id = $2 AND lesson_id = $3`,
		learnerID,
		courseID,
		lessonID,
	).Scan(&record.Completed, &record.ScorePercentage, &record.Attempts, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.ProgressRecord{}, quiz.ErrProgressNotFound
		}
		return quiz.ProgressRecord{}, errors.Wrap(err, "get progress")
	}
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func (s *ProgressStore) ListCourseProgress(ctx context.Context, learnerID, courseID string) ([]quiz.ProgressRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT lesson_id, completed, score_percentage, attempts, updated_at
		 FROM lesson_progress
		 WHERE learner_id = $1 AND course_id = $2
		 ORDER BY lesson_id`,
		learnerID,
		courseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list course progress")
	}
	defer rows.Close()

	records := make([]quiz.ProgressRecord, 0)
	for rows.Next() {
		record := quiz.ProgressRecord{LearnerID: learnerID, CourseID: courseID}
		if err := rows.Scan(&record.LessonID, &record.Completed, &record.ScorePercentage, &record.Attempts, &record.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan progress")
		}
		record.UpdatedAt = record.UpdatedAt.UTC()
		records = append(records, record)
	}
	return records, rows.Err()
}
