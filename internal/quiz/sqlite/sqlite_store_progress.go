package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"course-quiz/internal/quiz"
)

func (s *SQLiteStore) CreateSubmission(ctx context.Context, submission quiz.Submission) error {
	answersJSON, err := json.Marshal(submission.Answers)
	if err != nil {
		return errors.Wrap(err, "encode submission answers")
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO submissions (submission_id, lesson_id, learner_id, answers_json, points_earned, total_points, submitted_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		submission.ID,
		submission.LessonID,
		submission.LearnerID,
		string(answersJSON),
		submission.PointsEarned,
		submission.TotalPoints,
		submission.SubmittedAt.UnixNano(),
	)
	return errors.Wrapf(err, "insert submission %s", submission.ID)
}

// LatestSubmission returns the learner's most recent submission for a lesson.
func (s *SQLiteStore) LatestSubmission(ctx context.Context, learnerID, lessonID string) (quiz.Submission, error) {
	var (
		submission    quiz.Submission
		answersJSON   string
		submittedUnix int64
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT submission_id, lesson_id, learner_id, answers_json, points_earned, total_points, submitted_at_unix
		 FROM submissions
		 WHERE lesson_id = ? AND learner_id = ?
		 ORDER BY submitted_at_unix DESC
		 LIMIT 1`,
		lessonID,
		learnerID,
	).Scan(&submission.ID, &submission.LessonID, &submission.LearnerID, &answersJSON,
		&submission.PointsEarned, &submission.TotalPoints, &submittedUnix)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.Submission{}, quiz.ErrNoSubmission
		}
		return quiz.Submission{}, errors.Wrap(err, "latest submission")
	}
	if err := json.Unmarshal([]byte(answersJSON), &submission.Answers); err != nil {
		return quiz.Submission{}, errors.Wrap(err, "decode submission answers")
	}
	submission.SubmittedAt = time.Unix(0, submittedUnix).UTC()
	return submission, nil
}

// SaveProgress upserts inside one transaction so the stale-attempt check and
// the write see the same row.
func (s *SQLiteStore) SaveProgress(ctx context.Context, record quiz.ProgressRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin progress tx")
	}
	defer tx.Rollback()

	var existingAttempts int
	err = tx.QueryRowContext(
		ctx,
		`SELECT attempts FROM progress WHERE learner_id = ? AND course_id = ? AND lesson_id = ?`,
		record.LearnerID,
		record.CourseID,
		record.LessonID,
	).Scan(&existingAttempts)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return errors.Wrap(err, "read progress")
	case record.Attempts < existingAttempts:
		return quiz.ErrStaleProgress
	}

	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO progress (learner_id, course_id, lesson_id, completed, score_percentage, attempts, updated_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(learner_id, course_id, lesson_id) DO UPDATE SET
			completed = excluded.completed,
			score_percentage = excluded.score_percentage,
			attempts = excluded.attempts,
			updated_at_unix = excluded.updated_at_unix`,
		record.LearnerID,
		record.CourseID,
		record.LessonID,
		record.Completed,
		record.ScorePercentage,
		record.Attempts,
		updatedAt.UnixNano(),
	); err != nil {
		return errors.Wrap(err, "upsert progress")
	}

	return errors.Wrap(tx.Commit(), "commit progress")
}

func (s *SQLiteStore) GetProgress(ctx context.Context, learnerID, courseID, lessonID string) (quiz.ProgressRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT learner_id, course_id, lesson_id, completed, score_percentage, attempts, updated_at_unix
		 FROM progress
		 WHERE learner_id = ? AND course_id = ? AND lesson_id = ?`,
		learnerID,
		courseID,
		lessonID,
	)
	record, err := scanProgress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.ProgressRecord{}, quiz.ErrProgressNotFound
		}
		return quiz.ProgressRecord{}, errors.Wrap(err, "get progress")
	}
	return record, nil
}

func (s *SQLiteStore) ListCourseProgress(ctx context.Context, learnerID, courseID string) ([]quiz.ProgressRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT p.learner_id, p.course_id, p.lesson_id, p.completed, p.score_percentage, p.attempts, p.updated_at_unix
		 FROM progress p
		 LEFT JOIN lessons l ON l.lesson_id = p.lesson_id
		 WHERE p.learner_id = ? AND p.course_id = ?
		 ORDER BY COALESCE(l.position, 0) ASC, p.lesson_id ASC`,
		learnerID,
		courseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list course progress")
	}
	defer rows.Close()

	records := make([]quiz.ProgressRecord, 0)
	for rows.Next() {
		record, err := scanProgress(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan progress")
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanProgress(row rowScanner) (quiz.ProgressRecord, error) {
	var (
		record      quiz.ProgressRecord
		updatedUnix int64
	)
	if err := row.Scan(&record.LearnerID, &record.CourseID, &record.LessonID, &record.Completed,
		&record.ScorePercentage, &record.Attempts, &updatedUnix); err != nil {
		return quiz.ProgressRecord{}, err
	}
	record.UpdatedAt = time.Unix(0, updatedUnix).UTC()
	return record, nil
}
