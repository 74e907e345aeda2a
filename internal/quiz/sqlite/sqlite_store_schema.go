package sqlite

import (
	"context"

	"github.com/pkg/errors"
)

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS lessons (
			lesson_id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL,
			title TEXT NOT NULL,
			position INTEGER NOT NULL,
			minimum_quiz_score INTEGER NOT NULL DEFAULT 0,
			quiz_json TEXT NOT NULL,
			updated_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS submissions (
			submission_id TEXT PRIMARY KEY,
			lesson_id TEXT NOT NULL,
			learner_id TEXT NOT NULL,
			answers_json TEXT NOT NULL,
			points_earned INTEGER NOT NULL,
			total_points INTEGER NOT NULL,
			submitted_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS progress (
			learner_id TEXT NOT NULL,
			course_id TEXT NOT NULL,
			lesson_id TEXT NOT NULL,
			completed INTEGER NOT NULL,
			score_percentage INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			updated_at_unix INTEGER NOT NULL,
			PRIMARY KEY (learner_id, course_id, lesson_id)
		);`,
		`CREATE TABLE IF NOT EXISTS shuffles (
			learner_id TEXT NOT NULL,
			lesson_id TEXT NOT NULL,
			-- NULL once invalidated; generation survives so the next mapping counts up.
			question_order_json TEXT,
			generation INTEGER NOT NULL,
			PRIMARY KEY (learner_id, lesson_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lessons_course_position ON lessons(course_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_lesson_learner ON submissions(lesson_id, learner_id, submitted_at_unix);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
