package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"course-quiz/internal/quiz"
)

func (s *SQLiteStore) UpsertLesson(ctx context.Context, lesson quiz.Lesson) error {
	if lesson.ID == "" {
		return errors.New("lesson id is required")
	}

	quizJSON, err := json.Marshal(lesson.Quiz)
	if err != nil {
		return errors.Wrapf(err, "encode quiz for lesson %s", lesson.ID)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO lessons (lesson_id, course_id, title, position, minimum_quiz_score, quiz_json, updated_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(lesson_id) DO UPDATE SET
			course_id = excluded.course_id,
			title = excluded.title,
			position = excluded.position,
			minimum_quiz_score = excluded.minimum_quiz_score,
			quiz_json = excluded.quiz_json,
			updated_at_unix = excluded.updated_at_unix`,
		lesson.ID,
		lesson.CourseID,
		lesson.Title,
		lesson.Position,
		lesson.MinimumQuizScore,
		string(quizJSON),
		time.Now().UTC().UnixNano(),
	)
	return errors.Wrapf(err, "upsert lesson %s", lesson.ID)
}

func (s *SQLiteStore) GetLesson(ctx context.Context, lessonID string) (quiz.Lesson, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT lesson_id, course_id, title, position, minimum_quiz_score, quiz_json
		 FROM lessons WHERE lesson_id = ?`,
		lessonID,
	)
	lesson, err := scanLesson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.Lesson{}, quiz.ErrLessonNotFound
		}
		return quiz.Lesson{}, errors.Wrapf(err, "get lesson %s", lessonID)
	}
	return lesson, nil
}

func (s *SQLiteStore) ListLessons(ctx context.Context, courseID string) ([]quiz.Lesson, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT lesson_id, course_id, title, position, minimum_quiz_score, quiz_json
		 FROM lessons
		 WHERE course_id = ?
		 ORDER BY position ASC, lesson_id ASC`,
		courseID,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "list lessons for course %s", courseID)
	}
	defer rows.Close()

	lessons := make([]quiz.Lesson, 0)
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan lesson")
		}
		lessons = append(lessons, lesson)
	}
	return lessons, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLesson(row rowScanner) (quiz.Lesson, error) {
	var (
		lesson   quiz.Lesson
		quizJSON string
	)
	if err := row.Scan(&lesson.ID, &lesson.CourseID, &lesson.Title, &lesson.Position, &lesson.MinimumQuizScore, &quizJSON); err != nil {
		return quiz.Lesson{}, err
	}
	if err := json.Unmarshal([]byte(quizJSON), &lesson.Quiz); err != nil {
		return quiz.Lesson{}, errors.Wrapf(err, "decode quiz for lesson %s", lesson.ID)
	}
	return lesson, nil
}
