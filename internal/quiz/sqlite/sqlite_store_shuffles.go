package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"course-quiz/internal/quiz"
)

func (s *SQLiteStore) GetShuffle(ctx context.Context, learnerID, lessonID string) (quiz.ShuffleMapping, error) {
	var (
		mapping   quiz.ShuffleMapping
		orderJSON sql.NullString
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT question_order_json, generation FROM shuffles WHERE learner_id = ? AND lesson_id = ?`,
		learnerID,
		lessonID,
	).Scan(&orderJSON, &mapping.Generation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.ShuffleMapping{}, quiz.ErrShuffleNotFound
		}
		return quiz.ShuffleMapping{}, errors.Wrap(err, "get shuffle")
	}

	if orderJSON.Valid {
		if err := json.Unmarshal([]byte(orderJSON.String), &mapping.QuestionOrder); err != nil {
			return quiz.ShuffleMapping{}, errors.Wrap(err, "decode shuffle order")
		}
	}
	return mapping, nil
}

func (s *SQLiteStore) SaveShuffle(ctx context.Context, learnerID, lessonID string, mapping quiz.ShuffleMapping) error {
	orderJSON, err := json.Marshal(mapping.QuestionOrder)
	if err != nil {
		return errors.Wrap(err, "encode shuffle order")
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO shuffles (learner_id, lesson_id, question_order_json, generation)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(learner_id, lesson_id) DO UPDATE SET
			question_order_json = excluded.question_order_json,
			generation = excluded.generation`,
		learnerID,
		lessonID,
		string(orderJSON),
		mapping.Generation,
	)
	return errors.Wrap(err, "save shuffle")
}

func (s *SQLiteStore) InvalidateShuffle(ctx context.Context, learnerID, lessonID string) error {
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE shuffles SET question_order_json = NULL WHERE learner_id = ? AND lesson_id = ?`,
		learnerID,
		lessonID,
	)
	if err != nil {
		return errors.Wrap(err, "invalidate shuffle")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "invalidate shuffle")
	}
	if affected == 0 {
		return quiz.ErrShuffleNotFound
	}
	return nil
}
