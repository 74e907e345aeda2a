package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// AnswerInput is one raw answer as received from a learner client.
type AnswerInput struct {
	QuestionID string          `json:"questionId"`
	UserAnswer json.RawMessage `json:"userAnswer"`
}

type Service struct {
	lessons     LessonRepository
	submissions SubmissionRepository
	progress    ProgressRepository
	shuffles    ShuffleRepository

	shuffleGroup singleflight.Group
	now          func() time.Time
	permute      func(n int, swap func(i, j int))
}

func NewService(lessons LessonRepository, submissions SubmissionRepository, progress ProgressRepository, shuffles ShuffleRepository) *Service {
	return &Service{
		lessons:     lessons,
		submissions: submissions,
		progress:    progress,
		shuffles:    shuffles,
		now:         func() time.Time { return time.Now().UTC() },
		permute:     rand.Shuffle,
	}
}

func (s *Service) ImportLesson(ctx context.Context, lesson Lesson) error {
	lesson.ID = strings.TrimSpace(lesson.ID)
	lesson.CourseID = strings.TrimSpace(lesson.CourseID)
	if lesson.ID == "" {
		return &ValidationError{Field: "id", Message: "lesson id is required"}
	}
	if lesson.CourseID == "" {
		return &ValidationError{Field: "courseId", Message: "course id is required"}
	}
	if lesson.MinimumQuizScore < 0 || lesson.MinimumQuizScore > 100 {
		return &ValidationError{Field: "minimumQuizScore", Message: "must be between 0 and 100"}
	}
	if err := lesson.Quiz.Validate(); err != nil {
		return err
	}
	return s.lessons.UpsertLesson(ctx, lesson)
}

func (s *Service) GetLesson(ctx context.Context, lessonID string) (Lesson, error) {
	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return Lesson{}, ErrLessonNotFound
	}
	return s.lessons.GetLesson(ctx, lessonID)
}

func (s *Service) ListLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	return s.lessons.ListLessons(ctx, strings.TrimSpace(courseID))
}

// SubmitAnswers grades and stores a raw answer submission. Every question id
// must belong to the lesson.
func (s *Service) SubmitAnswers(ctx context.Context, learnerID, lessonID string, answers []AnswerInput) (Submission, error) {
	learnerID, err := normalizeLearner(learnerID)
	if err != nil {
		return Submission{}, err
	}
	lesson, err := s.GetLesson(ctx, lessonID)
	if err != nil {
		return Submission{}, err
	}

	lookup := make(map[string]Question, len(lesson.Quiz.Questions))
	for idx, question := range lesson.Quiz.Questions {
		lookup[QuestionKey(question, idx)] = question
	}

	submission := Submission{
		ID:          uuid.NewString(),
		LessonID:    lesson.ID,
		LearnerID:   learnerID,
		Answers:     make([]GradedAnswer, 0, len(answers)),
		TotalPoints: Score(lesson.Quiz.Questions, AnswerSet{}).TotalPoints,
		SubmittedAt: s.now(),
	}

	seen := make(map[string]struct{}, len(answers))
	for idx, input := range answers {
		field := fmt.Sprintf("answers[%d]", idx)
		question, ok := lookup[input.QuestionID]
		if !ok {
			return Submission{}, &ValidationError{Field: field, Message: fmt.Sprintf("unknown question %q", input.QuestionID)}
		}
		if _, dup := seen[input.QuestionID]; dup {
			return Submission{}, &ValidationError{Field: field, Message: fmt.Sprintf("question %q answered twice", input.QuestionID)}
		}
		seen[input.QuestionID] = struct{}{}

		answer, err := DecodeAnswer(question, input.UserAnswer)
		if err != nil {
			return Submission{}, &ValidationError{Field: field, Message: err.Error()}
		}

		correct := IsCorrect(question, answer)
		if correct {
			submission.PointsEarned += question.Common().PointValue()
		}
		submission.Answers = append(submission.Answers, GradedAnswer{
			QuestionID: input.QuestionID,
			UserAnswer: input.UserAnswer,
			Correct:    correct,
		})
	}

	if err := s.submissions.CreateSubmission(ctx, submission); err != nil {
		return Submission{}, err
	}
	glog.V(2).Infof("learner %s submitted %d answers for lesson %s (%d/%d)",
		learnerID, len(submission.Answers), lesson.ID, submission.PointsEarned, submission.TotalPoints)
	return submission, nil
}

// SaveProgress upserts the learner's progress for a lesson. The completed
// flag is recomputed against the lesson's minimum score.
func (s *Service) SaveProgress(ctx context.Context, learnerID string, record ProgressRecord) (ProgressRecord, error) {
	learnerID, err := normalizeLearner(learnerID)
	if err != nil {
		return ProgressRecord{}, err
	}
	lesson, err := s.GetLesson(ctx, record.LessonID)
	if err != nil {
		return ProgressRecord{}, err
	}
	if lesson.CourseID != strings.TrimSpace(record.CourseID) {
		return ProgressRecord{}, ErrLessonNotFound
	}
	if record.ScorePercentage < 0 || record.ScorePercentage > 100 {
		return ProgressRecord{}, &ValidationError{Field: "scorePercentage", Message: "must be between 0 and 100"}
	}
	if record.Attempts < 0 {
		return ProgressRecord{}, &ValidationError{Field: "attempts", Message: "must not be negative"}
	}

	record.CourseID = lesson.CourseID
	record.LessonID = lesson.ID
	record.LearnerID = learnerID
	record.Completed = record.ScorePercentage >= MinimumScore(lesson.MinimumQuizScore)
	record.UpdatedAt = s.now()

	if err := s.progress.SaveProgress(ctx, record); err != nil {
		return ProgressRecord{}, err
	}
	return record, nil
}

func (s *Service) LatestSubmission(ctx context.Context, learnerID, lessonID string) (Submission, error) {
	learnerID, err := normalizeLearner(learnerID)
	if err != nil {
		return Submission{}, err
	}
	lesson, err := s.GetLesson(ctx, lessonID)
	if err != nil {
		return Submission{}, err
	}
	return s.submissions.LatestSubmission(ctx, learnerID, lesson.ID)
}

func (s *Service) GetProgress(ctx context.Context, learnerID, courseID, lessonID string) (ProgressRecord, error) {
	learnerID, err := normalizeLearner(learnerID)
	if err != nil {
		return ProgressRecord{}, err
	}
	return s.progress.GetProgress(ctx, learnerID, strings.TrimSpace(courseID), strings.TrimSpace(lessonID))
}

func (s *Service) ListCourseProgress(ctx context.Context, learnerID, courseID string) ([]ProgressRecord, error) {
	learnerID, err := normalizeLearner(learnerID)
	if err != nil {
		return nil, err
	}
	return s.progress.ListCourseProgress(ctx, learnerID, strings.TrimSpace(courseID))
}

// GetShuffle returns the learner's current question order for a lesson,
// issuing a new generation when none is active. Lessons that do not shuffle
// get an empty mapping.
func (s *Service) GetShuffle(ctx context.Context, learnerID, lessonID string) (ShuffleMapping, error) {
	learnerID, err := normalizeLearner(learnerID)
	if err != nil {
		return ShuffleMapping{}, err
	}
	lesson, err := s.GetLesson(ctx, lessonID)
	if err != nil {
		return ShuffleMapping{}, err
	}
	if !lesson.Quiz.ShuffleQuestions {
		return ShuffleMapping{}, nil
	}

	key := learnerID + "/" + lesson.ID
	value, err, _ := s.shuffleGroup.Do(key, func() (interface{}, error) {
		current, err := s.shuffles.GetShuffle(ctx, learnerID, lesson.ID)
		switch {
		case err == nil && current.QuestionOrder != nil:
			return current, nil
		case err != nil && !errors.Is(err, ErrShuffleNotFound):
			return ShuffleMapping{}, err
		}

		mapping := ShuffleMapping{
			QuestionOrder: s.shuffledKeys(lesson.Quiz.Questions),
			Generation:    current.Generation + 1,
		}
		if err := s.shuffles.SaveShuffle(ctx, learnerID, lesson.ID, mapping); err != nil {
			return ShuffleMapping{}, err
		}
		glog.V(2).Infof("issued shuffle generation %d for %s", mapping.Generation, key)
		return mapping, nil
	})
	if err != nil {
		return ShuffleMapping{}, err
	}
	return value.(ShuffleMapping), nil
}

// ResetShuffle invalidates the active mapping so the next GetShuffle issues a
// new one.
func (s *Service) ResetShuffle(ctx context.Context, learnerID, lessonID string) error {
	learnerID, err := normalizeLearner(learnerID)
	if err != nil {
		return err
	}
	lesson, err := s.GetLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	err = s.shuffles.InvalidateShuffle(ctx, learnerID, lesson.ID)
	if errors.Is(err, ErrShuffleNotFound) {
		return nil
	}
	return err
}

func (s *Service) shuffledKeys(questions []Question) []string {
	keys := make([]string, len(questions))
	for idx, question := range questions {
		keys[idx] = QuestionKey(question, idx)
	}
	s.permute(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	return keys
}

func normalizeLearner(learnerID string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(learnerID))
	if normalized == "" {
		return "", ErrInvalidLearner
	}
	return normalized, nil
}
