package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLesson() Lesson {
	return Lesson{
		ID:               "lesson-1",
		CourseID:         "course-1",
		Title:            "Astronomy basics",
		MinimumQuizScore: 70,
		Quiz:             sampleDefinition(),
	}
}

type serviceFixture struct {
	service     *Service
	lessons     *fakeLessonRepo
	submissions *fakeSubmissionRepo
	progress    *fakeProgressRepo
	shuffles    *fakeShuffleRepo
}

func newServiceFixture(lessons ...Lesson) serviceFixture {
	f := serviceFixture{
		lessons:     newFakeLessonRepo(lessons...),
		submissions: &fakeSubmissionRepo{},
		progress:    newFakeProgressRepo(),
		shuffles:    newFakeShuffleRepo(),
	}
	f.service = NewService(f.lessons, f.submissions, f.progress, f.shuffles)
	f.service.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestServiceSubmitAnswersGrades(t *testing.T) {
	f := newServiceFixture(sampleLesson())

	submission, err := f.service.SubmitAnswers(context.Background(), " Ada ", "lesson-1", []AnswerInput{
		{QuestionID: "q1", UserAnswer: json.RawMessage(`1`)},
		{QuestionID: "q2", UserAnswer: json.RawMessage(`false`)},
		{QuestionID: "2", UserAnswer: json.RawMessage(`"paris"`)},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, submission.ID)
	assert.Equal(t, "ada", submission.LearnerID)
	assert.Equal(t, 3, submission.PointsEarned)
	assert.Equal(t, 4, submission.TotalPoints)
	require.Len(t, submission.Answers, 3)
	assert.False(t, submission.Answers[1].Correct)
	require.Len(t, f.submissions.created, 1)
}

func TestServiceSubmitAnswersRejectsUnknownQuestion(t *testing.T) {
	f := newServiceFixture(sampleLesson())

	_, err := f.service.SubmitAnswers(context.Background(), "ada", "lesson-1", []AnswerInput{
		{QuestionID: "nope", UserAnswer: json.RawMessage(`1`)},
	})
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Empty(t, f.submissions.created)

	_, err = f.service.SubmitAnswers(context.Background(), "ada", "missing", nil)
	assert.ErrorIs(t, err, ErrLessonNotFound)

	_, err = f.service.SubmitAnswers(context.Background(), "  ", "lesson-1", nil)
	assert.ErrorIs(t, err, ErrInvalidLearner)
}

func TestServiceSaveProgressRecomputesCompleted(t *testing.T) {
	f := newServiceFixture(sampleLesson())
	ctx := context.Background()

	saved, err := f.service.SaveProgress(ctx, "ada", ProgressRecord{
		CourseID: "course-1", LessonID: "lesson-1", Completed: true, ScorePercentage: 60, Attempts: 1,
	})
	require.NoError(t, err)
	assert.False(t, saved.Completed)
	assert.Equal(t, "ada", saved.LearnerID)

	saved, err = f.service.SaveProgress(ctx, "ada", ProgressRecord{
		CourseID: "course-1", LessonID: "lesson-1", ScorePercentage: 70, Attempts: 2,
	})
	require.NoError(t, err)
	assert.True(t, saved.Completed)

	stored, err := f.service.GetProgress(ctx, "ADA", "course-1", "lesson-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Attempts)

	_, err = f.service.SaveProgress(ctx, "ada", ProgressRecord{
		CourseID: "course-1", LessonID: "lesson-1", ScorePercentage: 10, Attempts: 1,
	})
	assert.ErrorIs(t, err, ErrStaleProgress)
}

func TestServiceSaveProgressValidates(t *testing.T) {
	f := newServiceFixture(sampleLesson())
	ctx := context.Background()

	_, err := f.service.SaveProgress(ctx, "ada", ProgressRecord{CourseID: "other", LessonID: "lesson-1"})
	assert.ErrorIs(t, err, ErrLessonNotFound)

	_, err = f.service.SaveProgress(ctx, "ada", ProgressRecord{CourseID: "course-1", LessonID: "lesson-1", ScorePercentage: 101})
	var validation *ValidationError
	assert.True(t, errors.As(err, &validation))
}

func TestServiceShuffleLifecycle(t *testing.T) {
	lesson := sampleLesson()
	lesson.Quiz.ShuffleQuestions = true
	f := newServiceFixture(lesson)
	f.service.permute = func(n int, swap func(i, j int)) { swap(0, n-1) }
	ctx := context.Background()

	first, err := f.service.GetShuffle(ctx, "ada", "lesson-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "q2", "q1"}, first.QuestionOrder)
	assert.Equal(t, 1, first.Generation)

	again, err := f.service.GetShuffle(ctx, "ada", "lesson-1")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, f.service.ResetShuffle(ctx, "ada", "lesson-1"))
	next, err := f.service.GetShuffle(ctx, "ada", "lesson-1")
	require.NoError(t, err)
	assert.Equal(t, 2, next.Generation)
}

func TestServiceShuffleDisabledReturnsEmptyMapping(t *testing.T) {
	f := newServiceFixture(sampleLesson())

	mapping, err := f.service.GetShuffle(context.Background(), "ada", "lesson-1")
	require.NoError(t, err)
	assert.Nil(t, mapping.QuestionOrder)
	assert.Zero(t, f.shuffles.gets)
	assert.NoError(t, f.service.ResetShuffle(context.Background(), "ada", "lesson-1"))
}

func TestServiceShuffleConcurrentCallsAgree(t *testing.T) {
	lesson := sampleLesson()
	lesson.Quiz.ShuffleQuestions = true
	f := newServiceFixture(lesson)

	var wg sync.WaitGroup
	results := make([]ShuffleMapping, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mapping, err := f.service.GetShuffle(context.Background(), "ada", "lesson-1")
			assert.NoError(t, err)
			results[i] = mapping
		}(i)
	}
	wg.Wait()

	for _, mapping := range results {
		assert.Equal(t, results[0], mapping)
		assert.Equal(t, 1, mapping.Generation)
	}
}

func TestServiceImportLessonValidates(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	require.NoError(t, f.service.ImportLesson(ctx, sampleLesson()))
	_, err := f.service.GetLesson(ctx, "lesson-1")
	require.NoError(t, err)

	bad := sampleLesson()
	bad.CourseID = ""
	var validation *ValidationError
	assert.True(t, errors.As(f.service.ImportLesson(ctx, bad), &validation))
}

func TestServiceLatestSubmission(t *testing.T) {
	f := newServiceFixture(sampleLesson())
	ctx := context.Background()

	_, err := f.service.LatestSubmission(ctx, "ada", "lesson-1")
	require.ErrorIs(t, err, ErrNoSubmission)

	first, err := f.service.SubmitAnswers(ctx, "ada", "lesson-1", []AnswerInput{{QuestionID: "q1", UserAnswer: json.RawMessage(`0`)}})
	require.NoError(t, err)
	second, err := f.service.SubmitAnswers(ctx, "ada", "lesson-1", []AnswerInput{{QuestionID: "q1", UserAnswer: json.RawMessage(`1`)}})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	latest, err := f.service.LatestSubmission(ctx, " ADA ", "lesson-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	_, err = f.service.LatestSubmission(ctx, "ada", "missing")
	assert.ErrorIs(t, err, ErrLessonNotFound)
}
