package quiz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, mutate func(*SessionConfig)) (*Session, *recordingSubmitter) {
	t.Helper()
	submitter := &recordingSubmitter{}
	cfg := SessionConfig{
		CourseID:         "course-1",
		LessonID:         "lesson-1",
		Definition:       sampleDefinition(),
		MinimumQuizScore: 50,
		Submitter:        submitter,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewSession(cfg), submitter
}

func answerAll(t *testing.T, s *Session, answers []Answer) {
	t.Helper()
	for _, answer := range answers {
		require.NoError(t, s.Answer(answer))
		require.NoError(t, s.Next(context.Background()))
	}
}

func TestSessionAllCorrectPasses(t *testing.T) {
	var completion Completion
	s, submitter := newTestSession(t, func(cfg *SessionConfig) {
		cfg.OnComplete = func(_ context.Context, c Completion) error {
			completion = c
			return nil
		}
	})

	assert.Equal(t, StateNotStarted, s.State())
	require.NoError(t, s.Start())
	answerAll(t, s, correctAnswers())

	require.Equal(t, StateResults, s.State())
	view, ok := s.Results()
	require.True(t, ok)
	assert.True(t, view.Passed)
	assert.Equal(t, 100, view.Record.ScorePercentage)
	assert.Equal(t, 1, view.Record.AttemptCount)
	assert.Nil(t, view.SubmissionError)
	assert.Len(t, view.Review, 3)

	assert.Equal(t, 1, submitter.calls)
	assert.Equal(t, "lesson-1", submitter.lessonID)
	require.Len(t, submitter.answers, 3)
	assert.Equal(t, "q1", submitter.answers[0].QuestionID)
	assert.Equal(t, "2", submitter.answers[2].QuestionID)

	assert.Equal(t, "course-1", completion.CourseID)
	assert.Equal(t, 1, completion.Record.AttemptCount)
	assert.Equal(t, 50, completion.MinimumScore)
	assert.Len(t, completion.Questions, 3)
}

func TestSessionNextRequiresAnswer(t *testing.T) {
	s, submitter := newTestSession(t, nil)
	require.NoError(t, s.Start())

	err := s.Next(context.Background())
	assert.ErrorIs(t, err, ErrAnswerRequired)
	assert.Equal(t, StateInProgress, s.State())
	assert.Zero(t, submitter.calls)

	require.NoError(t, s.Answer(OptionAnswer(1)))
	require.NoError(t, s.Next(context.Background()))
	require.NoError(t, s.Answer(BoolAnswer(false)))
	require.NoError(t, s.Next(context.Background()))

	require.NoError(t, s.Answer(TextAnswer("   ")))
	assert.ErrorIs(t, s.Next(context.Background()), ErrAnswerRequired)

	index, question, _, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, 2, index)
	assert.Equal(t, TypeFillBlank, question.Type())
}

func TestSessionRejectsWrongAnswerKind(t *testing.T) {
	s, _ := newTestSession(t, nil)
	require.NoError(t, s.Start())

	assert.ErrorIs(t, s.Answer(BoolAnswer(true)), ErrAnswerKind)
	assert.ErrorIs(t, s.Answer(OptionAnswer(9)), ErrAnswerKind)
	assert.Equal(t, 0, s.Answers().Len())
}

func TestSessionAnswerBeforeStartIsInvalid(t *testing.T) {
	s, _ := newTestSession(t, nil)
	assert.ErrorIs(t, s.Answer(OptionAnswer(1)), ErrInvalidTransition)
	assert.ErrorIs(t, s.Next(context.Background()), ErrInvalidTransition)
}

func TestSessionBackKeepsAnswers(t *testing.T) {
	s, _ := newTestSession(t, nil)
	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Back(), ErrInvalidTransition)

	require.NoError(t, s.Answer(OptionAnswer(2)))
	require.NoError(t, s.Next(context.Background()))
	require.NoError(t, s.Back())

	index, _, answer, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, 0, index)
	assert.Equal(t, Answer(OptionAnswer(2)), answer)
}

func TestSessionSubmissionFailureStillShowsResults(t *testing.T) {
	s, submitter := newTestSession(t, nil)
	submitter.err = errBoom

	require.NoError(t, s.Start())
	answerAll(t, s, []Answer{OptionAnswer(1), BoolAnswer(false), TextAnswer("paris")})

	require.Equal(t, StateResults, s.State())
	view, ok := s.Results()
	require.True(t, ok)
	assert.Equal(t, 75, view.Record.ScorePercentage)
	assert.Equal(t, 3, view.Record.PointsEarned)
	assert.True(t, view.Passed)
	require.NotNil(t, view.SubmissionError)
	assert.Equal(t, defaultSubmissionMessage, view.SubmissionError.Message)
	assert.ErrorIs(t, view.SubmissionError, errBoom)
}

func TestSessionSubmissionErrorUsesFriendlyMessage(t *testing.T) {
	s, submitter := newTestSession(t, func(cfg *SessionConfig) {
		cfg.OnComplete = func(context.Context, Completion) error {
			return friendlyError{message: "progress service is down"}
		}
	})
	submitter.err = friendlyError{message: "lesson is archived"}

	require.NoError(t, s.Start())
	answerAll(t, s, correctAnswers())

	view, ok := s.Results()
	require.True(t, ok)
	require.NotNil(t, view.SubmissionError)
	assert.Equal(t, "lesson is archived", view.SubmissionError.Message)
	require.NotNil(t, view.ProgressError)
	assert.Equal(t, "progress service is down", view.ProgressError.Message)
}

func TestSessionFailingScore(t *testing.T) {
	s, _ := newTestSession(t, func(cfg *SessionConfig) {
		cfg.MinimumQuizScore = 80
	})
	require.NoError(t, s.Start())
	answerAll(t, s, []Answer{OptionAnswer(1), BoolAnswer(true), TextAnswer("Rome")})

	view, ok := s.Results()
	require.True(t, ok)
	assert.Equal(t, 75, view.Record.ScorePercentage)
	assert.False(t, view.Passed)
	assert.False(t, view.CanContinue)
	assert.ErrorIs(t, s.Continue(), ErrCannotContinue)
}

func TestSessionRetryClearsAnswers(t *testing.T) {
	refetches := 0
	s, _ := newTestSession(t, func(cfg *SessionConfig) {
		cfg.OnRetry = func(context.Context) (*ShuffleMapping, error) {
			refetches++
			return nil, nil
		}
	})
	require.NoError(t, s.Start())
	answerAll(t, s, correctAnswers())

	require.NoError(t, s.Retry(context.Background()))
	assert.Equal(t, 1, refetches)
	assert.Equal(t, StateNotStarted, s.State())
	assert.False(t, s.Started())
	assert.Equal(t, 0, s.Answers().Len())
	_, ok := s.Results()
	assert.False(t, ok)

	require.NoError(t, s.Start())
	require.NoError(t, s.Answer(OptionAnswer(0)))
	require.NoError(t, s.Next(context.Background()))
	require.NoError(t, s.Answer(BoolAnswer(false)))
	require.NoError(t, s.Next(context.Background()))
	require.NoError(t, s.Answer(TextAnswer("Rome")))
	require.NoError(t, s.Next(context.Background()))

	view, ok := s.Results()
	require.True(t, ok)
	assert.Equal(t, 0, view.Record.ScorePercentage)
	assert.Equal(t, 2, view.Record.AttemptCount)
	for _, item := range view.Review {
		assert.False(t, item.Correct)
	}
}

func TestSessionRetryDenied(t *testing.T) {
	s, _ := newTestSession(t, func(cfg *SessionConfig) {
		cfg.Definition.MaxAttempts = 1
	})
	require.NoError(t, s.Start())
	answerAll(t, s, correctAnswers())

	view, _ := s.Results()
	assert.False(t, view.CanRetry)

	err := s.Retry(context.Background())
	var denied *RetryDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, RetryMaxAttempts, denied.Reason)
	assert.Equal(t, StateResults, s.State())
}

func TestSessionInputBlockedUntilRefetchSettles(t *testing.T) {
	s, _ := newTestSession(t, nil)
	require.NoError(t, s.Start())
	answerAll(t, s, correctAnswers())

	ticket, err := s.BeginRetry()
	require.NoError(t, err)
	assert.ErrorIs(t, s.Start(), ErrRetryPending)

	shuffle := &ShuffleMapping{QuestionOrder: []string{"q2", "q1", "2"}, Generation: 2}
	require.NoError(t, s.CompleteRetry(ticket, shuffle))
	assert.ErrorIs(t, s.CompleteRetry(ticket, shuffle), ErrStaleResult)

	require.NoError(t, s.Start())
	_, question, _, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "q2", question.Common().ID)
}

func TestSessionAbandonRetryKeepsOrder(t *testing.T) {
	s, _ := newTestSession(t, func(cfg *SessionConfig) {
		cfg.OnRetry = func(context.Context) (*ShuffleMapping, error) {
			return nil, errBoom
		}
	})
	require.NoError(t, s.Start())
	answerAll(t, s, correctAnswers())

	err := s.Retry(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateNotStarted, s.State())
	assert.NoError(t, s.Start())
}

func TestSessionResumeSuppressedWhileRetrying(t *testing.T) {
	s, _ := newTestSession(t, nil)
	require.NoError(t, s.Start())
	answerAll(t, s, correctAnswers())

	ticket, err := s.BeginRetry()
	require.NoError(t, err)
	require.NoError(t, s.CompleteRetry(ticket, nil))

	stale := ResumeState{InitialScore: 100, InitialAttemptCount: 1, PrefilledAnswers: correctAnswers()}
	assert.False(t, s.Resume(stale))
	assert.Equal(t, StateNotStarted, s.State())

	require.NoError(t, s.Start())
	require.NoError(t, s.Answer(OptionAnswer(1)))
	assert.False(t, s.Retrying())
	assert.True(t, s.Resume(stale))
	assert.Equal(t, StateResults, s.State())
}

func TestSessionResumeShowsResultsOnly(t *testing.T) {
	s, _ := newTestSession(t, func(cfg *SessionConfig) {
		cfg.ShowResultsOnly = true
		cfg.Resume = ResumeState{
			InitialScore:        75,
			InitialAttemptCount: 2,
			PrefilledAnswers:    []Answer{OptionAnswer(1), BoolAnswer(false), TextAnswer("paris")},
		}
		cfg.OnContinue = func() {}
	})

	require.Equal(t, StateResults, s.State())
	view, ok := s.Results()
	require.True(t, ok)
	assert.Equal(t, 75, view.Record.ScorePercentage)
	assert.Equal(t, 2, view.Record.AttemptCount)
	assert.Equal(t, 3, view.Record.PointsEarned)
	assert.True(t, view.Passed)
	assert.True(t, view.CanContinue)
	assert.True(t, view.CanRetry)
	require.Len(t, view.Review, 3)
	assert.False(t, view.Review[1].Correct)
}

func TestSessionHidesReviewUntilResumedWhenResultsDeferred(t *testing.T) {
	s, _ := newTestSession(t, func(cfg *SessionConfig) {
		cfg.Definition.ShowResultsImmediately = false
	})
	require.NoError(t, s.Start())
	answerAll(t, s, correctAnswers())

	view, ok := s.Results()
	require.True(t, ok)
	assert.Empty(t, view.Review)

	require.True(t, s.Resume(ResumeState{InitialScore: 100, InitialAttemptCount: 1, PrefilledAnswers: correctAnswers()}))
	view, _ = s.Results()
	assert.Len(t, view.Review, 3)
}

func TestSessionLessonSwitchResets(t *testing.T) {
	s, _ := newTestSession(t, nil)
	require.NoError(t, s.Start())
	require.NoError(t, s.Answer(OptionAnswer(1)))
	require.NoError(t, s.Next(context.Background()))
	require.NoError(t, s.Answer(BoolAnswer(true)))

	other := SessionConfig{CourseID: "course-1", LessonID: "lesson-2", Definition: sampleDefinition()}
	s.SwitchLesson(other)
	assert.Equal(t, StateNotStarted, s.State())
	assert.Equal(t, "lesson-2", s.LessonID())
	assert.Equal(t, 0, s.Answers().Len())

	back := SessionConfig{CourseID: "course-1", LessonID: "lesson-1", Definition: sampleDefinition()}
	s.SwitchLesson(back)
	assert.Equal(t, StateNotStarted, s.State())
	assert.Equal(t, 0, s.Answers().Len())
	_, _, _, ok := s.Current()
	assert.False(t, ok)
}

func TestSessionLessonSwitchDropsInFlightSubmission(t *testing.T) {
	s, submitter := newTestSession(t, nil)
	submitter.block = make(chan struct{})

	require.NoError(t, s.Start())
	require.NoError(t, s.Answer(OptionAnswer(1)))
	require.NoError(t, s.Next(context.Background()))
	require.NoError(t, s.Answer(BoolAnswer(true)))
	require.NoError(t, s.Next(context.Background()))
	require.NoError(t, s.Answer(TextAnswer("paris")))

	done := make(chan error, 1)
	go func() { done <- s.Next(context.Background()) }()

	require.Eventually(t, func() bool { return s.State() == StateSubmitting }, time.Second, time.Millisecond)
	s.SwitchLesson(SessionConfig{LessonID: "lesson-2", Definition: sampleDefinition()})
	close(submitter.block)

	assert.ErrorIs(t, <-done, ErrStaleResult)
	assert.Equal(t, StateNotStarted, s.State())
	assert.Equal(t, "lesson-2", s.LessonID())
}

func TestSessionRefetchAfterLessonSwitchIsDiscarded(t *testing.T) {
	s, _ := newTestSession(t, nil)
	require.NoError(t, s.Start())
	answerAll(t, s, correctAnswers())

	ticket, err := s.BeginRetry()
	require.NoError(t, err)
	s.SwitchLesson(SessionConfig{LessonID: "lesson-2", Definition: sampleDefinition()})

	err = s.CompleteRetry(ticket, &ShuffleMapping{QuestionOrder: []string{"q2"}})
	assert.ErrorIs(t, err, ErrStaleResult)
	assert.NoError(t, s.Start())
}

func TestSessionShuffledSubmissionUsesDisplayedQuestionIDs(t *testing.T) {
	s, submitter := newTestSession(t, func(cfg *SessionConfig) {
		cfg.Shuffle = &ShuffleMapping{QuestionOrder: []string{"2", "q2", "q1"}}
	})
	require.NoError(t, s.Start())
	answerAll(t, s, []Answer{TextAnswer("Paris"), BoolAnswer(true), OptionAnswer(1)})

	require.Len(t, submitter.answers, 3)
	assert.Equal(t, "2", submitter.answers[0].QuestionID)
	assert.Equal(t, "q2", submitter.answers[1].QuestionID)
	assert.Equal(t, "q1", submitter.answers[2].QuestionID)

	view, _ := s.Results()
	assert.Equal(t, 100, view.Record.ScorePercentage)
	assert.Equal(t, 2, view.Review[0].OriginalIndex)
}

func TestSessionContinueCallsHost(t *testing.T) {
	continued := false
	s, _ := newTestSession(t, func(cfg *SessionConfig) {
		cfg.OnContinue = func() { continued = true }
	})
	assert.ErrorIs(t, s.Continue(), ErrCannotContinue)

	require.NoError(t, s.Start())
	answerAll(t, s, correctAnswers())
	require.NoError(t, s.Continue())
	assert.True(t, continued)
}

func TestSessionPrefilledAnswersResumeInProgress(t *testing.T) {
	s, _ := newTestSession(t, func(cfg *SessionConfig) {
		cfg.Resume = ResumeState{PrefilledAnswers: []Answer{OptionAnswer(1)}}
	})

	assert.Equal(t, StateInProgress, s.State())
	index, _, _, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, 1, index)
}

func TestSessionOverview(t *testing.T) {
	s, _ := newTestSession(t, func(cfg *SessionConfig) {
		cfg.MinimumQuizScore = 0
		cfg.Resume.InitialAttemptCount = 1
	})
	overview := s.Overview()
	assert.Equal(t, Overview{
		QuestionCount:         3,
		TotalPoints:           4,
		AttemptCount:          1,
		MaxAttempts:           3,
		AllowMultipleAttempts: true,
		MinimumScore:          DefaultMinimumQuizScore,
	}, overview)
}

func TestSessionEmptyQuizCannotStart(t *testing.T) {
	s := NewSession(SessionConfig{LessonID: "empty"})
	var validation *ValidationError
	assert.True(t, errors.As(s.Start(), &validation))
}
