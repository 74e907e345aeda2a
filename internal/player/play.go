package player

import (
	"context"
	"errors"
	"fmt"

	"course-quiz/internal/quiz"
)

var errTooManyInvalid = errors.New("too many invalid answers, leaving the quiz")

type resultAction int

const (
	actionDone resultAction = iota
	actionRetry
	actionContinue
)

func (p *player) runPlay(ctx context.Context, lessonID string) error {
	lesson, err := p.recorder.GetLesson(ctx, lessonID)
	if errors.Is(err, quiz.ErrLessonNotFound) {
		fmt.Fprintf(p.out, "lesson %s not found.\n", lessonID)
		return nil
	}
	if err != nil {
		return describeClientError(err, p.serverURL)
	}

	shuffle, err := p.recorder.GetShuffle(ctx, lesson.ID)
	if err != nil {
		fmt.Fprintf(p.out, "Could not load the question order (%v). Questions are shown in their original order.\n",
			describeClientError(err, p.serverURL))
		shuffle = nil
	}

	resume, hasProgress := p.loadResume(ctx, lesson, shuffle)

	continued := false
	cfg := quiz.SessionConfig{
		CourseID:         lesson.CourseID,
		LessonID:         lesson.ID,
		Definition:       lesson.Quiz,
		MinimumQuizScore: lesson.MinimumQuizScore,
		ShowResultsOnly:  hasProgress,
		Resume:           resume,
		Shuffle:          shuffle,
		Submitter:        p.recorder,
		OnComplete: func(ctx context.Context, completion quiz.Completion) error {
			record := quiz.NewProgressRecord(completion.CourseID, completion.LessonID, completion.Record, completion.MinimumScore)
			return p.recorder.SaveProgress(ctx, record)
		},
		OnContinue: func() { continued = true },
		OnRetry: func(ctx context.Context) (*quiz.ShuffleMapping, error) {
			if err := p.recorder.ResetShuffle(ctx, lesson.ID); err != nil {
				return nil, err
			}
			return p.recorder.GetShuffle(ctx, lesson.ID)
		},
	}
	if p.session == nil {
		p.session = quiz.NewSession(cfg)
	} else {
		p.session.SwitchLesson(cfg)
	}
	p.resumed = hasProgress

	fmt.Fprintf(p.out, "\n== %s ==\n", lesson.Title)
	for {
		switch state := p.session.State(); state {
		case quiz.StateNotStarted:
			started, err := p.showOverview()
			if err != nil || !started {
				return err
			}
		case quiz.StateInProgress:
			if err := p.askCurrent(ctx); err != nil {
				return err
			}
		case quiz.StateResults:
			action, err := p.showResults()
			if err != nil {
				return err
			}
			switch action {
			case actionRetry:
				p.retry(ctx)
			case actionContinue:
				if err := p.session.Continue(); err != nil {
					return err
				}
				if continued {
					return p.announceNext(ctx, lesson)
				}
				return nil
			default:
				return nil
			}
		default:
			return fmt.Errorf("unexpected session state %s", state)
		}
	}
}

// loadResume falls back to the cached record when the server cannot be
// reached. The latest submission, when there is one, prefills the review.
func (p *player) loadResume(ctx context.Context, lesson quiz.Lesson, shuffle *quiz.ShuffleMapping) (quiz.ResumeState, bool) {
	record, err := p.recorder.GetProgress(ctx, lesson.CourseID, lesson.ID)
	switch {
	case errors.Is(err, quiz.ErrProgressNotFound):
		return quiz.ResumeState{}, false
	case err != nil:
		cached, ok, cacheErr := p.recorder.LastKnownProgress(ctx, lesson.CourseID, lesson.ID)
		if cacheErr != nil || !ok {
			fmt.Fprintf(p.out, "Could not load your progress: %v\n", describeClientError(err, p.serverURL))
			return quiz.ResumeState{}, false
		}
		fmt.Fprintln(p.out, "Could not reach the server. Showing your last known result.")
		record = cached
	}
	if record.Attempts <= 0 {
		return quiz.ResumeState{}, false
	}

	resume := quiz.ResumeState{
		InitialScore:        record.ScorePercentage,
		InitialAttemptCount: record.Attempts,
	}
	if err == nil {
		submission, subErr := p.recorder.LatestSubmission(ctx, lesson.ID)
		if subErr == nil {
			resume.PrefilledAnswers = quiz.PrefilledAnswers(lesson.Quiz.Questions, shuffle, submission.Answers)
		}
	}
	return resume, true
}

func (p *player) showOverview() (bool, error) {
	overview := p.session.Overview()
	fmt.Fprintf(p.out, "%d questions, %d points. Pass at %d%%.\n",
		overview.QuestionCount, overview.TotalPoints, overview.MinimumScore)
	if overview.AllowMultipleAttempts {
		fmt.Fprintf(p.out, "Attempts used: %d of %d\n", overview.AttemptCount, overview.MaxAttempts)
	} else {
		fmt.Fprintln(p.out, "Only one attempt is allowed.")
	}

	start, err := promptYesNo(p.reader, p.out, "Start the quiz? (yes/no): ")
	if err != nil || !start {
		return false, err
	}
	if err := p.session.Start(); err != nil {
		return false, err
	}
	p.resumed = false
	return true, nil
}

func (p *player) askCurrent(ctx context.Context) error {
	index, question, current, ok := p.session.Current()
	if !ok {
		return nil
	}
	total := len(p.session.Questions())

	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "Question %d of %d (%s)\n", index+1, total, pointsLabel(question.Common().PointValue()))
	printQuestion(p.out, question)
	if current != nil {
		fmt.Fprintf(p.out, "Current answer: %s\n", formatAnswer(question, current))
	}

	invalidCount := 0
	for {
		answer, back, err := promptAnswer(p.reader, p.out, question, index > 0)
		if err != nil {
			return err
		}
		if back {
			return p.session.Back()
		}
		if answer == nil {
			invalidCount++
			if invalidCount >= p.maxInvalid {
				return errTooManyInvalid
			}
			fmt.Fprintf(p.out, "Invalid input. %s\n", answerHint(question))
			continue
		}

		if err := p.session.Answer(answer); err != nil {
			return err
		}
		if index == total-1 {
			fmt.Fprintln(p.out, "Submitting your answers...")
		}
		err = p.session.Next(ctx)
		if errors.Is(err, quiz.ErrAnswerRequired) {
			fmt.Fprintln(p.out, "Please answer before continuing.")
			continue
		}
		return err
	}
}

func (p *player) showResults() (resultAction, error) {
	view, ok := p.session.Results()
	if !ok {
		return actionDone, nil
	}
	printResults(p.out, view, p.session.Overview(), !p.resumed)

	if view.CanRetry {
		again, err := promptYesNo(p.reader, p.out, "Try again? (yes/no): ")
		if err != nil {
			return actionDone, err
		}
		if again {
			return actionRetry, nil
		}
	}
	if view.CanContinue {
		next, err := promptYesNo(p.reader, p.out, "Continue to the next lesson? (yes/no): ")
		if err != nil {
			return actionDone, err
		}
		if next {
			return actionContinue, nil
		}
	}
	return actionDone, nil
}

func (p *player) retry(ctx context.Context) {
	err := p.session.Retry(ctx)
	var denied *quiz.RetryDeniedError
	switch {
	case err == nil:
	case errors.As(err, &denied):
		fmt.Fprintf(p.out, "Retry is not available: %v\n", denied)
	case p.session.State() == quiz.StateNotStarted:
		fmt.Fprintf(p.out, "Could not refresh the quiz (%v). Questions keep their previous order.\n",
			describeClientError(errors.Unwrap(err), p.serverURL))
	default:
		fmt.Fprintf(p.out, "error: %v\n", err)
	}
	p.resumed = false
}

func (p *player) announceNext(ctx context.Context, current quiz.Lesson) error {
	lessons, err := p.recorder.ListLessons(ctx, current.CourseID)
	if err != nil {
		return describeClientError(err, p.serverURL)
	}

	found := false
	var next quiz.Lesson
	for _, lesson := range lessons {
		if lesson.ID == current.ID || lesson.Position <= current.Position {
			continue
		}
		if !found || lesson.Position < next.Position {
			next = quiz.Lesson{ID: lesson.ID, Title: lesson.Title, Position: lesson.Position}
			found = true
		}
	}

	if !found {
		fmt.Fprintf(p.out, "You have finished every lesson in %s.\n", current.CourseID)
		return nil
	}
	fmt.Fprintf(p.out, "Next lesson: %s %s. Type 'play %s' to start.\n", next.ID, next.Title, next.ID)
	return nil
}
