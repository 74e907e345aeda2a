package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrProgressNotFound = errors.New("progress not found")
	ErrShuffleNotFound  = errors.New("shuffle not found")
	ErrNoSubmission     = errors.New("no submission recorded")
	ErrStaleProgress    = errors.New("progress is older than the stored record")
	ErrInvalidLearner   = errors.New("invalid learner")

	ErrAnswerRequired    = errors.New("an answer is required before continuing")
	ErrAnswerKind        = errors.New("answer does not fit the question")
	ErrInvalidTransition = errors.New("not allowed in the current quiz state")
	ErrRetryPending      = errors.New("quiz data is still reloading")
	ErrStaleResult       = errors.New("result belongs to a previous lesson or attempt")
	ErrCannotContinue    = errors.New("continue is only available after passing")
)

// ValidationError rejects malformed input before anything is stored.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

type RetryDenialReason string

const (
	RetryDisabled      RetryDenialReason = "disabled"
	RetrySingleAttempt RetryDenialReason = "single_attempt"
	RetryMaxAttempts   RetryDenialReason = "max_attempts"
)

type RetryDeniedError struct {
	Reason       RetryDenialReason
	AttemptCount int
	MaxAttempts  int
}

func (e *RetryDeniedError) Error() string {
	switch e.Reason {
	case RetryDisabled:
		return "this quiz is locked"
	case RetrySingleAttempt:
		return "this quiz allows a single attempt"
	case RetryMaxAttempts:
		return fmt.Sprintf("maximum attempts reached (%d of %d)", e.AttemptCount, e.MaxAttempts)
	default:
		return "retry is not available"
	}
}
