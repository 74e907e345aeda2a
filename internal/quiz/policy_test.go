package quiz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanRetryMatchesRule(t *testing.T) {
	for _, disabled := range []bool{false, true} {
		for _, multiple := range []bool{false, true} {
			for maxAttempts := 0; maxAttempts <= 4; maxAttempts++ {
				for attempts := 0; attempts <= 5; attempts++ {
					definition := QuizDefinition{AllowMultipleAttempts: multiple, MaxAttempts: maxAttempts}
					record := AttemptRecord{AttemptCount: attempts}

					limit := maxAttempts
					if limit <= 0 {
						limit = DefaultMaxAttempts
					}
					want := !(disabled || (!multiple && attempts > 0) || attempts >= limit)

					assert.Equalf(t, want, CanRetry(definition, record, disabled),
						"disabled=%v multiple=%v max=%d attempts=%d", disabled, multiple, maxAttempts, attempts)
				}
			}
		}
	}
}

func TestCanRetryMaxAttemptsExhausted(t *testing.T) {
	definition := QuizDefinition{AllowMultipleAttempts: true, MaxAttempts: 1}
	err := CheckRetry(definition, AttemptRecord{AttemptCount: 1}, false)

	var denied *RetryDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, RetryMaxAttempts, denied.Reason)
	assert.Equal(t, "maximum attempts reached (1 of 1)", denied.Error())
	assert.False(t, CanRetry(definition, AttemptRecord{AttemptCount: 1}, false))
}

func TestCheckRetryReasons(t *testing.T) {
	var denied *RetryDeniedError

	err := CheckRetry(QuizDefinition{AllowMultipleAttempts: true}, AttemptRecord{AttemptCount: 1}, true)
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, RetryDisabled, denied.Reason)

	err = CheckRetry(QuizDefinition{}, AttemptRecord{AttemptCount: 1}, false)
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, RetrySingleAttempt, denied.Reason)

	assert.NoError(t, CheckRetry(QuizDefinition{AllowMultipleAttempts: true}, AttemptRecord{AttemptCount: 2}, false))
}

func TestPassedUsesDefaultMinimum(t *testing.T) {
	assert.True(t, Passed(50, 0))
	assert.False(t, Passed(49, 0))
	assert.True(t, Passed(80, 80))
	assert.False(t, Passed(79, 80))
}

func TestNewProgressRecordCompletedOnlyWhenPassing(t *testing.T) {
	passing := NewProgressRecord("c1", "l1", AttemptRecord{AttemptCount: 2, ScorePercentage: 70}, 70)
	assert.True(t, passing.Completed)
	assert.Equal(t, 2, passing.Attempts)

	failing := NewProgressRecord("c1", "l1", AttemptRecord{AttemptCount: 3, ScorePercentage: 69}, 70)
	assert.False(t, failing.Completed)
	assert.Equal(t, 69, failing.ScorePercentage)
}
