package quiz

type AttemptRecord struct {
	AttemptCount    int  `json:"attemptCount"`
	ScorePercentage int  `json:"scorePercentage"`
	PointsEarned    int  `json:"pointsEarned"`
	TotalPoints     int  `json:"totalPoints"`
	Passed          bool `json:"passed"`
}

func NewAttemptRecord(score ScoreResult, attemptCount, minimumScore int) AttemptRecord {
	return AttemptRecord{
		AttemptCount:    attemptCount,
		ScorePercentage: score.Percentage,
		PointsEarned:    score.PointsEarned,
		TotalPoints:     score.TotalPoints,
		Passed:          Passed(score.Percentage, minimumScore),
	}
}

func Passed(percentage, minimumScore int) bool {
	return percentage >= MinimumScore(minimumScore)
}

// CheckRetry returns a *RetryDeniedError when another attempt is not allowed.
func CheckRetry(definition QuizDefinition, record AttemptRecord, disabled bool) error {
	limit := definition.AttemptLimit()
	switch {
	case disabled:
		return &RetryDeniedError{Reason: RetryDisabled, AttemptCount: record.AttemptCount, MaxAttempts: limit}
	case !definition.AllowMultipleAttempts && record.AttemptCount > 0:
		return &RetryDeniedError{Reason: RetrySingleAttempt, AttemptCount: record.AttemptCount, MaxAttempts: limit}
	case record.AttemptCount >= limit:
		return &RetryDeniedError{Reason: RetryMaxAttempts, AttemptCount: record.AttemptCount, MaxAttempts: limit}
	}
	return nil
}

func CanRetry(definition QuizDefinition, record AttemptRecord, disabled bool) bool {
	return CheckRetry(definition, record, disabled) == nil
}
