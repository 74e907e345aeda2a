package quiz

import (
	"fmt"
	"strings"
)

const (
	DefaultMaxAttempts      = 3
	DefaultMinimumQuizScore = 50
)

// QuizDefinition is loaded once per lesson and never mutated by a session.
type QuizDefinition struct {
	Questions              QuestionList `json:"questions"`
	AllowMultipleAttempts  bool         `json:"allowMultipleAttempts"`
	MaxAttempts            int          `json:"maxAttempts,omitempty"`
	ShowCorrectAnswers     bool         `json:"showCorrectAnswers"`
	ShowResultsImmediately bool         `json:"showResultsImmediately"`
	ShuffleQuestions       bool         `json:"shuffleQuestions,omitempty"`
}

func (d QuizDefinition) AttemptLimit() int {
	if d.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return d.MaxAttempts
}

// MinimumScore resolves the pass threshold; zero means unset.
func MinimumScore(value int) int {
	switch {
	case value <= 0:
		return DefaultMinimumQuizScore
	case value > 100:
		return 100
	default:
		return value
	}
}

// Validate checks variant correctness data and key uniqueness.
func (d QuizDefinition) Validate() error {
	seen := make(map[string]int, len(d.Questions))
	for idx, question := range d.Questions {
		field := fmt.Sprintf("questions[%d]", idx)
		if question == nil {
			return &ValidationError{Field: field, Message: "question is empty"}
		}
		common := question.Common()
		if strings.TrimSpace(common.Text) == "" {
			return &ValidationError{Field: field, Message: "text is required"}
		}
		if common.Points < 0 {
			return &ValidationError{Field: field, Message: "points must not be negative"}
		}

		key := QuestionKey(question, idx)
		if prev, ok := seen[key]; ok {
			return &ValidationError{Field: field, Message: fmt.Sprintf("duplicate id %q (also questions[%d])", key, prev)}
		}
		seen[key] = idx

		switch q := question.(type) {
		case MultipleChoice:
			if len(q.Options) < 2 {
				return &ValidationError{Field: field, Message: "at least two options are required"}
			}
			if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
				return &ValidationError{Field: field, Message: "correctOption out of range"}
			}
		case FillBlank:
			if len(q.CorrectAnswers) == 0 {
				return &ValidationError{Field: field, Message: "correctAnswers is required"}
			}
		case ShortAnswer:
			if len(q.CorrectKeywords) == 0 {
				return &ValidationError{Field: field, Message: "correctKeywords is required"}
			}
		case Matching:
			if len(q.Pairs) == 0 {
				return &ValidationError{Field: field, Message: "correctMatches is required"}
			}
			lefts := make(map[string]struct{}, len(q.Pairs))
			for _, pair := range q.Pairs {
				if _, dup := lefts[pair.Left]; dup {
					return &ValidationError{Field: field, Message: fmt.Sprintf("duplicate left item %q", pair.Left)}
				}
				lefts[pair.Left] = struct{}{}
			}
		case TrueFalse, Essay:
		}
	}
	return nil
}
