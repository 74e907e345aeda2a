package quiz

import (
	"math"
	"strings"
)

type ScoreResult struct {
	PointsEarned int `json:"pointsEarned"`
	TotalPoints  int `json:"totalPoints"`
	Percentage   int `json:"percentage"`
}

// Score grades answers recorded in the same order as questions.
func Score(questions []Question, answers AnswerSet) ScoreResult {
	var result ScoreResult
	for idx, question := range questions {
		points := question.Common().PointValue()
		result.TotalPoints += points

		answer, ok := answers.Get(idx)
		if !ok {
			continue
		}
		if IsCorrect(question, answer) {
			result.PointsEarned += points
		}
	}
	result.Percentage = Percentage(result.PointsEarned, result.TotalPoints)
	return result
}

func Percentage(earned, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(earned) / float64(total)))
}

// IsCorrect grades a single answer. Fill-blank and short-answer share one
// case rule: case-insensitive unless the question sets CaseSensitive.
// Essays earn completion credit for any non-blank text.
func IsCorrect(question Question, answer Answer) bool {
	if answer == nil || !acceptsAnswer(question, answer) {
		return false
	}

	switch q := question.(type) {
	case MultipleChoice:
		return int(answer.(OptionAnswer)) == q.CorrectOption
	case TrueFalse:
		return bool(answer.(BoolAnswer)) == q.CorrectAnswer
	case FillBlank:
		given := normalizeText(string(answer.(TextAnswer)), q.CaseSensitive)
		if given == "" {
			return false
		}
		for _, accepted := range q.CorrectAnswers {
			if given == normalizeText(accepted, q.CaseSensitive) {
				return true
			}
		}
		return false
	case ShortAnswer:
		given := normalizeText(string(answer.(TextAnswer)), q.CaseSensitive)
		if given == "" {
			return false
		}
		for _, keyword := range q.CorrectKeywords {
			keyword = normalizeText(keyword, q.CaseSensitive)
			if keyword != "" && strings.Contains(given, keyword) {
				return true
			}
		}
		return false
	case Essay:
		return strings.TrimSpace(string(answer.(TextAnswer))) != ""
	case Matching:
		matches := answer.(MatchAnswer)
		if len(matches) != len(q.Pairs) {
			return false
		}
		for _, pair := range q.Pairs {
			if strings.TrimSpace(matches[pair.Left]) != pair.Right {
				return false
			}
		}
		return len(q.Pairs) > 0
	default:
		return false
	}
}

func normalizeText(value string, caseSensitive bool) string {
	value = strings.Join(strings.Fields(value), " ")
	if !caseSensitive {
		value = strings.ToLower(value)
	}
	return value
}
