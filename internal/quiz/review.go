package quiz

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ShuffleMapping records the order questions were shown in one attempt.
// Entries are question ids, or decimal indexes for questions without one.
type ShuffleMapping struct {
	QuestionOrder []string `json:"questionOrder"`
	Generation    int      `json:"generation,omitempty"`
}

type displayedQuestion struct {
	question      Question
	originalIndex int
}

// resolve maps display positions to original questions. Entries resolve by
// id first and index second; unresolvable or repeated entries are dropped and
// questions the mapping never names are appended in original order.
func (m *ShuffleMapping) resolve(questions []Question) []displayedQuestion {
	displayed := make([]displayedQuestion, 0, len(questions))
	if m == nil || len(m.QuestionOrder) == 0 {
		for idx, question := range questions {
			displayed = append(displayed, displayedQuestion{question: question, originalIndex: idx})
		}
		return displayed
	}

	byID := make(map[string]int, len(questions))
	for idx, question := range questions {
		if id := strings.TrimSpace(question.Common().ID); id != "" {
			byID[id] = idx
		}
	}

	used := make([]bool, len(questions))
	for _, entry := range m.QuestionOrder {
		entry = strings.TrimSpace(entry)
		idx, ok := byID[entry]
		if !ok {
			parsed, err := strconv.Atoi(entry)
			if err != nil || parsed < 0 || parsed >= len(questions) {
				continue
			}
			idx = parsed
		}
		if used[idx] {
			continue
		}
		used[idx] = true
		displayed = append(displayed, displayedQuestion{question: questions[idx], originalIndex: idx})
	}

	for idx, question := range questions {
		if !used[idx] {
			displayed = append(displayed, displayedQuestion{question: question, originalIndex: idx})
		}
	}
	return displayed
}

// Apply returns the questions in display order.
func (m *ShuffleMapping) Apply(questions []Question) []Question {
	displayed := m.resolve(questions)
	ordered := make([]Question, 0, len(displayed))
	for _, item := range displayed {
		ordered = append(ordered, item.question)
	}
	return ordered
}

// PrefilledAnswers lays a graded submission out in display order so it can
// seed a resumed session. Answers that no longer decode are left empty.
func PrefilledAnswers(questions []Question, shuffle *ShuffleMapping, graded []GradedAnswer) []Answer {
	byKey := make(map[string]json.RawMessage, len(graded))
	for _, item := range graded {
		byKey[item.QuestionID] = item.UserAnswer
	}

	displayed := shuffle.resolve(questions)
	answers := make([]Answer, len(displayed))
	for position, item := range displayed {
		raw, ok := byKey[QuestionKey(item.question, item.originalIndex)]
		if !ok {
			continue
		}
		if answer, err := DecodeAnswer(item.question, raw); err == nil {
			answers[position] = answer
		}
	}
	return answers
}

type ReviewItem struct {
	Question      Question
	OriginalIndex int
	ShuffledIndex int
	Answer        Answer
	Answered      bool
	Correct       bool
}

// BuildReview pairs each displayed question with the answer recorded at its
// display position. Correctness always comes from the unshuffled question.
func BuildReview(questions []Question, shuffle *ShuffleMapping, answers AnswerSet) []ReviewItem {
	displayed := shuffle.resolve(questions)
	review := make([]ReviewItem, 0, len(displayed))
	for shuffledIndex, item := range displayed {
		original := questions[item.originalIndex]
		answer, answered := answers.Get(shuffledIndex)
		review = append(review, ReviewItem{
			Question:      original,
			OriginalIndex: item.originalIndex,
			ShuffledIndex: shuffledIndex,
			Answer:        answer,
			Answered:      answered,
			Correct:       answered && IsCorrect(original, answer),
		})
	}
	return review
}
