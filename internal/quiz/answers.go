package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Answer is a learner's submission for one question. Its concrete type
// depends on the question variant.
type Answer interface {
	answer()
}

type OptionAnswer int

type BoolAnswer bool

type TextAnswer string

// MatchAnswer maps left-hand items to the chosen right-hand items.
type MatchAnswer map[string]string

func (OptionAnswer) answer() {}
func (BoolAnswer) answer()   {}
func (TextAnswer) answer()   {}
func (MatchAnswer) answer()  {}

// AnswerSet holds answers keyed by display position. A position stays empty
// until the learner interacts with that question.
type AnswerSet struct {
	slots []Answer
}

func NewAnswerSet(size int) AnswerSet {
	if size < 0 {
		size = 0
	}
	return AnswerSet{slots: make([]Answer, size)}
}

// AnswersFrom builds a set from answers already in display order; nil
// entries stay unanswered.
func AnswersFrom(size int, answers []Answer) AnswerSet {
	set := NewAnswerSet(size)
	for idx, item := range answers {
		if idx >= size {
			break
		}
		set.slots[idx] = item
	}
	return set
}

func (s AnswerSet) Size() int { return len(s.slots) }

// Len is the number of populated positions.
func (s AnswerSet) Len() int {
	count := 0
	for _, item := range s.slots {
		if item != nil {
			count++
		}
	}
	return count
}

func (s AnswerSet) Get(position int) (Answer, bool) {
	if position < 0 || position >= len(s.slots) || s.slots[position] == nil {
		return nil, false
	}
	return s.slots[position], true
}

func (s AnswerSet) Set(position int, answer Answer) bool {
	if position < 0 || position >= len(s.slots) {
		return false
	}
	s.slots[position] = answer
	return true
}

func (s AnswerSet) Clone() AnswerSet {
	slots := make([]Answer, len(s.slots))
	copy(slots, s.slots)
	return AnswerSet{slots: slots}
}

// Slice returns the answers in display order, nil where unanswered.
func (s AnswerSet) Slice() []Answer {
	return s.Clone().slots
}

// acceptsAnswer reports whether the answer kind fits the question variant.
func acceptsAnswer(question Question, answer Answer) bool {
	switch q := question.(type) {
	case MultipleChoice:
		option, ok := answer.(OptionAnswer)
		return ok && int(option) >= 0 && int(option) < len(q.Options)
	case TrueFalse:
		_, ok := answer.(BoolAnswer)
		return ok
	case FillBlank, ShortAnswer, Essay:
		_, ok := answer.(TextAnswer)
		return ok
	case Matching:
		_, ok := answer.(MatchAnswer)
		return ok
	default:
		return false
	}
}

// answerProvided reports whether the answer is complete enough to move past
// the question.
func answerProvided(question Question, answer Answer) bool {
	if answer == nil || !acceptsAnswer(question, answer) {
		return false
	}
	switch a := answer.(type) {
	case TextAnswer:
		return strings.TrimSpace(string(a)) != ""
	case MatchAnswer:
		q := question.(Matching)
		for _, pair := range q.Pairs {
			if strings.TrimSpace(a[pair.Left]) == "" {
				return false
			}
		}
		return len(q.Pairs) > 0
	default:
		return true
	}
}

// DecodeAnswer parses a JSON userAnswer against the question it answers.
func DecodeAnswer(question Question, raw json.RawMessage) (Answer, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: empty answer", ErrAnswerKind)
	}

	var answer Answer
	switch question.(type) {
	case MultipleChoice:
		var option int
		if err := json.Unmarshal(raw, &option); err != nil {
			return nil, fmt.Errorf("%w: option index expected", ErrAnswerKind)
		}
		answer = OptionAnswer(option)
	case TrueFalse:
		var value bool
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("%w: boolean expected", ErrAnswerKind)
		}
		answer = BoolAnswer(value)
	case FillBlank, ShortAnswer, Essay:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("%w: text expected", ErrAnswerKind)
		}
		answer = TextAnswer(text)
	case Matching:
		var matches map[string]string
		if err := json.Unmarshal(raw, &matches); err != nil {
			return nil, fmt.Errorf("%w: matches object expected", ErrAnswerKind)
		}
		answer = MatchAnswer(matches)
	default:
		return nil, fmt.Errorf("%w: unsupported question %T", ErrAnswerKind, question)
	}

	if !acceptsAnswer(question, answer) {
		return nil, fmt.Errorf("%w: answer out of range", ErrAnswerKind)
	}
	return answer, nil
}
