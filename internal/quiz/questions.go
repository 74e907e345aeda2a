package quiz

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeFillBlank      QuestionType = "fill_blank"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeEssay          QuestionType = "essay"
	TypeMatching       QuestionType = "matching"
)

// Question is implemented by the six question variants. Each variant carries
// only its own correctness data.
type Question interface {
	Type() QuestionType
	Common() QuestionBase
}

type QuestionBase struct {
	ID          string `json:"id,omitempty"`
	Text        string `json:"text"`
	Points      int    `json:"points,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

func (b QuestionBase) Common() QuestionBase { return b }

// PointValue is the number of points the question is worth; unset means 1.
func (b QuestionBase) PointValue() int {
	if b.Points < 1 {
		return 1
	}
	return b.Points
}

type MultipleChoice struct {
	QuestionBase
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	// Reserved. Scoring does not branch on these.
	PartialCredit        bool `json:"partialCredit,omitempty"`
	AllowMultipleCorrect bool `json:"allowMultipleCorrect,omitempty"`
}

func (MultipleChoice) Type() QuestionType { return TypeMultipleChoice }

type TrueFalse struct {
	QuestionBase
	CorrectAnswer bool `json:"correctAnswer"`
}

func (TrueFalse) Type() QuestionType { return TypeTrueFalse }

type FillBlank struct {
	QuestionBase
	CorrectAnswers []string `json:"correctAnswers"`
	CaseSensitive  bool     `json:"caseSensitive,omitempty"`
}

func (FillBlank) Type() QuestionType { return TypeFillBlank }

type ShortAnswer struct {
	QuestionBase
	CorrectKeywords []string `json:"correctKeywords"`
	CaseSensitive   bool     `json:"caseSensitive,omitempty"`
}

func (ShortAnswer) Type() QuestionType { return TypeShortAnswer }

type Essay struct {
	QuestionBase
	MinWords int `json:"minWords,omitempty"`
}

func (Essay) Type() QuestionType { return TypeEssay }

type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type Matching struct {
	QuestionBase
	Pairs []MatchPair `json:"correctMatches"`
}

func (Matching) Type() QuestionType { return TypeMatching }

// RightOptions lists the right-hand items in a stable order that does not
// reveal the pairing.
func (m Matching) RightOptions() []string {
	rights := make([]string, 0, len(m.Pairs))
	for _, pair := range m.Pairs {
		rights = append(rights, pair.Right)
	}
	sort.Strings(rights)
	return rights
}

// QuestionKey is the stable identifier of a question: its id, or its
// position in the definition when no id exists.
func QuestionKey(question Question, index int) string {
	if id := strings.TrimSpace(question.Common().ID); id != "" {
		return id
	}
	return strconv.Itoa(index)
}

// QuestionList carries the "type" discriminator through JSON.
type QuestionList []Question

func (l QuestionList) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(l))
	for idx, question := range l {
		encoded, err := marshalQuestion(question)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", idx, err)
		}
		items = append(items, encoded)
	}
	return json.Marshal(items)
}

func (l *QuestionList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	questions := make(QuestionList, 0, len(raw))
	for idx, item := range raw {
		question, err := unmarshalQuestion(item)
		if err != nil {
			return fmt.Errorf("question %d: %w", idx, err)
		}
		questions = append(questions, question)
	}
	*l = questions
	return nil
}

func marshalQuestion(question Question) ([]byte, error) {
	switch q := question.(type) {
	case MultipleChoice:
		return json.Marshal(struct {
			Type QuestionType `json:"type"`
			MultipleChoice
		}{TypeMultipleChoice, q})
	case TrueFalse:
		return json.Marshal(struct {
			Type QuestionType `json:"type"`
			TrueFalse
		}{TypeTrueFalse, q})
	case FillBlank:
		return json.Marshal(struct {
			Type QuestionType `json:"type"`
			FillBlank
		}{TypeFillBlank, q})
	case ShortAnswer:
		return json.Marshal(struct {
			Type QuestionType `json:"type"`
			ShortAnswer
		}{TypeShortAnswer, q})
	case Essay:
		return json.Marshal(struct {
			Type QuestionType `json:"type"`
			Essay
		}{TypeEssay, q})
	case Matching:
		return json.Marshal(struct {
			Type QuestionType `json:"type"`
			Matching
		}{TypeMatching, q})
	default:
		return nil, fmt.Errorf("unsupported question %T", question)
	}
}

func unmarshalQuestion(data []byte) (Question, error) {
	var head struct {
		Type QuestionType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case TypeMultipleChoice:
		var q MultipleChoice
		err := json.Unmarshal(data, &q)
		return q, err
	case TypeTrueFalse:
		var q TrueFalse
		err := json.Unmarshal(data, &q)
		return q, err
	case TypeFillBlank:
		var q FillBlank
		err := json.Unmarshal(data, &q)
		return q, err
	case TypeShortAnswer:
		var q ShortAnswer
		err := json.Unmarshal(data, &q)
		return q, err
	case TypeEssay:
		var q Essay
		err := json.Unmarshal(data, &q)
		return q, err
	case TypeMatching:
		var q Matching
		err := json.Unmarshal(data, &q)
		return q, err
	default:
		return nil, fmt.Errorf("unknown question type %q", head.Type)
	}
}
