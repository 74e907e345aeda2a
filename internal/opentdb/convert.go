package opentdb

import (
	"html"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"course-quiz/internal/quiz"
)

// ToQuestions converts trivia items into quiz questions. Unknown types are
// skipped. Harder questions are worth more points.
func ToQuestions(raw []RawQuestion) quiz.QuestionList {
	return toQuestions(raw, rand.Shuffle)
}

func toQuestions(raw []RawQuestion, shuffle func(n int, swap func(i, j int))) quiz.QuestionList {
	questions := make(quiz.QuestionList, 0, len(raw))
	for _, item := range raw {
		base := quiz.QuestionBase{
			ID:     uuid.NewString(),
			Text:   html.UnescapeString(item.Question),
			Points: difficultyPoints(item.Difficulty),
		}

		switch item.Type {
		case "boolean":
			questions = append(questions, quiz.TrueFalse{
				QuestionBase:  base,
				CorrectAnswer: strings.EqualFold(item.CorrectAnswer, "true"),
			})
		case "multiple":
			questions = append(questions, buildMultipleChoice(base, item, shuffle))
		}
	}
	return questions
}

func buildMultipleChoice(base quiz.QuestionBase, raw RawQuestion, shuffle func(n int, swap func(i, j int))) quiz.MultipleChoice {
	type choice struct {
		text      string
		isCorrect bool
	}

	choices := make([]choice, 0, len(raw.IncorrectAnswers)+1)
	for _, incorrect := range raw.IncorrectAnswers {
		choices = append(choices, choice{text: html.UnescapeString(incorrect)})
	}
	choices = append(choices, choice{text: html.UnescapeString(raw.CorrectAnswer), isCorrect: true})

	shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})

	question := quiz.MultipleChoice{QuestionBase: base, Options: make([]string, len(choices))}
	for idx, candidate := range choices {
		question.Options[idx] = candidate.text
		if candidate.isCorrect {
			question.CorrectOption = idx
		}
	}
	return question
}

func difficultyPoints(difficulty string) int {
	switch strings.ToLower(difficulty) {
	case "medium":
		return 2
	case "hard":
		return 3
	default:
		return 1
	}
}
