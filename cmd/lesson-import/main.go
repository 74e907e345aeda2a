package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"course-quiz/internal/lesson"
	"course-quiz/internal/opentdb"
	"course-quiz/internal/quiz"
)

func main() {
	courseID := flag.String("course", "", "course id (required)")
	lessonID := flag.String("lesson", "", "lesson id (required)")
	title := flag.String("title", "Trivia", "lesson title")
	position := flag.Int("position", 0, "lesson position within the course")
	amount := flag.Int("amount", 10, "number of questions to fetch")
	difficulty := flag.String("difficulty", "", "easy, medium or hard")
	minScore := flag.Int("min-score", 0, "minimum quiz score to pass (0 means the default)")
	shuffle := flag.Bool("shuffle", false, "shuffle question order per learner")
	out := flag.String("out", "", "output file (defaults to stdout)")
	timeout := flag.Duration("timeout", 10*time.Second, "HTTP timeout")
	flag.Parse()

	if strings.TrimSpace(*courseID) == "" || strings.TrimSpace(*lessonID) == "" {
		fmt.Fprintln(os.Stderr, "error: --course and --lesson are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := opentdb.NewClient(&http.Client{Timeout: *timeout})
	raw, err := client.FetchQuestions(ctx, *amount, *difficulty)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	doc := quiz.Lesson{
		ID:               *lessonID,
		CourseID:         *courseID,
		Title:            *title,
		Position:         *position,
		MinimumQuizScore: *minScore,
		Quiz: quiz.QuizDefinition{
			Questions:              opentdb.ToQuestions(raw),
			AllowMultipleAttempts:  true,
			ShowCorrectAnswers:     true,
			ShowResultsImmediately: true,
			ShuffleQuestions:       *shuffle,
		},
	}

	data, err := lesson.Marshal(doc)
	if err == nil {
		_, err = lesson.Parse(data)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if *out == "" {
		_, err = os.Stdout.Write(data)
	} else {
		err = os.WriteFile(*out, data, 0o644)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
