// Package player is the terminal learner client. It hosts one quiz session
// and persists attempts through the progress API.
package player

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"course-quiz/internal/kv"
	"course-quiz/internal/progress"
	"course-quiz/internal/quiz"
)

const (
	defaultServer            = "http://127.0.0.1:8080"
	defaultHTTPTimeout       = 5 * time.Second
	defaultMaxInvalidAnswers = 3
)

type Config struct {
	Learner           string
	Token             string
	ServerURL         string
	MaxInvalidAnswers int
	HTTPTimeout       time.Duration
	// Cache keeps the last known progress between runs; nil means in memory.
	Cache      kv.Store
	HTTPClient *http.Client
}

type player struct {
	recorder   *progress.Recorder
	reader     *bufio.Reader
	out        io.Writer
	serverURL  string
	maxInvalid int

	// session is created on the first play and reused for every lesson.
	session *quiz.Session
	resumed bool
}

func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	learner := strings.TrimSpace(cfg.Learner)
	if learner == "" {
		return errors.New("learner is required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return errors.New("token is required")
	}

	serverURL := strings.TrimSpace(cfg.ServerURL)
	if serverURL == "" {
		serverURL = defaultServer
	}
	maxInvalidAnswers := cfg.MaxInvalidAnswers
	if maxInvalidAnswers <= 0 {
		maxInvalidAnswers = defaultMaxInvalidAnswers
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	p := &player{
		recorder:   progress.NewRecorder(serverURL, cfg.Token, httpClient, cfg.Cache),
		reader:     bufio.NewReader(in),
		out:        out,
		serverURL:  serverURL,
		maxInvalid: maxInvalidAnswers,
	}

	fmt.Fprintf(out, "quiz-player\nlearner=%s\nserver=%s\n\n", learner, serverURL)
	printHelp(out)

	for {
		fmt.Fprint(out, "\n> ")
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		command := strings.ToLower(args[0])

		switch command {
		case "help":
			printHelp(out)
		case "exit":
			return nil
		case "lessons":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: lessons <course_id>")
				continue
			}
			if err := p.runLessons(ctx, args[1]); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "progress":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: progress <course_id>")
				continue
			}
			if err := p.runProgress(ctx, args[1]); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "play":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: play <lesson_id>")
				continue
			}
			if err := p.runPlay(ctx, args[1]); err != nil {
				if errors.Is(err, io.EOF) {
					fmt.Fprintln(out)
					return nil
				}
				fmt.Fprintf(out, "error: %v\n", err)
			}
		default:
			fmt.Fprintln(out, "unknown command. type 'help' for usage.")
		}
	}
}

func (p *player) runLessons(ctx context.Context, courseID string) error {
	lessons, err := p.recorder.ListLessons(ctx, courseID)
	if err != nil {
		return describeClientError(err, p.serverURL)
	}

	if len(lessons) == 0 {
		fmt.Fprintf(p.out, "No lessons in course %s.\n", courseID)
		return nil
	}

	fmt.Fprintf(p.out, "Lessons in %s:\n", courseID)
	for idx, lesson := range lessons {
		fmt.Fprintf(p.out, "%d. %s %s (%d questions, pass at %d%%)\n",
			idx+1,
			lesson.ID,
			lesson.Title,
			lesson.QuestionCount,
			quiz.MinimumScore(lesson.MinimumQuizScore),
		)
	}
	return nil
}

func (p *player) runProgress(ctx context.Context, courseID string) error {
	records, err := p.recorder.ListCourseProgress(ctx, courseID)
	if err != nil {
		return describeClientError(err, p.serverURL)
	}

	if len(records) == 0 {
		fmt.Fprintf(p.out, "No progress recorded in course %s.\n", courseID)
		return nil
	}

	fmt.Fprintf(p.out, "Progress in %s:\n", courseID)
	for _, record := range records {
		status := "in progress"
		if record.Completed {
			status = "completed"
		}
		fmt.Fprintf(p.out, "- %s: %s, score %d%%, attempts %d\n",
			record.LessonID, status, record.ScorePercentage, record.Attempts)
	}
	return nil
}
