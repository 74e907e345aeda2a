package player

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"course-quiz/internal/progress"
	"course-quiz/internal/quiz"
)

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  help")
	fmt.Fprintln(out, "  lessons <course_id>")
	fmt.Fprintln(out, "  progress <course_id>")
	fmt.Fprintln(out, "  play <lesson_id>")
	fmt.Fprintln(out, "  exit")
}

func promptYesNo(reader *bufio.Reader, out io.Writer, prompt string) (bool, error) {
	for {
		fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(out, "Please answer yes or no.")
		}
	}
}

func describeClientError(err error, serverURL string) error {
	if errors.Is(err, progress.ErrServiceUnavailable) {
		return fmt.Errorf("progress service unavailable at %s", serverURL)
	}
	return err
}

func optionLetter(index int) string {
	return string(rune('A' + index))
}

func pointsLabel(points int) string {
	if points == 1 {
		return "1 point"
	}
	return strconv.Itoa(points) + " points"
}

func printQuestion(out io.Writer, question quiz.Question) {
	fmt.Fprintf(out, "%s\n", question.Common().Text)
	switch q := question.(type) {
	case quiz.MultipleChoice:
		for idx, option := range q.Options {
			fmt.Fprintf(out, "%s. %s\n", optionLetter(idx), option)
		}
	case quiz.Matching:
		for idx, pair := range q.Pairs {
			fmt.Fprintf(out, "%d. %s\n", idx+1, pair.Left)
		}
		for idx, right := range q.RightOptions() {
			fmt.Fprintf(out, "%s. %s\n", strings.ToLower(optionLetter(idx)), right)
		}
	}
}

func answerHint(question quiz.Question) string {
	switch q := question.(type) {
	case quiz.MultipleChoice:
		return fmt.Sprintf("Enter a letter from A to %s.", optionLetter(len(q.Options)-1))
	case quiz.TrueFalse:
		return "Enter true or false."
	case quiz.Matching:
		return "Match every item, e.g. 1a 2c."
	default:
		return "Enter your answer as text."
	}
}

func answerPrompt(question quiz.Question) string {
	switch q := question.(type) {
	case quiz.MultipleChoice:
		return fmt.Sprintf("Your answer (A-%s): ", optionLetter(len(q.Options)-1))
	case quiz.TrueFalse:
		return "Your answer (true/false): "
	case quiz.Matching:
		return "Your matches (e.g. 1a 2c): "
	default:
		return "Your answer: "
	}
}

// promptAnswer reads one line; back is set when the learner asks for the
// previous question. A nil answer with a nil error means the input was
// invalid.
func promptAnswer(reader *bufio.Reader, out io.Writer, question quiz.Question, canGoBack bool) (quiz.Answer, bool, error) {
	fmt.Fprint(out, answerPrompt(question))

	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, false, err
	}
	line = strings.TrimSpace(line)
	if canGoBack && strings.EqualFold(line, "back") {
		return nil, true, nil
	}
	return parseAnswer(question, line), false, nil
}

func parseAnswer(question quiz.Question, line string) quiz.Answer {
	if line == "" {
		return nil
	}
	switch q := question.(type) {
	case quiz.MultipleChoice:
		letter := strings.ToUpper(line)
		if len(letter) != 1 || letter[0] < 'A' || int(letter[0]-'A') >= len(q.Options) {
			return nil
		}
		return quiz.OptionAnswer(int(letter[0] - 'A'))
	case quiz.TrueFalse:
		switch strings.ToLower(line) {
		case "true", "t", "yes", "y":
			return quiz.BoolAnswer(true)
		case "false", "f", "no", "n":
			return quiz.BoolAnswer(false)
		}
		return nil
	case quiz.Matching:
		return parseMatches(q, line)
	default:
		return quiz.TextAnswer(line)
	}
}

// parseMatches reads tokens like "1a 2c" and requires every left item to be
// matched exactly once.
func parseMatches(question quiz.Matching, line string) quiz.Answer {
	rights := question.RightOptions()
	matches := make(quiz.MatchAnswer, len(question.Pairs))
	for _, token := range strings.Fields(strings.ReplaceAll(line, ",", " ")) {
		token = strings.ToLower(token)
		if len(token) < 2 {
			return nil
		}
		letter := token[len(token)-1]
		left, err := strconv.Atoi(token[:len(token)-1])
		if err != nil || left < 1 || left > len(question.Pairs) {
			return nil
		}
		right := int(letter) - 'a'
		if right < 0 || right >= len(rights) {
			return nil
		}
		key := question.Pairs[left-1].Left
		if _, dup := matches[key]; dup {
			return nil
		}
		matches[key] = rights[right]
	}
	if len(matches) != len(question.Pairs) {
		return nil
	}
	return matches
}

func formatAnswer(question quiz.Question, answer quiz.Answer) string {
	switch a := answer.(type) {
	case quiz.OptionAnswer:
		if q, ok := question.(quiz.MultipleChoice); ok && int(a) >= 0 && int(a) < len(q.Options) {
			return fmt.Sprintf("%s. %s", optionLetter(int(a)), q.Options[a])
		}
		return strconv.Itoa(int(a))
	case quiz.BoolAnswer:
		return strconv.FormatBool(bool(a))
	case quiz.TextAnswer:
		return strconv.Quote(string(a))
	case quiz.MatchAnswer:
		q, ok := question.(quiz.Matching)
		if !ok {
			return fmt.Sprint(map[string]string(a))
		}
		parts := make([]string, 0, len(q.Pairs))
		for _, pair := range q.Pairs {
			parts = append(parts, pair.Left+" -> "+a[pair.Left])
		}
		return strings.Join(parts, "; ")
	default:
		return "(no answer)"
	}
}

func correctAnswerDisplay(question quiz.Question) string {
	switch q := question.(type) {
	case quiz.MultipleChoice:
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return "unknown"
		}
		return fmt.Sprintf("%s. %s", optionLetter(q.CorrectOption), q.Options[q.CorrectOption])
	case quiz.TrueFalse:
		return strconv.FormatBool(q.CorrectAnswer)
	case quiz.FillBlank:
		return strings.Join(q.CorrectAnswers, " or ")
	case quiz.ShortAnswer:
		return "mentions " + strings.Join(q.CorrectKeywords, " or ")
	case quiz.Essay:
		return "any written response"
	case quiz.Matching:
		parts := make([]string, 0, len(q.Pairs))
		for _, pair := range q.Pairs {
			parts = append(parts, pair.Left+" -> "+pair.Right)
		}
		return strings.Join(parts, "; ")
	default:
		return "unknown"
	}
}

func printResults(out io.Writer, view quiz.ResultsView, overview quiz.Overview, showPoints bool) {
	fmt.Fprintln(out)
	if view.Passed {
		fmt.Fprintln(out, "Result: passed")
	} else {
		fmt.Fprintln(out, "Result: not passed")
	}
	fmt.Fprintf(out, "Score: %d%% (pass at %d%%)\n", view.Record.ScorePercentage, view.MinimumScore)
	if showPoints {
		fmt.Fprintf(out, "Points: %d/%d\n", view.Record.PointsEarned, view.Record.TotalPoints)
	}
	if overview.AllowMultipleAttempts {
		fmt.Fprintf(out, "Attempt %d of %d\n", view.Record.AttemptCount, overview.MaxAttempts)
	}
	if view.SubmissionError != nil {
		fmt.Fprintf(out, "! %s\n", view.SubmissionError.Message)
	}
	if view.ProgressError != nil {
		fmt.Fprintf(out, "! %s\n", view.ProgressError.Message)
	}

	if len(view.Review) == 0 {
		return
	}
	fmt.Fprintln(out, "Review:")
	for _, item := range view.Review {
		fmt.Fprintf(out, "%d. %s\n", item.ShuffledIndex+1, item.Question.Common().Text)
		switch {
		case !item.Answered:
			fmt.Fprintln(out, "   Your answer: (none recorded)")
		case item.Correct:
			fmt.Fprintf(out, "   Your answer: %s (correct)\n", formatAnswer(item.Question, item.Answer))
		default:
			fmt.Fprintf(out, "   Your answer: %s (incorrect)\n", formatAnswer(item.Question, item.Answer))
		}
		if !item.Correct {
			fmt.Fprintf(out, "   Correct answer: %s\n", correctAnswerDisplay(item.Question))
		}
		if explanation := strings.TrimSpace(item.Question.Common().Explanation); explanation != "" {
			fmt.Fprintf(out, "   %s\n", explanation)
		}
	}
}
