package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"
)

type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateSubmitting
	StateResults
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateSubmitting:
		return "submitting"
	case StateResults:
		return "results"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SubmittedAnswer is one entry of an answer submission. QuestionID falls back
// to the question's original index when it has no id.
type SubmittedAnswer struct {
	QuestionID string `json:"questionId"`
	UserAnswer Answer `json:"userAnswer"`
}

// AnswerSubmitter posts raw answers for a lesson.
type AnswerSubmitter interface {
	SubmitAnswers(ctx context.Context, lessonID string, answers []SubmittedAnswer) error
}

// Completion is handed to the host once an attempt has been scored.
type Completion struct {
	CourseID     string
	LessonID     string
	Answers      []SubmittedAnswer
	Questions    []Question
	Record       AttemptRecord
	MinimumScore int
}

// ResumeState restores a previously completed attempt. PrefilledAnswers are
// in display order.
type ResumeState struct {
	InitialScore        int
	InitialAttemptCount int
	PrefilledAnswers    []Answer
}

// SessionConfig is everything the host supplies when a lesson is entered.
type SessionConfig struct {
	CourseID         string
	LessonID         string
	Definition       QuizDefinition
	MinimumQuizScore int
	ShowResultsOnly  bool
	Resume           ResumeState
	Shuffle          *ShuffleMapping
	Disabled         bool

	Submitter  AnswerSubmitter
	OnComplete func(ctx context.Context, completion Completion) error
	OnContinue func()
	OnRetry    func(ctx context.Context) (*ShuffleMapping, error)
}

// SubmissionError is a persistence failure shown next to the results. It
// never stops the session from reaching Results.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string { return e.Message }

func (e *SubmissionError) Unwrap() error { return e.Err }

const (
	defaultSubmissionMessage = "Your answers could not be saved. Your score is shown below but may not be recorded."
	defaultProgressMessage   = "Your progress could not be saved. It will be retried the next time you finish this quiz."
)

func newSubmissionError(err error, fallback string) *SubmissionError {
	if err == nil {
		return nil
	}
	message := fallback
	var friendly interface{ UserMessage() string }
	if errors.As(err, &friendly) && friendly.UserMessage() != "" {
		message = friendly.UserMessage()
	}
	return &SubmissionError{Message: message, Err: err}
}

// RetryTicket identifies one retry refetch. It goes stale when the lesson
// changes or another retry starts.
type RetryTicket struct {
	epoch uint64
}

type ResultsView struct {
	Record          AttemptRecord
	Passed          bool
	MinimumScore    int
	SubmissionError *SubmissionError
	ProgressError   *SubmissionError
	CanRetry        bool
	CanContinue     bool
	// Review is empty unless the quiz shows correct answers.
	Review []ReviewItem
}

// Overview is the pre-quiz information card.
type Overview struct {
	QuestionCount         int
	TotalPoints           int
	AttemptCount          int
	MaxAttempts           int
	AllowMultipleAttempts bool
	MinimumScore          int
}

// Session is the quiz-taking state machine for a single lesson view.
type Session struct {
	mu sync.Mutex

	cfg       SessionConfig
	questions []Question
	state     State
	index     int
	answers   AnswerSet
	started   bool
	attempts  int

	record        *AttemptRecord
	submissionErr *SubmissionError
	progressErr   *SubmissionError
	reviewHidden  bool

	// retrying suppresses Resume until the first answer after a retry.
	retrying bool
	// refetchPending blocks input until the retry refetch settles.
	refetchPending bool
	epoch          uint64
}

func NewSession(cfg SessionConfig) *Session {
	s := &Session{}
	s.reset(cfg)
	return s
}

func (s *Session) reset(cfg SessionConfig) {
	s.epoch++
	s.cfg = cfg
	s.questions = cfg.Shuffle.Apply(cfg.Definition.Questions)
	s.answers = NewAnswerSet(len(s.questions))
	s.index = 0
	s.started = false
	s.attempts = cfg.Resume.InitialAttemptCount
	s.record = nil
	s.submissionErr = nil
	s.progressErr = nil
	s.reviewHidden = false
	s.retrying = false
	s.refetchPending = false
	s.state = StateNotStarted

	switch {
	case cfg.ShowResultsOnly:
		s.applyResume(cfg.Resume)
	case len(cfg.Resume.PrefilledAnswers) > 0:
		s.answers = AnswersFrom(len(s.questions), cfg.Resume.PrefilledAnswers)
		s.started = true
		s.state = StateInProgress
		s.index = s.firstUnanswered()
	}
}

func (s *Session) firstUnanswered() int {
	for idx, question := range s.questions {
		answer, _ := s.answers.Get(idx)
		if !answerProvided(question, answer) {
			return idx
		}
	}
	if len(s.questions) == 0 {
		return 0
	}
	return len(s.questions) - 1
}

func (s *Session) applyResume(resume ResumeState) {
	s.answers = AnswersFrom(len(s.questions), resume.PrefilledAnswers)
	s.attempts = resume.InitialAttemptCount

	score := Score(s.questions, s.answers)
	record := AttemptRecord{
		AttemptCount:    resume.InitialAttemptCount,
		ScorePercentage: clampPercentage(resume.InitialScore),
		PointsEarned:    score.PointsEarned,
		TotalPoints:     score.TotalPoints,
	}
	record.Passed = Passed(record.ScorePercentage, s.cfg.MinimumQuizScore)

	s.record = &record
	s.submissionErr = nil
	s.progressErr = nil
	s.reviewHidden = false
	s.started = true
	s.index = 0
	s.state = StateResults
}

func clampPercentage(value int) int {
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}

// Start leaves the pre-quiz card and shows the first question.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refetchPending {
		return ErrRetryPending
	}
	if s.state != StateNotStarted {
		return fmt.Errorf("start from %s: %w", s.state, ErrInvalidTransition)
	}
	if len(s.questions) == 0 {
		return &ValidationError{Field: "questions", Message: "quiz has no questions"}
	}
	s.started = true
	s.index = 0
	s.state = StateInProgress
	return nil
}

// Answer records the answer for the current question, replacing any earlier
// one.
func (s *Session) Answer(answer Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refetchPending {
		return ErrRetryPending
	}
	if s.state != StateInProgress {
		return fmt.Errorf("answer in %s: %w", s.state, ErrInvalidTransition)
	}
	question := s.questions[s.index]
	if answer == nil || !acceptsAnswer(question, answer) {
		return fmt.Errorf("%w: %T for %s question", ErrAnswerKind, answer, question.Type())
	}
	s.answers.Set(s.index, answer)
	s.retrying = false
	return nil
}

// Back returns to the previous question without clearing answers.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress || s.index == 0 {
		return fmt.Errorf("back from %s: %w", s.state, ErrInvalidTransition)
	}
	s.index--
	return nil
}

type pendingSubmission struct {
	epoch      uint64
	lessonID   string
	submitter  AnswerSubmitter
	onComplete func(context.Context, Completion) error
	completion Completion
}

// Next advances to the following question, or scores and submits the attempt
// on the last one. Submission and progress failures are reported through
// Results, never as an error from Next.
func (s *Session) Next(ctx context.Context) error {
	pending, err := s.advance()
	if err != nil || pending == nil {
		return err
	}

	var submitErr error
	if pending.submitter != nil {
		submitErr = pending.submitter.SubmitAnswers(ctx, pending.lessonID, pending.completion.Answers)
		if submitErr != nil {
			glog.Errorf("submit answers for lesson %s: %v", pending.lessonID, submitErr)
		}
	}

	var progressErr error
	if pending.onComplete != nil {
		progressErr = pending.onComplete(ctx, pending.completion)
		if progressErr != nil {
			glog.Errorf("save progress for lesson %s: %v", pending.lessonID, progressErr)
		}
	}

	return s.finishSubmission(pending, submitErr, progressErr)
}

func (s *Session) advance() (*pendingSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refetchPending {
		return nil, ErrRetryPending
	}
	if s.state != StateInProgress {
		return nil, fmt.Errorf("next from %s: %w", s.state, ErrInvalidTransition)
	}
	answer, _ := s.answers.Get(s.index)
	if !answerProvided(s.questions[s.index], answer) {
		return nil, ErrAnswerRequired
	}
	if s.index < len(s.questions)-1 {
		s.index++
		return nil, nil
	}

	s.state = StateSubmitting
	s.attempts++
	minimum := MinimumScore(s.cfg.MinimumQuizScore)
	record := NewAttemptRecord(Score(s.questions, s.answers), s.attempts, minimum)
	s.record = &record

	questions := make([]Question, len(s.questions))
	copy(questions, s.questions)

	glog.V(2).Infof("lesson %s attempt %d scored %d%% (%d/%d)",
		s.cfg.LessonID, record.AttemptCount, record.ScorePercentage, record.PointsEarned, record.TotalPoints)

	return &pendingSubmission{
		epoch:      s.epoch,
		lessonID:   s.cfg.LessonID,
		submitter:  s.cfg.Submitter,
		onComplete: s.cfg.OnComplete,
		completion: Completion{
			CourseID:     s.cfg.CourseID,
			LessonID:     s.cfg.LessonID,
			Answers:      s.submittedAnswers(),
			Questions:    questions,
			Record:       record,
			MinimumScore: minimum,
		},
	}, nil
}

// submittedAnswers keys each display-position answer by the question shown
// there.
func (s *Session) submittedAnswers() []SubmittedAnswer {
	displayed := s.cfg.Shuffle.resolve(s.cfg.Definition.Questions)
	submitted := make([]SubmittedAnswer, 0, s.answers.Len())
	for position, item := range displayed {
		answer, ok := s.answers.Get(position)
		if !ok {
			continue
		}
		submitted = append(submitted, SubmittedAnswer{
			QuestionID: QuestionKey(item.question, item.originalIndex),
			UserAnswer: answer,
		})
	}
	return submitted
}

func (s *Session) finishSubmission(pending *pendingSubmission, submitErr, progressErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pending.epoch != s.epoch {
		glog.V(2).Infof("dropping submission result for lesson %s: session moved on", pending.lessonID)
		return ErrStaleResult
	}
	s.submissionErr = newSubmissionError(submitErr, defaultSubmissionMessage)
	s.progressErr = newSubmissionError(progressErr, defaultProgressMessage)
	s.reviewHidden = !s.cfg.Definition.ShowResultsImmediately
	s.state = StateResults
	return nil
}

// BeginRetry applies the retry policy and, when allowed, resets the session to
// the pre-quiz card. Input stays blocked until CompleteRetry or AbandonRetry
// is called with the returned ticket.
func (s *Session) BeginRetry() (RetryTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateResults || s.record == nil {
		return RetryTicket{}, fmt.Errorf("retry from %s: %w", s.state, ErrInvalidTransition)
	}
	if err := CheckRetry(s.cfg.Definition, *s.record, s.cfg.Disabled); err != nil {
		return RetryTicket{}, err
	}

	s.epoch++
	s.answers = NewAnswerSet(len(s.questions))
	s.index = 0
	s.started = false
	s.record = nil
	s.submissionErr = nil
	s.progressErr = nil
	s.reviewHidden = false
	s.state = StateNotStarted
	s.retrying = true
	s.refetchPending = true

	glog.V(2).Infof("lesson %s retry approved after %d attempts", s.cfg.LessonID, s.attempts)
	return RetryTicket{epoch: s.epoch}, nil
}

// CompleteRetry installs the refetched shuffle mapping. A nil mapping means
// the quiz is shown in its original order.
func (s *Session) CompleteRetry(ticket RetryTicket, shuffle *ShuffleMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.epoch != s.epoch || !s.refetchPending {
		return ErrStaleResult
	}
	s.cfg.Shuffle = shuffle
	s.questions = shuffle.Apply(s.cfg.Definition.Questions)
	s.answers = NewAnswerSet(len(s.questions))
	s.refetchPending = false
	return nil
}

// AbandonRetry releases a pending refetch and keeps the current question
// order.
func (s *Session) AbandonRetry(ticket RetryTicket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.epoch != s.epoch || !s.refetchPending {
		return ErrStaleResult
	}
	s.refetchPending = false
	return nil
}

// Retry runs the full retry flow: policy check, host refetch, and install.
func (s *Session) Retry(ctx context.Context) error {
	ticket, err := s.BeginRetry()
	if err != nil {
		return err
	}

	s.mu.Lock()
	onRetry := s.cfg.OnRetry
	s.mu.Unlock()

	if onRetry == nil {
		return s.AbandonRetry(ticket)
	}

	shuffle, err := onRetry(ctx)
	if err != nil {
		glog.Errorf("refetch quiz data for retry: %v", err)
		if abandonErr := s.AbandonRetry(ticket); abandonErr != nil {
			return abandonErr
		}
		return fmt.Errorf("refetch quiz data: %w", err)
	}
	return s.CompleteRetry(ticket, shuffle)
}

// Resume jumps to Results from a persisted attempt. It reports false when a
// retry is in flight and the resume was suppressed.
func (s *Session) Resume(resume ResumeState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retrying || s.refetchPending {
		glog.V(2).Infof("lesson %s resume suppressed during retry", s.cfg.LessonID)
		return false
	}
	s.cfg.Resume = resume
	s.applyResume(resume)
	return true
}

// SwitchLesson discards everything about the current lesson and starts over
// with cfg. Results still in flight for the old lesson are dropped.
func (s *Session) SwitchLesson(cfg SessionConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset(cfg)
}

// Continue hands control back to the host after a passing attempt.
func (s *Session) Continue() error {
	s.mu.Lock()
	if s.state != StateResults || s.record == nil || !s.record.Passed || s.cfg.OnContinue == nil {
		s.mu.Unlock()
		return ErrCannotContinue
	}
	onContinue := s.cfg.OnContinue
	s.mu.Unlock()

	onContinue()
	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) LessonID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.LessonID
}

// Started reports whether the pre-quiz card has been dismissed.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Retrying reports whether a retry is in flight and resume is suppressed.
func (s *Session) Retrying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retrying
}

// Current returns the question being shown and the answer recorded for it.
func (s *Session) Current() (index int, question Question, answer Answer, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return 0, nil, nil, false
	}
	answer, _ = s.answers.Get(s.index)
	return s.index, s.questions[s.index], answer, true
}

// Questions returns the questions in display order.
func (s *Session) Questions() []Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	questions := make([]Question, len(s.questions))
	copy(questions, s.questions)
	return questions
}

func (s *Session) Answers() AnswerSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Clone()
}

func (s *Session) Overview() Overview {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Overview{
		QuestionCount:         len(s.questions),
		TotalPoints:           Score(s.questions, AnswerSet{}).TotalPoints,
		AttemptCount:          s.attempts,
		MaxAttempts:           s.cfg.Definition.AttemptLimit(),
		AllowMultipleAttempts: s.cfg.Definition.AllowMultipleAttempts,
		MinimumScore:          MinimumScore(s.cfg.MinimumQuizScore),
	}
}

// Results returns the result view; ok is false outside the Results state.
func (s *Session) Results() (ResultsView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateResults || s.record == nil {
		return ResultsView{}, false
	}

	record := *s.record
	view := ResultsView{
		Record:          record,
		Passed:          record.Passed,
		MinimumScore:    MinimumScore(s.cfg.MinimumQuizScore),
		SubmissionError: s.submissionErr,
		ProgressError:   s.progressErr,
		CanRetry:        CanRetry(s.cfg.Definition, record, s.cfg.Disabled),
		CanContinue:     record.Passed && s.cfg.OnContinue != nil,
	}
	if s.cfg.Definition.ShowCorrectAnswers && !s.reviewHidden {
		view.Review = BuildReview(s.cfg.Definition.Questions, s.cfg.Shuffle, s.answers)
	}
	return view, true
}
