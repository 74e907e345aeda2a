package quiz

import (
	"context"
	"errors"
	"sync"
)

func sampleQuestions() QuestionList {
	return QuestionList{
		MultipleChoice{
			QuestionBase:  QuestionBase{ID: "q1", Text: "Which planet is largest?", Points: 2},
			Options:       []string{"Mars", "Jupiter", "Venus"},
			CorrectOption: 1,
		},
		TrueFalse{
			QuestionBase:  QuestionBase{ID: "q2", Text: "Water boils at 100C at sea level."},
			CorrectAnswer: true,
		},
		FillBlank{
			QuestionBase:   QuestionBase{Text: "The capital of France is ___."},
			CorrectAnswers: []string{"Paris"},
		},
	}
}

func correctAnswers() []Answer {
	return []Answer{OptionAnswer(1), BoolAnswer(true), TextAnswer("paris")}
}

func sampleDefinition() QuizDefinition {
	return QuizDefinition{
		Questions:              sampleQuestions(),
		AllowMultipleAttempts:  true,
		MaxAttempts:            3,
		ShowCorrectAnswers:     true,
		ShowResultsImmediately: true,
	}
}

type recordingSubmitter struct {
	mu       sync.Mutex
	err      error
	calls    int
	lessonID string
	answers  []SubmittedAnswer
	block    chan struct{}
}

func (r *recordingSubmitter) SubmitAnswers(_ context.Context, lessonID string, answers []SubmittedAnswer) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.lessonID = lessonID
	r.answers = answers
	return r.err
}

type friendlyError struct{ message string }

func (e friendlyError) Error() string       { return "api: " + e.message }
func (e friendlyError) UserMessage() string { return e.message }

var errBoom = errors.New("boom")

type fakeLessonRepo struct {
	lessons map[string]Lesson
}

func newFakeLessonRepo(lessons ...Lesson) *fakeLessonRepo {
	repo := &fakeLessonRepo{lessons: make(map[string]Lesson)}
	for _, lesson := range lessons {
		repo.lessons[lesson.ID] = lesson
	}
	return repo
}

func (f *fakeLessonRepo) UpsertLesson(_ context.Context, lesson Lesson) error {
	f.lessons[lesson.ID] = lesson
	return nil
}

func (f *fakeLessonRepo) GetLesson(_ context.Context, lessonID string) (Lesson, error) {
	lesson, ok := f.lessons[lessonID]
	if !ok {
		return Lesson{}, ErrLessonNotFound
	}
	return lesson, nil
}

func (f *fakeLessonRepo) ListLessons(_ context.Context, courseID string) ([]Lesson, error) {
	out := make([]Lesson, 0)
	for _, lesson := range f.lessons {
		if lesson.CourseID == courseID {
			out = append(out, lesson)
		}
	}
	return out, nil
}

type fakeSubmissionRepo struct {
	created []Submission
}

func (f *fakeSubmissionRepo) CreateSubmission(_ context.Context, submission Submission) error {
	f.created = append(f.created, submission)
	return nil
}

func (f *fakeSubmissionRepo) LatestSubmission(_ context.Context, learnerID, lessonID string) (Submission, error) {
	for idx := len(f.created) - 1; idx >= 0; idx-- {
		if f.created[idx].LearnerID == learnerID && f.created[idx].LessonID == lessonID {
			return f.created[idx], nil
		}
	}
	return Submission{}, ErrNoSubmission
}

type fakeProgressRepo struct {
	records map[string]ProgressRecord
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{records: make(map[string]ProgressRecord)}
}

func progressKey(learnerID, courseID, lessonID string) string {
	return learnerID + "/" + courseID + "/" + lessonID
}

func (f *fakeProgressRepo) SaveProgress(_ context.Context, record ProgressRecord) error {
	key := progressKey(record.LearnerID, record.CourseID, record.LessonID)
	if existing, ok := f.records[key]; ok && record.Attempts < existing.Attempts {
		return ErrStaleProgress
	}
	f.records[key] = record
	return nil
}

func (f *fakeProgressRepo) GetProgress(_ context.Context, learnerID, courseID, lessonID string) (ProgressRecord, error) {
	record, ok := f.records[progressKey(learnerID, courseID, lessonID)]
	if !ok {
		return ProgressRecord{}, ErrProgressNotFound
	}
	return record, nil
}

func (f *fakeProgressRepo) ListCourseProgress(_ context.Context, learnerID, courseID string) ([]ProgressRecord, error) {
	out := make([]ProgressRecord, 0)
	for _, record := range f.records {
		if record.LearnerID == learnerID && record.CourseID == courseID {
			out = append(out, record)
		}
	}
	return out, nil
}

type fakeShuffleRepo struct {
	mu       sync.Mutex
	mappings map[string]ShuffleMapping
	gets     int
}

func newFakeShuffleRepo() *fakeShuffleRepo {
	return &fakeShuffleRepo{mappings: make(map[string]ShuffleMapping)}
}

func (f *fakeShuffleRepo) GetShuffle(_ context.Context, learnerID, lessonID string) (ShuffleMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	mapping, ok := f.mappings[learnerID+"/"+lessonID]
	if !ok {
		return ShuffleMapping{}, ErrShuffleNotFound
	}
	return mapping, nil
}

func (f *fakeShuffleRepo) SaveShuffle(_ context.Context, learnerID, lessonID string, mapping ShuffleMapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mappings[learnerID+"/"+lessonID] = mapping
	return nil
}

func (f *fakeShuffleRepo) InvalidateShuffle(_ context.Context, learnerID, lessonID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := learnerID + "/" + lessonID
	mapping, ok := f.mappings[key]
	if !ok {
		return ErrShuffleNotFound
	}
	mapping.QuestionOrder = nil
	f.mappings[key] = mapping
	return nil
}
