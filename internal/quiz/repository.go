package quiz

import (
	"context"
	"encoding/json"
	"time"
)

type Lesson struct {
	ID               string         `json:"id"`
	CourseID         string         `json:"courseId"`
	Title            string         `json:"title"`
	Position         int            `json:"position"`
	MinimumQuizScore int            `json:"minimumQuizScore,omitempty"`
	Quiz             QuizDefinition `json:"quiz"`
}

// ProgressRecord is the durable (lesson, completed, score, attempts) tuple.
type ProgressRecord struct {
	CourseID        string    `json:"courseId"`
	LessonID        string    `json:"lessonId"`
	LearnerID       string    `json:"learnerId,omitempty"`
	Completed       bool      `json:"completed"`
	ScorePercentage int       `json:"scorePercentage"`
	Attempts        int       `json:"attempts"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty"`
}

// NewProgressRecord marks the lesson completed only when the attempt reached
// the minimum score. A failing attempt still produces a record so an earlier
// completed flag is overwritten.
func NewProgressRecord(courseID, lessonID string, record AttemptRecord, minimumScore int) ProgressRecord {
	return ProgressRecord{
		CourseID:        courseID,
		LessonID:        lessonID,
		Completed:       record.ScorePercentage >= MinimumScore(minimumScore),
		ScorePercentage: record.ScorePercentage,
		Attempts:        record.AttemptCount,
	}
}

type GradedAnswer struct {
	QuestionID string          `json:"questionId"`
	UserAnswer json.RawMessage `json:"userAnswer"`
	Correct    bool            `json:"correct"`
}

type Submission struct {
	ID           string         `json:"id"`
	LessonID     string         `json:"lessonId"`
	LearnerID    string         `json:"learnerId"`
	Answers      []GradedAnswer `json:"answers"`
	PointsEarned int            `json:"pointsEarned"`
	TotalPoints  int            `json:"totalPoints"`
	SubmittedAt  time.Time      `json:"submittedAt"`
}

type LessonRepository interface {
	UpsertLesson(ctx context.Context, lesson Lesson) error
	GetLesson(ctx context.Context, lessonID string) (Lesson, error)
	ListLessons(ctx context.Context, courseID string) ([]Lesson, error)
}

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, submission Submission) error
	LatestSubmission(ctx context.Context, learnerID, lessonID string) (Submission, error)
}

// ProgressSaver persists a progress record. Stores return ErrStaleProgress
// when the record has fewer attempts than the one already stored.
type ProgressSaver interface {
	SaveProgress(ctx context.Context, record ProgressRecord) error
}

type ProgressRepository interface {
	ProgressSaver
	GetProgress(ctx context.Context, learnerID, courseID, lessonID string) (ProgressRecord, error)
	ListCourseProgress(ctx context.Context, learnerID, courseID string) ([]ProgressRecord, error)
}

// ShuffleRepository keeps one mapping per learner and lesson. An invalidated
// mapping keeps its generation with a nil QuestionOrder.
type ShuffleRepository interface {
	GetShuffle(ctx context.Context, learnerID, lessonID string) (ShuffleMapping, error)
	SaveShuffle(ctx context.Context, learnerID, lessonID string, mapping ShuffleMapping) error
	InvalidateShuffle(ctx context.Context, learnerID, lessonID string) error
}
