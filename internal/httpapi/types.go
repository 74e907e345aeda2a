package httpapi

import (
	"time"

	"course-quiz/internal/quiz"
)

type lessonSummary struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Position         int    `json:"position"`
	QuestionCount    int    `json:"questionCount"`
	MinimumQuizScore int    `json:"minimumQuizScore"`
}

type lessonsResponse struct {
	CourseID string          `json:"courseId"`
	Lessons  []lessonSummary `json:"lessons"`
}

type submitAnswersRequest struct {
	LessonID string             `json:"lessonId"`
	Answers  []quiz.AnswerInput `json:"answers"`
}

type answerResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
}

type submitAnswersResponse struct {
	SubmissionID string         `json:"submissionId"`
	PointsEarned int            `json:"pointsEarned"`
	TotalPoints  int            `json:"totalPoints"`
	Results      []answerResult `json:"results"`
	SubmittedAt  time.Time      `json:"submittedAt"`
}

type saveProgressRequest struct {
	Completed       bool `json:"completed"`
	ScorePercentage int  `json:"scorePercentage"`
	Attempts        int  `json:"attempts"`
}

type courseProgressResponse struct {
	CourseID string                `json:"courseId"`
	Progress []quiz.ProgressRecord `json:"progress"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}
