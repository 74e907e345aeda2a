package httpapi

import (
	"net/http"

	"course-quiz/internal/quiz"
)

func (a *API) available(w http.ResponseWriter) bool {
	if a.service == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "quiz service unavailable"})
		return false
	}
	return true
}

func (a *API) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (a *API) HandleListLessons(w http.ResponseWriter, r *http.Request) {
	if !a.available(w) {
		return
	}
	courseID := pathParam(r, "course_id")
	lessons, err := a.service.ListLessons(r.Context(), courseID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	summaries := make([]lessonSummary, 0, len(lessons))
	for _, lesson := range lessons {
		summaries = append(summaries, lessonSummary{
			ID:               lesson.ID,
			Title:            lesson.Title,
			Position:         lesson.Position,
			QuestionCount:    len(lesson.Quiz.Questions),
			MinimumQuizScore: quiz.MinimumScore(lesson.MinimumQuizScore),
		})
	}
	writeJSON(w, http.StatusOK, lessonsResponse{CourseID: courseID, Lessons: summaries})
}

// HandleGetLesson returns the full lesson including correctness data; the
// learner client scores locally and reconciles review against it.
func (a *API) HandleGetLesson(w http.ResponseWriter, r *http.Request) {
	if !a.available(w) {
		return
	}
	lesson, err := a.service.GetLesson(r.Context(), pathParam(r, "lesson_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

func (a *API) HandleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	if !a.available(w) {
		return
	}
	lessonID := pathParam(r, "lesson_id")

	var request submitAnswersRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if request.LessonID != "" && request.LessonID != lessonID {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "lessonId does not match the request path"})
		return
	}

	submission, err := a.service.SubmitAnswers(r.Context(), learnerID(r), lessonID, request.Answers)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	results := make([]answerResult, 0, len(submission.Answers))
	for _, answer := range submission.Answers {
		results = append(results, answerResult{QuestionID: answer.QuestionID, Correct: answer.Correct})
	}
	writeJSON(w, http.StatusCreated, submitAnswersResponse{
		SubmissionID: submission.ID,
		PointsEarned: submission.PointsEarned,
		TotalPoints:  submission.TotalPoints,
		Results:      results,
		SubmittedAt:  submission.SubmittedAt,
	})
}

func (a *API) HandleLatestSubmission(w http.ResponseWriter, r *http.Request) {
	if !a.available(w) {
		return
	}
	submission, err := a.service.LatestSubmission(r.Context(), learnerID(r), pathParam(r, "lesson_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submission)
}

func (a *API) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	if !a.available(w) {
		return
	}
	record, err := a.service.GetProgress(r.Context(), learnerID(r), pathParam(r, "course_id"), pathParam(r, "lesson_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *API) HandleSaveProgress(w http.ResponseWriter, r *http.Request) {
	if !a.available(w) {
		return
	}

	var request saveProgressRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	record, err := a.service.SaveProgress(r.Context(), learnerID(r), quiz.ProgressRecord{
		CourseID:        pathParam(r, "course_id"),
		LessonID:        pathParam(r, "lesson_id"),
		Completed:       request.Completed,
		ScorePercentage: request.ScorePercentage,
		Attempts:        request.Attempts,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *API) HandleCourseProgress(w http.ResponseWriter, r *http.Request) {
	if !a.available(w) {
		return
	}
	courseID := pathParam(r, "course_id")
	records, err := a.service.ListCourseProgress(r.Context(), learnerID(r), courseID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courseProgressResponse{CourseID: courseID, Progress: records})
}

func (a *API) HandleGetShuffle(w http.ResponseWriter, r *http.Request) {
	if !a.available(w) {
		return
	}
	mapping, err := a.service.GetShuffle(r.Context(), learnerID(r), pathParam(r, "lesson_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}

func (a *API) HandleResetShuffle(w http.ResponseWriter, r *http.Request) {
	if !a.available(w) {
		return
	}
	if err := a.service.ResetShuffle(r.Context(), learnerID(r), pathParam(r, "lesson_id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
