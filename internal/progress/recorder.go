// Package progress is the client side of the progress API. Recorder posts
// answer submissions and progress records for a quiz session and fetches the
// lesson data a session is built from.
package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang/glog"

	"course-quiz/internal/kv"
	"course-quiz/internal/quiz"
)

var ErrServiceUnavailable = errors.New("progress service unavailable")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// UserMessage is the sentence shown to a learner next to their results.
func (e *APIError) UserMessage() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return "Your sign-in has expired, so this attempt was not saved. Sign in again and retry."
	case e.StatusCode == http.StatusConflict:
		return "A newer attempt for this lesson has already been saved."
	case e.StatusCode == http.StatusNotFound:
		return "This lesson is no longer available, so your attempt was not saved."
	case e.StatusCode >= http.StatusInternalServerError:
		return "The server had a problem saving your attempt. Please try again later."
	case strings.TrimSpace(e.Message) != "":
		return "Your attempt was not saved: " + e.Message
	default:
		return ""
	}
}

type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("%v: %v", ErrServiceUnavailable, e.err)
}

func (e *transportError) Unwrap() []error {
	return []error{ErrServiceUnavailable, e.err}
}

func (e *transportError) UserMessage() string {
	return "Could not reach the server, so this attempt was not saved. Check your connection."
}

// UserMessage converts an error returned by the Recorder into a learner-facing
// sentence; it is empty when no specific message applies.
func UserMessage(err error) string {
	var friendly interface{ UserMessage() string }
	if errors.As(err, &friendly) {
		return friendly.UserMessage()
	}
	return ""
}

type LessonSummary struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Position         int    `json:"position"`
	QuestionCount    int    `json:"questionCount"`
	MinimumQuizScore int    `json:"minimumQuizScore"`
}

type lessonsResponse struct {
	CourseID string          `json:"courseId"`
	Lessons  []LessonSummary `json:"lessons"`
}

type submitRequest struct {
	LessonID string                 `json:"lessonId"`
	Answers  []quiz.SubmittedAnswer `json:"answers"`
}

type submitResponse struct {
	SubmissionID string `json:"submissionId"`
	PointsEarned int    `json:"pointsEarned"`
	TotalPoints  int    `json:"totalPoints"`
}

type saveRequest struct {
	Completed       bool `json:"completed"`
	ScorePercentage int  `json:"scorePercentage"`
	Attempts        int  `json:"attempts"`
}

type courseProgressResponse struct {
	CourseID string                `json:"courseId"`
	Progress []quiz.ProgressRecord `json:"progress"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Recorder talks to the progress API on behalf of one learner.
type Recorder struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cache      kv.Store
}

func NewRecorder(baseURL, token string, httpClient *http.Client, cache kv.Store) *Recorder {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cache == nil {
		cache = kv.NewMemory()
	}

	return &Recorder{
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
		httpClient: httpClient,
		cache:      cache,
	}
}

func progressKey(courseID, lessonID string) string {
	return kv.Key("progress", courseID, lessonID)
}

// SubmitAnswers posts the raw answers of one attempt.
func (r *Recorder) SubmitAnswers(ctx context.Context, lessonID string, answers []quiz.SubmittedAnswer) error {
	if strings.TrimSpace(lessonID) == "" {
		return errors.New("lesson id is required")
	}
	if answers == nil {
		answers = []quiz.SubmittedAnswer{}
	}

	var payload submitResponse
	path := "/api/lessons/" + url.PathEscape(lessonID) + "/answers"
	if err := r.doJSON(ctx, http.MethodPost, path, submitRequest{LessonID: lessonID, Answers: answers}, &payload); err != nil {
		return err
	}
	glog.V(2).Infof("submission %s recorded for lesson %s (%d/%d)", payload.SubmissionID, lessonID, payload.PointsEarned, payload.TotalPoints)
	return nil
}

// SaveProgress upserts the record and caches what the server stored.
func (r *Recorder) SaveProgress(ctx context.Context, record quiz.ProgressRecord) error {
	if strings.TrimSpace(record.CourseID) == "" || strings.TrimSpace(record.LessonID) == "" {
		return errors.New("course id and lesson id are required")
	}

	request := saveRequest{
		Completed:       record.Completed,
		ScorePercentage: record.ScorePercentage,
		Attempts:        record.Attempts,
	}
	var saved quiz.ProgressRecord
	if err := r.doJSON(ctx, http.MethodPut, lessonProgressPath(record.CourseID, record.LessonID), request, &saved); err != nil {
		return err
	}
	r.remember(ctx, saved)
	return nil
}

func (r *Recorder) GetProgress(ctx context.Context, courseID, lessonID string) (quiz.ProgressRecord, error) {
	var record quiz.ProgressRecord
	err := r.doJSON(ctx, http.MethodGet, lessonProgressPath(courseID, lessonID), nil, &record)
	if isStatus(err, http.StatusNotFound) {
		return quiz.ProgressRecord{}, quiz.ErrProgressNotFound
	}
	if err != nil {
		return quiz.ProgressRecord{}, err
	}
	r.remember(ctx, record)
	return record, nil
}

// LastKnownProgress returns the most recent record this recorder saved or
// fetched for the lesson, without contacting the server.
func (r *Recorder) LastKnownProgress(ctx context.Context, courseID, lessonID string) (quiz.ProgressRecord, bool, error) {
	data, ok, err := r.cache.Get(ctx, progressKey(courseID, lessonID))
	if err != nil || !ok {
		return quiz.ProgressRecord{}, false, err
	}
	var record quiz.ProgressRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return quiz.ProgressRecord{}, false, fmt.Errorf("decode cached progress: %w", err)
	}
	return record, true, nil
}

func (r *Recorder) remember(ctx context.Context, record quiz.ProgressRecord) {
	data, err := json.Marshal(record)
	if err == nil {
		err = r.cache.Put(ctx, progressKey(record.CourseID, record.LessonID), data)
	}
	if err != nil {
		glog.Errorf("cache progress for lesson %s: %v", record.LessonID, err)
	}
}

func (r *Recorder) ListCourseProgress(ctx context.Context, courseID string) ([]quiz.ProgressRecord, error) {
	var payload courseProgressResponse
	if err := r.doJSON(ctx, http.MethodGet, "/api/courses/"+url.PathEscape(courseID)+"/progress", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Progress, nil
}

func (r *Recorder) ListLessons(ctx context.Context, courseID string) ([]LessonSummary, error) {
	var payload lessonsResponse
	if err := r.doJSON(ctx, http.MethodGet, "/api/courses/"+url.PathEscape(courseID)+"/lessons", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Lessons, nil
}

func (r *Recorder) GetLesson(ctx context.Context, lessonID string) (quiz.Lesson, error) {
	var lesson quiz.Lesson
	err := r.doJSON(ctx, http.MethodGet, "/api/lessons/"+url.PathEscape(lessonID), nil, &lesson)
	if isStatus(err, http.StatusNotFound) {
		return quiz.Lesson{}, quiz.ErrLessonNotFound
	}
	return lesson, err
}

// LatestSubmission returns the learner's most recent graded submission.
func (r *Recorder) LatestSubmission(ctx context.Context, lessonID string) (quiz.Submission, error) {
	var submission quiz.Submission
	err := r.doJSON(ctx, http.MethodGet, "/api/lessons/"+url.PathEscape(lessonID)+"/answers/latest", nil, &submission)
	if isStatus(err, http.StatusNotFound) {
		return quiz.Submission{}, quiz.ErrNoSubmission
	}
	return submission, err
}

// GetShuffle returns nil for lessons shown in their original order.
func (r *Recorder) GetShuffle(ctx context.Context, lessonID string) (*quiz.ShuffleMapping, error) {
	var mapping quiz.ShuffleMapping
	if err := r.doJSON(ctx, http.MethodGet, shufflePath(lessonID), nil, &mapping); err != nil {
		return nil, err
	}
	if len(mapping.QuestionOrder) == 0 {
		return nil, nil
	}
	return &mapping, nil
}

func (r *Recorder) ResetShuffle(ctx context.Context, lessonID string) error {
	return r.doJSON(ctx, http.MethodDelete, shufflePath(lessonID), nil, nil)
}

func lessonProgressPath(courseID, lessonID string) string {
	return "/api/courses/" + url.PathEscape(courseID) + "/lessons/" + url.PathEscape(lessonID) + "/progress"
}

func shufflePath(lessonID string) string {
	return "/api/lessons/" + url.PathEscape(lessonID) + "/shuffle"
}

func isStatus(err error, statusCode int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}

func (r *Recorder) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	fullURL := r.baseURL + path

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		request.Header.Set("Authorization", "Bearer "+r.token)
	}

	response, err := r.httpClient.Do(request)
	if err != nil {
		return &transportError{err: err}
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Error) != "" {
			apiErr.Message = payload.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return &apiErr
	}

	if responseBody == nil || response.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}
