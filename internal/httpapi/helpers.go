package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/golang/glog"
	"github.com/gorilla/mux"

	"course-quiz/internal/auth"
	"course-quiz/internal/quiz"
)

const maxBodyBytes = 1 << 20

func writeServiceError(w http.ResponseWriter, err error) {
	var validation *quiz.ValidationError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Error()})
	case errors.Is(err, quiz.ErrLessonNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "lesson not found"})
	case errors.Is(err, quiz.ErrProgressNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "progress not found"})
	case errors.Is(err, quiz.ErrNoSubmission):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no submission recorded"})
	case errors.Is(err, quiz.ErrStaleProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "a newer attempt has already been saved"})
	case errors.Is(err, quiz.ErrInvalidLearner):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "learner identity is required"})
	default:
		glog.Errorf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "request failed"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		message := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			message = "request body is required"
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
		return false
	}
	return true
}

func pathParam(r *http.Request, key string) string {
	return strings.TrimSpace(mux.Vars(r)[key])
}

func learnerID(r *http.Request) string {
	id, _ := auth.LearnerFromContext(r.Context())
	return id
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
