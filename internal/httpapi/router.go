package httpapi

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"course-quiz/internal/auth"
	"course-quiz/internal/quiz"
)

func NewRouter(service *quiz.Service, signer *auth.Signer) http.Handler {
	api := NewAPI(service)

	r := mux.NewRouter()
	r.HandleFunc("/health", api.HandleHealth).Methods(http.MethodGet)

	s := r.PathPrefix("/api").Subrouter()
	s.Use(requireLearner)
	s.HandleFunc("/courses/{course_id}/lessons", api.HandleListLessons).Methods(http.MethodGet)
	s.HandleFunc("/courses/{course_id}/progress", api.HandleCourseProgress).Methods(http.MethodGet)
	s.HandleFunc("/courses/{course_id}/lessons/{lesson_id}/progress", api.HandleGetProgress).Methods(http.MethodGet)
	s.HandleFunc("/courses/{course_id}/lessons/{lesson_id}/progress", api.HandleSaveProgress).Methods(http.MethodPut)
	s.HandleFunc("/lessons/{lesson_id}", api.HandleGetLesson).Methods(http.MethodGet)
	s.HandleFunc("/lessons/{lesson_id}/answers", api.HandleSubmitAnswers).Methods(http.MethodPost)
	s.HandleFunc("/lessons/{lesson_id}/answers/latest", api.HandleLatestSubmission).Methods(http.MethodGet)
	s.HandleFunc("/lessons/{lesson_id}/shuffle", api.HandleGetShuffle).Methods(http.MethodGet)
	s.HandleFunc("/lessons/{lesson_id}/shuffle", api.HandleResetShuffle).Methods(http.MethodDelete)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})

	var handler http.Handler = r
	handler = logFailures(handler)
	handler = signer.WithAuth(handler)
	handler = handlers.RecoveryHandler(handlers.RecoveryLogger(glogRecoveryLogger{}), handlers.PrintRecoveryStack(true))(handler)
	handler = handlers.CombinedLoggingHandler(glogWriter{}, handler)
	handler = handlers.CORS(
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
	)(handler)
	return handler
}
