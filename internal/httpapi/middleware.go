package httpapi

import (
	"bytes"
	"net/http"

	"github.com/golang/glog"

	"course-quiz/internal/auth"
)

const defaultMaxLogBytes = 512

// statusRecorder keeps the status and the first maxLogBytes of the body so
// failed responses can be logged.
type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	maxLogBytes  int
	logBody      bytes.Buffer
	truncated    bool
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if remaining := r.maxLogBytes - r.logBody.Len(); remaining > 0 {
		if len(p) > remaining {
			r.logBody.Write(p[:remaining])
			r.truncated = true
		} else {
			r.logBody.Write(p)
		}
	} else if len(p) > 0 {
		r.truncated = true
	}

	written, err := r.ResponseWriter.Write(p)
	r.bytesWritten += written
	return written, err
}

func logFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			maxLogBytes:    defaultMaxLogBytes,
		}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode >= http.StatusInternalServerError {
			suffix := ""
			if recorder.truncated {
				suffix = "..."
			}
			glog.Errorf("%s %s -> %d: %s%s", r.Method, r.URL.Path, recorder.statusCode,
				bytes.TrimSpace(recorder.logBody.Bytes()), suffix)
		}
	})
}

func requireLearner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.LearnerFromContext(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// glogWriter feeds gorilla/handlers access logs into glog.
type glogWriter struct{}

func (glogWriter) Write(p []byte) (int, error) {
	glog.Info(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}

type glogRecoveryLogger struct{}

func (glogRecoveryLogger) Println(v ...interface{}) {
	glog.Error(v...)
}
