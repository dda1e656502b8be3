package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/tenancy/pkg/composables"
	"github.com/iota-uz/tenancy/pkg/constants"
	"github.com/iota-uz/tenancy/pkg/httpapi"
)

type LoggerOptions struct {
	Logger          *logrus.Logger
	RequestIDHeader string
	RealIPHeader    string
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WithLogger attaches a request-scoped field logger to the context, recovers
// panics from downstream handlers and writes a completion line per request.
func WithLogger(opts LoggerOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(opts.RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			ip := r.Header.Get(opts.RealIPHeader)
			if ip == "" {
				ip = r.RemoteAddr
			}

			fields := logrus.Fields{
				"timestamp":  start.Format(time.RFC3339),
				"path":       r.URL.Path,
				"method":     r.Method,
				"host":       r.Host,
				"ip":         ip,
				"user-agent": r.UserAgent(),
				"request-id": requestID,
			}
			logger := opts.Logger.WithFields(fields)

			ctx := composables.WithLogger(r.Context(), logger)
			ctx = context.WithValue(ctx, constants.RequestStart, start)

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if rec := recover(); rec != nil {
					logger.WithField("panic", rec).Error("recovered from panic in handler")
					_ = httpapi.WriteError(recorder, http.StatusInternalServerError, "internal", "internal server error", nil)
					return
				}
				logger.WithFields(logrus.Fields{
					"duration": time.Since(start).String(),
					"status":   recorder.status,
				}).Info("request completed")
			}()

			next.ServeHTTP(recorder, r.WithContext(ctx))
		})
	}
}
