// internal/app/features/errors/logger.go
package errors

import (
	"net/http"

	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"go.uber.org/zap"
)

// ErrorLogger writes error responses and logs them with request context.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger creates an ErrorLogger. A nil logger is replaced by a no-op.
func NewErrorLogger(log *zap.Logger) *ErrorLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ErrorLogger{log: log}
}

func (el *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if u, ok := auth.CurrentUser(r); ok {
		fields = append(fields, zap.String("user_id", u.ID))
	}
	return fields
}

// LogServerError logs msg at error level and answers 500 with userMsg.
func (el *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	el.log.Error(msg, el.fields(r, err)...)
	Error(w, http.StatusInternalServerError, userMsg)
}

// LogBadRequest logs msg at debug level and answers 400 with userMsg.
func (el *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	el.log.Debug(msg, el.fields(r, err)...)
	Error(w, http.StatusBadRequest, userMsg)
}

// Handle answers err with the status from StatusFor. Client errors carry
// err's message; server errors are logged under op and hidden.
func (el *ErrorLogger) Handle(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		el.LogServerError(w, r, op+" failed", err, "A server error occurred.")
		return
	}
	if status == http.StatusForbidden {
		el.log.Info("access denied", append(el.fields(r, err), zap.String("op", op))...)
	}
	Error(w, status, err.Error())
}
