package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// storageMessage replaces storage fault messages outside debug mode; the
// cause stays in the log.
const storageMessage = "a storage failure occurred, please retry later"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ErrorHandler turns errors into JSON responses and logs them by severity.
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorHandler creates an error handler. In debug mode responses carry
// unredacted messages and stack traces.
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{logger: logger, debug: debug}
}

// Handle writes the response for err. Errors without an AppError in their
// chain are reported as internal.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	appErr := GetAppError(err)
	if appErr == nil {
		appErr = &AppError{Type: ErrorTypeInternal, Message: "An internal error occurred", Cause: err}
		if h.debug {
			appErr.Message = err.Error()
		}
	}

	status := appErr.Status()
	resp := ErrorResponse{
		Error:     true,
		Type:      string(appErr.Type),
		Message:   appErr.Message,
		Code:      appErr.Code,
		Details:   appErr.Details,
		RequestID: middleware.GetReqID(r.Context()),
	}
	if appErr.Type == ErrorTypeStorage && !h.debug {
		resp.Message = storageMessage
	}
	if h.debug && appErr.StackTrace != "" {
		details := make(map[string]interface{}, len(resp.Details)+1)
		for k, v := range resp.Details {
			details[k] = v
		}
		details["stack_trace"] = appErr.StackTrace
		resp.Details = details
	}

	h.log(status, appErr.Message, h.fields(r, status, resp.RequestID, appErr)...)
	h.write(w, status, resp)
}

// HandleStatus writes an error response for a bare status, such as an
// unmatched route.
func (h *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := ErrorResponse{
		Error:     true,
		Type:      string(TypeForStatus(status)),
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}
	h.log(status, message, h.fields(r, status, resp.RequestID, nil)...)
	h.write(w, status, resp)
}

// Middleware recovers panics into internal error responses.
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *ErrorHandler) fields(r *http.Request, status int, requestID string, appErr *AppError) []zap.Field {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", requestID),
	}
	if appErr == nil {
		return fields
	}
	fields = append(fields, zap.String("error_type", string(appErr.Type)))
	if appErr.Code != "" {
		fields = append(fields, zap.String("error_code", appErr.Code))
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.Error(appErr.Cause))
	}
	if appErr.Details != nil {
		fields = append(fields, zap.Any("details", appErr.Details))
	}
	return fields
}

func (h *ErrorHandler) log(status int, msg string, fields ...zap.Field) {
	switch {
	case status >= 500:
		h.logger.Error(msg, fields...)
	case status >= 400:
		h.logger.Warn(msg, fields...)
	default:
		h.logger.Info(msg, fields...)
	}
}

func (h *ErrorHandler) write(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}
