package middleware

import (
	"fmt"
	"io"
	"net/http"

	"go-wiki-engine/internal/logger"

	"github.com/bytedance/sonic"
)

// AppError represents a custom error type for the application.
type AppError struct {
	Error   error
	Message string
	Code    int
}

// AppHandler is a custom handler function type that returns an AppError.
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

// Renderer executes a named HTML template.
type Renderer interface {
	Render(w io.Writer, r *http.Request, name string, data map[string]interface{}) error
}

func (e *AppError) log(log logger.Logger, r *http.Request) {
	l := log.With(map[string]interface{}{"method": r.Method, "path": r.URL.Path, "status": e.Code})
	if e.Code >= http.StatusInternalServerError {
		l.Error(e.Error, e.Message)
		return
	}
	l.Warn(fmt.Sprintf("%s: %v", e.Message, e.Error))
}

func recovered(rec interface{}) *AppError {
	err, ok := rec.(error)
	if !ok {
		err = fmt.Errorf("%v", rec)
	}
	return &AppError{Error: err, Message: "Internal Server Error", Code: http.StatusInternalServerError}
}

// Error is a middleware that converts handler errors into user-friendly error pages.
func Error(log logger.Logger, view Renderer) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			render := func(appErr *AppError) {
				appErr.log(log, r)
				data := map[string]interface{}{
					"StatusCode": appErr.Code,
					"StatusText": appErr.Message,
					"UserInfo":   GetUserInfo(r.Context()),
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(appErr.Code)
				if err := view.Render(w, r, "error.html", data); err != nil {
					log.Error(err, "Failed to render error page")
				}
			}
			defer func() {
				if rec := recover(); rec != nil {
					log.Error(fmt.Errorf("%v", rec), "Panic recovered")
					render(recovered(rec))
				}
			}()

			if appErr := next(w, r); appErr != nil {
				render(appErr)
			}
		})
	}
}

// ErrorBody is the JSON shape of API errors.
type ErrorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// JSONError is the API counterpart of Error: failures become JSON bodies.
func JSONError(log logger.Logger) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			write := func(appErr *AppError) {
				appErr.log(log, r)
				if err := WriteJSON(w, appErr.Code, ErrorBody{Error: appErr.Message, Code: appErr.Code}); err != nil {
					log.Error(err, "Failed to write error response")
				}
			}
			defer func() {
				if rec := recover(); rec != nil {
					log.Error(fmt.Errorf("%v", rec), "Panic recovered")
					write(recovered(rec))
				}
			}()

			if appErr := next(w, r); appErr != nil {
				write(appErr)
			}
		})
	}
}

// WriteJSON encodes v with sonic and writes it with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	body, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}
