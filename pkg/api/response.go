package api

import (
	"encoding/json"
	"net/http"

	"github.com/0xmhha/show-indexer/pkg/api/middleware"
	"go.uber.org/zap"
)

// Code is the application status code carried in every response body
type Code int

const (
	CodeOK           Code = 0
	CodeValidation   Code = 1000
	CodeInvalidID    Code = 1001
	CodeInvalidJSON  Code = 1002
	CodeInvalidQuery Code = 1003
	CodeRateLimited  Code = 1004
	CodeNotFound     Code = 2000
	CodeInternal     Code = 9000
	CodeDatabase     Code = 9001
	CodeDecode       Code = 9002
)

// HTTPStatus maps a code to its HTTP status
func (c Code) HTTPStatus() int {
	switch c {
	case CodeOK:
		return http.StatusOK
	case CodeValidation, CodeInvalidID, CodeInvalidJSON, CodeInvalidQuery:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the default message for a code
func (c Code) Message() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeValidation:
		return "validation error"
	case CodeInvalidID:
		return "invalid show id"
	case CodeInvalidJSON:
		return "invalid json body"
	case CodeInvalidQuery:
		return "invalid query params"
	case CodeRateLimited:
		return "too many requests"
	case CodeNotFound:
		return "show not found"
	case CodeDatabase:
		return "database error"
	case CodeDecode:
		return "decode error"
	default:
		return "internal error"
	}
}

// Response is the JSON envelope of every show API response
type Response struct {
	Code    Code        `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse is the data of GET /shows
type ListResponse struct {
	Items  interface{} `json:"items"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Code: CodeOK, Message: CodeOK.Message(), Data: data})
}

// writeError writes an error envelope. An empty message uses the code's default.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, code Code, message string, err error) {
	if message == "" {
		message = code.Message()
	}

	fields := []zap.Field{
		zap.Int("code", int(code)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if code.HTTPStatus() >= http.StatusInternalServerError {
		s.logger.Error(message, fields...)
	} else {
		s.logger.Debug(message, fields...)
	}

	writeJSON(w, code.HTTPStatus(), Response{Code: code, Message: message})
}

// middlewareError adapts writeError for middleware that only knows a status
func (s *Server) middlewareError(w http.ResponseWriter, r *http.Request, status int) {
	code := CodeInternal
	if status == http.StatusTooManyRequests {
		code = CodeRateLimited
	}
	s.writeError(w, r, code, "", nil)
}
