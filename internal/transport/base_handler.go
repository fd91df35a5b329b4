package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/core/user"
	"github.com/frahmantamala/gatepass/pkg/logger"
	"github.com/go-chi/chi"
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response in the same envelope as AppError
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)
	h.WriteAppError(w, &internal.AppError{
		Type:       errorTypeForStatus(status),
		Code:       internal.ErrorCode(strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))),
		Message:    message,
		StatusCode: status,
	})
}

func (h *BaseHandler) WriteAppError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	h.WriteJSON(w, status, body)
}

// HandleServiceError maps a service error to its HTTP response. Anything that is
// not an AppError is reported as an opaque internal error.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		h.Logger.Error("unhandled service error", "error", err)
		appErr = internal.NewInternalError("internal server error", err)
	}
	if appErr.StatusCode >= http.StatusInternalServerError {
		h.Logger.Error("service error", "code", appErr.Code, "error", appErr.Error())
	}
	h.WriteAppError(w, appErr)
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}

	return authHeader[7:]
}

// Actor returns the authenticated caller or writes 401.
func (h *BaseHandler) Actor(w http.ResponseWriter, r *http.Request) (user.Actor, bool) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok || actor.ID == 0 {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required", internal.ErrCodeInvalidToken))
		return user.Actor{}, false
	}
	return actor, true
}

// IDParam parses a positive int64 chi URL parameter or writes 400.
func (h *BaseHandler) IDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.WriteAppError(w, internal.NewValidationFieldError(name, "invalid "+name, internal.ErrCodeValidationFailed))
		return 0, false
	}
	return id, true
}

// PageParams reads limit and offset from the query string. Missing values are zero.
func (h *BaseHandler) PageParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	var limit, offset int
	for name, dst := range map[string]*int{"limit": &limit, "offset": &offset} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.WriteAppError(w, internal.NewValidationFieldError(name, name+" must be a number", internal.ErrCodeInvalidPaging))
			return 0, 0, false
		}
		*dst = v
	}
	return limit, offset, true
}

// DecodeJSON decodes the request body or writes 400. An empty body is allowed when optional is set.
func (h *BaseHandler) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return true
		}
		h.WriteAppError(w, internal.NewValidationError("request body is required", internal.ErrCodeValidationFailed))
		return false
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		h.Logger.Info("invalid request body", "error", err, "path", r.URL.Path)
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return false
	}
	return true
}

func errorTypeForStatus(status int) internal.ErrorType {
	switch {
	case status == http.StatusBadRequest:
		return internal.ErrorTypeValidation
	case status == http.StatusUnauthorized:
		return internal.ErrorTypeUnauthorized
	case status == http.StatusForbidden:
		return internal.ErrorTypeForbidden
	case status == http.StatusNotFound:
		return internal.ErrorTypeNotFound
	case status == http.StatusConflict:
		return internal.ErrorTypeConflict
	}
	return internal.ErrorTypeInternal
}
