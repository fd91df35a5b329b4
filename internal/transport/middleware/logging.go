package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/gatepass/pkg/logger"
	"github.com/go-chi/chi/middleware"
)

// maxLoggedBody caps how much of a request or response body ends up in the log.
const maxLoggedBody = 4 << 10

// sensitiveFields are field names that should be filtered from logs
var sensitiveFields = []string{
	"password",
	"password_hash",
	"passwordhash",
	"token",
	"access_token",
	"refresh_token",
	"authorization",
	"secret",
	"api_key",
	"session",
	"credential",
	"cookie",
}

// LoggingMiddleware logs every request and its response. The logger scoped by
// RequestID is used when present, falling back to base.
func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lg := base
			if scoped, ok := logger.FromContext(r.Context()); ok {
				lg = scoped
			}
			reqID := middleware.GetReqID(r.Context())

			logRequest(lg, r, reqID)

			ww := &responseWriter{
				ResponseWriter: w,
				body:           &bytes.Buffer{},
			}

			next.ServeHTTP(ww, r)

			logResponse(lg, r, ww, time.Since(start), reqID)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture response body
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.statusCode == 0 {
		rw.statusCode = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	if room := maxLoggedBody - rw.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		rw.body.Write(b[:room])
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// logRequest logs the incoming HTTP request with sensitive data filtered
func logRequest(lg *slog.Logger, r *http.Request, reqID string) {
	var bodyBytes []byte
	if r.Body != nil && r.Body != http.NoBody {
		bodyBytes, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}
	if len(bodyBytes) > maxLoggedBody {
		bodyBytes = bodyBytes[:maxLoggedBody]
	}

	lg.InfoContext(r.Context(), "incoming request",
		"request_id", reqID,
		"method", r.Method,
		"path", r.URL.Path,
		"query", r.URL.RawQuery,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"headers", filterSensitiveHeaders(r.Header),
		"body", filterSensitiveBody(bodyBytes),
	)
}

func logResponse(lg *slog.Logger, r *http.Request, rw *responseWriter, duration time.Duration, reqID string) {
	statusCode := rw.statusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	body := ""
	if isTextual(rw.Header().Get("Content-Type")) {
		body = filterSensitiveBody(rw.body.Bytes())
	}

	logLevel := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		logLevel = slog.LevelWarn
	} else if statusCode >= 500 {
		logLevel = slog.LevelError
	}

	lg.Log(r.Context(), logLevel, "response",
		"request_id", reqID,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
		"response_size", rw.size,
		"body", body,
	)
}

func isTextual(contentType string) bool {
	return contentType == "" ||
		strings.HasPrefix(contentType, "application/json") ||
		strings.HasPrefix(contentType, "text/")
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

// filterSensitiveHeaders removes or masks sensitive headers
func filterSensitiveHeaders(headers http.Header) map[string]string {
	filtered := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			filtered[name] = "[FILTERED]"
			continue
		}
		filtered[name] = strings.Join(values, ", ")
	}
	return filtered
}

// filterSensitiveBody removes or masks sensitive fields from JSON body
func filterSensitiveBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var jsonData interface{}
	if err := json.Unmarshal(body, &jsonData); err != nil {
		bodyStr := string(body)
		if isSensitive(bodyStr) {
			return "[FILTERED - Contains sensitive data]"
		}
		return bodyStr
	}

	filteredBytes, err := json.Marshal(filterSensitiveJSON(jsonData))
	if err != nil {
		return "[ERROR - Failed to marshal filtered JSON]"
	}
	return string(filteredBytes)
}

// filterSensitiveJSON recursively filters sensitive fields from JSON data
func filterSensitiveJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		filtered := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				filtered[key] = "[FILTERED]"
			} else {
				filtered[key] = filterSensitiveJSON(value)
			}
		}
		return filtered
	case []interface{}:
		filtered := make([]interface{}, len(v))
		for i, item := range v {
			filtered[i] = filterSensitiveJSON(item)
		}
		return filtered
	default:
		return v
	}
}
