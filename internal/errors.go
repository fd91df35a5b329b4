package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInvalidState ErrorType = "INVALID_STATE"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

// statusByType maps every error type to its HTTP status. Invalid state and
// conflict share 409 but stay distinct types so clients can tell a stale
// click from a duplicate username.
var statusByType = map[ErrorType]int{
	ErrorTypeValidation:   http.StatusBadRequest,
	ErrorTypeNotFound:     http.StatusNotFound,
	ErrorTypeUnauthorized: http.StatusUnauthorized,
	ErrorTypeForbidden:    http.StatusForbidden,
	ErrorTypeConflict:     http.StatusConflict,
	ErrorTypeInvalidState: http.StatusConflict,
	ErrorTypeInternal:     http.StatusInternalServerError,
}

// HTTPStatus returns 500 for unknown types.
func (t ErrorType) HTTPStatus() int {
	if s, ok := statusByType[t]; ok {
		return s
	}
	return http.StatusInternalServerError
}

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidRole      ErrorCode = "INVALID_ROLE"
	ErrCodeInvalidPaging    ErrorCode = "INVALID_PAGING"
	ErrCodeInvalidVersion   ErrorCode = "INVALID_VERSION"

	ErrCodeGatePassNotFound   ErrorCode = "GATE_PASS_NOT_FOUND"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrCodeVersionConflict    ErrorCode = "VERSION_CONFLICT"
	ErrCodeNotAssigned        ErrorCode = "NOT_ASSIGNED_APPROVER"
	ErrCodeRoleNotAllowed     ErrorCode = "ROLE_NOT_ALLOWED"
	ErrCodeNotOwner           ErrorCode = "NOT_REQUEST_OWNER"
	ErrCodeApproverNotFound   ErrorCode = "APPROVER_NOT_FOUND"
	ErrCodeInvalidApprover    ErrorCode = "INVALID_APPROVER"
	ErrCodePassNotPrintable   ErrorCode = "PASS_NOT_PRINTABLE"
	ErrCodeNotParticipant     ErrorCode = "NOT_PARTICIPANT"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"

	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeUsernameTaken      ErrorCode = "USERNAME_TAKEN"
	ErrCodeEmailTaken         ErrorCode = "EMAIL_TAKEN"
	ErrCodeUserHasGatePasses  ErrorCode = "USER_HAS_GATE_PASSES"
	ErrCodeCannotDeleteSelf   ErrorCode = "CANNOT_DELETE_SELF"
	ErrCodeApproverHasPending ErrorCode = "APPROVER_HAS_PENDING_REQUESTS"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeWrongPassword      ErrorCode = "WRONG_PASSWORD"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if msgs := e.fieldMessages(); len(msgs) > 0 {
		return msgs[0]
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// GetDetailedMessage joins every field message, for logs.
func (e *AppError) GetDetailedMessage() string {
	if msgs := e.fieldMessages(); len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}
	return e.Message
}

func (e *AppError) fieldMessages() []string {
	details, ok := e.Details.(ValidationErrors)
	if !ok {
		return nil
	}
	msgs := make([]string, len(details.Errors))
	for i, fe := range details.Errors {
		msgs[i] = fe.Message
	}
	return msgs
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on error code so that sentinel errors can be compared with errors.Is
// even after Clone.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

// Clone returns a shallow copy, so package level sentinels can carry details
// without being mutated.
func (e *AppError) Clone() *AppError {
	c := *e
	return &c
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func newAppError(t ErrorType, code ErrorCode, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: t.HTTPStatus()}
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, code, message)
}

// NewValidationFieldError reports one bad field under the shared VALIDATION_FAILED
// code; the field specific code goes into the details.
func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, ErrCodeValidationFailed, "Validation failed").
		WithDetails(ValidationErrors{Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}}})
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeNotFound, code, message)
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeUnauthorized, code, message)
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeForbidden, code, message)
}

func NewInternalError(message string, cause error) *AppError {
	e := newAppError(ErrorTypeInternal, ErrCodeInternal, message)
	e.Cause = cause
	return e
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeConflict, code, message)
}

// NewInvalidStateError reports a transition that is not legal from the current status.
func NewInvalidStateError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeInvalidState, code, message)
}

var (
	ErrInvalidCredentials = NewUnauthorizedError("Invalid username or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)

	ErrUsernameTaken = NewConflictError("Username already taken.", ErrCodeUsernameTaken)
	ErrEmailTaken    = NewConflictError("Email already in use.", ErrCodeEmailTaken)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
