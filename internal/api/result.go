package api

import "fmt"

// Result is the envelope every barangay API response is wrapped in.
//   - code: 2000 on success
//   - type: "success" | "error" | "warning"
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

// Ok wraps result in a success envelope.
func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

// Fail builds an error envelope.
func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message}
}

// Error is returned for non-success envelopes and unexpected HTTP statuses.
type Error struct {
	Status  int // HTTP status
	Code    int // envelope code, 0 when the body was not an envelope
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("barangay api: status %d", e.Status)
	}
	return e.Message
}

// Is lets errors.Is match the status sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == 404
	case ErrConflict:
		return e.Status == 409
	}
	return false
}
