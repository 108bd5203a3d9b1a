package storage

import "fmt"

const (
	CodeEndpointUnreachable = "E_ENDPOINT_UNREACHABLE"
	CodeAuthInvalid         = "E_AUTH_INVALID"
	CodeBucketNotFound      = "E_BUCKET_NOT_FOUND"
	CodeObjectNotFound      = "E_OBJECT_NOT_FOUND"
	CodePermissionDenied    = "E_PERMISSION_DENIED"
	CodeTimeout             = "E_TIMEOUT"
	CodeReadFailed          = "E_READ_FAILED"
	CodeWriteFailed         = "E_WRITE_FAILED"
	CodeConfigInvalid       = "E_CONFIG_INVALID"
)

// Error wraps object store failures with a code and a retryability hint.
// Nothing in the service retries; the hint is reported to callers.
type Error struct {
	Code      string
	Retryable bool
	Err       error
}

func wrapError(code string, retryable bool, err error) *Error {
	return &Error{Code: code, Retryable: retryable, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }
