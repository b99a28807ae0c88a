package publish

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// Sentinel errors for storage failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrAccessDenied indicates an authorization failure (valid creds, no permission).
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound indicates the bucket does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrThrottled indicates rate limiting (SlowDown, 503).
	ErrThrottled = errors.New("rate limited")

	// ErrAuth indicates an authentication failure (no or expired credentials).
	ErrAuth = errors.New("authentication failed")

	// ErrNetwork indicates a network-level failure (connection refused, DNS).
	ErrNetwork = errors.New("network error")

	// ErrUnclassified covers storage failures matching no other class.
	ErrUnclassified = errors.New("storage error")
)

// StorageError wraps an underlying S3 error with its classification.
type StorageError struct {
	// Kind is the sentinel error for classification.
	Kind error
	// Op is the operation that failed ("put" or "presign").
	Op string
	// Key is the object key involved.
	Key string
	// Err is the underlying error.
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Key, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// wrapStorageError classifies and wraps an S3 error. Returns nil for nil.
func wrapStorageError(err error, op, key string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classifyError(err), Op: op, Key: key, Err: err}
}

// apiErrorClasses maps S3 and STS error codes onto classes.
var apiErrorClasses = map[string]error{
	"AccessDenied":          ErrAccessDenied,
	"AllAccessDisabled":     ErrAccessDenied,
	"AccountProblem":        ErrAccessDenied,
	"NoSuchBucket":          ErrNotFound,
	"SlowDown":              ErrThrottled,
	"RequestTimeout":        ErrTimeout,
	"InvalidAccessKeyId":    ErrAuth,
	"SignatureDoesNotMatch": ErrAuth,
	"ExpiredToken":          ErrAuth,
	"InvalidToken":          ErrAuth,
}

// classifyError determines the sentinel class of an S3 error.
// Service error codes win over message patterns.
func classifyError(err error) error {
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if kind, ok := apiErrorClasses[apiErr.ErrorCode()]; ok {
			return kind
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "accessdenied", "forbidden", "403"):
		return ErrAccessDenied
	case containsAny(msg, "nosuchbucket", "404"):
		return ErrNotFound
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return ErrTimeout
	case containsAny(msg, "slowdown", "throttl", "rate exceeded", "503"):
		return ErrThrottled
	case containsAny(msg, "no valid credential", "credentials", "expiredtoken", "401"):
		return ErrAuth
	case containsAny(msg, "connection refused", "no such host", "network unreachable", "dial tcp"):
		return ErrNetwork
	default:
		return ErrUnclassified
	}
}

// containsAny reports whether s contains any of substrs. s must already
// be lowercase; substrs are matched as given.
func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ClassName returns a stable short name for a storage error's class,
// for log fields. Returns "" for errors that are not StorageErrors.
func ClassName(err error) string {
	var se *StorageError
	if !errors.As(err, &se) {
		return ""
	}
	switch se.Kind {
	case ErrAccessDenied:
		return "access_denied"
	case ErrNotFound:
		return "not_found"
	case ErrTimeout:
		return "timeout"
	case ErrThrottled:
		return "throttled"
	case ErrAuth:
		return "auth"
	case ErrNetwork:
		return "network"
	default:
		return "unclassified"
	}
}
