package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures crossing a collaborator boundary.
type ErrorKind string

const (
	KindExtractionFailed      ErrorKind = "extraction_failed"
	KindStructuringFailed     ErrorKind = "structuring_failed"
	KindUnsupportedPlatform   ErrorKind = "unsupported_platform"
	KindGenerationFailed      ErrorKind = "generation_failed"
	KindImageGenerationFailed ErrorKind = "image_generation_failed"
	KindStoreFailed           ErrorKind = "store_failed"
	KindNotFound              ErrorKind = "not_found"
	KindPublishFailed         ErrorKind = "publish_failed"
	KindAlreadyPosted         ErrorKind = "already_posted"
	KindImageRequired         ErrorKind = "image_required"
	KindPublishInProgress     ErrorKind = "publish_in_progress"
)

// Sentinels for errors.Is checks. Any *Error with the same kind matches.
var (
	ErrExtractionFailed      = &Error{Kind: KindExtractionFailed}
	ErrStructuringFailed     = &Error{Kind: KindStructuringFailed}
	ErrUnsupportedPlatform   = &Error{Kind: KindUnsupportedPlatform}
	ErrGenerationFailed      = &Error{Kind: KindGenerationFailed}
	ErrImageGenerationFailed = &Error{Kind: KindImageGenerationFailed}
	ErrStoreFailed           = &Error{Kind: KindStoreFailed}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrPublishFailed         = &Error{Kind: KindPublishFailed}
	ErrAlreadyPosted         = &Error{Kind: KindAlreadyPosted}
	ErrImageRequired         = &Error{Kind: KindImageRequired}
	ErrPublishInProgress     = &Error{Kind: KindPublishInProgress}
)

// Error is a tagged failure. Op names the failing operation, Platform is set
// for per-platform failures.
type Error struct {
	Kind     ErrorKind
	Op       string
	Platform string
	Err      error
}

// E builds a tagged error wrapping cause.
func E(kind ErrorKind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Errorf builds a tagged error from a format string.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// ForPlatform returns a copy scoped to platform.
func (e *Error) ForPlatform(platform string) *Error {
	cp := *e
	cp.Platform = platform
	return &cp
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Platform != "" {
		msg += " [" + e.Platform + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the outermost tagged error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
