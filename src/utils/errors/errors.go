// Caller-annotated error tools
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
)

// WrapE wraps the original error with a static error message.
// Both errors stay in the chain, so errors.Is matches either of them.
func WrapE(staticErr, originalErr error) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %w", file, line, staticErr, originalErr)
}

func Wrap(err error, msg string) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %s", file, line, err, msg)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %s", file, line, err, fmt.Sprintf(format, args...))
}

// Wrapef wraps the original error with a static error and a formatted message.
func Wrapef(staticErr, originalErr error, format string, args ...any) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %s: %w", file, line, staticErr, fmt.Sprintf(format, args...), originalErr)
}

// New creates a new error with the given text.
func New(text string) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %s", file, line, text)
}

// Newf creates a new error with a formatted message.
func Newf(format string, args ...any) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %s", file, line, fmt.Sprintf(format, args...))
}

// Sentinel creates an unannotated error meant to be compared with Is.
func Sentinel(text string) error {
	return stderrors.New(text)
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
