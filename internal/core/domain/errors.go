package domain

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindDirectoryNotFound    Kind = "directory_not_found"
	KindItemDecodeFailure    Kind = "item_decode_failure"
	KindWorkerStartupFailure Kind = "worker_startup_failure"
	KindConfig               Kind = "config"
	KindStorage              Kind = "storage"
	KindTransport            Kind = "transport"
	KindModel                Kind = "model"
	KindNotFound             Kind = "not_found"
)

var (
	ErrDirectoryNotFound    = errors.New("directory not found")
	ErrItemDecodeFailure    = errors.New("item decode failure")
	ErrWorkerStartupFailure = errors.New("worker startup failure")
	ErrNotFound             = errors.New("not found")
)

var kindSentinels = map[Kind]error{
	KindDirectoryNotFound:    ErrDirectoryNotFound,
	KindItemDecodeFailure:    ErrItemDecodeFailure,
	KindWorkerStartupFailure: ErrWorkerStartupFailure,
	KindNotFound:             ErrNotFound,
}

// Error is the typed error carried across the benchmark core.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match the kind sentinels, e.g. errors.Is(err, ErrDirectoryNotFound).
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Newf(kind Kind, op, format string, args ...any) *Error {
	return New(kind, op, fmt.Sprintf(format, args...))
}

func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	for err != nil {
		if !errors.As(err, &target) {
			return false
		}
		if target.Kind == kind {
			return true
		}
		err = target.Cause
	}
	return false
}
