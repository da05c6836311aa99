package packer

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Kind classifies packer failures. The set is closed.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindAlreadyExists
	KindInvalidFormat
	KindReadError
	KindWriteError
	KindPathSecurityViolation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAlreadyExists:
		return "already exists"
	case KindInvalidFormat:
		return "invalid format"
	case KindReadError:
		return "read error"
	case KindWriteError:
		return "write error"
	case KindPathSecurityViolation:
		return "path security violation"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Code is the stable machine-readable name of the kind.
func (k Kind) Code() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindAlreadyExists:
		return "ALREADY_EXISTS"
	case KindInvalidFormat:
		return "INVALID_FORMAT"
	case KindReadError:
		return "READ_ERROR"
	case KindWriteError:
		return "WRITE_ERROR"
	case KindPathSecurityViolation:
		return "PATH_SECURITY_VIOLATION"
	default:
		return "UNKNOWN"
	}
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNotFound              error = &Error{Kind: KindNotFound}
	ErrAlreadyExists         error = &Error{Kind: KindAlreadyExists}
	ErrInvalidFormat         error = &Error{Kind: KindInvalidFormat}
	ErrReadError             error = &Error{Kind: KindReadError}
	ErrWriteError            error = &Error{Kind: KindWriteError}
	ErrPathSecurityViolation error = &Error{Kind: KindPathSecurityViolation}
)

// Error is returned by every packer operation.
type Error struct {
	Kind    Kind
	Op      string
	Path    string
	Msg     string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.Path != "" {
			b.WriteString(" ")
			b.WriteString(e.Path)
		}
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Path == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

func newError(kind Kind, op, path, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Msg: msg, Err: err}
}

// readError classifies a failed read, mapping missing files to KindNotFound.
func readError(op, path string, err error) *Error {
	if errors.Is(err, fs.ErrNotExist) {
		return newError(KindNotFound, op, path, "", err)
	}
	return newError(KindReadError, op, path, "", err)
}

// KindOf returns the kind of err, or 0 when err did not come from the packer.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Failure is the serialisable form of a failed operation.
type Failure struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Describe converts err into a Failure.
func Describe(err error) Failure {
	var e *Error
	if errors.As(err, &e) {
		return Failure{Code: e.Kind.Code(), Message: err.Error(), Details: e.Details}
	}
	return Failure{Code: Kind(0).Code(), Message: err.Error()}
}
