package manager

import (
	"errors"
	"net/http"
)

// Kind classifies engine failures. Callers branch on kinds, not messages.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindBackendInit
	KindModelLoad
	KindContext
	KindModelNotLoaded
	KindPromptTooLong
	KindTokenize
	KindBatch
	KindDecode
	KindImageDecode
	// KindLockPoisoned is logged when a poisoned state is recovered; it is
	// never returned to callers.
	KindLockPoisoned
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBackendInit:
		return "backend_init"
	case KindModelLoad:
		return "model_load"
	case KindContext:
		return "context"
	case KindModelNotLoaded:
		return "model_not_loaded"
	case KindPromptTooLong:
		return "prompt_too_long"
	case KindTokenize:
		return "tokenize"
	case KindBatch:
		return "batch"
	case KindDecode:
		return "decode"
	case KindImageDecode:
		return "image_decode"
	case KindLockPoisoned:
		return "lock_poisoned"
	}
	return "internal"
}

// Error is the single error type returned by Manager operations.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Msg
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps the kind to an HTTP status for the API layer.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindModelNotLoaded:
		return http.StatusConflict
	case KindPromptTooLong:
		return http.StatusRequestEntityTooLarge
	case KindImageDecode:
		return http.StatusBadRequest
	case KindBackendInit:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func newError(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// ErrModelNotLoaded is returned by operations that need a resident model.
var ErrModelNotLoaded = &Error{Kind: KindModelNotLoaded, Msg: "model not loaded"}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func isKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IsNotFound reports whether err indicates a missing model file.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsModelNotLoaded reports whether err was caused by a missing resident model.
func IsModelNotLoaded(err error) bool { return isKind(err, KindModelNotLoaded) }

// IsPromptTooLong reports whether the prompt exceeded the context size.
func IsPromptTooLong(err error) bool { return isKind(err, KindPromptTooLong) }

// IsImageDecode reports whether an image payload was malformed.
func IsImageDecode(err error) bool { return isKind(err, KindImageDecode) }

// IsBackendInit reports whether the execution backend could not start (503).
func IsBackendInit(err error) bool { return isKind(err, KindBackendInit) }

func IsModelLoad(err error) bool { return isKind(err, KindModelLoad) }
func IsDecode(err error) bool    { return isKind(err, KindDecode) }
func IsTokenize(err error) bool  { return isKind(err, KindTokenize) }
