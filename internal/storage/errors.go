package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy of storage failure modes.
type ErrorKind string

const (
	KindUnavailable   ErrorKind = "unavailable"
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	KindCorruptedData ErrorKind = "corrupted_data"
	KindParseError    ErrorKind = "parse_error"
	KindWriteError    ErrorKind = "write_error"
	KindUnknown       ErrorKind = "unknown"
)

// StorageError carries a machine message, a human-readable message, the
// offending key, and whether the failure is recoverable. Expected failure
// modes are returned as values alongside usable (possibly default) data,
// never raised as bare decode errors.
type StorageError struct {
	Kind        ErrorKind
	Key         string
	Message     string
	UserMessage string
	Recoverable bool
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Key, e.Message)
}

// NewError builds a StorageError with the canonical user message and
// recoverability for its kind.
func NewError(kind ErrorKind, key, message string) *StorageError {
	return &StorageError{
		Kind:        kind,
		Key:         key,
		Message:     message,
		UserMessage: userMessage(kind),
		Recoverable: recoverable(kind),
	}
}

// Classify maps a host-reported failure into the taxonomy.
func Classify(key string, err error) *StorageError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrQuotaExceeded):
		return NewError(KindQuotaExceeded, key, err.Error())
	case errors.Is(err, ErrUnavailable):
		return NewError(KindUnavailable, key, err.Error())
	case isDecodeError(err):
		return NewError(KindParseError, key, err.Error())
	default:
		return NewError(KindUnknown, key, err.Error())
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func userMessage(kind ErrorKind) string {
	switch kind {
	case KindUnavailable:
		return "Persistent storage is not available. Progress will be kept in memory only; enable storage to keep it across restarts."
	case KindQuotaExceeded:
		return "Storage is full. Back up your data and remove old history to free space."
	case KindCorruptedData:
		return "Some saved data could not be read. A best-effort recovery was attempted."
	case KindParseError:
		return "Saved data was in an unexpected format and a default was used instead."
	case KindWriteError:
		return "Saving failed. Recent changes are kept in memory and will be retried."
	default:
		return "An unexpected storage problem occurred."
	}
}

func recoverable(kind ErrorKind) bool {
	switch kind {
	case KindQuotaExceeded, KindWriteError, KindCorruptedData:
		return true
	default:
		return false
	}
}
