// Package errkind classifies errors bubbling up from branchdb's core
// packages into the taxonomy spec.md §7 names (StorageError, InvalidInput,
// NotFound, SerializationError, TypeMismatch, CorruptData), so the CLI
// layer can report a consistent exit status and message shape without each
// core package needing to know about the others' sentinel errors.
package errkind

import (
	"errors"

	"branchdb/pkg/branch"
	"branchdb/pkg/codec"
	"branchdb/pkg/commitstore"
	"branchdb/pkg/crdt"
	"branchdb/pkg/hash"
	"branchdb/pkg/ingest"
	"branchdb/pkg/kv"
	"branchdb/pkg/mergeplan"
)

// Kind is one of the taxonomy's named categories.
type Kind int

const (
	Unknown Kind = iota
	StorageError
	InvalidInput
	NotFound
	SerializationError
	TypeMismatch
	CorruptData
)

func (k Kind) String() string {
	switch k {
	case StorageError:
		return "StorageError"
	case InvalidInput:
		return "InvalidInput"
	case NotFound:
		return "NotFound"
	case SerializationError:
		return "SerializationError"
	case TypeMismatch:
		return "TypeMismatch"
	case CorruptData:
		return "CorruptData"
	default:
		return "Unknown"
	}
}

// Classify inspects err against the sentinel errors exported by branchdb's
// core packages and returns the matching taxonomy Kind. An error matching
// none of them (a bbolt I/O failure, say) classifies as StorageError. Only
// nil and mergeplan.ErrUpToDate classify as Unknown, which the CLI reports
// without a taxonomy label.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}
	switch {
	case errors.Is(err, kv.ErrKeyNotFound),
		errors.Is(err, commitstore.ErrCommitNotFound),
		errors.Is(err, branch.ErrNotFound),
		errors.Is(err, hash.ErrInvalidLength):
		return NotFound
	case errors.Is(err, branch.ErrInvalidName),
		errors.Is(err, branch.ErrNoHead),
		errors.Is(err, commitstore.ErrEmptyMessage),
		errors.Is(err, ingest.ErrUnsupported):
		return InvalidInput
	case errors.Is(err, branch.ErrExists):
		return InvalidInput
	case errors.Is(err, codec.ErrCorrupt),
		errors.Is(err, commitstore.ErrCorruptHead):
		return CorruptData
	case errors.Is(err, crdt.ErrTypeMismatch):
		return TypeMismatch
	case errors.Is(err, mergeplan.ErrUpToDate):
		return Unknown
	default:
		// Everything else (bbolt I/O failures, etc.) is an unclassified
		// storage failure rather than something the caller can recover from.
		return StorageError
	}
}

// IsNotFound is a convenience predicate for CLI exit-code mapping.
func IsNotFound(err error) bool { return Classify(err) == NotFound }

// IsInvalidInput is a convenience predicate for CLI exit-code mapping.
func IsInvalidInput(err error) bool { return Classify(err) == InvalidInput }
