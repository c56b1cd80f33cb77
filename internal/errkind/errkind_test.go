package errkind

import (
	"errors"
	"testing"

	"branchdb/pkg/branch"
	"branchdb/pkg/commitstore"
	"branchdb/pkg/crdt"
	"branchdb/pkg/kv"

	"github.com/stretchr/testify/require"
)

func TestClassifyKnownSentinels(t *testing.T) {
	require.Equal(t, NotFound, Classify(kv.ErrKeyNotFound))
	require.Equal(t, NotFound, Classify(commitstore.ErrCommitNotFound))
	require.Equal(t, InvalidInput, Classify(branch.ErrNoHead))
	require.Equal(t, TypeMismatch, Classify(crdt.ErrTypeMismatch))
}

func TestClassifyWrappedError(t *testing.T) {
	wrapped := errors.New("outer: " + kv.ErrKeyNotFound.Error())
	require.Equal(t, StorageError, Classify(wrapped))

	trueWrap := errKindWrap(kv.ErrKeyNotFound)
	require.Equal(t, NotFound, Classify(trueWrap))
}

func errKindWrap(err error) error {
	return &wrappedErr{err}
}

type wrappedErr struct{ inner error }

func (w *wrappedErr) Error() string { return "wrapped: " + w.inner.Error() }
func (w *wrappedErr) Unwrap() error { return w.inner }

func TestClassifyNilIsUnknown(t *testing.T) {
	require.Equal(t, Unknown, Classify(nil))
}
