package repo

import (
	"testing"

	"branchdb/pkg/hash"
	"branchdb/pkg/mergeplan"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// TestInitCommitShowTable covers spec.md §8 scenarios S1 and S2 end to end
// through the Repo facade.
func TestInitCommitShowTable(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	h, err := r.Commit("init", nil)
	require.NoError(t, err)
	require.False(t, h.IsZero())

	head, err := r.Head()
	require.NoError(t, err)
	require.Equal(t, h, head)

	entries, err := r.Log(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = r.RunSQL("CREATE TABLE t")
	require.NoError(t, err)
	_, err = r.RunSQL("INSERT INTO t VALUES ('1','alice')")
	require.NoError(t, err)

	result, err := r.ShowTable("t", hash.Zero)
	require.NoError(t, err)
	require.False(t, result.Raw)
	require.Len(t, result.Rows, 2)
	require.Contains(t, result.Rows, "!schema")
	require.Contains(t, string(result.Rows["1"].Register), "alice")
}

func TestBranchCreateCheckoutMerge(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	root, err := r.Commit("root", nil)
	require.NoError(t, err)
	require.NoError(t, r.CreateBranch("feature"))

	current, ok, err := r.CurrentBranch()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "feature", current)

	_, err = r.Checkout(root.String())
	require.NoError(t, err)

	_, err = r.Checkout("feature")
	require.NoError(t, err)

	_, err = r.Merge("feature")
	require.ErrorIs(t, err, mergeplan.ErrUpToDate)

	branches, err := r.ListBranches()
	require.NoError(t, err)
	require.Equal(t, []string{"feature"}, branches)
}
