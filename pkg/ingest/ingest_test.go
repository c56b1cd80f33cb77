package ingest

import (
	"strings"
	"testing"

	"branchdb/pkg/codec"
	"branchdb/pkg/commitstore"
	"branchdb/pkg/kv"
	"branchdb/pkg/model"
	"branchdb/pkg/view"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCreateTableProducesSchemaInsert(t *testing.T) {
	changes, err := ExecuteSQL("CREATE TABLE t")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, model.ChangeInsert, changes[0].Kind)
	require.Equal(t, "t", changes[0].Table)
	require.Equal(t, "!schema", changes[0].ID)
}

// TestInsertAndQuery covers the shape of spec.md §8 scenario S2.
func TestInsertAndQuery(t *testing.T) {
	changes, err := ExecuteSQL("INSERT INTO t VALUES ('1','alice')")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "1", changes[0].ID)

	v, err := codec.DecodeCrdtValue(changes[0].Value)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(v.Register), "alice"))
}

func TestUpdateExtractsWhereID(t *testing.T) {
	changes, err := ExecuteSQL("UPDATE t SET name = 'bob' WHERE id = '1'")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, model.ChangeUpdate, changes[0].Kind)
	require.Equal(t, "1", changes[0].ID)
}

func TestAlterTableAddColumn(t *testing.T) {
	changes, err := ExecuteSQL("ALTER TABLE t ADD COLUMN nickname")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "!schema", changes[0].ID)
}

func TestUnsupportedStatement(t *testing.T) {
	_, err := ExecuteSQL("DROP TABLE t")
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestImportCSVSynthesizesIDForBlankColumn(t *testing.T) {
	csvData := "id,name\n,alice\n,bob\n"
	changes, err := ImportCSV(strings.NewReader(csvData), "people", zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, changes, 2)
	require.NotEqual(t, changes[0].ID, changes[1].ID)
	require.NotEmpty(t, changes[0].ID)
}

func TestImportCSVUsesFirstColumnAsID(t *testing.T) {
	csvData := "id,name\n1,alice\n2,bob\n"
	changes, err := ImportCSV(strings.NewReader(csvData), "people", zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, changes, 2)
	require.Equal(t, "1", changes[0].ID)
	require.Equal(t, "2", changes[1].ID)
}

func TestParseQueryGrammar(t *testing.T) {
	hex64 := strings.Repeat("ab", 32)
	q, err := ParseQuery("SELECT * FROM t WITH " + hex64)
	require.NoError(t, err)
	require.Equal(t, "t", q.Table)
	require.Equal(t, hex64, q.Commit.String())

	_, err = ParseQuery("SELECT name FROM t WITH " + hex64)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestRunQueryMaterializes(t *testing.T) {
	store := kv.NewMemStore()
	commits := commitstore.New(store)
	v := view.New(commits)

	changes, err := ExecuteSQL("INSERT INTO t VALUES ('1','alice')")
	require.NoError(t, err)
	h, err := commits.CreateCommit("seed", changes)
	require.NoError(t, err)

	q := ParsedQuery{Table: "t", Commit: h}
	rows, err := RunQuery(v, q)
	require.NoError(t, err)
	require.Contains(t, rows, "1")
}
