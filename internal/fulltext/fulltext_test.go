package fulltext

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreCurrent())
}

func newTestIndex(t *testing.T) *Index {
	idx, err := Open(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, idx.Close()) })

	return idx
}

func TestTokenize(t *testing.T) {
	require.Equal(t,
		[]string{"hello", "wörld", "42", "café"},
		Tokenize("Hello, WÖRLD! a 42 hello Café x"),
	)

	require.Empty(t, Tokenize(" - ! ? "))
}

func TestIndex_SearchRequiresEveryWord(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Index(1, "The quarterly report is attached"))
	require.NoError(t, idx.Index(2, "Lunch on friday? The usual place"))
	require.NoError(t, idx.Index(3, "Report: lunch budget for friday"))

	ids, err := idx.Search("report")
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3}, ids)

	ids, err = idx.Search("FRIDAY lunch")
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3}, ids)

	ids, err = idx.Search("friday quarterly")
	require.NoError(t, err)
	require.Empty(t, ids)

	ids, err = idx.Search("?")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestIndex_ReindexReplacesWords(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Index(1, "first draft"))
	require.NoError(t, idx.Index(1, "final version"))

	ids, err := idx.Search("draft")
	require.NoError(t, err)
	require.Empty(t, ids)

	ids, err = idx.Search("final")
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids)
}

func TestIndex_Remove(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Index(1, "invoice"))
	require.NoError(t, idx.Index(2, "invoice"))

	require.NoError(t, idx.Remove(1, 99))

	ids, err := idx.Search("invoice")
	require.NoError(t, err)
	require.Equal(t, []int64{2}, ids)
}

func TestIndex_PrefixesDoNotMatch(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Index(1, "reporter"))

	ids, err := idx.Search("report")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestIndex_Drop(t *testing.T) {
	idx, err := OpenInMemory()
	require.NoError(t, err)

	defer func() { require.NoError(t, idx.Close()) }()

	require.NoError(t, idx.Index(1, "something"))
	require.NoError(t, idx.Drop())

	ids, err := idx.Search("something")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestIndex_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	{
		idx, err := Open(dir)
		require.NoError(t, err)
		require.NoError(t, idx.Index(7, "persistent words"))
		require.NoError(t, idx.Close())
	}

	idx, err := Open(dir)
	require.NoError(t, err)

	defer func() { require.NoError(t, idx.Close()) }()

	ids, err := idx.Search("words")
	require.NoError(t, err)
	require.Equal(t, []int64{7}, ids)
}
