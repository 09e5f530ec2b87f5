package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestList_AddKeepsOrderAndDropsDuplicates(t *testing.T) {
	l := NewList(Seen, Flagged, Seen)
	require.Equal(t, []Flag{Seen, Flagged}, l.Slice())

	l = l.Add(Answered, Flagged)
	require.Equal(t, []Flag{Seen, Flagged, Answered}, l.Slice())
}

func TestList_IsNotModifiedInPlace(t *testing.T) {
	l := NewList(Seen)

	added := l.Add(Flagged)
	require.Equal(t, 1, l.Len())
	require.Equal(t, 2, added.Len())

	removed := added.Remove(Seen)
	require.Equal(t, 2, added.Len())
	require.Equal(t, []Flag{Flagged}, removed.Slice())

	sl := added.Slice()
	sl[0] = Draft
	require.True(t, added.Contains(Seen))
	require.False(t, added.Contains(Draft))
}

func TestList_Set(t *testing.T) {
	l := NewList(Seen)

	l = l.Set(Flagged, true)
	require.True(t, l.Contains(Flagged))

	l = l.Set(Seen, false)
	require.False(t, l.Contains(Seen))

	l = l.Set(Seen, false)
	require.Equal(t, []Flag{Flagged}, l.Slice())
}

func TestList_Equals(t *testing.T) {
	require.True(t, NewList().Equals(NewList()))
	require.False(t, NewList().Equals(NewList(Seen)))
	require.True(t, NewList(Seen, Flagged).Equals(NewList(Flagged, Seen)))
	require.False(t, NewList(Seen, Flagged).Equals(NewList(Seen, Draft)))
}

func TestList_KeywordIdentity(t *testing.T) {
	r := NewRegistry()

	k, err := r.ValueOf("work")
	require.NoError(t, err)

	l := NewList(k, Seen)
	require.True(t, l.ContainsAny(k))
	require.Equal(t, "work,SEEN", l.Serialize())
}
