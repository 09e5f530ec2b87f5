package localstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThreads_RepliesJoinThread(t *testing.T) {
	s := newTestStore(t)

	f := newTestFolder(t, s, "INBOX")

	a := storeTest(t, f, "1", testMessage{messageID: "a@example.com", subject: "Plans"})
	b := storeTest(t, f, "2", testMessage{messageID: "b@example.com", subject: "Re: Plans", inReplyTo: "a@example.com", references: []string{"a@example.com"}})
	c := storeTest(t, f, "3", testMessage{messageID: "c@example.com", subject: "Re: Plans", references: []string{"a@example.com", "b@example.com"}})

	require.Equal(t, a.ThreadID(), a.RootID())
	require.Equal(t, a.ThreadID(), b.RootID())
	require.Equal(t, a.ThreadID(), c.RootID())

	require.EqualValues(t, a.ThreadID(), queryInt(t, s, "SELECT `parent` FROM `threads` WHERE `id` = ?", b.ThreadID()))
	require.EqualValues(t, b.ThreadID(), queryInt(t, s, "SELECT `parent` FROM `threads` WHERE `id` = ?", c.ThreadID()))
}

func TestThreads_PlaceholdersAreFilledIn(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f := newTestFolder(t, s, "INBOX")

	c := storeTest(t, f, "3", testMessage{messageID: "c@example.com", subject: "Re: Plans", references: []string{"a@example.com", "b@example.com"}})

	// a and b are placeholders.
	require.Equal(t, 3, queryInt(t, s, "SELECT COUNT(*) FROM `messages`"))
	require.Equal(t, 2, queryInt(t, s, "SELECT COUNT(*) FROM `messages` WHERE `empty` = 1"))

	count, err := f.GetMessageCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	a := storeTest(t, f, "1", testMessage{messageID: "a@example.com", subject: "Plans"})
	require.Equal(t, c.RootID(), a.ThreadID())
	require.Equal(t, a.ThreadID(), a.RootID())

	// The placeholder row itself was reused.
	require.Equal(t, 3, queryInt(t, s, "SELECT COUNT(*) FROM `messages`"))
	require.Equal(t, 1, queryInt(t, s, "SELECT COUNT(*) FROM `messages` WHERE `empty` = 1"))

	messages, err := f.GetMessages(ctx, false)
	require.NoError(t, err)
	require.Len(t, messages, 2)
}

func TestThreads_ReferencesMergeThreads(t *testing.T) {
	s := newTestStore(t)

	f := newTestFolder(t, s, "INBOX")

	x := storeTest(t, f, "1", testMessage{messageID: "x@example.com", subject: "X"})
	y := storeTest(t, f, "2", testMessage{messageID: "y@example.com", subject: "Y"})
	require.NotEqual(t, x.RootID(), y.RootID())

	z := storeTest(t, f, "3", testMessage{messageID: "z@example.com", subject: "Z", references: []string{"x@example.com", "y@example.com"}})
	require.Equal(t, x.ThreadID(), z.RootID())

	y = getMessage(t, f, "2")
	require.Equal(t, x.ThreadID(), y.RootID())
	require.EqualValues(t, x.ThreadID(), queryInt(t, s, "SELECT `parent` FROM `threads` WHERE `id` = ?", y.ThreadID()))
}

func TestThreads_PlaceholderJoinsThreadOfItsReferences(t *testing.T) {
	s := newTestStore(t)

	f := newTestFolder(t, s, "INBOX")

	// b arrives first and creates a placeholder root for a.
	b := storeTest(t, f, "2", testMessage{messageID: "b@example.com", subject: "Re", references: []string{"a@example.com"}})
	root := storeTest(t, f, "0", testMessage{messageID: "root@example.com", subject: "Root"})

	// a turns out to be a reply to root.
	a := storeTest(t, f, "1", testMessage{messageID: "a@example.com", subject: "A", references: []string{"root@example.com"}})

	require.Equal(t, b.RootID(), a.ThreadID())
	require.Equal(t, root.ThreadID(), a.RootID())
	require.Equal(t, root.ThreadID(), getMessage(t, f, "2").RootID())
}

func TestThreads_DestroyKeepsPlaceholderForChildren(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f := newTestFolder(t, s, "INBOX")

	a := storeTest(t, f, "1", testMessage{messageID: "a@example.com", subject: "Plans"})
	b := storeTest(t, f, "2", testMessage{messageID: "b@example.com", subject: "Re: Plans", references: []string{"a@example.com"}})

	require.NoError(t, a.Destroy(ctx))

	// a stays as placeholder because b hangs below it.
	require.Equal(t, 2, queryInt(t, s, "SELECT COUNT(*) FROM `messages`"))
	require.Equal(t, 1, queryInt(t, s, "SELECT `empty` FROM `messages` WHERE `id` = ?", a.ID()))
	require.Equal(t, 1, queryInt(t, s, "SELECT COUNT(*) FROM `message_parts`"))
	require.Equal(t, a.ThreadID(), getMessage(t, f, "2").RootID())

	_, err := f.GetMessage(ctx, "1")
	require.ErrorIs(t, err, ErrMessageNotFound)

	// Storing a again fills the placeholder.
	again := storeTest(t, f, "1", testMessage{messageID: "a@example.com", subject: "Plans"})
	require.Equal(t, a.ID(), again.ID())
	require.Equal(t, a.ThreadID(), again.ThreadID())

	require.NoError(t, b.Destroy(ctx))
	require.NoError(t, again.Destroy(ctx))

	require.Equal(t, 0, queryInt(t, s, "SELECT COUNT(*) FROM `messages`"))
	require.Equal(t, 0, queryInt(t, s, "SELECT COUNT(*) FROM `threads`"))
}

func TestThreads_DestroyRemovesEmptyAncestors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f := newTestFolder(t, s, "INBOX")

	c := storeTest(t, f, "3", testMessage{messageID: "c@example.com", subject: "Re", references: []string{"a@example.com", "b@example.com"}})
	require.Equal(t, 3, queryInt(t, s, "SELECT COUNT(*) FROM `threads`"))

	require.NoError(t, c.Destroy(ctx))

	require.Equal(t, 0, queryInt(t, s, "SELECT COUNT(*) FROM `messages`"))
	require.Equal(t, 0, queryInt(t, s, "SELECT COUNT(*) FROM `threads`"))
}
