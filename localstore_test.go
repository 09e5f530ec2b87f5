package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/ProtonMail/localstore/events"
	"github.com/ProtonMail/localstore/flags"
	"github.com/ProtonMail/localstore/search"
	"github.com/bradenaw/juniper/xslices"
	"github.com/stretchr/testify/require"
)

func TestStore_EndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	inbox := newTestFolder(t, s, "INBOX")

	msg := storeTest(t, inbox, "m1", testMessage{messageID: "m1@example.com", subject: "Hello"})
	require.False(t, msg.IsSet(flags.Seen))
	require.Equal(t, 0, queryInt(t, s, "SELECT `read` FROM `messages` WHERE `id` = ?", msg.ID()))

	require.NoError(t, s.SetFlag(ctx, []int64{msg.ID()}, flags.Seen, true))

	msg = getMessage(t, inbox, "m1")
	require.Equal(t, "Hello", msg.Subject())
	require.True(t, msg.IsSet(flags.Seen))
	require.Equal(t, 1, queryInt(t, s, "SELECT `read` FROM `messages` WHERE `id` = ?", msg.ID()))

	res, err := s.GetFolderIDsAndUIDs(ctx, []int64{msg.ID()}, false)
	require.NoError(t, err)
	require.Equal(t, map[int64][]string{inbox.ID(): {"m1"}}, res)
}

func TestStore_SetFlagBatches(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithFulltext(false))

	inbox := newTestFolder(t, s, "INBOX")

	newMessages := xslices.Map(uids(1234), func(uid string) NewMessage {
		return NewMessage{Tree: parse(t, testMessage{subject: "Message " + uid}.raw()), Info: MessageInfo{UID: uid}}
	})

	messages, err := inbox.AppendMessages(ctx, newMessages)
	require.NoError(t, err)
	require.Len(t, messages, 1234)

	// Every other message.
	var ids []int64

	for i, msg := range messages {
		if i%2 == 0 {
			ids = append(ids, msg.ID())
		}
	}

	ch := s.AddWatcher(events.MessageListChanged{})
	defer s.RemoveWatcher(ch)

	require.NoError(t, s.SetFlag(ctx, ids, flags.Flagged, true))
	require.Equal(t, 2, countEvents(ch))

	all := xslices.Map(messages, func(m *Message) int64 { return m.ID() })

	require.NoError(t, s.SetFlag(ctx, all, flags.Seen, true))
	require.Equal(t, 3, countEvents(ch))

	count, err := inbox.GetFlaggedMessageCount(ctx)
	require.NoError(t, err)
	require.Equal(t, len(ids), count)

	unread, err := inbox.GetUnreadMessageCount(ctx)
	require.NoError(t, err)
	require.Zero(t, unread)

	for i, msg := range messages {
		require.Equal(t, i%2 == 0, queryInt(t, s, "SELECT `flagged` FROM `messages` WHERE `id` = ?", msg.ID()) == 1)
	}
}

func TestStore_SetFlagRejectsFlagsWithoutColumn(t *testing.T) {
	s := newTestStore(t)

	for _, flag := range []flags.Flag{flags.Draft, flags.Recent, flags.XDownloadedFull} {
		require.ErrorIs(t, s.SetFlag(context.Background(), []int64{1}, flag, true), ErrUnsupportedFlag)
	}

	keyword, err := s.Registry().CreateKeyword("$label1")
	require.NoError(t, err)

	require.ErrorIs(t, s.SetFlagForThreads(context.Background(), []int64{1}, keyword, true), ErrUnsupportedFlag)
}

func TestStore_SetFlagForThreads(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	inbox := newTestFolder(t, s, "INBOX")

	parent := storeTest(t, inbox, "1", testMessage{messageID: "a@example.com", subject: "Plans"})
	reply := storeTest(t, inbox, "2", testMessage{messageID: "b@example.com", subject: "Re: Plans", inReplyTo: "a@example.com"})
	other := storeTest(t, inbox, "3", testMessage{messageID: "c@example.com", subject: "Other"})

	require.Equal(t, parent.ThreadID(), reply.RootID())

	require.NoError(t, s.SetFlagForThreads(ctx, []int64{parent.RootID()}, flags.Seen, true))

	require.True(t, getMessage(t, inbox, "1").IsSet(flags.Seen))
	require.True(t, getMessage(t, inbox, "2").IsSet(flags.Seen))
	require.False(t, getMessage(t, inbox, "3").IsSet(flags.Seen))

	res, err := s.GetFolderIDsAndUIDs(ctx, []int64{reply.ID()}, true)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"1", "2"}, res[inbox.ID()])

	res, err = s.GetFolderIDsAndUIDs(ctx, []int64{other.ID()}, true)
	require.NoError(t, err)
	require.Equal(t, map[int64][]string{inbox.ID(): {"3"}}, res)
}

func TestStore_SearchForMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	inbox := newTestFolder(t, s, "INBOX")
	archive := newTestFolder(t, s, "Archive")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	storeTest(t, inbox, "1", testMessage{subject: "Quarterly report", date: base, body: "The budget looks fine."})
	storeTest(t, inbox, "2", testMessage{subject: "Lunch", date: base.Add(time.Hour), body: "Pizza or sushi?"})
	storeTest(t, archive, "3", testMessage{subject: "Old report", date: base.Add(-time.Hour), body: "Budget for last year."})
	deleted := storeTest(t, inbox, "4", testMessage{subject: "Deleted report", date: base.Add(2 * time.Hour)})

	require.NoError(t, deleted.Delete(ctx))

	subjects := func(cond search.Node) []string {
		messages, err := s.SearchForMessages(ctx, cond)
		require.NoError(t, err)

		return xslices.Map(messages, func(m *Message) string { return m.Subject() })
	}

	require.Equal(t, []string{"Lunch", "Quarterly report", "Old report"}, subjects(nil))
	require.Equal(t, []string{"Quarterly report", "Old report"}, subjects(search.Cond(search.Subject, search.Contains, "report")))
	require.Equal(t, []string{"Quarterly report", "Old report"}, subjects(search.Cond(search.MessageContents, search.Contains, "budget")))
	require.Equal(t, []string{"Old report"}, subjects(search.And{
		search.Cond(search.MessageContents, search.Contains, "budget"),
		search.Cond(search.Folder, search.Equals, "Archive"),
	}))
	require.Empty(t, subjects(search.Cond(search.MessageContents, search.Contains, "nothing")))
}

func TestStore_GetMessageCounts(t *testing.T) {
	s := newTestStore(t)

	inbox := newTestFolder(t, s, "INBOX")
	sent := newTestFolder(t, s, "Sent")

	storeTest(t, inbox, "1", testMessage{subject: "One"})
	storeTest(t, inbox, "2", testMessage{subject: "Two"}, flags.Seen, flags.Flagged)
	storeTest(t, sent, "3", testMessage{subject: "Three"}, flags.Seen)

	counts, err := s.GetMessageCounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[int64]MessageCounts{
		inbox.ID(): {Total: 2, Unread: 1, Flagged: 1},
		sent.ID():  {Total: 1, Unread: 0, Flagged: 0},
	}, counts)
}

func TestStore_ReopenKeepsMessages(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	{
		s, err := New(ctx, dir, "account")
		require.NoError(t, err)

		f, err := s.CreateFolder(ctx, FolderSpec{Name: "INBOX"})
		require.NoError(t, err)

		storeTest(t, f, "1", testMessage{subject: "Persistent", body: "Searchable words"})

		require.NoError(t, s.Close())
	}

	s, err := New(ctx, dir, "account")
	require.NoError(t, err)

	defer func() { require.NoError(t, s.Close()) }()

	messages, err := s.SearchForMessages(ctx, search.Cond(search.MessageContents, search.Contains, "searchable"))
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "Persistent", messages[0].Subject())
	require.Equal(t, "INBOX", messages[0].Folder().Name())
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(ctx, dir, "account", WithMaxInlineBodySize(4))
	require.NoError(t, err)

	f, err := s.CreateFolder(ctx, FolderSpec{Name: "INBOX"})
	require.NoError(t, err)

	storeTest(t, f, "1", testMessage{subject: "Large", body: "This body goes to a file."})

	ids, err := s.attachments.List()
	require.NoError(t, err)
	require.NotEmpty(t, ids)

	ch := s.AddWatcher(events.StoreDeleted{})

	s.Delete()

	event, ok := <-ch
	require.True(t, ok)
	require.Equal(t, "account", event.Account())

	require.NoFileExists(t, s.db.Path())
	require.NoDirExists(t, fulltextDir(s.db))

	require.NoError(t, s.Close())
}

func TestStore_New_RequiresAccount(t *testing.T) {
	_, err := New(context.Background(), t.TempDir(), "")
	require.Error(t, err)
}
