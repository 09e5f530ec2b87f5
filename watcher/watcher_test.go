package watcher

import (
	"testing"

	"github.com/ProtonMail/localstore/async"
	"github.com/ProtonMail/localstore/events"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcher(t *testing.T) {
	watcher := New[events.Event](
		async.NoopPanicHandler{},
		events.MessageListChanged{},
		events.FolderListChanged{},
	)

	// The watcher is watching the correct types.
	require.True(t, watcher.IsWatching(events.NewMessageListChanged("a")))
	require.True(t, watcher.IsWatching(events.NewFolderListChanged("a")))

	// The watcher is not watching the incorrect types.
	require.False(t, watcher.IsWatching(events.NewStoreDeleted("a")))

	// Get a channel to read from the watcher.
	resCh := watcher.GetChannel()

	// Send some events to the watcher.
	require.True(t, watcher.Send(events.NewMessageListChanged("a")))
	require.True(t, watcher.Send(events.NewFolderListChanged("b")))

	// Check we can read the events off the channel.
	require.Equal(t, events.NewMessageListChanged("a"), <-resCh)

	folders := <-resCh
	require.Equal(t, "b", folders.Account())

	// Close the watcher.
	watcher.Close()

	// Sending more events after the watcher is closed should return false.
	require.False(t, watcher.Send(events.NewMessageListChanged("a")))
}

func TestWatcher_WatchesEverythingWithoutTypes(t *testing.T) {
	watcher := New[events.Event](async.NoopPanicHandler{})
	defer watcher.Close()

	require.True(t, watcher.IsWatching(events.NewStoreDeleted("a")))
	require.True(t, watcher.IsWatching(events.NewMessageListChanged("a")))
}
