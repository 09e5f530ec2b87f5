package localstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_PendingCommands(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := &PendingCommand{Command: "setflag", Payload: map[string]any{"folder": "INBOX", "uids": []any{"1", "2"}, "flag": "SEEN"}}
	second := &PendingCommand{Command: "expunge", Payload: map[string]any{"folder": "Trash", "count": 3}}

	require.NoError(t, s.AddPendingCommand(ctx, first))
	require.NoError(t, s.AddPendingCommand(ctx, second))
	require.NotZero(t, first.ID)
	require.Greater(t, second.ID, first.ID)

	commands, err := s.GetPendingCommands(ctx)
	require.NoError(t, err)
	require.Len(t, commands, 2)

	require.Equal(t, "setflag", commands[0].Command)
	require.Equal(t, []any{"1", "2"}, commands[0].Payload["uids"])
	require.Equal(t, "expunge", commands[1].Command)

	// Numbers come back as float64.
	require.Equal(t, float64(3), commands[1].Payload["count"])

	require.NoError(t, s.RemovePendingCommand(ctx, first.ID))

	commands, err = s.GetPendingCommands(ctx)
	require.NoError(t, err)
	require.Len(t, commands, 1)
	require.Equal(t, second.ID, commands[0].ID)

	require.NoError(t, s.RemovePendingCommands(ctx))

	commands, err = s.GetPendingCommands(ctx)
	require.NoError(t, err)
	require.Empty(t, commands)
}

func TestStore_PendingCommands_UnserializablePayload(t *testing.T) {
	s := newTestStore(t)

	err := s.AddPendingCommand(context.Background(), &PendingCommand{Command: "bad", Payload: map[string]any{"ch": make(chan int)}})
	require.Error(t, err)
	require.False(t, IsStorageError(err))
}
