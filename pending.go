package localstore

import (
	"context"
	"fmt"

	"github.com/ProtonMail/localstore/internal/db"
	"github.com/ProtonMail/localstore/internal/db/utils"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// PendingCommand is a change made locally that still has to be replayed against the server.
type PendingCommand struct {
	ID      int64
	Command string
	Payload map[string]any
}

// PendingCommandSerializer encodes the payloads of pending commands.
type PendingCommandSerializer interface {
	Serialize(payload map[string]any) ([]byte, error)
	Deserialize(data []byte) (map[string]any, error)
}

// StructSerializer encodes payloads as protobuf Struct messages. Values must be representable in JSON.
type StructSerializer struct{}

func (StructSerializer) Serialize(payload map[string]any) ([]byte, error) {
	s, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, err
	}

	return proto.Marshal(s)
}

func (StructSerializer) Deserialize(data []byte) (map[string]any, error) {
	var s structpb.Struct

	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	return s.AsMap(), nil
}

type pendingCommandRow struct {
	ID      int64  `db:"id"`
	Command string `db:"command"`
	Data    []byte `db:"data"`
}

// AddPendingCommand queues a command. Its ID is set on success.
func (s *Store) AddPendingCommand(ctx context.Context, cmd *PendingCommand) error {
	data, err := s.serializer.Serialize(cmd.Payload)
	if err != nil {
		return fmt.Errorf("failed to serialize pending command %v: %w", cmd.Command, err)
	}

	id, err := db.ExecuteResult(ctx, s.db, true, func(ctx context.Context, conn *db.Conn) (int64, error) {
		return utils.ExecInsert(ctx, conn, "INSERT INTO `pending_commands` (`command`, `data`) VALUES (?, ?)", cmd.Command, data)
	})
	if err != nil {
		return storageError("add pending command", err)
	}

	cmd.ID = id

	return nil
}

// GetPendingCommands returns the queued commands in the order they were added.
func (s *Store) GetPendingCommands(ctx context.Context) ([]*PendingCommand, error) {
	rows, err := db.ExecuteResult(ctx, s.db, false, func(ctx context.Context, conn *db.Conn) ([]pendingCommandRow, error) {
		return utils.Select[pendingCommandRow](ctx, conn, "SELECT `id`, `command`, `data` FROM `pending_commands` ORDER BY `id` ASC")
	})
	if err != nil {
		return nil, storageError("get pending commands", err)
	}

	commands := make([]*PendingCommand, 0, len(rows))

	for _, row := range rows {
		payload, err := s.serializer.Deserialize(row.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize pending command %v: %w", row.ID, err)
		}

		commands = append(commands, &PendingCommand{ID: row.ID, Command: row.Command, Payload: payload})
	}

	return commands, nil
}

// RemovePendingCommand removes a single command from the queue.
func (s *Store) RemovePendingCommand(ctx context.Context, id int64) error {
	return storageError("remove pending command", s.db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		_, err := utils.ExecQuery(ctx, conn, "DELETE FROM `pending_commands` WHERE `id` = ?", id)
		return err
	}))
}

// RemovePendingCommands empties the queue.
func (s *Store) RemovePendingCommands(ctx context.Context) error {
	return storageError("remove pending commands", s.db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		_, err := utils.ExecQuery(ctx, conn, "DELETE FROM `pending_commands`")
		return err
	}))
}
