package localstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ProtonMail/localstore/flags"
	"github.com/ProtonMail/localstore/internal/db"
	"github.com/ProtonMail/localstore/internal/db/utils"
	"github.com/ProtonMail/localstore/search"
	"github.com/bradenaw/juniper/xslices"
)

const searchTables = messageTables + " LEFT JOIN `folders` ON `folders`.`id` = `messages`.`folder_id`"

// SearchForMessages returns the messages matching the condition tree, newest first. Placeholders and deleted
// messages never match.
func (s *Store) SearchForMessages(ctx context.Context, cond search.Node) ([]*Message, error) {
	var builder search.Builder

	if s.fulltext != nil {
		builder.Matcher = s.fulltext
	}

	where, args, err := builder.Where(cond)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %v FROM %v WHERE (%v) AND `messages`.`empty` = 0 AND `messages`.`deleted` = 0 "+
		"ORDER BY `messages`.`date` DESC, `messages`.`id` DESC",
		messageColumns, searchTables, where,
	)

	messages, err := db.ExecuteResult(ctx, s.db, false, func(ctx context.Context, conn *db.Conn) ([]*Message, error) {
		return s.loadMessages(ctx, conn, nil, query, args...)
	})
	if err != nil {
		return nil, storageError("search messages", err)
	}

	return messages, nil
}

// SetFlag sets the column of a flag on the messages with the given ids. Only flags with a dedicated column are
// supported. The ids are updated in batches, each committed on its own and followed by a notification.
func (s *Store) SetFlag(ctx context.Context, ids []int64, flag flags.Flag, state bool) error {
	column, err := flagColumn(flag)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE `messages` SET `%v` = ? WHERE `id` IN (?)", column)

	return s.setFlagBatched(ctx, ids, query, state)
}

// SetFlagForThreads sets the column of a flag on every message of the threads with the given root ids.
func (s *Store) SetFlagForThreads(ctx context.Context, rootIDs []int64, flag flags.Flag, state bool) error {
	column, err := flagColumn(flag)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE `messages` SET `%v` = ? WHERE `id` IN ("+
		"SELECT `messages`.`id` FROM `threads` JOIN `messages` ON `threads`.`message_id` = `messages`.`id` "+
		"WHERE `messages`.`empty` = 0 AND `messages`.`deleted` = 0 AND `threads`.`root` IN (?))",
		column,
	)

	return s.setFlagBatched(ctx, rootIDs, query, state)
}

func (s *Store) setFlagBatched(ctx context.Context, ids []int64, query string, state bool) error {
	for _, chunk := range xslices.Chunk(ids, db.ChunkLimit) {
		if err := s.db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
			q, args, err := utils.In(conn, query, state, chunk)
			if err != nil {
				return err
			}

			_, err = utils.ExecQuery(ctx, conn, q, args...)

			return err
		}); err != nil {
			return storageError("set flag", err)
		}

		s.notifyChange()
	}

	return nil
}

// GetFolderIDsAndUIDs groups the UIDs of the messages with the given ids by folder. With threaded, every message
// of the threads the given messages belong to is included.
func (s *Store) GetFolderIDsAndUIDs(ctx context.Context, ids []int64, threaded bool) (map[int64][]string, error) {
	type uidRow struct {
		FolderID int64          `db:"folder_id"`
		UID      sql.NullString `db:"uid"`
	}

	var query string

	if threaded {
		query = "SELECT `messages`.`folder_id`, `messages`.`uid` FROM `threads` " +
			"JOIN `messages` ON `threads`.`message_id` = `messages`.`id` " +
			"WHERE `messages`.`empty` = 0 AND `messages`.`deleted` = 0 AND `threads`.`root` IN (" +
			"SELECT `root` FROM `threads` WHERE `message_id` IN (?)) ORDER BY `messages`.`id`"
	} else {
		query = "SELECT `folder_id`, `uid` FROM `messages` WHERE `empty` = 0 AND `id` IN (?) ORDER BY `id`"
	}

	result := make(map[int64][]string)

	for _, chunk := range xslices.Chunk(ids, db.ChunkLimit) {
		rows, err := db.ExecuteResult(ctx, s.db, false, func(ctx context.Context, conn *db.Conn) ([]uidRow, error) {
			q, args, err := utils.In(conn, query, chunk)
			if err != nil {
				return nil, err
			}

			return utils.Select[uidRow](ctx, conn, q, args...)
		})
		if err != nil {
			return nil, storageError("get folder ids and uids", err)
		}

		for _, row := range rows {
			if !row.UID.Valid {
				continue
			}

			result[row.FolderID] = append(result[row.FolderID], row.UID.String)
		}
	}

	return result, nil
}

// MessageCounts are the numbers of unread and flagged messages of a folder.
type MessageCounts struct {
	Total   int `db:"total"`
	Unread  int `db:"unread"`
	Flagged int `db:"flagged"`
}

// GetMessageCounts returns the message counts of every folder with messages, keyed by folder id.
func (s *Store) GetMessageCounts(ctx context.Context) (map[int64]MessageCounts, error) {
	type countRow struct {
		FolderID int64 `db:"folder_id"`
		MessageCounts
	}

	rows, err := db.ExecuteResult(ctx, s.db, false, func(ctx context.Context, conn *db.Conn) ([]countRow, error) {
		return utils.Select[countRow](ctx, conn,
			"SELECT `folder_id`, COUNT(*) AS `total`, "+
				"COALESCE(SUM(CASE WHEN `read` = 0 THEN 1 ELSE 0 END), 0) AS `unread`, "+
				"COALESCE(SUM(CASE WHEN `flagged` = 1 THEN 1 ELSE 0 END), 0) AS `flagged` "+
				"FROM `messages` WHERE `empty` = 0 AND `deleted` = 0 GROUP BY `folder_id`",
		)
	})
	if err != nil {
		return nil, storageError("get message counts", err)
	}

	counts := make(map[int64]MessageCounts, len(rows))

	for _, row := range rows {
		counts[row.FolderID] = row.MessageCounts
	}

	return counts, nil
}
