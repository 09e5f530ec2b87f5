package localstore

import (
	"context"
	"database/sql"

	"github.com/ProtonMail/localstore/internal/db"
	"github.com/ProtonMail/localstore/internal/db/utils"
)

// threadNode is the thread row of a message row.
type threadNode struct {
	ThreadID  int64 `db:"thread_id"`
	RootID    int64 `db:"root_id"`
	MessageID int64 `db:"message_row_id"`
}

// threadPlacement is where a message goes in the thread forest of a folder.
type threadPlacement struct {
	// placeholder is the empty message already standing in for the message, if any.
	placeholder *threadNode

	rootID   int64
	parentID int64
}

// getThreadNode returns the thread node of the message with the given Message-ID header in the folder.
func getThreadNode(ctx context.Context, conn *db.Conn, folderID int64, messageID string, onlyEmpty bool) (*threadNode, error) {
	if messageID == "" {
		return nil, nil
	}

	query := "SELECT `threads`.`id` AS `thread_id`, `threads`.`root` AS `root_id`, `messages`.`id` AS `message_row_id` " +
		"FROM `messages` JOIN `threads` ON `threads`.`message_id` = `messages`.`id` " +
		"WHERE `messages`.`folder_id` = ? AND `messages`.`message_id` = ?"

	if onlyEmpty {
		query += " AND `messages`.`empty` = 1"
	}

	node, err := utils.Get[threadNode](ctx, conn, query+" ORDER BY `messages`.`id` LIMIT 1", folderID, messageID)
	if db.IsErrNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return &node, nil
}

// placeInThread walks the references of a message, oldest first, creating placeholders for the messages not
// in the folder and merging the threads the references connect.
func placeInThread(ctx context.Context, conn *db.Conn, folderID int64, messageID string, references []string) (threadPlacement, error) {
	placeholder, err := getThreadNode(ctx, conn, folderID, messageID, true)
	if err != nil {
		return threadPlacement{}, err
	}

	placement := threadPlacement{
		placeholder: placeholder,
		rootID:      NoThread,
		parentID:    NoThread,
	}

	for _, reference := range references {
		if reference == messageID {
			continue
		}

		node, err := getThreadNode(ctx, conn, folderID, reference, false)
		if err != nil {
			return threadPlacement{}, err
		}

		if node == nil {
			id, err := insertPlaceholder(ctx, conn, folderID, reference)
			if err != nil {
				return threadPlacement{}, err
			}

			threadID, err := insertThread(ctx, conn, id, placement.rootID, placement.parentID)
			if err != nil {
				return threadPlacement{}, err
			}

			if placement.rootID == NoThread {
				placement.rootID = threadID
			}

			placement.parentID = threadID

			continue
		}

		isRoot := node.RootID == node.ThreadID

		switch {
		case placement.rootID != NoThread && isRoot && node.RootID != placement.rootID:
			// The reference starts another thread; hang it below the current path.
			if err := mergeThread(ctx, conn, node.ThreadID, placement.rootID, placement.parentID); err != nil {
				return threadPlacement{}, err
			}

		default:
			placement.rootID = node.RootID
		}

		placement.parentID = node.ThreadID
	}

	return placement, nil
}

// attachThread gives the message row its thread node. It returns the thread and root ids.
func attachThread(ctx context.Context, conn *db.Conn, messageRowID int64, placement threadPlacement) (int64, int64, error) {
	if placement.placeholder == nil {
		threadID, err := insertThread(ctx, conn, messageRowID, placement.rootID, placement.parentID)
		if err != nil {
			return 0, 0, err
		}

		if placement.rootID == NoThread {
			return threadID, threadID, nil
		}

		return threadID, placement.rootID, nil
	}

	node := placement.placeholder

	if node.MessageID != messageRowID {
		if _, err := utils.ExecQuery(ctx, conn, "UPDATE `threads` SET `message_id` = ? WHERE `id` = ?", messageRowID, node.ThreadID); err != nil {
			return 0, 0, err
		}

		if _, err := utils.ExecQuery(ctx, conn, "DELETE FROM `messages` WHERE `id` = ?", node.MessageID); err != nil {
			return 0, 0, err
		}
	}

	if placement.rootID == NoThread || placement.rootID == node.RootID {
		return node.ThreadID, node.RootID, nil
	}

	// The placeholder's thread joins the thread of the message's references.
	if _, err := utils.ExecQuery(ctx, conn, "UPDATE `threads` SET `root` = ? WHERE `root` = ?", placement.rootID, node.RootID); err != nil {
		return 0, 0, err
	}

	if _, err := utils.ExecQuery(ctx, conn, "UPDATE `threads` SET `parent` = ? WHERE `id` = ?", placement.parentID, node.ThreadID); err != nil {
		return 0, 0, err
	}

	return node.ThreadID, placement.rootID, nil
}

func mergeThread(ctx context.Context, conn *db.Conn, oldRootID, rootID, parentID int64) error {
	if _, err := utils.ExecQuery(ctx, conn, "UPDATE `threads` SET `root` = ? WHERE `root` = ?", rootID, oldRootID); err != nil {
		return err
	}

	_, err := utils.ExecQuery(ctx, conn, "UPDATE `threads` SET `parent` = ? WHERE `id` = ?", nullID(parentID), oldRootID)

	return err
}

func insertPlaceholder(ctx context.Context, conn *db.Conn, folderID int64, messageID string) (int64, error) {
	return utils.ExecInsert(ctx, conn,
		"INSERT INTO `messages` (`folder_id`, `message_id`, `empty`) VALUES (?, ?, 1)",
		folderID, messageID,
	)
}

func insertThread(ctx context.Context, conn *db.Conn, messageRowID, rootID, parentID int64) (int64, error) {
	id, err := utils.ExecInsert(ctx, conn,
		"INSERT INTO `threads` (`message_id`, `root`, `parent`) VALUES (?, ?, ?)",
		messageRowID, nullID(rootID), nullID(parentID),
	)
	if err != nil {
		return 0, err
	}

	if rootID == NoThread {
		if _, err := utils.ExecQuery(ctx, conn, "UPDATE `threads` SET `root` = ? WHERE `id` = ?", id, id); err != nil {
			return 0, err
		}
	}

	return id, nil
}

type parentRow struct {
	MessageID int64         `db:"message_id"`
	Parent    sql.NullInt64 `db:"parent"`
	Empty     bool          `db:"empty"`
}

// destroyMessageRow removes a message row. A message whose thread node still has children is turned into an
// empty placeholder instead. Placeholders left without children are removed up the thread.
func destroyMessageRow(ctx context.Context, conn *db.Conn, messageRowID int64) error {
	type nodeRow struct {
		ID     int64         `db:"id"`
		Parent sql.NullInt64 `db:"parent"`
	}

	node, err := utils.Get[nodeRow](ctx, conn, "SELECT `id`, `parent` FROM `threads` WHERE `message_id` = ?", messageRowID)
	if db.IsErrNotFound(err) {
		_, err := utils.ExecQuery(ctx, conn, "DELETE FROM `messages` WHERE `id` = ?", messageRowID)
		return err
	} else if err != nil {
		return err
	}

	hasChildren, err := utils.QueryExists(ctx, conn, "SELECT 1 FROM `threads` WHERE `parent` = ?", node.ID)
	if err != nil {
		return err
	}

	if hasChildren {
		return makePlaceholder(ctx, conn, messageRowID)
	}

	if _, err := utils.ExecQuery(ctx, conn, "DELETE FROM `messages` WHERE `id` = ?", messageRowID); err != nil {
		return err
	}

	for parent := node.Parent; parent.Valid; {
		up, err := utils.Get[parentRow](ctx, conn,
			"SELECT `threads`.`message_id`, `threads`.`parent`, `messages`.`empty` FROM `threads` "+
				"JOIN `messages` ON `threads`.`message_id` = `messages`.`id` WHERE `threads`.`id` = ?",
			parent.Int64,
		)
		if db.IsErrNotFound(err) {
			return nil
		} else if err != nil {
			return err
		}

		if !up.Empty {
			return nil
		}

		if hasChildren, err := utils.QueryExists(ctx, conn, "SELECT 1 FROM `threads` WHERE `parent` = ?", parent.Int64); err != nil {
			return err
		} else if hasChildren {
			return nil
		}

		if _, err := utils.ExecQuery(ctx, conn, "DELETE FROM `messages` WHERE `id` = ?", up.MessageID); err != nil {
			return err
		}

		parent = up.Parent
	}

	return nil
}

func makePlaceholder(ctx context.Context, conn *db.Conn, messageRowID int64) error {
	if _, err := utils.ExecQuery(ctx, conn,
		"DELETE FROM `message_parts` WHERE `root` = (SELECT `message_part_id` FROM `messages` WHERE `id` = ?)",
		messageRowID,
	); err != nil {
		return err
	}

	return utils.ExecQueryAndCheckUpdatedNotZero(ctx, conn,
		"UPDATE `messages` SET `uid` = NULL, `empty` = 1, `deleted` = 0, `subject` = NULL, `date` = 0, "+
			"`internal_date` = 0, `sender_list` = NULL, `to_list` = NULL, `cc_list` = NULL, `bcc_list` = NULL, "+
			"`reply_to_list` = NULL, `flags` = NULL, `read` = 0, `flagged` = 0, `answered` = 0, `forwarded` = 0, "+
			"`preview_type` = 'none', `preview` = NULL, `attachment_count` = 0, `mime_type` = NULL, "+
			"`message_part_id` = NULL WHERE `id` = ?",
		messageRowID,
	)
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != NoThread}
}
