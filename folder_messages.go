package localstore

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ProtonMail/localstore/flags"
	"github.com/ProtonMail/localstore/internal/db"
	"github.com/ProtonMail/localstore/internal/db/utils"
	"github.com/ProtonMail/localstore/mimepart"
	"github.com/bradenaw/juniper/xslices"
	"github.com/emersion/go-message/textproto"
	"github.com/google/uuid"
)

// MessageInfo is what the store needs to know about a message beyond its MIME tree.
type MessageInfo struct {
	// UID is the server UID of the message. An empty UID is replaced by a local one.
	UID          string
	Flags        flags.List
	InternalDate time.Time
}

// NewMessage is a message to append to a folder.
type NewMessage struct {
	Tree *mimepart.Tree
	Info MessageInfo
}

// NewLocalUID returns a UID for a message that has not been appended to the server yet.
func NewLocalUID() string {
	return LocalUIDPrefix + uuid.NewString()
}

// GetMessages returns the messages of the folder, newest first. Placeholders are never returned.
func (f *Folder) GetMessages(ctx context.Context, includeDeleted bool) ([]*Message, error) {
	messages, err := db.ExecuteResult(ctx, f.store.db, false, func(ctx context.Context, conn *db.Conn) ([]*Message, error) {
		if err := f.ensureOpen(ctx, conn); err != nil {
			return nil, err
		}

		query := fmt.Sprintf("SELECT %v FROM %v WHERE `messages`.`folder_id` = ? AND `messages`.`empty` = 0", messageColumns, messageTables)

		if !includeDeleted {
			query += " AND `messages`.`deleted` = 0"
		}

		return f.store.loadMessages(ctx, conn, f, query+" ORDER BY `messages`.`date` DESC, `messages`.`id` DESC", f.id)
	})
	if err != nil {
		return nil, storageError("get messages", err)
	}

	return messages, nil
}

// GetMessage returns the message with the given UID, deleted or not.
func (f *Folder) GetMessage(ctx context.Context, uid string) (*Message, error) {
	msg, err := db.ExecuteResult(ctx, f.store.db, false, func(ctx context.Context, conn *db.Conn) (*Message, error) {
		if err := f.ensureOpen(ctx, conn); err != nil {
			return nil, err
		}

		return f.getMessage(ctx, conn, uid)
	})
	if err != nil {
		return nil, storageError("get message", err)
	}

	return msg, nil
}

func (f *Folder) getMessage(ctx context.Context, conn *db.Conn, uid string) (*Message, error) {
	messages, err := f.store.loadMessages(ctx, conn, f,
		fmt.Sprintf("SELECT %v FROM %v WHERE `messages`.`folder_id` = ? AND `messages`.`uid` = ? AND `messages`.`empty` = 0",
			messageColumns, messageTables,
		),
		f.id, uid,
	)
	if err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: %v in folder %v", ErrMessageNotFound, uid, f.name)
	}

	return messages[0], nil
}

// GetMessagesByUIDs returns the messages with the given UIDs. Unknown UIDs are skipped.
func (f *Folder) GetMessagesByUIDs(ctx context.Context, uids []string) ([]*Message, error) {
	messages, err := db.ExecuteResult(ctx, f.store.db, false, func(ctx context.Context, conn *db.Conn) ([]*Message, error) {
		if err := f.ensureOpen(ctx, conn); err != nil {
			return nil, err
		}

		return f.getMessagesByUIDs(ctx, conn, uids)
	})
	if err != nil {
		return nil, storageError("get messages by uid", err)
	}

	return messages, nil
}

func (f *Folder) getMessagesByUIDs(ctx context.Context, conn *db.Conn, uids []string) ([]*Message, error) {
	messages := make([]*Message, 0, len(uids))

	for _, chunk := range xslices.Chunk(uids, db.ChunkLimit) {
		query, args, err := utils.In(conn,
			fmt.Sprintf("SELECT %v FROM %v WHERE `messages`.`folder_id` = ? AND `messages`.`empty` = 0 AND `messages`.`uid` IN (?) "+
				"ORDER BY `messages`.`id`", messageColumns, messageTables,
			),
			f.id, chunk,
		)
		if err != nil {
			return nil, err
		}

		loaded, err := f.store.loadMessages(ctx, conn, f, query, args...)
		if err != nil {
			return nil, err
		}

		messages = append(messages, loaded...)
	}

	return messages, nil
}

// GetAllMessagesAndEffectiveDates maps the UIDs of the messages of the folder to the date the server received
// them, or their Date header if that is unknown.
func (f *Folder) GetAllMessagesAndEffectiveDates(ctx context.Context) (map[string]time.Time, error) {
	type dateRow struct {
		UID          string `db:"uid"`
		Date         int64  `db:"date"`
		InternalDate int64  `db:"internal_date"`
	}

	dates, err := db.ExecuteResult(ctx, f.store.db, false, func(ctx context.Context, conn *db.Conn) (map[string]time.Time, error) {
		if err := f.ensureOpen(ctx, conn); err != nil {
			return nil, err
		}

		rows, err := utils.Select[dateRow](ctx, conn,
			"SELECT `uid`, `date`, `internal_date` FROM `messages` "+
				"WHERE `folder_id` = ? AND `empty` = 0 AND `deleted` = 0 AND `uid` IS NOT NULL",
			f.id,
		)
		if err != nil {
			return nil, err
		}

		dates := make(map[string]time.Time, len(rows))

		for _, row := range rows {
			if row.InternalDate != 0 {
				dates[row.UID] = fromMillis(row.InternalDate)
			} else {
				dates[row.UID] = fromMillis(row.Date)
			}
		}

		return dates, nil
	})
	if err != nil {
		return nil, storageError("get message dates", err)
	}

	return dates, nil
}

// StoreMessage saves a message with its MIME tree. A message with the same UID is replaced and keeps its place
// in the thread; otherwise the message is threaded by its Message-ID, References and In-Reply-To headers.
func (f *Folder) StoreMessage(ctx context.Context, tree *mimepart.Tree, info MessageInfo) (*Message, error) {
	messages, err := f.AppendMessages(ctx, []NewMessage{{Tree: tree, Info: info}})
	if err != nil {
		return nil, err
	}

	return messages[0], nil
}

// AppendMessages stores several messages in a single transaction.
func (f *Folder) AppendMessages(ctx context.Context, newMessages []NewMessage) ([]*Message, error) {
	var (
		messages []*Message
		indexed  []indexEntry
		replaced messageFiles
		written  []int64
	)

	err := f.store.db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		if err := f.ensureOpen(ctx, conn); err != nil {
			return err
		}

		for _, newMessage := range newMessages {
			res, err := f.storeMessage(ctx, conn, newMessage.Tree, newMessage.Info)

			written = append(written, res.written...)

			if err != nil {
				return err
			}

			messages = append(messages, res.message)
			indexed = append(indexed, res.index)
			replaced = replaced.merge(res.replaced)
		}

		return nil
	})
	if err != nil {
		f.store.discardWritten(written)
		return nil, storageError("store message", err)
	}

	f.store.removeFiles(replaced)
	f.store.index(indexed)
	f.store.notifyChange()

	return messages, nil
}

type indexEntry struct {
	id   int64
	text string
}

type storeResult struct {
	message  *Message
	index    indexEntry
	replaced messageFiles
	written  []int64
}

func (f *Folder) storeMessage(ctx context.Context, conn *db.Conn, tree *mimepart.Tree, info MessageInfo) (storeResult, error) {
	if tree == nil || tree.Len() == 0 {
		return storeResult{}, fmt.Errorf("message has no parts")
	}

	if info.UID == "" {
		info.UID = NewLocalUID()
	}

	env := readEnvelope(tree.Root().Header)
	previewType, preview, text := buildPreview(tree)
	attachmentCount := mimepart.AttachmentCount(mimepart.Classify(tree))

	type existingRow struct {
		ID            int64         `db:"id"`
		MessagePartID sql.NullInt64 `db:"message_part_id"`
	}

	existing, err := utils.Get[existingRow](ctx, conn,
		"SELECT `id`, `message_part_id` FROM `messages` WHERE `folder_id` = ? AND `uid` = ?",
		f.id, info.UID,
	)
	found := err == nil

	if err != nil && !db.IsErrNotFound(err) {
		return storeResult{}, err
	}

	var res storeResult

	if found {
		if existing.MessagePartID.Valid {
			files, err := collectMessageFiles(ctx, conn, []int64{existing.ID})
			if err != nil {
				return storeResult{}, err
			}

			// The index entry is replaced below, only the old files go.
			res.replaced = messageFiles{partIDs: files.partIDs}

			if _, err := utils.ExecQuery(ctx, conn, "DELETE FROM `message_parts` WHERE `root` = ?", existing.MessagePartID.Int64); err != nil {
				return storeResult{}, err
			}
		}
	}

	rootPartID, written, err := f.store.savePartTree(ctx, conn, tree)
	res.written = written

	if err != nil {
		return res, err
	}

	columns := []any{
		nullString(env.subject),
		toMillis(env.date),
		toMillis(info.InternalDate),
		nullString(env.from),
		nullString(env.to),
		nullString(env.cc),
		nullString(env.bcc),
		nullString(env.replyTo),
		nullString(env.messageID),
		nullString(serializeExtraFlags(info.Flags)),
		info.Flags.Contains(flags.Seen),
		info.Flags.Contains(flags.Flagged),
		info.Flags.Contains(flags.Answered),
		info.Flags.Contains(flags.Forwarded),
		info.Flags.Contains(flags.Deleted),
		string(previewType),
		nullString(preview),
		attachmentCount,
		env.mimeType,
		rootPartID,
	}

	var messageRowID int64

	if found {
		messageRowID = existing.ID

		if err := utils.ExecQueryAndCheckUpdatedNotZero(ctx, conn,
			updateMessageQuery+" WHERE `id` = ?",
			append(columns, messageRowID)...,
		); err != nil {
			return res, err
		}

		exists, err := utils.QueryExists(ctx, conn, "SELECT 1 FROM `threads` WHERE `message_id` = ?", messageRowID)
		if err != nil {
			return res, err
		}

		if !exists {
			if err := f.thread(ctx, conn, messageRowID, env); err != nil {
				return res, err
			}
		}
	} else {
		placement, err := placeInThread(ctx, conn, f.id, env.messageID, env.references)
		if err != nil {
			return res, err
		}

		if placement.placeholder != nil {
			// The message fills in the placeholder standing in for it.
			messageRowID = placement.placeholder.MessageID

			if err := utils.ExecQueryAndCheckUpdatedNotZero(ctx, conn,
				updateMessageQuery+", `uid` = ? WHERE `id` = ?",
				append(columns, info.UID, messageRowID)...,
			); err != nil {
				return res, err
			}
		} else {
			if messageRowID, err = utils.ExecInsert(ctx, conn,
				"INSERT INTO `messages` (`subject`, `date`, `internal_date`, `sender_list`, `to_list`, `cc_list`, "+
					"`bcc_list`, `reply_to_list`, `message_id`, `flags`, `read`, `flagged`, `answered`, `forwarded`, "+
					"`deleted`, `preview_type`, `preview`, `attachment_count`, `mime_type`, `message_part_id`, "+
					"`folder_id`, `uid`, `empty`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)",
				append(columns, f.id, info.UID)...,
			); err != nil {
				return res, err
			}
		}

		if _, _, err := attachThread(ctx, conn, messageRowID, placement); err != nil {
			return res, err
		}
	}

	messages, err := f.store.loadMessages(ctx, conn, f,
		fmt.Sprintf("SELECT %v FROM %v WHERE `messages`.`id` = ?", messageColumns, messageTables),
		messageRowID,
	)
	if err != nil {
		return res, err
	} else if len(messages) == 0 {
		return res, fmt.Errorf("%w: %v", ErrMessageNotFound, messageRowID)
	}

	res.message = messages[0]
	res.index = indexEntry{id: messageRowID, text: env.subject + "\n" + text}

	return res, nil
}

const updateMessageQuery = "UPDATE `messages` SET `subject` = ?, `date` = ?, `internal_date` = ?, `sender_list` = ?, " +
	"`to_list` = ?, `cc_list` = ?, `bcc_list` = ?, `reply_to_list` = ?, `message_id` = ?, `flags` = ?, `read` = ?, " +
	"`flagged` = ?, `answered` = ?, `forwarded` = ?, `deleted` = ?, `preview_type` = ?, `preview` = ?, " +
	"`attachment_count` = ?, `mime_type` = ?, `message_part_id` = ?, `empty` = 0"

// thread places a new message row in the thread forest of the folder.
func (f *Folder) thread(ctx context.Context, conn *db.Conn, messageRowID int64, env envelope) error {
	placement, err := placeInThread(ctx, conn, f.id, env.messageID, env.references)
	if err != nil {
		return err
	}

	_, _, err = attachThread(ctx, conn, messageRowID, placement)

	return err
}

// index adds stored messages to the full-text index. Failures are only logged.
func (s *Store) index(entries []indexEntry) {
	if s.fulltext == nil {
		return
	}

	for _, entry := range entries {
		if err := s.fulltext.Index(entry.id, entry.text); err != nil {
			s.log.WithError(err).WithField("message", entry.id).Warn("Failed to index message")
		}
	}
}

// ChangeUID replaces the UID of a message, typically once a locally created message was appended to the server.
func (f *Folder) ChangeUID(ctx context.Context, msg *Message, uid string) error {
	if err := f.store.db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		return utils.ExecQueryAndCheckUpdatedNotZero(ctx, conn, "UPDATE `messages` SET `uid` = ? WHERE `id` = ?", uid, msg.id)
	}); err != nil {
		return storageError("change uid", err)
	}

	msg.uid = uid

	f.store.notifyChange()

	return nil
}

// DestroyMessages removes the messages with the given UIDs together with their part trees.
func (f *Folder) DestroyMessages(ctx context.Context, uids []string) error {
	messages, err := f.GetMessagesByUIDs(ctx, uids)
	if err != nil {
		return err
	}

	return f.destroyMessages(ctx, messages)
}

func (f *Folder) destroyMessages(ctx context.Context, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}

	var removed messageFiles

	if err := f.store.db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		ids := xslices.Map(messages, func(m *Message) int64 { return m.id })

		files, err := collectMessageFiles(ctx, conn, ids)
		if err != nil {
			return err
		}

		for _, id := range ids {
			if err := destroyMessageRow(ctx, conn, id); err != nil {
				return err
			}
		}

		removed = files

		return nil
	}); err != nil {
		return storageError("destroy messages", err)
	}

	f.store.removeFiles(removed)
	f.store.notifyChange()

	return nil
}

// ClearAllMessages removes every message of the folder.
func (f *Folder) ClearAllMessages(ctx context.Context) error {
	var removed messageFiles

	if err := f.store.db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		if err := f.ensureOpen(ctx, conn); err != nil {
			return err
		}

		files, err := collectFolderFiles(ctx, conn, f.id)
		if err != nil {
			return err
		}

		if _, err := utils.ExecQuery(ctx, conn, "DELETE FROM `messages` WHERE `folder_id` = ?", f.id); err != nil {
			return err
		}

		removed = files

		return nil
	}); err != nil {
		return storageError("clear folder", err)
	}

	f.store.removeFiles(removed)
	f.store.notifyChange()

	return nil
}

// SetFlags sets or clears flags on several messages of the folder in one transaction.
func (f *Folder) SetFlags(ctx context.Context, messages []*Message, list []flags.Flag, set bool) error {
	var removed messageFiles

	if err := f.store.db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		for _, msg := range messages {
			files, err := msg.setFlags(ctx, conn, list, set)
			if err != nil {
				return err
			}

			removed = removed.merge(files)
		}

		return nil
	}); err != nil {
		return storageError("set flags", err)
	}

	f.store.removeFiles(removed)
	f.store.notifyChange()

	return nil
}

// MoveMessages moves messages to another folder. Each moved message gets a local UID in the destination, and a
// deleted stand-in keeps its old UID in this folder so that it is not downloaded again. It returns the new UIDs
// keyed by the old ones.
func (f *Folder) MoveMessages(ctx context.Context, dest *Folder, messages []*Message) (map[string]string, error) {
	uids := make(map[string]string, len(messages))

	if err := f.store.db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		if err := f.ensureOpen(ctx, conn); err != nil {
			return err
		}

		if err := dest.ensureOpen(ctx, conn); err != nil {
			return err
		}

		for _, msg := range messages {
			uid, err := f.moveMessage(ctx, conn, dest, msg)
			if err != nil {
				return err
			}

			uids[msg.uid] = uid
		}

		return nil
	}); err != nil {
		return nil, storageError("move messages", err)
	}

	for _, msg := range messages {
		msg.folder = dest
		msg.uid = uids[msg.uid]
	}

	f.store.notifyChange()

	return uids, nil
}

func (f *Folder) moveMessage(ctx context.Context, conn *db.Conn, dest *Folder, msg *Message) (string, error) {
	uid := NewLocalUID()

	if err := utils.ExecQueryAndCheckUpdatedNotZero(ctx, conn,
		"UPDATE `messages` SET `folder_id` = ?, `uid` = ? WHERE `id` = ?",
		dest.id, uid, msg.id,
	); err != nil {
		return "", err
	}

	standInID, err := utils.ExecInsert(ctx, conn,
		"INSERT INTO `messages` (`folder_id`, `uid`, `message_id`, `deleted`, `read`, `empty`) VALUES (?, ?, ?, 1, 1, 0)",
		f.id, nullString(msg.uid), nullString(msg.messageID),
	)
	if err != nil {
		return "", err
	}

	// The stand-in takes over the message's place in the source thread.
	if _, err := utils.ExecQuery(ctx, conn, "UPDATE `threads` SET `message_id` = ? WHERE `message_id` = ?", standInID, msg.id); err != nil {
		return "", err
	}

	var references []string

	if msg.messagePartID != 0 {
		header, err := loadRootHeader(ctx, conn, msg.messagePartID)
		if err != nil {
			return "", err
		}

		references = readEnvelope(header).references
	}

	placement, err := placeInThread(ctx, conn, dest.id, msg.messageID, references)
	if err != nil {
		return "", err
	}

	threadID, rootID, err := attachThread(ctx, conn, msg.id, placement)
	if err != nil {
		return "", err
	}

	msg.threadID, msg.rootID = threadID, rootID

	return uid, nil
}

func loadRootHeader(ctx context.Context, conn *db.Conn, partID int64) (textproto.Header, error) {
	raw, err := utils.MapQueryRow[[]byte](ctx, conn, "SELECT `header` FROM `message_parts` WHERE `id` = ?", partID)
	if err != nil {
		return textproto.Header{}, err
	}

	return textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
}
