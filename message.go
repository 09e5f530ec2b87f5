package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ProtonMail/localstore/flags"
	"github.com/ProtonMail/localstore/internal/db"
	"github.com/ProtonMail/localstore/internal/db/utils"
	"github.com/ProtonMail/localstore/mimepart"
	"github.com/emersion/go-message/mail"
)

// LocalUIDPrefix marks UIDs generated before the message was appended to the server.
const LocalUIDPrefix = "K9LOCAL:"

// NoThread is reported as thread and root id of messages without a thread placement.
const NoThread = -1

// IsLocalUID returns whether uid was generated locally.
func IsLocalUID(uid string) bool {
	return strings.HasPrefix(uid, LocalUIDPrefix)
}

type PreviewType string

const (
	PreviewTypeNone      PreviewType = "none"
	PreviewTypeText      PreviewType = "text"
	PreviewTypeEncrypted PreviewType = "encrypted"
	PreviewTypeError     PreviewType = "error"
)

// Message is a message row. Its fields reflect the row as of loading and the changes made through it.
type Message struct {
	folder *Folder

	id              int64
	uid             string
	deleted         bool
	subject         string
	date            time.Time
	internalDate    time.Time
	from            string
	to              string
	cc              string
	bcc             string
	replyTo         string
	messageID       string
	flags           flags.List
	previewType     PreviewType
	preview         string
	attachmentCount int
	mimeType        string
	messagePartID   int64
	threadID        int64
	rootID          int64
}

type messageRow struct {
	ID              int64          `db:"id"`
	FolderID        int64          `db:"folder_id"`
	UID             sql.NullString `db:"uid"`
	Deleted         bool           `db:"deleted"`
	Subject         sql.NullString `db:"subject"`
	Date            int64          `db:"date"`
	InternalDate    int64          `db:"internal_date"`
	SenderList      sql.NullString `db:"sender_list"`
	ToList          sql.NullString `db:"to_list"`
	CcList          sql.NullString `db:"cc_list"`
	BccList         sql.NullString `db:"bcc_list"`
	ReplyToList     sql.NullString `db:"reply_to_list"`
	MessageID       sql.NullString `db:"message_id"`
	Flags           sql.NullString `db:"flags"`
	Read            bool           `db:"read"`
	Flagged         bool           `db:"flagged"`
	Answered        bool           `db:"answered"`
	Forwarded       bool           `db:"forwarded"`
	PreviewType     string         `db:"preview_type"`
	Preview         sql.NullString `db:"preview"`
	AttachmentCount int            `db:"attachment_count"`
	MimeType        sql.NullString `db:"mime_type"`
	MessagePartID   sql.NullInt64  `db:"message_part_id"`
	ThreadID        sql.NullInt64  `db:"thread_id"`
	ThreadRoot      sql.NullInt64  `db:"thread_root"`
}

const messageColumns = "`messages`.`id`, `messages`.`folder_id`, `messages`.`uid`, `messages`.`deleted`, " +
	"`messages`.`subject`, `messages`.`date`, `messages`.`internal_date`, " +
	"`messages`.`sender_list`, `messages`.`to_list`, `messages`.`cc_list`, `messages`.`bcc_list`, `messages`.`reply_to_list`, " +
	"`messages`.`message_id`, `messages`.`flags`, " +
	"`messages`.`read`, `messages`.`flagged`, `messages`.`answered`, `messages`.`forwarded`, " +
	"`messages`.`preview_type`, `messages`.`preview`, `messages`.`attachment_count`, `messages`.`mime_type`, " +
	"`messages`.`message_part_id`, `threads`.`id` AS `thread_id`, `threads`.`root` AS `thread_root`"

const messageTables = "`messages` LEFT JOIN `threads` ON `threads`.`message_id` = `messages`.`id`"

// flagColumns maps the flags stored in a dedicated column to that column.
var flagColumns = []struct {
	flag   flags.Flag
	column string
}{
	{flags.Seen, "read"},
	{flags.Flagged, "flagged"},
	{flags.Answered, "answered"},
	{flags.Forwarded, "forwarded"},
	{flags.Deleted, "deleted"},
}

// flagColumn returns the column of a flag. Only the five flags with a dedicated column have one.
func flagColumn(flag flags.Flag) (string, error) {
	for _, fc := range flagColumns {
		if flags.Equal(fc.flag, flag) {
			return fc.column, nil
		}
	}

	return "", fmt.Errorf("%w: %v", ErrUnsupportedFlag, flag.Code())
}

// serializeExtraFlags returns the flags column: every flag except those stored in a dedicated column.
func serializeExtraFlags(list flags.List) string {
	return list.Remove(flags.Seen, flags.Flagged, flags.Answered, flags.Forwarded, flags.Deleted).Serialize()
}

// loadMessages runs a query selecting messageColumns from messageTables and attaches the rows to folders.
// A nil folder means the folders are read from the database.
func (s *Store) loadMessages(ctx context.Context, conn *db.Conn, folder *Folder, query string, args ...any) ([]*Message, error) {
	rows, err := utils.Select[messageRow](ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}

	var folders map[int64]*Folder

	if folder == nil {
		folderIDs := make([]int64, 0, len(rows))

		for _, row := range rows {
			folderIDs = append(folderIDs, row.FolderID)
		}

		if folders, err = s.getFolders(ctx, conn, folderIDs); err != nil {
			return nil, err
		}
	}

	messages := make([]*Message, 0, len(rows))

	for _, row := range rows {
		owner := folder
		if owner == nil {
			owner = folders[row.FolderID]
		}

		messages = append(messages, s.newMessage(owner, row))
	}

	return messages, nil
}

func (s *Store) newMessage(folder *Folder, row messageRow) *Message {
	msg := &Message{
		folder:          folder,
		id:              row.ID,
		uid:             row.UID.String,
		deleted:         row.Deleted,
		subject:         row.Subject.String,
		date:            fromMillis(row.Date),
		internalDate:    fromMillis(row.InternalDate),
		from:            row.SenderList.String,
		to:              row.ToList.String,
		cc:              row.CcList.String,
		bcc:             row.BccList.String,
		replyTo:         row.ReplyToList.String,
		messageID:       row.MessageID.String,
		previewType:     PreviewType(row.PreviewType),
		preview:         row.Preview.String,
		attachmentCount: row.AttachmentCount,
		mimeType:        row.MimeType.String,
		messagePartID:   row.MessagePartID.Int64,
		threadID:        NoThread,
		rootID:          NoThread,
	}

	if row.ThreadID.Valid {
		msg.threadID = row.ThreadID.Int64
	}

	if row.ThreadRoot.Valid {
		msg.rootID = row.ThreadRoot.Int64
	}

	msg.flags = s.registry.ParseCodeList(row.Flags.String).
		Set(flags.Seen, row.Read).
		Set(flags.Flagged, row.Flagged).
		Set(flags.Answered, row.Answered).
		Set(flags.Forwarded, row.Forwarded).
		Set(flags.Deleted, row.Deleted)

	return msg
}

func (m *Message) ID() int64 {
	return m.id
}

func (m *Message) UID() string {
	return m.uid
}

func (m *Message) Folder() *Folder {
	return m.folder
}

func (m *Message) Subject() string {
	return m.subject
}

// Date is the date of the Date header.
func (m *Message) Date() time.Time {
	return m.date
}

// InternalDate is the date the server received the message.
func (m *Message) InternalDate() time.Time {
	return m.internalDate
}

func (m *Message) From() []*mail.Address {
	return parseAddressList(m.from)
}

func (m *Message) To() []*mail.Address {
	return parseAddressList(m.to)
}

func (m *Message) Cc() []*mail.Address {
	return parseAddressList(m.cc)
}

func (m *Message) Bcc() []*mail.Address {
	return parseAddressList(m.bcc)
}

func (m *Message) ReplyTo() []*mail.Address {
	return parseAddressList(m.replyTo)
}

// MessageID is the Message-ID header of the message.
func (m *Message) MessageID() string {
	return m.messageID
}

func (m *Message) Flags() flags.List {
	return m.flags
}

func (m *Message) IsSet(flag flags.Flag) bool {
	return m.flags.Contains(flag)
}

func (m *Message) IsDeleted() bool {
	return m.deleted
}

func (m *Message) PreviewType() PreviewType {
	return m.previewType
}

func (m *Message) Preview() string {
	return m.preview
}

func (m *Message) AttachmentCount() int {
	return m.attachmentCount
}

func (m *Message) HasAttachments() bool {
	return m.attachmentCount > 0
}

func (m *Message) MimeType() string {
	return m.mimeType
}

// MessagePartID is the id of the root of the part tree, or zero if the message has no stored body.
func (m *Message) MessagePartID() int64 {
	return m.messagePartID
}

// ThreadID is the id of the message's thread node, or NoThread.
func (m *Message) ThreadID() int64 {
	return m.threadID
}

// RootID is the thread node id of the root of the message's thread, or NoThread.
func (m *Message) RootID() int64 {
	return m.rootID
}

// IsLocal returns whether the message has not been appended to the server yet.
func (m *Message) IsLocal() bool {
	return IsLocalUID(m.uid)
}

// SetFlag sets or clears a flag. Setting Deleted deletes the message.
func (m *Message) SetFlag(ctx context.Context, flag flags.Flag, set bool) error {
	return m.SetFlags(ctx, []flags.Flag{flag}, set)
}

// SetFlags sets or clears several flags at once.
func (m *Message) SetFlags(ctx context.Context, list []flags.Flag, set bool) error {
	var removed messageFiles

	if err := m.store().db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		files, err := m.setFlags(ctx, conn, list, set)
		if err != nil {
			return err
		}

		removed = files

		return nil
	}); err != nil {
		return storageError("set message flags", err)
	}

	m.store().removeFiles(removed)
	m.store().notifyChange()

	return nil
}

func (m *Message) setFlags(ctx context.Context, conn *db.Conn, list []flags.Flag, set bool) (messageFiles, error) {
	var removed messageFiles

	for _, flag := range list {
		if set && flags.Equal(flag, flags.Deleted) && !m.deleted {
			files, err := m.delete(ctx, conn)
			if err != nil {
				return messageFiles{}, err
			}

			// Other flags of a logically deleted message are meaningless.
			return files, nil
		}

		m.flags = m.flags.Set(flag, set)
	}

	query := "UPDATE `messages` SET `flags` = ?, `read` = ?, `flagged` = ?, `answered` = ?, `forwarded` = ? WHERE `id` = ?"

	if err := utils.ExecQueryAndCheckUpdatedNotZero(ctx, conn, query,
		nullString(serializeExtraFlags(m.flags)),
		m.flags.Contains(flags.Seen),
		m.flags.Contains(flags.Flagged),
		m.flags.Contains(flags.Answered),
		m.flags.Contains(flags.Forwarded),
		m.id,
	); err != nil {
		return messageFiles{}, err
	}

	return removed, nil
}

// Delete deletes the message logically: the row keeps its UID, so that a later sync knows not to download it
// again, but its content, flags and part tree are dropped.
func (m *Message) Delete(ctx context.Context) error {
	var removed messageFiles

	if err := m.store().db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		files, err := m.delete(ctx, conn)
		if err != nil {
			return err
		}

		removed = files

		return nil
	}); err != nil {
		return storageError("delete message", err)
	}

	m.store().removeFiles(removed)
	m.store().notifyChange()

	return nil
}

func (m *Message) delete(ctx context.Context, conn *db.Conn) (messageFiles, error) {
	files, err := collectMessageFiles(ctx, conn, []int64{m.id})
	if err != nil {
		return messageFiles{}, err
	}

	if m.messagePartID != 0 {
		if _, err := utils.ExecQuery(ctx, conn, "DELETE FROM `message_parts` WHERE `root` = ?", m.messagePartID); err != nil {
			return messageFiles{}, err
		}
	}

	query := "UPDATE `messages` SET `deleted` = 1, `subject` = NULL, `sender_list` = NULL, `date` = 0, " +
		"`to_list` = NULL, `cc_list` = NULL, `bcc_list` = NULL, `reply_to_list` = NULL, " +
		"`flags` = NULL, `read` = 0, `flagged` = 0, `answered` = 0, `forwarded` = 0, " +
		"`preview_type` = 'none', `preview` = NULL, `attachment_count` = 0, `mime_type` = NULL, " +
		"`message_part_id` = NULL WHERE `id` = ?"

	if err := utils.ExecQueryAndCheckUpdatedNotZero(ctx, conn, query, m.id); err != nil {
		return messageFiles{}, err
	}

	m.deleted = true
	m.subject = ""
	m.from, m.to, m.cc, m.bcc, m.replyTo = "", "", "", "", ""
	m.date = time.Time{}
	m.flags = flags.NewList(flags.Deleted)
	m.previewType = PreviewTypeNone
	m.preview = ""
	m.attachmentCount = 0
	m.mimeType = ""
	m.messagePartID = 0

	return files, nil
}

// Destroy removes the message row and its part tree. The thread structure is repaired by the folder.
func (m *Message) Destroy(ctx context.Context) error {
	return m.folder.destroyMessages(ctx, []*Message{m})
}

// LoadBody reads the part tree of the message. Bodies stored as files are opened lazily.
func (m *Message) LoadBody(ctx context.Context) (*mimepart.Tree, error) {
	if m.messagePartID == 0 {
		return nil, fmt.Errorf("%w: message %v has no stored body", ErrPartNotFound, m.id)
	}

	tree, err := db.ExecuteResult(ctx, m.store().db, false, func(ctx context.Context, conn *db.Conn) (*mimepart.Tree, error) {
		return m.store().loadPartTree(ctx, conn, m.messagePartID)
	})
	if err != nil {
		return nil, storageError("load message body", err)
	}

	return tree, nil
}

// WriteTo writes the message in its raw RFC 822 form, as it was stored.
func (m *Message) WriteTo(ctx context.Context, w io.Writer) error {
	tree, err := m.LoadBody(ctx)
	if err != nil {
		return err
	}

	return storageError("write message", mimepart.WriteTo(w, tree, 0))
}

// ContentIDMap maps the Content-IDs of the parts of the message to handles on their content.
func (m *Message) ContentIDMap(ctx context.Context) (map[string]mimepart.ContentHandle, error) {
	tree, err := m.LoadBody(ctx)
	if err != nil {
		return nil, err
	}

	return mimepart.BuildCIDMap(tree, 0, m.store().extractor), nil
}

func (m *Message) store() *Store {
	return m.folder.store
}

func parseAddressList(list string) []*mail.Address {
	if list == "" {
		return nil
	}

	addrs, err := mail.ParseAddressList(list)
	if err != nil {
		return nil
	}

	return addrs
}

func formatAddressList(addrs []*mail.Address) string {
	formatted := make([]string, 0, len(addrs))

	for _, addr := range addrs {
		formatted = append(formatted, addr.String())
	}

	return strings.Join(formatted, ", ")
}
