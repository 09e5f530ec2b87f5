package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ProtonMail/localstore/internal/db"
	"github.com/ProtonMail/localstore/internal/db/schema"
	"github.com/ProtonMail/localstore/internal/db/utils"
)

type FolderType string

const (
	FolderTypeRegular FolderType = "regular"
	FolderTypeInbox   FolderType = "inbox"
	FolderTypeOutbox  FolderType = "outbox"
	FolderTypeDrafts  FolderType = "drafts"
	FolderTypeSent    FolderType = "sent"
	FolderTypeTrash   FolderType = "trash"
	FolderTypeSpam    FolderType = "spam"
	FolderTypeArchive FolderType = "archive"
)

// MoreMessages says whether the server holds messages older than those synced so far.
type MoreMessages string

const (
	MoreMessagesUnknown MoreMessages = "unknown"
	MoreMessagesTrue    MoreMessages = "true"
	MoreMessagesFalse   MoreMessages = "false"
)

// DefaultVisibleLimit is the number of messages synced for a new folder.
const DefaultVisibleLimit = 25

// FolderSpec describes a folder to create.
type FolderSpec struct {
	Name         string
	ServerID     string
	Type         FolderType
	LocalOnly    bool
	VisibleLimit int
	SyncEnabled  bool
	PushEnabled  bool
}

// Folder is a folder of the store. Its fields reflect the row as of the last Open or setter call.
type Folder struct {
	store *Store

	id           int64
	name         string
	serverID     string
	typ          FolderType
	localOnly    bool
	visibleLimit int
	syncEnabled  bool
	pushEnabled  bool
	lastUpdated  time.Time
	status       string
	moreMessages MoreMessages
}

type folderRow struct {
	ID           int64          `db:"id"`
	Name         string         `db:"name"`
	ServerID     sql.NullString `db:"server_id"`
	Type         string         `db:"type"`
	LocalOnly    bool           `db:"local_only"`
	VisibleLimit int            `db:"visible_limit"`
	SyncEnabled  bool           `db:"sync_enabled"`
	PushEnabled  bool           `db:"push_enabled"`
	LastUpdated  int64          `db:"last_updated"`
	Status       sql.NullString `db:"status"`
	MoreMessages string         `db:"more_messages"`
}

var folderColumns = fmt.Sprintf("`%v`, `%v`, `%v`, `%v`, `%v`, `%v`, `%v`, `%v`, `%v`, `%v`, `%v`",
	schema.FoldersFieldID,
	schema.FoldersFieldName,
	schema.FoldersFieldServerID,
	schema.FoldersFieldType,
	schema.FoldersFieldLocalOnly,
	schema.FoldersFieldVisibleLimit,
	schema.FoldersFieldSyncEnabled,
	schema.FoldersFieldPushEnabled,
	schema.FoldersFieldLastUpdated,
	schema.FoldersFieldStatus,
	schema.FoldersFieldMoreMessages,
)

// GetFolder returns the folder with the given name. It is not read from the database until opened.
func (s *Store) GetFolder(name string) *Folder {
	return &Folder{
		store:        s,
		name:         name,
		typ:          FolderTypeRegular,
		visibleLimit: DefaultVisibleLimit,
		syncEnabled:  true,
		moreMessages: MoreMessagesUnknown,
	}
}

// GetFolderByID returns the opened folder with the given database id.
func (s *Store) GetFolderByID(ctx context.Context, id int64) (*Folder, error) {
	folder, err := db.ExecuteResult(ctx, s.db, false, func(ctx context.Context, conn *db.Conn) (*Folder, error) {
		return s.getFolderByID(ctx, conn, id)
	})
	if err != nil {
		return nil, storageError("get folder", err)
	}

	return folder, nil
}

// GetPersonalNamespaces returns every folder, opened, ordered by name.
func (s *Store) GetPersonalNamespaces(ctx context.Context) ([]*Folder, error) {
	folders, err := db.ExecuteResult(ctx, s.db, false, func(ctx context.Context, conn *db.Conn) ([]*Folder, error) {
		query := fmt.Sprintf("SELECT %v FROM %v ORDER BY `%v` ASC", folderColumns, schema.FoldersTableName, schema.FoldersFieldName)

		rows, err := utils.Select[folderRow](ctx, conn, query)
		if err != nil {
			return nil, err
		}

		folders := make([]*Folder, 0, len(rows))

		for _, row := range rows {
			folders = append(folders, s.newFolder(row))
		}

		return folders, nil
	})
	if err != nil {
		return nil, storageError("list folders", err)
	}

	return folders, nil
}

// CreateFolder creates a folder and returns it opened. It fails with ErrFolderExists if the name is taken.
func (s *Store) CreateFolder(ctx context.Context, spec FolderSpec) (*Folder, error) {
	folder := s.GetFolder(spec.Name)

	if spec.ServerID != "" {
		folder.serverID = spec.ServerID
	}

	if spec.Type != "" {
		folder.typ = spec.Type
	}

	if spec.VisibleLimit > 0 {
		folder.visibleLimit = spec.VisibleLimit
	}

	folder.localOnly = spec.LocalOnly
	folder.syncEnabled = spec.SyncEnabled
	folder.pushEnabled = spec.PushEnabled

	if err := folder.Create(ctx); err != nil {
		return nil, err
	}

	return folder, nil
}

// CreateLocalFolder creates a folder that exists only on this device.
func (s *Store) CreateLocalFolder(ctx context.Context, name string, typ FolderType) (*Folder, error) {
	return s.CreateFolder(ctx, FolderSpec{Name: name, Type: typ, LocalOnly: true})
}

func (s *Store) newFolder(row folderRow) *Folder {
	f := &Folder{store: s}
	f.apply(row)

	return f
}

func (s *Store) getFolderByID(ctx context.Context, conn *db.Conn, id int64) (*Folder, error) {
	query := fmt.Sprintf("SELECT %v FROM %v WHERE `%v` = ?", folderColumns, schema.FoldersTableName, schema.FoldersFieldID)

	row, err := utils.Get[folderRow](ctx, conn, query, id)
	if db.IsErrNotFound(err) {
		return nil, fmt.Errorf("%w: id %v", ErrFolderNotFound, id)
	} else if err != nil {
		return nil, err
	}

	return s.newFolder(row), nil
}

// getFolders returns the folders with the given ids, keyed by id.
func (s *Store) getFolders(ctx context.Context, conn *db.Conn, ids []int64) (map[int64]*Folder, error) {
	folders := make(map[int64]*Folder, len(ids))

	for _, id := range ids {
		if _, ok := folders[id]; ok {
			continue
		}

		folder, err := s.getFolderByID(ctx, conn, id)
		if err != nil {
			return nil, err
		}

		folders[id] = folder
	}

	return folders, nil
}

func (f *Folder) apply(row folderRow) {
	f.id = row.ID
	f.name = row.Name
	f.serverID = row.ServerID.String
	f.typ = FolderType(row.Type)
	f.localOnly = row.LocalOnly
	f.visibleLimit = row.VisibleLimit
	f.syncEnabled = row.SyncEnabled
	f.pushEnabled = row.PushEnabled
	f.lastUpdated = fromMillis(row.LastUpdated)
	f.status = row.Status.String
	f.moreMessages = MoreMessages(row.MoreMessages)
}

func (f *Folder) ID() int64 {
	return f.id
}

func (f *Folder) Name() string {
	return f.name
}

func (f *Folder) ServerID() string {
	return f.serverID
}

func (f *Folder) Type() FolderType {
	return f.typ
}

func (f *Folder) IsLocalOnly() bool {
	return f.localOnly
}

func (f *Folder) VisibleLimit() int {
	return f.visibleLimit
}

func (f *Folder) SyncEnabled() bool {
	return f.syncEnabled
}

func (f *Folder) PushEnabled() bool {
	return f.pushEnabled
}

func (f *Folder) LastChecked() time.Time {
	return f.lastUpdated
}

func (f *Folder) Status() string {
	return f.status
}

func (f *Folder) MoreMessages() MoreMessages {
	return f.moreMessages
}

func (f *Folder) IsOpen() bool {
	return f.id != 0
}

// Open reads the folder row. It fails with ErrFolderNotFound if there is none.
func (f *Folder) Open(ctx context.Context) error {
	return storageError("open folder", f.store.db.Execute(ctx, false, func(ctx context.Context, conn *db.Conn) error {
		return f.open(ctx, conn)
	}))
}

func (f *Folder) open(ctx context.Context, conn *db.Conn) error {
	var (
		query string
		arg   any
	)

	if f.id != 0 {
		query = fmt.Sprintf("SELECT %v FROM %v WHERE `%v` = ?", folderColumns, schema.FoldersTableName, schema.FoldersFieldID)
		arg = f.id
	} else {
		query = fmt.Sprintf("SELECT %v FROM %v WHERE `%v` = ?", folderColumns, schema.FoldersTableName, schema.FoldersFieldName)
		arg = f.name
	}

	row, err := utils.Get[folderRow](ctx, conn, query, arg)
	if db.IsErrNotFound(err) {
		return fmt.Errorf("%w: %v", ErrFolderNotFound, f.name)
	} else if err != nil {
		return err
	}

	f.apply(row)

	return nil
}

// ensureOpen opens the folder unless it already is.
func (f *Folder) ensureOpen(ctx context.Context, conn *db.Conn) error {
	if f.id != 0 {
		return nil
	}

	return f.open(ctx, conn)
}

// Exists returns whether a folder with this name exists.
func (f *Folder) Exists(ctx context.Context) (bool, error) {
	exists, err := db.ExecuteResult(ctx, f.store.db, false, func(ctx context.Context, conn *db.Conn) (bool, error) {
		query := fmt.Sprintf("SELECT 1 FROM %v WHERE `%v` = ?", schema.FoldersTableName, schema.FoldersFieldName)

		return utils.QueryExists(ctx, conn, query, f.name)
	})
	if err != nil {
		return false, storageError("folder exists", err)
	}

	return exists, nil
}

// Create inserts the folder with its current settings.
func (f *Folder) Create(ctx context.Context) error {
	if err := f.store.db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		exists, err := utils.QueryExists(ctx, conn,
			fmt.Sprintf("SELECT 1 FROM %v WHERE `%v` = ?", schema.FoldersTableName, schema.FoldersFieldName),
			f.name,
		)
		if err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: %v", ErrFolderExists, f.name)
		}

		query := fmt.Sprintf("INSERT INTO %v (`%v`, `%v`, `%v`, `%v`, `%v`, `%v`, `%v`, `%v`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			schema.FoldersTableName,
			schema.FoldersFieldName,
			schema.FoldersFieldServerID,
			schema.FoldersFieldType,
			schema.FoldersFieldLocalOnly,
			schema.FoldersFieldVisibleLimit,
			schema.FoldersFieldSyncEnabled,
			schema.FoldersFieldPushEnabled,
			schema.FoldersFieldMoreMessages,
		)

		id, err := utils.ExecInsert(ctx, conn, query,
			f.name,
			nullString(f.serverID),
			string(f.typ),
			f.localOnly,
			f.visibleLimit,
			f.syncEnabled,
			f.pushEnabled,
			string(f.moreMessages),
		)
		if err != nil {
			return err
		}

		f.id = id

		return nil
	}); err != nil {
		return storageError("create folder", err)
	}

	f.store.notifyFolderChange()

	return nil
}

// Delete removes the folder together with its messages, their part trees and attachment files.
func (f *Folder) Delete(ctx context.Context) error {
	var removed messageFiles

	if err := f.store.db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		if err := f.ensureOpen(ctx, conn); err != nil {
			return err
		}

		files, err := collectFolderFiles(ctx, conn, f.id)
		if err != nil {
			return err
		}

		query := fmt.Sprintf("DELETE FROM %v WHERE `%v` = ?", schema.FoldersTableName, schema.FoldersFieldID)

		if err := utils.ExecQueryAndCheckUpdatedNotZero(ctx, conn, query, f.id); err != nil {
			return err
		}

		removed = files

		return nil
	}); err != nil {
		return storageError("delete folder", err)
	}

	f.store.removeFiles(removed)
	f.id = 0

	f.store.notifyFolderChange()
	f.store.notifyChange()

	return nil
}

// Rename changes the name of the folder.
func (f *Folder) Rename(ctx context.Context, name string) error {
	if err := f.store.db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		if err := f.ensureOpen(ctx, conn); err != nil {
			return err
		}

		exists, err := utils.QueryExists(ctx, conn,
			fmt.Sprintf("SELECT 1 FROM %v WHERE `%v` = ? AND `%v` != ?", schema.FoldersTableName, schema.FoldersFieldName, schema.FoldersFieldID),
			name, f.id,
		)
		if err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: %v", ErrFolderExists, name)
		}

		query := fmt.Sprintf("UPDATE %v SET `%v` = ? WHERE `%v` = ?", schema.FoldersTableName, schema.FoldersFieldName, schema.FoldersFieldID)

		return utils.ExecQueryAndCheckUpdatedNotZero(ctx, conn, query, name, f.id)
	}); err != nil {
		return storageError("rename folder", err)
	}

	f.name = name

	f.store.notifyFolderChange()

	return nil
}

// GetMessageCount returns the number of messages of the folder that are neither placeholders nor deleted.
func (f *Folder) GetMessageCount(ctx context.Context) (int, error) {
	return f.count(ctx, "")
}

func (f *Folder) GetUnreadMessageCount(ctx context.Context) (int, error) {
	return f.count(ctx, "AND `read` = 0")
}

func (f *Folder) GetFlaggedMessageCount(ctx context.Context) (int, error) {
	return f.count(ctx, "AND `flagged` = 1")
}

func (f *Folder) count(ctx context.Context, filter string) (int, error) {
	count, err := db.ExecuteResult(ctx, f.store.db, false, func(ctx context.Context, conn *db.Conn) (int, error) {
		if err := f.ensureOpen(ctx, conn); err != nil {
			return 0, err
		}

		query := fmt.Sprintf("SELECT COUNT(*) FROM %v WHERE `%v` = ? AND `%v` = 0 AND `%v` = 0 %v",
			schema.MessagesTableName,
			schema.MessagesFieldFolderID,
			schema.MessagesFieldEmpty,
			schema.MessagesFieldDeleted,
			filter,
		)

		return utils.MapQueryRow[int](ctx, conn, query, f.id)
	})
	if err != nil {
		return 0, storageError("count messages", err)
	}

	return count, nil
}

func (f *Folder) SetVisibleLimit(ctx context.Context, limit int) error {
	if err := f.update(ctx, schema.FoldersFieldVisibleLimit, limit); err != nil {
		return err
	}

	f.visibleLimit = limit

	return nil
}

func (f *Folder) SetMoreMessages(ctx context.Context, more MoreMessages) error {
	if err := f.update(ctx, schema.FoldersFieldMoreMessages, string(more)); err != nil {
		return err
	}

	f.moreMessages = more

	return nil
}

// SetLastChecked records when the folder was last synchronised.
func (f *Folder) SetLastChecked(ctx context.Context, t time.Time) error {
	if err := f.update(ctx, schema.FoldersFieldLastUpdated, toMillis(t)); err != nil {
		return err
	}

	f.lastUpdated = fromMillis(toMillis(t))

	return nil
}

// SetStatus records a human readable sync status, such as the last error. An empty status clears it.
func (f *Folder) SetStatus(ctx context.Context, status string) error {
	if err := f.update(ctx, schema.FoldersFieldStatus, nullString(status)); err != nil {
		return err
	}

	f.status = status

	return nil
}

func (f *Folder) SetSyncEnabled(ctx context.Context, enabled bool) error {
	if err := f.update(ctx, schema.FoldersFieldSyncEnabled, enabled); err != nil {
		return err
	}

	f.syncEnabled = enabled

	return nil
}

func (f *Folder) SetPushEnabled(ctx context.Context, enabled bool) error {
	if err := f.update(ctx, schema.FoldersFieldPushEnabled, enabled); err != nil {
		return err
	}

	f.pushEnabled = enabled

	return nil
}

func (f *Folder) update(ctx context.Context, column string, value any) error {
	return storageError("update folder", f.store.db.Execute(ctx, true, func(ctx context.Context, conn *db.Conn) error {
		if err := f.ensureOpen(ctx, conn); err != nil {
			return err
		}

		query := fmt.Sprintf("UPDATE %v SET `%v` = ? WHERE `%v` = ?", schema.FoldersTableName, column, schema.FoldersFieldID)

		return utils.ExecQueryAndCheckUpdatedNotZero(ctx, conn, query, value, f.id)
	}))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms)
}
