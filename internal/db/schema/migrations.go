package schema

import (
	"context"
	"fmt"

	"github.com/ProtonMail/localstore/internal/db/utils"
	"github.com/bradenaw/juniper/xmaps"
	"github.com/bradenaw/juniper/xslices"
	"github.com/sirupsen/logrus"
)

type Migration interface {
	Run(ctx context.Context, tx utils.QueryWrapper) error
}

// Migrations returns the migrations in version order. The index of a migration is the version it produces.
func Migrations() []Migration {
	return []Migration{
		MigrationV0{},
		MigrationV1{},
		MigrationV2{},
	}
}

// MigrationV0 creates the base tables that do not exist yet.
type MigrationV0 struct{}

func (MigrationV0) Run(ctx context.Context, tx utils.QueryWrapper) error {
	tables := []Table{
		&FoldersTable{},
		&MessagePartsTable{},
		&MessagesTable{},
		&ThreadsTable{},
		&VersionTable{},
	}

	return createMissingTables(ctx, tx, tables)
}

// MigrationV1 adds the incremental sync state of folders and the pending command queue.
type MigrationV1 struct{}

func (MigrationV1) Run(ctx context.Context, tx utils.QueryWrapper) error {
	query := fmt.Sprintf("ALTER TABLE %v ADD COLUMN `%v` text NOT NULL DEFAULT 'unknown'",
		FoldersTableName,
		FoldersFieldMoreMessages,
	)

	if _, err := utils.ExecQuery(ctx, tx, query); err != nil {
		return err
	}

	return createMissingTables(ctx, tx, []Table{&PendingCommandsTable{}})
}

// MigrationV2 adds the indices used by lookups and thread maintenance.
type MigrationV2 struct{}

func (MigrationV2) Run(ctx context.Context, tx utils.QueryWrapper) error {
	return execQueries(ctx, tx, []string{
		"CREATE INDEX IF NOT EXISTS `msg_folder_id_deleted_date` ON `messages` (`folder_id`, `deleted`, `internal_date`)",
		"CREATE INDEX IF NOT EXISTS `msg_message_id` ON `messages` (`message_id`, `folder_id`)",
		"CREATE INDEX IF NOT EXISTS `threads_message_id` ON `threads` (`message_id`)",
		"CREATE INDEX IF NOT EXISTS `threads_root` ON `threads` (`root`)",
		"CREATE INDEX IF NOT EXISTS `threads_parent` ON `threads` (`parent`)",
		"CREATE INDEX IF NOT EXISTS `message_parts_root` ON `message_parts` (`root`)",
	})
}

func createMissingTables(ctx context.Context, tx utils.QueryWrapper, tables []Table) error {
	tablesNames := xslices.Map(tables, func(t Table) string {
		return t.Name()
	})

	query := fmt.Sprintf("SELECT `name` FROM sqlite_master WHERE `type` = 'table' AND `name` NOT LIKE 'sqlite_%%' AND `name` IN (%v)",
		utils.GenSQLIn(len(tables)))

	sqlTables, err := utils.MapQueryRows[string](ctx, tx, query, utils.MapSliceToAny(tablesNames)...)
	if err != nil {
		return err
	}

	tablesSet := xmaps.SetFromSlice(sqlTables)

	for _, table := range tables {
		if !tablesSet.Contains(table.Name()) {
			logrus.Debugf("Table '%v' does not exist, creating", table.Name())

			if err := table.Create(ctx, tx); err != nil {
				return err
			}
		}
	}

	return nil
}
