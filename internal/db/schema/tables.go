package schema

import (
	"context"

	"github.com/ProtonMail/localstore/internal/db/utils"
)

type Table interface {
	Name() string
	Create(ctx context.Context, tx utils.QueryWrapper) error
}

func execQueries(ctx context.Context, tx utils.QueryWrapper, queries []string) error {
	for _, q := range queries {
		if _, err := utils.ExecQuery(ctx, tx, q); err != nil {
			return err
		}
	}

	return nil
}

type FoldersTable struct{}

func (FoldersTable) Name() string {
	return FoldersTableName
}

func (FoldersTable) Create(ctx context.Context, tx utils.QueryWrapper) error {
	queries := []string{
		"CREATE TABLE `folders` (" +
			"`id` integer NOT NULL PRIMARY KEY AUTOINCREMENT, " +
			"`name` text NOT NULL, " +
			"`server_id` text NULL, " +
			"`type` text NOT NULL DEFAULT 'regular', " +
			"`local_only` bool NOT NULL DEFAULT false, " +
			"`visible_limit` integer NOT NULL DEFAULT 25, " +
			"`sync_enabled` bool NOT NULL DEFAULT true, " +
			"`push_enabled` bool NOT NULL DEFAULT false, " +
			"`last_updated` integer NOT NULL DEFAULT 0, " +
			"`status` text NULL)",
		"CREATE UNIQUE INDEX `folders_name_key` ON `folders` (`name`)",
	}

	return execQueries(ctx, tx, queries)
}

type MessagesTable struct{}

func (MessagesTable) Name() string {
	return MessagesTableName
}

func (MessagesTable) Create(ctx context.Context, tx utils.QueryWrapper) error {
	queries := []string{
		"CREATE TABLE `messages` (" +
			"`id` integer NOT NULL PRIMARY KEY AUTOINCREMENT, " +
			"`folder_id` integer NOT NULL REFERENCES `folders` (`id`) ON DELETE CASCADE, " +
			"`uid` text NULL, " +
			"`deleted` bool NOT NULL DEFAULT false, " +
			"`empty` bool NOT NULL DEFAULT false, " +
			"`subject` text NULL, " +
			"`date` integer NOT NULL DEFAULT 0, " +
			"`internal_date` integer NOT NULL DEFAULT 0, " +
			"`sender_list` text NULL, " +
			"`to_list` text NULL, " +
			"`cc_list` text NULL, " +
			"`bcc_list` text NULL, " +
			"`reply_to_list` text NULL, " +
			"`message_id` text NULL, " +
			"`flags` text NULL, " +
			"`read` bool NOT NULL DEFAULT false, " +
			"`flagged` bool NOT NULL DEFAULT false, " +
			"`answered` bool NOT NULL DEFAULT false, " +
			"`forwarded` bool NOT NULL DEFAULT false, " +
			"`preview_type` text NOT NULL DEFAULT 'none', " +
			"`preview` text NULL, " +
			"`attachment_count` integer NOT NULL DEFAULT 0, " +
			"`mime_type` text NULL, " +
			"`message_part_id` integer NULL)",
		"CREATE UNIQUE INDEX `messages_folder_uid_key` ON `messages` (`folder_id`, `uid`)",
		"CREATE TRIGGER `delete_message_parts` BEFORE DELETE ON `messages` BEGIN " +
			"DELETE FROM `message_parts` WHERE `root` = OLD.`message_part_id`; END",
	}

	return execQueries(ctx, tx, queries)
}

type ThreadsTable struct{}

func (ThreadsTable) Name() string {
	return ThreadsTableName
}

func (ThreadsTable) Create(ctx context.Context, tx utils.QueryWrapper) error {
	queries := []string{
		"CREATE TABLE `threads` (" +
			"`id` integer NOT NULL PRIMARY KEY AUTOINCREMENT, " +
			"`message_id` integer NOT NULL REFERENCES `messages` (`id`) ON DELETE CASCADE, " +
			"`root` integer NULL, " +
			"`parent` integer NULL)",
	}

	return execQueries(ctx, tx, queries)
}

type MessagePartsTable struct{}

func (MessagePartsTable) Name() string {
	return MessagePartsTableName
}

func (MessagePartsTable) Create(ctx context.Context, tx utils.QueryWrapper) error {
	queries := []string{
		"CREATE TABLE `message_parts` (" +
			"`id` integer NOT NULL PRIMARY KEY AUTOINCREMENT, " +
			"`type` integer NOT NULL DEFAULT 0, " +
			"`root` integer NULL, " +
			"`parent` integer NOT NULL DEFAULT -1, " +
			"`seq` integer NOT NULL DEFAULT 0, " +
			"`mime_type` text NULL, " +
			"`decoded_body_size` integer NULL, " +
			"`display_name` text NULL, " +
			"`header` blob NULL, " +
			"`encoding` text NULL, " +
			"`charset` text NULL, " +
			"`data_location` integer NOT NULL DEFAULT 0, " +
			"`data` blob NULL, " +
			"`preamble` blob NULL, " +
			"`epilogue` blob NULL, " +
			"`boundary` text NULL, " +
			"`content_id` text NULL, " +
			"`server_extra` text NULL)",
	}

	return execQueries(ctx, tx, queries)
}

type VersionTable struct{}

func (VersionTable) Name() string {
	return VersionTableName
}

func (VersionTable) Create(ctx context.Context, tx utils.QueryWrapper) error {
	queries := []string{
		"CREATE TABLE `localstore_version` (`id` integer NOT NULL PRIMARY KEY, `version` integer NOT NULL)",
		"INSERT INTO `localstore_version` (`id`, `version`) VALUES (0, 0)",
	}

	return execQueries(ctx, tx, queries)
}

type PendingCommandsTable struct{}

func (PendingCommandsTable) Name() string {
	return PendingCommandsTableName
}

func (PendingCommandsTable) Create(ctx context.Context, tx utils.QueryWrapper) error {
	queries := []string{
		"CREATE TABLE `pending_commands` (" +
			"`id` integer NOT NULL PRIMARY KEY AUTOINCREMENT, " +
			"`command` text NOT NULL, " +
			"`data` blob NULL)",
	}

	return execQueries(ctx, tx, queries)
}
