package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ProtonMail/localstore/internal/db/schema"
	"github.com/ProtonMail/localstore/internal/db/utils"
	"github.com/sirupsen/logrus"
)

// Version is the schema version produced by the latest migration.
func Version() int {
	return len(schema.Migrations()) - 1
}

func RunMigrations(ctx context.Context, tx utils.QueryWrapper) error {
	migrations := schema.Migrations()

	dbVersion, err := getDatabaseVersion(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to get db version: %w", err)
	}

	if dbVersion > Version() {
		return fmt.Errorf("%w: found %v, expected at most %v", ErrInvalidDatabaseVersion, dbVersion, Version())
	}

	if dbVersion == Version() {
		logrus.Debugf("DB Version is %v, nothing to migrate", dbVersion)
		return nil
	}

	if dbVersion < 0 {
		logrus.Debug("Version table does not exist, running all migrations")
	} else {
		logrus.Debugf("DB Version is %v", dbVersion)
	}

	for i := dbVersion + 1; i < len(migrations); i++ {
		logrus.Debugf("Running migration for version %v", i)

		if err := migrations[i].Run(ctx, tx); err != nil {
			return fmt.Errorf("failed to run migration %v: %w", i, err)
		}
	}

	if err := updateDBVersion(ctx, tx, Version()); err != nil {
		return fmt.Errorf("failed to update db version: %w", err)
	}

	logrus.Debug("Migrations completed")

	return nil
}

// getDatabaseVersion returns -1 if the version table does not exist or the version information contained within.
func getDatabaseVersion(ctx context.Context, tx utils.QueryWrapper) (int, error) {
	query := "SELECT `name` FROM sqlite_master WHERE `type` = 'table' AND `name` = ?"

	if _, err := utils.MapQueryRow[string](ctx, tx, query, schema.VersionTableName); err != nil {
		if errors.Is(err, ErrNotFound) {
			return -1, nil
		}

		return 0, err
	}

	versionQuery := fmt.Sprintf("SELECT `%v` FROM %v WHERE `%v` = 0",
		schema.VersionFieldVersion,
		schema.VersionTableName,
		schema.VersionFieldID,
	)

	return utils.MapQueryRow[int](ctx, tx, versionQuery)
}

func updateDBVersion(ctx context.Context, tx utils.QueryWrapper, version int) error {
	query := fmt.Sprintf("UPDATE %v SET `%v` = ? WHERE `%v` = 0",
		schema.VersionTableName,
		schema.VersionFieldVersion,
		schema.VersionFieldID,
	)

	_, err := utils.ExecQuery(ctx, tx, query, version)

	return err
}
