package localstore

import (
	"context"
	"fmt"

	"github.com/ProtonMail/localstore/async"
	"github.com/ProtonMail/localstore/events"
	"github.com/ProtonMail/localstore/flags"
	"github.com/ProtonMail/localstore/internal/db"
	"github.com/ProtonMail/localstore/internal/fulltext"
	"github.com/ProtonMail/localstore/mimepart"
	"github.com/ProtonMail/localstore/reporter"
	"github.com/ProtonMail/localstore/store"
	"github.com/ProtonMail/localstore/watcher"
	"github.com/sirupsen/logrus"
)

// DefaultMaxInlineBodySize is the size above which part bodies are stored as files.
const DefaultMaxInlineBodySize = 32 * 1024

type storeBuilder struct {
	dir       string
	accountID string

	debug             bool
	registry          *flags.Registry
	reporter          reporter.Reporter
	maxInlineBodySize int64
	storeBuilder      store.Builder
	fulltext          bool
	serializer        PendingCommandSerializer
	extractor         mimepart.AttachmentInfoExtractor
	panicHandler      async.PanicHandler
}

func newBuilder(dir, accountID string) *storeBuilder {
	return &storeBuilder{
		dir:               dir,
		accountID:         accountID,
		reporter:          reporter.NullReporter{},
		maxInlineBodySize: DefaultMaxInlineBodySize,
		storeBuilder:      store.NewOnDiskStoreBuilder(),
		fulltext:          true,
		serializer:        StructSerializer{},
		extractor:         mimepart.DefaultExtractor{AccountID: accountID},
		panicHandler:      async.NoopPanicHandler{},
	}
}

func (builder *storeBuilder) build(ctx context.Context) (*Store, error) {
	if builder.accountID == "" {
		return nil, fmt.Errorf("account id must not be empty")
	}

	if builder.registry == nil {
		builder.registry = flags.NewRegistry()
	}

	dbOpts := []db.Option{db.WithReporter(builder.reporter)}

	if builder.debug {
		dbOpts = append(dbOpts, db.Debug())
	}

	database := db.New(builder.dir, builder.accountID, dbOpts...)

	if err := database.Open(ctx); err != nil {
		return nil, storageError("open database", err)
	}

	attachments, err := builder.storeBuilder.New(database.AttachmentDir())
	if err != nil {
		closeDatabase(database)
		return nil, storageError("open attachment store", err)
	}

	var index *fulltext.Index

	if builder.fulltext {
		if index, err = fulltext.Open(fulltextDir(database)); err != nil {
			closeDatabase(database)
			return nil, storageError("open full-text index", err)
		}
	}

	return &Store{
		accountID:         builder.accountID,
		db:                database,
		attachments:       store.NewWriteControlledStore(attachments),
		attachmentBuilder: builder.storeBuilder,
		fulltext:          index,
		registry:          builder.registry,
		reporter:          builder.reporter,
		serializer:        builder.serializer,
		extractor:         builder.extractor,
		maxInlineBodySize: builder.maxInlineBodySize,
		panicHandler:      builder.panicHandler,
		watchers:          make(map[<-chan events.Event]*watcher.Watcher[events.Event]),
		log:               logrus.WithField("account", builder.accountID),
	}, nil
}

func fulltextDir(database *db.Database) string {
	return database.Path() + "_fts"
}

func closeDatabase(database *db.Database) {
	if err := database.Close(); err != nil {
		logrus.WithError(err).Error("Failed to close database")
	}
}
