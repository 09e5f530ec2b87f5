// Package localstore persists the mail of one account: folders, messages with their MIME part trees, threads,
// flags and the queue of commands still to be replayed against the server.
//
// A Store owns a SQLite database and an attachment directory. All statements go through a single connection;
// bulk operations run in batches, each committed on its own.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

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

// Store is the local store of one account.
type Store struct {
	accountID string

	db                *db.Database
	attachments       *store.WriteControlledStore
	attachmentBuilder store.Builder
	fulltext          *fulltext.Index

	registry          *flags.Registry
	reporter          reporter.Reporter
	serializer        PendingCommandSerializer
	extractor         mimepart.AttachmentInfoExtractor
	maxInlineBodySize int64
	panicHandler      async.PanicHandler

	watchers     map[<-chan events.Event]*watcher.Watcher[events.Event]
	watchersLock sync.RWMutex

	log *logrus.Entry
}

// New opens the store of the account kept in dir, creating and migrating it as needed.
func New(ctx context.Context, dir, accountID string, opts ...Option) (*Store, error) {
	builder := newBuilder(dir, accountID)

	for _, opt := range opts {
		opt.config(builder)
	}

	return builder.build(ctx)
}

func (s *Store) AccountID() string {
	return s.accountID
}

// Registry returns the flag registry used to resolve stored flag codes.
func (s *Store) Registry() *flags.Registry {
	return s.registry
}

// Close releases the database, the attachment store and the full-text index, and closes all watchers.
func (s *Store) Close() error {
	s.closeWatchers()

	var errs []error

	if s.fulltext != nil {
		if err := s.fulltext.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close full-text index: %w", err))
		}
	}

	if err := s.attachments.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close attachment store: %w", err))
	}

	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}

	return errors.Join(errs...)
}

// Delete removes every file of the store. Failures are logged and do not stop the remaining steps.
// The store cannot be used afterwards except to be closed.
func (s *Store) Delete() {
	if s.fulltext != nil {
		if err := s.fulltext.Close(); err != nil {
			s.log.WithError(err).Warn("Failed to close full-text index")
		}

		if err := fulltext.Delete(fulltextDir(s.db)); err != nil {
			s.log.WithError(err).Warn("Failed to delete full-text index")
		}

		s.fulltext = nil
	}

	if err := s.attachments.Close(); err != nil {
		s.log.WithError(err).Warn("Failed to close attachment store")
	}

	if err := s.attachmentBuilder.Delete(s.db.AttachmentDir()); err != nil {
		s.log.WithError(err).Warn("Failed to delete attachment store")
	}

	s.db.Delete()

	s.publish(events.NewStoreDeleted(s.accountID))
}

// Compact rebuilds the database file to reclaim unused space.
func (s *Store) Compact(ctx context.Context) error {
	s.log.Info("Compacting database")

	return storageError("compact", s.db.Execute(ctx, false, func(ctx context.Context, conn *db.Conn) error {
		_, err := conn.ExecContext(ctx, "VACUUM")
		return err
	}))
}

// GetSize returns the number of bytes used by the database and the attachment files.
func (s *Store) GetSize() (int64, error) {
	dbSize, err := s.db.Size()
	if err != nil {
		return 0, storageError("database size", err)
	}

	attSize, err := s.attachments.Size()
	if err != nil {
		return 0, storageError("attachment size", err)
	}

	return dbSize + attSize, nil
}

// AddWatcher returns a channel on which the store's change notifications are delivered.
// Without types, every notification is delivered.
func (s *Store) AddWatcher(ofType ...events.Event) <-chan events.Event {
	s.watchersLock.Lock()
	defer s.watchersLock.Unlock()

	w := watcher.New[events.Event](s.panicHandler, ofType...)

	s.watchers[w.GetChannel()] = w

	return w.GetChannel()
}

// RemoveWatcher stops the delivery of notifications on a channel returned by AddWatcher.
func (s *Store) RemoveWatcher(ch <-chan events.Event) {
	s.watchersLock.Lock()
	w, ok := s.watchers[ch]
	delete(s.watchers, ch)
	s.watchersLock.Unlock()

	if ok {
		w.Close()
	}
}

func (s *Store) publish(event events.Event) {
	s.watchersLock.RLock()
	defer s.watchersLock.RUnlock()

	for _, w := range s.watchers {
		if !w.IsWatching(event) {
			continue
		}

		if !w.Send(event) {
			s.log.WithField("event", fmt.Sprintf("%T", event)).Warn("Failed to send event to watcher")
		}
	}
}

// notifyChange tells watchers that the message list of the account changed.
func (s *Store) notifyChange() {
	s.publish(events.NewMessageListChanged(s.accountID))
}

func (s *Store) notifyFolderChange() {
	s.publish(events.NewFolderListChanged(s.accountID))
}

func (s *Store) closeWatchers() {
	s.watchersLock.Lock()
	watchers := s.watchers
	s.watchers = make(map[<-chan events.Event]*watcher.Watcher[events.Event])
	s.watchersLock.Unlock()

	for _, w := range watchers {
		w.Close()
	}
}

// reportIntegrity tells the reporter about rows that should exist but do not.
func (s *Store) reportIntegrity(err error, context reporter.Context) {
	s.log.WithError(err).WithFields(logrus.Fields(context)).Error("Data integrity fault")

	if rerr := s.reporter.ReportExceptionWithContext(err, context); rerr != nil {
		s.log.WithError(rerr).Error("Failed to report integrity fault")
	}
}
