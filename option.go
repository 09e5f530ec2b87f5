package localstore

import (
	"github.com/ProtonMail/localstore/async"
	"github.com/ProtonMail/localstore/flags"
	"github.com/ProtonMail/localstore/mimepart"
	"github.com/ProtonMail/localstore/reporter"
	"github.com/ProtonMail/localstore/store"
)

// Option represents a type that can be used to configure the store.
type Option interface {
	config(*storeBuilder)
}

// WithDebug logs every SQL statement and its arguments at debug level.
func WithDebug() Option {
	return &withDebug{}
}

type withDebug struct{}

func (withDebug) config(builder *storeBuilder) {
	builder.debug = true
}

// WithRegistry resolves flags through the given registry instead of a registry private to the store.
// Stores of several accounts may share one.
func WithRegistry(registry *flags.Registry) Option {
	return &withRegistry{registry: registry}
}

type withRegistry struct {
	registry *flags.Registry
}

func (opt withRegistry) config(builder *storeBuilder) {
	builder.registry = opt.registry
}

// WithReporter reports failed commits and data integrity faults.
func WithReporter(reporter reporter.Reporter) Option {
	return &withReporter{reporter: reporter}
}

type withReporter struct {
	reporter reporter.Reporter
}

func (opt withReporter) config(builder *storeBuilder) {
	builder.reporter = opt.reporter
}

// WithMaxInlineBodySize sets the size above which part bodies are written to the attachment directory
// instead of the database.
func WithMaxInlineBodySize(size int64) Option {
	return &withMaxInlineBodySize{size: size}
}

type withMaxInlineBodySize struct {
	size int64
}

func (opt withMaxInlineBodySize) config(builder *storeBuilder) {
	builder.maxInlineBodySize = opt.size
}

// WithAttachmentSemaphore limits the number of concurrent attachment file operations.
func WithAttachmentSemaphore(sem *store.Semaphore) Option {
	return &withAttachmentSemaphore{sem: sem}
}

type withAttachmentSemaphore struct {
	sem *store.Semaphore
}

func (opt withAttachmentSemaphore) config(builder *storeBuilder) {
	builder.storeBuilder = store.NewOnDiskStoreBuilder(store.WithSemaphore(opt.sem))
}

// WithAttachmentStore stores attachment bodies with the given builder. It replaces WithAttachmentSemaphore.
func WithAttachmentStore(builder store.Builder) Option {
	return &withAttachmentStore{builder: builder}
}

type withAttachmentStore struct {
	builder store.Builder
}

func (opt withAttachmentStore) config(builder *storeBuilder) {
	builder.storeBuilder = opt.builder
}

// WithFulltext enables or disables the full-text index of message contents. It is enabled by default.
func WithFulltext(enabled bool) Option {
	return &withFulltext{enabled: enabled}
}

type withFulltext struct {
	enabled bool
}

func (opt withFulltext) config(builder *storeBuilder) {
	builder.fulltext = opt.enabled
}

// WithPendingCommandSerializer encodes pending command payloads with the given serializer.
func WithPendingCommandSerializer(serializer PendingCommandSerializer) Option {
	return &withPendingCommandSerializer{serializer: serializer}
}

type withPendingCommandSerializer struct {
	serializer PendingCommandSerializer
}

func (opt withPendingCommandSerializer) config(builder *storeBuilder) {
	builder.serializer = opt.serializer
}

// WithAttachmentInfoExtractor resolves the content handles of Content-ID maps with the given extractor.
func WithAttachmentInfoExtractor(extractor mimepart.AttachmentInfoExtractor) Option {
	return &withAttachmentInfoExtractor{extractor: extractor}
}

type withAttachmentInfoExtractor struct {
	extractor mimepart.AttachmentInfoExtractor
}

func (opt withAttachmentInfoExtractor) config(builder *storeBuilder) {
	builder.extractor = opt.extractor
}

// WithPanicHandler sets the handler of panics in the goroutines delivering change notifications.
func WithPanicHandler(panicHandler async.PanicHandler) Option {
	return &withPanicHandler{panicHandler: panicHandler}
}

type withPanicHandler struct {
	panicHandler async.PanicHandler
}

func (opt withPanicHandler) config(builder *storeBuilder) {
	builder.panicHandler = opt.panicHandler
}
