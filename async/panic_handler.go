package async

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

type PanicHandler interface {
	HandlePanic(r any)
}

// NoopPanicHandler does not recover; panics propagate as if there was no handler.
type NoopPanicHandler struct{}

func (NoopPanicHandler) HandlePanic(any) {}

// LogPanicHandler recovers and logs the panic with its stack trace.
type LogPanicHandler struct {
	Entry *logrus.Entry
}

func (h LogPanicHandler) HandlePanic(r any) {
	entry := h.Entry
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}

	entry.WithField("panic", r).Errorf("Recovered from panic: %s", debug.Stack())
}

// HandlePanic must be deferred directly. It recovers a panic and hands it to panicHandler, unless the handler is
// nil or a NoopPanicHandler.
func HandlePanic(panicHandler PanicHandler) {
	if panicHandler == nil {
		return
	}

	if _, ok := panicHandler.(NoopPanicHandler); ok {
		return
	}

	if r := recover(); r != nil {
		panicHandler.HandlePanic(r)
	}
}
