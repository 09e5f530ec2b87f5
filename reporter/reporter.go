// Package reporter hooks an external error tracker into the store.
// Commit failures and data integrity faults are reported; nothing else is.
package reporter

import "github.com/sirupsen/logrus"

type Context = map[string]any

// Reporter represents an external reporting tool notified of unexpected storage failures.
type Reporter interface {
	ReportMessage(string) error
	ReportMessageWithContext(string, Context) error
	ReportExceptionWithContext(any, Context) error
}

// NullReporter drops every report.
type NullReporter struct{}

func (NullReporter) ReportMessage(string) error {
	return nil
}

func (NullReporter) ReportMessageWithContext(string, Context) error {
	return nil
}

func (NullReporter) ReportExceptionWithContext(any, Context) error {
	return nil
}

// LogReporter writes reports to the log instead of sending them anywhere.
type LogReporter struct {
	Entry *logrus.Entry
}

func (r LogReporter) ReportMessage(message string) error {
	r.Entry.Warn(message)
	return nil
}

func (r LogReporter) ReportMessageWithContext(message string, context Context) error {
	r.Entry.WithFields(logrus.Fields(context)).Warn(message)
	return nil
}

func (r LogReporter) ReportExceptionWithContext(exception any, context Context) error {
	r.Entry.WithFields(logrus.Fields(context)).WithField("exception", exception).Error("Exception reported")
	return nil
}
