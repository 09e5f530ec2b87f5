// Package events defines the change notifications emitted by a local store.
//
// Notifications are coarse: they only say which account changed, never what changed.
package events

type Event interface {
	// Account returns the id of the account whose store emitted the event.
	Account() string

	_isEvent()
}

type eventBase struct {
	AccountID string
}

func (e eventBase) Account() string {
	return e.AccountID
}

func (eventBase) _isEvent() {}
