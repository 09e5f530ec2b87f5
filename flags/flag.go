// Package flags defines message flags: the fixed set of system flags and an extensible registry of
// user-defined IMAP keywords.
package flags

import (
	"strings"

	"github.com/emersion/go-imap"
)

// Flag is the identity of a message flag.
//
// Code is the stable key used in local storage; ExternalCode is the wire representation (e.g. `\Seen`)
// and is empty for flags that are never sent to a server.
type Flag interface {
	Code() string
	ExternalCode() string
	Key() Key
}

// Key is the comparable identity of a flag. Two flags are the same flag iff their keys are equal.
type Key struct {
	Code         string
	ExternalCode string
}

type systemFlag struct {
	code         string
	externalCode string
}

func (f *systemFlag) Code() string {
	return f.code
}

func (f *systemFlag) ExternalCode() string {
	return f.externalCode
}

func (f *systemFlag) Key() Key {
	return Key{Code: f.code, ExternalCode: f.externalCode}
}

func (f *systemFlag) String() string {
	return f.code
}

const ForwardedFlag = "$Forwarded"

// BadFlagCode is written by old clients in place of flags they could not serialize.
const BadFlagCode = "X_BAD_FLAG"

var (
	Deleted   Flag = &systemFlag{code: "DELETED", externalCode: imap.DeletedFlag}
	Seen      Flag = &systemFlag{code: "SEEN", externalCode: imap.SeenFlag}
	Answered  Flag = &systemFlag{code: "ANSWERED", externalCode: imap.AnsweredFlag}
	Flagged   Flag = &systemFlag{code: "FLAGGED", externalCode: imap.FlaggedFlag}
	Draft     Flag = &systemFlag{code: "DRAFT", externalCode: imap.DraftFlag}
	Recent    Flag = &systemFlag{code: "RECENT", externalCode: imap.RecentFlag}
	Forwarded Flag = &systemFlag{code: "FORWARDED", externalCode: ForwardedFlag}

	// Internal-only flags.
	XDestroyed         Flag = &systemFlag{code: "X_DESTROYED"}
	XSendFailed        Flag = &systemFlag{code: "X_SEND_FAILED"}
	XSendInProgress    Flag = &systemFlag{code: "X_SEND_IN_PROGRESS"}
	XDownloadedFull    Flag = &systemFlag{code: "X_DOWNLOADED_FULL"}
	XDownloadedPartial Flag = &systemFlag{code: "X_DOWNLOADED_PARTIAL"}
	XRemoteCopyStarted Flag = &systemFlag{code: "X_REMOTE_COPY_STARTED"}
	XGotAllHeaders     Flag = &systemFlag{code: "X_GOT_ALL_HEADERS"}
	XMigratedFromV50   Flag = &systemFlag{code: "X_MIGRATED_FROM_V50"}
)

var systemFlags = []Flag{
	Deleted, Seen, Answered, Flagged, Draft, Recent, Forwarded,
	XDestroyed, XSendFailed, XSendInProgress, XDownloadedFull, XDownloadedPartial,
	XRemoteCopyStarted, XGotAllHeaders, XMigratedFromV50,
}

// SystemFlags returns the fixed set of system flags.
func SystemFlags() []Flag {
	return append([]Flag(nil), systemFlags...)
}

// IsSystem returns true if the flag is one of the statically known system flags.
func IsSystem(flag Flag) bool {
	_, ok := flag.(*systemFlag)
	return ok
}

// Equal compares two flags by identity.
func Equal(a, b Flag) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Key() == b.Key()
}

func systemFlagByCode(code string) (Flag, bool) {
	for _, f := range systemFlags {
		if f.Code() == code {
			return f, true
		}
	}

	return nil, false
}

func systemFlagByExternalCode(externalCode string) (Flag, bool) {
	canonical := imap.CanonicalFlag(externalCode)

	for _, f := range systemFlags {
		if f.ExternalCode() == "" {
			continue
		}

		if f.ExternalCode() == canonical || strings.EqualFold(f.ExternalCode(), externalCode) {
			return f, true
		}
	}

	return nil, false
}
