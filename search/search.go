// Package search describes structured message searches and translates them into SQL.
package search

// Field is a searchable message attribute.
type Field int

const (
	Subject Field = iota
	Date
	UID
	Flag
	Sender
	To
	Cc
	Bcc
	ReplyTo
	MessageContents
	AttachmentCount
	Deleted
	ThreadID
	ID
	Read
	Flagged
	Folder
	Preview
)

func (f Field) String() string {
	switch f {
	case Subject:
		return "SUBJECT"
	case Date:
		return "DATE"
	case UID:
		return "UID"
	case Flag:
		return "FLAG"
	case Sender:
		return "SENDER"
	case To:
		return "TO"
	case Cc:
		return "CC"
	case Bcc:
		return "BCC"
	case ReplyTo:
		return "REPLY_TO"
	case MessageContents:
		return "MESSAGE_CONTENTS"
	case AttachmentCount:
		return "ATTACHMENT_COUNT"
	case Deleted:
		return "DELETED"
	case ThreadID:
		return "THREAD_ID"
	case ID:
		return "ID"
	case Read:
		return "READ"
	case Flagged:
		return "FLAGGED"
	case Folder:
		return "FOLDER"
	case Preview:
		return "PREVIEW"
	default:
		return "UNKNOWN"
	}
}

// Attribute is the comparison applied between a field and a value.
type Attribute int

const (
	Contains Attribute = iota
	NotContains
	Equals
	NotEquals
	StartsWith
	NotStartsWith
	EndsWith
	NotEndsWith
	LessThan
	GreaterThan
)

// Node is a node of a condition tree: a Condition, an And or an Or.
type Node interface {
	isNode()
}

// Condition compares one field with a value.
type Condition struct {
	Field     Field
	Attribute Attribute
	Value     string
}

// And matches messages matched by all of its children. An empty And matches everything.
type And []Node

// Or matches messages matched by any of its children. An empty Or matches nothing.
type Or []Node

// Not matches messages not matched by its child.
type Not struct {
	Node Node
}

func (Condition) isNode() {}
func (And) isNode()       {}
func (Or) isNode()        {}
func (Not) isNode()       {}

// Cond is a shorthand for a Condition node.
func Cond(field Field, attribute Attribute, value string) Condition {
	return Condition{Field: field, Attribute: attribute, Value: value}
}
