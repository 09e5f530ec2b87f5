package mimepart

import (
	"fmt"
	"io"
)

// Body is the content of a part: *Multipart, *MessageBody or *Data.
type Body interface {
	body()
}

// Multipart is the body of a multipart/* part.
type Multipart struct {
	Boundary string
	Preamble []byte
	Epilogue []byte
	Children []int
}

// MessageBody is the body of a message/rfc822 part: a nested message rooted at Root.
type MessageBody struct {
	Root int
}

// Data is the body of a leaf part. Its bytes are kept in their transfer encoding.
type Data struct {
	Encoding string
	// Size is the decoded size in bytes, when known.
	Size     int64
	Location Location
}

func (*Multipart) body()   {}
func (*MessageBody) body() {}
func (*Data) body()        {}

// LocationCode is the persisted form of a Location.
type LocationCode int

const (
	LocationMissing LocationCode = iota
	LocationInDatabase
	LocationOnDisk
	LocationChildPartContainsData
)

func (c LocationCode) String() string {
	switch c {
	case LocationMissing:
		return "missing"

	case LocationInDatabase:
		return "in_database"

	case LocationOnDisk:
		return "on_disk"

	case LocationChildPartContainsData:
		return "child_part_contains_data"

	default:
		return fmt.Sprintf("location(%d)", int(c))
	}
}

// Location says where the bytes of a part live: Missing, InDatabase, OnDisk or ChildPartContainsData.
type Location interface {
	Code() LocationCode
	location()
}

// Missing marks a part whose body was not downloaded.
type Missing struct{}

// InDatabase holds the raw body bytes, still in their transfer encoding.
type InDatabase struct {
	Bytes []byte
}

// OnDisk is a body stored in a file of the attachment directory.
type OnDisk struct {
	Open func() (io.ReadCloser, error)
}

// ChildPartContainsData marks a container whose bytes are those of its children.
type ChildPartContainsData struct{}

func (Missing) Code() LocationCode               { return LocationMissing }
func (InDatabase) Code() LocationCode            { return LocationInDatabase }
func (OnDisk) Code() LocationCode                { return LocationOnDisk }
func (ChildPartContainsData) Code() LocationCode { return LocationChildPartContainsData }

func (Missing) location()               {}
func (InDatabase) location()            {}
func (OnDisk) location()                {}
func (ChildPartContainsData) location() {}
