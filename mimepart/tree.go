package mimepart

import (
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/textproto"
)

const (
	HeaderContentType             = "Content-Type"
	HeaderContentDisposition      = "Content-Disposition"
	HeaderContentTransferEncoding = "Content-Transfer-Encoding"
	HeaderContentID               = "Content-ID"
)

// NoPart is the parent index of a root part.
const NoPart = -1

// Part is a node of the MIME tree.
type Part struct {
	// ID is the synthetic part id assigned by storage. It is zero for parts that were never persisted.
	ID int64

	Header textproto.Header
	Parent int
	Body   Body

	// ServerExtra holds protocol specific data (e.g. the IMAP section number) needed to fetch the body later.
	ServerExtra string
}

// MimeType returns the lower-cased media type of the part, defaulting to text/plain.
func (p *Part) MimeType() string {
	mediaType, _ := p.contentType()
	return mediaType
}

// Param returns a parameter of the Content-Type header.
func (p *Part) Param(name string) string {
	_, params := p.contentType()
	return params[name]
}

func (p *Part) Charset() string {
	return p.Param("charset")
}

// Encoding returns the lower-cased Content-Transfer-Encoding of the part.
func (p *Part) Encoding() string {
	return strings.ToLower(strings.TrimSpace(p.Header.Get(HeaderContentTransferEncoding)))
}

// ContentID returns the Content-ID header without angle brackets, or an empty string.
func (p *Part) ContentID() string {
	cid := strings.TrimSpace(p.Header.Get(HeaderContentID))
	cid = strings.TrimPrefix(cid, "<")
	cid = strings.TrimSuffix(cid, ">")

	return cid
}

// Disposition returns the lower-cased disposition (inline, attachment) and its parameters.
func (p *Part) Disposition() (string, map[string]string) {
	if !p.Header.Has(HeaderContentDisposition) {
		return "", nil
	}

	h := message.Header{Header: p.Header}

	disp, params, err := h.ContentDisposition()
	if err != nil {
		return "", nil
	}

	return strings.ToLower(disp), params
}

// DisplayName returns the file name of the part as given by Content-Disposition or Content-Type.
func (p *Part) DisplayName() string {
	if _, params := p.Disposition(); params["filename"] != "" {
		return params["filename"]
	}

	return p.Param("name")
}

func (p *Part) contentType() (string, map[string]string) {
	if !p.Header.Has(HeaderContentType) {
		return "text/plain", map[string]string{}
	}

	h := message.Header{Header: p.Header}

	mediaType, params, err := h.ContentType()
	if err != nil || mediaType == "" {
		return "text/plain", map[string]string{}
	}

	return strings.ToLower(mediaType), params
}

// Tree is a MIME message. Index 0 is the root part once the tree is not empty.
type Tree struct {
	parts []*Part
}

func NewTree() *Tree {
	return &Tree{}
}

// Add appends a part as the last child of parent and returns its index. Use NoPart for the root.
func (t *Tree) Add(parent int, p *Part) int {
	idx := len(t.parts)

	p.Parent = parent
	t.parts = append(t.parts, p)

	if parent == NoPart {
		return idx
	}

	switch body := t.parts[parent].Body.(type) {
	case *Multipart:
		body.Children = append(body.Children, idx)

	case *MessageBody:
		body.Root = idx
	}

	return idx
}

func (t *Tree) Len() int {
	return len(t.parts)
}

func (t *Tree) Part(idx int) *Part {
	return t.parts[idx]
}

// Root returns the root part. It panics on an empty tree.
func (t *Tree) Root() *Part {
	return t.parts[0]
}

// Children returns the indices of the direct children of a part: the parts of a multipart, or the root of
// a nested message.
func (t *Tree) Children(idx int) []int {
	switch body := t.parts[idx].Body.(type) {
	case *Multipart:
		return body.Children

	case *MessageBody:
		if body.Root == NoPart {
			return nil
		}

		return []int{body.Root}

	default:
		return nil
	}
}

// Seq returns the position of the part among its siblings.
func (t *Tree) Seq(idx int) int {
	parent := t.parts[idx].Parent
	if parent == NoPart {
		return 0
	}

	for i, child := range t.Children(parent) {
		if child == idx {
			return i
		}
	}

	return 0
}

// Walk visits every part reachable from root, parents before children, in document order.
func (t *Tree) Walk(root int, fn func(idx int) error) error {
	stack := []int{root}

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := fn(idx); err != nil {
			return err
		}

		children := t.Children(idx)

		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return nil
}
