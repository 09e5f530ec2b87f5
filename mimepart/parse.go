package mimepart

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/textproto"
)

// maxDepth bounds the nesting of multiparts and attached messages.
const maxDepth = 64

var ErrTooDeep = errors.New("MIME structure nested too deeply")

// Parse reads a MIME message into a tree. Leaf bodies are kept in their transfer encoding.
func Parse(r io.Reader) (*Tree, error) {
	br := bufio.NewReader(r)

	header, err := textproto.ReadHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := NewTree()

	if err := t.parse(NoPart, header, br, 0); err != nil {
		return nil, err
	}

	return t, nil
}

// ParseBytes is a convenience wrapper around Parse.
func ParseBytes(b []byte) (*Tree, error) {
	return Parse(bytes.NewReader(b))
}

func (t *Tree) parse(parent int, header textproto.Header, r *bufio.Reader, depth int) error {
	if depth > maxDepth {
		return ErrTooDeep
	}

	part := &Part{Header: header}
	mediaType := part.MimeType()

	switch {
	case strings.HasPrefix(mediaType, "multipart/") && part.Param("boundary") != "":
		mp := &Multipart{Boundary: part.Param("boundary")}
		part.Body = mp

		return t.parseMultipart(t.Add(parent, part), mp, r, depth)

	case mediaType == "message/rfc822":
		part.Body = &MessageBody{Root: NoPart}

		idx := t.Add(parent, part)

		nested, err := textproto.ReadHeader(r)
		if err != nil {
			// Not a message after all; keep the bytes as an opaque leaf.
			return t.keepRaw(idx, r)
		}

		return t.parse(idx, nested, r, depth+1)

	default:
		idx := t.Add(parent, part)

		return t.keepRaw(idx, r)
	}
}

func (t *Tree) parseMultipart(idx int, mp *Multipart, r *bufio.Reader, depth int) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	mp.Preamble, mp.Epilogue = splitPreambleEpilogue(raw, mp.Boundary)

	mr := textproto.NewMultipartReader(bytes.NewReader(raw), mp.Boundary)

	for {
		child, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read part of %v: %w", t.Part(idx).MimeType(), err)
		}

		if err := t.parse(idx, child.Header, bufio.NewReader(child), depth+1); err != nil {
			return err
		}
	}
}

func (t *Tree) keepRaw(idx int, r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	part := t.Part(idx)

	size, err := io.Copy(io.Discard, Decoder(part.Encoding(), bytes.NewReader(raw)))
	if err != nil {
		// Broken encodings still get stored, the size is then the raw size.
		size = int64(len(raw))
	}

	part.Body = &Data{
		Encoding: part.Encoding(),
		Size:     size,
		Location: InDatabase{Bytes: raw},
	}

	return nil
}

// splitPreambleEpilogue returns the text before the first delimiter and after the closing delimiter.
func splitPreambleEpilogue(raw []byte, boundary string) ([]byte, []byte) {
	delim := []byte("--" + boundary)

	var preamble, epilogue []byte

	first := bytes.Index(raw, delim)
	if first < 0 {
		return nil, nil
	}

	if first > 0 {
		preamble = bytes.TrimSuffix(bytes.TrimSuffix(raw[:first], []byte("\n")), []byte("\r"))
	}

	closing := append(append([]byte(nil), delim...), '-', '-')

	if end := bytes.LastIndex(raw, closing); end >= 0 {
		rest := raw[end+len(closing):]

		if i := bytes.IndexByte(rest, '\n'); i >= 0 && len(rest[i+1:]) > 0 {
			epilogue = rest[i+1:]
		}
	}

	return preamble, epilogue
}
