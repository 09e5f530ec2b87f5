package mimepart

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/quotedprintable"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/unicode/norm"
)

var ErrUnsupportedCharset = errors.New("unsupported charset")

// Decoder wraps r so that reading from it yields the bytes with the given transfer encoding removed.
// Unknown encodings (7bit, 8bit, binary, ...) are passed through untouched.
func Decoder(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)

	case "quoted-printable":
		return quotedprintable.NewReader(r)

	default:
		return r
	}
}

// CharsetDecoder wraps r so that reading from it yields UTF-8. An empty charset is treated as us-ascii.
func CharsetDecoder(charset string, r io.Reader) (io.Reader, error) {
	enc, err := lookupCharset(charset)
	if err != nil {
		return nil, err
	}

	if enc == nil {
		return r, nil
	}

	return enc.NewDecoder().Reader(r), nil
}

func lookupCharset(charset string) (encoding.Encoding, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))

	switch charset {
	case "", "us-ascii", "ascii", "utf-8", "utf8":
		return nil, nil
	}

	if enc, err := ianaindex.MIME.Encoding(charset); err == nil && enc != nil {
		return enc, nil
	}

	if enc, err := ianaindex.MIME.Encoding("cs" + charset); err == nil && enc != nil {
		return enc, nil
	}

	if enc, err := htmlindex.Get(charset); err == nil {
		return enc, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrUnsupportedCharset, charset)
}

var (
	tagRegexp   = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>|<[^>]*>`)
	spaceRegexp = regexp.MustCompile(`\s+`)
)

// TextContent returns the decoded text of a leaf part, converted to UTF-8 and NFC normalised.
// HTML parts have their markup stripped. Parts whose body is not available yield an empty string.
func TextContent(t *Tree, idx int) (string, error) {
	part := t.Part(idx)

	data, ok := part.Body.(*Data)
	if !ok {
		return "", nil
	}

	raw, err := rawReader(data.Location)
	if err != nil {
		return "", err
	}

	if raw == nil {
		return "", nil
	}

	defer raw.Close()

	r, err := CharsetDecoder(part.Charset(), Decoder(data.Encoding, raw))
	if err != nil {
		return "", err
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	text := string(b)

	if part.MimeType() == "text/html" {
		text = tagRegexp.ReplaceAllString(text, " ")
	}

	return norm.NFC.String(text), nil
}

// Preview returns a single-line excerpt of at most n runes of text.
func Preview(text string, n int) string {
	text = strings.TrimSpace(spaceRegexp.ReplaceAllString(text, " "))

	if runes := []rune(text); len(runes) > n {
		return string(runes[:n])
	}

	return text
}

type nopCloser struct {
	io.Reader
}

func (nopCloser) Close() error { return nil }

// rawReader opens the stored bytes of a data location. It returns nil for locations without bytes.
func rawReader(loc Location) (io.ReadCloser, error) {
	switch loc := loc.(type) {
	case InDatabase:
		return nopCloser{strings.NewReader(string(loc.Bytes))}, nil

	case OnDisk:
		return loc.Open()

	case Missing, ChildPartContainsData, nil:
		return nil, nil

	default:
		return nil, fmt.Errorf("unexpected data location %T", loc)
	}
}
