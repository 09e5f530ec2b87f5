package mimepart

import (
	"bufio"
	"fmt"
	"io"

	"github.com/emersion/go-message/textproto"
)

// WriteTo writes the part at idx, header and body, in its raw encoded form.
func WriteTo(w io.Writer, t *Tree, idx int) error {
	bw := bufio.NewWriter(w)

	if err := textproto.WriteHeader(bw, t.Part(idx).Header); err != nil {
		return err
	}

	if err := writeBody(bw, t, idx); err != nil {
		return err
	}

	return bw.Flush()
}

// WriteBody writes the body of the part at idx without decoding it.
// Multiparts are re-assembled from their children using the stored boundary.
func WriteBody(w io.Writer, t *Tree, idx int) error {
	bw := bufio.NewWriter(w)

	if err := writeBody(bw, t, idx); err != nil {
		return err
	}

	return bw.Flush()
}

func writeBody(w *bufio.Writer, t *Tree, idx int) error {
	switch body := t.Part(idx).Body.(type) {
	case *Multipart:
		return writeMultipart(w, t, body)

	case *MessageBody:
		if body.Root == NoPart {
			return nil
		}

		if err := textproto.WriteHeader(w, t.Part(body.Root).Header); err != nil {
			return err
		}

		return writeBody(w, t, body.Root)

	case *Data:
		return writeData(w, body.Location)

	case nil:
		return nil

	default:
		return fmt.Errorf("unexpected body %T", body)
	}
}

func writeMultipart(w *bufio.Writer, t *Tree, mp *Multipart) error {
	if mp.Preamble != nil {
		if _, err := w.Write(mp.Preamble); err != nil {
			return err
		}

		if _, err := w.WriteString("\r\n"); err != nil {
			return err
		}
	}

	if len(mp.Children) == 0 {
		if _, err := fmt.Fprintf(w, "--%v\r\n", mp.Boundary); err != nil {
			return err
		}
	}

	for _, child := range mp.Children {
		if _, err := fmt.Fprintf(w, "--%v\r\n", mp.Boundary); err != nil {
			return err
		}

		if err := textproto.WriteHeader(w, t.Part(child).Header); err != nil {
			return err
		}

		if err := writeBody(w, t, child); err != nil {
			return err
		}

		if _, err := w.WriteString("\r\n"); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "--%v--\r\n", mp.Boundary); err != nil {
		return err
	}

	if mp.Epilogue != nil {
		if _, err := w.Write(mp.Epilogue); err != nil {
			return err
		}
	}

	return nil
}

func writeData(w io.Writer, loc Location) error {
	switch loc := loc.(type) {
	case InDatabase:
		_, err := w.Write(loc.Bytes)
		return err

	case OnDisk:
		rc, err := loc.Open()
		if err != nil {
			return err
		}

		defer rc.Close()

		_, err = io.Copy(w, rc)

		return err

	case Missing, nil:
		return nil

	case ChildPartContainsData:
		return fmt.Errorf("leaf part declares its data in a child part")

	default:
		return fmt.Errorf("unexpected data location %T", loc)
	}
}
