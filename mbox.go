package localstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ProtonMail/localstore/mimepart"
	"github.com/emersion/go-mbox"
)

// importBatchSize is the number of messages of an mbox file stored per transaction.
const importBatchSize = 100

// ExportMbox writes the messages of the folder to w in mbox format, oldest first. Deleted messages are skipped.
func (f *Folder) ExportMbox(ctx context.Context, w io.Writer) (int, error) {
	messages, err := f.GetMessages(ctx, false)
	if err != nil {
		return 0, err
	}

	mw := mbox.NewWriter(w)

	var count int

	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]

		if msg.messagePartID == 0 {
			continue
		}

		tree, err := msg.LoadBody(ctx)
		if err != nil {
			return count, err
		}

		mr, err := mw.CreateMessage(mboxSender(msg), mboxDate(msg))
		if err != nil {
			return count, fmt.Errorf("failed to create mbox message: %w", err)
		}

		if err := mimepart.WriteTo(mr, tree, 0); err != nil {
			return count, fmt.Errorf("failed to write message %v: %w", msg.uid, err)
		}

		count++
	}

	if err := mw.Close(); err != nil {
		return count, err
	}

	return count, nil
}

// ImportMbox stores every message of the mbox file read from r in the folder with a local UID.
func (f *Folder) ImportMbox(ctx context.Context, r io.Reader) (int, error) {
	mr := mbox.NewReader(r)

	var (
		batch []NewMessage
		count int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		if _, err := f.AppendMessages(ctx, batch); err != nil {
			return err
		}

		count += len(batch)
		batch = batch[:0]

		return nil
	}

	for {
		msgReader, err := mr.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return count, fmt.Errorf("failed to read mbox: %w", err)
		}

		tree, err := mimepart.Parse(msgReader)
		if err != nil {
			return count, fmt.Errorf("failed to parse message %v: %w", count+len(batch), err)
		}

		batch = append(batch, NewMessage{Tree: tree})

		if len(batch) >= importBatchSize {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}

	if err := flush(); err != nil {
		return count, err
	}

	return count, nil
}

func mboxSender(msg *Message) string {
	if from := msg.From(); len(from) > 0 && from[0].Address != "" {
		return from[0].Address
	}

	return "MAILER-DAEMON"
}

func mboxDate(msg *Message) time.Time {
	if !msg.internalDate.IsZero() {
		return msg.internalDate
	}

	if !msg.date.IsZero() {
		return msg.date
	}

	return time.Unix(0, 0)
}
