package localstore

import (
	"time"

	"github.com/ProtonMail/localstore/mimepart"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/sirupsen/logrus"
)

// MaxPreviewLength is the number of characters kept as message preview.
const MaxPreviewLength = 512

type envelope struct {
	subject    string
	date       time.Time
	from       string
	to         string
	cc         string
	bcc        string
	replyTo    string
	messageID  string
	references []string
	mimeType   string
}

func readEnvelope(header textproto.Header) envelope {
	h := mail.Header{Header: message.Header{Header: header}}

	var env envelope

	subject, err := h.Subject()
	if err != nil {
		subject = h.Get("Subject")
	}

	env.subject = subject

	if date, err := h.Date(); err == nil {
		env.date = date
	}

	env.from = readAddressList(h, "From")
	env.to = readAddressList(h, "To")
	env.cc = readAddressList(h, "Cc")
	env.bcc = readAddressList(h, "Bcc")
	env.replyTo = readAddressList(h, "Reply-To")

	if messageID, err := h.MessageID(); err == nil {
		env.messageID = messageID
	}

	env.references = readReferences(h)
	env.mimeType, _, _ = h.ContentType()

	if env.mimeType == "" {
		env.mimeType = "text/plain"
	}

	return env
}

// readReferences returns References followed by In-Reply-To, without duplicates.
func readReferences(h mail.Header) []string {
	var refs []string

	seen := make(map[string]struct{})

	for _, key := range []string{"References", "In-Reply-To"} {
		ids, err := h.MsgIDList(key)
		if err != nil {
			logrus.WithError(err).WithField("header", key).Debug("Ignoring unparsable message id list")
			continue
		}

		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}

			seen[id] = struct{}{}
			refs = append(refs, id)
		}
	}

	return refs
}

func readAddressList(h mail.Header, key string) string {
	addrs, err := h.AddressList(key)
	if err != nil {
		return h.Get(key)
	}

	return formatAddressList(addrs)
}

// buildPreview returns the preview of a message and the text to index it by.
func buildPreview(tree *mimepart.Tree) (PreviewType, string, string) {
	if tree.Root().MimeType() == "multipart/encrypted" {
		return PreviewTypeEncrypted, "", ""
	}

	idx, ok := mimepart.FindTextPart(tree)
	if !ok {
		return PreviewTypeNone, "", ""
	}

	text, err := mimepart.TextContent(tree, idx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to extract preview text")
		return PreviewTypeError, "", ""
	}

	return PreviewTypeText, mimepart.Preview(text, MaxPreviewLength), text
}
