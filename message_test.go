package localstore

import (
	"bytes"
	"context"
	"testing"

	"github.com/ProtonMail/localstore/flags"
	"github.com/stretchr/testify/require"
)

func TestMessage_DeleteIsLogical(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithMaxInlineBodySize(4))

	f := newTestFolder(t, s, "INBOX")

	msg := storeTest(t, f, "m1", testMessage{subject: "Hello", body: "Words to find"}, flags.Seen, flags.Draft)
	partID := msg.MessagePartID()

	require.NoError(t, msg.Delete(ctx))

	deleted := getMessage(t, f, "m1")
	require.Equal(t, msg.ID(), deleted.ID())
	require.Equal(t, "m1", deleted.UID())
	require.True(t, deleted.IsDeleted())
	require.True(t, deleted.IsSet(flags.Deleted))
	require.False(t, deleted.IsSet(flags.Seen))
	require.False(t, deleted.IsSet(flags.Draft))
	require.Empty(t, deleted.Subject())
	require.Empty(t, deleted.From())
	require.Empty(t, deleted.Preview())
	require.Equal(t, PreviewTypeNone, deleted.PreviewType())
	require.Zero(t, deleted.MessagePartID())

	require.Equal(t, 0, queryInt(t, s, "SELECT COUNT(*) FROM `message_parts`"))

	ids, err := s.attachments.List()
	require.NoError(t, err)
	require.NotContains(t, ids, partID)

	ids, err = s.fulltext.Search("words")
	require.NoError(t, err)
	require.Empty(t, ids)

	require.NoError(t, deleted.Destroy(ctx))

	_, err = f.GetMessage(ctx, "m1")
	require.ErrorIs(t, err, ErrMessageNotFound)
	require.Equal(t, 0, queryInt(t, s, "SELECT COUNT(*) FROM `messages`"))
}

func TestMessage_SetDeletedFlagDeletes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f := newTestFolder(t, s, "INBOX")

	msg := storeTest(t, f, "1", testMessage{subject: "Bye"})

	require.NoError(t, msg.SetFlag(ctx, flags.Deleted, true))
	require.True(t, msg.IsDeleted())

	reloaded := getMessage(t, f, "1")
	require.True(t, reloaded.IsDeleted())
	require.Empty(t, reloaded.Subject())
}

func TestMessage_SetFlagsStopsAtDeleted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f := newTestFolder(t, s, "INBOX")

	msg := storeTest(t, f, "1", testMessage{subject: "Bye"})

	require.NoError(t, msg.SetFlags(ctx, []flags.Flag{flags.Deleted, flags.Seen, flags.Flagged}, true))
	require.True(t, msg.IsDeleted())
	require.False(t, msg.IsSet(flags.Seen))

	require.Equal(t, 0, queryInt(t, s, "SELECT `read` FROM `messages` WHERE `id` = ?", msg.ID()))
	require.Equal(t, 0, queryInt(t, s, "SELECT `flagged` FROM `messages` WHERE `id` = ?", msg.ID()))

	reloaded := getMessage(t, f, "1")
	require.True(t, reloaded.IsDeleted())
	require.False(t, reloaded.IsSet(flags.Seen))
}

func TestMessage_Envelope(t *testing.T) {
	s := newTestStore(t)

	f := newTestFolder(t, s, "INBOX")

	msg := storeRaw(t, f, "1", "From: =?utf-8?q?J=C3=BCrgen?= <juergen@example.com>\r\n"+
		"To: Bob <bob@example.com>, carol@example.com\r\n"+
		"Cc: Dave <dave@example.com>\r\n"+
		"Reply-To: List <list@example.com>\r\n"+
		"Subject: =?utf-8?q?Gr=C3=BC=C3=9Fe?=\r\n"+
		"Date: Mon, 02 Jan 2006 15:04:05 +0000\r\n"+
		"Message-ID: <envelope@example.com>\r\n"+
		"Content-Type: text/plain; charset=utf-8\r\n"+
		"\r\n"+
		"Body\r\n")

	require.Equal(t, "Grüße", msg.Subject())
	require.Equal(t, "envelope@example.com", msg.MessageID())
	require.Equal(t, int64(1136214245), msg.Date().Unix())
	require.Equal(t, "text/plain", msg.MimeType())

	require.Len(t, msg.From(), 1)
	require.Equal(t, "Jürgen", msg.From()[0].Name)
	require.Equal(t, "juergen@example.com", msg.From()[0].Address)

	require.Len(t, msg.To(), 2)
	require.Equal(t, "carol@example.com", msg.To()[1].Address)
	require.Equal(t, "dave@example.com", msg.Cc()[0].Address)
	require.Equal(t, "list@example.com", msg.ReplyTo()[0].Address)
	require.Empty(t, msg.Bcc())

	require.Equal(t, PreviewTypeText, msg.PreviewType())
	require.Equal(t, "Body", msg.Preview())
}

func TestMessage_EncryptedPreview(t *testing.T) {
	s := newTestStore(t)

	f := newTestFolder(t, s, "INBOX")

	msg := storeRaw(t, f, "1", "Subject: Secret\r\n"+
		"Content-Type: multipart/encrypted; protocol=\"application/pgp-encrypted\"; boundary=\"b\"\r\n"+
		"\r\n"+
		"--b\r\n"+
		"Content-Type: application/pgp-encrypted\r\n"+
		"\r\n"+
		"Version: 1\r\n"+
		"--b\r\n"+
		"Content-Type: application/octet-stream\r\n"+
		"\r\n"+
		"-----BEGIN PGP MESSAGE-----\r\n"+
		"--b--\r\n")

	require.Equal(t, PreviewTypeEncrypted, msg.PreviewType())
	require.Empty(t, msg.Preview())
}

func TestMessage_LoadBodyRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, size := range map[string]int64{"inline": DefaultMaxInlineBodySize, "on disk": 1} {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t, WithMaxInlineBodySize(size))

			f := newTestFolder(t, s, "INBOX")

			raw := mixedMessage()
			msg := storeRaw(t, f, "1", raw)

			tree, err := msg.LoadBody(ctx)
			require.NoError(t, err)
			require.Equal(t, 3, tree.Len())
			require.Equal(t, msg.MessagePartID(), tree.Root().ID)

			var buf bytes.Buffer

			require.NoError(t, msg.WriteTo(ctx, &buf))
			require.Equal(t, raw, buf.String())
		})
	}
}

func TestMessage_LoadMessageByRootPartID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f := newTestFolder(t, s, "INBOX")

	msg := storeRaw(t, f, "1", mixedMessage())

	loaded, err := s.LoadMessageByRootPartID(ctx, msg.MessagePartID())
	require.NoError(t, err)
	require.Equal(t, msg.ID(), loaded.ID())
	require.Equal(t, "INBOX", loaded.Folder().Name())

	_, err = s.LoadMessageByRootPartID(ctx, 9999)
	require.ErrorIs(t, err, ErrMessageNotFound)
	require.True(t, IsStorageError(err))
}

func TestMessage_AttachmentCount(t *testing.T) {
	s := newTestStore(t)

	f := newTestFolder(t, s, "INBOX")

	msg := storeRaw(t, f, "1", mixedMessage())
	require.Equal(t, 1, msg.AttachmentCount())
	require.True(t, msg.HasAttachments())
	require.Equal(t, "multipart/mixed", msg.MimeType())
	require.Equal(t, "See attached.", msg.Preview())
}
