package localstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ProtonMail/localstore/events"
	"github.com/ProtonMail/localstore/flags"
	"github.com/ProtonMail/localstore/internal/db"
	"github.com/ProtonMail/localstore/internal/db/utils"
	"github.com/ProtonMail/localstore/mimepart"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	s, err := New(context.Background(), t.TempDir(), "account", opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func newTestFolder(t *testing.T, s *Store, name string) *Folder {
	f, err := s.CreateFolder(context.Background(), FolderSpec{Name: name, SyncEnabled: true})
	require.NoError(t, err)

	return f
}

type testMessage struct {
	messageID  string
	subject    string
	date       time.Time
	inReplyTo  string
	references []string
	body       string
}

func (m testMessage) raw() string {
	lines := []string{
		"From: Alice <alice@example.com>",
		"To: Bob <bob@example.com>",
		"Subject: " + m.subject,
	}

	if !m.date.IsZero() {
		lines = append(lines, "Date: "+m.date.Format(time.RFC1123Z))
	}

	if m.messageID != "" {
		lines = append(lines, "Message-ID: <"+m.messageID+">")
	}

	if m.inReplyTo != "" {
		lines = append(lines, "In-Reply-To: <"+m.inReplyTo+">")
	}

	if len(m.references) > 0 {
		refs := make([]string, 0, len(m.references))

		for _, ref := range m.references {
			refs = append(refs, "<"+ref+">")
		}

		lines = append(lines, "References: "+strings.Join(refs, " "))
	}

	body := m.body
	if body == "" {
		body = "Hello there."
	}

	lines = append(lines, "Content-Type: text/plain; charset=utf-8", "", body, "")

	return strings.Join(lines, "\r\n")
}

func parse(t *testing.T, raw string) *mimepart.Tree {
	tree, err := mimepart.ParseBytes([]byte(raw))
	require.NoError(t, err)

	return tree
}

func storeRaw(t *testing.T, f *Folder, uid, raw string, list ...flags.Flag) *Message {
	msg, err := f.StoreMessage(context.Background(), parse(t, raw), MessageInfo{UID: uid, Flags: flags.NewList(list...)})
	require.NoError(t, err)

	return msg
}

func storeTest(t *testing.T, f *Folder, uid string, m testMessage, list ...flags.Flag) *Message {
	return storeRaw(t, f, uid, m.raw(), list...)
}

func getMessage(t *testing.T, f *Folder, uid string) *Message {
	msg, err := f.GetMessage(context.Background(), uid)
	require.NoError(t, err)

	return msg
}

// queryInt runs a query returning a single integer.
func queryInt(t *testing.T, s *Store, query string, args ...any) int {
	v, err := db.ExecuteResult(context.Background(), s.db, false, func(ctx context.Context, conn *db.Conn) (int, error) {
		return utils.MapQueryRow[int](ctx, conn, query, args...)
	})
	require.NoError(t, err)

	return v
}

// countEvents reads events until none arrives for a while.
func countEvents(ch <-chan events.Event) int {
	var n int

	for {
		select {
		case <-ch:
			n++

		case <-time.After(200 * time.Millisecond):
			return n
		}
	}
}

func uids(n int) []string {
	res := make([]string, 0, n)

	for i := 0; i < n; i++ {
		res = append(res, fmt.Sprintf("%v", i+1))
	}

	return res
}

func queryStringColumn(t *testing.T, s *Store, column string, id int64) string {
	v, err := db.ExecuteResult(context.Background(), s.db, false, func(ctx context.Context, conn *db.Conn) (string, error) {
		return utils.MapQueryRow[string](ctx, conn, fmt.Sprintf("SELECT COALESCE(`%v`, '') FROM `messages` WHERE `id` = ?", column), id)
	})
	require.NoError(t, err)

	return v
}

// mixedMessage is a text message with a PDF attachment.
func mixedMessage() string {
	return strings.Join([]string{
		"From: alice@example.com",
		"To: bob@example.com",
		"Subject: Report",
		"Message-ID: <report@example.com>",
		`Content-Type: multipart/mixed; boundary="mix"`,
		"",
		"This is a multi-part message.",
		"--mix",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"See attached.",
		"--mix",
		`Content-Type: application/pdf; name="doc.pdf"`,
		`Content-Disposition: attachment; filename="doc.pdf"`,
		"Content-Transfer-Encoding: base64",
		"",
		"JVBERi0xLjQ=",
		"--mix--",
		"",
	}, "\r\n")
}
