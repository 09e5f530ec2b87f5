package localstore

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/ProtonMail/localstore/mimepart"
	"github.com/ProtonMail/localstore/mimepart/mock_mimepart"
	"github.com/ProtonMail/localstore/reporter"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reporter.NullReporter

	lock       sync.Mutex
	exceptions []any
}

func (r *recordingReporter) ReportExceptionWithContext(exception any, _ reporter.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.exceptions = append(r.exceptions, exception)

	return nil
}

func (r *recordingReporter) count() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.exceptions)
}

func findPart(t *testing.T, tree *mimepart.Tree, mimeType string) *mimepart.Part {
	for idx := 0; idx < tree.Len(); idx++ {
		if tree.Part(idx).MimeType() == mimeType {
			return tree.Part(idx)
		}
	}

	require.Failf(t, "part not found", "no %v part", mimeType)

	return nil
}

func readAttachment(t *testing.T, s *Store, partID int64) string {
	rc, err := s.OpenAttachment(context.Background(), partID)
	require.NoError(t, err)

	defer func() { require.NoError(t, rc.Close()) }()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)

	return string(b)
}

func TestStore_OpenAttachment_InDatabase(t *testing.T) {
	s := newTestStore(t)
	f := newTestFolder(t, s, "INBOX")

	msg := storeRaw(t, f, "1", mixedMessage())

	tree, err := msg.LoadBody(context.Background())
	require.NoError(t, err)

	pdf := findPart(t, tree, "application/pdf")
	require.Equal(t, "%PDF-1.4", readAttachment(t, s, pdf.ID))

	var buf bytes.Buffer

	require.NoError(t, s.WriteAttachment(context.Background(), pdf.ID, &buf))
	require.Equal(t, "%PDF-1.4", buf.String())
}

func TestStore_OpenAttachment_OnDisk(t *testing.T) {
	s := newTestStore(t, WithMaxInlineBodySize(1))
	f := newTestFolder(t, s, "INBOX")

	msg := storeRaw(t, f, "1", mixedMessage())

	tree, err := msg.LoadBody(context.Background())
	require.NoError(t, err)

	pdf := findPart(t, tree, "application/pdf")
	require.FileExists(t, filepath.Join(s.db.AttachmentDir(), strconv.FormatInt(pdf.ID, 10)))
	require.Equal(t, "%PDF-1.4", readAttachment(t, s, pdf.ID))

	size, err := s.GetSize()
	require.NoError(t, err)
	require.Greater(t, size, int64(0))

	// Destroying the message removes its files.
	require.NoError(t, msg.Destroy(context.Background()))
	require.NoFileExists(t, filepath.Join(s.db.AttachmentDir(), strconv.FormatInt(pdf.ID, 10)))
}

func TestStore_OpenAttachment_ChildPartContainsData(t *testing.T) {
	s := newTestStore(t)
	f := newTestFolder(t, s, "INBOX")

	msg := storeRaw(t, f, "1", mixedMessage())

	body := readAttachment(t, s, msg.MessagePartID())
	require.True(t, strings.HasPrefix(body, "This is a multi-part message."))
	require.Contains(t, body, "See attached.")
	require.Contains(t, body, "--mix--")
}

func TestStore_OpenAttachment_UnknownPart(t *testing.T) {
	rep := &recordingReporter{}

	s := newTestStore(t, WithReporter(rep))

	_, err := s.OpenAttachment(context.Background(), 424242)
	require.ErrorIs(t, err, ErrPartNotFound)
	require.True(t, IsStorageError(err))
	require.True(t, IsNotFound(err))
	require.Equal(t, 1, rep.count())
}

func relatedMessage() string {
	return strings.Join([]string{
		"From: alice@example.com",
		"To: bob@example.com",
		"Subject: Logo",
		`Content-Type: multipart/related; boundary="rel"`,
		"",
		"--rel",
		"Content-Type: text/html; charset=utf-8",
		"",
		`<p><img src="cid:logo@example.com"></p>`,
		"--rel",
		"Content-Type: image/png",
		"Content-ID: <logo@example.com>",
		"Content-Transfer-Encoding: base64",
		"",
		"aGVsbG8gd29ybGQ=",
		"--rel--",
		"",
	}, "\r\n")
}

func TestMessage_ContentIDMap(t *testing.T) {
	s := newTestStore(t)
	f := newTestFolder(t, s, "INBOX")

	msg := storeRaw(t, f, "1", relatedMessage())

	cids, err := msg.ContentIDMap(context.Background())
	require.NoError(t, err)
	require.Len(t, cids, 1)

	handle, ok := cids["logo@example.com"]
	require.True(t, ok)
	require.Equal(t, "image/png", handle.MimeType)
	require.Equal(t, "attachment://account/"+strconv.FormatInt(handle.PartID, 10), handle.URI)
	require.Equal(t, "hello world", readAttachment(t, s, handle.PartID))
}

func TestMessage_ContentIDMap_CustomExtractor(t *testing.T) {
	ctl := gomock.NewController(t)
	extractor := mock_mimepart.NewMockAttachmentInfoExtractor(ctl)

	s := newTestStore(t, WithAttachmentInfoExtractor(extractor))
	f := newTestFolder(t, s, "INBOX")

	msg := storeRaw(t, f, "1", relatedMessage())

	extractor.EXPECT().
		Extract(gomock.Any(), gomock.Any()).
		DoAndReturn(func(tree *mimepart.Tree, idx int) (mimepart.ContentHandle, error) {
			return mimepart.ContentHandle{PartID: tree.Part(idx).ID, URI: "content://logo"}, nil
		})

	cids, err := msg.ContentIDMap(context.Background())
	require.NoError(t, err)
	require.Equal(t, "content://logo", cids["logo@example.com"].URI)
}

func TestStore_Compact(t *testing.T) {
	s := newTestStore(t)
	f := newTestFolder(t, s, "INBOX")

	for _, uid := range uids(20) {
		storeTest(t, f, uid, testMessage{messageID: uid + "@example.com", subject: "Compact " + uid})
	}

	require.NoError(t, f.ClearAllMessages(context.Background()))
	require.NoError(t, s.Compact(context.Background()))

	messages, err := f.GetMessages(context.Background(), true)
	require.NoError(t, err)
	require.Empty(t, messages)
}
