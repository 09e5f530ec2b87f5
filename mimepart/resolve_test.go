package mimepart_test

import (
	"errors"
	"testing"

	"github.com/ProtonMail/localstore/mimepart"
	"github.com/ProtonMail/localstore/mimepart/mock_mimepart"
	"github.com/emersion/go-message/textproto"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func newPart(id int64, contentType string, body mimepart.Body) *mimepart.Part {
	var h textproto.Header

	h.Set(mimepart.HeaderContentType, contentType)

	return &mimepart.Part{ID: id, Header: h, Body: body}
}

// nestedTree returns multipart/mixed > multipart/related > image/png with a Content-ID.
func nestedTree() (*mimepart.Tree, int) {
	t := mimepart.NewTree()

	root := t.Add(mimepart.NoPart, newPart(1, `multipart/mixed; boundary="outer"`, &mimepart.Multipart{Boundary: "outer"}))
	related := t.Add(root, newPart(2, `multipart/related; boundary="inner"`, &mimepart.Multipart{Boundary: "inner"}))

	leaf := newPart(3, "image/png", &mimepart.Data{Location: mimepart.InDatabase{Bytes: []byte("png")}, Size: 3})
	leaf.Header.Set(mimepart.HeaderContentID, "<logo@example.com>")

	return t, t.Add(related, leaf)
}

func TestBuildCIDMap_NestedMultipart(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tree, leaf := nestedTree()

	extractor := mock_mimepart.NewMockAttachmentInfoExtractor(ctrl)
	extractor.EXPECT().Extract(tree, leaf).Return(mimepart.ContentHandle{PartID: 3, URI: "attachment://a/3"}, nil).Times(1)

	cids := mimepart.BuildCIDMap(tree, 0, extractor)
	require.Len(t, cids, 1)
	require.Equal(t, mimepart.ContentHandle{PartID: 3, URI: "attachment://a/3"}, cids["logo@example.com"])
}

func TestBuildCIDMap_SkipsFailedExtraction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tree, _ := nestedTree()

	second := newPart(4, "image/gif", &mimepart.Data{Location: mimepart.Missing{}})
	second.Header.Set(mimepart.HeaderContentID, "<other@example.com>")
	tree.Add(1, second)

	extractor := mock_mimepart.NewMockAttachmentInfoExtractor(ctrl)
	extractor.EXPECT().Extract(tree, 2).Return(mimepart.ContentHandle{PartID: 3}, nil)
	extractor.EXPECT().Extract(tree, 3).Return(mimepart.ContentHandle{}, errors.New("boom"))

	cids := mimepart.BuildCIDMap(tree, 0, extractor)
	require.Len(t, cids, 1)
	require.Contains(t, cids, "logo@example.com")
}

func TestBuildCIDMap_DefaultExtractor(t *testing.T) {
	tree, _ := nestedTree()

	cids := mimepart.BuildCIDMap(tree, 0, mimepart.DefaultExtractor{AccountID: "acc"})
	require.Equal(t, map[string]mimepart.ContentHandle{
		"logo@example.com": {
			PartID:    3,
			MimeType:  "image/png",
			Size:      3,
			ContentID: "logo@example.com",
			URI:       "attachment://acc/3",
		},
	}, cids)
}

func TestFindPartByID(t *testing.T) {
	tree, leaf := nestedTree()

	idx, ok := mimepart.FindPartByID(tree, 0, 3)
	require.True(t, ok)
	require.Equal(t, leaf, idx)

	idx, ok = mimepart.FindPartByID(tree, 0, 1)
	require.True(t, ok)
	require.Equal(t, 0, idx)

	_, ok = mimepart.FindPartByID(tree, 0, 42)
	require.False(t, ok)
}

func TestFindPartByID_NestedMessage(t *testing.T) {
	tree := mimepart.NewTree()

	root := tree.Add(mimepart.NoPart, newPart(1, `multipart/mixed; boundary="b"`, &mimepart.Multipart{Boundary: "b"}))
	attached := tree.Add(root, newPart(2, "message/rfc822", &mimepart.MessageBody{Root: mimepart.NoPart}))
	inner := tree.Add(attached, newPart(3, "text/plain", &mimepart.Data{Location: mimepart.Missing{}}))

	idx, ok := mimepart.FindPartByID(tree, root, 3)
	require.True(t, ok)
	require.Equal(t, inner, idx)

	// Searching below the inner part never climbs back up.
	_, ok = mimepart.FindPartByID(tree, inner, 1)
	require.False(t, ok)
}

func TestFindPartByID_DeepNesting(t *testing.T) {
	tree := mimepart.NewTree()

	parent := mimepart.NoPart

	for i := 1; i <= 10000; i++ {
		parent = tree.Add(parent, newPart(int64(i), `multipart/mixed; boundary="b"`, &mimepart.Multipart{Boundary: "b"}))
	}

	leaf := tree.Add(parent, newPart(20000, "text/plain", &mimepart.Data{Location: mimepart.Missing{}}))

	idx, ok := mimepart.FindPartByID(tree, 0, 20000)
	require.True(t, ok)
	require.Equal(t, leaf, idx)

	_, ok = mimepart.FindPartByID(tree, 0, 30000)
	require.False(t, ok)
}
