package mimepart

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ContentHandle is a retrievable reference to the content of a part.
type ContentHandle struct {
	PartID      int64
	MimeType    string
	DisplayName string
	Size        int64
	ContentID   string
	URI         string
}

// AttachmentInfoExtractor resolves a content handle for a leaf part.
type AttachmentInfoExtractor interface {
	Extract(t *Tree, idx int) (ContentHandle, error)
}

// DefaultExtractor builds handles from the part headers. URIs have the form attachment://<account>/<part id>.
type DefaultExtractor struct {
	AccountID string
}

func (e DefaultExtractor) Extract(t *Tree, idx int) (ContentHandle, error) {
	part := t.Part(idx)

	if part.ID == 0 {
		return ContentHandle{}, fmt.Errorf("part %v has not been stored", idx)
	}

	handle := ContentHandle{
		PartID:      part.ID,
		MimeType:    part.MimeType(),
		DisplayName: part.DisplayName(),
		ContentID:   part.ContentID(),
		URI:         fmt.Sprintf("attachment://%v/%v", e.AccountID, part.ID),
	}

	if data, ok := part.Body.(*Data); ok {
		handle.Size = data.Size
	}

	return handle, nil
}

// FindPartByID returns the index of the part with the given id within the subtree rooted at root.
func FindPartByID(t *Tree, root int, id int64) (int, bool) {
	if t.Part(root).ID == id {
		return root, true
	}

	stack := []int{root}

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if t.Part(idx).ID == id {
			return idx, true
		}

		switch body := t.Part(idx).Body.(type) {
		case *Multipart:
			stack = append(stack, body.Children...)

		case *MessageBody:
			if body.Root != NoPart {
				stack = append(stack, body.Root)
			}
		}
	}

	return 0, false
}

// BuildCIDMap maps the Content-ID of every non-multipart part below root to its content handle.
// Parts the extractor fails on are skipped. On duplicate Content-IDs the last part visited wins.
func BuildCIDMap(t *Tree, root int, extractor AttachmentInfoExtractor) map[string]ContentHandle {
	res := make(map[string]ContentHandle)

	stack := []int{root}

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		part := t.Part(idx)

		if mp, ok := part.Body.(*Multipart); ok {
			stack = append(stack, mp.Children...)
			continue
		}

		cid := part.ContentID()
		if cid == "" {
			continue
		}

		handle, err := extractor.Extract(t, idx)
		if err != nil {
			logrus.WithError(err).WithField("cid", cid).Error("Failed to extract attachment info")
			continue
		}

		res[cid] = handle
	}

	return res
}
