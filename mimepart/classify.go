package mimepart

// PartType is the role of a part in the rendered message. It is persisted as an integer.
type PartType int

const (
	PartTypeUnknown PartType = iota
	PartTypeAlternativePlain
	PartTypeAlternativeHTML
	PartTypeText
	PartTypeRelated
	PartTypeAttachment
	PartTypeHiddenAttachment
)

// Classify assigns a type to every part of the tree.
func Classify(t *Tree) []PartType {
	types := make([]PartType, t.Len())

	for idx := 0; idx < t.Len(); idx++ {
		types[idx] = classify(t, idx)
	}

	return types
}

func classify(t *Tree, idx int) PartType {
	part := t.Part(idx)
	mediaType := part.MimeType()

	switch part.Body.(type) {
	case *Multipart:
		if mediaType == "multipart/related" {
			return PartTypeRelated
		}

		return PartTypeUnknown

	case *MessageBody:
		if part.Parent == NoPart {
			return PartTypeUnknown
		}

		return PartTypeAttachment
	}

	disposition, _ := part.Disposition()
	isText := mediaType == "text/plain" || mediaType == "text/html"

	if isText && disposition != "attachment" && part.DisplayName() == "" {
		if parent := part.Parent; parent != NoPart && t.Part(parent).MimeType() == "multipart/alternative" {
			if mediaType == "text/html" {
				return PartTypeAlternativeHTML
			}

			return PartTypeAlternativePlain
		}

		return PartTypeText
	}

	if parent := part.Parent; parent != NoPart &&
		t.Part(parent).MimeType() == "multipart/related" &&
		part.ContentID() != "" &&
		disposition != "attachment" {
		return PartTypeHiddenAttachment
	}

	return PartTypeAttachment
}

// AttachmentCount returns the number of parts presented to the user as attachments.
func AttachmentCount(types []PartType) int {
	var n int

	for _, typ := range types {
		if typ == PartTypeAttachment {
			n++
		}
	}

	return n
}

// FindTextPart returns the part that best represents the message text: the first plain text part, or
// failing that the first HTML part.
func FindTextPart(t *Tree) (int, bool) {
	if t.Len() == 0 {
		return 0, false
	}

	plain, html := -1, -1

	_ = t.Walk(0, func(idx int) error {
		part := t.Part(idx)

		if _, ok := part.Body.(*Data); !ok {
			return nil
		}

		if disposition, _ := part.Disposition(); disposition == "attachment" || insideAttachedMessage(t, idx) {
			return nil
		}

		switch part.MimeType() {
		case "text/plain":
			if plain < 0 {
				plain = idx
			}

		case "text/html":
			if html < 0 {
				html = idx
			}
		}

		return nil
	})

	if plain >= 0 {
		return plain, true
	}

	if html >= 0 {
		return html, true
	}

	return 0, false
}

func insideAttachedMessage(t *Tree, idx int) bool {
	for parent := t.Part(idx).Parent; parent != NoPart; parent = t.Part(parent).Parent {
		if _, ok := t.Part(parent).Body.(*MessageBody); ok {
			return true
		}
	}

	return false
}
