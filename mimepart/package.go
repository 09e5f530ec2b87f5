// Package mimepart models a MIME message as a flat tree of parts.
//
// Parts live in a slice and reference each other by index. Trees are rebuilt from database rows on every
// load, so nothing holds on to them as an object graph.
package mimepart

//go:generate mockgen -destination mock_mimepart/extractor.go . AttachmentInfoExtractor
