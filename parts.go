package localstore

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/ProtonMail/localstore/internal/db"
	"github.com/ProtonMail/localstore/internal/db/utils"
	"github.com/ProtonMail/localstore/mimepart"
	"github.com/bradenaw/juniper/xslices"
	"github.com/emersion/go-message/textproto"
	"github.com/sirupsen/logrus"
)

type partRow struct {
	ID              int64          `db:"id"`
	Root            sql.NullInt64  `db:"root"`
	Parent          int64          `db:"parent"`
	Header          []byte         `db:"header"`
	Encoding        sql.NullString `db:"encoding"`
	DecodedBodySize sql.NullInt64  `db:"decoded_body_size"`
	DataLocation    int            `db:"data_location"`
	Data            []byte         `db:"data"`
	Preamble        []byte         `db:"preamble"`
	Epilogue        []byte         `db:"epilogue"`
	Boundary        sql.NullString `db:"boundary"`
	ServerExtra     sql.NullString `db:"server_extra"`
}

const partColumns = "`id`, `root`, `parent`, `header`, `encoding`, `decoded_body_size`, `data_location`, `data`, " +
	"`preamble`, `epilogue`, `boundary`, `server_extra`"

// messageFiles lists what must be removed outside the database once a deletion has been committed.
type messageFiles struct {
	partIDs    []int64
	messageIDs []int64
}

func (f messageFiles) merge(other messageFiles) messageFiles {
	return messageFiles{
		partIDs:    append(f.partIDs, other.partIDs...),
		messageIDs: append(f.messageIDs, other.messageIDs...),
	}
}

// savePartTree inserts every part of the tree and returns the id of the root part. The ids are also assigned
// to the parts of the tree. Bodies larger than the inline limit are written to the attachment store; the ids of
// the parts written there are returned even on failure so the caller can remove them.
func (s *Store) savePartTree(ctx context.Context, conn *db.Conn, tree *mimepart.Tree) (int64, []int64, error) {
	if tree.Len() == 0 {
		return 0, nil, fmt.Errorf("message has no parts")
	}

	var (
		types   = mimepart.Classify(tree)
		ids     = make([]int64, tree.Len())
		written []int64
		rootID  int64
	)

	err := tree.Walk(0, func(idx int) error {
		part := tree.Part(idx)

		parentID := int64(-1)
		if part.Parent != mimepart.NoPart {
			parentID = ids[part.Parent]
		}

		var header bytes.Buffer

		if err := textproto.WriteHeader(&header, part.Header); err != nil {
			return err
		}

		var (
			location  = mimepart.LocationMissing
			encoding  = part.Encoding()
			size      sql.NullInt64
			data      []byte
			preamble  []byte
			epilogue  []byte
			boundary  string
			toDisk    io.Reader
			toDiskRC  io.Closer
		)

		switch body := part.Body.(type) {
		case *mimepart.Multipart:
			location = mimepart.LocationChildPartContainsData
			preamble, epilogue, boundary = body.Preamble, body.Epilogue, body.Boundary

		case *mimepart.MessageBody:
			location = mimepart.LocationChildPartContainsData

		case *mimepart.Data:
			size = sql.NullInt64{Int64: body.Size, Valid: true}

			if body.Encoding != "" {
				encoding = body.Encoding
			}

			switch loc := body.Location.(type) {
			case mimepart.InDatabase:
				if int64(len(loc.Bytes)) > s.maxInlineBodySize {
					location, toDisk = mimepart.LocationOnDisk, bytes.NewReader(loc.Bytes)
				} else {
					location, data = mimepart.LocationInDatabase, loc.Bytes
				}

			case mimepart.OnDisk:
				rc, err := loc.Open()
				if err != nil {
					return err
				}

				location, toDisk, toDiskRC = mimepart.LocationOnDisk, rc, rc

			case mimepart.ChildPartContainsData:
				location = mimepart.LocationChildPartContainsData

			case mimepart.Missing, nil:
				location = mimepart.LocationMissing

			default:
				return fmt.Errorf("unexpected data location %T", loc)
			}
		}

		if toDiskRC != nil {
			defer toDiskRC.Close()
		}

		var root sql.NullInt64
		if idx != 0 {
			root = sql.NullInt64{Int64: rootID, Valid: true}
		}

		id, err := utils.ExecInsert(ctx, conn,
			"INSERT INTO `message_parts` (`type`, `root`, `parent`, `seq`, `mime_type`, `decoded_body_size`, "+
				"`display_name`, `header`, `encoding`, `charset`, `data_location`, `data`, `preamble`, `epilogue`, "+
				"`boundary`, `content_id`, `server_extra`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			int(types[idx]),
			root,
			parentID,
			tree.Seq(idx),
			part.MimeType(),
			size,
			nullString(part.DisplayName()),
			header.Bytes(),
			nullString(encoding),
			nullString(part.Charset()),
			int(location),
			data,
			preamble,
			epilogue,
			nullString(boundary),
			nullString(part.ContentID()),
			nullString(part.ServerExtra),
		)
		if err != nil {
			return err
		}

		if idx == 0 {
			rootID = id

			// The root part is its own root so deleting a message deletes all of its parts.
			if _, err := utils.ExecQuery(ctx, conn, "UPDATE `message_parts` SET `root` = ? WHERE `id` = ?", id, id); err != nil {
				return err
			}
		}

		ids[idx] = id
		part.ID = id

		if toDisk != nil {
			written = append(written, id)

			if _, err := s.attachments.SetUnchecked(id, toDisk); err != nil {
				return fmt.Errorf("failed to write body of part %v: %w", id, err)
			}
		}

		return nil
	})

	return rootID, written, err
}

// loadPartTree reads the parts of the tree rooted at rootID.
func (s *Store) loadPartTree(ctx context.Context, conn *db.Conn, rootID int64) (*mimepart.Tree, error) {
	rows, err := utils.Select[partRow](ctx, conn,
		fmt.Sprintf("SELECT %v FROM `message_parts` WHERE `root` = ? ORDER BY `id`", partColumns),
		rootID,
	)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 || rows[0].ID != rootID {
		err := fmt.Errorf("%w: root part %v", ErrPartNotFound, rootID)
		s.reportIntegrity(err, map[string]any{"root": rootID})

		return nil, integrityError("load part tree", err)
	}

	tree := mimepart.NewTree()
	indices := make(map[int64]int, len(rows))

	for i, row := range rows {
		part, err := s.newPart(row)
		if err != nil {
			return nil, err
		}

		parent := mimepart.NoPart

		if i > 0 {
			idx, ok := indices[row.Parent]
			if !ok {
				err := fmt.Errorf("%w: parent %v of part %v", ErrPartNotFound, row.Parent, row.ID)
				s.reportIntegrity(err, map[string]any{"root": rootID, "part": row.ID})

				return nil, integrityError("load part tree", err)
			}

			parent = idx
		}

		indices[row.ID] = tree.Add(parent, part)
	}

	return tree, nil
}

func (s *Store) newPart(row partRow) (*mimepart.Part, error) {
	header, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(row.Header)))
	if err != nil {
		return nil, fmt.Errorf("failed to read header of part %v: %w", row.ID, err)
	}

	part := &mimepart.Part{
		ID:          row.ID,
		Header:      header,
		ServerExtra: row.ServerExtra.String,
	}

	data := &mimepart.Data{
		Encoding: row.Encoding.String,
		Size:     row.DecodedBodySize.Int64,
	}

	switch code := mimepart.LocationCode(row.DataLocation); code {
	case mimepart.LocationChildPartContainsData:
		mimeType := part.MimeType()

		switch {
		case strings.HasPrefix(mimeType, "multipart/"):
			part.Body = &mimepart.Multipart{
				Boundary: row.Boundary.String,
				Preamble: row.Preamble,
				Epilogue: row.Epilogue,
			}

		case mimeType == "message/rfc822":
			part.Body = &mimepart.MessageBody{Root: mimepart.NoPart}

		default:
			data.Location = mimepart.ChildPartContainsData{}
			part.Body = data
		}

	case mimepart.LocationInDatabase:
		data.Location = mimepart.InDatabase{Bytes: row.Data}
		part.Body = data

	case mimepart.LocationOnDisk:
		id := row.ID
		data.Location = mimepart.OnDisk{Open: func() (io.ReadCloser, error) {
			return s.attachments.Open(id)
		}}
		part.Body = data

	case mimepart.LocationMissing:
		data.Location = mimepart.Missing{}
		part.Body = data

	default:
		err := fmt.Errorf("unknown data location %v of part %v", code, row.ID)
		s.reportIntegrity(err, map[string]any{"part": row.ID})

		return nil, integrityError("load part", err)
	}

	return part, nil
}

// OpenAttachment returns the decoded content of a part. Parts whose data lives in their children yield the raw
// bytes of those children.
func (s *Store) OpenAttachment(ctx context.Context, partID int64) (io.ReadCloser, error) {
	type result struct {
		row  partRow
		tree *mimepart.Tree
		idx  int
	}

	res, err := db.ExecuteResult(ctx, s.db, false, func(ctx context.Context, conn *db.Conn) (result, error) {
		row, err := utils.Get[partRow](ctx, conn,
			fmt.Sprintf("SELECT %v FROM `message_parts` WHERE `id` = ?", partColumns),
			partID,
		)
		if db.IsErrNotFound(err) {
			err := fmt.Errorf("%w: %v", ErrPartNotFound, partID)
			s.reportIntegrity(err, map[string]any{"part": partID})

			return result{}, integrityError("open attachment", err)
		} else if err != nil {
			return result{}, err
		}

		if mimepart.LocationCode(row.DataLocation) != mimepart.LocationChildPartContainsData {
			return result{row: row}, nil
		}

		msg, err := s.getMessageByRootPartID(ctx, conn, row.Root.Int64)
		if err != nil {
			return result{}, err
		}

		tree, err := s.loadPartTree(ctx, conn, msg.messagePartID)
		if err != nil {
			return result{}, err
		}

		idx, ok := mimepart.FindPartByID(tree, 0, partID)
		if !ok {
			err := fmt.Errorf("%w: %v in message %v", ErrPartNotFound, partID, msg.id)
			s.reportIntegrity(err, map[string]any{"part": partID, "message": msg.id})

			return result{}, integrityError("open attachment", err)
		}

		return result{row: row, tree: tree, idx: idx}, nil
	})
	if err != nil {
		return nil, storageError("open attachment", err)
	}

	// The database lock is released here; reading the body only touches the attachment files.
	switch code := mimepart.LocationCode(res.row.DataLocation); code {
	case mimepart.LocationInDatabase:
		return io.NopCloser(mimepart.Decoder(res.row.Encoding.String, bytes.NewReader(res.row.Data))), nil

	case mimepart.LocationOnDisk:
		rc, err := s.attachments.Open(partID)
		if err != nil {
			return nil, storageError("open attachment file", err)
		}

		return &decodingReadCloser{Reader: mimepart.Decoder(res.row.Encoding.String, rc), Closer: rc}, nil

	case mimepart.LocationChildPartContainsData:
		var buf bytes.Buffer

		if err := mimepart.WriteBody(&buf, res.tree, res.idx); err != nil {
			return nil, storageError("write part body", err)
		}

		return io.NopCloser(&buf), nil

	case mimepart.LocationMissing:
		return io.NopCloser(bytes.NewReader(nil)), nil

	default:
		err := fmt.Errorf("unknown data location %v of part %v", code, partID)
		s.reportIntegrity(err, map[string]any{"part": partID})

		return nil, integrityError("open attachment", err)
	}
}

// WriteAttachment copies the decoded content of a part to w.
func (s *Store) WriteAttachment(ctx context.Context, partID int64, w io.Writer) error {
	rc, err := s.OpenAttachment(ctx, partID)
	if err != nil {
		return err
	}

	defer rc.Close()

	if _, err := io.Copy(w, rc); err != nil {
		return storageError("copy attachment", err)
	}

	return nil
}

type decodingReadCloser struct {
	io.Reader
	io.Closer
}

// LoadMessageByRootPartID returns the message whose part tree is rooted at the given part.
func (s *Store) LoadMessageByRootPartID(ctx context.Context, partID int64) (*Message, error) {
	msg, err := db.ExecuteResult(ctx, s.db, false, func(ctx context.Context, conn *db.Conn) (*Message, error) {
		return s.getMessageByRootPartID(ctx, conn, partID)
	})
	if err != nil {
		return nil, storageError("load message by root part", err)
	}

	return msg, nil
}

func (s *Store) getMessageByRootPartID(ctx context.Context, conn *db.Conn, partID int64) (*Message, error) {
	messages, err := s.loadMessages(ctx, conn, nil,
		fmt.Sprintf("SELECT %v FROM %v WHERE `messages`.`message_part_id` = ? LIMIT 1", messageColumns, messageTables),
		partID,
	)
	if err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		err := fmt.Errorf("%w: root part %v", ErrMessageNotFound, partID)
		s.reportIntegrity(err, map[string]any{"root": partID})

		return nil, integrityError("load message by root part", err)
	}

	return messages[0], nil
}

// collectMessageFiles returns the attachment files and index entries of the given messages.
func collectMessageFiles(ctx context.Context, conn *db.Conn, messageIDs []int64) (messageFiles, error) {
	files := messageFiles{messageIDs: messageIDs}

	for _, chunk := range xslices.Chunk(messageIDs, db.ChunkLimit) {
		query, args, err := utils.In(conn,
			"SELECT `message_parts`.`id` FROM `message_parts` "+
				"JOIN `messages` ON `message_parts`.`root` = `messages`.`message_part_id` "+
				"WHERE `messages`.`id` IN (?) AND `message_parts`.`data_location` = ?",
			chunk, int(mimepart.LocationOnDisk),
		)
		if err != nil {
			return messageFiles{}, err
		}

		partIDs, err := utils.MapQueryRows[int64](ctx, conn, query, args...)
		if err != nil {
			return messageFiles{}, err
		}

		files.partIDs = append(files.partIDs, partIDs...)
	}

	return files, nil
}

// collectFolderFiles returns the attachment files and index entries of all messages of a folder.
func collectFolderFiles(ctx context.Context, conn *db.Conn, folderID int64) (messageFiles, error) {
	messageIDs, err := utils.MapQueryRows[int64](ctx, conn, "SELECT `id` FROM `messages` WHERE `folder_id` = ?", folderID)
	if err != nil {
		return messageFiles{}, err
	}

	partIDs, err := utils.MapQueryRows[int64](ctx, conn,
		"SELECT `message_parts`.`id` FROM `message_parts` "+
			"JOIN `messages` ON `message_parts`.`root` = `messages`.`message_part_id` "+
			"WHERE `messages`.`folder_id` = ? AND `message_parts`.`data_location` = ?",
		folderID, int(mimepart.LocationOnDisk),
	)
	if err != nil {
		return messageFiles{}, err
	}

	return messageFiles{partIDs: partIDs, messageIDs: messageIDs}, nil
}

// removeFiles deletes attachment files and index entries of deleted messages. Failures are only logged.
func (s *Store) removeFiles(files messageFiles) {
	if len(files.partIDs) > 0 {
		if err := s.attachments.Delete(files.partIDs...); err != nil {
			s.log.WithError(err).WithField("parts", len(files.partIDs)).Warn("Failed to delete attachment files")
		}
	}

	if s.fulltext != nil && len(files.messageIDs) > 0 {
		if err := s.fulltext.Remove(files.messageIDs...); err != nil {
			s.log.WithError(err).WithField("messages", len(files.messageIDs)).Warn("Failed to remove messages from full-text index")
		}
	}
}

// discardWritten removes attachment files written by a transaction that was rolled back.
func (s *Store) discardWritten(partIDs []int64) {
	if len(partIDs) == 0 {
		return
	}

	if err := s.attachments.Delete(partIDs...); err != nil {
		logrus.WithError(err).Warn("Failed to delete attachment files of rolled back message")
	}
}
