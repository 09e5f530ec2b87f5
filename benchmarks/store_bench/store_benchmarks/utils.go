package store_benchmarks

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/ProtonMail/localstore"
	"github.com/ProtonMail/localstore/benchmarks/store_bench/bench"
	"github.com/ProtonMail/localstore/flags"
	"github.com/ProtonMail/localstore/mimepart"
	"github.com/bradenaw/juniper/xslices"
	"github.com/google/uuid"
)

var words = []string{"invoice", "meeting", "report", "holiday", "release", "budget", "review", "lunch"}

// newMessage generates a plain text message. Every tenth message replies to the one before it.
func newMessage(n uint) (localstore.NewMessage, error) {
	date := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Minute)

	lines := []string{
		"From: Sender <sender@example.com>",
		"To: Recipient <recipient@example.com>",
		fmt.Sprintf("Subject: %v %v", words[rand.Intn(len(words))], n), //nolint:gosec
		"Date: " + date.Format(time.RFC1123Z),
		fmt.Sprintf("Message-ID: <%v@bench.example.com>", n),
	}

	if n%10 != 0 {
		lines = append(lines, fmt.Sprintf("In-Reply-To: <%v@bench.example.com>", n-1))
	}

	lines = append(lines, "Content-Type: text/plain; charset=utf-8", "", randomText(int(*bench.BodySize)), "")

	tree, err := mimepart.ParseBytes([]byte(strings.Join(lines, "\r\n")))
	if err != nil {
		return localstore.NewMessage{}, err
	}

	return localstore.NewMessage{
		Tree: tree,
		Info: localstore.MessageInfo{UID: uuid.NewString(), Flags: flags.NewList(), InternalDate: date},
	}, nil
}

func randomText(size int) string {
	var sb strings.Builder

	for sb.Len() < size {
		sb.WriteString(words[rand.Intn(len(words))]) //nolint:gosec
		sb.WriteByte(' ')

		if sb.Len()%72 < 8 {
			sb.WriteString("\r\n")
		}
	}

	return sb.String()
}

func newMessages(from, count uint) ([]localstore.NewMessage, error) {
	res := make([]localstore.NewMessage, 0, count)

	for i := from; i < from+count; i++ {
		msg, err := newMessage(i)
		if err != nil {
			return nil, err
		}

		res = append(res, msg)
	}

	return res, nil
}

func fillFolder(ctx context.Context, folder *localstore.Folder, count uint) error {
	messages, err := newMessages(0, count)
	if err != nil {
		return err
	}

	for _, batch := range xslices.Chunk(messages, int(*bench.BatchSize)) {
		if _, err := folder.AppendMessages(ctx, batch); err != nil {
			return err
		}
	}

	return nil
}

func messageIDs(ctx context.Context, folder *localstore.Folder) ([]int64, error) {
	messages, err := folder.GetMessages(ctx, false)
	if err != nil {
		return nil, err
	}

	return xslices.Map(messages, func(m *localstore.Message) int64 { return m.ID() }), nil
}
