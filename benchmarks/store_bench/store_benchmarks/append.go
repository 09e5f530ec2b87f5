package store_benchmarks

import (
	"context"

	"github.com/ProtonMail/localstore"
	"github.com/ProtonMail/localstore/benchmarks/store_bench/bench"
	"github.com/bradenaw/juniper/xslices"
)

// Append measures appending batches of new messages to an empty folder.
type Append struct {
	messages []localstore.NewMessage
}

func (*Append) Name() string {
	return "store-append"
}

func (*Append) FillSource() bool {
	return false
}

func (a *Append) Setup(context.Context, *localstore.Store, *localstore.Folder) error {
	messages, err := newMessages(0, *bench.MessageCount)
	if err != nil {
		return err
	}

	a.messages = messages

	return nil
}

func (a *Append) Run(ctx context.Context, _ *localstore.Store, src *localstore.Folder) (*bench.Run, error) {
	batches := xslices.Chunk(a.messages, int(*bench.BatchSize))
	timer := bench.NewTimer(len(batches))

	for _, batch := range batches {
		timer.Start()
		_, err := src.AppendMessages(ctx, batch)
		timer.Stop()

		if err != nil {
			return nil, err
		}
	}

	return timer.Run(), nil
}

func init() {
	register(&Append{})
}
