package store_benchmarks

import (
	"context"

	"github.com/ProtonMail/localstore"
	"github.com/ProtonMail/localstore/benchmarks/store_bench/bench"
	"github.com/bradenaw/juniper/xslices"
)

// Move measures moving every message of the source folder to another folder in batches.
type Move struct {
	dest *localstore.Folder
}

func (*Move) Name() string {
	return "store-move"
}

func (m *Move) Setup(ctx context.Context, st *localstore.Store, _ *localstore.Folder) error {
	dest, err := st.CreateFolder(ctx, localstore.FolderSpec{Name: "Archive", SyncEnabled: true})
	if err != nil {
		return err
	}

	m.dest = dest

	return nil
}

func (m *Move) Run(ctx context.Context, _ *localstore.Store, src *localstore.Folder) (*bench.Run, error) {
	messages, err := src.GetMessages(ctx, false)
	if err != nil {
		return nil, err
	}

	batches := xslices.Chunk(messages, int(*bench.BatchSize))
	timer := bench.NewTimer(len(batches))

	for _, batch := range batches {
		timer.Start()
		_, err := src.MoveMessages(ctx, m.dest, batch)
		timer.Stop()

		if err != nil {
			return nil, err
		}
	}

	return timer.Run(), nil
}

func init() {
	register(&Move{})
}
