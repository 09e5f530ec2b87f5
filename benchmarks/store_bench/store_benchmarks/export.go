package store_benchmarks

import (
	"context"
	"io"

	"github.com/ProtonMail/localstore"
	"github.com/ProtonMail/localstore/benchmarks/store_bench/bench"
)

// Export measures writing the whole source folder as an mbox file.
type Export struct{}

func (*Export) Name() string {
	return "store-export-mbox"
}

func (*Export) Setup(context.Context, *localstore.Store, *localstore.Folder) error {
	return nil
}

func (*Export) Run(ctx context.Context, _ *localstore.Store, src *localstore.Folder) (*bench.Run, error) {
	timer := bench.NewTimer(1)

	timer.Start()
	_, err := src.ExportMbox(ctx, io.Discard)
	timer.Stop()

	if err != nil {
		return nil, err
	}

	return timer.Run(), nil
}

func init() {
	register(&Export{})
}
