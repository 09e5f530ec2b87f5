package store_benchmarks

import (
	"context"

	"github.com/ProtonMail/localstore"
	"github.com/ProtonMail/localstore/benchmarks/store_bench/bench"
	"github.com/ProtonMail/localstore/flags"
)

// SetFlag measures bulk flag updates over every message of the folder.
type SetFlag struct {
	ids []int64
}

func (*SetFlag) Name() string {
	return "store-set-flag"
}

func (s *SetFlag) Setup(ctx context.Context, _ *localstore.Store, src *localstore.Folder) error {
	ids, err := messageIDs(ctx, src)
	if err != nil {
		return err
	}

	s.ids = ids

	return nil
}

func (s *SetFlag) Run(ctx context.Context, st *localstore.Store, _ *localstore.Folder) (*bench.Run, error) {
	timer := bench.NewTimer(8)

	for _, flag := range []flags.Flag{flags.Seen, flags.Flagged, flags.Answered, flags.Forwarded} {
		for _, state := range []bool{true, false} {
			timer.Start()
			err := st.SetFlag(ctx, s.ids, flag, state)
			timer.Stop()

			if err != nil {
				return nil, err
			}
		}
	}

	return timer.Run(), nil
}

func init() {
	register(&SetFlag{})
}
