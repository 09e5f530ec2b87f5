package store_benchmarks

import (
	"context"

	"github.com/ProtonMail/localstore"
	"github.com/ProtonMail/localstore/benchmarks/store_bench/bench"
	"github.com/ProtonMail/localstore/search"
)

// Search measures subject and full-text searches across the store.
type Search struct{}

func (*Search) Name() string {
	return "store-search"
}

func (*Search) Setup(context.Context, *localstore.Store, *localstore.Folder) error {
	return nil
}

func (*Search) Run(ctx context.Context, st *localstore.Store, _ *localstore.Folder) (*bench.Run, error) {
	timer := bench.NewTimer(2 * len(words))

	for _, word := range words {
		for _, field := range []search.Field{search.Subject, search.MessageContents} {
			timer.Start()
			_, err := st.SearchForMessages(ctx, search.And{
				search.Cond(field, search.Contains, word),
				search.Cond(search.Deleted, search.Equals, "0"),
			})
			timer.Stop()

			if err != nil {
				return nil, err
			}
		}
	}

	return timer.Run(), nil
}

func init() {
	register(&Search{})
}
