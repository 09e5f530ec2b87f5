package store_benchmarks

import (
	"context"
	"os"

	"github.com/ProtonMail/localstore"
	"github.com/ProtonMail/localstore/benchmarks/store_bench/bench"
)

type StoreBenchmark interface {
	Name() string

	// Setup prepares the benchmark against a store whose source folder has already been filled.
	Setup(ctx context.Context, s *localstore.Store, src *localstore.Folder) error

	Run(ctx context.Context, s *localstore.Store, src *localstore.Folder) (*bench.Run, error)
}

// fill controls whether the source folder is filled before Setup.
type fill interface {
	FillSource() bool
}

type runner struct {
	benchmark StoreBenchmark
	dir       string
	store     *localstore.Store
	src       *localstore.Folder
}

func register(b StoreBenchmark) {
	bench.Register(&runner{benchmark: b})
}

func (r *runner) Name() string {
	return r.benchmark.Name()
}

func (r *runner) Setup(ctx context.Context, dir string) error {
	s, err := localstore.New(ctx, dir, "bench")
	if err != nil {
		return err
	}

	src, err := s.CreateFolder(ctx, localstore.FolderSpec{Name: "INBOX", SyncEnabled: true})
	if err != nil {
		return err
	}

	if f, ok := r.benchmark.(fill); !ok || f.FillSource() {
		if err := fillFolder(ctx, src, *bench.MessageCount); err != nil {
			return err
		}
	}

	r.dir, r.store, r.src = dir, s, src

	return r.benchmark.Setup(ctx, s, src)
}

func (r *runner) Run(ctx context.Context) (*bench.Run, error) {
	return r.benchmark.Run(ctx, r.store, r.src)
}

func (r *runner) TearDown(context.Context) error {
	if err := r.store.Close(); err != nil {
		return err
	}

	return os.RemoveAll(r.dir)
}
