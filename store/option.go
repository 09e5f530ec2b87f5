package store

type Option interface {
	config(*onDiskStore)
}

func WithSemaphore(sem *Semaphore) Option {
	return &withSem{
		sem: sem,
	}
}

type withSem struct {
	sem *Semaphore
}

func (opt withSem) config(store *onDiskStore) {
	store.sem = opt.sem
}

func WithFileMode(mode uint32) Option {
	return &withFileMode{
		mode: mode,
	}
}

type withFileMode struct {
	mode uint32
}

func (opt withFileMode) config(store *onDiskStore) {
	store.mode = opt.mode
}
