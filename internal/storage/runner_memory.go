package storage

import "context"

// MemoryRunner is the in-memory transaction boundary. Per-user serialization
// is enforced above the stores (the facade holds a per-user lock for the whole
// operation), so the runner only has to invoke fn; memory store writes are
// individually atomic and cannot fail halfway.
type MemoryRunner struct{}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
