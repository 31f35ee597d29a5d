package memory

import "context"

// TxManager satisfies the transaction port without real transactional
// semantics: the archive repo locks per call, so grouped writes are
// already consistent enough for in-memory use.
type TxManager struct{}

func NewTxManager() TxManager {
	return TxManager{}
}

func (TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
