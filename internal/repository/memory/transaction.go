package memory

import (
	"context"

	"qbank/internal/domain/repositories"
)

// TransactionManager runs the function directly: the in-memory stores
// apply each write immediately, and the service's tree lock already
// serializes mutations, so there is nothing to roll back at this layer.
type TransactionManager struct{}

// NewTransactionManager creates a pass-through transaction manager.
func NewTransactionManager() repositories.TransactionManager {
	return &TransactionManager{}
}

// ExecTx executes fn with the unmodified context.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}
