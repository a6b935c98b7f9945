package shared

import "context"

// TxManager runs a function inside a single database transaction. Writes
// performed through repositories within fn share the transaction; an error
// from fn rolls everything back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
