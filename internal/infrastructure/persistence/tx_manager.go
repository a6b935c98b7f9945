package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/shulepay/backend/internal/domain/shared"
)

type txContextKey struct{}

// GormTxManager implements shared.TxManager on a GORM connection. The
// transaction handle travels in the context; repositories pick it up via
// dbFor so writes inside WithinTx share one transaction without the
// application layer ever seeing *gorm.DB.
type GormTxManager struct {
	db *gorm.DB
}

// NewGormTxManager creates a new GormTxManager
func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

// WithinTx runs fn inside a single database transaction
func (m *GormTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested calls join the surrounding transaction
	if _, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// dbFor returns the transaction from the context when one is active,
// otherwise the repository's own connection.
func dbFor(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback
}

var _ shared.TxManager = (*GormTxManager)(nil)
