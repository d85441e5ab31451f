package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxManager runs a function inside one database transaction. Services depend
// on this interface instead of *gorm.DB so their tests can run the function
// against fakes.
type TxManager interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

func (m *gormTxManager) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}
