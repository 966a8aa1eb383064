package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type txKey struct{}

var errNoTransaction = errors.New("transaction hasn't started yet")

// Tx is a gorm transaction carried in a context. Store operations called with
// that context run inside it until Commit or Rollback.
type Tx struct {
	id  int64
	db  *gorm.DB
	log *zap.SugaredLogger
}

func Commit(ctx context.Context) (context.Context, error) {
	return endTransaction(ctx, (*Tx).commit)
}

func Rollback(ctx context.Context) (context.Context, error) {
	return endTransaction(ctx, (*Tx).rollback)
}

// FromContext returns the open transaction of ctx or nil.
func FromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*Tx)
	if tx == nil {
		return nil
	}
	return tx.db
}

func endTransaction(ctx context.Context, end func(*Tx) error) (context.Context, error) {
	tx, _ := ctx.Value(txKey{}).(*Tx)
	if tx == nil {
		return ctx, nil
	}
	return context.WithValue(ctx, txKey{}, (*Tx)(nil)), end(tx)
}

// newTransactionContext opens a transaction unless ctx already carries one.
func newTransactionContext(ctx context.Context, db *gorm.DB) (context.Context, error) {
	if FromContext(ctx) != nil {
		return ctx, nil
	}

	tx := db.Session(&gorm.Session{Context: ctx}).Begin()
	if tx.Error != nil {
		return ctx, tx.Error
	}

	t := &Tx{db: tx, log: zap.S().Named("store_tx")}
	// only used to correlate log lines
	if db.Dialector.Name() == "postgres" {
		var row struct{ ID int64 }
		tx.Raw("select txid_current() as id").Scan(&row)
		t.id = row.ID
	}

	return context.WithValue(ctx, txKey{}, t), nil
}

func (t *Tx) commit() error {
	if t.db == nil {
		return errNoTransaction
	}
	if err := t.db.Commit().Error; err != nil {
		t.log.Errorw("commit failed", "tx", t.id, "error", err)
		return err
	}
	t.log.Debugw("committed", "tx", t.id)
	t.db = nil
	return nil
}

func (t *Tx) rollback() error {
	if t.db == nil {
		return errNoTransaction
	}
	if err := t.db.Rollback().Error; err != nil {
		t.log.Errorw("rollback failed", "tx", t.id, "error", err)
		return err
	}
	t.log.Debugw("rolled back", "tx", t.id)
	t.db = nil
	return nil
}
