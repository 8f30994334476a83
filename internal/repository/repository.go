package repository

import (
	"context"
	"errors"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrDBNotReady = errors.New("database not initialized")
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate record")
)

const mysqlDuplicateEntry = 1062

// Transactor runs fn so that every repository call made with the ctx it receives
// commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.db == nil {
		return ErrDBNotReady
	}
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction bound to ctx, or db scoped to ctx.
func conn(ctx context.Context, db *gorm.DB) (*gorm.DB, error) {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx, nil
	}
	if db == nil {
		return nil, ErrDBNotReady
	}
	return db.WithContext(ctx), nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var me *gomysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return ErrDuplicate
	}
	return err
}
