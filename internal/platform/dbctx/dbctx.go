package dbctx

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Context is what every repository call receives: the request context and,
// inside a service transaction, the transaction handle.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// WithTx returns a copy of c bound to tx.
func (c Context) WithTx(tx *gorm.DB) Context {
	c.Tx = tx
	return c
}

// DB returns the transaction when set, otherwise fallback, bound to Ctx.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	db := fallback
	if c.Tx != nil {
		db = c.Tx
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return db.WithContext(ctx)
}

// ForUpdate is DB plus a row lock. Outside a transaction the lock would be
// released immediately, so none is taken.
func (c Context) ForUpdate(fallback *gorm.DB) *gorm.DB {
	if c.Tx == nil {
		return c.DB(fallback)
	}
	return c.DB(fallback).Clauses(clause.Locking{Strength: "UPDATE"})
}
