package db

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const deadlineKey = "memorial:statement_deadline"

type statementDeadline struct {
	parent context.Context
	cancel context.CancelFunc
}

// registerStatementDeadline bounds every create, query, update and delete
// statement by timeout. A caller deadline that ends sooner still wins, and the
// caller's context is put back once the statement finishes so a reused chain
// is not left holding a cancelled one.
func registerStatementDeadline(conn *gorm.DB, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	start := func(tx *gorm.DB) {
		parent := tx.Statement.Context
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithTimeout(parent, timeout)
		tx.Statement.Context = ctx
		tx.InstanceSet(deadlineKey, statementDeadline{parent: parent, cancel: cancel})
	}
	end := func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(deadlineKey)
		if !ok {
			return
		}
		d := v.(statementDeadline)
		d.cancel()
		tx.Statement.Context = d.parent
	}

	cb := conn.Callback()
	return multierr.Combine(
		cb.Create().Before("*").Register(deadlineKey+":start", start),
		cb.Create().After("*").Register(deadlineKey+":end", end),
		cb.Query().Before("*").Register(deadlineKey+":start", start),
		cb.Query().After("*").Register(deadlineKey+":end", end),
		cb.Update().Before("*").Register(deadlineKey+":start", start),
		cb.Update().After("*").Register(deadlineKey+":end", end),
		cb.Delete().Before("*").Register(deadlineKey+":start", start),
		cb.Delete().After("*").Register(deadlineKey+":end", end),
	)
}
