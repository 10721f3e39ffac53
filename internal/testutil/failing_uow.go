package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/alexanderramin/custodian/internal/db"
)

// FailingUoW runs work in a real transaction but fails the FailOn-th write
// (1-based) with Err, so snapshot saves can be checked for rollback. Reads
// are not counted.
type FailingUoW struct {
	DB     *sql.DB
	FailOn int32
	Err    error
}

var _ db.UnitOfWork = (*FailingUoW)(nil)

func (u *FailingUoW) WithinTx(ctx context.Context, op string, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: beginning transaction: %w", op, err)
	}
	if err := fn(ctx, &failingTx{DBTX: tx, uow: u}); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}
	return tx.Commit()
}

type failingTx struct {
	db.DBTX
	uow    *FailingUoW
	writes atomic.Int32
}

func (f *failingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.writes.Add(1) == f.uow.FailOn {
		return nil, f.uow.Err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
