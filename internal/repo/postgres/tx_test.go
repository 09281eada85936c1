package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeTx struct {
	pgx.Tx
	commits   int
	rollbacks int
}

func (f *fakeTx) Commit(context.Context) error {
	f.commits++
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rollbacks++
	return nil
}

type fakeBeginner struct {
	tx *fakeTx
}

func (f *fakeBeginner) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return f.tx, nil
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{}}
	if err := WithTx(context.Background(), db, func(context.Context, pgx.Tx) error { return nil }); err != nil {
		t.Fatalf("with tx: %v", err)
	}
	if db.tx.commits != 1 {
		t.Fatalf("expected one commit, got %d", db.tx.commits)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("boom")
	err := WithTx(context.Background(), db, func(context.Context, pgx.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if db.tx.commits != 0 || db.tx.rollbacks != 1 {
		t.Fatalf("expected rollback only, got commits=%d rollbacks=%d", db.tx.commits, db.tx.rollbacks)
	}
}
