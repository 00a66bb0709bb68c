package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn within a database transaction and passes the handle as tx.
//
// Repositories receive the handle on every call. When it is a live transaction they run
// inside it (SELECT ... FOR UPDATE locks stay held until commit); NoTX means "use the pool".
// The concrete type of tx is infra-defined (pgx.Tx for Postgres).
//
// A returned error rolls the transaction back. Retryable store conflicts surface as
// domain.ErrConcurrencyConflict.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
