package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// pgxQuerier is the subset of pgx.Tx used by helpers that run inside an
// already-open transaction, so they can be shared between callers without
// depending on the concrete transaction type.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
