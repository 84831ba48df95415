package store

import (
	"context"
	"fmt"

	"sword/internal/platform/store/ch"
)

// chAdapter narrows *ch.CH to the Clickhouse seam
type chAdapter struct{ c *ch.CH }

var (
	_ Clickhouse = chAdapter{}
	_ Pinger     = chAdapter{}
)

func newCHAdapter(c *ch.CH) Clickhouse { return chAdapter{c: c} }

// Insert takes one row as []any or a batch as [][]any, values in column order
func (a chAdapter) Insert(ctx context.Context, table string, data any) error {
	switch rows := data.(type) {
	case [][]any:
		return a.c.Insert(ctx, table, rows)
	case []any:
		return a.c.Insert(ctx, table, [][]any{rows})
	default:
		return fmt.Errorf("store: clickhouse insert into %s: unsupported %T", table, data)
	}
}

func (a chAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := a.c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRows{r}, nil
}

func (a chAdapter) Ping(ctx context.Context) error { return a.c.Ping(ctx) }
func (a chAdapter) Close() error                   { return a.c.Close() }

// chRows drops the Close error store.Rows has no room for
type chRows struct{ ch.Rows }

func (r chRows) Close() { _ = r.Rows.Close() }
