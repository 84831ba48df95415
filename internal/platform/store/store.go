// Package store holds the optional postgres and clickhouse backends behind small seams
// repositories depend on the seams, never on pgx or clickhouse-go directly
package store

import (
	"context"
	"errors"
	"fmt"

	"sword/internal/platform/logger"
)

// Store carries whichever backends were opened; the zero value has none
type Store struct {
	// Log receives connect retries and traced statements, silent when zero
	Log logger.Logger

	PG TxRunner   // nil without postgres
	CH Clickhouse // nil without clickhouse
}

// Row is a single result row
type Row interface {
	Scan(dest ...any) error
}

// Rows is a result set; callers must Close it
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports what a statement changed
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is what repositories run statements against, in or out of a transaction
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner runs fn in a transaction that commits when fn returns nil
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Tx is an explicitly managed transaction for units of work that span calls
type Tx interface {
	RowQuerier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner opens a Tx the caller must end with Commit or Rollback
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// Clickhouse is the append and query surface the audit trail needs
type Clickhouse interface {
	Insert(ctx context.Context, table string, data any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Close() error
}

// Pinger is any seam that can report readiness
type Pinger interface{ Ping(context.Context) error }

// Open connects the backends cfg enables, postgres first; a failing backend
// aborts the open and leaves nothing running
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	s.Log = s.Log.With().Logger()

	if cfg.PG.Enabled {
		pg, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = pg
	}
	if cfg.CH.Enabled {
		ch, err := openCH(ctx, cfg, s)
		if err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		s.CH = ch
	}
	return s, nil
}

// seam is a configured backend under the name errors report it by
type seam struct {
	name string
	v    any
}

func (s *Store) seams() []seam {
	var out []seam
	if s.PG != nil {
		out = append(out, seam{"pg", s.PG})
	}
	if s.CH != nil {
		out = append(out, seam{"ch", s.CH})
	}
	return out
}

// Guard pings every configured backend and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	for _, b := range s.seams() {
		p, ok := b.v.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the backends in reverse open order
func (s *Store) Close(context.Context) error {
	var errs []error
	bs := s.seams()
	for i := len(bs) - 1; i >= 0; i-- {
		c, ok := bs[i].v.(interface{ Close() error })
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", bs[i].name, err))
		}
	}
	return errors.Join(errs...)
}
