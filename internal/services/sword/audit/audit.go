// Package audit records one event per deposit attempt
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"sword/internal/platform/logger"
	"sword/internal/platform/store"
)

// Table is the ClickHouse table deposit events land in
const Table = "sword_deposits"

// Schema creates Table
const Schema = `CREATE TABLE IF NOT EXISTS sword_deposits (
	at           DateTime64(3, 'UTC'),
	request_id   String,
	username     LowCardinality(String),
	on_behalf_of LowCardinality(String),
	location     String,
	target_type  LowCardinality(String),
	packaging    LowCardinality(String),
	content_type LowCardinality(String),
	size         Int64,
	status       UInt16,
	error_uri    LowCardinality(String),
	handle       String,
	no_op        Bool,
	duration_ms  Int64,
	user_agent   String,
	ip           String
) ENGINE = MergeTree ORDER BY (at, username)`

// Event is one deposit attempt
type Event struct {
	At         time.Time
	RequestID  string
	Username   string
	OnBehalfOf string
	Location   string
	TargetType string
	Packaging  string
	// ContentType is as declared by the client
	ContentType string
	Size        int64
	Status      int
	ErrorURI    string
	Handle      string
	NoOp        bool
	Duration    time.Duration
	UserAgent   string
	IP          string
}

// Sink stores events
type Sink interface {
	Record(ctx context.Context, e Event) error
}

// Noop drops events
type Noop struct{}

func (Noop) Record(context.Context, Event) error { return nil }

// Log writes events to the request logger
type Log struct{}

func (Log) Record(ctx context.Context, e Event) error {
	l := logger.C(ctx)
	var ev *zerolog.Event
	if e.ErrorURI != "" {
		ev = l.Warn().Str("error_uri", e.ErrorURI)
	} else {
		ev = l.Info()
	}
	ev.Str("username", e.Username).
		Str("on_behalf_of", e.OnBehalfOf).
		Str("target", e.Location).
		Str("packaging", e.Packaging).
		Int64("size", e.Size).
		Int("status", e.Status).
		Str("handle", e.Handle).
		Bool("no_op", e.NoOp).
		Dur("took", e.Duration).
		Msg("deposit")
	return nil
}

// ClickHouse appends events to Table
type ClickHouse struct {
	ch store.Clickhouse
}

// NewClickHouse wraps a ClickHouse seam
func NewClickHouse(ch store.Clickhouse) *ClickHouse { return &ClickHouse{ch: ch} }

// Migrate creates the events table
func (c *ClickHouse) Migrate(ctx context.Context) error {
	rows, err := c.ch.Query(ctx, Schema)
	if err != nil {
		return err
	}
	rows.Close()
	return rows.Err()
}

func (c *ClickHouse) Record(ctx context.Context, e Event) error {
	row := []any{
		e.At.UTC(), e.RequestID, e.Username, e.OnBehalfOf, e.Location, e.TargetType,
		e.Packaging, e.ContentType, e.Size, uint16(e.Status), e.ErrorURI, e.Handle,
		e.NoOp, e.Duration.Milliseconds(), e.UserAgent, e.IP,
	}
	return c.ch.Insert(ctx, Table, [][]any{row})
}

// Multi fans an event out to every sink, returning the first error
type Multi []Sink

func (m Multi) Record(ctx context.Context, e Event) error {
	var first error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
