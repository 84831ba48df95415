package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"sword/internal/platform/store"
)

type fakeCH struct {
	table   string
	rows    [][]any
	queries []string
	err     error
}

func (f *fakeCH) Insert(_ context.Context, table string, data any) error {
	f.table = table
	f.rows = append(f.rows, data.([][]any)...)
	return f.err
}

func (f *fakeCH) Query(_ context.Context, sql string, _ ...any) (store.Rows, error) {
	f.queries = append(f.queries, sql)
	return emptyRows{}, f.err
}

func (f *fakeCH) Close() error { return nil }

type emptyRows struct{}

func (emptyRows) Next() bool        { return false }
func (emptyRows) Scan(...any) error { return nil }
func (emptyRows) Err() error        { return nil }
func (emptyRows) Close()            {}
func (emptyRows) Columns() []string { return nil }

func TestClickHouse_Record(t *testing.T) {
	ch := &fakeCH{}
	s := NewClickHouse(ch)
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	err := s.Record(context.Background(), Event{At: at, Username: "dep", Status: 201, Duration: 1500 * time.Millisecond, NoOp: true})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if ch.table != Table || len(ch.rows) != 1 {
		t.Fatalf("insert table=%q rows=%d", ch.table, len(ch.rows))
	}
	row := ch.rows[0]
	if len(row) != 16 {
		t.Fatalf("row has %d columns", len(row))
	}
	if got := row[0].(time.Time); got.Location() != time.UTC || !got.Equal(at) {
		t.Fatalf("at = %v", got)
	}
	if row[9].(uint16) != 201 || row[13].(int64) != 1500 || row[12].(bool) != true {
		t.Fatalf("row = %v", row)
	}

	if err := s.Migrate(context.Background()); err != nil || len(ch.queries) != 1 || ch.queries[0] != Schema {
		t.Fatalf("migrate err=%v queries=%v", err, ch.queries)
	}
}

type countSink struct {
	n   int
	err error
}

func (c *countSink) Record(context.Context, Event) error { c.n++; return c.err }

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	a, b := &countSink{err: boom}, &countSink{}
	err := Multi{a, Noop{}, Log{}, b}.Record(context.Background(), Event{Username: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if a.n != 1 || b.n != 1 {
		t.Fatalf("every sink should see the event: %d %d", a.n, b.n)
	}
}
