//go:build integration_pg

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "sword",
				"POSTGRES_PASSWORD": "sword",
				"POSTGRES_DB":       "sword",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf("postgres://sword:sword@%s:%s/sword?sslmode=disable", host, port.Port())
}

func TestPGAdapter_Integration(t *testing.T) {
	dsn := startPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	s, err := Open(ctx, Config{AppName: "sword-store-it", PG: PGConfig{Enabled: true, URL: dsn, LogSQL: true}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = s.Close(ctx) }()
	if err := s.Guard(ctx); err != nil {
		t.Fatalf("guard: %v", err)
	}

	if _, err := s.PG.Exec(ctx, `CREATE TABLE handle (handle text PRIMARY KEY, resource_id int NOT NULL)`); err != nil {
		t.Fatalf("create: %v", err)
	}

	var app string
	if err := s.PG.QueryRow(ctx, `SELECT current_setting('application_name')`).Scan(&app); err != nil || app != "sword-store-it" {
		t.Fatalf("application_name = %q %v", app, err)
	}

	// Tx commits on success
	err = s.PG.Tx(ctx, func(q RowQuerier) error {
		return ExecOne(ctx, q, `INSERT INTO handle VALUES ($1, $2)`, "123456789/1", 1)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	// and rolls back on error
	boom := errors.New("boom")
	err = s.PG.Tx(ctx, func(q RowQuerier) error {
		if _, err := q.Exec(ctx, `INSERT INTO handle VALUES ($1, $2)`, "123456789/2", 2); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("tx err = %v", err)
	}

	// Begin hands the transaction to the caller
	tx, err := s.PG.(Beginner).Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO handle VALUES ($1, $2)`, "123456789/3", 3); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	rs, err := s.PG.Query(ctx, `SELECT handle, resource_id FROM handle ORDER BY handle`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rs.Close()
	if cols := rs.Columns(); len(cols) != 2 || cols[0] != "handle" {
		t.Fatalf("columns = %v", cols)
	}
	var handles []string
	for rs.Next() {
		var h string
		var id int
		if err := rs.Scan(&h, &id); err != nil {
			t.Fatalf("scan: %v", err)
		}
		handles = append(handles, h)
	}
	if err := rs.Err(); err != nil || len(handles) != 1 || handles[0] != "123456789/1" {
		t.Fatalf("handles = %v %v", handles, err)
	}
}
