package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	d, err := Open("file:dbmigrate?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	applied, err := AppliedVersions(d)
	if err != nil {
		t.Fatalf("applied versions: %v", err)
	}
	if !applied[1] || !applied[2] {
		t.Fatalf("expected versions 1 and 2 applied, got %v", applied)
	}
	for _, table := range []string{"users", "drones", "missions", "delivery_requests", "maintenance_tickets"} {
		var n int
		if err := d.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n); err != nil {
			t.Fatalf("lookup %s: %v", table, err)
		}
		if n != 1 {
			t.Fatalf("table %s missing", table)
		}
	}
}

func TestRollbackLast_ThenMigrateAgain(t *testing.T) {
	d, err := Open("file:dbrollback?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	v, err := RollbackLast(d)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if v != 2 {
		t.Fatalf("rolled back version=%d want 2", v)
	}
	var n int
	if err := d.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'ux_missions_live_drone'`).Scan(&n); err != nil {
		t.Fatalf("lookup index: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected live mission index dropped")
	}

	if err := Migrate(d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	applied, _ := AppliedVersions(d)
	if !applied[2] {
		t.Fatalf("expected version 2 re-applied")
	}
}

func TestOpen_FileDBConfiguresEveryConnection(t *testing.T) {
	d, err := Open(filepath.Join(t.TempDir(), "fleet.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx := context.Background()
	// Hold both connections so the pool cannot hand back the same one.
	var conns []*sql.Conn
	for i := 0; i < 2; i++ {
		c, err := d.Conn(ctx)
		if err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		t.Cleanup(func() { _ = c.Close() })
		conns = append(conns, c)
	}
	for i, c := range conns {
		var fk, busy int
		if err := c.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk); err != nil {
			t.Fatalf("conn %d foreign_keys: %v", i, err)
		}
		if err := c.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&busy); err != nil {
			t.Fatalf("conn %d busy_timeout: %v", i, err)
		}
		if fk != 1 || busy != 5000 {
			t.Fatalf("conn %d foreign_keys=%d busy_timeout=%d want 1 and 5000", i, fk, busy)
		}
	}
}

func TestDSN(t *testing.T) {
	cases := map[string]string{
		"":                                "fleet.db?" + connParams,
		"/var/lib/fleet.db":               "/var/lib/fleet.db?" + connParams,
		"file:x?mode=memory&cache=shared": "file:x?mode=memory&cache=shared&" + connParams,
	}
	for in, want := range cases {
		if got := dsn(in); got != want {
			t.Fatalf("dsn(%q)=%q want %q", in, got, want)
		}
	}
}
