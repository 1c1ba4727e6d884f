package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func migrationFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys["sql/migrations/"+name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

func TestReadMigrationPairsOrdersByVersion(t *testing.T) {
	t.Parallel()

	fsys := migrationFS(map[string]string{
		"0002_create_order_entries.up.sql":        "CREATE TABLE order_entries (id TEXT);",
		"0002_create_order_entries.down.sql":      "DROP TABLE IF EXISTS order_entries;",
		"0001_create_meal_share_events.up.sql":    "CREATE TABLE meal_share_events (id TEXT);",
		"0001_create_meal_share_events.down.sql":  "DROP TABLE IF EXISTS meal_share_events;",
		"0003_create_payment_references.up.sql":   "CREATE TABLE payment_references (external_ref TEXT);",
		"0003_create_payment_references.down.sql": "DROP TABLE IF EXISTS payment_references;",
	})

	pairs, err := readMigrationPairs(fsys)
	if err != nil {
		t.Fatalf("readMigrationPairs failed: %v", err)
	}
	if len(pairs) != 3 {
		t.Fatalf("expected 3 migration pairs, got %d", len(pairs))
	}

	want := []struct {
		version int64
		name    string
	}{
		{1, "create_meal_share_events"},
		{2, "create_order_entries"},
		{3, "create_payment_references"},
	}
	for i, w := range want {
		if pairs[i].version != w.version || pairs[i].name != w.name {
			t.Fatalf("pair %d: expected %d_%s, got %d_%s", i, w.version, w.name, pairs[i].version, pairs[i].name)
		}
		if pairs[i].up == "" || pairs[i].down == "" {
			t.Fatalf("pair %d is missing sql bodies", i)
		}
	}
}

func TestReadMigrationPairsRejectsHalfPair(t *testing.T) {
	t.Parallel()

	fsys := migrationFS(map[string]string{
		"0001_create_meal_share_events.up.sql": "CREATE TABLE meal_share_events (id TEXT);",
	})

	_, err := readMigrationPairs(fsys)
	if err == nil {
		t.Fatal("expected error for missing down script")
	}
	if !strings.Contains(err.Error(), "both up and down") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReadMigrationPairsRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]string{
		"invalid filename": {
			"notes.sql": "SELECT 1;",
		},
		"empty body": {
			"0001_create_meal_share_events.up.sql":   "   \n",
			"0001_create_meal_share_events.down.sql": "DROP TABLE IF EXISTS meal_share_events;",
		},
		"name mismatch": {
			"0001_create_meal_share_events.up.sql": "CREATE TABLE meal_share_events (id TEXT);",
			"0001_create_events.down.sql":          "DROP TABLE IF EXISTS meal_share_events;",
		},
		"duplicate up": {
			"0001_create_meal_share_events.up.sql":   "CREATE TABLE meal_share_events (id TEXT);",
			"0001_create_meal_share_events.down.sql": "DROP TABLE IF EXISTS meal_share_events;",
			"01_create_meal_share_events.up.sql":     "CREATE TABLE meal_share_events (id TEXT);",
		},
	}

	for label, files := range cases {
		if _, err := readMigrationPairs(migrationFS(files)); err == nil {
			t.Fatalf("%s: expected error", label)
		}
	}
}

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	t.Parallel()

	pairs, err := readMigrationPairs(migrationsFS)
	if err != nil {
		t.Fatalf("embedded migrations are broken: %v", err)
	}
	if len(pairs) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
	if pairs[0].name != "create_meal_share_events" {
		t.Fatalf("unexpected first migration: %s", pairs[0].name)
	}
}
