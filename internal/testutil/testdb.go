// Package testutil provisions throwaway Postgres schemas for integration tests.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"lobbywatch/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MigratedDSN creates a fresh schema on TEST_POSTGRES_DSN, applies the init
// migration to it and returns a DSN scoped to that schema. The schema is
// dropped when the test ends. The test is skipped when no DSN is configured.
func MigratedDSN(t *testing.T) string {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	ctx := context.Background()
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	createSQL, err := schemaDDL("CREATE SCHEMA %s", schema)
	if err != nil {
		t.Fatalf("invalid schema name: %v", err)
	}
	if err := execOnce(ctx, cfg.TestPostgresDSN, createSQL); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		if dropSQL, err := schemaDDL("DROP SCHEMA %s CASCADE", schema); err == nil {
			_ = execOnce(context.Background(), cfg.TestPostgresDSN, dropSQL)
		}
	})

	dsn := withSearchPath(cfg.TestPostgresDSN, schema)
	migration, err := readInitMigration(cfg.MigrationsDir)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if err := execOnce(ctx, dsn, migration); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	return dsn
}

func execOnce(ctx context.Context, dsn, sql string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()
	_, err = pool.Exec(ctx, sql)
	return err
}

func readInitMigration(override string) (string, error) {
	if override != "" {
		b, err := os.ReadFile(filepath.Join(override, "000001_init.up.sql"))
		return string(b), err
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		p := filepath.Join(dir, "migrations", "000001_init.up.sql")
		if b, err := os.ReadFile(p); err == nil {
			return string(b), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("000001_init.up.sql not found above %s", dir)
}

func withSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}

func schemaDDL(format, schema string) (string, error) {
	if !schemaNamePattern.MatchString(schema) {
		return "", fmt.Errorf("schema %q does not match required pattern", schema)
	}
	return fmt.Sprintf(format, pgx.Identifier{schema}.Sanitize()), nil
}
