package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/knowhub-ai/knowhub/internal/config"
	"github.com/knowhub-ai/knowhub/internal/repo"
)

func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := repo.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "knowhub",
		Password: "knowhub_pass",
		DBName:   "knowhub_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := repo.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// ResetTables clears row data so each test starts from an empty store.
func ResetTables(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, table := range []string{"document_chunks", "feedback_logs", "knowledge_documents"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
}
