package testutils

import (
	"database/sql"
	"path/filepath"
	"testing"

	"bookswap/db"
	"bookswap/internal/config"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func SetupTestDatabase(t *testing.T) (*sql.DB, func()) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	testDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_timeout=10000&_foreign_keys=on")
	require.NoError(t, err)

	err = db.InitializeSchema(testDB)
	require.NoError(t, err)

	cleanup := func() {
		testDB.Close()
	}

	return testDB, cleanup
}

func SetupTestRepositoryFactory(t *testing.T) (*db.RepositoryFactory, func()) {
	testDB, cleanup := SetupTestDatabase(t)
	factory := db.NewRepositoryFactory(testDB, nil, "bookswap_test")
	return factory, cleanup
}

func GetTestConfig(t *testing.T) *config.Config {
	return &config.Config{
		Port:          "0",
		DatabaseType:  config.SQLite,
		SQLitePath:    ":memory:",
		DatabaseName:  "bookswap_test",
		SessionSecret: "test_session_secret_for_testing_only",
		JwtKey:        []byte("test_jwt_secret_key_for_testing_only"),
		UploadDir:     t.TempDir(),
	}
}
