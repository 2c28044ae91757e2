package shared

import (
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) < 2 {
			t.Fatalf("expected settings and tracks migrations, got %d", len(migrations))
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()
		ConfigureDatabase(db, 1, 1)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		for _, table := range []string{"settings", "tracks"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM tracks LIMIT 1"); err == nil {
			t.Error("tracks table should be dropped after rollback")
		}
		if _, err := db.Exec("SELECT 1 FROM settings LIMIT 1"); err != nil {
			t.Errorf("settings table should survive a single rollback: %v", err)
		}
	})

	t.Run("Rollback With Nothing Applied", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()
		ConfigureDatabase(db, 1, 1)

		if _, err := db.Exec("CREATE TABLE schema_migrations (version INTEGER PRIMARY KEY)"); err != nil {
			t.Fatalf("failed to create table: %v", err)
		}
		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when nothing to roll back")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := OpenStore(DatabaseConfig{Path: ":memory:"})
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})
}
