package database

import (
	"database/sql"
	"fmt"
	"log"
)

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS activity_logs (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			activity TEXT NOT NULL,
			month TEXT,
			tenant TEXT,
			details TEXT,
			old_value TEXT,
			new_value TEXT,
			user TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activity_logs_timestamp ON activity_logs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_logs_month ON activity_logs(month)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_logs_tenant ON activity_logs(tenant)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %v", i+1, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
