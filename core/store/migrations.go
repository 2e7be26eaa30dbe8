package store

import (
	"context"
	"fmt"
	"strings"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		rank TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		is_staff INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 0,
		last_login_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		username TEXT NOT NULL,
		roles TEXT NOT NULL,
		csrf_token TEXT NOT NULL,
		ip TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_seen_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		action TEXT NOT NULL,
		details TEXT,
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);`,
	`CREATE TABLE IF NOT EXISTS natures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		impact TEXT NOT NULL DEFAULT 'negative',
		search_tags TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS municipalities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS units (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		acronym TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		municipality_id INTEGER,
		FOREIGN KEY(municipality_id) REFERENCES municipalities(id) ON DELETE SET NULL
	);`,
	`CREATE TABLE IF NOT EXISTS material_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS instruments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS shift_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nr INTEGER NOT NULL,
		year INTEGER NOT NULL,
		owner_user_id INTEGER NOT NULL,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP NOT NULL,
		finalized INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(nr, year),
		FOREIGN KEY(owner_user_id) REFERENCES users(id)
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_shift_reports_open_owner
		ON shift_reports(owner_user_id) WHERE finalized = 0;`,
	`CREATE TABLE IF NOT EXISTS report_seq_counters (
		year INTEGER PRIMARY KEY,
		seq INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS occurrences (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL,
		nature_id INTEGER NOT NULL,
		unit_id INTEGER NOT NULL,
		municipality_id INTEGER,
		instrument_id INTEGER,
		occurred_token TEXT NOT NULL,
		occurred_at TIMESTAMP NOT NULL,
		action TEXT NOT NULL DEFAULT 'consummated',
		summary TEXT NOT NULL DEFAULT '',
		narrative TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		FOREIGN KEY(report_id) REFERENCES shift_reports(id),
		FOREIGN KEY(nature_id) REFERENCES natures(id),
		FOREIGN KEY(unit_id) REFERENCES units(id),
		FOREIGN KEY(municipality_id) REFERENCES municipalities(id),
		FOREIGN KEY(instrument_id) REFERENCES instruments(id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_occurrences_report ON occurrences(report_id);`,
	`CREATE INDEX IF NOT EXISTS idx_occurrences_occurred ON occurrences(occurred_at);`,
	`CREATE TABLE IF NOT EXISTS involved_parties (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		occurrence_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		age INTEGER,
		FOREIGN KEY(occurrence_id) REFERENCES occurrences(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_involved_parties_occurrence ON involved_parties(occurrence_id);`,
	`CREATE TABLE IF NOT EXISTS seized_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		occurrence_id INTEGER NOT NULL,
		material_type_id INTEGER NOT NULL,
		quantity REAL NOT NULL DEFAULT 1,
		unit_of_measure TEXT NOT NULL DEFAULT 'un',
		FOREIGN KEY(occurrence_id) REFERENCES occurrences(id) ON DELETE CASCADE,
		FOREIGN KEY(material_type_id) REFERENCES material_types(id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_seized_items_occurrence ON seized_items(occurrence_id);`,
	`CREATE TABLE IF NOT EXISTS occurrence_photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		occurrence_id INTEGER NOT NULL,
		file_path TEXT NOT NULL,
		caption TEXT NOT NULL DEFAULT '',
		content_type TEXT NOT NULL DEFAULT '',
		size_bytes INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY(occurrence_id) REFERENCES occurrences(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_occurrence_photos_occurrence ON occurrence_photos(occurrence_id);`,
}

// seedMaterialTypes are the material catalog entries every fresh install
// starts with.
var seedMaterialTypes = []string{
	"Pistola",
	"Revólver",
	"Espingarda",
	"Rádio Comunicador (HT)",
	"Maconha",
	"Cocaína",
	"Crack",
	"Dinheiro (Espécie)",
}

func ApplyMigrations(ctx context.Context, db *DB) error {
	if db.Postgres() {
		return applyGooseMigrations(ctx, db.DB)
	}
	return applySQLiteMigrations(ctx, db)
}

func applySQLiteMigrations(ctx context.Context, db *DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migration #%d failed: %w", i+1, err)
		}
	}
	return ensureMaterialTypeSeeds(ctx, db)
}

func ensureMaterialTypeSeeds(ctx context.Context, db *DB) error {
	for _, name := range seedMaterialTypes {
		val := strings.TrimSpace(name)
		if val == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO material_types(name) VALUES(?)`, val); err != nil {
			return err
		}
	}
	return nil
}
