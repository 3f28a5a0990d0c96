package db

import (
	"database/sql"
	_ "embed"
)

//go:embed seeds/bootstrap.sql
var seedBootstrapSQL string

// schemaStatements holds every CREATE TABLE / CREATE INDEX statement for
// the pipeline's 18-table store, applied in dependency order. SQLite
// allows only one writable connection for DDL at a time; MigrateUp is
// expected to run against the single write handle returned by Open.
var schemaStatements = []string{
	// --- configuration tables (never purged) ---
	`CREATE TABLE IF NOT EXISTS categories (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL UNIQUE,
		prompt_name TEXT NOT NULL DEFAULT 'default'
			CHECK (prompt_name IN ('default','sports','technology','science','political'))
	)`,
	`CREATE TABLE IF NOT EXISTS difficulty_levels (
		name TEXT PRIMARY KEY CHECK (name IN ('easy','mid','hard'))
	)`,
	`CREATE TABLE IF NOT EXISTS feeds (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		name            TEXT NOT NULL,
		url             TEXT NOT NULL UNIQUE,
		category_id     INTEGER NOT NULL REFERENCES categories(id),
		enabled         BOOLEAN NOT NULL DEFAULT 1,
		last_crawled_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS apikey (
		name       TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		base_url   TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		email    TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	// --- core content ---
	`CREATE TABLE IF NOT EXISTS articles (
		id                   TEXT PRIMARY KEY,
		feed_id              INTEGER NOT NULL REFERENCES feeds(id),
		category_id          INTEGER NOT NULL REFERENCES categories(id),
		title                TEXT NOT NULL,
		url                  TEXT NOT NULL UNIQUE,
		description          TEXT,
		content              TEXT NOT NULL,
		published_at         TEXT,
		crawled_at           TEXT NOT NULL,
		image_id             INTEGER,
		deepseek_processed   BOOLEAN NOT NULL DEFAULT 0,
		deepseek_failed      INTEGER NOT NULL DEFAULT 0,
		deepseek_in_progress BOOLEAN NOT NULL DEFAULT 0,
		deepseek_last_error  TEXT,
		claimed_at           TEXT,
		processed_at         TEXT,
		zh_title             TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS article_images (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id     TEXT NOT NULL UNIQUE REFERENCES articles(id),
		image_name     TEXT NOT NULL,
		original_url   TEXT NOT NULL,
		local_location TEXT NOT NULL,
		small_location TEXT,
		new_url        TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS user_favorites (
		user_id    INTEGER NOT NULL REFERENCES users(id),
		article_id TEXT NOT NULL REFERENCES articles(id),
		PRIMARY KEY (user_id, article_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_progress (
		user_id    INTEGER NOT NULL REFERENCES users(id),
		article_id TEXT NOT NULL REFERENCES articles(id),
		difficulty TEXT NOT NULL REFERENCES difficulty_levels(name),
		completed  BOOLEAN NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, article_id, difficulty)
	)`,

	// --- enrichment (one row family per processed article x difficulty) ---
	`CREATE TABLE IF NOT EXISTS article_summaries (
		article_id TEXT NOT NULL REFERENCES articles(id),
		difficulty TEXT NOT NULL REFERENCES difficulty_levels(name),
		body       TEXT NOT NULL,
		zh_body    TEXT,
		PRIMARY KEY (article_id, difficulty)
	)`,
	`CREATE TABLE IF NOT EXISTS keywords (
		article_id  TEXT NOT NULL REFERENCES articles(id),
		difficulty  TEXT NOT NULL REFERENCES difficulty_levels(name),
		word        TEXT NOT NULL,
		frequency   INTEGER NOT NULL,
		explanation TEXT NOT NULL,
		PRIMARY KEY (article_id, difficulty, word)
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id   TEXT NOT NULL REFERENCES articles(id),
		difficulty   TEXT NOT NULL REFERENCES difficulty_levels(name),
		prompt       TEXT NOT NULL,
		choices_json TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id   TEXT NOT NULL REFERENCES articles(id),
		difficulty   TEXT NOT NULL REFERENCES difficulty_levels(name),
		attitude     TEXT NOT NULL CHECK (attitude IN ('positive','neutral','negative')),
		body         TEXT NOT NULL,
		is_synthesis BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS background_read (
		article_id TEXT NOT NULL REFERENCES articles(id),
		difficulty TEXT NOT NULL REFERENCES difficulty_levels(name),
		body       TEXT NOT NULL,
		PRIMARY KEY (article_id, difficulty)
	)`,
	`CREATE TABLE IF NOT EXISTS article_analysis (
		article_id TEXT NOT NULL REFERENCES articles(id),
		difficulty TEXT NOT NULL REFERENCES difficulty_levels(name),
		body       TEXT NOT NULL,
		PRIMARY KEY (article_id, difficulty)
	)`,
	`CREATE TABLE IF NOT EXISTS response (
		article_id TEXT PRIMARY KEY REFERENCES articles(id),
		file_path  TEXT NOT NULL,
		size_bytes INTEGER NOT NULL
	)`,

	// --- operational ---
	`CREATE TABLE IF NOT EXISTS phase_runs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		phase      TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at   TEXT,
		exit_code  INTEGER,
		counts_json TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS crawl_checkpoints (
		feed_id        INTEGER PRIMARY KEY REFERENCES feeds(id),
		last_seen_url  TEXT,
		last_seen_at   TEXT
	)`,

	// --- indexes ---
	`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_feed_id ON articles(feed_id)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_category_id ON articles(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_unprocessed ON articles(category_id, id) WHERE deepseek_processed = 0`,
	`CREATE INDEX IF NOT EXISTS idx_article_images_pending ON article_images(id) WHERE small_location IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_feeds_enabled ON feeds(enabled) WHERE enabled = 1`,
}

// MigrateUp applies the full schema and seeds the configuration tables.
// Every statement is idempotent (CREATE ... IF NOT EXISTS), so MigrateUp
// is safe to run on every process start, matching the fail-open bootstrap
// style the rest of the ambient stack follows.
func MigrateUp(database *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := database.Exec(stmt); err != nil {
			return err
		}
	}

	if _, err := database.Exec(seedBootstrapSQL); err != nil {
		return err
	}

	return nil
}

// MigrateDownEnrichmentOnly drops only the enrichment tables, leaving
// feeds, articles, and images intact. Used by the Driver's --purge phase
// to re-run the LLM orchestrator over already-crawled articles without
// re-crawling.
func MigrateDownEnrichmentOnly(database *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS article_summaries`,
		`DROP TABLE IF EXISTS keywords`,
		`DROP TABLE IF EXISTS questions`,
		`DROP TABLE IF EXISTS comments`,
		`DROP TABLE IF EXISTS background_read`,
		`DROP TABLE IF EXISTS article_analysis`,
		`DROP TABLE IF EXISTS response`,
	}
	for _, stmt := range dropStatements {
		if _, err := database.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := database.Exec(`UPDATE articles SET deepseek_processed=0, deepseek_in_progress=0, deepseek_failed=0, deepseek_last_error=NULL, claimed_at=NULL, processed_at=NULL`); err != nil {
		return err
	}
	// recreate the dropped tables so the store remains usable after purge
	return MigrateUp(database)
}
