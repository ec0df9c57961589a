/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"mediacanvas/internal/domain"
	applog "mediacanvas/internal/log"
	"mediacanvas/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-board ephemeral/index data under the board root.
	IndexDirName  = ".mcv"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2

	// DefaultStorageLimit caps media bytes per board for usage reporting.
	DefaultStorageLimit = int64(1) << 30 // 1 GiB
)

// IndexPath returns the full path to the board's embedded index database file.
func IndexPath(boardRoot string) string {
	return filepath.Join(boardRoot, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-board SQLite index exists at
// .mcv/index.sqlite, opens the database, enables WAL mode, and ensures the
// meta/version tables and item schema exist. The returned *sql.DB is ready
// for use; callers close it when no longer needed.
func InitOrOpenIndex(boardRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", boardRoot),
	)
	if strings.TrimSpace(boardRoot) == "" {
		return nil, errors.New("board root is required")
	}
	if err := os.MkdirAll(filepath.Join(boardRoot, IndexDirName), 0o755); err != nil {
		l.Error("create .mcv dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .mcv dir: %w", err)
	}

	path := IndexPath(boardRoot)
	// URI with shared cache and busy timeout; forward slashes for SQLite.
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Do not downgrade.
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_items_cluster ON items(cluster_id);`,
				`CREATE INDEX IF NOT EXISTS idx_items_type ON items(file_type);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
			// Best-effort FTS optimize (outside the tx)
			if _, err := db.ExecContext(ctx, `INSERT INTO items_fts(items_fts) VALUES('optimize')`); err != nil {
				// best-effort; ignore errors
			}
		default:
			// Unknown future step; break
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates the item table and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id              TEXT PRIMARY KEY,
			name            TEXT,
			description     TEXT,
			keywords        TEXT,
			file_type       TEXT NOT NULL,
			file_size       INTEGER NOT NULL DEFAULT 0,
			file_path       TEXT,
			thumb_path      TEXT,
			x               REAL NOT NULL,
			y               REAL NOT NULL,
			width           REAL NOT NULL,
			height          REAL NOT NULL,
			position_locked INTEGER NOT NULL DEFAULT 0,
			cluster_id      TEXT,
			created_at      TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at);`,

		// Contentless FTS5 index fed from items via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
			name, description, keywords,
			content='',
			tokenize = 'unicode61'
		);`,

		// Autosave snapshots (crash recovery history of the whole board)
		`CREATE TABLE IF NOT EXISTS snapshots (
			id         INTEGER PRIMARY KEY,
			ts         TEXT NOT NULL,
			board_blob BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	// Triggers for contentless FTS synchronization with the item text fields.
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS items_ai AFTER INSERT ON items BEGIN
			INSERT INTO items_fts(rowid, name, description, keywords)
			VALUES (new.rowid, new.name, new.description, new.keywords);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS items_ad AFTER DELETE ON items BEGIN
			INSERT INTO items_fts(items_fts, rowid, name, description, keywords)
			VALUES ('delete', old.rowid, old.name, old.description, old.keywords);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS items_au AFTER UPDATE OF name, description, keywords ON items BEGIN
			INSERT INTO items_fts(items_fts, rowid, name, description, keywords)
			VALUES ('delete', old.rowid, old.name, old.description, old.keywords);
			INSERT INTO items_fts(rowid, name, description, keywords)
			VALUES (new.rowid, new.name, new.description, new.keywords);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

const itemColumns = `id, name, description, keywords, file_type, file_size, file_path, thumb_path,
	x, y, width, height, position_locked, cluster_id, created_at`

func scanItem(rows *sql.Rows) (domain.MediaItem, error) {
	var it domain.MediaItem
	var name, desc, kw, fpath, tpath, cluster sql.NullString
	var locked int
	var created string
	if err := rows.Scan(&it.ID, &name, &desc, &kw, &it.FileType, &it.FileSize, &fpath, &tpath,
		&it.X, &it.Y, &it.Width, &it.Height, &locked, &cluster, &created); err != nil {
		return it, err
	}
	it.Name, it.Description, it.Keywords = name.String, desc.String, kw.String
	it.FilePath, it.ThumbPath, it.ClusterID = fpath.String, tpath.String, cluster.String
	it.PositionLocked = locked != 0
	if ts, err := time.Parse(time.RFC3339, created); err == nil {
		it.CreatedAt = ts
	}
	return it, nil
}

// ListItems returns all item rows ordered by creation time, oldest first,
// with the row id as a tie-break for stable ordering.
func ListItems(ctx context.Context, db *sql.DB) ([]domain.MediaItem, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	var out []domain.MediaItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpsertItem inserts or replaces one item row.
func UpsertItem(ctx context.Context, db *sql.DB, it domain.MediaItem) error {
	created := it.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `INSERT INTO items (`+itemColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, description=excluded.description, keywords=excluded.keywords,
			file_type=excluded.file_type, file_size=excluded.file_size,
			file_path=excluded.file_path, thumb_path=excluded.thumb_path,
			x=excluded.x, y=excluded.y, width=excluded.width, height=excluded.height,
			position_locked=excluded.position_locked, cluster_id=excluded.cluster_id,
			created_at=excluded.created_at`,
		it.ID, it.Name, it.Description, it.Keywords, it.FileType, it.FileSize,
		it.FilePath, it.ThumbPath, it.X, it.Y, it.Width, it.Height,
		boolToInt(it.PositionLocked), it.ClusterID, created.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

// ReplaceItems clears the item table and bulk-inserts the board's items in
// one transaction.
func ReplaceItems(ctx context.Context, db *sql.DB, items []domain.MediaItem) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM items;"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear items: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO items (`+itemColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, it := range items {
		created := it.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := ins.ExecContext(ctx, it.ID, it.Name, it.Description, it.Keywords,
			it.FileType, it.FileSize, it.FilePath, it.ThumbPath,
			it.X, it.Y, it.Width, it.Height,
			boolToInt(it.PositionLocked), it.ClusterID, created.Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert item %s: %w", it.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ApplyPositionUpdates commits a batch of finalized moves in one
// transaction, marking each item locked. Mirrors the engine's group-drag
// atomicity: either the whole batch lands or none of it.
func ApplyPositionUpdates(ctx context.Context, db *sql.DB, updates []domain.PositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	st, err := tx.PrepareContext(ctx, `UPDATE items SET x=?, y=?, position_locked=1 WHERE id=?`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare update: %w", err)
	}
	defer st.Close()
	for _, u := range updates {
		if _, err := st.ExecContext(ctx, u.X, u.Y, u.ID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update position %s: %w", u.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DeleteItems removes the given ids in one transaction and reports how many
// rows were deleted.
func DeleteItems(ctx context.Context, db *sql.DB, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	st, err := tx.PrepareContext(ctx, `DELETE FROM items WHERE id=?`)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare delete: %w", err)
	}
	defer st.Close()
	var total int64
	for _, id := range ids {
		res, err := st.ExecContext(ctx, id)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("delete item %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

// UsageInfo is the storage accounting for one board.
type UsageInfo struct {
	UsedBytes  int64 `json:"used_bytes"`
	LimitBytes int64 `json:"limit_bytes"`
	ItemCount  int   `json:"item_count"`
}

// Usage sums the stored file sizes and counts items.
func Usage(ctx context.Context, db *sql.DB) (UsageInfo, error) {
	info := UsageInfo{LimitBytes: DefaultStorageLimit}
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(file_size),0), COUNT(*) FROM items`).Scan(&info.UsedBytes, &info.ItemCount)
	if err != nil {
		return info, fmt.Errorf("usage query: %w", err)
	}
	return info, nil
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds
// the index from the board manifest if needed. It returns true when a
// rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, boardRoot string, board domain.Board) (bool, error) {
	path := IndexPath(boardRoot)
	db, err := InitOrOpenIndex(boardRoot)
	if err != nil {
		backupIndexFile(path)
		_ = os.Remove(path)
		if rbErr := RebuildIndex(ctx, boardRoot, board); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	defer db.Close()
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM items LIMIT 1;`); err != nil {
			needs = true
		}
	}
	if !needs {
		return false, nil
	}
	backupIndexFile(path)
	_ = os.Remove(path)
	if err := RebuildIndex(ctx, boardRoot, board); err != nil {
		return false, err
	}
	return true, nil
}

// RebuildIndex drops and recreates the item tables and repopulates them from
// the board manifest. meta/version tables are preserved. This is always a
// safe operation; the index is derived from board.json.
func RebuildIndex(ctx context.Context, boardRoot string, board domain.Board) error {
	db, err := InitOrOpenIndex(boardRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TRIGGER IF EXISTS items_ai;",
		"DROP TRIGGER IF EXISTS items_ad;",
		"DROP TRIGGER IF EXISTS items_au;",
		"DROP TABLE IF EXISTS items;",
		"DROP TABLE IF EXISTS items_fts;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	return ReplaceItems(ctx, db, board.Items)
}

// backupIndexFile copies the current index file into a timestamped backup in
// .mcv/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
