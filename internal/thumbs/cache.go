/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package thumbs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mediacanvas/internal/storage"
)

// tsFormat keeps a fixed-width fraction so last_access strings sort in time
// order.
const tsFormat = "2006-01-02T15:04:05.000000000Z"

// EnsureCacheMigrated guarantees the thumbs table exists. Safe to call
// multiple times.
func EnsureCacheMigrated(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS thumbs (
		id          INTEGER PRIMARY KEY,
		item_id     TEXT NOT NULL,
		w           INTEGER NOT NULL,
		h           INTEGER NOT NULL,
		blob        BLOB NOT NULL,
		size        INTEGER NOT NULL,
		updated_at  TEXT NOT NULL,
		last_access TEXT
	);`); err != nil {
		return fmt.Errorf("ensure thumbs table: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_thumbs_variant ON thumbs(item_id, w, h)`); err != nil {
		return fmt.Errorf("create variant index: %w", err)
	}
	// helpful for LRU eviction by access time
	_, _ = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_thumbs_access ON thumbs(last_access)`)
	return nil
}

// Get returns the cached PNG for an item at the given size and touches its
// access time; nil bytes mean a miss.
func Get(ctx context.Context, boardRoot, itemID string, w, h int) ([]byte, error) {
	db, err := storage.InitOrOpenIndex(boardRoot)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	if err := EnsureCacheMigrated(ctx, db); err != nil {
		return nil, err
	}
	var blob []byte
	err = db.QueryRowContext(ctx,
		`SELECT blob FROM thumbs WHERE item_id=? AND w=? AND h=?`, itemID, w, h).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query thumb: %w", err)
	}
	now := time.Now().UTC().Format(tsFormat)
	_, _ = db.ExecContext(ctx,
		`UPDATE thumbs SET last_access=? WHERE item_id=? AND w=? AND h=?`, now, itemID, w, h)
	return blob, nil
}

// Put upserts a thumbnail blob and enforces the cache byte cap via LRU
// eviction.
func Put(ctx context.Context, boardRoot, itemID string, w, h int, blob []byte) error {
	db, err := storage.InitOrOpenIndex(boardRoot)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := EnsureCacheMigrated(ctx, db); err != nil {
		return err
	}
	now := time.Now().UTC().Format(tsFormat)
	if _, err := db.ExecContext(ctx, `INSERT INTO thumbs(item_id,w,h,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(item_id,w,h) DO UPDATE SET blob=excluded.blob, size=excluded.size,
			updated_at=excluded.updated_at, last_access=excluded.last_access`,
		itemID, w, h, blob, len(blob), now, now); err != nil {
		return fmt.Errorf("upsert thumb: %w", err)
	}
	if capBytes := MaxCacheBytesFromEnv(); capBytes > 0 {
		return EvictToFit(ctx, db, capBytes)
	}
	return nil
}

// GetOrCreate fetches a thumbnail or generates and stores it using gen.
func GetOrCreate(ctx context.Context, boardRoot, itemID string, w, h int, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := Get(ctx, boardRoot, itemID, w, h); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil || data == nil {
		return nil, err
	}
	if err := Put(ctx, boardRoot, itemID, w, h, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Invalidate drops all cached sizes for the given items, e.g. after delete.
func Invalidate(ctx context.Context, boardRoot string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	db, err := storage.InitOrOpenIndex(boardRoot)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := EnsureCacheMigrated(ctx, db); err != nil {
		return err
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ",")
	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}
	if _, err := db.ExecContext(ctx,
		`DELETE FROM thumbs WHERE item_id IN (`+ph+`)`, args...); err != nil {
		return fmt.Errorf("invalidate thumbs: %w", err)
	}
	return nil
}

// EvictToFit deletes least-recently-used rows until total size <= capBytes.
func EvictToFit(ctx context.Context, db *sql.DB, capBytes int64) error {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbs`).Scan(&total); err != nil {
		return fmt.Errorf("sum thumb size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	rows, err := db.QueryContext(ctx, `SELECT id, size FROM thumbs ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	victims := make([]int64, 0, 32)
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// close the cursor before writing
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(victims)), ",")
	args := make([]any, len(victims))
	for i, v := range victims {
		args[i] = v
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM thumbs WHERE id IN (`+ph+`)`, args...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// MaxCacheBytesFromEnv reads MC_THUMBS_MAX_BYTES, defaulting to 256MB.
func MaxCacheBytesFromEnv() int64 {
	v := os.Getenv("MC_THUMBS_MAX_BYTES")
	if v == "" {
		return 256 * 1024 * 1024
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 256 * 1024 * 1024
	}
	return n
}
