/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"mediacanvas/internal/domain"
	"mediacanvas/internal/storage"
	"mediacanvas/internal/vector"
)

const itemColsPG = `id, name, description, keywords, file_type, file_size, file_path, thumb_path,
	x, y, width, height, position_locked, cluster_id, created_at`

// ItemMetaUpdate is a partial metadata patch; nil fields are left unchanged.
type ItemMetaUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Keywords    *string `json:"keywords,omitempty"`
	ClusterID   *string `json:"manual_cluster_id,omitempty"`
}

func scanItemPG(sc interface{ Scan(...any) error }) (domain.MediaItem, error) {
	var it domain.MediaItem
	err := sc.Scan(&it.ID, &it.Name, &it.Description, &it.Keywords, &it.FileType, &it.FileSize,
		&it.FilePath, &it.ThumbPath, &it.X, &it.Y, &it.Width, &it.Height,
		&it.PositionLocked, &it.ClusterID, &it.CreatedAt)
	return it, err
}

func listItemsPG(ctx context.Context, db *sql.DB) ([]domain.MediaItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColsPG+` FROM items ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer func() { _ = rows.Close() }()
	items := []domain.MediaItem{}
	for rows.Next() {
		it, err := scanItemPG(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func getItemPG(ctx context.Context, db *sql.DB, id string) (domain.MediaItem, bool, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColsPG+` FROM items WHERE id = $1`, id)
	it, err := scanItemPG(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MediaItem{}, false, nil
	}
	if err != nil {
		return domain.MediaItem{}, false, fmt.Errorf("get item: %w", err)
	}
	return it, true, nil
}

// upsertItemPG inserts or fully replaces one item row.
func upsertItemPG(ctx context.Context, db *sql.DB, it domain.MediaItem) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO items (id, name, description, keywords, file_type, file_size, file_path, thumb_path,
			x, y, width, height, position_locked, cluster_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description, keywords = EXCLUDED.keywords,
			file_type = EXCLUDED.file_type, file_size = EXCLUDED.file_size,
			file_path = EXCLUDED.file_path, thumb_path = EXCLUDED.thumb_path,
			x = EXCLUDED.x, y = EXCLUDED.y, width = EXCLUDED.width, height = EXCLUDED.height,
			position_locked = EXCLUDED.position_locked, cluster_id = EXCLUDED.cluster_id`,
		it.ID, it.Name, it.Description, it.Keywords, it.FileType, it.FileSize,
		it.FilePath, it.ThumbPath, it.X, it.Y, it.Width, it.Height,
		it.PositionLocked, it.ClusterID, it.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert item %s: %w", it.ID, err)
	}
	return nil
}

func updateItemMetaPG(ctx context.Context, db *sql.DB, id string, meta ItemMetaUpdate) (domain.MediaItem, bool, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if meta.Name != nil {
		add("name", *meta.Name)
	}
	if meta.Description != nil {
		add("description", *meta.Description)
	}
	if meta.Keywords != nil {
		add("keywords", *meta.Keywords)
	}
	if meta.ClusterID != nil {
		add("cluster_id", *meta.ClusterID)
	}
	if len(sets) == 0 {
		return getItemPG(ctx, db, id)
	}
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE items SET %s WHERE id = $%d RETURNING `+itemColsPG,
		strings.Join(sets, ", "), len(args))
	row := db.QueryRowContext(ctx, q, args...)
	it, err := scanItemPG(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MediaItem{}, false, nil
	}
	if err != nil {
		return domain.MediaItem{}, false, fmt.Errorf("update item %s: %w", id, err)
	}
	return it, true, nil
}

// updatePositionPG moves one item and locks its position, like a finished
// single drag.
func updatePositionPG(ctx context.Context, db *sql.DB, up domain.PositionUpdate) (domain.MediaItem, bool, error) {
	row := db.QueryRowContext(ctx,
		`UPDATE items SET x = $1, y = $2, position_locked = TRUE WHERE id = $3 RETURNING `+itemColsPG,
		up.X, up.Y, up.ID)
	it, err := scanItemPG(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MediaItem{}, false, nil
	}
	if err != nil {
		return domain.MediaItem{}, false, fmt.Errorf("update position %s: %w", up.ID, err)
	}
	return it, true, nil
}

// applyPositionsPG applies a finished group drag in one transaction so a
// concurrent reader never sees a half-moved selection.
func applyPositionsPG(ctx context.Context, db *sql.DB, updates []domain.PositionUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx,
		`UPDATE items SET x = $1, y = $2, position_locked = TRUE WHERE id = $3`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	var total int64
	for _, up := range updates {
		res, err := stmt.ExecContext(ctx, up.X, up.Y, up.ID)
		if err != nil {
			return 0, fmt.Errorf("update position %s: %w", up.ID, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

func deleteItemsPG(ctx context.Context, db *sql.DB, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ANY ($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete items: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func usagePG(ctx context.Context, db *sql.DB) (storage.UsageInfo, error) {
	info := storage.UsageInfo{LimitBytes: storageLimit()}
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(file_size), 0), COUNT(*) FROM items`).
		Scan(&info.UsedBytes, &info.ItemCount)
	if err != nil {
		return storage.UsageInfo{}, fmt.Errorf("usage: %w", err)
	}
	return info, nil
}

func storageLimit() int64 {
	if v := strings.TrimSpace(os.Getenv("MC_STORAGE_LIMIT")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return storage.DefaultStorageLimit
}

// vectorNear reports whether two items' boxes are within radius of each
// other, matching the desktop proximity metric.
func vectorNear(a, b *domain.MediaItem, radius float64) bool {
	if radius <= 0 {
		return false
	}
	return vector.RectDist(a.Bounds(), b.Bounds()) <= radius
}
