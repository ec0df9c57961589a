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
	"strings"
	"time"

	"mediacanvas/internal/domain"
)

// ItemQuery describes an index search request. Text uses SQLite FTS5 syntax
// (simple terms, phrases in quotes, AND/OR/NOT) over name, description, and
// keywords. Types restricts by MIME type or category ("image", "video").
// Date bounds are exclusive; zero means unset. Limit/Offset implement
// pagination; reasonable defaults applied if zero.
type ItemQuery struct {
	Text          string
	Types         []string
	CreatedBefore time.Time
	CreatedAfter  time.Time
	Limit         int
	Offset        int
}

// SearchItems performs full-text search with optional filters over the
// board's embedded index. When q.Text is empty, it falls back to a non-FTS
// scan with the filters applied.
func SearchItems(ctx context.Context, boardRoot string, q ItemQuery) ([]domain.MediaItem, error) {
	if strings.TrimSpace(boardRoot) == "" {
		return nil, errors.New("board root is required")
	}
	db, err := InitOrOpenIndex(boardRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchItemsDB(ctx, db, q)
}

func searchItemsDB(ctx context.Context, db *sql.DB, q ItemQuery) ([]domain.MediaItem, error) {
	var args []any
	var sb strings.Builder
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		sb.WriteString("SELECT " + prefixedItemColumns("i.") + "\n")
		sb.WriteString("FROM items_fts JOIN items i ON items_fts.rowid = i.rowid\n")
		sb.WriteString("WHERE items_fts MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT " + prefixedItemColumns("i.") + "\n")
		sb.WriteString("FROM items i\nWHERE 1=1\n")
	}
	if len(q.Types) > 0 {
		var clauses []string
		for _, t := range q.Types {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			if t == "image" || t == "video" {
				clauses = append(clauses, "(i.file_type = ? OR i.file_type LIKE ?)")
				args = append(args, t, t+"/%")
			} else {
				clauses = append(clauses, "i.file_type = ?")
				args = append(args, t)
			}
		}
		if len(clauses) > 0 {
			sb.WriteString(" AND (" + strings.Join(clauses, " OR ") + ")\n")
		}
	}
	if !q.CreatedBefore.IsZero() {
		sb.WriteString(" AND i.created_at < ?\n")
		args = append(args, q.CreatedBefore.UTC().Format(time.RFC3339))
	}
	if !q.CreatedAfter.IsZero() {
		sb.WriteString(" AND i.created_at > ?\n")
		args = append(args, q.CreatedAfter.UTC().Format(time.RFC3339))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	sb.WriteString("ORDER BY i.created_at, i.rowid\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []domain.MediaItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func prefixedItemColumns(p string) string {
	cols := strings.Split(itemColumns, ",")
	for i, c := range cols {
		cols[i] = p + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
