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
	"fmt"
	"strings"

	"mediacanvas/internal/domain"
	"mediacanvas/internal/storage"
)

// SearchPG executes an item search over the Postgres items table using
// tsvector plus metadata filters. It takes the same query descriptor as the
// local SQLite store to ease parity checks between the two paths.
// Limit semantics: 0 applies the default cap, negative means no cap.
func SearchPG(ctx context.Context, db *sql.DB, q storage.ItemQuery) ([]domain.MediaItem, error) {
	var (
		args []any
		b    strings.Builder
	)
	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	b.WriteString("SELECT " + itemColsPG + " FROM items WHERE TRUE ")
	if s := strings.TrimSpace(q.Text); s != "" {
		b.WriteString(" AND search_vector @@ plainto_tsquery('simple', " + place(s) + ") ")
	}

	// Types: a bare category like "image" matches the whole family, an exact
	// MIME type matches only itself.
	if len(q.Types) > 0 {
		var ors []string
		for _, t := range q.Types {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if strings.Contains(t, "/") {
				ors = append(ors, "file_type = "+place(t))
			} else {
				ors = append(ors, "(file_type = "+place(t)+" OR file_type LIKE "+place(t+"/%")+")")
			}
		}
		if len(ors) > 0 {
			b.WriteString(" AND (" + strings.Join(ors, " OR ") + ") ")
		}
	}

	// Date bounds are exclusive, matching the before:/after: filter tokens.
	if !q.CreatedBefore.IsZero() {
		b.WriteString(" AND created_at < " + place(q.CreatedBefore) + " ")
	}
	if !q.CreatedAfter.IsZero() {
		b.WriteString(" AND created_at > " + place(q.CreatedAfter) + " ")
	}

	b.WriteString(" ORDER BY created_at, id ")
	limit := q.Limit
	if limit == 0 {
		limit = 100
	}
	if limit > 0 {
		b.WriteString(" LIMIT " + place(limit))
	}
	if q.Offset > 0 {
		b.WriteString(" OFFSET " + place(q.Offset))
	}

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.MediaItem
	for rows.Next() {
		it, err := scanItemPG(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
