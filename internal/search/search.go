/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package search implements the proximity-aware text search: substring
// matches over name/description/keywords, expanded by spatial neighbors of
// the matches. Results are deterministic: direct matches first in item-list
// order, then neighbors in item-list order, deduplicated by id.
package search

import (
	"strings"

	"mediacanvas/internal/domain"
	"mediacanvas/internal/vector"
)

// DefaultMaxResults caps a result page.
const DefaultMaxResults = 100

// Options tune one search run.
type Options struct {
	// Radius is the neighbor distance in plane units, measured as the
	// minimum Euclidean distance between bounding boxes (zero when they
	// overlap).
	Radius float64
	// MaxResults caps Items; zero means DefaultMaxResults. Total always
	// reports the uncapped count.
	MaxResults int
}

// Result is one search response.
type Result struct {
	Items []*domain.MediaItem `json:"items"`
	Total int                 `json:"total"`
}

// Run searches items for the raw query. Filter tokens (before:, after:,
// is:) restrict the direct matches; the residual text must appear as a
// case-insensitive substring of name, description, or keywords. Neighbors
// within Options.Radius of any direct match are appended from the full item
// list, so a neighbor does not need to satisfy the filters itself. A blank
// query returns an empty result; a filter-only query returns the filtered
// items without proximity expansion.
func Run(raw string, items []*domain.MediaItem, opts Options) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{}
	}
	max := opts.MaxResults
	if max <= 0 {
		max = DefaultMaxResults
	}

	text, filters := ParseQuery(raw)
	needle := strings.ToLower(strings.TrimSpace(text))

	direct := make([]*domain.MediaItem, 0)
	isDirect := make(map[string]bool)
	for _, it := range items {
		if !filters.Match(it) {
			continue
		}
		if needle != "" && !textMatch(it, needle) {
			continue
		}
		direct = append(direct, it)
		isDirect[it.ID] = true
	}
	if len(direct) == 0 {
		return Result{}
	}

	ordered := direct
	if needle != "" {
		for _, it := range items {
			if isDirect[it.ID] {
				continue
			}
			if nearAny(it, direct, opts.Radius) {
				ordered = append(ordered, it)
			}
		}
	}

	total := len(ordered)
	if len(ordered) > max {
		ordered = ordered[:max]
	}
	return Result{Items: ordered, Total: total}
}

func textMatch(it *domain.MediaItem, needle string) bool {
	return strings.Contains(strings.ToLower(it.Name), needle) ||
		strings.Contains(strings.ToLower(it.Description), needle) ||
		strings.Contains(strings.ToLower(it.Keywords), needle)
}

func nearAny(it *domain.MediaItem, matches []*domain.MediaItem, radius float64) bool {
	if radius <= 0 {
		return false
	}
	b := it.Bounds()
	for _, m := range matches {
		if vector.RectDist(b, m.Bounds()) <= radius {
			return true
		}
	}
	return false
}
