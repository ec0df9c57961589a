/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package spatial provides the dynamic bounding-box index over item
// rectangles, backed by an R-tree (github.com/dhconnelly/rtreego).
//
// The index guarantees closed-interval overlap semantics: items whose boxes
// merely touch the query region are returned. The underlying tree treats
// touching boxes as disjoint, so queries are inflated slightly before the
// tree search and every candidate is re-checked against the exact item box
// before being returned. Tree-level over-inclusion therefore never leaks to
// callers, and no overlap is ever missed.
package spatial

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"mediacanvas/internal/domain"
	"mediacanvas/internal/vector"
)

const (
	minChildren = 25
	maxChildren = 50

	// minExtent keeps degenerate (zero-size) boxes representable in the
	// tree; the exact filter still uses the item's true box.
	minExtent = 1e-6

	// queryInflate widens tree queries so edge-touching boxes are found.
	queryInflate = 0.5
)

// entry wraps one item's bounding box at insertion time plus a back-reference
// to the item. The recorded rect is deliberately frozen: Remove must locate
// the entry by the item's last-known box, so callers remove-then-reinsert on
// any position change and never mutate in place.
type entry struct {
	item *domain.MediaItem
	rect rtreego.Rect
	seq  int
}

func (e *entry) Bounds() rtreego.Rect { return e.rect }

// Index is a mutable spatial index over media items. It is not safe for
// concurrent use; the engine mutates it from a single event loop only.
type Index struct {
	tree    *rtreego.Rtree
	entries map[string]*entry
	nextSeq int
}

// New returns an empty index.
func New() *Index {
	return &Index{
		tree:    rtreego.NewTree(2, minChildren, maxChildren),
		entries: make(map[string]*entry),
	}
}

// Len returns the number of indexed items.
func (ix *Index) Len() int { return len(ix.entries) }

// Insert adds one item keyed by its current bounding box. Inserting an item
// whose id is already present replaces the previous entry.
func (ix *Index) Insert(item *domain.MediaItem) {
	if prev, ok := ix.entries[item.ID]; ok {
		ix.tree.Delete(prev)
		delete(ix.entries, item.ID)
	}
	e := &entry{item: item, rect: toTreeRect(item.Bounds()), seq: ix.nextSeq}
	ix.nextSeq++
	ix.entries[item.ID] = e
	ix.tree.Insert(e)
}

// Remove deletes the entry for the item, located by the bounding box it was
// inserted with. It reports whether an entry was removed.
func (ix *Index) Remove(item *domain.MediaItem) bool {
	e, ok := ix.entries[item.ID]
	if !ok {
		return false
	}
	delete(ix.entries, item.ID)
	return ix.tree.Delete(e)
}

// Search returns every item whose bounding box overlaps the region under
// closed-interval semantics, in insertion order. No false negatives; any
// node-granularity false positives are filtered before returning.
func (ix *Index) Search(region vector.Rect) []*domain.MediaItem {
	probe := toTreeRect(region.Inset(-queryInflate, -queryInflate))
	hits := ix.tree.SearchIntersect(probe)

	matched := make([]*entry, 0, len(hits))
	for _, h := range hits {
		e := h.(*entry)
		if e.item.Bounds().Overlaps(region) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]*domain.MediaItem, len(matched))
	for i, e := range matched {
		out[i] = e.item
	}
	return out
}

// Clear drops all entries.
func (ix *Index) Clear() {
	ix.tree = rtreego.NewTree(2, minChildren, maxChildren)
	ix.entries = make(map[string]*entry)
	ix.nextSeq = 0
}

// Rebuild clears the index and bulk-inserts the given items. After a rebuild
// the entry set corresponds 1:1 to the supplied list; no entry references a
// stale or deleted item.
func (ix *Index) Rebuild(items []*domain.MediaItem) {
	ix.Clear()
	for _, it := range items {
		ix.Insert(it)
	}
}

func toTreeRect(r vector.Rect) rtreego.Rect {
	w, h := r.W, r.H
	if w < minExtent {
		w = minExtent
	}
	if h < minExtent {
		h = minExtent
	}
	tr, err := rtreego.NewRect(rtreego.Point{r.X, r.Y}, []float64{w, h})
	if err != nil {
		// Unreachable with the floors above; keep the zero rect rather
		// than panic inside an interactive session.
		return rtreego.Rect{}
	}
	return tr
}
