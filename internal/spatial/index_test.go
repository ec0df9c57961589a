/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package spatial

import (
	"fmt"
	"math/rand"
	"testing"

	"mediacanvas/internal/domain"
	"mediacanvas/internal/vector"
)

func item(id string, x, y, w, h float64) *domain.MediaItem {
	return &domain.MediaItem{ID: id, X: x, Y: y, Width: w, Height: h}
}

func ids(items []*domain.MediaItem) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it.ID] = true
	}
	return m
}

func TestSearchBasic(t *testing.T) {
	ix := New()
	ix.Insert(item("a", 0, 0, 100, 100))
	ix.Insert(item("b", 500, 500, 100, 100))
	ix.Insert(item("c", 50, 50, 100, 100))

	got := ids(ix.Search(vector.R(0, 0, 200, 200)))
	if !got["a"] || !got["c"] || got["b"] {
		t.Fatalf("unexpected result set: %v", got)
	}
	if n := len(ix.Search(vector.R(10000, 10000, 50, 50))); n != 0 {
		t.Fatalf("expected empty result far away, got %d", n)
	}
}

func TestSearchTouchingEdgesAndCorners(t *testing.T) {
	ix := New()
	ix.Insert(item("edge", 100, 0, 50, 50))   // left edge at query's right edge
	ix.Insert(item("corner", 100, 100, 5, 5)) // corner contact only
	ix.Insert(item("inside", 10, 10, 10, 10))
	ix.Insert(item("out", 100.001, 200, 5, 5))

	got := ids(ix.Search(vector.R(0, 0, 100, 100)))
	if !got["edge"] {
		t.Fatal("edge-touching item must be reported")
	}
	if !got["corner"] {
		t.Fatal("corner-touching item must be reported")
	}
	if !got["inside"] {
		t.Fatal("contained item must be reported")
	}
	if got["out"] {
		t.Fatal("item past the boundary must not be reported")
	}
}

func TestSearchZeroSizeRegion(t *testing.T) {
	ix := New()
	ix.Insert(item("a", 0, 0, 100, 100))
	ix.Insert(item("b", 300, 300, 100, 100))

	// Point probe inside a.
	got := ids(ix.Search(vector.R(50, 50, 0, 0)))
	if !got["a"] || got["b"] {
		t.Fatalf("point probe: %v", got)
	}
	// Point probe exactly on a's corner.
	got = ids(ix.Search(vector.R(100, 100, 0, 0)))
	if !got["a"] {
		t.Fatal("corner point probe must hit the box")
	}
}

func TestInsertReplacesSameID(t *testing.T) {
	ix := New()
	ix.Insert(item("a", 0, 0, 50, 50))
	ix.Insert(item("a", 1000, 1000, 50, 50))
	if ix.Len() != 1 {
		t.Fatalf("expected 1 entry after replace, got %d", ix.Len())
	}
	if len(ix.Search(vector.R(0, 0, 100, 100))) != 0 {
		t.Fatal("stale entry still found at old position")
	}
	if len(ix.Search(vector.R(990, 990, 100, 100))) != 1 {
		t.Fatal("replaced entry not found at new position")
	}
}

func TestRemoveThenReinsertMove(t *testing.T) {
	ix := New()
	it := item("a", 0, 0, 100, 100)
	ix.Insert(it)

	// Mutate the item the way a drag does, then remove by last-known box.
	it.X, it.Y = 5000, 5000
	if !ix.Remove(it) {
		t.Fatal("remove by id failed after in-place mutation")
	}
	ix.Insert(it)

	if len(ix.Search(vector.R(0, 0, 200, 200))) != 0 {
		t.Fatal("item still indexed at pre-move position")
	}
	if len(ix.Search(vector.R(4900, 4900, 300, 300))) != 1 {
		t.Fatal("item not indexed at post-move position")
	}
	if ix.Remove(item("missing", 0, 0, 1, 1)) {
		t.Fatal("removing an unknown id must report false")
	}
}

func TestRebuildDropsStaleEntries(t *testing.T) {
	ix := New()
	for i := 0; i < 20; i++ {
		ix.Insert(item(fmt.Sprintf("old%d", i), float64(i*10), 0, 5, 5))
	}
	fresh := []*domain.MediaItem{
		item("n1", 0, 0, 10, 10),
		item("n2", 100, 100, 10, 10),
	}
	ix.Rebuild(fresh)
	if ix.Len() != 2 {
		t.Fatalf("expected 2 entries after rebuild, got %d", ix.Len())
	}
	got := ids(ix.Search(vector.R(-1000, -1000, 5000, 5000)))
	if len(got) != 2 || !got["n1"] || !got["n2"] {
		t.Fatalf("stale entries survived rebuild: %v", got)
	}
}

func TestSearchInsertionOrder(t *testing.T) {
	ix := New()
	for i := 0; i < 10; i++ {
		ix.Insert(item(fmt.Sprintf("i%d", i), float64(i), 0, 10, 10))
	}
	got := ix.Search(vector.R(-100, -100, 1000, 1000))
	for i, it := range got {
		if it.ID != fmt.Sprintf("i%d", i) {
			t.Fatalf("result %d out of insertion order: %s", i, it.ID)
		}
	}
}

// TestSearchAgainstLinearScan cross-checks random queries against a brute
// force oracle, including degenerate boxes and touching edges on a coarse
// grid so exact coordinate coincidences actually occur.
func TestSearchAgainstLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ix := New()
	var all []*domain.MediaItem
	for i := 0; i < 400; i++ {
		it := item(fmt.Sprintf("r%d", i),
			float64(rng.Intn(80)*25), float64(rng.Intn(80)*25),
			float64(rng.Intn(8)*25), float64(rng.Intn(8)*25))
		all = append(all, it)
		ix.Insert(it)
	}

	for q := 0; q < 200; q++ {
		region := vector.R(
			float64(rng.Intn(80)*25), float64(rng.Intn(80)*25),
			float64(rng.Intn(16)*25), float64(rng.Intn(16)*25))

		want := make(map[string]bool)
		for _, it := range all {
			if it.Bounds().Overlaps(region) {
				want[it.ID] = true
			}
		}
		got := ids(ix.Search(region))

		for id := range want {
			if !got[id] {
				t.Fatalf("query %+v: missing %s (false negative)", region, id)
			}
		}
		for id := range got {
			if !want[id] {
				t.Fatalf("query %+v: spurious %s (false positive)", region, id)
			}
		}
	}
}

func BenchmarkSearch10k(b *testing.B) {
	rng := rand.New(rand.NewSource(7))
	ix := New()
	for i := 0; i < 10000; i++ {
		ix.Insert(item(fmt.Sprintf("b%d", i),
			rng.Float64()*100000, rng.Float64()*100000, 200, 150))
	}
	region := vector.R(40000, 40000, 1920, 1080)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ix.Search(region)
	}
}
