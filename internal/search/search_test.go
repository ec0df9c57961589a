/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package search

import (
	"fmt"
	"testing"

	"mediacanvas/internal/domain"
)

func resultIDs(r Result) []string {
	ids := make([]string, len(r.Items))
	for i, it := range r.Items {
		ids[i] = it.ID
	}
	return ids
}

func sameIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestRunDirectThenNearby(t *testing.T) {
	a := &domain.MediaItem{ID: "A", Name: "alpha cat", X: 0, Y: 0, Width: 100, Height: 100}
	b := &domain.MediaItem{ID: "B", Name: "other", X: 150, Y: 0, Width: 100, Height: 100}
	items := []*domain.MediaItem{a, b}

	// Boxes are 50 apart, so B rides along at radius 100 but not below 50.
	r := Run("alpha", items, Options{Radius: 100})
	if !sameIDs(resultIDs(r), "A", "B") {
		t.Fatalf("radius 100: got %v, want [A B]", resultIDs(r))
	}
	if r.Total != 2 {
		t.Fatalf("radius 100: total = %d, want 2", r.Total)
	}

	r = Run("alpha", items, Options{Radius: 40})
	if !sameIDs(resultIDs(r), "A") {
		t.Fatalf("radius 40: got %v, want [A]", resultIDs(r))
	}
}

func TestRunOrderingAndDedup(t *testing.T) {
	mk := func(id, name string, x float64) *domain.MediaItem {
		return &domain.MediaItem{ID: id, Name: name, X: x, Y: 0, Width: 10, Height: 10}
	}
	items := []*domain.MediaItem{
		mk("n1", "plain", 20),   // neighbor of both matches
		mk("m1", "magma", 0),    // direct
		mk("m2", "magnet", 40),  // direct, also within radius of m1
		mk("far", "plain", 900), // out of reach
	}
	r := Run("mag", items, Options{Radius: 50})
	// Direct matches first in list order, then neighbors in list order; m2
	// never appears twice even though it neighbors m1.
	if !sameIDs(resultIDs(r), "m1", "m2", "n1") {
		t.Fatalf("got %v, want [m1 m2 n1]", resultIDs(r))
	}

	// Determinism: repeated runs return the identical ordered list.
	for i := 0; i < 5; i++ {
		again := Run("mag", items, Options{Radius: 50})
		if !sameIDs(resultIDs(again), resultIDs(r)...) {
			t.Fatalf("run %d differed: %v", i, resultIDs(again))
		}
	}
}

func TestRunNoAnchorNoExpansion(t *testing.T) {
	items := []*domain.MediaItem{
		{ID: "a", Name: "something", X: 0, Y: 0, Width: 10, Height: 10},
	}
	if r := Run("zzz", items, Options{Radius: 1000}); len(r.Items) != 0 || r.Total != 0 {
		t.Fatalf("no direct match must return empty, got %v", resultIDs(r))
	}
	if r := Run("", items, Options{Radius: 1000}); len(r.Items) != 0 {
		t.Fatal("blank query must return empty")
	}
	if r := Run("   ", items, Options{Radius: 1000}); len(r.Items) != 0 {
		t.Fatal("whitespace query must return empty")
	}
}

func TestRunMatchesDescriptionAndKeywords(t *testing.T) {
	items := []*domain.MediaItem{
		{ID: "d", Description: "An Orange Sunset", Width: 10, Height: 10},
		{ID: "k", Keywords: "orange,fruit", X: 5000, Width: 10, Height: 10},
		{ID: "x", Name: "apple", X: 9000, Width: 10, Height: 10},
	}
	r := Run("ORANGE", items, Options{Radius: 10})
	if !sameIDs(resultIDs(r), "d", "k") {
		t.Fatalf("got %v, want [d k]", resultIDs(r))
	}
}

func TestRunCapsResultsReportsTotal(t *testing.T) {
	var items []*domain.MediaItem
	for i := 0; i < 130; i++ {
		items = append(items, &domain.MediaItem{
			ID:   fmt.Sprintf("i%03d", i),
			Name: "tagged",
			X:    float64(i * 1000),
			Y:    0, Width: 10, Height: 10,
		})
	}
	r := Run("tagged", items, Options{Radius: 10})
	if len(r.Items) != DefaultMaxResults {
		t.Fatalf("capped length = %d, want %d", len(r.Items), DefaultMaxResults)
	}
	if r.Total != 130 {
		t.Fatalf("total = %d, want 130", r.Total)
	}
	if r.Items[0].ID != "i000" || r.Items[99].ID != "i099" {
		t.Fatalf("cap must keep the head of the ordering, got %s..%s", r.Items[0].ID, r.Items[99].ID)
	}
}

func TestRunNeighborsIgnoreFilters(t *testing.T) {
	items := []*domain.MediaItem{
		{ID: "img", Name: "holiday", FileType: "image/png", X: 0, Width: 10, Height: 10},
		{ID: "vid", Name: "other", FileType: "video/mp4", X: 20, Width: 10, Height: 10},
	}
	// The filter restricts direct matches only; the video still appears as a
	// spatial neighbor of the matched image.
	r := Run("holiday is:image", items, Options{Radius: 50})
	if !sameIDs(resultIDs(r), "img", "vid") {
		t.Fatalf("got %v, want [img vid]", resultIDs(r))
	}
}

func TestRunFilterOnlyQuery(t *testing.T) {
	items := []*domain.MediaItem{
		{ID: "img", FileType: "image/png", X: 0, Width: 10, Height: 10},
		{ID: "vid", FileType: "video/mp4", X: 20, Width: 10, Height: 10},
	}
	// Filter-only queries return the filtered set without proximity
	// expansion: the nearby video must not ride along.
	r := Run("is:image", items, Options{Radius: 500})
	if !sameIDs(resultIDs(r), "img") {
		t.Fatalf("got %v, want [img]", resultIDs(r))
	}
}
