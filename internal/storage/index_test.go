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
	"os"
	"testing"
	"time"

	"mediacanvas/internal/domain"
)

func openTestIndex(t *testing.T) (*sql.DB, string) {
	t.Helper()
	root := t.TempDir()
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, root
}

func testItems() []domain.MediaItem {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []domain.MediaItem{
		{ID: "a", Name: "beach sunset", Keywords: "vacation,sea", FileType: "image/jpeg",
			FileSize: 1000, X: 0, Y: 0, Width: 200, Height: 150, CreatedAt: t0},
		{ID: "b", Name: "birthday clip", Description: "cake moment", FileType: "video/mp4",
			FileSize: 5000, X: 300, Y: 80, Width: 200, Height: 112, CreatedAt: t0.Add(time.Hour)},
		{ID: "c", Name: "reaction", FileType: "image/gif", FilePath: "/m/react.gif",
			FileSize: 250, X: 600, Y: 200, Width: 200, Height: 200, CreatedAt: t0.Add(2 * time.Hour)},
	}
}

func TestInitCreatesIndexFile(t *testing.T) {
	_, root := openTestIndex(t)
	if _, err := os.Stat(IndexPath(root)); err != nil {
		t.Fatalf("index file missing: %v", err)
	}
}

func TestReplaceAndListItems(t *testing.T) {
	db, _ := openTestIndex(t)
	ctx := context.Background()
	if err := ReplaceItems(ctx, db, testItems()); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	got, err := ListItems(ctx, db)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(got) != 3 || got[0].ID != "a" || got[2].ID != "c" {
		t.Fatalf("unexpected items: %+v", got)
	}
	if got[1].Description != "cake moment" || got[1].FileSize != 5000 {
		t.Fatalf("fields lost in round trip: %+v", got[1])
	}
	if !got[0].CreatedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("created_at mismatch: %v", got[0].CreatedAt)
	}

	// replace again with fewer items drops the rest
	if err := ReplaceItems(ctx, db, testItems()[:1]); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	got, _ = ListItems(ctx, db)
	if len(got) != 1 {
		t.Fatalf("expected 1 item after replace, got %d", len(got))
	}
}

func TestUpsertItem(t *testing.T) {
	db, _ := openTestIndex(t)
	ctx := context.Background()
	it := testItems()[0]
	if err := UpsertItem(ctx, db, it); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	it.Name = "renamed"
	it.X = 42
	if err := UpsertItem(ctx, db, it); err != nil {
		t.Fatalf("UpsertItem update: %v", err)
	}
	got, _ := ListItems(ctx, db)
	if len(got) != 1 || got[0].Name != "renamed" || got[0].X != 42 {
		t.Fatalf("upsert did not replace: %+v", got)
	}
}

func TestApplyPositionUpdatesBatch(t *testing.T) {
	db, _ := openTestIndex(t)
	ctx := context.Background()
	if err := ReplaceItems(ctx, db, testItems()); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	updates := []domain.PositionUpdate{
		{ID: "a", X: 30, Y: 5},
		{ID: "b", X: 330, Y: 85},
	}
	if err := ApplyPositionUpdates(ctx, db, updates); err != nil {
		t.Fatalf("ApplyPositionUpdates: %v", err)
	}
	got, _ := ListItems(ctx, db)
	if got[0].X != 30 || got[0].Y != 5 || !got[0].PositionLocked {
		t.Fatalf("item a not moved+locked: %+v", got[0])
	}
	if got[1].X != 330 || !got[1].PositionLocked {
		t.Fatalf("item b not moved+locked: %+v", got[1])
	}
	if got[2].X != 600 || got[2].PositionLocked {
		t.Fatalf("bystander mutated: %+v", got[2])
	}
}

func TestDeleteItems(t *testing.T) {
	db, _ := openTestIndex(t)
	ctx := context.Background()
	if err := ReplaceItems(ctx, db, testItems()); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	n, err := DeleteItems(ctx, db, []string{"a", "c", "missing"})
	if err != nil {
		t.Fatalf("DeleteItems: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted %d rows, want 2", n)
	}
	got, _ := ListItems(ctx, db)
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("unexpected survivors: %+v", got)
	}
}

func TestUsage(t *testing.T) {
	db, _ := openTestIndex(t)
	ctx := context.Background()
	if err := ReplaceItems(ctx, db, testItems()); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	info, err := Usage(ctx, db)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if info.UsedBytes != 6250 || info.ItemCount != 3 {
		t.Fatalf("usage = %+v", info)
	}
	if info.LimitBytes != DefaultStorageLimit {
		t.Fatalf("limit = %d", info.LimitBytes)
	}
}

func TestSearchItemsFTS(t *testing.T) {
	db, _ := openTestIndex(t)
	ctx := context.Background()
	if err := ReplaceItems(ctx, db, testItems()); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}

	got, err := searchItemsDB(ctx, db, ItemQuery{Text: "sunset"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("fts name match: %+v", got)
	}

	// keywords and description are indexed too
	if got, _ = searchItemsDB(ctx, db, ItemQuery{Text: "vacation"}); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("fts keyword match: %+v", got)
	}
	if got, _ = searchItemsDB(ctx, db, ItemQuery{Text: "cake"}); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("fts description match: %+v", got)
	}

	// updates reach the FTS index via triggers
	it := testItems()[2]
	it.Name = "sunset reaction"
	if err := UpsertItem(ctx, db, it); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	if got, _ = searchItemsDB(ctx, db, ItemQuery{Text: "sunset"}); len(got) != 2 {
		t.Fatalf("fts after update: %+v", got)
	}
}

func TestSearchItemsFilters(t *testing.T) {
	db, _ := openTestIndex(t)
	ctx := context.Background()
	if err := ReplaceItems(ctx, db, testItems()); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}

	got, err := searchItemsDB(ctx, db, ItemQuery{Types: []string{"image"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("type category filter: %+v", got)
	}

	if got, _ = searchItemsDB(ctx, db, ItemQuery{Types: []string{"image/gif"}}); len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("exact mime filter: %+v", got)
	}

	cut := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	if got, _ = searchItemsDB(ctx, db, ItemQuery{CreatedBefore: cut}); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("before filter: %+v", got)
	}
	if got, _ = searchItemsDB(ctx, db, ItemQuery{CreatedAfter: cut}); len(got) != 2 {
		t.Fatalf("after filter: %+v", got)
	}

	if got, _ = searchItemsDB(ctx, db, ItemQuery{Text: "sunset", Types: []string{"video"}}); len(got) != 0 {
		t.Fatalf("combined filter should exclude: %+v", got)
	}
}

func TestDetectAndRebuildIndex(t *testing.T) {
	db, root := openTestIndex(t)
	ctx := context.Background()
	board := domain.Board{Name: "b", Items: testItems()}
	if err := ReplaceItems(ctx, db, board.Items); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	_ = db.Close()

	// healthy index: no rebuild
	rebuilt, err := DetectAndRebuildIndex(ctx, root, board)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex: %v", err)
	}
	if rebuilt {
		t.Fatal("healthy index must not be rebuilt")
	}

	// clobber the file: rebuild from the manifest
	if err := os.WriteFile(IndexPath(root), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	rebuilt, err = DetectAndRebuildIndex(ctx, root, board)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex after corruption: %v", err)
	}
	if !rebuilt {
		t.Fatal("corrupt index must be rebuilt")
	}
	db2, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()
	got, err := ListItems(ctx, db2)
	if err != nil || len(got) != 3 {
		t.Fatalf("rebuilt content: %d items, err %v", len(got), err)
	}
}
