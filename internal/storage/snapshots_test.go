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
	"testing"
	"time"

	"mediacanvas/internal/domain"
)

func TestSnapshotsRoundTrip(t *testing.T) {
	db, _ := openTestIndex(t)
	ctx := context.Background()

	if _, _, ok, err := LatestSnapshot(ctx, db); err != nil || ok {
		t.Fatalf("fresh index should have no snapshot (ok=%v err=%v)", ok, err)
	}

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b1 := domain.Board{Name: "v1", Items: testItems()[:1]}
	b2 := domain.Board{Name: "v2", Items: testItems()}
	if err := SaveSnapshot(ctx, db, b1, t0); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := SaveSnapshot(ctx, db, b2, t0.Add(time.Minute)); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, ts, ok, err := LatestSnapshot(ctx, db)
	if err != nil || !ok {
		t.Fatalf("LatestSnapshot: ok=%v err=%v", ok, err)
	}
	if got.Name != "v2" || len(got.Items) != 3 {
		t.Fatalf("latest = %+v", got)
	}
	if !ts.Equal(t0.Add(time.Minute)) {
		t.Fatalf("ts = %v", ts)
	}
}

func TestPruneSnapshots(t *testing.T) {
	db, _ := openTestIndex(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		b := domain.Board{Name: "s"}
		if err := SaveSnapshot(ctx, db, b, t0.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}
	if err := PruneSnapshots(ctx, db, 2); err != nil {
		t.Fatalf("PruneSnapshots: %v", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("kept %d snapshots, want 2", n)
	}
	// newest survives
	_, ts, ok, _ := LatestSnapshot(ctx, db)
	if !ok || !ts.Equal(t0.Add(4*time.Minute)) {
		t.Fatalf("latest after prune: ok=%v ts=%v", ok, ts)
	}
}
