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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mediacanvas/internal/domain"
)

// SaveSnapshot appends an autosave snapshot of the whole board. Snapshots
// back crash recovery: the newest one can be offered when the manifest was
// not saved before an abnormal exit.
func SaveSnapshot(ctx context.Context, db *sql.DB, board domain.Board, ts time.Time) error {
	blob, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("marshal board snapshot: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO snapshots (ts, board_blob) VALUES (?, ?)`,
		ts.UTC().Format(time.RFC3339), blob); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest autosave snapshot, or ok=false when none
// exists.
func LatestSnapshot(ctx context.Context, db *sql.DB) (domain.Board, time.Time, bool, error) {
	var blob []byte
	var tsStr string
	err := db.QueryRowContext(ctx,
		`SELECT ts, board_blob FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&tsStr, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Board{}, time.Time{}, false, nil
	}
	if err != nil {
		return domain.Board{}, time.Time{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	var b domain.Board
	if err := json.Unmarshal(blob, &b); err != nil {
		return domain.Board{}, time.Time{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	ts, _ := time.Parse(time.RFC3339, tsStr)
	return b, ts, true, nil
}

// AutosaveCrashSnapshot persists the in-memory board into the index database
// so an abnormal exit cannot lose unsaved work. Returns the index path the
// snapshot went to.
func AutosaveCrashSnapshot(bh *BoardHandle) (string, error) {
	if bh == nil {
		return "", errors.New("nil board handle")
	}
	ctx := context.Background()
	db, err := InitOrOpenIndex(bh.Root)
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Close() }()
	if err := SaveSnapshot(ctx, db, bh.Board, time.Now().UTC()); err != nil {
		return "", err
	}
	// keep the autosave history bounded
	_ = PruneSnapshots(ctx, db, 10)
	return IndexPath(bh.Root), nil
}

// PruneSnapshots keeps only the newest keep snapshots.
func PruneSnapshots(ctx context.Context, db *sql.DB, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
