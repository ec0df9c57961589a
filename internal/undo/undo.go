/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps an in-memory history of finalized board mutations
// (moves and deletions) so they can be rolled back and replayed.
package undo

import (
	"sync"
	"time"

	"mediacanvas/internal/domain"
)

// Kind discriminates what a Change records.
type Kind int

const (
	KindMove Kind = iota
	KindDelete
)

// Change is one reversible board mutation. A move carries the positions
// before and after; a deletion carries full item snapshots so restoring can
// recreate them. TS is when the change was recorded.
type Change struct {
	Kind    Kind
	Before  []domain.PositionUpdate
	After   []domain.PositionUpdate
	Deleted []domain.MediaItem
	TS      time.Time
}

func (c Change) size() int {
	n := 64
	n += (len(c.Before) + len(c.After)) * 48
	for _, it := range c.Deleted {
		n += 160 + len(it.Name) + len(it.Description) + len(it.Keywords) + len(it.FilePath) + len(it.ThumbPath)
	}
	return n
}

// sameIDs reports whether two position batches cover the same items in the
// same order.
func sameIDs(a, b []domain.PositionUpdate) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; the oldest entries are pruned when exceeded.
	MaxBytes int
	// MaxDepth limits the number of changes kept (0 means unlimited).
	MaxDepth int
	// MinInterval coalesces successive moves of the same item set recorded
	// within the interval, folding them into one change that undoes in a
	// single step.
	MinInterval time.Duration
}

// Manager provides the undo/redo stacks with performance safeguards.
// It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex

	undo []Change
	redo []Change

	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg}
}

// RecordMove pushes a finished move. Rapid successive moves of the same item
// set coalesce: the earlier change's Before is kept and its After replaced,
// so one undo returns the items to where the burst started. Any new change
// clears the redo stack.
func (m *Manager) RecordMove(before, after []domain.PositionUpdate, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.undo); n > 0 {
		last := m.undo[n-1]
		if last.Kind == KindMove && sameIDs(last.After, after) && ts.Sub(last.TS) < m.cfg.MinInterval {
			m.totalBytes -= last.size()
			last.After = after
			last.TS = ts
			m.undo[n-1] = last
			m.totalBytes += last.size()
			m.redo = nil
			m.enforceCapsLocked()
			return
		}
	}
	m.pushLocked(Change{Kind: KindMove, Before: before, After: after, TS: ts})
}

// RecordDelete pushes a finished deletion with the full removed items.
func (m *Manager) RecordDelete(deleted []domain.MediaItem, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushLocked(Change{Kind: KindDelete, Deleted: deleted, TS: ts})
}

func (m *Manager) pushLocked(c Change) {
	m.undo = append(m.undo, c)
	m.totalBytes += c.size()
	m.redo = nil
	m.enforceCapsLocked()
}

// Undo pops the latest change onto the redo stack and returns it. The caller
// applies Before (for a move) or re-creates Deleted items.
func (m *Manager) Undo() (Change, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.undo) == 0 {
		return Change{}, false
	}
	c := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.totalBytes -= c.size()
	m.redo = append(m.redo, c)
	return c, true
}

// Redo pops the latest undone change back onto the undo stack and returns
// it. The caller applies After (for a move) or re-deletes the items.
func (m *Manager) Redo() (Change, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.redo) == 0 {
		return Change{}, false
	}
	c := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, c)
	m.totalBytes += c.size()
	m.enforceCapsLocked()
	return c, true
}

// Clear drops both stacks, e.g. when a different board is opened.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = nil
	m.redo = nil
	m.totalBytes = 0
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes, undoDepth, redoDepth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBytes, len(m.undo), len(m.redo)
}

func (m *Manager) enforceCapsLocked() {
	if m.cfg.MaxDepth > 0 && len(m.undo) > m.cfg.MaxDepth {
		toDrop := len(m.undo) - m.cfg.MaxDepth
		for i := 0; i < toDrop; i++ {
			m.totalBytes -= m.undo[i].size()
		}
		m.undo = append([]Change{}, m.undo[toDrop:]...)
	}
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes && len(m.undo) > 0 {
		m.totalBytes -= m.undo[0].size()
		m.undo = m.undo[1:]
	}
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}
