/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package domain defines the core data model: media items placed freely on an
// unbounded 2D plane. Items are owned by the caller; the engine treats them
// as read-mostly snapshots and only proposes position changes.
package domain

import (
	"time"

	"mediacanvas/internal/vector"
)

// MediaItem is one media file placed on the plane. X/Y is the top-left corner
// in plane coordinates; Width/Height are the display size (positive).
// PositionLocked is set once the user has repositioned the item manually so
// automatic layout passes leave it alone.
type MediaItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	Keywords    string  `json:"keywords,omitempty"`
	FileType    string  `json:"file_type"`
	FileSize    int64   `json:"file_size,omitempty"`
	FilePath    string  `json:"file_path,omitempty"`
	ThumbPath   string  `json:"thumbnail_path,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`

	PositionLocked bool      `json:"position_locked,omitempty"`
	ClusterID      string    `json:"manual_cluster_id,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// Bounds returns the item's axis-aligned bounding box.
func (m *MediaItem) Bounds() vector.Rect {
	return vector.R(m.X, m.Y, m.Width, m.Height)
}

// Anchor returns the item's top-left corner.
func (m *MediaItem) Anchor() vector.Pt {
	return vector.Pt{X: m.X, Y: m.Y}
}

// PositionUpdate is a finalized move proposal for one item.
type PositionUpdate struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Board is a named collection of items, the unit of persistence.
type Board struct {
	Name  string      `json:"name"`
	Items []MediaItem `json:"items"`
}
