/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export renders a region of the board to a contact sheet: every item
// box that overlaps the region is drawn as a rectangle, optionally labeled.
// Output is PDF or PNG; there is no styling system beyond stroke/fill colors.
package export

import (
	"sort"

	"mediacanvas/internal/domain"
	"mediacanvas/internal/vector"
)

// Color is an opaque RGB color.
type Color struct {
	R, G, B uint8
}

// Options control region rendering. Zero values get sensible defaults.
type Options struct {
	// Scale converts plane units to output units; <= 0 means 1:1.
	Scale float64
	// IncludeLabels draws each item's name (or id) inside its box.
	IncludeLabels bool
	Background    Color
	ItemFill      Color
	ItemStroke    Color
	StrokeWidth   float64
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Background == (Color{}) {
		o.Background = Color{R: 255, G: 255, B: 255}
	}
	if o.ItemFill == (Color{}) {
		o.ItemFill = Color{R: 235, G: 235, B: 235}
	}
	if o.StrokeWidth <= 0 {
		o.StrokeWidth = 1
	}
	return o
}

// regionItems returns the items whose boxes overlap region, in item order.
// Touching edges count as inside, matching the canvas culling rule.
func regionItems(items []*domain.MediaItem, region vector.Rect) []*domain.MediaItem {
	out := make([]*domain.MediaItem, 0, len(items))
	for _, it := range items {
		if it.Bounds().Overlaps(region) {
			out = append(out, it)
		}
	}
	return out
}

// label picks the drawn text for an item.
func label(it *domain.MediaItem) string {
	if it.Name != "" {
		return it.Name
	}
	return it.ID
}

// sortedCopy returns items ordered top-to-bottom, left-to-right so output is
// stable regardless of insertion order.
func sortedCopy(items []*domain.MediaItem) []*domain.MediaItem {
	out := make([]*domain.MediaItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].ID < out[j].ID
	})
	return out
}
