/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"sort"
)

// PlaceOptions controls free-space placement of a newly imported item.
// All units are plane coordinates. The algorithm is deterministic for
// identical inputs.
//
// Margin is the clearance kept from the search region's edges and GridStep
// the candidate granularity; lower values are slower but find tighter fits.
//
// Anchor, when provided (HasAnchor=true), biases the search toward positions
// whose center is closest to the anchor (e.g. the current viewport center)
// while still avoiding collisions. If no collision-free placement exists, the
// least-overlapping candidate is returned, clamped into the region.
type PlaceOptions struct {
	Margin    float64
	GridStep  float64
	Anchor    Pt
	HasAnchor bool
}

// SuggestPlacement proposes a position for a new item of the given size
// within a search region, avoiding the bounding boxes of existing items.
// It returns the placement rect and the number of candidates evaluated.
func SuggestPlacement(region Rect, size Size, obstacles []Rect, opts PlaceOptions) (Rect, int) {
	if opts.Margin <= 0 {
		opts.Margin = 20
	}
	if opts.GridStep <= 0 {
		opts.GridStep = 50
	}

	inner := region.Inset(opts.Margin, opts.Margin)
	w := math.Max(0, size.W)
	h := math.Max(0, size.H)
	if w > inner.W {
		w = inner.W
	}
	if h > inner.H {
		h = inner.H
	}

	// Candidate grid of top-left positions within the inner bounds.
	x0, y0 := inner.X, inner.Y
	x1 := inner.X + inner.W - w
	y1 := inner.Y + inner.H - h
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}

	var candidates []Rect
	for y := y0; ; y += opts.GridStep {
		if y > y1 {
			y = y1
		}
		for x := x0; ; x += opts.GridStep {
			if x > x1 {
				x = x1
			}
			candidates = append(candidates, R(FloatRound(x, 3), FloatRound(y, 3), FloatRound(w, 3), FloatRound(h, 3)))
			if x == x1 {
				break
			}
		}
		if y == y1 {
			break
		}
	}

	// With an anchor, try candidates closest to it first (stable sort keeps
	// row order on ties, so results stay deterministic).
	if opts.HasAnchor {
		sort.SliceStable(candidates, func(i, j int) bool {
			di := Dist(candidates[i].Center(), opts.Anchor)
			dj := Dist(candidates[j].Center(), opts.Anchor)
			if di == dj {
				if candidates[i].Y == candidates[j].Y {
					return candidates[i].X < candidates[j].X
				}
				return candidates[i].Y < candidates[j].Y
			}
			return di < dj
		})
	}

	bestRect := candidates[0]
	bestCost := math.Inf(1)
	attempts := 0

	for _, c := range candidates {
		attempts++
		ovArea := totalOverlapArea(c, obstacles)
		if ovArea <= 0.0001 { // no collision
			bestRect = c
			break
		}
		cost := ovArea * 10_000
		if opts.HasAnchor {
			cost += Dist(c.Center(), opts.Anchor)
		}
		// Prefer higher rows, tiny bias to the left for determinism.
		cost += c.Y*0.01 + c.X*0.001
		if cost < bestCost {
			bestCost = cost
			bestRect = c
		}
	}

	return clampRectTo(bestRect, inner), attempts
}

func clampRectTo(r, bounds Rect) Rect {
	if r.X < bounds.X {
		r.X = bounds.X
	}
	if r.Y < bounds.Y {
		r.Y = bounds.Y
	}
	if r.MaxX() > bounds.MaxX() {
		r.X = bounds.MaxX() - r.W
	}
	if r.MaxY() > bounds.MaxY() {
		r.Y = bounds.MaxY() - r.H
	}
	return r
}

func totalOverlapArea(r Rect, obstacles []Rect) float64 {
	var sum float64
	for _, o := range obstacles {
		sum += r.Intersection(o).Area()
	}
	return sum
}
