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

// Smart guides and snapping helpers for interactive dragging. These utilities
// are UI-agnostic and deterministic to enable unit testing and reuse across
// frontends. The moving rect is typically the dragged item's bounding box and
// the anchors are the boxes of nearby static items.

import "math"

// SnapOptions controls which guide candidates are considered and the threshold.
type SnapOptions struct {
	// Threshold is the maximum distance (plane units) at which snapping
	// occurs. Typical UI values are 6-8.
	Threshold float64
	// Snap to edges (left, right, top, bottom)
	SnapToEdges bool
	// Snap to centers (cx, cy)
	SnapToCenters bool
}

// Anchor represents a static reference rect. Weight biases selection when
// distances tie (higher = preferred). When uncertain, set Weight to 1.
type Anchor struct {
	Rect   Rect
	Weight float64
}

// GuideLine describes a visual guide generated during a snap alignment.
// Orientation is "vertical" or "horizontal"; Kind is "edge" or "center".
// Position is the x (vertical) or y (horizontal) coordinate of the guide;
// From and To denote its extents for rendering. Values are rounded to 3
// decimal places for determinism.
type GuideLine struct {
	Orientation string
	Kind        string
	Position    float64
	From        Pt
	To          Pt
}

// ComputeSmartGuides computes snapping adjustments for a moving rectangle
// against a set of anchors. It returns the snapped rectangle and any guide
// lines to render for visual feedback. Snapping happens independently in X
// and Y.
func ComputeSmartGuides(moving Rect, anchors []Anchor, opts SnapOptions) (Rect, []GuideLine) {
	if opts.Threshold <= 0 {
		opts.Threshold = 6
	}
	var guides []GuideLine

	bestDX, bestDXDist, bestDXGuide := 0.0, math.Inf(1), GuideLine{}
	bestDY, bestDYDist, bestDYGuide := 0.0, math.Inf(1), GuideLine{}

	mL, mR, mT, mB := moving.MinX(), moving.MaxX(), moving.MinY(), moving.MaxY()
	mC := moving.Center()

	for _, a := range anchors {
		aL, aR, aT, aB := a.Rect.MinX(), a.Rect.MaxX(), a.Rect.MinY(), a.Rect.MaxY()
		aC := a.Rect.Center()

		if opts.SnapToEdges {
			// left-to-left, right-to-right, and abutting edges
			consider(&bestDX, &bestDXDist, &bestDXGuide, mL-aL, opts.Threshold, a.Weight, verticalGuide(aL, moving, a.Rect, "edge"))
			consider(&bestDX, &bestDXDist, &bestDXGuide, mR-aR, opts.Threshold, a.Weight, verticalGuide(aR, moving, a.Rect, "edge"))
			consider(&bestDX, &bestDXDist, &bestDXGuide, mL-aR, opts.Threshold, a.Weight, verticalGuide(aR, moving, a.Rect, "edge"))
			consider(&bestDX, &bestDXDist, &bestDXGuide, mR-aL, opts.Threshold, a.Weight, verticalGuide(aL, moving, a.Rect, "edge"))

			consider(&bestDY, &bestDYDist, &bestDYGuide, mT-aT, opts.Threshold, a.Weight, horizontalGuide(aT, moving, a.Rect, "edge"))
			consider(&bestDY, &bestDYDist, &bestDYGuide, mB-aB, opts.Threshold, a.Weight, horizontalGuide(aB, moving, a.Rect, "edge"))
			consider(&bestDY, &bestDYDist, &bestDYGuide, mT-aB, opts.Threshold, a.Weight, horizontalGuide(aB, moving, a.Rect, "edge"))
			consider(&bestDY, &bestDYDist, &bestDYGuide, mB-aT, opts.Threshold, a.Weight, horizontalGuide(aT, moving, a.Rect, "edge"))
		}
		if opts.SnapToCenters {
			consider(&bestDX, &bestDXDist, &bestDXGuide, mC.X-aC.X, opts.Threshold, a.Weight, verticalGuide(aC.X, moving, a.Rect, "center"))
			consider(&bestDY, &bestDYDist, &bestDYGuide, mC.Y-aC.Y, opts.Threshold, a.Weight, horizontalGuide(aC.Y, moving, a.Rect, "center"))
		}
	}

	snapped := moving
	if bestDXDist <= opts.Threshold {
		snapped.X = FloatRound(moving.X-bestDX, 3)
		guides = append(guides, bestDXGuide)
	}
	if bestDYDist <= opts.Threshold {
		snapped.Y = FloatRound(moving.Y-bestDY, 3)
		guides = append(guides, bestDYGuide)
	}
	return snapped, guides
}

func consider(bestDelta, bestDist *float64, bestGuide *GuideLine, delta, threshold, weight float64, g GuideLine) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	score := dist / math.Max(1, weight)
	if score < *bestDist {
		*bestDist = dist
		*bestDelta = delta
		*bestGuide = g
	}
}

func verticalGuide(x float64, a, b Rect, kind string) GuideLine {
	minY := math.Min(a.MinY(), b.MinY())
	maxY := math.Max(a.MaxY(), b.MaxY())
	x = FloatRound(x, 3)
	return GuideLine{
		Orientation: "vertical",
		Kind:        kind,
		Position:    x,
		From:        Pt{x, minY},
		To:          Pt{x, maxY},
	}
}

func horizontalGuide(y float64, a, b Rect, kind string) GuideLine {
	minX := math.Min(a.MinX(), b.MinX())
	maxX := math.Max(a.MaxX(), b.MaxX())
	y = FloatRound(y, 3)
	return GuideLine{
		Orientation: "horizontal",
		Kind:        kind,
		Position:    y,
		From:        Pt{minX, y},
		To:          Pt{maxX, y},
	}
}
