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

// Basic 2D geometry for the plane-coordinate space. Float values use float64
// to match the item model; overlap tests are closed-interval so boxes that
// merely touch still count as overlapping.

import "math"

// Pt is a 2D point in plane coordinates.
type Pt struct{ X, Y float64 }

// Size is a width/height pair.
type Size struct{ W, H float64 }

// Rect is an axis-aligned rectangle defined by min corner and size.
// Width and height are expected to be non-negative; the overlap math produces
// meaningless (but non-crashing) results otherwise.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

func (r Rect) MinX() float64 { return r.X }
func (r Rect) MinY() float64 { return r.Y }
func (r Rect) MaxX() float64 { return r.X + r.W }
func (r Rect) MaxY() float64 { return r.Y + r.H }

func (r Rect) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }

// Overlaps reports whether the two rectangles intersect under closed-interval
// semantics: shared edges and corners count.
func (r Rect) Overlaps(o Rect) bool {
	return r.MaxX() >= o.MinX() && r.MinX() <= o.MaxX() &&
		r.MaxY() >= o.MinY() && r.MinY() <= o.MaxY()
}

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.MaxX(), o.MaxX())
	maxY := math.Max(r.MaxY(), o.MaxY())
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Intersection returns the overlapping region, or a zero rect when disjoint.
func (r Rect) Intersection(o Rect) Rect {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.MaxX(), o.MaxX())
	y1 := math.Min(r.MaxY(), o.MaxY())
	if x1 < x0 || y1 < y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// FromCorners returns the normalized rectangle spanned by two arbitrary
// corner points, e.g. a rubber-band anchor and the live pointer position.
func FromCorners(a, b Pt) Rect {
	minX := math.Min(a.X, b.X)
	minY := math.Min(a.Y, b.Y)
	return Rect{X: minX, Y: minY, W: math.Abs(a.X - b.X), H: math.Abs(a.Y - b.Y)}
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Pt) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

// RectDist returns the minimum Euclidean distance between two rectangles:
// zero when they overlap or touch, the gap between nearest edges otherwise.
func RectDist(a, b Rect) float64 {
	dx := math.Max(0, math.Max(b.MinX()-a.MaxX(), a.MinX()-b.MaxX()))
	dy := math.Max(0, math.Max(b.MinY()-a.MaxY(), a.MinY()-b.MaxY()))
	return math.Hypot(dx, dy)
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
