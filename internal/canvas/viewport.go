/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package canvas implements the interactive engine over the item plane: the
// pan/zoom viewport, viewport culling, and the selection/drag session. All
// state lives in explicit structs owned by an Engine; the package keeps no
// globals. The engine is single-threaded and event-driven: every public
// method completes synchronously and callers feed events in arrival order.
package canvas

import (
	"mediacanvas/internal/config"
	"mediacanvas/internal/vector"
)

// Viewport holds the pan offset and zoom scale mapping plane coordinates to
// screen pixels: screen = plane*Scale + Pan. Scale stays clamped to the
// configured bounds; every update is applied in one step so observers never
// see a half-applied pan/scale pair.
type Viewport struct {
	PanX  float64
	PanY  float64
	Scale float64

	cfg config.CanvasConfig
}

// NewViewport returns a viewport at the plane origin with scale 1.
func NewViewport(cfg config.CanvasConfig) *Viewport {
	return &Viewport{Scale: 1, cfg: cfg}
}

// ZoomAt applies one discrete zoom tick anchored at the given screen point:
// the plane point under the pointer stays under the pointer. direction > 0
// zooms in, direction < 0 zooms out, zero is a no-op.
func (v *Viewport) ZoomAt(sx, sy float64, direction int) {
	if direction == 0 {
		return
	}
	step := v.cfg.ZoomStep
	if direction < 0 {
		step = 1 / step
	}
	newScale := clamp(v.Scale*step, v.cfg.MinScale, v.cfg.MaxScale)
	if newScale == v.Scale {
		return
	}
	px := (sx - v.PanX) / v.Scale
	py := (sy - v.PanY) / v.Scale
	v.PanX = sx - px*newScale
	v.PanY = sy - py*newScale
	v.Scale = newScale
}

// PanBy translates the viewport by a screen-space delta.
func (v *Viewport) PanBy(dx, dy float64) {
	v.PanX += dx
	v.PanY += dy
}

// PanTo sets the pan offset absolutely.
func (v *Viewport) PanTo(x, y float64) {
	v.PanX = x
	v.PanY = y
}

// CenterOn pans so the given plane point sits at the center of a viewport of
// the given pixel size. Scale is unchanged.
func (v *Viewport) CenterOn(p vector.Pt, viewW, viewH float64) {
	v.PanX = viewW/2 - p.X*v.Scale
	v.PanY = viewH/2 - p.Y*v.Scale
}

// ScreenToPlane converts a screen point to plane coordinates.
func (v *Viewport) ScreenToPlane(sx, sy float64) vector.Pt {
	return vector.Pt{X: (sx - v.PanX) / v.Scale, Y: (sy - v.PanY) / v.Scale}
}

// PlaneToScreen converts a plane point to screen coordinates.
func (v *Viewport) PlaneToScreen(p vector.Pt) (sx, sy float64) {
	return p.X*v.Scale + v.PanX, p.Y*v.Scale + v.PanY
}

// VisibleRegion returns the plane-space rectangle covered by a viewport of
// the given pixel size, expanded by the configured cull padding on all sides
// so items just outside the frame are pre-loaded and do not pop in while
// panning.
func (v *Viewport) VisibleRegion(viewW, viewH float64) vector.Rect {
	min := v.ScreenToPlane(0, 0)
	max := v.ScreenToPlane(viewW, viewH)
	r := vector.R(min.X, min.Y, max.X-min.X, max.Y-min.Y)
	return r.Inset(-v.cfg.CullPadding, -v.cfg.CullPadding)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
