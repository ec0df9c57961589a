/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"math"
	"testing"

	"mediacanvas/internal/config"
	"mediacanvas/internal/vector"
)

func testCfg() config.CanvasConfig { return config.Defaults().Canvas }

func TestZoomAnchoredAtPointer(t *testing.T) {
	v := NewViewport(testCfg())
	v.PanTo(123, -45)

	points := []vector.Pt{{X: 0, Y: 0}, {X: 400, Y: 300}, {X: 799, Y: 1}}
	for _, p := range points {
		for _, dir := range []int{1, 1, -1, 1, -1, -1} {
			before := v.ScreenToPlane(p.X, p.Y)
			v.ZoomAt(p.X, p.Y, dir)
			after := v.ScreenToPlane(p.X, p.Y)
			if math.Abs(before.X-after.X) > 1e-9 || math.Abs(before.Y-after.Y) > 1e-9 {
				t.Fatalf("plane point under pointer moved: %+v -> %+v", before, after)
			}
		}
	}
}

func TestZoomScaleClamped(t *testing.T) {
	cfg := testCfg()
	v := NewViewport(cfg)
	for i := 0; i < 200; i++ {
		v.ZoomAt(100, 100, 1)
		if v.Scale > cfg.MaxScale+1e-12 {
			t.Fatalf("scale %v exceeds max %v", v.Scale, cfg.MaxScale)
		}
	}
	if v.Scale != cfg.MaxScale {
		t.Fatalf("scale should settle at max, got %v", v.Scale)
	}
	for i := 0; i < 400; i++ {
		v.ZoomAt(100, 100, -1)
		if v.Scale < cfg.MinScale-1e-12 {
			t.Fatalf("scale %v below min %v", v.Scale, cfg.MinScale)
		}
	}
	if v.Scale != cfg.MinScale {
		t.Fatalf("scale should settle at min, got %v", v.Scale)
	}
}

func TestScreenPlaneRoundTrip(t *testing.T) {
	v := NewViewport(testCfg())
	v.PanTo(-200, 80)
	v.ZoomAt(100, 100, 1)
	v.ZoomAt(30, 500, 1)

	p := v.ScreenToPlane(640, 360)
	sx, sy := v.PlaneToScreen(p)
	if math.Abs(sx-640) > 1e-9 || math.Abs(sy-360) > 1e-9 {
		t.Fatalf("round trip drifted: (%v,%v)", sx, sy)
	}
}

func TestVisibleRegionPadding(t *testing.T) {
	cfg := testCfg()
	v := NewViewport(cfg)
	r := v.VisibleRegion(800, 600)
	want := vector.R(-cfg.CullPadding, -cfg.CullPadding, 800+2*cfg.CullPadding, 600+2*cfg.CullPadding)
	if r != want {
		t.Fatalf("region %+v, want %+v", r, want)
	}

	// Zoomed out, the same pixels cover more plane; the padding stays a
	// fixed plane-unit margin around the on-screen rect.
	v.ZoomAt(0, 0, -1)
	r = v.VisibleRegion(800, 600)
	if r.W <= want.W || r.H <= want.H {
		t.Fatalf("zoomed-out region should cover more plane: %+v", r)
	}
}

func TestPanAndCenterOn(t *testing.T) {
	v := NewViewport(testCfg())
	v.PanBy(10, -20)
	v.PanBy(5, 5)
	if v.PanX != 15 || v.PanY != -15 {
		t.Fatalf("pan = (%v,%v)", v.PanX, v.PanY)
	}

	v.CenterOn(vector.Pt{X: 1000, Y: 2000}, 800, 600)
	center := v.ScreenToPlane(400, 300)
	if math.Abs(center.X-1000) > 1e-9 || math.Abs(center.Y-2000) > 1e-9 {
		t.Fatalf("center = %+v", center)
	}
}
