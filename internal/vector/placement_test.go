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

import "testing"

func TestSuggestPlacement_EmptyRegionTopLeft(t *testing.T) {
	region := R(0, 0, 1000, 1000)
	got, attempts := SuggestPlacement(region, Size{W: 200, H: 150}, nil, PlaceOptions{Margin: 20, GridStep: 50})
	if got.X != 20 || got.Y != 20 {
		t.Fatalf("expected first candidate in empty region, got %+v", got)
	}
	if attempts != 1 {
		t.Fatalf("expected early return on first free candidate, attempts=%d", attempts)
	}
}

func TestSuggestPlacement_AvoidsObstacle(t *testing.T) {
	region := R(0, 0, 500, 500)
	obstacles := []Rect{R(0, 0, 260, 500)} // wall covering the left half
	got, _ := SuggestPlacement(region, Size{W: 200, H: 150}, obstacles, PlaceOptions{Margin: 10, GridStep: 25})
	if got.Intersection(obstacles[0]).Area() > 0.0001 {
		t.Fatalf("placement overlaps obstacle: %+v", got)
	}
}

func TestSuggestPlacement_AnchorBias(t *testing.T) {
	region := R(0, 0, 2000, 2000)
	anchor := Pt{1500, 1500}
	got, _ := SuggestPlacement(region, Size{W: 100, H: 100}, nil, PlaceOptions{Margin: 10, GridStep: 100, Anchor: anchor, HasAnchor: true})
	if Dist(got.Center(), anchor) > 150 {
		t.Fatalf("placement %+v too far from anchor %+v", got, anchor)
	}
}

func TestSuggestPlacement_Deterministic(t *testing.T) {
	region := R(0, 0, 800, 600)
	obstacles := []Rect{R(20, 20, 300, 300), R(400, 20, 300, 300)}
	a, _ := SuggestPlacement(region, Size{W: 150, H: 100}, obstacles, PlaceOptions{})
	b, _ := SuggestPlacement(region, Size{W: 150, H: 100}, obstacles, PlaceOptions{})
	if a != b {
		t.Fatalf("placement not deterministic: %+v vs %+v", a, b)
	}
}

func TestSuggestPlacement_ClampedIntoRegion(t *testing.T) {
	region := R(0, 0, 100, 100)
	got, _ := SuggestPlacement(region, Size{W: 500, H: 500}, nil, PlaceOptions{Margin: 10, GridStep: 10})
	inner := region.Inset(10, 10)
	if got.MinX() < inner.MinX() || got.MinY() < inner.MinY() || got.MaxX() > inner.MaxX()+0.001 || got.MaxY() > inner.MaxY()+0.001 {
		t.Fatalf("placement %+v escapes region %+v", got, inner)
	}
}
