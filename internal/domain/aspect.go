/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import "math"

// MaxDimension caps the display size of an item on its long side.
const MaxDimension = 200

// aspectRatio is a named width:height pair used for snapping.
type aspectRatio struct {
	name string
	w, h float64
}

// Listed in snap-priority order only for deterministic tie-breaking; the
// closest ratio wins regardless of position.
var aspectRatios = []aspectRatio{
	{"square", 1, 1},
	{"wide", 16, 9},
	{"tall", 9, 16},
	{"classic", 4, 3},
	{"portrait", 3, 4},
	{"ultrawide", 21, 9},
	{"ultratall", 9, 21},
}

// DisplaySize computes the on-canvas display dimensions for a media file of
// the given pixel size. The actual ratio snaps to the nearest common aspect
// ratio and the result fits within MaxDimension; extreme ratios are clamped
// to ultrawide/ultratall so a 1x9999 image cannot produce a sliver.
// Zero input falls back to a MaxDimension square.
func DisplaySize(width, height int) (displayW, displayH float64) {
	if width == 0 || height == 0 {
		return MaxDimension, MaxDimension
	}

	actual := float64(width) / float64(height)
	if actual > 4 {
		actual = math.Min(actual, 21.0/9.0)
	} else if actual < 0.25 {
		actual = math.Max(actual, 9.0/21.0)
	}

	best := aspectRatios[0]
	bestDiff := math.Inf(1)
	for _, r := range aspectRatios {
		diff := math.Abs(actual - r.w/r.h)
		if diff < bestDiff {
			bestDiff = diff
			best = r
		}
	}

	switch {
	case best.w > best.h: // landscape
		return MaxDimension, math.Floor(MaxDimension * best.h / best.w)
	case best.h > best.w: // portrait
		return math.Floor(MaxDimension * best.w / best.h), MaxDimension
	default:
		return MaxDimension, MaxDimension
	}
}
