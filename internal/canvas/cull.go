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
	"mediacanvas/internal/domain"
	"mediacanvas/internal/spatial"
	"mediacanvas/internal/vector"
)

// Cull returns the items to render for the given padded visible region. It
// runs on every pan/zoom frame, so the cost must stay sub-linear in the item
// count; that is the index's job, Cull itself only delegates.
func Cull(ix *spatial.Index, visible vector.Rect) []*domain.MediaItem {
	return ix.Search(visible)
}
