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
	"sort"
	"time"

	"mediacanvas/internal/domain"
	"mediacanvas/internal/vector"
)

// State is the selection/drag session state. Idle is initial and the state
// every other state returns to on its terminal event.
type State int

const (
	StateIdle State = iota
	StateBoxSelecting
	StateDraggingSingle
	StateDraggingGroup
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBoxSelecting:
		return "box-selecting"
	case StateDraggingSingle:
		return "dragging-single"
	case StateDraggingGroup:
		return "dragging-group"
	}
	return "unknown"
}

// Modifiers are the flags the host attaches to pointer events.
type Modifiers struct {
	// Box starts a rubber-band selection when the press lands on empty
	// canvas.
	Box bool
	// Toggle makes a plain click on an item toggle its selection membership
	// instead of activating it.
	Toggle bool
}

// sessionHooks is how the session reports outcomes. All hooks are invoked
// synchronously with the session already back in a consistent state, so a
// hook may safely query it.
type sessionHooks struct {
	// overlapping returns the items whose boxes overlap the rubber band.
	overlapping func(vector.Rect) []*domain.MediaItem
	itemByID    func(string) *domain.MediaItem

	selectionChanged func()
	// moveFinalized reports a completed drag: each id's pre-drag top-left
	// plus the one shared delta. single distinguishes the one-item case.
	moveFinalized   func(origins map[string]vector.Pt, delta vector.Pt, single bool)
	deleteRequested func(ids []string)
	activate        func(id string)
}

// session is the gesture state machine. One explicit object rather than
// loose flags: a new gesture cannot start while another is mid-flight, and
// the click-vs-drag and suppression precedence rules stay enumerable.
type session struct {
	hooks         sessionHooks
	dragThreshold float64 // screen px of travel that turns a press into a drag
	suppression   time.Duration
	now           func() time.Time

	state     State
	selection map[string]bool

	// armed press, before click/drag disambiguation
	pressed     bool
	pressPlane  vector.Pt
	pressScreen vector.Pt
	pressItem   *domain.MediaItem
	pressMods   Modifiers
	pressMoved  bool // empty-canvas press that travelled; the host pans with it

	// rubber band
	boxAnchor     vector.Pt
	boxCurrent    vector.Pt
	preSelection  map[string]bool
	suppressUntil time.Time

	// drag
	dragID      string
	dragOrigins map[string]vector.Pt
	dragDelta   vector.Pt

	// delete of the dragged item's selection arrives mid-drag; held until
	// the drag session ends
	deferredDelete []string
}

func newSession(hooks sessionHooks, dragThreshold float64, suppression time.Duration) *session {
	return &session{
		hooks:         hooks,
		dragThreshold: dragThreshold,
		suppression:   suppression,
		now:           time.Now,
		selection:     make(map[string]bool),
	}
}

// pointerDown arms a gesture. target is nil for empty canvas. Ignored while
// another gesture is mid-flight.
func (s *session) pointerDown(plane, screen vector.Pt, target *domain.MediaItem, mods Modifiers) {
	if s.state != StateIdle || s.pressed {
		return
	}
	if target == nil && mods.Box {
		s.state = StateBoxSelecting
		s.boxAnchor, s.boxCurrent = plane, plane
		s.preSelection = copySet(s.selection)
		return
	}
	s.pressed = true
	s.pressPlane, s.pressScreen = plane, screen
	s.pressItem = target
	s.pressMods = mods
	s.pressMoved = false
}

func (s *session) pointerMove(plane, screen vector.Pt) {
	switch s.state {
	case StateBoxSelecting:
		s.boxCurrent = plane
		band := vector.FromCorners(s.boxAnchor, plane)
		next := copySet(s.preSelection)
		for _, it := range s.hooks.overlapping(band) {
			next[it.ID] = true
		}
		s.setSelection(next)
	case StateDraggingSingle, StateDraggingGroup:
		s.dragDelta = vector.Pt{X: plane.X - s.pressPlane.X, Y: plane.Y - s.pressPlane.Y}
	default:
		if !s.pressed || s.pressMoved {
			return
		}
		if vector.Dist(screen, s.pressScreen) < s.dragThreshold {
			return
		}
		if s.pressItem == nil {
			// empty-canvas travel is a pan; the release must not count as
			// a click and clear the selection
			s.pressMoved = true
			return
		}
		s.beginDrag(plane)
	}
}

func (s *session) beginDrag(plane vector.Pt) {
	s.dragID = s.pressItem.ID
	s.dragOrigins = make(map[string]vector.Pt)
	if s.selection[s.dragID] && len(s.selection) > 1 {
		s.state = StateDraggingGroup
		for id := range s.selection {
			if it := s.hooks.itemByID(id); it != nil {
				s.dragOrigins[id] = it.Anchor()
			}
		}
	} else {
		s.state = StateDraggingSingle
		s.dragOrigins[s.dragID] = s.pressItem.Anchor()
	}
	s.dragDelta = vector.Pt{X: plane.X - s.pressPlane.X, Y: plane.Y - s.pressPlane.Y}
}

func (s *session) pointerUp(plane, screen vector.Pt) {
	switch s.state {
	case StateBoxSelecting:
		band := vector.FromCorners(s.boxAnchor, plane)
		next := copySet(s.preSelection)
		for _, it := range s.hooks.overlapping(band) {
			next[it.ID] = true
		}
		s.state = StateIdle
		s.preSelection = nil
		s.suppressUntil = s.now().Add(s.suppression)
		s.clearPress()
		s.setSelection(next)

	case StateDraggingSingle, StateDraggingGroup:
		single := s.state == StateDraggingSingle
		delta := vector.Pt{X: plane.X - s.pressPlane.X, Y: plane.Y - s.pressPlane.Y}
		origins := s.dragOrigins
		s.resetDrag()
		s.clearPress()
		if delta.X != 0 || delta.Y != 0 {
			s.hooks.moveFinalized(origins, delta, single)
		}
		s.flushDeferredDelete()

	default:
		if !s.pressed {
			return
		}
		item, mods, moved := s.pressItem, s.pressMods, s.pressMoved
		s.clearPress()
		if moved {
			return
		}
		if item != nil {
			if mods.Toggle {
				next := copySet(s.selection)
				if next[item.ID] {
					delete(next, item.ID)
				} else {
					next[item.ID] = true
				}
				s.setSelection(next)
			} else {
				s.hooks.activate(item.ID)
			}
			return
		}
		// plain click on empty space clears the selection, unless it is the
		// host's click echo of a rubber-band release
		if s.now().Before(s.suppressUntil) {
			return
		}
		if len(s.selection) > 0 {
			s.setSelection(make(map[string]bool))
		}
	}
}

// cancel aborts the open gesture without emitting any mutation. A rubber
// band rolls the selection back to its pre-gesture snapshot; a drag discards
// its delta.
func (s *session) cancel() {
	switch s.state {
	case StateBoxSelecting:
		pre := s.preSelection
		s.state = StateIdle
		s.preSelection = nil
		s.setSelection(pre)
	case StateDraggingSingle, StateDraggingGroup:
		s.resetDrag()
		s.flushDeferredDelete()
	}
	s.clearPress()
}

// deleteSelection clears the selection immediately and requests deletion of
// its members in one batch. If the batch covers the item currently being
// dragged, the request is deferred until the drag session ends.
func (s *session) deleteSelection() {
	if len(s.selection) == 0 {
		return
	}
	ids := s.selectionIDs()
	s.setSelection(make(map[string]bool))
	if s.state == StateDraggingSingle || s.state == StateDraggingGroup {
		for _, id := range ids {
			if id == s.dragID {
				s.deferredDelete = ids
				return
			}
		}
	}
	s.hooks.deleteRequested(ids)
}

// pruneSelection drops selection and drag references to ids that vanished
// from the item list. Called on every rebuild; never surfaces an error.
func (s *session) pruneSelection(alive func(string) bool) {
	next := make(map[string]bool, len(s.selection))
	for id := range s.selection {
		if alive(id) {
			next[id] = true
		}
	}
	s.setSelection(next)

	if s.state == StateDraggingSingle || s.state == StateDraggingGroup {
		if !alive(s.dragID) {
			s.resetDrag()
			s.clearPress()
			s.flushDeferredDelete()
			return
		}
		for id := range s.dragOrigins {
			if !alive(id) {
				delete(s.dragOrigins, id)
			}
		}
	}
	if s.pressed && s.pressItem != nil && !alive(s.pressItem.ID) {
		s.clearPress()
	}
}

func (s *session) selectionIDs() []string {
	ids := make([]string, 0, len(s.selection))
	for id := range s.selection {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *session) boxRect() (vector.Rect, bool) {
	if s.state != StateBoxSelecting {
		return vector.Rect{}, false
	}
	return vector.FromCorners(s.boxAnchor, s.boxCurrent), true
}

func (s *session) dragging(id string) bool {
	if s.state != StateDraggingSingle && s.state != StateDraggingGroup {
		return false
	}
	_, ok := s.dragOrigins[id]
	return ok
}

func (s *session) setSelection(next map[string]bool) {
	if equalSets(s.selection, next) {
		return
	}
	s.selection = next
	s.hooks.selectionChanged()
}

func (s *session) resetDrag() {
	s.state = StateIdle
	s.dragID = ""
	s.dragOrigins = nil
	s.dragDelta = vector.Pt{}
}

func (s *session) flushDeferredDelete() {
	if ids := s.deferredDelete; len(ids) > 0 {
		s.deferredDelete = nil
		s.hooks.deleteRequested(ids)
	}
}

func (s *session) clearPress() {
	s.pressed = false
	s.pressItem = nil
	s.pressMoved = false
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func equalSets(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
