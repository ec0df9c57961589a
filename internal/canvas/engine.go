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
	"log/slog"
	"time"

	"mediacanvas/internal/config"
	"mediacanvas/internal/domain"
	"mediacanvas/internal/log"
	"mediacanvas/internal/search"
	"mediacanvas/internal/spatial"
	"mediacanvas/internal/vector"
)

// Callbacks is the engine's output boundary. The engine fires them
// synchronously and never awaits a result; persisting what they carry is the
// caller's concern. Nil members are skipped.
type Callbacks struct {
	// OnPositionChange reports a finalized single-item move.
	OnPositionChange func(domain.PositionUpdate)
	// OnBatchPositionChange reports a finalized group move as one batch so
	// the caller can persist it atomically.
	OnBatchPositionChange func([]domain.PositionUpdate)
	// OnBatchDelete requests deletion of the given ids. The engine keeps the
	// items until the caller confirms by pushing a new item list.
	OnBatchDelete func(ids []string)
	// OnSelectionChange reports the new selection, sorted by id.
	OnSelectionChange func(ids []string)
	// OnActivate reports a plain click on an item.
	OnActivate func(id string)
}

// Engine owns the viewport, the spatial index, and the gesture session over
// one externally owned item list. All methods must be called from a single
// goroutine; events are processed strictly in arrival order.
type Engine struct {
	cfg  config.CanvasConfig
	logg *slog.Logger
	cb   Callbacks

	vp    *Viewport
	index *spatial.Index
	sess  *session

	items []*domain.MediaItem
	byID  map[string]*domain.MediaItem

	viewW, viewH float64
}

// New returns an engine with an empty item list and a viewport at the
// origin.
func New(cfg config.CanvasConfig, cb Callbacks) *Engine {
	e := &Engine{
		cfg:   cfg,
		logg:  log.WithComponent("canvas"),
		cb:    cb,
		vp:    NewViewport(cfg),
		index: spatial.New(),
		byID:  make(map[string]*domain.MediaItem),
	}
	e.sess = newSession(sessionHooks{
		overlapping:      e.index.Search,
		itemByID:         e.itemByID,
		selectionChanged: e.emitSelection,
		moveFinalized:    e.applyMove,
		deleteRequested:  e.emitDelete,
		activate:         e.emitActivate,
	}, cfg.DragThreshold, time.Duration(cfg.ClickSuppressionMs)*time.Millisecond)
	return e
}

// SetItems replaces the authoritative item snapshot: the index is rebuilt
// wholesale and selection/drag references to vanished items are pruned.
func (e *Engine) SetItems(items []*domain.MediaItem) {
	e.items = items
	e.byID = make(map[string]*domain.MediaItem, len(items))
	for _, it := range items {
		e.byID[it.ID] = it
	}
	e.index.Rebuild(items)
	e.sess.pruneSelection(func(id string) bool { _, ok := e.byID[id]; return ok })
	e.logg.Debug("items replaced", slog.Int("count", len(items)))
}

// SetViewSize records the viewport pixel dimensions used for culling.
func (e *Engine) SetViewSize(w, h float64) {
	e.viewW, e.viewH = w, h
}

// PointerDown forwards a press at screen coordinates. targetID names the
// item under the pointer, or is empty for bare canvas.
func (e *Engine) PointerDown(sx, sy float64, targetID string, mods Modifiers) {
	e.sess.pointerDown(e.vp.ScreenToPlane(sx, sy), vector.Pt{X: sx, Y: sy}, e.itemByID(targetID), mods)
}

// PointerMove forwards pointer travel.
func (e *Engine) PointerMove(sx, sy float64) {
	e.sess.pointerMove(e.vp.ScreenToPlane(sx, sy), vector.Pt{X: sx, Y: sy})
}

// PointerUp forwards a release.
func (e *Engine) PointerUp(sx, sy float64) {
	e.sess.pointerUp(e.vp.ScreenToPlane(sx, sy), vector.Pt{X: sx, Y: sy})
}

// Wheel applies one zoom tick anchored at the pointer. Positive delta zooms
// in.
func (e *Engine) Wheel(sx, sy, delta float64) {
	switch {
	case delta > 0:
		e.vp.ZoomAt(sx, sy, 1)
	case delta < 0:
		e.vp.ZoomAt(sx, sy, -1)
	}
}

// PanBy translates the viewport by a screen-space delta. Panning is host
// driven (middle button, trackpad) and independent of the gesture session.
func (e *Engine) PanBy(dx, dy float64) { e.vp.PanBy(dx, dy) }

// CenterOn pans so the given plane point is centered in the viewport.
func (e *Engine) CenterOn(p vector.Pt) { e.vp.CenterOn(p, e.viewW, e.viewH) }

// KeyDelete requests deletion of the current selection.
func (e *Engine) KeyDelete() { e.sess.deleteSelection() }

// KeyEscape aborts the open gesture, if any, without emitting a mutation.
func (e *Engine) KeyEscape() { e.sess.cancel() }

// VisibleItems returns the culled render list for the current viewport.
func (e *Engine) VisibleItems() []*domain.MediaItem {
	return Cull(e.index, e.vp.VisibleRegion(e.viewW, e.viewH))
}

// Search runs the proximity-aware text search over the current item list.
func (e *Engine) Search(query string) search.Result {
	return search.Run(query, e.items, search.Options{Radius: e.cfg.ProximityRadius})
}

// Selection returns the selected ids, sorted.
func (e *Engine) Selection() []string { return e.sess.selectionIDs() }

// State returns the gesture session state.
func (e *Engine) State() State { return e.sess.state }

// SelectionBox returns the live rubber-band rectangle in plane coordinates
// while a box selection is open.
func (e *Engine) SelectionBox() (vector.Rect, bool) { return e.sess.boxRect() }

// Viewport exposes the pan/zoom state for rendering.
func (e *Engine) Viewport() *Viewport { return e.vp }

// LiveBounds returns the item's bounding box with any in-flight drag delta
// applied, so dragged items can be rendered at their provisional position
// before the move is finalized.
func (e *Engine) LiveBounds(it *domain.MediaItem) vector.Rect {
	b := it.Bounds()
	if e.sess.dragging(it.ID) {
		b.X += e.sess.dragDelta.X
		b.Y += e.sess.dragDelta.Y
	}
	return b
}

func (e *Engine) itemByID(id string) *domain.MediaItem {
	if id == "" {
		return nil
	}
	return e.byID[id]
}

// applyMove commits a finished drag: each item shifts by the shared delta
// from its pre-drag origin, gets locked against automatic layout, and is
// reindexed. Updates are emitted in item-list order, as one event.
func (e *Engine) applyMove(origins map[string]vector.Pt, delta vector.Pt, single bool) {
	updates := make([]domain.PositionUpdate, 0, len(origins))
	for _, it := range e.items {
		origin, ok := origins[it.ID]
		if !ok {
			continue
		}
		it.X = origin.X + delta.X
		it.Y = origin.Y + delta.Y
		it.PositionLocked = true
		e.index.Insert(it)
		updates = append(updates, domain.PositionUpdate{ID: it.ID, X: it.X, Y: it.Y})
	}
	if len(updates) == 0 {
		return
	}
	e.logg.Debug("move finalized",
		slog.Int("count", len(updates)),
		slog.Float64("dx", delta.X), slog.Float64("dy", delta.Y))
	if single && len(updates) == 1 {
		if e.cb.OnPositionChange != nil {
			e.cb.OnPositionChange(updates[0])
		}
		return
	}
	if e.cb.OnBatchPositionChange != nil {
		e.cb.OnBatchPositionChange(updates)
	}
}

func (e *Engine) emitDelete(ids []string) {
	e.logg.Debug("delete requested", slog.Int("count", len(ids)))
	if e.cb.OnBatchDelete != nil {
		e.cb.OnBatchDelete(ids)
	}
}

func (e *Engine) emitSelection() {
	if e.cb.OnSelectionChange != nil {
		e.cb.OnSelectionChange(e.sess.selectionIDs())
	}
}

func (e *Engine) emitActivate(id string) {
	if e.cb.OnActivate != nil {
		e.cb.OnActivate(id)
	}
}
