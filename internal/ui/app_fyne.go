//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	engine "mediacanvas/internal/canvas"
	"mediacanvas/internal/config"
	"mediacanvas/internal/crash"
	"mediacanvas/internal/domain"
	applog "mediacanvas/internal/log"
	"mediacanvas/internal/storage"
	"mediacanvas/internal/telemetry"
	"mediacanvas/internal/undo"
	"mediacanvas/internal/vector"
	"mediacanvas/internal/version"
)

// Run starts the Fyne-based desktop shell: one pannable/zoomable board canvas
// plus a search pane. boardDir is the board root created by `mediacanvas init`.
func Run(boardDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	cfg, cfgPath, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	} else if cfgPath != "" {
		l.Debug("config loaded", slog.String("path", cfgPath))
	}
	telemetry.NewDefault(telemetry.FromAppConfig(cfg))

	var bh *storage.BoardHandle
	defer func() { crash.Recover(bh) }()

	bh, err = storage.Open(boardDir)
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}
	db, err := storage.InitOrOpenIndex(bh.Root)
	if err != nil {
		return fmt.Errorf("open board index: %w", err)
	}
	defer func() { _ = db.Close() }()

	fyneApp := app.NewWithID("mediacanvas")
	w := fyneApp.NewWindow("MediaCanvas — " + bh.Board.Name)
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	ctx := context.Background()

	undoMgr := undo.NewManager(undo.Config{
		MaxBytes:    16 * 1024 * 1024,
		MaxDepth:    200,
		MinInterval: 300 * time.Millisecond,
	})

	// lastPos tracks the persisted position per item so a finished move can be
	// recorded against where the item actually came from.
	lastPos := make(map[string]vector.Pt)
	itemPtrs := func() []*domain.MediaItem {
		out := make([]*domain.MediaItem, len(bh.Board.Items))
		for i := range bh.Board.Items {
			out[i] = &bh.Board.Items[i]
		}
		return out
	}
	resetLastPos := func() {
		lastPos = make(map[string]vector.Pt, len(bh.Board.Items))
		for i := range bh.Board.Items {
			it := &bh.Board.Items[i]
			lastPos[it.ID] = it.Anchor()
		}
	}
	resetLastPos()

	var board *BoardCanvas
	var eng *engine.Engine

	refreshItems := func() {
		eng.SetItems(itemPtrs())
		if board != nil {
			board.Refresh()
		}
	}
	saveBoard := func() {
		if err := storage.Save(bh); err != nil {
			l.Error("save board failed", slog.Any("err", err))
			status.SetText("Save failed: " + err.Error())
			return
		}
	}
	persistPositions := func(updates []domain.PositionUpdate) {
		if err := storage.ApplyPositionUpdates(ctx, db, updates); err != nil {
			l.Error("persist positions failed", slog.Any("err", err))
		}
		for _, u := range updates {
			lastPos[u.ID] = vector.Pt{X: u.X, Y: u.Y}
		}
		saveBoard()
	}
	recordMove := func(updates []domain.PositionUpdate) {
		before := make([]domain.PositionUpdate, len(updates))
		for i, u := range updates {
			p := lastPos[u.ID]
			before[i] = domain.PositionUpdate{ID: u.ID, X: p.X, Y: p.Y}
		}
		undoMgr.RecordMove(before, updates, time.Now())
		persistPositions(updates)
	}
	deleteByIDs := func(ids []string, record bool) {
		if len(ids) == 0 {
			return
		}
		drop := make(map[string]bool, len(ids))
		for _, id := range ids {
			drop[id] = true
		}
		var snapshots []domain.MediaItem
		kept := bh.Board.Items[:0]
		for _, it := range bh.Board.Items {
			if drop[it.ID] {
				snapshots = append(snapshots, it)
				delete(lastPos, it.ID)
				continue
			}
			kept = append(kept, it)
		}
		bh.Board.Items = kept
		if record && len(snapshots) > 0 {
			undoMgr.RecordDelete(snapshots, time.Now())
		}
		if _, err := storage.DeleteItems(ctx, db, ids); err != nil {
			l.Error("delete from index failed", slog.Any("err", err))
		}
		saveBoard()
		refreshItems()
		status.SetText(fmt.Sprintf("Deleted %d item(s)", len(snapshots)))
	}
	restoreItems := func(deleted []domain.MediaItem) {
		for _, it := range deleted {
			bh.Board.Items = append(bh.Board.Items, it)
			lastPos[it.ID] = it.Anchor()
			if err := storage.UpsertItem(ctx, db, it); err != nil {
				l.Error("restore item failed", slog.String("id", it.ID), slog.Any("err", err))
			}
		}
		saveBoard()
		refreshItems()
	}
	applyPositions := func(updates []domain.PositionUpdate) {
		byID := make(map[string]*domain.MediaItem, len(bh.Board.Items))
		for i := range bh.Board.Items {
			byID[bh.Board.Items[i].ID] = &bh.Board.Items[i]
		}
		for _, u := range updates {
			if it := byID[u.ID]; it != nil {
				it.X, it.Y = u.X, u.Y
				it.PositionLocked = true
			}
		}
		persistPositions(updates)
		refreshItems()
	}

	eng = engine.New(cfg.Canvas, engine.Callbacks{
		OnPositionChange: func(u domain.PositionUpdate) {
			telemetry.Gesture("drag", 1)
			recordMove([]domain.PositionUpdate{u})
		},
		OnBatchPositionChange: func(updates []domain.PositionUpdate) {
			telemetry.Gesture("group_drag", len(updates))
			recordMove(updates)
		},
		OnBatchDelete: func(ids []string) {
			telemetry.Gesture("delete", len(ids))
			deleteByIDs(ids, true)
		},
		OnSelectionChange: func(ids []string) {
			if len(ids) == 0 {
				status.SetText("Ready")
			} else {
				status.SetText(fmt.Sprintf("%d selected", len(ids)))
			}
			if board != nil {
				board.Refresh()
			}
		},
		OnActivate: func(id string) {
			telemetry.Gesture("click", 1)
			for i := range bh.Board.Items {
				if bh.Board.Items[i].ID == id {
					it := &bh.Board.Items[i]
					status.SetText(fmt.Sprintf("%s (%s)", itemLabel(it), it.FileType))
					return
				}
			}
		},
	})
	eng.SetItems(itemPtrs())

	board = NewBoardCanvas(eng)

	// Search pane
	resDisplay := []string{}
	resIDs := []string{}
	resultList := widget.NewList(
		func() int { return len(resDisplay) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(resDisplay) {
				o.(*widget.Label).SetText(resDisplay[i])
			}
		},
	)
	resultList.OnSelected = func(i widget.ListItemID) {
		if i < 0 || int(i) >= len(resIDs) {
			return
		}
		id := resIDs[i]
		for j := range bh.Board.Items {
			if bh.Board.Items[j].ID == id {
				eng.CenterOn(bh.Board.Items[j].Bounds().Center())
				board.Refresh()
				return
			}
		}
	}
	searchEntry := widget.NewEntry()
	searchEntry.SetPlaceHolder("Search (text, is:image, before:2024-06-01)")
	searchEntry.OnSubmitted = func(q string) {
		res := eng.Search(q)
		telemetry.Search(res.Total)
		resDisplay = resDisplay[:0]
		resIDs = resIDs[:0]
		for _, it := range res.Items {
			resDisplay = append(resDisplay, itemLabel(it))
			resIDs = append(resIDs, it.ID)
		}
		resultList.UnselectAll()
		resultList.Refresh()
		status.SetText(fmt.Sprintf("%d result(s)", res.Total))
	}
	right := container.NewBorder(
		container.NewVBox(widget.NewLabel("Search"), searchEntry, widget.NewSeparator()),
		nil, nil, nil, resultList)

	applyUndo := func() {
		c, ok := undoMgr.Undo()
		if !ok {
			status.SetText("Nothing to undo")
			return
		}
		switch c.Kind {
		case undo.KindMove:
			applyPositions(c.Before)
		case undo.KindDelete:
			restoreItems(c.Deleted)
		}
		status.SetText("Undone")
	}
	applyRedo := func() {
		c, ok := undoMgr.Redo()
		if !ok {
			status.SetText("Nothing to redo")
			return
		}
		switch c.Kind {
		case undo.KindMove:
			applyPositions(c.After)
		case undo.KindDelete:
			ids := make([]string, len(c.Deleted))
			for i, it := range c.Deleted {
				ids[i] = it.ID
			}
			deleteByIDs(ids, false)
		}
		status.SetText("Redone")
	}

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			eng.KeyDelete()
		case fyne.KeyEscape:
			eng.KeyEscape()
		default:
			return
		}
		board.Refresh()
	})
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl},
		func(fyne.Shortcut) { applyUndo() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierControl},
		func(fyne.Shortcut) { applyRedo() })

	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		saveBoard()
	})

	split := container.NewHSplit(board, right)
	split.SetOffset(0.78)
	w.SetContent(container.NewBorder(nil, status, nil, nil, split))
	w.ShowAndRun()
	return nil
}

func itemLabel(it *domain.MediaItem) string {
	if it.Name != "" {
		return it.Name
	}
	return it.ID
}

// modifiersFrom maps desktop key modifiers onto gesture modifiers: Shift arms
// the rubber band on empty canvas, Ctrl (or Cmd) toggles selection membership.
func modifiersFrom(m fyne.KeyModifier) engine.Modifiers {
	return engine.Modifiers{
		Box:    m&fyne.KeyModifierShift != 0,
		Toggle: m&(fyne.KeyModifierControl|fyne.KeyModifierSuper) != 0,
	}
}

// BoardCanvas renders the culled item rectangles for the current viewport and
// forwards pointer, wheel, and pan input to the gesture engine. All event
// handlers run on the Fyne event goroutine, matching the engine's
// single-goroutine contract.
type BoardCanvas struct {
	widget.BaseWidget

	eng *engine.Engine

	panning bool
	panLast fyne.Position
}

func NewBoardCanvas(eng *engine.Engine) *BoardCanvas {
	b := &BoardCanvas{eng: eng}
	b.ExtendBaseWidget(b)
	return b
}

// hitTest returns the id of the topmost item under the given screen point, or
// "" for bare canvas. Later items draw on top, so the culled list is walked
// back to front.
func (b *BoardCanvas) hitTest(sx, sy float64) string {
	p := b.eng.Viewport().ScreenToPlane(sx, sy)
	visible := b.eng.VisibleItems()
	for i := len(visible) - 1; i >= 0; i-- {
		if b.eng.LiveBounds(visible[i]).Contains(p) {
			return visible[i].ID
		}
	}
	return ""
}

func (b *BoardCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonTertiary {
		b.panning = true
		b.panLast = e.Position
		return
	}
	sx, sy := float64(e.Position.X), float64(e.Position.Y)
	b.eng.PointerDown(sx, sy, b.hitTest(sx, sy), modifiersFrom(e.Modifier))
	b.Refresh()
}

func (b *BoardCanvas) MouseUp(e *desktop.MouseEvent) {
	if b.panning && e.Button == desktop.MouseButtonTertiary {
		b.panning = false
		return
	}
	b.eng.PointerUp(float64(e.Position.X), float64(e.Position.Y))
	b.Refresh()
}

func (b *BoardCanvas) MouseIn(*desktop.MouseEvent) {}

func (b *BoardCanvas) MouseMoved(e *desktop.MouseEvent) {
	if b.panning {
		b.eng.PanBy(float64(e.Position.X-b.panLast.X), float64(e.Position.Y-b.panLast.Y))
		b.panLast = e.Position
		b.Refresh()
		return
	}
	b.eng.PointerMove(float64(e.Position.X), float64(e.Position.Y))
	if b.eng.State() != engine.StateIdle {
		b.Refresh()
	}
}

func (b *BoardCanvas) MouseOut() {}

// Scrolled zooms one tick per wheel notch, anchored at the pointer.
func (b *BoardCanvas) Scrolled(e *fyne.ScrollEvent) {
	b.eng.Wheel(float64(e.Position.X), float64(e.Position.Y), float64(e.Scrolled.DY))
	b.Refresh()
}

func (b *BoardCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	box := canvas.NewRectangle(color.RGBA{R: 0, G: 170, B: 255, A: 40})
	box.StrokeColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	box.StrokeWidth = 1
	box.Hide()
	return &boardCanvasRenderer{bc: b, bg: bg, box: box}
}

type boardCanvasRenderer struct {
	bc  *BoardCanvas
	bg  *canvas.Rectangle
	box *canvas.Rectangle
	// itemRects is a grow-only pool; surplus entries are hidden.
	itemRects []*canvas.Rectangle
	objects   []fyne.CanvasObject
}

func (r *boardCanvasRenderer) Destroy()                     {}
func (r *boardCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(640, 480) }
func (r *boardCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }

func (r *boardCanvasRenderer) Refresh() {
	r.Layout(r.bc.Size())
	canvas.Refresh(r.bc)
}

func (r *boardCanvasRenderer) Layout(size fyne.Size) {
	b := r.bc
	b.eng.SetViewSize(float64(size.Width), float64(size.Height))

	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	vp := b.eng.Viewport()
	visible := b.eng.VisibleItems()
	for len(r.itemRects) < len(visible) {
		rect := canvas.NewRectangle(color.RGBA{R: 225, G: 225, B: 228, A: 255})
		rect.StrokeWidth = 1
		r.itemRects = append(r.itemRects, rect)
	}
	selected := make(map[string]bool)
	for _, id := range b.eng.Selection() {
		selected[id] = true
	}
	for i, it := range visible {
		rect := r.itemRects[i]
		bb := b.eng.LiveBounds(it)
		sx, sy := vp.PlaneToScreen(vector.Pt{X: bb.X, Y: bb.Y})
		rect.Move(fyne.NewPos(float32(sx), float32(sy)))
		rect.Resize(fyne.NewSize(float32(bb.W*vp.Scale), float32(bb.H*vp.Scale)))
		if selected[it.ID] {
			rect.StrokeColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
			rect.StrokeWidth = 2
		} else {
			rect.StrokeColor = color.RGBA{R: 60, G: 60, B: 66, A: 255}
			rect.StrokeWidth = 1
		}
		rect.Show()
	}
	for i := len(visible); i < len(r.itemRects); i++ {
		r.itemRects[i].Hide()
	}

	if boxRect, ok := b.eng.SelectionBox(); ok {
		sx, sy := vp.PlaneToScreen(vector.Pt{X: boxRect.X, Y: boxRect.Y})
		r.box.Move(fyne.NewPos(float32(sx), float32(sy)))
		r.box.Resize(fyne.NewSize(float32(boxRect.W*vp.Scale), float32(boxRect.H*vp.Scale)))
		r.box.Show()
	} else {
		r.box.Hide()
	}

	r.objects = r.objects[:0]
	r.objects = append(r.objects, r.bg)
	for _, rect := range r.itemRects {
		r.objects = append(r.objects, rect)
	}
	r.objects = append(r.objects, r.box)
}
