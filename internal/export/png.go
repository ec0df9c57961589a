/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"mediacanvas/internal/domain"
	"mediacanvas/internal/vector"
)

// RegionPNG renders every item overlapping region into a raster image at
// outPath. Pixel size is the scaled region size.
func RegionPNG(items []*domain.MediaItem, region vector.Rect, outPath string, opt Options) error {
	if region.W <= 0 || region.H <= 0 {
		return fmt.Errorf("region must have positive size, got %.1fx%.1f", region.W, region.H)
	}
	opt = opt.withDefaults()
	pixW := int(math.Round(region.W * opt.Scale))
	pixH := int(math.Round(region.H * opt.Scale))
	if pixW < 1 || pixH < 1 {
		return fmt.Errorf("scaled region %dx%d is smaller than one pixel", pixW, pixH)
	}

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: toRGBA(opt.Background)}, image.Point{}, draw.Src)

	fill := toRGBA(opt.ItemFill)
	stroke := toRGBA(opt.ItemStroke)
	for _, it := range sortedCopy(regionItems(items, region)) {
		b := it.Bounds()
		x0 := int(math.Round((b.X - region.X) * opt.Scale))
		y0 := int(math.Round((b.Y - region.Y) * opt.Scale))
		x1 := int(math.Round((b.MaxX() - region.X) * opt.Scale))
		y1 := int(math.Round((b.MaxY() - region.Y) * opt.Scale))
		fillRect(img, x0, y0, x1-1, y1-1, fill)
		strokeRect(img, x0, y0, x1-1, y1-1, stroke)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

func toRGBA(c Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of
// endpoints, clipped to the image.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		setClipped(img, x, y0, col)
		setClipped(img, x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		setClipped(img, x0, y, col)
		setClipped(img, x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			setClipped(img, x, y, col)
		}
	}
}

func setClipped(img *image.RGBA, x, y int, col color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, col)
	}
}
