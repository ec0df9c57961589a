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
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"mediacanvas/internal/domain"
	"mediacanvas/internal/vector"
)

// RegionPDF renders every item overlapping region onto a single PDF page at
// outPath. The page is sized to the region (in points after scaling), so the
// output is a 1:1 contact sheet of that part of the board.
func RegionPDF(items []*domain.MediaItem, region vector.Rect, outPath string, opt Options) error {
	if region.W <= 0 || region.H <= 0 {
		return fmt.Errorf("region must have positive size, got %.1fx%.1f", region.W, region.H)
	}
	opt = opt.withDefaults()
	pageW := region.W * opt.Scale
	pageH := region.H * opt.Scale

	// Points give a 1:1 mapping from scaled plane units to PDF units.
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pageW, Ht: pageH},
		OrientationStr: "",
	})
	pdf.SetTitle("Board contact sheet", false)
	pdf.SetAuthor("MediaCanvas", false)
	// Built-in Helvetica keeps labels vector without embedding
	pdf.SetFont("Helvetica", "", 9)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: pageW, Ht: pageH})

	setFillColor(pdf, opt.Background)
	pdf.Rect(0, 0, pageW, pageH, "F")

	setDrawColor(pdf, opt.ItemStroke)
	setFillColor(pdf, opt.ItemFill)
	pdf.SetLineWidth(opt.StrokeWidth)

	for _, it := range sortedCopy(regionItems(items, region)) {
		b := it.Bounds()
		x := (b.X - region.X) * opt.Scale
		y := (b.Y - region.Y) * opt.Scale
		w := b.W * opt.Scale
		h := b.H * opt.Scale
		pdf.Rect(x, y, w, h, "FD")
		if opt.IncludeLabels {
			pad := 4.0
			pdf.SetTextColor(int(opt.ItemStroke.R), int(opt.ItemStroke.G), int(opt.ItemStroke.B))
			pdf.Text(x+pad, y+pad+9, label(it))
		}
	}

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func setDrawColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
