/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package thumbs generates and caches raster thumbnails for board items.
// Thumbnails are scaled to the item's snapped display size and stored as PNG
// blobs in the per-board index database with an LRU byte cap.
package thumbs

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"mediacanvas/internal/domain"
)

// Generate decodes the image at srcPath and scales it to w×h pixels with
// CatmullRom resampling, returning PNG bytes.
func Generate(srcPath string, w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %dx%d", w, h)
	}
	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = f.Close() }()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", srcPath, err)
	}
	return Scale(src, w, h)
}

// Scale resamples src to w×h and encodes it as PNG.
func Scale(src image.Image, w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %dx%d", w, h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// SizeFor returns the integer thumbnail size for a source image, derived from
// the aspect-ratio-snapped display size.
func SizeFor(srcW, srcH int) (w, h int) {
	dw, dh := domain.DisplaySize(srcW, srcH)
	w = int(dw)
	h = int(dh)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
