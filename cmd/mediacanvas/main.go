/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediacanvas/internal/backend"
	"mediacanvas/internal/boardpack"
	"mediacanvas/internal/config"
	"mediacanvas/internal/crash"
	"mediacanvas/internal/domain"
	"mediacanvas/internal/export"
	applog "mediacanvas/internal/log"
	"mediacanvas/internal/search"
	"mediacanvas/internal/storage"
	"mediacanvas/internal/thumbs"
	"mediacanvas/internal/ui"
	"mediacanvas/internal/vector"
	"mediacanvas/internal/version"
)

func usage() {
	fmt.Println("MediaCanvas — spatial media board")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mediacanvas version|-v|--version           Show version")
	fmt.Println("  mediacanvas init <dir> <name>              Create a new board at <dir> with name <name>")
	fmt.Println("  mediacanvas open <dir>                     Open board at <dir> and print a summary")
	fmt.Println("  mediacanvas import <dir> <file>...         Add media files to the board")
	fmt.Println("  mediacanvas search <dir> <query>           Search the board (text, is:<type>, before:/after:<date>)")
	fmt.Println("  mediacanvas export <dir> <out.pdf|out.png> [x y w h]")
	fmt.Println("                                             Render a board region as a contact sheet")
	fmt.Println("  mediacanvas pack <dir> <out.zip>           Archive the board for sharing")
	fmt.Println("  mediacanvas unpack <dir> <archive.zip>     Extract a board archive and rebuild its index")
	fmt.Println("  mediacanvas serve                          Run the sync backend (Postgres)")
	fmt.Println("  mediacanvas ui [<dir>]                     Launch the desktop canvas (build with -tags fyne)")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var bh *storage.BoardHandle
	defer func() { crash.Recover(bh) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("MediaCanvas — spatial media board")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 4 {
				fmt.Println("init requires <dir> and <name>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("init board", slog.String("root", abs), slog.String("name", args[3]))
			h, err := storage.InitBoard(abs, domain.Board{Name: args[3]})
			if err != nil {
				fail(l, "init failed", err)
			}
			bh = h
			fmt.Println("Created board at", abs)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			h, err := storage.Open(abs)
			if err != nil {
				fail(l, "open failed", err)
			}
			bh = h
			fmt.Printf("Opened board: %s\n", h.Board.Name)
			fmt.Printf("Items: %d\n", len(h.Board.Items))
			fmt.Println("Root:", h.Root)
			return
		case "import":
			if len(args) < 4 {
				fmt.Println("import requires <dir> and at least one <file>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			h, err := storage.Open(abs)
			if err != nil {
				fail(l, "open failed", err)
			}
			bh = h
			n, err := importFiles(h, args[3:])
			if err != nil {
				fail(l, "import failed", err)
			}
			fmt.Printf("Imported %d item(s)\n", n)
			return
		case "search":
			if len(args) < 4 {
				fmt.Println("search requires <dir> and <query>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			h, err := storage.Open(abs)
			if err != nil {
				fail(l, "open failed", err)
			}
			bh = h
			runSearch(h, strings.Join(args[3:], " "))
			return
		case "export":
			if len(args) < 4 {
				fmt.Println("export requires <dir> and <out.pdf|out.png>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			h, err := storage.Open(abs)
			if err != nil {
				fail(l, "open failed", err)
			}
			bh = h
			if err := runExport(h, args[3], args[4:]); err != nil {
				fail(l, "export failed", err)
			}
			fmt.Println("Wrote", args[3])
			return
		case "pack":
			if len(args) < 4 {
				fmt.Println("pack requires <dir> and <out.zip>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			if err := boardpack.ExportArchive(abs, args[3]); err != nil {
				fail(l, "pack failed", err)
			}
			fmt.Println("Wrote", args[3])
			return
		case "unpack":
			if len(args) < 4 {
				fmt.Println("unpack requires <dir> and <archive.zip>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			n, err := boardpack.ImportArchive(abs, args[3])
			if err != nil {
				fail(l, "unpack failed", err)
			}
			h, err := storage.Open(abs)
			if err != nil {
				fail(l, "open after unpack failed", err)
			}
			bh = h
			if err := storage.RebuildIndex(context.Background(), abs, h.Board); err != nil {
				fail(l, "index rebuild failed", err)
			}
			fmt.Printf("Extracted %d file(s) into %s\n", n, abs)
			return
		case "serve":
			if err := backend.Start(); err != nil {
				fail(l, "server failed", err)
			}
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

// importFiles appends one item per readable file. New items are placed in
// free space near the existing content and stay unlocked so a later layout
// pass may move them. Image files get a cached thumbnail.
func importFiles(bh *storage.BoardHandle, paths []string) (int, error) {
	ctx := context.Background()
	db, err := storage.InitOrOpenIndex(bh.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	l := applog.WithComponent("import")

	obstacles := make([]vector.Rect, 0, len(bh.Board.Items)+len(paths))
	searchRegion := vector.R(-500, -500, 2000, 2000)
	for i := range bh.Board.Items {
		b := bh.Board.Items[i].Bounds()
		obstacles = append(obstacles, b)
		searchRegion = searchRegion.Union(b.Inset(-300, -300))
	}

	added := 0
	for _, p := range paths {
		src, _ := filepath.Abs(p)
		info, err := os.Stat(src)
		if err != nil {
			return added, fmt.Errorf("stat %s: %w", p, err)
		}
		ftype := mime.TypeByExtension(strings.ToLower(filepath.Ext(src)))
		if ftype == "" {
			ftype = "application/octet-stream"
		}
		srcW, srcH := 0, 0
		if strings.HasPrefix(ftype, "image/") {
			if f, err := os.Open(src); err == nil {
				if cfg, _, err := image.DecodeConfig(f); err == nil {
					srcW, srcH = cfg.Width, cfg.Height
				}
				_ = f.Close()
			}
		}
		dw, dh := domain.DisplaySize(srcW, srcH)
		spot, _ := vector.SuggestPlacement(searchRegion, vector.Size{W: dw, H: dh}, obstacles, vector.PlaceOptions{})
		obstacles = append(obstacles, spot)
		it := domain.MediaItem{
			ID:        uuid.NewString(),
			Name:      strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
			FileType:  ftype,
			FileSize:  info.Size(),
			FilePath:  src,
			X:         spot.X,
			Y:         spot.Y,
			Width:     dw,
			Height:    dh,
			CreatedAt: time.Now().UTC(),
		}

		bh.Board.Items = append(bh.Board.Items, it)
		if err := storage.UpsertItem(ctx, db, it); err != nil {
			return added, err
		}
		if strings.HasPrefix(ftype, "image/") {
			tw, th := thumbs.SizeFor(srcW, srcH)
			if blob, err := thumbs.Generate(src, tw, th); err != nil {
				l.Warn("thumbnail skipped", slog.String("file", src), slog.Any("err", err))
			} else if err := thumbs.Put(ctx, bh.Root, it.ID, tw, th, blob); err != nil {
				l.Warn("thumbnail cache write failed", slog.Any("err", err))
			}
		}
		added++
	}
	if err := storage.Save(bh); err != nil {
		return added, err
	}
	return added, nil
}

func runSearch(bh *storage.BoardHandle, query string) {
	cfg, _, err := config.Load()
	if err != nil {
		cfg = config.Defaults()
	}

	printItem := func(it *domain.MediaItem) {
		name := it.Name
		if name == "" {
			name = it.ID
		}
		fmt.Printf("%-36s  %-12s  (%.0f, %.0f)\n", name, it.FileType, it.X, it.Y)
	}

	// Filter-only queries go straight to the embedded index; they return the
	// filtered set with no proximity expansion, same as a text-less query on
	// the sync backend.
	text, filters := search.ParseQuery(query)
	if text == "" && (filters.HasBefore || filters.HasAfter || len(filters.MimeTypes) > 0) {
		q := storage.ItemQuery{Types: filters.MimeTypes}
		if filters.HasBefore {
			q.CreatedBefore = filters.Before
		}
		if filters.HasAfter {
			q.CreatedAfter = filters.After
		}
		found, err := storage.SearchItems(context.Background(), bh.Root, q)
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		for i := range found {
			printItem(&found[i])
		}
		fmt.Printf("%d result(s)\n", len(found))
		return
	}

	items := make([]*domain.MediaItem, len(bh.Board.Items))
	for i := range bh.Board.Items {
		items[i] = &bh.Board.Items[i]
	}
	res := search.Run(query, items, search.Options{Radius: cfg.Canvas.ProximityRadius})
	for _, it := range res.Items {
		printItem(it)
	}
	fmt.Printf("%d result(s)\n", res.Total)
}

// runExport renders the given region (or the union of all item boxes when no
// region is passed) into a PDF or PNG contact sheet chosen by extension.
func runExport(bh *storage.BoardHandle, out string, regionArgs []string) error {
	items := make([]*domain.MediaItem, len(bh.Board.Items))
	for i := range bh.Board.Items {
		items[i] = &bh.Board.Items[i]
	}

	var region vector.Rect
	switch {
	case len(regionArgs) >= 4:
		vals := make([]float64, 4)
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(regionArgs[i], 64)
			if err != nil {
				return fmt.Errorf("bad region value %q: %w", regionArgs[i], err)
			}
			vals[i] = v
		}
		region = vector.R(vals[0], vals[1], vals[2], vals[3])
	case len(items) > 0:
		region = items[0].Bounds()
		for _, it := range items[1:] {
			region = region.Union(it.Bounds())
		}
		region = region.Inset(-20, -20)
	default:
		return fmt.Errorf("board is empty and no region was given")
	}

	opt := export.Options{IncludeLabels: true}
	switch strings.ToLower(filepath.Ext(out)) {
	case ".pdf":
		return export.RegionPDF(items, region, out, opt)
	case ".png":
		return export.RegionPNG(items, region, out, opt)
	}
	return fmt.Errorf("unsupported export format %q (use .pdf or .png)", filepath.Ext(out))
}
