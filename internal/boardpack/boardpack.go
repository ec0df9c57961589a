/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package boardpack archives a board directory into a single shareable .zip
// and extracts such archives back into a board root. The embedded index,
// backups and exports are rebuildable local state and stay out of the
// archive.
package boardpack

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "mediacanvas/internal/log"
	"mediacanvas/internal/storage"
)

// ManifestEntryName is the human-readable note placed at the archive root.
const ManifestEntryName = "boardpack.manifest.txt"

// skippedDirs under the board root never go into an archive.
var skippedDirs = map[string]bool{
	storage.IndexDirName:   true,
	storage.BackupsDirName: true,
	"exports":              true,
}

// ExportArchive zips the board at boardRoot (board.json, media/, thumbs/)
// into destZipPath, preserving the directory structure and adding a small
// manifest entry for quick inspection.
func ExportArchive(boardRoot, destZipPath string) error {
	l := applog.WithOperation(applog.WithComponent("boardpack"), "export").With(slog.String("board", boardRoot))
	if strings.TrimSpace(boardRoot) == "" {
		return errors.New("boardRoot is required")
	}
	if strings.TrimSpace(destZipPath) == "" {
		return errors.New("destZipPath is required")
	}
	manifestPath := filepath.Join(boardRoot, storage.ManifestFileName)
	if _, err := os.Stat(manifestPath); err != nil {
		return fmt.Errorf("not a board root (missing %s): %w", storage.ManifestFileName, err)
	}

	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return fmt.Errorf("ensure zip dir: %w", err)
	}
	_ = os.Remove(destZipPath)

	zf, err := os.Create(destZipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)
	defer func() { _ = zw.Close() }()

	note := fmt.Sprintf("MediaCanvas Board Archive\nCreated: %s\nBoard: %s\n\nContents mirror the board directory without %s/, %s/ and exports/.\n",
		time.Now().Format(time.RFC3339), boardRoot, storage.IndexDirName, storage.BackupsDirName)
	w, err := zw.Create(ManifestEntryName)
	if err != nil {
		return fmt.Errorf("add manifest: %w", err)
	}
	if _, err := w.Write([]byte(note)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	added := 0
	err = filepath.Walk(boardRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(boardRoot, path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if rel != "." && skippedDirs[rel] {
				return filepath.SkipDir
			}
			return nil
		}
		// zip entries use forward slashes
		zipName := filepath.ToSlash(rel)
		fw, err := zw.Create(zipName)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		if _, err := io.Copy(fw, f); err != nil {
			return err
		}
		added++
		return nil
	})
	if err != nil {
		l.Error("zip build failed", slog.Any("err", err))
		return fmt.Errorf("build zip: %w", err)
	}
	l.Info("board archive written", slog.Int("files", added), slog.String("zip", destZipPath))
	return nil
}

// ImportArchive extracts a board archive into destRoot. Existing files are
// never overwritten; they are skipped. Returns the count of files written.
// The caller rebuilds the embedded index afterwards.
func ImportArchive(destRoot, archivePath string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("boardpack"), "import").With(slog.String("board", destRoot))
	if strings.TrimSpace(destRoot) == "" {
		return 0, errors.New("destRoot is required")
	}
	if strings.TrimSpace(archivePath) == "" {
		return 0, errors.New("archivePath is required")
	}
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return 0, fmt.Errorf("ensure board root: %w", err)
	}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = r.Close() }()

	installed := 0
	for _, f := range r.File {
		name := f.Name
		if name == ManifestEntryName {
			continue
		}
		// reject entries escaping the destination root
		clean := filepath.Clean(filepath.FromSlash(name))
		if clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) || filepath.IsAbs(clean) {
			return installed, fmt.Errorf("unsafe archive entry %q", name)
		}
		targetPath := filepath.Join(destRoot, clean)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return installed, err
			}
			continue
		}
		if _, err := os.Stat(targetPath); err == nil {
			l.Warn("skip existing file", slog.String("path", targetPath))
			continue
		}
		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return installed, err
		}
		rc, err := f.Open()
		if err != nil {
			return installed, err
		}
		out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			_ = rc.Close()
			return installed, err
		}
		if _, err := io.Copy(out, rc); err != nil {
			_ = out.Close()
			_ = rc.Close()
			return installed, err
		}
		_ = out.Close()
		_ = rc.Close()
		installed++
	}
	l.Info("board archive extracted", slog.Int("files", installed))
	return installed, nil
}
