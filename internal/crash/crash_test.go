/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediacanvas/internal/domain"
	"mediacanvas/internal/storage"
)

func testHandle(t *testing.T) *storage.BoardHandle {
	t.Helper()
	root := filepath.Join(t.TempDir(), "board")
	bh, err := storage.InitBoard(root, domain.Board{
		Name: "crashy",
		Items: []domain.MediaItem{
			{ID: "a", FileType: "image/png", X: 0, Y: 0, Width: 100, Height: 100},
		},
	})
	if err != nil {
		t.Fatalf("InitBoard: %v", err)
	}
	return bh
}

func TestWriteReportContent(t *testing.T) {
	bh := testHandle(t)
	path, err := writeReport(bh, "boom", []byte("goroutine 1 [running]:\nmain.main()"))
	if err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(bh.Root, storage.BackupsDirName) {
		t.Fatalf("report outside backups dir: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(data)
	for _, want := range []string{"Panic: boom", "goroutine 1", "BoardRoot:", "Version:"} {
		if !strings.Contains(s, want) {
			t.Fatalf("report missing %q:\n%s", want, s)
		}
	}
}

func TestWriteReportWithoutBoardFallsBackToTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	defer os.Remove(path)
	if filepath.Dir(path) != os.TempDir() {
		t.Fatalf("report not in temp dir: %s", path)
	}
}

func TestRecoverWritesReportAndAutosave(t *testing.T) {
	bh := testHandle(t)

	exitCode := -1
	old := exitFn
	exitFn = func(code int) { exitCode = code }
	defer func() { exitFn = old }()

	func() {
		defer Recover(bh)
		panic("kaboom")
	}()

	if exitCode != 2 {
		t.Fatalf("exit code = %d", exitCode)
	}
	ents, err := os.ReadDir(filepath.Join(bh.Root, storage.BackupsDirName))
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), "crash-") && strings.HasSuffix(e.Name(), ".log") {
			found = true
		}
	}
	if !found {
		t.Fatal("no crash report written")
	}

	db, err := storage.InitOrOpenIndex(bh.Root)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer db.Close()
	board, _, ok, err := storage.LatestSnapshot(context.Background(), db)
	if err != nil || !ok {
		t.Fatalf("autosave snapshot missing: ok=%v err=%v", ok, err)
	}
	if board.Name != "crashy" || len(board.Items) != 1 {
		t.Fatalf("snapshot content: %+v", board)
	}
}

func TestRecoverNoPanicIsNoOp(t *testing.T) {
	called := false
	old := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = old }()
	func() {
		defer Recover(nil)
	}()
	if called {
		t.Fatal("exit called without a panic")
	}
}
