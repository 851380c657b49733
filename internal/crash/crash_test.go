/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"overlaykit/internal/layerio"
	"overlaykit/internal/overlay"
	"overlaykit/internal/undo"
)

func findFile(t *testing.T, dir, prefix, suffix string) string {
	t.Helper()
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		if strings.HasPrefix(f.Name(), prefix) && strings.HasSuffix(f.Name(), suffix) {
			return filepath.Join(dir, f.Name())
		}
	}
	t.Fatalf("no %s*%s file in %s", prefix, suffix, dir)
	return ""
}

func TestWriteReportWithoutStore(t *testing.T) {
	dir := t.TempDir()
	path, err := writeReport(dir, nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "overlaykit Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") || !strings.Contains(s, "stacktrace") {
		t.Fatalf("panic content missing: %s", s)
	}
	if strings.Contains(s, "Layers:") {
		t.Fatalf("store details without a store: %s", s)
	}
}

// TestRecoverWritesReportAndAutosave checks Recover handles a panic, writes
// both files and calls the injected exitFn instead of terminating the test.
func TestRecoverWritesReportAndAutosave(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()

	st := overlay.NewStore(undo.NewManager(undo.Config{}))
	st.AddLayer(func(l *overlay.TextLayer) { l.Text = "saved text"; l.X = 10 })
	dir := t.TempDir()

	func() {
		defer Recover(st, dir)
		panic("boom")
	}()

	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	b, err := os.ReadFile(findFile(t, dir, "overlaykit-crash-", ".log"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) || !bytes.Contains(b, []byte("Layers: 1")) {
		t.Fatalf("report incomplete: %s", b)
	}

	data, err := os.ReadFile(findFile(t, dir, "overlaykit-layers-", ".yaml"))
	if err != nil {
		t.Fatalf("read autosave: %v", err)
	}
	layers, err := layerio.Import(data, 0, 0)
	if err != nil {
		t.Fatalf("autosave is not a valid layer file: %v", err)
	}
	if len(layers) != 1 || layers[0].Text != "saved text" || layers[0].X != 10 {
		t.Fatalf("autosave content wrong: %+v", layers)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()

	dir := t.TempDir()
	func() {
		defer Recover(nil, dir)
	}()
	if called {
		t.Fatalf("exit should not be called without a panic")
	}
	if files, _ := os.ReadDir(dir); len(files) != 0 {
		t.Fatalf("no files expected: %v", files)
	}
}
