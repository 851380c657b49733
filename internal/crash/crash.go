/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the CLI into a report file and a layer
// autosave instead of a bare stack dump.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"overlaykit/internal/layerio"
	applog "overlaykit/internal/log"
	"overlaykit/internal/overlay"
	"overlaykit/internal/version"
)

// exitFn is swapped in tests.
var exitFn = os.Exit

// Recover captures a panic, logs it with the stack, writes a report into dir
// (the temp dir when empty) and autosaves the store's layers as YAML next to it.
//
// Usage: defer crash.Recover(store, dir)
func Recover(st *overlay.Store, dir string) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	if dir == "" {
		dir = os.TempDir()
	}
	reportPath, err := writeReport(dir, st, r, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	if st != nil {
		if path, err := autosave(dir, st); err != nil {
			l.Error("layer autosave failed", slog.Any("err", err))
		} else {
			l.Info("layer autosave written", slog.String("path", path))
		}
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	exitFn(1)
}

func stamp() string { return time.Now().Format("20060102-150405") }

func writeReport(dir string, st *overlay.Store, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("overlaykit-crash-%s.log", stamp()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return path, err
	}

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "overlaykit Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if st != nil {
		snap := st.Snapshot()
		_, _ = fmt.Fprintf(&buf, "Layers: %d\n", len(snap.Layers))
		if snap.Image != nil {
			w, h := snap.Image.Size()
			_, _ = fmt.Fprintf(&buf, "Image: %s (%dx%d)\n", snap.Image.Filename(), w, h)
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}

// autosave writes the current layers in the layer file format.
func autosave(dir string, st *overlay.Store) (string, error) {
	snap := st.Snapshot()
	w, h := 0, 0
	if snap.Image != nil {
		w, h = snap.Image.Size()
	}
	data, err := layerio.Export(snap.Layers, w, h)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("overlaykit-layers-%s.yaml", stamp()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
