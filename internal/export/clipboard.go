/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnavailable is returned when the platform refuses a clipboard
// write or no clipboard tool is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Clipboard receives export payloads.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
	WritePNG(ctx context.Context, data []byte) error
}

// SystemClipboard writes text through the platform clipboard and images
// through wl-copy or xclip. Image copy is not supported on other platforms.
type SystemClipboard struct{}

func (SystemClipboard) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
	}
	return nil
}

// imageCommands lists the tools tried, in order, for PNG payloads.
var imageCommands = [][]string{
	{"wl-copy", "--type", "image/png"},
	{"xclip", "-selection", "clipboard", "-t", "image/png", "-i"},
}

func (SystemClipboard) WritePNG(ctx context.Context, data []byte) error {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return fmt.Errorf("%w: image copy not supported on %s", ErrClipboardUnavailable, runtime.GOOS)
	}
	var lastErr error
	for _, argv := range imageCommands {
		path, err := exec.LookPath(argv[0])
		if err != nil {
			continue
		}
		cmd := exec.CommandContext(ctx, path, argv[1:]...)
		cmd.Stdin = bytes.NewReader(data)
		if out, err := cmd.CombinedOutput(); err != nil {
			lastErr = fmt.Errorf("%s: %v: %s", argv[0], err, bytes.TrimSpace(out))
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("no wl-copy or xclip found")
	}
	return fmt.Errorf("%w: %v", ErrClipboardUnavailable, lastErr)
}
