/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"

	// decoders beyond the ones imaging registers
	_ "golang.org/x/image/webp"
)

// ImageHandle is a decoded bitmap with its natural size and originating filename.
type ImageHandle struct {
	mu       sync.RWMutex
	img      image.Image
	width    int
	height   int
	filename string
}

// NewImageHandle wraps an already decoded image.
func NewImageHandle(img image.Image, filename string) *ImageHandle {
	h := &ImageHandle{img: img, filename: filename}
	if img != nil {
		b := img.Bounds()
		h.width, h.height = b.Dx(), b.Dy()
	}
	return h
}

// DecodeImage reads an encoded image (PNG, JPEG, GIF, BMP, TIFF or WebP).
// JPEG EXIF orientation is applied so the natural size matches what a viewer shows.
func DecodeImage(r io.Reader, filename string) (*ImageHandle, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image %q: %w", filename, err)
	}
	return NewImageHandle(img, filename), nil
}

// OpenImage decodes the image file at path, keeping its base name as filename.
func OpenImage(path string) (*ImageHandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return DecodeImage(f, filepath.Base(path))
}

// ErrNotDecoded is returned when pixels are requested from an empty or released handle.
var ErrNotDecoded = errors.New("image not decoded")

// Image returns the bitmap or ErrNotDecoded.
func (h *ImageHandle) Image() (image.Image, error) {
	if h == nil {
		return nil, ErrNotDecoded
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.img == nil || h.width <= 0 || h.height <= 0 {
		return nil, ErrNotDecoded
	}
	return h.img, nil
}

// Decoded reports whether the handle still holds pixels with a known size.
func (h *ImageHandle) Decoded() bool {
	_, err := h.Image()
	return err == nil
}

// Size returns the natural width and height in pixels (0,0 if unknown).
func (h *ImageHandle) Size() (int, int) {
	if h == nil {
		return 0, 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.width, h.height
}

// Filename returns the originating filename, possibly empty.
func (h *ImageHandle) Filename() string {
	if h == nil {
		return ""
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.filename
}

// Release drops the bitmap. The size and filename stay readable.
func (h *ImageHandle) Release() {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.img = nil
	h.mu.Unlock()
}
