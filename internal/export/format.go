/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export turns a composited surface into files, clipboard payloads and
// share links.
package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"
)

// Format is an output encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatPDF  Format = "pdf"
)

// DefaultJPEGQuality applies when a caller passes quality <= 0.
const DefaultJPEGQuality = 92

// ParseFormat accepts png, jpg/jpeg and pdf in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png", "":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Ext is the file extension without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPDF:
		return "pdf"
	}
	return "png"
}

// MIME is the media type used in data URIs.
func (f Format) MIME() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPDF:
		return "application/pdf"
	}
	return "image/png"
}

// Filename derives "{base}-overlay.{ext}" from the source image name. An
// empty name yields "image-overlay.{ext}".
func Filename(original string, f Format) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	return base + "-overlay." + f.Ext()
}

// Encode writes img in format f. quality is only used for JPEG.
func Encode(w io.Writer, img image.Image, f Format, quality int) error {
	switch f {
	case FormatJPEG:
		if quality <= 0 {
			quality = DefaultJPEGQuality
		}
		if quality > 100 {
			quality = 100
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPDF:
		return encodePDF(w, img)
	case FormatPNG, "":
		return png.Encode(w, img)
	}
	return fmt.Errorf("unsupported export format %q", string(f))
}

// DataURI encodes img and wraps it as "data:<mime>;base64,<payload>".
func DataURI(img image.Image, f Format, quality int) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f, quality); err != nil {
		return "", err
	}
	return "data:" + f.MIME() + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
