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
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"overlaykit/internal/config"
	applog "overlaykit/internal/log"
	"overlaykit/internal/overlay"
	"overlaykit/internal/render"
)

// Service renders the current Store state for each export call. Nothing is
// cached between calls.
type Service struct {
	Store      *overlay.Store
	Compositor *render.Compositor
	Clipboard  Clipboard
	Config     config.AppConfig
}

// NewService wires a Service; a nil clipboard means SystemClipboard.
func NewService(store *overlay.Store, comp *render.Compositor, clip Clipboard, cfg config.AppConfig) *Service {
	if clip == nil {
		clip = SystemClipboard{}
	}
	return &Service{Store: store, Compositor: comp, Clipboard: clip, Config: cfg}
}

// Export targets attached to log records of each Service call.
const (
	TargetFile          = "file"
	TargetClipboardPNG  = "clipboard-image"
	TargetClipboardText = "clipboard-text"
	TargetShareLink     = "share-link"
)

// withTarget attaches the export target and format to ctx so every record
// logged for the call carries them.
func withTarget(ctx context.Context, target string, f Format) context.Context {
	return applog.WithAttrs(ctx, slog.String("target", target), slog.String("format", string(f)))
}

func (s *Service) render(ctx context.Context) (*image.RGBA, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	snap := s.Store.Snapshot()
	start := time.Now()
	img, err := s.Compositor.RenderSnapshot(snap)
	l := applog.WithOperation(applog.WithComponent("export"), "render")
	if err != nil {
		l.ErrorContext(ctx, "render failed", slog.Any("err", err))
		return nil, "", err
	}
	name := ""
	if snap.Image != nil {
		name = snap.Image.Filename()
	}
	l.DebugContext(ctx, "rendered",
		slog.Int("layers", len(snap.Layers)),
		slog.Int("w", img.Bounds().Dx()),
		slog.Int("h", img.Bounds().Dy()),
		slog.Duration("took", time.Since(start)))
	return img, name, nil
}

// Download renders, encodes and writes the result into dir (the configured
// out_dir when empty). It returns the written path.
func (s *Service) Download(ctx context.Context, dir string, f Format, quality int) (string, error) {
	f, err := s.format(f)
	if err != nil {
		return "", err
	}
	ctx = withTarget(ctx, TargetFile, f)
	img, name, err := s.render(ctx)
	if err != nil {
		return "", err
	}
	if quality <= 0 {
		quality = s.Config.Export.Quality
	}
	if dir == "" {
		dir = s.Config.Export.OutDir
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, f, quality); err != nil {
		return "", fmt.Errorf("encode %s: %w", f, err)
	}
	path := filepath.Join(dir, Filename(name, f))
	if err := WriteFile(ctx, path, buf.Bytes()); err != nil {
		return "", err
	}
	applog.WithComponent("export").InfoContext(ctx, "image saved",
		slog.String("path", path), slog.Int("bytes", buf.Len()))
	return path, nil
}

// CopyImage places the PNG-encoded result on the clipboard.
func (s *Service) CopyImage(ctx context.Context) error {
	ctx = withTarget(ctx, TargetClipboardPNG, FormatPNG)
	img, _, err := s.render(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, FormatPNG, 0); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	if err := s.Clipboard.WritePNG(ctx, buf.Bytes()); err != nil {
		applog.WithComponent("export").WarnContext(ctx, "clipboard image write failed", slog.Any("err", err))
		return err
	}
	return nil
}

// CopyBase64 places a data URI of the result on the clipboard and returns it.
func (s *Service) CopyBase64(ctx context.Context, f Format, quality int) (string, error) {
	f, err := s.format(f)
	if err != nil {
		return "", err
	}
	ctx = withTarget(ctx, TargetClipboardText, f)
	img, _, err := s.render(ctx)
	if err != nil {
		return "", err
	}
	if quality <= 0 {
		quality = s.Config.Export.Quality
	}
	uri, err := DataURI(img, f, quality)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", f, err)
	}
	if err := s.Clipboard.WriteText(ctx, uri); err != nil {
		applog.WithComponent("export").WarnContext(ctx, "clipboard text write failed", slog.Any("err", err))
		return "", err
	}
	return uri, nil
}

// ShareLink builds a share URL from the configured base URL, parameter,
// quality and length ceiling.
func (s *Service) ShareLink(ctx context.Context) (string, error) {
	ctx = withTarget(ctx, TargetShareLink, FormatJPEG)
	img, _, err := s.render(ctx)
	if err != nil {
		return "", err
	}
	link, err := ShareLink(img, s.shareOptions())
	if err != nil {
		applog.WithComponent("export").WarnContext(ctx, "share link not created", slog.Any("err", err))
		return "", err
	}
	return link, nil
}

// format falls back to the configured export format when f is empty.
func (s *Service) format(f Format) (Format, error) {
	if f != "" {
		return f, nil
	}
	return ParseFormat(s.Config.Export.Format)
}

func (s *Service) shareOptions() ShareOptions {
	sc := s.Config.Share
	opt := ShareOptions{BaseURL: sc.BaseURL, Param: sc.Param, MaxLength: sc.MaxLength}
	if sc.Quality > 0 {
		opt.Quality = sc.JPEGQuality()
	}
	return opt
}
