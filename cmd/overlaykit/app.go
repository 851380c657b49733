/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"overlaykit/internal/config"
	"overlaykit/internal/export"
	"overlaykit/internal/geom"
	"overlaykit/internal/layerio"
	applog "overlaykit/internal/log"
	"overlaykit/internal/overlay"
	"overlaykit/internal/placement"
	"overlaykit/internal/render"
	"overlaykit/internal/textlayout"
	"overlaykit/internal/ui"
	"overlaykit/internal/undo"
)

type app struct {
	cfg    config.AppConfig
	store  *overlay.Store
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	clip   export.Clipboard
	log    *slog.Logger
}

func newApp(cfg config.AppConfig, stdin io.Reader, stdout, stderr io.Writer, clip export.Clipboard) *app {
	hist := undo.NewManager(undo.Config{
		MaxDepth:    cfg.History.MaxStates,
		MinInterval: time.Duration(cfg.History.MinIntervalMs) * time.Millisecond,
	})
	return &app{
		cfg:    cfg,
		store:  overlay.NewStore(hist),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		clip:   clip,
		log:    applog.WithComponent("cli"),
	}
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string, positional string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", usageError{msg: err.Error()}
	}
	if positional == "" {
		if fs.NArg() > 0 {
			return "", usagef("%s takes no arguments", fs.Name())
		}
		return "", nil
	}
	if fs.NArg() != 1 {
		return "", usagef("%s requires <%s>", fs.Name(), positional)
	}
	return fs.Arg(0), nil
}

func (a *app) fonts() (*textlayout.FontLibrary, textlayout.Provider) {
	lib := textlayout.NewDefaultLibrary()
	for _, dir := range a.cfg.Render.FontDirs {
		n, errs := lib.LoadDir(dir)
		for _, err := range errs {
			a.log.Warn("font not loaded", slog.String("dir", dir), slog.Any("err", err))
		}
		a.log.Debug("font dir loaded", slog.String("dir", dir), slog.Int("fonts", n))
	}
	if fam := a.cfg.Render.DefaultFamily; fam != "" {
		lib.SetFallbackFamily(fam)
	}
	return lib, textlayout.OTProvider{Lib: lib, Fallback: textlayout.BasicProvider{}}
}

func (a *app) compositor() *render.Compositor {
	_, provider := a.fonts()
	return render.New(provider, render.WithMaxPixels(a.cfg.Render.MaxPixels))
}

func (a *app) service() *export.Service {
	return export.NewService(a.store, a.compositor(), a.clip, a.cfg)
}

// load opens the image and, when layersPath is set, replaces the store's
// layers with the file's contents.
func (a *app) load(imagePath, layersPath string) error {
	h, err := overlay.OpenImage(imagePath)
	if err != nil {
		return err
	}
	a.store.SetImage(h)
	if layersPath == "" {
		return nil
	}
	w, hh := h.Size()
	return a.loadLayers(layersPath, w, hh)
}

func (a *app) loadLayers(path string, w, h int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read layers: %w", err)
	}
	layers, err := layerio.Import(data, w, h)
	if err != nil {
		return err
	}
	a.store.ReplaceLayers(layers)
	a.log.Debug("layers imported", slog.String("path", path), slog.Int("count", len(layers)))
	return nil
}

func (a *app) cmdRender(ctx context.Context, args []string) error {
	fs := a.flags("render")
	layers := fs.String("layers", "", "layer file (YAML or JSON)")
	format := fs.String("format", a.cfg.Export.Format, "png, jpeg or pdf")
	quality := fs.Int("quality", a.cfg.Export.Quality, "jpeg quality 1-100")
	out := fs.String("out", a.cfg.Export.OutDir, "output directory")
	img, err := parse(fs, args, "image")
	if err != nil {
		return err
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return usageError{msg: err.Error()}
	}
	if err := a.load(img, *layers); err != nil {
		return err
	}
	path, err := a.service().Download(ctx, *out, f, *quality)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, path)
	return nil
}

func (a *app) cmdCopy(ctx context.Context, args []string) error {
	fs := a.flags("copy")
	layers := fs.String("layers", "", "layer file (YAML or JSON)")
	b64 := fs.Bool("base64", false, "copy a base64 data URI as text instead of the image")
	format := fs.String("format", a.cfg.Export.Format, "data URI format: png or jpeg")
	quality := fs.Int("quality", a.cfg.Export.Quality, "jpeg quality 1-100")
	img, err := parse(fs, args, "image")
	if err != nil {
		return err
	}
	if err := a.load(img, *layers); err != nil {
		return err
	}
	svc := a.service()
	if !*b64 {
		if err := svc.CopyImage(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "Image copied to clipboard.")
		return nil
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return usageError{msg: err.Error()}
	}
	uri, err := svc.CopyBase64(ctx, f, *quality)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Base64 copied to clipboard (%d characters).\n", len(uri))
	return nil
}

func (a *app) cmdShare(ctx context.Context, args []string) error {
	fs := a.flags("share")
	layers := fs.String("layers", "", "layer file (YAML or JSON)")
	img, err := parse(fs, args, "image")
	if err != nil {
		return err
	}
	if err := a.load(img, *layers); err != nil {
		return err
	}
	link, err := a.service().ShareLink(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, link)
	return nil
}

func (a *app) cmdOpenLink(ctx context.Context, args []string) error {
	fs := a.flags("open-link")
	param := fs.String("param", a.cfg.Share.Param, "query parameter carrying the image")
	out := fs.String("out", a.cfg.Export.OutDir, "output directory")
	link, err := parse(fs, args, "link")
	if err != nil {
		return err
	}
	if link == "-" {
		b, err := io.ReadAll(a.stdin)
		if err != nil {
			return fmt.Errorf("read link: %w", err)
		}
		link = string(b)
	}
	h, err := export.DecodeShareLink(link, *param)
	if err != nil {
		return err
	}
	defer h.Release()
	img, err := h.Image()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := export.Encode(&buf, img, export.FormatPNG, 0); err != nil {
		return err
	}
	path := filepath.Join(*out, h.Filename()+".png")
	if err := export.WriteFile(ctx, path, buf.Bytes()); err != nil {
		return err
	}
	w, hh := h.Size()
	fmt.Fprintf(a.stdout, "%s (%dx%d)\n", path, w, hh)
	return nil
}

func (a *app) cmdLayers(ctx context.Context, args []string) error {
	fs := a.flags("layers")
	imgPath := fs.String("image", "", "image whose size resolves pixel positions")
	out := fs.String("o", "", "write the layers back in the legacy pixel form")
	file, err := parse(fs, args, "layers.yaml")
	if err != nil {
		return err
	}
	w, h := 0, 0
	if *imgPath != "" {
		ih, err := overlay.OpenImage(*imgPath)
		if err != nil {
			return err
		}
		w, h = ih.Size()
		a.store.SetImage(ih)
	}
	if err := a.loadLayers(file, w, h); err != nil {
		return err
	}
	layers := a.store.Layers()
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTEXT\tX%\tY%\tSIZE\tFONT\tWEIGHT\tALIGN")
	for _, l := range layers {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\t%g\t%s\t%d\t%s\n",
			l.ID, strconv.Quote(l.Text), l.X, l.Y, l.FontSize, l.FontFamily, l.FontWeight, l.TextAlign)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if *out == "" {
		return nil
	}
	return a.writeLayers(ctx, *out, w, h)
}

func (a *app) writeLayers(ctx context.Context, path string, w, h int) error {
	data, err := layerio.Export(a.store.Layers(), w, h)
	if err != nil {
		return err
	}
	if path == "-" {
		_, err := a.stdout.Write(data)
		return err
	}
	return export.WriteFile(ctx, path, data)
}

// cmdPlace replays a single drag gesture on a preview of the given width, the
// same path an interactive frontend takes.
func (a *app) cmdPlace(ctx context.Context, args []string) error {
	fs := a.flags("place")
	layers := fs.String("layers", "", "layer file (YAML or JSON)")
	index := fs.Int("layer", 1, "1-based layer index")
	preview := fs.Float64("preview", 500, "preview width in screen pixels")
	by := fs.String("by", "", "pointer movement dx,dy in preview pixels")
	out := fs.String("o", "-", "where to write the updated layers")
	img, err := parse(fs, args, "image")
	if err != nil {
		return err
	}
	if *layers == "" {
		return usagef("place requires -layers")
	}
	dx, dy, err := parsePair(*by)
	if err != nil {
		return usagef("-by: %v", err)
	}
	if err := a.load(img, *layers); err != nil {
		return err
	}
	all := a.store.Layers()
	if *index < 1 || *index > len(all) {
		return usagef("-layer %d out of range (1-%d)", *index, len(all))
	}
	target := all[*index-1]

	nw, nh := a.store.Image().Size()
	surface := geom.Size{W: *preview, H: *preview * float64(nh) / float64(nw)}
	px, py, ok := geom.PercentToPixels(target.X, target.Y, surface.W, surface.H)
	if !ok {
		return usagef("-preview must be positive")
	}
	ctrl := placement.New(a.store, a.cfg.Placement.SnapThreshold)
	if err := ctrl.PointerDown(target.ID, px, py, surface); err != nil {
		return err
	}
	g, err := ctrl.PointerMove(px+dx, py+dy)
	ctrl.PointerUp()
	if err != nil {
		return err
	}
	moved, _ := a.store.Layer(target.ID)
	fmt.Fprintf(a.stderr, "%s moved to %.2f%%, %.2f%% (vertical guide: %t, horizontal guide: %t)\n",
		moved.ID, moved.X, moved.Y, g.Vertical, g.Horizontal)
	return a.writeLayers(ctx, *out, nw, nh)
}

func parsePair(s string) (float64, float64, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("expected dx,dy, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func (a *app) cmdFonts(args []string) error {
	fs := a.flags("fonts")
	if _, err := parse(fs, args, ""); err != nil {
		return err
	}
	lib, _ := a.fonts()
	for _, fam := range lib.Families() {
		fmt.Fprintln(a.stdout, fam)
	}
	return nil
}

func (a *app) cmdEdit(args []string) error {
	fs := a.flags("edit")
	layers := fs.String("layers", "", "layer file, loaded at start and written by Save layers")
	img, err := parse(fs, args, "image")
	if err != nil {
		return err
	}
	if err := a.load(img, ""); err != nil {
		return err
	}
	// A missing layer file is created on the first save.
	if *layers != "" {
		if _, err := os.Stat(*layers); err == nil {
			w, h := a.store.Image().Size()
			if err := a.loadLayers(*layers, w, h); err != nil {
				return err
			}
		}
	}
	return a.runEditor(*layers)
}

func (a *app) runEditor(layersPath string) error {
	comp := a.compositor()
	return ui.Run(ui.Options{
		Store:         a.store,
		Compositor:    comp,
		Export:        export.NewService(a.store, comp, a.clip, a.cfg),
		SnapThreshold: a.cfg.Placement.SnapThreshold,
		LayersPath:    layersPath,
	})
}
