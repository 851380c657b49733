/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render bakes text layers onto their image at the image's natural
// resolution. Output depends only on the image, the layer list and the font
// library, so repeated renders are pixel-identical.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"overlaykit/internal/geom"
	applog "overlaykit/internal/log"
	"overlaykit/internal/overlay"
	"overlaykit/internal/textlayout"
)

// ErrRenderUnavailable is returned when there is no decoded image or the
// output surface cannot be allocated. No partial surface is produced.
var ErrRenderUnavailable = errors.New("render unavailable")

// DefaultMaxPixels bounds the output surface (100 megapixels).
const DefaultMaxPixels = 100_000_000

var (
	white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black = color.NRGBA{A: 0xff}
)

// Compositor paints layers over an image. It holds no per-render state and
// may be shared between goroutines when its Provider is.
type Compositor struct {
	fonts     textlayout.Provider
	maxPixels int
	log       *slog.Logger
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithMaxPixels caps the surface area; larger images fail with ErrRenderUnavailable.
func WithMaxPixels(n int) Option {
	return func(c *Compositor) {
		if n > 0 {
			c.maxPixels = n
		}
	}
}

// New returns a compositor resolving fonts through fonts. A nil provider
// uses the embedded Go fonts.
func New(fonts textlayout.Provider, opts ...Option) *Compositor {
	if fonts == nil {
		fonts = textlayout.OTProvider{Lib: textlayout.NewDefaultLibrary()}
	}
	c := &Compositor{fonts: fonts, maxPixels: DefaultMaxPixels, log: applog.WithComponent("render")}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RenderStore renders a consistent snapshot of s.
func (c *Compositor) RenderStore(s *overlay.Store) (*image.RGBA, error) {
	return c.RenderSnapshot(s.Snapshot())
}

// RenderSnapshot renders a store snapshot.
func (c *Compositor) RenderSnapshot(s overlay.Snapshot) (*image.RGBA, error) {
	return c.Render(s.Image, s.Layers)
}

// Render draws img at its natural size and paints layers over it in order.
func (c *Compositor) Render(img *overlay.ImageHandle, layers []overlay.TextLayer) (*image.RGBA, error) {
	start := time.Now()
	src, err := img.Image()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderUnavailable, err)
	}
	w, h := img.Size()
	if int64(w)*int64(h) > int64(c.maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrRenderUnavailable, w, h, c.maxPixels)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)

	scale := geom.ReferenceScale(float64(w))
	for i := range layers {
		c.paintLayer(dst, layers[i], scale)
	}
	c.log.Debug("rendered",
		slog.Int("w", w), slog.Int("h", h),
		slog.Int("layers", len(layers)),
		slog.Duration("took", time.Since(start)))
	return dst, nil
}

func (c *Compositor) paintLayer(dst *image.RGBA, l overlay.TextLayer, scale float64) {
	size := l.FontSize * scale
	if l.Text == "" || size <= 0 || l.Opacity <= 0 {
		return
	}
	b := dst.Bounds()
	ax, ay, ok := geom.PercentToPixels(l.X, l.Y, float64(b.Dx()), float64(b.Dy()))
	if !ok {
		return
	}
	face, m := c.fonts.Resolve(textlayout.FontSpec{Family: l.FontFamily, SizePx: size, Weight: l.FontWeight})
	defer func() { _ = face.Close() }()
	block := textlayout.LayoutLines(face, m, l.Lines(), size*overlay.LineHeightFactor, l.TextAlign)
	if block.Bounds.W <= 0 || block.Bounds.H <= 0 {
		return
	}

	placement := geom.Translate(ax, ay).Mul(geom.Rotate(geom.Deg2Rad(l.Rotation)))
	mask := rasterize(face, block, placement)

	if l.ShadowEnabled {
		sc := withOpacity(colorOr(l.ShadowColor, black), l.Opacity)
		paintShadow(dst, mask, sc, l.ShadowBlur*scale/2, l.ShadowOffsetX*scale, l.ShadowOffsetY*scale)
	}
	fill := withOpacity(colorOr(l.Color, white), l.Opacity)
	draw.DrawMask(dst, mask.Bounds(), image.NewUniform(fill), image.Point{}, mask, mask.Bounds().Min, draw.Over)
}

// rasterize renders the block's coverage into an alpha mask in device space.
// The mask covers the block's ink box, so overhanging glyphs are kept.
// Pure translations draw glyphs in place; rotations draw into an upright
// local mask that is resampled through the placement transform.
func rasterize(face font.Face, block textlayout.Block, placement geom.Affine2D) *image.Alpha {
	if placement.IsTranslation() {
		r := outset(geom.TransformedBounds(placement, block.Ink))
		mask := image.NewAlpha(r)
		drawLines(mask, face, block, placement.E, placement.F)
		return mask
	}
	local := image.NewAlpha(outset(block.Ink))
	drawLines(local, face, block, 0, 0)

	dev := image.NewAlpha(outset(geom.TransformedBounds(placement, block.Ink)))
	s2d := f64.Aff3{placement.A, placement.C, placement.E, placement.B, placement.D, placement.F}
	draw.BiLinear.Transform(dev, s2d, local, local.Bounds(), draw.Src, nil)
	return dev
}

func drawLines(dst *image.Alpha, face font.Face, block textlayout.Block, ox, oy float64) {
	d := &font.Drawer{Dst: dst, Src: image.Opaque, Face: face}
	for _, ln := range block.Lines {
		if ln.Text == "" {
			continue
		}
		d.Dot = fixed.Point26_6{X: toFixed(ox + ln.X), Y: toFixed(oy + ln.Baseline)}
		d.DrawString(ln.Text)
	}
}

// outset returns the integer rectangle covering r plus a one pixel margin for
// antialiased edges.
func outset(r geom.Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X))-1, int(math.Floor(r.Y))-1,
		int(math.Ceil(r.X+r.W))+1, int(math.Ceil(r.Y+r.H))+1,
	)
}

func toFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }
