/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"golang.org/x/image/draw"

	"overlaykit/internal/overlay"
	"overlaykit/internal/textlayout"
)

var testCompositor = New(textlayout.OTProvider{Lib: textlayout.NewDefaultLibrary()})

func solid(w, h int, c color.Color) *overlay.ImageHandle {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return overlay.NewImageHandle(img, "solid.png")
}

func layer(edit func(*overlay.TextLayer)) overlay.TextLayer {
	l := overlay.Defaults()
	l.FontFamily = "Go"
	edit(&l)
	l.Normalize()
	return l
}

// inkBounds returns the bounds of pixels that differ from bg.
func inkBounds(img *image.RGBA, bg color.RGBA) image.Rectangle {
	var r image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) != bg {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

func TestRenderUnavailable(t *testing.T) {
	c := New(textlayout.BasicProvider{})
	if _, err := c.Render(nil, nil); !errors.Is(err, ErrRenderUnavailable) {
		t.Fatalf("nil image: expected ErrRenderUnavailable, got %v", err)
	}
	h := solid(10, 10, color.Black)
	h.Release()
	if _, err := c.Render(h, nil); !errors.Is(err, ErrRenderUnavailable) {
		t.Fatalf("released image: expected ErrRenderUnavailable, got %v", err)
	}
	small := New(textlayout.BasicProvider{}, WithMaxPixels(50))
	img, err := small.Render(solid(10, 10, color.Black), nil)
	if !errors.Is(err, ErrRenderUnavailable) || img != nil {
		t.Fatalf("oversized surface: expected ErrRenderUnavailable and no image, got %v", err)
	}
}

func TestRenderWithoutLayersCopiesImage(t *testing.T) {
	bg := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	out, err := testCompositor.Render(solid(40, 30, bg), nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Bounds() != image.Rect(0, 0, 40, 30) {
		t.Fatalf("surface must match the natural size, got %v", out.Bounds())
	}
	if got := out.RGBAAt(39, 29); got != bg {
		t.Fatalf("pixel = %v, want %v", got, bg)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	h := solid(400, 300, color.RGBA{R: 40, G: 80, B: 120, A: 255})
	layers := []overlay.TextLayer{
		layer(func(l *overlay.TextLayer) {
			l.Text = "Hello\nWorld"
			l.FontSize = 90
			l.Rotation = 17
			l.ShadowEnabled = true
			l.Opacity = 0.8
			l.TextAlign = overlay.AlignCenter
		}),
		layer(func(l *overlay.TextLayer) { l.Text = "second"; l.X, l.Y = 10, 80; l.FontWeight = 700 }),
	}
	a, err := testCompositor.Render(h, layers)
	if err != nil {
		t.Fatal(err)
	}
	b, err := testCompositor.Render(h, layers)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatalf("two renders of the same input differ")
	}
	bg := color.RGBA{R: 40, G: 80, B: 120, A: 255}
	if inkBounds(a, bg).Empty() {
		t.Fatalf("expected some text to be painted")
	}
}

func TestPainterOrderLaterLayerWins(t *testing.T) {
	h := solid(1000, 500, color.Black)
	red := layer(func(l *overlay.TextLayer) { l.Text = "H"; l.FontSize = 300; l.X, l.Y = 20, 10; l.Color = "#ff0000" })
	blue := red
	blue.Color = "#0000ff"

	alone, err := testCompositor.Render(h, []overlay.TextLayer{red})
	if err != nil {
		t.Fatal(err)
	}
	var px image.Point
	found := false
	b := alone.Bounds()
	for y := b.Min.Y; y < b.Max.Y && !found; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if alone.RGBAAt(x, y) == (color.RGBA{R: 255, A: 255}) {
				px, found = image.Pt(x, y), true
				break
			}
		}
	}
	if !found {
		t.Fatalf("no fully covered pixel found")
	}
	both, err := testCompositor.Render(h, []overlay.TextLayer{red, blue})
	if err != nil {
		t.Fatal(err)
	}
	if got := both.RGBAAt(px.X, px.Y); got != (color.RGBA{B: 255, A: 255}) {
		t.Fatalf("overlap pixel = %v, want opaque blue", got)
	}
}

func TestReferenceScaleInvariance(t *testing.T) {
	l := layer(func(l *overlay.TextLayer) { l.Text = "Hg"; l.FontSize = 100; l.X, l.Y = 10, 20 })
	small, err := testCompositor.Render(solid(1000, 500, color.Black), []overlay.TextLayer{l})
	if err != nil {
		t.Fatal(err)
	}
	large, err := testCompositor.Render(solid(2000, 1000, color.Black), []overlay.TextLayer{l})
	if err != nil {
		t.Fatal(err)
	}
	bg := color.RGBA{A: 255}
	s, g := inkBounds(small, bg), inkBounds(large, bg)
	frac := func(v, total int) float64 { return float64(v) / float64(total) }
	checks := []struct {
		name string
		a, b float64
	}{
		{"height", frac(s.Dy(), 500), frac(g.Dy(), 1000)},
		{"width", frac(s.Dx(), 1000), frac(g.Dx(), 2000)},
		{"left", frac(s.Min.X, 1000), frac(g.Min.X, 2000)},
		{"top", frac(s.Min.Y, 500), frac(g.Min.Y, 1000)},
	}
	for _, c := range checks {
		if math.Abs(c.a-c.b) > 0.006 {
			t.Fatalf("%s fraction differs: %.4f vs %.4f", c.name, c.a, c.b)
		}
	}
}

func TestOpacityScalesFill(t *testing.T) {
	l := layer(func(l *overlay.TextLayer) { l.Text = "H"; l.FontSize = 300; l.X, l.Y = 10, 10; l.Opacity = 0.5 })
	out, err := testCompositor.Render(solid(1000, 500, color.Black), []overlay.TextLayer{l})
	if err != nil {
		t.Fatal(err)
	}
	var maxR uint8
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] > maxR {
			maxR = out.Pix[i]
		}
	}
	if maxR < 126 || maxR > 129 {
		t.Fatalf("half-opaque white over black should peak near 128, got %d", maxR)
	}
}

func TestShadowPaintsOffsetCopy(t *testing.T) {
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	base := layer(func(l *overlay.TextLayer) { l.Text = "I"; l.FontSize = 200; l.X, l.Y = 20, 10 })
	shadowed := base
	shadowed.ShadowEnabled = true
	shadowed.ShadowBlur = 0
	shadowed.ShadowOffsetX, shadowed.ShadowOffsetY = 30, 30

	dark := func(img *image.RGBA) image.Rectangle {
		var r image.Rectangle
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if img.RGBAAt(x, y).R < 100 {
					r = r.Union(image.Rect(x, y, x+1, y+1))
				}
			}
		}
		return r
	}

	plain, _ := testCompositor.Render(solid(1000, 1000, gray), []overlay.TextLayer{base})
	if !dark(plain).Empty() {
		t.Fatalf("no shadow expected when disabled")
	}
	withShadow, err := testCompositor.Render(solid(1000, 1000, gray), []overlay.TextLayer{shadowed})
	if err != nil {
		t.Fatal(err)
	}
	text := inkBounds(plain, gray)
	sh := dark(withShadow)
	if sh.Empty() {
		t.Fatalf("expected shadow pixels")
	}
	// 30 reference units on a 1000px surface are 30px.
	if d := sh.Max.X - text.Max.X; d < 28 || d > 32 {
		t.Fatalf("shadow x offset %d, want ~30", d)
	}
	if d := sh.Max.Y - text.Max.Y; d < 28 || d > 32 {
		t.Fatalf("shadow y offset %d, want ~30", d)
	}

	shadowed.ShadowBlur = 20
	blurred, err := testCompositor.Render(solid(1000, 1000, gray), []overlay.TextLayer{shadowed})
	if err != nil {
		t.Fatal(err)
	}
	if b := inkBounds(blurred, gray); b.Dx() <= inkBounds(withShadow, gray).Dx() {
		t.Fatalf("blur should spread the shadow")
	}
}

func TestRotationTurnsClockwise(t *testing.T) {
	bg := color.RGBA{A: 255}
	flat := layer(func(l *overlay.TextLayer) { l.Text = "IIIIIIIIII"; l.FontSize = 60; l.X, l.Y = 50, 50 })
	upright, _ := testCompositor.Render(solid(1000, 1000, color.Black), []overlay.TextLayer{flat})
	ub := inkBounds(upright, bg)
	if ub.Dx() <= ub.Dy() {
		t.Fatalf("unrotated row of I's should be wide: %v", ub)
	}
	flat.Rotation = 90
	rotated, err := testCompositor.Render(solid(1000, 1000, color.Black), []overlay.TextLayer{flat})
	if err != nil {
		t.Fatal(err)
	}
	rb := inkBounds(rotated, bg)
	if rb.Dy() <= rb.Dx() {
		t.Fatalf("90 degree rotation should make the text tall: %v", rb)
	}
	// Clockwise about the anchor (500,500): the text runs downward and sits left of the anchor.
	if rb.Min.Y < 495 || rb.Max.X > 505 {
		t.Fatalf("rotated text misplaced: %v", rb)
	}
}

func TestAlignmentAroundAnchor(t *testing.T) {
	bg := color.RGBA{A: 255}
	l := layer(func(l *overlay.TextLayer) { l.Text = "MMMM"; l.FontSize = 80; l.X, l.Y = 50, 10; l.TextAlign = overlay.AlignRight })
	out, _ := testCompositor.Render(solid(1000, 500, color.Black), []overlay.TextLayer{l})
	if b := inkBounds(out, bg); b.Max.X > 502 || b.Max.X < 480 {
		t.Fatalf("right aligned text should end at the anchor: %v", b)
	}
	l.TextAlign = overlay.AlignCenter
	out, _ = testCompositor.Render(solid(1000, 500, color.Black), []overlay.TextLayer{l})
	b := inkBounds(out, bg)
	if mid := (b.Min.X + b.Max.X) / 2; mid < 490 || mid > 510 {
		t.Fatalf("centered text should straddle the anchor: %v", b)
	}
}

func TestMultilineAdvancesByLineHeight(t *testing.T) {
	bg := color.RGBA{A: 255}
	one := layer(func(l *overlay.TextLayer) { l.Text = "H"; l.FontSize = 100; l.X, l.Y = 10, 0 })
	two := one
	two.Text = "H\nH"
	a, _ := testCompositor.Render(solid(1000, 1000, color.Black), []overlay.TextLayer{one})
	b, _ := testCompositor.Render(solid(1000, 1000, color.Black), []overlay.TextLayer{two})
	// second line starts 100*1.2 = 120px below the first
	if d := inkBounds(b, bg).Max.Y - inkBounds(a, bg).Max.Y; d < 118 || d > 122 {
		t.Fatalf("line advance %d, want ~120", d)
	}
}

func TestEmptyAndInvisibleLayersPaintNothing(t *testing.T) {
	bg := color.RGBA{A: 255}
	layers := []overlay.TextLayer{
		layer(func(l *overlay.TextLayer) { l.Text = "" }),
		layer(func(l *overlay.TextLayer) { l.Text = "x"; l.Opacity = 0 }),
		layer(func(l *overlay.TextLayer) { l.Text = "x"; l.FontSize = 0 }),
	}
	out, err := testCompositor.Render(solid(200, 200, color.Black), layers)
	if err != nil {
		t.Fatal(err)
	}
	if !inkBounds(out, bg).Empty() {
		t.Fatalf("nothing should be painted")
	}
}

func TestRenderStoreUsesSnapshot(t *testing.T) {
	s := overlay.NewStore(nil)
	s.SetImage(solid(100, 50, color.Black))
	s.AddLayer(func(l *overlay.TextLayer) { l.FontFamily = "Go" })
	out, err := testCompositor.RenderStore(s)
	if err != nil {
		t.Fatal(err)
	}
	if out.Bounds().Dx() != 100 || inkBounds(out, color.RGBA{A: 255}).Empty() {
		t.Fatalf("store render should paint the layer on a 100px surface")
	}
}
