/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Text measurement and line placement for the compositor. All text engine
// specifics stay behind Provider so tests can run against a fixed bitmap face.

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"overlaykit/internal/geom"
	"overlaykit/internal/overlay"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name
	SizePx float64
	Weight int // 100..900
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
// It ignores the requested size.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	asc, desc := fix2f(m.Ascent), fix2f(m.Descent)
	return Metrics{Ascent: asc, Descent: desc, LineGap: fix2f(m.Height) - asc - desc}
}

func fix2f(v fixed.Int26_6) float64 { return float64(v) / 64 }

// PlacedLine is one line positioned relative to the layer anchor.
type PlacedLine struct {
	Text     string
	X        float64 // left edge of the line's advance box
	Top      float64
	Baseline float64
	Width    float64
}

// Block is a laid-out multi-line text block. Coordinates are relative to the
// anchor, which sits on the alignment edge of the first line's top.
type Block struct {
	Lines []PlacedLine
	// Bounds is the layout box built from advances and line metrics.
	Bounds geom.Rect
	// Ink covers Bounds plus any glyph pixels that reach past it, such as
	// italic overhangs or negative side bearings.
	Ink     geom.Rect
	Metrics Metrics
}

// LayoutLines places lines with a top baseline at the anchor: line i has its
// top at i*lineHeight and is shifted left by 0, half or all of its width for
// left, center and right alignment.
func LayoutLines(face font.Face, m Metrics, lines []string, lineHeight float64, align overlay.Align) Block {
	b := Block{Lines: make([]PlacedLine, 0, len(lines)), Metrics: m}
	if len(lines) == 0 {
		return b
	}
	d := &font.Drawer{Face: face}
	minX, maxX := 0.0, 0.0
	var ink geom.Rect
	hasInk := false
	for i, text := range lines {
		w := fix2f(d.MeasureString(text))
		x := 0.0
		switch align {
		case overlay.AlignCenter:
			x = -w / 2
		case overlay.AlignRight:
			x = -w
		}
		top := float64(i) * lineHeight
		b.Lines = append(b.Lines, PlacedLine{Text: text, X: x, Top: top, Baseline: top + m.Ascent, Width: w})
		if i == 0 || x < minX {
			minX = x
		}
		if i == 0 || x+w > maxX {
			maxX = x + w
		}
		if text == "" {
			continue
		}
		gb, _ := font.BoundString(face, text)
		if gb.Empty() {
			continue
		}
		r := geom.R(x+fix2f(gb.Min.X), top+m.Ascent+fix2f(gb.Min.Y), fix2f(gb.Max.X-gb.Min.X), fix2f(gb.Max.Y-gb.Min.Y))
		if hasInk {
			ink = ink.Union(r)
		} else {
			ink, hasInk = r, true
		}
	}
	last := b.Lines[len(b.Lines)-1]
	b.Bounds = geom.R(minX, 0, maxX-minX, last.Top+m.Ascent+m.Descent)
	b.Ink = b.Bounds
	if hasInk {
		b.Ink = b.Ink.Union(ink)
	}
	return b
}

// Measure returns the advance width of s and the line height of the face for spec.
func Measure(provider Provider, spec FontSpec, s string) (w, h float64) {
	if provider == nil {
		provider = BasicProvider{}
	}
	face, met := provider.Resolve(spec)
	d := &font.Drawer{Face: face}
	return fix2f(d.MeasureString(s)), met.Ascent + met.Descent
}
