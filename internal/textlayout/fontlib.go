/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// BuiltinFamily is the family of the embedded Go fonts, used when a requested
// family is not installed.
const BuiltinFamily = "Go"

// FontLibrary stores parsed OpenType fonts by family, weight and style.
// Family lookups are case-insensitive. It is safe for concurrent use.
type FontLibrary struct {
	mu       sync.RWMutex
	fonts    map[fontKey]*opentype.Font
	names    map[string]string // lower-case family -> display name
	fallback string
}

type fontKey struct {
	family string // lower-case
	weight int
	italic bool
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{fonts: make(map[fontKey]*opentype.Font), names: make(map[string]string), fallback: BuiltinFamily}
}

// NewDefaultLibrary returns a library holding the embedded Go fonts.
func NewDefaultLibrary() *FontLibrary {
	fl := NewFontLibrary()
	if err := fl.AddBuiltins(); err != nil {
		// The embedded fonts are known-good; a failure here is a build problem.
		panic(err)
	}
	return fl
}

// AddBuiltins registers the Go font family ("Go", "Go Mono", "Go Smallcaps").
func (fl *FontLibrary) AddBuiltins() error {
	builtins := []struct {
		family string
		weight int
		italic bool
		data   []byte
	}{
		{BuiltinFamily, 400, false, goregular.TTF},
		{BuiltinFamily, 400, true, goitalic.TTF},
		{BuiltinFamily, 500, false, gomedium.TTF},
		{BuiltinFamily, 500, true, gomediumitalic.TTF},
		{BuiltinFamily, 700, false, gobold.TTF},
		{BuiltinFamily, 700, true, gobolditalic.TTF},
		{"Go Mono", 400, false, gomono.TTF},
		{"Go Mono", 700, false, gomonobold.TTF},
		{"Go Smallcaps", 400, false, gosmallcaps.TTF},
	}
	for _, b := range builtins {
		f, err := opentype.Parse(b.data)
		if err != nil {
			return fmt.Errorf("parse builtin %s %d: %w", b.family, b.weight, err)
		}
		fl.add(b.family, b.weight, b.italic, f)
	}
	return nil
}

// SetFallbackFamily selects the family used when a request names an unknown one.
func (fl *FontLibrary) SetFallbackFamily(family string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if strings.TrimSpace(family) != "" {
		fl.fallback = family
	}
}

// LoadTTF loads a font file into the library under the given family/weight/italic.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", path, err)
	}
	fl.add(family, weight, italic, f)
	return nil
}

// LoadFont parses font data and registers it under the family, weight and
// style recorded in its name table. It returns the family name.
func (fl *FontLibrary) LoadFont(data []byte) (string, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return "", fmt.Errorf("parse font: %w", err)
	}
	var buf sfnt.Buffer
	family := nameOf(f, &buf, sfnt.NameIDTypographicFamily, sfnt.NameIDFamily)
	if family == "" {
		return "", fmt.Errorf("font has no family name")
	}
	sub := nameOf(f, &buf, sfnt.NameIDTypographicSubfamily, sfnt.NameIDSubfamily)
	weight, italic := parseSubfamily(sub)
	fl.add(family, weight, italic, f)
	return family, nil
}

// LoadDir registers every .ttf and .otf file below dir. Files that fail to
// parse are skipped and reported in the returned error list.
func (fl *FontLibrary) LoadDir(dir string) (int, []error) {
	var n int
	var errs []error
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".ttf", ".otf":
		default:
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if _, err := fl.LoadFont(data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		n++
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return n, errs
}

// Families lists the registered family names, sorted.
func (fl *FontLibrary) Families() []string {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	out := make([]string, 0, len(fl.names))
	for _, n := range fl.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Has reports whether family is registered.
func (fl *FontLibrary) Has(family string) bool {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	_, ok := fl.names[strings.ToLower(strings.TrimSpace(family))]
	return ok
}

func (fl *FontLibrary) add(family string, weight int, italic bool, f *opentype.Font) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
		fl.names = make(map[string]string)
	}
	lf := strings.ToLower(strings.TrimSpace(family))
	fl.fonts[fontKey{family: lf, weight: weight, italic: italic}] = f
	fl.names[lf] = strings.TrimSpace(family)
}

// find resolves spec to a font: the requested family (or the fallback family
// when unknown), then the closest weight, preferring the requested style.
func (fl *FontLibrary) find(spec FontSpec) *opentype.Font {
	if fl == nil {
		return nil
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	family := strings.ToLower(strings.TrimSpace(spec.Family))
	if _, ok := fl.names[family]; !ok {
		family = strings.ToLower(fl.fallback)
		if _, ok := fl.names[family]; !ok {
			family = ""
			for k := range fl.fonts {
				if family == "" || k.family < family {
					family = k.family
				}
			}
		}
	}
	var best *opentype.Font
	bestScore := -1
	for k, f := range fl.fonts {
		if k.family != family {
			continue
		}
		score := weightDistance(spec.Weight, k.weight)
		if k.italic != spec.Italic {
			score += 10000
		}
		if bestScore < 0 || score < bestScore {
			best, bestScore = f, score
		}
	}
	return best
}

// weightDistance ranks candidate weights for a requested weight. On ties,
// requests up to 500 prefer the lighter face and heavier requests the heavier one.
func weightDistance(want, have int) int {
	if want <= 0 {
		want = 400
	}
	d := want - have
	if d < 0 {
		d = -d
	}
	d *= 2
	if (want <= 500 && have > want) || (want > 500 && have < want) {
		d++
	}
	return d
}

func nameOf(f *opentype.Font, buf *sfnt.Buffer, ids ...sfnt.NameID) string {
	for _, id := range ids {
		if s, err := f.Name(buf, id); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// parseSubfamily derives a CSS weight and italic flag from a style name such
// as "SemiBold Italic".
func parseSubfamily(sub string) (int, bool) {
	s := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(sub, " ", ""), "-", ""))
	italic := strings.Contains(s, "italic") || strings.Contains(s, "oblique")
	weights := []struct {
		key string
		w   int
	}{
		{"extralight", 200}, {"ultralight", 200}, {"semibold", 600}, {"demibold", 600},
		{"extrabold", 800}, {"ultrabold", 800}, {"thin", 100}, {"light", 300},
		{"medium", 500}, {"bold", 700}, {"black", 900}, {"heavy", 900},
	}
	for _, c := range weights {
		if strings.Contains(s, c.key) {
			return c.w, italic
		}
	}
	return 400, italic
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another
// Provider when the library has nothing usable. Faces are created unhinted so
// glyph outlines scale proportionally with the requested pixel size.
type OTProvider struct {
	Lib      *FontLibrary
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePx <= 0 {
		spec.SizePx = 12
	}
	if p.Lib != nil {
		if f := p.Lib.find(spec); f != nil {
			// 72 dpi makes points equal to pixels.
			face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: spec.SizePx, DPI: 72, Hinting: font.HintingNone})
			if err == nil {
				return face, metricsOf(face)
			}
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
