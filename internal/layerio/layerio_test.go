/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layerio

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"overlaykit/internal/overlay"
)

func TestImportDefaults(t *testing.T) {
	layers, err := Import([]byte(`- text: "Hi"`), 1000, 500)
	if err != nil {
		t.Fatalf("Import error: %v", err)
	}
	if len(layers) != 1 {
		t.Fatalf("expected 1 layer, got %d", len(layers))
	}
	want := overlay.Defaults()
	want.Text = "Hi"
	if layers[0] != want {
		t.Fatalf("defaults not applied:\n got %+v\nwant %+v", layers[0], want)
	}
}

func TestImportLegacyPixelPositions(t *testing.T) {
	layers, err := Import([]byte("- text: A\n  pos_x: 500\n  pos_y: 250\n"), 1000, 500)
	if err != nil {
		t.Fatal(err)
	}
	if layers[0].X != 50 || layers[0].Y != 50 {
		t.Fatalf("position = (%v,%v), want (50,50)", layers[0].X, layers[0].Y)
	}
	// unknown image size resolves pixel positions to the center
	layers, err = Import([]byte("- pos_x: 10\n  pos_y: 900\n"), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if layers[0].X != 50 || layers[0].Y != 50 {
		t.Fatalf("unknown size should center, got (%v,%v)", layers[0].X, layers[0].Y)
	}
}

func TestImportLegacyAndCurrentKeys(t *testing.T) {
	doc := `
- text: legacy
  size: 30
  font: Roboto
  font_weight: 700
- text: current
  fontSize: 20
  size: 99
  fontFamily: Lato
  font: ignored
  fontWeight: "300"
  x: 12.5
  y: "80"
  opacity: 0.25
  rotation: -45
  textAlign: CENTER
  shadowEnabled: "true"
  shadowColor: "#112233"
  shadowBlur: 0
  shadowOffsetX: -3
  shadowOffsetY: 5
  somethingElse: kept out
`
	layers, err := Import([]byte(doc), 800, 600)
	if err != nil {
		t.Fatal(err)
	}
	a, b := layers[0], layers[1]
	if a.FontSize != 30 || a.FontFamily != "Roboto" || a.FontWeight != 700 {
		t.Fatalf("legacy keys not mapped: %+v", a)
	}
	if b.FontSize != 20 || b.FontFamily != "Lato" || b.FontWeight != 300 {
		t.Fatalf("current keys should win: %+v", b)
	}
	if b.X != 12.5 || b.Y != 80 || b.Opacity != 0.25 || b.Rotation != -45 || b.TextAlign != overlay.AlignCenter {
		t.Fatalf("style fields wrong: %+v", b)
	}
	if !b.ShadowEnabled || b.ShadowColor != "#112233" || b.ShadowBlur != 0 || b.ShadowOffsetX != -3 || b.ShadowOffsetY != 5 {
		t.Fatalf("shadow fields wrong: %+v", b)
	}
}

func TestImportClampsAndCoerces(t *testing.T) {
	layers, err := Import([]byte(`[{text: 42, x: 150, y: -4, opacity: 3, fontSize: "abc", rotation: .nan}]`), 100, 100)
	if err != nil {
		t.Fatal(err)
	}
	l := layers[0]
	if l.Text != "42" || l.X != 100 || l.Y != 0 || l.Opacity != 1 || l.FontSize != overlay.DefaultFontSize || l.Rotation != 0 {
		t.Fatalf("unexpected coercion result: %+v", l)
	}
}

func TestImportCoercesScalarStrings(t *testing.T) {
	doc := "- {text: Hi, font: 123, color: 0, textAlign: 1, shadowColor: true, shadowEnabled: 1}\n"
	layers, err := Import([]byte(doc), 100, 100)
	if err != nil {
		t.Fatalf("scalar fields should coerce, got %v", err)
	}
	l := layers[0]
	if l.Text != "Hi" || l.FontFamily != "123" || l.Color != "0" || l.ShadowColor != "true" || !l.ShadowEnabled {
		t.Fatalf("unexpected coercion result: %+v", l)
	}
	if l.TextAlign != overlay.AlignLeft {
		t.Fatalf("unknown align should fall back to left, got %q", l.TextAlign)
	}
}

func TestImportNormalizesUnicode(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune.
	layers, err := Import([]byte("- text: \"Caf\\u0065\\u0301\"\n"), 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if layers[0].Text != "Caf\u00e9" {
		t.Fatalf("text not NFC normalized: %q", layers[0].Text)
	}
}

func TestImportFormatErrors(t *testing.T) {
	cases := map[string]string{
		"not a list":     "text: hi\n",
		"scalar":         "42",
		"empty":          "",
		"bad yaml":       "- text: [unclosed\n",
		"non-map item":   "- just a string\n",
		"wrong type":     "- text: hi\n  color: [1, 2]\n",
		"nested garbage": "- x: {a: 1}\n",
	}
	for name, doc := range cases {
		_, err := Import([]byte(doc), 100, 100)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		var ife *ImportFormatError
		if !errors.As(err, &ife) || !IsImportFormatError(err) {
			t.Fatalf("%s: expected ImportFormatError, got %T %v", name, err, err)
		}
		if ife.Msg == "" || !strings.HasPrefix(err.Error(), "invalid layer file: ") {
			t.Fatalf("%s: message missing: %q", name, err.Error())
		}
	}
}

func TestImportEmptyList(t *testing.T) {
	layers, err := Import([]byte("[]"), 100, 100)
	if err != nil || len(layers) != 0 {
		t.Fatalf("empty list should import as no layers: %v %v", layers, err)
	}
}

func TestExportOmitsDefaults(t *testing.T) {
	l := overlay.Defaults()
	l.Text = "Hello"
	l.X, l.Y = 25, 75
	out, err := Export([]overlay.TextLayer{l}, 1000, 500)
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := yaml.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	rec := got[0]
	if rec["pos_x"] != 250 || rec["pos_y"] != 375 || rec["size"] != 48 || rec["font"] != "Inter" || rec["font_weight"] != 400 || rec["color"] != "#ffffff" {
		t.Fatalf("unexpected record: %v", rec)
	}
	for _, k := range []string{"opacity", "rotation", "textAlign", "shadowEnabled", "shadowColor", "shadowBlur", "x", "y"} {
		if _, ok := rec[k]; ok {
			t.Fatalf("default field %q should be omitted: %v", k, rec)
		}
	}
	if !strings.HasPrefix(string(out), "- text: Hello\n") {
		t.Fatalf("text should lead each record: %q", out)
	}
}

func TestExportEmitsNonDefaults(t *testing.T) {
	l := overlay.Defaults()
	l.Opacity = 0.5
	l.Rotation = 10
	l.TextAlign = overlay.AlignRight
	l.ShadowEnabled = true
	l.ShadowOffsetX = 0
	out, err := Export([]overlay.TextLayer{l}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := yaml.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	rec := got[0]
	if rec["opacity"] != 0.5 || rec["rotation"] != 10 || rec["textAlign"] != "right" || rec["shadowEnabled"] != true {
		t.Fatalf("non-default fields missing: %v", rec)
	}
	if rec["shadowOffsetX"] != 0 || rec["shadowBlur"] != 4 || rec["shadowColor"] != "#000000" {
		t.Fatalf("shadow block incomplete: %v", rec)
	}
	if _, ok := rec["pos_x"]; ok || rec["x"] != 50 {
		t.Fatalf("unknown size should export percent positions: %v", rec)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	in := []overlay.TextLayer{overlay.Defaults(), overlay.Defaults()}
	in[0].Text, in[0].X, in[0].Y = "one\ntwo", 33.3, 66.6
	in[1].Text, in[1].ShadowEnabled, in[1].FontWeight = "three", true, 700
	out, err := Export(in, 1000, 1000)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Import(out, 1000, 1000)
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if math.Abs(back[i].X-in[i].X) > 0.05 || math.Abs(back[i].Y-in[i].Y) > 0.05 {
			t.Fatalf("layer %d position drifted: %+v vs %+v", i, back[i], in[i])
		}
		back[i].X, back[i].Y = in[i].X, in[i].Y
		if back[i] != in[i] {
			t.Fatalf("layer %d changed in round trip:\n got %+v\nwant %+v", i, back[i], in[i])
		}
	}
}
