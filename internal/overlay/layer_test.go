/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"math"
	"testing"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.Text != "Text" || d.X != 50 || d.Y != 50 || d.FontSize != 48 || d.FontFamily != "Inter" || d.FontWeight != 400 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
	if d.Color != "#ffffff" || d.Opacity != 1 || d.Rotation != 0 || d.TextAlign != AlignLeft {
		t.Fatalf("unexpected style defaults: %+v", d)
	}
	if d.ShadowEnabled || d.ShadowColor != "#000000" || d.ShadowBlur != 4 || d.ShadowOffsetX != 2 || d.ShadowOffsetY != 2 {
		t.Fatalf("unexpected shadow defaults: %+v", d)
	}
}

func TestNormalizeClamps(t *testing.T) {
	l := Defaults()
	l.X, l.Y = -3, 140
	l.Opacity = 1.7
	l.FontWeight = 1200
	l.Rotation = 270
	l.TextAlign = "justify"
	l.FontSize = math.Inf(1)
	l.ShadowBlur = -1
	l.Normalize()
	if l.X != 0 || l.Y != 100 || l.Opacity != 1 || l.FontWeight != 900 {
		t.Fatalf("ranges not clamped: %+v", l)
	}
	if l.Rotation != -90 {
		t.Fatalf("rotation = %v, want -90", l.Rotation)
	}
	if l.TextAlign != AlignLeft || l.FontSize != DefaultFontSize || l.ShadowBlur != 0 {
		t.Fatalf("unexpected normalization: %+v", l)
	}

	l.X = math.NaN()
	l.Normalize()
	if l.X != 50 {
		t.Fatalf("NaN position should reset to center, got %v", l.X)
	}
}

func TestNormalizeDegrees(t *testing.T) {
	cases := map[float64]float64{0: 0, 180: 180, -180: 180, 190: -170, -190: 170, 720: 0, 45: 45}
	for in, want := range cases {
		if got := normalizeDegrees(in); math.Abs(got-want) > 1e-9 {
			t.Fatalf("normalizeDegrees(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestLinesSplitsOnNewline(t *testing.T) {
	l := TextLayer{Text: "one\r\ntwo\nthree"}
	lines := l.Lines()
	if len(lines) != 3 || lines[0] != "one" || lines[1] != "two" || lines[2] != "three" {
		t.Fatalf("unexpected lines: %q", lines)
	}
	if got := (TextLayer{}).Lines(); len(got) != 1 || got[0] != "" {
		t.Fatalf("empty text should give one empty line: %q", got)
	}
}
