/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"math"
	"testing"
)

func TestPercentPixelsRoundTrip(t *testing.T) {
	sizes := []Size{{1000, 500}, {1, 1}, {4032, 3024}, {333, 777}}
	points := []Pt{{0, 0}, {100, 100}, {50, 50}, {12.5, 87.25}, {99.999, 0.001}}
	for _, s := range sizes {
		for _, p := range points {
			px, py, ok := PercentToPixels(p.X, p.Y, s.W, s.H)
			if !ok {
				t.Fatalf("PercentToPixels(%v, %v) not ok", p, s)
			}
			x, y, ok := PixelsToPercent(px, py, s.W, s.H)
			if !ok || math.Abs(x-p.X) > 1e-9 || math.Abs(y-p.Y) > 1e-9 {
				t.Fatalf("round trip %v on %v gave (%v,%v)", p, s, x, y)
			}
		}
	}
}

func TestPixelsToPercentClamps(t *testing.T) {
	x, y, ok := PixelsToPercent(-10, 1200, 1000, 1000)
	if !ok || x != 0 || y != 100 {
		t.Fatalf("expected clamped (0,100), got (%v,%v,%v)", x, y, ok)
	}
}

func TestZeroSizedSurfaceShortCircuits(t *testing.T) {
	if _, _, ok := PercentToPixels(50, 50, 0, 100); ok {
		t.Fatalf("zero width should not map")
	}
	if _, _, ok := PixelsToPercent(10, 10, 100, 0); ok {
		t.Fatalf("zero height should not map")
	}
	if _, _, ok := DeltaToPercent(1, 1, 0, 0); ok {
		t.Fatalf("zero surface should not map deltas")
	}
	if ReferenceScale(0) != 0 || PreviewScale(0, 1000) != 0 || PreviewScale(500, 0) != 0 || Zoom(0, 10) != 0 {
		t.Fatalf("unmeasured sizes must yield 0 scale")
	}
}

func TestScales(t *testing.T) {
	if got := ReferenceScale(2000); got != 2 {
		t.Fatalf("ReferenceScale(2000) = %v", got)
	}
	// A 4000px image shown 800px wide.
	prev := PreviewScale(800, 4000)
	if prev != 0.8 {
		t.Fatalf("PreviewScale = %v", prev)
	}
	if want := ReferenceScale(4000) * Zoom(800, 4000); math.Abs(prev-want) > 1e-12 {
		t.Fatalf("preview scale %v disagrees with export scale times zoom %v", prev, want)
	}
}

func TestDeltaToPercent(t *testing.T) {
	dx, dy, ok := DeltaToPercent(50, -25, 500, 250)
	if !ok || dx != 10 || dy != -10 {
		t.Fatalf("DeltaToPercent = (%v,%v,%v)", dx, dy, ok)
	}
}
