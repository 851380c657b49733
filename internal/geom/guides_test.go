/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "testing"

func TestSnapToCenterWindow(t *testing.T) {
	for _, v := range []float64{48, 48.5, 49.99, 50, 51, 52} {
		got, ok := SnapToCenter(v, 2)
		if !ok || got != 50 {
			t.Fatalf("SnapToCenter(%v) = %v,%v; want 50,true", v, got, ok)
		}
	}
	for _, v := range []float64{47.9, 52.1, 53, 0, 100} {
		got, ok := SnapToCenter(v, 2)
		if ok || got != v {
			t.Fatalf("SnapToCenter(%v) = %v,%v; want unchanged", v, got, ok)
		}
	}
}

func TestSnapIsIdempotent(t *testing.T) {
	once, _ := SnapToCenter(51.3, 0)
	twice, ok := SnapToCenter(once, 0)
	if twice != once || !ok {
		t.Fatalf("snapping twice changed the value: %v -> %v", once, twice)
	}
}

func TestCenterGuidesPerAxis(t *testing.T) {
	p, guides := CenterGuides(Pt{49, 30}, SnapOptions{Threshold: 2})
	if p.X != 50 || p.Y != 30 {
		t.Fatalf("unexpected snapped point: %+v", p)
	}
	if len(guides) != 1 || guides[0].Orientation != "vertical" || guides[0].Kind != "center" {
		t.Fatalf("unexpected guides: %+v", guides)
	}

	p, guides = CenterGuides(Pt{51, 48}, SnapOptions{})
	if p != (Pt{50, 50}) || len(guides) != 2 || guides[1].Orientation != "horizontal" {
		t.Fatalf("expected both axes to snap: %+v %+v", p, guides)
	}

	p, guides = CenterGuides(Pt{51, 48}, SnapOptions{Disabled: true})
	if p != (Pt{51, 48}) || guides != nil {
		t.Fatalf("disabled snapping must not move the point: %+v %+v", p, guides)
	}
}
