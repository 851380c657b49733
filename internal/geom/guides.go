/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// Center snapping for interactive placement. Positions are percent of the
// image, so the center guide always sits at 50 on each axis.

import "math"

// CenterPercent is the percent coordinate of the image center on either axis.
const CenterPercent = 50.0

// DefaultSnapThreshold is the distance, in percent points, within which a
// position snaps to the center.
const DefaultSnapThreshold = 2.0

// SnapOptions controls center snapping.
type SnapOptions struct {
	// Threshold in percent points; values <= 0 use DefaultSnapThreshold.
	Threshold float64
	// Disabled turns snapping off; guides are never produced.
	Disabled bool
}

// GuideLine describes a visual guide produced when a position snaps.
// Orientation is "vertical" (x snapped) or "horizontal" (y snapped).
// Position and From/To are in percent of the image.
type GuideLine struct {
	Orientation string
	Kind        string
	Position    float64
	From        Pt
	To          Pt
}

// SnapToCenter returns CenterPercent and true when |v-50| <= threshold,
// otherwise v unchanged and false.
func SnapToCenter(v, threshold float64) (float64, bool) {
	if threshold <= 0 {
		threshold = DefaultSnapThreshold
	}
	if math.Abs(v-CenterPercent) <= threshold {
		return CenterPercent, true
	}
	return v, false
}

// CenterGuides snaps each axis of p independently and returns the snapped
// point with one guide per snapped axis.
func CenterGuides(p Pt, opts SnapOptions) (Pt, []GuideLine) {
	if opts.Disabled {
		return p, nil
	}
	var guides []GuideLine
	out := p
	var ok bool
	if out.X, ok = SnapToCenter(p.X, opts.Threshold); ok {
		guides = append(guides, GuideLine{
			Orientation: "vertical",
			Kind:        "center",
			Position:    CenterPercent,
			From:        Pt{CenterPercent, 0},
			To:          Pt{CenterPercent, 100},
		})
	}
	if out.Y, ok = SnapToCenter(p.Y, opts.Threshold); ok {
		guides = append(guides, GuideLine{
			Orientation: "horizontal",
			Kind:        "center",
			Position:    CenterPercent,
			From:        Pt{0, CenterPercent},
			To:          Pt{100, CenterPercent},
		})
	}
	return out, guides
}
