/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom converts between natural image pixels, percent-of-image
// coordinates and on-screen preview pixels, and provides the affine math and
// center-snap guides used by placement and compositing.
//
// Layer geometry (font size, shadow blur and offsets) is expressed against a
// reference surface ReferenceWidth units wide. Any surface multiplies those
// values by its ReferenceScale before drawing, so a layer keeps the same
// proportions on a 400px preview and on a 4000px export.
package geom

// ReferenceWidth is the width, in units, that layer geometry is authored against.
const ReferenceWidth = 1000.0

// ReferenceScale returns the factor converting reference units to pixels on a
// surface surfaceWidth pixels wide. It returns 0 for a non-positive width.
func ReferenceScale(surfaceWidth float64) float64 {
	if surfaceWidth <= 0 {
		return 0
	}
	return surfaceWidth / ReferenceWidth
}

// PreviewScale is the geometry multiplier for an on-screen preview whose
// displayed image width is containerWidth. Both preview and export normalize
// against the width of the image as drawn, so this equals
// ReferenceScale(naturalWidth) * Zoom(containerWidth, naturalWidth).
// It returns 0 while either width is unknown.
func PreviewScale(containerWidth, naturalWidth float64) float64 {
	if containerWidth <= 0 || naturalWidth <= 0 {
		return 0
	}
	return containerWidth / ReferenceWidth
}

// Zoom is the ratio of displayed to natural image width, or 0 while unmeasured.
func Zoom(containerWidth, naturalWidth float64) float64 {
	if containerWidth <= 0 || naturalWidth <= 0 {
		return 0
	}
	return containerWidth / naturalWidth
}

// PercentToPixels maps a percent position onto a surface of w×h pixels.
// ok is false, and no division happens, when the surface has no area.
func PercentToPixels(x, y, w, h float64) (px, py float64, ok bool) {
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return x / 100 * w, y / 100 * h, true
}

// PixelsToPercent is the inverse of PercentToPixels, clamped to [0,100].
func PixelsToPercent(px, py, w, h float64) (x, y float64, ok bool) {
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return Clamp(px/w*100, 0, 100), Clamp(py/h*100, 0, 100), true
}

// DeltaToPercent converts a pixel displacement on a w×h surface to percent
// points. The result is not clamped.
func DeltaToPercent(dpx, dpy, w, h float64) (dx, dy float64, ok bool) {
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return dpx / w * 100, dpy / h * 100, true
}

// ClampPercent limits v to the valid percent range.
func ClampPercent(v float64) float64 { return Clamp(v, 0, 100) }
