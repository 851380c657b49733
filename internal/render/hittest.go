/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"overlaykit/internal/geom"
	"overlaykit/internal/overlay"
	"overlaykit/internal/textlayout"
)

// LayerBounds returns the device-space bounding box of l painted on a w×h
// surface, rotation included. ok is false when the layer paints nothing.
func (c *Compositor) LayerBounds(l overlay.TextLayer, w, h int) (geom.Rect, bool) {
	scale := geom.ReferenceScale(float64(w))
	size := l.FontSize * scale
	if l.Text == "" || size <= 0 {
		return geom.Rect{}, false
	}
	ax, ay, ok := geom.PercentToPixels(l.X, l.Y, float64(w), float64(h))
	if !ok {
		return geom.Rect{}, false
	}
	face, m := c.fonts.Resolve(textlayout.FontSpec{Family: l.FontFamily, SizePx: size, Weight: l.FontWeight})
	defer func() { _ = face.Close() }()
	block := textlayout.LayoutLines(face, m, l.Lines(), size*overlay.LineHeightFactor, l.TextAlign)
	if block.Bounds.W <= 0 || block.Bounds.H <= 0 {
		return geom.Rect{}, false
	}
	placement := geom.Translate(ax, ay).Mul(geom.Rotate(geom.Deg2Rad(l.Rotation)))
	return geom.TransformedBounds(placement, block.Bounds), true
}

// LayerAt returns the id of the topmost layer whose box contains the surface
// point p, or "" when none does.
func (c *Compositor) LayerAt(layers []overlay.TextLayer, w, h int, p geom.Pt) string {
	for i := len(layers) - 1; i >= 0; i-- {
		if r, ok := c.LayerBounds(layers[i], w, h); ok && r.Contains(p) {
			return layers[i].ID
		}
	}
	return ""
}
