/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// paintShadow composites a blurred, offset copy of mask in col under the text.
// Blur and offsets are device pixels, unaffected by the layer rotation.
// sigma is the Gaussian standard deviation (half the CSS shadow blur radius).
func paintShadow(dst *image.RGBA, mask *image.Alpha, col color.NRGBA, sigma, dx, dy float64) {
	if col.A == 0 {
		return
	}
	shadow, origin := blurMask(mask, sigma)
	origin = origin.Add(image.Pt(int(math.Round(dx)), int(math.Round(dy))))
	sb := shadow.Bounds()
	r := image.Rectangle{Min: origin, Max: origin.Add(sb.Size())}
	draw.DrawMask(dst, r, image.NewUniform(col), image.Point{}, shadow, sb.Min, draw.Over)
}

// blurMask returns a Gaussian-blurred copy of mask together with the device
// position of its top-left pixel. The copy is padded by three sigmas so the
// falloff is not clipped.
func blurMask(mask *image.Alpha, sigma float64) (image.Image, image.Point) {
	b := mask.Bounds()
	if sigma <= 0 {
		return mask, b.Min
	}
	pad := int(math.Ceil(sigma * 3))
	padded := image.NewAlpha(image.Rect(0, 0, b.Dx()+2*pad, b.Dy()+2*pad))
	draw.Draw(padded, image.Rect(pad, pad, pad+b.Dx(), pad+b.Dy()), mask, b.Min, draw.Src)
	return imaging.Blur(padded, sigma), b.Min.Sub(image.Pt(pad, pad))
}
