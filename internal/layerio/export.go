/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layerio

import (
	"bytes"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"overlaykit/internal/overlay"
)

// legacyRecord is the export shape. Optional fields are pointers or use
// omitempty so values equal to their default are left out.
type legacyRecord struct {
	Text          string   `yaml:"text"`
	PosX          *int     `yaml:"pos_x,omitempty"`
	PosY          *int     `yaml:"pos_y,omitempty"`
	X             *float64 `yaml:"x,omitempty"`
	Y             *float64 `yaml:"y,omitempty"`
	Size          float64  `yaml:"size"`
	Font          string   `yaml:"font"`
	FontWeight    int      `yaml:"font_weight"`
	Color         string   `yaml:"color"`
	Opacity       *float64 `yaml:"opacity,omitempty"`
	Rotation      *float64 `yaml:"rotation,omitempty"`
	TextAlign     string   `yaml:"textAlign,omitempty"`
	ShadowEnabled bool     `yaml:"shadowEnabled,omitempty"`
	ShadowColor   string   `yaml:"shadowColor,omitempty"`
	ShadowBlur    *float64 `yaml:"shadowBlur,omitempty"`
	ShadowOffsetX *float64 `yaml:"shadowOffsetX,omitempty"`
	ShadowOffsetY *float64 `yaml:"shadowOffsetY,omitempty"`
}

// Export writes layers in the legacy pixel form for an image of
// naturalW×naturalH pixels. When the size is unknown, percent x/y are written
// instead so no position is lost.
func Export(layers []overlay.TextLayer, naturalW, naturalH int) ([]byte, error) {
	records := make([]legacyRecord, 0, len(layers))
	for _, l := range layers {
		records = append(records, toRecord(l, naturalW, naturalH))
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode layers: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode layers: %w", err)
	}
	return buf.Bytes(), nil
}

func toRecord(l overlay.TextLayer, w, h int) legacyRecord {
	r := legacyRecord{
		Text:       l.Text,
		Size:       l.FontSize,
		Font:       l.FontFamily,
		FontWeight: l.FontWeight,
		Color:      l.Color,
	}
	if w > 0 && h > 0 {
		px := int(math.Round(l.X / 100 * float64(w)))
		py := int(math.Round(l.Y / 100 * float64(h)))
		r.PosX, r.PosY = &px, &py
	} else {
		x, y := l.X, l.Y
		r.X, r.Y = &x, &y
	}
	if l.Opacity != overlay.DefaultOpacity {
		v := l.Opacity
		r.Opacity = &v
	}
	if l.Rotation != 0 {
		v := l.Rotation
		r.Rotation = &v
	}
	if l.TextAlign != overlay.AlignLeft && l.TextAlign != "" {
		r.TextAlign = string(l.TextAlign)
	}
	if l.ShadowEnabled {
		blur, ox, oy := l.ShadowBlur, l.ShadowOffsetX, l.ShadowOffsetY
		r.ShadowEnabled = true
		r.ShadowColor = l.ShadowColor
		r.ShadowBlur, r.ShadowOffsetX, r.ShadowOffsetY = &blur, &ox, &oy
	}
	return r
}
