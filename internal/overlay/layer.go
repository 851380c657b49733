/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package overlay holds the text-layer model, the decoded source image and the
// Store that owns both together with the selection cursor.
//
// All layer geometry is authored against a reference surface 1000 units wide
// (see geom.ReferenceWidth): X and Y are percent of the image, FontSize and the
// shadow fields are reference units that each surface rescales.
package overlay

import (
	"math"
	"strings"
)

// Align is the horizontal text alignment relative to the layer anchor.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// ParseAlign maps unknown values to AlignLeft.
func ParseAlign(s string) Align {
	switch Align(strings.ToLower(strings.TrimSpace(s))) {
	case AlignCenter:
		return AlignCenter
	case AlignRight:
		return AlignRight
	default:
		return AlignLeft
	}
}

// TextLayer is one positioned, styled text annotation.
type TextLayer struct {
	ID            string  `json:"id"`
	Text          string  `json:"text"`
	X             float64 `json:"x"` // percent of natural width
	Y             float64 `json:"y"` // percent of natural height
	FontSize      float64 `json:"fontSize"`
	FontFamily    string  `json:"fontFamily"`
	FontWeight    int     `json:"fontWeight"`
	Color         string  `json:"color"`
	Opacity       float64 `json:"opacity"`
	Rotation      float64 `json:"rotation"` // degrees, clockwise
	TextAlign     Align   `json:"textAlign"`
	ShadowEnabled bool    `json:"shadowEnabled"`
	ShadowColor   string  `json:"shadowColor"`
	ShadowBlur    float64 `json:"shadowBlur"`
	ShadowOffsetX float64 `json:"shadowOffsetX"`
	ShadowOffsetY float64 `json:"shadowOffsetY"`
}

// Default field values for a layer.
const (
	DefaultText          = "Text"
	NewLayerText         = "New Text"
	DefaultPosition      = 50.0
	DefaultFontSize      = 48.0
	DefaultFontFamily    = "Inter"
	DefaultFontWeight    = 400
	DefaultColor         = "#ffffff"
	DefaultOpacity       = 1.0
	DefaultShadowColor   = "#000000"
	DefaultShadowBlur    = 4.0
	DefaultShadowOffsetX = 2.0
	DefaultShadowOffsetY = 2.0
	// LineHeightFactor is the line advance as a multiple of the font size.
	LineHeightFactor = 1.2
)

// Defaults returns a layer with every field at its default and no ID.
func Defaults() TextLayer {
	return TextLayer{
		Text:          DefaultText,
		X:             DefaultPosition,
		Y:             DefaultPosition,
		FontSize:      DefaultFontSize,
		FontFamily:    DefaultFontFamily,
		FontWeight:    DefaultFontWeight,
		Color:         DefaultColor,
		Opacity:       DefaultOpacity,
		TextAlign:     AlignLeft,
		ShadowColor:   DefaultShadowColor,
		ShadowBlur:    DefaultShadowBlur,
		ShadowOffsetX: DefaultShadowOffsetX,
		ShadowOffsetY: DefaultShadowOffsetY,
	}
}

// Normalize clamps every field into its valid range.
func (l *TextLayer) Normalize() {
	l.X = clampOr(l.X, 0, 100, DefaultPosition)
	l.Y = clampOr(l.Y, 0, 100, DefaultPosition)
	l.Opacity = clampOr(l.Opacity, 0, 1, DefaultOpacity)
	if l.FontSize = finiteOr(l.FontSize, DefaultFontSize); l.FontSize < 0 {
		l.FontSize = 0
	}
	if l.FontWeight <= 0 {
		l.FontWeight = DefaultFontWeight
	}
	if l.FontWeight < 100 {
		l.FontWeight = 100
	}
	if l.FontWeight > 900 {
		l.FontWeight = 900
	}
	l.Rotation = normalizeDegrees(l.Rotation)
	l.TextAlign = ParseAlign(string(l.TextAlign))
	if strings.TrimSpace(l.FontFamily) == "" {
		l.FontFamily = DefaultFontFamily
	}
	if strings.TrimSpace(l.Color) == "" {
		l.Color = DefaultColor
	}
	if strings.TrimSpace(l.ShadowColor) == "" {
		l.ShadowColor = DefaultShadowColor
	}
	if l.ShadowBlur = finiteOr(l.ShadowBlur, DefaultShadowBlur); l.ShadowBlur < 0 {
		l.ShadowBlur = 0
	}
	l.ShadowOffsetX = finiteOr(l.ShadowOffsetX, 0)
	l.ShadowOffsetY = finiteOr(l.ShadowOffsetY, 0)
}

// Lines splits the text into the lines the compositor paints.
func (l TextLayer) Lines() []string {
	return strings.Split(strings.ReplaceAll(l.Text, "\r\n", "\n"), "\n")
}

func finiteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

func clampOr(v, lo, hi, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeDegrees maps any angle into (-180, 180].
func normalizeDegrees(d float64) float64 {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	d = math.Mod(d, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}
