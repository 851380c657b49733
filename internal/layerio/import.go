/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layerio reads and writes text layer lists as YAML.
//
// Import accepts a sequence of mappings using either the current keys
// (x, y, fontSize, fontFamily, fontWeight) or the legacy ones (pos_x, pos_y in
// pixels, size, font, font_weight). Export always writes the legacy pixel form
// so files stay readable by older tooling.
package layerio

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"overlaykit/internal/overlay"
)

//go:embed layers.schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// ImportFormatError reports an unparseable or mis-shaped layer file.
type ImportFormatError struct {
	Msg string
	Err error
}

func (e *ImportFormatError) Error() string { return "invalid layer file: " + e.Msg }
func (e *ImportFormatError) Unwrap() error { return e.Err }

// IsImportFormatError reports whether err is (or wraps) an ImportFormatError.
func IsImportFormatError(err error) bool {
	var ife *ImportFormatError
	return errors.As(err, &ife)
}

// Record is one decoded mapping from a layer file.
type Record map[string]any

// Import parses data into layers for an image of naturalW×naturalH pixels
// (0 when unknown). The returned layers carry no ids.
func Import(data []byte, naturalW, naturalH int) ([]overlay.TextLayer, error) {
	records, err := Parse(data)
	if err != nil {
		return nil, err
	}
	out := make([]overlay.TextLayer, len(records))
	for i, r := range records {
		out[i] = FromRecord(r, naturalW, naturalH)
	}
	return out, nil
}

// Parse decodes and validates the document shape without converting records.
func Parse(data []byte) ([]Record, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ImportFormatError{Msg: err.Error(), Err: err}
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, &ImportFormatError{Msg: "layer list must be a sequence of text layers"}
	}
	plain := jsonSafe(items)
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(plain))
	if err != nil {
		return nil, &ImportFormatError{Msg: err.Error(), Err: err}
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, &ImportFormatError{Msg: strings.Join(msgs, "; ")}
	}
	records := make([]Record, 0, len(items))
	for _, it := range plain.([]any) {
		records = append(records, Record(it.(map[string]any)))
	}
	return records, nil
}

// FromRecord converts one record, falling back to defaults for missing or
// unusable values. pos_x/pos_y are pixels of the natural image size and win
// over x/y on their axis; with an unknown size they resolve to the center.
func FromRecord(r Record, naturalW, naturalH int) overlay.TextLayer {
	l := overlay.Defaults()
	l.X = axis(r, "pos_x", "x", naturalW)
	l.Y = axis(r, "pos_y", "y", naturalH)

	if s, ok := r.str("text"); ok && s != "" {
		l.Text = norm.NFC.String(s)
	}
	if v, ok := r.first("fontSize", "size"); ok {
		if f, ok := number(v); ok {
			l.FontSize = f
		}
	}
	if v, ok := r.first("fontFamily", "font"); ok {
		if s, ok := scalarString(v); ok && strings.TrimSpace(s) != "" {
			l.FontFamily = s
		}
	}
	if v, ok := r.first("fontWeight", "font_weight"); ok {
		if f, ok := number(v); ok {
			l.FontWeight = int(math.Round(f))
		}
	}
	if s, ok := r.str("color"); ok && s != "" {
		l.Color = s
	}
	l.Opacity = r.num("opacity", overlay.DefaultOpacity)
	l.Rotation = r.num("rotation", 0)
	if s, ok := r.str("textAlign"); ok {
		l.TextAlign = overlay.ParseAlign(s)
	}
	l.ShadowEnabled = truthy(r["shadowEnabled"])
	if s, ok := r.str("shadowColor"); ok && s != "" {
		l.ShadowColor = s
	}
	l.ShadowBlur = r.num("shadowBlur", overlay.DefaultShadowBlur)
	l.ShadowOffsetX = r.num("shadowOffsetX", overlay.DefaultShadowOffsetX)
	l.ShadowOffsetY = r.num("shadowOffsetY", overlay.DefaultShadowOffsetY)
	l.Normalize()
	return l
}

func axis(r Record, pixelKey, percentKey string, natural int) float64 {
	if v, ok := r[pixelKey]; ok && v != nil {
		px, ok := number(v)
		if !ok || natural <= 0 {
			return overlay.DefaultPosition
		}
		return px / float64(natural) * 100
	}
	return r.num(percentKey, overlay.DefaultPosition)
}

// first returns the value of the first present, non-null key.
func (r Record) first(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (r Record) str(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	return scalarString(v)
}

func (r Record) num(key string, def float64) float64 {
	if v, ok := r[key]; ok && v != nil {
		if f, ok := number(v); ok {
			return f
		}
	}
	return def
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	}
	return "", false
}

// number coerces YAML scalars to a finite float.
func number(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint64:
		f = float64(t)
	case float64:
		f = t
	case bool:
		if t {
			f = 1
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "0", "false", "no", "off":
			return false
		}
		return true
	case nil:
		return false
	}
	f, ok := number(v)
	return ok && f != 0
}

// jsonSafe rewrites yaml.v3 output into values encoding/json accepts:
// non-string map keys become strings and non-finite floats become strings.
func jsonSafe(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonSafe(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = jsonSafe(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = jsonSafe(e)
		}
		return out
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
		return t
	}
	return v
}
