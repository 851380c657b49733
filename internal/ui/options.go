/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ui is the interactive editor window. The window itself needs Fyne
// and cgo; other builds get a stub Run that explains how to enable it.
package ui

import (
	"overlaykit/internal/export"
	"overlaykit/internal/overlay"
	"overlaykit/internal/render"
)

// Options wires the editor to an already loaded session.
type Options struct {
	Store         *overlay.Store
	Compositor    *render.Compositor
	Export        *export.Service
	SnapThreshold float64
	// LayersPath is where "Save layers" writes; empty disables the action.
	LayersPath string
}
