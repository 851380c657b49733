/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	applog "overlaykit/internal/log"
	"overlaykit/internal/undo"
)

// ErrLayerNotFound is returned for operations on an unknown layer id.
var ErrLayerNotFound = errors.New("layer not found")

// Snapshot is an immutable view of the store used for one render pass.
type Snapshot struct {
	Image  *ImageHandle
	Layers []TextLayer
}

// Store owns the active image, the ordered layer list (paint order, first is
// painted first) and the selection. It is safe for concurrent use; every
// mutation is serialized and readers get copies.
type Store struct {
	mu       sync.RWMutex
	image    *ImageHandle
	layers   []TextLayer
	selected string
	hovered  string
	nextID   uint64

	history *undo.Manager
	now     func() time.Time
	log     *slog.Logger
}

// NewStore creates an empty store. history may be nil to disable undo.
func NewStore(history *undo.Manager) *Store {
	return &Store{history: history, now: time.Now, log: applog.WithComponent("store")}
}

// SetImage makes h the active image, releasing the previous one.
// Layers are kept so a layout can be reapplied to a new image.
func (s *Store) SetImage(h *ImageHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image != nil && s.image != h {
		s.image.Release()
	}
	s.image = h
	w, hgt := h.Size()
	s.log.Debug("image set", slog.String("file", h.Filename()), slog.Int("w", w), slog.Int("h", hgt))
}

// ClearImage releases the image and drops all layers, selection and history.
func (s *Store) ClearImage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image != nil {
		s.image.Release()
	}
	s.image = nil
	s.layers = nil
	s.selected, s.hovered = "", ""
	if s.history != nil {
		s.history.Clear()
	}
}

// Image returns the active image handle, or nil.
func (s *Store) Image() *ImageHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.image
}

// AddLayer appends a new layer built from the defaults (text "New Text")
// with edit applied, selects it and returns it.
func (s *Store) AddLayer(edit func(*TextLayer)) TextLayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := Defaults()
	l.Text = NewLayerText
	if edit != nil {
		edit(&l)
	}
	l.Normalize()
	l.ID = s.newIDLocked()
	s.recordLocked("add")
	s.layers = append(s.layers, l)
	s.selected = l.ID
	return l
}

// UpdateLayer applies edit to the layer with id and re-normalizes it.
// The id cannot be changed by edit. Rapid updates of the same layer collapse
// into one undo step.
func (s *Store) UpdateLayer(id string, edit func(*TextLayer)) (TextLayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return TextLayer{}, fmt.Errorf("update %q: %w", id, ErrLayerNotFound)
	}
	l := s.layers[i]
	if edit != nil {
		edit(&l)
	}
	l.ID = id
	l.Normalize()
	if l == s.layers[i] {
		return l, nil
	}
	s.recordLocked("edit " + id)
	s.layers[i] = l
	return l, nil
}

// RemoveLayer deletes the layer, clearing the selection if it pointed at it.
func (s *Store) RemoveLayer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("remove %q: %w", id, ErrLayerNotFound)
	}
	s.recordLocked("remove")
	s.layers = append(s.layers[:i:i], s.layers[i+1:]...)
	if s.selected == id {
		s.selected = ""
	}
	if s.hovered == id {
		s.hovered = ""
	}
	return nil
}

// DuplicateLayer inserts a copy directly after the source, offset by +5% on
// both axes (clamped to 100), selects the copy and returns it.
func (s *Store) DuplicateLayer(id string) (TextLayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return TextLayer{}, fmt.Errorf("duplicate %q: %w", id, ErrLayerNotFound)
	}
	cp := s.layers[i]
	cp.ID = s.newIDLocked()
	cp.X = min(cp.X+5, 100)
	cp.Y = min(cp.Y+5, 100)
	s.recordLocked("duplicate")
	s.layers = append(s.layers, TextLayer{})
	copy(s.layers[i+2:], s.layers[i+1:])
	s.layers[i+1] = cp
	s.selected = cp.ID
	return cp, nil
}

// MoveLayerUp swaps the layer with its successor, bringing it one step
// toward the top of the paint order. No-op for the topmost layer.
func (s *Store) MoveLayerUp(id string) error { return s.swap(id, +1) }

// MoveLayerDown swaps the layer with its predecessor. No-op for the bottom layer.
func (s *Store) MoveLayerDown(id string) error { return s.swap(id, -1) }

func (s *Store) swap(id string, dir int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("reorder %q: %w", id, ErrLayerNotFound)
	}
	j := i + dir
	if j < 0 || j >= len(s.layers) {
		return nil
	}
	s.recordLocked("reorder")
	s.layers[i], s.layers[j] = s.layers[j], s.layers[i]
	return nil
}

// ClearLayers removes every layer and the selection.
func (s *Store) ClearLayers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.layers) == 0 {
		return
	}
	s.recordLocked("clear")
	s.layers = nil
	s.selected, s.hovered = "", ""
}

// ReplaceLayers swaps in an imported layer list. Every layer gets a fresh id,
// is normalized, and the first one (if any) becomes selected.
func (s *Store) ReplaceLayers(layers []TextLayer) []TextLayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLocked("import")
	out := make([]TextLayer, len(layers))
	for i, l := range layers {
		l.Normalize()
		l.ID = s.newIDLocked()
		out[i] = l
	}
	s.layers = out
	s.hovered = ""
	s.selected = ""
	if len(out) > 0 {
		s.selected = out[0].ID
	}
	return append([]TextLayer(nil), out...)
}

// Select sets the selection; an empty id deselects.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && s.indexLocked(id) < 0 {
		return fmt.Errorf("select %q: %w", id, ErrLayerNotFound)
	}
	s.selected = id
	return nil
}

// SelectedID returns the selected layer id, or "".
func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Selected resolves the selection cursor to its layer.
func (s *Store) Selected() (TextLayer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(s.selected); i >= 0 {
		return s.layers[i], true
	}
	return TextLayer{}, false
}

// SetHovered records the layer under the pointer ("" for none). Unknown ids are ignored.
func (s *Store) SetHovered(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && s.indexLocked(id) < 0 {
		return
	}
	s.hovered = id
}

// Hovered returns the hovered layer id, or "".
func (s *Store) Hovered() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hovered
}

// Layer returns the layer with id.
func (s *Store) Layer(id string) (TextLayer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.layers[i], true
	}
	return TextLayer{}, false
}

// Layers returns a copy of the layer list in paint order.
func (s *Store) Layers() []TextLayer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TextLayer(nil), s.layers...)
}

// Snapshot returns the image and a copy of the layers taken under one lock,
// so concurrent edits cannot tear a render pass.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Image: s.image, Layers: append([]TextLayer(nil), s.layers...)}
}

// Undo restores the layer list preceding the last change. It reports false
// when there is nothing to undo or history is disabled.
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return false
	}
	prev, ok := s.history.Undo(s.encodeLocked(""))
	if !ok {
		return false
	}
	s.restoreLocked(prev)
	return true
}

// Redo re-applies the last undone change.
func (s *Store) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return false
	}
	next, ok := s.history.Redo(s.encodeLocked(""))
	if !ok {
		return false
	}
	s.restoreLocked(next)
	return true
}

func (s *Store) newIDLocked() string {
	s.nextID++
	return "layer-" + strconv.FormatUint(s.nextID, 10)
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.layers {
		if s.layers[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) recordLocked(label string) {
	if s.history == nil {
		return
	}
	s.history.Push(s.encodeLocked(label))
}

type historyState struct {
	Layers   []TextLayer `json:"layers"`
	Selected string      `json:"selected,omitempty"`
}

func (s *Store) encodeLocked(label string) undo.Snapshot {
	b, err := json.Marshal(historyState{Layers: s.layers, Selected: s.selected})
	if err != nil {
		s.log.Warn("history encode failed", slog.Any("err", err))
	}
	return undo.Snapshot{Label: label, Blob: b, TS: s.now()}
}

func (s *Store) restoreLocked(snap undo.Snapshot) {
	var st historyState
	if err := json.Unmarshal(snap.Blob, &st); err != nil {
		s.log.Warn("history decode failed", slog.Any("err", err))
		return
	}
	s.layers = st.Layers
	s.selected = ""
	if s.indexLocked(st.Selected) >= 0 {
		s.selected = st.Selected
	}
	if s.indexLocked(s.hovered) < 0 {
		s.hovered = ""
	}
}
