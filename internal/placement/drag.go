/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package placement turns pointer gestures on a preview surface into layer
// positions. A Controller is Idle until a pointer goes down on a layer, then
// Dragging until the pointer is released; every move is written to the store.
package placement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"overlaykit/internal/geom"
	applog "overlaykit/internal/log"
	"overlaykit/internal/overlay"
)

// State of the drag state machine.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// ErrDragActive is returned when a second drag starts before the first ends.
var ErrDragActive = errors.New("a drag is already in progress")

// Guides are the advisory center guides shown while dragging.
type Guides struct {
	Vertical   bool // x is snapped to the horizontal center
	Horizontal bool // y is snapped to the vertical center
}

// Controller drives drags for one Store. It is safe for concurrent use, but
// only one drag can be active at a time.
type Controller struct {
	store *overlay.Store
	snap  geom.SnapOptions
	log   *slog.Logger

	mu      sync.Mutex
	state   State
	layerID string
	start   geom.Pt // pointer, screen pixels
	origin  geom.Pt // layer position at pointer-down, percent
	surface geom.Size
	guides  Guides
	lines   []geom.GuideLine
	// logCtx carries the dragged layer id into log records.
	logCtx context.Context
}

// New creates a controller writing into store, snapping within threshold
// percent points of the center (<= 0 uses geom.DefaultSnapThreshold).
func New(store *overlay.Store, threshold float64) *Controller {
	return &Controller{
		store: store,
		snap:  geom.SnapOptions{Threshold: threshold},
		log:   applog.WithComponent("placement"),
	}
}

// PointerDown starts dragging layerID from the screen point (x, y) on a preview
// surface of the given on-screen size. The layer becomes selected.
func (c *Controller) PointerDown(layerID string, x, y float64, surface geom.Size) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Dragging {
		return ErrDragActive
	}
	l, ok := c.store.Layer(layerID)
	if !ok {
		return fmt.Errorf("start drag %q: %w", layerID, overlay.ErrLayerNotFound)
	}
	if err := c.store.Select(layerID); err != nil {
		return err
	}
	c.state = Dragging
	c.layerID = layerID
	c.start = geom.Pt{X: x, Y: y}
	c.origin = geom.Pt{X: l.X, Y: l.Y}
	c.surface = surface
	c.guides, c.lines = Guides{}, nil
	c.logCtx = applog.WithAttrs(context.Background(), slog.String("layer", layerID))
	c.log.DebugContext(c.logCtx, "drag start", slog.Float64("x", l.X), slog.Float64("y", l.Y))
	return nil
}

// PointerMove repositions the dragged layer so it follows the pointer. The
// result is clamped to the image and snapped to the center per axis. Moves
// while Idle, or on a surface without area, change nothing.
func (c *Controller) PointerMove(x, y float64) (Guides, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Dragging {
		return Guides{}, nil
	}
	dx, dy, ok := geom.DeltaToPercent(x-c.start.X, y-c.start.Y, c.surface.W, c.surface.H)
	if !ok {
		return c.guides, nil
	}
	p := geom.Pt{
		X: geom.ClampPercent(c.origin.X + dx),
		Y: geom.ClampPercent(c.origin.Y + dy),
	}
	p, lines := geom.CenterGuides(p, c.snap)
	g := Guides{}
	for _, ln := range lines {
		switch ln.Orientation {
		case "vertical":
			g.Vertical = true
		case "horizontal":
			g.Horizontal = true
		}
	}
	if _, err := c.store.UpdateLayer(c.layerID, func(l *overlay.TextLayer) { l.X, l.Y = p.X, p.Y }); err != nil {
		// The layer vanished mid-drag; end the gesture.
		c.log.WarnContext(c.logCtx, "drag target lost", slog.Any("err", err))
		c.resetLocked()
		return Guides{}, err
	}
	c.guides, c.lines = g, lines
	return g, nil
}

// PointerUp ends the drag. The last committed position stays and guides clear.
func (c *Controller) PointerUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Dragging {
		c.log.DebugContext(c.logCtx, "drag end",
			slog.Bool("vertical_guide", c.guides.Vertical), slog.Bool("horizontal_guide", c.guides.Horizontal))
	}
	c.resetLocked()
}

// PointerDownElsewhere handles a press outside any layer: it deselects.
func (c *Controller) PointerDownElsewhere() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Dragging {
		return
	}
	_ = c.store.Select("")
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Guides returns the active guide flags.
func (c *Controller) Guides() Guides {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guides
}

// GuideLines returns the guide geometry in percent, for overlays that draw them.
func (c *Controller) GuideLines() []geom.GuideLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]geom.GuideLine(nil), c.lines...)
}

// DraggingLayer returns the id of the layer being dragged, or "".
func (c *Controller) DraggingLayer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layerID
}

func (c *Controller) resetLocked() {
	c.state = Idle
	c.layerID = ""
	c.guides, c.lines = Guides{}, nil
	c.logCtx = nil
}
