//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"overlaykit/internal/export"
	"overlaykit/internal/geom"
	"overlaykit/internal/layerio"
	applog "overlaykit/internal/log"
	"overlaykit/internal/overlay"
	"overlaykit/internal/placement"
	"overlaykit/internal/render"
)

// Run opens the editor window and blocks until it is closed.
func Run(opt Options) error {
	if opt.Store == nil || opt.Compositor == nil || opt.Export == nil {
		return fmt.Errorf("editor: store, compositor and export service are required")
	}
	l := applog.WithComponent("ui")
	l.Info("starting editor")

	fyneApp := app.NewWithID("overlaykit")
	title := "overlaykit"
	if h := opt.Store.Image(); h != nil && h.Filename() != "" {
		title = h.Filename() + " - overlaykit"
	}
	w := fyneApp.NewWindow(title)
	prefs := fyneApp.Preferences()
	w.Resize(fyne.NewSize(
		float32(max(prefs.IntWithFallback("window.width", 1100), 640)),
		float32(max(prefs.IntWithFallback("window.height", 760), 480)),
	))
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})

	ed := newEditor(opt, w)
	w.SetContent(ed.content())
	w.ShowAndRun()
	return nil
}

type editor struct {
	opt    Options
	win    fyne.Window
	canvas *overlayCanvas
	text   *widget.Entry
	status *widget.Label
	// syncing suppresses entry callbacks while the entry is filled from the store.
	syncing bool
	log     *slog.Logger
}

func newEditor(opt Options, w fyne.Window) *editor {
	ed := &editor{opt: opt, win: w, log: applog.WithComponent("ui")}
	ed.canvas = newOverlayCanvas(opt.Store, opt.Compositor, placement.New(opt.Store, opt.SnapThreshold))
	ed.canvas.onSelect = ed.syncSelection
	ed.text = widget.NewMultiLineEntry()
	ed.text.SetPlaceHolder("Select a text layer to edit it")
	ed.text.OnChanged = ed.onTextChanged
	ed.status = widget.NewLabel("")
	return ed
}

func (ed *editor) content() fyne.CanvasObject {
	st := ed.opt.Store
	edit := func(fn func(id string) error) func() {
		return func() {
			id := st.SelectedID()
			if id == "" {
				return
			}
			if err := fn(id); err != nil {
				dialog.ShowError(err, ed.win)
			}
			ed.changed()
		}
	}
	buttons := container.NewHBox(
		widget.NewButton("Add text", func() {
			st.AddLayer(nil)
			ed.changed()
		}),
		widget.NewButton("Duplicate", edit(func(id string) error { _, err := st.DuplicateLayer(id); return err })),
		widget.NewButton("Delete", edit(st.RemoveLayer)),
		widget.NewButton("Up", edit(st.MoveLayerUp)),
		widget.NewButton("Down", edit(st.MoveLayerDown)),
		widget.NewButton("Undo", func() { st.Undo(); ed.changed() }),
		widget.NewButton("Redo", func() { st.Redo(); ed.changed() }),
		widget.NewSeparator(),
		widget.NewButton("Save image", ed.saveImage),
		widget.NewButton("Copy image", ed.copyImage),
		widget.NewButton("Share link", ed.shareLink),
		widget.NewButton("Save layers", ed.saveLayers),
	)
	bottom := container.NewBorder(nil, nil, nil, nil, container.NewVBox(ed.text, ed.status))
	ed.syncSelection()
	return container.NewBorder(buttons, bottom, nil, nil, ed.canvas)
}

func (ed *editor) changed() {
	ed.syncSelection()
	ed.canvas.Refresh()
}

func (ed *editor) syncSelection() {
	ed.syncing = true
	defer func() { ed.syncing = false }()
	if l, ok := ed.opt.Store.Selected(); ok {
		ed.text.SetText(l.Text)
		ed.text.Enable()
		ed.status.SetText(fmt.Sprintf("%s at %.1f%%, %.1f%%", l.ID, l.X, l.Y))
		return
	}
	ed.text.SetText("")
	ed.text.Disable()
	ed.status.SetText(fmt.Sprintf("%d layers", len(ed.opt.Store.Layers())))
}

func (ed *editor) onTextChanged(s string) {
	if ed.syncing {
		return
	}
	id := ed.opt.Store.SelectedID()
	if id == "" {
		return
	}
	if _, err := ed.opt.Store.UpdateLayer(id, func(l *overlay.TextLayer) { l.Text = s }); err != nil {
		ed.log.Warn("text edit failed", slog.Any("err", err))
		return
	}
	ed.canvas.Refresh()
}

func (ed *editor) saveImage() {
	path, err := ed.opt.Export.Download(context.Background(), "", "", 0)
	if err != nil {
		dialog.ShowError(err, ed.win)
		return
	}
	ed.status.SetText("Saved " + path)
}

func (ed *editor) copyImage() {
	if err := ed.opt.Export.CopyImage(context.Background()); err != nil {
		dialog.ShowError(err, ed.win)
		return
	}
	ed.status.SetText("Image copied to clipboard")
}

func (ed *editor) shareLink() {
	link, err := ed.opt.Export.ShareLink(context.Background())
	if err != nil {
		dialog.ShowError(err, ed.win)
		return
	}
	ed.win.Clipboard().SetContent(link)
	ed.status.SetText(fmt.Sprintf("Share link copied (%d characters)", len(link)))
}

func (ed *editor) saveLayers() {
	if ed.opt.LayersPath == "" {
		dialog.ShowInformation("Save layers", "Start the editor with -layers to choose a layer file.", ed.win)
		return
	}
	w, h := 0, 0
	if img := ed.opt.Store.Image(); img != nil {
		w, h = img.Size()
	}
	data, err := layerio.Export(ed.opt.Store.Layers(), w, h)
	if err == nil {
		err = export.WriteFile(context.Background(), ed.opt.LayersPath, data)
	}
	if err != nil {
		dialog.ShowError(err, ed.win)
		return
	}
	ed.status.SetText("Layers saved to " + ed.opt.LayersPath)
}

// overlayCanvas shows the composited image fitted into the widget and turns
// pointer input into placement gestures.
type overlayCanvas struct {
	widget.BaseWidget
	store    *overlay.Store
	comp     *render.Compositor
	ctrl     *placement.Controller
	onSelect func()

	// disp is the on-screen rect of the image; natural is its pixel size.
	disp    geom.Rect
	natural geom.Size
}

func newOverlayCanvas(st *overlay.Store, comp *render.Compositor, ctrl *placement.Controller) *overlayCanvas {
	c := &overlayCanvas{store: st, comp: comp, ctrl: ctrl}
	c.ExtendBaseWidget(c)
	return c
}

func (c *overlayCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleSmooth
	sel := canvas.NewRectangle(color.Transparent)
	sel.StrokeColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	sel.StrokeWidth = 1
	sel.Hide()
	hover := canvas.NewRectangle(color.Transparent)
	hover.StrokeColor = color.RGBA{R: 255, G: 255, B: 255, A: 140}
	hover.StrokeWidth = 1
	hover.Hide()
	guide := color.RGBA{R: 255, G: 0, B: 170, A: 220}
	vGuide, hGuide := canvas.NewLine(guide), canvas.NewLine(guide)
	vGuide.Hide()
	hGuide.Hide()
	r := &overlayRenderer{c: c, bg: bg, img: img, sel: sel, hover: hover, vGuide: vGuide, hGuide: hGuide}
	r.objects = []fyne.CanvasObject{bg, img, hover, sel, vGuide, hGuide}
	r.render()
	return r
}

func (c *overlayCanvas) MinSize() fyne.Size { return fyne.NewSize(320, 240) }

// toImage maps a widget position to natural image pixels.
func (c *overlayCanvas) toImage(p fyne.Position) geom.Pt {
	if c.disp.W <= 0 || c.disp.H <= 0 {
		return geom.Pt{X: -1, Y: -1}
	}
	s := c.natural.W / c.disp.W
	return geom.Pt{X: (float64(p.X) - c.disp.X) * s, Y: (float64(p.Y) - c.disp.Y) * s}
}

func (c *overlayCanvas) layerAt(p fyne.Position) string {
	return c.comp.LayerAt(c.store.Layers(), int(c.natural.W), int(c.natural.H), c.toImage(p))
}

func (c *overlayCanvas) Tapped(e *fyne.PointEvent) {
	if id := c.layerAt(e.Position); id != "" {
		_ = c.store.Select(id)
	} else {
		c.ctrl.PointerDownElsewhere()
	}
	c.notify()
}

func (c *overlayCanvas) Dragged(e *fyne.DragEvent) {
	if c.ctrl.State() == placement.Idle {
		start := fyne.NewPos(e.Position.X-e.Dragged.DX, e.Position.Y-e.Dragged.DY)
		id := c.layerAt(start)
		if id == "" {
			return
		}
		surface := geom.Size{W: c.disp.W, H: c.disp.H}
		if err := c.ctrl.PointerDown(id, float64(start.X), float64(start.Y), surface); err != nil {
			return
		}
	}
	if _, err := c.ctrl.PointerMove(float64(e.Position.X), float64(e.Position.Y)); err != nil {
		c.ctrl.PointerUp()
	}
	c.notify()
}

func (c *overlayCanvas) MouseIn(e *desktop.MouseEvent) { c.MouseMoved(e) }

func (c *overlayCanvas) MouseMoved(e *desktop.MouseEvent) {
	id := c.layerAt(e.Position)
	if id == c.store.Hovered() {
		return
	}
	c.store.SetHovered(id)
	c.Refresh()
}

func (c *overlayCanvas) MouseOut() {
	if c.store.Hovered() != "" {
		c.store.SetHovered("")
		c.Refresh()
	}
}

func (c *overlayCanvas) DragEnd() {
	c.ctrl.PointerUp()
	c.notify()
}

func (c *overlayCanvas) notify() {
	if c.onSelect != nil {
		c.onSelect()
	}
	c.Refresh()
}

type overlayRenderer struct {
	c              *overlayCanvas
	bg             *canvas.Rectangle
	img            *canvas.Image
	sel, hover     *canvas.Rectangle
	vGuide, hGuide *canvas.Line
	objects        []fyne.CanvasObject
}

func (r *overlayRenderer) Destroy()                     {}
func (r *overlayRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *overlayRenderer) MinSize() fyne.Size           { return r.c.MinSize() }

func (r *overlayRenderer) Refresh() {
	r.render()
	r.Layout(r.c.Size())
	canvas.Refresh(r.c)
}

// render recomposites the store into the preview image.
func (r *overlayRenderer) render() {
	out, err := r.c.comp.RenderStore(r.c.store)
	if err != nil {
		r.img.Image = nil
		r.c.natural = geom.Size{}
		r.img.Refresh()
		return
	}
	r.img.Image = out
	r.c.natural = geom.Size{W: float64(out.Bounds().Dx()), H: float64(out.Bounds().Dy())}
	r.img.Refresh()
}

func (r *overlayRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	c := r.c
	if c.natural.Empty() {
		c.disp = geom.Rect{}
		r.img.Hide()
		r.sel.Hide()
		r.hover.Hide()
		r.vGuide.Hide()
		r.hGuide.Hide()
		return
	}
	s := math.Min(float64(size.Width)/c.natural.W, float64(size.Height)/c.natural.H)
	dw, dh := c.natural.W*s, c.natural.H*s
	c.disp = geom.R((float64(size.Width)-dw)/2, (float64(size.Height)-dh)/2, dw, dh)
	r.img.Move(fyne.NewPos(float32(c.disp.X), float32(c.disp.Y)))
	r.img.Resize(fyne.NewSize(float32(dw), float32(dh)))
	r.img.Show()

	sel, selOK := c.store.Selected()
	r.box(r.sel, sel, selOK, s)
	hov, hovOK := c.store.Layer(c.store.Hovered())
	r.box(r.hover, hov, hovOK && hov.ID != sel.ID, s)

	g := c.ctrl.Guides()
	cx, cy := float32(c.disp.X+dw/2), float32(c.disp.Y+dh/2)
	r.vGuide.Position1 = fyne.NewPos(cx, float32(c.disp.Y))
	r.vGuide.Position2 = fyne.NewPos(cx, float32(c.disp.Y+dh))
	r.hGuide.Position1 = fyne.NewPos(float32(c.disp.X), cy)
	r.hGuide.Position2 = fyne.NewPos(float32(c.disp.X+dw), cy)
	setVisible(r.vGuide, g.Vertical)
	setVisible(r.hGuide, g.Horizontal)
}

// box frames layer l on screen, or hides rect when show is false.
func (r *overlayRenderer) box(rect *canvas.Rectangle, l overlay.TextLayer, show bool, s float64) {
	c := r.c
	b, ok := c.comp.LayerBounds(l, int(c.natural.W), int(c.natural.H))
	if !show || !ok {
		rect.Hide()
		return
	}
	rect.Move(fyne.NewPos(float32(c.disp.X+b.X*s), float32(c.disp.Y+b.Y*s)))
	rect.Resize(fyne.NewSize(float32(b.W*s), float32(b.H*s)))
	rect.Show()
}

func setVisible(o fyne.CanvasObject, v bool) {
	if v {
		o.Show()
	} else {
		o.Hide()
	}
}
