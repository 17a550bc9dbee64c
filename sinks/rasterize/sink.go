// Package rasterize implements streamplay.FrameSink by uploading each
// decoded frame into an ebitengine image, and carries a
// viewport-projection helper for drawing it with the aspect ratio preserved.
package rasterize

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/ashlark/streamplay"
)

// Sink retains only the most recently decoded frame, uploaded into a reused
// ebiten.Image; the render loop reads it via Current or Draw on its own
// schedule, independent of the video decoder stage's rate.
type Sink struct {
	mu            sync.Mutex
	image         *ebiten.Image
	width, height int
}

// New returns an empty Sink; Current/Draw are no-ops until the first frame
// arrives.
func New() *Sink {
	return &Sink{}
}

// OnFrame implements streamplay.FrameSink. Safe to call from the video
// decoder stage's goroutine; Current/Draw synchronize against it.
func (s *Sink) OnFrame(frame streamplay.DecodedVideoFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.image == nil || s.width != frame.Width || s.height != frame.Height {
		s.image = ebiten.NewImage(frame.Width, frame.Height)
		s.width, s.height = frame.Width, frame.Height
	}
	s.image.WritePixels(frame.RGBA)
}

// Current returns the most recently uploaded frame, or nil if none arrived
// yet.
func (s *Sink) Current() *ebiten.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.image
}

// Draw projects the current frame into viewport, preserving aspect ratio. A
// no-op if no frame has arrived yet.
func (s *Sink) Draw(viewport *ebiten.Image) {
	frame := s.Current()
	if frame == nil {
		return
	}
	Draw(viewport, frame)
}

// Draw scales and centers frame within viewport using ebiten.FilterLinear,
// preserving aspect ratio. Extra space is left as whatever was already on
// viewport; no letterbox bars are drawn.
func Draw(viewport, frame *ebiten.Image) {
	geom, filter := CalcProjection(viewport, frame)
	var opts ebiten.DrawImageOptions
	opts.GeoM = geom
	opts.Filter = filter
	viewport.DrawImage(frame, &opts)
}

// CalcProjection returns the GeoM and recommended ebiten.Filter to project
// frame into viewport without distorting its aspect ratio.
func CalcProjection(viewport, frame *ebiten.Image) (ebiten.GeoM, ebiten.Filter) {
	frameBounds := frame.Bounds()
	viewBounds := viewport.Bounds()
	vwWidth, vwHeight := viewBounds.Dx(), viewBounds.Dy()
	frWidth, frHeight := frameBounds.Dx(), frameBounds.Dy()

	tx, ty := float64(viewBounds.Min.X), float64(viewBounds.Min.Y)

	var geom ebiten.GeoM
	var filter ebiten.Filter = ebiten.FilterLinear
	wf, hf := float64(vwWidth)/float64(frWidth), float64(vwHeight)/float64(frHeight)
	sf := wf
	if hf < wf {
		sf = hf
	}
	if sf == 1.0 {
		offx := (float64(vwWidth) - float64(frWidth)) / 2
		offy := (float64(vwHeight) - float64(frHeight)) / 2
		geom.Translate(tx+offx, ty+offy)
	} else {
		sfrWidth := float64(frWidth) * sf
		sfrHeight := float64(frHeight) * sf
		geom.Scale(sf, sf)
		geom.Translate(tx+(float64(vwWidth)-sfrWidth)/2, ty+(float64(vwHeight)-sfrHeight)/2)
	}
	return geom, filter
}
