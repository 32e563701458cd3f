package display

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/beamcross/internal/geometry"
)

// pointsPerPixel converts pixels at 96 DPI, the plot image default, to points.
const pointsPerPixel = 72.0 / 96.0

type marker struct {
	p     image.Point
	size  int
	color color.Color
}

// Snapshot renders frames to an image file with gonum/plot. It is meant for
// headless rigs and debugging: only every Nth presented frame is written, and
// each write replaces the file atomically.
type Snapshot struct {
	path     string
	format   string
	viewport geometry.Viewport
	every    int

	bg       color.Color
	markers  []marker
	presents int
	writes   int
}

// NewSnapshot writes every Nth frame to path. The format follows the file
// extension (png, svg, pdf, ...).
func NewSnapshot(path string, vp geometry.Viewport, every int) (*Snapshot, error) {
	if vp.Width <= 0 || vp.Height <= 0 {
		return nil, fmt.Errorf("invalid snapshot viewport %dx%d", vp.Width, vp.Height)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch format {
	case "png", "jpg", "jpeg", "svg", "pdf", "tif", "tiff", "eps":
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", filepath.Ext(path))
	}
	if every <= 0 {
		every = 1
	}
	return &Snapshot{
		path:     path,
		format:   format,
		viewport: vp,
		every:    every,
		bg:       color.Black,
	}, nil
}

// Clear starts a new frame with background c.
func (s *Snapshot) Clear(c color.Color) {
	s.bg = c
	s.markers = s.markers[:0]
}

// DrawMarker queues a crosshair for the current frame.
func (s *Snapshot) DrawMarker(p image.Point, size int, c color.Color) {
	s.markers = append(s.markers, marker{p: p, size: size, color: c})
}

// Present writes the frame when it is due.
func (s *Snapshot) Present() error {
	s.presents++
	if (s.presents-1)%s.every != 0 {
		return nil
	}

	p, err := s.buildPlot()
	if err != nil {
		return err
	}

	w := vg.Points(float64(s.viewport.Width) * pointsPerPixel)
	h := vg.Points(float64(s.viewport.Height) * pointsPerPixel)
	wt, err := p.WriterTo(w, h, s.format)
	if err != nil {
		return fmt.Errorf("failed to render snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := wt.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	s.writes++
	return nil
}

// Writes returns how many snapshot files have been written.
func (s *Snapshot) Writes() int {
	return s.writes
}

// buildPlot builds the current frame. The axes always span exactly the
// viewport so markers outside it are cut off, as they are on the terminal.
func (s *Snapshot) buildPlot() (*plot.Plot, error) {
	p := plot.New()
	p.BackgroundColor = s.bg
	p.HideAxes()

	for _, m := range s.markers {
		// screen y grows downward, plot y upward
		xys := plotter.XYs{{X: float64(m.p.X), Y: float64(s.viewport.Height - m.p.Y)}}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to build marker: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Color = m.color
		sc.GlyphStyle.Radius = vg.Points(float64(m.size) / 2 * pointsPerPixel)
		p.Add(sc)
	}

	// Add widens the axes to fit its data
	p.X.Min, p.X.Max = 0, float64(s.viewport.Width)
	p.Y.Min, p.Y.Max = 0, float64(s.viewport.Height)
	return p, nil
}
