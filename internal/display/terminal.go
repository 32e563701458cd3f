// Package display provides the concrete drawing surfaces for the render loop:
// a tcell terminal that also reports quit key presses, and a headless
// gonum/plot snapshot writer.
package display

import (
	"image"
	"image/color"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/banshee-data/beamcross/internal/geometry"
)

// Terminal draws markers as box-drawing crosshairs on a tcell screen. The
// pixel viewport is scaled onto whatever cell grid the terminal has.
type Terminal struct {
	screen   tcell.Screen
	viewport geometry.Viewport
	bg       tcell.Style

	events chan tcell.Event
	wg     sync.WaitGroup
	once   sync.Once
}

// NewTerminal opens the controlling terminal.
func NewTerminal(vp geometry.Viewport) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewTerminalWithScreen(screen, vp)
}

// NewTerminalWithScreen initialises screen and starts forwarding its events.
// Tests pass a tcell simulation screen.
func NewTerminalWithScreen(screen tcell.Screen, vp geometry.Viewport) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()

	t := &Terminal{
		screen:   screen,
		viewport: vp,
		bg:       tcell.StyleDefault,
		events:   make(chan tcell.Event, 100),
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				// PollEvent returns nil once the screen is finalised
				return
			}
			select {
			case t.events <- ev:
			default:
			}
		}
	}()

	return t, nil
}

// QuitRequested drains pending events and reports whether Esc, q or Ctrl-C
// was pressed. It never blocks.
func (t *Terminal) QuitRequested() bool {
	for {
		select {
		case ev := <-t.events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if isQuitKey(ev) {
					return true
				}
			case *tcell.EventResize:
				t.screen.Sync()
			}
		default:
			return false
		}
	}
}

func isQuitKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		r := ev.Rune()
		if ev.Modifiers()&tcell.ModCtrl != 0 {
			return r == 'c' || r == 'C'
		}
		return r == 'q' || r == 'Q'
	}
	return false
}

// Clear fills the screen with c.
func (t *Terminal) Clear(c color.Color) {
	t.bg = tcell.StyleDefault.Background(tcell.FromImageColor(c))
	t.screen.Fill(' ', t.bg)
}

// DrawMarker draws a crosshair centred on the cell that contains p.
func (t *Terminal) DrawMarker(p image.Point, size int, c color.Color) {
	cols, rows := t.screen.Size()
	if cols <= 0 || rows <= 0 || t.viewport.Width <= 0 || t.viewport.Height <= 0 {
		return
	}

	x, y := t.toCell(p, cols, rows)
	armX := max(1, size/2*cols/t.viewport.Width)
	armY := max(1, size/2*rows/t.viewport.Height)
	style := t.bg.Foreground(tcell.FromImageColor(c))

	for dx := -armX; dx <= armX; dx++ {
		t.set(x+dx, y, '─', style, cols, rows)
	}
	for dy := -armY; dy <= armY; dy++ {
		t.set(x, y+dy, '│', style, cols, rows)
	}
	t.set(x, y, '┼', style, cols, rows)
}

// toCell maps a pixel to its cell. Pixels left of or above the viewport map
// to negative cells and get clipped.
func (t *Terminal) toCell(p image.Point, cols, rows int) (int, int) {
	return floorDiv(p.X*cols, t.viewport.Width), floorDiv(p.Y*rows, t.viewport.Height)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (t *Terminal) set(x, y int, r rune, style tcell.Style, cols, rows int) {
	if x < 0 || y < 0 || x >= cols || y >= rows {
		return
	}
	t.screen.SetContent(x, y, r, nil, style)
}

// Present shows the frame.
func (t *Terminal) Present() error {
	t.screen.Show()
	return nil
}

// Close restores the terminal and stops event forwarding.
func (t *Terminal) Close() error {
	t.once.Do(func() {
		t.screen.Fini()
		t.wg.Wait()
	})
	return nil
}
