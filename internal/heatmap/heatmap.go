// internal/heatmap/heatmap.go
//
// Rasterizes the hue(x) × saturation(y) field that the browser shows as
// the clickable canvas.
// Responsibilities:
//   - Render the full field at a capped resolution (the field varies
//     smoothly, so the cap only trades anti-aliasing fidelity for
//     throughput, never correctness).
//   - Upscale to the requested display size with bilinear smoothing.
//   - Provide a coarse direct-fill fallback so the game stays playable
//     if the primary raster path fails.

package heatmap

import (
	"errors"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/huehunt/go-server/internal/colorspace"
)

// DefaultCap bounds the render-grid width. Deployments on constrained
// hardware can lower it via config.
const DefaultCap = 360

// ErrZeroSize is returned when either display dimension is zero; callers
// skip the render and retry once layout is known.
var ErrZeroSize = errors.New("heatmap: zero-size surface")

// Renderer produces heatmap images up to a fixed internal resolution.
type Renderer struct {
	cap int
}

// NewRenderer builds a Renderer with the given resolution cap.
// Non-positive caps fall back to DefaultCap.
func NewRenderer(resolutionCap int) *Renderer {
	if resolutionCap <= 0 {
		resolutionCap = DefaultCap
	}
	return &Renderer{cap: resolutionCap}
}

// Render returns a displayW × displayH image of the hue/saturation
// field. The field is computed per-pixel on a grid no wider than the
// cap and then scaled up with bilinear interpolation.
func (r *Renderer) Render(displayW, displayH int) (*image.RGBA, error) {
	if displayW <= 0 || displayH <= 0 {
		return nil, ErrZeroSize
	}

	renderW := displayW
	if renderW > r.cap {
		renderW = r.cap
	}
	renderH := displayH
	if maxH := r.cap * displayH / displayW; renderH > maxH {
		renderH = maxH
	}
	if renderH < 1 {
		renderH = 1
	}

	src := rasterize(renderW, renderH)
	if renderW == displayW && renderH == displayH {
		return src, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, displayW, displayH))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// RenderFallback fills the display surface directly on a coarse grid,
// skipping the scaler entirely. Visibly blockier, but it cannot fail on
// a positive-size surface.
func (r *Renderer) RenderFallback(displayW, displayH int) (*image.RGBA, error) {
	if displayW <= 0 || displayH <= 0 {
		return nil, ErrZeroSize
	}
	const cell = 8
	img := image.NewRGBA(image.Rect(0, 0, displayW, displayH))
	for y := 0; y < displayH; y += cell {
		for x := 0; x < displayW; x += cell {
			c := colorspace.FromPosition(float64(x), float64(y), float64(displayW), float64(displayH))
			cr, cg, cb := c.RGB()
			for dy := 0; dy < cell && y+dy < displayH; dy++ {
				row := img.PixOffset(0, y+dy)
				for dx := 0; dx < cell && x+dx < displayW; dx++ {
					o := row + (x+dx)*4
					img.Pix[o+0] = cr
					img.Pix[o+1] = cg
					img.Pix[o+2] = cb
					img.Pix[o+3] = 255
				}
			}
		}
	}
	return img, nil
}

// rasterize computes every pixel of the w×h grid: 4 bytes (R,G,B,255)
// per pixel, hue left→right, saturation top→bottom.
func rasterize(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fw, fh := float64(w), float64(h)
	for y := 0; y < h; y++ {
		o := img.PixOffset(0, y)
		for x := 0; x < w; x++ {
			c := colorspace.FromPosition(float64(x), float64(y), fw, fh)
			r, g, b := c.RGB()
			img.Pix[o+0] = r
			img.Pix[o+1] = g
			img.Pix[o+2] = b
			img.Pix[o+3] = 255
			o += 4
		}
	}
	return img
}
