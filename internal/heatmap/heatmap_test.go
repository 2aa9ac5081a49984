package heatmap

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huehunt/go-server/internal/colorspace"
)

func TestRenderZeroSize(t *testing.T) {
	r := NewRenderer(0)
	for _, dims := range [][2]int{{0, 100}, {100, 0}, {0, 0}, {-1, 50}} {
		_, err := r.Render(dims[0], dims[1])
		assert.ErrorIs(t, err, ErrZeroSize, "dims %v", dims)
		_, err = r.RenderFallback(dims[0], dims[1])
		assert.ErrorIs(t, err, ErrZeroSize, "dims %v", dims)
	}
}

func TestRenderBelowCapIsExact(t *testing.T) {
	r := NewRenderer(DefaultCap)
	img, err := r.Render(120, 80)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 120, 80), img.Bounds())

	// Below the cap there is no scaling: every pixel is the direct
	// field sample.
	for _, p := range [][2]int{{0, 0}, {60, 40}, {119, 79}} {
		x, y := p[0], p[1]
		c := colorspace.FromPosition(float64(x), float64(y), 120, 80)
		wr, wg, wb := c.RGB()
		o := img.PixOffset(x, y)
		assert.Equal(t, wr, img.Pix[o+0], "pixel %v red", p)
		assert.Equal(t, wg, img.Pix[o+1], "pixel %v green", p)
		assert.Equal(t, wb, img.Pix[o+2], "pixel %v blue", p)
		assert.EqualValues(t, 255, img.Pix[o+3], "pixel %v alpha", p)
	}
}

func TestRenderAboveCapScalesToDisplaySize(t *testing.T) {
	r := NewRenderer(64)
	img, err := r.Render(1000, 500)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1000, 500), img.Bounds())

	// The field varies smoothly, so even the scaled output must be
	// close to the direct sample. Compare mid-image against the exact
	// field color with a loose tolerance.
	c := colorspace.FromPosition(500, 250, 1000, 500)
	wr, wg, wb := c.RGB()
	o := img.PixOffset(500, 250)
	assert.InDelta(t, float64(wr), float64(img.Pix[o+0]), 16)
	assert.InDelta(t, float64(wg), float64(img.Pix[o+1]), 16)
	assert.InDelta(t, float64(wb), float64(img.Pix[o+2]), 16)
}

func TestRenderFallbackCoversSurface(t *testing.T) {
	r := NewRenderer(DefaultCap)
	img, err := r.RenderFallback(101, 51) // deliberately not cell-aligned
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 101, 51), img.Bounds())

	// Every pixel must be opaque: no gaps at the ragged edges.
	for y := 0; y < 51; y++ {
		for x := 0; x < 101; x++ {
			assert.EqualValues(t, 255, img.Pix[img.PixOffset(x, y)+3], "pixel (%d,%d)", x, y)
		}
	}
}

func TestRendererCapDefaults(t *testing.T) {
	assert.Equal(t, DefaultCap, NewRenderer(-5).cap)
	assert.Equal(t, 128, NewRenderer(128).cap)
}
