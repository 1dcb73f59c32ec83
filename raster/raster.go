// Package raster turns a source document into an ordered sequence of page
// rasters. The redaction pipeline owns each Page exclusively while it is being
// processed and paints over its pixels in place.
package raster

import (
	"context"
	"errors"
	"image"
	"image/draw"
)

// DefaultDPI matches the resolution poppler-based converters use by default.
const DefaultDPI = 200

// ErrNoPages is returned when a document renders to zero pages.
var ErrNoPages = errors.New("raster: document has no pages")

// Page is one rendered page and its zero-based position in the document.
type Page struct {
	Index int
	Image draw.Image
	// DPI is the resolution the page was rendered at; zero means unknown.
	DPI int
}

// Bounds returns the pixel bounds of the page image.
func (p *Page) Bounds() image.Rectangle { return p.Image.Bounds() }

// Rasterizer renders every page of the document at path, in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string) ([]*Page, error)
}

// Func adapts a plain function to the Rasterizer interface.
type Func func(ctx context.Context, path string) ([]*Page, error)

// Rasterize calls f.
func (f Func) Rasterize(ctx context.Context, path string) ([]*Page, error) { return f(ctx, path) }

// FromImages wraps already-decoded images as pages. Images that are not
// drawable are copied into RGBA buffers so they can be painted over.
func FromImages(dpi int, imgs ...image.Image) []*Page {
	pages := make([]*Page, 0, len(imgs))
	for i, img := range imgs {
		pages = append(pages, &Page{Index: i, Image: Drawable(img), DPI: dpi})
	}
	return pages
}

// Drawable returns img itself when it already supports Set, otherwise an RGBA
// copy of it.
func Drawable(img image.Image) draw.Image {
	if d, ok := img.(draw.Image); ok {
		return d
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
