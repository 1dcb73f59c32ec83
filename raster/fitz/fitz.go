// Package fitz renders PDF pages with MuPDF through the go-fitz binding.
package fitz

import (
	"context"
	"fmt"

	gofitz "github.com/gen2brain/go-fitz"
	"github.com/wudi/redactkit/raster"
)

// Rasterizer renders pages at a fixed resolution.
type Rasterizer struct {
	DPI int
}

var _ raster.Rasterizer = (*Rasterizer)(nil)

// New returns a Rasterizer rendering at dpi, or raster.DefaultDPI when dpi is
// not positive.
func New(dpi int) *Rasterizer {
	if dpi <= 0 {
		dpi = raster.DefaultDPI
	}
	return &Rasterizer{DPI: dpi}
}

// Rasterize renders every page of the PDF at path. Rendering checks ctx
// between pages only; a page that has started rendering runs to completion.
func (r *Rasterizer) Rasterize(ctx context.Context, path string) ([]*raster.Page, error) {
	doc, err := gofitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return nil, raster.ErrNoPages
	}
	pages := make([]*raster.Page, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, float64(r.DPI))
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i, err)
		}
		pages = append(pages, &raster.Page{Index: i, Image: img, DPI: r.DPI})
	}
	return pages, nil
}
