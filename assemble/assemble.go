// Package assemble writes redacted page images back out as an image-only PDF.
//
// Each page becomes a one-page PDF holding a single JPEG; the pages are then
// merged in order and validated before the result replaces the output path.
package assemble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/wudi/redactkit/raster"
)

// DefaultQuality is the JPEG quality used when Assembler.Quality is zero.
const DefaultQuality = 90

// ErrNoPages is returned when there is nothing to assemble.
var ErrNoPages = errors.New("assemble: no pages")

var disableConfigDir sync.Once

// Assembler turns pages into a PDF. The zero value is ready to use.
type Assembler struct {
	// Quality is the JPEG quality, 1..100.
	Quality int
	// TempDir is the parent of the private working directory. Empty means
	// os.TempDir.
	TempDir string
}

// Assemble writes pages to outPath with default settings.
func Assemble(ctx context.Context, pages []*raster.Page, outPath string) error {
	return (&Assembler{}).Assemble(ctx, pages, outPath)
}

func (a *Assembler) quality() int {
	if a == nil || a.Quality < 1 || a.Quality > 100 {
		return DefaultQuality
	}
	return a.Quality
}

// Assemble writes pages, in order, to outPath. On error outPath is left
// untouched.
func (a *Assembler) Assemble(ctx context.Context, pages []*raster.Page, outPath string) error {
	if len(pages) == 0 {
		return ErrNoPages
	}
	disableConfigDir.Do(api.DisableConfigDir)

	var parent string
	if a != nil {
		parent = a.TempDir
	}
	work, err := os.MkdirTemp(parent, "redact-assemble-*")
	if err != nil {
		return fmt.Errorf("assemble: temp dir: %w", err)
	}
	defer os.RemoveAll(work)

	files := make([]string, 0, len(pages))
	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.Join(work, fmt.Sprintf("page-%05d.pdf", i))
		if err := writePage(p, name, a.quality()); err != nil {
			return fmt.Errorf("assemble: page %d: %w", p.Index, err)
		}
		files = append(files, name)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+".*")
	if err != nil {
		return fmt.Errorf("assemble: create output: %w", err)
	}
	tmpName := tmp.Name()
	tmp.Close()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	conf := model.NewDefaultConfiguration()
	if err := api.MergeCreateFile(files, tmpName, false, conf); err != nil {
		return fmt.Errorf("assemble: merge: %w", err)
	}
	if err := api.ValidateFile(tmpName, conf); err != nil {
		return fmt.Errorf("assemble: validate: %w", err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	committed = true
	return nil
}

// writePage stores p as a one-page PDF at path. One pixel maps to 72/DPI
// points so the page keeps its physical size.
func writePage(p *raster.Page, path string, quality int) error {
	dpi := p.DPI
	if dpi <= 0 {
		dpi = raster.DefaultDPI
	}
	b := p.Bounds()
	if b.Empty() {
		return errors.New("empty image")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, p.Image, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}

	w := float64(b.Dx()) * 72 / float64(dpi)
	h := float64(b.Dy()) * 72 / float64(dpi)
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("page", opts, &buf)
	pdf.ImageOptions("page", 0, 0, w, h, false, opts, 0, "")
	return pdf.OutputFileAndClose(path)
}
