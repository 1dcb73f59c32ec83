// Package anonymize runs one scanned document through the redaction
// pipeline: rasterize, read the applicant's identity from page 0, expand the
// name, redact every page and assemble the output PDF.
package anonymize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wudi/redactkit/assemble"
	"github.com/wudi/redactkit/identity"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/ocr"
	"github.com/wudi/redactkit/raster"
	"github.com/wudi/redactkit/redact"
	"github.com/wudi/redactkit/variants"
)

// Result summarizes one processed document.
type Result struct {
	Identity identity.Record
	Pages    int
	Boxes    int
}

// Anonymizer wires the pipeline stages together. Rasterizer and Engine are
// required; every other field falls back to its zero value.
type Anonymizer struct {
	Rasterizer raster.Rasterizer
	Engine     ocr.Engine
	Identity   *identity.Extractor
	Variants   *variants.Generator
	Redactor   *redact.Redactor
	Assembler  *assemble.Assembler

	// Languages are passed to the OCR engine. Empty means the engine default.
	Languages []string
	// InputOptions are applied to every page submitted for OCR.
	InputOptions []ocr.InputOption

	Logger observability.Logger
	Tracer observability.Tracer
}

func (a *Anonymizer) tracer() observability.Tracer {
	if a.Tracer == nil {
		return observability.NopTracer()
	}
	return a.Tracer
}

// Run anonymizes the PDF at inPath into outPath, stamping identifier on the
// first page. progress, if non-nil, is called after each page is redacted.
func (a *Anonymizer) Run(ctx context.Context, inPath, outPath, identifier string, progress func(done, total int)) (res Result, err error) {
	if a.Rasterizer == nil || a.Engine == nil {
		return Result{}, errors.New("anonymize: rasterizer and OCR engine are required")
	}
	log := observability.OrNop(a.Logger).With(observability.String("id", identifier))
	ctx, span := a.tracer().StartSpan(ctx, observability.SpanDocument)
	span.SetTag("id", identifier)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()

	start := time.Now()
	pages, err := a.Rasterizer.Rasterize(ctx, inPath)
	if err != nil {
		return Result{}, fmt.Errorf("rasterize: %w", err)
	}
	if len(pages) == 0 {
		return Result{}, raster.ErrNoPages
	}
	res.Pages = len(pages)
	log.Debug("rasterized", observability.Int("pages", len(pages)), observability.Duration("elapsed", time.Since(start)))

	first, err := a.recognize(ctx, pages[0])
	if err != nil {
		return res, err
	}
	rec, err := a.Identity.Extract(ctx, first.PlainText)
	if err != nil {
		log.Warn("name recognizer failed", observability.Error("error", err))
	}
	res.Identity = rec
	log.Debug("identity", observability.Bool("has_name", rec.HasName()), observability.Bool("has_email", rec.HasEmail()))

	var set variants.Set
	if rec.HasName() {
		set, err = a.generator().Generate(ctx, rec.Name)
		if err != nil {
			return res, err
		}
		log.Debug("variants", observability.Int("count", set.Len()))
	}

	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		words := first.Words
		if i > 0 {
			r, err := a.recognize(ctx, p)
			if err != nil {
				return res, err
			}
			words = r.Words
		}
		boxes, err := a.Redactor.Page(p, words, set, rec.Email, identifier)
		if err != nil {
			return res, fmt.Errorf("page %d: %w", p.Index, err)
		}
		res.Boxes += len(boxes)
		log.Debug("page redacted", observability.Int("page", p.Index), observability.Int("boxes", len(boxes)))
		if progress != nil {
			progress(i+1, len(pages))
		}
	}

	actx, aspan := a.tracer().StartSpan(ctx, observability.SpanAssemble)
	err = a.Assembler.Assemble(actx, pages, outPath)
	if err != nil {
		aspan.SetError(err)
	}
	aspan.Finish()
	if err != nil {
		return res, err
	}
	log.Debug("document done", observability.Int("boxes", res.Boxes), observability.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (a *Anonymizer) recognize(ctx context.Context, p *raster.Page) (ocr.Result, error) {
	ctx, span := a.tracer().StartSpan(ctx, observability.SpanPage)
	span.SetTag("page", p.Index)
	defer span.Finish()

	opts := []ocr.InputOption{ocr.WithDPI(p.DPI)}
	if len(a.Languages) > 0 {
		opts = append(opts, ocr.WithLanguages(a.Languages...))
	}
	opts = append(opts, a.InputOptions...)
	in, err := ocr.InputFromImage(p.Index, p.Image, opts...)
	if err != nil {
		span.SetError(err)
		return ocr.Result{}, err
	}
	r, err := a.Engine.Recognize(ctx, in)
	if err != nil {
		span.SetError(err)
		return ocr.Result{}, fmt.Errorf("ocr page %d: %w", p.Index, err)
	}
	return r, nil
}

func (a *Anonymizer) generator() *variants.Generator {
	if a.Variants == nil {
		return &variants.Generator{}
	}
	return a.Variants
}
