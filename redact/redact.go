// Package redact finds the spans of a page's OCR words that render the
// applicant's name or email address and paints opaque boxes over them.
//
// Matching slides a window over the word list: for each start index and each
// candidate of n tokens, the next n words are joined with single spaces and
// compared with the candidate under Unicode case folding. Every hit paints
// the union of the spanned word boxes. Overlapping hits are all painted;
// painting is idempotent.
package redact

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/wudi/redactkit/ocr"
	"github.com/wudi/redactkit/raster"
	"github.com/wudi/redactkit/variants"
	"golang.org/x/text/cases"
)

// Box is a redaction rectangle in page pixels. X2 and Y2 are the right and
// bottom edges of the spanned words; painting covers X1..X2 and Y1..Y2
// inclusive.
type Box struct {
	X1, Y1, X2, Y2 int
}

// Rect returns the pixel rectangle painted for b.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2+1, b.Y2+1)
}

// Union returns the smallest box covering words.
func Union(words []ocr.Word) Box {
	if len(words) == 0 {
		return Box{}
	}
	b := Box{X1: words[0].Left, Y1: words[0].Top, X2: words[0].Right(), Y2: words[0].Bottom()}
	for _, w := range words[1:] {
		b.X1 = min(b.X1, w.Left)
		b.Y1 = min(b.Y1, w.Top)
		b.X2 = max(b.X2, w.Right())
		b.Y2 = max(b.Y2, w.Bottom())
	}
	return b
}

type target struct {
	folded string
	tokens int
}

// FindSpans returns one box per match of any variant in set or of email
// against words. The name pass is skipped for an empty set and the email pass
// for an empty email.
func FindSpans(words []ocr.Word, set variants.Set, email string) []Box {
	fold := cases.Fold()
	var boxes []Box
	if set.Len() > 0 {
		vs := set.Variants()
		targets := make([]target, 0, len(vs))
		for _, v := range vs {
			targets = append(targets, target{folded: fold.String(v.Text), tokens: v.Tokens})
		}
		boxes = append(boxes, scan(words, targets, fold)...)
	}
	if email != "" {
		t := target{folded: fold.String(email), tokens: len(strings.Fields(email))}
		boxes = append(boxes, scan(words, []target{t}, fold)...)
	}
	return boxes
}

func scan(words []ocr.Word, targets []target, fold cases.Caser) []Box {
	var boxes []Box
	// joined caches the folded window text per width for the current start.
	joined := make(map[int]string)
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	for j := range words {
		clear(joined)
		for _, t := range targets {
			n := t.tokens
			if n == 0 || j+n > len(words) {
				continue
			}
			window, ok := joined[n]
			if !ok {
				window = fold.String(strings.Join(texts[j:j+n], " "))
				joined[n] = window
			}
			if window == t.folded {
				boxes = append(boxes, Union(words[j:j+n]))
			}
		}
	}
	return boxes
}

// Paint fills every box with c in place. Boxes are clipped to the image.
func Paint(img draw.Image, boxes []Box, c color.Color) {
	src := image.NewUniform(c)
	for _, b := range boxes {
		r := b.Rect().Intersect(img.Bounds())
		if r.Empty() {
			continue
		}
		draw.Draw(img, r, src, image.Point{}, draw.Src)
	}
}

// Redactor applies the name and email passes and the identifier stamp to
// pages. The zero value paints and stamps in black.
type Redactor struct {
	Fill color.Color
	Ink  color.Color
}

func (r *Redactor) fill() color.Color {
	if r == nil || r.Fill == nil {
		return color.Black
	}
	return r.Fill
}

func (r *Redactor) ink() color.Color {
	if r == nil || r.Ink == nil {
		return color.Black
	}
	return r.Ink
}

// Page redacts one page in place and returns the boxes it painted. The
// "ID: identifier" label is stamped on page index 0 only, after the boxes.
func (r *Redactor) Page(p *raster.Page, words []ocr.Word, set variants.Set, email, identifier string) ([]Box, error) {
	boxes := FindSpans(words, set, email)
	Paint(p.Image, boxes, r.fill())
	if p.Index == 0 {
		if err := Stamp(p.Image, Label(identifier), r.ink()); err != nil {
			return boxes, fmt.Errorf("stamp page 0: %w", err)
		}
	}
	return boxes, nil
}

// Label formats the identifier stamp text.
func Label(identifier string) string { return "ID: " + identifier }
