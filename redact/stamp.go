package redact

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// StampSize is the label height in pixels.
	StampSize = 30
	// StampTop is the gap between the top edge and the label's ascent line.
	StampTop = 20
)

var goRegular = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// newStampFace returns a fresh face; faces are not safe for concurrent use.
func newStampFace() (font.Face, error) {
	f, err := goRegular()
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    StampSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Stamp draws label horizontally centered, StampTop pixels below the top edge
// of img, in c.
func Stamp(img draw.Image, label string, c color.Color) error {
	face, err := newStampFace()
	if err != nil {
		return err
	}
	defer face.Close()

	ink, _ := font.BoundString(face, label)
	width := (ink.Max.X - ink.Min.X).Ceil()
	b := img.Bounds()
	x := b.Min.X + (b.Dx()-width)/2 - ink.Min.X.Floor()
	y := b.Min.Y + StampTop + face.Metrics().Ascent.Ceil()

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
	return nil
}
