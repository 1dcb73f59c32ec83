package ocr

import "context"

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
	ImageFormatTIFF ImageFormat = "image/tiff"
)

// Input encapsulates a single page raster submitted for OCR.
type Input struct {
	// ID is an optional caller-provided identifier that is echoed back in the
	// corresponding Result.
	ID string
	// Image is the encoded image payload in the format specified by Format.
	Image []byte
	// Format declares the image content type (e.g., image/png).
	Format ImageFormat
	// PageIndex links the input back to the zero-based page it was rendered from.
	PageIndex int
	// DPI carries the effective dots-per-inch for the image. Zero means unknown.
	DPI int
	// Languages lists trained-data names (e.g., "eng", "deu").
	Languages []string
	// Metadata passes engine-specific variables through (e.g.
	// "tessedit_pageseg_mode" for Tesseract).
	Metadata map[string]string
}

// Word is a single recognized token and its bounding box in pixels, with the
// origin in the upper-left corner of the page raster.
type Word struct {
	Text   string
	Left   int
	Top    int
	Width  int
	Height int
	// Confidence is reported for diagnostics only; the redaction pipeline never
	// drops words based on it.
	Confidence float64
}

// Right returns the exclusive right edge of the word box.
func (w Word) Right() int { return w.Left + w.Width }

// Bottom returns the exclusive bottom edge of the word box.
func (w Word) Bottom() int { return w.Top + w.Height }

// Result captures OCR output for a single input image.
type Result struct {
	// InputID mirrors the Input.ID that produced this result.
	InputID string
	// PlainText is the linearized transcript, with line breaks and runs of
	// spaces as the engine emitted them.
	PlainText string
	// Words holds word-level tokens in reading order.
	Words []Word
	// Language indicates the language the engine was configured with, if known.
	Language string
}

// Texts returns the word strings of r in order.
func (r Result) Texts() []string {
	out := make([]string, len(r.Words))
	for i, w := range r.Words {
		out[i] = w.Text
	}
	return out
}

// Engine is the OCR provider contract: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}
