package anonymize

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/wudi/redactkit/ocr"
	"github.com/wudi/redactkit/raster"
)

type fakeEngine struct {
	pages map[int]ocr.Result
	fail  map[int]error
	calls []int
	last  ocr.Input
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, in ocr.Input) (ocr.Result, error) {
	f.calls = append(f.calls, in.PageIndex)
	f.last = in
	if err := f.fail[in.PageIndex]; err != nil {
		return ocr.Result{}, err
	}
	return f.pages[in.PageIndex], nil
}

func word(text string, left, top, w, h int) ocr.Word {
	return ocr.Word{Text: text, Left: left, Top: top, Width: w, Height: h}
}

func blankPages(n int) []*raster.Page {
	imgs := make([]image.Image, n)
	for i := range imgs {
		img := image.NewRGBA(image.Rect(0, 0, 300, 200))
		draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
		imgs[i] = img
	}
	return raster.FromImages(100, imgs...)
}

func rasterizerFor(pages []*raster.Page) raster.Rasterizer {
	return raster.Func(func(context.Context, string) ([]*raster.Page, error) { return pages, nil })
}

func dark(c color.Color) bool {
	r, _, _, _ := c.RGBA()
	return r < 0x8000
}

func sampleEngine() *fakeEngine {
	return &fakeEngine{pages: map[int]ocr.Result{
		0: {
			PlainText: "Name: Smith, John\nEmail: john@x.org",
			Words: []ocr.Word{
				word("Name:", 10, 100, 50, 20),
				word("Smith,", 70, 100, 60, 20),
				word("John", 140, 100, 40, 20),
			},
		},
		1: {
			PlainText: "SMITH JOHN@X.ORG",
			Words: []ocr.Word{
				word("SMITH", 10, 100, 60, 20),
				word("JOHN@X.ORG", 80, 100, 150, 20),
			},
		},
	}}
}

func TestRunRedactsAndAssembles(t *testing.T) {
	pages := blankPages(2)
	engine := sampleEngine()
	out := filepath.Join(t.TempDir(), "anonymized_0001.pdf")

	var progress [][2]int
	a := &Anonymizer{Rasterizer: rasterizerFor(pages), Engine: engine}
	res, err := a.Run(context.Background(), "in.pdf", out, "0001", func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Identity.Name != "John Smith" || res.Identity.Email != "john@x.org" {
		t.Fatalf("identity = %+v", res.Identity)
	}
	if res.Pages != 2 {
		t.Fatalf("pages = %d, want 2", res.Pages)
	}
	// Page 0: "Smith,", "John" and "Smith, John" each hit in two casings.
	// Page 1: "SMITH" in two casings plus the email.
	if res.Boxes != 9 {
		t.Fatalf("boxes = %d, want 9", res.Boxes)
	}
	if len(progress) != 2 || progress[0] != [2]int{1, 2} || progress[1] != [2]int{2, 2} {
		t.Fatalf("progress = %v", progress)
	}
	if len(engine.calls) != 2 {
		t.Fatalf("page 0 should be recognized once, calls = %v", engine.calls)
	}

	if !dark(pages[0].Image.At(100, 110)) || !dark(pages[1].Image.At(150, 110)) {
		t.Fatalf("name and email spans should be painted")
	}
	if dark(pages[0].Image.At(5, 110)) || dark(pages[0].Image.At(35, 110)) {
		t.Fatalf("unrelated words should stay untouched")
	}
	if !hasInk(pages[0].Image, 0, 60) {
		t.Fatalf("page 0 should carry the stamp")
	}
	if hasInk(pages[1].Image, 0, 60) {
		t.Fatalf("page 1 must not carry the stamp")
	}

	n, err := api.PageCountFile(out)
	if err != nil || n != 2 {
		t.Fatalf("PageCountFile() = %d, %v", n, err)
	}
}

func hasInk(img image.Image, y0, y1 int) bool {
	b := img.Bounds()
	for y := y0; y < y1; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if dark(img.At(x, y)) {
				return true
			}
		}
	}
	return false
}

func TestRunWithoutNameStillRedactsEmail(t *testing.T) {
	pages := blankPages(1)
	engine := &fakeEngine{pages: map[int]ocr.Result{
		0: {
			PlainText: "Applicant record\nEmail: a.b@c.org",
			Words: []ocr.Word{
				word("Smith", 10, 100, 50, 20),
				word("a.b@c.org", 70, 100, 100, 20),
			},
		},
	}}
	out := filepath.Join(t.TempDir(), "out.pdf")
	a := &Anonymizer{Rasterizer: rasterizerFor(pages), Engine: engine}
	res, err := a.Run(context.Background(), "in.pdf", out, "0002", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Identity.HasName() {
		t.Fatalf("expected no name, got %q", res.Identity.Name)
	}
	if res.Boxes != 1 {
		t.Fatalf("boxes = %d, want 1", res.Boxes)
	}
	if dark(pages[0].Image.At(30, 110)) {
		t.Fatalf("name pass must not run without a name")
	}
}

func TestRunPropagatesOCRFailure(t *testing.T) {
	engine := sampleEngine()
	engine.fail = map[int]error{1: errors.New("tesseract crashed")}
	out := filepath.Join(t.TempDir(), "out.pdf")

	a := &Anonymizer{Rasterizer: rasterizerFor(blankPages(2)), Engine: engine}
	_, err := a.Run(context.Background(), "in.pdf", out, "0003", nil)
	if err == nil || !strings.Contains(err.Error(), "ocr page 1") {
		t.Fatalf("Run() error = %v, want OCR failure for page 1", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("no output should be written on failure")
	}
}

func TestRunNoPages(t *testing.T) {
	a := &Anonymizer{Rasterizer: rasterizerFor(nil), Engine: sampleEngine()}
	_, err := a.Run(context.Background(), "in.pdf", filepath.Join(t.TempDir(), "out.pdf"), "0004", nil)
	if !errors.Is(err, raster.ErrNoPages) {
		t.Fatalf("Run() error = %v, want ErrNoPages", err)
	}
}

func TestRunRasterizeFailure(t *testing.T) {
	boom := errors.New("not a pdf")
	a := &Anonymizer{
		Rasterizer: raster.Func(func(context.Context, string) ([]*raster.Page, error) { return nil, boom }),
		Engine:     sampleEngine(),
	}
	_, err := a.Run(context.Background(), "in.pdf", filepath.Join(t.TempDir(), "out.pdf"), "0005", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
}

func TestRunPassesOCROptions(t *testing.T) {
	engine := sampleEngine()
	a := &Anonymizer{
		Rasterizer:   rasterizerFor(blankPages(1)),
		Engine:       engine,
		Languages:    []string{"eng", "deu"},
		InputOptions: []ocr.InputOption{ocr.WithTesseractPSM(6)},
	}
	if _, err := a.Run(context.Background(), "in.pdf", filepath.Join(t.TempDir(), "out.pdf"), "0006", nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	in := engine.last
	if in.DPI != 100 || len(in.Languages) != 2 || in.Metadata["tessedit_pageseg_mode"] != "6" {
		t.Fatalf("unexpected OCR input: dpi=%d langs=%v meta=%v", in.DPI, in.Languages, in.Metadata)
	}
}

func TestRunRequiresCollaborators(t *testing.T) {
	if _, err := (&Anonymizer{}).Run(context.Background(), "a", "b", "0001", nil); err == nil {
		t.Fatalf("expected an error without rasterizer and engine")
	}
}
