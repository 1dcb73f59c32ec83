package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wudi/redactkit/anonymize"
	"github.com/wudi/redactkit/keytable"
	"github.com/wudi/redactkit/ocr"
	"github.com/wudi/redactkit/raster"
)

// Documents are told apart by the width of their rasterized pages.
var fixtures = map[string]struct {
	width int
	text  string
	words []ocr.Word
}{
	"smith.pdf": {
		width: 300,
		text:  "Name: Smith, John\nEmail: john@x.org",
		words: []ocr.Word{
			{Text: "Name:", Left: 10, Top: 100, Width: 50, Height: 20},
			{Text: "Smith,", Left: 70, Top: 100, Width: 60, Height: 20},
			{Text: "John", Left: 140, Top: 100, Width: 40, Height: 20},
		},
	},
	"anonymous.pdf": {
		width: 320,
		text:  "Personal statement",
		words: []ocr.Word{{Text: "Personal", Left: 10, Top: 100, Width: 80, Height: 20}},
	},
}

type widthEngine struct{}

func (widthEngine) Name() string { return "width" }

func (widthEngine) Recognize(_ context.Context, in ocr.Input) (ocr.Result, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Image))
	if err != nil {
		return ocr.Result{}, err
	}
	for _, f := range fixtures {
		if f.width == cfg.Width {
			return ocr.Result{PlainText: f.text, Words: f.words}, nil
		}
	}
	return ocr.Result{}, nil
}

func fakeRasterizer(_ context.Context, path string) ([]*raster.Page, error) {
	f, ok := fixtures[filepath.Base(path)]
	if !ok {
		return nil, errors.New("cannot open " + path)
	}
	img := image.NewRGBA(image.Rect(0, 0, f.width, 200))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return raster.FromImages(100, img), nil
}

func newRunner(t *testing.T, workers int) *Runner {
	t.Helper()
	return &Runner{
		NewAnonymizer: func() (*anonymize.Anonymizer, error) {
			return &anonymize.Anonymizer{
				Rasterizer: raster.Func(fakeRasterizer),
				Engine:     widthEngine{},
			}, nil
		},
		Workers: workers,
		WorkDir: t.TempDir(),
	}
}

func readZip(t *testing.T, path string) map[string][]byte {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = data
	}
	return out
}

func TestRunIsolatesFailuresAndKeepsOrder(t *testing.T) {
	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			r := newRunner(t, workers)
			var progress []int
			r.Progress = func(done, total int) {
				if total != 3 {
					t.Errorf("total = %d, want 3", total)
				}
				progress = append(progress, done)
			}
			archive := filepath.Join(t.TempDir(), "out.zip")

			rep, err := r.Run(context.Background(), []string{"in/smith.pdf", "in/broken.pdf", "in/anonymous.pdf"}, archive)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			wantEntries := []keytable.Entry{
				{ID: "0001", Name: "John Smith"},
				{ID: "0002", Name: UnknownName},
				{ID: "0003", Name: UnknownName},
			}
			for i, o := range rep.Outcomes {
				if o.Entry != wantEntries[i] {
					t.Fatalf("outcome %d entry = %+v, want %+v", i, o.Entry, wantEntries[i])
				}
			}
			if rep.Outcomes[1].OK() || !rep.Outcomes[0].OK() || !rep.Outcomes[2].OK() {
				t.Fatalf("only the broken document should fail: %+v", rep.Outcomes)
			}
			if rep.Failed() != 1 {
				t.Fatalf("Failed() = %d, want 1", rep.Failed())
			}
			if len(progress) != 3 || progress[2] != 3 {
				t.Fatalf("progress = %v", progress)
			}

			files := readZip(t, archive)
			for _, name := range []string{"anonymized_0001.pdf", "anonymized_0003.pdf"} {
				if !bytes.HasPrefix(files[name], []byte("%PDF")) {
					t.Fatalf("%s missing or not a PDF", name)
				}
			}
			if _, ok := files["anonymized_0002.pdf"]; ok {
				t.Fatalf("failed document must not be archived")
			}

			tbl, err := keytable.ReadXLSX(bytes.NewReader(files[KeyTableName]))
			if err != nil {
				t.Fatalf("ReadXLSX() error = %v", err)
			}
			got := tbl.Entries()
			if len(got) != len(wantEntries) {
				t.Fatalf("key table rows = %d, want %d", len(got), len(wantEntries))
			}
			for i := range got {
				if got[i] != wantEntries[i] {
					t.Fatalf("key row %d = %+v, want %+v", i, got[i], wantEntries[i])
				}
			}

			for _, name := range []string{ReportMarkdownName, ReportHTMLName} {
				body := string(files[name])
				if !strings.Contains(body, "0002") {
					t.Fatalf("%s should list every id", name)
				}
				for _, leak := range []string{"Smith", "John", "john@x.org", "broken.pdf"} {
					if strings.Contains(body, leak) {
						t.Fatalf("%s leaks %q", name, leak)
					}
				}
			}
			if !strings.Contains(string(files[ReportHTMLName]), "<table>") {
				t.Fatalf("html report should render the table")
			}
		})
	}
}

func TestRunSealsKeyTable(t *testing.T) {
	r := newRunner(t, 1)
	r.KeyPassphrase = "s3cret"
	archive := filepath.Join(t.TempDir(), "out.zip")
	if _, err := r.Run(context.Background(), []string{"smith.pdf"}, archive); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	files := readZip(t, archive)
	if _, ok := files[KeyTableName]; ok {
		t.Fatalf("plain key table must not be archived when sealing")
	}
	plain, err := keytable.Open(files[SealedKeyTableName], "s3cret")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	tbl, err := keytable.ReadXLSX(bytes.NewReader(plain))
	if err != nil {
		t.Fatalf("ReadXLSX() error = %v", err)
	}
	if e := tbl.Entries(); len(e) != 1 || e[0].Name != "John Smith" {
		t.Fatalf("entries = %+v", e)
	}
}

func TestRunReportsPageProgress(t *testing.T) {
	r := newRunner(t, 1)
	var calls []string
	r.PageProgress = func(id string, done, total int) {
		calls = append(calls, fmt.Sprintf("%s:%d/%d", id, done, total))
	}
	if _, err := r.Run(context.Background(), []string{"smith.pdf", "anonymous.pdf"}, filepath.Join(t.TempDir(), "out.zip")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"0001:1/1", "0002:1/1"}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Fatalf("page progress = %v, want %v", calls, want)
	}
}

func TestRunNoInputs(t *testing.T) {
	_, err := newRunner(t, 1).Run(context.Background(), nil, filepath.Join(t.TempDir(), "out.zip"))
	if !errors.Is(err, ErrNoInputs) {
		t.Fatalf("Run() error = %v, want ErrNoInputs", err)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	archive := filepath.Join(t.TempDir(), "out.zip")
	if _, err := newRunner(t, 2).Run(ctx, []string{"smith.pdf", "anonymous.pdf"}, archive); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Fatalf("no archive should be written when canceled")
	}
}

func TestRunWorkerSetupFailure(t *testing.T) {
	r := newRunner(t, 2)
	boom := errors.New("no tessdata")
	r.NewAnonymizer = func() (*anonymize.Anonymizer, error) { return nil, boom }
	if _, err := r.Run(context.Background(), []string{"smith.pdf"}, filepath.Join(t.TempDir(), "out.zip")); !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
}

func TestScratchDirRemoved(t *testing.T) {
	r := newRunner(t, 1)
	if _, err := r.Run(context.Background(), []string{"smith.pdf"}, filepath.Join(t.TempDir(), "out.zip")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	left, err := os.ReadDir(r.WorkDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Fatalf("scratch left behind: %v", left)
	}
}

func TestID(t *testing.T) {
	if ID(0) != "0001" || ID(41) != "0042" || ID(9999) != "10000" {
		t.Fatalf("unexpected ids: %s %s %s", ID(0), ID(41), ID(9999))
	}
}
