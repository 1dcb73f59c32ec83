package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/wudi/redactkit/anonymize"
	"github.com/wudi/redactkit/assemble"
	"github.com/wudi/redactkit/batch"
	"github.com/wudi/redactkit/identity"
	"github.com/wudi/redactkit/identity/ner"
	"github.com/wudi/redactkit/internal/config"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/ocr"
	"github.com/wudi/redactkit/ocr/tesseract"
	"github.com/wudi/redactkit/raster/fitz"
	"github.com/wudi/redactkit/scripting"
	"github.com/wudi/redactkit/variants"
)

type options struct {
	inputs  []string
	out     string
	dpi     int
	lang    string
	workers int
	quality int
	rules   string
	psm     int
	spaces  bool
	verbose bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "anonymize: config: %v\n", err)
		os.Exit(2)
	}
	opts, err := parseFlags(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "anonymize: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "anonymize: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(cfg *config.Cfg) (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: anonymize [flags] <pdf>...\n")
		flag.PrintDefaults()
	}
	out := flag.String("out", "anonymized_applications.zip", "Archive to write")
	dpi := flag.Int("dpi", cfg.DPI, "Rasterization resolution")
	lang := flag.String("lang", strings.Join(cfg.Languages, "+"), "Tesseract languages, e.g. eng+deu")
	workers := flag.Int("workers", cfg.Workers, "Documents processed in parallel")
	quality := flag.Int("quality", cfg.JPEGQuality, "JPEG quality of output pages (1-100)")
	rules := flag.String("rules", cfg.RulesPath, "JavaScript file adding name variants")
	psm := flag.Int("psm", 0, "Tesseract page segmentation mode (0 keeps the engine default)")
	spaces := flag.Bool("preserve-spaces", false, "Keep runs of spaces in the OCR transcript")
	verbose := flag.Bool("v", false, "Log per-page details")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return options{}, fmt.Errorf("missing pdf paths")
	}
	opts.inputs = flag.Args()
	opts.out = *out
	opts.dpi = *dpi
	opts.lang = *lang
	opts.workers = *workers
	opts.quality = *quality
	opts.rules = *rules
	opts.psm = *psm
	opts.spaces = *spaces
	opts.verbose = *verbose

	cfg.DPI = opts.dpi
	cfg.Languages = config.SplitLanguages(opts.lang)
	cfg.Workers = opts.workers
	cfg.JPEGQuality = opts.quality
	cfg.RulesPath = opts.rules
	if err := cfg.Validate(); err != nil {
		return options{}, err
	}
	return opts, nil
}

func run(cfg *config.Cfg, opts options) error {
	level := cfg.LogLevel
	if opts.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	logger := observability.NewSlog(slog.Default())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := &variants.Generator{}
	if cfg.RulesPath != "" {
		script, err := scripting.LoadVariantScript(cfg.RulesPath)
		if err != nil {
			return err
		}
		gen.Extenders = append(gen.Extenders, script)
		slog.Info("variant rules loaded", "path", cfg.RulesPath)
	}

	var inputOpts []ocr.InputOption
	if opts.psm > 0 {
		inputOpts = append(inputOpts, ocr.WithTesseractPSM(opts.psm))
	}
	if opts.spaces {
		inputOpts = append(inputOpts, ocr.WithPreserveSpaces())
	}

	ext := &identity.Extractor{}
	if cfg.NERURL != "" {
		ext.Recognizer = ner.New(cfg.NERURL, logger)
		slog.Info("NER fallback enabled", "url", cfg.NERURL)
	}

	runner := &batch.Runner{
		NewAnonymizer: func() (*anonymize.Anonymizer, error) {
			return &anonymize.Anonymizer{
				Rasterizer:   fitz.New(cfg.DPI),
				Engine:       tesseract.New(),
				Identity:     ext,
				Variants:     gen,
				Assembler:    &assemble.Assembler{Quality: cfg.JPEGQuality},
				Languages:    cfg.Languages,
				InputOptions: inputOpts,
				Logger:       logger,
			}, nil
		},
		Workers:       cfg.Workers,
		KeyPassphrase: cfg.KeyPassphrase,
		Logger:        logger,
		Progress: func(done, total int) {
			slog.Info("progress", "done", done, "total", total)
		},
		PageProgress: func(id string, done, total int) {
			slog.Debug("page", "id", id, "done", done, "total", total)
		},
	}

	rep, err := runner.Run(ctx, opts.inputs, opts.out)
	if err != nil {
		return err
	}
	if n := rep.Failed(); n > 0 {
		slog.Warn("some documents could not be anonymized", "failed", n, "total", len(rep.Outcomes))
	}
	fmt.Printf("wrote %s (%d documents, %d failed)\n", opts.out, len(rep.Outcomes), rep.Failed())
	return nil
}
