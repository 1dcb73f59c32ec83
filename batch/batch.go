// Package batch anonymizes a set of uploaded documents, assigns each one a
// positional identifier and packages the redacted PDFs, the applicant key
// table and a name-free report into a single zip archive.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wudi/redactkit/anonymize"
	"github.com/wudi/redactkit/keytable"
	"github.com/wudi/redactkit/observability"
	"golang.org/x/sync/errgroup"
)

// UnknownName is recorded in the key table when no name could be extracted
// or the document failed.
const UnknownName = "Unknown"

// ErrNoInputs is returned by Run when there is nothing to process.
var ErrNoInputs = errors.New("batch: no inputs")

// ID formats the identifier of the document at zero-based position i.
func ID(i int) string { return fmt.Sprintf("%04d", i+1) }

// Outcome is the result of one document.
type Outcome struct {
	Entry  keytable.Entry
	Input  string
	Output string
	Result anonymize.Result
	Err    error
}

// OK reports whether the document produced an output PDF.
func (o Outcome) OK() bool { return o.Err == nil }

// Runner processes batches. NewAnonymizer is required.
type Runner struct {
	// NewAnonymizer builds the pipeline used by one worker. It is called once
	// per worker so engines are never shared between goroutines.
	NewAnonymizer func() (*anonymize.Anonymizer, error)
	// Workers bounds how many documents are processed at once. Values below
	// one mean one.
	Workers int
	// KeyPassphrase, when set, seals the key table inside the archive.
	KeyPassphrase string
	// WorkDir is the parent of the per-batch scratch directory. Empty means
	// os.TempDir.
	WorkDir string
	// Progress, if set, is called after each document with the number of
	// documents finished so far. Calls are serialized.
	Progress func(done, total int)
	// PageProgress, if set, is called as each page of a document is
	// redacted. Calls are serialized with Progress.
	PageProgress func(id string, done, total int)

	Logger observability.Logger
}

// Run anonymizes inputs and writes the archive to archivePath. A failing
// document is recorded in the report and does not stop the batch; the
// returned error covers setup, cancellation and archive I/O only.
func (r *Runner) Run(ctx context.Context, inputs []string, archivePath string) (Report, error) {
	if len(inputs) == 0 {
		return Report{}, ErrNoInputs
	}
	if r.NewAnonymizer == nil {
		return Report{}, errors.New("batch: NewAnonymizer is required")
	}
	log := observability.OrNop(r.Logger)

	work, err := os.MkdirTemp(r.WorkDir, "redact-batch-*")
	if err != nil {
		return Report{}, fmt.Errorf("batch: scratch dir: %w", err)
	}
	defer os.RemoveAll(work)

	start := time.Now()
	outcomes, err := r.process(ctx, inputs, work, log)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Outcomes: outcomes, Archive: archivePath}

	if err := writeArchive(archivePath, rep, r.KeyPassphrase); err != nil {
		return rep, err
	}
	log.Info("batch done",
		observability.Int("documents", len(outcomes)),
		observability.Int("failed", rep.Failed()),
		observability.Duration("elapsed", time.Since(start)),
		observability.String("archive", archivePath))
	return rep, nil
}

func (r *Runner) process(ctx context.Context, inputs []string, work string, log observability.Logger) ([]Outcome, error) {
	outcomes := make([]Outcome, len(inputs))
	workers := min(max(r.Workers, 1), len(inputs))

	var (
		mu   sync.Mutex
		done int
	)
	finished := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		if r.Progress != nil {
			r.Progress(done, len(inputs))
		}
	}
	pageDone := func(id string) func(int, int) {
		if r.PageProgress == nil {
			return nil
		}
		return func(d, total int) {
			mu.Lock()
			defer mu.Unlock()
			r.PageProgress(id, d, total)
		}
	}

	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range inputs {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			an, err := r.NewAnonymizer()
			if err != nil {
				return fmt.Errorf("batch: worker setup: %w", err)
			}
			for i := range jobs {
				outcomes[i] = runOne(gctx, an, i, inputs[i], work, pageDone(ID(i)), log)
				finished()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// runOne is the failure boundary of a single document: errors and panics
// become part of the Outcome.
func runOne(ctx context.Context, an *anonymize.Anonymizer, i int, in, work string, progress func(int, int), log observability.Logger) (o Outcome) {
	id := ID(i)
	o = Outcome{
		Entry:  keytable.Entry{ID: id, Name: UnknownName},
		Input:  in,
		Output: filepath.Join(work, ArchivePDFName(id)),
	}
	log = log.With(observability.String("id", id))
	defer func() {
		if p := recover(); p != nil {
			o.Err = fmt.Errorf("panic: %v", p)
		}
		if o.Err != nil {
			o.Entry.Name = UnknownName
			log.Error("document failed", observability.Error("error", o.Err))
		}
	}()

	res, err := an.Run(ctx, in, o.Output, id, progress)
	o.Result = res
	if err != nil {
		o.Err = err
		return o
	}
	if res.Identity.HasName() {
		o.Entry.Name = res.Identity.Name
	} else {
		log.Warn("no applicant name found")
	}
	log.Info("document anonymized",
		observability.Int("pages", res.Pages),
		observability.Int("boxes", res.Boxes))
	return o
}
