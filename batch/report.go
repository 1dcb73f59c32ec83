package batch

import (
	"bytes"
	"fmt"

	"github.com/wudi/redactkit/keytable"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Report lists the outcome of every input in upload order.
type Report struct {
	Outcomes []Outcome
	Archive  string
}

// Failed returns the number of documents that produced no output.
func (r Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}

// KeyTable returns the identifier to name mapping, one row per input.
func (r Report) KeyTable() *keytable.Table {
	t := &keytable.Table{}
	for _, o := range r.Outcomes {
		t.Add(o.Entry.ID, o.Entry.Name)
	}
	return t
}

// Markdown renders the report. It never contains names, email addresses,
// input file names or error text, any of which may identify the applicant.
func (r Report) Markdown() []byte {
	var b bytes.Buffer
	b.WriteString("# Anonymization report\n\n")
	fmt.Fprintf(&b, "%d documents, %d failed.\n\n", len(r.Outcomes), r.Failed())
	b.WriteString("| ID | Pages | Redactions | Name found | Email found | Status |\n")
	b.WriteString("|---|---:|---:|---|---|---|\n")
	for _, o := range r.Outcomes {
		status := "ok"
		if !o.OK() {
			status = "failed"
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %s | %s | %s |\n",
			o.Entry.ID, o.Result.Pages, o.Result.Boxes,
			yesNo(o.Result.Identity.HasName()), yesNo(o.Result.Identity.HasEmail()), status)
	}
	return b.Bytes()
}

// HTML renders Markdown as an HTML fragment.
func (r Report) HTML() ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert(r.Markdown(), &buf); err != nil {
		return nil, fmt.Errorf("batch: render report: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
