// Package identity recovers the applicant's name and email address from the
// transcript of a document's first page using label-anchored pattern rules.
//
// The rules mirror the application template:
//
//	Name: Smith, John A          -> "John A Smith"
//	Name: John A. Smith Applicant ID: ...
//	Email: john.smith@example.com
//
// A rule that does not match is a miss, not an error.
package identity

import (
	"context"
	"regexp"
	"strings"
)

// wordChars approximates a Unicode-aware \w; Go's \w is ASCII-only and would
// reject accented names.
const (
	wordChars  = `\p{L}\p{M}\p{N}_`
	spaceChars = `\s\v\p{Z}`
)

// Terminators are matched as consumed groups because RE2 has no lookahead.
// Leftmost-first submatch semantics keep the captured span identical to an
// asserted terminator.
var (
	primaryNameRule  = regexp.MustCompile(`Name:[` + spaceChars + `]*([` + wordChars + spaceChars + `,]+?)(?:[` + spaceChars + `][` + spaceChars + `]|\n|$)`)
	fallbackNameRule = regexp.MustCompile(`Name:[` + spaceChars + `]*([` + wordChars + spaceChars + `,.]+)(?:[` + spaceChars + `]Applicant|[` + spaceChars + `][` + spaceChars + `]|\n|$)`)
	emailRule        = regexp.MustCompile(`Email:[` + spaceChars + `]*([` + wordChars + `.-]+@[` + wordChars + `.-]+)`)
)

// Record is what could be recovered for one document. Empty fields are
// absent.
type Record struct {
	Name  string
	Email string
}

// HasName reports whether a name was recovered.
func (r Record) HasName() bool { return r.Name != "" }

// HasEmail reports whether an email address was recovered.
func (r Record) HasEmail() bool { return r.Email != "" }

// NameRecognizer finds a person name in free text. It is consulted only when
// the pattern rules miss.
type NameRecognizer interface {
	RecognizeName(ctx context.Context, text string) (string, error)
}

// Extractor applies the pattern rules and, optionally, a NameRecognizer.
// The zero value uses the pattern rules only.
type Extractor struct {
	Recognizer NameRecognizer
}

// Extract recovers the identity fields from text. The returned error comes
// from the recognizer only; the Record is valid even when err is non-nil.
func (e *Extractor) Extract(ctx context.Context, text string) (Record, error) {
	rec := Record{}
	rec.Email, _ = ExtractEmail(text)
	name, matched := ExtractName(text)
	rec.Name = name
	if matched || e == nil || e.Recognizer == nil {
		return rec, nil
	}
	found, err := e.Recognizer.RecognizeName(ctx, text)
	if err != nil {
		return rec, err
	}
	rec.Name = normalizeName(found)
	return rec, nil
}

// ExtractName applies the primary rule and then the fallback rule. matched
// reports whether a rule matched at all; a rule may match and still yield an
// empty name, in which case the fallback is not tried.
func ExtractName(text string) (name string, matched bool) {
	for _, rule := range []*regexp.Regexp{primaryNameRule, fallbackNameRule} {
		if m := rule.FindStringSubmatch(text); m != nil {
			return normalizeName(m[1]), true
		}
	}
	return "", false
}

// ExtractEmail returns the address following the "Email:" label.
func ExtractEmail(text string) (string, bool) {
	m := emailRule.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// normalizeName turns "Last, First Middle" into "First Middle Last" and trims
// anything else.
func normalizeName(span string) string {
	span = strings.TrimSpace(span)
	last, first, ok := strings.Cut(span, ",")
	if !ok {
		return span
	}
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
