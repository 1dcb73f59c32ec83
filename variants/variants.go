// Package variants expands an applicant's full name into the surface forms it
// is likely to take on a printed, OCR'd page: reordered, abbreviated,
// punctuated, fused (whitespace dropped) and lowercased.
//
// Recall matters more than precision here. A spurious variant only causes an
// extra black box; a missing one leaks the name.
package variants

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Variant is one candidate rendering of the name and the number of
// whitespace-separated tokens it spans.
type Variant struct {
	Text   string
	Tokens int
}

func newVariant(text string) Variant {
	return Variant{Text: text, Tokens: len(strings.Fields(text))}
}

// Set is a deduplicated, unordered collection of variants. The zero value is
// an empty set.
type Set struct {
	items map[string]Variant
}

func (s *Set) add(text string) {
	if s.items == nil {
		s.items = make(map[string]Variant)
	}
	if _, ok := s.items[text]; !ok {
		s.items[text] = newVariant(text)
	}
}

// NewSet returns a set holding exactly texts.
func NewSet(texts ...string) Set {
	var s Set
	for _, t := range texts {
		s.add(t)
	}
	return s
}

// Len returns the number of distinct variants.
func (s Set) Len() int { return len(s.items) }

// Contains reports whether text is in the set, compared exactly.
func (s Set) Contains(text string) bool {
	_, ok := s.items[text]
	return ok
}

// Variants returns the variants sorted by text. The order carries no meaning;
// it only makes iteration reproducible.
func (s Set) Variants() []Variant {
	out := make([]Variant, 0, len(s.items))
	for _, v := range s.items {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}

// Texts returns the variant strings sorted.
func (s Set) Texts() []string {
	vs := s.Variants()
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Text
	}
	return out
}

// Name is a full name split into its parts.
type Name struct {
	Full    string
	First   string
	Middles []string
	Last    string
}

// Split breaks a full name on whitespace. ok is false for names with fewer
// than two tokens.
func Split(full string) (n Name, ok bool) {
	parts := strings.Fields(full)
	if len(parts) < 2 {
		return Name{Full: full}, false
	}
	return Name{
		Full:    full,
		First:   parts[0],
		Middles: parts[1 : len(parts)-1],
		Last:    parts[len(parts)-1],
	}, true
}

// Extender contributes template-specific forms on top of the built-in ones.
type Extender interface {
	Extend(ctx context.Context, n Name) ([]string, error)
}

// Generator expands names. The zero value uses the built-in forms only.
type Generator struct {
	Extenders []Extender
}

// Generate expands full with the built-in forms only.
func Generate(full string) Set {
	s, _ := (&Generator{}).Generate(context.Background(), full)
	return s
}

// Generate expands full into its variant set. A name with fewer than two
// tokens yields a set holding just that name.
func (g *Generator) Generate(ctx context.Context, full string) (Set, error) {
	var set Set
	n, ok := Split(full)
	if !ok {
		set.add(full)
		return set, nil
	}

	forms := baseForms(n)
	for _, ext := range g.Extenders {
		extra, err := ext.Extend(ctx, n)
		if err != nil {
			return Set{}, fmt.Errorf("variant extender: %w", err)
		}
		for _, e := range extra {
			if strings.TrimSpace(e) != "" {
				forms = append(forms, e)
			}
		}
	}

	for _, f := range forms {
		fused := strings.Join(strings.Fields(f), "")
		set.add(f)
		set.add(fused)
		set.add(strings.ToLower(f))
		set.add(strings.ToLower(fused))
	}
	return set, nil
}

func baseForms(n Name) []string {
	first, last := n.First, n.Last
	fi := initial(first)

	forms := []string{
		n.Full,
		n.Full + ",",
		n.Full + "*,",
		last + " " + first,
		last + ", " + first,
		fi + ". " + last,
		fi + "." + last,
		first,
		last + ",",
		last + "*",
		last,
		last + " " + fi,
		last + " " + fi + "*,",
		last + " " + fi + ",",
	}
	// OCR often reads a stray middle initial after the first initial.
	for c := 'A'; c <= 'Z'; c++ {
		forms = append(forms, last+" "+fi+string(c)+",")
	}
	forms = append(forms,
		regexp.QuoteMeta(last)+" "+regexp.QuoteMeta(fi)+`\w*`,
		fi+" "+last,
		fi+". "+last,
	)

	if mi := middleInitials(n.Middles); mi != "" {
		m0 := initial(mi)
		forms = append(forms,
			last+" "+fi+mi,
			last+" "+fi+mi+",",
			last+" "+fi+mi+"*,",
			last+" "+fi+m0,
			last+" "+fi+m0+",",
			last+" "+fi+m0+"*,",
			fi+mi+" "+last,
			fi+"."+mi+". "+last,
		)
	}
	return forms
}

func middleInitials(middles []string) string {
	var b strings.Builder
	for _, m := range middles {
		b.WriteString(initial(m))
	}
	return b.String()
}

// initial returns the first rune of s.
func initial(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return ""
	}
	return s[:size]
}
