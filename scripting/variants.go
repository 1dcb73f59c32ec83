package scripting

import (
	"context"
	"fmt"
	"os"

	"github.com/dop251/goja"
	"github.com/wudi/redactkit/variants"
)

// VariantFunc is the entry point a rule script must define:
//
//	function variants(first, middles, last) {
//	  return [last.toUpperCase() + ", " + first];
//	}
const VariantFunc = "variants"

// VariantScript is a compiled rule script. It implements variants.Extender and
// is safe for concurrent use: every call gets a fresh runtime.
type VariantScript struct {
	name string
	prog *goja.Program
}

var _ variants.Extender = (*VariantScript)(nil)

// CompileVariantScript compiles source; name is used in error positions.
func CompileVariantScript(name, source string) (*VariantScript, error) {
	prog, err := goja.Compile(name, source, true)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return &VariantScript{name: name, prog: prog}, nil
}

// LoadVariantScript reads and compiles the rule file at path.
func LoadVariantScript(path string) (*VariantScript, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return CompileVariantScript(path, string(src))
}

// Extend runs the script's variants function for n.
func (s *VariantScript) Extend(ctx context.Context, n variants.Name) ([]string, error) {
	e := NewEngine()
	if _, err := e.RunProgram(ctx, s.prog); err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	middles := make([]interface{}, len(n.Middles))
	for i, m := range n.Middles {
		middles[i] = m
	}
	val, err := e.Call(ctx, VariantFunc, n.First, middles, n.Last)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	if goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	var out []string
	if err := e.ExportTo(val, &out); err != nil {
		return nil, fmt.Errorf("%s: result must be an array of strings: %w", s.name, err)
	}
	return out, nil
}
