// Package scripting runs user-supplied JavaScript rules with goja. Rules let a
// deployment add name forms specific to its document template without
// rebuilding the binary.
package scripting

import (
	"context"

	"github.com/dop251/goja"
)

// GojaEngine wraps a single goja runtime. A runtime is not safe for
// concurrent use; create one engine per goroutine.
type GojaEngine struct {
	vm *goja.Runtime
}

func NewEngine() *GojaEngine {
	vm := goja.New()
	return &GojaEngine{vm: vm}
}

// Execute runs script and exports its completion value.
func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	val, err := e.guard(ctx, func() (goja.Value, error) { return e.vm.RunString(script) })
	if err != nil {
		return nil, err
	}
	return val.Export(), nil
}

// RunProgram runs a precompiled program.
func (e *GojaEngine) RunProgram(ctx context.Context, prog *goja.Program) (goja.Value, error) {
	return e.guard(ctx, func() (goja.Value, error) { return e.vm.RunProgram(prog) })
}

// Call invokes the global function name with args converted to JavaScript
// values.
func (e *GojaEngine) Call(ctx context.Context, name string, args ...interface{}) (goja.Value, error) {
	fn, ok := goja.AssertFunction(e.vm.Get(name))
	if !ok {
		return nil, &MissingFunctionError{Name: name}
	}
	jsArgs := make([]goja.Value, len(args))
	for i, a := range args {
		jsArgs[i] = e.vm.ToValue(a)
	}
	return e.guard(ctx, func() (goja.Value, error) { return fn(goja.Undefined(), jsArgs...) })
}

// ExportTo converts a JavaScript value into the Go value pointed to by target.
func (e *GojaEngine) ExportTo(v goja.Value, target interface{}) error {
	return e.vm.ExportTo(v, target)
}

// guard interrupts the runtime when ctx ends and maps the interruption back
// to the context error.
func (e *GojaEngine) guard(ctx context.Context, run func() (goja.Value, error)) (goja.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	// The watcher must exit before the interrupt flag is cleared, or a late
	// Interrupt would leak into the next run.
	defer func() {
		close(done)
		<-stopped
		e.vm.ClearInterrupt()
	}()

	val, err := run()
	if err != nil {
		if interruptedErr, ok := err.(*goja.InterruptedError); ok {
			if cause := interruptedErr.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val, nil
}

// MissingFunctionError reports a rule script that does not define the
// expected entry point.
type MissingFunctionError struct {
	Name string
}

func (e *MissingFunctionError) Error() string {
	return "scripting: function " + e.Name + " is not defined"
}
