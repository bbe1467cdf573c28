// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package engine

import (
    "context"
    "errors"

    "github.com/dop251/goja"
)

// ArgsGlobal is the global variable holding the script arguments.
const ArgsGlobal = "scriptArgs"

// Goja is an in-process JavaScript engine. Every evaluation runs in a fresh
// runtime, so scripts cannot share state between calls.
type Goja struct {
    globals map[string]interface{}
}

type GojaOption func(*Goja)

// WithGlobal exposes a host value or function to scripts.
func WithGlobal(name string, v interface{}) GojaOption {
    return func(g *Goja) {
        g.globals[name] = v
    }
}

func NewGoja(opts ...GojaOption) *Goja {
    g := &Goja{globals: make(map[string]interface{})}
    for _, o := range opts {
        o(g)
    }
    return g
}

// Eval runs script with args in scriptArgs. The completion value of the
// script is its output. Cancelling ctx interrupts a running script.
func (g *Goja) Eval(ctx context.Context, script string, args []string) (Output, error) {
    if err := ctx.Err(); err != nil {
        return Output{}, &Error{Message: err.Error()}
    }

    vm := goja.New()
    vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
    for name, v := range g.globals {
        if err := vm.Set(name, v); err != nil {
            return Output{}, err
        }
    }
    if err := vm.Set(ArgsGlobal, args); err != nil {
        return Output{}, err
    }

    done := make(chan struct{})
    defer close(done)
    go func() {
        select {
        case <-ctx.Done():
            vm.Interrupt(ctx.Err())
        case <-done:
        }
    }()

    v, err := vm.RunString(script)
    if err != nil {
        var ex *goja.Exception
        if errors.As(err, &ex) {
            return Output{}, &Error{Message: ex.Value().String()}
        }
        return Output{}, &Error{Message: err.Error()}
    }
    return export(v), nil
}

func export(v goja.Value) Output {
    if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
        return NoOutput()
    }
    switch x := v.Export().(type) {
    case string:
        return TextOutput(x)
    case []byte:
        return BytesOutput(x)
    case goja.ArrayBuffer:
        return BytesOutput(x.Bytes())
    default:
        return TextOutput(v.String())
    }
}
