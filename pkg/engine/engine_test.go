// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package engine

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

type stubEngine struct {
    out    Output
    err    error
    script string
    args   []string
}

func (s *stubEngine) Eval(_ context.Context, script string, args []string) (Output, error) {
    s.script = script
    s.args = args
    return s.out, s.err
}

func TestBridgeArguments(t *testing.T) {
    e := &stubEngine{out: TextOutput("ok")}
    b := NewBridge(e)
    out, err := b.Invoke(context.Background(), "script", []byte{0xa5, 0x11, 0x00}, "settings")
    require.NoError(t, err)
    assert.Equal(t, []byte("ok"), out, "text output as bytes")
    assert.Equal(t, "script", e.script)
    assert.Equal(t, []string{"0xa51100", "settings"}, e.args, "hex input then settings")
}

func TestBridgeOutputs(t *testing.T) {
    ctx := context.Background()

    out, err := NewBridge(&stubEngine{out: BytesOutput([]byte{1, 2})}).Invoke(ctx, "", nil, "")
    require.NoError(t, err)
    assert.Equal(t, []byte{1, 2}, out, "raw bytes")

    _, err = NewBridge(&stubEngine{out: NoOutput()}).Invoke(ctx, "", nil, "")
    var ee *Error
    require.True(t, errors.As(err, &ee), "typed error")
    assert.Equal(t, "Undefined output", ee.Message)

    _, err = NewBridge(&stubEngine{err: errors.New("boom")}).Invoke(ctx, "", nil, "")
    require.True(t, errors.As(err, &ee), "foreign errors are wrapped")
    assert.Equal(t, "boom", ee.Message)
}

func TestGojaText(t *testing.T) {
    g := NewGoja()
    out, err := g.Eval(context.Background(), `scriptArgs[0] + "|" + scriptArgs[1]`, []string{"0x0102", "cfg"})
    require.NoError(t, err)
    assert.Equal(t, Text, out.Kind)
    assert.Equal(t, "0x0102|cfg", out.Text)
}

func TestGojaUndefined(t *testing.T) {
    out, err := NewGoja().Eval(context.Background(), `var x = 1; undefined`, nil)
    require.NoError(t, err)
    assert.Equal(t, None, out.Kind)

    _, err = NewBridge(NewGoja()).Invoke(context.Background(), `undefined`, nil, "")
    assert.EqualError(t, err, "engine: Undefined output")
}

func TestGojaBytes(t *testing.T) {
    out, err := NewGoja().Eval(context.Background(), `new Uint8Array([1, 2, 3]).buffer`, nil)
    require.NoError(t, err)
    assert.Equal(t, Bytes, out.Kind)
    assert.Equal(t, []byte{1, 2, 3}, out.Bytes)
}

func TestGojaException(t *testing.T) {
    _, err := NewGoja().Eval(context.Background(), `throw new Error("no participants")`, nil)
    var ee *Error
    require.True(t, errors.As(err, &ee))
    assert.Contains(t, ee.Message, "no participants")

    _, err = NewGoja().Eval(context.Background(), `this is not javascript`, nil)
    assert.Error(t, err, "syntax error")
}

func TestGojaGlobals(t *testing.T) {
    g := NewGoja(WithGlobal("double", func(x int64) int64 { return 2 * x }))
    out, err := g.Eval(context.Background(), `String(double(21))`, nil)
    require.NoError(t, err)
    assert.Equal(t, "42", out.Text)
}

func TestGojaInterrupt(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
    defer cancel()
    _, err := NewGoja().Eval(ctx, `for (;;) {}`, nil)
    assert.Error(t, err, "interrupted")

    _, err = NewGoja().Eval(ctx, `1`, nil)
    assert.Error(t, err, "context already done")
}
