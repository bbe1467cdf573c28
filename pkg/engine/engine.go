// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package engine connects the rollup to an external scripted compute engine.
package engine

import (
    "context"
)

type Kind uint8

const (
    None Kind = iota
    Text
    Bytes
)

func (k Kind) String() string {
    switch k {
    case Text:
        return "text"
    case Bytes:
        return "bytes"
    default:
        return "none"
    }
}

// Output is the value a script evaluates to.
type Output struct {
    Kind  Kind
    Text  string
    Bytes []byte
}

func TextOutput(s string) Output {
    return Output{Kind: Text, Text: s}
}

func BytesOutput(b []byte) Output {
    return Output{Kind: Bytes, Bytes: b}
}

func NoOutput() Output {
    return Output{Kind: None}
}

// Error is a failure reported by the engine or by the script itself.
type Error struct {
    Message string
}

func (e *Error) Error() string {
    return "engine: " + e.Message
}

// Engine evaluates untrusted scripts. Evaluation blocks until the script
// completes or the engine gives up.
type Engine interface {
    Eval(ctx context.Context, script string, args []string) (Output, error)
}
