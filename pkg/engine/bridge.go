// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package engine

import (
    "context"
    "errors"
    "time"

    "github.com/echa/log"
    "github.com/ethereum/go-ethereum/common/hexutil"

    "blockwatch.cc/raffle-rollup/pkg/metrics"
)

const undefinedOutput = "Undefined output"

// Bridge runs the core script against an engine. Calls are never retried.
type Bridge struct {
    engine Engine
}

func NewBridge(e Engine) *Bridge {
    return &Bridge{engine: e}
}

// Invoke passes input as a 0x prefixed hex string followed by settings and
// returns the raw script output. Text output is returned as its UTF-8 bytes.
func (b *Bridge) Invoke(ctx context.Context, script string, input []byte, settings string) ([]byte, error) {
    args := []string{hexutil.Encode(input), settings}

    start := time.Now()
    out, err := b.engine.Eval(ctx, script, args)
    metrics.EngineDuration.Observe(time.Since(start).Seconds())
    if err != nil {
        metrics.EngineFailures.Inc()
        log.Errorf("Failed to eval the core script: %v", err)
        var ee *Error
        if errors.As(err, &ee) {
            return nil, ee
        }
        return nil, &Error{Message: err.Error()}
    }

    switch out.Kind {
    case Text:
        return []byte(out.Text), nil
    case Bytes:
        return out.Bytes, nil
    default:
        metrics.EngineFailures.Inc()
        return nil, &Error{Message: undefinedOutput}
    }
}
