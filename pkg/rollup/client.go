// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rollup

import (
    "context"

    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/signer"
)

// Client is a session against the anchor queue. Reads go straight to the
// chain, replies are staged until Commit.
type Client interface {
    // Get reads a queue slot. ok is false when the slot is empty.
    Get(ctx context.Context, key uint32) (value []byte, ok bool, err error)

    // Reply stages a reply payload.
    Reply(payload []byte)

    // Commit turns staged changes into a transaction. It returns nil when
    // nothing was staged.
    Commit(ctx context.Context) (Submittable, error)
}

// Submittable is a committed but unsigned rollup transaction.
type Submittable interface {
    // Submit signs with the attest key, which also pays fees.
    Submit(ctx context.Context, attest signer.Key) (txID []byte, err error)

    // SubmitMetaTx signs with the attest key and has the relay key sponsor
    // the transaction.
    SubmitMetaTx(ctx context.Context, attest, sender signer.Key) (txID []byte, err error)
}

// Dialer opens anchor sessions.
type Dialer interface {
    Dial(ctx context.Context, target TargetConfig) (Client, error)
}

type DialerFunc func(ctx context.Context, target TargetConfig) (Client, error)

func (f DialerFunc) Dial(ctx context.Context, target TargetConfig) (Client, error) {
    return f(ctx, target)
}

// getValue reads and decodes a queue slot.
func getValue(ctx context.Context, c Client, key uint32, v interface{}) (bool, error) {
    raw, ok, err := c.Get(ctx, key)
    if err != nil || !ok {
        return false, err
    }
    if err := chain.Decode(raw, v); err != nil {
        return false, err
    }
    return true, nil
}
