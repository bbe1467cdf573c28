// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package anchor

import (
    "context"
    "fmt"

    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/rollup"
    "blockwatch.cc/raffle-rollup/pkg/signer"
)

// Backend is the ledger side of an anchor: the in-process Memory or a remote
// anchor reached over HTTP.
type Backend interface {
    Version(ctx context.Context) (uint64, error)
    Get(ctx context.Context, key uint32) ([]byte, bool, error)
    Apply(ctx context.Context, tx Tx) (chain.Hash, error)
}

type session struct {
    backend Backend
    target  rollup.TargetConfig
    version uint64
    replies [][]byte
}

// Connect opens a session pinned to the current queue version.
func Connect(ctx context.Context, b Backend, target rollup.TargetConfig) (rollup.Client, error) {
    v, err := b.Version(ctx)
    if err != nil {
        return nil, fmt.Errorf("anchor: connect %s: %w", target.Endpoint, err)
    }
    return &session{backend: b, target: target, version: v}, nil
}

func (s *session) Get(ctx context.Context, key uint32) ([]byte, bool, error) {
    return s.backend.Get(ctx, key)
}

func (s *session) Reply(payload []byte) {
    s.replies = append(s.replies, append([]byte(nil), payload...))
}

func (s *session) Commit(_ context.Context) (rollup.Submittable, error) {
    if len(s.replies) == 0 {
        return nil, nil
    }
    tx := Tx{
        Contract: s.target.ContractID,
        PalletID: s.target.PalletID,
        CallID:   s.target.CallID,
        Version:  s.version,
    }
    for _, r := range s.replies {
        tx.Replies = append(tx.Replies, r)
    }
    s.replies = nil
    return &pending{backend: s.backend, tx: tx}, nil
}

type pending struct {
    backend Backend
    tx      Tx
}

func (p *pending) Submit(ctx context.Context, attest signer.Key) ([]byte, error) {
    tx := p.tx
    if err := tx.Sign(attest); err != nil {
        return nil, err
    }
    return p.apply(ctx, tx)
}

func (p *pending) SubmitMetaTx(ctx context.Context, attest, sender signer.Key) ([]byte, error) {
    tx := p.tx
    if err := tx.Sign(attest); err != nil {
        return nil, err
    }
    if err := tx.SignSponsor(sender); err != nil {
        return nil, err
    }
    return p.apply(ctx, tx)
}

func (p *pending) apply(ctx context.Context, tx Tx) ([]byte, error) {
    id, err := p.backend.Apply(ctx, tx)
    if err != nil {
        return nil, err
    }
    return id[:], nil
}

// NewDialer returns a dialer that resolves the backend for each target.
func NewDialer(open func(target rollup.TargetConfig) (Backend, error)) rollup.Dialer {
    return rollup.DialerFunc(func(ctx context.Context, target rollup.TargetConfig) (rollup.Client, error) {
        b, err := open(target)
        if err != nil {
            return nil, err
        }
        return Connect(ctx, b, target)
    })
}

// MemoryDialer connects every target to m. Targets naming another contract
// are rejected.
func MemoryDialer(m *Memory) rollup.Dialer {
    return NewDialer(func(target rollup.TargetConfig) (Backend, error) {
        if target.ContractID != m.ID() {
            return nil, fmt.Errorf("%w: %s", ErrWrongContract, target.ContractID)
        }
        return m, nil
    })
}
