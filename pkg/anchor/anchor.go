// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package anchor models the consumer contract that queues raffle requests
// and receives rollup replies.
package anchor

import (
    "context"
    "errors"
    "fmt"
    "sync"

    "github.com/echa/log"
    "github.com/ethereum/go-ethereum/common/hexutil"
    "golang.org/x/crypto/blake2b"

    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/signer"
)

var (
    ErrConflict      = errors.New("anchor: version conflict")
    ErrBadSignature  = errors.New("anchor: bad signature")
    ErrUnauthorized  = errors.New("anchor: unknown attestor")
    ErrWrongContract = errors.New("anchor: wrong contract")
    ErrEmpty         = errors.New("anchor: empty transaction")
)

// Tx is a signed batch of replies built against one queue version.
type Tx struct {
    Contract         chain.AccountID `json:"contract"`
    PalletID         uint8           `json:"pallet_id"`
    CallID           uint8           `json:"call_id"`
    Version          uint64          `json:"version"`
    Replies          []hexutil.Bytes `json:"replies"`
    Signer           hexutil.Bytes   `json:"signer"`
    Signature        hexutil.Bytes   `json:"signature"`
    Sponsor          hexutil.Bytes   `json:"sponsor,omitempty"`
    SponsorSignature hexutil.Bytes   `json:"sponsor_signature,omitempty"`
}

type txBody struct {
    Contract chain.AccountID
    PalletID uint8
    CallID   uint8
    Version  uint64
    Replies  [][]byte
}

// Payload returns the signed part of the transaction.
func (t Tx) Payload() ([]byte, error) {
    body := txBody{
        Contract: t.Contract,
        PalletID: t.PalletID,
        CallID:   t.CallID,
        Version:  t.Version,
        Replies:  make([][]byte, len(t.Replies)),
    }
    for i, r := range t.Replies {
        body.Replies[i] = r
    }
    return chain.Encode(body)
}

// ID is the blake2b-256 hash of the payload and the attest signature.
func (t Tx) ID() (chain.Hash, error) {
    buf, err := t.Payload()
    if err != nil {
        return chain.Hash{}, err
    }
    return chain.Hash(blake2b.Sum256(append(buf, t.Signature...))), nil
}

// Sign attaches the attest signature.
func (t *Tx) Sign(attest signer.Key) error {
    buf, err := t.Payload()
    if err != nil {
        return err
    }
    t.Signer = attest.Public()
    t.Signature = attest.Sign(buf)
    return nil
}

// SignSponsor attaches the relay signature over payload and attest signature.
func (t *Tx) SignSponsor(sender signer.Key) error {
    buf, err := t.Payload()
    if err != nil {
        return err
    }
    t.Sponsor = sender.Public()
    t.SponsorSignature = sender.Sign(append(buf, t.Signature...))
    return nil
}

func (t Tx) verify() error {
    buf, err := t.Payload()
    if err != nil {
        return err
    }
    if !signer.Verify(t.Signer, buf, t.Signature) {
        return ErrBadSignature
    }
    if len(t.Sponsor) > 0 && !signer.Verify(t.Sponsor, append(buf, t.Signature...), t.SponsorSignature) {
        return fmt.Errorf("%w: sponsor", ErrBadSignature)
    }
    return nil
}

// Queue is the key-value view handed to reply handlers.
type Queue struct {
    values map[uint32][]byte
}

func (q Queue) Get(key uint32) ([]byte, bool) {
    v, ok := q.values[key]
    return v, ok
}

func (q Queue) Set(key uint32, value []byte) {
    q.values[key] = value
}

// SetValue stores the SCALE encoding of v.
func (q Queue) SetValue(key uint32, v interface{}) error {
    buf, err := chain.Encode(v)
    if err != nil {
        return err
    }
    q.Set(key, buf)
    return nil
}

func (q Queue) Delete(key uint32) {
    delete(q.values, key)
}

func (q Queue) clone() Queue {
    values := make(map[uint32][]byte, len(q.values))
    for k, v := range q.values {
        values[k] = v
    }
    return Queue{values: values}
}

// ReplyHandler reacts to an applied reply. It runs under the anchor lock.
type ReplyHandler func(q Queue, reply []byte) error

// Memory is an in-process anchor contract.
type Memory struct {
    mu        sync.RWMutex
    id        chain.AccountID
    queue     Queue
    version   uint64
    attestors map[string]struct{}
    replies   [][]byte
    txs       []chain.Hash
    handler   ReplyHandler
}

func NewMemory(id chain.AccountID) *Memory {
    return &Memory{
        id:        id,
        queue:     Queue{values: make(map[uint32][]byte)},
        attestors: make(map[string]struct{}),
    }
}

func (m *Memory) ID() chain.AccountID {
    return m.id
}

func (m *Memory) OnReply(h ReplyHandler) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.handler = h
}

// Authorize restricts submissions to the given attestor keys. With no
// attestors registered any valid signature is accepted.
func (m *Memory) Authorize(pub []byte) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.attestors[string(pub)] = struct{}{}
}

// Update changes the queue as one write.
func (m *Memory) Update(fn func(q Queue) error) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    next := m.queue.clone()
    if err := fn(next); err != nil {
        return err
    }
    m.queue = next
    m.version++
    return nil
}

func (m *Memory) Set(key uint32, value []byte) {
    _ = m.Update(func(q Queue) error {
        q.Set(key, value)
        return nil
    })
}

func (m *Memory) SetValue(key uint32, v interface{}) error {
    return m.Update(func(q Queue) error {
        return q.SetValue(key, v)
    })
}

func (m *Memory) Delete(key uint32) {
    _ = m.Update(func(q Queue) error {
        q.Delete(key)
        return nil
    })
}

func (m *Memory) Version(_ context.Context) (uint64, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    return m.version, nil
}

func (m *Memory) Get(_ context.Context, key uint32) ([]byte, bool, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    v, ok := m.queue.Get(key)
    if !ok {
        return nil, false, nil
    }
    return append([]byte(nil), v...), true, nil
}

// Apply verifies and executes a transaction. Replies are handed to the reply
// handler in order; the queue version advances once per transaction.
func (m *Memory) Apply(_ context.Context, tx Tx) (chain.Hash, error) {
    id, err := tx.ID()
    if err != nil {
        return chain.Hash{}, err
    }
    if len(tx.Replies) == 0 {
        return chain.Hash{}, ErrEmpty
    }
    if err := tx.verify(); err != nil {
        return chain.Hash{}, err
    }

    m.mu.Lock()
    defer m.mu.Unlock()
    if tx.Contract != m.id {
        return chain.Hash{}, fmt.Errorf("%w: %s", ErrWrongContract, tx.Contract)
    }
    if len(m.attestors) > 0 {
        if _, ok := m.attestors[string(tx.Signer)]; !ok {
            return chain.Hash{}, ErrUnauthorized
        }
    }
    if tx.Version != m.version {
        return chain.Hash{}, fmt.Errorf("%w: tx built at %d, anchor at %d", ErrConflict, tx.Version, m.version)
    }
    // handlers write to a copy so a rejected tx leaves no partial state
    next := m.queue.clone()
    if m.handler != nil {
        for _, r := range tx.Replies {
            if err := m.handler(next, r); err != nil {
                return chain.Hash{}, fmt.Errorf("anchor: reply rejected: %w", err)
            }
        }
    }
    m.queue = next
    for _, r := range tx.Replies {
        m.replies = append(m.replies, append([]byte(nil), r...))
    }
    m.version++
    m.txs = append(m.txs, id)
    log.Infof("Anchor applied tx %s with %d replies (version %d)", id, len(tx.Replies), m.version)
    return id, nil
}

// Replies returns all applied replies in order.
func (m *Memory) Replies() [][]byte {
    m.mu.RLock()
    defer m.mu.RUnlock()
    out := make([][]byte, len(m.replies))
    copy(out, m.replies)
    return out
}

func (m *Memory) Txs() []chain.Hash {
    m.mu.RLock()
    defer m.mu.RUnlock()
    out := make([]chain.Hash, len(m.txs))
    copy(out, m.txs)
    return out
}
