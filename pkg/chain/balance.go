// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package chain

import (
    "fmt"

    "github.com/centrifuge/go-substrate-rpc-client/v4/scale"
    "github.com/holiman/uint256"
)

const balanceSize = 16

// Balance is an unsigned 128 bit amount, SCALE encoded as 16 little-endian
// bytes.
type Balance struct {
    n uint256.Int
}

func NewBalance(v uint64) Balance {
    var b Balance
    b.n.SetUint64(v)
    return b
}

// ParseBalance reads a decimal amount that must fit into 128 bits.
func ParseBalance(s string) (Balance, error) {
    var b Balance
    if err := b.n.SetFromDecimal(s); err != nil {
        return Balance{}, fmt.Errorf("parsing balance %q: %w", s, err)
    }
    if b.n.BitLen() > balanceSize*8 {
        return Balance{}, fmt.Errorf("balance %s exceeds 128 bits", s)
    }
    return b, nil
}

func MustParseBalance(s string) Balance {
    b, err := ParseBalance(s)
    if err != nil {
        panic(err)
    }
    return b
}

func (b Balance) IsZero() bool {
    return b.n.IsZero()
}

func (b Balance) Equal(o Balance) bool {
    return b.n.Eq(&o.n)
}

func (b Balance) String() string {
    return b.n.Dec()
}

func (b Balance) Encode(e scale.Encoder) error {
    be := b.n.Bytes32()
    var le [balanceSize]byte
    for i := range le {
        le[i] = be[31-i]
    }
    return e.Write(le[:])
}

func (b *Balance) Decode(d scale.Decoder) error {
    var le [balanceSize]byte
    if err := d.Read(le[:]); err != nil {
        return err
    }
    var be [balanceSize]byte
    for i := range le {
        be[balanceSize-1-i] = le[i]
    }
    b.n.SetBytes(be[:])
    return nil
}

func (b Balance) MarshalText() ([]byte, error) {
    return []byte(b.String()), nil
}

func (b *Balance) UnmarshalText(buf []byte) error {
    v, err := ParseBalance(string(buf))
    if err != nil {
        return err
    }
    *b = v
    return nil
}
