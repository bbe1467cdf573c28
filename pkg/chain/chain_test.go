// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package chain

import (
    "encoding/hex"
    "testing"

    mh "github.com/multiformats/go-multihash"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

const (
    ALICE = "bc5a6b58324a633175374b57464a42357476554b3364774e4673454132436e66"
)

func TestParseAccountID(t *testing.T) {
    a, err := ParseAccountID(ALICE)
    require.NoError(t, err)
    b, err := ParseAccountID("0x" + ALICE)
    require.NoError(t, err)
    assert.Equal(t, a, b, "prefix is optional")
    assert.Equal(t, "0x"+ALICE, a.String(), "hex string")
    assert.False(t, a.IsZero(), "not zero")

    _, err = ParseAccountID("bc5a")
    assert.ErrorIs(t, err, ErrInvalidLength, "short id")
    _, err = ParseAccountID("zz")
    assert.Error(t, err, "not hex")
}

func TestAccountText(t *testing.T) {
    a := MustParseAccountID(ALICE)
    buf, err := a.MarshalText()
    require.NoError(t, err)
    var b AccountID
    require.NoError(t, b.UnmarshalText(buf))
    assert.Equal(t, a, b)
}

func TestBalanceEncoding(t *testing.T) {
    b := MustParseBalance("163483092786717962675")
    buf, err := Encode(b)
    require.NoError(t, err)
    assert.Equal(t, "b3b18c0eb89ec8dc0800000000000000", hex.EncodeToString(buf), "u128 little endian")

    var c Balance
    require.NoError(t, Decode(buf, &c))
    assert.True(t, b.Equal(c), "decoded value")
    assert.Equal(t, "163483092786717962675", c.String())
}

func TestBalanceLimits(t *testing.T) {
    _, err := ParseBalance("340282366920938463463374607431768211455")
    assert.NoError(t, err, "max u128")
    _, err = ParseBalance("340282366920938463463374607431768211456")
    assert.Error(t, err, "overflow")
    _, err = ParseBalance("-1")
    assert.Error(t, err, "negative")
    assert.True(t, NewBalance(0).IsZero(), "zero")
    assert.Equal(t, "42", NewBalance(42).String())
}

func TestSelectorID(t *testing.T) {
    assert.Equal(t, uint32(0x568360e6), SelectorID("NEXT_ERA"))
    assert.Equal(t, uint32(0x7b701f02), SelectorID("NB_WINNERS"))
    assert.Equal(t, uint32(0x39da963d), SelectorID("LAST_WINNER"))
    assert.Equal(t, uint32(0x34128ca0), SelectorID("ORACLE_DATA_MANAGER"))
}

func TestSha256(t *testing.T) {
    h := Sha256([]byte("abc"))
    assert.Equal(t, "0xba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h.String())

    c := h.CID()
    dec, err := mh.Decode(c.Hash())
    require.NoError(t, err)
    assert.Equal(t, uint64(mh.SHA2_256), dec.Code, "sha2-256 content id")
    assert.Equal(t, h[:], dec.Digest, "digest round trip")
}

func TestCallContext(t *testing.T) {
    a := MustParseAccountID(ALICE)
    ctx := NewCallContext(a)
    assert.Equal(t, a, ctx.Caller())
    ctx.SetCaller(AccountID{})
    assert.True(t, ctx.Caller().IsZero())
}
