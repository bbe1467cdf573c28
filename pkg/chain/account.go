// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package chain

import (
    "errors"
    "fmt"
    "strings"

    "github.com/ethereum/go-ethereum/common/hexutil"
)

const AccountIDLength = 32

var ErrInvalidLength = errors.New("invalid length")

// AccountID is a raw 32 byte account identifier.
type AccountID [AccountIDLength]byte

func AccountFromBytes(b []byte) (AccountID, error) {
    var a AccountID
    if len(b) != AccountIDLength {
        return a, fmt.Errorf("account id: %w: got %d bytes", ErrInvalidLength, len(b))
    }
    copy(a[:], b)
    return a, nil
}

// ParseAccountID decodes a hex account id with or without 0x prefix.
func ParseAccountID(s string) (AccountID, error) {
    if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
        s = "0x" + s
    }
    b, err := hexutil.Decode(s)
    if err != nil {
        return AccountID{}, fmt.Errorf("account id: %w", err)
    }
    return AccountFromBytes(b)
}

func MustParseAccountID(s string) AccountID {
    a, err := ParseAccountID(s)
    if err != nil {
        panic(err)
    }
    return a
}

func (a AccountID) IsZero() bool {
    return a == AccountID{}
}

func (a AccountID) Bytes() []byte {
    return a[:]
}

func (a AccountID) String() string {
    return hexutil.Encode(a[:])
}

func (a AccountID) MarshalText() ([]byte, error) {
    return []byte(a.String()), nil
}

func (a *AccountID) UnmarshalText(b []byte) error {
    v, err := ParseAccountID(string(b))
    if err != nil {
        return err
    }
    *a = v
    return nil
}
