// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package ss58 converts raw account ids to and from their checksummed SS58
// text form.
package ss58

import (
    "bytes"
    "errors"
    "fmt"

    "github.com/mr-tron/base58"
    "golang.org/x/crypto/blake2b"

    "blockwatch.cc/raffle-rollup/pkg/chain"
)

const (
    // network prefixes
    Substrate uint16 = 42
    Astar     uint16 = 5

    checksumLength = 2
    maxFormat      = 16383
)

var (
    ErrBadChecksum = errors.New("ss58: bad checksum")
    ErrBadLength   = errors.New("ss58: bad length")
    ErrBadFormat   = errors.New("ss58: unexpected network format")
    ErrBadAlphabet = errors.New("ss58: invalid base58 alphabet")

    checksumPrefix = []byte("SS58PRE")
)

// Codec encodes account ids for one network.
type Codec struct {
    format uint16
}

func New(format uint16) Codec {
    return Codec{format: format}
}

func (c Codec) Format() uint16 {
    return c.format
}

func (c Codec) Encode(id chain.AccountID) string {
    return Encode(id, c.format)
}

// Decode parses an address and requires it to carry the codec's network
// format.
func (c Codec) Decode(s string) (chain.AccountID, error) {
    id, format, err := Decode(s)
    if err != nil {
        return id, err
    }
    if format != c.format {
        return chain.AccountID{}, fmt.Errorf("%w: got %d want %d", ErrBadFormat, format, c.format)
    }
    return id, nil
}

// Encode renders id in the given network format.
func Encode(id chain.AccountID, format uint16) string {
    buf := append(formatPrefix(format), id[:]...)
    sum := checksum(buf)
    return base58.Encode(append(buf, sum[:checksumLength]...))
}

// Decode parses an SS58 address into its raw id and network format.
func Decode(s string) (chain.AccountID, uint16, error) {
    var id chain.AccountID
    raw, err := base58.Decode(s)
    if err != nil {
        return id, 0, fmt.Errorf("%w: %v", ErrBadAlphabet, err)
    }
    if len(raw) == 0 {
        return id, 0, ErrBadLength
    }

    // one byte prefix for formats below 64, two bytes above
    prefixLen := 1
    var format uint16
    switch {
    case raw[0] < 64:
        format = uint16(raw[0])
    case raw[0] < 128:
        if len(raw) < 2 {
            return id, 0, ErrBadLength
        }
        lower := (raw[0] << 2) | (raw[1] >> 6)
        upper := raw[1] & 0x3f
        format = uint16(lower) | uint16(upper)<<8
        prefixLen = 2
    default:
        return id, 0, fmt.Errorf("%w: reserved prefix %d", ErrBadFormat, raw[0])
    }

    if len(raw) != prefixLen+chain.AccountIDLength+checksumLength {
        return id, 0, fmt.Errorf("%w: got %d bytes", ErrBadLength, len(raw))
    }
    body := raw[:len(raw)-checksumLength]
    sum := checksum(body)
    if !bytes.Equal(sum[:checksumLength], raw[len(body):]) {
        return id, 0, ErrBadChecksum
    }
    copy(id[:], body[prefixLen:])
    return id, format, nil
}

func formatPrefix(format uint16) []byte {
    format &= maxFormat
    if format < 64 {
        return []byte{byte(format)}
    }
    first := byte((format&0xfc)>>2) | 0x40
    second := byte(format>>8) | byte(format&0x03)<<6
    return []byte{first, second}
}

func checksum(body []byte) [blake2b.Size]byte {
    buf := make([]byte, 0, len(checksumPrefix)+len(body))
    buf = append(buf, checksumPrefix...)
    buf = append(buf, body...)
    return blake2b.Sum512(buf)
}
