// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package chain

import (
    "encoding/binary"
    "fmt"

    "github.com/ethereum/go-ethereum/common/hexutil"
    cid "github.com/ipfs/go-cid"
    mc "github.com/multiformats/go-multicodec"
    mh "github.com/multiformats/go-multihash"
    "golang.org/x/crypto/blake2b"
)

const HashLength = 32

// Hash is a 32 byte digest.
type Hash [HashLength]byte

// same prefix the node uses for content ids
var rawPrefix = cid.Prefix{
    Version:  1,
    Codec:    uint64(mc.Raw),
    MhType:   mh.SHA2_256,
    MhLength: -1, // default length
}

// Sha256 returns the sha2-256 digest of buf.
func Sha256(buf []byte) Hash {
    c, err := rawPrefix.Sum(buf)
    if err != nil {
        // only fails for unregistered hash codes
        panic(fmt.Errorf("sha2-256 multihash: %v", err))
    }
    dec, err := mh.Decode(c.Hash())
    if err != nil {
        panic(fmt.Errorf("sha2-256 multihash: %v", err))
    }
    var h Hash
    copy(h[:], dec.Digest)
    return h
}

// Blake2_256 returns the 32 byte blake2b digest of buf.
func Blake2_256(buf []byte) Hash {
    return Hash(blake2b.Sum256(buf))
}

// SelectorID derives a stable 4 byte identifier from a constant name, the
// same way ink! derives storage and role keys.
func SelectorID(name string) uint32 {
    h := blake2b.Sum256([]byte(name))
    return binary.BigEndian.Uint32(h[:4])
}

func (h Hash) IsZero() bool {
    return h == Hash{}
}

func (h Hash) String() string {
    return hexutil.Encode(h[:])
}

// CID renders a sha2-256 digest as a raw content id.
func (h Hash) CID() cid.Cid {
    m, err := mh.Encode(h[:], mh.SHA2_256)
    if err != nil {
        return cid.Undef
    }
    return cid.NewCidV1(uint64(mc.Raw), m)
}

func (h Hash) MarshalText() ([]byte, error) {
    return []byte(h.String()), nil
}
