// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package signer holds the worker's signing keys.
package signer

import (
    "fmt"

    "github.com/cloudflare/circl/sign/ed25519"
    "github.com/ethereum/go-ethereum/crypto"
    "golang.org/x/crypto/blake2b"
)

const KeyLength = 32

// AttestNonce derives the key that signs rollup transactions.
const AttestNonce = "attest_key"

// Key is a 32 byte secret seed.
type Key [KeyLength]byte

func KeyFromBytes(b []byte) (Key, error) {
    var k Key
    if len(b) != KeyLength {
        return k, fmt.Errorf("signer: invalid key length %d", len(b))
    }
    copy(k[:], b)
    return k, nil
}

// Derive returns a deterministic key for nonce from the worker secret.
func Derive(secret []byte, nonce string) Key {
    buf := make([]byte, 0, len(secret)+len(nonce))
    buf = append(buf, secret...)
    buf = append(buf, nonce...)
    return Key(blake2b.Sum256(buf))
}

func (k Key) private() ed25519.PrivateKey {
    return ed25519.NewKeyFromSeed(k[:])
}

// Public returns the ed25519 public key.
func (k Key) Public() []byte {
    pub := k.private().Public().(ed25519.PublicKey)
    return []byte(pub)
}

func (k Key) Sign(msg []byte) []byte {
    return ed25519.Sign(k.private(), msg)
}

// EcdsaAddress is the blake2b-256 hash of the compressed secp256k1 public
// key for the same seed, used to identify the key in meta transactions.
func (k Key) EcdsaAddress() ([]byte, error) {
    priv, err := crypto.ToECDSA(k[:])
    if err != nil {
        return nil, fmt.Errorf("signer: ecdsa key: %w", err)
    }
    h := blake2b.Sum256(crypto.CompressPubkey(&priv.PublicKey))
    return h[:], nil
}

func Verify(pub, msg, sig []byte) bool {
    if len(pub) != ed25519.PublicKeySize {
        return false
    }
    return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}
