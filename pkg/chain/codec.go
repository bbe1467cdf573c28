// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package chain

import (
    "bytes"

    "github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// Encode returns the SCALE encoding of v.
func Encode(v interface{}) ([]byte, error) {
    var buf bytes.Buffer
    if err := scale.NewEncoder(&buf).Encode(v); err != nil {
        return nil, err
    }
    return buf.Bytes(), nil
}

// Decode reads a SCALE encoded value from buf into v, which must be a pointer.
// Trailing bytes are ignored.
func Decode(buf []byte, v interface{}) error {
    return scale.NewDecoder(bytes.NewReader(buf)).Decode(v)
}
