// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package raffle defines the raffle request and response shapes exchanged
// with the anchor contract and the compute engine.
package raffle

import (
    "errors"
    "fmt"

    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/ss58"
)

var ErrDecode = errors.New("failed to decode")

// RequestSc is the request as stored on chain.
type RequestSc struct {
    Era       uint32
    NbWinners uint16
    Excluded  []chain.AccountID
}

// RequestJs is the request handed to the engine, with textual addresses.
type RequestJs struct {
    Era       uint32   `json:"era"`
    NbWinners uint16   `json:"nbWinners"`
    Excluded  []string `json:"excluded"`
}

// ResponseJs is the engine result.
type ResponseJs struct {
    Era     uint32        `json:"era"`
    Skipped bool          `json:"skipped"`
    Rewards chain.Balance `json:"rewards"`
    Winners []string      `json:"winners"`
}

// ResponseSc is the result as written back on chain.
type ResponseSc struct {
    Era     uint32
    Skipped bool
    Rewards chain.Balance
    Winners []chain.AccountID
}

// Converter maps account ids between their raw and textual forms.
type Converter struct {
    codec ss58.Codec
}

func NewConverter(codec ss58.Codec) Converter {
    return Converter{codec: codec}
}

func (c Converter) Request(r RequestSc) RequestJs {
    excluded := make([]string, 0, len(r.Excluded))
    for _, a := range r.Excluded {
        excluded = append(excluded, c.codec.Encode(a))
    }
    return RequestJs{
        Era:       r.Era,
        NbWinners: r.NbWinners,
        Excluded:  excluded,
    }
}

// Response maps winner addresses back to raw ids. Addresses of any network
// format are accepted.
func (c Converter) Response(r ResponseJs) (ResponseSc, error) {
    winners := make([]chain.AccountID, 0, len(r.Winners))
    for _, s := range r.Winners {
        a, _, err := ss58.Decode(s)
        if err != nil {
            return ResponseSc{}, fmt.Errorf("%w: winner %q: %v", ErrDecode, s, err)
        }
        winners = append(winners, a)
    }
    return ResponseSc{
        Era:     r.Era,
        Skipped: r.Skipped,
        Rewards: r.Rewards,
        Winners: winners,
    }, nil
}

// EncodeRequest returns the engine input bytes for an on-chain request.
func (c Converter) EncodeRequest(r RequestSc) ([]byte, error) {
    return chain.Encode(c.Request(r))
}

// ConvertOutput decodes raw engine output and re-encodes it in its
// on-chain form.
func (c Converter) ConvertOutput(out []byte) ([]byte, error) {
    var js ResponseJs
    if err := chain.Decode(out, &js); err != nil {
        return nil, fmt.Errorf("%w: engine output: %v", ErrDecode, err)
    }
    sc, err := c.Response(js)
    if err != nil {
        return nil, err
    }
    return chain.Encode(sc)
}

func DecodeRequestJs(buf []byte) (RequestJs, error) {
    var r RequestJs
    if err := chain.Decode(buf, &r); err != nil {
        return r, fmt.Errorf("%w: request: %v", ErrDecode, err)
    }
    return r, nil
}

func DecodeResponseSc(buf []byte) (ResponseSc, error) {
    var r ResponseSc
    if err := chain.Decode(buf, &r); err != nil {
        return r, fmt.Errorf("%w: response: %v", ErrDecode, err)
    }
    return r, nil
}
