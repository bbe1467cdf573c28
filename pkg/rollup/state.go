// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rollup

import (
    "fmt"

    "github.com/centrifuge/go-substrate-rpc-client/v4/scale"

    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/signer"
)

func encodeOption(e scale.Encoder, v interface{}, some bool) error {
    if !some {
        return e.PushByte(0)
    }
    if err := e.PushByte(1); err != nil {
        return err
    }
    return e.Encode(v)
}

func decodeOption(d scale.Decoder, v interface{}) (bool, error) {
    b, err := d.ReadOneByte()
    if err != nil {
        return false, err
    }
    switch b {
    case 0:
        return false, nil
    case 1:
        return true, d.Decode(v)
    default:
        return false, fmt.Errorf("invalid option tag %d", b)
    }
}

func (c TargetConfig) Encode(e scale.Encoder) error {
    for _, v := range []interface{}{c.Endpoint, c.PalletID, c.CallID, c.ContractID} {
        if err := e.Encode(v); err != nil {
            return err
        }
    }
    var key signer.Key
    if c.SenderKey != nil {
        key = *c.SenderKey
    }
    return encodeOption(e, key, c.SenderKey != nil)
}

func (c *TargetConfig) Decode(d scale.Decoder) error {
    *c = TargetConfig{}
    for _, v := range []interface{}{&c.Endpoint, &c.PalletID, &c.CallID, &c.ContractID} {
        if err := d.Decode(v); err != nil {
            return err
        }
    }
    var key signer.Key
    ok, err := decodeOption(d, &key)
    if err != nil {
        return err
    }
    if ok {
        c.SenderKey = &key
    }
    return nil
}

type storedCore struct {
    Script   string
    Settings string
}

// Core scripts are stored as text only, hashes are recomputed on load.
func (s ContractState) Encode(e scale.Encoder) error {
    if err := e.Encode(s.Owner.Account); err != nil {
        return err
    }
    if err := e.Encode(s.AttestKey); err != nil {
        return err
    }
    var cfg TargetConfig
    if s.Config != nil {
        cfg = *s.Config
    }
    if err := encodeOption(e, cfg, s.Config != nil); err != nil {
        return err
    }
    var core storedCore
    if s.Core != nil {
        core = storedCore{s.Core.Script, s.Core.Settings}
    }
    return encodeOption(e, core, s.Core != nil)
}

func (s *ContractState) Decode(d scale.Decoder) error {
    *s = ContractState{}
    if err := d.Decode(&s.Owner.Account); err != nil {
        return err
    }
    if err := d.Decode(&s.AttestKey); err != nil {
        return err
    }
    var cfg TargetConfig
    ok, err := decodeOption(d, &cfg)
    if err != nil {
        return err
    }
    if ok {
        s.Config = &cfg
    }
    var core storedCore
    if ok, err = decodeOption(d, &core); err != nil {
        return err
    }
    if ok {
        c := NewCoreScript(core.Script, core.Settings)
        s.Core = &c
    }
    return nil
}

// EncodeState serializes contract state for persistence.
func EncodeState(s ContractState) ([]byte, error) {
    return chain.Encode(s)
}

func DecodeState(buf []byte) (ContractState, error) {
    var s ContractState
    if err := chain.Decode(buf, &s); err != nil {
        return s, newError(FailedToDecode, err)
    }
    return s, nil
}
