// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package raffle

import (
    "bytes"
    "errors"
    "fmt"

    "github.com/centrifuge/go-substrate-rpc-client/v4/scale"

    "blockwatch.cc/raffle-rollup/pkg/chain"
)

type EnvelopeKind uint8

const (
    Success EnvelopeKind = iota
    Failure
)

func (k EnvelopeKind) String() string {
    switch k {
    case Success:
        return "success"
    case Failure:
        return "failure"
    default:
        return fmt.Sprintf("kind(%d)", uint8(k))
    }
}

var ErrIntegrity = errors.New("integrity check failed")

// Envelope is the reply attached to the anchor queue. It binds the output to
// the script, settings and input that produced it.
//
// Success carries InputHash and Output; Failure carries the raw InputValue
// and the error text in Output.
type Envelope struct {
    Kind         EnvelopeKind
    ScriptHash   chain.Hash
    InputHash    chain.Hash
    InputValue   []byte
    SettingsHash chain.Hash
    Output       []byte
}

func NewSuccess(scriptHash chain.Hash, input []byte, settingsHash chain.Hash, output []byte) Envelope {
    return Envelope{
        Kind:         Success,
        ScriptHash:   scriptHash,
        InputHash:    chain.Sha256(input),
        SettingsHash: settingsHash,
        Output:       output,
    }
}

func NewFailure(scriptHash chain.Hash, input []byte, settingsHash chain.Hash, reason string) Envelope {
    return Envelope{
        Kind:         Failure,
        ScriptHash:   scriptHash,
        InputValue:   input,
        SettingsHash: settingsHash,
        Output:       []byte(reason),
    }
}

func (m Envelope) Encode(e scale.Encoder) error {
    if err := e.PushByte(byte(m.Kind)); err != nil {
        return err
    }
    var fields []interface{}
    switch m.Kind {
    case Success:
        fields = []interface{}{m.ScriptHash, m.InputHash, m.SettingsHash, m.Output}
    case Failure:
        fields = []interface{}{m.ScriptHash, m.InputValue, m.SettingsHash, m.Output}
    default:
        return fmt.Errorf("envelope: unknown kind %d", m.Kind)
    }
    for _, f := range fields {
        if err := e.Encode(f); err != nil {
            return err
        }
    }
    return nil
}

func (m *Envelope) Decode(d scale.Decoder) error {
    b, err := d.ReadOneByte()
    if err != nil {
        return err
    }
    *m = Envelope{Kind: EnvelopeKind(b)}
    var fields []interface{}
    switch m.Kind {
    case Success:
        fields = []interface{}{&m.ScriptHash, &m.InputHash, &m.SettingsHash, &m.Output}
    case Failure:
        fields = []interface{}{&m.ScriptHash, &m.InputValue, &m.SettingsHash, &m.Output}
    default:
        return fmt.Errorf("envelope: unknown kind %d", b)
    }
    for _, f := range fields {
        if err := d.Decode(f); err != nil {
            return err
        }
    }
    return nil
}

func DecodeEnvelope(buf []byte) (Envelope, error) {
    var m Envelope
    if err := chain.Decode(buf, &m); err != nil {
        return m, fmt.Errorf("%w: envelope: %v", ErrDecode, err)
    }
    return m, nil
}

// Verify checks that the envelope was produced by script and settings for
// the given raw on-chain request.
func (m Envelope) Verify(script, settings string, input []byte) error {
    if m.ScriptHash != chain.Sha256([]byte(script)) {
        return fmt.Errorf("%w: script hash", ErrIntegrity)
    }
    if m.SettingsHash != chain.Sha256([]byte(settings)) {
        return fmt.Errorf("%w: settings hash", ErrIntegrity)
    }
    switch m.Kind {
    case Success:
        if m.InputHash != chain.Sha256(input) {
            return fmt.Errorf("%w: input hash", ErrIntegrity)
        }
    case Failure:
        if !bytes.Equal(m.InputValue, input) {
            return fmt.Errorf("%w: input value", ErrIntegrity)
        }
    default:
        return fmt.Errorf("%w: unknown kind %d", ErrIntegrity, m.Kind)
    }
    return nil
}
