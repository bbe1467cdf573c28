// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package rollup implements the off-chain worker that answers raffle
// requests queued on the anchor contract.
package rollup

import (
    "github.com/echa/log"

    "blockwatch.cc/raffle-rollup/pkg/access"
    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/engine"
    "blockwatch.cc/raffle-rollup/pkg/raffle"
    "blockwatch.cc/raffle-rollup/pkg/signer"
    "blockwatch.cc/raffle-rollup/pkg/ss58"
)

type Rollup struct {
    ContractState

    env          chain.Env
    dialer       Dialer
    bridge       *engine.Bridge
    conv         raffle.Converter
    reportErrors bool
}

var _ Contract = (*Rollup)(nil)

type Option func(*Rollup)

// WithConverter overrides the address format used towards the engine.
func WithConverter(c raffle.Converter) Option {
    return func(r *Rollup) {
        r.conv = c
    }
}

// WithErrorReplies replies with a failure envelope when the core script
// fails instead of aborting the run.
func WithErrorReplies() Option {
    return func(r *Rollup) {
        r.reportErrors = true
    }
}

// New deploys a fresh rollup owned by the current caller. The attest key is
// derived from the worker secret.
func New(env chain.Env, secret []byte, dialer Dialer, bridge *engine.Bridge, opts ...Option) *Rollup {
    return Restore(env, ContractState{
        Owner:     access.Owner{Account: env.Caller()},
        AttestKey: signer.Derive(secret, signer.AttestNonce),
    }, dialer, bridge, opts...)
}

// Restore wraps previously persisted state.
func Restore(env chain.Env, state ContractState, dialer Dialer, bridge *engine.Bridge, opts ...Option) *Rollup {
    r := &Rollup{
        ContractState: state,
        env:           env,
        dialer:        dialer,
        bridge:        bridge,
        conv:          raffle.NewConverter(ss58.New(ss58.Astar)),
    }
    for _, o := range opts {
        o(r)
    }
    return r
}

// State returns a copy of the contract state for persistence.
func (r *Rollup) State() ContractState {
    s := r.ContractState
    if s.Config != nil {
        cfg := *s.Config
        if cfg.SenderKey != nil {
            k := *cfg.SenderKey
            cfg.SenderKey = &k
        }
        s.Config = &cfg
    }
    if s.Core != nil {
        core := *s.Core
        s.Core = &core
    }
    return s
}

func (r *Rollup) ensureOwner() error {
    if err := r.ContractState.Owner.Ensure(r.env.Caller()); err != nil {
        return newError(BadOrigin, err)
    }
    return nil
}

func (r *Rollup) ensureClientConfigured() (TargetConfig, error) {
    if r.Config == nil {
        return TargetConfig{}, ErrClientNotConfigured
    }
    return *r.Config, nil
}

func (r *Rollup) Owner() chain.AccountID {
    return r.ContractState.Owner.Account
}

func (r *Rollup) AttestAddress() []byte {
    return r.AttestKey.Public()
}

func (r *Rollup) AttestEcdsaAddress() ([]byte, error) {
    return r.AttestKey.EcdsaAddress()
}

func (r *Rollup) SenderAddress() ([]byte, bool) {
    if r.Config == nil || r.Config.SenderKey == nil {
        return nil, false
    }
    return r.Config.SenderKey.Public(), true
}

func (r *Rollup) TargetContract() (Target, bool) {
    if r.Config == nil {
        return Target{}, false
    }
    return Target{
        Endpoint:   r.Config.Endpoint,
        PalletID:   r.Config.PalletID,
        CallID:     r.Config.CallID,
        ContractID: r.Config.ContractID,
    }, true
}

func (r *Rollup) ConfigTargetContract(endpoint string, palletID, callID uint8, contractID []byte, senderKey []byte) error {
    if err := r.ensureOwner(); err != nil {
        return err
    }
    id, err := chain.AccountFromBytes(contractID)
    if err != nil {
        return newError(InvalidAddressLength, err)
    }
    var key *signer.Key
    if senderKey != nil {
        k, err := signer.KeyFromBytes(senderKey)
        if err != nil {
            return newError(InvalidKeyLength, err)
        }
        key = &k
    }
    r.Config = &TargetConfig{
        Endpoint:   endpoint,
        PalletID:   palletID,
        CallID:     callID,
        ContractID: id,
        SenderKey:  key,
    }
    log.Infof("Configured target contract %s at %s (pallet=%d call=%d meta-tx=%t)",
        id, endpoint, palletID, callID, key != nil)
    return nil
}

func (r *Rollup) CoreScript() (CoreScript, bool) {
    if r.Core == nil {
        return CoreScript{}, false
    }
    return *r.Core, true
}

func (r *Rollup) ConfigCoreScript(script, settings string) error {
    if err := r.ensureOwner(); err != nil {
        return err
    }
    r.setCore(script, settings)
    return nil
}

func (r *Rollup) ConfigCoreScriptText(script string) error {
    if err := r.ensureOwner(); err != nil {
        return err
    }
    if r.Core == nil {
        return ErrCoreNotConfigured
    }
    r.setCore(script, r.Core.Settings)
    return nil
}

func (r *Rollup) ConfigCoreSettings(settings string) error {
    if err := r.ensureOwner(); err != nil {
        return err
    }
    if r.Core == nil {
        return ErrCoreNotConfigured
    }
    r.setCore(r.Core.Script, settings)
    return nil
}

func (r *Rollup) setCore(script, settings string) {
    core := NewCoreScript(script, settings)
    r.Core = &core
    log.Infof("Configured core script %s settings %s", core.ScriptHash, core.SettingsHash)
}

func (r *Rollup) TransferOwnership(next chain.AccountID) error {
    if err := r.ContractState.Owner.Transfer(r.env.Caller(), next); err != nil {
        return newError(BadOrigin, err)
    }
    log.Infof("Ownership transferred to %s", next)
    return nil
}
