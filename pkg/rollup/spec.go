// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rollup

import (
    "context"

    "blockwatch.cc/raffle-rollup/pkg/access"
    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/signer"
)

// Queue slots read from the anchor contract.
var (
    NextEraKey     = chain.SelectorID("NEXT_ERA")
    NbWinnersKey   = chain.SelectorID("NB_WINNERS")
    LastWinnersKey = chain.SelectorID("LAST_WINNER")
)

// TargetConfig locates the anchor contract.
type TargetConfig struct {
    Endpoint   string          // RPC endpoint of the target chain
    PalletID   uint8           // contracts pallet index
    CallID     uint8           // call index inside the pallet
    ContractID chain.AccountID // anchor address
    SenderKey  *signer.Key     // relay key for meta-tx, nil for direct submission
}

// Target is the public view of a TargetConfig.
type Target struct {
    Endpoint   string          `json:"endpoint"`
    PalletID   uint8           `json:"pallet_id"`
    CallID     uint8           `json:"call_id"`
    ContractID chain.AccountID `json:"contract_id"`
}

// CoreScript is the winner selection script and its settings. Hashes are
// always derived from the stored text.
type CoreScript struct {
    Script       string     `json:"script"`
    Settings     string     `json:"settings"`
    ScriptHash   chain.Hash `json:"script_hash"`
    SettingsHash chain.Hash `json:"settings_hash"`
}

func NewCoreScript(script, settings string) CoreScript {
    return CoreScript{
        Script:       script,
        Settings:     settings,
        ScriptHash:   chain.Sha256([]byte(script)),
        SettingsHash: chain.Sha256([]byte(settings)),
    }
}

// Contract state of the rollup worker
type ContractState struct {
    // contract owner (allowed to configure and dry run)
    Owner access.Owner

    // key signing rollup transactions
    AttestKey signer.Key

    // unset until configured by the owner
    Config *TargetConfig
    Core   *CoreScript
}

type Contract interface {
    // Gets the owner of the contract
    // Called by: anyone
    Owner() chain.AccountID

    // Gets the attestor public key
    // Called by: anyone
    AttestAddress() []byte

    // Gets the ecdsa address of the attestor used in meta transactions
    // Called by: anyone
    AttestEcdsaAddress() ([]byte, error)

    // Gets the relay sender public key, if any
    // Called by: anyone
    SenderAddress() ([]byte, bool)

    // Gets the anchor location
    // Called by: anyone
    TargetContract() (Target, bool)

    // Configures the anchor location and optional relay key
    // Called by: owner
    ConfigTargetContract(endpoint string, palletID, callID uint8, contractID []byte, senderKey []byte) error

    // Gets the core script
    // Called by: anyone
    CoreScript() (CoreScript, bool)

    // Configures script and settings
    // Called by: owner
    ConfigCoreScript(script, settings string) error

    // Replaces the script only
    // Called by: owner
    ConfigCoreScriptText(script string) error

    // Replaces the settings only
    // Called by: owner
    ConfigCoreSettings(settings string) error

    // Hands the contract over, effective immediately
    // Called by: owner
    TransferOwnership(next chain.AccountID) error

    // Answers the pending raffle request and returns the tx id, nil when
    // there was nothing to submit
    // Called by: anyone (scheduler)
    RunRaffle(ctx context.Context) ([]byte, error)

    // Computes the reply for the pending request without submitting it
    // Called by: owner
    DryRun(ctx context.Context) ([]byte, error)

    // Computes the reply for an explicit request without submitting it
    // Called by: owner
    DryRunWithParameters(ctx context.Context, era uint32, nbWinners uint16, excluded []chain.AccountID) ([]byte, error)
}
