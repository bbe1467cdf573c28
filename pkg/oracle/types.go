// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package oracle

import (
    "blockwatch.cc/raffle-rollup/pkg/access"
    "blockwatch.cc/raffle-rollup/pkg/chain"
)

// Role allowed to manage participants and rewards.
var OracleDataManager = access.RoleType(chain.SelectorID("ORACLE_DATA_MANAGER"))

// ParticipantRow is one stored participation. The same account may appear
// several times for one era.
type ParticipantRow struct {
    Account chain.AccountID
    Era     uint32
    Weight  chain.Balance
}

type Participant struct {
    Account chain.AccountID `json:"account"`
    Weight  chain.Balance   `json:"weight"`
}

type RewardEntry struct {
    Era    uint32
    Amount chain.Balance
}

// OracleData is the per-era view handed to consumer contracts.
type OracleData struct {
    Participants []Participant `json:"participants"`
    Rewards      chain.Balance `json:"rewards"`
}

// Snapshot is the persisted form of a registry.
type Snapshot struct {
    Rows    []ParticipantRow
    Rewards []RewardEntry
}

// Data manager interface exposed to consumer contracts.
type Manager interface {
    // Called by: data manager
    AddParticipant(era uint32, account chain.AccountID, weight chain.Balance) error

    // Called by: data manager
    AddParticipants(era uint32, list []Participant) error

    // Called by: data manager
    SetRewards(era uint32, amount chain.Balance) error

    // Called by: data manager
    ClearData(era uint32) error
}

// Read-only interface exposed to consumer contracts.
type Consumer interface {
    // Called by: anyone
    GetData(era uint32) OracleData
}
