// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package store

import (
    "path/filepath"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "blockwatch.cc/raffle-rollup/pkg/access"
    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/oracle"
    "blockwatch.cc/raffle-rollup/pkg/rollup"
    "blockwatch.cc/raffle-rollup/pkg/signer"
)

const (
    ADMIN   = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
    MANAGER = "8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48"
    ALICE   = "0a5915b47caf9cd65cc927336ba6d2cb3edf11141259c6e1289ead116f02622b"
)

func open(t *testing.T) (*Store, string) {
    path := filepath.Join(t.TempDir(), "rollup.db")
    s, err := Open(path)
    require.NoError(t, err)
    return s, path
}

func TestRollupState(t *testing.T) {
    s, path := open(t)

    _, err := s.LoadRollup()
    assert.ErrorIs(t, err, ErrNotFound, "empty store")

    key := signer.Derive([]byte("relay"), "sender")
    core := rollup.NewCoreScript("scriptArgs[0]", "{}")
    state := rollup.ContractState{
        Owner:     access.Owner{Account: chain.MustParseAccountID(ADMIN)},
        AttestKey: signer.Derive([]byte("secret"), signer.AttestNonce),
        Config: &rollup.TargetConfig{
            Endpoint:   "http://localhost:8545",
            PalletID:   70,
            ContractID: chain.MustParseAccountID(ALICE),
            SenderKey:  &key,
        },
        Core: &core,
    }
    require.NoError(t, s.SaveRollup(state))
    require.NoError(t, s.Close())

    s, err = Open(path)
    require.NoError(t, err)
    defer s.Close()
    loaded, err := s.LoadRollup()
    require.NoError(t, err)
    assert.Equal(t, state, loaded, "survives reopen")
}

func TestRegistryState(t *testing.T) {
    s, _ := open(t)
    defer s.Close()

    _, err := s.LoadRegistry()
    assert.ErrorIs(t, err, ErrNotFound)

    ctx := chain.NewCallContext(chain.MustParseAccountID(ADMIN))
    roles := access.NewRoles(ctx.Caller())
    require.NoError(t, roles.GrantRole(ctx.Caller(), oracle.OracleDataManager, chain.MustParseAccountID(MANAGER)))
    reg := oracle.NewRegistry(ctx, roles.Require(oracle.OracleDataManager))

    ctx.SetCaller(chain.MustParseAccountID(MANAGER))
    require.NoError(t, reg.AddParticipant(7, chain.MustParseAccountID(ALICE), chain.NewBalance(10)))
    require.NoError(t, reg.AddParticipant(7, chain.MustParseAccountID(ALICE), chain.NewBalance(5)))
    require.NoError(t, reg.SetRewards(7, chain.MustParseBalance("163483092786717962675")))

    require.NoError(t, s.SaveRegistry(RegistryState{Data: reg.Snapshot(), Members: roles.Members()}))
    loaded, err := s.LoadRegistry()
    require.NoError(t, err)

    restored := oracle.Restore(ctx, access.RestoreRoles(loaded.Members).Require(oracle.OracleDataManager), loaded.Data)
    assert.Equal(t, reg.GetData(7), restored.GetData(7), "same view")
    assert.Len(t, restored.GetData(7).Participants, 2, "duplicates kept")
    assert.NoError(t, restored.ClearData(7), "manager role restored")
}
