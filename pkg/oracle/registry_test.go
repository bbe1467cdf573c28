// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package oracle

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "blockwatch.cc/raffle-rollup/pkg/access"
    "blockwatch.cc/raffle-rollup/pkg/chain"
)

var (
    ADMIN   = chain.AccountID{0xaa}
    MANAGER = chain.AccountID{0xbb}
    NOBODY  = chain.AccountID{0xcc}
    A       = chain.AccountID{1}
    B       = chain.AccountID{2}
    C       = chain.AccountID{3}
)

func newRegistry(t *testing.T) (*Registry, *chain.CallContext) {
    ctx := chain.NewCallContext(ADMIN)
    roles := access.NewRoles(ADMIN)
    require.NoError(t, roles.GrantRole(ADMIN, OracleDataManager, MANAGER))
    ctx.SetCaller(MANAGER)
    return NewRegistry(ctx, roles.Require(OracleDataManager)), ctx
}

func bal(v uint64) chain.Balance {
    return chain.NewBalance(v)
}

func TestAddParticipants(t *testing.T) {
    r, _ := newRegistry(t)
    list := []Participant{
        {A, bal(10)},
        {B, bal(20)},
        {C, bal(30)},
    }
    require.NoError(t, r.AddParticipants(7, list))
    require.NoError(t, r.AddParticipant(8, A, bal(99)))

    data := r.GetData(7)
    assert.ElementsMatch(t, list, data.Participants, "era stripped, same rows")
    assert.True(t, data.Rewards.IsZero(), "no reward set")
    assert.Len(t, r.GetData(8).Participants, 1, "other era")
    assert.Empty(t, r.GetData(9).Participants, "unknown era")
}

func TestDuplicateParticipants(t *testing.T) {
    r, _ := newRegistry(t)
    require.NoError(t, r.AddParticipant(1, A, bal(5)))
    require.NoError(t, r.AddParticipant(1, A, bal(5)))
    require.NoError(t, r.AddParticipants(1, []Participant{{A, bal(6)}}))

    // rows are not deduplicated
    data := r.GetData(1)
    assert.Len(t, data.Participants, 3, "duplicates preserved")
    assert.ElementsMatch(t, []Participant{{A, bal(5)}, {A, bal(5)}, {A, bal(6)}}, data.Participants)
}

func TestSetRewards(t *testing.T) {
    r, _ := newRegistry(t)
    require.NoError(t, r.SetRewards(3, bal(100)))
    require.NoError(t, r.SetRewards(3, bal(250)))
    assert.Equal(t, bal(250), r.GetData(3).Rewards, "last write wins")
}

func TestClearData(t *testing.T) {
    r, _ := newRegistry(t)
    // interleave eras and duplicates
    require.NoError(t, r.AddParticipant(1, A, bal(1)))
    require.NoError(t, r.AddParticipant(2, A, bal(2)))
    require.NoError(t, r.AddParticipant(1, A, bal(1)))
    require.NoError(t, r.AddParticipant(1, B, bal(3)))
    require.NoError(t, r.AddParticipant(2, C, bal(4)))
    require.NoError(t, r.AddParticipant(1, C, bal(5)))
    require.NoError(t, r.SetRewards(1, bal(1000)))
    require.NoError(t, r.SetRewards(2, bal(2000)))

    require.NoError(t, r.ClearData(1))
    data := r.GetData(1)
    assert.Empty(t, data.Participants, "no orphaned rows")
    assert.True(t, data.Rewards.IsZero(), "reward removed")

    other := r.GetData(2)
    assert.ElementsMatch(t, []Participant{{A, bal(2)}, {C, bal(4)}}, other.Participants, "other era untouched")
    assert.Equal(t, bal(2000), other.Rewards, "other reward untouched")
    assert.Equal(t, []uint32{2}, r.Eras())

    // clearing an empty era is fine
    assert.NoError(t, r.ClearData(42))
}

func TestUnauthorized(t *testing.T) {
    r, ctx := newRegistry(t)
    require.NoError(t, r.AddParticipant(1, A, bal(1)))
    require.NoError(t, r.SetRewards(1, bal(10)))
    before := r.Snapshot()

    ctx.SetCaller(NOBODY)
    assert.ErrorIs(t, r.AddParticipant(1, B, bal(1)), access.ErrMissingRole, "add")
    assert.ErrorIs(t, r.AddParticipants(1, []Participant{{B, bal(1)}}), access.ErrMissingRole, "add batch")
    assert.ErrorIs(t, r.SetRewards(1, bal(99)), access.ErrMissingRole, "set rewards")
    assert.ErrorIs(t, r.ClearData(1), access.ErrMissingRole, "clear")
    assert.Equal(t, before, r.Snapshot(), "state unchanged")

    // admin does not implicitly hold the manager role
    ctx.SetCaller(ADMIN)
    assert.ErrorIs(t, r.SetRewards(1, bal(99)), access.ErrMissingRole, "admin")

    // reads need no capability
    ctx.SetCaller(NOBODY)
    assert.Len(t, r.GetData(1).Participants, 1)
}

func TestPartialBatch(t *testing.T) {
    ctx := chain.NewCallContext(MANAGER)
    calls := 0
    // grant is revoked while the batch runs
    policy := access.PolicyFunc(func(chain.AccountID) error {
        calls++
        if calls > 2 {
            return access.ErrMissingRole
        }
        return nil
    })
    r := NewRegistry(ctx, policy)
    err := r.AddParticipants(5, []Participant{{A, bal(1)}, {B, bal(2)}, {C, bal(3)}})
    assert.ErrorIs(t, err, access.ErrMissingRole, "batch aborted")
    assert.Equal(t, []Participant{{A, bal(1)}}, r.GetData(5).Participants, "applied rows are not rolled back")
}

func TestSnapshotRestore(t *testing.T) {
    r, ctx := newRegistry(t)
    require.NoError(t, r.AddParticipants(1, []Participant{{A, bal(1)}, {A, bal(1)}}))
    require.NoError(t, r.SetRewards(1, bal(7)))
    require.NoError(t, r.SetRewards(4, bal(8)))

    s := r.Snapshot()
    buf, err := chain.Encode(s)
    require.NoError(t, err)
    var dec Snapshot
    require.NoError(t, chain.Decode(buf, &dec))

    c := Restore(ctx, access.PolicyFunc(func(chain.AccountID) error { return nil }), dec)
    assert.Equal(t, r.GetData(1), c.GetData(1))
    assert.Equal(t, r.GetData(4), c.GetData(4))
    assert.Equal(t, []uint32{1, 4}, c.Eras())
}
