// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package oracle

import (
    "fmt"
    "sort"

    "blockwatch.cc/raffle-rollup/pkg/access"
    "blockwatch.cc/raffle-rollup/pkg/chain"
)

// Registry stores era scoped participants and reward pools. Mutations are
// guarded by an injected policy.
type Registry struct {
    env          chain.Env
    policy       access.Policy
    participants []ParticipantRow
    rewards      map[uint32]chain.Balance
}

var (
    _ Manager  = (*Registry)(nil)
    _ Consumer = (*Registry)(nil)
)

func NewRegistry(env chain.Env, policy access.Policy) *Registry {
    return &Registry{
        env:          env,
        policy:       policy,
        participants: make([]ParticipantRow, 0),
        rewards:      make(map[uint32]chain.Balance),
    }
}

// Restore rebuilds a registry from a snapshot.
func Restore(env chain.Env, policy access.Policy, s Snapshot) *Registry {
    r := NewRegistry(env, policy)
    r.participants = append(r.participants, s.Rows...)
    for _, v := range s.Rewards {
        r.rewards[v.Era] = v.Amount
    }
    return r
}

func (r *Registry) ensure(op string) error {
    if err := r.policy.Ensure(r.env.Caller()); err != nil {
        return fmt.Errorf("%s: %w", op, err)
    }
    return nil
}

// Appends a participant row. Duplicate (account, era) rows are kept.
// Called by: data manager
func (r *Registry) AddParticipant(era uint32, account chain.AccountID, weight chain.Balance) error {
    if err := r.ensure("add participant"); err != nil {
        return err
    }
    r.participants = append(r.participants, ParticipantRow{
        Account: account,
        Era:     era,
        Weight:  weight,
    })
    return nil
}

// Adds participants one by one. The first failure is returned and rows
// added before it stay in place.
// Called by: data manager
func (r *Registry) AddParticipants(era uint32, list []Participant) error {
    if err := r.ensure("add participants"); err != nil {
        return err
    }
    for _, p := range list {
        if err := r.AddParticipant(era, p.Account, p.Weight); err != nil {
            return err
        }
    }
    return nil
}

// Sets the reward pool for an era, replacing any previous value.
// Called by: data manager
func (r *Registry) SetRewards(era uint32, amount chain.Balance) error {
    if err := r.ensure("set rewards"); err != nil {
        return err
    }
    r.rewards[era] = amount
    return nil
}

// Removes the reward pool and every participant row of an era.
// Called by: data manager
func (r *Registry) ClearData(era uint32) error {
    if err := r.ensure("clear data"); err != nil {
        return err
    }
    delete(r.rewards, era)
    kept := r.participants[:0]
    for _, p := range r.participants {
        if p.Era != era {
            kept = append(kept, p)
        }
    }
    // drop stale tail references
    for i := len(kept); i < len(r.participants); i++ {
        r.participants[i] = ParticipantRow{}
    }
    r.participants = kept
    return nil
}

// Views participants and reward pool of an era. Missing rewards read as zero.
// Called by: anyone
func (r *Registry) GetData(era uint32) OracleData {
    list := make([]Participant, 0)
    for _, p := range r.participants {
        if p.Era == era {
            list = append(list, Participant{Account: p.Account, Weight: p.Weight})
        }
    }
    return OracleData{
        Participants: list,
        Rewards:      r.rewards[era],
    }
}

// Eras lists all eras with participants or rewards, ascending.
func (r *Registry) Eras() []uint32 {
    seen := make(map[uint32]struct{})
    for _, p := range r.participants {
        seen[p.Era] = struct{}{}
    }
    for era := range r.rewards {
        seen[era] = struct{}{}
    }
    eras := make([]uint32, 0, len(seen))
    for era := range seen {
        eras = append(eras, era)
    }
    sort.Slice(eras, func(i, j int) bool { return eras[i] < eras[j] })
    return eras
}

func (r *Registry) Snapshot() Snapshot {
    s := Snapshot{
        Rows:    make([]ParticipantRow, len(r.participants)),
        Rewards: make([]RewardEntry, 0, len(r.rewards)),
    }
    copy(s.Rows, r.participants)
    for era, amount := range r.rewards {
        s.Rewards = append(s.Rewards, RewardEntry{Era: era, Amount: amount})
    }
    sort.Slice(s.Rewards, func(i, j int) bool { return s.Rewards[i].Era < s.Rewards[j].Era })
    return s
}
