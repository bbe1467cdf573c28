// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package access

import (
    "fmt"
    "sort"

    "blockwatch.cc/raffle-rollup/pkg/chain"
)

type RoleType uint32

// DefaultAdmin administers every role.
const DefaultAdmin RoleType = 0

// Member is one (role, account) grant.
type Member struct {
    Role    uint32
    Account chain.AccountID
}

// Roles is a role based access control list.
type Roles struct {
    members map[RoleType]map[chain.AccountID]struct{}
}

// NewRoles creates an access list where admin holds DefaultAdmin.
func NewRoles(admin chain.AccountID) *Roles {
    r := &Roles{members: make(map[RoleType]map[chain.AccountID]struct{})}
    r.add(DefaultAdmin, admin)
    return r
}

func (r *Roles) HasRole(role RoleType, a chain.AccountID) bool {
    _, ok := r.members[role][a]
    return ok
}

func (r *Roles) ensureRole(role RoleType, caller chain.AccountID) error {
    if !r.HasRole(role, caller) {
        return fmt.Errorf("%w: %s lacks role %#08x", ErrMissingRole, caller, uint32(role))
    }
    return nil
}

// Require returns a policy satisfied by holders of role.
func (r *Roles) Require(role RoleType) Policy {
    return PolicyFunc(func(caller chain.AccountID) error {
        return r.ensureRole(role, caller)
    })
}

// Grants role to account.
// Called by: admin
func (r *Roles) GrantRole(caller chain.AccountID, role RoleType, a chain.AccountID) error {
    if err := r.ensureRole(DefaultAdmin, caller); err != nil {
        return err
    }
    r.add(role, a)
    return nil
}

// Revokes role from account.
// Called by: admin
func (r *Roles) RevokeRole(caller chain.AccountID, role RoleType, a chain.AccountID) error {
    if err := r.ensureRole(DefaultAdmin, caller); err != nil {
        return err
    }
    r.remove(role, a)
    return nil
}

// Drops a role held by the caller itself.
// Called by: role holder
func (r *Roles) RenounceRole(caller chain.AccountID, role RoleType) error {
    if err := r.ensureRole(role, caller); err != nil {
        return err
    }
    r.remove(role, caller)
    return nil
}

// Members lists all grants in a stable order.
func (r *Roles) Members() []Member {
    list := make([]Member, 0)
    for role, accounts := range r.members {
        for a := range accounts {
            list = append(list, Member{Role: uint32(role), Account: a})
        }
    }
    sort.Slice(list, func(i, j int) bool {
        if list[i].Role != list[j].Role {
            return list[i].Role < list[j].Role
        }
        return string(list[i].Account[:]) < string(list[j].Account[:])
    })
    return list
}

// RestoreRoles rebuilds an access list from persisted grants.
func RestoreRoles(members []Member) *Roles {
    r := &Roles{members: make(map[RoleType]map[chain.AccountID]struct{})}
    for _, m := range members {
        r.add(RoleType(m.Role), m.Account)
    }
    return r
}

func (r *Roles) add(role RoleType, a chain.AccountID) {
    if _, ok := r.members[role]; !ok {
        r.members[role] = make(map[chain.AccountID]struct{})
    }
    r.members[role][a] = struct{}{}
}

func (r *Roles) remove(role RoleType, a chain.AccountID) {
    delete(r.members[role], a)
    if len(r.members[role]) == 0 {
        delete(r.members, role)
    }
}
