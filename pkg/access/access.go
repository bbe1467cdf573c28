// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package access implements the capability checks that guard contract
// mutations. Checks run before any state change.
package access

import (
    "errors"
    "fmt"

    "blockwatch.cc/raffle-rollup/pkg/chain"
)

var (
    ErrBadOrigin   = errors.New("bad origin")
    ErrMissingRole = errors.New("missing role")
)

// Policy decides whether caller holds a capability.
type Policy interface {
    Ensure(caller chain.AccountID) error
}

// PolicyFunc adapts a function to a Policy.
type PolicyFunc func(caller chain.AccountID) error

func (f PolicyFunc) Ensure(caller chain.AccountID) error {
    return f(caller)
}

// Owner is a single account capability that may be handed over by its
// current holder.
type Owner struct {
    Account chain.AccountID
}

func NewOwner(a chain.AccountID) *Owner {
    return &Owner{Account: a}
}

func (o *Owner) Ensure(caller chain.AccountID) error {
    if caller != o.Account {
        return fmt.Errorf("%w: %s is not the owner", ErrBadOrigin, caller)
    }
    return nil
}

// Transfer replaces the owner. There is no acceptance step.
// Called by: owner
func (o *Owner) Transfer(caller, next chain.AccountID) error {
    if err := o.Ensure(caller); err != nil {
        return err
    }
    o.Account = next
    return nil
}
