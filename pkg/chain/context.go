// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package chain

// Env exposes the transaction context to contract code.
type Env interface {
    Caller() AccountID
}

// Transaction context available during contract execution
type CallContext struct {
    Origin AccountID // signer account id
    Height int64     // block height, informational
}

func NewCallContext(origin AccountID) *CallContext {
    return &CallContext{Origin: origin}
}

func (c *CallContext) Caller() AccountID {
    return c.Origin
}

// SetCaller switches the signer for subsequent calls.
func (c *CallContext) SetCaller(a AccountID) {
    c.Origin = a
}
