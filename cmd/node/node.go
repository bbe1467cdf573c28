// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
    "errors"
    "fmt"
    "sync"

    "github.com/echa/log"
    "github.com/ethereum/go-ethereum/common/hexutil"
    "github.com/spf13/viper"

    "blockwatch.cc/raffle-rollup/pkg/access"
    "blockwatch.cc/raffle-rollup/pkg/anchor"
    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/engine"
    "blockwatch.cc/raffle-rollup/pkg/oracle"
    "blockwatch.cc/raffle-rollup/pkg/raffle"
    "blockwatch.cc/raffle-rollup/pkg/rollup"
    "blockwatch.cc/raffle-rollup/pkg/ss58"
    "blockwatch.cc/raffle-rollup/pkg/store"
)

// Node owns the rollup, the era registry and their persistent state. Calls
// are serialized.
type Node struct {
    sync.Mutex
    ctx      *chain.CallContext
    store    *store.Store
    roles    *access.Roles
    registry *oracle.Registry
    rollup   *rollup.Rollup
}

// openNode loads rollup and registry from the state database, deploying
// fresh ones owned by the operator on first start.
func openNode() (*Node, error) {
    operator := viper.GetString("operator")
    if operator == "" {
        return nil, fmt.Errorf("empty operator account")
    }
    caller, err := chain.ParseAccountID(operator)
    if err != nil {
        return nil, fmt.Errorf("operator: %w", err)
    }
    db, err := store.Open(viper.GetString("db"))
    if err != nil {
        return nil, err
    }

    n := &Node{
        ctx:   chain.NewCallContext(caller),
        store: db,
    }
    if err := n.loadRegistry(); err != nil {
        db.Close()
        return nil, err
    }

    dialer := anchor.HTTPDialer(nil)
    bridge := engine.NewBridge(n.scriptEngine())
    var opts []rollup.Option
    if viper.GetBool("report_errors") {
        opts = append(opts, rollup.WithErrorReplies())
    }

    state, err := db.LoadRollup()
    switch {
    case err == nil:
        n.rollup = rollup.Restore(n.ctx, state, dialer, bridge, opts...)
        log.Debugf("Loaded rollup state from %s", db.Path())
    case errors.Is(err, store.ErrNotFound):
        seed, err := hexutil.Decode(viper.GetString("seed"))
        if err != nil || len(seed) == 0 {
            db.Close()
            return nil, fmt.Errorf("a hex worker seed is required on first start")
        }
        n.rollup = rollup.New(n.ctx, seed, dialer, bridge, opts...)
        if err := n.save(); err != nil {
            db.Close()
            return nil, err
        }
        log.Infof("Deployed new rollup owned by %s", caller)
    default:
        db.Close()
        return nil, err
    }
    return n, nil
}

func (n *Node) loadRegistry() error {
    state, err := n.store.LoadRegistry()
    switch {
    case err == nil:
        n.roles = access.RestoreRoles(state.Members)
        n.registry = oracle.Restore(n.ctx, n.roles.Require(oracle.OracleDataManager), state.Data)
        log.Debugf("Loaded registry with %d eras", len(n.registry.Eras()))
    case errors.Is(err, store.ErrNotFound):
        n.roles = access.NewRoles(n.ctx.Caller())
        n.registry = oracle.NewRegistry(n.ctx, n.roles.Require(oracle.OracleDataManager))
    default:
        return err
    }
    return nil
}

// scriptEngine returns the core script engine with request, response and
// registry bindings.
func (n *Node) scriptEngine() *engine.Goja {
    opts := append(raffle.ScriptBindings(), raffle.OracleBinding(n.registry, ss58.New(ss58.Astar)))
    return engine.NewGoja(opts...)
}

func (n *Node) save() error {
    if err := n.store.SaveRollup(n.rollup.State()); err != nil {
        return err
    }
    return n.store.SaveRegistry(store.RegistryState{
        Data:    n.registry.Snapshot(),
        Members: n.roles.Members(),
    })
}

// update runs an owner call and persists the result.
func (n *Node) update(fn func(r *rollup.Rollup) error) error {
    n.Lock()
    defer n.Unlock()
    if err := fn(n.rollup); err != nil {
        return err
    }
    return n.save()
}

// updateRegistry runs a registry call and persists the result. Batches that
// fail half way are persisted as far as they were applied.
func (n *Node) updateRegistry(fn func(reg *oracle.Registry, roles *access.Roles) error) error {
    n.Lock()
    defer n.Unlock()
    err := fn(n.registry, n.roles)
    if serr := n.save(); serr != nil {
        return serr
    }
    return err
}

func (n *Node) Close() error {
    return n.store.Close()
}
