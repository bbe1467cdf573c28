// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
    "context"
    _ "embed"
    "errors"
    "fmt"
    "io"
    "math/rand"
    "net"
    "net/http"
    "strings"
    "text/tabwriter"
    "time"

    "github.com/echa/log"
    "github.com/ethereum/go-ethereum/common/hexutil"

    "blockwatch.cc/raffle-rollup/pkg/access"
    "blockwatch.cc/raffle-rollup/pkg/anchor"
    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/engine"
    "blockwatch.cc/raffle-rollup/pkg/oracle"
    "blockwatch.cc/raffle-rollup/pkg/raffle"
    "blockwatch.cc/raffle-rollup/pkg/rollup"
    "blockwatch.cc/raffle-rollup/pkg/signer"
    "blockwatch.cc/raffle-rollup/pkg/ss58"
)

//go:embed raffle.js
var raffleScript string

type Config struct {
    Listen       string
    Era          uint32
    Rounds       int
    Winners      uint16
    Participants int
    Seed         int64
    MetaTx       bool
}

// Round is the settled outcome of one era.
type Round struct {
    Era     uint32
    TxID    []byte
    Skipped bool
    Rewards chain.Balance
    Winners []string
}

func account(name string) chain.AccountID {
    return chain.AccountID(chain.Blake2_256([]byte(name)))
}

func simulate(ctx context.Context, cfg Config) ([]Round, error) {
    var (
        rng        = rand.New(rand.NewSource(cfg.Seed))
        codec      = ss58.New(ss58.Astar)
        admin      = account("admin")
        manager    = account("manager")
        contractID = account("anchor")
        env        = chain.NewCallContext(admin)
        settings   = fmt.Sprintf(`{"seed":%d}`, cfg.Seed)
    )

    // registry with one batch of participants per era
    roles := access.NewRoles(admin)
    if err := roles.GrantRole(admin, oracle.OracleDataManager, manager); err != nil {
        return nil, err
    }
    reg := oracle.NewRegistry(env, roles.Require(oracle.OracleDataManager))
    env.SetCaller(manager)
    for r := 0; r < cfg.Rounds; r++ {
        era := cfg.Era + uint32(r)
        list := make([]oracle.Participant, cfg.Participants)
        for i := range list {
            list[i] = oracle.Participant{
                Account: account(fmt.Sprintf("participant-%d", i)),
                Weight:  chain.NewBalance(uint64(1 + rng.Intn(1000))),
            }
        }
        if err := reg.AddParticipants(era, list); err != nil {
            return nil, err
        }
        if err := reg.SetRewards(era, chain.NewBalance(uint64(rng.Int63n(1e12)))); err != nil {
            return nil, err
        }
    }
    env.SetCaller(admin)

    // anchor contract served over HTTP
    m := anchor.NewMemory(contractID)
    if err := m.SetValue(rollup.NextEraKey, cfg.Era); err != nil {
        return nil, err
    }
    if err := m.SetValue(rollup.NbWinnersKey, cfg.Winners); err != nil {
        return nil, err
    }
    m.OnReply(settle(raffleScript, settings))

    l, err := net.Listen("tcp", cfg.Listen)
    if err != nil {
        return nil, err
    }
    srv := &http.Server{
        Handler:           anchor.NewServer(m).Routes(),
        ReadHeaderTimeout: 10 * time.Second,
    }
    go func() {
        if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Errorf("Anchor server: %v", err)
        }
    }()
    defer srv.Close()
    endpoint := "http://" + l.Addr().String()
    log.Infof("Anchor %s listening on %s", contractID, endpoint)

    // rollup worker
    goja := engine.NewGoja(append(raffle.ScriptBindings(),
        raffle.OracleBinding(reg, codec))...)
    worker := rollup.New(env, []byte(fmt.Sprint(cfg.Seed)), anchor.HTTPDialer(nil), engine.NewBridge(goja))
    var sender []byte
    if cfg.MetaTx {
        key := signer.Derive([]byte(fmt.Sprint(cfg.Seed)), "sender")
        sender = key[:]
    }
    if err := worker.ConfigTargetContract(endpoint, 70, 6, contractID.Bytes(), sender); err != nil {
        return nil, err
    }
    if err := worker.ConfigCoreScript(raffleScript, settings); err != nil {
        return nil, err
    }
    m.Authorize(worker.AttestAddress())

    backend := anchor.NewHTTPBackend(endpoint, nil)
    rounds := make([]Round, 0, cfg.Rounds)
    for i := 0; i < cfg.Rounds; i++ {
        txID, err := worker.RunRaffle(ctx)
        if err != nil {
            return rounds, err
        }
        replies, err := backend.Replies(ctx)
        if err != nil {
            return rounds, err
        }
        if len(replies) != i+1 {
            return rounds, fmt.Errorf("round %d: anchor holds %d replies", i, len(replies))
        }
        reply, err := raffle.DecodeEnvelope(replies[i])
        if err != nil {
            return rounds, err
        }
        resp, err := raffle.DecodeResponseSc(reply.Output)
        if err != nil {
            return rounds, err
        }
        round := Round{
            Era:     resp.Era,
            TxID:    txID,
            Skipped: resp.Skipped,
            Rewards: resp.Rewards,
        }
        for _, w := range resp.Winners {
            round.Winners = append(round.Winners, codec.Encode(w))
        }
        rounds = append(rounds, round)
    }
    return rounds, nil
}

// settle is the anchor side of a reply: it checks the envelope against the
// pending request, stores the winners and opens the next era.
func settle(script, settings string) anchor.ReplyHandler {
    return func(q anchor.Queue, reply []byte) error {
        req, err := pendingRequest(q)
        if err != nil {
            return err
        }
        raw, err := chain.Encode(req)
        if err != nil {
            return err
        }
        env, err := raffle.DecodeEnvelope(reply)
        if err != nil {
            return err
        }
        if err := env.Verify(script, settings, raw); err != nil {
            return err
        }
        if env.Kind != raffle.Success {
            return fmt.Errorf("raffle failed: %s", env.Output)
        }
        resp, err := raffle.DecodeResponseSc(env.Output)
        if err != nil {
            return err
        }
        if resp.Era != req.Era {
            return fmt.Errorf("reply for era %d, pending era %d", resp.Era, req.Era)
        }
        if err := q.SetValue(rollup.LastWinnersKey, resp.Winners); err != nil {
            return err
        }
        return q.SetValue(rollup.NextEraKey, req.Era+1)
    }
}

func pendingRequest(q anchor.Queue) (raffle.RequestSc, error) {
    req := raffle.RequestSc{Excluded: []chain.AccountID{}}
    v, ok := q.Get(rollup.NextEraKey)
    if !ok {
        return req, fmt.Errorf("no pending era")
    }
    if err := chain.Decode(v, &req.Era); err != nil {
        return req, err
    }
    v, ok = q.Get(rollup.NbWinnersKey)
    if !ok {
        return req, fmt.Errorf("no winner count")
    }
    if err := chain.Decode(v, &req.NbWinners); err != nil {
        return req, err
    }
    if v, ok = q.Get(rollup.LastWinnersKey); ok {
        if err := chain.Decode(v, &req.Excluded); err != nil {
            return req, err
        }
    }
    return req, nil
}

func printResults(w io.Writer, rounds []Round) error {
    tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
    fmt.Fprintln(tw, "ERA\tTX\tREWARDS\tWINNERS")
    for _, r := range rounds {
        winners := strings.Join(r.Winners, ",")
        if r.Skipped {
            winners = "(skipped)"
        }
        fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Era, hexutil.Encode(r.TxID), r.Rewards, winners)
    }
    return tw.Flush()
}
