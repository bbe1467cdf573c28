// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "syscall"
    "time"

    "github.com/echa/log"
    "github.com/ethereum/go-ethereum/common/hexutil"
    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/go-chi/cors"
    "github.com/gorilla/schema"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/spf13/cobra"
    "github.com/spf13/viper"

    "blockwatch.cc/raffle-rollup/pkg/access"
    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/oracle"
    "blockwatch.cc/raffle-rollup/pkg/rollup"
    "blockwatch.cc/raffle-rollup/pkg/ss58"
)

var decoder = schema.NewDecoder()

var serveCmd = &cobra.Command{
    Use:   "serve",
    Short: "Serve the rollup over HTTP and trigger runs periodically",
    RunE: func(cmd *cobra.Command, args []string) error {
        ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
        defer stop()
        return withNode(func(n *Node) error {
            return serve(ctx, n, viper.GetString("listen"), viper.GetDuration("interval"))
        })
    },
}

func init() {
    decoder.IgnoreUnknownKeys(true)

    f := serveCmd.Flags()
    f.String("listen", ":8000", "HTTP listen address")
    f.Duration("interval", 0, "run trigger period, 0 disables")
    _ = viper.BindPFlag("listen", f.Lookup("listen"))
    _ = viper.BindPFlag("interval", f.Lookup("interval"))
    rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, n *Node, addr string, interval time.Duration) error {
    srv := &http.Server{
        Addr:              addr,
        Handler:           n.Routes(),
        ReadHeaderTimeout: 10 * time.Second,
    }
    if interval > 0 {
        go n.trigger(ctx, interval)
    }
    go func() {
        <-ctx.Done()
        shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = srv.Shutdown(shutdown)
    }()

    log.Infof("Listening on %s", addr)
    if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
        return err
    }
    return nil
}

// trigger runs the raffle every interval. Failures are logged and retried on
// the next tick.
func (n *Node) trigger(ctx context.Context, interval time.Duration) {
    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            if _, err := n.run(ctx); err != nil {
                log.Warnf("Scheduled run: %v", err)
            }
        }
    }
}

func (n *Node) run(ctx context.Context) ([]byte, error) {
    n.Lock()
    defer n.Unlock()
    return n.rollup.RunRaffle(ctx)
}

type Info struct {
    Owner        chain.AccountID `json:"owner"`
    Attest       hexutil.Bytes   `json:"attest"`
    AttestEcdsa  hexutil.Bytes   `json:"attest_ecdsa"`
    Sender       hexutil.Bytes   `json:"sender,omitempty"`
    Target       *rollup.Target  `json:"target,omitempty"`
    ScriptHash   *chain.Hash     `json:"script_hash,omitempty"`
    ScriptCID    string          `json:"script_cid,omitempty"`
    SettingsHash *chain.Hash     `json:"settings_hash,omitempty"`
    SettingsCID  string          `json:"settings_cid,omitempty"`
}

func (n *Node) info() (Info, error) {
    n.Lock()
    defer n.Unlock()
    r := n.rollup
    ecdsa, err := r.AttestEcdsaAddress()
    if err != nil {
        return Info{}, err
    }
    info := Info{
        Owner:       r.Owner(),
        Attest:      r.AttestAddress(),
        AttestEcdsa: ecdsa,
    }
    if sender, ok := r.SenderAddress(); ok {
        info.Sender = sender
    }
    if target, ok := r.TargetContract(); ok {
        info.Target = &target
    }
    if core, ok := r.CoreScript(); ok {
        info.ScriptHash = &core.ScriptHash
        info.ScriptCID = core.ScriptHash.CID().String()
        info.SettingsHash = &core.SettingsHash
        info.SettingsCID = core.SettingsHash.CID().String()
    }
    return info, nil
}

// Routes returns the node HTTP surface.
func (n *Node) Routes() chi.Router {
    r := chi.NewRouter()
    r.Use(middleware.Recoverer)
    r.Use(cors.Handler(cors.Options{
        AllowedOrigins: []string{"*"},
        AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
    }))
    r.Get("/owner", n.getOwner)
    r.Get("/attest", n.getAttest)
    r.Get("/sender", n.getSender)
    r.Get("/target", n.getTarget)
    r.Get("/core", n.getCore)
    r.Post("/run", n.postRun)
    r.Get("/dry-run", n.getDryRun)
    r.Route("/registry/{era}", func(r chi.Router) {
        r.Get("/", n.getRegistry)
        r.Delete("/", n.deleteRegistry)
        r.Post("/participants", n.postParticipants)
        r.Put("/rewards", n.putRewards)
    })
    r.Handle("/metrics", promhttp.Handler())
    return r
}

func (n *Node) getOwner(w http.ResponseWriter, r *http.Request) {
    n.Lock()
    owner := n.rollup.Owner()
    n.Unlock()
    writeJSON(w, http.StatusOK, map[string]interface{}{"owner": owner})
}

func (n *Node) getAttest(w http.ResponseWriter, r *http.Request) {
    info, err := n.info()
    if err != nil {
        writeError(w, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]interface{}{
        "address": info.Attest,
        "ecdsa":   info.AttestEcdsa,
    })
}

func (n *Node) getSender(w http.ResponseWriter, r *http.Request) {
    n.Lock()
    sender, ok := n.rollup.SenderAddress()
    n.Unlock()
    if !ok {
        writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sender key"})
        return
    }
    writeJSON(w, http.StatusOK, map[string]interface{}{"address": hexutil.Bytes(sender)})
}

func (n *Node) getTarget(w http.ResponseWriter, r *http.Request) {
    n.Lock()
    target, ok := n.rollup.TargetContract()
    n.Unlock()
    if !ok {
        writeError(w, rollup.ErrClientNotConfigured)
        return
    }
    writeJSON(w, http.StatusOK, target)
}

func (n *Node) getCore(w http.ResponseWriter, r *http.Request) {
    n.Lock()
    core, ok := n.rollup.CoreScript()
    n.Unlock()
    if !ok {
        writeError(w, rollup.ErrCoreNotConfigured)
        return
    }
    writeJSON(w, http.StatusOK, map[string]interface{}{
        "script":        core.Script,
        "settings":      core.Settings,
        "script_hash":   core.ScriptHash,
        "script_cid":    core.ScriptHash.CID().String(),
        "settings_hash": core.SettingsHash,
        "settings_cid":  core.SettingsHash.CID().String(),
    })
}

func (n *Node) postRun(w http.ResponseWriter, r *http.Request) {
    txID, err := n.run(r.Context())
    if err != nil {
        writeError(w, err)
        return
    }
    var id *hexutil.Bytes
    if txID != nil {
        b := hexutil.Bytes(txID)
        id = &b
    }
    writeJSON(w, http.StatusOK, map[string]interface{}{"tx_id": id})
}

// DryRunParams selects an explicit request. Without era and winners the
// pending request is used.
type DryRunParams struct {
    Era      uint32   `schema:"era"`
    Winners  uint16   `schema:"winners"`
    Excluded []string `schema:"excluded"`
}

func (n *Node) getDryRun(w http.ResponseWriter, r *http.Request) {
    query := r.URL.Query()
    var params DryRunParams
    if err := decoder.Decode(&params, query); err != nil {
        writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
        return
    }

    n.Lock()
    defer n.Unlock()
    var (
        reply []byte
        err   error
    )
    switch {
    case query.Has("era") && query.Has("winners"):
        excluded, perr := parseAccounts(params.Excluded)
        if perr != nil {
            writeJSON(w, http.StatusBadRequest, map[string]string{"error": perr.Error()})
            return
        }
        reply, err = n.rollup.DryRunWithParameters(r.Context(), params.Era, params.Winners, excluded)
    case query.Has("era") || query.Has("winners"):
        writeJSON(w, http.StatusBadRequest, map[string]string{"error": "era and winners go together"})
        return
    default:
        reply, err = n.rollup.DryRun(r.Context())
    }
    if err != nil {
        writeError(w, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]interface{}{"reply": hexutil.Bytes(reply)})
}

func (n *Node) getRegistry(w http.ResponseWriter, r *http.Request) {
    era, err := parseEra(chi.URLParam(r, "era"))
    if err != nil {
        writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
        return
    }
    n.Lock()
    data := n.registry.GetData(era)
    n.Unlock()
    writeJSON(w, http.StatusOK, data)
}

func (n *Node) deleteRegistry(w http.ResponseWriter, r *http.Request) {
    n.registryCall(w, r, nil, func(reg *oracle.Registry, era uint32) error {
        return reg.ClearData(era)
    })
}

// participantRequest takes the account as hex or SS58 text.
type participantRequest struct {
    Account string        `json:"account"`
    Weight  chain.Balance `json:"weight"`
}

func (n *Node) postParticipants(w http.ResponseWriter, r *http.Request) {
    var req []participantRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body: " + err.Error()})
        return
    }
    list := make([]oracle.Participant, 0, len(req))
    for _, p := range req {
        a, err := parseAccount(p.Account)
        if err != nil {
            writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
            return
        }
        list = append(list, oracle.Participant{Account: a, Weight: p.Weight})
    }
    n.registryCall(w, r, nil, func(reg *oracle.Registry, era uint32) error {
        return reg.AddParticipants(era, list)
    })
}

type rewardsRequest struct {
    Amount chain.Balance `json:"amount"`
}

func (n *Node) putRewards(w http.ResponseWriter, r *http.Request) {
    var req rewardsRequest
    n.registryCall(w, r, &req, func(reg *oracle.Registry, era uint32) error {
        return reg.SetRewards(era, req.Amount)
    })
}

// registryCall decodes the era and an optional JSON body, runs a registry
// mutation as the operator and answers with the resulting era view.
func (n *Node) registryCall(w http.ResponseWriter, r *http.Request, body interface{}, fn func(reg *oracle.Registry, era uint32) error) {
    era, err := parseEra(chi.URLParam(r, "era"))
    if err != nil {
        writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
        return
    }
    if body != nil {
        if err := json.NewDecoder(r.Body).Decode(body); err != nil {
            writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body: " + err.Error()})
            return
        }
    }
    err = n.updateRegistry(func(reg *oracle.Registry, _ *access.Roles) error {
        return fn(reg, era)
    })
    if err != nil {
        writeError(w, err)
        return
    }
    n.Lock()
    data := n.registry.GetData(era)
    n.Unlock()
    writeJSON(w, http.StatusOK, data)
}

// parseAccounts accepts hex or SS58 account ids of any network format; a
// single comma separated value is split.
func parseAccounts(list []string) ([]chain.AccountID, error) {
    if len(list) == 1 {
        list = strings.Split(list[0], ",")
    }
    out := make([]chain.AccountID, 0, len(list))
    for _, s := range list {
        s = strings.TrimSpace(s)
        if s == "" {
            continue
        }
        if strings.HasPrefix(s, "0x") || len(s) == 2*chain.AccountIDLength {
            a, err := chain.ParseAccountID(s)
            if err != nil {
                return nil, fmt.Errorf("account %q: %w", s, err)
            }
            out = append(out, a)
            continue
        }
        a, _, err := ss58.Decode(s)
        if err != nil {
            return nil, fmt.Errorf("account %q: %w", s, err)
        }
        out = append(out, a)
    }
    return out, nil
}

func writeError(w http.ResponseWriter, err error) {
    status := http.StatusInternalServerError
    var e *rollup.Error
    switch {
    case errors.Is(err, access.ErrBadOrigin), errors.Is(err, access.ErrMissingRole):
        status = http.StatusForbidden
    case errors.As(err, &e):
        switch e.Code {
        case rollup.BadOrigin:
            status = http.StatusForbidden
        case rollup.ClientNotConfigured, rollup.CoreNotConfigured:
            status = http.StatusPreconditionFailed
        case rollup.NextEraUnknown, rollup.NbWinnersNotSet, rollup.NoRequestInQueue:
            status = http.StatusNotFound
        case rollup.FailedToCreateClient, rollup.FailedToCallRollup, rollup.FailedToCommitTx:
            status = http.StatusBadGateway
        }
    }
    writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
    w.Header().Set("Content-Type", "application/json")
    w.Header().Set("Date", time.Now().Format(http.TimeFormat))
    w.WriteHeader(status)
    if err := json.NewEncoder(w).Encode(v); err != nil {
        log.Error(err)
    }
}
