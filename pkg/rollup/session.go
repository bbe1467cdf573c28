// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rollup

import (
    "context"
    "errors"

    "github.com/echa/log"
    "github.com/ethereum/go-ethereum/common/hexutil"
    "github.com/google/uuid"

    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/engine"
    "blockwatch.cc/raffle-rollup/pkg/metrics"
    "blockwatch.cc/raffle-rollup/pkg/raffle"
)

func (r *Rollup) RunRaffle(ctx context.Context) (txID []byte, err error) {
    runID := uuid.New()
    defer func() {
        metrics.Runs.WithLabelValues(outcome(txID, err)).Inc()
        if err != nil {
            log.Errorf("Run %s failed: %v", runID, err)
        }
    }()

    cfg, err := r.ensureClientConfigured()
    if err != nil {
        return nil, err
    }
    client, err := r.connect(ctx, cfg)
    if err != nil {
        return nil, err
    }
    req, err := r.readRequest(ctx, client)
    if err != nil {
        return nil, err
    }
    log.Infof("Run %s: era=%d winners=%d excluded=%d", runID, req.Era, req.NbWinners, len(req.Excluded))

    reply, err := r.handleRequest(ctx, req)
    if err != nil {
        var e *Error
        if !r.reportErrors || !errors.As(err, &e) || e.Code != JsError {
            return nil, err
        }
        log.Warnf("Run %s: replying with failure: %s", runID, e.Message)
        if reply, err = r.failure(req, e.Message); err != nil {
            return nil, err
        }
    }

    payload, err := chain.Encode(reply)
    if err != nil {
        return nil, newError(FailedToDecode, err)
    }
    client.Reply(payload)

    txID, err = r.maybeSubmitTx(ctx, client, cfg)
    if err != nil {
        return nil, err
    }
    if txID != nil {
        log.Infof("Run %s: submitted tx %s", runID, hexutil.Encode(txID))
    } else {
        log.Debugf("Run %s: nothing to submit", runID)
    }
    return txID, nil
}

func (r *Rollup) DryRun(ctx context.Context) ([]byte, error) {
    if err := r.ensureOwner(); err != nil {
        return nil, err
    }
    cfg, err := r.ensureClientConfigured()
    if err != nil {
        return nil, err
    }
    client, err := r.connect(ctx, cfg)
    if err != nil {
        return nil, err
    }
    req, err := r.readRequest(ctx, client)
    if err != nil {
        return nil, err
    }
    return r.DryRunWithParameters(ctx, req.Era, req.NbWinners, req.Excluded)
}

func (r *Rollup) DryRunWithParameters(ctx context.Context, era uint32, nbWinners uint16, excluded []chain.AccountID) ([]byte, error) {
    if err := r.ensureOwner(); err != nil {
        return nil, err
    }
    if _, err := r.ensureClientConfigured(); err != nil {
        return nil, err
    }
    if excluded == nil {
        excluded = []chain.AccountID{}
    }
    reply, err := r.handleRequest(ctx, raffle.RequestSc{
        Era:       era,
        NbWinners: nbWinners,
        Excluded:  excluded,
    })
    if err != nil {
        return nil, err
    }
    payload, err := chain.Encode(reply)
    if err != nil {
        return nil, newError(FailedToDecode, err)
    }
    log.Infof("Dry run era=%d reply=%s", era, hexutil.Encode(payload))
    return payload, nil
}

func (r *Rollup) connect(ctx context.Context, cfg TargetConfig) (Client, error) {
    client, err := r.dialer.Dial(ctx, cfg)
    if err != nil {
        return nil, newError(FailedToCreateClient, err)
    }
    return client, nil
}

func (r *Rollup) readRequest(ctx context.Context, client Client) (raffle.RequestSc, error) {
    var req raffle.RequestSc
    ok, err := getValue(ctx, client, NextEraKey, &req.Era)
    if err != nil {
        return req, newError(FailedToCallRollup, err)
    }
    if !ok {
        return req, ErrNextEraUnknown
    }
    ok, err = getValue(ctx, client, NbWinnersKey, &req.NbWinners)
    if err != nil {
        return req, newError(FailedToCallRollup, err)
    }
    if !ok {
        return req, ErrNbWinnersNotSet
    }
    if _, err = getValue(ctx, client, LastWinnersKey, &req.Excluded); err != nil {
        return req, newError(FailedToCallRollup, err)
    }
    if req.Excluded == nil {
        req.Excluded = []chain.AccountID{}
    }
    return req, nil
}

// handleRequest runs the core script and wraps its output in a success
// envelope bound to the raw on-chain request.
func (r *Rollup) handleRequest(ctx context.Context, req raffle.RequestSc) (raffle.Envelope, error) {
    core, ok := r.CoreScript()
    if !ok {
        return raffle.Envelope{}, ErrCoreNotConfigured
    }
    input, err := r.conv.EncodeRequest(req)
    if err != nil {
        return raffle.Envelope{}, newError(FailedToDecode, err)
    }
    out, err := r.bridge.Invoke(ctx, core.Script, input, core.Settings)
    if err != nil {
        var ee *engine.Error
        if errors.As(err, &ee) {
            return raffle.Envelope{}, jsError(ee.Message)
        }
        return raffle.Envelope{}, jsError(err.Error())
    }
    output, err := r.conv.ConvertOutput(out)
    if err != nil {
        return raffle.Envelope{}, newError(FailedToDecode, err)
    }
    raw, err := chain.Encode(req)
    if err != nil {
        return raffle.Envelope{}, newError(FailedToDecode, err)
    }
    return raffle.NewSuccess(core.ScriptHash, raw, core.SettingsHash, output), nil
}

func (r *Rollup) failure(req raffle.RequestSc, reason string) (raffle.Envelope, error) {
    core, ok := r.CoreScript()
    if !ok {
        return raffle.Envelope{}, ErrCoreNotConfigured
    }
    raw, err := chain.Encode(req)
    if err != nil {
        return raffle.Envelope{}, newError(FailedToDecode, err)
    }
    return raffle.NewFailure(core.ScriptHash, raw, core.SettingsHash, reason), nil
}

func (r *Rollup) maybeSubmitTx(ctx context.Context, client Client, cfg TargetConfig) ([]byte, error) {
    tx, err := client.Commit(ctx)
    if err != nil {
        return nil, newError(FailedToCommitTx, err)
    }
    if tx == nil {
        return nil, nil
    }
    var txID []byte
    if cfg.SenderKey != nil {
        txID, err = tx.SubmitMetaTx(ctx, r.AttestKey, *cfg.SenderKey)
        metrics.Submissions.WithLabelValues("meta").Inc()
    } else {
        txID, err = tx.Submit(ctx, r.AttestKey)
        metrics.Submissions.WithLabelValues("direct").Inc()
    }
    if err != nil {
        return nil, newError(FailedToCallRollup, err)
    }
    return txID, nil
}

func outcome(txID []byte, err error) string {
    var e *Error
    switch {
    case err == nil && txID == nil:
        return "noop"
    case err == nil:
        return "committed"
    case errors.As(err, &e):
        return e.Code.String()
    default:
        return "error"
    }
}
