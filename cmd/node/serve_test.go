// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
    "context"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "path/filepath"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

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

const (
    OPERATOR = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
    CONTRACT = "0a5915b47caf9cd65cc927336ba6d2cb3edf11141259c6e1289ead116f02622b"

    // echoes a response with the requested era and no winners
    SCRIPT = `
const req = decodeRequest(scriptArgs[0]);
encodeResponse(req.era, true, "0", []);
`
)

func testNode(t *testing.T) (*Node, *anchor.Memory) {
    db, err := store.Open(filepath.Join(t.TempDir(), "node.db"))
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })

    m := anchor.NewMemory(chain.MustParseAccountID(CONTRACT))
    require.NoError(t, m.SetValue(rollup.NextEraKey, uint32(12)))
    require.NoError(t, m.SetValue(rollup.NbWinnersKey, uint16(1)))

    ctx := chain.NewCallContext(chain.MustParseAccountID(OPERATOR))
    roles := access.NewRoles(ctx.Caller())
    n := &Node{
        ctx:      ctx,
        store:    db,
        roles:    roles,
        registry: oracle.NewRegistry(ctx, roles.Require(oracle.OracleDataManager)),
    }
    n.rollup = rollup.New(ctx, []byte("seed"), anchor.MemoryDialer(m), engine.NewBridge(n.scriptEngine()))
    return n, m
}

func send(t *testing.T, h http.Handler, method, path, body string) (int, map[string]interface{}) {
    req := httptest.NewRequest(method, path, strings.NewReader(body))
    rec := httptest.NewRecorder()
    h.ServeHTTP(rec, req)
    var resp map[string]interface{}
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
    return rec.Code, resp
}

func get(t *testing.T, h http.Handler, method, path string) (int, map[string]interface{}) {
    req := httptest.NewRequest(method, path, nil)
    rec := httptest.NewRecorder()
    h.ServeHTTP(rec, req)
    var body map[string]interface{}
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
    return rec.Code, body
}

func TestRoutes(t *testing.T) {
    n, m := testNode(t)
    h := n.Routes()

    code, body := get(t, h, http.MethodGet, "/owner")
    assert.Equal(t, http.StatusOK, code)
    assert.Equal(t, "0x"+OPERATOR, body["owner"])

    code, _ = get(t, h, http.MethodGet, "/target")
    assert.Equal(t, http.StatusPreconditionFailed, code, "not configured")
    code, _ = get(t, h, http.MethodGet, "/sender")
    assert.Equal(t, http.StatusNotFound, code)

    require.NoError(t, n.update(func(r *rollup.Rollup) error {
        if err := r.ConfigTargetContract("memory", 70, 6, m.ID().Bytes(), nil); err != nil {
            return err
        }
        return r.ConfigCoreScript(SCRIPT, "{}")
    }))

    code, body = get(t, h, http.MethodGet, "/core")
    assert.Equal(t, http.StatusOK, code)
    assert.Equal(t, chain.Sha256([]byte(SCRIPT)).String(), body["script_hash"])
    assert.NotEmpty(t, body["script_cid"])

    code, body = get(t, h, http.MethodGet, "/dry-run")
    require.Equal(t, http.StatusOK, code, body)
    pending := body["reply"]

    code, body = get(t, h, http.MethodGet, "/dry-run?era=12&winners=1")
    require.Equal(t, http.StatusOK, code, body)
    assert.Equal(t, pending, body["reply"], "explicit parameters match the queue")

    code, _ = get(t, h, http.MethodGet, "/dry-run?era=12")
    assert.Equal(t, http.StatusBadRequest, code)
    code, _ = get(t, h, http.MethodGet, "/dry-run?era=12&winners=1&excluded=nope")
    assert.Equal(t, http.StatusBadRequest, code)

    code, body = get(t, h, http.MethodPost, "/run")
    require.Equal(t, http.StatusOK, code, body)
    assert.NotNil(t, body["tx_id"])
    assert.Len(t, m.Replies(), 1)
    assert.Equal(t, pending, "0x"+hex.EncodeToString(m.Replies()[0]), "run replies what the dry run showed")

    state, err := n.store.LoadRollup()
    require.NoError(t, err)
    assert.NotNil(t, state.Core, "configuration persisted")
}

func TestDryRunOwnerOnly(t *testing.T) {
    n, m := testNode(t)
    require.NoError(t, n.update(func(r *rollup.Rollup) error {
        return r.ConfigTargetContract("memory", 70, 6, m.ID().Bytes(), nil)
    }))
    n.ctx.SetCaller(chain.MustParseAccountID(CONTRACT))

    code, _ := get(t, n.Routes(), http.MethodGet, "/dry-run")
    assert.Equal(t, http.StatusForbidden, code)

    _, err := n.run(context.Background())
    assert.ErrorIs(t, err, rollup.ErrCoreNotConfigured, "anyone may run")
}

func TestParseAccounts(t *testing.T) {
    list, err := parseAccounts([]string{"0x" + OPERATOR + ",aCG9z4XcZrSUfrzuaUYWwxKruA6rnA8z9wMcZtDQEfPRQLH"})
    require.NoError(t, err)
    assert.Len(t, list, 2)
    assert.Equal(t, chain.MustParseAccountID(OPERATOR), list[0])
}

const (
    MANAGER = "8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48"

    // picks the first registered participant of the era
    REGISTRY_SCRIPT = `
const req = decodeRequest(scriptArgs[0]);
const data = oracleData(req.era);
const winners = data.participants.slice(0, req.nbWinners).map(p => p.account);
encodeResponse(req.era, winners.length === 0, data.rewards, winners);
`
)

func TestRegistryRoutes(t *testing.T) {
    n, _ := testNode(t)
    h := n.Routes()
    body := `[{"account":"0x` + MANAGER + `","weight":"100"},{"account":"0x` + MANAGER + `","weight":"100"}]`

    code, _ := send(t, h, http.MethodPost, "/registry/12/participants", body)
    assert.Equal(t, http.StatusForbidden, code, "operator lacks the manager role")

    require.NoError(t, n.updateRegistry(func(_ *oracle.Registry, roles *access.Roles) error {
        return roles.GrantRole(n.ctx.Caller(), oracle.OracleDataManager, n.ctx.Caller())
    }))

    code, resp := send(t, h, http.MethodPost, "/registry/12/participants", body)
    require.Equal(t, http.StatusOK, code, resp)
    assert.Len(t, resp["participants"], 2, "duplicates kept")

    code, resp = send(t, h, http.MethodPut, "/registry/12/rewards", `{"amount":"163483092786717962675"}`)
    require.Equal(t, http.StatusOK, code, resp)
    assert.Equal(t, "163483092786717962675", resp["rewards"])

    code, _ = send(t, h, http.MethodPut, "/registry/12/rewards", `{"amount":"-1"}`)
    assert.Equal(t, http.StatusBadRequest, code)
    code, _ = send(t, h, http.MethodGet, "/registry/x", "")
    assert.Equal(t, http.StatusBadRequest, code)

    code, resp = send(t, h, http.MethodGet, "/registry/13", "")
    require.Equal(t, http.StatusOK, code)
    assert.Empty(t, resp["participants"], "other era")
    assert.Equal(t, "0", resp["rewards"])

    saved, err := n.store.LoadRegistry()
    require.NoError(t, err)
    assert.Len(t, saved.Data.Rows, 2, "registry persisted")

    code, resp = send(t, h, http.MethodDelete, "/registry/12", "")
    require.Equal(t, http.StatusOK, code, resp)
    assert.Empty(t, resp["participants"])
    assert.Equal(t, "0", resp["rewards"])
}

func TestRegistryParticipantsSS58(t *testing.T) {
    n, _ := testNode(t)
    h := n.Routes()
    require.NoError(t, n.updateRegistry(func(_ *oracle.Registry, roles *access.Roles) error {
        return roles.GrantRole(n.ctx.Caller(), oracle.OracleDataManager, n.ctx.Caller())
    }))

    id := chain.MustParseAccountID(CONTRACT)
    body := `[{"account":"` + ss58.Encode(id, ss58.Astar) + `","weight":"100"},` +
        `{"account":"` + ss58.Encode(id, ss58.Substrate) + `","weight":"5"},` +
        `{"account":"` + CONTRACT + `","weight":"1"}]`
    code, resp := send(t, h, http.MethodPost, "/registry/7/participants", body)
    require.Equal(t, http.StatusOK, code, resp)
    rows, ok := resp["participants"].([]interface{})
    require.True(t, ok)
    require.Len(t, rows, 3)
    for _, row := range rows {
        assert.Equal(t, id.String(), row.(map[string]interface{})["account"], "same raw id for all forms")
    }

    code, _ = send(t, h, http.MethodPost, "/registry/7/participants", `[{"account":"aCG9z4Xc","weight":"1"}]`)
    assert.Equal(t, http.StatusBadRequest, code, "bad address")
    assert.Len(t, n.registry.GetData(7).Participants, 3, "rejected batch not applied")
}

func TestRegistryScript(t *testing.T) {
    n, m := testNode(t)
    manager := chain.MustParseAccountID(MANAGER)
    require.NoError(t, n.update(func(r *rollup.Rollup) error {
        if err := r.ConfigTargetContract("memory", 70, 6, m.ID().Bytes(), nil); err != nil {
            return err
        }
        return r.ConfigCoreScript(REGISTRY_SCRIPT, "{}")
    }))
    require.NoError(t, n.updateRegistry(func(reg *oracle.Registry, roles *access.Roles) error {
        if err := roles.GrantRole(n.ctx.Caller(), oracle.OracleDataManager, n.ctx.Caller()); err != nil {
            return err
        }
        if err := reg.AddParticipant(12, manager, chain.NewBalance(1)); err != nil {
            return err
        }
        return reg.SetRewards(12, chain.NewBalance(500))
    }))

    txID, err := n.run(context.Background())
    require.NoError(t, err)
    require.NotNil(t, txID)

    env, err := raffle.DecodeEnvelope(m.Replies()[0])
    require.NoError(t, err)
    resp, err := raffle.DecodeResponseSc(env.Output)
    require.NoError(t, err)
    assert.Equal(t, uint32(12), resp.Era)
    assert.False(t, resp.Skipped)
    assert.Equal(t, "500", resp.Rewards.String())
    assert.Equal(t, []chain.AccountID{manager}, resp.Winners, "winner drawn from the registry")
}

func TestParseParticipants(t *testing.T) {
    list, err := parseParticipants([]string{"0x" + MANAGER + "=10", "aCG9z4XcZrSUfrzuaUYWwxKruA6rnA8z9wMcZtDQEfPRQLH=20"})
    require.NoError(t, err)
    require.Len(t, list, 2)
    assert.Equal(t, chain.MustParseAccountID(MANAGER), list[0].Account)
    assert.Equal(t, "20", list[1].Weight.String())

    _, err = parseParticipants([]string{"0x" + MANAGER})
    assert.Error(t, err, "missing weight")
    _, err = parseParticipants([]string{"0x" + MANAGER + "=abc"})
    assert.Error(t, err, "bad weight")
    _, err = parseAccount("")
    assert.Error(t, err, "no account")
}
