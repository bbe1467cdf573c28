// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package anchor

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strconv"
    "strings"

    "github.com/echa/log"
    "github.com/ethereum/go-ethereum/common/hexutil"
    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/hashicorp/go-retryablehttp"

    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/rollup"
)

var errorCodes = []struct {
    code   string
    status int
    err    error
}{
    {"conflict", http.StatusConflict, ErrConflict},
    {"bad_signature", http.StatusUnauthorized, ErrBadSignature},
    {"unauthorized", http.StatusForbidden, ErrUnauthorized},
    {"wrong_contract", http.StatusBadRequest, ErrWrongContract},
    {"empty", http.StatusBadRequest, ErrEmpty},
}

type errorResponse struct {
    Code  string `json:"code,omitempty"`
    Error string `json:"error"`
}

type versionResponse struct {
    Version uint64 `json:"version"`
}

type valueResponse struct {
    Value hexutil.Bytes `json:"value"`
}

type txResponse struct {
    ID hexutil.Bytes `json:"id"`
}

type repliesResponse struct {
    Replies []hexutil.Bytes `json:"replies"`
}

// Server exposes a Memory anchor over HTTP.
type Server struct {
    anchor *Memory
}

func NewServer(m *Memory) *Server {
    return &Server{anchor: m}
}

// Routes returns a chi router with the anchor routes.
func (s *Server) Routes() chi.Router {
    r := chi.NewRouter()
    r.Use(middleware.Recoverer)
    r.Get("/version", s.version)
    r.Get("/queue/{key}", s.get)
    r.Post("/tx", s.apply)
    r.Get("/replies", s.replies)
    return r
}

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
    v, _ := s.anchor.Version(r.Context())
    writeJSON(w, http.StatusOK, versionResponse{Version: v})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
    key, err := strconv.ParseUint(chi.URLParam(r, "key"), 0, 32)
    if err != nil {
        writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid key"})
        return
    }
    v, ok, _ := s.anchor.Get(r.Context(), uint32(key))
    if !ok {
        writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
        return
    }
    writeJSON(w, http.StatusOK, valueResponse{Value: v})
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request) {
    var tx Tx
    if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
        writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid transaction: " + err.Error()})
        return
    }
    id, err := s.anchor.Apply(r.Context(), tx)
    if err != nil {
        log.Warnf("Anchor rejected tx: %v", err)
        for _, c := range errorCodes {
            if errors.Is(err, c.err) {
                writeJSON(w, c.status, errorResponse{Code: c.code, Error: err.Error()})
                return
            }
        }
        writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
        return
    }
    writeJSON(w, http.StatusOK, txResponse{ID: id[:]})
}

func (s *Server) replies(w http.ResponseWriter, _ *http.Request) {
    resp := repliesResponse{Replies: []hexutil.Bytes{}}
    for _, r := range s.anchor.Replies() {
        resp.Replies = append(resp.Replies, r)
    }
    writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    if err := json.NewEncoder(w).Encode(v); err != nil {
        log.Errorf("Failed to write response: %v", err)
    }
}

// HTTPBackend talks to a remote anchor served by Server.
type HTTPBackend struct {
    base   string
    client *http.Client
}

// NewRetryClient returns an http client that retries transient failures.
func NewRetryClient(retries int) *http.Client {
    rc := retryablehttp.NewClient()
    rc.RetryMax = retries
    rc.Logger = nil
    return rc.StandardClient()
}

// NewHTTPBackend connects to endpoint. A nil client uses NewRetryClient.
func NewHTTPBackend(endpoint string, client *http.Client) *HTTPBackend {
    if client == nil {
        client = NewRetryClient(3)
    }
    return &HTTPBackend{
        base:   strings.TrimRight(endpoint, "/"),
        client: client,
    }
}

func (b *HTTPBackend) Version(ctx context.Context) (uint64, error) {
    var resp versionResponse
    if _, err := b.do(ctx, http.MethodGet, "/version", nil, &resp); err != nil {
        return 0, err
    }
    return resp.Version, nil
}

func (b *HTTPBackend) Get(ctx context.Context, key uint32) ([]byte, bool, error) {
    var resp valueResponse
    status, err := b.do(ctx, http.MethodGet, "/queue/"+strconv.FormatUint(uint64(key), 10), nil, &resp)
    if status == http.StatusNotFound {
        return nil, false, nil
    }
    if err != nil {
        return nil, false, err
    }
    return resp.Value, true, nil
}

func (b *HTTPBackend) Apply(ctx context.Context, tx Tx) (chain.Hash, error) {
    var resp txResponse
    if _, err := b.do(ctx, http.MethodPost, "/tx", tx, &resp); err != nil {
        return chain.Hash{}, err
    }
    var id chain.Hash
    if len(resp.ID) != len(id) {
        return id, fmt.Errorf("anchor: invalid tx id %s", resp.ID)
    }
    copy(id[:], resp.ID)
    return id, nil
}

// Replies fetches all applied replies.
func (b *HTTPBackend) Replies(ctx context.Context) ([][]byte, error) {
    var resp repliesResponse
    if _, err := b.do(ctx, http.MethodGet, "/replies", nil, &resp); err != nil {
        return nil, err
    }
    out := make([][]byte, len(resp.Replies))
    for i, r := range resp.Replies {
        out[i] = r
    }
    return out, nil
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, body, result interface{}) (int, error) {
    var rd io.Reader
    if body != nil {
        buf, err := json.Marshal(body)
        if err != nil {
            return 0, err
        }
        rd = bytes.NewReader(buf)
    }
    req, err := http.NewRequestWithContext(ctx, method, b.base+path, rd)
    if err != nil {
        return 0, err
    }
    if body != nil {
        req.Header.Set("Content-Type", "application/json")
    }
    resp, err := b.client.Do(req)
    if err != nil {
        return 0, fmt.Errorf("anchor: %s %s: %w", method, path, err)
    }
    defer resp.Body.Close()

    if resp.StatusCode != http.StatusOK {
        var e errorResponse
        _ = json.NewDecoder(resp.Body).Decode(&e)
        for _, c := range errorCodes {
            if c.code == e.Code {
                return resp.StatusCode, fmt.Errorf("%w: %s", c.err, e.Error)
            }
        }
        return resp.StatusCode, fmt.Errorf("anchor: %s %s: %s %s", method, path, resp.Status, e.Error)
    }
    return resp.StatusCode, json.NewDecoder(resp.Body).Decode(result)
}

// HTTPDialer connects to the anchor at each target's endpoint.
func HTTPDialer(client *http.Client) rollup.Dialer {
    return NewDialer(func(target rollup.TargetConfig) (Backend, error) {
        return NewHTTPBackend(target.Endpoint, client), nil
    })
}
