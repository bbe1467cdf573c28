// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package store persists rollup and registry state in a bbolt file.
package store

import (
    "errors"
    "fmt"
    "time"

    bolt "go.etcd.io/bbolt"

    "blockwatch.cc/raffle-rollup/pkg/access"
    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/oracle"
    "blockwatch.cc/raffle-rollup/pkg/rollup"
)

var (
    bucketRollup   = []byte("rollup")
    bucketRegistry = []byte("registry")

    keyState   = []byte("state")
    keyData    = []byte("data")
    keyMembers = []byte("members")
)

var ErrNotFound = errors.New("store: not found")

// RegistryState is the persisted registry together with its role grants.
type RegistryState struct {
    Data    oracle.Snapshot
    Members []access.Member
}

type Store struct {
    db *bolt.DB
}

func Open(path string) (*Store, error) {
    db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
    if err != nil {
        return nil, fmt.Errorf("store: open %s: %w", path, err)
    }
    err = db.Update(func(tx *bolt.Tx) error {
        for _, b := range [][]byte{bucketRollup, bucketRegistry} {
            if _, err := tx.CreateBucketIfNotExists(b); err != nil {
                return err
            }
        }
        return nil
    })
    if err != nil {
        db.Close()
        return nil, fmt.Errorf("store: init %s: %w", path, err)
    }
    return &Store{db: db}, nil
}

func (s *Store) Close() error {
    return s.db.Close()
}

func (s *Store) Path() string {
    return s.db.Path()
}

func (s *Store) SaveRollup(state rollup.ContractState) error {
    buf, err := rollup.EncodeState(state)
    if err != nil {
        return fmt.Errorf("store: encode rollup: %w", err)
    }
    return s.put(bucketRollup, keyState, buf)
}

// LoadRollup returns ErrNotFound before the first save. Core script hashes
// are recomputed from the stored text.
func (s *Store) LoadRollup() (rollup.ContractState, error) {
    buf, err := s.get(bucketRollup, keyState)
    if err != nil {
        return rollup.ContractState{}, err
    }
    return rollup.DecodeState(buf)
}

func (s *Store) SaveRegistry(state RegistryState) error {
    data, err := chain.Encode(state.Data)
    if err != nil {
        return fmt.Errorf("store: encode registry: %w", err)
    }
    members, err := chain.Encode(state.Members)
    if err != nil {
        return fmt.Errorf("store: encode roles: %w", err)
    }
    return s.db.Update(func(tx *bolt.Tx) error {
        b := tx.Bucket(bucketRegistry)
        if err := b.Put(keyData, data); err != nil {
            return err
        }
        return b.Put(keyMembers, members)
    })
}

func (s *Store) LoadRegistry() (RegistryState, error) {
    var state RegistryState
    data, err := s.get(bucketRegistry, keyData)
    if err != nil {
        return state, err
    }
    if err := chain.Decode(data, &state.Data); err != nil {
        return state, fmt.Errorf("store: decode registry: %w", err)
    }
    members, err := s.get(bucketRegistry, keyMembers)
    if err != nil {
        return state, err
    }
    if err := chain.Decode(members, &state.Members); err != nil {
        return state, fmt.Errorf("store: decode roles: %w", err)
    }
    return state, nil
}

func (s *Store) put(bucket, key, value []byte) error {
    return s.db.Update(func(tx *bolt.Tx) error {
        return tx.Bucket(bucket).Put(key, value)
    })
}

func (s *Store) get(bucket, key []byte) ([]byte, error) {
    var buf []byte
    err := s.db.View(func(tx *bolt.Tx) error {
        v := tx.Bucket(bucket).Get(key)
        if v == nil {
            return fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
        }
        // values are only valid inside the transaction
        buf = append([]byte(nil), v...)
        return nil
    })
    return buf, err
}
