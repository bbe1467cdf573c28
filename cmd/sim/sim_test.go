// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
    "bytes"
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func config() Config {
    return Config{
        Listen:       "127.0.0.1:0",
        Era:          100,
        Rounds:       3,
        Winners:      2,
        Participants: 5,
        Seed:         7,
    }
}

func TestSimulate(t *testing.T) {
    for _, meta := range []bool{false, true} {
        cfg := config()
        cfg.MetaTx = meta
        rounds, err := simulate(context.Background(), cfg)
        require.NoError(t, err)
        require.Len(t, rounds, 3)

        for i, r := range rounds {
            assert.Equal(t, uint32(100+i), r.Era, "consecutive eras")
            assert.Len(t, r.TxID, 32)
            assert.False(t, r.Skipped)
            assert.Len(t, r.Winners, 2)
            assert.NotEqual(t, r.Winners[0], r.Winners[1], "distinct winners")
            if i > 0 {
                for _, w := range r.Winners {
                    assert.NotContains(t, rounds[i-1].Winners, w, "previous winners excluded")
                }
            }
        }
    }
}

func TestSimulateDeterministic(t *testing.T) {
    a, err := simulate(context.Background(), config())
    require.NoError(t, err)
    b, err := simulate(context.Background(), config())
    require.NoError(t, err)
    for i := range a {
        assert.Equal(t, a[i].Winners, b[i].Winners, "same seed, same draw")
        assert.Equal(t, a[i].Rewards, b[i].Rewards)
    }
}

func TestSimulateSkipped(t *testing.T) {
    cfg := config()
    cfg.Participants = 2
    cfg.Rounds = 2
    rounds, err := simulate(context.Background(), cfg)
    require.NoError(t, err)
    require.Len(t, rounds, 2)
    assert.Len(t, rounds[0].Winners, 2)
    assert.True(t, rounds[1].Skipped, "everyone excluded")
    assert.Empty(t, rounds[1].Winners)

    var out bytes.Buffer
    require.NoError(t, printResults(&out, rounds))
    assert.Contains(t, out.String(), "(skipped)")
}
