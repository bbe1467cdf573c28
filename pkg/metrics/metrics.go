// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package metrics holds the prometheus collectors of the rollup worker.
package metrics

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "raffle_rollup"

var (
    // Runs counts rollup invocations by outcome (committed, noop, or the
    // error name).
    Runs = promauto.NewCounterVec(prometheus.CounterOpts{
        Namespace: namespace,
        Name:      "runs_total",
        Help:      "Rollup runs by outcome.",
    }, []string{"outcome"})

    // Submissions counts submitted transactions by mode (direct, meta).
    Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
        Namespace: namespace,
        Name:      "submissions_total",
        Help:      "Submitted rollup transactions by mode.",
    }, []string{"mode"})

    EngineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
        Namespace: namespace,
        Name:      "engine_duration_seconds",
        Help:      "Time spent in the compute engine.",
        Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
    })

    EngineFailures = promauto.NewCounter(prometheus.CounterOpts{
        Namespace: namespace,
        Name:      "engine_failures_total",
        Help:      "Compute engine invocations that failed or returned no value.",
    })
)
