// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
    "os"
    "os/signal"
    "strings"

    "github.com/echa/log"
    "github.com/spf13/cobra"
    "github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
    Use:   "sim",
    Short: "Simulate raffle rounds end to end",
    Long: `sim starts an anchor contract served over HTTP, seeds an era registry
with participants and rewards and lets a rollup worker draw winners for a
number of consecutive eras. Winners of the previous round are excluded from
the next one.`,
    SilenceUsage: true,
    RunE: func(cmd *cobra.Command, args []string) error {
        ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
        defer stop()
        cfg := Config{
            Listen:       viper.GetString("listen"),
            Era:          viper.GetUint32("era"),
            Rounds:       viper.GetInt("rounds"),
            Winners:      uint16(viper.GetUint("winners")),
            Participants: viper.GetInt("participants"),
            Seed:         viper.GetInt64("seed"),
            MetaTx:       viper.GetBool("meta_tx"),
        }
        res, err := simulate(ctx, cfg)
        if err != nil {
            return err
        }
        return printResults(cmd.OutOrStdout(), res)
    },
}

func init() {
    f := rootCmd.Flags()
    f.String("listen", "127.0.0.1:8100", "anchor HTTP listen address")
    f.Uint32("era", 1, "first era")
    f.Int("rounds", 3, "number of eras to draw")
    f.Uint("winners", 2, "winners per era")
    f.Int("participants", 8, "participants per era")
    f.Int64("seed", 42, "random seed for weights and draws")
    f.Bool("meta-tx", false, "submit through a relay sender key")
    for _, name := range []string{"listen", "era", "rounds", "winners", "participants", "seed", "meta-tx"} {
        _ = viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), f.Lookup(name))
    }
    viper.SetEnvPrefix("RAFFLE_SIM")
    viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
    viper.AutomaticEnv()
}

func main() {
    if err := rootCmd.Execute(); err != nil {
        log.Fatalf("Error: %v\n", err)
    }
}
