// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
    "os"
    "strings"

    "github.com/echa/log"
    "github.com/spf13/cobra"
    "github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
    Use:   "node",
    Short: "Raffle rollup worker",
    Long: `node runs the off-chain raffle worker. It reads pending raffle requests
from the anchor contract, selects winners with the configured core script and
replies with a hash-bound envelope.

Configuration (in order of priority):
  1. Command-line flags
  2. Environment variables (RAFFLE_DB, RAFFLE_OPERATOR, RAFFLE_SEED, ...)
  3. Config file (~/.raffle.yaml)`,
    SilenceUsage: true,
}

func init() {
    cobra.OnInitialize(initConfig)

    flags := rootCmd.PersistentFlags()
    flags.StringVar(&cfgFile, "config", "", "config file (default is ~/.raffle.yaml)")
    flags.String("db", "raffle.db", "state database file")
    flags.String("operator", "", "caller account id (hex)")
    flags.String("seed", "", "worker secret (hex), required on first start")
    flags.Bool("report-errors", false, "reply with a failure envelope when the core script fails")
    flags.Bool("verbose", false, "debug logging")
    for _, name := range []string{"db", "operator", "seed", "report-errors", "verbose"} {
        _ = viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
    }
}

// initConfig initializes viper configuration.
func initConfig() {
    if cfgFile != "" {
        viper.SetConfigFile(cfgFile)
    } else if home, err := os.UserHomeDir(); err == nil {
        viper.AddConfigPath(home)
        viper.SetConfigType("yaml")
        viper.SetConfigName(".raffle")
    }
    viper.SetEnvPrefix("RAFFLE")
    viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
    viper.AutomaticEnv()
    _ = viper.ReadInConfig()

    if viper.GetBool("verbose") {
        log.SetLevel(log.LevelDebug)
    }
}

func main() {
    if err := rootCmd.Execute(); err != nil {
        log.Fatalf("Error: %v\n", err)
    }
}
