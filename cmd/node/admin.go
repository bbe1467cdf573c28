// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
    "encoding/json"
    "fmt"
    "os"
    "strings"

    "github.com/ethereum/go-ethereum/common/hexutil"
    "github.com/spf13/cobra"

    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/rollup"
)

var (
    targetEndpoint string
    targetPallet   uint8
    targetCall     uint8
    targetContract string
    targetSender   string
    scriptFile     string
    settingsArg    string
)

var configTargetCmd = &cobra.Command{
    Use:   "config-target",
    Short: "Configure the anchor contract (owner only)",
    RunE: func(cmd *cobra.Command, args []string) error {
        contract, err := hexutil.Decode(targetContract)
        if err != nil {
            return fmt.Errorf("contract: %w", err)
        }
        var sender []byte
        if targetSender != "" {
            if sender, err = hexutil.Decode(targetSender); err != nil {
                return fmt.Errorf("sender key: %w", err)
            }
        }
        return withNode(func(n *Node) error {
            return n.update(func(r *rollup.Rollup) error {
                return r.ConfigTargetContract(targetEndpoint, targetPallet, targetCall, contract, sender)
            })
        })
    },
}

var configCoreCmd = &cobra.Command{
    Use:   "config-core",
    Short: "Configure core script and settings (owner only)",
    RunE: func(cmd *cobra.Command, args []string) error {
        script, err := os.ReadFile(scriptFile)
        if err != nil {
            return err
        }
        settings, err := readArg(settingsArg)
        if err != nil {
            return err
        }
        return withNode(func(n *Node) error {
            return n.update(func(r *rollup.Rollup) error {
                return r.ConfigCoreScript(string(script), settings)
            })
        })
    },
}

var configScriptCmd = &cobra.Command{
    Use:   "config-script",
    Short: "Replace the core script only (owner only)",
    RunE: func(cmd *cobra.Command, args []string) error {
        script, err := os.ReadFile(scriptFile)
        if err != nil {
            return err
        }
        return withNode(func(n *Node) error {
            return n.update(func(r *rollup.Rollup) error {
                return r.ConfigCoreScriptText(string(script))
            })
        })
    },
}

var configSettingsCmd = &cobra.Command{
    Use:   "config-settings",
    Short: "Replace the core settings only (owner only)",
    RunE: func(cmd *cobra.Command, args []string) error {
        settings, err := readArg(settingsArg)
        if err != nil {
            return err
        }
        return withNode(func(n *Node) error {
            return n.update(func(r *rollup.Rollup) error {
                return r.ConfigCoreSettings(settings)
            })
        })
    },
}

var transferCmd = &cobra.Command{
    Use:   "transfer-ownership <account>",
    Short: "Hand the rollup to another account (owner only)",
    Args:  cobra.ExactArgs(1),
    RunE: func(cmd *cobra.Command, args []string) error {
        next, err := chain.ParseAccountID(args[0])
        if err != nil {
            return err
        }
        return withNode(func(n *Node) error {
            return n.update(func(r *rollup.Rollup) error {
                return r.TransferOwnership(next)
            })
        })
    },
}

var infoCmd = &cobra.Command{
    Use:   "info",
    Short: "Print the public rollup configuration",
    RunE: func(cmd *cobra.Command, args []string) error {
        return withNode(func(n *Node) error {
            info, err := n.info()
            if err != nil {
                return err
            }
            enc := json.NewEncoder(cmd.OutOrStdout())
            enc.SetIndent("", "  ")
            return enc.Encode(info)
        })
    },
}

var runCmd = &cobra.Command{
    Use:   "run",
    Short: "Answer the pending raffle request once",
    RunE: func(cmd *cobra.Command, args []string) error {
        return withNode(func(n *Node) error {
            txID, err := n.run(cmd.Context())
            if err != nil {
                return err
            }
            if txID == nil {
                fmt.Fprintln(cmd.OutOrStdout(), "nothing submitted")
                return nil
            }
            fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(txID))
            return nil
        })
    },
}

func init() {
    f := configTargetCmd.Flags()
    f.StringVar(&targetEndpoint, "endpoint", "http://127.0.0.1:8100", "anchor endpoint")
    f.Uint8Var(&targetPallet, "pallet", 70, "contracts pallet index")
    f.Uint8Var(&targetCall, "call", 6, "call index")
    f.StringVar(&targetContract, "contract", "", "anchor contract id (hex)")
    f.StringVar(&targetSender, "sender-key", "", "relay key for meta transactions (hex, optional)")
    _ = configTargetCmd.MarkFlagRequired("contract")

    for _, c := range []*cobra.Command{configCoreCmd, configScriptCmd} {
        c.Flags().StringVar(&scriptFile, "script", "", "core script file")
        _ = c.MarkFlagRequired("script")
    }
    for _, c := range []*cobra.Command{configCoreCmd, configSettingsCmd} {
        c.Flags().StringVar(&settingsArg, "settings", "", "settings text, or @file")
    }

    rootCmd.AddCommand(configTargetCmd, configCoreCmd, configScriptCmd, configSettingsCmd,
        transferCmd, infoCmd, runCmd)
}

func withNode(fn func(n *Node) error) error {
    n, err := openNode()
    if err != nil {
        return err
    }
    defer n.Close()
    return fn(n)
}

// readArg returns s, or the contents of the file when s starts with @.
func readArg(s string) (string, error) {
    if !strings.HasPrefix(s, "@") {
        return s, nil
    }
    buf, err := os.ReadFile(s[1:])
    if err != nil {
        return "", err
    }
    return string(buf), nil
}
