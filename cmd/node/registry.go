// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
    "encoding/json"
    "fmt"
    "strconv"
    "strings"

    "github.com/spf13/cobra"

    "blockwatch.cc/raffle-rollup/pkg/access"
    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/oracle"
)

var registryEra uint32

var registryCmd = &cobra.Command{
    Use:   "registry",
    Short: "Manage era participants and reward pools",
    Long: `Registry commands manage the participants and reward pool of each era.
Mutations require the ORACLE_DATA_MANAGER role, which the operator that first
started the node can grant.

Examples:
  node registry grant 0xd435...
  node registry add --era 12 0x8eaf...=100 aGPdXs8K...=250
  node registry rewards --era 12 163483092786717962675
  node registry show --era 12
  node registry clear --era 12`,
}

var registryAddCmd = &cobra.Command{
    Use:   "add <account>=<weight>...",
    Short: "Add participants to an era",
    Args:  cobra.MinimumNArgs(1),
    RunE: func(cmd *cobra.Command, args []string) error {
        list, err := parseParticipants(args)
        if err != nil {
            return err
        }
        return withNode(func(n *Node) error {
            return n.updateRegistry(func(reg *oracle.Registry, _ *access.Roles) error {
                return reg.AddParticipants(registryEra, list)
            })
        })
    },
}

var registryRewardsCmd = &cobra.Command{
    Use:   "rewards <amount>",
    Short: "Set the reward pool of an era",
    Args:  cobra.ExactArgs(1),
    RunE: func(cmd *cobra.Command, args []string) error {
        amount, err := chain.ParseBalance(args[0])
        if err != nil {
            return err
        }
        return withNode(func(n *Node) error {
            return n.updateRegistry(func(reg *oracle.Registry, _ *access.Roles) error {
                return reg.SetRewards(registryEra, amount)
            })
        })
    },
}

var registryClearCmd = &cobra.Command{
    Use:   "clear",
    Short: "Remove participants and reward pool of an era",
    RunE: func(cmd *cobra.Command, args []string) error {
        return withNode(func(n *Node) error {
            return n.updateRegistry(func(reg *oracle.Registry, _ *access.Roles) error {
                return reg.ClearData(registryEra)
            })
        })
    },
}

var registryShowCmd = &cobra.Command{
    Use:   "show",
    Short: "Print participants and reward pool of an era",
    RunE: func(cmd *cobra.Command, args []string) error {
        return withNode(func(n *Node) error {
            n.Lock()
            data := n.registry.GetData(registryEra)
            n.Unlock()
            enc := json.NewEncoder(cmd.OutOrStdout())
            enc.SetIndent("", "  ")
            return enc.Encode(data)
        })
    },
}

var registryGrantCmd = &cobra.Command{
    Use:   "grant <account>",
    Short: "Grant the data manager role (admin only)",
    Args:  cobra.ExactArgs(1),
    RunE: func(cmd *cobra.Command, args []string) error {
        a, err := parseAccount(args[0])
        if err != nil {
            return err
        }
        return withNode(func(n *Node) error {
            return n.updateRegistry(func(_ *oracle.Registry, roles *access.Roles) error {
                return roles.GrantRole(n.ctx.Caller(), oracle.OracleDataManager, a)
            })
        })
    },
}

var registryRevokeCmd = &cobra.Command{
    Use:   "revoke <account>",
    Short: "Revoke the data manager role (admin only)",
    Args:  cobra.ExactArgs(1),
    RunE: func(cmd *cobra.Command, args []string) error {
        a, err := parseAccount(args[0])
        if err != nil {
            return err
        }
        return withNode(func(n *Node) error {
            return n.updateRegistry(func(_ *oracle.Registry, roles *access.Roles) error {
                return roles.RevokeRole(n.ctx.Caller(), oracle.OracleDataManager, a)
            })
        })
    },
}

func init() {
    for _, c := range []*cobra.Command{registryAddCmd, registryRewardsCmd, registryClearCmd, registryShowCmd} {
        c.Flags().Uint32Var(&registryEra, "era", 0, "era")
        _ = c.MarkFlagRequired("era")
    }
    registryCmd.AddCommand(registryAddCmd, registryRewardsCmd, registryClearCmd, registryShowCmd,
        registryGrantCmd, registryRevokeCmd)
    rootCmd.AddCommand(registryCmd)
}

// parseParticipants reads account=weight pairs.
func parseParticipants(args []string) ([]oracle.Participant, error) {
    list := make([]oracle.Participant, 0, len(args))
    for _, arg := range args {
        account, weight, ok := strings.Cut(arg, "=")
        if !ok {
            return nil, fmt.Errorf("participant %q: expected <account>=<weight>", arg)
        }
        a, err := parseAccount(account)
        if err != nil {
            return nil, err
        }
        w, err := chain.ParseBalance(weight)
        if err != nil {
            return nil, fmt.Errorf("participant %q: %w", arg, err)
        }
        list = append(list, oracle.Participant{Account: a, Weight: w})
    }
    return list, nil
}

func parseAccount(s string) (chain.AccountID, error) {
    list, err := parseAccounts([]string{s})
    if err != nil {
        return chain.AccountID{}, err
    }
    if len(list) != 1 {
        return chain.AccountID{}, fmt.Errorf("account %q: expected exactly one account", s)
    }
    return list[0], nil
}

func parseEra(s string) (uint32, error) {
    v, err := strconv.ParseUint(s, 10, 32)
    if err != nil {
        return 0, fmt.Errorf("era %q: %w", s, err)
    }
    return uint32(v), nil
}
