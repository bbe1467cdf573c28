// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package raffle

import (
    "fmt"

    "github.com/ethereum/go-ethereum/common/hexutil"

    "blockwatch.cc/raffle-rollup/pkg/chain"
    "blockwatch.cc/raffle-rollup/pkg/engine"
    "blockwatch.cc/raffle-rollup/pkg/oracle"
    "blockwatch.cc/raffle-rollup/pkg/ss58"
)

// ScriptBindings exposes request decoding and response encoding to core
// scripts:
//
//    decodeRequest(hex) -> {era, nbWinners, excluded}
//    encodeResponse(era, skipped, rewards, winners) -> bytes
func ScriptBindings() []engine.GojaOption {
    return []engine.GojaOption{
        engine.WithGlobal("decodeRequest", scriptDecodeRequest),
        engine.WithGlobal("encodeResponse", scriptEncodeResponse),
    }
}

// OracleBinding exposes registry data of an era to core scripts with textual
// addresses and decimal amounts:
//
//    oracleData(era) -> {participants: [{account, weight}], rewards}
func OracleBinding(reg oracle.Consumer, codec ss58.Codec) engine.GojaOption {
    return engine.WithGlobal("oracleData", func(era uint32) map[string]interface{} {
        data := reg.GetData(era)
        list := make([]interface{}, 0, len(data.Participants))
        for _, p := range data.Participants {
            list = append(list, map[string]interface{}{
                "account": codec.Encode(p.Account),
                "weight":  p.Weight.String(),
            })
        }
        return map[string]interface{}{
            "participants": list,
            "rewards":      data.Rewards.String(),
        }
    })
}

func scriptDecodeRequest(input string) (map[string]interface{}, error) {
    buf, err := hexutil.Decode(input)
    if err != nil {
        return nil, fmt.Errorf("%w: request hex: %v", ErrDecode, err)
    }
    req, err := DecodeRequestJs(buf)
    if err != nil {
        return nil, err
    }
    excluded := make([]interface{}, len(req.Excluded))
    for i, s := range req.Excluded {
        excluded[i] = s
    }
    return map[string]interface{}{
        "era":       req.Era,
        "nbWinners": req.NbWinners,
        "excluded":  excluded,
    }, nil
}

func scriptEncodeResponse(era uint32, skipped bool, rewards string, winners []string) ([]byte, error) {
    amount, err := chain.ParseBalance(rewards)
    if err != nil {
        return nil, fmt.Errorf("rewards: %w", err)
    }
    if winners == nil {
        winners = []string{}
    }
    return chain.Encode(ResponseJs{
        Era:     era,
        Skipped: skipped,
        Rewards: amount,
        Winners: winners,
    })
}
