// Package txvalidate implements the transaction validator of spec §4.4:
// cost accounting, addition/removal bookkeeping, double-spend and
// coinbase-freeze checks, puzzle-hash matching, condition evaluation, and
// aggregate-signature verification. It is grounded on the teacher's
// pkg/tx validation pipeline (utxo_validate.go), generalized from the
// Outpoint/Input/Output model to the Coin/SpendBundle/NPC model.
package txvalidate

import (
	"encoding/binary"
	"fmt"

	"github.com/spacetimechain/consensus-core/internal/chainerr"
	"github.com/spacetimechain/consensus-core/pkg/crypto"
	"github.com/spacetimechain/consensus-core/pkg/proofs"
	"github.com/spacetimechain/consensus-core/pkg/tx"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// UnspentLookup resolves a coin's record as seen from a particular tip,
// matching internal/utxo.Manager.GetUnspent without importing that package.
type UnspentLookup interface {
	GetUnspent(coinName types.Hash, tipHeaderHash types.Hash) (*types.Unspent, bool, error)
}

// Params is the subset of config.Params the validator consults, passed
// explicitly to keep this package independent of the config package.
type Params struct {
	CoinbaseFreezePeriod uint64
	MaxCoinAmount        uint64
	BlockCostMax         uint64
}

// Result is the outcome of validating a spend bundle against a tip: the
// coins it creates and consumes, its cost, and its net fee.
type Result struct {
	Additions    map[types.Hash]types.Unspent
	RemovalNames []types.Hash
	Cost         uint64
	Fees         uint64
}

// Validate runs spec §4.4 steps 1-7 against sb as it would apply at
// height+1 on top of tipHeaderHash. ephemeral carries coins created
// earlier in the same block (so intra-block spends don't need a store
// round trip); pass nil outside block validation.
func Validate(
	sb *tx.SpendBundle,
	height uint64,
	tipHeaderHash types.Hash,
	ephemeral map[types.Hash]types.Coin,
	lookup UnspentLookup,
	interp proofs.ConditionInterpreter,
	agg proofs.Aggregator,
	p Params,
) (*Result, error) {
	npcs, cost, err := interp.GetNamePuzzleConditions(sb)
	if err != nil {
		return nil, err
	}
	if cost > p.BlockCostMax {
		return nil, chainerr.New(chainerr.CodeCostExceeded, "")
	}

	additions := make(map[types.Hash]types.Unspent)
	removalSet := make(map[types.Hash]struct{}, len(sb.CoinSpends))
	var removalNames []types.Hash
	npcPuzzleHash := make(map[types.Hash]types.Hash, len(sb.CoinSpends))

	for _, cs := range sb.CoinSpends {
		name := crypto.CoinName(cs.Coin)
		if _, dup := removalSet[name]; dup {
			return nil, chainerr.Newf(chainerr.CodeDoubleSpend, "coin %s spent twice in bundle", name)
		}
		removalSet[name] = struct{}{}
		removalNames = append(removalNames, name)
	}
	for _, npc := range npcs {
		npcPuzzleHash[npc.CoinName] = npc.PuzzleHash
	}

	var aggPairs []proofs.AggSigPair
	for _, npc := range npcs {
		for _, cond := range npc.Conditions {
			switch cond.Opcode {
			case tx.OpCreateCoin:
				if len(cond.Args) != 2 || len(cond.Args[0]) != types.HashSize {
					return nil, chainerr.New(chainerr.CodeAssertionFailed, "malformed CREATE_COIN condition")
				}
				var puzzleHash types.Hash
				copy(puzzleHash[:], cond.Args[0])
				amount := binary.BigEndian.Uint64(cond.Args[1])
				if amount >= p.MaxCoinAmount {
					return nil, chainerr.Newf(chainerr.CodeCoinAmountExceedsMax, "amount %d", amount)
				}
				coin := types.Coin{ParentCoinID: npc.CoinName, PuzzleHash: puzzleHash, Amount: amount}
				name := crypto.CoinName(coin)
				if _, dup := additions[name]; dup {
					return nil, chainerr.Newf(chainerr.CodeDoubleSpend, "duplicate addition %s", name)
				}
				additions[name] = types.Unspent{Coin: coin, ConfirmedIndex: height + 1}
			case tx.OpAggSigMe:
				if len(cond.Args) != 2 {
					return nil, chainerr.New(chainerr.CodeAssertionFailed, "malformed AGGSIG_ME condition")
				}
				msg := append(append([]byte{}, cond.Args[1]...), npc.CoinName[:]...)
				aggPairs = append(aggPairs, proofs.AggSigPair{PublicKey: cond.Args[0], Message: msg})
			case tx.OpAssertBlockIndexExceeds:
				if len(cond.Args) != 1 || len(cond.Args[0]) != 8 {
					return nil, chainerr.New(chainerr.CodeAssertionFailed, "malformed ASSERT_BLOCK_INDEX_EXCEEDS")
				}
				threshold := binary.BigEndian.Uint64(cond.Args[0])
				if height+1 <= threshold {
					return nil, chainerr.Newf(chainerr.CodeAssertionFailed, "ASSERT_BLOCK_INDEX_EXCEEDS_FAILED: height %d <= %d", height+1, threshold)
				}
			case tx.OpAssertBlockAgeExceeds:
				spent, ok, err := resolveUnspent(npc.CoinName, tipHeaderHash, ephemeral, lookup, height)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, chainerr.Newf(chainerr.CodeUnknownUnspent, "coin %s", npc.CoinName)
				}
				if len(cond.Args) != 1 || len(cond.Args[0]) != 8 {
					return nil, chainerr.New(chainerr.CodeAssertionFailed, "malformed ASSERT_BLOCK_AGE_EXCEEDS")
				}
				ageThreshold := binary.BigEndian.Uint64(cond.Args[0])
				if height+1 <= spent.ConfirmedIndex+ageThreshold {
					return nil, chainerr.New(chainerr.CodeAssertionFailed, "ASSERT_BLOCK_AGE_EXCEEDS_FAILED")
				}
			}
		}
	}

	var totalRemoved, totalAdded uint64
	for _, name := range removalNames {
		u, ok, err := resolveUnspent(name, tipHeaderHash, ephemeral, lookup, height)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, chainerr.Newf(chainerr.CodeUnknownUnspent, "coin %s", name)
		}
		if u.Spent {
			return nil, chainerr.Newf(chainerr.CodeDoubleSpend, "coin %s already spent", name)
		}
		if u.Coinbase && height+1 < u.ConfirmedIndex+p.CoinbaseFreezePeriod {
			return nil, chainerr.Newf(chainerr.CodeCoinbaseNotMatured, "coin %s matures at %d", name, u.ConfirmedIndex+p.CoinbaseFreezePeriod)
		}
		if ph, ok := npcPuzzleHash[name]; ok && ph != u.Coin.PuzzleHash {
			return nil, chainerr.Newf(chainerr.CodeBadPuzzleHash, "coin %s", name)
		}
		totalRemoved += u.Coin.Amount
	}
	for _, a := range additions {
		totalAdded += a.Coin.Amount
	}
	if totalAdded > totalRemoved {
		return nil, chainerr.New(chainerr.CodeMinusCoinValue, "")
	}
	fees := totalRemoved - totalAdded

	if len(aggPairs) > 0 {
		if !agg.Verify(aggPairs, sb.AggregatedSignature) {
			return nil, chainerr.New(chainerr.CodeBadAggregateSignature, "")
		}
	}

	return &Result{Additions: additions, RemovalNames: removalNames, Cost: cost, Fees: fees}, nil
}

func resolveUnspent(name types.Hash, tipHeaderHash types.Hash, ephemeral map[types.Hash]types.Coin, lookup UnspentLookup, height uint64) (*types.Unspent, bool, error) {
	if c, ok := ephemeral[name]; ok {
		return &types.Unspent{Coin: c, ConfirmedIndex: height + 1}, true, nil
	}
	u, ok, err := lookup.GetUnspent(name, tipHeaderHash)
	if err != nil {
		return nil, false, fmt.Errorf("txvalidate: lookup %s: %w", name, err)
	}
	return u, ok, nil
}
