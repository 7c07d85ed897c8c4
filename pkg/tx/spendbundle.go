// Package tx defines the spend bundle: the unit of transfer evaluated by
// the external condition interpreter and admitted to the mempool.
package tx

import (
	"github.com/spacetimechain/consensus-core/pkg/crypto"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// CoinSpend is one coin being consumed, together with the puzzle it must
// satisfy and the solution offered to it. Both are opaque to the consensus
// core — only the external condition interpreter (proofs.ConditionInterpreter)
// understands their contents.
type CoinSpend struct {
	Coin         types.Coin `json:"coin"`
	PuzzleReveal []byte     `json:"puzzle_reveal"`
	Solution     []byte     `json:"solution"`
}

// SpendBundle is a list of coin spends sharing one aggregated BLS signature.
// It is the wire/mempool unit; a block's body carries the spend bundles of
// all its transactions collapsed into a single aggregate signature.
type SpendBundle struct {
	CoinSpends          []CoinSpend `json:"coin_spends"`
	AggregatedSignature []byte      `json:"aggregated_signature"`
}

// Name identifies a spend bundle for mempool deduplication ("seen" set).
// It does not cover AggregatedSignature: two bundles spending the same
// coins with the same solutions are the same logical spend regardless of
// which equivalent aggregate signature accompanies them.
func (sb SpendBundle) Name() types.Hash {
	buf := make([]byte, 0, 256)
	for _, cs := range sb.CoinSpends {
		coinName := crypto.CoinName(cs.Coin)
		buf = append(buf, coinName[:]...)
		buf = append(buf, cs.PuzzleReveal...)
		buf = append(buf, cs.Solution...)
	}
	return crypto.Hash(buf)
}

// RemovalNames returns the coin names this bundle spends, in order.
func (sb SpendBundle) RemovalNames() []types.Hash {
	names := make([]types.Hash, len(sb.CoinSpends))
	for i, cs := range sb.CoinSpends {
		names[i] = crypto.CoinName(cs.Coin)
	}
	return names
}

// Merge combines the coin spends of several bundles. Aggregate signatures
// are not combined here — the caller (mempool bundle assembly, or the
// external BLS aggregator) is responsible for re-aggregating.
func Merge(bundles ...SpendBundle) SpendBundle {
	var out SpendBundle
	for _, b := range bundles {
		out.CoinSpends = append(out.CoinSpends, b.CoinSpends...)
	}
	return out
}
