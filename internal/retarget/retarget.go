// Package retarget computes next_difficulty and next_ips, the two-epoch
// warp retargeting calculation of spec §4.2. It depends only on a small
// HeaderIndex interface rather than internal/chain directly, so chain can
// depend on retarget without an import cycle.
package retarget

import (
	"fmt"

	"github.com/spacetimechain/consensus-core/config"
	"github.com/spacetimechain/consensus-core/pkg/block"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// HeaderIndex is the read-only view retargeting needs over the chain's
// header arena: summaries by hash, and ancestor lookup at an arbitrary
// height along a given tip's chain (on-mainline via height_to_hash,
// off-mainline by walking prev_header_hash, per spec §4.2).
type HeaderIndex interface {
	Summary(headerHash types.Hash) (*block.HeaderSummary, bool)
	AncestorAt(tipHash types.Hash, height uint64) (types.Hash, bool)
	GenesisSummary() *block.HeaderSummary
}

func clamp(tNew, current, factor uint64) uint64 {
	lo := current / factor
	if lo < 1 {
		lo = 1
	}
	hi := current * factor
	if tNew < lo {
		return lo
	}
	if tNew > hi {
		return hi
	}
	return tNew
}

// timestampAt returns the timestamp at height h along tipHash's chain, or
// for h == -1 (only possible for h1 near genesis) the synthetic
// genesis.timestamp - BLOCK_TIME_TARGET per spec §4.2.
func timestampAt(idx HeaderIndex, p *config.Params, tipHash types.Hash, h int64) (uint64, error) {
	if h < 0 {
		g := idx.GenesisSummary()
		if g.Timestamp < p.BlockTimeTarget {
			return 0, nil
		}
		return g.Timestamp - p.BlockTimeTarget, nil
	}
	hash, ok := idx.AncestorAt(tipHash, uint64(h))
	if !ok {
		return 0, fmt.Errorf("retarget: no ancestor at height %d for tip %s", h, tipHash)
	}
	s, ok := idx.Summary(hash)
	if !ok {
		return 0, fmt.Errorf("retarget: missing summary for %s", hash)
	}
	return s.Timestamp, nil
}

// itersAt is timestampAt's total_iters counterpart, used by NextIPS.
func itersAt(idx HeaderIndex, tipHash types.Hash, h int64) (uint64, error) {
	if h < 0 {
		return idx.GenesisSummary().TotalIters, nil
	}
	hash, ok := idx.AncestorAt(tipHash, uint64(h))
	if !ok {
		return 0, fmt.Errorf("retarget: no ancestor at height %d for tip %s", h, tipHash)
	}
	s, ok := idx.Summary(hash)
	if !ok {
		return 0, fmt.Errorf("retarget: missing summary for %s", hash)
	}
	return s.TotalIters, nil
}

// NextDifficulty computes the difficulty required of the block extending
// tipHash, per spec §4.2. It recurses into next_difficulty(prev) exactly as
// the source does at epoch boundaries (spec §9 open question).
func NextDifficulty(idx HeaderIndex, p *config.Params, tipHash types.Hash) (uint64, error) {
	tip, ok := idx.Summary(tipHash)
	if !ok {
		return 0, fmt.Errorf("retarget: unknown tip %s", tipHash)
	}
	i := tip.Height + 1

	if i < p.DifficultyEpoch {
		return p.DifficultyStarting, nil
	}
	if i%p.DifficultyEpoch != p.DifficultyDelay {
		prev, ok := idx.Summary(tip.PrevHeaderHash)
		if !ok {
			// tip is genesis; its own weight is the block's difficulty.
			return tip.Weight, nil
		}
		return tip.Weight - prev.Weight, nil
	}

	h1 := int64(i) - int64(p.DifficultyEpoch) - int64(p.DifficultyDelay) - 1
	h2 := int64(i) - int64(p.DifficultyEpoch) - 1
	h3 := int64(i) - int64(p.DifficultyDelay) - 1

	t1, err := timestampAt(idx, p, tipHash, h1)
	if err != nil {
		return 0, err
	}
	t2, err := timestampAt(idx, p, tipHash, h2)
	if err != nil {
		return 0, err
	}
	t3, err := timestampAt(idx, p, tipHash, h3)
	if err != nil {
		return 0, err
	}

	prevTipHash := tip.PrevHeaderHash
	Tc, err := NextDifficulty(idx, p, prevTipHash)
	if err != nil {
		return 0, err
	}

	block2Hash, ok := idx.AncestorAt(tipHash, uint64(h2))
	if !ok {
		return 0, fmt.Errorf("retarget: no ancestor at height %d for tip %s", h2, tipHash)
	}
	block2, ok := idx.Summary(block2Hash)
	if !ok {
		return 0, fmt.Errorf("retarget: missing summary for %s", block2Hash)
	}
	Tp, err := NextDifficulty(idx, p, block2.PrevHeaderHash)
	if err != nil {
		return 0, err
	}

	num := p.DifficultyDelay*Tp*(t3-t2)*p.BlockTimeTarget +
		(p.DifficultyWarpFactor-1)*(p.DifficultyEpoch-p.DifficultyDelay)*Tc*(t2-t1)*p.BlockTimeTarget
	den := p.DifficultyWarpFactor * (t3 - t2) * (t2 - t1)
	if den == 0 {
		return 0, fmt.Errorf("retarget: zero denominator computing next_difficulty at height %d", i)
	}
	tNew := num / den
	return clamp(tNew, Tc, p.DifficultyFactor), nil
}

// NextIPS computes the VDF speed (iterations per second) required of the
// block extending tipHash, per spec §4.2.
func NextIPS(idx HeaderIndex, p *config.Params, tipHash types.Hash) (uint64, error) {
	tip, ok := idx.Summary(tipHash)
	if !ok {
		return 0, fmt.Errorf("retarget: unknown tip %s", tipHash)
	}
	i := tip.Height + 1

	if i < p.DifficultyEpoch {
		return p.VDFIPSStarting, nil
	}
	if i%p.DifficultyEpoch != p.DifficultyDelay {
		// ips is held constant between change points (spec §4.2, chia's
		// get_next_ips: "not at a point where ips would change, so return
		// the previous ips"), so rather than deriving a fresh value from
		// the realized iters/time of the immediately preceding block, walk
		// back to the last height ib <= i where ib%DifficultyEpoch ==
		// DifficultyDelay — the block that actually last changed ips — and
		// recurse into the epoch-boundary branch below to recompute it.
		ii, delay, epoch := int64(i), int64(p.DifficultyDelay), int64(p.DifficultyEpoch)
		rem := (ii - delay) % epoch
		if rem < 0 {
			rem += epoch
		}
		ib := ii - rem
		if ib < 1 {
			return p.VDFIPSStarting, nil
		}
		boundaryTip, ok := idx.AncestorAt(tipHash, uint64(ib-1))
		if !ok {
			return p.VDFIPSStarting, nil
		}
		return NextIPS(idx, p, boundaryTip)
	}

	h1 := int64(i) - int64(p.DifficultyEpoch) - int64(p.DifficultyDelay) - 1
	h2 := int64(i) - int64(p.DifficultyDelay) - 1

	t1, err := timestampAt(idx, p, tipHash, h1)
	if err != nil {
		return 0, err
	}
	t2, err := timestampAt(idx, p, tipHash, h2)
	if err != nil {
		return 0, err
	}
	iters1, err := itersAt(idx, tipHash, h1)
	if err != nil {
		return 0, err
	}
	iters2, err := itersAt(idx, tipHash, h2)
	if err != nil {
		return 0, err
	}

	Cc, err := NextIPS(idx, p, tip.PrevHeaderHash)
	if err != nil {
		return 0, err
	}

	if t2 <= t1 {
		return 0, fmt.Errorf("retarget: non-increasing timestamps computing next_ips at height %d", i)
	}
	newIPS := (iters2 - iters1) / (t2 - t1)
	return clamp(newIPS, Cc, p.IPSFactor), nil
}
