package chain

import (
	"fmt"

	"github.com/spacetimechain/consensus-core/internal/chainerr"
	"github.com/spacetimechain/consensus-core/internal/log"
	"github.com/spacetimechain/consensus-core/internal/utxo"
	"github.com/spacetimechain/consensus-core/internal/validate"
	"github.com/spacetimechain/consensus-core/pkg/block"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// ReceiveBlock runs the full spec §4.1 data flow for one candidate block:
// validate (§4.3), index it into the header arena, persist it, reconsider
// tips, and if the LCA moved, roll back/replay the unspent store and
// rebuild every tip's diff overlay. Store I/O errors propagate; validation
// failures are reported through the result code and a nil error, per
// spec §7's policy that invalid blocks are logged and discarded without
// poisoning chain state.
func (c *Chain) ReceiveBlock(b *block.FullBlock, now uint64) (chainerr.ReceiveBlockResult, error) {
	headerHash := b.HeaderHash()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state.Summary(headerHash); ok {
		return chainerr.ResultAlreadyHaveBlock, nil
	}

	pre := validate.PreValidate(b, c.params, c.pos, c.vdf)
	txDeps := &validate.TxDeps{Lookup: c.utxos, Interp: c.interp, Agg: c.agg}
	res, err := validate.ValidateBlock(c.state, c.params, b, now, &pre, txDeps)
	if err != nil {
		if cerr, ok := err.(*chainerr.Error); ok {
			if cerr.Code == chainerr.CodeUnknownParent {
				log.Chain.Warn().Str("block", headerHash.String()).Msg("disconnected block")
				return chainerr.ResultDisconnectedBlock, nil
			}
			log.Chain.Warn().Str("block", headerHash.String()).Err(err).Msg("invalid block")
			return chainerr.ResultInvalidBlock, nil
		}
		return chainerr.ResultInvalidBlock, fmt.Errorf("chain: validate block %s: %w", headerHash, err)
	}

	summary := block.SummaryOf(b)
	diff := blockDiff(b, res)

	c.state.headers[headerHash] = summary
	c.state.diffs[headerHash] = diff
	if err := c.blocks.AddBlock(b); err != nil {
		return chainerr.ResultInvalidBlock, fmt.Errorf("chain: persist block %s: %w", headerHash, err)
	}

	result, err := c.reconsiderTips(summary)
	if err != nil {
		return chainerr.ResultInvalidBlock, fmt.Errorf("chain: reconsider tips after %s: %w", headerHash, err)
	}
	log.Chain.Info().Str("block", headerHash.String()).Uint64("height", summary.Height).Str("result", result.String()).Msg("received block")
	return result, nil
}

// reconsiderTips runs spec §4.1's reconsider_tips(b): b joins the tip set if
// its weight beats the current lowest tip (or the set is empty), the set is
// trimmed back to K by dropping the lowest-weight tip (first-seen wins
// ties, DESIGN.md), and if b joined, the LCA is recomputed and any mainline
// move is applied atomically against the unspent store.
func (c *Chain) reconsiderTips(b *block.HeaderSummary) (chainerr.ReceiveBlockResult, error) {
	minWeight, hasTips := uint64(0), false
	for _, t := range c.state.tips {
		if !hasTips || t.Weight < minWeight {
			minWeight, hasTips = t.Weight, true
		}
	}

	if hasTips && b.Weight <= minWeight {
		return chainerr.ResultAddedAsOrphan, nil
	}

	c.state.tips = append(c.state.tips, b)
	k := c.params.NumberOfHeads
	for uint64(len(c.state.tips)) > k {
		// Ties broken toward the earliest-arrived tip (DESIGN.md): scanning
		// with <= lets a later equal-weight entry keep overriding dropIdx,
		// so the last tied minimum is the one dropped.
		dropIdx := 0
		for i, t := range c.state.tips {
			if t.Weight <= c.state.tips[dropIdx].Weight {
				dropIdx = i
			}
		}
		c.state.tips = append(c.state.tips[:dropIdx], c.state.tips[dropIdx+1:]...)
	}

	oldLCA, _ := c.state.Summary(c.state.lca)
	newLCAHash := c.state.recomputeLCA()
	if newLCAHash != oldLCA.HeaderHash {
		newLCA, _ := c.state.Summary(newLCAHash)
		if err := c.moveLCA(oldLCA, newLCA); err != nil {
			return chainerr.ResultInvalidBlock, err
		}
		c.state.lca = newLCAHash
	}
	if err := c.rebuildTipDiffs(); err != nil {
		return chainerr.ResultInvalidBlock, err
	}
	return chainerr.ResultAddedToHead, nil
}

// moveLCA implements spec §4.1's "mainline rewrite on LCA change": extend
// height_to_hash and replay forward when new descends from old, truncate
// and roll back when new is an ancestor of old, or run find_fork, truncate,
// roll back to the fork, and replay the new side for a genuine reorg.
func (c *Chain) moveLCA(old, next *block.HeaderSummary) error {
	switch {
	case next.Height >= old.Height && c.state.isAncestor(old.HeaderHash, next.HeaderHash):
		path := c.state.ancestryAbove(next.HeaderHash, old.Height)
		for _, h := range path {
			s, _ := c.state.Summary(h)
			c.state.heightToHash[s.Height] = h
		}
		return c.replayForward(path)

	case old.Height >= next.Height && c.state.isAncestor(next.HeaderHash, old.HeaderHash):
		for h := next.Height + 1; h <= old.Height; h++ {
			delete(c.state.heightToHash, h)
		}
		return c.utxos.RollbackToBlock(next.Height)

	default:
		fork := c.state.findFork(old)
		for h := fork + 1; h <= old.Height; h++ {
			delete(c.state.heightToHash, h)
		}
		if err := c.utxos.RollbackToBlock(fork); err != nil {
			return fmt.Errorf("chain: reorg rollback to %d: %w", fork, err)
		}
		path := c.state.ancestryAbove(next.HeaderHash, fork)
		for _, h := range path {
			s, _ := c.state.Summary(h)
			c.state.heightToHash[s.Height] = h
		}
		return c.replayForward(path)
	}
}

// replayForward applies each header hash's own diff to the committed
// unspent snapshot in ascending height order. A single-block path is the
// plain linear-extension case and goes through utxo.Manager.NewLCA; a
// multi-block path (reorg replay) goes through the bulk AddLCAs.
func (c *Chain) replayForward(path []types.Hash) error {
	if len(path) == 1 {
		return c.utxos.NewLCA(c.state.diffs[path[0]])
	}
	diffs := make([]utxo.BlockDiff, 0, len(path))
	for _, h := range path {
		diffs = append(diffs, c.state.diffs[h])
	}
	return c.utxos.AddLCAs(diffs)
}

// rebuildTipDiffs discards every tip's overlay and rebuilds it from the
// unique suffix above the (possibly just-moved) LCA, per spec §4.1's final
// reorg-coupling step.
func (c *Chain) rebuildTipDiffs() error {
	c.utxos.NukeDiffs()
	lca, _ := c.state.Summary(c.state.lca)
	paths := make(map[types.Hash][]utxo.BlockDiff, len(c.state.tips))
	for _, t := range c.state.tips {
		path := c.state.ancestryAbove(t.HeaderHash, lca.Height)
		diffs := make([]utxo.BlockDiff, 0, len(path))
		for _, h := range path {
			diffs = append(diffs, c.state.diffs[h])
		}
		paths[t.HeaderHash] = diffs
	}
	return c.utxos.NewHeads(paths)
}
