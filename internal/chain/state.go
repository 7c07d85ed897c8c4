// Package chain implements the multi-tip header index and fork-choice
// engine of spec §4.1: an arena of every known header, a height-indexed
// mainline valid from genesis to the LCA, a capped tip set, and the UTXO
// reorg coupling that follows any LCA move. Grounded on the teacher's
// internal/chain (chain.go/state.go/store.go/reorg.go), generalized from a
// single-tip Chain struct to the K-tip least-common-ancestor model.
package chain

import (
	"github.com/spacetimechain/consensus-core/internal/utxo"
	"github.com/spacetimechain/consensus-core/pkg/block"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// State is the in-memory header arena spec §3 component E describes:
// headers (never pruned within a session), the mainline height index
// (valid only genesis..lca_block, invariant 2), the tip set (invariant 4),
// and the current LCA (invariant 3). Unlike the teacher's single-tip
// State, nothing here is durable on its own — blocks are durable via
// internal/blockstore and the committed UTXO snapshot via internal/utxo;
// the header arena is rebuilt by replaying known blocks if a process
// restarts, which spec §4.1 does not require this core to persist itself.
type State struct {
	genesisHash  types.Hash
	headers      map[types.Hash]*block.HeaderSummary
	heightToHash map[uint64]types.Hash
	tips         []*block.HeaderSummary       // arrival order; first-seen wins weight ties
	lca          types.Hash
	diffs        map[types.Hash]utxo.BlockDiff // header hash -> this block's diff against its own parent
}

func newState(genesis *block.HeaderSummary, genesisDiff utxo.BlockDiff) *State {
	s := &State{
		genesisHash:  genesis.HeaderHash,
		headers:      make(map[types.Hash]*block.HeaderSummary),
		heightToHash: make(map[uint64]types.Hash),
		diffs:        make(map[types.Hash]utxo.BlockDiff),
	}
	s.headers[genesis.HeaderHash] = genesis
	s.heightToHash[0] = genesis.HeaderHash
	s.diffs[genesis.HeaderHash] = genesisDiff
	s.tips = []*block.HeaderSummary{genesis}
	s.lca = genesis.HeaderHash
	return s
}

// Summary satisfies retarget.HeaderIndex and validate.ChainIndex: a
// read-only lookup of any known header by hash.
func (s *State) Summary(headerHash types.Hash) (*block.HeaderSummary, bool) {
	h, ok := s.headers[headerHash]
	return h, ok
}

// GenesisSummary satisfies retarget.HeaderIndex and validate.ChainIndex.
func (s *State) GenesisSummary() *block.HeaderSummary {
	return s.headers[s.genesisHash]
}

// AncestorAt returns the header hash at height along tipHash's chain: the
// mainline lookup when height is at or below the LCA, otherwise a backward
// walk through prev_header_hash (spec §4.2's "off-mainline ancestors are
// obtained by walking back from tip").
func (s *State) AncestorAt(tipHash types.Hash, height uint64) (types.Hash, bool) {
	if lca, ok := s.headers[s.lca]; ok && height <= lca.Height {
		hash, ok := s.heightToHash[height]
		return hash, ok
	}
	cur, ok := s.headers[tipHash]
	if !ok {
		return types.Hash{}, false
	}
	for cur.Height > height {
		next, ok := s.headers[cur.PrevHeaderHash]
		if !ok {
			return types.Hash{}, false
		}
		cur = next
	}
	if cur.Height != height {
		return types.Hash{}, false
	}
	return cur.HeaderHash, true
}

// ancestryAbove returns the header hashes strictly above aboveHeight on the
// path from genesis to tipHash, in ascending height order. Used both to
// extend height_to_hash past a new LCA and to collect a tip's diff path.
func (s *State) ancestryAbove(tipHash types.Hash, aboveHeight uint64) []types.Hash {
	cur, ok := s.headers[tipHash]
	if !ok {
		return nil
	}
	var hashes []types.Hash
	for cur.Height > aboveHeight {
		hashes = append(hashes, cur.HeaderHash)
		next, ok := s.headers[cur.PrevHeaderHash]
		if !ok {
			break
		}
		cur = next
	}
	for i, j := 0, len(hashes)-1; i < j; i, j = i+1, j-1 {
		hashes[i], hashes[j] = hashes[j], hashes[i]
	}
	return hashes
}

// isAncestor reports whether ancestor is on descendant's own ancestry path,
// including the case where they're equal. Ported from chia's is_descendant
// (original_source/src/blockchain.py), load-bearing for moveLCA's case
// split between a pure rollback and a pure forward-extension.
func (s *State) isAncestor(ancestor, descendant types.Hash) bool {
	anc, ok := s.headers[ancestor]
	if !ok {
		return false
	}
	cur, ok := s.headers[descendant]
	if !ok || cur.Height < anc.Height {
		return false
	}
	for cur.Height > anc.Height {
		next, ok := s.headers[cur.PrevHeaderHash]
		if !ok {
			return false
		}
		cur = next
	}
	return cur.HeaderHash == anc.HeaderHash
}

// headerHashes returns every header hash from genesis to tipHash, in
// ascending height order. Ported from chia's get_header_hashes: a pure,
// storage-free helper over the header arena for callers (sync, wallet,
// tests) that want a tip's full ancestry rather than one height at a time.
func (s *State) headerHashes(tipHash types.Hash) []types.Hash {
	cur, ok := s.headers[tipHash]
	if !ok {
		return nil
	}
	var hashes []types.Hash
	for {
		hashes = append(hashes, cur.HeaderHash)
		if cur.HeaderHash == s.genesisHash {
			break
		}
		next, ok := s.headers[cur.PrevHeaderHash]
		if !ok {
			break
		}
		cur = next
	}
	for i, j := 0, len(hashes)-1; i < j; i, j = i+1, j-1 {
		hashes[i], hashes[j] = hashes[j], hashes[i]
	}
	return hashes
}

// headerHashesAtHeights resolves several heights against tipHash's
// ancestry at once. Ported from chia's get_header_hashes_by_height.
func (s *State) headerHashesAtHeights(tipHash types.Hash, heights []uint64) map[uint64]types.Hash {
	out := make(map[uint64]types.Hash, len(heights))
	for _, h := range heights {
		if hash, ok := s.AncestorAt(tipHash, h); ok {
			out[h] = hash
		}
	}
	return out
}

// findForkPoint binary-searches altChain (a peer's claimed hash at each
// height, indexed from genesis) against tipHash's own ancestry, returning
// the highest height both agree on. Ported from chia's binary-search
// find_fork_point_in_chain, distinct from findFork's linear walk-back: that
// one compares two hashes already in this arena, this one compares against
// an externally supplied candidate list (e.g. a peer announcing an
// alternate chain during sync).
func (s *State) findForkPoint(tipHash types.Hash, altChain []types.Hash) uint64 {
	if len(altChain) == 0 {
		return 0
	}
	lo, hi := 0, len(altChain)-1
	var best uint64
	for lo <= hi {
		mid := lo + (hi-lo)/2
		hash, ok := s.AncestorAt(tipHash, uint64(mid))
		if ok && hash == altChain[mid] {
			best = uint64(mid)
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}

// findFork returns the deepest height at which height_to_hash still agrees
// with oldLCA's own ancestry, per spec §4.1's find_fork / the documented
// resolution of find_fork_for_lca's unreachable branch (spec §9, DESIGN.md):
// walk oldLCA backward one block at a time, comparing against the mainline
// entry at the same height, until they agree. Always terminates at height 0
// (genesis is mainline by invariant 1).
func (s *State) findFork(oldLCA *block.HeaderSummary) uint64 {
	cur := oldLCA
	for cur.Height > 0 {
		if s.heightToHash[cur.Height] == cur.HeaderHash {
			return cur.Height
		}
		next, ok := s.headers[cur.PrevHeaderHash]
		if !ok {
			return 0
		}
		cur = next
	}
	return 0
}

// recomputeLCA walks the tip with the largest height back one step at a
// time until all tips agree on a single header hash (spec §4.1: "this
// terminates because genesis is a common ancestor").
func (s *State) recomputeLCA() types.Hash {
	if len(s.tips) == 0 {
		return s.genesisHash
	}
	cursors := make([]*block.HeaderSummary, len(s.tips))
	copy(cursors, s.tips)

	for {
		agree := true
		for _, c := range cursors {
			if c.HeaderHash != cursors[0].HeaderHash {
				agree = false
				break
			}
		}
		if agree {
			return cursors[0].HeaderHash
		}
		maxHeight, maxIdx := cursors[0].Height, 0
		for i, c := range cursors {
			if c.Height > maxHeight {
				maxHeight, maxIdx = c.Height, i
			}
		}
		next, ok := s.headers[cursors[maxIdx].PrevHeaderHash]
		if !ok {
			return s.genesisHash
		}
		cursors[maxIdx] = next
	}
}
