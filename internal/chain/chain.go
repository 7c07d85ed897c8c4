package chain

import (
	"fmt"
	"sync"

	"github.com/spacetimechain/consensus-core/config"
	"github.com/spacetimechain/consensus-core/internal/blockstore"
	"github.com/spacetimechain/consensus-core/internal/log"
	"github.com/spacetimechain/consensus-core/internal/utxo"
	"github.com/spacetimechain/consensus-core/internal/validate"
	"github.com/spacetimechain/consensus-core/pkg/block"
	"github.com/spacetimechain/consensus-core/pkg/crypto"
	"github.com/spacetimechain/consensus-core/pkg/proofs"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// Chain is the single-writer actor of spec §5: it owns the header arena,
// drives fork-choice, and couples LCA moves to the unspent store. All
// mutating methods take mu, matching the teacher's sync.Mutex-protected
// Chain struct generalized from one tip to a capped tip set.
type Chain struct {
	mu sync.Mutex

	params *config.Params
	state  *State
	blocks *blockstore.Store
	utxos  *utxo.Manager

	pos    proofs.PoSpaceVerifier
	vdf    proofs.VDFVerifier
	interp proofs.ConditionInterpreter
	agg    proofs.Aggregator
}

// New builds a chain from a validated genesis block. The caller supplies
// the four external cryptography collaborators spec §6 sanctions as pure
// boundaries (harvester, timelord, BLS aggregator, puzzle interpreter) —
// this package never implements any of them itself.
func New(
	params *config.Params,
	genesisBlock *block.FullBlock,
	blocks *blockstore.Store,
	utxos *utxo.Manager,
	pos proofs.PoSpaceVerifier,
	vdf proofs.VDFVerifier,
	interp proofs.ConditionInterpreter,
	agg proofs.Aggregator,
) (*Chain, error) {
	if !genesisBlock.IsGenesis() {
		return nil, fmt.Errorf("chain: genesis block must have height 0")
	}

	c := &Chain{
		params: params,
		blocks: blocks,
		utxos:  utxos,
		pos:    pos,
		vdf:    vdf,
		interp: interp,
		agg:    agg,
	}

	summary := block.SummaryOf(genesisBlock)
	diff := genesisDiff(genesisBlock)
	c.state = newState(summary, diff)

	pre := validate.PreValidate(genesisBlock, params, pos, vdf)
	if _, err := validate.ValidateBlock(c.state, params, genesisBlock, genesisBlock.Header.Data.Timestamp, &pre, nil); err != nil {
		return nil, fmt.Errorf("chain: invalid genesis block: %w", err)
	}
	if err := c.blocks.AddBlock(genesisBlock); err != nil {
		return nil, fmt.Errorf("chain: persist genesis: %w", err)
	}
	if err := c.utxos.NewGenesis(diff); err != nil {
		return nil, fmt.Errorf("chain: apply genesis diff: %w", err)
	}

	log.Chain.Info().Str("genesis", summary.HeaderHash.String()).Msg("chain initialized")
	return c, nil
}

// blockDiff assembles the unspent-set diff a validated block applies: its
// coinbase and fees coins as additions (spec's unspent-record lifecycle),
// plus whatever transaction validation produced.
func blockDiff(b *block.FullBlock, res *validate.Result) utxo.BlockDiff {
	additions := make(map[types.Hash]types.Unspent, len(res.TxAdditions)+2)
	for name, u := range res.TxAdditions {
		additions[name] = u
	}
	height := b.Header.Data.Height
	additions[crypto.CoinName(b.Body.Coinbase)] = types.Unspent{
		Coin:           b.Body.Coinbase,
		ConfirmedIndex: height,
		Coinbase:       true,
	}
	additions[crypto.CoinName(b.Body.FeesCoin)] = types.Unspent{
		Coin:           b.Body.FeesCoin,
		ConfirmedIndex: height,
	}
	return utxo.BlockDiff{Height: height, Additions: additions, Removals: res.TxRemovals}
}

// genesisDiff is blockDiff for the height-0 block specifically: genesis
// always carries a nil SpendBundle (spec §4.3 step 18), so its diff is
// exactly its coinbase and fees coins with no transaction side. Computing
// it needs no validate.Result, which lets New build the header arena
// before running ValidateBlock against it.
func genesisDiff(b *block.FullBlock) utxo.BlockDiff {
	return blockDiff(b, &validate.Result{})
}

// Height returns the LCA's height, the chain's committed prefix length.
func (c *Chain) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	lca, _ := c.state.Summary(c.state.lca)
	return lca.Height
}

// LCA returns the current least-common-ancestor header hash.
func (c *Chain) LCA() types.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.lca
}

// Tips returns the current tip set's header hashes, in arrival order.
func (c *Chain) Tips() []types.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Hash, len(c.state.tips))
	for i, t := range c.state.tips {
		out[i] = t.HeaderHash
	}
	return out
}

// Summary exposes the header arena read-only, satisfying retarget.HeaderIndex
// and validate.ChainIndex for callers that validate against this chain.
func (c *Chain) Summary(headerHash types.Hash) (*block.HeaderSummary, bool) {
	return c.state.Summary(headerHash)
}

// GenesisSummary satisfies retarget.HeaderIndex and validate.ChainIndex.
func (c *Chain) GenesisSummary() *block.HeaderSummary {
	return c.state.GenesisSummary()
}

// AncestorAt satisfies retarget.HeaderIndex and validate.ChainIndex.
func (c *Chain) AncestorAt(tipHash types.Hash, height uint64) (types.Hash, bool) {
	return c.state.AncestorAt(tipHash, height)
}

// HeaderHashes returns every header hash from genesis to tipHash, in
// ascending height order (spec §6 supplement, chia's get_header_hashes).
func (c *Chain) HeaderHashes(tipHash types.Hash) []types.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.headerHashes(tipHash)
}

// HeaderHashesAtHeights resolves several heights against tipHash's
// ancestry at once (spec §6 supplement, chia's get_header_hashes_by_height).
func (c *Chain) HeaderHashesAtHeights(tipHash types.Hash, heights []uint64) map[uint64]types.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.headerHashesAtHeights(tipHash, heights)
}

// FindForkPoint binary-searches a peer-supplied candidate hash list
// (indexed by height from genesis) against tipHash's ancestry, for sync
// use distinct from the internal reorg-time findFork (spec §6 supplement).
func (c *Chain) FindForkPoint(tipHash types.Hash, altChain []types.Hash) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.findForkPoint(tipHash, altChain)
}

// GetBlock returns a full block by header hash, mainline or not.
func (c *Chain) GetBlock(headerHash types.Hash) (*block.FullBlock, error) {
	return c.blocks.GetBlock(headerHash)
}

// GetBlockByHeight returns the mainline block at height, nil if height is
// above the current LCA.
func (c *Chain) GetBlockByHeight(height uint64) (*block.FullBlock, error) {
	c.mu.Lock()
	hash, ok := c.state.heightToHash[height]
	c.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return c.blocks.GetBlock(hash)
}
