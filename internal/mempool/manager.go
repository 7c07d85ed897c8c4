package mempool

import (
	"fmt"
	"sync"

	"github.com/spacetimechain/consensus-core/internal/chainerr"
	"github.com/spacetimechain/consensus-core/internal/log"
	"github.com/spacetimechain/consensus-core/internal/txvalidate"
	"github.com/spacetimechain/consensus-core/pkg/block"
	"github.com/spacetimechain/consensus-core/pkg/proofs"
	"github.com/spacetimechain/consensus-core/pkg/tx"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// potentialCacheSize bounds the retry cache of spend bundles parked on an
// unknown coin (spec §4.5: "potential_txs retry cache has an LRU-style
// bound of 300 entries").
const potentialCacheSize = 300

// ChainIndex is the subset of internal/chain.Chain the manager consults to
// learn a tip's height and the block that produced it, kept as an
// interface so this package never imports internal/chain (layering: chain
// depends on nothing mempool-shaped).
type ChainIndex interface {
	Summary(headerHash types.Hash) (*block.HeaderSummary, bool)
	GetBlock(headerHash types.Hash) (*block.FullBlock, error)
}

// Manager owns one Pool per current chain tip plus the two caches spec
// §4.5 requires: an old-mempool cache of pools retired by a reorg (so a
// tip that reappears doesn't lose its pending bundles) and a bounded
// potential_txs cache of bundles rejected only for referencing a coin this
// node hasn't seen yet. Grounded on the teacher's single global mempool.Pool,
// generalized to chia's per-tip Mempool class.
type Manager struct {
	mu sync.Mutex

	chain  ChainIndex
	lookup txvalidate.UnspentLookup
	interp proofs.ConditionInterpreter
	agg    proofs.Aggregator
	params txvalidate.Params

	maxItemsPerPool int
	oldPoolCap      int
	policy          *Policy

	pools    map[types.Hash]*Pool // tip header hash -> pool
	oldPools map[types.Hash]*Pool // retired tip hash -> pool, oldest-first in oldOrder
	oldOrder []types.Hash

	potential      map[types.Hash]*tx.SpendBundle
	potentialOrder []types.Hash
}

// NewManager builds an empty manager. maxItemsPerPool should be derived
// from config.Params.MempoolSize(); oldPoolCap from MempoolBlockBuffer,
// both read once at construction since Params is immutable (spec §6).
func NewManager(
	chain ChainIndex,
	lookup txvalidate.UnspentLookup,
	interp proofs.ConditionInterpreter,
	agg proofs.Aggregator,
	params txvalidate.Params,
	maxItemsPerPool int,
	oldPoolCap int,
) *Manager {
	if maxItemsPerPool <= 0 {
		maxItemsPerPool = 5000
	}
	if oldPoolCap <= 0 {
		oldPoolCap = 10
	}
	return &Manager{
		chain:           chain,
		lookup:          lookup,
		interp:          interp,
		agg:             agg,
		params:          params,
		maxItemsPerPool: maxItemsPerPool,
		oldPoolCap:      oldPoolCap,
		policy:          DefaultPolicy(),
		pools:           make(map[types.Hash]*Pool),
		oldPools:        make(map[types.Hash]*Pool),
		potential:       make(map[types.Hash]*tx.SpendBundle),
	}
}

// NewTips reconciles the manager's per-tip pools against the chain's
// current tip set, spec §4.5's three-way inheritance: a tip already
// tracked keeps its pool untouched (reuse case); a brand-new tip whose
// parent is a currently tracked tip inherits that pool via clone and
// diff-update (clone case: the one block that separates them may have
// confirmed spends that now conflict with still-pending bundles); any
// other brand-new tip gets an empty pool rehydrated from the old-mempool
// cache and the potential_txs cache (create+rehydrate case). Tips no
// longer current are retired into the old-mempool cache.
func (m *Manager) NewTips(tips []types.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[types.Hash]*Pool, len(tips))
	stillCurrent := make(map[types.Hash]bool, len(tips))

	for _, tipHash := range tips {
		stillCurrent[tipHash] = true
	}
	for tipHash, p := range m.pools {
		if !stillCurrent[tipHash] {
			m.retirePool(tipHash, p)
		}
	}

	for _, tipHash := range tips {
		if p, ok := m.pools[tipHash]; ok {
			next[tipHash] = p
			continue
		}
		if p := m.cloneFromParent(tipHash); p != nil {
			next[tipHash] = p
			continue
		}
		p := newPool(tipHash, m.maxItemsPerPool)
		m.rehydrate(p)
		next[tipHash] = p
	}
	m.pools = next
}

// cloneFromParent implements NewTips's clone-and-diff-update case: tipHash
// is brand new, but its immediate parent still has a tracked pool, so
// rather than rehydrating from scratch it clones that pool and drops
// whatever the newly confirmed block invalidates. Returns nil if tipHash's
// parent isn't a currently tracked tip, falling back to create+rehydrate.
func (m *Manager) cloneFromParent(tipHash types.Hash) *Pool {
	summary, ok := m.chain.Summary(tipHash)
	if !ok {
		return nil
	}
	parent, ok := m.pools[summary.PrevHeaderHash]
	if !ok {
		return nil
	}
	blk, err := m.chain.GetBlock(tipHash)
	if err != nil || blk == nil {
		return nil
	}

	np := parent.clone(tipHash)
	m.diffUpdate(np, blk)
	return np
}

// diffUpdate drops every pending item in p that the just-confirmed block
// invalidates: either it is the very bundle the block included (now
// confirmed, no longer pending), or it spends a coin the block's bundle
// already spent (a losing double-spend against the confirmed chain).
func (m *Manager) diffUpdate(p *Pool, blk *block.FullBlock) {
	if blk.Body.SpendBundle == nil {
		return
	}
	confirmedName := blk.Body.SpendBundle.Name()
	confirmedRemovals := make(map[types.Hash]bool)
	for _, rn := range blk.Body.SpendBundle.RemovalNames() {
		confirmedRemovals[rn] = true
	}

	for _, it := range p.itemsByFeePerCost() {
		if it.Name == confirmedName {
			p.remove(it.Name)
			continue
		}
		for _, rn := range it.RemovalNames {
			if confirmedRemovals[rn] {
				p.remove(it.Name)
				break
			}
		}
	}
}

// retirePool pushes a displaced tip's pool into the old-mempool cache,
// evicting the oldest entry once the cache exceeds oldPoolCap.
func (m *Manager) retirePool(tipHash types.Hash, p *Pool) {
	if p.Count() == 0 {
		return
	}
	m.oldPools[tipHash] = p
	m.oldOrder = append(m.oldOrder, tipHash)
	for len(m.oldOrder) > m.oldPoolCap {
		oldest := m.oldOrder[0]
		m.oldOrder = m.oldOrder[1:]
		delete(m.oldPools, oldest)
	}
}

// rehydrate replays every bundle from the old-mempool cache and the
// potential_txs cache against a freshly created pool, admitting whichever
// still validate. Bundles that fail are simply dropped for this pool —
// they remain available in the caches for the next tip that can take them.
func (m *Manager) rehydrate(p *Pool) {
	seen := make(map[types.Hash]bool)
	for _, old := range m.oldPools {
		for _, it := range old.itemsByFeePerCost() {
			if seen[it.Name] {
				continue
			}
			seen[it.Name] = true
			bundle := it.Bundle
			m.tryAdmit(&bundle, p)
		}
	}
	for _, name := range m.potentialOrder {
		if seen[name] {
			continue
		}
		seen[name] = true
		if sb, ok := m.potential[name]; ok {
			m.tryAdmit(sb, p)
		}
	}
}

// AddSpendBundle runs spec §4.5's add_spend_bundle(sb, pool?): if onlyTip
// is non-nil the bundle is validated against that single tip's pool only;
// otherwise it is tried against every current tip. A bundle that fails
// everywhere only because a spent coin is unknown is parked in the
// potential_txs cache for replay on the next NewTips. The returned map
// carries one entry per tip attempted, nil for a tip that accepted it.
func (m *Manager) AddSpendBundle(sb *tx.SpendBundle, onlyTip *types.Hash) map[types.Hash]error {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make(map[types.Hash]error)

	if err := m.policy.Check(sb); err != nil {
		if onlyTip != nil {
			results[*onlyTip] = err
			return results
		}
		for tipHash := range m.pools {
			results[tipHash] = err
		}
		return results
	}

	name := sb.Name()

	targets := m.pools
	if onlyTip != nil {
		if p, ok := m.pools[*onlyTip]; ok {
			targets = map[types.Hash]*Pool{*onlyTip: p}
		} else {
			results[*onlyTip] = fmt.Errorf("mempool: unknown tip %s", onlyTip)
			return results
		}
	}

	accepted := false
	sawUnknownUnspent := false
	for tipHash, p := range targets {
		if p.Has(name) {
			results[tipHash] = nil
			accepted = true
			continue
		}
		err := m.admitTo(sb, p)
		results[tipHash] = err
		if err == nil {
			accepted = true
			continue
		}
		if cerr, ok := err.(*chainerr.Error); ok && cerr.Code == chainerr.CodeUnknownUnspent {
			sawUnknownUnspent = true
		}
	}

	if accepted {
		m.dropPotential(name)
	} else if sawUnknownUnspent {
		m.parkPotential(name, sb)
	}
	return results
}

// tryAdmit is AddSpendBundle's single-pool core, used during rehydration
// where a validation failure is silently dropped rather than reported.
func (m *Manager) tryAdmit(sb *tx.SpendBundle, p *Pool) {
	_ = m.admitTo(sb, p)
}

// admitTo validates sb against p's tip and, on success, hands it to the
// pool's conflict-aware admit.
func (m *Manager) admitTo(sb *tx.SpendBundle, p *Pool) error {
	tip, ok := m.chain.Summary(p.tipHash)
	if !ok {
		return fmt.Errorf("mempool: unknown tip %s", p.tipHash)
	}
	res, err := txvalidate.Validate(sb, tip.Height, p.tipHash, p.ephemeral(), m.lookup, m.interp, m.agg, m.params)
	if err != nil {
		return err
	}
	item := &Item{
		Bundle:       *sb,
		Name:         sb.Name(),
		Cost:         res.Cost,
		Fee:          res.Fees,
		FeePerCost:   feePerCost(res.Fees, res.Cost),
		Additions:    res.Additions,
		RemovalNames: res.RemovalNames,
	}
	return p.admit(item)
}

// parkPotential records a bundle that failed only on an unknown spent
// coin, for replay once that coin's creating block arrives. The cache is
// LRU-bounded at potentialCacheSize; the oldest entry is dropped to make
// room.
func (m *Manager) parkPotential(name types.Hash, sb *tx.SpendBundle) {
	if _, exists := m.potential[name]; exists {
		return
	}
	m.potential[name] = sb
	m.potentialOrder = append(m.potentialOrder, name)
	for len(m.potentialOrder) > potentialCacheSize {
		oldest := m.potentialOrder[0]
		m.potentialOrder = m.potentialOrder[1:]
		delete(m.potential, oldest)
	}
}

func (m *Manager) dropPotential(name types.Hash) {
	if _, exists := m.potential[name]; !exists {
		return
	}
	delete(m.potential, name)
	for i, n := range m.potentialOrder {
		if n == name {
			m.potentialOrder = append(m.potentialOrder[:i], m.potentialOrder[i+1:]...)
			break
		}
	}
}

// CreateBundleForTip runs spec §4.5's create_bundle_for_tip(tip): pack
// pending bundles in descending fee_per_cost order up to BlockCostMax,
// merging their coin spends into one bundle. The merged bundle carries no
// aggregated signature — re-aggregating it is the block assembler's job
// (pkg/tx.Merge's contract).
func (m *Manager) CreateBundleForTip(tipHash types.Hash) (tx.SpendBundle, uint64, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pools[tipHash]
	if !ok {
		return tx.SpendBundle{}, 0, 0, fmt.Errorf("mempool: unknown tip %s", tipHash)
	}

	var packed []tx.SpendBundle
	var totalCost, totalFees uint64
	for _, it := range p.itemsByFeePerCost() {
		if totalCost+it.Cost > m.params.BlockCostMax {
			break
		}
		packed = append(packed, it.Bundle)
		totalCost += it.Cost
		totalFees += it.Fee
	}

	merged := tx.Merge(packed...)
	log.Mempool.Debug().Str("tip", tipHash.String()).Int("bundles", len(packed)).Uint64("cost", totalCost).Uint64("fees", totalFees).Msg("assembled block bundle")
	return merged, totalCost, totalFees, nil
}

// PoolFor exposes a tip's pool for inspection (counts, names), nil if the
// tip isn't currently tracked.
func (m *Manager) PoolFor(tipHash types.Hash) *Pool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pools[tipHash]
}

// SetMaxItemsPerPool reconfigures the per-pool item capacity (e.g. a config
// reload recomputing config.Params.MempoolSize()) and immediately evicts
// every currently tracked pool down to the new size, rather than waiting
// for the next admit to trim it one entry at a time.
func (m *Manager) SetMaxItemsPerPool(maxItemsPerPool int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if maxItemsPerPool <= 0 {
		return
	}
	m.maxItemsPerPool = maxItemsPerPool
	for _, p := range m.pools {
		p.SetMaxSize(maxItemsPerPool)
		p.Evict(maxItemsPerPool)
	}
}
