// Package mempool implements spec §4.5's per-tip pending-spend pool: one
// Pool per chain tip, ordered by fee-per-cost, with a conflict index for
// double-spend detection and capacity eviction of the cheapest entry.
// Generalized from the teacher's single global fee-rate-per-byte Pool to
// chia's per-tip Mempool keyed by fee_per_cost.
package mempool

import (
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/spacetimechain/consensus-core/pkg/tx"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// Mempool errors.
var (
	ErrAlreadyInPool = errors.New("spend bundle already in this pool")
	ErrConflict      = errors.New("spend bundle conflicts with a higher fee-per-cost entry")
	ErrPoolFull      = errors.New("pool is full and new bundle does not out-pay the cheapest entry")
)

// Item is a spend bundle admitted to a pool, carrying the bookkeeping
// txvalidate.Validate already produced so the pool never re-runs NPC
// evaluation once a bundle is in.
type Item struct {
	Bundle       tx.SpendBundle
	Name         types.Hash
	Cost         uint64
	Fee          uint64
	FeePerCost   float64
	Additions    map[types.Hash]types.Unspent
	RemovalNames []types.Hash
}

// feePerCost is fee_per_cost per spec §4.5: the ordering key for both
// block packing and conflict resolution. Cost is never zero for a bundle
// that reached Validate successfully (GetNamePuzzleConditions always
// charges at least a base cost per coin spend).
func feePerCost(fee, cost uint64) float64 {
	if cost == 0 {
		return 0
	}
	return float64(fee) / float64(cost)
}

// Pool holds the spend bundles currently pending against one chain tip.
type Pool struct {
	mu sync.RWMutex

	tipHash types.Hash
	maxSize int

	items     map[types.Hash]*Item         // bundle name -> item
	spends    map[types.Hash]types.Hash    // coin name -> bundle name (conflict index)
	additions map[types.Hash]types.Unspent // coin name -> unspent, for intra-pool spend chaining
}

// newPool builds an empty pool for tipHash with the given item capacity.
func newPool(tipHash types.Hash, maxSize int) *Pool {
	return &Pool{
		tipHash:   tipHash,
		maxSize:   maxSize,
		items:     make(map[types.Hash]*Item),
		spends:    make(map[types.Hash]types.Hash),
		additions: make(map[types.Hash]types.Unspent),
	}
}

// clone copies a pool's contents onto a new tip hash, for the
// clone-diff-update case of NewTips (spec §4.5).
func (p *Pool) clone(tipHash types.Hash) *Pool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	np := newPool(tipHash, p.maxSize)
	for name, it := range p.items {
		np.items[name] = it
	}
	for coin, name := range p.spends {
		np.spends[coin] = name
	}
	for coin, u := range p.additions {
		np.additions[coin] = u
	}
	return np
}

// ephemeral returns the pool's addition set, used by txvalidate.Validate
// to resolve spends of coins a still-pending bundle in this same pool
// would create.
func (p *Pool) ephemeral() map[types.Hash]types.Coin {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[types.Hash]types.Coin, len(p.additions))
	for name, u := range p.additions {
		out[name] = u.Coin
	}
	return out
}

// admit applies check_removals (spec §4.5): a bundle is rejected outright
// if it duplicates a name already in the pool, rejected if it conflicts
// with an existing entry of equal-or-higher fee_per_cost, and otherwise
// evicts every conflicting entry it strictly out-pays. Capacity eviction
// runs last, dropping the single cheapest entry if the pool is full and
// item out-pays it.
func (p *Pool) admit(item *Item) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.items[item.Name]; exists {
		return ErrAlreadyInPool
	}

	conflicts := make(map[types.Hash]*Item)
	for _, rn := range item.RemovalNames {
		if existingName, ok := p.spends[rn]; ok {
			conflicts[existingName] = p.items[existingName]
		}
	}
	for _, c := range conflicts {
		if item.FeePerCost <= c.FeePerCost {
			return ErrConflict
		}
	}
	for name := range conflicts {
		p.removeLocked(name)
	}

	if len(p.items) >= p.maxSize {
		lowestName, lowestRate := p.findLowestFeePerCostLocked()
		if item.FeePerCost <= lowestRate {
			return ErrPoolFull
		}
		p.removeLocked(lowestName)
	}

	p.items[item.Name] = item
	for _, rn := range item.RemovalNames {
		p.spends[rn] = item.Name
	}
	for name, u := range item.Additions {
		p.additions[name] = u
	}
	return nil
}

// remove drops a bundle by name, if present.
func (p *Pool) remove(name types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(name)
}

func (p *Pool) removeLocked(name types.Hash) {
	it, exists := p.items[name]
	if !exists {
		return
	}
	for _, rn := range it.RemovalNames {
		if p.spends[rn] == name {
			delete(p.spends, rn)
		}
	}
	for addedName := range it.Additions {
		delete(p.additions, addedName)
	}
	delete(p.items, name)
}

// findLowestFeePerCostLocked returns the name and rate of the cheapest
// item. Must be called with p.mu held.
func (p *Pool) findLowestFeePerCostLocked() (types.Hash, float64) {
	var lowestName types.Hash
	lowestRate := math.MaxFloat64
	for name, it := range p.items {
		if it.FeePerCost < lowestRate {
			lowestRate, lowestName = it.FeePerCost, name
		}
	}
	return lowestName, lowestRate
}

// Has reports whether a bundle name is already pending in this pool.
func (p *Pool) Has(name types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.items[name]
	return ok
}

// Count returns the number of pending bundles.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}

// Names returns every pending bundle's name.
func (p *Pool) Names() []types.Hash {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.Hash, 0, len(p.items))
	for name := range p.items {
		out = append(out, name)
	}
	return out
}

// itemsByFeePerCost returns every item sorted fee_per_cost descending, the
// order create_bundle_for_tip packs in (spec §4.5).
func (p *Pool) itemsByFeePerCost() []*Item {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Item, 0, len(p.items))
	for _, it := range p.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FeePerCost != out[j].FeePerCost {
			return out[i].FeePerCost > out[j].FeePerCost
		}
		return out[i].Name.String() < out[j].Name.String()
	})
	return out
}
