package utxo

import (
	"sync"

	"github.com/spacetimechain/consensus-core/pkg/types"
)

// TipDiff is a per-tip overlay of the committed snapshot: coins that exist
// above the LCA on the path lca -> tip (additions) and coins spent on that
// same path (removals), per spec §3 "diff overlay" and §4.1 invariant 7.
type TipDiff struct {
	Additions map[types.Hash]types.Unspent
	Removals  map[types.Hash]struct{}
}

func newTipDiff() *TipDiff {
	return &TipDiff{
		Additions: make(map[types.Hash]types.Unspent),
		Removals:  make(map[types.Hash]struct{}),
	}
}

// Manager is the external unspent store collaborator: a committed Store
// plus per-tip diff overlays, matching spec §6's get_unspent/new_lca/
// rollback_to_block/nuke_diffs/new_heads/add_lcas contract.
type Manager struct {
	mu    sync.RWMutex
	store *Store
	diffs map[types.Hash]*TipDiff // tip header hash -> overlay above LCA
}

// NewManager wraps a committed store with an empty set of tip overlays.
func NewManager(store *Store) *Manager {
	return &Manager{store: store, diffs: make(map[types.Hash]*TipDiff)}
}

// GetUnspent looks up a coin as seen from the given tip: first the tip's
// diff overlay (an overlay removal means spent-above-LCA, an overlay
// addition means created-above-LCA), then the committed snapshot.
func (m *Manager) GetUnspent(coinName types.Hash, tipHeaderHash types.Hash) (*types.Unspent, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if d, ok := m.diffs[tipHeaderHash]; ok {
		if _, spent := d.Removals[coinName]; spent {
			return nil, false, nil
		}
		if u, ok := d.Additions[coinName]; ok {
			return &u, true, nil
		}
	}
	return m.store.Get(coinName)
}

// NewGenesis commits the height-0 block's diff as the initial committed
// snapshot (spec §4.1 invariant 1). Call this once, before any NewLCA.
func (m *Manager) NewGenesis(d BlockDiff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.ApplyGenesis(d)
}

// NewLCA extends the committed snapshot forward by one block. Use this for
// the linear-extension case of mainline rewrite (spec §4.1).
func (m *Manager) NewLCA(d BlockDiff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.ApplyForward(d)
}

// AddLCAs applies several blocks' diffs to the committed snapshot in
// order, for bulk linear extension or the replay half of a reorg.
func (m *Manager) AddLCAs(ds []BlockDiff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range ds {
		if err := m.store.ApplyForward(d); err != nil {
			return err
		}
	}
	return nil
}

// RollbackToBlock reverts the committed snapshot back to the given height.
func (m *Manager) RollbackToBlock(height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.RollbackTo(height)
}

// NukeDiffs discards every tip's overlay. Call this immediately before
// rebuilding them with NewHeads, per the reorg coupling in spec §4.1.
func (m *Manager) NukeDiffs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diffs = make(map[types.Hash]*TipDiff)
}

// NewHeads rebuilds the diff overlay for each tip from its unique suffix
// above the new LCA. path maps each tip's header hash to the ordered list
// of per-block diffs from lca+1 to the tip, in height order.
func (m *Manager) NewHeads(paths map[types.Hash][]BlockDiff) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for tip, blocks := range paths {
		d := newTipDiff()
		for _, bd := range blocks {
			for name, u := range bd.Additions {
				d.Additions[name] = u
			}
			for _, name := range bd.Removals {
				if _, wasAdded := d.Additions[name]; wasAdded {
					delete(d.Additions, name)
				}
				d.Removals[name] = struct{}{}
			}
		}
		m.diffs[tip] = d
	}
	return nil
}

// CommittedHeight returns the height of the committed snapshot (the LCA).
func (m *Manager) CommittedHeight() uint64 {
	return m.store.Height()
}

// TipDiffFor returns the current overlay for a tip, or false if none is
// tracked (e.g. the tip equals the LCA).
func (m *Manager) TipDiffFor(tipHeaderHash types.Hash) (*TipDiff, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.diffs[tipHeaderHash]
	return d, ok
}
