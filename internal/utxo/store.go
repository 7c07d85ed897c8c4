// Package utxo implements the unspent store: the external collaborator
// spec §6 describes as get_unspent/new_lca/rollback_to_block/nuke_diffs/
// new_heads/add_lcas. Store holds the committed snapshot (genesis through
// the LCA); Manager layers per-tip diff overlays above it (spec §3, §4.1).
// Grounded on the teacher's internal/utxo/store.go key-prefix and
// storage.DB conventions, adapted from the Outpoint/UTXO model to the
// Coin-name/Unspent model.
package utxo

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/spacetimechain/consensus-core/internal/storage"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

var (
	prefixUnspent = []byte("u/") // u/<coin_name(32)> -> Unspent JSON
	prefixUndo    = []byte("d/") // d/<height(8)> -> undo record JSON
	keyHeight     = []byte("s/height")
)

func unspentKey(name types.Hash) []byte {
	k := make([]byte, 0, len(prefixUnspent)+types.HashSize)
	k = append(k, prefixUnspent...)
	k = append(k, name[:]...)
	return k
}

func undoKey(height uint64) []byte {
	k := make([]byte, len(prefixUndo)+8)
	copy(k, prefixUndo)
	binary.BigEndian.PutUint64(k[len(prefixUndo):], height)
	return k
}

// BlockDiff is the set of additions and removals a single block applies to
// the committed unspent set, computed upstream by transaction validation.
// Additions is keyed by coin name (pkg/crypto.CoinName(coin)) since Store
// never recomputes coin identity itself.
type BlockDiff struct {
	Height    uint64
	Additions map[types.Hash]types.Unspent
	Removals  []types.Hash // coin names marked spent
}

// undoRecord lets ApplyForward be reverted exactly by RollbackTo: it
// remembers which coins were newly created (to delete) and which existing
// coins were marked spent (to unmark, restoring their prior spent_index).
type undoRecord struct {
	Created      []types.Hash  `json:"created"`
	SpentCoins   []types.Hash  `json:"spent_coins"`
	PriorRecords []types.Unspent `json:"prior_records"` // pre-spend snapshot, same order as SpentCoins
}

// Store is the durable committed unspent set, valid for genesis..LCA only.
type Store struct {
	db storage.DB
}

// New creates an unspent store backed by the given key-value database.
func New(db storage.DB) *Store {
	return &Store{db: db}
}

// Get retrieves a coin's unspent record from the committed snapshot.
func (s *Store) Get(name types.Hash) (*types.Unspent, bool, error) {
	data, err := s.db.Get(unspentKey(name))
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("utxo: get %s: %w", name, err)
	}
	var u types.Unspent
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, false, fmt.Errorf("utxo: unmarshal %s: %w", name, err)
	}
	return &u, true, nil
}

// Height returns the committed height (LCA height), 0 if never set.
func (s *Store) Height() uint64 {
	data, err := s.db.Get(keyHeight)
	if err != nil || len(data) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}

func (s *Store) setHeight(h uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, h)
	return s.db.Put(keyHeight, buf)
}

func (s *Store) put(name types.Hash, u types.Unspent) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("utxo: marshal: %w", err)
	}
	return s.db.Put(unspentKey(name), data)
}

// ApplyForward applies one block's diff as the next committed block: marks
// additions unspent, marks removals spent, and records an undo entry so
// RollbackTo can exactly reverse it. d.Height must equal Height()+1.
func (s *Store) ApplyForward(d BlockDiff) error {
	if d.Height != s.Height()+1 {
		return fmt.Errorf("utxo: ApplyForward height %d, expected %d", d.Height, s.Height()+1)
	}

	undo := undoRecord{}
	for name, a := range d.Additions {
		if err := s.put(name, a); err != nil {
			return err
		}
		undo.Created = append(undo.Created, name)
	}
	for _, name := range d.Removals {
		prior, ok, err := s.Get(name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("utxo: ApplyForward: unknown coin %s in removals", name)
		}
		undo.SpentCoins = append(undo.SpentCoins, name)
		undo.PriorRecords = append(undo.PriorRecords, *prior)

		spent := *prior
		spent.Spent = true
		spent.SpentIndex = d.Height
		if err := s.put(name, spent); err != nil {
			return err
		}
	}

	data, err := json.Marshal(undo)
	if err != nil {
		return fmt.Errorf("utxo: marshal undo: %w", err)
	}
	if err := s.db.Put(undoKey(d.Height), data); err != nil {
		return fmt.Errorf("utxo: put undo: %w", err)
	}
	return s.setHeight(d.Height)
}

// ApplyGenesis commits the height-0 block's diff as the initial committed
// snapshot, bypassing the height+1 continuity check ApplyForward enforces
// for every later block (there is no "height -1" undo record to chain
// from). Genesis carries no spend bundle (spec §4.3 step 18 bars one), so
// it only ever adds coins.
func (s *Store) ApplyGenesis(d BlockDiff) error {
	if d.Height != 0 {
		return fmt.Errorf("utxo: ApplyGenesis height %d, want 0", d.Height)
	}
	for name, a := range d.Additions {
		if err := s.put(name, a); err != nil {
			return err
		}
	}
	return s.setHeight(0)
}

// RollbackTo reverts committed blocks down to and including targetHeight+1,
// leaving the store's height at targetHeight.
func (s *Store) RollbackTo(targetHeight uint64) error {
	for h := s.Height(); h > targetHeight; h-- {
		data, err := s.db.Get(undoKey(h))
		if err != nil {
			return fmt.Errorf("utxo: rollback: missing undo for height %d: %w", h, err)
		}
		var undo undoRecord
		if err := json.Unmarshal(data, &undo); err != nil {
			return fmt.Errorf("utxo: rollback: unmarshal undo %d: %w", h, err)
		}
		for _, name := range undo.Created {
			if err := s.db.Delete(unspentKey(name)); err != nil {
				return fmt.Errorf("utxo: rollback: delete %s: %w", name, err)
			}
		}
		for i, prior := range undo.PriorRecords {
			if err := s.put(undo.SpentCoins[i], prior); err != nil {
				return fmt.Errorf("utxo: rollback: restore: %w", err)
			}
		}
		if err := s.db.Delete(undoKey(h)); err != nil {
			return fmt.Errorf("utxo: rollback: delete undo %d: %w", h, err)
		}
	}
	return s.setHeight(targetHeight)
}

func isNotFound(err error) bool {
	return err != nil && err.Error() == "key not found"
}
