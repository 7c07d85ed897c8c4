// Package blockstore persists full blocks keyed by header hash, the
// external collaborator spec §6 calls the block store: get_block/add_block
// plus a Has existence check. It is grounded on the teacher's
// internal/chain/store.go and internal/storage key-prefix conventions,
// adapted from the single-chain Block/Transaction model to FullBlock.
package blockstore

import (
	"encoding/json"
	"fmt"

	"github.com/spacetimechain/consensus-core/internal/storage"
	"github.com/spacetimechain/consensus-core/pkg/block"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

var prefixBlock = []byte("b/") // b/<header_hash(32)> -> FullBlock JSON

func blockKey(h types.Hash) []byte {
	k := make([]byte, 0, len(prefixBlock)+types.HashSize)
	k = append(k, prefixBlock...)
	k = append(k, h[:]...)
	return k
}

// Store is the durable header_hash -> FullBlock map.
type Store struct {
	db storage.DB
}

// New creates a block store backed by the given key-value database.
func New(db storage.DB) *Store {
	return &Store{db: db}
}

// GetBlock retrieves a full block by header hash. Returns (nil, nil) if the
// block is not known, matching the spec's FullBlock? optional return.
func (s *Store) GetBlock(headerHash types.Hash) (*block.FullBlock, error) {
	data, err := s.db.Get(blockKey(headerHash))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("blockstore: get %s: %w", headerHash, err)
	}
	var fb block.FullBlock
	if err := json.Unmarshal(data, &fb); err != nil {
		return nil, fmt.Errorf("blockstore: unmarshal %s: %w", headerHash, err)
	}
	return &fb, nil
}

// AddBlock stores a full block by its header hash. Idempotent: re-adding
// the same block overwrites with identical content.
func (s *Store) AddBlock(fb *block.FullBlock) error {
	data, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("blockstore: marshal %s: %w", fb.HeaderHash(), err)
	}
	if err := s.db.Put(blockKey(fb.HeaderHash()), data); err != nil {
		return fmt.Errorf("blockstore: put %s: %w", fb.HeaderHash(), err)
	}
	return nil
}

// Has reports whether a header hash is already stored.
func (s *Store) Has(headerHash types.Hash) (bool, error) {
	ok, err := s.db.Has(blockKey(headerHash))
	if err != nil {
		return false, fmt.Errorf("blockstore: has %s: %w", headerHash, err)
	}
	return ok, nil
}

func isNotFound(err error) bool {
	return err != nil && err.Error() == "key not found"
}
