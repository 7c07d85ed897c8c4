package blockstore

import (
	"testing"

	"github.com/spacetimechain/consensus-core/internal/storage"
	"github.com/spacetimechain/consensus-core/pkg/block"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

func testBlock(height uint64) *block.FullBlock {
	return &block.FullBlock{
		Header: &block.Header{Data: block.HeaderData{Height: height, Timestamp: 1000 + height}},
		Body:   &block.Body{},
	}
}

func TestStore_AddGetBlock(t *testing.T) {
	s := New(storage.NewMemory())
	fb := testBlock(0)

	if err := s.AddBlock(fb); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	got, err := s.GetBlock(fb.HeaderHash())
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if got == nil {
		t.Fatal("expected block, got nil")
	}
	if got.Header.Data.Height != 0 {
		t.Errorf("height = %d, want 0", got.Header.Data.Height)
	}
}

func TestStore_GetBlock_Unknown(t *testing.T) {
	s := New(storage.NewMemory())
	got, err := s.GetBlock(types.Hash{})
	if err != nil {
		t.Fatalf("GetBlock should not error on unknown hash: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown hash")
	}
}

func TestStore_Has(t *testing.T) {
	s := New(storage.NewMemory())
	fb := testBlock(1)
	if ok, _ := s.Has(fb.HeaderHash()); ok {
		t.Error("should not have block before AddBlock")
	}
	s.AddBlock(fb)
	if ok, _ := s.Has(fb.HeaderHash()); !ok {
		t.Error("should have block after AddBlock")
	}
}
