package mempool

import (
	"testing"

	"github.com/spacetimechain/consensus-core/pkg/tx"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

func testItem(name byte, feePerCost float64, removal types.Hash) *Item {
	return &Item{
		Bundle:       tx.SpendBundle{},
		Name:         types.Hash{name},
		Cost:         100,
		Fee:          uint64(feePerCost * 100),
		FeePerCost:   feePerCost,
		RemovalNames: []types.Hash{removal},
	}
}

func TestPool_AdmitRejectsDuplicateName(t *testing.T) {
	p := newPool(types.Hash{0xAA}, 10)
	it := testItem(1, 1.0, types.Hash{0x01})
	if err := p.admit(it); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if err := p.admit(it); err != ErrAlreadyInPool {
		t.Fatalf("second admit = %v, want ErrAlreadyInPool", err)
	}
}

func TestPool_ConflictRejectsLowerFeePerCost(t *testing.T) {
	p := newPool(types.Hash{0xAA}, 10)
	coin := types.Hash{0x01}
	if err := p.admit(testItem(1, 2.0, coin)); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if err := p.admit(testItem(2, 1.0, coin)); err != ErrConflict {
		t.Fatalf("lower-fee conflict = %v, want ErrConflict", err)
	}
	if p.Count() != 1 {
		t.Fatalf("count = %d, want 1", p.Count())
	}
}

func TestPool_ConflictEvictsLowerFeePerCost(t *testing.T) {
	p := newPool(types.Hash{0xAA}, 10)
	coin := types.Hash{0x01}
	if err := p.admit(testItem(1, 1.0, coin)); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if err := p.admit(testItem(2, 2.0, coin)); err != nil {
		t.Fatalf("higher-fee replacement: %v", err)
	}
	if p.Count() != 1 {
		t.Fatalf("count = %d, want 1", p.Count())
	}
	if !p.Has(types.Hash{2}) {
		t.Fatal("replacement bundle not in pool")
	}
	if p.Has(types.Hash{1}) {
		t.Fatal("evicted bundle still in pool")
	}
}

func TestPool_CapacityEvictsCheapestOnOutpay(t *testing.T) {
	p := newPool(types.Hash{0xAA}, 2)
	if err := p.admit(testItem(1, 1.0, types.Hash{0x01})); err != nil {
		t.Fatalf("admit 1: %v", err)
	}
	if err := p.admit(testItem(2, 2.0, types.Hash{0x02})); err != nil {
		t.Fatalf("admit 2: %v", err)
	}
	if err := p.admit(testItem(3, 3.0, types.Hash{0x03})); err != nil {
		t.Fatalf("admit 3 should evict cheapest: %v", err)
	}
	if p.Count() != 2 {
		t.Fatalf("count = %d, want 2", p.Count())
	}
	if p.Has(types.Hash{1}) {
		t.Fatal("cheapest bundle should have been evicted")
	}
}

func TestPool_CapacityRejectsWhenNotOutpaying(t *testing.T) {
	p := newPool(types.Hash{0xAA}, 2)
	if err := p.admit(testItem(1, 2.0, types.Hash{0x01})); err != nil {
		t.Fatalf("admit 1: %v", err)
	}
	if err := p.admit(testItem(2, 3.0, types.Hash{0x02})); err != nil {
		t.Fatalf("admit 2: %v", err)
	}
	if err := p.admit(testItem(3, 1.0, types.Hash{0x03})); err != ErrPoolFull {
		t.Fatalf("cheap newcomer = %v, want ErrPoolFull", err)
	}
}

func TestPool_ItemsByFeePerCostDescending(t *testing.T) {
	p := newPool(types.Hash{0xAA}, 10)
	p.admit(testItem(1, 1.0, types.Hash{0x01}))
	p.admit(testItem(2, 3.0, types.Hash{0x02}))
	p.admit(testItem(3, 2.0, types.Hash{0x03}))

	items := p.itemsByFeePerCost()
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].FeePerCost < items[i].FeePerCost {
			t.Fatalf("not descending: %v", items)
		}
	}
}

func TestPool_CloneCopiesState(t *testing.T) {
	p := newPool(types.Hash{0xAA}, 10)
	p.admit(testItem(1, 1.0, types.Hash{0x01}))

	np := p.clone(types.Hash{0xBB})
	if np.tipHash != (types.Hash{0xBB}) {
		t.Fatalf("clone tip = %v", np.tipHash)
	}
	if np.Count() != 1 || !np.Has(types.Hash{1}) {
		t.Fatal("clone did not copy items")
	}

	// Mutating the clone must not affect the original.
	np.remove(types.Hash{1})
	if !p.Has(types.Hash{1}) {
		t.Fatal("clone mutation leaked into original pool")
	}
}
