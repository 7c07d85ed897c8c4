package tx

import (
	"testing"

	"github.com/spacetimechain/consensus-core/pkg/types"
)

func TestSpendBundle_NameIgnoresSignature(t *testing.T) {
	sb1 := SpendBundle{
		CoinSpends:          []CoinSpend{{Coin: types.Coin{Amount: 10}, PuzzleReveal: []byte("p"), Solution: []byte("s")}},
		AggregatedSignature: []byte("sig-a"),
	}
	sb2 := sb1
	sb2.AggregatedSignature = []byte("sig-b")

	if sb1.Name() != sb2.Name() {
		t.Error("Name() must not depend on AggregatedSignature")
	}
}

func TestSpendBundle_RemovalNames(t *testing.T) {
	sb := SpendBundle{CoinSpends: []CoinSpend{
		{Coin: types.Coin{Amount: 1}},
		{Coin: types.Coin{Amount: 2}},
	}}
	names := sb.RemovalNames()
	if len(names) != 2 {
		t.Fatalf("got %d names, want 2", len(names))
	}
	if names[0] == names[1] {
		t.Error("distinct coins should have distinct names")
	}
}

func TestMerge(t *testing.T) {
	a := SpendBundle{CoinSpends: []CoinSpend{{Coin: types.Coin{Amount: 1}}}}
	b := SpendBundle{CoinSpends: []CoinSpend{{Coin: types.Coin{Amount: 2}}}}
	merged := Merge(a, b)
	if len(merged.CoinSpends) != 2 {
		t.Fatalf("got %d coin spends, want 2", len(merged.CoinSpends))
	}
}
