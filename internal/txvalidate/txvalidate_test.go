package txvalidate

import (
	"encoding/binary"
	"testing"

	"github.com/spacetimechain/consensus-core/pkg/crypto"
	"github.com/spacetimechain/consensus-core/pkg/proofs"
	"github.com/spacetimechain/consensus-core/pkg/tx"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// fakeInterpreter returns a fixed NPC list regardless of the bundle,
// letting tests exercise the bookkeeping around GetNamePuzzleConditions
// without modelling a real puzzle VM.
type fakeInterpreter struct {
	npcs []tx.NPC
	cost uint64
	err  error
}

func (f fakeInterpreter) GetNamePuzzleConditions(sb *tx.SpendBundle) ([]tx.NPC, uint64, error) {
	return f.npcs, f.cost, f.err
}

type fakeLookup struct {
	records map[types.Hash]types.Unspent
}

func (f fakeLookup) GetUnspent(name types.Hash, tip types.Hash) (*types.Unspent, bool, error) {
	u, ok := f.records[name]
	if !ok {
		return nil, false, nil
	}
	return &u, true, nil
}

type fakeAgg struct{ ok bool }

func (f fakeAgg) Verify(pairs []proofs.AggSigPair, sig []byte) bool { return f.ok }

func amountBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func TestValidate_SimpleSpendProducesFee(t *testing.T) {
	spentCoin := types.Coin{PuzzleHash: types.Hash{1}, Amount: 100}
	sb := &tx.SpendBundle{CoinSpends: []tx.CoinSpend{{Coin: spentCoin}}}
	npc := tx.NPC{
		CoinName:   crypto.CoinName(spentCoin),
		PuzzleHash: spentCoin.PuzzleHash,
		Conditions: []tx.Condition{
			{Opcode: tx.OpCreateCoin, Args: [][]byte{types.Hash{2}.Bytes(), amountBytes(60)}},
		},
	}
	interp := fakeInterpreter{npcs: []tx.NPC{npc}, cost: 100}
	lookup := fakeLookup{records: map[types.Hash]types.Unspent{
		crypto.CoinName(spentCoin): {Coin: spentCoin, ConfirmedIndex: 1},
	}}
	p := Params{MaxCoinAmount: types.MaxCoinAmount, BlockCostMax: 6000}

	res, err := Validate(sb, 5, types.Hash{}, nil, lookup, interp, fakeAgg{ok: true}, p)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Fees != 40 {
		t.Errorf("fees = %d, want 40", res.Fees)
	}
	if len(res.Additions) != 1 {
		t.Errorf("additions = %d, want 1", len(res.Additions))
	}
}

func TestValidate_UnknownCoinRejected(t *testing.T) {
	spentCoin := types.Coin{PuzzleHash: types.Hash{1}, Amount: 100}
	sb := &tx.SpendBundle{CoinSpends: []tx.CoinSpend{{Coin: spentCoin}}}
	npc := tx.NPC{CoinName: crypto.CoinName(spentCoin), PuzzleHash: spentCoin.PuzzleHash}
	interp := fakeInterpreter{npcs: []tx.NPC{npc}, cost: 10}
	lookup := fakeLookup{records: map[types.Hash]types.Unspent{}}
	p := Params{MaxCoinAmount: types.MaxCoinAmount, BlockCostMax: 6000}

	_, err := Validate(sb, 5, types.Hash{}, nil, lookup, interp, fakeAgg{ok: true}, p)
	if err == nil {
		t.Fatal("expected error for unknown coin")
	}
}

func TestValidate_CoinbaseFreezeEnforced(t *testing.T) {
	spentCoin := types.Coin{PuzzleHash: types.Hash{1}, Amount: 100}
	sb := &tx.SpendBundle{CoinSpends: []tx.CoinSpend{{Coin: spentCoin}}}
	npc := tx.NPC{CoinName: crypto.CoinName(spentCoin), PuzzleHash: spentCoin.PuzzleHash}
	interp := fakeInterpreter{npcs: []tx.NPC{npc}, cost: 10}
	lookup := fakeLookup{records: map[types.Hash]types.Unspent{
		crypto.CoinName(spentCoin): {Coin: spentCoin, ConfirmedIndex: 5, Coinbase: true},
	}}
	p := Params{MaxCoinAmount: types.MaxCoinAmount, BlockCostMax: 6000, CoinbaseFreezePeriod: 200}

	_, err := Validate(sb, 6, types.Hash{}, nil, lookup, interp, fakeAgg{ok: true}, p)
	if err == nil {
		t.Fatal("expected coinbase-not-matured error")
	}
}
