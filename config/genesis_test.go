package config

import (
	"path/filepath"
	"testing"

	"github.com/spacetimechain/consensus-core/pkg/proofs"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

func fillHash(b byte) types.Hash {
	var h types.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func testProofs() (*proofs.PoSpaceProof, *proofs.VDFProof) {
	pos := &proofs.PoSpaceProof{
		ChallengeHash: fillHash(0x11),
		PoolPublicKey: []byte("pool-key"),
		PlotPublicKey: []byte("plot-key"),
		Size:          32,
		Proof:         []byte("proof-bytes"),
	}
	pot := &proofs.VDFProof{
		ChallengeHash: fillHash(0x11),
		A:             []byte("a"),
		B:             []byte("b"),
		NumIterations: 100,
		Witness:       []byte("witness"),
	}
	return pos, pot
}

func TestBuildGenesis_IsHeightZero(t *testing.T) {
	p := DefaultTestnetParams()
	pos, pot := testProofs()
	g := BuildGenesis("testnet-1", "spacetime-testnet", p, fillHash(0x22), pos, pot)
	if !g.Block.IsGenesis() {
		t.Error("built genesis must be height 0")
	}
	if g.Block.Challenge.TotalWeight != p.DifficultyStarting {
		t.Errorf("genesis total weight = %d, want %d", g.Block.Challenge.TotalWeight, p.DifficultyStarting)
	}
}

func TestBuildGenesis_Validate(t *testing.T) {
	p := DefaultMainnetParams()
	pos, pot := testProofs()
	g := BuildGenesis("mainnet-1", "spacetime-mainnet", p, fillHash(0x22), pos, pot)
	if err := g.Validate(); err != nil {
		t.Errorf("built genesis should validate: %v", err)
	}
}

func TestGenesis_SaveLoadRoundTrip(t *testing.T) {
	p := DefaultTestnetParams()
	pos, pot := testProofs()
	g := BuildGenesis("testnet-1", "spacetime-testnet", p, fillHash(0x22), pos, pot)

	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := g.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("LoadGenesis: %v", err)
	}
	if loaded.ChainID != g.ChainID {
		t.Errorf("chain_id = %q, want %q", loaded.ChainID, g.ChainID)
	}
	if loaded.Block.HeaderHash() != g.Block.HeaderHash() {
		t.Error("round-tripped block header hash mismatch")
	}
}

func TestGenesis_Validate_RejectsNonGenesisHeight(t *testing.T) {
	p := DefaultTestnetParams()
	pos, pot := testProofs()
	g := BuildGenesis("testnet-1", "spacetime-testnet", p, fillHash(0x22), pos, pot)
	g.Block.Header.Data.Height = 1
	if err := g.Validate(); err == nil {
		t.Error("genesis at height 1 should fail validation")
	}
}

func TestValidateParams_RejectsZeroEpoch(t *testing.T) {
	p := DefaultTestnetParams()
	p.DifficultyEpoch = 0
	if err := ValidateParams(p); err == nil {
		t.Error("zero difficulty_epoch should fail validation")
	}
}
