package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spacetimechain/consensus-core/pkg/block"
	"github.com/spacetimechain/consensus-core/pkg/proofs"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// Genesis bundles the height-0 full block with the chain identity that
// nodes exchange out of band before they will peer (spec §1: identity and
// peer handshake are external, but the genesis block itself is not).
type Genesis struct {
	ChainID   string           `json:"chain_id"`
	ChainName string           `json:"chain_name"`
	Block     *block.FullBlock `json:"block"`
}

// BuildGenesis assembles the height-0 full block from consensus parameters,
// the pool puzzle hash that receives the genesis coinbase and fees, and a
// harvester/timelord-supplied proof-of-space/proof-of-time pair. Proof
// generation is external to this core (spec §6); callers obtain pos and pot
// from their own harvester and timelord before calling this.
func BuildGenesis(chainID, chainName string, p *Params, poolPuzzleHash types.Hash, pos *proofs.PoSpaceProof, pot *proofs.VDFProof) *Genesis {
	coinbase := types.Coin{PuzzleHash: poolPuzzleHash, Amount: p.CoinbaseAmount(0)}
	feesCoin := types.Coin{PuzzleHash: poolPuzzleHash, Amount: p.FeeBase(0)}
	body := &block.Body{Coinbase: coinbase, FeesCoin: feesCoin}

	posHash := proofs.HashProofOfSpace(pos)
	challenge := &block.Challenge{
		ProofOfSpaceHash: posHash,
		ProofOfTimeHash:  proofs.HashProofOfTime(pot),
		TotalWeight:      p.DifficultyStarting,
		TotalIters:       pot.NumIterations,
	}
	header := &block.Header{Data: block.HeaderData{
		Timestamp:        p.GenesisTimestamp,
		ProofOfSpaceHash: posHash,
		BodyHash:         body.Hash(),
		Height:           0,
	}}

	fb := &block.FullBlock{
		ProofOfSpace: pos,
		ProofOfTime:  pot,
		Header:       header,
		Body:         body,
		Challenge:    challenge,
	}
	return &Genesis{ChainID: chainID, ChainName: chainName, Block: fb}
}

// LoadGenesis reads a genesis file from disk.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read genesis: %w", err)
	}
	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("config: parse genesis: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid genesis: %w", err)
	}
	return &g, nil
}

// Save writes the genesis file to disk as indented JSON.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal genesis: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write genesis: %w", err)
	}
	return nil
}

// Validate checks internal consistency of a loaded genesis block.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("config: genesis missing chain_id")
	}
	if g.Block == nil {
		return fmt.Errorf("config: genesis missing block")
	}
	if !g.Block.IsGenesis() {
		return fmt.Errorf("config: genesis block height must be 0, got %d", g.Block.Header.Data.Height)
	}
	if g.Block.Header.Data.BodyHash != g.Block.Body.Hash() {
		return fmt.Errorf("config: genesis body hash mismatch")
	}
	if g.Block.Header.Data.ProofOfSpaceHash != proofs.HashProofOfSpace(g.Block.ProofOfSpace) {
		return fmt.Errorf("config: genesis proof-of-space hash mismatch")
	}
	return nil
}
