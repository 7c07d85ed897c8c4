package validate

import (
	"testing"

	"github.com/spacetimechain/consensus-core/config"
	"github.com/spacetimechain/consensus-core/internal/chainerr"
	"github.com/spacetimechain/consensus-core/pkg/block"
	"github.com/spacetimechain/consensus-core/pkg/crypto"
	"github.com/spacetimechain/consensus-core/pkg/proofs"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// fakeIndex is a minimal single-block ChainIndex fixture: just enough to
// validate a block extending a known genesis.
type fakeIndex struct {
	genesis *block.HeaderSummary
	byHash  map[types.Hash]*block.HeaderSummary
}

func newFakeIndex(genesis *block.HeaderSummary) *fakeIndex {
	return &fakeIndex{genesis: genesis, byHash: map[types.Hash]*block.HeaderSummary{genesis.HeaderHash: genesis}}
}

func (f *fakeIndex) Summary(h types.Hash) (*block.HeaderSummary, bool) {
	s, ok := f.byHash[h]
	return s, ok
}

func (f *fakeIndex) AncestorAt(tip types.Hash, height uint64) (types.Hash, bool) {
	if height == 0 {
		return f.genesis.HeaderHash, true
	}
	return types.Hash{}, false
}

func (f *fakeIndex) GenesisSummary() *block.HeaderSummary {
	return f.genesis
}

// alwaysOK is a PoSpaceVerifier/VDFVerifier stub that always succeeds,
// standing in for the harvester/timelord-supplied verifiers this package
// never implements (spec §6).
type alwaysOK struct{ quality types.Hash }

func (a alwaysOK) VerifyAndGetQuality(challengeHash types.Hash, proof *proofs.PoSpaceProof) (types.Hash, bool) {
	return a.quality, true
}

func (a alwaysOK) Verify(discriminantSizeBits uint32, proof *proofs.VDFProof) bool { return true }

func testParams() *config.Params {
	return &config.Params{
		DifficultyStarting:   5,
		DifficultyEpoch:      12,
		DifficultyDelay:      3,
		DifficultyWarpFactor: 4,
		DifficultyFactor:     3,
		BlockTimeTarget:      10,
		MinBlockTime:         5,
		VDFIPSStarting:       100,
		IPSFactor:            3,
		DiscriminantSizeBits: 1024,
		NumberOfTimestamps:   3,
		MaxFutureTime:        3600,
		CoinbaseFreezePeriod: 200,
		MaxCoinAmount:        types.MaxCoinAmount,
		BlockCostMax:         11_000_000,
	}
}

func fillHash(b byte) types.Hash {
	var h types.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

// buildGenesis constructs a height-0 full block, signed with freshly
// generated pool and plot keys, and its HeaderSummary.
func buildGenesis(p *config.Params, quality types.Hash) (*block.FullBlock, *block.HeaderSummary) {
	poolKey, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	plotKey, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}

	pos := &proofs.PoSpaceProof{ChallengeHash: fillHash(0x11), PoolPublicKey: poolKey.PublicKey(), PlotPublicKey: plotKey.PublicKey(), Size: 32, Proof: []byte("proof")}
	coinbase := types.Coin{PuzzleHash: fillHash(0x22), Amount: p.CoinbaseAmount(0)}
	coinbaseName := crypto.CoinName(coinbase)
	coinbaseSig, err := poolKey.Sign(coinbaseName.Bytes())
	if err != nil {
		panic(err)
	}
	body := &block.Body{
		Coinbase:          coinbase,
		CoinbaseSignature: coinbaseSig,
		FeesCoin:          types.Coin{PuzzleHash: fillHash(0x22), Amount: p.FeeBase(0)},
	}
	headerData := block.HeaderData{
		Timestamp:        1000,
		ProofOfSpaceHash: proofs.HashProofOfSpace(pos),
		BodyHash:         body.Hash(),
		Height:           0,
	}
	harvesterSig, err := plotKey.Sign(headerData.Hash().Bytes())
	if err != nil {
		panic(err)
	}
	header := &block.Header{Data: headerData, HarvesterSig: harvesterSig}

	numIters := DeriveIterations(quality, pos.Size, p.DifficultyStarting, p.VDFIPSStarting, p.MinBlockTime)
	pot := &proofs.VDFProof{ChallengeHash: pos.ChallengeHash, A: []byte("a"), B: []byte("b"), NumIterations: numIters}
	challenge := &block.Challenge{
		ProofOfSpaceHash: header.Data.ProofOfSpaceHash,
		ProofOfTimeHash:  proofs.HashProofOfTime(pot),
		TotalWeight:      p.DifficultyStarting,
		TotalIters:       numIters,
	}
	fb := &block.FullBlock{ProofOfSpace: pos, ProofOfTime: pot, Header: header, Body: body, Challenge: challenge}
	return fb, block.SummaryOf(fb)
}

// buildChild constructs a signed, non-genesis block extending parent at
// the given height (which tests may deliberately set wrong to exercise
// height-continuity checking).
func buildChild(p *config.Params, parent *block.FullBlock, parentSummary *block.HeaderSummary, quality types.Hash, height uint64) *block.FullBlock {
	poolKey, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	plotKey, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}

	pos := &proofs.PoSpaceProof{ChallengeHash: parentSummary.ChallengeDigest, PoolPublicKey: poolKey.PublicKey(), PlotPublicKey: plotKey.PublicKey(), Size: 32, Proof: []byte("proof")}
	coinbase := types.Coin{PuzzleHash: fillHash(0x22), Amount: p.CoinbaseAmount(height)}
	coinbaseSig, err := poolKey.Sign(crypto.CoinName(coinbase).Bytes())
	if err != nil {
		panic(err)
	}
	body := &block.Body{
		Coinbase:          coinbase,
		CoinbaseSignature: coinbaseSig,
		FeesCoin:          types.Coin{PuzzleHash: fillHash(0x22), Amount: p.FeeBase(height)},
	}
	headerData := block.HeaderData{
		PrevHeaderHash:   parentSummary.HeaderHash,
		Timestamp:        parent.Header.Data.Timestamp + p.BlockTimeTarget,
		ProofOfSpaceHash: proofs.HashProofOfSpace(pos),
		BodyHash:         body.Hash(),
		Height:           height,
	}
	harvesterSig, err := plotKey.Sign(headerData.Hash().Bytes())
	if err != nil {
		panic(err)
	}
	header := &block.Header{Data: headerData, HarvesterSig: harvesterSig}

	numIters := DeriveIterations(quality, pos.Size, p.DifficultyStarting, p.VDFIPSStarting, p.MinBlockTime)
	pot := &proofs.VDFProof{ChallengeHash: pos.ChallengeHash, A: []byte("a"), B: []byte("b"), NumIterations: numIters}
	challenge := &block.Challenge{
		ProofOfSpaceHash: header.Data.ProofOfSpaceHash,
		ProofOfTimeHash:  proofs.HashProofOfTime(pot),
		TotalWeight:      parentSummary.Weight + p.DifficultyStarting,
		TotalIters:       parentSummary.TotalIters + numIters,
	}
	return &block.FullBlock{ProofOfSpace: pos, ProofOfTime: pot, Header: header, Body: body, Challenge: challenge}
}

func TestValidateBlock_GenesisAccepted(t *testing.T) {
	p := testParams()
	quality := fillHash(0x33)
	genesis, genesisSummary := buildGenesis(p, quality)
	idx := newFakeIndex(genesisSummary)
	pos, vdf := alwaysOK{quality: quality}, alwaysOK{}

	pre := PreValidate(genesis, p, pos, vdf)
	res, err := ValidateBlock(idx, p, genesis, 2000, &pre, nil)
	if err != nil {
		t.Fatalf("ValidateBlock: %v", err)
	}
	if res.Difficulty != p.DifficultyStarting {
		t.Errorf("difficulty = %d, want %d", res.Difficulty, p.DifficultyStarting)
	}
}

func TestValidateBlock_RejectsBadHeight(t *testing.T) {
	p := testParams()
	quality := fillHash(0x33)
	genesis, genesisSummary := buildGenesis(p, quality)
	idx := newFakeIndex(genesisSummary)
	pos, vdf := alwaysOK{quality: quality}, alwaysOK{}

	child := buildChild(p, genesis, genesisSummary, quality, 5) // should be 1
	pre := PreValidate(child, p, pos, vdf)
	_, err := ValidateBlock(idx, p, child, 2000, &pre, nil)
	if err == nil {
		t.Fatal("expected bad-height error")
	}
	ce, ok := err.(*chainerr.Error)
	if !ok || ce.Code != chainerr.CodeBadHeight {
		t.Errorf("err = %v, want CodeBadHeight", err)
	}
}

func TestValidateBlock_RequiresPreValidation(t *testing.T) {
	p := testParams()
	genesis, genesisSummary := buildGenesis(p, fillHash(0x33))
	idx := newFakeIndex(genesisSummary)

	if _, err := ValidateBlock(idx, p, genesis, 2000, nil, nil); err == nil {
		t.Fatal("expected error when PreValidationResult is nil")
	}
}

func TestValidateBlock_RejectsBadProofOfSpaceHash(t *testing.T) {
	p := testParams()
	quality := fillHash(0x33)
	genesis, genesisSummary := buildGenesis(p, quality)
	idx := newFakeIndex(genesisSummary)
	pos, vdf := alwaysOK{quality: quality}, alwaysOK{}

	genesis.Header.Data.ProofOfSpaceHash = fillHash(0xff)
	pre := PreValidate(genesis, p, pos, vdf)
	_, err := ValidateBlock(idx, p, genesis, 2000, &pre, nil)
	if err == nil {
		t.Fatal("expected bad-proof-of-space error")
	}
}

func TestPreValidateBatch_PreservesOrder(t *testing.T) {
	p := testParams()
	quality := fillHash(0x33)
	pos, vdf := alwaysOK{quality: quality}, alwaysOK{}

	blocks := make([]*block.FullBlock, 5)
	for i := range blocks {
		fb, _ := buildGenesis(p, quality)
		blocks[i] = fb
	}
	results := PreValidateBatch(blocks, p, pos, vdf)
	if len(results) != len(blocks) {
		t.Fatalf("results = %d, want %d", len(results), len(blocks))
	}
	for i, r := range results {
		if !r.ProofOfSpaceHashOK || !r.QualityOK || !r.ProofOfTimeOK {
			t.Errorf("block %d: pre-validation result = %+v, want all ok", i, r)
		}
	}
}

func TestDeriveIterations_Deterministic(t *testing.T) {
	q := fillHash(0x10)
	a := DeriveIterations(q, 32, 100, 50, 5)
	b := DeriveIterations(q, 32, 100, 50, 5)
	if a != b {
		t.Errorf("DeriveIterations not deterministic: %d != %d", a, b)
	}
	if a < 5*50 {
		t.Errorf("iters %d below min_block_time*ips floor %d", a, 5*50)
	}
}

func TestDeriveIterations_LargerSizeReducesIters(t *testing.T) {
	q := fillHash(0x40)
	small := DeriveIterations(q, 25, 10_000, 100, 1)
	large := DeriveIterations(q, 50, 10_000, 100, 1)
	if large > small {
		t.Errorf("larger plot size should not require more iterations: size25=%d size50=%d", small, large)
	}
}

func TestValidateBlock_RejectsWrongPoolSignature(t *testing.T) {
	p := testParams()
	quality := fillHash(0x33)
	genesis, genesisSummary := buildGenesis(p, quality)
	idx := newFakeIndex(genesisSummary)
	pos, vdf := alwaysOK{quality: quality}, alwaysOK{}

	otherKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := otherKey.Sign(crypto.CoinName(genesis.Body.Coinbase).Bytes())
	if err != nil {
		t.Fatal(err)
	}
	genesis.Body.CoinbaseSignature = sig // signed by the wrong key

	pre := PreValidate(genesis, p, pos, vdf)
	_, err = ValidateBlock(idx, p, genesis, 2000, &pre, nil)
	if err == nil {
		t.Fatal("expected bad-pool-signature error")
	}
	ce, ok := err.(*chainerr.Error)
	if !ok || ce.Code != chainerr.CodeBadPoolSignature {
		t.Errorf("err = %v, want CodeBadPoolSignature", err)
	}
}
