package block

import (
	"github.com/spacetimechain/consensus-core/pkg/proofs"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// FullBlock is the wire/storage form of a candidate or accepted block.
type FullBlock struct {
	ProofOfSpace *proofs.PoSpaceProof `json:"proof_of_space"`
	ProofOfTime  *proofs.VDFProof     `json:"proof_of_time"`
	Header       *Header              `json:"header"`
	Body         *Body                `json:"body"`
	Challenge    *Challenge           `json:"challenge"`
}

// HeaderHash returns this block's header hash.
func (b *FullBlock) HeaderHash() types.Hash {
	return b.Header.Hash()
}

// IsGenesis reports whether this is the height-0 block.
func (b *FullBlock) IsGenesis() bool {
	return b.Header.Data.Height == 0
}

// HeaderSummary is the compact, in-memory form of a header kept by the
// chain index for every known block (genesis, every tip ancestor, and
// reachable orphans).
type HeaderSummary struct {
	Height           uint64     `json:"height"`
	Weight           uint64     `json:"weight"`
	TotalIters       uint64     `json:"total_iters"`
	PrevHeaderHash   types.Hash `json:"prev_header_hash"`
	HeaderHash       types.Hash `json:"header_hash"`
	Timestamp        uint64     `json:"timestamp"`
	ChallengeDigest  types.Hash `json:"challenge_digest"`
	ProofOfSpaceHash types.Hash `json:"proof_of_space_hash"`
}

// SummaryOf builds the compact index record for an accepted full block.
// b.Challenge.TotalWeight/TotalIters must already hold the cumulative
// totals (prev + this block's difficulty/iterations).
func SummaryOf(b *FullBlock) *HeaderSummary {
	return &HeaderSummary{
		Height:           b.Header.Data.Height,
		Weight:           b.Challenge.TotalWeight,
		TotalIters:       b.Challenge.TotalIters,
		PrevHeaderHash:   b.Header.Data.PrevHeaderHash,
		HeaderHash:       b.HeaderHash(),
		Timestamp:        b.Header.Data.Timestamp,
		ChallengeDigest:  b.Challenge.Hash(),
		ProofOfSpaceHash: b.Header.Data.ProofOfSpaceHash,
	}
}
