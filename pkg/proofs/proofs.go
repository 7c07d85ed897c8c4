// Package proofs declares the external cryptographic collaborators the
// consensus core consumes but never implements: proof-of-space quality
// extraction, VDF (proof-of-time) verification, BLS aggregate-signature
// verification, and the puzzle/condition interpreter. Each is a pure
// interface (spec §6); concrete implementations live outside this module
// (harvester, timelord, and BLS libraries respectively).
package proofs

import (
	"encoding/binary"

	"github.com/spacetimechain/consensus-core/pkg/crypto"
	"github.com/spacetimechain/consensus-core/pkg/tx"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// PoSpaceProof is a harvester's answer to a challenge.
type PoSpaceProof struct {
	ChallengeHash  types.Hash `json:"challenge_hash"`
	PoolPublicKey  []byte     `json:"pool_public_key"`
	PlotPublicKey  []byte     `json:"plot_public_key"`
	Size           uint8      `json:"size"` // k-size of the plot
	Proof          []byte     `json:"proof"`
}

// PoSpaceVerifier checks a proof of space and extracts its quality.
type PoSpaceVerifier interface {
	// VerifyAndGetQuality checks proof against challengeHash and, on
	// success, returns the 32-byte quality string used to derive the
	// block's required number of VDF iterations.
	VerifyAndGetQuality(challengeHash types.Hash, proof *PoSpaceProof) (quality types.Hash, ok bool)
}

// VDFProof is a timelord's sequential-squaring witness.
type VDFProof struct {
	ChallengeHash    types.Hash `json:"challenge_hash"`
	A                []byte     `json:"a"` // class group element (a, b)
	B                []byte     `json:"b"`
	NumIterations    uint64     `json:"number_of_iterations"`
	Witness          []byte     `json:"witness"`
	WitnessType      uint8      `json:"witness_type"`
}

// VDFVerifier checks a Wesolowski-style VDF proof.
type VDFVerifier interface {
	// Verify checks proof in a class group of the given discriminant size.
	Verify(discriminantSizeBits uint32, proof *VDFProof) bool
}

// AggSigPair is one (public key, message) pair an aggregate signature must
// cover, collected from AGGSIG_ME conditions across a block or bundle.
type AggSigPair struct {
	PublicKey []byte
	Message   []byte
}

// Aggregator verifies a BLS aggregate signature against the full set of
// (pubkey, message) pairs it is claimed to cover.
type Aggregator interface {
	Verify(pairs []AggSigPair, aggregateSignature []byte) bool
}

// ConditionInterpreter evaluates a spend bundle's puzzles against their
// solutions, producing one NPC record per coin spend plus a cost.
type ConditionInterpreter interface {
	GetNamePuzzleConditions(sb *tx.SpendBundle) ([]tx.NPC, uint64, error)
}

// HashProofOfSpace is the canonical H(proof_of_space) used by both genesis
// construction and unfinished-block validation step 1 (spec §4.3): every
// field of the proof is covered so a harvester cannot change the pool or
// plot key without changing the hash the header commits to.
func HashProofOfSpace(p *PoSpaceProof) types.Hash {
	buf := make([]byte, 0, 32+len(p.PoolPublicKey)+len(p.PlotPublicKey)+1+len(p.Proof))
	buf = append(buf, p.ChallengeHash.Bytes()...)
	buf = append(buf, p.PoolPublicKey...)
	buf = append(buf, p.PlotPublicKey...)
	buf = append(buf, p.Size)
	buf = append(buf, p.Proof...)
	return crypto.Hash(buf)
}

// HashProofOfTime is the canonical H(proof_of_time) covering the class
// group output and iteration count, used to seed the next challenge.
func HashProofOfTime(p *VDFProof) types.Hash {
	buf := make([]byte, 0, 32+len(p.A)+len(p.B)+8)
	buf = append(buf, p.ChallengeHash.Bytes()...)
	buf = append(buf, p.A...)
	buf = append(buf, p.B...)
	buf = binary.BigEndian.AppendUint64(buf, p.NumIterations)
	return crypto.Hash(buf)
}
