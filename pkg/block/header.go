// Package block defines the header, body and full-block structures that
// make up a candidate block, and the compact HeaderSummary the chain index
// keeps in memory for every known header.
package block

import (
	"encoding/binary"

	"github.com/spacetimechain/consensus-core/pkg/crypto"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// HeaderData is the hashed, signed portion of a header.
type HeaderData struct {
	PrevHeaderHash   types.Hash `json:"prev_header_hash"`
	Timestamp        uint64     `json:"timestamp"`
	FilterHash       types.Hash `json:"filter_hash"` // reserved, checked as a no-op (spec §9)
	ProofOfSpaceHash types.Hash `json:"proof_of_space_hash"`
	BodyHash         types.Hash `json:"body_hash"`
	Height           uint64     `json:"height"`
}

// Hash returns H(header.data), the message the harvester's plot-key
// signature signs.
func (d HeaderData) Hash() types.Hash {
	buf := make([]byte, 0, 32*4+16)
	buf = append(buf, d.PrevHeaderHash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, d.Timestamp)
	buf = append(buf, d.FilterHash[:]...)
	buf = append(buf, d.ProofOfSpaceHash[:]...)
	buf = append(buf, d.BodyHash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, d.Height)
	return crypto.Hash(buf)
}

// Header carries the hashed header data plus the harvester's plot-key
// signature over it (unfinished-validation step 4).
type Header struct {
	Data         HeaderData `json:"data"`
	HarvesterSig []byte     `json:"harvester_signature"`
}

// Hash returns the header hash used to key the header index: H(header.data).
// The harvester signature is deliberately excluded so the hash is stable
// for signing.
func (h Header) Hash() types.Hash {
	return h.Data.Hash()
}
