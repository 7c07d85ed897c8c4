// Package crypto provides cryptographic primitives for the consensus core:
// BLAKE3 hashing and secp256k1/Schnorr signing.
package crypto

import (
	"encoding/binary"

	"github.com/spacetimechain/consensus-core/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// DoubleHash computes Hash(Hash(data)).
func DoubleHash(data []byte) types.Hash {
	first := Hash(data)
	return Hash(first[:])
}

// CoinName derives a coin's identity: H(parent_coin_id ‖ puzzle_hash ‖ amount).
func CoinName(c types.Coin) types.Hash {
	buf := make([]byte, 0, types.HashSize*2+8)
	buf = append(buf, c.ParentCoinID[:]...)
	buf = append(buf, c.PuzzleHash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, c.Amount)
	return Hash(buf)
}

// HashConcat hashes the concatenation of two hashes.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Hash(buf[:])
}
