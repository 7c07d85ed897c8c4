package block

import "testing"

func TestHeaderData_HashDeterministic(t *testing.T) {
	d := HeaderData{Height: 3, Timestamp: 100}
	if d.Hash() != d.Hash() {
		t.Error("HeaderData.Hash() must be deterministic")
	}
}

func TestHeaderData_HashDiffersOnHeight(t *testing.T) {
	d1 := HeaderData{Height: 1}
	d2 := HeaderData{Height: 2}
	if d1.Hash() == d2.Hash() {
		t.Error("different heights should hash differently")
	}
}

func TestHeader_HashIgnoresSignature(t *testing.T) {
	d := HeaderData{Height: 5}
	h1 := Header{Data: d, HarvesterSig: []byte("sig-a")}
	h2 := Header{Data: d, HarvesterSig: []byte("sig-b")}
	if h1.Hash() != h2.Hash() {
		t.Error("Header.Hash() must not depend on HarvesterSig")
	}
}
