package types

import "testing"

func TestCoin_IsZero(t *testing.T) {
	var c Coin
	if !c.IsZero() {
		t.Error("zero-value Coin should be zero")
	}
	c.Amount = 1
	if c.IsZero() {
		t.Error("coin with nonzero amount should not be zero")
	}
}
