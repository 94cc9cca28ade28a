package model

import "testing"

func TestSortPair(t *testing.T) {
	if lo, hi := SortPair(7, 3); lo != 3 || hi != 7 {
		t.Fatalf("got %d,%d", lo, hi)
	}
	if lo, hi := SortPair(3, 7); lo != 3 || hi != 7 {
		t.Fatalf("got %d,%d", lo, hi)
	}
}

func TestChatHasOther(t *testing.T) {
	c := &Chat{UserLo: 3, UserHi: 7}
	if !c.Has(3) || !c.Has(7) || c.Has(5) {
		t.Fatal("Has")
	}
	if c.Other(3) != 7 || c.Other(7) != 3 {
		t.Fatal("Other")
	}
}

func TestStatusTerminal(t *testing.T) {
	if RequestPending.Terminal() {
		t.Fatal("pending is not terminal")
	}
	if !RequestAccepted.Terminal() || !RequestRejected.Terminal() {
		t.Fatal("accepted/rejected are terminal")
	}
}
