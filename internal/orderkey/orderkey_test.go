package orderkey

import "testing"

func TestBetweenUnboundedBothSides(t *testing.T) {
	k := Between(nil, nil)
	if k == "" {
		t.Fatal("expected a non-empty key")
	}
}

func TestBetweenOrdering(t *testing.T) {
	a := Between(nil, nil)
	b := Between(&a, nil)
	if a.Compare(b) >= 0 {
		t.Fatalf("expected a < b, got a=%q b=%q", a, b)
	}

	c := Between(nil, &a)
	if c.Compare(a) >= 0 {
		t.Fatalf("expected c < a, got c=%q a=%q", c, a)
	}
}

func TestBetweenDenseSubdivision(t *testing.T) {
	left := Key("A")
	right := Key("B")
	prev := left
	for i := 0; i < 50; i++ {
		mid := Between(&prev, &right)
		if mid.Compare(prev) <= 0 || mid.Compare(right) >= 0 {
			t.Fatalf("iteration %d: expected %q < %q < %q", i, prev, mid, right)
		}
		prev = mid
	}
}

func TestBetweenRejectsInvertedBounds(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for left >= right")
		}
	}()
	l := Key("Z")
	r := Key("A")
	Between(&l, &r)
}
