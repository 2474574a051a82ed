package proofstub

import "testing"

func TestCircuitCacheReusesCompiledShape(t *testing.T) {
	cc := NewCircuitCache()

	first, err := cc.get(2, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := cc.get(2, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same compiled shape to be reused for an identical arity")
	}
}

func TestCircuitCacheDistinguishesArity(t *testing.T) {
	cc := NewCircuitCache()

	oneOne, err := cc.get(1, 1)
	if err != nil {
		t.Fatalf("get(1,1): %v", err)
	}
	twoOne, err := cc.get(2, 1)
	if err != nil {
		t.Fatalf("get(2,1): %v", err)
	}
	if oneOne == twoOne {
		t.Fatalf("expected distinct compiled shapes for different spend counts")
	}
}
