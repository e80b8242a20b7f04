package xid

import (
	"strings"
	"testing"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := New("ord")
		if !strings.HasPrefix(id, "ord-") {
			t.Fatalf("expected ord- prefix, got %s", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestReferenceShape(t *testing.T) {
	ref := Reference("PAY")
	if len(ref) != len("PAY-")+10 {
		t.Fatalf("unexpected reference length: %s", ref)
	}
	if strings.ToUpper(ref) != ref {
		t.Fatalf("reference must be upper-case: %s", ref)
	}
}
