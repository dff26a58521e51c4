package commitment

import "testing"

func TestCanonicalizeJSONSortsKeys(t *testing.T) {
	got, err := CanonicalizeJSON([]byte(`{"b":1,"a":2}`))
	if err != nil {
		t.Fatalf("CanonicalizeJSON: %v", err)
	}
	if string(got) != `{"a":2,"b":1}` {
		t.Errorf("CanonicalizeJSON = %s, want sorted keys", got)
	}
}

func TestHashCanonicalIsOrderIndependent(t *testing.T) {
	a, err := HashCanonical(map[string]interface{}{"home": "T-Mobile:DE", "visited": "Orange:FR"})
	if err != nil {
		t.Fatalf("HashCanonical: %v", err)
	}
	b, err := HashCanonical(map[string]interface{}{"visited": "Orange:FR", "home": "T-Mobile:DE"})
	if err != nil {
		t.Fatalf("HashCanonical: %v", err)
	}
	if a != b {
		t.Errorf("HashCanonical not order-independent: %s != %s", a, b)
	}
	if len(a) != len("0x")+64 {
		t.Errorf("HashCanonical length = %d, want %d", len(a), len("0x")+64)
	}
}

func TestHashBytesHasHexPrefix(t *testing.T) {
	got := HashBytes([]byte("batch-id"))
	if got[:2] != "0x" {
		t.Errorf("HashBytes = %q, want 0x prefix", got)
	}
}

func TestSHA256HexMatchesHashBytes(t *testing.T) {
	data := []byte("some settlement payload")
	if SHA256Hex(data) != HashBytes(data) {
		t.Error("SHA256Hex should be an alias for HashBytes")
	}
}

func TestHashConcatOrderMatters(t *testing.T) {
	a := HashConcat([]byte("a"), []byte("b"))
	b := HashConcat([]byte("b"), []byte("a"))
	if string(a) == string(b) {
		t.Error("HashConcat should be order-sensitive")
	}
}
