package meta

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestNewAndClone(t *testing.T) {
	m := New(map[string]string{"bank": "bbva", "card": "gold"})
	if len(m) != 2 || m["bank"] != "bbva" {
		t.Fatalf("unexpected map: %+v", m)
	}
	c := m.Clone()
	c["bank"] = "santander"
	if m["bank"] != "bbva" {
		t.Fatalf("clone aliases original")
	}
	if got := New(nil); got == nil || len(got) != 0 {
		t.Fatalf("New(nil) = %v, want empty", got)
	}
}

func TestValidateLimits(t *testing.T) {
	pairs := make(map[string]string)
	for i := 0; i <= MaxPairs; i++ {
		pairs[fmt.Sprintf("k%d", i)] = "v"
	}
	if err := New(pairs).Validate(); err == nil {
		t.Fatalf("expected error for too many pairs")
	}
	if err := New(map[string]string{strings.Repeat("k", MaxKeyLen+1): "v"}).Validate(); err == nil {
		t.Fatalf("expected error for long key")
	}
	if err := New(map[string]string{"": "v"}).Validate(); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if err := New(map[string]string{"k": strings.Repeat("v", MaxValLen+1)}).Validate(); err == nil {
		t.Fatalf("expected error for long value")
	}
	if err := New(map[string]string{"k": "v"}).Validate(); err != nil {
		t.Fatalf("valid metadata rejected: %v", err)
	}
}

func TestStableJSONRoundtrip(t *testing.T) {
	m := New(map[string]string{"b": "2", "a": "1"})
	b, err := m.MarshalStableJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":"1","b":"2"}` {
		t.Fatalf("unexpected stable json: %s", b)
	}
	var back Metadata
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["a"] != "1" || back["b"] != "2" {
		t.Fatalf("roundtrip lost data: %+v", back)
	}
	var fromNull Metadata
	if err := json.Unmarshal([]byte("null"), &fromNull); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if fromNull == nil || len(fromNull) != 0 {
		t.Fatalf("null should decode to empty metadata")
	}
}
