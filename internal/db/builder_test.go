package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_BuildsHashIndex(t *testing.T) {
	def, err := NewIndex("idx").
		Prefix("p:").
		Text("__content").
		Tag("id").
		Numeric("chunk_index").
		VectorHNSW("__vector", "vector", 8, DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if def.StorageType != StorageHash {
		t.Errorf("expected HASH storage, got %s", def.StorageType)
	}
	if len(def.Fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(def.Fields))
	}

	vec := def.Fields[3]
	if vec.Name != "__vector" || vec.Alias != "vector" {
		t.Errorf("vector field %q alias %q, want __vector aliased as vector", vec.Name, vec.Alias)
	}
	if vec.VectorAlgo != VectorHNSW || vec.VectorDim != 8 {
		t.Errorf("unexpected vector params: %+v", vec)
	}

	if s := def.String(); !strings.Contains(s, "__vector AS vector VECTOR HNSW") {
		t.Errorf("alias not rendered: %s", s)
	}
}

func TestIndexBuilder_RejectsDuplicateAttribute(t *testing.T) {
	_, err := NewIndex("idx").
		Tag("id").
		VectorHNSW("__vector", "id", 8, DistanceCosine, 16, 200).
		Build()
	if err == nil {
		t.Fatal("expected duplicate attribute error")
	}
}
