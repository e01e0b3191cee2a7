package store

import (
	"reflect"
	"testing"
	"time"
)

func TestCloneIdentityForPrimitives(t *testing.T) {
	cases := []any{nil, 42, "hello", 3.14, true}
	for _, c := range cases {
		if got := Clone(c); !reflect.DeepEqual(got, c) {
			t.Errorf("Clone(%v) = %v, want identity", c, got)
		}
	}
}

func TestCloneDeepIndependence(t *testing.T) {
	src := State{
		"user": map[string]any{
			"name": "ada",
			"tags": []any{"admin", "ops"},
		},
		"count": 2,
	}

	got, ok := Clone(src).(State)
	if !ok {
		t.Fatalf("Clone returned %T, want State", Clone(src))
	}
	if !reflect.DeepEqual(got, src) {
		t.Fatalf("clone not structurally equal: %v vs %v", got, src)
	}

	// Mutating the clone must not touch the source.
	got["user"].(map[string]any)["name"] = "grace"
	got["user"].(map[string]any)["tags"].([]any)[0] = "guest"
	if src["user"].(map[string]any)["name"] != "ada" {
		t.Error("nested map mutation leaked into source")
	}
	if src["user"].(map[string]any)["tags"].([]any)[0] != "admin" {
		t.Error("nested slice mutation leaked into source")
	}
}

func TestCloneOpaqueValuesByReference(t *testing.T) {
	now := time.Now()
	ch := make(chan int)
	src := State{"at": now, "ch": ch}

	got := Clone(src).(State)
	if !got["at"].(time.Time).Equal(now) {
		t.Error("time value changed")
	}
	if got["ch"] != any(ch) {
		t.Error("opaque value not returned by reference")
	}
}

func TestCloneInto(t *testing.T) {
	dst := State{"a": 1}
	src := State{"a": 99, "b": map[string]any{"x": 1}}

	CloneInto(dst, src)

	if dst["a"] != 1 {
		t.Errorf("existing field overwritten: got %v", dst["a"])
	}
	if dst["b"].(map[string]any)["x"] != 1 {
		t.Errorf("missing field not filled: got %v", dst["b"])
	}

	// The filled field must be an independent copy.
	dst["b"].(map[string]any)["x"] = 2
	if src["b"].(map[string]any)["x"] != 1 {
		t.Error("filled field shares structure with source")
	}
}
