package vkng

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestRegistrySharedIDs(t *testing.T) {
	var ids handles
	names := newRegistry[string](&ids)
	numbers := newRegistry[int](&ids)

	a := names.add("a")
	one := numbers.add(1)
	b := names.add("b")
	if a == one || one == b || a == b {
		t.Fatalf("ids collide: %d %d %d", a, one, b)
	}

	if got, err := names.get(b); err != nil || got != "b" {
		t.Errorf("get(%d) = %q, %v", b, got, err)
	}
	if _, err := names.get(one); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("cross-registry get = %v, want ErrUnknownHandle", err)
	}
}

func TestRegistryTake(t *testing.T) {
	var ids handles
	r := newRegistry[string](&ids)
	id := r.add("x")

	if got, ok := r.take(id); !ok || got != "x" {
		t.Fatalf("take = %q, %v", got, ok)
	}
	if _, ok := r.take(id); ok {
		t.Error("second take found the object")
	}
	if _, err := r.get(id); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("get after take = %v", err)
	}
	if _, err := r.get(0); err == nil {
		t.Error("null handle resolved")
	}
}
