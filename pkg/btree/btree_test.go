package btree

import (
	"fmt"
	"sync"
	"testing"

	"github.com/htapcore/engine/pkg/types"
)

func TestTreeUpsertGetDelete(t *testing.T) {
	tr := NewTree(0)

	err := tr.Upsert(types.IntKey(1), func(old int64, exists bool) (int64, error) {
		if exists {
			t.Fatal("expected no existing entry for a fresh key")
		}
		return 100, nil
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	ptr, ok := tr.Get(types.IntKey(1))
	if !ok || ptr != 100 {
		t.Fatalf("Get = %d,%v want 100,true", ptr, ok)
	}

	err = tr.Upsert(types.IntKey(1), func(old int64, exists bool) (int64, error) {
		if !exists || old != 100 {
			t.Fatalf("expected to see prior value 100, got %d exists=%v", old, exists)
		}
		return 200, nil
	})
	if err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	if ptr, _ := tr.Get(types.IntKey(1)); ptr != 200 {
		t.Fatalf("Get after overwrite = %d want 200", ptr)
	}

	if !tr.Delete(types.IntKey(1)) {
		t.Fatal("expected Delete to report the key was present")
	}
	if _, ok := tr.Get(types.IntKey(1)); ok {
		t.Fatal("expected Get to miss after Delete")
	}
	if tr.Delete(types.IntKey(1)) {
		t.Fatal("expected second Delete to report absent")
	}
}

func TestTreeUpsertPropagatesCallbackError(t *testing.T) {
	tr := NewTree(0)
	sentinel := fmt.Errorf("rejected")

	err := tr.Upsert(types.IntKey(1), func(old int64, exists bool) (int64, error) {
		return 0, sentinel
	})
	if err != sentinel {
		t.Fatalf("Upsert error = %v want %v", err, sentinel)
	}
	if _, ok := tr.Get(types.IntKey(1)); ok {
		t.Fatal("a rejected upsert must not leave a partial entry behind")
	}
}

func TestTreeAscendOrdersByKey(t *testing.T) {
	tr := NewTree(0)
	for _, k := range []int64{5, 1, 3, 2, 4} {
		if err := tr.Upsert(types.IntKey(k), func(_ int64, _ bool) (int64, error) { return k * 10, nil }); err != nil {
			t.Fatalf("Upsert(%d): %v", k, err)
		}
	}

	var seen []int64
	tr.Ascend(nil, func(key types.Comparable, ptr int64) bool {
		seen = append(seen, int64(key.(types.IntKey)))
		if ptr != int64(key.(types.IntKey))*10 {
			t.Fatalf("ptr for key %v = %d, inconsistent with stored value", key, ptr)
		}
		return true
	})

	want := []int64{1, 2, 3, 4, 5}
	if len(seen) != len(want) {
		t.Fatalf("Ascend visited %v want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("Ascend order = %v want %v", seen, want)
		}
	}
}

func TestTreeAscendFromLowerBound(t *testing.T) {
	tr := NewTree(0)
	for _, k := range []int64{1, 2, 3, 4, 5} {
		_ = tr.Upsert(types.IntKey(k), func(_ int64, _ bool) (int64, error) { return k, nil })
	}

	var seen []int64
	tr.Ascend(types.IntKey(3), func(key types.Comparable, ptr int64) bool {
		seen = append(seen, int64(key.(types.IntKey)))
		return true
	})
	want := []int64{3, 4, 5}
	if len(seen) != len(want) {
		t.Fatalf("Ascend from 3 = %v want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("Ascend from 3 = %v want %v", seen, want)
		}
	}
}

func TestTreeAscendStopsEarly(t *testing.T) {
	tr := NewTree(0)
	for _, k := range []int64{1, 2, 3, 4, 5} {
		_ = tr.Upsert(types.IntKey(k), func(_ int64, _ bool) (int64, error) { return k, nil })
	}

	var visited int
	tr.Ascend(nil, func(key types.Comparable, ptr int64) bool {
		visited++
		return key.(types.IntKey) < 3
	})
	if visited != 3 {
		t.Fatalf("visited %d entries, want 3 (stop once the predicate turns false)", visited)
	}
}

func TestTreeLen(t *testing.T) {
	tr := NewTree(0)
	if tr.Len() != 0 {
		t.Fatalf("Len on empty tree = %d want 0", tr.Len())
	}
	for _, k := range []int64{1, 2, 3} {
		_ = tr.Upsert(types.IntKey(k), func(_ int64, _ bool) (int64, error) { return k, nil })
	}
	if tr.Len() != 3 {
		t.Fatalf("Len = %d want 3", tr.Len())
	}
	tr.Delete(types.IntKey(2))
	if tr.Len() != 2 {
		t.Fatalf("Len after delete = %d want 2", tr.Len())
	}
}

func TestTreeConcurrentUpsert(t *testing.T) {
	tr := NewTree(0)
	const writers = 8
	const perWriter = 200

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				k := types.IntKey(w*perWriter + i)
				if err := tr.Upsert(k, func(_ int64, _ bool) (int64, error) { return int64(k), nil }); err != nil {
					t.Errorf("Upsert(%v): %v", k, err)
				}
			}
		}(w)
	}
	wg.Wait()

	if got := tr.Len(); got != writers*perWriter {
		t.Fatalf("Len after concurrent writers = %d want %d", got, writers*perWriter)
	}
}
