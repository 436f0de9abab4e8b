package worker

import (
	"strings"
	"sync"
	"testing"
)

func TestMap_PreservesInputOrder(t *testing.T) {
	paths := []string{"c.md", "a.md", "b.md", "d.md"}
	pool := New[string](2)

	got := pool.Map(paths, func(p string) string {
		return strings.ToUpper(p)
	})

	want := []string{"C.MD", "A.MD", "B.MD", "D.MD"}
	if len(got) != len(want) {
		t.Fatalf("Map() returned %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMap_EmptyInput(t *testing.T) {
	if got := New[int](4).Map(nil, func(string) int { return 1 }); got != nil {
		t.Errorf("Map(nil) = %v, want nil", got)
	}
}

func TestMap_BoundsConcurrency(t *testing.T) {
	const workers = 2
	pool := New[int](workers)

	var mu sync.Mutex
	active, peak := 0, 0

	paths := make([]string, 32)
	for i := range paths {
		paths[i] = "f"
	}

	pool.Map(paths, func(string) int {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
		defer func() {
			mu.Lock()
			active--
			mu.Unlock()
		}()
		return 0
	})

	if peak > workers {
		t.Errorf("peak concurrency = %d, want <= %d", peak, workers)
	}
}

func TestMap_DefaultsWorkerCount(t *testing.T) {
	pool := New[bool](0)
	got := pool.Map([]string{"a", "b"}, func(string) bool { return true })
	if len(got) != 2 || !got[0] || !got[1] {
		t.Errorf("Map() = %v, want [true true]", got)
	}
}
