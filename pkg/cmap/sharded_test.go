package cmap

import (
	"fmt"
	"sort"
	"sync"
	"testing"
)

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},
		{-4, DefaultShardCount},
		{3, DefaultShardCount},
		{1, 1},
		{8, 8},
		{64, 64},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.input), func(t *testing.T) {
			m := NewWithShards[int](tt.input)
			if m.ShardCount() != tt.expected {
				t.Errorf("NewWithShards(%d).ShardCount() = %d, want %d",
					tt.input, m.ShardCount(), tt.expected)
			}
		})
	}

	if New[int]().ShardCount() != DefaultShardCount {
		t.Errorf("New().ShardCount() = %d, want %d", New[int]().ShardCount(), DefaultShardCount)
	}
}

func TestSetGetPop(t *testing.T) {
	m := New[int]()

	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 3)

	if v, ok := m.Get("a"); !ok || v != 3 {
		t.Errorf("Get(a) = %d, %v, want 3, true", v, ok)
	}
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}

	if v, ok := m.Pop("b"); !ok || v != 2 {
		t.Errorf("Pop(b) = %d, %v, want 2, true", v, ok)
	}
	if _, ok := m.Pop("b"); ok {
		t.Error("second Pop(b) should report false")
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) should report false")
	}
}

func TestRangeAndSnapshot(t *testing.T) {
	m := New[int]()
	for i := 0; i < 50; i++ {
		m.Set(fmt.Sprintf("k%02d", i), i)
	}

	seen := 0
	m.Range(func(string, int) bool {
		seen++
		return true
	})
	if seen != 50 {
		t.Errorf("Range visited %d entries, want 50", seen)
	}

	stopped := 0
	m.Range(func(string, int) bool {
		stopped++
		return stopped < 5
	})
	if stopped != 5 {
		t.Errorf("Range after false visited %d entries, want 5", stopped)
	}

	values := m.Snapshot()
	sort.Ints(values)
	if len(values) != 50 || values[0] != 0 || values[49] != 49 {
		t.Errorf("Snapshot() = %v", values)
	}
}

func TestDistribution(t *testing.T) {
	m := NewWithShards[int](8)
	for i := 0; i < 4000; i++ {
		m.Set(fmt.Sprintf("01J%023d", i), i)
	}

	for i := range m.shards {
		if n := len(m.shards[i].items); n == 0 {
			t.Errorf("shard %d is empty", i)
		}
	}
}

func TestConcurrentSetPop(t *testing.T) {
	m := New[int]()
	const workers, perWorker = 16, 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Set(fmt.Sprintf("w%d-%d", w, j), j)
			}
		}(w)
	}
	wg.Wait()

	if m.Count() != workers*perWorker {
		t.Fatalf("Count() = %d, want %d", m.Count(), workers*perWorker)
	}

	// Two goroutines race to pop every key; each key is won exactly once.
	var (
		mu  sync.Mutex
		won int
	)
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := 0
			for w := 0; w < workers; w++ {
				for j := 0; j < perWorker; j++ {
					if _, ok := m.Pop(fmt.Sprintf("w%d-%d", w, j)); ok {
						n++
					}
				}
			}
			mu.Lock()
			won += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	if won != workers*perWorker {
		t.Errorf("successful pops = %d, want %d", won, workers*perWorker)
	}
	if m.Count() != 0 {
		t.Errorf("Count() after pops = %d, want 0", m.Count())
	}
}
