package cache

import (
	"errors"
	"sync"
	"testing"
)

// fakeGenerator produces a fixed-size payload and counts generations.
type fakeGenerator struct {
	mu    sync.Mutex
	size  int64
	runs  int
	fail  error
	label string
}

func (g *fakeGenerator) SizeBytes() int64 { return g.size }

func (g *fakeGenerator) Generate() (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return nil, g.fail
	}
	g.runs++
	return g.label, nil
}

func (g *fakeGenerator) generations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.runs
}

func touch(t *testing.T, h *Handle) {
	t.Helper()
	if _, err := h.Acquire(); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	h.Release()
}

func TestCacheLazyGeneration(t *testing.T) {
	c := New(WithBudget(1000))
	gen := &fakeGenerator{size: 100, label: "tile"}
	h := c.Insert(gen)

	if gen.generations() != 0 {
		t.Fatal("Insert generated eagerly")
	}
	v, err := h.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if v.(string) != "tile" {
		t.Errorf("payload = %v", v)
	}
	h.Release()
	if gen.generations() != 1 {
		t.Errorf("generations = %d, want 1", gen.generations())
	}

	// A second acquire hits the resident tile without regenerating.
	touch(t, h)
	if gen.generations() != 1 {
		t.Errorf("generations after re-acquire = %d, want 1", gen.generations())
	}
}

func TestCacheLRUEviction(t *testing.T) {
	// Budget of three tiles. Generating a fourth evicts the least
	// recently used; re-requesting the evicted tile regenerates it and
	// evicts the next-coldest.
	const tileBytes = 100
	c := New(WithBudget(3 * tileBytes))
	gens := make([]*fakeGenerator, 4)
	handles := make([]*Handle, 4)
	for i := range gens {
		gens[i] = &fakeGenerator{size: tileBytes, label: string(rune('A' + i))}
		handles[i] = c.Insert(gens[i])
	}

	touch(t, handles[0])
	touch(t, handles[1])
	touch(t, handles[2])
	if got := c.ResidentBytes(); got != 3*tileBytes {
		t.Fatalf("resident = %d, want %d", got, 3*tileBytes)
	}
	if !handles[0].Resident() {
		t.Fatal("T1 evicted before budget was exceeded")
	}

	touch(t, handles[3])
	if handles[0].Resident() {
		t.Error("T1 should be evicted after T4")
	}
	for i := 1; i < 4; i++ {
		if !handles[i].Resident() {
			t.Errorf("T%d should stay resident", i+1)
		}
	}

	// Requesting T1 again regenerates it and evicts T2.
	touch(t, handles[0])
	if gens[0].generations() != 2 {
		t.Errorf("T1 generations = %d, want 2", gens[0].generations())
	}
	if handles[1].Resident() {
		t.Error("T2 should be evicted after T1 returns")
	}
	if got := c.ResidentBytes(); got != 3*tileBytes {
		t.Errorf("resident = %d, want %d", got, 3*tileBytes)
	}
}

func TestCachePinPreventsEviction(t *testing.T) {
	const tileBytes = 100
	c := New(WithBudget(tileBytes))
	pinned := c.Insert(&fakeGenerator{size: tileBytes, label: "pinned"})
	other := c.Insert(&fakeGenerator{size: tileBytes, label: "other"})

	if _, err := pinned.Acquire(); err != nil {
		t.Fatal(err)
	}
	// The pinned tile survives even though a second generation pushes the
	// cache over budget.
	touch(t, other)
	if !pinned.Resident() {
		t.Error("pinned tile was evicted")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("evictions = %d, want 1 (the unpinned tile)", got)
	}
	pinned.Release()
}

func TestCacheBudgetSlack(t *testing.T) {
	// Resident bytes never exceed budget plus one tile: the slack covers
	// the generate-then-evict window when everything else is pinned.
	const tileBytes = 64
	c := New(WithBudget(2 * tileBytes))
	var handles []*Handle
	for i := 0; i < 8; i++ {
		h := c.Insert(&fakeGenerator{size: tileBytes, label: "t"})
		handles = append(handles, h)
		touch(t, h)
		if got := c.ResidentBytes(); got > 2*tileBytes+tileBytes {
			t.Fatalf("resident = %d exceeds budget + one tile", got)
		}
	}
	_ = handles
}

func TestCacheGenerateFailure(t *testing.T) {
	boom := errors.New("boom")
	c := New()
	h := c.Insert(&fakeGenerator{size: 1, fail: boom})
	if _, err := h.Acquire(); !errors.Is(err, boom) {
		t.Errorf("Acquire() error = %v, want boom", err)
	}
	if got := c.ResidentBytes(); got != 0 {
		t.Errorf("failed generation left %d resident bytes", got)
	}
}

func TestCacheConcurrentAcquire(t *testing.T) {
	c := New(WithBudget(1 << 20))
	gen := &fakeGenerator{size: 100, label: "shared"}
	h := c.Insert(gen)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := h.Acquire()
			if err != nil || v.(string) != "shared" {
				t.Errorf("Acquire() = %v, %v", v, err)
			}
			h.Release()
		}()
	}
	wg.Wait()
	if gen.generations() != 1 {
		t.Errorf("concurrent acquires generated %d times", gen.generations())
	}
}

func TestReleaseWithoutAcquirePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	c := New()
	h := c.Insert(&fakeGenerator{size: 1})
	h.Release()
}
