package rng

import (
	"slices"
	"testing"
)

func TestNewDeterministic(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
	if New(1).Float64() == New(2).Float64() {
		t.Error("different seeds produced the same first draw")
	}
}

func TestUniform(t *testing.T) {
	src := New(7)
	for i := 0; i < 1000; i++ {
		v := Uniform(src, -5, 5)
		if v < -5 || v >= 5 {
			t.Fatalf("Uniform out of range: %v", v)
		}
	}
}

func TestSample(t *testing.T) {
	src := New(3)
	for i := 0; i < 200; i++ {
		got := Sample(src, 5, 3)
		if len(got) != 3 {
			t.Fatalf("len = %d", len(got))
		}
		seen := map[int]bool{}
		for _, v := range got {
			if v < 0 || v >= 5 || seen[v] {
				t.Fatalf("bad sample %v", got)
			}
			seen[v] = true
		}
	}

	all := Sample(src, 4, 4)
	slices.Sort(all)
	if !slices.Equal(all, []int{0, 1, 2, 3}) {
		t.Errorf("full sample = %v", all)
	}
}

func TestSamplePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Sample(New(1), 2, 3)
}
