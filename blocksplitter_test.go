package zopfli

import (
	"bytes"
	"sort"
	"testing"
)

func TestFindMinimum(t *testing.T) {
	// A convex function over a small range: exhaustive scan.
	f := func(i int) float64 {
		d := float64(i - 300)
		return d*d + 7
	}
	pos, v := findMinimum(f, 0, 1000)
	if pos != 300 || v != 7 {
		t.Errorf("findMinimum small = (%d, %v), want (300, 7)", pos, v)
	}

	// Large range: the 9-point search must still land on the minimum of
	// a smooth function.
	pos, v = findMinimum(f, 0, 100000)
	if pos != 300 || v != 7 {
		t.Errorf("findMinimum large = (%d, %v), want (300, 7)", pos, v)
	}
}

func TestAddSorted(t *testing.T) {
	var s []int
	for _, v := range []int{5, 1, 9, 3, 7} {
		s = addSorted(v, s)
	}
	if !sort.IntsAreSorted(s) {
		t.Fatalf("not sorted: %v", s)
	}
	if len(s) != 5 {
		t.Fatalf("got %d elements, want 5", len(s))
	}
}

func TestBlockSplit(t *testing.T) {
	// Two very different halves: long runs, then random bytes. The
	// splitter should find at least one boundary, and every split point
	// must lie strictly inside the range.
	in := append(bytes.Repeat([]byte{'a'}, 20000), randomBytes(30, 20000)...)
	opts := DefaultOptions()
	points := BlockSplit(opts, in, 0, len(in), 15)

	if !sort.IntsAreSorted(points) {
		t.Fatalf("split points not sorted: %v", points)
	}
	for _, p := range points {
		if p <= 0 || p >= len(in) {
			t.Fatalf("split point %d outside (0, %d)", p, len(in))
		}
	}
	if len(points) == 0 {
		t.Error("no split points for input with two clearly different halves")
	}
	if len(points) > 14 {
		t.Errorf("%d split points, limit allows 14", len(points))
	}
}

func TestBlockSplitTiny(t *testing.T) {
	opts := DefaultOptions()
	if points := BlockSplit(opts, []byte("abc"), 0, 3, 15); len(points) != 0 {
		t.Errorf("tiny input got split points %v", points)
	}
	if points := BlockSplit(opts, nil, 0, 0, 15); len(points) != 0 {
		t.Errorf("empty input got split points %v", points)
	}
}

func TestBlockSplitLZ77MaxBlocks(t *testing.T) {
	in := append(append(bytes.Repeat([]byte{'a'}, 10000), testCorpus(t, 31, 10000)...),
		randomBytes(31, 10000)...)
	store := NewLZ77Store(in)
	s := NewBlockState(nil, 0, len(in), false)
	LZ77Greedy(s, in, 0, len(in), store, newHash(windowSize))

	points := BlockSplitLZ77(DefaultOptions(), store, 3)
	if len(points) > 2 {
		t.Errorf("%d split points with maxblocks 3, want at most 2", len(points))
	}
}
