package zopfli

import (
	"bytes"
	"testing"
)

func TestGreedyRoundTrip(t *testing.T) {
	inputs := [][]byte{
		[]byte("hello hello hello hello"),
		bytes.Repeat([]byte("abc"), 100),
		randomBytes(7, 10000),
		testCorpus(t, 8, 20000),
	}
	for _, in := range inputs {
		store := NewLZ77Store(in)
		s := NewBlockState(nil, 0, len(in), false)
		LZ77Greedy(s, in, 0, len(in), store, newHash(windowSize))
		if got := decodeStore(t, store); !bytes.Equal(got, in) {
			t.Errorf("greedy store does not decode to input (len %d)", len(in))
		}
	}
}

func TestFindLongestMatchSimple(t *testing.T) {
	// "abcde" repeated: at position 5 there is a match of distance 5
	// covering the rest of the buffer (matches may overlap themselves).
	in := bytes.Repeat([]byte("abcde"), 8)
	s := NewBlockState(nil, 0, len(in), false)
	h := newHash(windowSize)
	h.reset(windowSize)
	h.warmup(in, 0, len(in))
	for i := 0; i <= 5; i++ {
		h.update(in, i, len(in))
	}

	var sublen [259]uint16
	length, dist := s.findLongestMatch(h, in, 5, len(in), maxMatch, sublen[:])
	if int(length) != len(in)-5 {
		t.Errorf("length = %d, want %d", length, len(in)-5)
	}
	if dist != 5 {
		t.Errorf("dist = %d, want 5", dist)
	}
	for k := 3; k <= int(length); k++ {
		if sublen[k] != 5 {
			t.Errorf("sublen[%d] = %d, want 5", k, sublen[k])
		}
	}
}

func TestFindLongestMatchNone(t *testing.T) {
	in := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	s := NewBlockState(nil, 0, len(in), false)
	h := newHash(windowSize)
	h.reset(windowSize)
	h.warmup(in, 0, len(in))
	for i := 0; i <= 4; i++ {
		h.update(in, i, len(in))
	}
	length, dist := s.findLongestMatch(h, in, 4, len(in), maxMatch, nil)
	if length > 2 || dist != 0 {
		t.Errorf("got (length %d, dist %d) in unrepeated data, want no match", length, dist)
	}
}

func TestStoreHistogram(t *testing.T) {
	// Random bytes yield one literal symbol each, so the store is
	// guaranteed to be large enough for the cumulative-histogram path;
	// the corpus part adds matches so distance symbols occur too.
	in := append(randomBytes(9, 8000), testCorpus(t, 9, 20000)...)
	store := NewLZ77Store(in)
	s := NewBlockState(nil, 0, len(in), false)
	LZ77Greedy(s, in, 0, len(in), store, newHash(windowSize))
	if store.Size() < numLL*4 {
		t.Fatalf("store unexpectedly small: %d symbols", store.Size())
	}

	ranges := [][2]int{
		{0, store.Size()},
		{1, store.Size() - 1},
		{numLL - 1, numLL * 4},
		{50, 80}, // small range, counted directly
	}
	for _, r := range ranges {
		lstart, lend := r[0], r[1]
		llCounts := make([]int, numLL)
		dCounts := make([]int, numD)
		store.histogram(lstart, lend, llCounts, dCounts)

		llWant := make([]int, numLL)
		dWant := make([]int, numD)
		for i := lstart; i < lend; i++ {
			llWant[store.llSymbol[i]]++
			if store.dists[i] != 0 {
				dWant[store.dSymbol[i]]++
			}
		}
		for i := range llWant {
			if llCounts[i] != llWant[i] {
				t.Fatalf("range [%d,%d): ll count of symbol %d = %d, want %d",
					lstart, lend, i, llCounts[i], llWant[i])
			}
		}
		for i := range dWant {
			if dCounts[i] != dWant[i] {
				t.Fatalf("range [%d,%d): d count of symbol %d = %d, want %d",
					lstart, lend, i, dCounts[i], dWant[i])
			}
		}
	}
}

func TestStoreByteRange(t *testing.T) {
	in := testCorpus(t, 10, 5000)
	store := NewLZ77Store(in)
	s := NewBlockState(nil, 0, len(in), false)
	LZ77Greedy(s, in, 0, len(in), store, newHash(windowSize))

	if got := store.byteRange(0, store.Size()); got != len(in) {
		t.Errorf("byteRange(all) = %d, want %d", got, len(in))
	}
	mid := store.Size() / 2
	a := store.byteRange(0, mid)
	b := store.byteRange(mid, store.Size())
	if a+b != len(in) {
		t.Errorf("byteRange halves %d + %d != %d", a, b, len(in))
	}
}

func TestStoreCopyAppend(t *testing.T) {
	in := testCorpus(t, 11, 3000)
	store := NewLZ77Store(in)
	s := NewBlockState(nil, 0, len(in), false)
	LZ77Greedy(s, in, 0, len(in), store, newHash(windowSize))

	cp := NewLZ77Store(in)
	store.CopyTo(cp)
	if !storesEqual(store, cp) {
		t.Fatal("copy differs from original")
	}

	appended := NewLZ77Store(in)
	store.AppendTo(appended)
	if !storesEqual(store, appended) {
		t.Fatal("append into empty store differs from original")
	}

	// Histograms must survive both paths.
	llA := make([]int, numLL)
	dA := make([]int, numD)
	llB := make([]int, numLL)
	dB := make([]int, numD)
	store.histogram(0, store.Size(), llA, dA)
	appended.histogram(0, appended.Size(), llB, dB)
	for i := range llA {
		if llA[i] != llB[i] {
			t.Fatalf("ll histogram differs at %d after append", i)
		}
	}
	for i := range dA {
		if dA[i] != dB[i] {
			t.Fatalf("d histogram differs at %d after append", i)
		}
	}
}

func TestMatchLen(t *testing.T) {
	a := []byte("abcdefghijklmnopqrstuvwxyz")
	b := []byte("abcdefghijklmnopqrstuvwxyz")
	if got := matchLen(a, b); got != len(a) {
		t.Errorf("matchLen(equal) = %d, want %d", got, len(a))
	}
	b2 := append([]byte(nil), b...)
	b2[13] = '!'
	if got := matchLen(a, b2); got != 13 {
		t.Errorf("matchLen = %d, want 13", got)
	}
	if got := matchLen(a[:0], b[:0]); got != 0 {
		t.Errorf("matchLen(empty) = %d, want 0", got)
	}
}
