package zopfli

import (
	"bytes"
	"testing"
)

func TestHashSameRuns(t *testing.T) {
	in := append(bytes.Repeat([]byte{'x'}, 100), 'y', 'z')
	h := newHash(windowSize)
	h.reset(windowSize)
	h.warmup(in, 0, len(in))
	for i := 0; i < len(in); i++ {
		h.update(in, i, len(in))
	}
	// At position i inside the run, 100-i-1 more 'x' bytes follow.
	for i := 0; i < 100; i++ {
		want := 100 - i - 1
		if got := int(h.same[i&windowMask]); got != want {
			t.Fatalf("same[%d] = %d, want %d", i, got, want)
		}
	}
	if got := h.same[100&windowMask]; got != 0 {
		t.Errorf("same at 'y' = %d, want 0", got)
	}
}

func TestHashChainsFindPrevOccurrence(t *testing.T) {
	in := []byte("abcdXabcd")
	h := newHash(windowSize)
	h.reset(windowSize)
	h.warmup(in, 0, len(in))
	for i := 0; i <= 5; i++ {
		h.update(in, i, len(in))
	}
	// After hashing position 5 ("abc" again), the chain from the head
	// must lead back to position 0.
	if got := h.head[h.val]; got != 5 {
		t.Fatalf("head = %d, want 5", got)
	}
	if got := h.prev[5]; got != 0 {
		t.Errorf("prev[5] = %d, want 0", got)
	}
}

func TestHashDeterministic(t *testing.T) {
	in := randomBytes(12, 2000)
	h1 := newHash(windowSize)
	h2 := newHash(windowSize)
	for _, h := range []*hash{h1, h2} {
		h.reset(windowSize)
		h.warmup(in, 0, len(in))
		for i := 0; i < len(in); i++ {
			h.update(in, i, len(in))
		}
	}
	if h1.val != h2.val || h1.val2 != h2.val2 {
		t.Fatal("hash state differs between identical runs")
	}
	if !bytes.Equal(u16bytes(h1.same), u16bytes(h2.same)) {
		t.Fatal("same arrays differ between identical runs")
	}
}

func u16bytes(s []uint16) []byte {
	b := make([]byte, 0, len(s)*2)
	for _, v := range s {
		b = append(b, byte(v), byte(v>>8))
	}
	return b
}
