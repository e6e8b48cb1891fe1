package zopfli

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
)

// inflate decodes a raw DEFLATE stream with a reference decoder.
func inflate(t *testing.T, data []byte) []byte {
	t.Helper()
	r := flate.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}
	return out
}

func TestDeflateRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	opts.NumIterations = 5

	inputs := map[string][]byte{
		"empty":      nil,
		"one byte":   {0x41},
		"aaa":        []byte("AAA"),
		"run":        bytes.Repeat([]byte{0}, 1000),
		"text":       testCorpus(t, 20, 30000),
		"random":     randomBytes(21, 10000),
		"run+text":   append(bytes.Repeat([]byte{'x'}, 2000), testCorpus(t, 22, 2000)...),
		"all values": randomBytes(23, 600),
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			out := Deflate(opts, 2, true, in, nil)
			if got := inflate(t, out); !bytes.Equal(got, in) {
				t.Fatalf("decoded %d bytes, input %d bytes, contents differ", len(got), len(in))
			}
		})
	}
}

func TestDeflateForcedBlockTypes(t *testing.T) {
	opts := DefaultOptions()
	opts.NumIterations = 3
	in := testCorpus(t, 24, 5000)

	for btype := 0; btype <= 2; btype++ {
		out := Deflate(opts, btype, true, in, nil)
		if got := inflate(t, out); !bytes.Equal(got, in) {
			t.Errorf("btype %d: decoded output differs from input", btype)
		}
	}
}

func TestDeflateAppends(t *testing.T) {
	opts := DefaultOptions()
	opts.NumIterations = 2
	in := []byte("appending must preserve the prefix")
	prefix := []byte{1, 2, 3}
	out := Deflate(opts, 2, true, in, append([]byte(nil), prefix...))
	if !bytes.Equal(out[:3], prefix) {
		t.Fatal("prefix clobbered")
	}
	if got := inflate(t, out[3:]); !bytes.Equal(got, in) {
		t.Fatal("decoded output differs from input")
	}
}

func bitsWritten(w *bitWriter) int {
	if w.bp == 0 {
		return len(w.out) * 8
	}
	return (len(w.out)-1)*8 + int(w.bp)
}

func TestCalculateBlockSizeExact(t *testing.T) {
	in := testCorpus(t, 25, 20000)
	store := NewLZ77Store(in)
	s := NewBlockState(nil, 0, len(in), false)
	LZ77Greedy(s, in, 0, len(in), store, newHash(windowSize))

	for btype := 1; btype <= 2; btype++ {
		want := CalculateBlockSize(store, 0, store.Size(), btype)
		w := &bitWriter{}
		addLZ77Block(nil, btype, true, store, 0, store.Size(), 0, w)
		if got := float64(bitsWritten(w)); got != want {
			t.Errorf("btype %d: emitted %v bits, accounting said %v", btype, got, want)
		}
		if got := inflate(t, w.out); !bytes.Equal(got, in) {
			t.Errorf("btype %d: emitted block does not decode to input", btype)
		}
	}
}

func TestCalculateBlockSizeStored(t *testing.T) {
	in := randomBytes(26, 70000) // forces a stored-block split at 65535
	store := NewLZ77Store(in)
	s := NewBlockState(nil, 0, len(in), false)
	LZ77Greedy(s, in, 0, len(in), store, newHash(windowSize))

	want := CalculateBlockSize(store, 0, store.Size(), 0)
	w := &bitWriter{}
	addLZ77Block(nil, 0, true, store, 0, store.Size(), 0, w)
	if got := float64(bitsWritten(w)); got != want {
		t.Errorf("emitted %v bits, accounting said %v", got, want)
	}
	if got := inflate(t, w.out); !bytes.Equal(got, in) {
		t.Error("stored blocks do not decode to input")
	}
}

func TestCalculateBlockSizeAutoTypeIsMin(t *testing.T) {
	inputs := [][]byte{
		randomBytes(27, 3000),   // incompressible: stored should win
		testCorpus(t, 28, 3000), // compressible: dynamic should win
		[]byte("tiny"),
	}
	for _, in := range inputs {
		store := NewLZ77Store(in)
		s := NewBlockState(nil, 0, len(in), false)
		LZ77Greedy(s, in, 0, len(in), store, newHash(windowSize))
		auto := CalculateBlockSizeAutoType(store, 0, store.Size())
		for btype := 0; btype <= 2; btype++ {
			if c := CalculateBlockSize(store, 0, store.Size(), btype); auto > c {
				t.Errorf("auto size %v exceeds btype %d size %v", auto, btype, c)
			}
		}
	}
}

func TestFixedTreeCodes(t *testing.T) {
	llLengths := make([]int, numLL)
	dLengths := make([]int, numD)
	getFixedTree(llLengths, dLengths)
	llSymbols := make([]uint32, numLL)
	lengthsToSymbols(llLengths, 15, llSymbols)

	// Spot checks from RFC 1951 section 3.2.6.
	if llSymbols[0] != 0x30 {
		t.Errorf("code of literal 0 = %x, want 0x30", llSymbols[0])
	}
	if llSymbols[256] != 0 {
		t.Errorf("code of end symbol = %x, want 0", llSymbols[256])
	}
	if llSymbols[144] != 0x190 {
		t.Errorf("code of literal 144 = %x, want 0x190", llSymbols[144])
	}
	if llSymbols[280] != 0xc0 {
		t.Errorf("code of symbol 280 = %x, want 0xc0", llSymbols[280])
	}
}

func TestPatchDistanceCodes(t *testing.T) {
	d := make([]int, numD)
	patchDistanceCodes(d)
	if d[0] != 1 || d[1] != 1 {
		t.Errorf("no codes: got %v %v, want two length-1 codes", d[0], d[1])
	}

	d = make([]int, numD)
	d[3] = 1
	patchDistanceCodes(d)
	n := 0
	for _, l := range d[:30] {
		if l != 0 {
			n++
		}
	}
	if n < 2 {
		t.Errorf("one code: still only %d nonzero codes after patching", n)
	}

	d = make([]int, numD)
	d[2], d[9] = 3, 3
	want := append([]int(nil), d...)
	patchDistanceCodes(d)
	for i := range d {
		if d[i] != want[i] {
			t.Error("two codes: patching changed a valid tree")
			break
		}
	}
}
