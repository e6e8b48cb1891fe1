package zopfli

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestCompressGzip(t *testing.T) {
	opts := DefaultOptions()
	opts.NumIterations = 5
	in := testCorpus(t, 40, 20000)

	out, err := Compress(opts, FormatGzip, in)
	if err != nil {
		t.Fatal(err)
	}
	r, err := gzip.NewReader(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, in) {
		t.Fatal("gzip output does not decode to input")
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCompressZlib(t *testing.T) {
	opts := DefaultOptions()
	opts.NumIterations = 5
	in := testCorpus(t, 41, 20000)

	out, err := Compress(opts, FormatZlib, in)
	if err != nil {
		t.Fatal(err)
	}
	r, err := zlib.NewReader(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, in) {
		t.Fatal("zlib output does not decode to input")
	}
}

func TestCompressDeflate(t *testing.T) {
	opts := DefaultOptions()
	opts.NumIterations = 5
	in := testCorpus(t, 42, 20000)

	out, err := Compress(opts, FormatDeflate, in)
	if err != nil {
		t.Fatal(err)
	}
	if got := inflate(t, out); !bytes.Equal(got, in) {
		t.Fatal("deflate output does not decode to input")
	}
}

func TestCompressEmpty(t *testing.T) {
	for _, format := range []Format{FormatGzip, FormatZlib, FormatDeflate} {
		out, err := Compress(nil, format, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(out) == 0 {
			t.Errorf("format %d: empty output for empty input, want valid empty stream", format)
		}
	}
	out, _ := Compress(nil, FormatGzip, nil)
	r, err := gzip.NewReader(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("empty gzip stream decoded to %d bytes", len(got))
	}
}

func TestCompressBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.NumIterations = 0
	if _, err := Compress(opts, FormatGzip, []byte("x")); err == nil {
		t.Error("no error for zero iterations")
	}
	if _, err := Compress(nil, Format(42), []byte("x")); err == nil {
		t.Error("no error for unknown format")
	}
}

func TestVerboseOutput(t *testing.T) {
	opts := DefaultOptions()
	opts.NumIterations = 3
	var buf bytes.Buffer
	opts.Verbose = &buf

	if _, err := Compress(opts, FormatGzip, testCorpus(t, 43, 5000)); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Error("no verbose output written")
	}
}
