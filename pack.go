package zopfli

import (
	"hash/crc32"
	"io"

	"github.com/andybalholm/pack"
)

// This file connects zopfli to the modular compression interfaces of
// github.com/andybalholm/pack, so that the optimal parser can be used
// with other encoders, and the DEFLATE encoder with other matchfinders.

// MatchFinder is an implementation of the pack.MatchFinder interface
// that does an iterative optimal parse of each block. It is far slower
// than ordinary matchfinders and meant for one-time compression of
// assets.
type MatchFinder struct {
	// Options configure the optimizer; nil means DefaultOptions.
	Options *Options

	store *LZ77Store
}

func (m *MatchFinder) Reset() {}

// FindMatches looks for matches in src, appends them to dst, and returns dst.
func (m *MatchFinder) FindMatches(dst []pack.Match, src []byte) []pack.Match {
	opts := m.Options
	if opts == nil {
		opts = DefaultOptions()
	}
	if m.store == nil {
		m.store = NewLZ77Store(src)
	}
	m.store.data = src
	m.store.Reset()

	s := NewBlockState(opts, 0, len(src), true)
	LZ77Optimal(s, src, 0, len(src), opts.NumIterations, m.store)

	unmatched := 0
	for i := 0; i < m.store.Size(); i++ {
		if m.store.dists[i] == 0 {
			unmatched++
			continue
		}
		dst = append(dst, pack.Match{
			Unmatched: unmatched,
			Length:    int(m.store.litlens[i]),
			Distance:  int(m.store.dists[i]),
		})
		unmatched = 0
	}
	if unmatched > 0 {
		dst = append(dst, pack.Match{
			Unmatched: unmatched,
		})
	}
	return dst
}

// Encoder is an implementation of the pack.Encoder interface that
// produces a DEFLATE stream, choosing per block between stored, fixed
// and dynamic-tree encoding. Matches must fit the DEFLATE limits:
// distances of at most 32768 and lengths of at least 3; matches longer
// than 258 are split.
type Encoder struct {
	// Options configure the block-type choice; nil means DefaultOptions.
	Options *Options

	bw bitWriter
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Reset() {
	e.bw = bitWriter{}
}

func (e *Encoder) Header(dst []byte) []byte {
	return dst
}

// Encode appends the DEFLATE encoding of src to dst, using the match
// information from matches.
func (e *Encoder) Encode(dst []byte, src []byte, matches []pack.Match, lastBlock bool) []byte {
	opts := e.Options
	if opts == nil {
		opts = DefaultOptions()
	}

	store := NewLZ77Store(src)
	pos := 0
	for _, m := range matches {
		for i := 0; i < m.Unmatched; i++ {
			store.storeLitLenDist(uint16(src[pos]), 0, pos)
			pos++
		}
		rem := m.Length
		for rem > 0 {
			length := rem
			if length > maxMatch {
				length = maxMatch
				if rem < maxMatch+minMatch {
					// Don't leave a remainder below the minimum match
					// length.
					length = rem - minMatch
				}
			}
			store.storeLitLenDist(uint16(length), uint16(m.Distance), pos)
			pos += length
			rem -= length
		}
	}

	addLZ77BlockAutoType(opts, lastBlock, store, 0, store.Size(), 0, &e.bw)

	// Only whole bytes can go to dst; bits of an unfinished byte stay
	// buffered until the last block pads the stream.
	n := len(e.bw.out)
	if e.bw.bp != 0 && !lastBlock {
		n--
	}
	dst = append(dst, e.bw.out[:n]...)
	tail := copy(e.bw.out, e.bw.out[n:])
	e.bw.out = e.bw.out[:tail]
	if lastBlock {
		e.bw = bitWriter{}
	}
	return dst
}

// NewGZIPEncoder returns a pack.Encoder that wraps the DEFLATE stream in
// gzip framing.
func NewGZIPEncoder() pack.Encoder {
	return &gzipEncoder{f: NewEncoder()}
}

type gzipEncoder struct {
	f           pack.Encoder
	length      uint32
	crc         uint32
	wroteHeader bool
}

func (g *gzipEncoder) Reset() {
	g.f.Reset()
	g.length = 0
	g.crc = 0
	g.wroteHeader = false
}

func (g *gzipEncoder) Header(dst []byte) []byte {
	return append(dst, gzipHeader...)
}

func (g *gzipEncoder) Encode(dst []byte, src []byte, matches []pack.Match, lastBlock bool) []byte {
	// pack.Writer only calls Encode, so the header goes before the first
	// block of the stream.
	if !g.wroteHeader {
		dst = g.Header(dst)
		g.wroteHeader = true
	}
	dst = g.f.Encode(dst, src, matches, lastBlock)

	g.length += uint32(len(src))
	g.crc = crc32.Update(g.crc, crc32.IEEETable, src)

	if lastBlock {
		dst = appendUint32(dst, g.crc)
		dst = appendUint32(dst, g.length)
	}

	return dst
}

// NewWriter returns a pack.Writer that compresses data with the optimal
// parser, in flate encoding.
func NewWriter(w io.Writer, opts *Options) *pack.Writer {
	return &pack.Writer{
		Dest:        w,
		MatchFinder: &MatchFinder{Options: opts},
		Encoder:     NewEncoder(),
		BlockSize:   1 << 16,
	}
}

// NewGZIPWriter returns a pack.Writer that compresses data with the
// optimal parser, in gzip encoding.
func NewGZIPWriter(w io.Writer, opts *Options) *pack.Writer {
	return &pack.Writer{
		Dest:        w,
		MatchFinder: &MatchFinder{Options: opts},
		Encoder:     NewGZIPEncoder(),
		BlockSize:   1 << 16,
	}
}
