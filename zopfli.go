// Package zopfli implements a DEFLATE-compatible compressor that trades
// a great deal of CPU time for density. Instead of committing to the
// matches a greedy pass finds, it runs an iterative entropy-guided
// shortest-path search over all possible LZ77 parsings of each block,
// re-estimating the cost model from its own output for a fixed number of
// iterations and keeping the parse with the smallest encoded size.
//
// The output is a valid DEFLATE, zlib or gzip stream readable by any
// standard decoder.
package zopfli

import (
	"fmt"
	"io"
)

// Options control the effort and output of the compressor.
// DefaultOptions returns the recommended settings. The zero value has
// NumIterations 0, which Compress rejects.
type Options struct {
	// Verbose, if non-nil, receives human-readable progress output.
	Verbose io.Writer
	// VerboseMore enables per-iteration output instead of only
	// improvements.
	VerboseMore bool

	// NumIterations is the number of times to rerun the forward
	// and backward pass to optimize LZ77 compression cost. Good values:
	// 10, 15 for small files, 5 for files over several MB in size or it
	// will be too slow.
	NumIterations int

	// BlockSplitting chooses block boundaries based on estimated cost
	// instead of using a single block.
	BlockSplitting bool

	// BlockSplittingMax is the maximum amount of blocks to split into.
	// 0 for unlimited, but this can give extreme results that hurt
	// compression on some files. Default value: 15.
	BlockSplittingMax int
}

// DefaultOptions returns the recommended compression settings.
func DefaultOptions() *Options {
	return &Options{
		NumIterations:     15,
		BlockSplitting:    true,
		BlockSplittingMax: 15,
	}
}

func verbosef(opts *Options, format string, args ...interface{}) {
	if opts == nil || opts.Verbose == nil {
		return
	}
	fmt.Fprintf(opts.Verbose, format, args...)
}

// Format selects the container around the DEFLATE stream.
type Format int

const (
	// FormatGzip wraps the stream per RFC 1952, with a CRC32 checksum.
	FormatGzip Format = iota
	// FormatZlib wraps the stream per RFC 1950, with an Adler-32 checksum.
	FormatZlib
	// FormatDeflate is the raw RFC 1951 stream.
	FormatDeflate
)

// Compress compresses in to the given container format and returns the
// compressed bytes. opts may be nil, in which case DefaultOptions are
// used.
func Compress(opts *Options, format Format, in []byte) ([]byte, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumIterations < 1 {
		return nil, fmt.Errorf("zopfli: invalid NumIterations %d: want at least 1", opts.NumIterations)
	}
	switch format {
	case FormatGzip:
		return gzipCompress(opts, in), nil
	case FormatZlib:
		return zlibCompress(opts, in), nil
	case FormatDeflate:
		return Deflate(opts, 2, true, in, nil), nil
	}
	return nil, fmt.Errorf("zopfli: unknown format %d", format)
}
